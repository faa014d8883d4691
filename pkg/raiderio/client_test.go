package raiderio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testProfileBody = `{
	"name": "Echo",
	"realm": "Tarren Mill",
	"raid_progression": {"manaforge-omega": {"summary": "8/8 M"}},
	"raid_rankings": {"manaforge-omega": {"mythic": {"world": 2}}}
}`

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig("manaforge-omega")
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "missing raid slug",
			mutate:  func(c *Config) { c.Raid = "" },
			wantErr: true,
		},
		{
			name:    "missing user-agent",
			mutate:  func(c *Config) { c.UserAgent = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("manaforge-omega")
			tt.mutate(&cfg)

			_, err := NewClient(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_FetchGuild_Success(t *testing.T) {
	var gotQuery map[string]string
	var gotUA string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"region": r.URL.Query().Get("region"),
			"realm":  r.URL.Query().Get("realm"),
			"name":   r.URL.Query().Get("name"),
			"fields": r.URL.Query().Get("fields"),
		}
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testProfileBody))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	id := GuildID{Region: "eu", Realm: "tarren-mill", Name: "Echo"}
	profile, err := client.FetchGuild(context.Background(), id)
	if err != nil {
		t.Fatalf("FetchGuild() error = %v", err)
	}

	if profile.Name != "Echo" {
		t.Errorf("profile.Name = %q, want %q", profile.Name, "Echo")
	}
	if profile.Progress != "8/8 M" {
		t.Errorf("profile.Progress = %q, want %q", profile.Progress, "8/8 M")
	}
	if profile.WorldRank != 2 {
		t.Errorf("profile.WorldRank = %d, want 2", profile.WorldRank)
	}
	if profile.FetchedAt.IsZero() {
		t.Error("profile.FetchedAt is zero, want timestamp")
	}

	if gotQuery["region"] != "eu" || gotQuery["realm"] != "tarren-mill" || gotQuery["name"] != "Echo" {
		t.Errorf("request query = %v, want region/realm/name from identifier", gotQuery)
	}
	if gotQuery["fields"] != "raid_rankings,raid_progression" {
		t.Errorf("fields query = %q, want raid_rankings,raid_progression", gotQuery["fields"])
	}
	if gotUA == "" {
		t.Error("User-Agent header not sent")
	}
}

func TestClient_FetchGuild_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantClass ErrorClass
	}{
		{name: "not found", status: http.StatusNotFound, wantClass: ErrorClassClient},
		{name: "bad request", status: http.StatusBadRequest, wantClass: ErrorClassClient},
		{name: "too many requests", status: http.StatusTooManyRequests, wantClass: ErrorClassThrottle},
		{name: "internal error", status: http.StatusInternalServerError, wantClass: ErrorClassServer},
		{name: "bad gateway", status: http.StatusBadGateway, wantClass: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := testClient(t, server.URL)

			_, err := client.FetchGuild(context.Background(), GuildID{Region: "eu", Realm: "r", Name: "g"})
			if err == nil {
				t.Fatalf("FetchGuild() error = nil for status %d", tt.status)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("FetchGuild() error = %v, want *APIError", err)
			}
			if apiErr.Class != tt.wantClass {
				t.Errorf("error class = %q, want %q", apiErr.Class, tt.wantClass)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("status code = %d, want %d", apiErr.StatusCode, tt.status)
			}
		})
	}
}

func TestClient_FetchGuild_UnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.FetchGuild(context.Background(), GuildID{Region: "eu", Realm: "r", Name: "g"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("FetchGuild() error = %v, want *APIError", err)
	}
	if apiErr.Class != ErrorClassPayload {
		t.Errorf("error class = %q, want %q", apiErr.Class, ErrorClassPayload)
	}
}

func TestClient_FetchGuild_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := testClient(t, server.URL)

	_, err := client.FetchGuild(context.Background(), GuildID{Region: "eu", Realm: "r", Name: "g"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("FetchGuild() error = %v, want *APIError", err)
	}
	if apiErr.Class != ErrorClassNetwork {
		t.Errorf("error class = %q, want %q", apiErr.Class, ErrorClassNetwork)
	}
}

func TestClient_ProfileURL_APIKey(t *testing.T) {
	cfg := DefaultConfig("manaforge-omega")
	cfg.APIKey = "secret-key"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	url := client.profileURL(GuildID{Region: "eu", Realm: "tarren-mill", Name: "Echo"})
	if want := "access_key=secret-key"; !strings.Contains(url, want) {
		t.Errorf("profileURL() = %q, want it to contain %q", url, want)
	}
}
