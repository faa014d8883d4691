package raiderio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildstatus_upstream_requests_total",
		Help: "Total Raider.IO requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guildstatus_upstream_request_duration_seconds",
		Help:    "Raider.IO request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildstatus_upstream_errors_total",
		Help: "Total Raider.IO errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public Raider.IO API root.
const DefaultBaseURL = "https://raider.io/api/v1"

// Config holds the upstream client configuration.
type Config struct {
	// BaseURL of the API, without trailing slash.
	BaseURL string

	// APIKey is appended as the access_key query parameter when set.
	// Unauthenticated access works but is rate limited more aggressively.
	APIKey string

	// UserAgent sent with every request.
	UserAgent string

	// Raid is the raid slug progression is read for,
	// e.g. "manaforge-omega".
	Raid string

	// Timeout caps a single HTTP attempt. The per-attempt context may
	// shorten it further when the overall deadline is closer.
	Timeout time.Duration
}

// DefaultConfig returns a safe default client configuration.
func DefaultConfig(raid string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "guild-status/1.0",
		Raid:      raid,
		Timeout:   15 * time.Second,
	}
}

// Client issues single guild profile requests against Raider.IO.
// It performs no admission control and no retries; that is the fetcher's job.
type Client struct {
	httpClient *http.Client
	config     Config
	requestID  string
	logger     zerolog.Logger
}

// NewClient creates a Raider.IO client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Raid == "" {
		return nil, fmt.Errorf("raid slug is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config:    cfg,
		requestID: "guild-status-" + uuid.NewString(),
		logger:    log.With().Str("component", "raiderio-client").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// guildProfileResponse is the wire shape of /guilds/profile.
type guildProfileResponse struct {
	Name            string                     `json:"name"`
	Realm           string                     `json:"realm"`
	RaidProgression map[string]raidProgression `json:"raid_progression"`
	RaidRankings    map[string]raidRankings    `json:"raid_rankings"`
}

type raidProgression struct {
	Summary string `json:"summary"`
}

type raidRankings struct {
	Mythic mythicRanking `json:"mythic"`
}

type mythicRanking struct {
	World int `json:"world"`
}

// profileURL builds the guild profile request URL for one identifier.
func (c *Client) profileURL(id GuildID) string {
	params := url.Values{}
	params.Set("region", id.Region)
	params.Set("realm", id.Realm)
	params.Set("name", id.Name)
	params.Set("fields", "raid_rankings,raid_progression")
	if c.config.APIKey != "" {
		params.Set("access_key", c.config.APIKey)
	}

	return c.config.BaseURL + "/guilds/profile?" + params.Encode()
}

// FetchGuild performs exactly one HTTP attempt for one guild and classifies
// the result. Failures are returned as *APIError; the caller decides whether
// to retry.
func (c *Client) FetchGuild(ctx context.Context, id GuildID) (*GuildProfile, error) {
	reqURL := c.profileURL(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", c.requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Warn().
			Err(err).
			Str("guild", id.String()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request failed")
		return nil, &APIError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("guild", id.String()).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Raider.IO request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	var parsed guildProfileResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassPayload)).Inc()
		c.logger.Error().
			Err(err).
			Str("guild", id.String()).
			Int("body_length", len(body)).
			Msg("Failed to parse guild profile response")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassPayload,
			Message:    "parse guild profile",
			Err:        err,
		}
	}

	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	profile := &GuildProfile{
		Name:      parsed.Name,
		Realm:     parsed.Realm,
		FetchedAt: time.Now(),
	}
	if prog, ok := parsed.RaidProgression[c.config.Raid]; ok {
		profile.Progress = prog.Summary
	}
	if rank, ok := parsed.RaidRankings[c.config.Raid]; ok {
		profile.WorldRank = rank.Mythic.World
	}

	c.logger.Debug().
		Str("guild", id.String()).
		Str("progress", profile.Progress).
		Int("world_rank", profile.WorldRank).
		Dur("duration", time.Since(start)).
		Msg("Fetched guild profile")

	return profile, nil
}
