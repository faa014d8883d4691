package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guildwatch/guildstatus/pkg/raiderio"
)

// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
var ErrInvalidEntry = errors.New("invalid cache entry")

// Manager handles guild profile caching with a Redis backend. It satisfies
// the fetch pipeline's cache interface.
type Manager struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewManager creates a new cache manager with Redis backend. defaultTTL is
// used when a store request carries no explicit TTL.
func NewManager(redisClient *redis.Client, defaultTTL time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &Manager{
		redis:      redisClient,
		defaultTTL: defaultTTL,
	}
}

// Get retrieves a cached guild profile. A miss is not an error: it returns
// ok=false with a nil error so callers fall through to the upstream fetch.
func (m *Manager) Get(ctx context.Context, id raiderio.GuildID) (*raiderio.GuildProfile, bool, error) {
	data, err := m.redis.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, false, nil
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.Profile == nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, false, fmt.Errorf("%w: missing profile", ErrInvalidEntry)
	}

	// Redis normally evicts on expiry; the payload check covers entries
	// written with a longer key TTL than the entry's own lifetime.
	if entry.IsExpired() {
		_ = m.Delete(ctx, id)
		CacheMisses.Inc()
		return nil, false, nil
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry.Profile, true, nil
}

// Put stores a guild profile with the given TTL. A non-positive TTL falls
// back to the manager's default.
func (m *Manager) Put(ctx context.Context, id raiderio.GuildID, profile *raiderio.GuildProfile, ttl time.Duration) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	now := time.Now()
	entry := Entry{
		Profile:  profile,
		CachedAt: now,
		Expires:  now.Add(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, Key(id), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cached guild profile.
func (m *Manager) Delete(ctx context.Context, id raiderio.GuildID) error {
	if err := m.redis.Del(ctx, Key(id)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
