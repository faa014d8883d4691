// Package cache provides guild profile caching with a Redis backend.
//
// The cache manager stores fetched guild profiles so repeated pipeline runs
// do not hammer the upstream API:
//
// - Deterministic cache key generation from guild identifiers
// - TTL management delegated to Redis key expiry
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	// Look up a guild
//	profile, ok, err := manager.Get(ctx, id)
//	if err == nil && !ok {
//		// Cache miss - fetch upstream
//	}
//
// The manager satisfies the fetch pipeline's cache interface: a hit short
// circuits admission entirely, so cached guilds consume neither a rate
// token nor a concurrency slot.
//
// # Metrics
//
//   - guildstatus_cache_hits_total{layer="redis"} - Cache hits
//   - guildstatus_cache_misses_total - Cache misses
//   - guildstatus_cache_errors_total{operation} - Cache operation errors
package cache
