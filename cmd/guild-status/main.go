// Command guild-status runs the guild aggregation pipeline: it fetches the
// current raid status of every guild in the roster and prints a ranked
// table. It also manages the roster itself.
//
// Usage:
//
//	guild-status -config config.yaml                 # run the pipeline
//	guild-status -config config.yaml -add eu/tarren-mill/echo
//	guild-status -config config.yaml -remove eu/tarren-mill/echo
//	guild-status -config config.yaml -roster         # print the roster
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/guildwatch/guildstatus/pkg/cache"
	"github.com/guildwatch/guildstatus/pkg/config"
	"github.com/guildwatch/guildstatus/pkg/guildstore"
	"github.com/guildwatch/guildstatus/pkg/logging"
	"github.com/guildwatch/guildstatus/pkg/raiderio"
	"github.com/guildwatch/guildstatus/pkg/ratelimit"
	"github.com/guildwatch/guildstatus/pkg/report"
	"github.com/guildwatch/guildstatus/pkg/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "config.yaml", "path to configuration file")
		addGuild   = flag.String("add", "", "add a guild to the roster ([region/]realm/name)")
		removeArg  = flag.String("remove", "", "remove a guild from the roster ([region/]realm/name)")
		showRoster = flag.Bool("roster", false, "print the roster and exit")
		limit      = flag.Int("limit", 10, "number of guilds to display")
		showAll    = flag.Bool("all", false, "display every guild")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "guild-status: %v\n", err)
		return 1
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Format == "console",
		Output: os.Stderr,
	})

	store, err := guildstore.Open(cfg.Database.Path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open roster database")
		return 1
	}
	defer store.Close()

	ctx := context.Background()

	switch {
	case *addGuild != "":
		return rosterAdd(ctx, store, cfg, *addGuild)
	case *removeArg != "":
		return rosterRemove(ctx, store, cfg, *removeArg)
	case *showRoster:
		return rosterList(ctx, store)
	}

	return runPipeline(ctx, cfg, store, *limit, *showAll)
}

// parseGuildArg splits "[region/]realm/name" into its parts, falling back
// to the configured default region.
func parseGuildArg(arg, defaultRegion string) (region, realm, name string, err error) {
	parts := strings.Split(strings.TrimSpace(arg), "/")
	switch len(parts) {
	case 2:
		return defaultRegion, parts[0], parts[1], nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("guild must be [region/]realm/name (got %q)", arg)
	}
}

func rosterAdd(ctx context.Context, store *guildstore.Store, cfg *config.Config, arg string) int {
	region, realm, name, err := parseGuildArg(arg, cfg.RaiderIO.Region)
	if err != nil {
		fmt.Fprintf(os.Stderr, "guild-status: %v\n", err)
		return 1
	}

	added, err := store.Add(ctx, region, realm, name)
	if err != nil {
		log.Error().Err(err).Msg("Failed to add guild")
		return 1
	}
	if added {
		fmt.Printf("Added %s/%s/%s to the roster.\n", region, realm, name)
	} else {
		fmt.Printf("%s/%s/%s is already in the roster.\n", region, realm, name)
	}
	return 0
}

func rosterRemove(ctx context.Context, store *guildstore.Store, cfg *config.Config, arg string) int {
	region, realm, name, err := parseGuildArg(arg, cfg.RaiderIO.Region)
	if err != nil {
		fmt.Fprintf(os.Stderr, "guild-status: %v\n", err)
		return 1
	}

	removed, err := store.Remove(ctx, region, realm, name)
	if err != nil {
		log.Error().Err(err).Msg("Failed to remove guild")
		return 1
	}
	if removed {
		fmt.Printf("Removed %s/%s/%s from the roster.\n", region, realm, name)
	} else {
		fmt.Printf("%s/%s/%s was not in the roster.\n", region, realm, name)
	}
	return 0
}

func rosterList(ctx context.Context, store *guildstore.Store) int {
	guilds, err := store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list roster")
		return 1
	}
	if len(guilds) == 0 {
		fmt.Println("The roster is empty.")
		return 0
	}
	for _, g := range guilds {
		fmt.Printf("%s/%s/%s\n", g.Region, g.Realm, g.Name)
	}
	return 0
}

func runPipeline(ctx context.Context, cfg *config.Config, store *guildstore.Store, limit int, showAll bool) int {
	rows, err := store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list roster")
		return 1
	}
	if len(rows) == 0 {
		fmt.Println("The roster is empty. Add guilds with -add [region/]realm/name.")
		return 0
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr)
	}

	client, err := raiderio.NewClient(raiderio.Config{
		BaseURL:   cfg.RaiderIO.BaseURL,
		APIKey:    cfg.RaiderIO.APIKey,
		UserAgent: cfg.RaiderIO.UserAgent,
		Raid:      cfg.RaiderIO.Raid,
		Timeout:   cfg.RaiderIO.Timeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create API client")
		return 1
	}

	bucket := ratelimit.NewBucket(cfg.RateLimiting.RequestsPerSecond)
	slots, err := ratelimit.NewSemaphore(cfg.RateLimiting.ConcurrentRequests)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create concurrency limiter")
		return 1
	}

	var profileCache raiderio.Cache
	if cfg.Cache.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.Addr,
			DB:   cfg.Cache.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.Addr).
				Msg("Redis unavailable, running without profile cache")
		} else {
			defer redisClient.Close()
			profileCache = cache.NewManager(redisClient, cfg.Cache.TTL)
		}
	}

	fetcher, err := raiderio.NewFetcher(client, bucket, slots, profileCache, raiderio.FetcherConfig{
		RetryLimit:     cfg.RateLimiting.RetryAttempts,
		InitialBackoff: cfg.RateLimiting.RetryDelay,
		CacheTTL:       cfg.Cache.TTL,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create fetcher")
		return 1
	}

	sched, err := scheduler.New(fetcher, cfg.Pipeline.Deadline)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create scheduler")
		return 1
	}

	result, err := sched.Run(ctx, guildstore.IDs(rows))
	if err != nil {
		log.Error().Err(err).Msg("Pipeline run failed")
		return 1
	}

	sorted := report.SortGuilds(result.Profiles())
	fmt.Println(report.FormatGuildList(sorted, limit, showAll))

	if failed := result.Failed(); len(failed) > 0 {
		fmt.Printf("%d of %d guilds could not be fetched:\n", len(failed), len(result.Outcomes))
		for _, out := range failed {
			fmt.Printf("  %s: %s", out.Guild, out.Status)
			if out.Err != nil {
				fmt.Printf(" (%v)", out.Err)
			}
			fmt.Println()
		}
	}

	if result.Classification == scheduler.AllFailed {
		return 1
	}
	return 0
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("Metrics listener stopped")
	}
}
