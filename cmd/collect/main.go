package main

import (
	"flag"
	"log"

	"github.com/trendwire/trendwire/internal/collector"
	"github.com/trendwire/trendwire/internal/config"
	"github.com/trendwire/trendwire/internal/pipeline"
	"github.com/trendwire/trendwire/internal/scheduler"
	"github.com/trendwire/trendwire/internal/storage"
)

// One-shot collection entry point: runs the pipeline a single time and exits.
func main() {
	dryRun := flag.Bool("dry-run", false, "run the pipeline without persisting results")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	specs, err := collector.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}

	var (
		store *storage.Store
		cache *collector.ItemCache
		prior pipeline.SnapshotReader
	)
	if !*dryRun {
		store, err = storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		cache = collector.NewItemCache(store.Redis, cfg.ItemCacheTTL)
		prior = store
	}

	pipe := pipeline.New(cfg, specs, cache, prior)
	s, err := scheduler.New(cfg.CronSpec, pipe, store)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	report := s.RunOnce()

	log.Printf("decision=%s trends=%d fresh_ratio=%.2f",
		report.Verdict.Decision, report.Verdict.TotalTrends, report.Verdict.FreshRatio)
	for i, cl := range report.Clusters {
		if i >= 10 {
			break
		}
		log.Printf("%2d. [%s] %s (sources=%d velocity=%.1f %s)",
			i+1, cl.Badge, cl.Representative.Title, cl.DistinctSources, cl.VelocityScore, cl.Freshness)
	}
}
