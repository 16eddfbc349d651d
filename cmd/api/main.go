package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/trendwire/trendwire/internal/api"
	"github.com/trendwire/trendwire/internal/collector"
	"github.com/trendwire/trendwire/internal/config"
	"github.com/trendwire/trendwire/internal/pipeline"
	"github.com/trendwire/trendwire/internal/scheduler"
	"github.com/trendwire/trendwire/internal/storage"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	specs, err := collector.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}
	log.Printf("loaded %d sources", len(specs))

	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	cache := collector.NewItemCache(store.Redis, cfg.ItemCacheTTL)
	pipe := pipeline.New(cfg, specs, cache, store)

	s, err := scheduler.New(cfg.CronSpec, pipe, store)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	r := gin.Default()
	apiServer := api.NewServer(store)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
