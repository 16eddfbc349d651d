package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the pipeline reads. Loaded once at startup;
// stages receive it at construction and never consult environment state
// afterwards.
type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	CronSpec string

	// Optional YAML file overriding the built-in source catalog.
	SourcesFile string

	// Quality gate thresholds.
	MinTrends     int
	MinFreshRatio float64

	// Dedup engine.
	SimilarityThreshold float64

	// Freshness windows, measured from a cluster's first sighting.
	FreshWindow time.Duration
	AgingWindow time.Duration

	// Per-kind fetch timeouts.
	RSSTimeout  time.Duration
	APITimeout  time.Duration
	HTMLTimeout time.Duration

	RetryBackoff time.Duration
	FetchWorkers int

	// Velocity scoring coefficients and badge thresholds.
	SourceCoeff     float64
	MemberCoeff     float64
	HotThreshold    float64
	RisingThreshold float64
	VelocityFloor   float64

	// Cross-run item cache TTL (Redis).
	ItemCacheTTL time.Duration

	// Environment values that failed to parse, surfaced by Validate.
	parseErrs []error
}

func Load() *Config {
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=trendwire password=trendwire dbname=trendwire port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:    getEnv("CRON_SPEC", "0 6 * * *"),
		SourcesFile: getEnv("SOURCES_FILE", ""),
	}

	cfg.MinTrends = cfg.getEnvInt("MIN_TRENDS", 5)
	cfg.MinFreshRatio = cfg.getEnvFloat("MIN_FRESH_RATIO", 0.5)

	cfg.SimilarityThreshold = cfg.getEnvFloat("DEDUP_SIMILARITY_THRESHOLD", 0.8)

	cfg.FreshWindow = cfg.getEnvDuration("FRESH_WINDOW", 24*time.Hour)
	cfg.AgingWindow = cfg.getEnvDuration("AGING_WINDOW", 72*time.Hour)

	cfg.RSSTimeout = cfg.getEnvDuration("RSS_TIMEOUT", 15*time.Second)
	cfg.APITimeout = cfg.getEnvDuration("API_TIMEOUT", 10*time.Second)
	cfg.HTMLTimeout = cfg.getEnvDuration("HTML_TIMEOUT", 12*time.Second)

	cfg.RetryBackoff = cfg.getEnvDuration("RETRY_BACKOFF", 500*time.Millisecond)
	cfg.FetchWorkers = cfg.getEnvInt("FETCH_WORKERS", 8)

	cfg.SourceCoeff = cfg.getEnvFloat("VELOCITY_SOURCE_COEFF", 2.0)
	cfg.MemberCoeff = cfg.getEnvFloat("VELOCITY_MEMBER_COEFF", 0.5)
	cfg.HotThreshold = cfg.getEnvFloat("VELOCITY_HOT", 9.0)
	cfg.RisingThreshold = cfg.getEnvFloat("VELOCITY_RISING", 5.0)
	cfg.VelocityFloor = cfg.getEnvFloat("VELOCITY_FLOOR", 2.5)

	cfg.ItemCacheTTL = cfg.getEnvDuration("ITEM_CACHE_TTL", 72*time.Hour)

	log.Printf("config loaded: port=%s cron=%s min_trends=%d similarity=%.2f",
		cfg.AppPort, cfg.CronSpec, cfg.MinTrends, cfg.SimilarityThreshold)
	return cfg
}

// Validate rejects configurations the pipeline cannot run with. Invalid or
// unparseable values are fatal at startup, never silently defaulted.
func (c *Config) Validate() error {
	if len(c.parseErrs) > 0 {
		return c.parseErrs[0]
	}
	if c.MinTrends < 1 {
		return fmt.Errorf("config: MIN_TRENDS must be >= 1, got %d", c.MinTrends)
	}
	if c.MinFreshRatio < 0 || c.MinFreshRatio > 1 {
		return fmt.Errorf("config: MIN_FRESH_RATIO must be in [0,1], got %v", c.MinFreshRatio)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("config: DEDUP_SIMILARITY_THRESHOLD must be in (0,1], got %v", c.SimilarityThreshold)
	}
	if c.FreshWindow <= 0 {
		return fmt.Errorf("config: FRESH_WINDOW must be positive, got %v", c.FreshWindow)
	}
	if c.AgingWindow < c.FreshWindow {
		return fmt.Errorf("config: AGING_WINDOW %v must not be shorter than FRESH_WINDOW %v", c.AgingWindow, c.FreshWindow)
	}
	if c.RSSTimeout <= 0 || c.APITimeout <= 0 || c.HTMLTimeout <= 0 {
		return fmt.Errorf("config: fetch timeouts must be positive (rss=%v api=%v html=%v)",
			c.RSSTimeout, c.APITimeout, c.HTMLTimeout)
	}
	if c.FetchWorkers < 1 {
		return fmt.Errorf("config: FETCH_WORKERS must be >= 1, got %d", c.FetchWorkers)
	}
	if c.SourceCoeff < 0 || c.MemberCoeff < 0 {
		return fmt.Errorf("config: velocity coefficients must not be negative (source=%v member=%v)",
			c.SourceCoeff, c.MemberCoeff)
	}
	if c.VelocityFloor > c.RisingThreshold || c.RisingThreshold > c.HotThreshold {
		return fmt.Errorf("config: badge thresholds must satisfy floor <= rising <= hot (%v, %v, %v)",
			c.VelocityFloor, c.RisingThreshold, c.HotThreshold)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *Config) getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("config: invalid int for %s: %q", key, v))
		return def
	}
	return n
}

func (c *Config) getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("config: invalid float for %s: %q", key, v))
		return def
	}
	return f
}

func (c *Config) getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("config: invalid duration for %s: %q", key, v))
		return def
	}
	return d
}
