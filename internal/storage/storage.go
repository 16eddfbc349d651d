package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/trendwire/trendwire/internal/pipeline"
	"github.com/trendwire/trendwire/internal/processor"
)

// Run is one pipeline execution with its gate verdict and diagnostics.
type Run struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RunAt       time.Time `gorm:"index" json:"runAt"`
	RunDate     string    `gorm:"size:10;index" json:"runDate"` // YYYY-MM-DD, UTC
	Decision    string    `gorm:"size:16;index" json:"decision"`
	TotalTrends int       `json:"totalTrends"`
	FreshRatio  float64   `json:"freshRatio"`
	Reasons     datatypes.JSON    `json:"reasons"`
	Outcomes    datatypes.JSON    `json:"outcomes"`
	Metrics     datatypes.JSONMap `gorm:"type:jsonb" json:"metrics"`

	CreatedAt time.Time `json:"createdAt"`
}

// Trend is one published cluster of a proceed run.
type Trend struct {
	ID              string    `gorm:"primaryKey;size:64" json:"id"`
	RunID           uint      `gorm:"index" json:"runId"`
	RunDate         string    `gorm:"size:10;index" json:"runDate"`
	Rank            int       `json:"rank"`
	Title           string    `gorm:"size:512" json:"title"`
	NormalizedTitle string    `gorm:"size:512" json:"-"`
	URL             string    `gorm:"size:1024" json:"url"`
	Category        string    `gorm:"size:64;index" json:"category"`
	VelocityScore   float64   `gorm:"index" json:"velocityScore"`
	Freshness       string    `gorm:"size:16" json:"freshness"`
	Badge           string    `gorm:"size:16" json:"badge"`
	SourceCount     int       `json:"sourceCount"`
	MemberCount     int       `json:"memberCount"`
	FirstSeen       time.Time `json:"firstSeen"`
	LastSeen        time.Time `json:"lastSeen"`
	Members         datatypes.JSON `json:"members"`

	CreatedAt time.Time `json:"createdAt"`
}

type memberRecord struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Run{}, &Trend{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

// toValidUTF8 guards against invalid byte sequences reaching Postgres; scraped
// titles occasionally carry mixed encodings.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

func truncateRunes(s string, limit int) string {
	rs := []rune(strings.TrimSpace(s))
	if len(rs) <= limit {
		return string(rs)
	}
	return string(rs[:limit])
}

// SaveRun persists the run report, and on proceed its sealed trend list. The
// report is treated as read-only input.
func (s *Store) SaveRun(report *pipeline.Report) error {
	reasons, err := json.Marshal(report.Verdict.Reasons)
	if err != nil {
		return fmt.Errorf("storage: marshal reasons: %w", err)
	}
	outcomes, err := json.Marshal(report.Outcomes)
	if err != nil {
		return fmt.Errorf("storage: marshal outcomes: %w", err)
	}

	run := &Run{
		RunAt:       report.RunAt,
		RunDate:     report.RunAt.UTC().Format("2006-01-02"),
		Decision:    string(report.Verdict.Decision),
		TotalTrends: report.Verdict.TotalTrends,
		FreshRatio:  report.Verdict.FreshRatio,
		Reasons:     reasons,
		Outcomes:    outcomes,
		Metrics: datatypes.JSONMap{
			"fetched":  report.Metrics.Fetched,
			"skipped":  report.Metrics.Skipped,
			"filtered": report.Metrics.Filtered,
			"merged":   report.Metrics.Merged,
			"excluded": report.Metrics.Excluded,
		},
	}
	if err := s.DB.Create(run).Error; err != nil {
		return fmt.Errorf("storage: save run: %w", err)
	}

	for i, cl := range report.Clusters {
		members := make([]memberRecord, 0, len(cl.Members))
		for _, m := range cl.Members {
			members = append(members, memberRecord{
				Title:  toValidUTF8(m.Title),
				URL:    m.URL,
				Source: m.Source,
			})
		}
		membersJSON, err := json.Marshal(members)
		if err != nil {
			return fmt.Errorf("storage: marshal members: %w", err)
		}

		rec := &Trend{
			ID:              fmt.Sprintf("%d-%s", run.ID, cl.ID),
			RunID:           run.ID,
			RunDate:         run.RunDate,
			Rank:            i + 1,
			Title:           truncateRunes(toValidUTF8(cl.Representative.Title), 512),
			NormalizedTitle: truncateRunes(cl.Representative.NormalizedTitle, 512),
			URL:             cl.Representative.URL,
			Category:        cl.Category,
			VelocityScore:   cl.VelocityScore,
			Freshness:       string(cl.Freshness),
			Badge:           string(cl.Badge),
			SourceCount:     cl.DistinctSources,
			MemberCount:     len(cl.Members),
			FirstSeen:       cl.FirstSeen,
			LastSeen:        cl.LastSeen,
			Members:         membersJSON,
		}
		if err := s.DB.Create(rec).Error; err != nil {
			return fmt.Errorf("storage: save trend %s: %w", rec.ID, err)
		}
	}

	// List caches expire on their own short TTL; no wildcard invalidation.
	return nil
}

// Yesterday returns the most recent published trend list from before today,
// as the read-only prior for freshness comparison.
func (s *Store) Yesterday(ctx context.Context) ([]processor.PriorTrend, error) {
	today := time.Now().UTC().Format("2006-01-02")

	var run Run
	err := s.DB.WithContext(ctx).
		Where("decision = ? AND run_date < ?", "proceed", today).
		Order("run_at DESC").
		First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	var trends []Trend
	if err := s.DB.WithContext(ctx).Where("run_id = ?", run.ID).Order("rank ASC").Find(&trends).Error; err != nil {
		return nil, err
	}

	prior := make([]processor.PriorTrend, 0, len(trends))
	for _, t := range trends {
		prior = append(prior, processor.PriorTrend{
			Title:           t.Title,
			NormalizedTitle: t.NormalizedTitle,
			FirstSeen:       t.FirstSeen,
		})
	}
	return prior, nil
}

// ListTrends returns published trends for a date (latest run date when empty),
// optionally filtered by category, with a short-lived Redis cache in front of
// the database.
func (s *Store) ListTrends(date, category string, limit int) ([]Trend, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	ctx := context.Background()
	cacheKey := fmt.Sprintf("trends:list:%s:%s:%d", date, category, limit)

	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []Trend
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	db := s.DB.Model(&Trend{})
	if date != "" {
		db = db.Where("run_date = ?", date)
	} else {
		var latest Run
		if err := s.DB.Where("decision = ?", "proceed").Order("run_at DESC").First(&latest).Error; err == nil {
			db = db.Where("run_id = ?", latest.ID)
		}
	}
	if category != "" {
		db = db.Where("category = ?", category)
	}

	var list []Trend
	if err := db.Order("rank ASC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}

	const listCacheTTL = 5 * time.Minute
	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			_ = s.Redis.Set(ctx, cacheKey, bs, listCacheTTL).Err()
		}
	}

	return list, nil
}

// LatestRun returns the most recent run regardless of decision, so aborted
// runs stay inspectable.
func (s *Store) LatestRun() (*Run, error) {
	var run Run
	if err := s.DB.Order("run_at DESC").First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRunDates returns distinct dates with published data, newest first.
func (s *Store) ListRunDates(limit int) ([]string, error) {
	if limit <= 0 || limit > 365 {
		limit = 31
	}
	var dates []string
	err := s.DB.Model(&Run{}).
		Where("decision = ?", "proceed").
		Distinct("run_date").
		Order("run_date DESC").
		Limit(limit).
		Pluck("run_date", &dates).Error
	return dates, err
}
