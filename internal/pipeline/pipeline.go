package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/trendwire/trendwire/internal/collector"
	"github.com/trendwire/trendwire/internal/config"
	"github.com/trendwire/trendwire/internal/processor"
)

// SnapshotReader supplies yesterday's published trend list as a read-only
// prior for freshness comparison. Owned by the archive side, not this core.
type SnapshotReader interface {
	Yesterday(ctx context.Context) ([]processor.PriorTrend, error)
}

// Metrics are per-run counters carried on the report for diagnostics.
type Metrics struct {
	Fetched  int `json:"fetched"`
	Skipped  int `json:"skipped"`
	Filtered int `json:"filtered"`
	Merged   int `json:"merged"`
	Excluded int `json:"excluded"`
}

// Report is what one run emits: the sealed trend list on proceed (nil on
// abort), the gate verdict, and fetch diagnostics either way.
type Report struct {
	RunAt    time.Time
	Clusters []*processor.TrendCluster
	Verdict  processor.Verdict
	Outcomes []collector.Outcome
	Metrics  Metrics
}

// Published reports whether downstream handoff happened.
func (r *Report) Published() bool {
	return r.Verdict.Decision == processor.DecisionProceed
}

// Pipeline sequences collection, normalization, dedup, scoring, and the
// quality gate exactly once per run.
type Pipeline struct {
	coord    *collector.Coordinator
	norm     *processor.Normalizer
	dedup    *processor.Deduper
	scorer   *processor.Scorer
	gateCfg  processor.GateConfig
	snapshot SnapshotReader
}

// New wires the pipeline from configuration. snapshot may be nil when no
// prior-day data is available.
func New(cfg *config.Config, specs []collector.SourceSpec, cache *collector.ItemCache, snapshot SnapshotReader) *Pipeline {
	weights := make(map[string]float64, len(specs))
	for _, s := range specs {
		weights[s.Key] = s.Weight
	}

	coord := collector.NewCoordinator(specs, collector.Options{
		Timeouts: map[collector.Kind]time.Duration{
			collector.KindRSS:  cfg.RSSTimeout,
			collector.KindAPI:  cfg.APITimeout,
			collector.KindHTML: cfg.HTMLTimeout,
		},
		Backoff: cfg.RetryBackoff,
		Workers: cfg.FetchWorkers,
	}, cache)

	return &Pipeline{
		coord: coord,
		norm:  processor.NewNormalizer(),
		dedup: processor.NewDeduper(cfg.SimilarityThreshold, weights),
		scorer: processor.NewScorer(processor.ScoreConfig{
			SourceCoeff:     cfg.SourceCoeff,
			MemberCoeff:     cfg.MemberCoeff,
			HotThreshold:    cfg.HotThreshold,
			RisingThreshold: cfg.RisingThreshold,
			VelocityFloor:   cfg.VelocityFloor,
			FreshWindow:     cfg.FreshWindow,
			AgingWindow:     cfg.AgingWindow,
		}, cfg.SimilarityThreshold),
		gateCfg: processor.GateConfig{
			MinTrends:     cfg.MinTrends,
			MinFreshRatio: cfg.MinFreshRatio,
		},
		snapshot: snapshot,
	}
}

// Coordinator exposes the fetch coordinator for adapter injection in tests.
func (p *Pipeline) Coordinator() *collector.Coordinator {
	return p.coord
}

// Run executes one full pass. Gate aborts and total source failure are normal
// outcomes reported through the verdict; the returned report always carries
// the fetch diagnostics.
func (p *Pipeline) Run(ctx context.Context) *Report {
	report := &Report{RunAt: time.Now()}

	result, err := p.coord.Run(ctx)
	report.Outcomes = result.Outcomes
	if err != nil && errors.Is(err, collector.ErrAllSourcesFailed) {
		report.Verdict = processor.Verdict{
			Decision: processor.DecisionAbort,
			Reasons:  append([]string{"all sources failed"}, failureReasons(result.Outcomes)...),
		}
		return report
	}
	report.Metrics.Fetched = len(result.Candidates)
	for _, o := range result.Outcomes {
		report.Metrics.Skipped += o.Skipped
	}

	normalized := p.norm.NormalizeAll(result.Candidates)
	accepted := make([]processor.Normalized, 0, len(normalized))
	for _, n := range normalized {
		if n.Accepted {
			accepted = append(accepted, n)
		}
	}
	report.Metrics.Filtered = len(normalized) - len(accepted)

	clusters := p.dedup.Cluster(accepted)
	report.Metrics.Merged = len(accepted) - len(clusters)

	prior := p.loadPrior(ctx)
	published := p.scorer.Score(clusters, prior)
	report.Metrics.Excluded = len(clusters) - len(published)

	report.Verdict = processor.EvaluateGate(published, result.Outcomes, p.gateCfg)
	log.Printf("pipeline: %d candidates -> %d clusters -> %d published, decision=%s",
		len(result.Candidates), len(clusters), len(published), report.Verdict.Decision)

	// Abort means no downstream handoff: the report carries diagnostics only.
	if report.Verdict.Decision == processor.DecisionProceed {
		report.Clusters = published
	}
	return report
}

func (p *Pipeline) loadPrior(ctx context.Context) []processor.PriorTrend {
	if p.snapshot == nil {
		return nil
	}
	prior, err := p.snapshot.Yesterday(ctx)
	if err != nil {
		log.Printf("pipeline: load prior snapshot: %v", err)
		return nil
	}
	return prior
}

func failureReasons(outcomes []collector.Outcome) []string {
	reasons := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == collector.StatusError || o.Status == collector.StatusTimeout {
			reasons = append(reasons, "source "+o.Source+" failed ("+string(o.Status)+"): "+o.Err)
		}
	}
	return reasons
}
