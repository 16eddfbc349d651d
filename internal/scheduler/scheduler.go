package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trendwire/trendwire/internal/pipeline"
	"github.com/trendwire/trendwire/internal/storage"
)

// runTimeout bounds one whole pipeline run; individual fetches carry their
// own deadlines well inside this.
const runTimeout = 10 * time.Minute

// Scheduler triggers the daily pipeline run. An aborted run publishes
// nothing, leaving the previous day's data untouched.
type Scheduler struct {
	cron  *cron.Cron
	pipe  *pipeline.Pipeline
	store *storage.Store
}

func New(spec string, pipe *pipeline.Pipeline, store *storage.Store) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{cron: c, pipe: pipe, store: store}
	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce executes a single collection run, for manual triggering.
func (s *Scheduler) RunOnce() *pipeline.Report {
	return s.runOnceReport()
}

func (s *Scheduler) runOnce() {
	s.runOnceReport()
}

func (s *Scheduler) runOnceReport() *pipeline.Report {
	log.Println("start trend collection run...")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report := s.pipe.Run(ctx)
	for _, reason := range report.Verdict.Reasons {
		log.Printf("gate: %s", reason)
	}

	if !report.Published() {
		log.Printf("run aborted, keeping previous published data (trends=%d fresh_ratio=%.2f)",
			report.Verdict.TotalTrends, report.Verdict.FreshRatio)
		if s.store != nil {
			if err := s.store.SaveRun(report); err != nil {
				log.Printf("save aborted run error: %v", err)
			}
		}
		return report
	}

	if s.store != nil {
		if err := s.store.SaveRun(report); err != nil {
			log.Printf("save run error: %v", err)
			return report
		}
	}
	log.Printf("run done: published %d trends (fresh_ratio=%.2f)",
		report.Verdict.TotalTrends, report.Verdict.FreshRatio)
	return report
}
