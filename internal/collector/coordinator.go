package collector

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrAllSourcesFailed is returned only when every configured source failed;
// any partial result is a normal return.
var ErrAllSourcesFailed = errors.New("collector: all sources failed")

// Options bound the coordinator's concurrency and retry behavior.
type Options struct {
	Timeouts map[Kind]time.Duration
	Backoff  time.Duration
	Workers  int
}

// Result aggregates one run's raw candidates and per-source outcomes.
// Candidates are source-major: one source's items stay contiguous, but the
// order across sources follows completion order and is non-deterministic.
type Result struct {
	Candidates []Candidate
	Outcomes   []Outcome
}

// Coordinator fans one fetch per configured source out over a bounded worker
// pool, applying the per-kind timeout and a single retry with backoff on
// transient failures.
type Coordinator struct {
	specs    []SourceSpec
	adapters map[Kind]Fetcher
	opts     Options
	cache    *ItemCache
}

func NewCoordinator(specs []SourceSpec, opts Options, cache *ItemCache) *Coordinator {
	if opts.Workers < 1 {
		opts.Workers = len(specs)
	}
	return &Coordinator{
		specs: specs,
		adapters: map[Kind]Fetcher{
			KindRSS:  NewRSSFetcher(),
			KindAPI:  NewHackerNewsFetcher(),
			KindHTML: NewHTMLFetcher(),
		},
		opts:  opts,
		cache: cache,
	}
}

// RegisterAdapter swaps the adapter serving a kind, used by tests to inject
// fakes.
func (c *Coordinator) RegisterAdapter(f Fetcher) {
	c.adapters[f.Kind()] = f
}

// Run fetches all sources. A source failure never aborts its siblings; the
// returned error is non-nil only when every source failed.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	var (
		mu  sync.Mutex
		res = Result{
			Candidates: make([]Candidate, 0, 128),
			Outcomes:   make([]Outcome, 0, len(c.specs)),
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for _, spec := range c.specs {
		spec := spec
		g.Go(func() error {
			fetched, outcome := c.fetchOne(gctx, spec)

			mu.Lock()
			res.Candidates = append(res.Candidates, fetched...)
			res.Outcomes = append(res.Outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range res.Outcomes {
		if o.Status == StatusError || o.Status == StatusTimeout {
			failed++
		}
	}
	if len(res.Outcomes) > 0 && failed == len(res.Outcomes) {
		return res, ErrAllSourcesFailed
	}
	return res, nil
}

func (c *Coordinator) fetchOne(ctx context.Context, spec SourceSpec) ([]Candidate, Outcome) {
	start := time.Now()

	adapter, ok := c.adapters[spec.Kind]
	if !ok {
		return nil, Outcome{
			Source: spec.Key,
			Status: StatusError,
			Err:    "no adapter for kind " + string(spec.Kind),
		}
	}

	fetched, err := c.attempt(ctx, adapter, spec)
	if err != nil && transient(err) {
		log.Printf("fetch %s transient error, retrying: %v", spec.Key, err)
		select {
		case <-time.After(c.opts.Backoff):
		case <-ctx.Done():
		}
		fetched, err = c.attempt(ctx, adapter, spec)
	}

	elapsed := time.Since(start)
	if err != nil {
		status := StatusError
		if errors.Is(err, context.DeadlineExceeded) {
			status = StatusTimeout
		}
		log.Printf("fetch %s error: %v", spec.Key, err)
		return nil, Outcome{Source: spec.Key, Status: status, Err: err.Error(), Elapsed: elapsed}
	}

	status := StatusOK
	if len(fetched.Candidates) == 0 {
		status = StatusEmpty
		log.Printf("fetch %s got 0 items", spec.Key)
	}

	// Stamp each candidate with its cross-run first sighting.
	for i := range fetched.Candidates {
		cand := &fetched.Candidates[i]
		cand.ObservedAt = c.cache.FirstSeen(ctx, cand.Source, cand.URL, cand.ObservedAt)
	}

	return fetched.Candidates, Outcome{
		Source:  spec.Key,
		Status:  status,
		Items:   len(fetched.Candidates),
		Skipped: fetched.Skipped,
		Elapsed: elapsed,
	}
}

func (c *Coordinator) attempt(ctx context.Context, adapter Fetcher, spec SourceSpec) (FetchResult, error) {
	timeout, ok := c.opts.Timeouts[spec.Kind]
	if !ok || timeout <= 0 {
		timeout = 15 * time.Second
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := adapter.Fetch(actx, spec)
	if err != nil && actx.Err() != nil {
		// Surface the deadline instead of a wrapped transport error so the
		// outcome records a timeout.
		return FetchResult{}, context.DeadlineExceeded
	}
	return res, err
}
