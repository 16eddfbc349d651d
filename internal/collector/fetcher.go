package collector

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind selects the concrete adapter used for a source.
type Kind string

const (
	KindRSS  Kind = "rss"  // RSS/Atom feeds
	KindAPI  Kind = "api"  // paginated JSON APIs
	KindHTML Kind = "html" // scraped trend pages
)

// SourceSpec is the static descriptor of one upstream source. Loaded once at
// startup, immutable afterwards.
type SourceSpec struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Fallback string `yaml:"fallback,omitempty"`
	Kind     Kind   `yaml:"kind"`
	Category string `yaml:"category"`
	// Limit caps how many items one run may take from this source.
	Limit int `yaml:"limit"`
	// Weight is the reliability weight derived from the source tier. It is a
	// tie-break during clustering, never a hard filter.
	Weight float64 `yaml:"weight"`
	// Selector is the CSS selector locating items on html-kind pages.
	Selector string `yaml:"selector,omitempty"`
}

// Candidate is one item pulled from one source before normalization. Owned by
// the adapter that produced it until handed off; never mutated after creation.
type Candidate struct {
	Title        string
	URL          string
	Source       string
	Author       string
	CategoryHint string
	PublishedAt  time.Time
	ObservedAt   time.Time
	Extra        map[string]any
}

// Status classifies the per-source fetch result.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
)

// Outcome records how one source's fetch went. Diagnostics only; it never
// flows past the gate report.
type Outcome struct {
	Source  string        `json:"source"`
	Status  Status        `json:"status"`
	Items   int           `json:"items"`
	Skipped int           `json:"skipped,omitempty"`
	Err     string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// FetchResult is what a successful (possibly partial) adapter call yields.
// Skipped counts malformed upstream items that were dropped without failing
// the source.
type FetchResult struct {
	Candidates []Candidate
	Skipped    int
}

// Fetcher is the shared adapter contract. One concrete variant exists per
// source kind; the coordinator never distinguishes them.
type Fetcher interface {
	Kind() Kind
	Fetch(ctx context.Context, spec SourceSpec) (FetchResult, error)
}

// statusError marks an upstream HTTP status failure so the coordinator can
// decide whether a retry is worthwhile.
type statusError struct {
	source string
	code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.source, e.code)
}

// transient reports whether err is worth one retry: a deadline expiry or a
// 5xx/429-class upstream response.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == 429
	}
	return false
}
