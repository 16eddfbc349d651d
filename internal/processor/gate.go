package processor

import (
	"fmt"

	"github.com/trendwire/trendwire/internal/collector"
)

// Decision is the gate's go/no-go signal.
type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionAbort   Decision = "abort"
)

// Verdict is the sealed gate result: created once per run, immutable
// afterwards. Reasons carry every crossed warning even on proceed, so an
// aborted or degraded run is diagnosable from its own report.
type Verdict struct {
	TotalTrends int      `json:"totalTrends"`
	FreshRatio  float64  `json:"freshRatio"`
	Decision    Decision `json:"decision"`
	Reasons     []string `json:"reasons,omitempty"`
}

// GateConfig holds the publish thresholds, passed explicitly at evaluation.
type GateConfig struct {
	MinTrends     int
	MinFreshRatio float64
}

// EvaluateGate applies the publish rules in order: too few trends aborts;
// a low fresh ratio warns but proceeds (stale-leaning content beats no
// content); source failures are always itemized. Abort is a normal outcome,
// not an error.
func EvaluateGate(clusters []*TrendCluster, outcomes []collector.Outcome, cfg GateConfig) Verdict {
	v := Verdict{TotalTrends: len(clusters)}

	fresh := 0
	for _, cl := range clusters {
		if cl.Freshness == FreshnessFresh {
			fresh++
		}
	}
	if len(clusters) > 0 {
		v.FreshRatio = float64(fresh) / float64(len(clusters))
	}

	switch {
	case len(clusters) < cfg.MinTrends:
		v.Decision = DecisionAbort
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("insufficient trends collected: got %d, need %d", len(clusters), cfg.MinTrends))
	case v.FreshRatio < cfg.MinFreshRatio:
		v.Decision = DecisionProceed
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("fresh ratio %.2f below minimum %.2f, publishing stale-leaning content", v.FreshRatio, cfg.MinFreshRatio))
	default:
		v.Decision = DecisionProceed
	}

	for _, o := range outcomes {
		if o.Status == collector.StatusError || o.Status == collector.StatusTimeout {
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("source %s failed (%s): %s", o.Source, o.Status, o.Err))
		}
	}

	return v
}
