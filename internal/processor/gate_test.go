package processor

import (
	"strings"
	"testing"

	"github.com/trendwire/trendwire/internal/collector"
)

var testGateCfg = GateConfig{MinTrends: 5, MinFreshRatio: 0.5}

func gateClusters(fresh, stale int) []*TrendCluster {
	out := make([]*TrendCluster, 0, fresh+stale)
	for i := 0; i < fresh; i++ {
		out = append(out, &TrendCluster{Freshness: FreshnessFresh})
	}
	for i := 0; i < stale; i++ {
		out = append(out, &TrendCluster{Freshness: FreshnessStale})
	}
	return out
}

func TestGateAbortsBelowMinTrends(t *testing.T) {
	v := EvaluateGate(gateClusters(4, 0), nil, testGateCfg)

	if v.Decision != DecisionAbort {
		t.Fatalf("decision = %s, want abort", v.Decision)
	}
	if v.TotalTrends != 4 {
		t.Fatalf("total = %d, want 4", v.TotalTrends)
	}
	if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], "insufficient trends") {
		t.Fatalf("unexpected reasons: %v", v.Reasons)
	}
}

func TestGateProceedsAtMinTrendsBoundary(t *testing.T) {
	v := EvaluateGate(gateClusters(5, 0), nil, testGateCfg)

	if v.Decision != DecisionProceed {
		t.Fatalf("decision = %s, want proceed", v.Decision)
	}
	if len(v.Reasons) != 0 {
		t.Fatalf("clean run should carry no reasons, got %v", v.Reasons)
	}
}

func TestGateFreshRatioWarning(t *testing.T) {
	// 2 fresh of 6: ratio 0.33, below the minimum - proceed with a warning.
	v := EvaluateGate(gateClusters(2, 4), nil, testGateCfg)

	if v.Decision != DecisionProceed {
		t.Fatalf("low fresh ratio must not abort, got %s", v.Decision)
	}
	if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], "fresh ratio") {
		t.Fatalf("expected fresh ratio warning, got %v", v.Reasons)
	}
}

func TestGateFreshRatioExactlyAtMinimum(t *testing.T) {
	// 3 fresh of 6: ratio exactly 0.50. Only strictly-below warns.
	v := EvaluateGate(gateClusters(3, 3), nil, testGateCfg)

	if v.Decision != DecisionProceed {
		t.Fatalf("decision = %s, want proceed", v.Decision)
	}
	if len(v.Reasons) != 0 {
		t.Fatalf("ratio at the minimum should not warn, got %v", v.Reasons)
	}
	if v.FreshRatio != 0.5 {
		t.Fatalf("fresh ratio = %v, want 0.5", v.FreshRatio)
	}
}

func TestGateItemizesSourceFailures(t *testing.T) {
	outcomes := []collector.Outcome{
		{Source: "ap_news", Status: collector.StatusOK, Items: 20},
		{Source: "reddit_news", Status: collector.StatusTimeout, Err: "context deadline exceeded"},
		{Source: "google_trends", Status: collector.StatusError, Err: "unexpected status 503"},
		{Source: "product_hunt", Status: collector.StatusEmpty},
	}

	v := EvaluateGate(gateClusters(6, 0), outcomes, testGateCfg)

	if v.Decision != DecisionProceed {
		t.Fatalf("decision = %s, want proceed", v.Decision)
	}
	if len(v.Reasons) != 2 {
		t.Fatalf("expected 2 failure reasons, got %v", v.Reasons)
	}
	joined := strings.Join(v.Reasons, "\n")
	for _, want := range []string{"reddit_news", "timeout", "google_trends", "503"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("reasons missing %q: %v", want, v.Reasons)
		}
	}
	if strings.Contains(joined, "product_hunt") {
		t.Fatalf("empty source is not a failure: %v", v.Reasons)
	}
}

func TestGateFailuresReportedEvenOnAbort(t *testing.T) {
	outcomes := []collector.Outcome{
		{Source: "verge", Status: collector.StatusError, Err: "connection refused"},
	}

	v := EvaluateGate(nil, outcomes, testGateCfg)

	if v.Decision != DecisionAbort {
		t.Fatalf("decision = %s, want abort", v.Decision)
	}
	if len(v.Reasons) != 2 {
		t.Fatalf("expected abort reason plus failure reason, got %v", v.Reasons)
	}
	if v.FreshRatio != 0 {
		t.Fatalf("empty run fresh ratio = %v, want 0", v.FreshRatio)
	}
}
