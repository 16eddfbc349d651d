package processor

import (
	"testing"
	"time"

	"github.com/trendwire/trendwire/internal/collector"
)

func normCandidate(t *testing.T, title, url, source string, at time.Time) Normalized {
	t.Helper()
	n := NewNormalizer().Normalize(collector.Candidate{
		Title:       title,
		URL:         url,
		Source:      source,
		PublishedAt: at,
		ObservedAt:  at,
	})
	if !n.Accepted {
		t.Fatalf("candidate %q unexpectedly rejected", title)
	}
	return n
}

func TestClusterMergesFundingHeadlines(t *testing.T) {
	now := time.Now()
	cands := []Normalized{
		normCandidate(t, "Company X raises $50M", "https://a.example/1", "techcrunch", now),
		normCandidate(t, "Company X funding round hits $50 million", "https://b.example/1", "verge", now),
		normCandidate(t, "Unrelated sports score", "https://c.example/1", "bbc_news", now),
	}

	d := NewDeduper(0.8, map[string]float64{"techcrunch": 1.18, "verge": 1.18, "bbc_news": 1.30})
	clusters := d.Cluster(cands)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if len(clusters[0].Members) != 2 {
		t.Fatalf("funding cluster should have 2 members, got %d", len(clusters[0].Members))
	}
	if clusters[0].DistinctSources != 2 {
		t.Fatalf("funding cluster distinct sources = %d, want 2", clusters[0].DistinctSources)
	}
	if len(clusters[1].Members) != 1 {
		t.Fatalf("sports cluster should be a singleton, got %d members", len(clusters[1].Members))
	}
}

func TestClusterMembersMeetThresholdAtMerge(t *testing.T) {
	now := time.Now()
	cands := []Normalized{
		normCandidate(t, "Company X raises $50M", "https://a.example/1", "techcrunch", now),
		normCandidate(t, "Company X funding round hits $50 million", "https://b.example/1", "verge", now),
	}

	const threshold = 0.8
	d := NewDeduper(threshold, nil)
	clusters := d.Cluster(cands)

	for _, cl := range clusters {
		for _, m := range cl.Members {
			if sim := Similarity(m.NormalizedTitle, cl.Representative.NormalizedTitle); sim < threshold && m.NormalizedTitle != cl.Representative.NormalizedTitle {
				t.Fatalf("member %q similarity %.2f to representative %q below threshold",
					m.NormalizedTitle, sim, cl.Representative.NormalizedTitle)
			}
		}
	}
}

func TestClusterDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 22, 8, 0, 0, 0, time.UTC)
	cands := []Normalized{
		normCandidate(t, "Senate passes sweeping budget bill", "https://a.example/1", "ap_news", now),
		normCandidate(t, "Sweeping budget bill passes Senate", "https://b.example/1", "npr_news", now.Add(time.Hour)),
		normCandidate(t, "New open source database released", "https://c.example/1", "hackernews", now),
		normCandidate(t, "Open source database release announced", "https://d.example/1", "lobsters", now),
	}

	d := NewDeduper(0.8, map[string]float64{"ap_news": 1.30, "npr_news": 1.30, "hackernews": 1.18, "lobsters": 1.18})

	first := d.Cluster(cands)
	second := d.Cluster(cands)

	if len(first) != len(second) {
		t.Fatalf("cluster counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i].Members) != len(second[i].Members) {
			t.Fatalf("cluster %d member counts differ", i)
		}
		if first[i].Representative.URL != second[i].Representative.URL {
			t.Fatalf("cluster %d representatives differ: %q vs %q",
				i, first[i].Representative.URL, second[i].Representative.URL)
		}
		for j := range first[i].Members {
			if first[i].Members[j].URL != second[i].Members[j].URL {
				t.Fatalf("cluster %d member %d differs", i, j)
			}
		}
	}
}

func TestClusterTieGoesToEarliestCluster(t *testing.T) {
	now := time.Now()
	// "red" overlaps both cluster titles at exactly 1.0 (single-token overlap
	// against the smaller set), while the clusters themselves sit below the
	// threshold. The tie must land in the earliest-opened cluster.
	cands := []Normalized{
		{Candidate: collector.Candidate{Title: "red apple", URL: "u1", Source: "s1", ObservedAt: now}, NormalizedTitle: "red apple", Accepted: true},
		{Candidate: collector.Candidate{Title: "red orange", URL: "u2", Source: "s2", ObservedAt: now}, NormalizedTitle: "red orange", Accepted: true},
		{Candidate: collector.Candidate{Title: "red", URL: "u3", Source: "s3", ObservedAt: now}, NormalizedTitle: "red", Accepted: true},
	}

	d := NewDeduper(0.8, nil)
	clusters := d.Cluster(cands)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if len(clusters[0].Members) != 2 {
		t.Fatalf("earliest cluster should absorb the tie, got %d members", len(clusters[0].Members))
	}
	if clusters[0].Members[1].URL != "u3" {
		t.Fatalf("tie candidate landed in %q", clusters[0].Members[1].URL)
	}
}

func TestRepresentativePrefersHigherWeightThenEarlier(t *testing.T) {
	base := time.Date(2026, 8, 22, 6, 0, 0, 0, time.UTC)
	cands := []Normalized{
		normCandidate(t, "Major storm hits coastal cities", "https://low.example/1", "devto", base.Add(2*time.Hour)),
		normCandidate(t, "Major storm hits coastal cities", "https://high.example/1", "ap_news", base.Add(3*time.Hour)),
		normCandidate(t, "Major storm hits coastal cities", "https://early.example/1", "bbc_news", base),
	}

	weights := map[string]float64{"devto": 0.95, "ap_news": 1.30, "bbc_news": 1.30}
	clusters := NewDeduper(0.8, weights).Cluster(cands)

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	// bbc_news ties ap_news on weight but is earliest.
	if got := clusters[0].Representative.URL; got != "https://early.example/1" {
		t.Fatalf("representative = %q, want earliest highest-weight member", got)
	}
	if !clusters[0].FirstSeen.Equal(base) {
		t.Fatalf("FirstSeen = %v, want %v", clusters[0].FirstSeen, base)
	}
	if !clusters[0].LastSeen.Equal(base.Add(3 * time.Hour)) {
		t.Fatalf("LastSeen = %v, want %v", clusters[0].LastSeen, base.Add(3*time.Hour))
	}
}

func TestSimilarityBounds(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"company x 50m", "company x funding round 50m"},
		{"alpha beta", "gamma delta"},
		{"", "anything"},
		{"same title", "same title"},
	}

	for _, c := range cases {
		sim := Similarity(c.a, c.b)
		if sim < 0 || sim > 1 {
			t.Fatalf("Similarity(%q, %q) = %v out of [0,1]", c.a, c.b, sim)
		}
		if rev := Similarity(c.b, c.a); rev != sim {
			t.Fatalf("Similarity not symmetric for %q/%q: %v vs %v", c.a, c.b, sim, rev)
		}
	}

	if Similarity("same title", "same title") != 1 {
		t.Fatalf("identical titles should score 1")
	}
	if Similarity("alpha beta", "gamma delta") >= 0.5 {
		t.Fatalf("unrelated titles should score low")
	}
}

func TestClusterSkipsRejectedCandidates(t *testing.T) {
	now := time.Now()
	cands := []Normalized{
		{Candidate: collector.Candidate{Title: "rejected", URL: "u1", Source: "s1", ObservedAt: now}, NormalizedTitle: "rejected title", Accepted: false},
		normCandidate(t, "Accepted headline about software", "https://a.example/1", "verge", now),
	}

	clusters := NewDeduper(0.8, nil).Cluster(cands)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Members[0].URL != "https://a.example/1" {
		t.Fatalf("rejected candidate entered a cluster")
	}
}
