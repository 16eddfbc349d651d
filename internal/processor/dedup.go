package processor

import (
	"fmt"
	"strings"
	"time"
)

// FreshnessClass buckets a cluster's age relative to the run's windows.
type FreshnessClass string

const (
	FreshnessFresh FreshnessClass = "fresh"
	FreshnessAging FreshnessClass = "aging"
	FreshnessStale FreshnessClass = "stale"
)

// Badge is the derived velocity tier consumed downstream. It is recomputed
// from velocity score and source count via BadgeFor, never stored state.
type Badge string

const (
	BadgeHot    Badge = "hot"
	BadgeRising Badge = "rising"
	BadgeSteady Badge = "steady"
)

// TrendCluster is the deduplicated representation of one real-world topic.
// Members stay in insertion order; a member is never moved to another cluster
// after assignment.
type TrendCluster struct {
	ID              string
	Representative  Normalized
	Members         []Normalized
	DistinctSources int
	FirstSeen       time.Time
	LastSeen        time.Time
	Category        string
	VelocityScore   float64
	Freshness       FreshnessClass
	Badge           Badge

	sources map[string]struct{}
}

// Deduper clusters accepted candidates with a single greedy pass. Order of
// input (source-major, as collected) is preserved and determines the result
// deterministically.
type Deduper struct {
	threshold float64
	weights   map[string]float64
}

// NewDeduper builds a dedup engine with the configured similarity threshold
// and per-source reliability weights (representative tie-break).
func NewDeduper(threshold float64, weights map[string]float64) *Deduper {
	if weights == nil {
		weights = map[string]float64{}
	}
	return &Deduper{threshold: threshold, weights: weights}
}

// Cluster runs the greedy merge pass. For each candidate the best matching
// open cluster at or above the threshold wins; ties go to the earliest-opened
// cluster. No retroactive reassignment ever happens.
func (d *Deduper) Cluster(cands []Normalized) []*TrendCluster {
	clusters := make([]*TrendCluster, 0, len(cands))

	for _, cand := range cands {
		if !cand.Accepted {
			continue
		}

		bestIdx := -1
		bestSim := 0.0
		for i, cl := range clusters {
			sim := Similarity(cand.NormalizedTitle, cl.Representative.NormalizedTitle)
			if sim >= d.threshold && sim > bestSim {
				bestIdx = i
				bestSim = sim
			}
		}

		if bestIdx >= 0 {
			d.merge(clusters[bestIdx], cand)
			continue
		}

		t := effectiveTime(cand)
		clusters = append(clusters, &TrendCluster{
			ID:              fmt.Sprintf("t%03d", len(clusters)+1),
			Representative:  cand,
			Members:         []Normalized{cand},
			DistinctSources: 1,
			FirstSeen:       t,
			LastSeen:        t,
			Category:        cand.Category,
			sources:         map[string]struct{}{cand.Source: {}},
		})
	}

	return clusters
}

func (d *Deduper) merge(cl *TrendCluster, cand Normalized) {
	cl.Members = append(cl.Members, cand)
	if _, seen := cl.sources[cand.Source]; !seen {
		cl.sources[cand.Source] = struct{}{}
		cl.DistinctSources++
	}

	t := effectiveTime(cand)
	if t.Before(cl.FirstSeen) {
		cl.FirstSeen = t
	}
	if t.After(cl.LastSeen) {
		cl.LastSeen = t
	}

	// Re-evaluate the representative: highest source weight wins, earliest
	// timestamp breaks ties.
	repWeight := d.weights[cl.Representative.Source]
	candWeight := d.weights[cand.Source]
	switch {
	case candWeight > repWeight:
		cl.Representative = cand
		cl.Category = cand.Category
	case candWeight == repWeight && t.Before(effectiveTime(cl.Representative)):
		cl.Representative = cand
		cl.Category = cand.Category
	}
}

// effectiveTime prefers the upstream publish time, falling back to when we
// first observed the item.
func effectiveTime(n Normalized) time.Time {
	if !n.PublishedAt.IsZero() {
		return n.PublishedAt
	}
	return n.ObservedAt
}

// Similarity scores two normalized titles in [0,1] as the max of a
// token-overlap coefficient and a character-bigram Dice coefficient. The
// bigram term catches rewordings token overlap misses; both are cheap and
// deterministic.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	overlap := tokenOverlap(a, b)
	dice := bigramDice(a, b)
	if dice > overlap {
		return dice
	}
	return overlap
}

func tokenOverlap(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	common := 0
	for tok := range aTokens {
		if _, ok := bTokens[tok]; ok {
			common++
		}
	}

	smaller := len(aTokens)
	if len(bTokens) < smaller {
		smaller = len(bTokens)
	}
	return float64(common) / float64(smaller)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func bigramDice(a, b string) float64 {
	aGrams := bigrams(a)
	bGrams := bigrams(b)
	if len(aGrams) == 0 || len(bGrams) == 0 {
		return 0
	}

	common := 0
	for g, n := range aGrams {
		if m, ok := bGrams[g]; ok {
			if m < n {
				n = m
			}
			common += n
		}
	}

	total := 0
	for _, n := range aGrams {
		total += n
	}
	for _, n := range bGrams {
		total += n
	}
	return 2 * float64(common) / float64(total)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}
