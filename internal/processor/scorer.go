package processor

import (
	"sort"
	"time"
)

// ScoreConfig carries the velocity coefficients, badge thresholds, and
// freshness windows. Threaded in at construction, never read from ambient
// state.
type ScoreConfig struct {
	SourceCoeff     float64
	MemberCoeff     float64
	HotThreshold    float64
	RisingThreshold float64
	VelocityFloor   float64
	FreshWindow     time.Duration
	AgingWindow     time.Duration
}

// PriorTrend is one entry of yesterday's published list, consumed read-only
// so recurring topics keep their original first sighting.
type PriorTrend struct {
	Title           string
	NormalizedTitle string
	FirstSeen       time.Time
}

// Scorer computes velocity scores and freshness classes, drops sub-floor
// clusters, and orders the surviving set.
type Scorer struct {
	cfg       ScoreConfig
	simThresh float64
	now       func() time.Time
}

func NewScorer(cfg ScoreConfig, similarityThreshold float64) *Scorer {
	return &Scorer{cfg: cfg, simThresh: similarityThreshold, now: time.Now}
}

// Score mutates clusters in place and returns the published set: sub-floor
// clusters are noise, not trends, and are excluded entirely. Output order is
// velocity-descending with representative title as the deterministic
// tie-break.
func (s *Scorer) Score(clusters []*TrendCluster, prior []PriorTrend) []*TrendCluster {
	now := s.now()

	kept := make([]*TrendCluster, 0, len(clusters))
	for _, cl := range clusters {
		s.carryBackFirstSeen(cl, prior)

		cl.VelocityScore = s.cfg.SourceCoeff*float64(cl.DistinctSources) +
			s.cfg.MemberCoeff*float64(len(cl.Members))
		cl.Freshness = s.freshness(cl.FirstSeen, now)
		cl.Badge = BadgeFor(cl.VelocityScore, cl.DistinctSources, s.cfg)

		if cl.VelocityScore >= s.cfg.VelocityFloor {
			kept = append(kept, cl)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].VelocityScore != kept[j].VelocityScore {
			return kept[i].VelocityScore > kept[j].VelocityScore
		}
		return kept[i].Representative.NormalizedTitle < kept[j].Representative.NormalizedTitle
	})
	return kept
}

// carryBackFirstSeen matches the cluster against yesterday's list; a topic
// already trending yesterday keeps that earlier first sighting, so it ages
// instead of looking perpetually fresh.
func (s *Scorer) carryBackFirstSeen(cl *TrendCluster, prior []PriorTrend) {
	for _, p := range prior {
		if p.NormalizedTitle == "" || p.FirstSeen.IsZero() {
			continue
		}
		if Similarity(cl.Representative.NormalizedTitle, p.NormalizedTitle) >= s.simThresh &&
			p.FirstSeen.Before(cl.FirstSeen) {
			cl.FirstSeen = p.FirstSeen
		}
	}
}

func (s *Scorer) freshness(firstSeen, now time.Time) FreshnessClass {
	age := now.Sub(firstSeen)
	switch {
	case age < s.cfg.FreshWindow:
		return FreshnessFresh
	case age < s.cfg.AgingWindow:
		return FreshnessAging
	default:
		return FreshnessStale
	}
}

// BadgeFor is the public badge formula. Downstream consumers needing the tier
// recompute it from velocity score and source count rather than reading
// scorer state.
func BadgeFor(velocity float64, distinctSources int, cfg ScoreConfig) Badge {
	switch {
	case velocity >= cfg.HotThreshold && distinctSources >= 4:
		return BadgeHot
	case velocity >= cfg.RisingThreshold && distinctSources >= 2 && distinctSources <= 3:
		return BadgeRising
	default:
		return BadgeSteady
	}
}
