package selection

import (
	"github.com/dealsentry/dealsentry/internal/catalog"
)

// MultiCardConfig holds the presentation decision thresholds.
type MultiCardConfig struct {
	// TopGap is the score gap below which the top two candidates count
	// as close competition.
	TopGap float64 `yaml:"top_gap"`
	// SingleOverrideScore and SingleOverrideGap force single-card when
	// the leader is both excellent and far ahead.
	SingleOverrideScore float64 `yaml:"single_override_score"`
	SingleOverrideGap   float64 `yaml:"single_override_gap"`
}

// DefaultMultiCardConfig returns the documented defaults.
func DefaultMultiCardConfig() MultiCardConfig {
	return MultiCardConfig{
		TopGap:              0.20,
		SingleOverrideScore: 0.95,
		SingleOverrideGap:   0.30,
	}
}

// MultiCardSelector decides whether a selection presents one product
// or a comparison set of two or three.
type MultiCardSelector struct {
	cfg MultiCardConfig
}

// NewMultiCardSelector builds a selector with the given thresholds.
func NewMultiCardSelector(cfg MultiCardConfig) *MultiCardSelector {
	if cfg.TopGap <= 0 {
		cfg = DefaultMultiCardConfig()
	}
	return &MultiCardSelector{cfg: cfg}
}

// Decide chooses the presentation mode for a score-descending
// candidate list. budget (rupees) feeds the price-tier spread rule;
// zero means unknown.
func (mc *MultiCardSelector) Decide(ranked []Candidate, budget int) catalog.PresentationMode {
	if len(ranked) < 2 {
		return catalog.ModeSingle
	}

	top := ranked[0].Score.Final
	gap := top - ranked[1].Score.Final

	// A dominant leader short-circuits every multi-card rule.
	if top >= mc.cfg.SingleOverrideScore && gap >= mc.cfg.SingleOverrideGap {
		return catalog.ModeSingle
	}

	multi := gap < mc.cfg.TopGap ||
		disjointStrengths(ranked) ||
		priceTierSpread(ranked, budget) ||
		distinctTechnicalValues(ranked) >= 3

	if !multi {
		return catalog.ModeSingle
	}
	if len(ranked) >= 3 {
		return catalog.ModeTrio
	}
	return catalog.ModeDuo
}

// disjointStrengths reports whether the top three candidates win on
// different features: one takes refresh rate, another takes size.
func disjointStrengths(ranked []Candidate) bool {
	n := len(ranked)
	if n > 3 {
		n = 3
	}
	if n < 2 {
		return false
	}
	seen := map[string]int{}
	distinctSets := 0
	for i := 0; i < n; i++ {
		key := ""
		for _, f := range ranked[i].Score.MatchedFeatures {
			key += f + "|"
		}
		if key == "" {
			continue
		}
		if _, dup := seen[key]; !dup {
			distinctSets++
		}
		seen[key] = i
	}
	return distinctSets >= 2 && !subsumed(ranked[:n])
}

// subsumed reports whether every candidate's matched set is contained
// in the leader's; if so there is no real trade-off to present.
func subsumed(top []Candidate) bool {
	leader := map[string]bool{}
	for _, f := range top[0].Score.MatchedFeatures {
		leader[f] = true
	}
	for _, c := range top[1:] {
		for _, f := range c.Score.MatchedFeatures {
			if !leader[f] {
				return false
			}
		}
	}
	return true
}

// priceTierSpread reports whether the top three span at least two of
// the budget (<0.4×), mid, premium (>0.8×) tiers.
func priceTierSpread(ranked []Candidate, budget int) bool {
	if budget <= 0 {
		return false
	}
	tiers := map[string]bool{}
	n := len(ranked)
	if n > 3 {
		n = 3
	}
	for i := 0; i < n; i++ {
		p := ranked[i].Product.PriceRupees
		if p == nil {
			continue
		}
		tiers[priceTier(*p, budget)] = true
	}
	return len(tiers) >= 2
}

func priceTier(price, budget int) string {
	ratio := float64(price) / float64(budget)
	switch {
	case ratio < 0.4:
		return "budget"
	case ratio > 0.8:
		return "premium"
	default:
		return "mid"
	}
}

// distinctTechnicalValues counts features whose values differ across
// the top three candidates.
func distinctTechnicalValues(ranked []Candidate) int {
	n := len(ranked)
	if n > 3 {
		n = 3
	}
	differing := 0
	for _, name := range []string{
		catalog.FeatureRefreshRate, catalog.FeatureSize,
		catalog.FeatureResolution, catalog.FeatureCurvature,
		catalog.FeaturePanelType,
	} {
		values := map[string]bool{}
		for i := 0; i < n; i++ {
			if v, ok := ranked[i].Features.Features[name]; ok {
				values[v.Value] = true
			}
		}
		if len(values) >= 2 {
			differing++
		}
	}
	return differing
}
