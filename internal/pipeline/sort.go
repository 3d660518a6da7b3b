package pipeline

import (
	"sort"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/selection"
)

// tierRank orders price tiers for tie-breaking: mid beats premium
// beats budget, since the mid tier is the safest recommendation when
// everything else is equal.
func tierRank(c *selection.Candidate, budget int) int {
	if budget <= 0 || !c.Product.HasPrice() {
		return 1
	}
	ratio := float64(c.Product.Price()) / float64(budget)
	switch {
	case ratio < 0.4:
		return 2 // budget tier last
	case ratio > 0.8:
		return 1 // premium mid-rank
	default:
		return 0 // mid tier first
	}
}

// sortCandidates applies the deterministic ranking: final score, then
// matched feature count, then analysis confidence, then popularity,
// then price tier, then fewest missing features, with ASIN as the
// total-order anchor.
func sortCandidates(cands []selection.Candidate, budget int) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := &cands[i], &cands[j]
		if a.Score.Final != b.Score.Final {
			return a.Score.Final > b.Score.Final
		}
		if len(a.Score.MatchedFeatures) != len(b.Score.MatchedFeatures) {
			return len(a.Score.MatchedFeatures) > len(b.Score.MatchedFeatures)
		}
		if a.Score.Confidence != b.Score.Confidence {
			return a.Score.Confidence > b.Score.Confidence
		}
		pa, pb := popularity(&a.Product), popularity(&b.Product)
		if pa != pb {
			return pa > pb
		}
		ta, tb := tierRank(a, budget), tierRank(b, budget)
		if ta != tb {
			return ta < tb
		}
		if len(a.Score.MissingFeatures) != len(b.Score.MissingFeatures) {
			return len(a.Score.MissingFeatures) < len(b.Score.MissingFeatures)
		}
		return a.Product.ASIN < b.Product.ASIN
	})
}

func popularity(p *catalog.Product) float64 {
	return float64(p.RatingCount) * (p.AverageRating / 5.0)
}
