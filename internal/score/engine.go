package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// Numeric tolerance bands, per feature: within the band the match
// interpolates in [0.85, 1.0]; past it the score decays to zero at
// twice the band.
var toleranceBand = map[string]float64{
	catalog.FeatureRefreshRate: 0.10,
	catalog.FeatureSize:        0.15,
}

// partialSynonyms score 0.85: values close enough that a user asking
// for one is usually satisfied by the other.
var partialSynonyms = map[[2]string]bool{
	{"oled", "qled"}:       true,
	{"qled", "mini-led"}:   true,
	{"1440p", "ultrawide"}: true,
}

// matchKind labels how a feature matched, for the rationale string.
type matchKind string

const (
	matchExact     matchKind = "exact"
	matchUpgrade   matchKind = "upgrade"
	matchTolerance matchKind = "tolerance"
	matchPartial   matchKind = "partial"
	matchMiss      matchKind = "mismatch"
	matchAbsent    matchKind = "absent"
)

type featureMatch struct {
	name   string
	kind   matchKind
	score  float64
	weight float64
}

// Engine computes the hybrid score: technical feature match, value for
// money, budget fit and an excellence bonus, mixed with context-aware
// weights. Deterministic: identical inputs yield identical output.
type Engine struct {
	enableExcellence bool
}

// NewEngine builds a scoring engine.
func NewEngine(enableExcellence bool) *Engine {
	return &Engine{enableExcellence: enableExcellence}
}

// Score evaluates one product against the user's expressed features.
// budget is the rupee ceiling when known; nil falls back to the
// extracted price feature, then to a neutral budget component.
func (e *Engine) Score(user catalog.FeatureSet, product catalog.ProductFeatures, category string, priceRupees *int, budget *int) catalog.Score {
	weights := WeightsFor(category)
	matches := e.matchFeatures(user, product, weights)

	technical := technicalComponent(matches)
	value := valueComponent(technical, priceRupees)
	budgetScore := budgetComponent(priceRupees, effectiveBudget(user, budget))
	excellence := 0.0
	if e.enableExcellence {
		excellence = excellenceBonus(product)
	}

	mix := MixFor(category, user)
	final := clamp01(technical*mix.Technical + value*mix.Value +
		budgetScore*mix.Budget + excellence*mix.Excellence)

	s := catalog.Score{
		Technical:  technical,
		Value:      value,
		Budget:     budgetScore,
		Excellence: excellence,
		Weights:    mix,
		Final:      final,
		Confidence: product.OverallConfidence,
		Rationale:  buildRationale(matches),
	}
	for _, m := range matches {
		switch {
		case m.score > 0.7:
			s.MatchedFeatures = append(s.MatchedFeatures, m.name)
		case m.kind == matchAbsent:
			s.MissingFeatures = append(s.MissingFeatures, m.name)
		}
	}
	return s
}

// matchFeatures walks the user's expressed features in a fixed order.
// A feature the product lacks contributes zero to the numerator but
// its full weight to the denominator; features the user did not
// express are skipped entirely.
func (e *Engine) matchFeatures(user catalog.FeatureSet, product catalog.ProductFeatures, weights CategoryWeights) []featureMatch {
	names := make([]string, 0, len(user.Features))
	for name := range user.Features {
		if name == catalog.FeaturePrice || name == catalog.FeatureCategory {
			continue // priced by the budget component
		}
		names = append(names, name)
	}
	sort.Strings(names)

	matches := make([]featureMatch, 0, len(names))
	for _, name := range names {
		uv := user.Features[name]
		w := weights.Weight(name)
		pv, ok := product.Features[name]
		if !ok {
			matches = append(matches, featureMatch{name: name, kind: matchAbsent, score: 0, weight: w})
			continue
		}
		kind, score := matchOne(name, uv, pv)
		matches = append(matches, featureMatch{name: name, kind: kind, score: score, weight: w})
	}
	return matches
}

func matchOne(name string, user, product catalog.FeatureValue) (matchKind, float64) {
	// Refresh rate carries the only documented upgrade relation: a
	// faster panel than requested still satisfies the request.
	if name == catalog.FeatureRefreshRate && user.IsNumeric && product.IsNumeric {
		switch {
		case product.Numeric == user.Numeric:
			return matchExact, 1.0
		case product.Numeric > user.Numeric:
			return matchUpgrade, 0.95
		default:
			return numericTolerance(name, user.Numeric, product.Numeric)
		}
	}
	if user.IsNumeric && product.IsNumeric {
		if product.Numeric == user.Numeric {
			return matchExact, 1.0
		}
		return numericTolerance(name, user.Numeric, product.Numeric)
	}
	if strings.EqualFold(user.Value, product.Value) {
		return matchExact, 1.0
	}
	if partialSynonyms[[2]string{user.Value, product.Value}] ||
		partialSynonyms[[2]string{product.Value, user.Value}] {
		return matchPartial, 0.85
	}
	return matchMiss, 0.0
}

func numericTolerance(name string, want, got float64) (matchKind, float64) {
	band := toleranceBand[name]
	if band == 0 {
		band = 0.10
	}
	dist := math.Abs(got-want) / want
	switch {
	case dist <= band:
		// Linear from 1.0 at zero distance to 0.85 at the band edge.
		return matchTolerance, 1.0 - 0.15*(dist/band)
	case dist <= 2*band:
		// Graduated penalty to zero at twice the band.
		return matchMiss, 0.85 * (1 - (dist-band)/band)
	default:
		return matchMiss, 0.0
	}
}

func technicalComponent(matches []featureMatch) float64 {
	var num, den float64
	for _, m := range matches {
		num += m.score * m.weight
		den += m.weight
	}
	if den == 0 {
		return 0
	}
	return clamp01(num / den)
}

// valueComponent measures performance per rupee, normalized by an
// expected maximum ratio of 0.8 and clamped. Unknown price is neutral.
func valueComponent(technical float64, priceRupees *int) float64 {
	if priceRupees == nil || *priceRupees <= 0 {
		return 0.5
	}
	ratio := technical / (float64(*priceRupees) / 1000.0)
	return clamp01(ratio / 0.8)
}

// budgetComponent is the graduated piecewise fit of price to budget.
func budgetComponent(priceRupees *int, budget int) float64 {
	if budget <= 0 || priceRupees == nil || *priceRupees <= 0 {
		return 0.70
	}
	ratio := float64(*priceRupees) / float64(budget)
	switch {
	case ratio <= 0.6:
		return 1.00
	case ratio <= 0.8:
		return 0.90
	case ratio <= 0.9:
		return 0.80
	case ratio <= 1.0:
		return 0.70
	case ratio <= 1.2:
		return 0.50
	case ratio <= 1.5:
		return 0.30
	default:
		return 0.20
	}
}

// excellenceBonus rewards superior specs, capped at 0.25.
func excellenceBonus(product catalog.ProductFeatures) float64 {
	bonus := 0.0
	if v, ok := product.Features[catalog.FeatureRefreshRate]; ok && v.IsNumeric {
		switch {
		case v.Numeric >= 240:
			bonus += 0.15
		case v.Numeric >= 165:
			bonus += 0.10
		case v.Numeric >= 144:
			bonus += 0.05
		}
	}
	if v, ok := product.Features[catalog.FeatureResolution]; ok {
		switch v.Value {
		case "4k", "8k":
			bonus += 0.10
		case "1440p":
			bonus += 0.05
		}
	}
	if v, ok := product.Features[catalog.FeatureSize]; ok && v.IsNumeric {
		if v.Numeric >= 27 && v.Numeric <= 35 {
			bonus += 0.05
		}
	}
	if bonus > 0.25 {
		bonus = 0.25
	}
	return bonus
}

func effectiveBudget(user catalog.FeatureSet, budget *int) int {
	if budget != nil && *budget > 0 {
		return *budget
	}
	if v, ok := user.Features[catalog.FeaturePrice]; ok && v.IsNumeric {
		return int(v.Numeric)
	}
	return 0
}

// buildRationale lists the significant matches, heaviest first, capped
// at six entries.
func buildRationale(matches []featureMatch) string {
	sorted := make([]featureMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].weight != sorted[j].weight {
			return sorted[i].weight > sorted[j].weight
		}
		return sorted[i].name < sorted[j].name
	})

	parts := make([]string, 0, 6)
	for _, m := range sorted {
		if m.kind == matchAbsent {
			continue
		}
		if m.kind == matchMiss && m.score == 0 {
			parts = append(parts, fmt.Sprintf("%s: mismatch", m.name))
		} else if m.score > 0.7 {
			parts = append(parts, fmt.Sprintf("%s: %s", m.name, m.kind))
		}
		if len(parts) == 6 {
			break
		}
	}
	return strings.Join(parts, ", ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
