package selection

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// Candidate is one scored product flowing through model selection.
type Candidate struct {
	Product  catalog.Product
	Features catalog.ProductFeatures
	Score    catalog.Score
}

// ModelSelector decides which selection model runs first and falls
// through the chain feature-match → popularity → random when a model
// cannot produce a result.
type ModelSelector struct{}

// NewModelSelector builds a model selector.
func NewModelSelector() *ModelSelector {
	return &ModelSelector{}
}

// Outcome is the result of running the model chain.
type Outcome struct {
	Ranked         []Candidate
	ModelUsed      catalog.SelectionModel
	FallbackReason string
}

// Select runs the primary model for the situation and falls back down
// the chain on failure. seed makes the random model reproducible per
// request. An empty candidate set returns NoMatch.
func (ms *ModelSelector) Select(user catalog.FeatureSet, candidates []Candidate, seed int64) (Outcome, error) {
	if len(candidates) == 0 {
		return Outcome{}, catalog.NoMatch(catalog.NoMatchAllModelsFail)
	}

	primary := ms.primaryModel(user, len(candidates))
	chain := chainFrom(primary)

	var reason string
	for i, model := range chain {
		ranked, err := ms.run(model, user, candidates, seed)
		if err == nil {
			out := Outcome{Ranked: ranked, ModelUsed: model}
			if i > 0 {
				out.FallbackReason = reason
			}
			return out, nil
		}
		reason = err.Error()
		log.Debug().
			Str("model", string(model)).
			Str("reason", reason).
			Msg("selection model failed, falling back")
	}
	return Outcome{}, catalog.NoMatch(catalog.NoMatchAllModelsFail)
}

// primaryModel implements the decision table: feature matching needs
// enough products and a technical query; popularity needs two; a thin
// result set goes straight to weighted random.
func (ms *ModelSelector) primaryModel(user catalog.FeatureSet, count int) catalog.SelectionModel {
	switch {
	case count >= 3 && user.TechnicalQuery:
		return catalog.ModelFeatureMatch
	case count >= 2:
		return catalog.ModelPopularity
	default:
		return catalog.ModelRandom
	}
}

func chainFrom(primary catalog.SelectionModel) []catalog.SelectionModel {
	full := []catalog.SelectionModel{
		catalog.ModelFeatureMatch, catalog.ModelPopularity, catalog.ModelRandom,
	}
	for i, m := range full {
		if m == primary {
			return full[i:]
		}
	}
	return full
}

func (ms *ModelSelector) run(model catalog.SelectionModel, user catalog.FeatureSet, candidates []Candidate, seed int64) ([]Candidate, error) {
	switch model {
	case catalog.ModelFeatureMatch:
		return featureMatchModel(user, candidates)
	case catalog.ModelPopularity:
		return popularityModel(candidates)
	default:
		return randomModel(candidates, seed)
	}
}

// featureMatchModel keeps the score ordering the pipeline produced.
// It fails when no features were extracted or nothing scored above
// zero, handing over to popularity.
func featureMatchModel(user catalog.FeatureSet, candidates []Candidate) ([]Candidate, error) {
	if user.Empty() {
		return nil, errNoFeatures
	}
	anyScored := false
	for _, c := range candidates {
		if c.Score.Final > 0 {
			anyScored = true
			break
		}
	}
	if !anyScored {
		return nil, errAllZeroScores
	}
	return candidates, nil
}

// popularityModel ranks by a blend of review volume and star rating.
// Products with no rating data sort below any rated product.
func popularityModel(candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, errNoCandidates
	}
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := popularitySignal(&ranked[i].Product), popularitySignal(&ranked[j].Product)
		ri, rj := ranked[i].Product.RatingCount > 0, ranked[j].Product.RatingCount > 0
		if ri != rj {
			return ri // rated products first
		}
		if pi != pj {
			return pi > pj
		}
		return ranked[i].Product.ASIN < ranked[j].Product.ASIN
	})
	return ranked, nil
}

// popularitySignal blends log review volume with average rating.
func popularitySignal(p *catalog.Product) float64 {
	return math.Log1p(float64(p.RatingCount))*0.6 + p.AverageRating/5.0*0.4
}

// randomModel picks exactly one product, weighted by rating count so
// better-reviewed products surface more often. Deterministic for a
// given seed.
func randomModel(candidates []Candidate, seed int64) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, errNoCandidates
	}
	rng := rand.New(rand.NewSource(seed))
	total := 0
	for _, c := range candidates {
		total += c.Product.RatingCount + 1
	}
	pick := rng.Intn(total)
	for _, c := range candidates {
		pick -= c.Product.RatingCount + 1
		if pick < 0 {
			return []Candidate{c}, nil
		}
	}
	return []Candidate{candidates[len(candidates)-1]}, nil
}
