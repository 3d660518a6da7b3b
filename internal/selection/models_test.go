package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

func candidate(asin string, final float64, ratings int, avg float64) Candidate {
	return Candidate{
		Product: catalog.Product{
			ASIN:             asin,
			RatingCount:      ratings,
			AverageRating:    avg,
			FeaturesList:     []string{},
			TechnicalDetails: map[string]string{},
		},
		Score: catalog.Score{Final: final},
	}
}

func technicalUser() catalog.FeatureSet {
	return catalog.FeatureSet{
		Features: map[string]catalog.FeatureValue{
			catalog.FeatureRefreshRate: {Value: "144", Numeric: 144, IsNumeric: true},
		},
		TechnicalQuery: true,
	}
}

func TestPrimaryModelTable(t *testing.T) {
	ms := NewModelSelector()
	cases := []struct {
		count     int
		technical bool
		want      catalog.SelectionModel
	}{
		{5, true, catalog.ModelFeatureMatch},
		{3, true, catalog.ModelFeatureMatch},
		{3, false, catalog.ModelPopularity},
		{2, true, catalog.ModelPopularity},
		{2, false, catalog.ModelPopularity},
		{1, true, catalog.ModelRandom},
		{1, false, catalog.ModelRandom},
	}
	for _, c := range cases {
		user := catalog.FeatureSet{TechnicalQuery: c.technical}
		got := ms.primaryModel(user, c.count)
		assert.Equal(t, c.want, got, "count=%d technical=%v", c.count, c.technical)
	}
}

func TestSelectFeatureMatchKeepsOrder(t *testing.T) {
	ms := NewModelSelector()
	cands := []Candidate{
		candidate("B01", 0.9, 100, 4.5),
		candidate("B02", 0.7, 500, 4.2),
		candidate("B03", 0.5, 50, 4.0),
	}
	out, err := ms.Select(technicalUser(), cands, 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.ModelFeatureMatch, out.ModelUsed)
	assert.Empty(t, out.FallbackReason)
	assert.Equal(t, "B01", out.Ranked[0].Product.ASIN)
}

func TestSelectFallsBackToPopularity(t *testing.T) {
	ms := NewModelSelector()
	// Technical query, enough candidates, but nothing scored: the
	// feature-match model hands over to popularity.
	cands := []Candidate{
		candidate("B01", 0, 10, 3.0),
		candidate("B02", 0, 900, 4.6),
		candidate("B03", 0, 100, 4.1),
	}
	out, err := ms.Select(technicalUser(), cands, 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.ModelPopularity, out.ModelUsed)
	assert.NotEmpty(t, out.FallbackReason)
	assert.Equal(t, "B02", out.Ranked[0].Product.ASIN, "most reviewed, best rated first")
}

func TestPopularityUnratedLast(t *testing.T) {
	ranked, err := popularityModel([]Candidate{
		candidate("B01", 0, 0, 0),
		candidate("B02", 0, 5, 3.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "B02", ranked[0].Product.ASIN)
	assert.Equal(t, "B01", ranked[1].Product.ASIN)
}

func TestRandomModelDeterministicPerSeed(t *testing.T) {
	cands := []Candidate{
		candidate("B01", 0, 10, 4.0),
		candidate("B02", 0, 200, 4.5),
		candidate("B03", 0, 50, 4.2),
	}
	first, err := randomModel(cands, 42)
	require.NoError(t, err)
	require.Len(t, first, 1)
	for i := 0; i < 10; i++ {
		again, err := randomModel(cands, 42)
		require.NoError(t, err)
		assert.Equal(t, first[0].Product.ASIN, again[0].Product.ASIN)
	}
}

func TestRandomModelHandlesUnrated(t *testing.T) {
	// All-zero rating counts still pick something: every product gets
	// weight count+1.
	cands := []Candidate{candidate("B01", 0, 0, 0), candidate("B02", 0, 0, 0)}
	picked, err := randomModel(cands, 7)
	require.NoError(t, err)
	assert.Len(t, picked, 1)
}

func TestSelectEmptyCandidates(t *testing.T) {
	ms := NewModelSelector()
	_, err := ms.Select(technicalUser(), nil, 1)
	reason, ok := catalog.AsNoMatch(err)
	require.True(t, ok)
	assert.Equal(t, catalog.NoMatchAllModelsFail, reason)
}

func TestSelectSingleCandidateUsesRandom(t *testing.T) {
	ms := NewModelSelector()
	out, err := ms.Select(technicalUser(), []Candidate{candidate("B01", 0.8, 10, 4.0)}, 9)
	require.NoError(t, err)
	assert.Equal(t, catalog.ModelRandom, out.ModelUsed)
	require.Len(t, out.Ranked, 1)
	assert.Equal(t, "B01", out.Ranked[0].Product.ASIN)
}
