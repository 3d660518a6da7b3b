package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/features"
)

func intp(v int) *int { return &v }

func userSet(pairs map[string]catalog.FeatureValue) catalog.FeatureSet {
	return catalog.FeatureSet{Features: pairs, TechnicalQuery: true}
}

func productSet(pairs map[string]catalog.FeatureValue, conf float64) catalog.ProductFeatures {
	return catalog.ProductFeatures{
		FeatureSet:        catalog.FeatureSet{Features: pairs},
		OverallConfidence: conf,
	}
}

func rr(hz float64) catalog.FeatureValue {
	return catalog.FeatureValue{Value: features.FormatHz(int(hz)), Numeric: hz, IsNumeric: true, Confidence: 0.95}
}

func TestScoreExactMatch(t *testing.T) {
	e := NewEngine(false)
	user := userSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(144)})
	product := productSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(144)}, 0.9)

	s := e.Score(user, product, features.CategoryGamingMonitor, intp(25000), nil)
	assert.Equal(t, 1.0, s.Technical)
	assert.Contains(t, s.MatchedFeatures, catalog.FeatureRefreshRate)
	assert.Empty(t, s.MissingFeatures)
}

func TestScoreRefreshRateUpgrade(t *testing.T) {
	e := NewEngine(false)
	user := userSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(144)})
	product := productSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(165)}, 0.9)

	s := e.Score(user, product, features.CategoryGamingMonitor, intp(25000), nil)
	assert.InDelta(t, 0.95, s.Technical, 0.001, "a faster panel than requested scores 0.95")
}

func TestScoreDowngradeWorseThanUpgrade(t *testing.T) {
	e := NewEngine(false)
	user := userSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(144)})

	up := e.Score(user, productSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(165)}, 0.9),
		features.CategoryGamingMonitor, intp(25000), nil)
	down := e.Score(user, productSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(120)}, 0.9),
		features.CategoryGamingMonitor, intp(25000), nil)
	assert.Greater(t, up.Technical, down.Technical)
}

func TestScoreToleranceBand(t *testing.T) {
	e := NewEngine(false)
	user := userSet(map[string]catalog.FeatureValue{
		catalog.FeatureSize: {Value: "27", Numeric: 27, IsNumeric: true},
	})

	// 15% band on size: 24 inches is ~11% off, inside the band.
	inside := e.Score(user, productSet(map[string]catalog.FeatureValue{
		catalog.FeatureSize: {Value: "24", Numeric: 24, IsNumeric: true},
	}, 0.9), features.CategoryMonitor, intp(20000), nil)
	assert.GreaterOrEqual(t, inside.Technical, 0.85)
	assert.Less(t, inside.Technical, 1.0)

	// 40 inches is ~48% off, past twice the band: zero.
	far := e.Score(user, productSet(map[string]catalog.FeatureValue{
		catalog.FeatureSize: {Value: "40", Numeric: 40, IsNumeric: true},
	}, 0.9), features.CategoryMonitor, intp(20000), nil)
	assert.Equal(t, 0.0, far.Technical)
}

func TestScoreMissingFeaturePenalizes(t *testing.T) {
	e := NewEngine(false)
	user := userSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(144),
		catalog.FeatureResolution:  {Value: "1440p", Confidence: 0.9},
	})
	full := productSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(144),
		catalog.FeatureResolution:  {Value: "1440p"},
	}, 0.9)
	partial := productSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(144),
	}, 0.9)

	sFull := e.Score(user, full, features.CategoryGamingMonitor, intp(25000), nil)
	sPartial := e.Score(user, partial, features.CategoryGamingMonitor, intp(25000), nil)
	assert.Greater(t, sFull.Technical, sPartial.Technical,
		"an absent feature keeps its weight in the denominator")
	assert.Contains(t, sPartial.MissingFeatures, catalog.FeatureResolution)
}

func TestScorePartialSynonym(t *testing.T) {
	e := NewEngine(false)
	user := userSet(map[string]catalog.FeatureValue{
		catalog.FeaturePanelType: {Value: "oled"},
	})
	product := productSet(map[string]catalog.FeatureValue{
		catalog.FeaturePanelType: {Value: "qled"},
	}, 0.9)

	s := e.Score(user, product, features.CategoryMonitor, intp(30000), nil)
	assert.InDelta(t, 0.85, s.Technical, 0.001)
}

func TestBudgetComponentPiecewise(t *testing.T) {
	budget := 30000
	cases := []struct {
		price int
		want  float64
	}{
		{18000, 1.00}, // 0.6
		{24000, 0.90}, // 0.8
		{27000, 0.80}, // 0.9
		{30000, 0.70}, // 1.0
		{36000, 0.50}, // 1.2
		{45000, 0.30}, // 1.5
		{60000, 0.20}, // 2.0
	}
	for _, c := range cases {
		got := budgetComponent(&c.price, budget)
		assert.Equal(t, c.want, got, "price %d against budget %d", c.price, budget)
	}
}

func TestBudgetComponentUnknown(t *testing.T) {
	assert.Equal(t, 0.70, budgetComponent(nil, 30000))
	price := 20000
	assert.Equal(t, 0.70, budgetComponent(&price, 0))
}

func TestValueComponent(t *testing.T) {
	assert.Equal(t, 0.5, valueComponent(0.9, nil), "unknown price is neutral")
	cheap := 10000
	pricey := 60000
	assert.Greater(t, valueComponent(0.9, &cheap), valueComponent(0.9, &pricey),
		"same specs at a lower price are better value")
	assert.LessOrEqual(t, valueComponent(1.0, &cheap), 1.0)
}

func TestScoreDeterministic(t *testing.T) {
	e := NewEngine(true)
	user := userSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(144),
		catalog.FeatureSize:        {Value: "27", Numeric: 27, IsNumeric: true},
		catalog.FeaturePrice:       {Value: "30000", Numeric: 30000, IsNumeric: true},
	})
	product := productSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(165),
		catalog.FeatureSize:        {Value: "27", Numeric: 27, IsNumeric: true},
		catalog.FeatureResolution:  {Value: "1440p"},
	}, 0.88)

	first := e.Score(user, product, features.CategoryGamingMonitor, intp(27000), nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.Score(user, product, features.CategoryGamingMonitor, intp(27000), nil))
	}
}

func TestScoreFinalInRange(t *testing.T) {
	e := NewEngine(true)
	user := userSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(240),
	})
	product := productSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(240),
		catalog.FeatureResolution:  {Value: "4k"},
		catalog.FeatureSize:        {Value: "32", Numeric: 32, IsNumeric: true},
	}, 1.0)

	s := e.Score(user, product, features.CategoryGamingMonitor, intp(5000), intp(100000))
	assert.GreaterOrEqual(t, s.Final, 0.0)
	assert.LessOrEqual(t, s.Final, 1.0)
	assert.InDelta(t, 1.0, s.Weights.Sum(), 0.001)
}

func TestScoreExcellenceDisabled(t *testing.T) {
	product := productSet(map[string]catalog.FeatureValue{
		catalog.FeatureRefreshRate: rr(240),
		catalog.FeatureResolution:  {Value: "4k"},
	}, 0.9)
	user := userSet(map[string]catalog.FeatureValue{catalog.FeatureRefreshRate: rr(240)})

	off := NewEngine(false).Score(user, product, features.CategoryGamingMonitor, intp(30000), nil)
	on := NewEngine(true).Score(user, product, features.CategoryGamingMonitor, intp(30000), nil)
	assert.Zero(t, off.Excellence)
	assert.Greater(t, on.Excellence, 0.0)
	assert.LessOrEqual(t, on.Excellence, 0.25)
}

func TestMixForGamingWeightsTechnicalHigher(t *testing.T) {
	user := userSet(map[string]catalog.FeatureValue{
		catalog.FeatureUsageContext: {Value: "gaming"},
	})
	gaming := MixFor(features.CategoryGamingMonitor, user)
	general := MixFor(features.CategoryGeneral, catalog.FeatureSet{Features: map[string]catalog.FeatureValue{}})
	assert.Greater(t, gaming.Technical, general.Technical)
	assert.InDelta(t, 1.0, gaming.Sum(), 0.001)
	assert.InDelta(t, 1.0, general.Sum(), 0.001)
}
