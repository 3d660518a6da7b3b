package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/paapi"
	"github.com/dealsentry/dealsentry/internal/persistence"
)

func intp(v int) *int { return &v }

type stubLooker struct {
	lookup *paapi.Lookup
	err    error
}

func (s *stubLooker) GetItem(context.Context, string, paapi.ResourceSetID) (*paapi.Lookup, error) {
	return s.lookup, s.err
}

type memWatchRepo struct {
	watches map[int64]*catalog.Watch
}

func (m *memWatchRepo) ListActive(_ context.Context, _ int64) ([]catalog.Watch, error) {
	var out []catalog.Watch
	for _, w := range m.watches {
		if w.State == catalog.WatchActive {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *memWatchRepo) GetByID(_ context.Context, id int64) (*catalog.Watch, error) {
	w, ok := m.watches[id]
	if !ok {
		return nil, catalog.ErrInvalidInput
	}
	cp := *w
	return &cp, nil
}

func (m *memWatchRepo) UpdateLastEval(_ context.Context, id int64, ts time.Time) error {
	m.watches[id].LastEvalAt = &ts
	return nil
}

func (m *memWatchRepo) SetState(_ context.Context, id int64, state catalog.WatchState, failCount int) error {
	m.watches[id].State = state
	m.watches[id].FailCount = failCount
	return nil
}

type memPriceRepo struct {
	points []catalog.PricePoint
}

func (m *memPriceRepo) GetRecent(_ context.Context, asin string, horizon time.Duration) ([]catalog.PricePoint, error) {
	cutoff := time.Now().Add(-horizon)
	var out []catalog.PricePoint
	for _, pt := range m.points {
		if pt.ASIN == asin && pt.ObservedAt.After(cutoff) {
			out = append(out, pt)
		}
	}
	return out, nil
}

func (m *memPriceRepo) Append(_ context.Context, point catalog.PricePoint) error {
	m.points = append(m.points, point)
	return nil
}

type memAlertRepo struct {
	alerts []catalog.Alert
}

func (m *memAlertRepo) RecordAlert(_ context.Context, alert catalog.Alert) error {
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *memAlertRepo) LastOfKind(_ context.Context, watchID int64, kind catalog.AlertKind) (*catalog.Alert, error) {
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].WatchID == watchID && m.alerts[i].Kind == kind {
			cp := m.alerts[i]
			return &cp, nil
		}
	}
	return nil, nil
}

type fixture struct {
	evaluator *Evaluator
	watches   *memWatchRepo
	prices    *memPriceRepo
	alerts    *memAlertRepo
	looker    *stubLooker
}

func newFixture(lookup *paapi.Lookup, err error) *fixture {
	f := &fixture{
		watches: &memWatchRepo{watches: map[int64]*catalog.Watch{}},
		prices:  &memPriceRepo{},
		alerts:  &memAlertRepo{},
		looker:  &stubLooker{lookup: lookup, err: err},
	}
	f.evaluator = NewEvaluator(Config{}, f.looker, f.watches, f.prices, f.alerts, nil)
	return f
}

func activeWatch(id int64) *catalog.Watch {
	past := time.Now().Add(-48 * time.Hour)
	return &catalog.Watch{
		ID:           id,
		UserID:       1,
		Keywords:     "gaming monitor",
		SelectedASIN: "B0WATCH01",
		State:        catalog.WatchActive,
		CreatedAt:    past,
		LastEvalAt:   &past,
	}
}

func pricedLookup(price int, discount bool) *paapi.Lookup {
	p := catalog.Product{
		ASIN:             "B0WATCH01",
		Title:            "Gaming Monitor",
		PriceRupees:      intp(price),
		RatingCount:      500,
		AverageRating:    4.3,
		FeaturesList:     []string{},
		TechnicalDetails: map[string]string{},
	}
	if discount {
		p.ListPriceRupees = intp(price * 2)
		p.DiscountPercent = intp(50)
	}
	return &paapi.Lookup{Product: p, InStock: true}
}

func TestPriceDropFiresAtThreshold(t *testing.T) {
	f := newFixture(pricedLookup(9500, false), nil)
	w := activeWatch(1)
	f.watches.watches[1] = w
	f.prices.points = []catalog.PricePoint{
		{ASIN: "B0WATCH01", PriceRupees: 10000, ObservedAt: time.Now().Add(-time.Hour)},
	}

	alert, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	require.NotNil(t, alert, "9500 is exactly 0.95 of 10000")
	assert.Equal(t, catalog.AlertPriceDrop, alert.Kind)
	assert.Equal(t, 10000, alert.PreviousPrice)
	assert.Equal(t, 9500, alert.CurrentPrice)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestSmallDropDoesNotFire(t *testing.T) {
	f := newFixture(pricedLookup(9800, false), nil)
	w := activeWatch(1)
	f.watches.watches[1] = w
	f.prices.points = []catalog.PricePoint{
		{ASIN: "B0WATCH01", PriceRupees: 10000, ObservedAt: time.Now().Add(-time.Hour)},
	}

	alert, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	assert.Nil(t, alert, "a 2% drop is under the 5% threshold")
}

func TestEvaluationAppendsPricePoint(t *testing.T) {
	f := newFixture(pricedLookup(9800, false), nil)
	w := activeWatch(1)
	f.watches.watches[1] = w

	_, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	require.Len(t, f.prices.points, 1)
	assert.Equal(t, 9800, f.prices.points[0].PriceRupees)
	assert.NotNil(t, f.watches.watches[1].LastEvalAt)
}

func TestDealAlertRisingEdge(t *testing.T) {
	f := newFixture(pricedLookup(9000, true), nil)
	w := activeWatch(1)
	w.MinDiscountPercent = intp(40)
	f.watches.watches[1] = w

	first, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, catalog.AlertDeal, first.Kind)

	// Same deal an hour later: suppressed inside the 24h window.
	second, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestDealAlertAfterWindowExpires(t *testing.T) {
	f := newFixture(pricedLookup(9000, true), nil)
	w := activeWatch(1)
	w.MinDiscountPercent = intp(40)
	f.watches.watches[1] = w

	// A deal alert from two days ago does not suppress.
	f.alerts.alerts = append(f.alerts.alerts, catalog.Alert{
		WatchID: 1, Kind: catalog.AlertDeal, EmittedAt: time.Now().Add(-48 * time.Hour),
	})

	alert, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, catalog.AlertDeal, alert.Kind)
}

func TestRestockAlert(t *testing.T) {
	f := newFixture(pricedLookup(9000, false), nil)
	w := activeWatch(1)
	w.MaxPriceRupees = intp(12000)
	f.watches.watches[1] = w
	// The last observation is five days old: the item was unavailable
	// in between.
	f.prices.points = []catalog.PricePoint{
		{ASIN: "B0WATCH01", PriceRupees: 12000, ObservedAt: time.Now().Add(-5 * 24 * time.Hour)},
	}

	alert, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, catalog.AlertRestock, alert.Kind)
	assert.Equal(t, 12000, alert.PreviousPrice)
}

func TestBudgetCeilingGatesAlerts(t *testing.T) {
	f := newFixture(pricedLookup(9000, false), nil)
	w := activeWatch(1)
	w.MaxPriceRupees = intp(8000)
	f.watches.watches[1] = w
	f.prices.points = []catalog.PricePoint{
		{ASIN: "B0WATCH01", PriceRupees: 12000, ObservedAt: time.Now().Add(-time.Hour)},
	}

	alert, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	assert.Nil(t, alert, "a drop that is still above the watch ceiling stays silent")
}

func TestFailuresThrottleWatch(t *testing.T) {
	f := newFixture(nil, catalog.ErrTransient)
	w := activeWatch(1)
	f.watches.watches[1] = w

	for i := 0; i < 3; i++ {
		_, err := f.evaluator.EvaluateWatch(context.Background(), f.watches.watches[1])
		assert.ErrorIs(t, err, catalog.ErrTransient)
	}
	assert.Equal(t, catalog.WatchThrottled, f.watches.watches[1].State)
	assert.Equal(t, 3, f.watches.watches[1].FailCount)
}

func TestSuccessResetsFailCount(t *testing.T) {
	f := newFixture(pricedLookup(9800, false), nil)
	w := activeWatch(1)
	w.FailCount = 2
	f.watches.watches[1] = w

	_, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, catalog.WatchActive, f.watches.watches[1].State)
	assert.Zero(t, f.watches.watches[1].FailCount)
}

func TestExpiredWatchTransitions(t *testing.T) {
	f := newFixture(pricedLookup(9800, false), nil)
	w := activeWatch(1)
	past := time.Now().Add(-time.Hour)
	w.ExpiresAt = &past
	f.watches.watches[1] = w

	alert, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, catalog.WatchExpired, f.watches.watches[1].State)
}

func TestPausedWatchSkipped(t *testing.T) {
	f := newFixture(pricedLookup(9800, false), nil)
	w := activeWatch(1)
	w.State = catalog.WatchPaused
	f.watches.watches[1] = w

	alert, err := f.evaluator.EvaluateWatch(context.Background(), w)
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, catalog.WatchPaused, f.watches.watches[1].State)
}

func TestQualityScoreBounds(t *testing.T) {
	w := activeWatch(1)
	w.MaxPriceRupees = intp(20000)

	best := &catalog.Product{
		ASIN:            "B0WATCH01",
		PriceRupees:     intp(7000),
		DiscountPercent: intp(60),
		RatingCount:     5000,
		AverageRating:   4.8,
	}
	worst := &catalog.Product{ASIN: "B0WATCH01", PriceRupees: intp(20000)}

	hi := QualityScore(w, 14000, best)
	lo := QualityScore(w, 0, worst)
	assert.GreaterOrEqual(t, hi, 0)
	assert.LessOrEqual(t, hi, 100)
	assert.Greater(t, hi, lo)
	assert.Zero(t, lo)
}

func TestQualityScoreDeterministic(t *testing.T) {
	w := activeWatch(1)
	p := &catalog.Product{
		ASIN: "B0WATCH01", PriceRupees: intp(9000),
		DiscountPercent: intp(25), RatingCount: 800, AverageRating: 4.1,
	}
	first := QualityScore(w, 11000, p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, QualityScore(w, 11000, p))
	}
}

var _ persistence.WatchRepo = (*memWatchRepo)(nil)
var _ persistence.PriceHistoryRepo = (*memPriceRepo)(nil)
var _ persistence.AlertRepo = (*memAlertRepo)(nil)
