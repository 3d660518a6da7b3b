package watch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/paapi"
	"github.com/dealsentry/dealsentry/internal/persistence"
	"github.com/dealsentry/dealsentry/internal/telemetry"
)

// Config tunes watch evaluation. Zero values fall back to defaults.
type Config struct {
	// PriceDropRatio: an alert fires when the current price is at or
	// below this fraction of the previous observation.
	PriceDropRatio float64 `yaml:"price_drop_ratio"`
	// DealMinDiscount is the discount floor for deal alerts on watches
	// that do not state their own.
	DealMinDiscount int `yaml:"deal_min_discount"`
	// DedupWindow suppresses repeat deal alerts: one per window, fired
	// on the rising edge only.
	DedupWindow time.Duration `yaml:"dedup_window"`
	// MaxFailures throttles a watch after this many consecutive
	// evaluation failures.
	MaxFailures int `yaml:"max_failures"`
	// HistoryHorizon bounds how far back price comparison looks.
	HistoryHorizon time.Duration `yaml:"history_horizon"`
	// RestockGap: an in-stock listing whose last price observation is
	// older than this was unavailable in between.
	RestockGap time.Duration `yaml:"restock_gap"`
}

func (c *Config) defaults() {
	if c.PriceDropRatio <= 0 || c.PriceDropRatio >= 1 {
		c.PriceDropRatio = 0.95
	}
	if c.DealMinDiscount <= 0 {
		c.DealMinDiscount = 20
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = 24 * time.Hour
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 3
	}
	if c.HistoryHorizon <= 0 {
		c.HistoryHorizon = 30 * 24 * time.Hour
	}
	if c.RestockGap <= 0 {
		c.RestockGap = 72 * time.Hour
	}
}

// ItemLooker is the slice of the upstream adapter the evaluator uses.
type ItemLooker interface {
	GetItem(ctx context.Context, asin string, set paapi.ResourceSetID) (*paapi.Lookup, error)
}

// Evaluator checks one watch against the live listing and the price
// history, emitting at most one alert per evaluation.
type Evaluator struct {
	cfg     Config
	items   ItemLooker
	watches persistence.WatchRepo
	prices  persistence.PriceHistoryRepo
	alerts  persistence.AlertRepo
	metrics *telemetry.Metrics

	now   func() time.Time
	newID func() string
}

// NewEvaluator wires the evaluator. metrics may be telemetry.Nop().
func NewEvaluator(cfg Config, items ItemLooker, watches persistence.WatchRepo,
	prices persistence.PriceHistoryRepo, alerts persistence.AlertRepo,
	metrics *telemetry.Metrics) *Evaluator {
	cfg.defaults()
	if metrics == nil {
		metrics = telemetry.Nop()
	}
	return &Evaluator{
		cfg:     cfg,
		items:   items,
		watches: watches,
		prices:  prices,
		alerts:  alerts,
		metrics: metrics,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// EvaluateWatch runs one evaluation cycle for a watch. A nil alert
// with a nil error means the watch was checked and nothing fired. The
// watch's state machine is advanced as a side effect: a successful
// evaluation resets the failure counter, a failed one increments it
// and throttles the watch at the limit.
func (e *Evaluator) EvaluateWatch(ctx context.Context, w *catalog.Watch) (*catalog.Alert, error) {
	now := e.now()
	if !w.Evaluable(now) {
		if w.ExpiresAt != nil && now.After(*w.ExpiresAt) && w.State == catalog.WatchActive {
			return nil, e.watches.SetState(ctx, w.ID, catalog.WatchExpired, w.FailCount)
		}
		return nil, nil
	}
	if w.SelectedASIN == "" {
		return nil, catalog.ErrInvalidInput
	}

	lookup, err := e.items.GetItem(ctx, w.SelectedASIN, paapi.ResourceSetAILookup)
	if err != nil {
		return nil, e.recordFailure(ctx, w, err)
	}

	recent, err := e.prices.GetRecent(ctx, w.SelectedASIN, e.cfg.HistoryHorizon)
	if err != nil {
		return nil, e.recordFailure(ctx, w, err)
	}

	alert := e.decide(ctx, w, lookup, recent, now)

	if lookup.Product.HasPrice() {
		point := catalog.PricePoint{
			ASIN:            w.SelectedASIN,
			PriceRupees:     lookup.Product.Price(),
			ListPriceRupees: lookup.Product.ListPriceRupees,
			ObservedAt:      now,
		}
		if err := e.prices.Append(ctx, point); err != nil {
			log.Warn().Err(err).Str("asin", w.SelectedASIN).Msg("price point not recorded")
		}
	}

	if err := e.watches.UpdateLastEval(ctx, w.ID, now); err != nil {
		return nil, err
	}
	if w.FailCount > 0 {
		if err := e.watches.SetState(ctx, w.ID, catalog.WatchActive, 0); err != nil {
			return nil, err
		}
	}

	if alert != nil {
		if err := e.alerts.RecordAlert(ctx, *alert); err != nil {
			return nil, err
		}
		e.metrics.AlertsEmitted.WithLabelValues(string(alert.Kind)).Inc()
		log.Info().
			Int64("watch", w.ID).
			Str("asin", alert.ASIN).
			Str("kind", string(alert.Kind)).
			Int("quality", alert.QualityScore).
			Msg("alert emitted")
	}
	return alert, nil
}

// decide applies the alert rules in priority order: restock beats
// price drop beats deal, and at most one fires per evaluation.
func (e *Evaluator) decide(ctx context.Context, w *catalog.Watch, lookup *paapi.Lookup, recent []catalog.PricePoint, now time.Time) *catalog.Alert {
	current := lookup.Product

	// Restock: the item is buyable again after a gap in observations
	// long enough to mean it was unavailable. An empty history is a new
	// watch, not a restock.
	if lookup.InStock && current.HasPrice() && len(recent) > 0 {
		if now.Sub(latestObservation(recent)) > e.cfg.RestockGap && e.withinBudget(w, current.Price()) {
			return e.build(w, catalog.AlertRestock, latestPrice(recent), &current, now)
		}
	}
	if !lookup.InStock || !current.HasPrice() {
		return nil
	}

	prev := latestPrice(recent)
	if prev > 0 && float64(current.Price()) <= float64(prev)*e.cfg.PriceDropRatio &&
		e.withinBudget(w, current.Price()) {
		return e.build(w, catalog.AlertPriceDrop, prev, &current, now)
	}

	minDiscount := e.cfg.DealMinDiscount
	if w.MinDiscountPercent != nil {
		minDiscount = *w.MinDiscountPercent
	}
	if current.Discount() >= minDiscount && e.withinBudget(w, current.Price()) {
		if e.dealSuppressed(ctx, w.ID, now) {
			return nil
		}
		return e.build(w, catalog.AlertDeal, prev, &current, now)
	}
	return nil
}

// dealSuppressed implements the rising-edge rule: a deal alert fired
// within the dedup window suppresses the next one.
func (e *Evaluator) dealSuppressed(ctx context.Context, watchID int64, now time.Time) bool {
	last, err := e.alerts.LastOfKind(ctx, watchID, catalog.AlertDeal)
	if err != nil {
		log.Warn().Err(err).Int64("watch", watchID).Msg("deal dedup lookup failed, suppressing")
		return true // fail closed: better a missed alert than a duplicate
	}
	return last != nil && now.Sub(last.EmittedAt) < e.cfg.DedupWindow
}

func (e *Evaluator) build(w *catalog.Watch, kind catalog.AlertKind, prevPrice int, p *catalog.Product, now time.Time) *catalog.Alert {
	return &catalog.Alert{
		ID:              e.newID(),
		WatchID:         w.ID,
		ASIN:            p.ASIN,
		Kind:            kind,
		PreviousPrice:   prevPrice,
		CurrentPrice:    p.Price(),
		DiscountPercent: p.Discount(),
		QualityScore:    QualityScore(w, prevPrice, p),
		EmittedAt:       now,
	}
}

func (e *Evaluator) recordFailure(ctx context.Context, w *catalog.Watch, cause error) error {
	fails := w.FailCount + 1
	state := catalog.WatchActive
	if fails >= e.cfg.MaxFailures {
		state = catalog.WatchThrottled
		log.Warn().Int64("watch", w.ID).Int("failures", fails).Msg("watch throttled")
	}
	if err := e.watches.SetState(ctx, w.ID, state, fails); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (e *Evaluator) withinBudget(w *catalog.Watch, price int) bool {
	return w.MaxPriceRupees == nil || price <= *w.MaxPriceRupees
}

// latestPrice returns the most recent observation, or 0 when there is
// no history.
func latestPrice(recent []catalog.PricePoint) int {
	best := 0
	var bestAt time.Time
	for _, pt := range recent {
		if pt.ObservedAt.After(bestAt) {
			bestAt = pt.ObservedAt
			best = pt.PriceRupees
		}
	}
	return best
}

func latestObservation(recent []catalog.PricePoint) time.Time {
	var bestAt time.Time
	for _, pt := range recent {
		if pt.ObservedAt.After(bestAt) {
			bestAt = pt.ObservedAt
		}
	}
	return bestAt
}

// QualityScore grades an alert in [0,100]: drop magnitude carries 40
// points, discount depth 30, review signal 20 and budget headroom 10.
// Deterministic for identical inputs.
func QualityScore(w *catalog.Watch, prevPrice int, p *catalog.Product) int {
	score := 0.0

	if prevPrice > 0 && p.HasPrice() && p.Price() < prevPrice {
		drop := float64(prevPrice-p.Price()) / float64(prevPrice)
		// Full marks at a 25% drop.
		score += 40 * clamp01(drop/0.25)
	}

	// Full marks at 50% off.
	score += 30 * clamp01(float64(p.Discount())/50.0)

	if p.RatingCount > 0 {
		ratingPart := clamp01(p.AverageRating / 5.0)
		volumePart := clamp01(float64(p.RatingCount) / 1000.0)
		score += 20 * (ratingPart*0.7 + volumePart*0.3)
	}

	if w.MaxPriceRupees != nil && *w.MaxPriceRupees > 0 && p.HasPrice() {
		headroom := 1 - float64(p.Price())/float64(*w.MaxPriceRupees)
		score += 10 * clamp01(headroom/0.3)
	}

	out := int(score + 0.5)
	if out > 100 {
		out = 100
	}
	if out < 0 {
		out = 0
	}
	return out
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
