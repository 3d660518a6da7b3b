package catalog

import "time"

// WatchState is the lifecycle state of a watch. Only active watches
// are evaluated.
type WatchState string

const (
	WatchActive    WatchState = "active"
	WatchThrottled WatchState = "throttled"
	WatchPaused    WatchState = "paused"
	WatchExpired   WatchState = "expired"
)

// Watch is a persisted user subscription to a product or search. The
// core reads it through WatchRepo; the evaluator updates LastEvalAt
// and the failure counter.
type Watch struct {
	ID                 int64      `json:"id" db:"id"`
	UserID             int64      `json:"user_id" db:"user_id"`
	Keywords           string     `json:"keywords" db:"keywords"`
	Brand              string     `json:"brand,omitempty" db:"brand"`
	MaxPriceRupees     *int       `json:"max_price_rupees,omitempty" db:"max_price_rupees"`
	MinDiscountPercent *int       `json:"min_discount_percent,omitempty" db:"min_discount_percent"`
	SelectedASIN       string     `json:"selected_asin,omitempty" db:"selected_asin"`
	State              WatchState `json:"state" db:"state"`
	FailCount          int        `json:"fail_count" db:"fail_count"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	LastEvalAt         *time.Time `json:"last_eval_at,omitempty" db:"last_eval_at"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// Evaluable reports whether the watch should be evaluated now.
func (w *Watch) Evaluable(now time.Time) bool {
	if w.State != WatchActive {
		return false
	}
	if w.ExpiresAt != nil && now.After(*w.ExpiresAt) {
		return false
	}
	return true
}

// AlertKind is the closed set of alert reasons.
type AlertKind string

const (
	AlertPriceDrop AlertKind = "price_drop"
	AlertDeal      AlertKind = "deal"
	AlertRestock   AlertKind = "restock"
)

// Alert is an emitted watch event. QualityScore is deterministic and
// always in [0,100].
type Alert struct {
	ID              string    `json:"id" db:"id"`
	WatchID         int64     `json:"watch_id" db:"watch_id"`
	ASIN            string    `json:"asin" db:"asin"`
	Kind            AlertKind `json:"kind" db:"kind"`
	PreviousPrice   int       `json:"previous_price" db:"previous_price"`
	CurrentPrice    int       `json:"current_price" db:"current_price"`
	DiscountPercent int       `json:"discount_percent" db:"discount_percent"`
	QualityScore    int       `json:"quality_score" db:"quality_score"`
	EmittedAt       time.Time `json:"emitted_at" db:"emitted_at"`
}
