package persistence

import (
	"context"
	"time"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// Repository interfaces the core consumes. The core assumes each
// implementation handles its own concurrency; no locks are held across
// repository calls.

// WatchRepo serves persisted watches.
type WatchRepo interface {
	// ListActive returns evaluable watches; userID 0 means all users.
	ListActive(ctx context.Context, userID int64) ([]catalog.Watch, error)
	GetByID(ctx context.Context, id int64) (*catalog.Watch, error)
	UpdateLastEval(ctx context.Context, id int64, ts time.Time) error
	// SetState transitions the watch lifecycle and stores the failure
	// counter alongside.
	SetState(ctx context.Context, id int64, state catalog.WatchState, failCount int) error
}

// PriceHistoryRepo serves observed price points per ASIN.
type PriceHistoryRepo interface {
	GetRecent(ctx context.Context, asin string, horizon time.Duration) ([]catalog.PricePoint, error)
	Append(ctx context.Context, point catalog.PricePoint) error
}

// AlertRepo records emitted alerts. LastOfKind backs the 24h
// rising-edge dedup for deal alerts.
type AlertRepo interface {
	RecordAlert(ctx context.Context, alert catalog.Alert) error
	LastOfKind(ctx context.Context, watchID int64, kind catalog.AlertKind) (*catalog.Alert, error)
}
