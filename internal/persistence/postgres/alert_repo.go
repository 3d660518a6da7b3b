package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/persistence"
)

// alertRepo implements persistence.AlertRepo on PostgreSQL.
type alertRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAlertRepo builds a PostgreSQL alert repository.
func NewAlertRepo(db *sqlx.DB, timeout time.Duration) persistence.AlertRepo {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &alertRepo{db: db, timeout: timeout}
}

func (r *alertRepo) RecordAlert(ctx context.Context, alert catalog.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, watch_id, asin, kind, previous_price,
		                    current_price, discount_percent, quality_score, emitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.ID, alert.WatchID, alert.ASIN, alert.Kind, alert.PreviousPrice,
		alert.CurrentPrice, alert.DiscountPercent, alert.QualityScore, alert.EmittedAt)
	if err != nil {
		return fmt.Errorf("record alert for watch %d: %w", alert.WatchID, err)
	}
	return nil
}

func (r *alertRepo) LastOfKind(ctx context.Context, watchID int64, kind catalog.AlertKind) (*catalog.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var a catalog.Alert
	err := r.db.GetContext(ctx, &a, `
		SELECT id, watch_id, asin, kind, previous_price, current_price,
		       discount_percent, quality_score, emitted_at
		FROM alerts
		WHERE watch_id = $1 AND kind = $2
		ORDER BY emitted_at DESC
		LIMIT 1`, watchID, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last %s alert for watch %d: %w", kind, watchID, err)
	}
	return &a, nil
}
