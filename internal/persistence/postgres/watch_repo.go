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

// watchRepo implements persistence.WatchRepo on PostgreSQL.
type watchRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewWatchRepo builds a PostgreSQL watch repository.
func NewWatchRepo(db *sqlx.DB, timeout time.Duration) persistence.WatchRepo {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &watchRepo{db: db, timeout: timeout}
}

func (r *watchRepo) ListActive(ctx context.Context, userID int64) ([]catalog.Watch, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, user_id, keywords, brand, max_price_rupees,
		       min_discount_percent, selected_asin, state, fail_count,
		       created_at, last_eval_at, expires_at
		FROM watches
		WHERE state = $1 AND (expires_at IS NULL OR expires_at > now())`
	args := []interface{}{catalog.WatchActive}
	if userID != 0 {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	var watches []catalog.Watch
	if err := r.db.SelectContext(ctx, &watches, query, args...); err != nil {
		return nil, fmt.Errorf("list active watches: %w", err)
	}
	return watches, nil
}

func (r *watchRepo) GetByID(ctx context.Context, id int64) (*catalog.Watch, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var w catalog.Watch
	err := r.db.GetContext(ctx, &w, `
		SELECT id, user_id, keywords, brand, max_price_rupees,
		       min_discount_percent, selected_asin, state, fail_count,
		       created_at, last_eval_at, expires_at
		FROM watches WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("watch %d: %w", id, catalog.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("get watch %d: %w", id, err)
	}
	return &w, nil
}

func (r *watchRepo) UpdateLastEval(ctx context.Context, id int64, ts time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE watches SET last_eval_at = $2 WHERE id = $1`, id, ts)
	if err != nil {
		return fmt.Errorf("update last_eval for watch %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("watch %d not found: %w", id, catalog.ErrInvalidInput)
	}
	return nil
}

func (r *watchRepo) SetState(ctx context.Context, id int64, state catalog.WatchState, failCount int) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`UPDATE watches SET state = $2, fail_count = $3 WHERE id = $1`,
		id, state, failCount)
	if err != nil {
		return fmt.Errorf("set state for watch %d: %w", id, err)
	}
	return nil
}
