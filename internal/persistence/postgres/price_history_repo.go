package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/persistence"
)

// priceHistoryRepo implements persistence.PriceHistoryRepo on
// PostgreSQL. Points are unique per (asin, observed_at); duplicate
// observations are ignored.
type priceHistoryRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPriceHistoryRepo builds a PostgreSQL price history repository.
func NewPriceHistoryRepo(db *sqlx.DB, timeout time.Duration) persistence.PriceHistoryRepo {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &priceHistoryRepo{db: db, timeout: timeout}
}

func (r *priceHistoryRepo) GetRecent(ctx context.Context, asin string, horizon time.Duration) ([]catalog.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var points []catalog.PricePoint
	err := r.db.SelectContext(ctx, &points, `
		SELECT asin, price_rupees, list_price_rupees, observed_at
		FROM price_points
		WHERE asin = $1 AND observed_at >= $2
		ORDER BY observed_at DESC`,
		asin, time.Now().Add(-horizon))
	if err != nil {
		return nil, fmt.Errorf("recent prices for %s: %w", asin, err)
	}
	return points, nil
}

func (r *priceHistoryRepo) Append(ctx context.Context, point catalog.PricePoint) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_points (asin, price_rupees, list_price_rupees, observed_at)
		VALUES ($1, $2, $3, $4)`,
		point.ASIN, point.PriceRupees, point.ListPriceRupees, point.ObservedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil // same observation twice is not an error
		}
		return fmt.Errorf("append price point for %s: %w", point.ASIN, err)
	}
	return nil
}
