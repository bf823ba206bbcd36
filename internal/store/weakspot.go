package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// WeakSpot is a repeatedly-missed operand pair. Count only ever grows.
type WeakSpot struct {
	UserID    int64     `db:"user_id"`
	A         int       `db:"number1"`
	B         int       `db:"number2"`
	Count     int       `db:"error_count"`
	LastError time.Time `db:"last_error"`
}

// WeakSpotRepo upserts and ranks weak spots.
type WeakSpotRepo interface {
	// Upsert increments the error count for (id, a, b) and refreshes
	// the last-error timestamp.
	Upsert(ctx context.Context, id int64, a, b int, now time.Time) error

	// TopN returns up to n spots ordered by error count descending,
	// ties broken by most recent error.
	TopN(ctx context.Context, id int64, n int) ([]WeakSpot, error)
}

type weakSpotRepo struct {
	db *sqlx.DB
}

func (r *weakSpotRepo) Upsert(ctx context.Context, id int64, a, b int, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO weak_spots (user_id, number1, number2, error_count, last_error)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(user_id, number1, number2)
		 DO UPDATE SET error_count = error_count + 1, last_error = excluded.last_error`,
		id, a, b, now.UTC())
	if err != nil {
		return fmt.Errorf("upsert weak spot (%d, %d×%d): %w", id, a, b, err)
	}
	return nil
}

func (r *weakSpotRepo) TopN(ctx context.Context, id int64, n int) ([]WeakSpot, error) {
	var spots []WeakSpot
	err := r.db.SelectContext(ctx, &spots,
		`SELECT * FROM weak_spots WHERE user_id = ?
		 ORDER BY error_count DESC, last_error DESC LIMIT ?`,
		id, n)
	if err != nil {
		return nil, fmt.Errorf("top weak spots for %d: %w", id, err)
	}
	return spots, nil
}
