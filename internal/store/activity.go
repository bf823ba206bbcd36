package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// DateFormat is the calendar-date key format for activity rows.
const DateFormat = "2006-01-02"

// ActivityRepo tracks a per-day answered-question counter per user.
type ActivityRepo interface {
	// Bump increments the counter for (id, day of t), creating the
	// row on first activity of the day.
	Bump(ctx context.Context, id int64, t time.Time) error

	// Range returns date -> count for the last `days` days.
	Range(ctx context.Context, id int64, days int, now time.Time) (map[string]int, error)
}

type activityRepo struct {
	db *sqlx.DB
}

func (r *activityRepo) Bump(ctx context.Context, id int64, t time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_calendar (user_id, activity_date, questions_count)
		 VALUES (?, ?, 1)
		 ON CONFLICT(user_id, activity_date)
		 DO UPDATE SET questions_count = questions_count + 1`,
		id, t.Format(DateFormat))
	if err != nil {
		return fmt.Errorf("bump activity for %d: %w", id, err)
	}
	return nil
}

func (r *activityRepo) Range(ctx context.Context, id int64, days int, now time.Time) (map[string]int, error) {
	start := now.AddDate(0, 0, -days).Format(DateFormat)
	rows := []struct {
		Date  string `db:"activity_date"`
		Count int    `db:"questions_count"`
	}{}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT activity_date, questions_count FROM activity_calendar
		 WHERE user_id = ? AND activity_date >= ?
		 ORDER BY activity_date`,
		id, start)
	if err != nil {
		return nil, fmt.Errorf("activity range for %d: %w", id, err)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Date] = row.Count
	}
	return out, nil
}
