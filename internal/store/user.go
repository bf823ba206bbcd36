package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// User is a persisted user profile. correct + wrong == total holds on
// every row; the streak invariants are enforced inside UpdateStats.
type User struct {
	ID              int64          `db:"user_id"`
	Username        string         `db:"username"`
	FirstName       string         `db:"first_name"`
	CustomName      sql.NullString `db:"custom_name"`
	TotalQuestions  int            `db:"total_questions"`
	CorrectAnswers  int            `db:"correct_answers"`
	WrongAnswers    int            `db:"wrong_answers"`
	CurrentStreak   int            `db:"current_streak"`
	BestStreak      int            `db:"best_streak"`
	StartDate       time.Time      `db:"start_date"`
	LastActivity    time.Time      `db:"last_activity"`
	ReminderEnabled bool           `db:"reminder_enabled"`
	Whitelisted     bool           `db:"is_whitelisted"`
}

// DisplayName returns the custom name override, falling back to the
// transport-provided first name, then a generic placeholder.
func (u *User) DisplayName() string {
	if u.CustomName.Valid && u.CustomName.String != "" {
		return u.CustomName.String
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "User"
}

// Accuracy returns the lifetime accuracy percentage (0 when no
// questions are answered yet).
func (u *User) Accuracy() float64 {
	if u.TotalQuestions == 0 {
		return 0
	}
	return float64(u.CorrectAnswers) / float64(u.TotalQuestions) * 100
}

// UserRepo manages user profiles.
type UserRepo interface {
	// GetOrCreate fetches the profile for id, creating it on first
	// interaction. Returns created=true when the row is new.
	GetOrCreate(ctx context.Context, id int64, username, firstName string) (u *User, created bool, err error)

	// Get returns the profile for id, or nil if it does not exist.
	Get(ctx context.Context, id int64) (*User, error)

	// UpdateStats applies one answer resolution to the cumulative
	// counters. A correct answer bumps total/correct and the streak
	// (raising best_streak when passed); anything else bumps
	// total/wrong and resets the streak. last_activity is refreshed
	// either way.
	UpdateStats(ctx context.Context, id int64, correct bool, now time.Time) error

	SetCustomName(ctx context.Context, id int64, name string) error
	SetReminderEnabled(ctx context.Context, id int64, enabled bool) error
	SetWhitelisted(ctx context.Context, id int64, whitelisted bool) error

	// WhitelistedIDs returns ids filtered by whitelist membership.
	WhitelistedIDs(ctx context.Context, whitelisted bool) ([]int64, error)

	// ActiveSinceIDs returns ids of users active at or after t.
	ActiveSinceIDs(ctx context.Context, t time.Time) ([]int64, error)

	// Remindable returns whitelisted, opted-in profiles.
	Remindable(ctx context.Context) ([]User, error)

	// Leaderboard returns the top n users with at least one answered
	// question, by correct answers then best streak.
	Leaderboard(ctx context.Context, n int) ([]User, error)
}

type userRepo struct {
	db *sqlx.DB
}

func (r *userRepo) GetOrCreate(ctx context.Context, id int64, username, firstName string) (*User, bool, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if u != nil {
		return u, false, nil
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, first_name, start_date, last_activity)
		 VALUES (?, ?, ?, ?, ?)`,
		id, username, firstName, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("create user %d: %w", id, err)
	}

	u, err = r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE user_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (r *userRepo) UpdateStats(ctx context.Context, id int64, correct bool, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update stats for %d: %w", id, err)
	}
	defer tx.Rollback()

	if correct {
		_, err = tx.ExecContext(ctx,
			`UPDATE users
			 SET total_questions = total_questions + 1,
			     correct_answers = correct_answers + 1,
			     current_streak  = current_streak + 1,
			     last_activity   = ?
			 WHERE user_id = ?`,
			now.UTC(), id)
		if err == nil {
			_, err = tx.ExecContext(ctx,
				`UPDATE users SET best_streak = current_streak
				 WHERE user_id = ? AND current_streak > best_streak`,
				id)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE users
			 SET total_questions = total_questions + 1,
			     wrong_answers   = wrong_answers + 1,
			     current_streak  = 0,
			     last_activity   = ?
			 WHERE user_id = ?`,
			now.UTC(), id)
	}
	if err != nil {
		return fmt.Errorf("update stats for %d: %w", id, err)
	}
	return tx.Commit()
}

func (r *userRepo) SetCustomName(ctx context.Context, id int64, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET custom_name = ? WHERE user_id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("set custom name for %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) SetReminderEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET reminder_enabled = ? WHERE user_id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("set reminder flag for %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) SetWhitelisted(ctx context.Context, id int64, whitelisted bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET is_whitelisted = ? WHERE user_id = ?`, whitelisted, id)
	if err != nil {
		return fmt.Errorf("set whitelist flag for %d: %w", id, err)
	}
	return nil
}

func (r *userRepo) WhitelistedIDs(ctx context.Context, whitelisted bool) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM users WHERE is_whitelisted = ?`, whitelisted)
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	return ids, nil
}

func (r *userRepo) ActiveSinceIDs(ctx context.Context, t time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM users WHERE last_activity >= ?`, t.UTC())
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return ids, nil
}

func (r *userRepo) Remindable(ctx context.Context) ([]User, error) {
	var users []User
	err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users WHERE reminder_enabled = 1 AND is_whitelisted = 1`)
	if err != nil {
		return nil, fmt.Errorf("list remindable users: %w", err)
	}
	return users, nil
}

func (r *userRepo) Leaderboard(ctx context.Context, n int) ([]User, error) {
	var users []User
	err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users WHERE total_questions > 0
		 ORDER BY correct_answers DESC, best_streak DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return users, nil
}
