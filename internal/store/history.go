package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Question kinds recorded in answer history.
const (
	KindStandard = "standard"
	KindFindX    = "findx"
)

// AnswerRecord is one append-only answer history entry. ResponseTime
// is seconds; for timeouts it equals the configured limit and
// UserAnswer is zero.
type AnswerRecord struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	SessionID     string    `db:"session_id"`
	Question      string    `db:"question"`
	QuestionKind  string    `db:"question_kind"`
	UserAnswer    int       `db:"user_answer"`
	CorrectAnswer int       `db:"correct_answer"`
	IsCorrect     bool      `db:"is_correct"`
	ResponseTime  float64   `db:"response_time"`
	Level         int       `db:"level"`
	Mode          string    `db:"mode"`
	CreatedAt     time.Time `db:"created_at"`
}

// HistoryRepo appends resolved answers. Records are never updated or
// deleted.
type HistoryRepo interface {
	Append(ctx context.Context, rec AnswerRecord) error

	// CountForUser returns the number of history rows for a user.
	CountForUser(ctx context.Context, id int64) (int, error)
}

type historyRepo struct {
	db *sqlx.DB
}

func (r *historyRepo) Append(ctx context.Context, rec AnswerRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO answer_history
		 (user_id, session_id, question, question_kind, user_answer,
		  correct_answer, is_correct, response_time, level, mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.SessionID, rec.Question, rec.QuestionKind, rec.UserAnswer,
		rec.CorrectAnswer, rec.IsCorrect, rec.ResponseTime, rec.Level, rec.Mode, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append answer history: %w", err)
	}
	return nil
}

func (r *historyRepo) CountForUser(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM answer_history WHERE user_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("count answer history: %w", err)
	}
	return n, nil
}
