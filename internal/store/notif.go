package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NotifRepo stores per-user admin notification settings: whether the
// admin wants activity notifications about a given user. Users without
// a row default to enabled.
type NotifRepo interface {
	Enabled(ctx context.Context, id int64) (bool, error)
	Set(ctx context.Context, id int64, enabled bool) error
	SetAll(ctx context.Context, enabled bool) error
}

type notifRepo struct {
	db *sqlx.DB
}

func (r *notifRepo) Enabled(ctx context.Context, id int64) (bool, error) {
	var enabled bool
	err := r.db.GetContext(ctx, &enabled,
		`SELECT enabled FROM admin_notif_settings WHERE user_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("notif setting for %d: %w", id, err)
	}
	return enabled, nil
}

func (r *notifRepo) Set(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_notif_settings (user_id, enabled) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET enabled = excluded.enabled`,
		id, enabled)
	if err != nil {
		return fmt.Errorf("set notif for %d: %w", id, err)
	}
	return nil
}

func (r *notifRepo) SetAll(ctx context.Context, enabled bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set all notifs: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE admin_notif_settings SET enabled = ?`, enabled); err != nil {
		return fmt.Errorf("set all notifs: %w", err)
	}
	// Seed rows for users that never had an explicit setting.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO admin_notif_settings (user_id, enabled)
		 SELECT user_id, ? FROM users`, enabled); err != nil {
		return fmt.Errorf("set all notifs: %w", err)
	}
	return tx.Commit()
}
