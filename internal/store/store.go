// Package store is the persistence gateway: SQLite-backed repositories
// for user profiles, answer history, the activity calendar, and weak
// spots. Every call is complete-or-fail; callers do not retry.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the database handle and provides access to repositories.
type Store struct {
	db *sqlx.DB
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Users returns the user profile repository.
func (s *Store) Users() UserRepo { return &userRepo{db: s.db} }

// History returns the append-only answer history repository.
func (s *Store) History() HistoryRepo { return &historyRepo{db: s.db} }

// Activity returns the activity calendar repository.
func (s *Store) Activity() ActivityRepo { return &activityRepo{db: s.db} }

// WeakSpots returns the weak spot repository.
func (s *Store) WeakSpots() WeakSpotRepo { return &weakSpotRepo{db: s.db} }

// Notifications returns the admin notification settings repository.
func (s *Store) Notifications() NotifRepo { return &notifRepo{db: s.db} }

// applyPragmas configures SQLite for single-process concurrent use.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id          INTEGER PRIMARY KEY,
	username         TEXT NOT NULL DEFAULT '',
	first_name       TEXT NOT NULL DEFAULT '',
	custom_name      TEXT,
	total_questions  INTEGER NOT NULL DEFAULT 0,
	correct_answers  INTEGER NOT NULL DEFAULT 0,
	wrong_answers    INTEGER NOT NULL DEFAULT 0,
	current_streak   INTEGER NOT NULL DEFAULT 0,
	best_streak      INTEGER NOT NULL DEFAULT 0,
	start_date       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_activity    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	reminder_enabled INTEGER NOT NULL DEFAULT 1,
	is_whitelisted   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS answer_history (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         INTEGER NOT NULL,
	session_id      TEXT NOT NULL DEFAULT '',
	question        TEXT NOT NULL,
	question_kind   TEXT NOT NULL DEFAULT 'standard',
	user_answer     INTEGER NOT NULL,
	correct_answer  INTEGER NOT NULL,
	is_correct      INTEGER NOT NULL,
	response_time   REAL NOT NULL,
	level           INTEGER NOT NULL,
	mode            TEXT NOT NULL DEFAULT 'random',
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS activity_calendar (
	user_id         INTEGER NOT NULL,
	activity_date   TEXT NOT NULL,
	questions_count INTEGER NOT NULL DEFAULT 0,
	UNIQUE(user_id, activity_date)
);

CREATE TABLE IF NOT EXISTS weak_spots (
	user_id     INTEGER NOT NULL,
	number1     INTEGER NOT NULL,
	number2     INTEGER NOT NULL,
	error_count INTEGER NOT NULL DEFAULT 0,
	last_error  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, number1, number2)
);

CREATE TABLE IF NOT EXISTS admin_notif_settings (
	user_id INTEGER PRIMARY KEY,
	enabled INTEGER NOT NULL DEFAULT 1
);
`

// DefaultDBPath resolves the database file path in priority order:
// 1. MULTIQ_DB environment variable
// 2. $XDG_DATA_HOME/multiq/multiq.db
// 3. ~/.local/share/multiq/multiq.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MULTIQ_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "multiq", "multiq.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
