package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// flagForcedLogout suppresses profile refetches between an explicit
// logout (or expired session) and the next successful login.
const flagForcedLogout = "forced_logout"

// SQLiteStore implements the Store interface using a local SQLite
// database, so watermarks and flags survive restarts.
type SQLiteStore struct {
	db       *sqlx.DB
	notifier *notifier
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, notifier: newNotifier()}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Watermark returns the last-seen timestamp for a team.
func (s *SQLiteStore) Watermark(teamID string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.Get(&ts, "SELECT last_seen FROM watermarks WHERE team_id = ?", teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading watermark for team %s: %w", teamID, err)
	}
	return ts, true, nil
}

// Watermarks returns every recorded watermark.
func (s *SQLiteStore) Watermarks() (map[string]time.Time, error) {
	rows, err := s.db.Queryx("SELECT team_id, last_seen FROM watermarks")
	if err != nil {
		return nil, fmt.Errorf("querying watermarks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var teamID string
		var ts time.Time
		if err := rows.Scan(&teamID, &ts); err != nil {
			return nil, fmt.Errorf("scanning watermark row: %w", err)
		}
		out[teamID] = ts
	}
	return out, rows.Err()
}

// SetWatermark advances a team's watermark. The guard lives in the
// upsert itself, so concurrent writers cannot move it backward.
func (s *SQLiteStore) SetWatermark(teamID string, ts time.Time) error {
	res, err := s.db.Exec(`
		INSERT INTO watermarks (team_id, last_seen) VALUES (?, ?)
		ON CONFLICT(team_id) DO UPDATE SET last_seen = excluded.last_seen
		WHERE excluded.last_seen > watermarks.last_seen`,
		teamID, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting watermark for team %s: %w", teamID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking watermark update for team %s: %w", teamID, err)
	}
	if affected > 0 {
		s.notifier.notify(Change{TeamID: teamID})
	}
	return nil
}

// ForcedLogout reports whether the forced-logout flag is set.
func (s *SQLiteStore) ForcedLogout() (bool, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM flags WHERE name = ?", flagForcedLogout)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading forced-logout flag: %w", err)
	}
	return value == "true", nil
}

// SetForcedLogout sets or clears the forced-logout flag.
func (s *SQLiteStore) SetForcedLogout(v bool) error {
	value := "false"
	if v {
		value = "true"
	}
	_, err := s.db.Exec(`
		INSERT INTO flags (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		flagForcedLogout, value,
	)
	if err != nil {
		return fmt.Errorf("setting forced-logout flag: %w", err)
	}
	s.notifier.notify(Change{})
	return nil
}

// Subscribe registers for change notifications.
func (s *SQLiteStore) Subscribe() (<-chan Change, func()) {
	return s.notifier.subscribe()
}
