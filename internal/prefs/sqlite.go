package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Compile-time assertion that SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)

const ddlPrefs = `
CREATE TABLE IF NOT EXISTS read_aloud_prefs (
    reader_id             TEXT    PRIMARY KEY,
    speed                 REAL    NOT NULL DEFAULT 1.0,
    auto_advance          INTEGER NOT NULL DEFAULT 1,
    sound_effects_enabled INTEGER NOT NULL DEFAULT 1,
    updated_at            TEXT    NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteStore is a SQLite-backed implementation of [Store], for deployments
// that need preferences to survive restarts without a full database server.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the preferences database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("prefs sqlite: open %q: %w", path, err)
	}

	// modernc sqlite serialises writes per connection; a single connection
	// avoids SQLITE_BUSY under concurrent Puts.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs sqlite: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, ddlPrefs); err != nil {
		db.Close()
		return nil, fmt.Errorf("prefs sqlite: migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements [Store.Get].
func (s *SQLiteStore) Get(ctx context.Context, readerID string) (Prefs, error) {
	var (
		p            Prefs
		autoAdvance  int
		soundEffects int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT speed, auto_advance, sound_effects_enabled
		FROM read_aloud_prefs
		WHERE reader_id = ?`, readerID).
		Scan(&p.Speed, &autoAdvance, &soundEffects)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("prefs sqlite: get %q: %w", readerID, err)
	}

	p.AutoAdvance = autoAdvance != 0
	p.SoundEffectsEnabled = soundEffects != 0
	return p, nil
}

// Put implements [Store.Put].
func (s *SQLiteStore) Put(ctx context.Context, readerID string, p Prefs) error {
	if readerID == "" {
		return fmt.Errorf("prefs: reader ID must not be empty")
	}
	if err := Validate(p); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO read_aloud_prefs (reader_id, speed, auto_advance, sound_effects_enabled, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT (reader_id) DO UPDATE
		SET speed = excluded.speed,
		    auto_advance = excluded.auto_advance,
		    sound_effects_enabled = excluded.sound_effects_enabled,
		    updated_at = excluded.updated_at`,
		readerID, p.Speed, boolToInt(p.AutoAdvance), boolToInt(p.SoundEffectsEnabled))
	if err != nil {
		return fmt.Errorf("prefs sqlite: put %q: %w", readerID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
