package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time assertions.
//
// Store and ProgressStore both define a method named Get but with different
// signatures, so one struct cannot implement both. Progress persistence is
// exposed as a sub-type via [PostgresStore.Progress].
var (
	_ Store         = (*PostgresStore)(nil)
	_ ProgressStore = (*PostgresProgressStore)(nil)
)

const ddlStories = `
CREATE TABLE IF NOT EXISTS stories (
    id            TEXT         PRIMARY KEY,
    title         TEXT         NOT NULL,
    author        TEXT         NOT NULL DEFAULT '',
    reading_level TEXT         NOT NULL DEFAULT '',
    voice         TEXT         NOT NULL DEFAULT '',
    tags          TEXT[]       NOT NULL DEFAULT '{}',
    pages         JSONB        NOT NULL DEFAULT '[]',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_stories_reading_level
    ON stories (reading_level);

CREATE INDEX IF NOT EXISTS idx_stories_tags
    ON stories USING GIN (tags);
`

const ddlReadingProgress = `
CREATE TABLE IF NOT EXISTS reading_progress (
    reader_id   TEXT              NOT NULL,
    story_id    TEXT              NOT NULL,
    page_number INTEGER           NOT NULL DEFAULT 1,
    accuracy    DOUBLE PRECISION  NOT NULL DEFAULT 0,
    updated_at  TIMESTAMPTZ       NOT NULL DEFAULT now(),
    PRIMARY KEY (reader_id, story_id)
);

CREATE INDEX IF NOT EXISTS idx_reading_progress_reader
    ON reading_progress (reader_id);
`

// PostgresStore is a PostgreSQL-backed implementation of [Store] and
// [ProgressStore]. Pages are stored as a JSONB document per story; the
// catalogue filters (reading level, tags) are real columns so List stays a
// plain indexed query.
//
// All operations are safe for concurrent use.
type PostgresStore struct {
	pool     *pgxpool.Pool
	progress *PostgresProgressStore
}

// NewPostgresStore connects to the database at dsn and runs [MigrateStories]
// to ensure the required tables exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("story postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("story postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("story postgres: ping: %w", err)
	}

	if err := MigrateStories(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("story postgres: migrate: %w", err)
	}

	return &PostgresStore{
		pool:     pool,
		progress: &PostgresProgressStore{pool: pool},
	}, nil
}

// Progress returns the reading-progress implementation which satisfies
// [ProgressStore].
func (s *PostgresStore) Progress() *PostgresProgressStore { return s.progress }

// MigrateStories creates or ensures the story and reading-progress tables
// exist. It is idempotent and safe to call on every application start.
func MigrateStories(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlStories, ddlReadingProgress} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("story postgres migrate: %w", err)
		}
	}
	return nil
}

// Close releases all connections held by the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Suitable as a readiness check.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Add implements [Store.Add].
func (s *PostgresStore) Add(ctx context.Context, st Story) (Story, error) {
	if st.ID == "" {
		id, err := generateID()
		if err != nil {
			return Story{}, fmt.Errorf("story: generate id: %w", err)
		}
		st.ID = id
	}

	pages, err := json.Marshal(st.Pages)
	if err != nil {
		return Story{}, fmt.Errorf("story postgres: encode pages: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO stories (id, title, author, reading_level, voice, tags, pages)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		st.ID, st.Title, st.Author, st.ReadingLevel, st.Voice, st.Tags, pages)
	if err != nil {
		return Story{}, fmt.Errorf("story postgres: insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Story{}, ErrDuplicateID
	}
	return st, nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (Story, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, author, reading_level, voice, tags, pages
		FROM stories WHERE id = $1`, id)
	st, err := scanStory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Story{}, ErrNotFound
	}
	if err != nil {
		return Story{}, fmt.Errorf("story postgres: get %q: %w", id, err)
	}
	return st, nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]Story, error) {
	query := `
		SELECT id, title, author, reading_level, voice, tags, pages
		FROM stories
		WHERE ($1 = '' OR reading_level = $1)
		  AND (cardinality($2::text[]) = 0 OR tags @> $2)`

	tags := opts.Tags
	if tags == nil {
		tags = []string{}
	}

	rows, err := s.pool.Query(ctx, query, opts.ReadingLevel, tags)
	if err != nil {
		return nil, fmt.Errorf("story postgres: list: %w", err)
	}
	defer rows.Close()

	result := make([]Story, 0)
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("story postgres: list scan: %w", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("story postgres: list rows: %w", err)
	}
	return result, nil
}

// Update implements [Store.Update].
func (s *PostgresStore) Update(ctx context.Context, st Story) error {
	pages, err := json.Marshal(st.Pages)
	if err != nil {
		return fmt.Errorf("story postgres: encode pages: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE stories
		SET title = $2, author = $3, reading_level = $4, voice = $5,
		    tags = $6, pages = $7, updated_at = now()
		WHERE id = $1`,
		st.ID, st.Title, st.Author, st.ReadingLevel, st.Voice, st.Tags, pages)
	if err != nil {
		return fmt.Errorf("story postgres: update %q: %w", st.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove implements [Store.Remove].
func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("story postgres: remove %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkImport implements [Store.BulkImport]. The import runs in a single
// transaction; any failure rolls back the whole batch.
func (s *PostgresStore) BulkImport(ctx context.Context, stories []Story) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("story postgres: begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	count := 0
	for _, st := range stories {
		if st.ID == "" {
			id, err := generateID()
			if err != nil {
				return 0, fmt.Errorf("story: generate id: %w", err)
			}
			st.ID = id
		}
		pages, err := json.Marshal(st.Pages)
		if err != nil {
			return 0, fmt.Errorf("story postgres: encode pages: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO stories (id, title, author, reading_level, voice, tags, pages)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			st.ID, st.Title, st.Author, st.ReadingLevel, st.Voice, st.Tags, pages)
		if err != nil {
			return 0, fmt.Errorf("story postgres: bulk import at index %d (title %q): %w", count, st.Title, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, fmt.Errorf("story postgres: bulk import at index %d (title %q): %w", count, st.Title, ErrDuplicateID)
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("story postgres: commit import: %w", err)
	}
	return count, nil
}

// PostgresProgressStore is the reading-progress half of [PostgresStore].
type PostgresProgressStore struct {
	pool *pgxpool.Pool
}

// Save implements [ProgressStore.Save].
func (s *PostgresProgressStore) Save(ctx context.Context, p Progress) error {
	if p.ReaderID == "" || p.StoryID == "" {
		return fmt.Errorf("story: progress needs reader and story IDs")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reading_progress (reader_id, story_id, page_number, accuracy, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (reader_id, story_id) DO UPDATE
		SET page_number = EXCLUDED.page_number,
		    accuracy = EXCLUDED.accuracy,
		    updated_at = now()`,
		p.ReaderID, p.StoryID, p.PageNumber, p.Accuracy)
	if err != nil {
		return fmt.Errorf("story postgres: save progress: %w", err)
	}
	return nil
}

// Get implements [ProgressStore.Get].
func (s *PostgresProgressStore) Get(ctx context.Context, readerID, storyID string) (Progress, error) {
	var p Progress
	err := s.pool.QueryRow(ctx, `
		SELECT reader_id, story_id, page_number, accuracy, updated_at
		FROM reading_progress
		WHERE reader_id = $1 AND story_id = $2`, readerID, storyID).
		Scan(&p.ReaderID, &p.StoryID, &p.PageNumber, &p.Accuracy, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Progress{}, ErrNoProgress
	}
	if err != nil {
		return Progress{}, fmt.Errorf("story postgres: get progress: %w", err)
	}
	return p, nil
}

// ListForReader implements [ProgressStore.ListForReader].
func (s *PostgresProgressStore) ListForReader(ctx context.Context, readerID string) ([]Progress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reader_id, story_id, page_number, accuracy, updated_at
		FROM reading_progress
		WHERE reader_id = $1`, readerID)
	if err != nil {
		return nil, fmt.Errorf("story postgres: list progress: %w", err)
	}
	defer rows.Close()

	var result []Progress
	for rows.Next() {
		var p Progress
		if err := rows.Scan(&p.ReaderID, &p.StoryID, &p.PageNumber, &p.Accuracy, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("story postgres: list progress scan: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("story postgres: list progress rows: %w", err)
	}
	return result, nil
}

// scanStory decodes one stories row.
func scanStory(row pgx.Row) (Story, error) {
	var (
		st    Story
		pages []byte
	)
	if err := row.Scan(&st.ID, &st.Title, &st.Author, &st.ReadingLevel, &st.Voice, &st.Tags, &pages); err != nil {
		return Story{}, err
	}
	if err := json.Unmarshal(pages, &st.Pages); err != nil {
		return Story{}, fmt.Errorf("decode pages: %w", err)
	}
	return st, nil
}
