// Package sqlite stores entries in a single SQLite database.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/storage"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id               TEXT PRIMARY KEY,
    external_id      TEXT NOT NULL DEFAULT '',
    project          TEXT NOT NULL DEFAULT '',
    task             TEXT,
    description      TEXT,
    tags_json        TEXT NOT NULL DEFAULT '[]',
    start_at         INTEGER NOT NULL,
    end_at           INTEGER,
    duration_seconds INTEGER,
    state            TEXT NOT NULL DEFAULT '',
    source           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS entries_start_at ON entries (start_at);
`

const columns = `id, external_id, project, task, description, tags_json, start_at, end_at, duration_seconds, state, source`

// Store is a storage.Store backed by SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the database at path and creates the schema if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadRange returns the entries whose start falls on a day in [from, to].
func (s *Store) LoadRange(from, to time.Time) ([]model.Entry, error) {
	lo := timecalc.StartOfDay(from)
	hi := timecalc.StartOfDay(to).AddDate(0, 0, 1)
	rows, err := s.sqlDB.Query(
		`SELECT `+columns+` FROM entries WHERE start_at >= ? AND start_at < ? ORDER BY start_at, rowid`,
		lo.UnixMilli(), hi.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("load range: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("load range: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load range: %w", err)
	}
	return entries, nil
}

// FindActiveEntry returns the latest running entry started within the last
// week.
func (s *Store) FindActiveEntry(now time.Time) (*model.Entry, error) {
	entries, err := s.LoadRange(now.AddDate(0, 0, -6), now)
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].IsRunning() {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// FindEntry returns the entry with id. The range is ignored; the lookup is
// by primary key.
func (s *Store) FindEntry(id string, _, _ time.Time) (model.Entry, error) {
	row := s.sqlDB.QueryRow(`SELECT `+columns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return model.Entry{}, fmt.Errorf("find entry: %w", err)
	}
	return e, nil
}

// UpdateEntry upserts e by id.
func (s *Store) UpdateEntry(e model.Entry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	if e.Tags == nil {
		tags = []byte("[]")
	}

	var endAt sql.NullInt64
	if e.End != nil {
		endAt = sql.NullInt64{Int64: e.End.UnixMilli(), Valid: true}
	}
	var duration sql.NullInt64
	if e.DurationSeconds != nil {
		duration = sql.NullInt64{Int64: *e.DurationSeconds, Valid: true}
	}

	_, err = s.sqlDB.Exec(
		`INSERT INTO entries (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    external_id = excluded.external_id,
		    project = excluded.project,
		    task = excluded.task,
		    description = excluded.description,
		    tags_json = excluded.tags_json,
		    start_at = excluded.start_at,
		    end_at = excluded.end_at,
		    duration_seconds = excluded.duration_seconds,
		    state = excluded.state,
		    source = excluded.source`,
		e.ID, e.ExternalID, e.Project, nullString(e.Task), nullString(e.Description), string(tags),
		e.Start.UnixMilli(), endAt, duration, string(e.State), e.Source,
	)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEntry removes e by id.
func (s *Store) DeleteEntry(e model.Entry) error {
	if _, err := s.sqlDB.Exec(`DELETE FROM entries WHERE id = ?`, e.ID); err != nil {
		return fmt.Errorf("delete entry %s: %w", e.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (model.Entry, error) {
	var (
		e        model.Entry
		task     sql.NullString
		desc     sql.NullString
		tags     string
		startAt  int64
		endAt    sql.NullInt64
		duration sql.NullInt64
		state    string
	)
	if err := row.Scan(&e.ID, &e.ExternalID, &e.Project, &task, &desc, &tags, &startAt, &endAt, &duration, &state, &e.Source); err != nil {
		return model.Entry{}, err
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return model.Entry{}, fmt.Errorf("decode tags of %s: %w", e.ID, err)
	}
	if task.Valid {
		e.Task = &task.String
	}
	if desc.Valid {
		e.Description = &desc.String
	}
	e.Start = unixMillisToTime(startAt)
	if endAt.Valid {
		end := unixMillisToTime(endAt.Int64)
		e.End = &end
	}
	if duration.Valid {
		e.DurationSeconds = &duration.Int64
	}
	e.State = model.State(state)
	return e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func unixMillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
