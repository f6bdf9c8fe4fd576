// Package journal keeps a SQLite record of prediction calls.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"predictd/internal/common/fsutil"
	"predictd/pkg/types"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// Store is a prediction journal backed by a single SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Store, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS predictions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  service TEXT NOT NULL,
  instances INTEGER NOT NULL DEFAULT 0,
  status INTEGER NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT '',
  created_unix INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS predictions_service ON predictions(service);
`)
	return err
}

// Record stores e. Missing ID and timestamp are filled in.
func (s *Store) Record(ctx context.Context, e types.JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedUnix == 0 {
		e.CreatedUnix = s.now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO predictions(id, service, instances, status, duration_ms, error, created_unix)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, e.ID, e.Service, e.Instances, e.Status, e.DurationMS, e.Error, e.CreatedUnix)
	return err
}

// Recent returns up to limit entries, newest first. service filters by
// service id when non-empty. limit <= 0 means the default of 50.
func (s *Store) Recent(ctx context.Context, service string, limit int) ([]types.JournalEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	q := `SELECT id, service, instances, status, duration_ms, error, created_unix FROM predictions`
	args := []any{}
	if service != "" {
		q += ` WHERE service=?`
		args = append(args, service)
	}
	q += ` ORDER BY seq DESC LIMIT ?;`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.JournalEntry{}
	for rows.Next() {
		var e types.JournalEntry
		if err := rows.Scan(&e.ID, &e.Service, &e.Instances, &e.Status, &e.DurationMS, &e.Error, &e.CreatedUnix); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
