package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:probevault.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collected_items (
			stamp TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			fingerprint INTEGER NOT NULL,
			payload_json TEXT NOT NULL,
			first_seen TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collected_items_fingerprint ON collected_items(fingerprint)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			observed INTEGER NOT NULL,
			filtered INTEGER NOT NULL,
			accepted INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			hits INTEGER NOT NULL,
			misses INTEGER NOT NULL,
			collisions INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveItem(ctx context.Context, item ItemRecord) error {
	if s.db == nil {
		return nil
	}
	payload, err := encodeJSON(item.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collected_items (stamp, kind, fingerprint, payload_json, first_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(stamp) DO NOTHING`,
		item.Stamp,
		item.Kind,
		int64(item.Fingerprint),
		payload,
		item.FirstSeen.UTC(),
	)
	return err
}

func (s *sqliteStore) SaveRun(ctx context.Context, run RunRecord) error {
	if s.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, observed, filtered, accepted, failed, hits, misses, collisions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Observed,
		run.Filtered,
		run.Accepted,
		run.Failed,
		run.Hits,
		run.Misses,
		run.Collisions,
	)
	return err
}
