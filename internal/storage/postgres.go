package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/probevault?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS collected_items (
			stamp TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			fingerprint BIGINT NOT NULL,
			payload_json JSONB NOT NULL,
			first_seen TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collected_items_fingerprint ON collected_items(fingerprint)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			observed INTEGER NOT NULL,
			filtered INTEGER NOT NULL,
			accepted INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			hits BIGINT NOT NULL,
			misses BIGINT NOT NULL,
			collisions BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) SaveItem(ctx context.Context, item ItemRecord) error {
	if s.db == nil {
		return nil
	}
	payload, err := encodeJSON(item.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collected_items (stamp, kind, fingerprint, payload_json, first_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stamp) DO NOTHING`,
		item.Stamp,
		item.Kind,
		int64(item.Fingerprint),
		payload,
		item.FirstSeen.UTC(),
	)
	return err
}

func (s *postgresStore) SaveRun(ctx context.Context, run RunRecord) error {
	if s.db == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, observed, filtered, accepted, failed, hits, misses, collisions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
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
