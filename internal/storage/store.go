// Package storage persists canonical collected items and per-run
// summaries to a SQL backend, picking a driver by config at runtime.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"probevault/internal/config"
)

// ItemRecord is one canonical item as the worker first appended it,
// the row storage persists against its stamp.
type ItemRecord struct {
	Stamp       string
	Kind        string
	Fingerprint uint64
	Payload     any
	FirstSeen   time.Time
}

// RunRecord summarizes one probe Run against the cache's counters at
// the point its Barrier completed.
type RunRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Observed   int
	Filtered   int
	Accepted   int
	Failed     int
	Hits       uint64
	Misses     uint64
	Collisions uint64
}

type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveItem(ctx context.Context, item ItemRecord) error
	SaveRun(ctx context.Context, run RunRecord) error
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// encodeJSON marshals value for storage in a payload_json column. The
// error is returned rather than swallowed: a payload that can't
// round-trip through JSON (e.g. a future item kind with an
// unmarshalable field) must fail the save, not persist an empty or
// truncated row a later read would silently misinterpret.
func encodeJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}
