// Package ingest feeds externally-observed items into a running
// icache.Cache. Each source (file tail, Kafka, REST) decodes its own
// wire format into a probeitem.Item and hands it to a shared Sink,
// which runs it through the configured filter before calling
// icache.Collect directly — the cache's own worker queue already
// provides the back-pressure and buffering an ingest-side relay
// channel would otherwise duplicate.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"probevault/internal/icache"
)

// Sink is the shared submission path every ingest source funnels
// through.
type Sink struct {
	Cache  *icache.Cache
	Dest   icache.CollectedObject
	Filter icache.Filter
	Logger *slog.Logger
}

// Submit runs item through the filter and, if accepted, the cache.
func (s *Sink) Submit(item icache.Item) icache.CollectResult {
	res := icache.Collect(s.Cache, s.Dest, item, s.Filter)
	if res == icache.CollectFailed && s.Logger != nil {
		s.Logger.Error("ingest submit failed", "err", s.Cache.Err())
	}
	return res
}

// BackoffSleep pauses for d, or returns false early if ctx is done.
func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
