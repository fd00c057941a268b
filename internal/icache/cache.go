// Package icache implements an item-deduplicating, asynchronous
// collection cache: a bounded producer/consumer queue, a
// content-addressed dedup index, identifier stamping, and a
// barrier/flush primitive, all drained by a single background worker.
package icache

import (
	"log/slog"
	"sync/atomic"
)

// Stats is a point-in-time snapshot of the cache's internal counters,
// exposed read-only for internal/metrics to publish.
type Stats struct {
	QueueDepth          int
	QueueCapacity       int
	IndexSize           int
	Hits                uint64
	Misses              uint64
	Collisions          uint64
	StampsIssued        uint64
	IndexInsertFailures uint64
	WorkerDead          bool
}

type workerStats struct {
	stampsIssued        atomic.Uint64
	indexInsertFailures atomic.Uint64
}

// Cache is the probe item cache: one instance per probe run, created
// once, with its worker goroutine started at construction time.
type Cache struct {
	queue   *workQueue
	index   *dedupIndex
	stopped chan struct{}

	workerDead atomic.Bool
	lastErr    atomic.Pointer[error]

	logger *slog.Logger
	stats  workerStats
}

// Options configures a Cache at construction time.
type Options struct {
	// QueueCapacity is the ring buffer's fixed capacity. Must be >= 1;
	// defaults to 256.
	QueueCapacity int
	// IndexCapacity caps the number of distinct fingerprints the dedup
	// index will accept before reporting a fatal insert failure. Zero
	// means unbounded, which is the production default: the index
	// never evicts, so it grows for the life of one probe run.
	IndexCapacity int
	Logger        *slog.Logger
}

// New constructs a Cache and starts its worker goroutine. Launching a
// goroutine can't fail, so neither can New.
func New(opts Options) *Cache {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 256
	}
	c := &Cache{
		queue:   newWorkQueue(opts.QueueCapacity),
		index:   newDedupIndex(opts.IndexCapacity),
		stopped: make(chan struct{}),
		logger:  opts.Logger,
	}
	go c.runWorker()
	return c
}

// Submit enqueues item for dedup/stamping and eventual append to dest.
// Submission is synchronous from the producer's perspective: Submit
// blocks only for back-pressure (queue full), never for dedup work
// itself, which runs on the worker.
func (c *Cache) Submit(dest CollectedObject, item Item) error {
	if c == nil || dest == nil || item == nil {
		return ErrInvalidArgument
	}
	if c.workerDead.Load() {
		return ErrWorkerDead
	}
	select {
	case <-c.stopped:
		return ErrSubmitAfterFree
	default:
	}
	return c.queue.enqueue(workEntry{kind: entryInsert, dest: dest, item: item})
}

// Barrier blocks until every Insert this caller had already submitted
// has been fully processed. It does not order against submissions from
// other producers, only the caller's own.
func (c *Cache) Barrier() error {
	if c.workerDead.Load() {
		return ErrWorkerDead
	}
	select {
	case <-c.stopped:
		return ErrSubmitAfterFree
	default:
	}
	done := make(chan struct{})
	if err := c.queue.enqueue(workEntry{kind: entryBarrier, done: done}); err != nil {
		return err
	}
	<-done
	if c.workerDead.Load() {
		return ErrWorkerDead
	}
	return nil
}

// Free shuts the cache down. If the worker is still alive, Free drains
// every entry already queued by enqueuing a shutdown sentinel and
// waiting for the worker to reach it, in FIFO order behind whatever
// was already queued. If the worker had already died from a fatal
// error, Free skips straight to releasing the index — any entries
// still sitting in the queue at that point have already been drained
// and their waiters woken by the worker's own abandon path.
//
// release, if non-nil, is called once for every canonical item still
// held by the dedup index. Once Free has returned, Submit and Barrier
// fail with ErrSubmitAfterFree (or ErrWorkerDead if the worker had
// died). A Submit racing Free can land behind the shutdown sentinel
// and is then never processed, so callers must quiesce producers first.
func (c *Cache) Free(release func(Item)) {
	select {
	case <-c.stopped:
		// Worker already exited (fatal error or a prior Free); nothing
		// left to drain synchronously.
	default:
		done := make(chan struct{})
		if err := c.queue.enqueue(workEntry{kind: entryShutdown, done: done}); err == nil {
			<-c.stopped
		}
	}
	c.index.releaseAll(release)
}

// Err returns the error that caused the worker to stop, or nil if it
// is still running (or hasn't failed yet).
func (c *Cache) Err() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Stats returns a snapshot of the cache's internal counters. Safe to
// call concurrently with Submit/Barrier/Free; IndexSize/Hits/Misses/
// Collisions are read without the queue lock, so under concurrent
// load they reflect a recent-but-not-instantaneous worker state —
// acceptable for a metrics snapshot, not for correctness.
func (c *Cache) Stats() Stats {
	return Stats{
		QueueDepth:          c.queue.depth(),
		QueueCapacity:       c.queue.capacity,
		IndexSize:           c.index.size(),
		Hits:                c.index.hits.Load(),
		Misses:              c.index.misses.Load(),
		Collisions:          c.index.collisions.Load(),
		StampsIssued:        c.stats.stampsIssued.Load(),
		IndexInsertFailures: c.stats.indexInsertFailures.Load(),
		WorkerDead:          c.workerDead.Load(),
	}
}
