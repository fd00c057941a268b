package icache

import (
	"errors"
	"sync/atomic"
)

// ErrIndexFull is returned by the dedup index when a construction-time
// size cap (indexCapacity, 0 = unbounded) would be exceeded by a new
// bucket. Production caches run unbounded, since an item cache is
// meant to grow for the life of one probe run; the cap exists only so
// tests can exercise the worker's fatal-error path deterministically,
// without needing to actually exhaust memory.
var ErrIndexFull = errors.New("icache: dedup index capacity exceeded")

// bucket is the ordered sequence of canonical items sharing one
// fingerprint. Length is almost always 1; collisions grow it.
type bucket struct {
	items []Item
}

// dedupIndex is the fingerprint -> bucket map. It is touched only by
// the worker goroutine, so it needs no lock of its own.
type dedupIndex struct {
	buckets  map[uint64]*bucket
	capacity int // 0 = unbounded

	// Counters are atomic even though only the worker ever mutates
	// them, so Cache.Stats can be polled from another goroutine
	// without racing the worker.
	hits       atomic.Uint64
	misses     atomic.Uint64
	collisions atomic.Uint64
	indexSize  atomic.Int64
}

func newDedupIndex(capacity int) *dedupIndex {
	return &dedupIndex{
		buckets:  make(map[uint64]*bucket),
		capacity: capacity,
	}
}

// lookup returns the bucket for fid, if any.
func (d *dedupIndex) lookup(fid uint64) (*bucket, bool) {
	b, ok := d.buckets[fid]
	return b, ok
}

// insertNew creates a single-element bucket for a true miss. It
// returns ErrIndexFull if the configured capacity would be exceeded.
func (d *dedupIndex) insertNew(fid uint64, item Item) error {
	if d.capacity > 0 && len(d.buckets) >= d.capacity {
		return ErrIndexFull
	}
	d.buckets[fid] = &bucket{items: []Item{item}}
	d.misses.Add(1)
	d.indexSize.Add(1)
	return nil
}

// extend appends a colliding-but-unequal item to an existing bucket.
func (d *dedupIndex) extend(b *bucket, item Item) {
	b.items = append(b.items, item)
	d.collisions.Add(1)
}

// recordHit counts a true duplicate.
func (d *dedupIndex) recordHit() {
	d.hits.Add(1)
}

// size returns the number of distinct fingerprints currently indexed.
// Backed by an atomic counter, not len(d.buckets), so it can be read
// from Cache.Stats concurrently with the worker mutating the map.
func (d *dedupIndex) size() int {
	return int(d.indexSize.Load())
}

// releaseAll walks every bucket once, handing each canonical item to
// visit. Go's GC reclaims the memory regardless; the hook exists so a
// caller can still observe every canonical item exactly once at
// teardown (e.g. to flush final state to storage).
func (d *dedupIndex) releaseAll(visit func(Item)) {
	if visit == nil {
		d.buckets = nil
		return
	}
	for _, b := range d.buckets {
		for _, item := range b.items {
			visit(item)
		}
	}
	d.buckets = nil
}
