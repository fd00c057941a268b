package icache

// Filter is a boolean predicate a caller can run against an item
// before it's ever handed to Submit. It's always evaluated on the
// caller's goroutine, never inside the worker.
type Filter interface {
	Reject(item Item) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(item Item) bool

func (f FilterFunc) Reject(item Item) bool { return f(item) }

// CollectResult is Collect's three-way outcome.
type CollectResult int

const (
	CollectAccepted CollectResult = 0
	CollectFiltered CollectResult = 1
	CollectFailed   CollectResult = -1
)

// Collect is a thin boundary between a probe's filter predicates and
// the cache's Submit. If
// filters reject the item it is dropped (the caller is expected to
// have no further reference to it; Go's GC reclaims it) and
// CollectFiltered is returned. Otherwise the item is submitted;
// CollectFailed is returned if Submit fails, CollectAccepted
// otherwise. Filter evaluation happens on the caller's goroutine, not
// the worker's.
func Collect(c *Cache, dest CollectedObject, item Item, filter Filter) CollectResult {
	if filter != nil && filter.Reject(item) {
		return CollectFiltered
	}
	if err := c.Submit(dest, item); err != nil {
		return CollectFailed
	}
	return CollectAccepted
}
