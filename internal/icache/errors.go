package icache

import "errors"

// Sentinel errors a caller can match with errors.Is.
var (
	// ErrInvalidArgument covers a nil cache, nil destination or nil
	// item passed to Submit.
	ErrInvalidArgument = errors.New("icache: invalid argument")
	// ErrWorkerDead is returned once the worker has latched a fatal
	// failure (destination append failed, or the dedup index refused
	// an insert) and stopped consuming entries. Submitting after this
	// point fails fast instead of silently queuing behind a worker
	// that will never drain it.
	ErrWorkerDead = errors.New("icache: worker is no longer running")
	// ErrSubmitAfterFree is returned by Submit/Barrier once the worker
	// has exited after Free's shutdown sentinel, i.e. once Free has
	// returned. Rather than leave what happens after Free undefined,
	// callers get a concrete error instead of a hang or a panic.
	ErrSubmitAfterFree = errors.New("icache: cache has been freed")
)
