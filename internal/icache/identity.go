package icache

import (
	"fmt"
	"os"
	"sync/atomic"
)

// pid is captured once; embedding the OS process ID in every stamp
// keeps stamps unique across separate processes writing to the same
// downstream consumer.
var pid = os.Getpid()

// nextStamp is a process-global monotonic counter, shared by every
// Cache built in this process on purpose, so stamps remain unique in
// the output even when a process constructs several caches
// sequentially. atomic.Uint32.Add is lock-free on every platform Go
// supports.
var nextStamp atomic.Uint32

// mintStamp returns the next unique ID: "1" + zero-padded 5-digit PID
// + decimal counter, with no padding on the counter. After 2^32 minted
// stamps the counter wraps; that's considered unreachable in practice
// for a single process's lifetime.
func mintStamp() string {
	n := nextStamp.Add(1)
	return fmt.Sprintf("1%05d%d", pid, n)
}
