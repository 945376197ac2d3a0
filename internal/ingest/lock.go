package ingest

import "sync/atomic"

// RunLock provides non-blocking lock semantics using atomic operations.
// A pipeline holds it for the duration of a run.
type RunLock struct {
	state atomic.Int32 // 0 = idle, 1 = running
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *RunLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *RunLock) Release() {
	l.state.Store(0)
}

// Running reports whether a run currently holds the lock.
func (l *RunLock) Running() bool {
	return l.state.Load() == 1
}
