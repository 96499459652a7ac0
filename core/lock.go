package core

import "sync/atomic"

// BusLock is a non-blocking exclusive-use gate for the shared bus.
// There is no owner tracking: Release must only be called by the holder.
type BusLock struct {
	held atomic.Uint32
}

// Acquire takes the lock if it is free. It returns false immediately when
// the bus is already held and never spins or retries.
func (l *BusLock) Acquire() bool {
	return l.held.CompareAndSwap(0, 1)
}

// Release frees the lock unconditionally
func (l *BusLock) Release() {
	l.held.Store(0)
}

// Held reports whether the lock is currently taken
func (l *BusLock) Held() bool {
	return l.held.Load() != 0
}
