//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// criticalSection stands in for interrupt masking on host builds so that
// goroutines exercising the driver see the same exclusion.
var criticalSection sync.Mutex

// disableInterrupts enters the critical section. Sections must not nest.
func disableInterrupts() State {
	criticalSection.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state State) {
	criticalSection.Unlock()
}
