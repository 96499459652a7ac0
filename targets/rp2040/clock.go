//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"sharedspi/core"
)

// TIMER block, 1 MHz free-running counter
const timerBase = 0x40054000

var timerRawLow = (*volatile.Register32)(unsafe.Pointer(uintptr(timerBase + 0x0C)))

// hardwareTicks is the low word of the counter, the core tick base
func hardwareTicks() uint32 {
	return timerRawLow.Get()
}

// syncCoreTime advances the tick count seen by TickBudget waits and the
// event ring
func syncCoreTime() {
	core.SetTime(hardwareTicks())
}
