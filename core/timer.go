package core

import "sync/atomic"

// TimerFreq is the tick rate of the system time base (1MHz on RP2040)
const TimerFreq = 1000000

var systemTicks uint32

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

// SetTime sets the current system time. Targets call this from their main
// loop with the hardware timer value; tests use it to advance time.
func SetTime(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}
