package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// BusEvent captures a bus event for post-mortem analysis
type BusEvent struct {
	EventType uint8  // Event type code
	Device    uint8  // Device id (chip-select id)
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtAcquire  = 1 // Bus acquired
	EvtBusy     = 2 // Acquire found the bus held
	EvtRelease  = 3 // Bus released
	EvtSetup    = 4 // Device configured (v1=divisor, v2=cpol<<1|ncpha)
	EvtSelect   = 5 // Chip select asserted
	EvtDeselect = 6 // Chip select released
	EvtTimeout  = 7 // Wait expired (v1=stage, v2=step)
	EvtDMAStart = 8 // DMA channel started (v1=channel, v2=count)
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event capture ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]BusEvent
	eventRingHead uint8
	eventsEnabled bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetEventsEnabled enables or disables event capture
func SetEventsEnabled(enabled bool) {
	eventsEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures a bus event in the ring buffer.
// It never blocks and does not allocate, so it is safe in interrupt context.
func RecordEvent(eventType, device uint8, value1, value2 uint32) {
	if !eventsEnabled {
		return
	}
	state := disableInterrupts()
	idx := eventRingHead
	eventRing[idx] = BusEvent{
		EventType: eventType,
		Device:    device,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
	restoreInterrupts(state)
}

// Events returns the captured events, oldest first
func Events() []BusEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	var out []BusEvent
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// DumpEventRing outputs the event ring buffer through the debug writer.
// Call on shutdown or after a timeout, never from a hot path.
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[SPI] === Event Ring Dump ===")
	for _, evt := range Events() {
		var name string
		switch evt.EventType {
		case EvtAcquire:
			name = "ACQUIRE"
		case EvtBusy:
			name = "BUSY!"
		case EvtRelease:
			name = "RELEASE"
		case EvtSetup:
			name = "SETUP"
		case EvtSelect:
			name = "SELECT"
		case EvtDeselect:
			name = "DESELECT"
		case EvtTimeout:
			name = "TIMEOUT!"
		case EvtDMAStart:
			name = "DMA_START"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[SPI] " + name +
			" dev=" + itoa(int(evt.Device)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[SPI] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	state := disableInterrupts()
	for i := range eventRing {
		eventRing[i] = BusEvent{}
	}
	eventRingHead = 0
	restoreInterrupts(state)
}
