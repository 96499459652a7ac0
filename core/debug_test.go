package core

import (
	"strings"
	"testing"
)

func TestEventRingTransaction(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	bus := NewBus(BusConfig{Peripheral: newMockPeripheral(), CoreClockHz: 1000000})
	dev := NewDecodedDevice(2)
	if err := bus.Transaction(dev, 0, 1000, func() error { return nil }); err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	want := []uint8{EvtAcquire, EvtSetup, EvtSelect, EvtDeselect, EvtRelease}
	evts := Events()
	if len(evts) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(evts))
	}
	for i, e := range evts {
		if e.EventType != want[i] {
			t.Errorf("event %d = %d, want %d", i, e.EventType, want[i])
		}
	}
	if evts[1].Device != 2 || evts[1].Value1 != 1000 {
		t.Errorf("setup event = %+v", evts[1])
	}
}

func TestEventRingWraps(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	for i := 0; i < EventRingSize+8; i++ {
		RecordEvent(EvtSelect, 0, uint32(i), 0)
	}

	evts := Events()
	if len(evts) != EventRingSize {
		t.Fatalf("Expected %d events, got %d", EventRingSize, len(evts))
	}
	if evts[0].Value1 != 8 || evts[len(evts)-1].Value1 != EventRingSize+7 {
		t.Errorf("ring order wrong: first=%d last=%d", evts[0].Value1, evts[len(evts)-1].Value1)
	}
}

func TestEventsDisabled(t *testing.T) {
	ClearEventRing()
	SetEventsEnabled(false)
	defer SetEventsEnabled(true)

	RecordEvent(EvtAcquire, 0, 0, 0)
	if len(Events()) != 0 {
		t.Error("Events recorded while disabled")
	}
}

func TestDumpEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	RecordEvent(EvtBusy, 3, 0, 0)
	RecordEvent(EvtTimeout, 3, uint32(StageRxReady), 5)
	DumpEventRing()

	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[1], "[SPI] BUSY! dev=3") {
		t.Errorf("unexpected line %q", lines[1])
	}
	if !strings.Contains(lines[2], "TIMEOUT! dev=3") || !strings.HasSuffix(lines[2], "v1=1 v2=5") {
		t.Errorf("unexpected line %q", lines[2])
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var got []string
	SetDebugWriter(func(s string) { got = append(got, s) })
	defer SetDebugWriter(func(string) {})

	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")
	SetDebugEnabled(false)

	if len(got) != 1 || got[0] != "shown" {
		t.Errorf("got %v", got)
	}
}

func TestStringHelpers(t *testing.T) {
	if itoa(-42) != "-42" || utoa(0) != "0" || utoa(4294967295) != "4294967295" {
		t.Error("integer formatting wrong")
	}
	if hexBytes([]byte{0x0A, 0xFF}) != "0a ff" || hexBytes(nil) != "" {
		t.Error("hex formatting wrong")
	}
}
