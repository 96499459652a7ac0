package core

import (
	"errors"
	"testing"
)

func TestTransceiveLoopback(t *testing.T) {
	m := newMockPeripheral()
	bus := NewBus(BusConfig{Peripheral: m})

	tx := []byte{0xA5, 0x5A, 0x3C}
	rx := make([]byte, 3)
	if err := bus.Transceive(tx, rx, 3); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}

	for i := range tx {
		if rx[i] != tx[i] {
			t.Errorf("rx[%d] = 0x%02X, want 0x%02X", i, rx[i], tx[i])
		}
	}
}

func TestTransceiveFillsWithFF(t *testing.T) {
	m := newMockPeripheral()
	bus := NewBus(BusConfig{Peripheral: m})

	rx := make([]byte, 4)
	if err := bus.Transceive(nil, rx, 4); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}

	for i, w := range m.payloads() {
		if w != FillWord {
			t.Errorf("word %d = 0x%X, want fill 0xFF", i, w)
		}
	}
	if len(m.writes) != 4 {
		t.Errorf("Expected 4 writes, got %d", len(m.writes))
	}
}

func TestTransceiveDiscardsWithoutRx(t *testing.T) {
	m := newMockPeripheral()
	bus := NewBus(BusConfig{Peripheral: m})

	if err := bus.Transceive([]byte{1, 2}, nil, 2); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}
	if m.rxPolls != 2 {
		t.Errorf("Received words must still be drained, rx polls = %d", m.rxPolls)
	}
}

func TestTransceiveTagsLastWord(t *testing.T) {
	m := newMockPeripheral()
	bus := NewBus(BusConfig{Peripheral: m})

	if err := bus.Transceive([]byte{1, 2, 3}, nil, 3); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}

	for i, w := range m.writes {
		tagged := w&LastTransfer != 0
		if tagged != (i == len(m.writes)-1) {
			t.Errorf("word %d: LastTransfer=%v", i, tagged)
		}
	}
}

func TestTransceiveZeroLength(t *testing.T) {
	m := newMockPeripheral()
	bus := NewBus(BusConfig{Peripheral: m})

	if err := bus.Transceive(nil, nil, 0); err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}
	if len(m.writes) != 0 || m.txPolls != 0 {
		t.Error("Zero length transfer touched the peripheral")
	}
}

func TestTransceiveTxTimeoutBudget(t *testing.T) {
	m := newMockPeripheral()
	m.stuckTx = true
	bus := NewBus(BusConfig{Peripheral: m})

	err := bus.Transceive([]byte{1, 2, 3}, nil, 3)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected timeout, got %v", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) || te.Stage != StageTxReady || te.Step != 0 {
		t.Errorf("Unexpected timeout detail: %v", err)
	}
	if m.txPolls != DefaultPollBudget {
		t.Errorf("Expected exactly %d polls, got %d", DefaultPollBudget, m.txPolls)
	}
	if len(m.writes) != 0 {
		t.Error("Nothing should be written after a tx-ready timeout")
	}
	if bus.Timeouts() != 1 {
		t.Errorf("Timeout counter = %d, want 1", bus.Timeouts())
	}
}

func TestTransceiveRxTimeoutAborts(t *testing.T) {
	m := newMockPeripheral()
	m.stuckRx = true
	bus := NewBus(BusConfig{Peripheral: m, Wait: IterationBudget(50)})

	err := bus.Transceive([]byte{1, 2, 3}, make([]byte, 3), 3)

	var te *TimeoutError
	if !errors.As(err, &te) || te.Stage != StageRxReady || te.Step != 0 {
		t.Fatalf("Expected rx-ready timeout at word 0, got %v", err)
	}
	if len(m.writes) != 1 {
		t.Errorf("Remaining words must be abandoned, %d written", len(m.writes))
	}
	if m.rxPolls != 50 {
		t.Errorf("Expected 50 rx polls, got %d", m.rxPolls)
	}
	if err.Error() != "spi timeout waiting for rx-ready at word 0" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestTransceive16(t *testing.T) {
	m := newMockPeripheral()
	m.wide = true
	bus := NewBus(BusConfig{Peripheral: m})
	dev := NewDecodedDevice(0)

	if err := bus.Init(dev, WordWidth16); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	bus.SetupDevice(dev, 0, 1000000)

	tx := []uint16{0x1234, 0xABCD}
	rx := make([]uint16, 2)
	if err := bus.Transceive16(tx, rx, 2); err != nil {
		t.Fatalf("Transceive16 failed: %v", err)
	}
	if rx[0] != 0x1234 || rx[1] != 0xABCD {
		t.Errorf("rx = %04X, want %04X", rx, tx)
	}
}

func TestTransceive16FillWord(t *testing.T) {
	m := newMockPeripheral()
	bus := NewBus(BusConfig{Peripheral: m})

	if err := bus.Transceive16(nil, nil, 2); err != nil {
		t.Fatalf("Transceive16 failed: %v", err)
	}
	for i, w := range m.payloads() {
		if w != FillWord {
			t.Errorf("word %d = 0x%X, want 0xFF", i, w)
		}
	}
}

func TestTickBudget(t *testing.T) {
	SetTime(1000)
	defer SetTime(0)

	calls := 0
	ok := TickBudget{Ticks: 100}.Wait(func() bool {
		calls++
		SetTime(GetTime() + 10)
		return false
	})
	if ok {
		t.Error("Wait should expire")
	}
	if calls != 10 {
		t.Errorf("Expected 10 polls before the deadline, got %d", calls)
	}

	ok = TickBudget{Ticks: 100}.Wait(func() bool { return true })
	if !ok {
		t.Error("Wait should succeed when ready")
	}
}
