package core

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeviceConnTx(t *testing.T) {
	m := newMockPeripheral()
	gpio := NewMockGPIODriver()
	bus := NewBus(BusConfig{Peripheral: m, GPIO: gpio, CoreClockHz: 48000000})
	dev := NewDevice(0, 17)
	conn := bus.Conn(dev, 1, 4000000)

	r := make([]byte, 3)
	if err := conn.Tx([]byte{9, 8, 7}, r); err != nil {
		t.Fatalf("Tx failed: %v", err)
	}
	if !bytes.Equal(r, []byte{9, 8, 7}) {
		t.Errorf("r = %v", r)
	}
	if len(m.configs) != 1 || m.configs[0].BaudDivisor != 12 {
		t.Errorf("Expected one setup with divisor 12, got %+v", m.configs)
	}
	if bus.Held() {
		t.Error("Tx must release the bus")
	}
	if !gpio.pins[17] {
		t.Error("Tx must deselect the device")
	}
}

func TestDeviceConnReadOnly(t *testing.T) {
	m := newMockPeripheral()
	bus := NewBus(BusConfig{Peripheral: m})
	conn := bus.Conn(NewDecodedDevice(0), 0, 1000000)

	r := make([]byte, 2)
	if err := conn.Tx(nil, r); err != nil {
		t.Fatalf("Tx failed: %v", err)
	}
	if !bytes.Equal(r, []byte{0xFF, 0xFF}) {
		t.Errorf("Read-only Tx should clock out fill, got %v", r)
	}

	if err := conn.Tx(nil, nil); err != nil || len(m.configs) != 1 {
		t.Error("Empty Tx must not start a transaction")
	}
}

func TestDeviceConnTransfer(t *testing.T) {
	bus := NewBus(BusConfig{Peripheral: newMockPeripheral()})
	conn := bus.Conn(NewDecodedDevice(0), 0, 1000000)

	b, err := conn.Transfer(0x5A)
	if err != nil || b != 0x5A {
		t.Errorf("Transfer = 0x%02X, %v", b, err)
	}

	bus.Acquire()
	if _, err := conn.Transfer(1); !errors.Is(err, ErrBusBusy) {
		t.Errorf("Expected ErrBusBusy, got %v", err)
	}
}
