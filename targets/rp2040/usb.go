//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes the USB CDC-ACM console. On RP2040 machine.Serial
// is USB CDC, not UART; descriptors come from the TinyGo runtime.
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBAvailable returns the number of bytes available to read from USB
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from USB
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}

// USBWriteBytes writes multiple bytes to USB
func USBWriteBytes(data []byte) (int, error) {
	return machine.Serial.Write(data)
}
