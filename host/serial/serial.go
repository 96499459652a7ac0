package serial

import (
	"io"
)

// Port represents a serial port interface. Implementations are the
// native tarm/serial port and in-memory fakes used by tests.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `yaml:"device"`

	// Baud rate; USB CDC ignores it
	Baud int `yaml:"baud"`

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int `yaml:"read_timeout_ms"`
}

// DefaultConfig returns the bench console defaults for device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}
