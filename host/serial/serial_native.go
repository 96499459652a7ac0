package serial

import (
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// tarmPort is a Port on a tty through tarm/serial
type tarmPort struct {
	*serial.Port
	device string
}

// Open opens the tty named by cfg. A zero baud falls back to the bench
// console default; USB CDC devices ignore it anyway.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errors.New("serial config is nil")
	}
	if cfg.Device == "" {
		return nil, errors.New("serial device not set")
	}

	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultConfig(cfg.Device).Baud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s at %d baud", cfg.Device, baud)
	}
	return &tarmPort{Port: port, device: cfg.Device}, nil
}

func (p *tarmPort) Close() error {
	return errors.Wrapf(p.Port.Close(), "closing %s", p.device)
}

// Flush discards input received but not yet read
func (p *tarmPort) Flush() error {
	return errors.Wrapf(p.Port.Flush(), "flushing %s", p.device)
}
