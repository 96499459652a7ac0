// Package hostspi runs the core bus driver on a Linux SBC. The SPI port
// comes from periph's spidev driver and chip selects are plain GPIO lines,
// so the port's own select line is suppressed.
package hostspi

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"sharedspi/core"
)

// Opener returns a fresh handle on the SPI port. A periph port accepts a
// single Connect, so every reconfiguration reopens it.
type Opener func() (spi.PortCloser, error)

// Peripheral implements core.Peripheral on a periph SPI port. Each word
// is one full-duplex Tx, complete by the time WriteWord returns. A failed
// Tx leaves RxReady false and so surfaces as an rx-ready timeout; Err
// holds the cause.
type Peripheral struct {
	open        Opener
	coreClockHz uint32
	logger      *zap.SugaredLogger

	port  spi.PortCloser
	conn  spi.Conn
	bytes int

	rx      uint32
	pending bool
	err     error
}

var _ core.Peripheral = (*Peripheral)(nil)

// Open initialises periph's host drivers and returns a Peripheral on the
// named port, e.g. "SPI0.0" or "/dev/spidev0.0".
func Open(name string, coreClockHz uint32, logger *zap.SugaredLogger) (*Peripheral, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing periph host drivers")
	}
	// Fail early on a missing port rather than at the first transfer
	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening SPI port %q", name)
	}
	if err := port.Close(); err != nil {
		return nil, errors.Wrapf(err, "closing SPI port %q", name)
	}
	return New(func() (spi.PortCloser, error) { return spireg.Open(name) }, coreClockHz, logger), nil
}

// New returns a Peripheral using open to reach the port
func New(open Opener, coreClockHz uint32, logger *zap.SugaredLogger) *Peripheral {
	return &Peripheral{
		open:        open,
		coreClockHz: coreClockHz,
		logger:      logger,
		bytes:       1,
	}
}

// Reset drops any open connection
func (p *Peripheral) Reset() {
	if err := p.Close(); err != nil {
		p.logger.Warnw("closing SPI port", "error", err)
	}
	p.pending = false
	p.err = nil
}

// Configure reopens the port with the clock rate, mode and word size of
// cfg. The rate is the core clock divided by the baud divisor.
func (p *Peripheral) Configure(cfg core.BusConfiguration, dev *core.Device) {
	p.pending = false
	p.err = nil
	if err := p.Close(); err != nil {
		p.logger.Warnw("closing SPI port", "error", err)
	}

	p.bytes = 1
	if dev.Width() == core.WordWidth16 {
		p.bytes = 2
	}

	divisor := cfg.BaudDivisor
	if divisor == 0 {
		divisor = 1
	}
	freq := physic.Frequency(p.coreClockHz/divisor) * physic.Hertz
	mode := spi.Mode(cfg.ClockPolarity<<1|(cfg.ClockPhase^1)) | spi.NoCS

	port, err := p.open()
	if err != nil {
		p.fail(errors.Wrap(err, "opening SPI port"))
		return
	}
	conn, err := port.Connect(freq, mode, 8)
	if err != nil {
		p.fail(multierr.Combine(errors.Wrapf(err, "connecting at %s mode %d", freq, mode), port.Close()))
		return
	}
	p.port = port
	p.conn = conn
	p.logger.Debugw("SPI port configured", "port", port.String(), "freq", freq.String(), "mode", int(mode&3), "bits", 8*p.bytes)
}

func (p *Peripheral) fail(err error) {
	p.err = err
	p.logger.Errorw("SPI port", "error", err)
}

// Err returns the last port error, cleared by Configure and Reset
func (p *Peripheral) Err() error { return p.err }

func (p *Peripheral) TxReady() bool { return p.conn != nil }
func (p *Peripheral) TxEmpty() bool { return true }
func (p *Peripheral) RxReady() bool { return p.pending }

// WriteWord shifts one word MSB first
func (p *Peripheral) WriteWord(word uint32) {
	var out, in [2]byte
	if p.bytes == 2 {
		out[0], out[1] = byte(word>>8), byte(word)
	} else {
		out[0] = byte(word)
	}

	if err := p.conn.Tx(out[:p.bytes], in[:p.bytes]); err != nil {
		p.fail(errors.Wrap(err, "spi tx"))
		return
	}

	if p.bytes == 2 {
		p.rx = uint32(in[0])<<8 | uint32(in[1])
	} else {
		p.rx = uint32(in[0])
	}
	p.pending = true
}

func (p *Peripheral) ReadWord() uint32 {
	p.pending = false
	return p.rx
}

func (p *Peripheral) Supports16Bit() bool { return true }

// MaxDivisor keeps the slowest rate above zero
func (p *Peripheral) MaxDivisor() uint32 {
	if p.coreClockHz == 0 {
		return 1
	}
	return p.coreClockHz
}

// Close releases the port
func (p *Peripheral) Close() error {
	p.conn = nil
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}
