//go:build rp2040

package main

import (
	"machine"
	"time"

	"sharedspi/core"
)

// BitBangPeripheral shifts words over plain GPIO pins. A write completes
// the whole word synchronously, so the transmitter is always ready and
// the received word is available straight after WriteWord.
type BitBangPeripheral struct {
	sclk machine.Pin
	mosi machine.Pin
	miso machine.Pin

	coreClockHz uint32
	halfPeriod  time.Duration
	cpol        bool
	cpha        bool
	bits        uint8

	rx      uint32
	pending bool
}

var _ core.Peripheral = (*BitBangPeripheral)(nil)

func NewBitBangPeripheral(sclk, mosi, miso machine.Pin, coreClockHz uint32) *BitBangPeripheral {
	return &BitBangPeripheral{
		sclk:        sclk,
		mosi:        mosi,
		miso:        miso,
		coreClockHz: coreClockHz,
		bits:        8,
	}
}

func (p *BitBangPeripheral) Reset() {
	p.sclk.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.mosi.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.miso.Configure(machine.PinConfig{Mode: machine.PinInput})
	p.sclk.Low()
	p.mosi.Low()
	p.pending = false
}

func (p *BitBangPeripheral) Configure(cfg core.BusConfiguration, dev *core.Device) {
	p.cpol = cfg.ClockPolarity != 0
	p.cpha = cfg.ClockPhase == 0
	p.bits = uint8(dev.Width())

	// Half of one bit time at the requested divisor
	p.halfPeriod = 0
	if p.coreClockHz > 0 {
		p.halfPeriod = time.Duration(uint64(cfg.BaudDivisor) * 500000000 / uint64(p.coreClockHz))
	}

	p.sclk.Set(p.cpol)
	p.pending = false
}

func (p *BitBangPeripheral) TxReady() bool { return true }
func (p *BitBangPeripheral) TxEmpty() bool { return true }
func (p *BitBangPeripheral) RxReady() bool { return p.pending }

func (p *BitBangPeripheral) WriteWord(word uint32) {
	var rx uint32
	for bit := int(p.bits) - 1; bit >= 0; bit-- {
		p.mosi.Set(word&(1<<bit) != 0)

		if !p.cpha {
			p.delay()
			if p.miso.Get() {
				rx |= 1 << bit
			}
		}

		p.toggleClock()
		p.delay()

		if p.cpha && p.miso.Get() {
			rx |= 1 << bit
		}

		p.toggleClock()
		p.delay()
	}
	p.rx = rx
	p.pending = true
}

func (p *BitBangPeripheral) ReadWord() uint32 {
	p.pending = false
	return p.rx
}

func (p *BitBangPeripheral) Supports16Bit() bool { return true }

func (p *BitBangPeripheral) MaxDivisor() uint32 { return 1 << 20 }

func (p *BitBangPeripheral) toggleClock() {
	if p.sclk.Get() {
		p.sclk.Low()
	} else {
		p.sclk.High()
	}
}

func (p *BitBangPeripheral) delay() {
	if p.halfPeriod >= time.Microsecond {
		time.Sleep(p.halfPeriod)
		return
	}
	// At 125MHz each loop iteration is roughly 8ns
	for i := 0; i < int(p.halfPeriod)/8; i++ {
		_ = i
	}
}
