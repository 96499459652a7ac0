//go:build rp2040

package main

import (
	"machine"

	"sharedspi/core"
)

// PL022 register bits
const (
	sspCR0DSSMask = 0x0F
	sspCR0SPO     = 1 << 6
	sspCR0SPH     = 1 << 7
	sspCR0SCRPos  = 8

	sspCR1SSE = 1 << 1

	sspSRTFE = 1 << 0 // Transmit FIFO empty
	sspSRTNF = 1 << 1 // Transmit FIFO not full
	sspSRRNE = 1 << 2 // Receive FIFO not empty
	sspSRBSY = 1 << 4

	sspMaxPrescale = 254
	sspMaxDivisor  = sspMaxPrescale * 256
)

// spiBusPins is one routing of an SSP controller to GPIO pins
type spiBusPins struct {
	spi  *machine.SPI
	sck  machine.Pin
	sdo  machine.Pin
	sdi  machine.Pin
	name string
}

// rp2040SPIBuses lists the usable pin routings by name
var rp2040SPIBuses = []spiBusPins{
	{spi: machine.SPI0, sck: machine.GPIO2, sdo: machine.GPIO3, sdi: machine.GPIO0, name: "spi0a"},
	{spi: machine.SPI0, sck: machine.GPIO6, sdo: machine.GPIO7, sdi: machine.GPIO4, name: "spi0b"},
	{spi: machine.SPI0, sck: machine.GPIO18, sdo: machine.GPIO19, sdi: machine.GPIO16, name: "spi0c"},
	{spi: machine.SPI0, sck: machine.GPIO22, sdo: machine.GPIO23, sdi: machine.GPIO20, name: "spi0d"},
	{spi: machine.SPI1, sck: machine.GPIO10, sdo: machine.GPIO11, sdi: machine.GPIO8, name: "spi1a"},
	{spi: machine.SPI1, sck: machine.GPIO14, sdo: machine.GPIO15, sdi: machine.GPIO12, name: "spi1b"},
	{spi: machine.SPI1, sck: machine.GPIO26, sdo: machine.GPIO27, sdi: machine.GPIO24, name: "spi1c"},
}

func lookupSPIBus(name string) (spiBusPins, bool) {
	for _, b := range rp2040SPIBuses {
		if b.name == name {
			return b, true
		}
	}
	return spiBusPins{}, false
}

// SSPPeripheral drives one PL022 SSP controller in Motorola SPI master
// mode through its registers. Pin routing is done once by machine.SPI.
type SSPPeripheral struct {
	pins spiBusPins
}

var (
	_ core.Peripheral = (*SSPPeripheral)(nil)
	_ core.PinMuxer   = (*SSPPeripheral)(nil)
)

func NewSSPPeripheral(pins spiBusPins) *SSPPeripheral {
	return &SSPPeripheral{pins: pins}
}

// ConfigureBusPins resets the controller and hands the pins to it
func (s *SSPPeripheral) ConfigureBusPins() error {
	return s.pins.spi.Configure(machine.SPIConfig{
		Frequency: 1000000,
		SCK:       s.pins.sck,
		SDO:       s.pins.sdo,
		SDI:       s.pins.sdi,
	})
}

func (s *SSPPeripheral) Reset() {
	bus := s.pins.spi.Bus
	bus.SSPCR1.Set(0)
	bus.SSPIMSC.Set(0)
	bus.SSPDMACR.Set(0)
	s.drain()
}

func (s *SSPPeripheral) Configure(cfg core.BusConfiguration, dev *core.Device) {
	bus := s.pins.spi.Bus
	bus.SSPCR1.ClearBits(sspCR1SSE)

	prescale, scr := sspClock(cfg.BaudDivisor)
	bus.SSPCPSR.Set(prescale)

	cr0 := uint32(dev.Width()-1)&sspCR0DSSMask | scr<<sspCR0SCRPos
	if cfg.ClockPolarity != 0 {
		cr0 |= sspCR0SPO
	}
	if cfg.ClockPhase == 0 {
		cr0 |= sspCR0SPH
	}
	bus.SSPCR0.Set(cr0)

	s.drain()
	bus.SSPCR1.SetBits(sspCR1SSE)
}

// sspClock splits a core clock divisor into the even prescaler and the
// serial clock rate field: divisor = prescale * (1 + scr).
func sspClock(divisor uint32) (prescale, scr uint32) {
	if divisor > sspMaxDivisor {
		divisor = sspMaxDivisor
	}
	prescale = 2
	for prescale < sspMaxPrescale && prescale*256 < divisor {
		prescale += 2
	}
	scr = divisor / prescale
	if scr > 0 {
		scr--
	}
	if scr > 255 {
		scr = 255
	}
	return prescale, scr
}

func (s *SSPPeripheral) drain() {
	bus := s.pins.spi.Bus
	for bus.SSPSR.Get()&sspSRRNE != 0 {
		bus.SSPDR.Get()
	}
}

func (s *SSPPeripheral) TxReady() bool {
	return s.pins.spi.Bus.SSPSR.Get()&sspSRTNF != 0
}

func (s *SSPPeripheral) TxEmpty() bool {
	sr := s.pins.spi.Bus.SSPSR.Get()
	return sr&sspSRTFE != 0 && sr&sspSRBSY == 0
}

func (s *SSPPeripheral) RxReady() bool {
	return s.pins.spi.Bus.SSPSR.Get()&sspSRRNE != 0
}

func (s *SSPPeripheral) WriteWord(word uint32) {
	s.pins.spi.Bus.SSPDR.Set(word & 0xFFFF)
}

func (s *SSPPeripheral) ReadWord() uint32 {
	return s.pins.spi.Bus.SSPDR.Get() & 0xFFFF
}

func (s *SSPPeripheral) Supports16Bit() bool { return true }

func (s *SSPPeripheral) MaxDivisor() uint32 { return sspMaxDivisor }
