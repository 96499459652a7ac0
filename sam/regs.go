// Package sam provides register backends for the SPI-capable peripherals
// of Atmel SAM3X and SAM4E parts: the native SPI controller, a USART in
// SPI master mode and the SAM3X DMA controller.
//
// Backends access hardware through Registers so the register sequences
// can be checked on the host.
package sam

import "errors"

// Registers is one peripheral register block addressed by byte offset
type Registers interface {
	Load(offset uintptr) uint32
	Store(offset uintptr, value uint32)

	// Base is the bus address of offset zero, used for DMA descriptors
	Base() uintptr
}

// Peripheral base addresses
const (
	SPI0Base        = 0x40008000 // SAM3X
	DMACBase        = 0x400C4000 // SAM3X
	SAM3XPMCBase    = 0x400E0600
	SAM3XPIOABase   = 0x400E0E00
	SAM4EUSART0Base = 0x400A0000
	SAM4EUSART1Base = 0x400A4000
	SAM4EPMCBase    = 0x400E0400
	SAM4EPIOABase   = 0x400E0E00
)

// Peripheral identifiers for the power management controller
const (
	SAM3XIDSPI0   = 24
	SAM3XIDDMAC   = 39
	SAM4EIDUSART0 = 14
	SAM4EIDUSART1 = 15
)

var (
	ErrBadChannel = errors.New("sam: DMA channel out of range")
	ErrDMACount   = errors.New("sam: DMA transfer too long")
)

const (
	pmcPCER0 = 0x10
	pmcPCER1 = 0x100
)

// PeripheralClock enables one peripheral clock in the PMC. It implements
// core.ClockGate.
type PeripheralClock struct {
	PMC Registers
	ID  uint8
}

func (c PeripheralClock) EnablePeripheralClock() error {
	if c.ID < 32 {
		c.PMC.Store(pmcPCER0, 1<<c.ID)
	} else {
		c.PMC.Store(pmcPCER1, 1<<(c.ID-32))
	}
	return nil
}

const (
	pioPDR    = 0x04
	pioABSR   = 0x70 // SAM3X; ABCDSR1 on SAM4E
	pioABCDS2 = 0x74 // SAM4E only
)

// PIOPins hands a set of PIO lines to a peripheral function. It
// implements core.PinMuxer.
//
// On SAM3X Function selects peripheral A (0) or B (1). With Extended set
// the SAM4E ABCDSR pair is used and Function may be 0-3 (A-D).
type PIOPins struct {
	PIO      Registers
	Mask     uint32
	Function uint8
	Extended bool
}

func (p PIOPins) ConfigureBusPins() error {
	sel := p.PIO.Load(pioABSR)
	if p.Function&1 != 0 {
		sel |= p.Mask
	} else {
		sel &^= p.Mask
	}
	p.PIO.Store(pioABSR, sel)

	if p.Extended {
		sel2 := p.PIO.Load(pioABCDS2)
		if p.Function&2 != 0 {
			sel2 |= p.Mask
		} else {
			sel2 &^= p.Mask
		}
		p.PIO.Store(pioABCDS2, sel2)
	}

	p.PIO.Store(pioPDR, p.Mask)
	return nil
}
