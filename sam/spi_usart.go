package sam

import "sharedspi/core"

// USART register offsets
const (
	usCR   = 0x00
	usMR   = 0x04
	usIDR  = 0x0C
	usCSR  = 0x14
	usRHR  = 0x18
	usTHR  = 0x1C
	usBRGR = 0x20
)

// US_CR bits
const (
	usRSTRX  = 1 << 2
	usRSTTX  = 1 << 3
	usRXEN   = 1 << 4
	usRXDIS  = 1 << 5
	usTXEN   = 1 << 6
	usTXDIS  = 1 << 7
	usRSTSTA = 1 << 8
)

// US_MR fields in SPI mode
const (
	usModeSPIMaster = 0x0E
	usUSCLKSMCK     = 0 << 4
	usCHRL8         = 3 << 6
	usCPHA          = 1 << 8
	usCPOL          = 1 << 16
	usCLKO          = 1 << 18
)

// US_CSR bits
const (
	usRXRDY   = 1 << 0
	usTXRDY   = 1 << 1
	usTXEMPTY = 1 << 9
)

const usBRGRMax = 0xFFFF

// USARTSPI drives a SAM4E USART in SPI master mode. It shifts 8-bit
// words only and has no chip-select decoder; every device needs a pin.
//
// Unlike the SPI controller the USART phase bit is not inverted: CPHA is
// set for modes 1 and 3.
type USARTSPI struct {
	regs        Registers
	coreClockHz uint32
}

var _ core.Peripheral = (*USARTSPI)(nil)

func NewUSARTSPI(regs Registers, coreClockHz uint32) *USARTSPI {
	return &USARTSPI{regs: regs, coreClockHz: coreClockHz}
}

const usBaseMode = usModeSPIMaster | usUSCLKSMCK | usCHRL8

// Reset masks interrupts, stops both directions and parks the clock at
// 1MHz until the first device is set up.
func (u *USARTSPI) Reset() {
	u.regs.Store(usIDR, ^uint32(0))
	u.regs.Store(usCR, usRSTRX|usRSTTX|usRXDIS|usTXDIS)
	u.regs.Store(usMR, usBaseMode)
	u.regs.Store(usBRGR, u.coreClockHz/1000000)
	u.regs.Store(usCR, usRSTRX|usRSTTX|usRXDIS|usTXDIS|usRSTSTA)
}

func (u *USARTSPI) Configure(cfg core.BusConfiguration, _ *core.Device) {
	u.regs.Store(usCR, usRSTRX|usRSTTX)

	mr := uint32(usBaseMode | usCLKO)
	if cfg.ClockPolarity != 0 {
		mr |= usCPOL
	}
	if cfg.ClockPhase == 0 {
		mr |= usCPHA
	}
	u.regs.Store(usMR, mr)
	u.regs.Store(usBRGR, cfg.BaudDivisor)

	u.regs.Store(usCR, usRXEN|usTXEN)
}

func (u *USARTSPI) TxReady() bool { return u.regs.Load(usCSR)&usTXRDY != 0 }
func (u *USARTSPI) TxEmpty() bool { return u.regs.Load(usCSR)&usTXEMPTY != 0 }
func (u *USARTSPI) RxReady() bool { return u.regs.Load(usCSR)&usRXRDY != 0 }

func (u *USARTSPI) WriteWord(word uint32) { u.regs.Store(usTHR, word&0xFF) }
func (u *USARTSPI) ReadWord() uint32      { return u.regs.Load(usRHR) & 0xFF }

func (u *USARTSPI) Supports16Bit() bool { return false }
func (u *USARTSPI) MaxDivisor() uint32  { return usBRGRMax }
