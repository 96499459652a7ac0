//go:build rp2040

package pio

// PIO SPI backend using tinygo-org/pio. One state machine shifts the
// data; clock polarity is produced by inverting the SCK pad output.

import (
	"device/rp"
	"machine"
	"runtime/volatile"
	"unsafe"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"sharedspi/core"
)

// Both programs take four PIO cycles per bit
const spiCyclesPerBit = 4

// buildSPICPHA0Program shifts data out on the idle edge and samples on
// the leading edge. Autopull stalls the first instruction with SCK low.
func buildSPICPHA0Program() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 1}
	return []uint16{
		// .wrap_target
		asm.Out(rp2pio.OutDestPins, 1).Side(0).Delay(1).Encode(), // 0: out pins, 1 side 0 [1]
		asm.In(rp2pio.InSrcPins, 1).Side(1).Delay(1).Encode(),    // 1: in pins, 1 side 1 [1]
		// .wrap
	}
}

// buildSPICPHA1Program changes data on the leading edge and samples on
// the trailing edge.
func buildSPICPHA1Program() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 1}
	return []uint16{
		// .wrap_target
		asm.Out(rp2pio.OutDestX, 1).Side(0).Encode(),                          // 0: out x, 1 side 0
		asm.Mov(rp2pio.MovDestPins, rp2pio.MovSrcX).Side(1).Delay(1).Encode(), // 1: mov pins, x side 1 [1]
		asm.In(rp2pio.InSrcPins, 1).Side(0).Encode(),                          // 2: in pins, 1 side 0
		// .wrap
	}
}

// SPIPeripheral implements core.Peripheral on a PIO state machine
type SPIPeripheral struct {
	pio *rp2pio.PIO
	sm  rp2pio.StateMachine

	sck machine.Pin
	sdo machine.Pin
	sdi machine.Pin

	offsets [2]uint8 // Indexed by CPHA
	lengths [2]uint8
	bits    uint8
}

var _ core.Peripheral = (*SPIPeripheral)(nil)

// NewSPIPeripheral claims a state machine and loads both SPI programs
// pioNum: 0 for PIO0, 1 for PIO1
func NewSPIPeripheral(pioNum, smNum uint8, sck, sdo, sdi machine.Pin) (*SPIPeripheral, error) {
	pioHW := rp2pio.PIO0
	if pioNum != 0 {
		pioHW = rp2pio.PIO1
	}

	p := &SPIPeripheral{
		pio:  pioHW,
		sm:   pioHW.StateMachine(smNum),
		sck:  sck,
		sdo:  sdo,
		sdi:  sdi,
		bits: 8,
	}
	p.sm.TryClaim()

	for cpha, prog := range [2][]uint16{buildSPICPHA0Program(), buildSPICPHA1Program()} {
		offset, err := p.pio.AddProgram(prog, -1)
		if err != nil {
			return nil, err
		}
		p.offsets[cpha] = offset
		p.lengths[cpha] = uint8(len(prog))
	}
	return p, nil
}

// Reset routes the pins to the PIO block, drives SCK and SDO low and
// bypasses the input synchronizer on SDI.
func (p *SPIPeripheral) Reset() {
	p.sm.SetEnabled(false)

	pincfg := machine.PinConfig{Mode: p.pio.PinMode()}
	p.sck.Configure(pincfg)
	p.sdo.Configure(pincfg)
	p.sdi.Configure(pincfg)
	p.pio.HW().INPUT_SYNC_BYPASS.SetBits(1 << p.sdi)

	p.setClockInverted(false)
	p.sm.ClearFIFOs()
}

func (p *SPIPeripheral) Configure(cfg core.BusConfiguration, dev *core.Device) {
	p.sm.SetEnabled(false)

	cpha := cfg.ClockPhase ^ 1
	offset := p.offsets[cpha]
	p.bits = uint8(dev.Width())

	smcfg := rp2pio.DefaultStateMachineConfig()
	smcfg.SetSidesetParams(1, false, false)
	smcfg.SetSidesetPins(p.sck)
	smcfg.SetOutPins(p.sdo, 1)
	smcfg.SetInPins(p.sdi)
	smcfg.SetOutShift(false, true, uint16(p.bits))
	smcfg.SetInShift(false, true, uint16(p.bits))
	smcfg.SetWrap(offset, offset+p.lengths[cpha]-1)

	whole, frac := pioClockDivider(cfg.BaudDivisor)
	smcfg.SetClkDivIntFrac(whole, frac)

	p.sm.Init(offset, smcfg)
	p.sm.SetPindirsConsecutive(p.sck, 1, true)
	p.sm.SetPindirsConsecutive(p.sdo, 1, true)
	p.sm.SetPindirsConsecutive(p.sdi, 1, false)
	p.sm.SetPinsConsecutive(p.sck, 1, false)
	p.sm.SetPinsConsecutive(p.sdo, 1, false)

	p.setClockInverted(cfg.ClockPolarity != 0)
	p.sm.SetEnabled(true)
}

// pioClockDivider converts a core clock divisor per bit into the state
// machine's 16.8 fixed-point divider.
func pioClockDivider(divisor uint32) (uint16, uint8) {
	whole := divisor / spiCyclesPerBit
	frac := (divisor % spiCyclesPerBit) * (256 / spiCyclesPerBit)
	if whole == 0 {
		return 1, 0
	}
	if whole > 0xFFFF {
		return 0xFFFF, 0
	}
	return uint16(whole), uint8(frac)
}

// setClockInverted sets the OUTOVER field of the SCK pad control
func (p *SPIPeripheral) setClockInverted(invert bool) {
	var outover uint32
	if invert {
		outover = 1
	}
	ctrlReg := (*volatile.Register32)(unsafe.Pointer(uintptr(unsafe.Pointer(&rp.IO_BANK0.GPIO0_CTRL)) + uintptr(p.sck)*8))
	ctrlReg.ReplaceBits(outover, 0x3, 8)
}

func (p *SPIPeripheral) TxReady() bool { return !p.sm.IsTxFIFOFull() }
func (p *SPIPeripheral) TxEmpty() bool { return p.sm.IsTxFIFOEmpty() }
func (p *SPIPeripheral) RxReady() bool { return !p.sm.IsRxFIFOEmpty() }

// WriteWord left-aligns the word for the MSB-first output shifter
func (p *SPIPeripheral) WriteWord(word uint32) {
	mask := uint32(1)<<p.bits - 1
	p.sm.TxPut((word & mask) << (32 - p.bits))
}

func (p *SPIPeripheral) ReadWord() uint32 {
	return p.sm.RxGet() & (uint32(1)<<p.bits - 1)
}

func (p *SPIPeripheral) Supports16Bit() bool { return true }

func (p *SPIPeripheral) MaxDivisor() uint32 { return 0xFFFF * spiCyclesPerBit }
