package sam

import "sharedspi/core"

// SPI controller register offsets
const (
	spiCR   = 0x00
	spiMR   = 0x04
	spiRDR  = 0x08
	spiTDR  = 0x0C
	spiSR   = 0x10
	spiCSR0 = 0x30
)

// SPI_CR bits
const (
	crSPIEN    = 1 << 0
	crSPIDIS   = 1 << 1
	crSWRST    = 1 << 7
	crLASTXFER = 1 << 24
)

// SPI_MR bits
const (
	mrMSTR     = 1 << 0
	mrPS       = 1 << 1
	mrPCSDEC   = 1 << 2
	mrMODFDIS  = 1 << 4
	mrLLB      = 1 << 7
	mrPCSShift = 16
	mrPCSMask  = 0x0F << mrPCSShift
)

// SPI_SR bits
const (
	srRDRF    = 1 << 0
	srTDRE    = 1 << 1
	srOVRES   = 1 << 3
	srTXEMPTY = 1 << 9
)

// SPI_CSRx fields
const (
	csrCPOL      = 1 << 0
	csrNCPHA     = 1 << 1
	csrCSAAT     = 1 << 3
	csrBits8     = 0 << 4
	csrBits16    = 8 << 4
	csrSCBRShift = 8
	csrSCBRMax   = 0xFF
)

// NativeSPI drives the SAM3X SPI controller. Chip selects are decoded
// through the PCS field of the mode register; the controller also feeds
// the DMA controller and shifts 16-bit words natively.
type NativeSPI struct {
	regs Registers
}

var (
	_ core.Peripheral        = (*NativeSPI)(nil)
	_ core.ChipSelectDecoder = (*NativeSPI)(nil)
	_ core.DMAPeripheral     = (*NativeSPI)(nil)
)

func NewNativeSPI(regs Registers) *NativeSPI {
	return &NativeSPI{regs: regs}
}

// modeBits is the fixed part of SPI_MR: master, no mode fault detection,
// fixed select, no decoding, no loopback.
const modeBits = mrMSTR | mrMODFDIS

func (s *NativeSPI) Reset() {
	s.regs.Store(spiCR, crSWRST)
	s.regs.Store(spiMR, modeBits|core.DefaultChipID<<mrPCSShift)
}

// Configure rewrites the chip-select register of dev. The software reset
// clears the mode register too, so master mode is restored afterwards
// with PCS addressing the same CSR slot, the low two bits of the device
// id. Pin-selected devices beyond the decoder range rely on this.
func (s *NativeSPI) Configure(cfg core.BusConfiguration, dev *core.Device) {
	slot := dev.ID & 3
	s.regs.Store(spiCR, crSWRST)
	s.regs.Store(spiMR, modeBits|uint32(pcsCode(slot))<<mrPCSShift)

	csr := uint32(csrBits8)
	if dev.Width() == core.WordWidth16 {
		csr = csrBits16
	}
	csr |= cfg.BaudDivisor << csrSCBRShift
	if cfg.ClockPolarity != 0 {
		csr |= csrCPOL
	}
	if cfg.ClockPhase != 0 {
		csr |= csrNCPHA
	}
	s.regs.Store(spiCSR0+4*uintptr(slot), csr)

	s.regs.Store(spiCR, crSPIEN)
}

// pcsCode is the active-low PCS value that routes transfers through CSR slot
func pcsCode(slot uint8) uint8 {
	return ^(uint8(1) << slot) & core.NoneSelected
}

func (s *NativeSPI) TxReady() bool { return s.regs.Load(spiSR)&srTDRE != 0 }
func (s *NativeSPI) TxEmpty() bool { return s.regs.Load(spiSR)&srTXEMPTY != 0 }
func (s *NativeSPI) RxReady() bool { return s.regs.Load(spiSR)&srRDRF != 0 }

// WriteWord stores into TDR. The LastTransfer tag maps onto TDR.LASTXFER.
func (s *NativeSPI) WriteWord(word uint32) {
	s.regs.Store(spiTDR, word&(0xFFFF|core.LastTransfer))
}

// ReadWord returns RD; the PCS bits of RDR are dropped
func (s *NativeSPI) ReadWord() uint32 {
	return s.regs.Load(spiRDR) & 0xFFFF
}

func (s *NativeSPI) Supports16Bit() bool { return true }
func (s *NativeSPI) MaxDivisor() uint32  { return csrSCBRMax }

func (s *NativeSPI) DecoderRange() uint8 { return 4 }

func (s *NativeSPI) SetPeripheralSelect(value uint8) {
	mr := s.regs.Load(spiMR) &^ mrPCSMask
	s.regs.Store(spiMR, mr|uint32(value&core.NoneSelected)<<mrPCSShift)
}

func (s *NativeSPI) SetLastTransfer() {
	s.regs.Store(spiCR, crLASTXFER)
}

func (s *NativeSPI) TransmitDataAddress() uintptr { return s.regs.Base() + spiTDR }
func (s *NativeSPI) ReceiveDataAddress() uintptr  { return s.regs.Base() + spiRDR }

// ClearOverrun reads SR, which clears OVRES
func (s *NativeSPI) ClearOverrun() {
	_ = s.regs.Load(spiSR)
}

// Disable stops the controller
func (s *NativeSPI) Disable() {
	s.regs.Store(spiCR, crSPIDIS)
}
