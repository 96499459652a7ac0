package sam

import "sharedspi/core"

// DMAC global register offsets
const (
	dmacGCFG = 0x000
	dmacEN   = 0x004
	dmacCHER = 0x028
	dmacCHDR = 0x02C
	dmacCHSR = 0x030

	dmacCh0    = 0x03C
	dmacChSize = 0x28
)

// Per-channel register offsets
const (
	chSADDR = 0x00
	chDADDR = 0x04
	chDSCR  = 0x08
	chCTRLA = 0x0C
	chCTRLB = 0x10
	chCFG   = 0x14
)

const (
	dmacChannels   = 6
	dmacEnable     = 1
	dmacArbFixed   = 0
	ctrlaBTSizeMax = 0xFFFF
)

// CTRLB fields
const (
	ctrlbSrcDscr     = 1 << 16
	ctrlbDstDscr     = 1 << 20
	ctrlbFCMem2Per   = 1 << 21
	ctrlbFCPer2Mem   = 2 << 21
	ctrlbSrcIncFixed = 2 << 24
	ctrlbDstIncFixed = 2 << 28
)

// CFG fields
const (
	cfgSrcH2Sel = 1 << 9
	cfgDstH2Sel = 1 << 13
	cfgSOD      = 1 << 16
	cfgFIFOALAP = 0 << 28
	cfgFIFOASAP = 2 << 28
)

// SPI hardware handshake interfaces
const (
	SPITxHandshake = 1
	SPIRxHandshake = 2
)

// DMAC programs single-buffer, byte-wide transfers on the SAM3X DMA
// controller. Each channel stops on completion (SOD) and is polled
// through Busy.
type DMAC struct {
	regs    Registers
	TxPerID uint8 // handshake interface for memory to peripheral
	RxPerID uint8 // handshake interface for peripheral to memory
}

var _ core.DMAController = (*DMAC)(nil)

// NewDMAC returns a controller wired to the SPI handshakes
func NewDMAC(regs Registers) *DMAC {
	return &DMAC{regs: regs, TxPerID: SPITxHandshake, RxPerID: SPIRxHandshake}
}

// Init selects fixed arbitration and enables the controller
func (d *DMAC) Init() {
	d.regs.Store(dmacEN, 0)
	d.regs.Store(dmacGCFG, dmacArbFixed)
	d.regs.Store(dmacEN, dmacEnable)
}

func (d *DMAC) Start(channel uint8, req core.DMARequest) error {
	if channel >= dmacChannels {
		return ErrBadChannel
	}
	if req.Count > ctrlaBTSizeMax {
		return ErrDMACount
	}

	d.regs.Store(dmacEN, dmacEnable)
	d.regs.Store(dmacCHDR, 1<<channel)

	var cfg, ctrlb uint32
	if req.Direction == core.MemoryToPeripheral {
		cfg = cfgSOD | cfgDstH2Sel | uint32(d.TxPerID&0x0F)<<4 | cfgFIFOALAP
		ctrlb = ctrlbSrcDscr | ctrlbDstDscr | ctrlbFCMem2Per | ctrlbDstIncFixed
		if req.FixedSource {
			ctrlb |= ctrlbSrcIncFixed
		}
	} else {
		cfg = cfgSOD | cfgSrcH2Sel | uint32(d.RxPerID&0x0F) | cfgFIFOASAP
		ctrlb = ctrlbSrcDscr | ctrlbDstDscr | ctrlbFCPer2Mem | ctrlbSrcIncFixed
	}

	ch := dmacCh0 + dmacChSize*uintptr(channel)
	d.regs.Store(ch+chCFG, cfg)
	d.regs.Store(ch+chSADDR, uint32(req.Source))
	d.regs.Store(ch+chDADDR, uint32(req.Destination))
	d.regs.Store(ch+chDSCR, 0)
	d.regs.Store(ch+chCTRLA, req.Count) // byte source and destination widths
	d.regs.Store(ch+chCTRLB, ctrlb)

	d.regs.Store(dmacCHER, 1<<channel)
	return nil
}

// Busy reports whether channel is still enabled
func (d *DMAC) Busy(channel uint8) bool {
	return d.regs.Load(dmacCHSR)&(1<<channel) != 0
}
