package core

import "unsafe"

// DMADirection selects the flow of a DMA transfer
type DMADirection uint8

const (
	MemoryToPeripheral DMADirection = iota
	PeripheralToMemory
)

// DMARequest describes a single-buffer transfer between memory and an SPI
// data register. Widths are always one byte.
type DMARequest struct {
	Direction   DMADirection
	Source      uintptr
	Destination uintptr
	Count       uint32
	FixedSource bool // Source address does not advance (fill byte)
}

// DMAController starts descriptor-based transfers. Start returns as soon
// as the channel is enabled; completion is observed through Busy or the
// controller's interrupt, which is left to the integrator.
type DMAController interface {
	Start(channel uint8, req DMARequest) error
	Busy(channel uint8) bool
}

// fillByte is the fixed source for transmit-only DMA streams
var fillByte byte = FillWord

// StartTransmit streams n bytes from buf into the transmit data register.
// A nil buf sends FillWord n times from a fixed source address; otherwise
// n must not exceed len(buf). A zero count starts nothing. The call does
// not wait for completion and must not overlap a Transceive.
func (b *Bus) StartTransmit(channel uint8, buf []byte, n uint32) error {
	dp, ok := b.periph.(DMAPeripheral)
	if b.dma == nil || !ok {
		return ErrNoDMA
	}
	if buf != nil && uint64(n) > uint64(len(buf)) {
		return ErrDMACount
	}
	if n == 0 {
		return nil
	}

	req := DMARequest{
		Direction:   MemoryToPeripheral,
		Destination: dp.TransmitDataAddress(),
		Count:       n,
	}
	if buf == nil {
		req.Source = uintptr(unsafe.Pointer(&fillByte))
		req.FixedSource = true
	} else {
		req.Source = uintptr(unsafe.Pointer(&buf[0]))
	}

	RecordEvent(EvtDMAStart, 0, uint32(channel), n)
	return b.dma.Start(channel, req)
}

// StartReceive streams n bytes from the receive data register into dst.
// n must not exceed len(dst) and a zero count starts nothing. A stale
// overrun flag is cleared first.
func (b *Bus) StartReceive(channel uint8, dst []byte, n uint32) error {
	dp, ok := b.periph.(DMAPeripheral)
	if b.dma == nil || !ok {
		return ErrNoDMA
	}
	if uint64(n) > uint64(len(dst)) {
		return ErrDMACount
	}
	if n == 0 {
		return nil
	}

	dp.ClearOverrun()
	req := DMARequest{
		Direction:   PeripheralToMemory,
		Source:      dp.ReceiveDataAddress(),
		Destination: uintptr(unsafe.Pointer(&dst[0])),
		Count:       n,
	}

	RecordEvent(EvtDMAStart, 0, uint32(channel), n)
	return b.dma.Start(channel, req)
}

// DMABusy reports whether a DMA channel is still transferring
func (b *Bus) DMABusy(channel uint8) bool {
	if b.dma == nil {
		return false
	}
	return b.dma.Busy(channel)
}
