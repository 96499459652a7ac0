package core

import "errors"

var (
	// ErrBusBusy is returned when another holder owns the bus. It signals
	// contention, not a malfunction; retrying is up to the caller.
	ErrBusBusy = errors.New("spi bus busy")

	// ErrTimeout matches every *TimeoutError via errors.Is
	ErrTimeout = errors.New("spi timeout")

	// ErrNoDMA is returned by the DMA helpers when the bus was built
	// without a DMA controller or the peripheral cannot be DMA fed
	ErrNoDMA = errors.New("spi DMA not available")

	// ErrDMACount is returned when a DMA count exceeds its buffer
	ErrDMACount = errors.New("spi DMA count exceeds buffer")

	// ErrDecoderRange is returned by Init for a pinless device the
	// chip-select decoder cannot address
	ErrDecoderRange = errors.New("spi device outside decoder range")
)

// WaitStage names the status flag a timed-out wait was polling
type WaitStage uint8

const (
	StageTxReady WaitStage = iota
	StageRxReady
	StageTxEmpty
)

func (s WaitStage) String() string {
	switch s {
	case StageTxReady:
		return "tx-ready"
	case StageRxReady:
		return "rx-ready"
	case StageTxEmpty:
		return "tx-empty"
	default:
		return "unknown"
	}
}

// TimeoutError reports a wait that exhausted its poll budget. Step is the
// index of the word being exchanged, or -1 outside a transceive loop.
type TimeoutError struct {
	Stage WaitStage
	Step  int
}

func (e *TimeoutError) Error() string {
	msg := "spi timeout waiting for " + e.Stage.String()
	if e.Step >= 0 {
		msg += " at word " + itoa(e.Step)
	}
	return msg
}

// Is reports whether target is ErrTimeout
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
