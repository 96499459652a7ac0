package core

// SPIMode represents SPI clock polarity and phase (0-3)
// Mode 0: CPOL=0, CPHA=0 (clock idle low, sample on rising edge)
// Mode 1: CPOL=0, CPHA=1 (clock idle low, sample on falling edge)
// Mode 2: CPOL=1, CPHA=0 (clock idle high, sample on falling edge)
// Mode 3: CPOL=1, CPHA=1 (clock idle high, sample on rising edge)
type SPIMode uint8

// WordWidth is the number of bits shifted per transfer step
type WordWidth uint8

const (
	WordWidth8  WordWidth = 8
	WordWidth16 WordWidth = 16
)

const (
	// LastTransfer tags the final word of a sequence so hardware with
	// automatic chip-select release does not deselect mid-sequence.
	LastTransfer = 1 << 24

	// FillWord is clocked out when the caller supplies no transmit data
	FillWord = 0xFF

	// NoneSelected is the decoder value that addresses no device
	NoneSelected = 0x0F

	// DefaultChipID is the peripheral chip-select programmed at bring-up
	DefaultChipID = 1
)

// BusConfiguration is the per-transaction clock setup derived from an SPI
// mode and baud rate. ClockPhase follows the Atmel NCPHA convention and is
// therefore the inverse of the CPHA bit of the SPI mode number.
type BusConfiguration struct {
	ClockPolarity uint8
	ClockPhase    uint8
	BaudDivisor   uint32
}

// Peripheral is the register-level capability the bus driver needs.
// Backends exist for native SPI controllers, USARTs in SPI mode, PIO
// state machines and host SPI ports.
type Peripheral interface {
	// Reset performs one-time bring-up: reset TX/RX logic, select master
	// mode, disable mode-fault detection, loopback and select decoding.
	Reset()

	// Configure resets TX/RX state, applies divisor, polarity, phase and
	// the device word width, then enables transmitter and receiver.
	Configure(cfg BusConfiguration, dev *Device)

	// TxReady reports whether the transmit data register can take a word
	TxReady() bool

	// TxEmpty reports whether the last word has left the shift register
	TxEmpty() bool

	// RxReady reports whether a received word is waiting
	RxReady() bool

	// WriteWord writes to the transmit data register. The LastTransfer
	// bit may be set; backends without that feature ignore it.
	WriteWord(word uint32)

	// ReadWord reads the receive data register
	ReadWord() uint32

	// Supports16Bit reports whether 16-bit words can be shifted natively
	Supports16Bit() bool

	// MaxDivisor is the largest value the baud divider can hold
	MaxDivisor() uint32
}

// ChipSelectDecoder is implemented by peripherals that drive a decoded
// chip-select bus in addition to the per-device select line.
type ChipSelectDecoder interface {
	// DecoderRange is the number of devices addressable through the decoder
	DecoderRange() uint8

	// SetPeripheralSelect programs the chip-select field
	SetPeripheralSelect(value uint8)

	// SetLastTransfer releases the automatically held chip select
	SetLastTransfer()
}

// DMAPeripheral is implemented by peripherals whose data registers can be
// fed by a DMA controller.
type DMAPeripheral interface {
	TransmitDataAddress() uintptr
	ReceiveDataAddress() uintptr

	// ClearOverrun reads the status register to drop a stale overrun flag
	ClearOverrun()
}

// PinMuxer routes the clock and data lines to the SPI peripheral
type PinMuxer interface {
	ConfigureBusPins() error
}

// ClockGate enables the peripheral clock before registers are touched
type ClockGate interface {
	EnablePeripheralClock() error
}
