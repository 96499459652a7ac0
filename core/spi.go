// Package core implements the shared SPI bus driver: lock arbitration,
// per-device clock setup, chip-select sequencing and the bounded-timeout
// transceive loop. It builds with both Go and TinyGo; hardware access goes
// through the Peripheral capability supplied by the target.
package core

import "sync/atomic"

// BusConfig holds the board services a Bus is built from
type BusConfig struct {
	Peripheral  Peripheral // Required register backend
	GPIO        GPIODriver // Chip select lines; required when devices have pins
	Pins        PinMuxer   // Optional, invoked once at bring-up
	Clock       ClockGate  // Optional, invoked once at bring-up
	CoreClockHz uint32     // Peripheral input clock for baud divisors

	Wait WaitPolicy    // Defaults to IterationBudget(DefaultPollBudget)
	DMA  DMAController // Optional bulk transfer engine
}

// Bus is the single owned handle for one physical SPI bus. Device drivers
// receive it by injection and bracket every exchange with Acquire/Release.
type Bus struct {
	lock BusLock

	periph      Peripheral
	decoder     ChipSelectDecoder
	gpio        GPIODriver
	pins        PinMuxer
	clock       ClockGate
	coreClockHz uint32
	wait        WaitPolicy
	dma         DMAController

	initialized bool
	timeouts    atomic.Uint32
}

// NewBus creates a bus handle. Hardware is not touched until the first
// Init call.
func NewBus(cfg BusConfig) *Bus {
	if cfg.Peripheral == nil {
		panic("SPI peripheral not configured")
	}
	b := &Bus{
		periph:      cfg.Peripheral,
		gpio:        cfg.GPIO,
		pins:        cfg.Pins,
		clock:       cfg.Clock,
		coreClockHz: cfg.CoreClockHz,
		wait:        cfg.Wait,
		dma:         cfg.DMA,
	}
	if dec, ok := cfg.Peripheral.(ChipSelectDecoder); ok {
		b.decoder = dec
	}
	if b.wait == nil {
		b.wait = IterationBudget(DefaultPollBudget)
	}
	return b
}

// Acquire gains exclusive use of the bus. It returns false at once if the
// bus is held; a caller that ignores the result may corrupt another
// holder's transaction.
func (b *Bus) Acquire() bool {
	if b.lock.Acquire() {
		RecordEvent(EvtAcquire, 0, 0, 0)
		return true
	}
	RecordEvent(EvtBusy, 0, 0, 0)
	return false
}

// TryAcquire is Acquire reporting contention as ErrBusBusy
func (b *Bus) TryAcquire() error {
	if !b.Acquire() {
		return ErrBusBusy
	}
	return nil
}

// Release frees the bus. Only the current holder may call it.
func (b *Bus) Release() {
	b.lock.Release()
	RecordEvent(EvtRelease, 0, 0, 0)
}

// Held reports whether some caller holds the bus
func (b *Bus) Held() bool {
	return b.lock.Held()
}

// Timeouts returns the number of expired waits since the bus was created
func (b *Bus) Timeouts() uint32 {
	return b.timeouts.Load()
}

// Init brings the bus up on first use and fixes the word width of dev.
// Widths other than 16, or 16 on a backend without native support, fall
// back to 8 bits. A device pin is configured as an output and deasserted.
// On decoder hardware a pinless device must have an id the decoder can
// address, otherwise ErrDecoderRange is returned.
func (b *Bus) Init(dev *Device, bits WordWidth) error {
	if dev.Decoded() && b.decoder != nil && dev.ID >= b.decoder.DecoderRange() {
		return ErrDecoderRange
	}
	if err := b.bringUp(); err != nil {
		return err
	}

	dev.width = WordWidth8
	if bits == WordWidth16 && b.periph.Supports16Bit() {
		dev.width = WordWidth16
	}

	if dev.hasPin() {
		gpio := b.mustGPIO()
		if err := gpio.ConfigureOutput(dev.Pin); err != nil {
			return err
		}
		if err := gpio.SetPin(dev.Pin, true); err != nil {
			return err
		}
	}
	return nil
}

// bringUp runs the one-time hardware setup exactly once per bus. A failed
// collaborator leaves the bus uninitialised so the next Init retries.
func (b *Bus) bringUp() error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if b.initialized {
		return nil
	}
	if b.pins != nil {
		if err := b.pins.ConfigureBusPins(); err != nil {
			return err
		}
	}
	if b.clock != nil {
		if err := b.clock.EnablePeripheralClock(); err != nil {
			return err
		}
	}
	b.periph.Reset()
	b.initialized = true
	return nil
}

// DeriveConfiguration computes the clock setup for an SPI mode and baud
// rate. The phase bit is inverted relative to the mode number, matching
// the NCPHA bit of the controller. The divisor uses integer division and
// is clamped to [1, maxDivisor]; a zero baud rate selects the slowest clock.
func DeriveConfiguration(mode SPIMode, baudHz, coreClockHz, maxDivisor uint32) BusConfiguration {
	cfg := BusConfiguration{
		ClockPolarity: uint8(mode>>1) & 1,
		ClockPhase:    uint8(mode&1) ^ 1,
	}

	div := maxDivisor
	if baudHz != 0 {
		div = coreClockHz / baudHz
	}
	if div < 1 {
		div = 1
	}
	if maxDivisor != 0 && div > maxDivisor {
		div = maxDivisor
	}
	cfg.BaudDivisor = div
	return cfg
}

// SetupDevice programs polarity, phase, divisor and word width for dev.
// Nothing is remembered between calls: call it for every transaction.
func (b *Bus) SetupDevice(dev *Device, mode SPIMode, baudHz uint32) {
	cfg := DeriveConfiguration(mode, baudHz, b.coreClockHz, b.periph.MaxDivisor())
	b.periph.Configure(cfg, dev)
	RecordEvent(EvtSetup, dev.ID, cfg.BaudDivisor, uint32(cfg.ClockPolarity)<<1|uint32(cfg.ClockPhase))
}

// Transaction runs fn with dev selected on an acquired, configured bus.
// Contention returns ErrBusBusy without waiting. The device is deselected
// and the bus released even when fn fails; the first error wins.
func (b *Bus) Transaction(dev *Device, mode SPIMode, baudHz uint32, fn func() error) (err error) {
	if !b.Acquire() {
		return ErrBusBusy
	}
	defer b.Release()

	b.SetupDevice(dev, mode, baudHz)
	if err := b.Select(dev); err != nil {
		return err
	}
	err = fn()
	if derr := b.Deselect(dev); err == nil {
		err = derr
	}
	return err
}

func (b *Bus) mustGPIO() GPIODriver {
	if b.gpio == nil {
		panic("GPIO driver not configured")
	}
	return b.gpio
}

// timeout records an expired wait and builds the error returned to callers
func (b *Bus) timeout(stage WaitStage, step int) error {
	b.timeouts.Add(1)
	RecordEvent(EvtTimeout, 0, uint32(stage), uint32(step))
	DebugPrintln("[SPI] timeout waiting for " + stage.String())
	return &TimeoutError{Stage: stage, Step: step}
}
