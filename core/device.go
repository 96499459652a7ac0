package core

// SPI device flags
const (
	SF_HAVE_PIN = 0x01 // Device has a dedicated active-low chip select pin
)

// Device describes one peripheral on the shared bus. It is created once
// by the client driver; the bus only references it. The word width is
// fixed by Bus.Init and must not change afterwards.
//
// ID is the peripheral chip-select id. On controllers with a chip-select
// decoder it also selects the decoder output, so a device without a pin
// is addressed through the decoder alone.
type Device struct {
	ID    uint8   // Peripheral chip-select id / decoder index
	Pin   GPIOPin // Chip select pin (if SF_HAVE_PIN is set)
	Flags uint8   // SF_* flags

	width WordWidth
}

// NewDevice returns a device selected by a dedicated pin
func NewDevice(id uint8, pin GPIOPin) *Device {
	return &Device{
		ID:    id,
		Pin:   pin,
		Flags: SF_HAVE_PIN,
		width: WordWidth8,
	}
}

// NewDecodedDevice returns a device addressed only through the
// chip-select decoder
func NewDecodedDevice(index uint8) *Device {
	return &Device{
		ID:    index,
		width: WordWidth8,
	}
}

// Width returns the word width selected by Bus.Init
func (d *Device) Width() WordWidth {
	if d.width == 0 {
		return WordWidth8
	}
	return d.width
}

// Decoded reports whether the device relies on the decoder for selection
func (d *Device) Decoded() bool {
	return d.Flags&SF_HAVE_PIN == 0
}

func (d *Device) hasPin() bool {
	return d.Flags&SF_HAVE_PIN != 0
}
