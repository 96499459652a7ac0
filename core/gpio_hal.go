package core

// GPIOPin is a board GPIO number as understood by the GPIODriver
type GPIOPin uint32

// GPIODriver drives chip-select lines. Only digital outputs are needed.
type GPIODriver interface {
	// ConfigureOutput makes pin a push-pull output
	ConfigureOutput(pin GPIOPin) error

	// SetPin drives pin high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error
}
