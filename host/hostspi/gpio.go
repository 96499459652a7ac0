package hostspi

import (
	"strconv"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"sharedspi/core"
)

// GPIO drives chip-select lines through periph's GPIO registry. Pins are
// looked up by global GPIO number.
type GPIO struct {
	byName func(string) gpio.PinIO
	pins   map[core.GPIOPin]gpio.PinIO
}

var _ core.GPIODriver = (*GPIO)(nil)

// NewGPIO returns a driver backed by gpioreg. periph's host drivers must
// already be initialised (Open does that).
func NewGPIO() *GPIO {
	return newGPIO(gpioreg.ByName)
}

func newGPIO(byName func(string) gpio.PinIO) *GPIO {
	return &GPIO{
		byName: byName,
		pins:   make(map[core.GPIOPin]gpio.PinIO),
	}
}

// ConfigureOutput looks up the pin and drives it high
func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	p, ok := g.pins[pin]
	if !ok {
		name := strconv.FormatUint(uint64(pin), 10)
		if p = g.byName(name); p == nil {
			return errors.Errorf("no GPIO pin found for %q", name)
		}
		g.pins[pin] = p
	}
	return errors.Wrapf(p.Out(gpio.High), "configuring %s as output", p)
}

// SetPin sets the pin to high (true) or low (false)
func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	p, ok := g.pins[pin]
	if !ok {
		return errors.Errorf("GPIO %d not configured", pin)
	}
	l := gpio.Low
	if value {
		l = gpio.High
	}
	return p.Out(l)
}
