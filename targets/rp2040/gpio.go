//go:build rp2040

package main

import (
	"errors"
	"machine"

	"sharedspi/core"
)

const rp2040GPIOCount = 30

// RPGPIODriver drives chip-select lines through machine.Pin
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

var _ core.GPIODriver = (*RPGPIODriver)(nil)

func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

// ConfigureOutput configures a pin as a digital output driven high, the
// released state of an active-low select line.
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if _, exists := d.configuredPins[pin]; exists {
		return nil
	}
	if pin >= rp2040GPIOCount {
		return errors.New("invalid GPIO pin")
	}

	machinePin := machine.Pin(pin)
	machinePin.High()
	machinePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machinePin.High()

	d.configuredPins[pin] = machinePin
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	machinePin, exists := d.configuredPins[pin]
	if !exists {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		machinePin = d.configuredPins[pin]
	}

	machinePin.Set(value)
	return nil
}
