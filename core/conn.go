package core

import "tinygo.org/x/drivers"

// DeviceConn presents one device on the shared bus as a tinygo driver
// bus. Every call is a complete transaction: acquire, setup, select,
// exchange, deselect, release.
type DeviceConn struct {
	bus  *Bus
	dev  *Device
	mode SPIMode
	baud uint32
}

var _ drivers.SPI = (*DeviceConn)(nil)

// Conn returns a DeviceConn for dev with the given clock settings
func (b *Bus) Conn(dev *Device, mode SPIMode, baudHz uint32) *DeviceConn {
	return &DeviceConn{bus: b, dev: dev, mode: mode, baud: baudHz}
}

// Tx writes w and reads into r in one transaction. Either may be nil;
// when both are set they must have the same length.
func (c *DeviceConn) Tx(w, r []byte) error {
	n := len(w)
	if w == nil {
		n = len(r)
	}
	if n == 0 {
		return nil
	}
	return c.bus.Transaction(c.dev, c.mode, c.baud, func() error {
		return c.bus.Transceive(w, r, n)
	})
}

// Transfer exchanges a single byte
func (c *DeviceConn) Transfer(b byte) (byte, error) {
	var rx [1]byte
	err := c.Tx([]byte{b}, rx[:])
	return rx[0], err
}
