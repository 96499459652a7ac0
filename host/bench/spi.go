package bench

import (
	"github.com/pkg/errors"

	"sharedspi/protocol"
)

// State is the bus snapshot reported by spi_state
type State struct {
	Held     bool
	Timeouts uint32
}

// ConfigSPI declares device oid selected by a GPIO pin
func (c *Client) ConfigSPI(oid, chipID uint8, pin uint32) error {
	return c.Send("config_spi", oid, chipID, pin)
}

// ConfigSPIDecoded declares device oid addressed through the chip-select
// decoder only
func (c *Client) ConfigSPIDecoded(oid, index uint8) error {
	return c.Send("config_spi_decoded", oid, index)
}

// InitDevice brings the bus up and fixes the device word width
func (c *Client) InitDevice(oid, bits uint8) error {
	return c.Send("spi_init", oid, bits)
}

// SetBus sets the mode and clock rate used for later transfers
func (c *Client) SetBus(oid uint8, mode uint8, rateHz uint32) error {
	if mode > 3 {
		return errors.Errorf("invalid SPI mode %d", mode)
	}
	return c.Send("spi_set_bus", oid, uint32(mode), rateHz)
}

// Transfer runs one full-duplex transaction and returns the bytes read.
// A firmware status other than OK is returned as one of the Err values.
func (c *Client) Transfer(oid uint8, tx []byte) ([]byte, error) {
	if len(tx) > MaxTransfer {
		return nil, errors.Errorf("transfer of %d bytes exceeds %d", len(tx), MaxTransfer)
	}
	resp, err := c.Request("spi_transfer_response", "spi_transfer", oid, tx)
	if err != nil {
		return nil, err
	}

	args := resp.Args
	gotOID, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return nil, err
	}
	status, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return nil, err
	}
	rx, err := protocol.DecodeVLQBytes(&args)
	if err != nil {
		return nil, err
	}
	if uint8(gotOID) != oid {
		return nil, errors.Errorf("response for oid %d, expected %d", gotOID, oid)
	}
	if err := statusError(status); err != nil {
		return rx, errors.Wrapf(err, "oid %d", oid)
	}
	return rx, nil
}

// Write sends data without reading the response bytes
func (c *Client) Write(oid uint8, tx []byte) error {
	if len(tx) > MaxTransfer {
		return errors.Errorf("write of %d bytes exceeds %d", len(tx), MaxTransfer)
	}
	return c.Send("spi_send", oid, tx)
}

// State reads the bus lock flag and timeout counter
func (c *Client) State() (State, error) {
	resp, err := c.Request("spi_state_response", "spi_state")
	if err != nil {
		return State{}, err
	}
	args := resp.Args
	held, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return State{}, err
	}
	timeouts, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return State{}, err
	}
	return State{Held: held != 0, Timeouts: timeouts}, nil
}

// Clock returns the firmware tick counter
func (c *Client) Clock() (uint32, error) {
	resp, err := c.Request("clock", "get_clock")
	if err != nil {
		return 0, err
	}
	args := resp.Args
	return protocol.DecodeVLQUint(&args)
}

// Reset asks the firmware to reboot. The sequence restarts at zero.
func (c *Client) Reset() error {
	if err := c.Send("reset"); err != nil {
		return err
	}
	c.mu.Lock()
	c.seq = 0
	c.rx = c.rx[:0]
	c.mu.Unlock()
	return nil
}
