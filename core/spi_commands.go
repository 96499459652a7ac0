package core

import (
	"errors"

	"sharedspi/protocol"
)

// Bench status codes carried by spi_transfer_response
const (
	StatusOK            = 0
	StatusBusy          = 1
	StatusTimeout       = 2
	StatusUnknownDevice = 3
	StatusFailed        = 4 // GPIO or other collaborator error
)

// benchDevice is a device configured from the console
type benchDevice struct {
	dev  *Device
	mode SPIMode
	rate uint32
}

var (
	benchBus     *Bus
	benchDevices map[uint8]*benchDevice
)

// InitSPICommands registers the SPI bench commands against bus
func InitSPICommands(bus *Bus) {
	benchBus = bus
	benchDevices = make(map[uint8]*benchDevice)

	RegisterCommand("config_spi", "oid=%c cs_id=%c pin=%u", handleConfigSPI)
	RegisterCommand("config_spi_decoded", "oid=%c index=%c", handleConfigSPIDecoded)
	RegisterCommand("spi_init", "oid=%c bits=%c", handleSPIInit)
	RegisterCommand("spi_set_bus", "oid=%c mode=%u rate=%u", handleSPISetBus)
	RegisterCommand("spi_transfer", "oid=%c data=%*s", handleSPITransfer)
	RegisterCommand("spi_send", "oid=%c data=%*s", handleSPISend)
	RegisterCommand("spi_state", "", handleSPIState)

	RegisterCommand("spi_transfer_response", "oid=%c status=%c response=%*s", nil)
	RegisterCommand("spi_state_response", "held=%c timeouts=%u", nil)
}

// handleConfigSPI: config_spi oid=%c cs_id=%c pin=%u
func handleConfigSPI(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	csID, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	pin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	benchDevices[uint8(oid)] = &benchDevice{
		dev:  NewDevice(uint8(csID), GPIOPin(pin)),
		rate: 4000000,
	}
	return nil
}

// handleConfigSPIDecoded: config_spi_decoded oid=%c index=%c
func handleConfigSPIDecoded(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	index, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	benchDevices[uint8(oid)] = &benchDevice{
		dev:  NewDecodedDevice(uint8(index)),
		rate: 4000000,
	}
	return nil
}

// handleSPIInit: spi_init oid=%c bits=%c
func handleSPIInit(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	bits, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	d, ok := benchDevices[uint8(oid)]
	if !ok {
		return errors.New("spi_init: unknown oid " + utoa(oid))
	}
	return benchBus.Init(d.dev, WordWidth(bits))
}

// handleSPISetBus: spi_set_bus oid=%c mode=%u rate=%u
func handleSPISetBus(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	mode, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	rate, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	d, ok := benchDevices[uint8(oid)]
	if !ok {
		return errors.New("spi_set_bus: unknown oid " + utoa(oid))
	}
	d.mode = SPIMode(mode & 3)
	d.rate = rate
	return nil
}

// handleSPITransfer: spi_transfer oid=%c data=%*s
func handleSPITransfer(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	tx, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}

	var rx []byte
	status := uint32(StatusUnknownDevice)
	if d, ok := benchDevices[uint8(oid)]; ok {
		rx = make([]byte, len(tx))
		rx, err = benchExchange(d, tx, rx)
		status = benchStatus(err)
		DebugPrintln("[SPI] transfer oid=" + utoa(oid) + " tx=" + hexBytes(tx) + " rx=" + hexBytes(rx))
	}

	SendResponse("spi_transfer_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, oid)
		protocol.EncodeVLQUint(output, status)
		protocol.EncodeVLQBytes(output, rx)
	})
	return nil
}

// handleSPISend: spi_send oid=%c data=%*s
// Failures are only visible through spi_state.
func handleSPISend(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	tx, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}

	d, ok := benchDevices[uint8(oid)]
	if !ok {
		return errors.New("spi_send: unknown oid " + utoa(oid))
	}
	_, err = benchExchange(d, tx, nil)
	return err
}

func handleSPIState(_ *[]byte) error {
	var held uint32
	if benchBus.Held() {
		held = 1
	}
	timeouts := benchBus.Timeouts()

	SendResponse("spi_state_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, held)
		protocol.EncodeVLQUint(output, timeouts)
	})
	return nil
}

// benchExchange runs one transaction for d. 16-bit devices take tx as
// big-endian word pairs; a trailing odd byte is not sent.
func benchExchange(d *benchDevice, tx, rx []byte) ([]byte, error) {
	if d.dev.Width() != WordWidth16 {
		err := benchBus.Transaction(d.dev, d.mode, d.rate, func() error {
			return benchBus.Transceive(tx, rx, len(tx))
		})
		return rx, err
	}

	n := len(tx) / 2
	wtx := make([]uint16, n)
	for i := range wtx {
		wtx[i] = uint16(tx[2*i])<<8 | uint16(tx[2*i+1])
	}
	var wrx []uint16
	if rx != nil {
		wrx = make([]uint16, n)
	}

	err := benchBus.Transaction(d.dev, d.mode, d.rate, func() error {
		return benchBus.Transceive16(wtx, wrx, n)
	})

	if rx == nil {
		return nil, err
	}
	rx = rx[:2*n]
	for i, w := range wrx {
		rx[2*i] = byte(w >> 8)
		rx[2*i+1] = byte(w)
	}
	return rx, err
}

func benchStatus(err error) uint32 {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrBusBusy):
		return StatusBusy
	case errors.Is(err, ErrTimeout):
		return StatusTimeout
	default:
		return StatusFailed
	}
}
