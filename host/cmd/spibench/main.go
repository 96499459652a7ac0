// spibench runs SPI transfers against the devices of a board file, either
// on a local spidev port or through the bench firmware's serial console.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sharedspi/core"
	"sharedspi/host/bench"
	"sharedspi/host/config"
	"sharedspi/host/hostspi"
)

var (
	configPath = flag.String("config", "spibench.yaml", "Board file")
	deviceName = flag.String("device", "", "Device to talk to (default: first in board file)")
	txHex      = flag.String("tx", "", "Bytes to send, hex encoded")
	count      = flag.Int("count", 1, "Number of transfers")
	remote     = flag.Bool("remote", false, "Drive the bench firmware over serial instead of a local port")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

// transferFunc sends tx to one device and returns what it clocked back
type transferFunc func(tx []byte) ([]byte, error)

func main() {
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Errorw("spibench failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

func run(logger *zap.SugaredLogger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	dev := cfg.Devices[0]
	if *deviceName != "" {
		d, ok := cfg.Device(*deviceName)
		if !ok {
			return errors.Errorf("no device %q in %s", *deviceName, *configPath)
		}
		dev = d
	}

	tx, err := hex.DecodeString(strings.ReplaceAll(*txHex, " ", ""))
	if err != nil {
		return errors.Wrap(err, "decoding -tx")
	}
	if dev.Bits == 16 && len(tx)%2 != 0 {
		return errors.Errorf("%s is a 16-bit device; -tx needs an even number of bytes", dev.Name)
	}

	var (
		transfer transferFunc
		closer   func() error
	)
	if *remote {
		transfer, closer, err = remoteTransfer(cfg, dev, logger)
	} else {
		transfer, closer, err = localTransfer(cfg, dev, logger)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := closer(); err != nil {
			logger.Warnw("closing", "error", err)
		}
	}()

	for i := 0; i < *count; i++ {
		rx, err := transfer(tx)
		if err != nil {
			return errors.Wrapf(err, "transfer %d to %s", i, dev.Name)
		}
		fmt.Printf("%s: tx=%x rx=%x\n", dev.Name, tx, rx)
	}
	return nil
}

// ---- FIRMWARE ----

func remoteTransfer(cfg *config.Config, dev config.DeviceConfig, logger *zap.SugaredLogger) (transferFunc, func() error, error) {
	if cfg.Serial == nil {
		return nil, nil, errors.New("-remote needs a serial section in the board file")
	}
	client, err := bench.Dial(cfg.Serial, logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "connecting to firmware on %s", cfg.Serial.Device)
	}

	setup := func() error {
		if dev.DecoderIndex != nil {
			if err := client.ConfigSPIDecoded(dev.OID, *dev.DecoderIndex); err != nil {
				return err
			}
		} else if err := client.ConfigSPI(dev.OID, dev.ChipID, *dev.CSPin); err != nil {
			return err
		}
		if err := client.InitDevice(dev.OID, dev.Bits); err != nil {
			return err
		}
		return client.SetBus(dev.OID, dev.Mode, dev.BaudHz)
	}
	if err := setup(); err != nil {
		return nil, nil, multierr.Combine(errors.Wrapf(err, "configuring %s", dev.Name), client.Close())
	}

	clock, err := client.Clock()
	if err != nil {
		return nil, nil, multierr.Combine(err, client.Close())
	}
	logger.Infow("firmware ready", "device", cfg.Serial.Device, "clock", clock)

	transfer := func(tx []byte) ([]byte, error) {
		rx, err := client.Transfer(dev.OID, tx)
		if errors.Is(err, bench.ErrTimeout) {
			if state, serr := client.State(); serr == nil {
				logger.Warnw("bus timed out", "held", state.Held, "timeouts", state.Timeouts)
			}
		}
		return rx, err
	}
	return transfer, client.Close, nil
}

// ---- LOCAL PORT ----

func localTransfer(cfg *config.Config, dev config.DeviceConfig, logger *zap.SugaredLogger) (transferFunc, func() error, error) {
	if dev.DecoderIndex != nil {
		return nil, nil, errors.Errorf("%s uses a select decoder, which local ports do not have", dev.Name)
	}

	periph, err := hostspi.Open(cfg.Bus.Port, cfg.Bus.CoreClockHz, logger)
	if err != nil {
		return nil, nil, err
	}
	bus := core.NewBus(core.BusConfig{
		Peripheral:  periph,
		GPIO:        hostspi.NewGPIO(),
		CoreClockHz: cfg.Bus.CoreClockHz,
		Wait:        core.IterationBudget(cfg.Bus.PollBudget),
	})

	d := core.NewDevice(dev.ChipID, core.GPIOPin(*dev.CSPin))
	if err := bus.Init(d, core.WordWidth(dev.Bits)); err != nil {
		return nil, nil, multierr.Combine(err, periph.Close())
	}
	logger.Infow("local port ready", "port", cfg.Bus.Port, "device", dev.Name, "baud", dev.BaudHz)

	transfer := func(tx []byte) ([]byte, error) {
		rx := make([]byte, len(tx))
		err := bus.Transaction(d, core.SPIMode(dev.Mode), dev.BaudHz, func() error {
			if d.Width() == core.WordWidth16 {
				return transceive16(bus, tx, rx)
			}
			return bus.Transceive(tx, rx, len(tx))
		})
		if err != nil {
			if perr := periph.Err(); perr != nil {
				err = multierr.Append(err, perr)
			}
			return nil, err
		}
		return rx, nil
	}
	return transfer, periph.Close, nil
}

// transceive16 sends tx as big-endian word pairs and unpacks the words
// received into rx the same way.
func transceive16(bus *core.Bus, tx, rx []byte) error {
	out := make([]uint16, len(tx)/2)
	in := make([]uint16, len(out))
	for i := range out {
		out[i] = uint16(tx[2*i])<<8 | uint16(tx[2*i+1])
	}
	if err := bus.Transceive16(out, in, len(out)); err != nil {
		return err
	}
	for i, w := range in {
		rx[2*i], rx[2*i+1] = byte(w>>8), byte(w)
	}
	return nil
}
