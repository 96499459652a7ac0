// Package config loads the bench board file: which SPI port to drive,
// how to reach the firmware and which devices share the bus.
package config

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"sharedspi/host/serial"
)

// Defaults applied to fields left empty
const (
	DefaultCoreClockHz = 120000000
	DefaultPollBudget  = 15000
	DefaultBaudHz      = 4000000
	DefaultBits        = 8
)

type Config struct {
	Bus     BusConfig      `yaml:"bus"`
	Serial  *serial.Config `yaml:"serial"`
	Devices []DeviceConfig `yaml:"devices"`
}

// ---- BUS ----

// BusConfig describes the local SPI port. Port is unused when the
// firmware is driven over Serial.
type BusConfig struct {
	Port        string `yaml:"port"`
	CoreClockHz uint32 `yaml:"core_clock_hz"`
	PollBudget  uint32 `yaml:"poll_budget"`
}

// ---- DEVICE ----

// DeviceConfig is one device on the shared bus. A device is selected
// either by a GPIO pin (CSPin) or through the decoder (DecoderIndex).
type DeviceConfig struct {
	Name         string  `yaml:"name"`
	OID          uint8   `yaml:"oid"`
	ChipID       uint8   `yaml:"chip_id"`
	CSPin        *uint32 `yaml:"cs_pin"`
	DecoderIndex *uint8  `yaml:"decoder_index"`
	Bits         uint8   `yaml:"bits"`
	Mode         uint8   `yaml:"mode"`
	BaudHz       uint32  `yaml:"baud_hz"`
}

// Load reads and decodes a board file, applies defaults and validates it
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes a board file. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding yaml")
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bus.CoreClockHz == 0 {
		cfg.Bus.CoreClockHz = DefaultCoreClockHz
	}
	if cfg.Bus.PollBudget == 0 {
		cfg.Bus.PollBudget = DefaultPollBudget
	}

	if cfg.Serial != nil {
		def := serial.DefaultConfig(cfg.Serial.Device)
		if cfg.Serial.Baud == 0 {
			cfg.Serial.Baud = def.Baud
		}
		if cfg.Serial.ReadTimeout == 0 {
			cfg.Serial.ReadTimeout = def.ReadTimeout
		}
	}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		if d.Bits == 0 {
			d.Bits = DefaultBits
		}
		if d.BaudHz == 0 {
			d.BaudHz = DefaultBaudHz
		}
	}
}

// Device returns the device with the given name
func (c *Config) Device(name string) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return DeviceConfig{}, false
}
