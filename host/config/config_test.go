package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

const boardYAML = `
bus:
  port: SPI0.0
  core_clock_hz: 84000000
devices:
  - name: thermocouple
    oid: 1
    chip_id: 1
    cs_pin: 8
    mode: 1
    baud_hz: 1000000
  - name: rtd
    oid: 2
    decoder_index: 2
    bits: 16
`

func pin(n uint32) *uint32 { return &n }
func index(n uint8) *uint8 { return &n }

func validConfig() *Config {
	return &Config{
		Bus: BusConfig{Port: "SPI0.0", CoreClockHz: DefaultCoreClockHz, PollBudget: DefaultPollBudget},
		Devices: []DeviceConfig{
			{Name: "a", OID: 1, CSPin: pin(8), Bits: 8, BaudHz: 1000000},
			{Name: "b", OID: 2, DecoderIndex: index(1), Bits: 16, BaudHz: 1000000},
		},
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(boardYAML))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, cfg.Bus.Port, test.ShouldEqual, "SPI0.0")
	test.That(t, cfg.Bus.CoreClockHz, test.ShouldEqual, uint32(84000000))
	test.That(t, cfg.Bus.PollBudget, test.ShouldEqual, uint32(DefaultPollBudget))
	test.That(t, cfg.Devices, test.ShouldHaveLength, 2)

	tc := cfg.Devices[0]
	test.That(t, *tc.CSPin, test.ShouldEqual, uint32(8))
	test.That(t, tc.Bits, test.ShouldEqual, uint8(DefaultBits))
	test.That(t, tc.Mode, test.ShouldEqual, uint8(1))
	test.That(t, tc.BaudHz, test.ShouldEqual, uint32(1000000))

	rtd, ok := cfg.Device("rtd")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, *rtd.DecoderIndex, test.ShouldEqual, uint8(2))
	test.That(t, rtd.Bits, test.ShouldEqual, uint8(16))
	test.That(t, rtd.BaudHz, test.ShouldEqual, uint32(DefaultBaudHz))

	_, ok = cfg.Device("missing")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestParseSerialDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
serial:
  device: /dev/ttyACM0
devices:
  - name: a
    oid: 0
    cs_pin: 5
`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Serial.Device, test.ShouldEqual, "/dev/ttyACM0")
	test.That(t, cfg.Serial.Baud, test.ShouldEqual, 250000)
	test.That(t, cfg.Serial.ReadTimeout, test.ShouldEqual, 100)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("bus:\n  port: SPI0.0\n  speed: 3\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "speed")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	test.That(t, os.WriteFile(path, []byte(boardYAML), 0o600), test.ShouldBeNil)

	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Devices[0].Name, test.ShouldEqual, "thermocouple")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reading config")
}

func TestValidate(t *testing.T) {
	test.That(t, Validate(validConfig()), test.ShouldBeNil)

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"no port", func(c *Config) { c.Bus.Port = "" }, "bus.port"},
		{"no devices", func(c *Config) { c.Devices = nil }, "no devices"},
		{"unnamed", func(c *Config) { c.Devices[0].Name = "" }, "has no name"},
		{"duplicate name", func(c *Config) { c.Devices[1].Name = "a" }, "defined twice"},
		{"duplicate oid", func(c *Config) { c.Devices[1].OID = 1 }, "oid 1 used"},
		{"no select", func(c *Config) { c.Devices[0].CSPin = nil }, "one of cs_pin"},
		{"both selects", func(c *Config) { c.Devices[0].DecoderIndex = index(0) }, "exclusive"},
		{"decoder range", func(c *Config) { c.Devices[1].DecoderIndex = index(4) }, "out of range"},
		{"bad mode", func(c *Config) { c.Devices[0].Mode = 4 }, "not an SPI mode"},
		{"bad bits", func(c *Config) { c.Devices[0].Bits = 12 }, "8 or 16"},
		{"too fast", func(c *Config) { c.Devices[0].BaudHz = DefaultCoreClockHz + 1 }, "exceeds core clock"},
		{"shared pin", func(c *Config) {
			c.Devices[1].DecoderIndex = nil
			c.Devices[1].CSPin = pin(8)
		}, "cs_pin 8 used"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errMsg)
		})
	}
}
