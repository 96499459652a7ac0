package config

import (
	"fmt"
)

// decoderRange is the number of outputs of a 4-bit chip-select decoder
const decoderRange = 4

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Serial == nil && cfg.Bus.Port == "" {
		return fmt.Errorf("bus.port is required unless serial is set")
	}
	if cfg.Serial != nil && cfg.Serial.Device == "" {
		return fmt.Errorf("serial.device is required")
	}
	if len(cfg.Devices) == 0 {
		return fmt.Errorf("no devices defined")
	}

	names := make(map[string]bool)
	oids := make(map[uint8]string)
	pins := make(map[uint32]string)

	for _, d := range cfg.Devices {
		if d.Name == "" {
			return fmt.Errorf("device with oid %d has no name", d.OID)
		}
		if names[d.Name] {
			return fmt.Errorf("device %q defined twice", d.Name)
		}
		names[d.Name] = true

		if prev, exists := oids[d.OID]; exists {
			return fmt.Errorf("oid %d used by devices %q and %q", d.OID, prev, d.Name)
		}
		oids[d.OID] = d.Name

		switch {
		case d.CSPin == nil && d.DecoderIndex == nil:
			return fmt.Errorf("device %q: one of cs_pin or decoder_index is required", d.Name)
		case d.CSPin != nil && d.DecoderIndex != nil:
			return fmt.Errorf("device %q: cs_pin and decoder_index are exclusive", d.Name)
		case d.CSPin != nil:
			if prev, exists := pins[*d.CSPin]; exists {
				return fmt.Errorf("cs_pin %d used by devices %q and %q", *d.CSPin, prev, d.Name)
			}
			pins[*d.CSPin] = d.Name
		case *d.DecoderIndex >= decoderRange:
			return fmt.Errorf("device %q: decoder_index %d out of range", d.Name, *d.DecoderIndex)
		}

		if d.Mode > 3 {
			return fmt.Errorf("device %q: mode %d is not an SPI mode", d.Name, d.Mode)
		}
		if d.Bits != 8 && d.Bits != 16 {
			return fmt.Errorf("device %q: bits must be 8 or 16, got %d", d.Name, d.Bits)
		}
		if d.BaudHz > cfg.Bus.CoreClockHz {
			return fmt.Errorf("device %q: baud_hz %d exceeds core clock %d", d.Name, d.BaudHz, cfg.Bus.CoreClockHz)
		}
	}
	return nil
}
