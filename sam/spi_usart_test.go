package sam

import (
	"testing"

	"sharedspi/core"
)

func TestUSARTSPIReset(t *testing.T) {
	regs := newFakeRegs(SAM4EUSART1Base)
	u := NewUSARTSPI(regs, 120000000)

	u.Reset()

	if regs.values[usIDR] != 0xFFFFFFFF {
		t.Error("All interrupts must be disabled")
	}
	if regs.values[usMR] != usModeSPIMaster|usCHRL8 {
		t.Errorf("MR = 0x%X", regs.values[usMR])
	}
	if regs.values[usBRGR] != 120 {
		t.Errorf("BRGR = %d, want 120 (1MHz)", regs.values[usBRGR])
	}
	cr := regs.writesTo(usCR)
	if len(cr) != 2 || cr[1]&usRSTSTA == 0 || cr[1]&(usRXDIS|usTXDIS) != usRXDIS|usTXDIS {
		t.Errorf("CR writes = %v", cr)
	}
}

func TestUSARTSPIModes(t *testing.T) {
	testCases := []struct {
		mode core.SPIMode
		cpol bool
		cpha bool
	}{
		{0, false, false},
		{1, false, true},
		{2, true, false},
		{3, true, true},
	}

	for _, tc := range testCases {
		regs := newFakeRegs(SAM4EUSART1Base)
		u := NewUSARTSPI(regs, 120000000)
		cfg := core.DeriveConfiguration(tc.mode, 2000000, 120000000, u.MaxDivisor())

		u.Configure(cfg, core.NewDevice(0, 5))

		mr := regs.values[usMR]
		if (mr&usCPOL != 0) != tc.cpol || (mr&usCPHA != 0) != tc.cpha {
			t.Errorf("mode %d: MR = 0x%X", tc.mode, mr)
		}
		if mr&usCLKO == 0 {
			t.Errorf("mode %d: clock output not enabled", tc.mode)
		}
		if regs.values[usBRGR] != 60 {
			t.Errorf("mode %d: BRGR = %d", tc.mode, regs.values[usBRGR])
		}
		cr := regs.writesTo(usCR)
		if len(cr) != 2 || cr[0] != usRSTRX|usRSTTX || cr[1] != usRXEN|usTXEN {
			t.Errorf("mode %d: CR writes = %v", tc.mode, cr)
		}
	}
}

func TestUSARTSPIDataPath(t *testing.T) {
	regs := newFakeRegs(SAM4EUSART1Base)
	u := NewUSARTSPI(regs, 120000000)

	u.WriteWord(0x5A | core.LastTransfer)
	if regs.values[usTHR] != 0x5A {
		t.Errorf("THR = 0x%X", regs.values[usTHR])
	}

	regs.values[usRHR] = 0x1A5
	if u.ReadWord() != 0xA5 {
		t.Errorf("ReadWord = 0x%X", u.ReadWord())
	}

	regs.values[usCSR] = usTXRDY
	if !u.TxReady() || u.RxReady() || u.TxEmpty() {
		t.Error("status mapping wrong")
	}
	if u.Supports16Bit() || u.MaxDivisor() != 0xFFFF {
		t.Error("USART capabilities wrong")
	}
}

func TestUSARTSPIWidthDegrades(t *testing.T) {
	regs := newFakeRegs(SAM4EUSART1Base)
	gpio := &recordingGPIO{}
	bus := core.NewBus(core.BusConfig{Peripheral: NewUSARTSPI(regs, 120000000), GPIO: gpio})
	dev := core.NewDevice(0, 3)

	if err := bus.Init(dev, core.WordWidth16); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if dev.Width() != core.WordWidth8 {
		t.Errorf("width = %d, want 8", dev.Width())
	}
}

type recordingGPIO struct {
	sets []bool
}

func (g *recordingGPIO) ConfigureOutput(core.GPIOPin) error { return nil }

func (g *recordingGPIO) SetPin(_ core.GPIOPin, value bool) error {
	g.sets = append(g.sets, value)
	return nil
}
