package core

// mockPeripheral is an in-memory SPI controller. By default it loops the
// transmitted word back to the receiver; the stuck* flags make a status
// bit never come up.
type mockPeripheral struct {
	resets  int
	configs []BusConfiguration
	writes  []uint32
	last    uint32
	width   WordWidth

	wide   bool
	maxDiv uint32

	stuckTx    bool
	stuckRx    bool
	stuckEmpty bool
	txPolls    int
	rxPolls    int
	emptyPolls int
}

func newMockPeripheral() *mockPeripheral {
	return &mockPeripheral{maxDiv: 255}
}

func (m *mockPeripheral) Reset() { m.resets++ }

func (m *mockPeripheral) Configure(cfg BusConfiguration, dev *Device) {
	m.configs = append(m.configs, cfg)
	m.width = dev.Width()
}

func (m *mockPeripheral) TxReady() bool {
	m.txPolls++
	return !m.stuckTx
}

func (m *mockPeripheral) TxEmpty() bool {
	m.emptyPolls++
	return !m.stuckEmpty
}

func (m *mockPeripheral) RxReady() bool {
	m.rxPolls++
	return !m.stuckRx
}

func (m *mockPeripheral) WriteWord(word uint32) {
	m.writes = append(m.writes, word)
	m.last = word
}

func (m *mockPeripheral) ReadWord() uint32 {
	if m.width == WordWidth16 {
		return m.last & 0xFFFF
	}
	return m.last & 0xFF
}

func (m *mockPeripheral) Supports16Bit() bool { return m.wide }
func (m *mockPeripheral) MaxDivisor() uint32  { return m.maxDiv }

// payloads returns the written words without the LastTransfer tag
func (m *mockPeripheral) payloads() []uint32 {
	out := make([]uint32, len(m.writes))
	for i, w := range m.writes {
		out[i] = w &^ LastTransfer
	}
	return out
}

// mockDecoderPeripheral adds a four-output chip-select decoder
type mockDecoderPeripheral struct {
	*mockPeripheral
	pcs       []uint8
	lastXfers int
}

func (m *mockDecoderPeripheral) DecoderRange() uint8 { return 4 }

func (m *mockDecoderPeripheral) SetPeripheralSelect(value uint8) {
	m.pcs = append(m.pcs, value)
}

func (m *mockDecoderPeripheral) SetLastTransfer() { m.lastXfers++ }

// mockDMAPeripheral exposes fixed data register addresses
type mockDMAPeripheral struct {
	*mockPeripheral
	overrunClears int
}

const (
	mockTDR = uintptr(0x4000800C)
	mockRDR = uintptr(0x40008008)
)

func (m *mockDMAPeripheral) TransmitDataAddress() uintptr { return mockTDR }
func (m *mockDMAPeripheral) ReceiveDataAddress() uintptr  { return mockRDR }
func (m *mockDMAPeripheral) ClearOverrun()                { m.overrunClears++ }

type mockDMAController struct {
	channels []uint8
	requests []DMARequest
	busy     map[uint8]bool
	err      error
}

func (c *mockDMAController) Start(channel uint8, req DMARequest) error {
	if c.err != nil {
		return c.err
	}
	c.channels = append(c.channels, channel)
	c.requests = append(c.requests, req)
	return nil
}

func (c *mockDMAController) Busy(channel uint8) bool { return c.busy[channel] }

type mockPinMuxer struct {
	calls int
	err   error
}

func (m *mockPinMuxer) ConfigureBusPins() error {
	m.calls++
	return m.err
}

type mockClockGate struct{ calls int }

func (m *mockClockGate) EnablePeripheralClock() error {
	m.calls++
	return nil
}
