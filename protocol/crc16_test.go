package protocol

import "testing"

func TestCRC16(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"empty", []byte{}, 0xFFFF},
		{"check string", []byte("123456789"), 0x6F91},
	}

	for _, tc := range testCases {
		if got := CRC16(tc.data); got != tc.expected {
			t.Errorf("%s: CRC16 = 0x%04X, want 0x%04X", tc.name, got, tc.expected)
		}
	}
}

func TestCRC16Different(t *testing.T) {
	// Single-bit changes must change the checksum
	crc1 := CRC16([]byte{0x01, 0x02, 0x03})
	crc2 := CRC16([]byte{0x01, 0x02, 0x04})

	if crc1 == crc2 {
		t.Errorf("CRC16 collision: both inputs produced %04X", crc1)
	}
}
