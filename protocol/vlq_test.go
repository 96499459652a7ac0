package protocol

import (
	"bytes"
	"testing"
)

func TestVLQIntRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 95, 96, -32, -33, 127, 128, 1000, -1000, 0xFFFF, 1000000, -1000000, 1 << 30, -(1 << 30)}

	for _, want := range values {
		out := NewScratchOutput()
		EncodeVLQInt(out, want)
		data := out.Result()

		got, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("decode %d: %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("VLQ mismatch: expected %d, got %d", want, got)
		}
		if len(data) != 0 {
			t.Errorf("value %d: %d bytes left over", want, len(data))
		}
	}
}

func TestVLQEncodedLength(t *testing.T) {
	testCases := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{-1, []byte{0x7F}},
		{96, []byte{0x80, 0x60}},
		{0xFF, []byte{0x81, 0x7F}},
	}

	for _, tc := range testCases {
		out := NewScratchOutput()
		EncodeVLQInt(out, tc.v)
		if got := out.Result(); !bytes.Equal(got, tc.want) {
			t.Errorf("EncodeVLQInt(%d) = % x, want % x", tc.v, got, tc.want)
		}
	}
}

func TestVLQUintLarge(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQUint(out, 0xFFFFFFFF)
	data := out.Result()

	got, err := DecodeVLQUint(&data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != 0xFFFFFFFF {
		t.Errorf("expected 0xFFFFFFFF, got 0x%X", got)
	}
}

func TestVLQBytesAndString(t *testing.T) {
	out := NewScratchOutput()
	EncodeVLQBytes(out, []byte{0xDE, 0xAD})
	EncodeVLQString(out, "spi_transfer")
	data := out.Result()

	b, err := DecodeVLQBytes(&data)
	if err != nil || !bytes.Equal(b, []byte{0xDE, 0xAD}) {
		t.Fatalf("DecodeVLQBytes = % x, %v", b, err)
	}
	s, err := DecodeVLQString(&data)
	if err != nil || s != "spi_transfer" {
		t.Fatalf("DecodeVLQString = %q, %v", s, err)
	}
}

func TestVLQTruncated(t *testing.T) {
	data := []byte{0x80}
	if _, err := DecodeVLQInt(&data); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}

	data = []byte{0x03, 0x01}
	if _, err := DecodeVLQBytes(&data); err != ErrBufferTooSmall {
		t.Errorf("short byte array: expected ErrBufferTooSmall, got %v", err)
	}
}

func TestVLQTooLong(t *testing.T) {
	data := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&data); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
}
