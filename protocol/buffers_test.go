package protocol

import (
	"bytes"
	"testing"
)

func TestSliceInputBuffer(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})

	if buf.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", buf.Available())
	}

	buf.Pop(2)
	if d := buf.Data(); len(d) != 3 || d[0] != 3 {
		t.Errorf("After popping 2, got %v", d)
	}

	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Over-pop should empty the buffer, %d left", buf.Available())
	}
}

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output([]byte{1, 2, 3})
	scratch.Output([]byte{4, 5})

	if scratch.CurPosition() != 5 {
		t.Errorf("Expected position 5, got %d", scratch.CurPosition())
	}

	scratch.Update(0, 99)
	if !bytes.Equal(scratch.Result(), []byte{99, 2, 3, 4, 5}) {
		t.Errorf("Update failed: %v", scratch.Result())
	}

	// Positions past the write cursor are ignored
	scratch.Update(7, 1)
	if scratch.CurPosition() != 5 {
		t.Errorf("Update past cursor moved position to %d", scratch.CurPosition())
	}

	if since := scratch.DataSince(2); !bytes.Equal(since, []byte{3, 4, 5}) {
		t.Errorf("DataSince(2) = %v", since)
	}
	if scratch.DataSince(6) != nil {
		t.Error("DataSince beyond cursor should be nil")
	}

	scratch.Reset()
	if scratch.CurPosition() != 0 {
		t.Errorf("After reset, expected position 0, got %d", scratch.CurPosition())
	}
}

func TestScratchOutputTruncates(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output(make([]byte, MessageMax+10))
	if scratch.CurPosition() != MessageMax {
		t.Errorf("Expected truncation at %d, got %d", MessageMax, scratch.CurPosition())
	}
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}

	if n := fifo.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", n)
	}

	readBuf := make([]byte, 3)
	if n := fifo.Read(readBuf); n != 3 || !bytes.Equal(readBuf, []byte{1, 2, 3}) {
		t.Errorf("Read %d bytes: %v", n, readBuf)
	}

	fifo.Pop(1)
	if fifo.Available() != 1 {
		t.Errorf("After popping 1, expected 1 available, got %d", fifo.Available())
	}

	fifo.Reset()
	if n := fifo.Write(make([]byte, 12)); n != 9 {
		t.Errorf("Expected to write 9 bytes to size-10 FIFO, wrote %d", n)
	}
	if fifo.Free() != 0 {
		t.Errorf("Full FIFO reports %d free", fifo.Free())
	}
}

func TestFifoBufferWrappedData(t *testing.T) {
	fifo := NewFifoBuffer(5)
	fifo.Write([]byte{1, 2, 3, 4})
	fifo.Read(make([]byte, 2))

	if n := fifo.Write([]byte{5, 6}); n != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", n)
	}

	if d := fifo.Data(); !bytes.Equal(d, []byte{3, 4, 5, 6}) {
		t.Errorf("Wrapped Data() = %v", d)
	}

	fifo.Pop(3)
	if d := fifo.Data(); !bytes.Equal(d, []byte{6}) {
		t.Errorf("After Pop(3), Data() = %v", d)
	}
}
