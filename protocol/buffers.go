package protocol

// InputBuffer is the receive side seen by Transport
type InputBuffer interface {
	Data() []byte
	Available() int
	Pop(n int)
}

// OutputBuffer collects encoded frames. Update and DataSince let a frame
// patch its length byte and checksum after the payload is written.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer implements InputBuffer over a byte slice
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput is a fixed-capacity OutputBuffer. Writes beyond
// MessageMax are truncated.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

func (s *ScratchOutput) Reset() { s.pos = 0 }

// FifoBuffer is a ring buffer between the USB CDC reader and Transport.
// One slot is kept free to tell full from empty.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
}

func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write stores as much of data as fits and returns the count
func (f *FifoBuffer) Write(data []byte) int {
	n := 0
	for _, b := range data {
		next := (f.write + 1) % len(f.buf)
		if next == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = next
		n++
	}
	return n
}

func (f *FifoBuffer) Read(data []byte) int {
	n := 0
	for n < len(data) && f.read != f.write {
		data[n] = f.buf[f.read]
		f.read = (f.read + 1) % len(f.buf)
		n++
	}
	return n
}

func (f *FifoBuffer) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return len(f.buf) - f.read + f.write
}

func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.Available() - 1
}

// Data returns the buffered bytes in order. A wrapped buffer is copied
// into a new slice so frames spanning the end parse correctly.
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	out := make([]byte, 0, f.Available())
	out = append(out, f.buf[f.read:]...)
	return append(out, f.buf[:f.write]...)
}

func (f *FifoBuffer) Pop(n int) {
	if a := f.Available(); n > a {
		n = a
	}
	f.read = (f.read + n) % len(f.buf)
}

func (f *FifoBuffer) IsEmpty() bool { return f.read == f.write }

func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
