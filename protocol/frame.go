package protocol

import "errors"

var (
	ErrIncomplete = errors.New("incomplete message")
	ErrBadFrame   = errors.New("malformed message")
)

// Message is one decoded frame. Sequence holds the low four bits of the
// sequence byte.
type Message struct {
	Sequence uint8
	Payload  []byte
}

// AppendMessage frames payload with the given sequence and appends the
// result to dst.
func AppendMessage(dst []byte, seq uint8, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, byte(len(payload)+MessageLengthMin), MessageDest|seq&MessageSeqMask)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), MessageValueSync)
}

// EncodeMessage frames payload into a new slice
func EncodeMessage(seq uint8, payload []byte) []byte {
	return AppendMessage(make([]byte, 0, len(payload)+MessageLengthMin), seq, payload)
}

// ParseMessage decodes the frame at the start of data and returns it with
// the number of bytes it occupies. ErrIncomplete means more input is
// needed; ErrBadFrame means the caller should drop bytes up to the next
// sync byte. The payload aliases data.
func ParseMessage(data []byte) (Message, int, error) {
	if len(data) == 0 {
		return Message{}, 0, ErrIncomplete
	}
	n := int(data[0])
	if n < MessageLengthMin || n > MessageLengthMax {
		return Message{}, 0, ErrBadFrame
	}
	if len(data) > 1 && data[1]&^MessageSeqMask != MessageDest {
		return Message{}, 0, ErrBadFrame
	}
	if len(data) < n {
		return Message{}, 0, ErrIncomplete
	}
	if data[n-1] != MessageValueSync {
		return Message{}, 0, ErrBadFrame
	}
	crc := uint16(data[n-3])<<8 | uint16(data[n-2])
	if crc != CRC16(data[:n-MessageTrailerLen]) {
		return Message{}, 0, ErrBadFrame
	}

	return Message{
		Sequence: data[1] & MessageSeqMask,
		Payload:  data[MessageHeaderLen : n-MessageTrailerLen],
	}, n, nil
}
