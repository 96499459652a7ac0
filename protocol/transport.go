package protocol

import (
	"bytes"
	"sync/atomic"
)

// CommandHandler is called for every command decoded from a frame. The
// handler consumes its own arguments from data.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the bench console. It validates
// incoming frames, dispatches their commands in order and acknowledges
// every frame with the next expected sequence number.
type Transport struct {
	synced  atomic.Bool
	nextSeq atomic.Uint32 // includes MessageDest

	output  OutputBuffer
	handler CommandHandler

	onReset func()
	onFlush func()
}

func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	t := &Transport{output: output, handler: handler}
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	return t
}

// Receive consumes complete frames from input. A partial frame is left in
// the buffer for the next call.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !t.synced.Load() {
			i := bytes.IndexByte(data, MessageValueSync)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			t.synced.Store(true)
			t.sendAck()
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		msg, n, err := ParseMessage(data)
		if err == ErrIncomplete {
			break
		}
		if err != nil {
			t.synced.Store(false)
			continue
		}
		data = data[n:]
		t.accept(msg)
	}

	if consumed := input.Available() - len(data); consumed > 0 {
		input.Pop(consumed)
	}
}

func (t *Transport) accept(msg Message) {
	seq := MessageDest | msg.Sequence
	expected := uint8(t.nextSeq.Load())

	// A host that restarts begins again at sequence zero
	if seq == MessageDest && expected != MessageDest {
		t.nextSeq.Store(MessageDest)
		expected = MessageDest
		if t.onReset != nil {
			t.onReset()
		}
	}

	if seq == expected {
		t.nextSeq.Store(uint32(MessageDest | (seq+1)&MessageSeqMask))
		_ = t.dispatch(msg.Payload)
	}

	// A mismatched sequence is answered too; the ack then acts as a nak
	t.sendAck()
}

func (t *Transport) dispatch(payload []byte) error {
	defer func() {
		if r := recover(); r != nil {
			t.synced.Store(false)
		}
	}()

	for len(payload) > 0 {
		cmdID, err := DecodeVLQUint(&payload)
		if err != nil {
			t.synced.Store(false)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(cmdID), &payload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) sendAck() {
	t.EncodeFrame(nil)
	if t.onFlush != nil {
		t.onFlush()
	}
}

// EncodeFrame writes one frame carrying the current sequence number.
// Responses reuse the sequence of the ack that precedes them.
func (t *Transport) EncodeFrame(body func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(t.nextSeq.Load())})
	if body != nil {
		body(t.output)
	}

	n := len(t.output.DataSince(start)) + MessageTrailerLen
	t.output.Update(start, uint8(n))

	crc := CRC16(t.output.DataSince(start))
	t.output.Output([]byte{byte(crc >> 8), byte(crc), MessageValueSync})
}

// SendCommand writes a frame holding cmdID followed by its arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the power-on state, for example after a USB reconnect
func (t *Transport) Reset() {
	t.synced.Store(true)
	t.nextSeq.Store(MessageDest)
	if t.onReset != nil {
		t.onReset()
	}
}

// SetResetCallback registers fn to run when the host restarts its
// sequence numbering.
func (t *Transport) SetResetCallback(fn func()) {
	t.onReset = fn
}

// SetFlushCallback registers fn to push acks out immediately. The host
// waits for the ack before it accepts the response.
func (t *Transport) SetFlushCallback(fn func()) {
	t.onFlush = fn
}
