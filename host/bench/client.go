// Package bench drives the SPI bench firmware over its serial console:
// dictionary retrieval, device setup and synchronous transfers.
package bench

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sharedspi/host/serial"
	"sharedspi/protocol"
)

// Bootstrap command IDs fixed by the firmware
const (
	identifyResponseID = 0
	identifyID         = 1
)

const (
	// MaxTransfer is the largest spi_transfer payload that still fits a
	// single response frame.
	MaxTransfer = 48

	dictionaryChunk = 40
	defaultTimeout  = time.Second
)

// Status codes of spi_transfer_response
const (
	StatusOK = iota
	StatusBusy
	StatusTimeout
	StatusUnknownDevice
	StatusFailed
)

var (
	ErrBusy          = errors.New("spi bus busy")
	ErrTimeout       = errors.New("spi timeout")
	ErrUnknownDevice = errors.New("unknown spi device")
	ErrFailed        = errors.New("spi transfer failed")
	ErrNak           = errors.New("frame not acknowledged")
)

// statusError maps a firmware status code to an error
func statusError(status uint32) error {
	switch status {
	case StatusOK:
		return nil
	case StatusBusy:
		return ErrBusy
	case StatusTimeout:
		return ErrTimeout
	case StatusUnknownDevice:
		return ErrUnknownDevice
	default:
		return ErrFailed
	}
}

// Response is one decoded response message
type Response struct {
	ID   uint16
	Name string
	Args []byte // Undecoded VLQ arguments
}

// Client is a synchronous bench console client. Every request waits for
// the firmware's ack before returning.
type Client struct {
	mu      sync.Mutex
	port    serial.Port
	logger  *zap.SugaredLogger
	timeout time.Duration

	seq uint8
	rx  []byte

	commands map[string]uint16
	names    map[uint16]string
	formats  map[string]string
}

// NewClient wraps an open port. Only identify is usable until Identify
// has loaded the dictionary.
func NewClient(port serial.Port, logger *zap.SugaredLogger) *Client {
	c := &Client{
		port:    port,
		logger:  logger,
		timeout: defaultTimeout,
	}
	c.resetDictionary()
	return c
}

// Dial opens the serial port described by cfg, resynchronises and loads
// the dictionary.
func Dial(cfg *serial.Config, logger *zap.SugaredLogger) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	c := NewClient(port, logger)
	if err := c.Identify(); err != nil {
		return nil, multierr.Combine(err, port.Close())
	}
	return c, nil
}

// SetTimeout bounds the wait for an ack
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// Close flushes and closes the port
func (c *Client) Close() error {
	return multierr.Combine(c.port.Flush(), c.port.Close())
}

func (c *Client) resetDictionary() {
	c.commands = map[string]uint16{
		"identify_response": identifyResponseID,
		"identify":          identifyID,
	}
	c.names = map[uint16]string{
		identifyResponseID: "identify_response",
		identifyID:         "identify",
	}
	c.formats = map[string]string{}
}

// Identify reads the whole dictionary and indexes its commands. Line N of
// the dictionary describes command ID N.
func (c *Client) Identify() error {
	var dict bytes.Buffer
	for offset := uint32(0); ; {
		chunk, err := c.identifyChunk(offset)
		if err != nil {
			return errors.Wrapf(err, "dictionary chunk at offset %d", offset)
		}
		if len(chunk) == 0 {
			break
		}
		dict.Write(chunk)
		offset += uint32(len(chunk))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetDictionary()
	for id, line := range strings.Split(strings.TrimRight(dict.String(), "\n"), "\n") {
		name, format, _ := strings.Cut(line, " ")
		if name == "" {
			continue
		}
		c.commands[name] = uint16(id)
		c.names[uint16(id)] = name
		c.formats[name] = format
	}
	c.logger.Infow("dictionary loaded", "bytes", dict.Len(), "commands", len(c.commands))
	return nil
}

func (c *Client) identifyChunk(offset uint32) ([]byte, error) {
	resp, err := c.Request("identify_response", "identify", offset, uint32(dictionaryChunk))
	if err != nil {
		return nil, err
	}
	args := resp.Args
	got, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return nil, err
	}
	if got != offset {
		return nil, errors.Errorf("offset mismatch: expected %d, got %d", offset, got)
	}
	return protocol.DecodeVLQBytes(&args)
}

// Commands returns the dictionary as name to format string
func (c *Client) Commands() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.formats))
	for k, v := range c.formats {
		out[k] = v
	}
	return out
}

// Send issues a command that has no response
func (c *Client) Send(name string, args ...interface{}) error {
	_, err := c.exchange("", name, args)
	return err
}

// Request issues a command and returns the named response
func (c *Client) Request(response, name string, args ...interface{}) (Response, error) {
	return c.exchange(response, name, args)
}

func (c *Client) exchange(response, name string, args []interface{}) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := c.encode(name, args)
	if err != nil {
		return Response{}, err
	}

	frame := protocol.EncodeMessage(c.seq, payload)
	c.logger.Debugw("sending", "command", name, "seq", c.seq, "len", len(frame))
	if _, err := c.port.Write(frame); err != nil {
		return Response{}, errors.Wrapf(err, "writing %s", name)
	}
	c.seq = (c.seq + 1) & protocol.MessageSeqMask

	var found *Response
	deadline := time.Now().Add(c.timeout)
	for {
		msg, err := c.readMessage(deadline)
		if err != nil {
			return Response{}, errors.Wrapf(err, "waiting for ack of %s", name)
		}
		if len(msg.Payload) == 0 {
			if msg.Sequence != c.seq {
				c.seq = msg.Sequence
				return Response{}, errors.Wrapf(ErrNak, "%s: firmware expects sequence %d", name, msg.Sequence)
			}
			break
		}

		resps, err := c.decodeResponses(msg.Payload)
		if err != nil {
			return Response{}, err
		}
		for i := range resps {
			if response != "" && resps[i].Name == response && found == nil {
				found = &resps[i]
			} else {
				c.logger.Debugw("unsolicited response", "name", resps[i].Name)
			}
		}
	}

	if response == "" {
		return Response{}, nil
	}
	if found == nil {
		return Response{}, errors.Errorf("%s: no %s received", name, response)
	}
	return *found, nil
}

// encode builds a command payload. Arguments are VLQ integers except for
// []byte, which is sent length-prefixed.
func (c *Client) encode(name string, args []interface{}) ([]byte, error) {
	id, ok := c.commands[name]
	if !ok {
		return nil, errors.Errorf("unknown command: %s", name)
	}

	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, uint32(id))
	for i, arg := range args {
		switch v := arg.(type) {
		case []byte:
			protocol.EncodeVLQBytes(out, v)
		case uint8:
			protocol.EncodeVLQUint(out, uint32(v))
		case uint16:
			protocol.EncodeVLQUint(out, uint32(v))
		case uint32:
			protocol.EncodeVLQUint(out, v)
		case int:
			protocol.EncodeVLQInt(out, int32(v))
		case bool:
			var b uint32
			if v {
				b = 1
			}
			protocol.EncodeVLQUint(out, b)
		default:
			return nil, errors.Errorf("%s: argument %d has unsupported type %T", name, i, arg)
		}
	}

	payload := out.Result()
	if len(payload)+protocol.MessageLengthMin > protocol.MessageLengthMax {
		return nil, errors.Errorf("%s: payload of %d bytes does not fit a frame", name, len(payload))
	}
	return append([]byte(nil), payload...), nil
}

func (c *Client) decodeResponses(payload []byte) ([]Response, error) {
	var out []Response
	for len(payload) > 0 {
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, errors.Wrap(err, "decoding response id")
		}
		name, ok := c.names[uint16(id)]
		if !ok {
			return nil, errors.Errorf("unknown response id %d", id)
		}
		// Responses are the last message of a frame; their arguments
		// run to the end of the payload.
		out = append(out, Response{ID: uint16(id), Name: name, Args: payload})
		payload = nil
	}
	return out, nil
}

// readMessage returns the next valid frame, reading from the port until
// deadline. Bytes that do not form a valid frame are skipped.
func (c *Client) readMessage(deadline time.Time) (protocol.Message, error) {
	buf := make([]byte, 128)
	for {
		for len(c.rx) > 0 {
			if c.rx[0] == protocol.MessageValueSync {
				c.rx = c.rx[1:]
				continue
			}
			msg, n, err := protocol.ParseMessage(c.rx)
			if err == protocol.ErrIncomplete {
				break
			}
			if err != nil {
				c.logger.Debugw("dropping bad frame", "byte", c.rx[0])
				i := bytes.IndexByte(c.rx, protocol.MessageValueSync)
				if i < 0 {
					c.rx = c.rx[:0]
				} else {
					c.rx = c.rx[i+1:]
				}
				continue
			}
			msg.Payload = append([]byte(nil), msg.Payload...)
			c.rx = c.rx[n:]
			return msg, nil
		}

		if time.Now().After(deadline) {
			return protocol.Message{}, errors.New("timed out")
		}
		n, err := c.port.Read(buf)
		if err != nil {
			return protocol.Message{}, err
		}
		c.rx = append(c.rx, buf[:n]...)
	}
}
