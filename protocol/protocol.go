// Package protocol implements the framing used by the SPI bench console:
// VLQ-encoded integers inside CRC-protected, sync-terminated messages.
package protocol

// Version represents the bench protocol version reported to hosts
const Version = "0.1.0"

// Protocol constants
const (
	MessageMax        = 512 // Scratch output capacity (several frames)
	MessageHeaderLen  = 2   // Length byte + sequence byte
	MessageTrailerLen = 3   // CRC16 + sync byte
	MessageLengthMin  = MessageHeaderLen + MessageTrailerLen
	MessageLengthMax  = 64
	MessageValueSync  = 0x7E
	MessageDest       = 0x10

	// Message sequence masks
	MessageSeqMask = 0x0F
)
