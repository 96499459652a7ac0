package core

import (
	"sync/atomic"

	"sharedspi/protocol"
)

// InitCoreCommands registers the bootstrap commands. Hosts assume
// identify_response is ID 0 and identify is ID 1, so this must run before
// any other registration.
func InitCoreCommands() {
	RegisterCommand("identify_response", "offset=%u data=%*s", nil)
	RegisterCommand("identify", "offset=%u count=%c", handleIdentify)

	RegisterCommand("get_clock", "", handleGetClock)
	RegisterCommand("clock", "clock=%u", nil)
	RegisterCommand("reset", "", handleReset)
}

// handleIdentify returns a chunk of the dictionary text
func handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := globalRegistry.DictionaryChunk(offset, uint8(count))
	SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func handleGetClock(_ *[]byte) error {
	clock := GetTime()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

// Global transport for sending responses (set by main)
var globalTransport *protocol.Transport

// SetGlobalTransport sets the transport used by SendResponse
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// SendResponse frames a registered response message. It is a no-op until
// a transport is installed.
func SendResponse(name string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(name)
	if !ok {
		panic("response not registered: " + name)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

var (
	globalResetHandler func()
	resetPending       atomic.Bool
)

// SetResetHandler installs the platform reset (usually the watchdog)
func SetResetHandler(handler func()) {
	globalResetHandler = handler
}

// The reset itself is deferred to CheckPendingReset so the ack for the
// reset command still reaches the host.
func handleReset(_ *[]byte) error {
	resetPending.Store(true)
	return nil
}

// CheckPendingReset runs the reset handler if a reset was requested.
// Call it from the main loop after output has been flushed.
func CheckPendingReset() {
	if resetPending.Load() && globalResetHandler != nil {
		globalResetHandler()
	}
}
