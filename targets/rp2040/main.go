//go:build rp2040

package main

import (
	"errors"
	"machine"
	"time"

	"sharedspi/core"
	"sharedspi/protocol"
	"sharedspi/targets/pio"
)

// Build-time board selection, e.g.
//
//	tinygo build -target=pico -ldflags="-X main.spiBackend=pio -X main.spiBusName=spi1a"
var (
	spiBackend  = "ssp"   // ssp, pio or bitbang
	spiBusName  = "spi0c" // Pin routing, see rp2040SPIBuses
	debugOutput = ""      // "on" routes core debug output to UART1
)

var errUnknownBus = errors.New("unknown SPI bus name")

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	// Debug counters
	messagesReceived uint32
	messagesSent     uint32
	msgerrors        uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Disable the watchdog left running by a bench reset
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	if debugOutput == "on" {
		InitDebugUART()
		core.SetDebugWriter(DebugPrintln)
		core.SetDebugEnabled(true)
	}
	syncCoreTime()

	bus, err := newBenchBus()
	if err != nil {
		DebugPrintln("spi bus: " + err.Error())
		for {
			time.Sleep(time.Second)
		}
	}

	core.InitCoreCommands()
	core.InitSPICommands(bus)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	transport = protocol.NewTransport(outputBuffer, handleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// ACKs must reach the host before any response
	transport.SetFlushCallback(func() {
		writeUSB()
	})
	core.SetGlobalTransport(transport)

	core.SetResetHandler(func() {
		// Watchdog reset also re-enumerates USB cleanly
		err = machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
		if err != nil {
			return
		}
		err = machine.Watchdog.Start()
		if err != nil {
			return
		}
		for {
			time.Sleep(1 * time.Millisecond)
		}
	})

	go usbReaderLoop()

	for {
		// A panic in a handler must not take the console down
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			syncCoreTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)

				transport.Receive(inputBuf)
				messagesReceived++

				consumed := originalLen - inputBuf.Available()
				if consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
				messagesSent++
			}

			// Reset only after the ACK is on the wire
			core.CheckPendingReset()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// newBenchBus builds the shared bus for the selected backend and pins
func newBenchBus() (*core.Bus, error) {
	pins, ok := lookupSPIBus(spiBusName)
	if !ok {
		return nil, errUnknownBus
	}

	cfg := core.BusConfig{
		GPIO:        NewRPGPIODriver(),
		CoreClockHz: machine.CPUFrequency(),
	}

	switch spiBackend {
	case "pio":
		p, err := pio.NewSPIPeripheral(0, 0, pins.sck, pins.sdo, pins.sdi)
		if err != nil {
			return nil, err
		}
		cfg.Peripheral = p
	case "bitbang":
		cfg.Peripheral = NewBitBangPeripheral(pins.sck, pins.sdo, pins.sdi, machine.CPUFrequency())
	default:
		ssp := NewSSPPeripheral(pins)
		cfg.Peripheral = ssp
		cfg.Pins = ssp
	}

	// Polls are slower than the SAM loop; bound waits in time instead
	cfg.Wait = core.TickBudget{Ticks: core.TimerFromUS(2000)}
	return core.NewBus(cfg), nil
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// Fresh host connection: start from a clean console state
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				messagesReceived = 0
				messagesSent = 0
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// handleCommand dispatches received commands to the command registry
func handleCommand(cmdID uint16, data *[]byte) error {
	return core.DispatchCommand(cmdID, data)
}

// writeUSB writes available data from output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}

	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			// Host went away; drop stale traffic
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}

	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
