//go:build rp2040

package main

import (
	"machine"
)

var (
	debugUART    *machine.UART
	debugEnabled bool
)

// InitDebugUART routes core debug output to UART1 on GPIO4 (TX) and
// GPIO5 (RX) at 115200 baud. Boards using the spi0b or spi0e routings
// must leave it off.
func InitDebugUART() {
	debugUART = machine.UART1

	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO4,
		RX:       machine.GPIO5,
	})
	if err != nil {
		debugEnabled = false
		return
	}

	debugEnabled = true
	DebugPrintln("=== spi bench debug UART ===")
}

// DebugPrintln writes a string to the debug UART with newline
func DebugPrintln(s string) {
	if !debugEnabled || debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
