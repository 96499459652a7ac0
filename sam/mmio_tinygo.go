//go:build tinygo

package sam

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO is a memory-mapped register block at a fixed address
type MMIO uintptr

func (m MMIO) reg(offset uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(m) + offset))
}

func (m MMIO) Load(offset uintptr) uint32         { return m.reg(offset).Get() }
func (m MMIO) Store(offset uintptr, value uint32) { m.reg(offset).Set(value) }
func (m MMIO) Base() uintptr                      { return uintptr(m) }
