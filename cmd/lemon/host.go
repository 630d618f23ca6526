package main

import "fmt"

// flatMemory is the generic CLI's default MemoryAccessHandler: a single
// flat, bounds-checked byte slice. The teacher's emulator backs memory with
// a paged MMU (emul/memory.go) because the WUT-4 hardware it models has
// one; lemonscript's READ_MEMORY/WRITE_MEMORY opcodes only need an
// addressable byte space (spec.md §6.1), so the driver's host-memory stand
// in is the simplest thing that satisfies the interface rather than
// reproducing hardware it doesn't have.
type flatMemory struct {
	bytes []byte
}

func newFlatMemory(size int) *flatMemory {
	return &flatMemory{bytes: make([]byte, size)}
}

func (m *flatMemory) check(addr uint64, width int) {
	if addr+uint64(width) > uint64(len(m.bytes)) {
		panic(fmt.Sprintf("lemon: memory access out of range: addr=0x%x width=%d size=%d", addr, width, len(m.bytes)))
	}
}

func (m *flatMemory) Read8(addr uint64) uint64 {
	m.check(addr, 1)
	return uint64(m.bytes[addr])
}

func (m *flatMemory) Read16(addr uint64) uint64 {
	m.check(addr, 2)
	return uint64(m.bytes[addr]) | uint64(m.bytes[addr+1])<<8
}

func (m *flatMemory) Read32(addr uint64) uint64 {
	m.check(addr, 4)
	var v uint64
	for i := 0; i < 4; i++ {
		v |= uint64(m.bytes[addr+uint64(i)]) << (8 * i)
	}
	return v
}

func (m *flatMemory) Read64(addr uint64) uint64 {
	m.check(addr, 8)
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(m.bytes[addr+uint64(i)]) << (8 * i)
	}
	return v
}

func (m *flatMemory) Write8(addr uint64, v uint64) {
	m.check(addr, 1)
	m.bytes[addr] = byte(v)
}

func (m *flatMemory) Write16(addr uint64, v uint64) {
	m.check(addr, 2)
	m.bytes[addr] = byte(v)
	m.bytes[addr+1] = byte(v >> 8)
}

func (m *flatMemory) Write32(addr uint64, v uint64) {
	m.check(addr, 4)
	for i := 0; i < 4; i++ {
		m.bytes[addr+uint64(i)] = byte(v >> (8 * i))
	}
}

func (m *flatMemory) Write64(addr uint64, v uint64) {
	m.check(addr, 8)
	for i := 0; i < 8; i++ {
		m.bytes[addr+uint64(i)] = byte(v >> (8 * i))
	}
}

// DirectAddress reports that no address maps straight into host memory, so
// the runtime builder never picks the direct-pointer fusion variants.
func (m *flatMemory) DirectAddress(addr uint64) (direct, swap bool) {
	return false, false
}
