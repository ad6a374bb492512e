// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

// The Memory interface presents the target address space into which the
// segments of a linked program are loaded.
type Memory interface {
	// LoadByte loads a single byte from the address and returns it.
	LoadByte(addr uint16) byte

	// LoadBytes loads multiple bytes from the address and stores them into
	// the buffer 'b'.
	LoadBytes(addr uint16, b []byte)

	// LoadWord loads a big-endian 16-bit word from the address.
	LoadWord(addr uint16) uint16

	// StoreByte stores a byte to the requested address. Storing a
	// different value over a byte that was already stored fails.
	StoreByte(addr uint16, v byte) error

	// StoreBytes stores multiple bytes to the requested address.
	StoreBytes(addr uint16, b []byte) error

	// StoreWord stores a big-endian 16-bit word to the requested address.
	StoreWord(addr uint16, v uint16) error
}

// FlatMemory represents an entire 16-bit address space as a singular
// 64K buffer, remembering which bytes have been stored.
type FlatMemory struct {
	b      [64 * 1024]byte
	stored [64 * 1024]bool
}

// NewFlatMemory creates a new 16-bit memory space.
func NewFlatMemory() *FlatMemory {
	return &FlatMemory{}
}

// LoadByte loads a single byte from the address and returns it.
func (m *FlatMemory) LoadByte(addr uint16) byte {
	return m.b[addr]
}

// LoadBytes loads multiple bytes from the address. Bytes beyond the end of
// the address space read as zero.
func (m *FlatMemory) LoadBytes(addr uint16, b []byte) {
	n := copy(b, m.b[addr:])
	clear(b[n:])
}

// LoadWord loads a 16-bit word from the requested address.
func (m *FlatMemory) LoadWord(addr uint16) uint16 {
	return uint16(m.b[addr])<<8 | uint16(m.b[addr+1])
}

// StoreByte stores a byte at the requested address.
func (m *FlatMemory) StoreByte(addr uint16, v byte) error {
	if m.stored[addr] && m.b[addr] != v {
		return Errorf(ErrLayout, "ambiguous overlap at >%04X", addr)
	}
	m.b[addr] = v
	m.stored[addr] = true
	return nil
}

// StoreBytes stores multiple bytes to the requested address.
func (m *FlatMemory) StoreBytes(addr uint16, b []byte) error {
	for i, v := range b {
		if err := m.StoreByte(addr+uint16(i), v); err != nil {
			return err
		}
	}
	return nil
}

// StoreWord stores a 16-bit word to the requested address.
func (m *FlatMemory) StoreWord(addr uint16, v uint16) error {
	if err := m.StoreByte(addr, byte(v>>8)); err != nil {
		return err
	}
	return m.StoreByte(addr+1, byte(v))
}

// Stored reports whether a byte has been stored at the address.
func (m *FlatMemory) Stored(addr uint16) bool {
	return m.stored[addr]
}

// Slice returns a copy of the bytes in [lo, hi).
func (m *FlatMemory) Slice(lo, hi int) []byte {
	b := make([]byte, hi-lo)
	copy(b, m.b[lo:hi])
	return b
}

// Load stores the contents of a segment into memory at its load address.
func Load(m Memory, s *Segment) error {
	for lc, e := range s.entries {
		addr := lc + s.Xorg
		b := Bytes(e)
		if addr < 0 || addr+len(b) > 0x10000 {
			return Errorf(ErrInvalidAddress, "segment data at >%X outside of memory", addr)
		}
		if err := m.StoreBytes(uint16(addr), b); err != nil {
			return err
		}
	}
	return nil
}
