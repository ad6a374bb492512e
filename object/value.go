// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object holds the program model shared by the TMS9900 assembler
// and linker: addresses, words and external references, the segments a
// program is assembled into, the linker, and the encoders that turn a
// linked program into object code, binaries, program images, cartridges
// and text dumps.
package object

import "fmt"

// Bank tags of an address.
const (
	NoBank     = -2 // address is not in banked memory
	SharedBank = -1 // address is valid in every bank
)

// A Value is the result of evaluating an expression. It is one of Word,
// Address or Reference.
type Value interface {
	isValue()
}

// Val dereferences a value to its 16-bit contents. References are not
// resolved yet and yield zero.
func Val(v Value) uint16 {
	switch v := v.(type) {
	case Word:
		return uint16(v)
	case Address:
		return v.Addr
	case Reference:
		return 0
	default:
		return 0
	}
}

// A Word is an absolute 16-bit value. All arithmetic wraps around.
type Word uint16

func (Word) isValue() {}

// Signed returns the two's complement interpretation of the word.
func (w Word) Signed() int16 {
	return int16(w)
}

func (w Word) Add(v Word) Word  { return w + v }
func (w Word) Sub(v Word) Word  { return w - v }
func (w Word) Mul(v Word) Word  { return w * v }
func (w Word) SMul(v Word) Word { return Word(uint16(int16(w) * int16(v))) }
func (w Word) And(v Word) Word  { return w & v }
func (w Word) Or(v Word) Word   { return w | v }
func (w Word) Xor(v Word) Word  { return w ^ v }
func (w Word) Not() Word        { return ^w }
func (w Word) Neg() Word        { return -w }

// Shl shifts the word left. Counts of 16 or more clear the word.
func (w Word) Shl(v Word) Word {
	if v >= 16 {
		return 0
	}
	return w << v
}

// Shr shifts the word right, filling with zeros.
func (w Word) Shr(v Word) Word {
	if v >= 16 {
		return 0
	}
	return w >> v
}

// Pow raises the word to an unsigned power.
func (w Word) Pow(v Word) Word {
	r := Word(1)
	for b, e := w, v; e != 0; e >>= 1 {
		if e&1 != 0 {
			r *= b
		}
		b *= b
	}
	return r
}

// Div performs an unsigned division.
func (w Word) Div(v Word) (Word, error) {
	if v == 0 {
		return 0, Errorf(ErrDivisionByZero, "division by zero")
	}
	return w / v, nil
}

// SDiv performs a signed division truncating toward zero.
func (w Word) SDiv(v Word) (Word, error) {
	if v == 0 {
		return 0, Errorf(ErrDivisionByZero, "division by zero")
	}
	return Word(uint16(int32(int16(w)) / int32(int16(v)))), nil
}

// Mod returns the unsigned remainder.
func (w Word) Mod(v Word) (Word, error) {
	if v == 0 {
		return 0, Errorf(ErrDivisionByZero, "division by zero")
	}
	return w % v, nil
}

// SMod returns the signed remainder, which has the sign of the dividend.
func (w Word) SMod(v Word) (Word, error) {
	if v == 0 {
		return 0, Errorf(ErrDivisionByZero, "division by zero")
	}
	return Word(uint16(int32(int16(w)) % int32(int16(v)))), nil
}

// An Address is a location in a program. Relocatable addresses are
// relative to the start of the unit that defined them until the linker
// assigns the unit an offset.
type Address struct {
	Addr  uint16
	Reloc bool
	Bank  int // NoBank, SharedBank or a bank number
	Unit  int // unit that defined the address
}

func (Address) isValue() {}

// Abs returns an absolute address outside of banked memory.
func AbsAddr(addr uint16) Address {
	return Address{Addr: addr, Bank: NoBank}
}

// Rel returns an address relative to the start of a unit.
func RelAddr(addr uint16, unit int) Address {
	return Address{Addr: addr, Reloc: true, Bank: NoBank, Unit: unit}
}

// Add returns the address moved by an offset, keeping all tags.
func (a Address) Add(offset int) Address {
	a.Addr = uint16(int(a.Addr) + offset)
	return a
}

// Relocate turns a relocatable address into an absolute one using the
// base address of its unit. Absolute addresses are returned unchanged.
func (a Address) Relocate(base uint16) Address {
	if !a.Reloc {
		return a
	}
	a.Addr += base
	a.Reloc = false
	return a
}

// String renders the address the way listings show it, with a trailing
// quote marking relocatable addresses.
func (a Address) String() string {
	if a.Reloc {
		return fmt.Sprintf(">%04X'", a.Addr)
	}
	return fmt.Sprintf(">%04X", a.Addr)
}

// A Reference names an external symbol whose value is supplied by another
// unit at link time.
type Reference struct {
	Name string
}

func (Reference) isValue() {}

// An AutoConstant is a byte or word constant placed in the pool of the
// bank that uses it. Addr is nil until the pool is laid out.
type AutoConstant struct {
	Size  int // 1 or 2
	Value uint16
	Bank  int
	Addr  *Address
}

// Less orders auto-constants by size, value and bank.
func (c *AutoConstant) Less(o *AutoConstant) bool {
	if c.Size != o.Size {
		return c.Size < o.Size
	}
	if c.Value != o.Value {
		return c.Value < o.Value
	}
	return c.Bank < o.Bank
}
