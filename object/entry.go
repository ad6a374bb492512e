// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

// An Entry is one unit of generated content stored at a location counter
// of a segment. It is one of Abs, Address, Reference, Block, Auto or
// Empty.
type Entry interface {
	Size() int // number of bytes the entry occupies
	isEntry()
}

// Abs is an absolute word or byte.
type Abs struct {
	V    uint16
	Byte bool
}

// Block is a reserved run of uninitialized bytes.
type Block struct {
	Len int
}

// Auto is the pool slot of an auto-constant.
type Auto struct {
	Const *AutoConstant
}

// Empty marks a location without occupying space.
type Empty struct{}

func (e Abs) Size() int {
	if e.Byte {
		return 1
	}
	return 2
}

func (Address) Size() int   { return 2 }
func (Reference) Size() int { return 2 }
func (e Block) Size() int   { return e.Len }
func (e Auto) Size() int    { return e.Const.Size }
func (Empty) Size() int     { return 0 }

func (Abs) isEntry()       {}
func (Address) isEntry()   {}
func (Reference) isEntry() {}
func (Block) isEntry()     {}
func (Auto) isEntry()      {}
func (Empty) isEntry()     {}

// Bytes returns the big-endian contents of an entry. Blocks and empty
// entries have no contents, and unresolved references read as zero.
func Bytes(e Entry) []byte {
	switch e := e.(type) {
	case Abs:
		if e.Byte {
			return []byte{byte(e.V)}
		}
		return []byte{byte(e.V >> 8), byte(e.V)}
	case Address:
		return []byte{byte(e.Addr >> 8), byte(e.Addr)}
	case Reference:
		return []byte{0, 0}
	case Auto:
		if e.Const.Size == 1 {
			return []byte{byte(e.Const.Value)}
		}
		return []byte{byte(e.Const.Value >> 8), byte(e.Const.Value)}
	case Block, Empty:
		return nil
	default:
		panic("object: unknown entry")
	}
}

// WordEntry converts a value into the entry that stores it as a word.
func WordEntry(v Value) Entry {
	switch v := v.(type) {
	case Word:
		return Abs{V: uint16(v)}
	case Address:
		return v
	case Reference:
		return v
	default:
		return Abs{}
	}
}
