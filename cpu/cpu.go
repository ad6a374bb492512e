// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu describes the TMS9900 family instruction sets: mnemonics,
// opcode values, instruction formats and execution timings.
package cpu

import "strings"

// Architecture selects the CPU chip: TMS9900 or TMS9995.
type Architecture byte

const (
	// TMS9900 is the original 16-bit CPU of the TI-99/4A.
	TMS9900 Architecture = iota

	// TMS9995 adds signed multiply/divide and status/workspace loads.
	TMS9995
)

var archNames = []string{"tms9900", "tms9995"}

func (a Architecture) String() string {
	if int(a) < len(archNames) {
		return archNames[a]
	}
	return "unknown"
}

// ParseArchitecture returns the architecture matching the name, which may
// be given with or without the "tms" prefix.
func ParseArchitecture(name string) (Architecture, bool) {
	n := strings.ToLower(name)
	if !strings.HasPrefix(n, "tms") {
		n = "tms" + n
	}
	for i, s := range archNames {
		if s == n {
			return Architecture(i), true
		}
	}
	return TMS9900, false
}

// Number of workspace registers.
const Registers = 16

// Mode describes the addressing mode of a general address operand. The
// numeric value is the two-bit T field of the instruction word.
type Mode byte

// All general addressing modes
const (
	REG Mode = 0 // Rn
	IND Mode = 1 // *Rn
	SYM Mode = 2 // @addr or @addr(Rn)
	INC Mode = 3 // *Rn+
)

// HasOperandWord reports whether the mode requires an extra word following
// the instruction.
func (m Mode) HasOperandWord() bool {
	return m == SYM
}
