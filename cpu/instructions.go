// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"sort"
	"strings"
)

// Format identifies the operand layout of an instruction word.
type Format byte

// All instruction formats
const (
	FormatI     Format = iota + 1 // two general addresses
	FormatII                      // jump with 8-bit displacement
	FormatIII                     // general source, register destination
	FormatIV                      // CRU multi-bit transfer
	FormatV                       // shift register by count
	FormatVI                      // single general address
	FormatVII                     // no operand
	FormatVIII                    // register and immediate value
	FormatIX                      // extended operation
	FormatCRUBit                  // single CRU bit with 8-bit displacement
	FormatImm                     // immediate value only
	FormatReg                     // register only
)

var formatName = []string{
	"", "I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "CRU", "IMM", "REG",
}

func (f Format) String() string {
	if int(f) < len(formatName) {
		return formatName[f]
	}
	return "?"
}

// Opcode data for a single mnemonic
type opcodeData struct {
	name     string
	opcode   uint16
	format   Format
	byteOp   bool // operates on bytes instead of words
	cycles   byte // base clock cycles
	alt      byte // cycles when a jump is not taken
	accesses byte // base memory accesses
	arch     Architecture
}

var data = []opcodeData{
	// format I
	{"A", 0xa000, FormatI, false, 14, 0, 4, TMS9900},
	{"AB", 0xb000, FormatI, true, 14, 0, 4, TMS9900},
	{"C", 0x8000, FormatI, false, 14, 0, 3, TMS9900},
	{"CB", 0x9000, FormatI, true, 14, 0, 3, TMS9900},
	{"S", 0x6000, FormatI, false, 14, 0, 4, TMS9900},
	{"SB", 0x7000, FormatI, true, 14, 0, 4, TMS9900},
	{"SOC", 0xe000, FormatI, false, 14, 0, 4, TMS9900},
	{"SOCB", 0xf000, FormatI, true, 14, 0, 4, TMS9900},
	{"SZC", 0x4000, FormatI, false, 14, 0, 4, TMS9900},
	{"SZCB", 0x5000, FormatI, true, 14, 0, 4, TMS9900},
	{"MOV", 0xc000, FormatI, false, 14, 0, 4, TMS9900},
	{"MOVB", 0xd000, FormatI, true, 14, 0, 4, TMS9900},

	// format II
	{"JMP", 0x1000, FormatII, false, 10, 10, 1, TMS9900},
	{"JLT", 0x1100, FormatII, false, 10, 8, 1, TMS9900},
	{"JLE", 0x1200, FormatII, false, 10, 8, 1, TMS9900},
	{"JEQ", 0x1300, FormatII, false, 10, 8, 1, TMS9900},
	{"JHE", 0x1400, FormatII, false, 10, 8, 1, TMS9900},
	{"JGT", 0x1500, FormatII, false, 10, 8, 1, TMS9900},
	{"JNE", 0x1600, FormatII, false, 10, 8, 1, TMS9900},
	{"JNC", 0x1700, FormatII, false, 10, 8, 1, TMS9900},
	{"JOC", 0x1800, FormatII, false, 10, 8, 1, TMS9900},
	{"JNO", 0x1900, FormatII, false, 10, 8, 1, TMS9900},
	{"JL", 0x1a00, FormatII, false, 10, 8, 1, TMS9900},
	{"JH", 0x1b00, FormatII, false, 10, 8, 1, TMS9900},
	{"JOP", 0x1c00, FormatII, false, 10, 8, 1, TMS9900},

	// single CRU bit
	{"SBO", 0x1d00, FormatCRUBit, false, 12, 0, 2, TMS9900},
	{"SBZ", 0x1e00, FormatCRUBit, false, 12, 0, 2, TMS9900},
	{"TB", 0x1f00, FormatCRUBit, false, 12, 0, 2, TMS9900},

	// format III
	{"COC", 0x2000, FormatIII, false, 14, 0, 3, TMS9900},
	{"CZC", 0x2400, FormatIII, false, 14, 0, 3, TMS9900},
	{"XOR", 0x2800, FormatIII, false, 14, 0, 4, TMS9900},
	{"MPY", 0x3800, FormatIII, false, 52, 0, 5, TMS9900},
	{"DIV", 0x3c00, FormatIII, false, 124, 0, 6, TMS9900},

	// format IV
	{"LDCR", 0x3000, FormatIV, false, 20, 0, 3, TMS9900},
	{"STCR", 0x3400, FormatIV, false, 42, 0, 4, TMS9900},

	// format V
	{"SRA", 0x0800, FormatV, false, 12, 0, 3, TMS9900},
	{"SRL", 0x0900, FormatV, false, 12, 0, 3, TMS9900},
	{"SLA", 0x0a00, FormatV, false, 12, 0, 3, TMS9900},
	{"SRC", 0x0b00, FormatV, false, 12, 0, 3, TMS9900},

	// format VI
	{"BLWP", 0x0400, FormatVI, false, 26, 0, 6, TMS9900},
	{"B", 0x0440, FormatVI, false, 8, 0, 2, TMS9900},
	{"X", 0x0480, FormatVI, false, 8, 0, 2, TMS9900},
	{"CLR", 0x04c0, FormatVI, false, 10, 0, 3, TMS9900},
	{"NEG", 0x0500, FormatVI, false, 12, 0, 3, TMS9900},
	{"INV", 0x0540, FormatVI, false, 10, 0, 3, TMS9900},
	{"INC", 0x0580, FormatVI, false, 10, 0, 3, TMS9900},
	{"INCT", 0x05c0, FormatVI, false, 10, 0, 3, TMS9900},
	{"DEC", 0x0600, FormatVI, false, 10, 0, 3, TMS9900},
	{"DECT", 0x0640, FormatVI, false, 10, 0, 3, TMS9900},
	{"BL", 0x0680, FormatVI, false, 12, 0, 3, TMS9900},
	{"SWPB", 0x06c0, FormatVI, false, 10, 0, 3, TMS9900},
	{"SETO", 0x0700, FormatVI, false, 10, 0, 3, TMS9900},
	{"ABS", 0x0740, FormatVI, false, 12, 0, 3, TMS9900},

	// format VII
	{"IDLE", 0x0340, FormatVII, false, 12, 0, 1, TMS9900},
	{"RSET", 0x0360, FormatVII, false, 12, 0, 1, TMS9900},
	{"RTWP", 0x0380, FormatVII, false, 14, 0, 4, TMS9900},
	{"CKON", 0x03a0, FormatVII, false, 12, 0, 1, TMS9900},
	{"CKOF", 0x03c0, FormatVII, false, 12, 0, 1, TMS9900},
	{"LREX", 0x03e0, FormatVII, false, 12, 0, 1, TMS9900},

	// format VIII
	{"LI", 0x0200, FormatVIII, false, 12, 0, 3, TMS9900},
	{"AI", 0x0220, FormatVIII, false, 14, 0, 4, TMS9900},
	{"ANDI", 0x0240, FormatVIII, false, 14, 0, 4, TMS9900},
	{"ORI", 0x0260, FormatVIII, false, 14, 0, 4, TMS9900},
	{"CI", 0x0280, FormatVIII, false, 14, 0, 3, TMS9900},
	{"LWPI", 0x02e0, FormatImm, false, 10, 0, 2, TMS9900},
	{"LIMI", 0x0300, FormatImm, false, 16, 0, 2, TMS9900},
	{"STWP", 0x02a0, FormatReg, false, 8, 0, 2, TMS9900},
	{"STST", 0x02c0, FormatReg, false, 8, 0, 2, TMS9900},

	// format IX
	{"XOP", 0x2c00, FormatIX, false, 36, 0, 8, TMS9900},

	// TMS9995 only
	{"LST", 0x0080, FormatReg, false, 10, 0, 2, TMS9995},
	{"LWP", 0x0090, FormatReg, false, 10, 0, 2, TMS9995},
	{"DIVS", 0x0180, FormatVI, false, 132, 0, 6, TMS9995},
	{"MPYS", 0x01c0, FormatVI, false, 56, 0, 5, TMS9995},
}

// An Instruction describes a CPU instruction, including its name, its
// opcode value, its operand format and its execution cost.
type Instruction struct {
	Name      string // all-caps name of the instruction
	Opcode    uint16 // opcode with all operand fields cleared
	Format    Format // operand layout
	ByteOp    bool   // instruction operates on bytes
	Cycles    int    // base number of clock cycles
	AltCycles int    // clock cycles when a conditional jump is not taken
	Accesses  int    // base number of memory accesses
}

// An InstructionSet defines the set of all instructions available on a
// CPU architecture.
type InstructionSet struct {
	Arch         Architecture
	instructions map[string]*Instruction
}

// GetInstruction returns the instruction with the given mnemonic, or nil
// if the architecture does not know it.
func (s *InstructionSet) GetInstruction(name string) *Instruction {
	return s.instructions[strings.ToUpper(name)]
}

// Names returns the sorted list of all mnemonics in the instruction set.
func (s *InstructionSet) Names() []string {
	names := make([]string, 0, len(s.instructions))
	for n := range s.instructions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Create an instruction set for a CPU architecture.
func newInstructionSet(arch Architecture) *InstructionSet {
	set := &InstructionSet{
		Arch:         arch,
		instructions: make(map[string]*Instruction, len(data)),
	}
	for _, d := range data {
		if d.arch > arch {
			continue
		}
		set.instructions[d.name] = &Instruction{
			Name:      d.name,
			Opcode:    d.opcode,
			Format:    d.format,
			ByteOp:    d.byteOp,
			Cycles:    int(d.cycles),
			AltCycles: int(d.alt),
			Accesses:  int(d.accesses),
		}
	}
	return set
}

var instructionSets [2]*InstructionSet

// GetInstructionSet returns an instruction set for the requested CPU
// architecture.
func GetInstructionSet(arch Architecture) *InstructionSet {
	if instructionSets[arch] == nil {
		// Lazy-create the instruction set.
		instructionSets[arch] = newInstructionSet(arch)
	}
	return instructionSets[arch]
}
