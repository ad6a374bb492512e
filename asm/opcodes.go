// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/go9900/cpu"
	"github.com/beevik/go9900/object"
)

// Pseudo instructions are rewritten to their canonical form before the
// statement is recorded.
var pseudoInstructions = map[string]struct {
	mnemonic string
	operands []string
}{
	"NOP": {"JMP", []string{"$+2"}},
	"RT":  {"B", []string{"*11"}},
}

// Rewrite a pseudo instruction in place.
func canonicalize(s *Statement) {
	p, ok := pseudoInstructions[s.Mnemonic]
	if !ok {
		return
	}
	s.Mnemonic = p.mnemonic
	s.Operands = s.Operands[:0]
	for _, op := range p.operands {
		s.Operands = append(s.Operands, newFstring(s.fileIndex, s.Line, op))
	}
}

// Return the instruction for a mnemonic. Mnemonics defined by DXOP map to
// XOP with a fixed operation number.
func (a *assembler) lookupInstruction(mnemonic string) (inst *cpu.Instruction, xop int) {
	if n, ok := a.xops[mnemonic]; ok {
		return a.instSet.GetInstruction("XOP"), n
	}
	return a.instSet.GetInstruction(mnemonic), -1
}

// Evaluate a count operand of a shift or CRU instruction.
func (a *assembler) count(op fstring, limit int) (int, error) {
	w, err := a.absolute(op)
	if err != nil {
		return 0, err
	}
	n := int(w)
	if n > limit {
		return 0, object.Errorf(object.ErrInvalidOperand, "Count out of range: %d", n)
	}
	return n & 0x0f, nil
}

// Assemble an instruction statement into the current segment.
func (a *assembler) assembleInstruction(s *Statement, inst *cpu.Instruction, xop int) error {
	word := inst.Opcode
	var ops []operand
	var imm object.Entry
	count := 0
	opnds := s.Operands

	operands := func(n int) error {
		if len(opnds) < n {
			return object.Errorf(object.ErrSyntax, "Missing operand")
		}
		if len(opnds) > n && a.opts.Syntax != Strict {
			return object.Errorf(object.ErrSyntax, "Too many operands")
		}
		return nil
	}
	general := func(op fstring) (operand, error) {
		o, err := a.gaddress(op)
		if err == nil {
			ops = append(ops, o)
		}
		return o, err
	}

	var err error
	switch inst.Format {
	case cpu.FormatI:
		if err = operands(2); err != nil {
			return err
		}
		var src, dst operand
		if src, err = general(opnds[0]); err != nil {
			return err
		}
		if dst, err = general(opnds[1]); err != nil {
			return err
		}
		word |= dst.field()<<6 | src.field()

	case cpu.FormatII:
		if err = operands(1); err != nil {
			return err
		}
		disp, err := a.jump(opnds[0])
		if err != nil {
			return err
		}
		word |= uint16(disp) & 0xff

	case cpu.FormatCRUBit:
		if err = operands(1); err != nil {
			return err
		}
		w, err := a.absolute(opnds[0])
		if err != nil {
			return err
		}
		if v := w.Signed(); v < -128 || v > 127 {
			return object.Errorf(object.ErrInvalidOperand, "CRU displacement out of range: %d", v)
		}
		word |= uint16(w) & 0xff

	case cpu.FormatIII:
		if err = operands(2); err != nil {
			return err
		}
		src, err := general(opnds[0])
		if err != nil {
			return err
		}
		reg, err := a.register(opnds[1])
		if err != nil {
			return err
		}
		word |= uint16(reg)<<6 | src.field()

	case cpu.FormatIV:
		if err = operands(2); err != nil {
			return err
		}
		src, err := general(opnds[0])
		if err != nil {
			return err
		}
		if count, err = a.count(opnds[1], 16); err != nil {
			return err
		}
		word |= uint16(count)<<6 | src.field()

	case cpu.FormatV:
		if err = operands(2); err != nil {
			return err
		}
		reg, err := a.register(opnds[0])
		if err != nil {
			return err
		}
		if count, err = a.count(opnds[1], 15); err != nil {
			return err
		}
		word |= uint16(count)<<4 | uint16(reg)

	case cpu.FormatVI:
		if err = operands(1); err != nil {
			return err
		}
		src, err := general(opnds[0])
		if err != nil {
			return err
		}
		word |= src.field()

	case cpu.FormatVII:
		// Anything in the operand field is a comment.

	case cpu.FormatVIII:
		if err = operands(2); err != nil {
			return err
		}
		reg, err := a.register(opnds[0])
		if err != nil {
			return err
		}
		if imm, err = a.immediate(opnds[1]); err != nil {
			return err
		}
		word |= uint16(reg)

	case cpu.FormatImm:
		if err = operands(1); err != nil {
			return err
		}
		if imm, err = a.immediate(opnds[0]); err != nil {
			return err
		}

	case cpu.FormatReg:
		if err = operands(1); err != nil {
			return err
		}
		reg, err := a.register(opnds[0])
		if err != nil {
			return err
		}
		word |= uint16(reg)

	case cpu.FormatIX:
		n := xop
		if xop < 0 {
			if err = operands(2); err != nil {
				return err
			}
			if n, err = a.count(opnds[1], 15); err != nil {
				return err
			}
		} else if err = operands(1); err != nil {
			return err
		}
		src, err := general(opnds[0])
		if err != nil {
			return err
		}
		word |= uint16(n)<<6 | src.field()
	}

	if a.pass == 2 {
		for i := range ops {
			if ops[i].mode == cpu.SYM && ops[i].auto == nil {
				if err := a.checkBank(ops[i].value, ops[i].cross); err != nil {
					return err
				}
			}
		}
		a.hints(inst, ops, opnds, imm)
		a.cycles = a.timing.cycles(inst, ops, count, s.pragma("demux", false))
	}

	if a.verbose {
		modes := make([]string, len(ops))
		for i := range ops {
			modes[i] = modeName[ops[i].mode]
		}
		a.logLine(s, "%-4s %04X %s", inst.Name, word, strings.Join(modes, ","))
	}
	a.emit(object.Abs{V: word})
	for i := range ops {
		if w, ok := ops[i].word(); ok {
			a.emit(w)
		}
	}
	if imm != nil {
		a.emit(imm)
	}
	return nil
}

// Evaluate an immediate operand into the word that stores it.
func (a *assembler) immediate(op fstring) (object.Entry, error) {
	v, err := a.expr(op)
	if err != nil {
		return nil, err
	}
	if v == nil && a.pass == 2 {
		return nil, object.Errorf(object.ErrUnknownSymbol, "Undefined value: %s", op.str)
	}
	return object.WordEntry(v), nil
}

// Evaluate a jump target into a word displacement.
func (a *assembler) jump(op fstring) (int, error) {
	op, cross := crossBank(op)
	v, err := a.expr(op)
	if err != nil || v == nil {
		if err == nil && a.pass == 2 {
			err = object.Errorf(object.ErrUnknownSymbol, "Undefined jump target")
		}
		return 0, err
	}

	var target object.Address
	switch v := v.(type) {
	case object.Reference:
		return 0, object.Errorf(object.ErrInvalidAddress, "Jump target cannot be external")
	case object.Word:
		target = object.AbsAddr(uint16(v))
	case object.Address:
		target = v
	}

	lc := a.here()
	if target.Reloc != lc.Reloc {
		return 0, object.Errorf(object.ErrInvalidAddress, "Jump between relocatable and absolute code")
	}
	if a.pass == 2 {
		if err := a.checkBank(target, cross); err != nil {
			return 0, err
		}
	}
	d := int(int16(target.Addr - lc.Addr - 2))
	if d%2 != 0 {
		return 0, object.Errorf(object.ErrInvalidAddress, "Jump to odd address")
	}
	d /= 2
	if d < -128 || d > 127 {
		if a.pass == 1 {
			return 0, nil
		}
		return 0, object.Errorf(object.ErrInvalidOperand, "Jump target out of range")
	}
	return d, nil
}

// Suggest shorter or faster equivalents and flag suspicious operands.
func (a *assembler) hints(inst *cpu.Instruction, ops []operand, opnds []fstring, imm object.Entry) {
	for i := range ops {
		if ops[i].regAddr {
			a.warn(CategorySuspicious, "Register used as symbolic address: %s", ops[i].src.str)
		}
	}

	switch inst.Name {
	case "B", "BL", "BLWP":
		if ops[0].mode == cpu.REG {
			a.warn(CategorySuspicious, "Branch to register: %s", ops[0].src.str)
		}
		if inst.Name == "B" && ops[0].mode == cpu.SYM && ops[0].reg == 0 && ops[0].auto == nil {
			if addr, ok := ops[0].value.(object.Address); ok {
				lc := a.here()
				d := int(int16(addr.Addr-lc.Addr-2)) / 2
				if addr.Reloc == lc.Reloc && addr.Bank == lc.Bank && d >= -128 && d <= 127 {
					a.warn(CategoryOptimization, "Possible jump instead of branch: %s", ops[0].src.str)
				}
			}
		}

	case "LI":
		if v, ok := imm.(object.Abs); ok {
			switch v.V {
			case 0:
				a.warn(CategoryOptimization, "Possible CLR instead of LI 0")
			case 0xffff:
				a.warn(CategoryOptimization, "Possible SETO instead of LI -1")
			}
		}

	case "AI":
		if v, ok := imm.(object.Abs); ok {
			alt := map[uint16]string{1: "INC", 2: "INCT", 0xffff: "DEC", 0xfffe: "DECT"}[v.V]
			if alt != "" {
				a.warn(CategoryOptimization, "Possible %s instead of AI %s", alt, opnds[1].str)
			}
		}
	}
}
