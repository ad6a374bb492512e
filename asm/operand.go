// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/go9900/cpu"
	"github.com/beevik/go9900/object"
)

var modeName = []string{
	"REG",
	"IND",
	"SYM",
	"INC",
}

// A general address operand of an instruction.
type operand struct {
	mode    cpu.Mode
	reg     int          // register, or index register of SYM operands
	value   object.Value // address of SYM operands, nil when unknown
	auto    *object.AutoConstant
	cross   bool // X# prefix allows cross-bank access
	regAddr bool // symbolic address written as a register name
	src     fstring
}

// Return the extra instruction word of the operand, if any.
func (o *operand) word() (object.Entry, bool) {
	if o.mode != cpu.SYM {
		return nil, false
	}
	return object.WordEntry(o.value), true
}

// Return the T and S/D fields of the operand.
func (o *operand) field() uint16 {
	return uint16(o.mode)<<4 | uint16(o.reg)
}

// Strip a cross-bank prefix.
func crossBank(op fstring) (fstring, bool) {
	if op.startsWithFold("X#") {
		return op.consume(2), true
	}
	return op, false
}

// Decode a general address operand:
//
//	Rn          workspace register
//	*Rn         register indirect
//	*Rn+        register indirect auto-increment
//	@expr       symbolic
//	@expr(Rn)   indexed
//	W#expr      auto-constant word
//	B#expr      auto-constant byte
//
// An X# prefix in front of a symbolic operand permits an address in
// another bank.
func (a *assembler) gaddress(op fstring) (o operand, err error) {
	o.src = op
	op, o.cross = crossBank(op)
	if !o.cross && op.startsWithChar('@') {
		if rest, ok := crossBank(op.consume(1)); ok {
			op, o.cross = rest.with("@"+rest.str), true
		}
	}

	switch {
	case op.startsWithChar('*'):
		r := op.consume(1)
		if strings.HasSuffix(r.str, "+") {
			o.mode = cpu.INC
			r = r.trunc(len(r.str) - 1)
		} else {
			o.mode = cpu.IND
		}
		o.reg, err = a.register(r)

	case op.startsWithChar('@'):
		o.mode = cpu.SYM
		e, idx := splitIndex(op.consume(1))
		if idx != nil {
			if o.reg, err = a.register(*idx); err != nil {
				return o, err
			}
			if o.reg == 0 {
				return o, object.Errorf(object.ErrInvalidRegister, "Cannot use R0 as index register")
			}
		}
		if _, isReg := a.registerName(e.str); isReg {
			o.regAddr = true
		}
		o.value, err = a.expr(e)

	case op.startsWithFold("W#") || op.startsWithFold("B#"):
		size := 2
		if op.startsWithFold("B#") {
			size = 1
		}
		o.mode = cpu.SYM
		o.auto, o.value, err = a.autoConstant(op.consume(2), size)

	default:
		if o.cross {
			return o, object.Errorf(object.ErrSyntax, "Cross-bank prefix requires a symbolic operand")
		}
		o.mode = cpu.REG
		o.reg, err = a.register(op)
	}
	return o, err
}

// Split "expr(Rn)" into the expression and the index register.
func splitIndex(op fstring) (e fstring, idx *fstring) {
	s := op.str
	if !strings.HasSuffix(s, ")") {
		return op, nil
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth != 0 {
				continue
			}
			if i == 0 || strings.IndexByte("+-*/%&|^~<>(", s[i-1]) >= 0 {
				return op, nil
			}
			r := op.consume(i + 1).trunc(len(s) - i - 2)
			return op.trunc(i), &r
		}
	}
	return op, nil
}

// Return the register a name stands for, if it is a register name.
func (a *assembler) registerName(name string) (int, bool) {
	if r, ok := a.symbols.Register(name); ok {
		return r, true
	}
	if a.opts.Syntax == Strict || len(name) < 2 || (name[0] != 'R' && name[0] != 'r') {
		return 0, false
	}
	n := 0
	for _, c := range []byte(name[1:]) {
		if !decimal(c) {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n >= cpu.Registers {
			return 0, false
		}
	}
	return n, true
}

// Decode a workspace register operand.
func (a *assembler) register(op fstring) (int, error) {
	if r, ok := a.registerName(op.str); ok {
		return r, nil
	}
	w, err := a.absolute(op)
	if err != nil {
		return 0, err
	}
	if int(w) >= cpu.Registers {
		return 0, object.Errorf(object.ErrInvalidRegister, "Invalid register: %s", op.str)
	}
	return int(w), nil
}

// Look up or create the auto-constant of an operand and return the
// address of its pool slot.
func (a *assembler) autoConstant(op fstring, size int) (*object.AutoConstant, object.Value, error) {
	v, err := a.expr(op)
	if err != nil {
		return nil, nil, err
	}
	if v == nil {
		if a.pass == 1 {
			return nil, nil, nil
		}
		return nil, nil, object.Errorf(object.ErrUnknownSymbol, "Auto-constant value unknown")
	}
	switch v.(type) {
	case object.Reference:
		return nil, nil, object.Errorf(object.ErrInvalidAddress, "Auto-constant cannot refer to an external symbol")
	case object.Address:
		if v.(object.Address).Reloc {
			return nil, nil, object.Errorf(object.ErrInvalidAddress, "Auto-constant must be absolute")
		}
	}
	value := object.Val(v)
	if size == 1 {
		value &= 0xff
	}
	c := a.autos.get(size, value, a.symbols.Bank(), a.pass == 1)
	if c == nil || c.Addr == nil {
		if a.pass == 1 {
			return c, nil, nil
		}
		return c, nil, object.Errorf(object.ErrSyntax, "Missing AUTO directive")
	}
	return c, *c.Addr, nil
}

// Check the bank of a symbolic address against the current bank.
func (a *assembler) checkBank(v object.Value, cross bool) error {
	addr, ok := v.(object.Address)
	if !ok || cross || addr.Bank < 0 {
		return nil
	}
	if bank := a.symbols.Bank(); bank >= 0 && bank != addr.Bank {
		return object.Errorf(object.ErrInvalidAddress, "Invalid cross-bank access to bank %d", addr.Bank)
	}
	return nil
}
