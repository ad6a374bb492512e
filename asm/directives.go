// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"os"
	"strings"

	"github.com/beevik/go9900/object"
)

// How the label of a directive is bound.
type labelMode byte

const (
	labelLC   labelMode = iota // bound to the location counter
	labelEven                  // location counter is made even first
	labelOwn                   // the directive binds its label itself
	labelNone                  // the label is ignored
)

type directive struct {
	fn    func(a *assembler, s *Statement) error
	label labelMode
}

var directives = map[string]directive{
	"IDT":    {fn: (*assembler).parseIDT, label: labelNone},
	"DEF":    {fn: (*assembler).parseDEF},
	"REF":    {fn: (*assembler).parseREF},
	"SREF":   {fn: (*assembler).parseREF},
	"LOAD":   {fn: (*assembler).parseREF},
	"AORG":   {fn: (*assembler).parseAORG, label: labelOwn},
	"RORG":   {fn: (*assembler).parseRORG, label: labelOwn},
	"DORG":   {fn: (*assembler).parseDORG, label: labelOwn},
	"PSEG":   {fn: (*assembler).parseRORG, label: labelOwn},
	"PEND":   {fn: (*assembler).parseRORG, label: labelOwn},
	"CSEG":   {fn: (*assembler).parseRORG, label: labelOwn},
	"CEND":   {fn: (*assembler).parseRORG, label: labelOwn},
	"DSEG":   {fn: (*assembler).parseRORG, label: labelOwn},
	"DEND":   {fn: (*assembler).parseRORG, label: labelOwn},
	"BSS":    {fn: (*assembler).parseBSS},
	"BES":    {fn: (*assembler).parseBES, label: labelOwn},
	"EVEN":   {fn: (*assembler).parseEVEN, label: labelEven},
	"EQU":    {fn: (*assembler).parseEquate, label: labelOwn},
	"WEQU":   {fn: (*assembler).parseEquate, label: labelOwn},
	"REQU":   {fn: (*assembler).parseREQU, label: labelOwn},
	"DATA":   {fn: (*assembler).parseDATA, label: labelEven},
	"BYTE":   {fn: (*assembler).parseBYTE},
	"TEXT":   {fn: (*assembler).parseTEXT},
	"STRI":   {fn: (*assembler).parseSTRI},
	"END":    {fn: (*assembler).parseEND},
	"COPY":   {fn: (*assembler).parseCOPY, label: labelNone},
	"BCOPY":  {fn: (*assembler).parseBCOPY},
	"SAVE":   {fn: (*assembler).parseSAVE, label: labelNone},
	"BANK":   {fn: (*assembler).parseBANK, label: labelOwn},
	"XORG":   {fn: (*assembler).parseXORG, label: labelOwn},
	"AUTO":   {fn: (*assembler).parseAUTO},
	"DXOP":   {fn: (*assembler).parseDXOP, label: labelNone},
	"TITL":   {fn: (*assembler).parseTITL, label: labelNone},
	"PAGE":   {fn: (*assembler).parsePAGE, label: labelNone},
	"LIST":   {fn: (*assembler).parseLIST, label: labelNone},
	"UNL":    {fn: (*assembler).parseLIST, label: labelNone},
	"CKPT":   {fn: (*assembler).parseIgnored, label: labelNone},
	"OPTION": {fn: (*assembler).parseIgnored, label: labelNone},
}

// Return the text of a quoted text operand.
func (a *assembler) text(s *Statement, op fstring) (string, error) {
	t, ok := s.Text(op)
	if !ok {
		return "", object.Errorf(object.ErrSyntax, "Text literal expected: %s", op.str)
	}
	return t, nil
}

func (a *assembler) parseIDT(s *Statement) error {
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	name, err := a.text(s, s.Operands[0])
	if err != nil {
		return err
	}
	if len(name) > 8 {
		a.warn(CategorySuspicious, "Program name truncated to 8 characters")
		name = name[:8]
	}
	a.program.Name = name
	return nil
}

func (a *assembler) parseDEF(s *Statement) error {
	if err := s.expectOperands(1, 99); err != nil {
		return err
	}
	for _, op := range s.Operands {
		if !op.startsWith(identifierStartChar) {
			return object.Errorf(object.ErrSyntax, "Invalid symbol name: %s", op.str)
		}
		if a.pass == 2 {
			a.defs = append(a.defs, defRef{op.str, a.pos})
		}
	}
	return nil
}

func (a *assembler) parseREF(s *Statement) error {
	if err := s.expectOperands(1, 99); err != nil {
		return err
	}
	for _, op := range s.Operands {
		name := op.str
		if !op.startsWith(identifierStartChar) {
			return object.Errorf(object.ErrSyntax, "Invalid symbol name: %s", name)
		}
		a.program.Externals.AddRef(name)
		if sym := a.symbols.Lookup(name); sym != nil && sym.Value == object.Value(object.Reference{Name: name}) {
			continue
		}
		if _, err := a.symbols.AddSymbol(name, object.Reference{Name: name}, KindNone); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) parseAORG(s *Statement) error {
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	addr, err := a.wellDefined(s.Operands[0])
	if err != nil {
		return err
	}
	a.openSegment(int(addr), false, false, 0)
	return a.bindLabel(s)
}

func (a *assembler) parseRORG(s *Statement) error {
	lc := a.relocLC
	if a.reloc && !a.dummy {
		lc = a.lc
	}
	if s.Mnemonic == "RORG" && len(s.Operands) > 0 {
		v, err := a.expr(s.Operands[0])
		if err != nil {
			return err
		}
		switch v := v.(type) {
		case nil:
			return object.Errorf(object.ErrUnknownSymbol, "Undefined relocation origin")
		case object.Reference:
			return object.Errorf(object.ErrInvalidAddress, "Invalid relocation origin")
		default:
			lc = int(object.Val(v))
		}
	}
	a.openSegment(lc, true, false, 0)
	return a.bindLabel(s)
}

func (a *assembler) parseDORG(s *Statement) error {
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	v, err := a.expr(s.Operands[0])
	if err != nil {
		return err
	}
	if v == nil {
		return object.Errorf(object.ErrUnknownSymbol, "Undefined dummy origin")
	}
	reloc := false
	if addr, ok := v.(object.Address); ok {
		reloc = addr.Reloc
	}
	a.openSegment(int(object.Val(v)), reloc, true, 0)
	return a.bindLabel(s)
}

func (a *assembler) parseBSS(s *Statement) error {
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	n, err := a.wellDefined(s.Operands[0])
	if err != nil {
		return err
	}
	a.emit(object.Block{Len: int(n)})
	return nil
}

func (a *assembler) parseBES(s *Statement) error {
	if err := a.parseBSS(s); err != nil {
		return err
	}
	return a.bindLabel(s)
}

func (a *assembler) parseEVEN(s *Statement) error {
	a.even()
	return nil
}

func (a *assembler) parseEquate(s *Statement) error {
	if s.Label == "" {
		return object.Errorf(object.ErrSyntax, "Missing label")
	}
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	v, err := a.expr(s.Operands[0])
	if err != nil {
		return err
	}
	if v == nil && a.pass == 2 {
		return object.Errorf(object.ErrUnknownSymbol, "Undefined value for %s", s.Label)
	}
	kind := KindEQU
	if s.Mnemonic == "WEQU" {
		kind = KindWEQU
	}
	warning, err := a.symbols.AddSymbol(s.Label, v, kind)
	if warning != "" {
		a.warn(CategoryGeneral, "%s", warning)
	}
	return err
}

func (a *assembler) parseREQU(s *Statement) error {
	if s.Label == "" {
		return object.Errorf(object.ErrSyntax, "Missing label")
	}
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	r, err := a.register(s.Operands[0])
	if err != nil {
		return err
	}
	return a.symbols.AddRegisterAlias(s.Label, r)
}

func (a *assembler) parseDATA(s *Statement) error {
	if err := s.expectOperands(1, 999); err != nil {
		return err
	}
	for _, op := range s.Operands {
		v, err := a.expr(op)
		if err != nil {
			return err
		}
		if v == nil && a.pass == 2 {
			return object.Errorf(object.ErrUnknownSymbol, "Undefined value: %s", op.str)
		}
		a.emit(object.WordEntry(v))
	}
	return nil
}

// Evaluate an operand that must yield a byte.
func (a *assembler) byteValue(op fstring) (byte, error) {
	w, err := a.absolute(op)
	if err != nil {
		return 0, err
	}
	if v := w.Signed(); v < -128 || v > 255 {
		a.warn(CategorySuspicious, "Value truncated to byte: %s", op.str)
	}
	return byte(w), nil
}

func (a *assembler) emitBytes(b []byte) {
	for _, c := range b {
		a.emit(object.Abs{V: uint16(c), Byte: true})
	}
}

func (a *assembler) parseBYTE(s *Statement) error {
	if err := s.expectOperands(1, 999); err != nil {
		return err
	}
	for _, op := range s.Operands {
		b, err := a.byteValue(op)
		if err != nil {
			return err
		}
		a.emitBytes([]byte{b})
	}
	return nil
}

// Collect the bytes of text operands. A minus sign in front of a literal
// negates its last byte.
func (a *assembler) textBytes(s *Statement) ([]byte, error) {
	if err := s.expectOperands(1, 999); err != nil {
		return nil, err
	}
	var b []byte
	for _, op := range s.Operands {
		negate := op.startsWithChar('-')
		if negate {
			op = op.consume(1)
		}
		t, err := a.text(s, op)
		if err != nil {
			return nil, err
		}
		bytes := []byte(t)
		if negate && len(bytes) > 0 {
			bytes[len(bytes)-1] = -bytes[len(bytes)-1]
		}
		b = append(b, bytes...)
	}
	return b, nil
}

func (a *assembler) parseTEXT(s *Statement) error {
	b, err := a.textBytes(s)
	if err == nil {
		a.emitBytes(b)
	}
	return err
}

func (a *assembler) parseSTRI(s *Statement) error {
	b, err := a.textBytes(s)
	if err != nil {
		return err
	}
	if len(b) > 255 {
		return object.Errorf(object.ErrInvalidOperand, "String too long")
	}
	a.emitBytes(append([]byte{byte(len(b))}, b...))
	return nil
}

func (a *assembler) parseEND(s *Statement) error {
	a.end = true
	if len(s.Operands) == 0 || s.Operands[0].isEmpty() {
		return nil
	}
	v, err := a.expr(s.Operands[0])
	switch v := v.(type) {
	case nil:
		if err == nil && a.pass == 2 {
			return object.Errorf(object.ErrUnknownSymbol, "Undefined entry point")
		}
	case object.Address:
		a.program.Entry = &v
	case object.Word:
		addr := object.AbsAddr(uint16(v))
		a.program.Entry = &addr
	case object.Reference:
		return object.Errorf(object.ErrInvalidAddress, "Entry point cannot be external")
	}
	return err
}

// Resolve the file name operand of COPY and BCOPY.
func (a *assembler) includeFile(s *Statement) (string, error) {
	if err := s.expectOperands(1, 1); err != nil {
		return "", err
	}
	name, err := a.text(s, s.Operands[0])
	if err != nil {
		return "", err
	}
	return findFile(name, s.File, a.opts.IncludePaths)
}

func (a *assembler) parseCOPY(s *Statement) error {
	if a.pass == 2 {
		return nil
	}
	path, err := a.includeFile(s)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return object.Errorf(object.ErrIO, "%v", err)
	}
	defer file.Close()
	lines, err := readLines(file)
	if err != nil {
		return object.Errorf(object.ErrIO, "%v", err)
	}
	a.parser.files = append(a.parser.files, path)
	a.log("Including file '%s'", path)
	return a.sources.push(&frame{fileIndex: len(a.parser.files) - 1, lines: lines})
}

func (a *assembler) parseBCOPY(s *Statement) error {
	if a.pass == 1 {
		path, err := a.includeFile(s)
		if err != nil {
			return err
		}
		if s.Data, err = os.ReadFile(path); err != nil {
			return object.Errorf(object.ErrIO, "%v", err)
		}
	}
	a.emitBytes(s.Data)
	return nil
}

func (a *assembler) parseSAVE(s *Statement) error {
	if err := s.expectOperands(2, 2); err != nil {
		return err
	}
	start, err := a.wellDefined(s.Operands[0])
	if err != nil {
		return err
	}
	end, err := a.wellDefined(s.Operands[1])
	if err != nil {
		return err
	}
	if a.pass == 2 {
		a.program.Saves = append(a.program.Saves, object.SaveRange{Start: int(start), End: int(end)})
	}
	return nil
}

func (a *assembler) parseBANK(s *Statement) error {
	if err := s.expectOperands(1, 2); err != nil {
		return err
	}
	bank := object.SharedBank
	if !strings.EqualFold(s.Operands[0].str, "ALL") {
		n, err := a.wellDefined(s.Operands[0])
		if err != nil {
			return err
		}
		bank = int(n)
	}
	var addr *int
	if len(s.Operands) > 1 {
		v, err := a.wellDefined(s.Operands[1])
		if err != nil {
			return err
		}
		n := int(v)
		addr = &n
	}
	lc := a.lc
	if a.reloc {
		lc = 0
	}
	lc = a.symbols.SwitchBank(bank, addr, lc)
	a.openSegment(lc, false, false, 0)
	return a.bindLabel(s)
}

func (a *assembler) parseXORG(s *Statement) error {
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	if a.reloc {
		return object.Errorf(object.ErrInvalidAddress, "XORG requires absolute code")
	}
	addr, err := a.wellDefined(s.Operands[0])
	if err != nil {
		return err
	}
	load := a.lc + a.xorg
	a.openSegment(int(addr), false, a.dummy, load-int(addr))
	return a.bindLabel(s)
}

func (a *assembler) parseAUTO(s *Statement) error {
	a.placeAutos()
	return nil
}

func (a *assembler) parseDXOP(s *Statement) error {
	if err := s.expectOperands(2, 2); err != nil {
		return err
	}
	name := s.Operands[0].str
	if !s.Operands[0].startsWith(identifierStartChar) {
		return object.Errorf(object.ErrSyntax, "Invalid name: %s", name)
	}
	n, err := a.wellDefined(s.Operands[1])
	if err != nil {
		return err
	}
	if n > 15 {
		return object.Errorf(object.ErrInvalidOperand, "Invalid XOP number: %d", n)
	}
	a.xops[strings.ToUpper(name)] = int(n)
	return nil
}

func (a *assembler) parseTITL(s *Statement) error {
	if err := s.expectOperands(1, 1); err != nil {
		return err
	}
	title, err := a.text(s, s.Operands[0])
	if err == nil && a.pass == 2 {
		a.listing.Title = title
	}
	return err
}

func (a *assembler) parsePAGE(s *Statement) error {
	a.pageBreak = true
	return nil
}

func (a *assembler) parseLIST(s *Statement) error {
	a.listOn = s.Mnemonic == "LIST"
	return nil
}

func (a *assembler) parseIgnored(s *Statement) error {
	return nil
}
