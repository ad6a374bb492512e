// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"testing"

	"github.com/beevik/go9900/object"
)

func TestMerge(t *testing.T) {
	label := &Symbol{Kind: KindNone}
	equ := &Symbol{Kind: KindEQU}
	wequ := &Symbol{Kind: KindWEQU}

	tests := []struct {
		old    *Symbol
		kind   SymbolKind
		same   bool
		action mergeAction
		warn   bool
	}{
		{nil, KindNone, false, acceptNew, false},
		{nil, KindWEQU, false, acceptNew, false},
		{label, KindNone, true, reject, false},
		{label, KindEQU, true, reject, false},
		{equ, KindNone, true, reject, false},
		{equ, KindEQU, true, acceptOld, false},
		{equ, KindEQU, false, reject, false},
		{equ, KindWEQU, false, acceptOld, true},
		{wequ, KindEQU, false, acceptNew, true},
		{wequ, KindWEQU, false, acceptNew, true},
	}

	for i, test := range tests {
		action, warn := merge(test.old, test.kind, test.same)
		if action != test.action || warn != test.warn {
			t.Errorf("case %d: got %v/%v, exp %v/%v", i, action, warn, test.action, test.warn)
		}
	}
}

func TestSymbolPasses(t *testing.T) {
	s := NewSymbols()
	s.startPass(1)
	if err := s.AddLabel("L", object.RelAddr(2, 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddLabel("L", object.RelAddr(4, 1)); !errors.Is(err, object.ErrDuplicateSymbol) {
		t.Errorf("expected duplicate symbol, got %v", err)
	}
	s.GetSymbol("L")

	s.startPass(2)
	if err := s.AddLabel("L", object.RelAddr(2, 1)); err != nil {
		t.Errorf("redefinition in second pass: %v", err)
	}
	if sym := s.Lookup("L"); !sym.Used || !sym.Label {
		t.Errorf("flags lost: %+v", sym)
	}
}

func TestLocals(t *testing.T) {
	s := NewSymbols()
	s.startPass(1)
	addrs := map[int]uint16{1: 0x10, 4: 0x20, 7: 0x30}
	for _, pos := range []int{1, 4, 7} {
		s.at(pos, "test", pos)
		s.AddLocal("x", object.AbsAddr(addrs[pos]))
	}

	tests := []struct {
		pos, distance int
		addr          uint16
		ok            bool
	}{
		{4, -1, 0x20, true},
		{4, -2, 0x10, true},
		{4, 1, 0x30, true},
		{5, -1, 0x20, true},
		{5, 2, 0, false},
		{0, 1, 0x10, true},
		{0, 3, 0x30, true},
		{0, -1, 0, false},
	}
	for _, test := range tests {
		s.at(test.pos, "test", test.pos)
		a, ok := s.GetLocal("x", test.distance)
		if ok != test.ok || (ok && a.Addr != test.addr) {
			t.Errorf("pos %d distance %d: got %v %v", test.pos, test.distance, a, ok)
		}
	}

	// A second pass updates the addresses in place.
	s.startPass(2)
	s.at(4, "test", 4)
	s.AddLocal("x", object.AbsAddr(0x22))
	s.at(7, "test", 7)
	if a, ok := s.GetLocal("x", -2); !ok || a.Addr != 0x22 {
		t.Errorf("updated local: got %v %v", a, ok)
	}
}

func TestParseLocal(t *testing.T) {
	tests := []struct {
		s  string
		l  Local
		ok bool
	}{
		{"!x", Local{"x", 1}, true},
		{"!!x", Local{"x", 2}, true},
		{"-!x", Local{"x", -1}, true},
		{"--!x", Local{"x", -2}, true},
		{"-!!x", Local{}, false},
		{"x", Local{}, false},
	}
	for _, test := range tests {
		l, ok := ParseLocal(test.s)
		if ok != test.ok || l != test.l {
			t.Errorf("%s: got %v %v", test.s, l, ok)
		}
	}
}

func TestSwitchBank(t *testing.T) {
	s := NewSymbols()
	addr := 0x6000
	if lc := s.SwitchBank(0, &addr, 0); lc != 0x6000 {
		t.Errorf("bank 0: got >%04X", lc)
	}
	if lc := s.SwitchBank(1, &addr, 0x6100); lc != 0x6000 {
		t.Errorf("bank 1: got >%04X", lc)
	}
	if lc := s.SwitchBank(0, nil, 0x6040); lc != 0x6100 {
		t.Errorf("back to bank 0: got >%04X", lc)
	}
	if lc := s.SwitchBank(object.SharedBank, nil, 0x6110); lc != 0x6110 {
		t.Errorf("shared bank: got >%04X", lc)
	}
	if s.Bank() != object.SharedBank {
		t.Errorf("current bank: got %d", s.Bank())
	}
}
