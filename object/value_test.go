// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"errors"
	"testing"
)

func TestWordArithmetic(t *testing.T) {
	neg7 := Word(0xfff9)
	cases := []struct {
		name string
		got  Word
		exp  Word
	}{
		{"add wraps", Word(0xffff).Add(1), 0},
		{"sub wraps", Word(0).Sub(1), 0xffff},
		{"mul", Word(0x100).Mul(0x100), 0},
		{"smul", neg7.SMul(2), 0xfff2},
		{"pow", Word(2).Pow(10), 1024},
		{"pow zero", Word(5).Pow(0), 1},
		{"shl", Word(1).Shl(15), 0x8000},
		{"shl clears", Word(1).Shl(16), 0},
		{"shr logical", Word(0x8000).Shr(15), 1},
		{"not", Word(0x00ff).Not(), 0xff00},
		{"neg", Word(1).Neg(), 0xffff},
	}
	for _, c := range cases {
		if c.got != c.exp {
			t.Errorf("%s: exp >%04X, got >%04X", c.name, c.exp, c.got)
		}
	}
}

func TestWordDivision(t *testing.T) {
	neg7 := Word(0xfff9)
	if q, _ := neg7.SDiv(2); q.Signed() != -3 {
		t.Errorf("signed division: exp -3, got %d", q.Signed())
	}
	if r, _ := neg7.SMod(2); r.Signed() != -1 {
		t.Errorf("signed remainder: exp -1, got %d", r.Signed())
	}
	if q, _ := neg7.Div(2); q != 0x7ffc {
		t.Errorf("unsigned division: exp >7FFC, got >%04X", q)
	}
	if r, _ := neg7.Mod(2); r != 1 {
		t.Errorf("unsigned remainder: exp 1, got %d", r)
	}
	for _, f := range []func(Word) (Word, error){neg7.Div, neg7.SDiv, neg7.Mod, neg7.SMod} {
		if _, err := f(0); !errors.Is(err, ErrDivisionByZero) {
			t.Errorf("expected division by zero, got %v", err)
		}
	}
}

func TestAddress(t *testing.T) {
	a := RelAddr(0x10, 3)
	if a.Add(4) != RelAddr(0x14, 3) {
		t.Error("Add should keep the relocation tags")
	}
	r := a.Relocate(0xa000)
	if r.Reloc || r.Addr != 0xa010 || r.Unit != 3 {
		t.Errorf("Relocate incorrect: %+v", r)
	}
	if AbsAddr(0x8300).Relocate(0xa000) != AbsAddr(0x8300) {
		t.Error("Relocate should not move absolute addresses")
	}
	if a.String() != ">0010'" || AbsAddr(0x8300).String() != ">8300" {
		t.Errorf("unexpected address strings %s %s", a, AbsAddr(0x8300))
	}
	if Val(a) != 0x10 || Val(Word(7)) != 7 || Val(Reference{"X"}) != 0 {
		t.Error("Val incorrect")
	}
}

func TestEntrySizes(t *testing.T) {
	c := &AutoConstant{Size: 1, Value: 0x42}
	entries := []struct {
		e    Entry
		size int
		data []byte
	}{
		{Abs{V: 0x1234}, 2, []byte{0x12, 0x34}},
		{Abs{V: 0x12, Byte: true}, 1, []byte{0x12}},
		{RelAddr(0xa000, 1), 2, []byte{0xa0, 0x00}},
		{Reference{"EXT"}, 2, []byte{0, 0}},
		{Block{Len: 6}, 6, nil},
		{Auto{Const: c}, 1, []byte{0x42}},
		{Empty{}, 0, nil},
	}
	for _, c := range entries {
		if c.e.Size() != c.size {
			t.Errorf("%T: size exp %d, got %d", c.e, c.size, c.e.Size())
		}
		if string(Bytes(c.e)) != string(c.data) {
			t.Errorf("%T: bytes exp %X, got %X", c.e, c.data, Bytes(c.e))
		}
	}
}

func TestAutoConstantOrder(t *testing.T) {
	b1 := &AutoConstant{Size: 1, Value: 9}
	w1 := &AutoConstant{Size: 2, Value: 1}
	w2 := &AutoConstant{Size: 2, Value: 2}
	if !b1.Less(w1) || !w1.Less(w2) || w2.Less(w1) {
		t.Error("auto-constants should order bytes first, then by value")
	}
}
