// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"errors"
	"testing"
)

// Create a relocatable unit holding the given entries, one after another.
func relocUnit(name string, unit int, entries ...Entry) *Program {
	p := NewProgram(name, unit)
	s := p.OpenSegment(NewSegment(0, true, NoBank, unit))
	lc := 0
	for _, e := range entries {
		s.Put(lc, e)
		lc += e.Size()
	}
	p.Close(lc)
	return p
}

// Create an absolute program holding the given entries at an address.
func absProgram(name string, unit, addr int, entries ...Entry) *Program {
	p := NewProgram(name, unit)
	s := p.OpenSegment(NewSegment(addr, false, NoBank, unit))
	lc := addr
	for _, e := range entries {
		s.Put(lc, e)
		lc += e.Size()
	}
	p.Close(lc)
	return p
}

func expectOffsets(t *testing.T, got Offsets, exp Offsets) {
	for u, o := range exp {
		if got[u] != o {
			t.Errorf("unit %d: offset exp >%04X, got >%04X", u, o, got[u])
		}
	}
}

func TestLayoutDefault(t *testing.T) {
	u1 := relocUnit("A", 1, Abs{V: 1}, Abs{V: 2})
	u2 := relocUnit("B", 2, Abs{V: 3}, Abs{V: 4, Byte: true})
	u3 := relocUnit("C", 3, Abs{V: 5})

	l := &Linker{Base: 0xa000}
	offsets, err := l.Layout([]*Program{u1, u2, u3})
	if err != nil {
		t.Fatal(err)
	}
	expectOffsets(t, offsets, Offsets{1: 0xa000, 2: 0xa004, 3: 0xa008})
}

func TestLayoutDefaultKeepsOverlap(t *testing.T) {
	fixed := absProgram("ABS", 1, 0xa000, Abs{V: 0xffff}, Abs{V: 0xffff})
	u := relocUnit("REL", 2, Abs{V: 1})

	l := &Linker{Base: 0xa000}
	offsets, err := l.Layout([]*Program{fixed, u})
	if err != nil {
		t.Fatal(err)
	}
	expectOffsets(t, offsets, Offsets{2: 0xa000})
}

func TestLayoutResolveConflicts(t *testing.T) {
	fixed := absProgram("ABS", 1, 0xa000, Abs{V: 0xffff}, Abs{V: 0xffff})
	u2 := relocUnit("REL", 2, Abs{V: 1})
	u3 := relocUnit("REL", 3, Abs{V: 2})

	l := &Linker{Base: 0xa000, ResolveConflicts: true}
	offsets, err := l.Layout([]*Program{fixed, u2, u3})
	if err != nil {
		t.Fatal(err)
	}
	expectOffsets(t, offsets, Offsets{2: 0xa004, 3: 0xa006})

	linked, err := l.Link(fixed, u2, u3)
	if err != nil {
		t.Fatal(err)
	}
	bins, err := linked.Binaries(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(bins) != 1 || bins[0].Addr != 0xa000 || string(bins[0].Data) != "\xff\xff\xff\xff\x00\x01\x00\x02" {
		t.Errorf("unexpected linked image %+v", bins)
	}
}

func TestLayoutFails(t *testing.T) {
	fixed := absProgram("ABS", 1, 0xa000, Block{Len: 0x6000})
	u := relocUnit("REL", 2, Abs{V: 1})

	l := &Linker{Base: 0xa000, ResolveConflicts: true}
	_, err := l.Layout([]*Program{fixed, u})
	if !errors.Is(err, ErrLayout) {
		t.Fatalf("expected layout error, got %v", err)
	}
	if err.Error() != "cannot find layout for units 2, 1" {
		t.Errorf("unexpected message '%v'", err)
	}
}

func TestLayoutRoundsPerUnit(t *testing.T) {
	// Two rows of 60 words with gaps of one word. Each unit is moved past
	// every word of its row.
	var programs []*Program
	for k := 0; k < 60; k++ {
		programs = append(programs,
			absProgram("ROW1", 10+k, 0xa000+4*k, Abs{V: 0xffff}),
			absProgram("ROW2", 100+k, 0xa0f2+4*k, Abs{V: 0xffff}))
	}
	programs = append(programs,
		relocUnit("A", 1, Abs{V: 1}, Abs{V: 2}),
		relocUnit("B", 2, Abs{V: 3}, Abs{V: 4}))

	l := &Linker{Base: 0xa000, ResolveConflicts: true}
	offsets, err := l.Layout(programs)
	if err != nil {
		t.Fatal(err)
	}
	expectOffsets(t, offsets, Offsets{1: 0xa0ee, 2: 0xa1e0})
}

func TestLinkResolvesReferences(t *testing.T) {
	u1 := relocUnit("MAIN", 1, Abs{V: 0x0460}, Reference{"SUB"}, RelAddr(0, 1))
	u1.Externals.AddRef("SUB")
	entry := RelAddr(0, 1)
	u1.Entry = &entry

	u2 := relocUnit("LIB", 2, Abs{V: 0x045b})
	u2.Externals.AddDef("SUB", RelAddr(0, 2))

	l := &Linker{Base: 0xa000}
	linked, err := l.Link(u1, u2)
	if err != nil {
		t.Fatal(err)
	}
	if linked.Entry == nil || linked.Entry.Addr != 0xa000 || linked.Entry.Reloc {
		t.Errorf("entry not relocated: %+v", linked.Entry)
	}
	if a := linked.Externals.Defs["SUB"]; a.Addr != 0xa006 || a.Reloc {
		t.Errorf("definition not relocated: %+v", a)
	}
	bins, err := linked.Binaries(true)
	if err != nil {
		t.Fatal(err)
	}
	exp := "\x04\x60\xa0\x06\xa0\x00\x04\x5b"
	if len(bins) != 1 || string(bins[0].Data) != exp {
		t.Errorf("unexpected image %X", bins[0].Data)
	}
	if len(linked.Externals.Refs) != 0 {
		t.Errorf("no references should remain, got %v", linked.Externals.Refs)
	}
}

func TestLinkUnresolved(t *testing.T) {
	u := relocUnit("MAIN", 1, Reference{"NOWHERE"}, Reference{"VDPWD"})

	l := &Linker{Base: 0xa000}
	if _, err := l.Link(u); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("expected unknown symbol, got %v", err)
	}

	l.Quiet = true
	linked, err := l.Link(u)
	if err != nil {
		t.Fatal(err)
	}
	bins, _ := linked.Binaries(false)
	if string(bins[0].Data) != "\x00\x00\x8c\x00" {
		t.Errorf("unexpected image %X", bins[0].Data)
	}
	if len(linked.Externals.Refs) != 1 || linked.Externals.Refs[0] != "NOWHERE" {
		t.Errorf("unexpected remaining references %v", linked.Externals.Refs)
	}
}

func TestLinkDuplicateDefinition(t *testing.T) {
	u1 := relocUnit("A", 1, Abs{V: 1})
	u1.Externals.AddDef("X", RelAddr(0, 1))
	u2 := relocUnit("B", 2, Abs{V: 2})
	u2.Externals.AddDef("X", RelAddr(0, 2))

	l := &Linker{}
	if _, err := l.Link(u1, u2); !errors.Is(err, ErrDuplicateSymbol) {
		t.Errorf("expected duplicate symbol, got %v", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	p := absProgram("P", 1, 0x2000, Reference{"X"}, Abs{V: 7}, Reference{"X"})
	if n := p.Resolve("X", AbsAddr(0x1234)); n != 2 {
		t.Errorf("expected 2 sites, got %d", n)
	}
	if n := p.Resolve("X", AbsAddr(0x5678)); n != 0 {
		t.Errorf("second resolve should find nothing, got %d", n)
	}
	e, _ := p.Current().At(0x2004)
	if e != Entry(AbsAddr(0x1234)) {
		t.Errorf("resolved value changed: %+v", e)
	}
}
