// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import "sort"

// A Segment is a contiguous run of generated entries sharing one
// location-counter space. Entries are keyed by their location counter.
type Segment struct {
	Bank  int  // NoBank, SharedBank or a bank number
	Reloc bool // location counters are relative to the unit start
	Dummy bool // DORG segment, assembled but never output
	Root  bool // segment opened at the start of assembly
	Xorg  int  // load address minus location counter
	Unit  int
	Min   int // first location counter
	Max   int // one past the last location counter

	entries map[int]Entry
	closed  bool
}

// NewSegment creates an empty segment starting at a location counter.
func NewSegment(lc int, reloc bool, bank, unit int) *Segment {
	return &Segment{
		Bank:    bank,
		Reloc:   reloc,
		Unit:    unit,
		Min:     lc,
		Max:     lc,
		entries: make(map[int]Entry),
	}
}

// Put stores an entry at a location counter.
func (s *Segment) Put(lc int, e Entry) {
	s.entries[lc] = e
	if lc < s.Min {
		s.Min = lc
	}
	if end := lc + e.Size(); end > s.Max {
		s.Max = end
	}
}

// At returns the entry stored at a location counter.
func (s *Segment) At(lc int) (Entry, bool) {
	e, ok := s.entries[lc]
	return e, ok
}

// LCs returns the location counters of all entries in ascending order.
func (s *Segment) LCs() []int {
	lcs := make([]int, 0, len(s.entries))
	for lc := range s.entries {
		lcs = append(lcs, lc)
	}
	sort.Ints(lcs)
	return lcs
}

// Len returns the number of entries in the segment.
func (s *Segment) Len() int {
	return len(s.entries)
}

// Close fixes the end of the segment at the final location counter.
func (s *Segment) Close(lc int) {
	if lc > s.Max {
		s.Max = lc
	}
	s.closed = true
}

// Closed reports whether the segment has been closed.
func (s *Segment) Closed() bool {
	return s.closed
}

// Empty reports whether the segment neither holds entries nor reserves
// any space.
func (s *Segment) Empty() bool {
	return len(s.entries) == 0 && s.Max == s.Min
}

// Extent returns the range of location counters holding data, ignoring
// reserved blocks. ok is false when the segment holds no data.
func (s *Segment) Extent() (lo, hi int, ok bool) {
	for lc, e := range s.entries {
		switch e.(type) {
		case Block, Empty:
			continue
		}
		end := lc + e.Size()
		if !ok || lc < lo {
			lo = lc
		}
		if !ok || end > hi {
			hi = end
		}
		ok = true
	}
	return lo, hi, ok
}

// Start returns the load address of the first location counter.
func (s *Segment) Start() int {
	return s.Min + s.Xorg
}

// End returns the load address one past the last location counter.
func (s *Segment) End() int {
	return s.Max + s.Xorg
}

func (s *Segment) clone() *Segment {
	c := *s
	c.entries = make(map[int]Entry, len(s.entries))
	for lc, e := range s.entries {
		c.entries[lc] = e
	}
	return &c
}

// A SaveRange is an address window selected with the SAVE directive.
type SaveRange struct {
	Start, End int
}

// A Program is the output of assembling a unit, or of linking several
// units together.
type Program struct {
	Name      string
	Segments  []*Segment
	Externals *Externals
	Saves     []SaveRange
	Entry     *Address
	Units     []int
}

// NewProgram creates an empty program for a unit.
func NewProgram(name string, unit int) *Program {
	return &Program{
		Name:      name,
		Externals: NewExternals(),
		Units:     []int{unit},
	}
}

// Current returns the segment most recently opened, or nil.
func (p *Program) Current() *Segment {
	if len(p.Segments) == 0 {
		return nil
	}
	return p.Segments[len(p.Segments)-1]
}

// OpenSegment closes the current segment and starts a new one.
func (p *Program) OpenSegment(s *Segment) *Segment {
	if c := p.Current(); c != nil && !c.closed {
		c.Close(c.Max)
	}
	p.Segments = append(p.Segments, s)
	return s
}

// Close closes the current segment at a location counter and drops
// segments that ended up empty.
func (p *Program) Close(lc int) {
	if c := p.Current(); c != nil && !c.closed {
		c.Close(lc)
	}
	segs := p.Segments[:0]
	for _, s := range p.Segments {
		if !s.Empty() {
			segs = append(segs, s)
		}
	}
	p.Segments = segs
}

// RelocSize returns the size of the relocatable code of a unit.
func (p *Program) RelocSize(unit int) int {
	size := 0
	for _, s := range p.Segments {
		if s.Reloc && !s.Dummy && s.Unit == unit && s.Max > size {
			size = s.Max
		}
	}
	return size
}

// Relocatable reports whether the program contains relocatable code.
func (p *Program) Relocatable() bool {
	for _, s := range p.Segments {
		if s.Reloc && !s.Dummy {
			return true
		}
	}
	return false
}

// Banks returns the sorted bank numbers used by the program's segments.
// Programs without banked code return nil.
func (p *Program) Banks() []int {
	seen := make(map[int]bool)
	var banks []int
	for _, s := range p.Segments {
		if s.Dummy || s.Bank < 0 || seen[s.Bank] {
			continue
		}
		seen[s.Bank] = true
		banks = append(banks, s.Bank)
	}
	sort.Ints(banks)
	return banks
}

// Resolve replaces every reference to an external symbol with its value
// and returns the number of replaced sites. Resolving a symbol a second
// time finds no sites and changes nothing.
func (p *Program) Resolve(name string, v Address) int {
	n := 0
	for _, s := range p.Segments {
		for lc, e := range s.entries {
			if r, ok := e.(Reference); ok && r.Name == name {
				s.entries[lc] = v
				n++
			}
		}
	}
	return n
}

// References returns the names of all unresolved references in the
// program's code, sorted.
func (p *Program) References() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range p.Segments {
		for _, e := range s.entries {
			if r, ok := e.(Reference); ok && !seen[r.Name] {
				seen[r.Name] = true
				names = append(names, r.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}
