// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"strings"

	"github.com/golang/glog"
)

// Maximum number of times the linker moves one unit past a conflict
// before giving up. Each unit has its own count.
const maxLayoutRounds = 99

// Offsets maps unit ids to the base address of their relocatable code.
type Offsets map[int]uint16

// A Linker combines programs into one absolute program.
type Linker struct {
	Base             uint16 // address of the first relocatable unit
	ResolveConflicts bool   // move units clear of absolute code
	Quiet            bool   // leave unresolved references as zero
}

type interval struct {
	lo, hi int
	bank   int
	unit   int
}

func (i interval) overlaps(o interval) bool {
	if i.bank >= 0 && o.bank >= 0 && i.bank != o.bank {
		return false
	}
	return i.lo < o.hi && o.lo < i.hi
}

type unitLayout struct {
	id    int
	size  int
	reloc []interval
}

func align(v int) int {
	return (v + 1) &^ 1
}

// Layout assigns an offset to every unit of the programs. By default units
// are placed back to back starting at the base address, even when that
// places them on top of absolute code. With ResolveConflicts set, a unit
// overlapping absolute code or an earlier unit is moved past the conflict.
func (l *Linker) Layout(programs []*Program) (Offsets, error) {
	var units []*unitLayout
	var fixed []interval
	for _, p := range programs {
		for _, id := range p.Units {
			units = append(units, &unitLayout{id: id, size: p.RelocSize(id)})
		}
		for _, s := range p.Segments {
			if s.Dummy || s.Empty() {
				continue
			}
			if !s.Reloc {
				fixed = append(fixed, interval{s.Start(), s.End(), s.Bank, s.Unit})
				continue
			}
			for _, u := range units {
				if u.id == s.Unit {
					u.reloc = append(u.reloc, interval{s.Min, s.Max, NoBank, s.Unit})
				}
			}
		}
	}

	offsets := make(Offsets)
	next := int(l.Base)
	for _, u := range units {
		off := next
		if l.ResolveConflicts {
			rounds := 0
			for {
				iv, hit, ok := conflict(u, off, fixed)
				if !ok {
					break
				}
				rounds++
				off = align(hit.hi - iv.lo)
				glog.V(2).Infof("unit %d conflicts with unit %d at >%04X, moving to >%04X", u.id, hit.unit, hit.lo, off)
				if rounds > maxLayoutRounds || off+u.size > 0x10000 {
					return nil, Errorf(ErrLayout, "cannot find layout for units %d, %d", u.id, hit.unit)
				}
			}
			for _, iv := range u.reloc {
				fixed = append(fixed, interval{iv.lo + off, iv.hi + off, NoBank, u.id})
			}
		}
		offsets[u.id] = uint16(off)
		glog.V(1).Infof("unit %d placed at >%04X (%d bytes)", u.id, off, u.size)
		next = align(off + u.size)
	}
	return offsets, nil
}

func conflict(u *unitLayout, off int, fixed []interval) (iv, hit interval, ok bool) {
	for _, iv := range u.reloc {
		moved := interval{iv.lo + off, iv.hi + off, NoBank, u.id}
		for _, f := range fixed {
			if moved.overlaps(f) {
				return iv, f, true
			}
		}
	}
	return interval{}, interval{}, false
}

// Link lays out the programs and combines them into a single absolute
// program. References to symbols defined by one of the programs are
// resolved. Other references are left unresolved and read as zero; unless
// the linker is quiet they are reported as an error.
func (l *Linker) Link(programs ...*Program) (*Program, error) {
	if len(programs) == 0 {
		return nil, Errorf(ErrLayout, "nothing to link")
	}
	offsets, err := l.Layout(programs)
	if err != nil {
		return nil, err
	}

	out := &Program{Name: programs[0].Name, Externals: NewExternals()}
	for _, p := range programs {
		for _, s := range p.Segments {
			out.Segments = append(out.Segments, relocate(s, offsets))
		}
		for _, name := range p.Externals.DefNames() {
			a := p.Externals.Defs[name].Relocate(offsets[p.Externals.Defs[name].Unit])
			if old, dup := out.Externals.Defs[name]; dup && old != a {
				return nil, Errorf(ErrDuplicateSymbol, "duplicate definition of %s", name)
			}
			out.Externals.AddDef(name, a)
		}
		if p.Entry != nil && out.Entry == nil {
			e := p.Entry.Relocate(offsets[p.Entry.Unit])
			out.Entry = &e
		}
		out.Saves = append(out.Saves, p.Saves...)
		out.Units = append(out.Units, p.Units...)
	}

	var unresolved []string
	for _, name := range out.References() {
		if a, ok := out.Externals.Defs[name]; ok {
			out.Resolve(name, a)
		} else if v, ok := Builtin(name); ok {
			out.Resolve(name, AbsAddr(v))
		} else {
			out.Externals.AddRef(name)
			unresolved = append(unresolved, name)
		}
	}
	if len(unresolved) > 0 && !l.Quiet {
		return nil, Errorf(ErrUnknownSymbol, "unresolved references: %s", strings.Join(unresolved, ", "))
	}
	return out, nil
}

// Relocate a segment and all the relocatable addresses it contains.
func relocate(s *Segment, offsets Offsets) *Segment {
	c := s.clone()
	if s.Reloc {
		off := int(offsets[s.Unit])
		c.Reloc = false
		c.Min += off
		c.Max += off
		c.entries = make(map[int]Entry, len(s.entries))
		for lc, e := range s.entries {
			c.entries[lc+off] = e
		}
	}
	for lc, e := range c.entries {
		switch e := e.(type) {
		case Address:
			if e.Reloc {
				c.entries[lc] = e.Relocate(offsets[e.Unit])
			}
		case Abs, Reference, Block, Auto, Empty:
		}
	}
	return c
}
