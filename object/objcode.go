// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

const (
	recordWidth = 64 // tag content per record, before the checksum
	lineWidth   = 76 // record width, before the sequence number
)

// ObjectCode reads and writes programs in TI tagged object code format.
// External references are stored as chains: each site holds the address
// of the previous site using the same symbol, and the REF tag holds the
// address of the last one.
type ObjectCode struct {
	Program *Program
	Unit    int    // unit id given to programs read from object code
	Creator string // written to the end-of-file record
}

// A word cell of object code.
type cell struct {
	tag byte // 'B' absolute or 'C' relocatable
	v   uint16
	ref string // external symbol using this site
}

type site struct {
	addr  int
	reloc bool
}

// WriteTo writes the program as object code records.
func (o *ObjectCode) WriteTo(w io.Writer) (int64, error) {
	p := o.Program
	rw := &recordWriter{w: bufio.NewWriter(w), resync: true}

	unit := 0
	if len(p.Units) > 0 {
		unit = p.Units[0]
	}
	rw.add(fmt.Sprintf("0%04X%-8.8s", p.RelocSize(unit), p.Name))

	last := make(map[string]site)
	for _, s := range p.Segments {
		if s.Dummy {
			continue
		}
		cells, err := segmentCells(s)
		if err != nil {
			return rw.n, err
		}
		addrs := make([]int, 0, len(cells))
		for a := range cells {
			addrs = append(addrs, a)
		}
		sort.Ints(addrs)
		for _, a := range addrs {
			c := cells[a]
			if c.ref != "" {
				prev, ok := last[c.ref]
				c.tag, c.v = 'B', 0
				if ok {
					c.v = uint16(prev.addr)
					if prev.reloc {
						c.tag = 'C'
					}
				}
				last[c.ref] = site{a, s.Reloc}
			}
			rw.word(a, s.Reloc, c.tag, c.v)
		}
	}

	for _, name := range p.Externals.Refs {
		tag, head := byte('4'), 0
		if s, ok := last[name]; ok {
			head = s.addr
			if s.reloc {
				tag = '3'
			}
		}
		rw.add(fmt.Sprintf("%c%04X%-6.6s", tag, head, name))
	}
	for _, name := range p.Externals.DefNames() {
		a := p.Externals.Defs[name]
		tag := byte('6')
		if a.Reloc {
			tag = '5'
		}
		rw.add(fmt.Sprintf("%c%04X%-6.6s", tag, a.Addr, name))
	}
	if p.Entry != nil {
		tag := byte('1')
		if p.Entry.Reloc {
			tag = '2'
		}
		rw.add(fmt.Sprintf("%c%04X", tag, p.Entry.Addr))
	}
	rw.flush()

	creator := o.Creator
	if creator == "" {
		creator = "go9900"
	}
	rw.line(":       " + creator)
	if rw.err == nil {
		rw.err = rw.w.Flush()
	}
	return rw.n, rw.err
}

// Convert the entries of a segment into word cells keyed by load address.
func segmentCells(s *Segment) (map[int]*cell, error) {
	cells := make(map[int]*cell)
	setByte := func(addr int, b byte) error {
		c, ok := cells[addr&^1]
		if !ok {
			c = &cell{tag: 'B'}
			cells[addr&^1] = c
		}
		if c.tag != 'B' || c.ref != "" {
			return Errorf(ErrInvalidAddress, "byte at >%04X overlaps an address word", addr)
		}
		if addr&1 == 0 {
			c.v = c.v&0x00ff | uint16(b)<<8
		} else {
			c.v = c.v&0xff00 | uint16(b)
		}
		return nil
	}
	setWord := func(addr int, c *cell) error {
		if addr&1 != 0 {
			return Errorf(ErrInvalidAddress, "misaligned word at >%04X", addr)
		}
		cells[addr] = c
		return nil
	}

	for lc, e := range s.entries {
		addr := lc + s.Xorg
		var err error
		switch e := e.(type) {
		case Abs:
			if !e.Byte && addr&1 == 0 {
				err = setWord(addr, &cell{tag: 'B', v: e.V})
				break
			}
			for i, b := range Bytes(e) {
				if err = setByte(addr+i, b); err != nil {
					break
				}
			}
		case Address:
			tag := byte('B')
			if e.Reloc {
				tag = 'C'
			}
			err = setWord(addr, &cell{tag: tag, v: e.Addr})
		case Reference:
			err = setWord(addr, &cell{ref: e.Name})
		case Auto:
			for i, b := range Bytes(e) {
				if err = setByte(addr+i, b); err != nil {
					break
				}
			}
		case Block, Empty:
		}
		if err != nil {
			return nil, err
		}
	}
	return cells, nil
}

type recordWriter struct {
	w       *bufio.Writer
	buf     []byte
	seq     int
	lc      int
	lcReloc bool
	resync  bool // next data word must set the location counter
	n       int64
	err     error
}

func (r *recordWriter) add(tag string) {
	if len(r.buf)+len(tag) > recordWidth {
		r.flush()
	}
	r.buf = append(r.buf, tag...)
}

func (r *recordWriter) word(addr int, reloc bool, tag byte, v uint16) {
	item := fmt.Sprintf("%c%04X", tag, v)
	if r.resync || addr != r.lc || reloc != r.lcReloc {
		if len(r.buf)+2*len(item) > recordWidth {
			r.flush()
		}
		lcTag := byte('9')
		if reloc {
			lcTag = 'A'
		}
		r.buf = append(r.buf, fmt.Sprintf("%c%04X", lcTag, addr)...)
	} else if len(r.buf)+len(item) > recordWidth {
		r.flush()
		r.word(addr, reloc, tag, v)
		return
	}
	r.buf = append(r.buf, item...)
	r.lc, r.lcReloc, r.resync = addr+2, reloc, false
}

func (r *recordWriter) flush() {
	if len(r.buf) == 0 {
		return
	}
	r.buf = append(r.buf, '7')
	r.buf = append(r.buf, fmt.Sprintf("%04XF", checksum(r.buf))...)
	r.line(string(r.buf))
	r.buf = r.buf[:0]
	r.resync = true
}

func (r *recordWriter) line(s string) {
	if r.err != nil {
		return
	}
	r.seq++
	n, err := fmt.Fprintf(r.w, "%-*s%04d\n", lineWidth, s, r.seq)
	r.n += int64(n)
	if err != nil {
		r.err = Errorf(ErrIO, "%v", err)
	}
}

// Two's complement of the byte sum of a record up to and including the
// checksum tag.
func checksum(b []byte) uint16 {
	var sum uint16
	for _, c := range b {
		sum += uint16(c)
	}
	return -sum
}

// ReadFrom reads a program from object code records. The program is
// assigned the unit id o.Unit.
func (o *ObjectCode) ReadFrom(r io.Reader) (int64, error) {
	type key struct {
		reloc bool
		addr  int
	}
	type ref struct {
		name string
		head site
	}

	var n int64
	p := NewProgram("", o.Unit)
	words := make(map[key]cell)
	var refs []ref
	relocSize := 0
	lc, lcReloc := 0, false

	scanner := bufio.NewScanner(r)
	lineNo := 0
	done := false
	for !done && scanner.Scan() {
		line := scanner.Text()
		n += int64(len(line)) + 1
		lineNo++

		bad := func() error {
			return Errorf(ErrIO, "invalid object code in line %d", lineNo)
		}
		field := func(i, width int) (string, bool) {
			if i+width > len(line) {
				return "", false
			}
			return line[i : i+width], true
		}
		hex := func(i int) (int, bool) {
			s, ok := field(i, 4)
			if !ok {
				return 0, false
			}
			v, err := strconv.ParseUint(s, 16, 16)
			return int(v), err == nil
		}

	record:
		for i := 0; i < len(line); {
			tag := line[i]
			switch tag {
			case ':':
				done = true
				break record
			case 'F':
				break record
			case '0':
				v, ok := hex(i + 1)
				name, ok2 := field(i+5, 8)
				if !ok || !ok2 {
					return n, bad()
				}
				relocSize = v
				p.Name = strings.TrimSpace(name)
				i += 13
			case '1', '2':
				v, ok := hex(i + 1)
				if !ok {
					return n, bad()
				}
				e := AbsAddr(uint16(v))
				if tag == '2' {
					e = RelAddr(uint16(v), o.Unit)
				}
				p.Entry = &e
				i += 5
			case '3', '4', '5', '6':
				v, ok := hex(i + 1)
				name, ok2 := field(i+5, 6)
				if !ok || !ok2 {
					return n, bad()
				}
				name = strings.TrimSpace(name)
				switch tag {
				case '3', '4':
					refs = append(refs, ref{name, site{v, tag == '3'}})
					p.Externals.AddRef(name)
				case '5':
					p.Externals.AddDef(name, RelAddr(uint16(v), o.Unit))
				case '6':
					p.Externals.AddDef(name, AbsAddr(uint16(v)))
				}
				i += 11
			case '7':
				v, ok := hex(i + 1)
				if !ok {
					return n, bad()
				}
				if checksum([]byte(line[:i+1])) != uint16(v) {
					return n, Errorf(ErrIO, "checksum error in line %d", lineNo)
				}
				i += 5
			case '8':
				i += 5
			case '9', 'A':
				v, ok := hex(i + 1)
				if !ok {
					return n, bad()
				}
				lc, lcReloc = v, tag == 'A'
				i += 5
			case 'B', 'C':
				v, ok := hex(i + 1)
				if !ok {
					return n, bad()
				}
				words[key{lcReloc, lc}] = cell{tag: tag, v: uint16(v)}
				lc += 2
				i += 5
			default:
				return n, bad()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return n, Errorf(ErrIO, "%v", err)
	}

	// Walk the reference chains and turn each site into a reference entry.
	// A chain ends at absolute address 0; relocatable 0 is a valid site. A
	// site at an odd address spans the bytes of two neighboring words.
	sites := make(map[key]string)
	for _, rf := range refs {
		at := rf.head
		seen := make(map[key]bool)
		for at.reloc || at.addr != 0 {
			k := key{at.reloc, at.addr}
			if seen[k] {
				return n, Errorf(ErrIO, "circular reference chain for %s", rf.name)
			}
			seen[k] = true
			var next uint16
			var nextReloc bool
			if at.addr&1 == 0 {
				c, ok := words[k]
				if !ok {
					return n, Errorf(ErrIO, "broken reference chain for %s", rf.name)
				}
				next, nextReloc = c.v, c.tag == 'C'
			} else {
				hi, ok1 := words[key{at.reloc, at.addr - 1}]
				lo, ok2 := words[key{at.reloc, at.addr + 1}]
				if !ok1 || !ok2 {
					return n, Errorf(ErrIO, "broken reference chain for %s", rf.name)
				}
				next, nextReloc = hi.v<<8|lo.v>>8, hi.tag == 'C'
			}
			sites[k] = rf.name
			at = site{int(next), nextReloc}
		}
	}

	for _, reloc := range []bool{false, true} {
		var addrs []int
		for k := range words {
			if k.reloc == reloc {
				addrs = append(addrs, k.addr)
			}
		}
		sort.Ints(addrs)
		var seg *Segment
		for _, a := range addrs {
			if seg == nil || a > seg.Max {
				seg = p.OpenSegment(NewSegment(a, reloc, NoBank, o.Unit))
			}
			c := words[key{reloc, a}]
			if name, ok := sites[key{reloc, a}]; ok {
				seg.Put(a, Reference{Name: name})
				continue
			}
			hiSite, hiOK := sites[key{reloc, a + 1}]
			_, loOK := sites[key{reloc, a - 1}]
			switch {
			case hiOK:
				seg.Put(a, Abs{V: c.v >> 8, Byte: true})
				seg.Put(a+1, Reference{Name: hiSite})
			case loOK:
				seg.Put(a+1, Abs{V: c.v & 0xff, Byte: true})
			case c.tag == 'C':
				seg.Put(a, RelAddr(c.v, o.Unit))
			default:
				seg.Put(a, Abs{V: c.v})
			}
		}
	}
	if relocSize > p.RelocSize(o.Unit) {
		s := p.OpenSegment(NewSegment(p.RelocSize(o.Unit), true, NoBank, o.Unit))
		s.Close(relocSize)
	}
	p.Close(0)

	glog.V(1).Infof("read object code %q: %d segments, %d refs, %d defs",
		p.Name, len(p.Segments), len(p.Externals.Refs), len(p.Externals.Defs))
	o.Program = p
	return n, nil
}
