// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/go9900/object"
)

// An entry generated by a statement, at its location counter.
type listEntry struct {
	lc int
	e  object.Entry
}

// A ListingWord is one word of generated code in the listing. A pair of
// bytes shares a word; a lone byte leaves the low half blank.
type ListingWord struct {
	LC   int
	Text string
}

// A ListingLine is the listing of one source statement.
type ListingLine struct {
	Row     int // source line number
	File    string
	Source  string
	LC      int // location counter, valid when HasLC is set
	HasLC   bool
	Reloc   bool
	Words   []ListingWord
	Cycles  int
	NewPage bool // PAGE directive preceded the statement
}

// A Listing is the annotated source of a unit.
type Listing struct {
	Title string
	Lines []ListingLine
}

func (l *Listing) add(s *Statement, start object.Address, listed []listEntry, cycles int, page bool) {
	line := ListingLine{
		Row:     s.Line,
		File:    s.File,
		Source:  s.Source,
		Reloc:   start.Reloc,
		Cycles:  cycles,
		NewPage: page,
	}
	if len(listed) > 0 {
		line.LC, line.HasLC = listed[0].lc, true
	} else if s.Label != "" {
		line.LC, line.HasLC = int(start.Addr), true
	}

	for _, le := range listed {
		switch e := le.e.(type) {
		case object.Block, object.Empty:
		case object.Abs:
			if !e.Byte {
				line.Words = append(line.Words, ListingWord{le.lc, hexWord(e.V)})
				break
			}
			n := len(line.Words)
			if n > 0 && le.lc&1 == 1 && line.Words[n-1].LC == le.lc-1 && strings.HasSuffix(line.Words[n-1].Text, "  ") {
				line.Words[n-1].Text = line.Words[n-1].Text[:2] + hexByte(byte(e.V))
				break
			}
			line.Words = append(line.Words, ListingWord{le.lc, hexByte(byte(e.V)) + "  "})
		case object.Auto:
			b := object.Bytes(e)
			if len(b) == 1 {
				line.Words = append(line.Words, ListingWord{le.lc, hexByte(b[0]) + "  "})
			} else {
				line.Words = append(line.Words, ListingWord{le.lc, hexWord(uint16(b[0])<<8 | uint16(b[1]))})
			}
		case object.Address:
			line.Words = append(line.Words, ListingWord{le.lc, valueText(e)})
		case object.Reference:
			line.Words = append(line.Words, ListingWord{le.lc, valueText(e)})
		}
	}
	l.Lines = append(l.Lines, line)
}

// WriteTo writes the listing. The first line of a statement shows its
// line number, location counter, first word, cycles and source text;
// further words follow on continuation lines.
func (l *Listing) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	bw := bufio.NewWriter(cw)

	header := func() {
		if l.Title != "" {
			fmt.Fprintf(bw, "%s\n\n", l.Title)
		}
	}
	header()

	for _, line := range l.Lines {
		if line.NewPage {
			bw.WriteString("\f\n")
			header()
		}

		addr, word, cycles := "    ", "", ""
		if line.HasLC {
			addr = hexWord(uint16(line.LC))
		}
		if len(line.Words) > 0 {
			addr = hexWord(uint16(line.Words[0].LC))
			word = line.Words[0].Text
		}
		if line.Cycles > 0 {
			cycles = fmt.Sprintf("%d", line.Cycles)
		}
		text := fmt.Sprintf("%04d %s %-5s %3s %s", line.Row, addr, word, cycles, line.Source)
		bw.WriteString(strings.TrimRight(text, " "))
		bw.WriteByte('\n')

		for i := 1; i < len(line.Words); i++ {
			text := fmt.Sprintf("     %s %s", hexWord(uint16(line.Words[i].LC)), line.Words[i].Text)
			bw.WriteString(strings.TrimRight(text, " "))
			bw.WriteByte('\n')
		}
	}

	err := bw.Flush()
	return cw.n, err
}

// WriteSymbols writes the symbols of a unit sorted by name, one per line
// as "NAME......... >XXXX". With equ set, the symbols are written as EQU
// statements that another source can include.
func WriteSymbols(w io.Writer, s *Symbols, equ bool) error {
	bw := bufio.NewWriter(w)
	for _, name := range s.Names() {
		sym := s.Lookup(name)
		if equ {
			if _, ref := sym.Value.(object.Reference); ref || sym.Value == nil {
				continue
			}
			fmt.Fprintf(bw, "%-8s EQU >%s\n", name, hexWord(object.Val(sym.Value)))
			continue
		}
		fmt.Fprintf(bw, "%s >%s\n", padDots(name, 13), valueText(sym.Value))
	}
	return bw.Flush()
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
