// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TextFlavor selects the language of a text dump.
type TextFlavor byte

// All text dump flavors
const (
	TextAssembly TextFlavor = iota
	TextBasic
	TextC
)

// TextFlavorNames lists the names of the flavors, indexed by flavor.
var TextFlavorNames = []string{"asm", "basic", "c"}

func (f TextFlavor) String() string {
	if int(f) < len(TextFlavorNames) {
		return TextFlavorNames[f]
	}
	return "?"
}

// A TextDump renders memory images as source text that defines the same
// data: DATA/BYTE statements, BASIC DATA lines or C arrays.
type TextDump struct {
	Flavor   TextFlavor
	Words    bool // emit 16-bit words instead of bytes
	Reverse  bool // swap the two bytes of every word
	PerLine  int  // values per line, 8 when zero
	Name     string
	Binaries []Binary
}

// WriteTo writes the text dump.
func (t *TextDump) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countWriter{w: bw}
	perLine := t.PerLine
	if perLine <= 0 {
		perLine = 8
	}

	lineNo := 100
	for _, b := range t.Binaries {
		values := t.values(b.Data)
		switch t.Flavor {
		case TextAssembly:
			fmt.Fprintf(cw, "* %s >%04X\n", t.Name, b.Addr)
		case TextC:
			kind := "unsigned char"
			if t.Words {
				kind = "unsigned short"
			}
			fmt.Fprintf(cw, "%s %s_%04x[] = {\n", kind, cIdent(t.Name), b.Addr)
		}

		for i := 0; i < len(values); i += perLine {
			row := values[i:min(i+perLine, len(values))]
			items := make([]string, len(row))
			for j, v := range row {
				items[j] = t.format(v)
			}
			switch t.Flavor {
			case TextAssembly:
				directive := "BYTE"
				if t.Words {
					directive = "DATA"
				}
				fmt.Fprintf(cw, "       %s %s\n", directive, strings.Join(items, ","))
			case TextBasic:
				fmt.Fprintf(cw, "%d DATA %s\n", lineNo, strings.Join(items, ","))
				lineNo += 10
			case TextC:
				fmt.Fprintf(cw, "  %s,\n", strings.Join(items, ", "))
			}
		}

		if t.Flavor == TextC {
			fmt.Fprintf(cw, "};\n")
		}
	}
	if cw.err == nil {
		cw.err = bw.Flush()
	}
	if cw.err != nil {
		return cw.n, Errorf(ErrIO, "%v", cw.err)
	}
	return cw.n, nil
}

// Split data into bytes or words, honoring the byte order option. An odd
// trailing byte is padded with zero when dumping words.
func (t *TextDump) values(data []byte) []uint16 {
	if !t.Words {
		v := make([]uint16, len(data))
		for i, b := range data {
			j := i
			if t.Reverse {
				j = i ^ 1
				if j >= len(data) {
					j = i
				}
			}
			v[j] = uint16(b)
		}
		return v
	}
	v := make([]uint16, (len(data)+1)/2)
	for i := range v {
		hi := uint16(data[2*i])
		lo := uint16(0)
		if 2*i+1 < len(data) {
			lo = uint16(data[2*i+1])
		}
		if t.Reverse {
			hi, lo = lo, hi
		}
		v[i] = hi<<8 | lo
	}
	return v
}

func (t *TextDump) format(v uint16) string {
	switch {
	case t.Flavor == TextBasic:
		return fmt.Sprintf("%d", v)
	case t.Flavor == TextC && t.Words:
		return fmt.Sprintf("0x%04x", v)
	case t.Flavor == TextC:
		return fmt.Sprintf("0x%02x", v)
	case t.Words:
		return fmt.Sprintf(">%04X", v)
	default:
		return fmt.Sprintf(">%02X", v)
	}
}

func cIdent(name string) string {
	if name == "" {
		return "data"
	}
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToLower(name))
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
