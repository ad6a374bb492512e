// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/beevik/go9900/object"
)

// A SourceMap describes the mapping between source code line numbers and
// the addresses of the code they generated.
type SourceMap struct {
	Files   []string
	Lines   []SourceLine
	Exports []Export
}

// A SourceLine represents a mapping between a machine code address and
// the source code file and line number used to generate it.
type SourceLine struct {
	Address   int  // Machine code address
	Reloc     bool // Address is relative to the start of the unit
	FileIndex int  // Source code file index
	Line      int  // Source code line number
}

// An Export is a symbol made visible to other units with DEF.
type Export struct {
	Name    string
	Address object.Address
}

func (s *SourceMap) add(lc int, reloc bool, st *Statement) {
	s.Lines = append(s.Lines, SourceLine{
		Address:   lc,
		Reloc:     reloc,
		FileIndex: st.fileIndex,
		Line:      st.Line,
	})
}

// Sort the mappings by address, absolute addresses first.
func (s *SourceMap) sort() {
	sort.SliceStable(s.Lines, func(i, j int) bool {
		a, b := s.Lines[i], s.Lines[j]
		if a.Reloc != b.Reloc {
			return !a.Reloc
		}
		return a.Address < b.Address
	})
	sort.Slice(s.Exports, func(i, j int) bool { return s.Exports[i].Name < s.Exports[j].Name })
}

// Search searches the source map for a mapping with the requested address.
func (s *SourceMap) Search(addr int, reloc bool) (filename string, line int) {
	i := sort.Search(len(s.Lines), func(i int) bool {
		l := s.Lines[i]
		if l.Reloc != reloc {
			return l.Reloc
		}
		return l.Address >= addr
	})
	if i < len(s.Lines) && s.Lines[i].Address == addr && s.Lines[i].Reloc == reloc {
		return s.Files[s.Lines[i].FileIndex], s.Lines[i].Line
	}
	return "", -1
}

// ReadFrom reads the contents of an exported source map file.
func (s *SourceMap) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	err = json.Unmarshal(b, s)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// WriteTo writes the contents of the source map to an output stream.
func (s *SourceMap) WriteTo(w io.Writer) (n int64, err error) {
	b, err := json.MarshalIndent(*s, "", "  ")
	if err != nil {
		return 0, err
	}

	nn, err := w.Write(b)
	return int64(nn), err
}
