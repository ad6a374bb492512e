// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"
	"strings"

	"github.com/beevik/go9900/object"
)

// A branch of a conditional block.
type branch struct {
	cond        bool // condition of the .IF directive
	parse       bool // lines of the branch are assembled
	elseSeen    bool
	parentParse bool
}

// The preprocessor handles the directives starting with a period before
// the assembler sees a statement: conditional blocks, macro definitions
// and calls, and repeat blocks. It runs during the first pass only.
type preprocessor struct {
	branches []branch
	macros   map[string][]string

	defining string   // name of the macro being defined
	body     []string // lines of the macro or repeat block being read

	repeating bool
	reptDepth int
	reptCount int
}

func newPreprocessor() *preprocessor {
	return &preprocessor{macros: make(map[string][]string)}
}

func (p *preprocessor) parsing() bool {
	return len(p.branches) == 0 || p.branches[len(p.branches)-1].parse
}

var conditionals = map[string]func(a, b int) bool{
	".IFEQ": func(a, b int) bool { return a == b },
	".IFNE": func(a, b int) bool { return a != b },
	".IFGT": func(a, b int) bool { return a > b },
	".IFGE": func(a, b int) bool { return a >= b },
	".IFLT": func(a, b int) bool { return a < b },
	".IFLE": func(a, b int) bool { return a <= b },
}

func isConditional(mnemonic string) bool {
	_, ok := conditionals[mnemonic]
	return ok || mnemonic == ".IFDEF" || mnemonic == ".IFNDEF"
}

// Process a statement. The result tells whether the preprocessor consumed
// it; all other statements go on to the assembler.
func (p *preprocessor) process(a *assembler, s *Statement, line string) (bool, error) {
	if p.defining != "" {
		switch s.Mnemonic {
		case ".ENDM":
			p.macros[p.defining] = p.body
			p.defining, p.body = "", nil
		case ".DEFM":
			return true, object.Errorf(object.ErrSyntax, "Nested macro definition")
		default:
			p.body = append(p.body, line)
		}
		return true, nil
	}

	if p.repeating {
		switch s.Mnemonic {
		case ".REPT":
			p.reptDepth++
		case ".ENDR":
			p.reptDepth--
			if p.reptDepth == 0 {
				return true, p.repeat(a, s)
			}
		}
		p.body = append(p.body, line)
		return true, nil
	}

	switch {
	case isConditional(s.Mnemonic):
		return true, p.conditional(a, s)
	case s.Mnemonic == ".ELSE":
		if len(p.branches) == 0 {
			return true, object.Errorf(object.ErrSyntax, "Missing .IF")
		}
		b := &p.branches[len(p.branches)-1]
		if b.elseSeen {
			return true, object.Errorf(object.ErrSyntax, "Duplicate .ELSE")
		}
		b.elseSeen = true
		b.parse = b.parentParse && !b.cond
		return true, nil
	case s.Mnemonic == ".ENDIF":
		if len(p.branches) == 0 {
			return true, object.Errorf(object.ErrSyntax, "Missing .IF")
		}
		p.branches = p.branches[:len(p.branches)-1]
		return true, nil
	case !p.parsing():
		return true, nil
	}

	switch s.Mnemonic {
	case ".DEFM":
		if len(s.Operands) != 1 || s.Operands[0].isEmpty() {
			return true, object.Errorf(object.ErrSyntax, "Missing macro name")
		}
		name := "." + strings.ToUpper(s.Operands[0].str)
		if _, ok := p.macros[name]; ok {
			return true, object.Errorf(object.ErrDuplicateSymbol, "Duplicate macro: %s", s.Operands[0].str)
		}
		p.defining = name
		return true, nil

	case ".REPT":
		if err := s.expectOperands(1, 1); err != nil {
			return true, err
		}
		n, err := a.wellDefined(s.Operands[0])
		if err != nil {
			return true, err
		}
		if n.Signed() < 0 {
			return true, object.Errorf(object.ErrInvalidOperand, "Invalid repeat count: %d", n.Signed())
		}
		p.repeating, p.reptDepth, p.reptCount = true, 1, int(n)
		return true, nil

	case ".ENDM", ".ENDR":
		return true, object.Errorf(object.ErrSyntax, "Missing %s", map[string]string{".ENDM": ".DEFM", ".ENDR": ".REPT"}[s.Mnemonic])

	case ".ERROR":
		msg := "Error directive"
		if len(s.Operands) > 0 {
			if t, ok := s.Text(s.Operands[0]); ok {
				msg = t
			} else {
				msg = restoreTexts(s.Operands[0].str, s.Texts)
			}
		}
		return true, object.Errorf(object.ErrSyntax, "%s", msg)
	}

	if strings.HasPrefix(s.Mnemonic, ".") {
		return true, p.call(a, s)
	}
	return false, nil
}

// Open a conditional block.
func (p *preprocessor) conditional(a *assembler, s *Statement) error {
	parent := p.parsing()
	b := branch{parentParse: parent}
	if parent {
		cond, err := p.condition(a, s)
		if err != nil {
			return err
		}
		b.cond = cond
	}
	b.parse = parent && b.cond
	p.branches = append(p.branches, b)
	return nil
}

func (p *preprocessor) condition(a *assembler, s *Statement) (bool, error) {
	switch s.Mnemonic {
	case ".IFDEF", ".IFNDEF":
		if err := s.expectOperands(1, 1); err != nil {
			return false, err
		}
		defined := a.symbols.Defined(s.Operands[0].str)
		return defined == (s.Mnemonic == ".IFDEF"), nil
	}

	if err := s.expectOperands(1, 2); err != nil {
		return false, err
	}
	var v [2]int
	for i, op := range s.Operands {
		w, err := a.wellDefined(op)
		if err != nil {
			return false, err
		}
		v[i] = int(w.Signed())
	}
	return conditionals[s.Mnemonic](v[0], v[1]), nil
}

// Expand a macro call.
func (p *preprocessor) call(a *assembler, s *Statement) error {
	body, ok := p.macros[s.Mnemonic]
	if !ok {
		return object.Errorf(object.ErrSyntax, "Unknown macro: %s", s.Mnemonic)
	}
	args := make([]string, len(s.Operands))
	for i, op := range s.Operands {
		args[i] = restoreTexts(op.str, s.Texts)
	}
	lines := make([]string, len(body))
	for i, line := range body {
		for k := 9; k >= 1; k-- {
			placeholder := "#" + strconv.Itoa(k)
			if !strings.Contains(line, placeholder) {
				continue
			}
			if k > len(args) {
				return object.Errorf(object.ErrSyntax, "Missing argument %s for macro %s", placeholder, s.Mnemonic)
			}
			line = strings.ReplaceAll(line, placeholder, args[k-1])
		}
		lines[i] = line
	}
	return a.sources.push(&frame{fileIndex: s.fileIndex, lines: lines, macro: s.Mnemonic, row: s.Line})
}

// Expand a completed repeat block.
func (p *preprocessor) repeat(a *assembler, s *Statement) error {
	lines := make([]string, 0, len(p.body)*p.reptCount)
	for i := 0; i < p.reptCount; i++ {
		lines = append(lines, p.body...)
	}
	p.repeating, p.body = false, nil
	return a.sources.push(&frame{fileIndex: s.fileIndex, lines: lines, macro: ".REPT", row: s.Line})
}

// Describe the block left open at the end of the source, if any.
func (p *preprocessor) unterminated() string {
	switch {
	case p.defining != "":
		return ".DEFM"
	case p.repeating:
		return ".REPT"
	case len(p.branches) > 0:
		return ".IF"
	}
	return ""
}
