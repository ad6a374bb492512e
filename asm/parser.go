// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"
	"strings"

	"github.com/beevik/go9900/object"
)

// SyntaxMode selects the field delimiter rules of the source parser.
type SyntaxMode byte

// All syntax modes
const (
	// Default syntax: fields are separated by blanks, ';' starts a
	// comment, and registers R0-R15 are predefined.
	Default SyntaxMode = iota

	// Strict syntax follows the original TI assembler: no ';' comments and
	// no predefined register names.
	Strict

	// Relaxed syntax lets the operand field run to the comment, ignoring
	// all blanks in it.
	Relaxed
)

var syntaxNames = []string{"default", "strict", "relaxed"}

func (m SyntaxMode) String() string {
	return syntaxNames[m]
}

// ParseSyntaxMode returns the syntax mode with the given name.
func ParseSyntaxMode(name string) (SyntaxMode, bool) {
	for i, n := range syntaxNames {
		if strings.EqualFold(n, name) {
			return SyntaxMode(i), true
		}
	}
	return Default, false
}

// A Statement is one parsed source line. The assembler's first pass
// records the statements that survive preprocessing, and the second pass
// replays them.
type Statement struct {
	File     string
	Line     int
	Source   string    // the line as it appeared in the source
	Label    string    // label field without a trailing colon
	Mnemonic string    // upper-cased mnemonic or directive
	Operands []fstring // operands with text literals replaced by 'n'
	Texts    []string  // extracted text literals
	Comment  string
	Pragmas  map[string]string
	Data     []byte // contents of a BCOPY file

	fileIndex int
}

// IsComment reports whether the statement has neither label nor mnemonic.
func (s *Statement) IsComment() bool {
	return s.Label == "" && s.Mnemonic == ""
}

// Text returns the text literal referenced by a placeholder operand such
// as 'n'.
func (s *Statement) Text(op fstring) (string, bool) {
	i, ok := textIndex(op.str)
	if !ok || i >= len(s.Texts) {
		return "", false
	}
	return s.Texts[i], true
}

func textIndex(s string) (int, bool) {
	if len(s) < 3 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, false
	}
	i, err := strconv.Atoi(s[1 : len(s)-1])
	return i, err == nil
}

// Replace all quoted text literals of a line by numbered placeholders.
// A doubled quote inside a literal stands for a single quote. An
// unterminated literal leaves the rest of the line untouched.
func extractTexts(line string) (string, []string) {
	var texts []string
	var sb strings.Builder
	for i := 0; i < len(line); i++ {
		if line[i] != '\'' {
			sb.WriteByte(line[i])
			continue
		}
		var text strings.Builder
		j := i + 1
		closed := false
		for j < len(line) {
			if line[j] == '\'' {
				if j+1 < len(line) && line[j+1] == '\'' {
					text.WriteByte('\'')
					j += 2
					continue
				}
				closed = true
				break
			}
			text.WriteByte(line[j])
			j++
		}
		if !closed {
			sb.WriteString(line[i:])
			break
		}
		sb.WriteString("'" + strconv.Itoa(len(texts)) + "'")
		texts = append(texts, text.String())
		i = j
	}
	return sb.String(), texts
}

// Put quoted text literals back in place of their placeholders.
func restoreTexts(s string, texts []string) string {
	if len(texts) == 0 || !strings.Contains(s, "'") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			j := strings.IndexByte(s[i+1:], '\'')
			if j >= 0 {
				if n, ok := textIndex(s[i : i+j+2]); ok && n < len(texts) {
					sb.WriteString("'" + strings.ReplaceAll(texts[n], "'", "''") + "'")
					i += j + 1
					continue
				}
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// A parser splits source lines into statements.
type parser struct {
	mode  SyntaxMode
	files []string
}

// Parse a single source line into a statement.
func (p *parser) parse(fileIndex, row int, line string) *Statement {
	line = strings.TrimRight(line, " \t\r\n")
	s := &Statement{
		File:      p.files[fileIndex],
		Line:      row,
		Source:    line,
		fileIndex: fileIndex,
	}

	l := newFstring(fileIndex, row, line)
	switch {
	case l.isEmpty():
		return s
	case l.startsWithChar('*'):
		s.Comment = line
		return s
	case l.startsWithChar(';') && p.mode != Strict:
		s.Comment = line
		return s
	}

	str, texts := extractTexts(line)
	s.Texts = texts
	l = l.with(str)

	if p.mode != Strict {
		if i := strings.IndexByte(str, ';'); i >= 0 {
			s.Comment = restoreTexts(str[i:], texts)
			l = l.trunc(i)
		}
	}

	// A directive in column 1 has no label.
	if l.startsWith(wordChar) && !l.startsWithChar('.') {
		var label fstring
		label, l = l.consumeWhile(wordChar)
		s.Label = strings.TrimSuffix(label.str, ":")
	}
	l = l.consumeWhitespace()

	var mnemonic fstring
	mnemonic, l = l.consumeWhile(wordChar)
	s.Mnemonic = strings.ToUpper(mnemonic.str)
	l = l.consumeWhitespace()

	var field fstring
	switch p.mode {
	case Relaxed:
		field = l.with(strings.Map(func(r rune) rune {
			if r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, l.str))
	default:
		field, l = l.consumeWhile(wordChar)
		if rest := strings.TrimSpace(l.str); rest != "" && s.Comment == "" {
			s.Comment = restoreTexts(rest, texts)
		}
	}
	s.Operands = field.splitOperands()
	s.Pragmas = parsePragmas(s.Comment)
	return s
}

// Pragmas live in comments of the form ";: key=value, key=value".
func parsePragmas(comment string) map[string]string {
	c := strings.TrimSpace(strings.TrimLeft(comment, ";* \t"))
	if !strings.HasPrefix(c, ":") {
		return nil
	}
	pragmas := make(map[string]string)
	for _, field := range strings.Split(c[1:], ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(field), "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" {
			pragmas[key] = strings.ToLower(strings.TrimSpace(value))
		}
	}
	return pragmas
}

// Return the on/off state of a pragma, or def if it is not set.
func (s *Statement) pragma(key string, def bool) bool {
	switch s.Pragmas[key] {
	case "on", "1", "yes", "":
		if _, ok := s.Pragmas[key]; ok {
			return true
		}
		return def
	case "off", "0", "no":
		return false
	default:
		return def
	}
}

// Check that a statement has between lo and hi operands.
func (s *Statement) expectOperands(lo, hi int) error {
	n := len(s.Operands)
	switch {
	case n < lo:
		return object.Errorf(object.ErrSyntax, "Missing operand")
	case n > hi:
		return object.Errorf(object.ErrSyntax, "Too many operands")
	}
	return nil
}
