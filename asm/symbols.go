// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"sort"

	"github.com/beevik/go9900/object"
)

// SymbolKind tells how a symbol was defined.
type SymbolKind byte

// All symbol kinds
const (
	KindNone SymbolKind = iota // label, REF or register alias
	KindEQU                    // EQU constant, may be repeated with the same value
	KindWEQU                   // weak EQU, may be redefined
)

var kindNames = []string{"NONE", "EQU", "WEQU"}

func (k SymbolKind) String() string {
	return kindNames[k]
}

// A Symbol is a named value.
type Symbol struct {
	Name  string
	Value object.Value
	Kind  SymbolKind
	File  string // where the symbol was defined
	Line  int
	Used  bool
	Label bool // defined by a label field
	pass  int  // pass of the most recent definition
}

// A Local names an anonymous local label reference. A positive distance
// refers forward, a negative distance backward.
type Local struct {
	Name     string
	Distance int
}

// ParseLocal decodes a local label reference: "!x" and "!!x" refer to the
// next and second next label named x, "-!x" and "--!x" to the previous
// ones.
func ParseLocal(s string) (Local, bool) {
	back := 0
	for back < len(s) && s[back] == '-' {
		back++
	}
	fwd := 0
	for back+fwd < len(s) && s[back+fwd] == '!' {
		fwd++
	}
	switch {
	case fwd == 0:
		return Local{}, false
	case back > 0 && fwd == 1:
		return Local{s[back+fwd:], -back}, true
	case back == 0:
		return Local{s[fwd:], fwd}, true
	default:
		return Local{}, false
	}
}

type localDef struct {
	pos  int // index of the defining statement
	addr object.Address
}

type mergeAction byte

const (
	acceptNew mergeAction = iota // store the new value
	acceptOld                    // keep the existing value
	reject                       // duplicate symbol
)

// Decide what happens when a symbol is defined while a symbol with the
// same name exists. A nil 'old' means there is no existing symbol. The
// warn result asks for a redefinition warning.
func merge(old *Symbol, kind SymbolKind, sameValue bool) (action mergeAction, warn bool) {
	switch {
	case old == nil:
		return acceptNew, false
	case old.Kind == KindNone || kind == KindNone:
		return reject, false
	case old.Kind == KindEQU && kind == KindEQU:
		if sameValue {
			return acceptOld, false
		}
		return reject, false
	case old.Kind == KindEQU && kind == KindWEQU:
		return acceptOld, true
	default:
		return acceptNew, true
	}
}

// Symbols holds every symbol of a unit, the register aliases, the local
// label occurrences and the state of bank switching.
type Symbols struct {
	symbols   map[string]*Symbol
	registers map[string]int
	locals    map[string][]localDef
	bank      int         // current bank
	bankLC    map[int]int // running location counter of each bank
	pass      int
	pos       int         // index of the statement being processed
	file      string      // location of the statement being processed
	line      int
}

// NewSymbols creates an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{
		symbols:   make(map[string]*Symbol),
		registers: make(map[string]int),
		locals:    make(map[string][]localDef),
		bank:      object.NoBank,
		bankLC:    make(map[int]int),
	}
}

func (s *Symbols) at(pos int, file string, line int) {
	s.pos, s.file, s.line = pos, file, line
}

// Start an assembly pass. Definitions of earlier passes stay readable so
// forward references resolve, but are replaced without merge checks when
// the pass defines them again.
func (s *Symbols) startPass(pass int) {
	s.pass = pass
	s.resetBanks()
}

// AddSymbol defines a symbol of a given kind. It returns a warning
// message when an existing weak definition is replaced or kept.
func (s *Symbols) AddSymbol(name string, v object.Value, kind SymbolKind) (warning string, err error) {
	old := s.symbols[name]
	used := old != nil && old.Used
	if old != nil && old.pass < s.pass {
		old = nil
	}
	same := old != nil && old.Value == v
	action, warn := merge(old, kind, same)
	switch action {
	case reject:
		return "", object.Errorf(object.ErrDuplicateSymbol, "Duplicate symbol: %s", name)
	case acceptOld:
		if warn {
			warning = "Weak definition of " + name + " ignored"
		}
	case acceptNew:
		if warn {
			warning = "Symbol " + name + " redefined"
		}
		s.symbols[name] = &Symbol{
			Name:  name,
			Value: v,
			Kind:  kind,
			File:  s.file,
			Line:  s.line,
			Used:  used,
			pass:  s.pass,
		}
	}
	return warning, nil
}

// AddLabel defines a label at an address.
func (s *Symbols) AddLabel(name string, a object.Address) error {
	_, err := s.AddSymbol(name, a, KindNone)
	if err == nil {
		s.symbols[name].Label = true
	}
	return err
}

// Redefine updates the value of a symbol without any merge checks.
func (s *Symbols) Redefine(name string, v object.Value) {
	if sym, ok := s.symbols[name]; ok {
		sym.Value, sym.pass = v, s.pass
		return
	}
	s.symbols[name] = &Symbol{Name: name, Value: v, File: s.file, Line: s.line, pass: s.pass}
}

// GetSymbol returns the value of a symbol and marks it as used.
func (s *Symbols) GetSymbol(name string) (object.Value, bool) {
	sym, ok := s.symbols[name]
	if !ok {
		return nil, false
	}
	sym.Used = true
	return sym.Value, true
}

// Lookup returns a symbol without marking it as used.
func (s *Symbols) Lookup(name string) *Symbol {
	return s.symbols[name]
}

// Defined reports whether a symbol, register alias or built-in exists.
func (s *Symbols) Defined(name string) bool {
	if _, ok := s.symbols[name]; ok {
		return true
	}
	if _, ok := s.registers[name]; ok {
		return true
	}
	_, ok := object.Builtin(name)
	return ok
}

// AddLocal records a local label at the current statement. A later pass
// updates the address recorded for the statement.
func (s *Symbols) AddLocal(name string, a object.Address) {
	defs := s.locals[name]
	i := sort.Search(len(defs), func(i int) bool { return defs[i].pos >= s.pos })
	if i < len(defs) && defs[i].pos == s.pos {
		defs[i].addr = a
		return
	}
	defs = append(defs, localDef{})
	copy(defs[i+1:], defs[i:])
	defs[i] = localDef{s.pos, a}
	s.locals[name] = defs
}

// GetLocal resolves a local label reference relative to the current
// statement. Backward references include a label on the current line.
func (s *Symbols) GetLocal(name string, distance int) (object.Address, bool) {
	defs := s.locals[name]
	i := sort.Search(len(defs), func(i int) bool { return defs[i].pos > s.pos })
	if distance > 0 {
		i += distance - 1
	} else {
		i += distance
	}
	if i < 0 || i >= len(defs) {
		return object.Address{}, false
	}
	return defs[i].addr, true
}

// AddRegisterAlias defines a name for a workspace register.
func (s *Symbols) AddRegisterAlias(name string, reg int) error {
	if r, ok := s.registers[name]; ok && r != reg {
		return object.Errorf(object.ErrDuplicateSymbol, "Duplicate symbol: %s", name)
	}
	if _, ok := s.symbols[name]; ok {
		return object.Errorf(object.ErrDuplicateSymbol, "Duplicate symbol: %s", name)
	}
	s.registers[name] = reg
	return nil
}

// Register returns the register a name aliases.
func (s *Symbols) Register(name string) (int, bool) {
	r, ok := s.registers[name]
	return r, ok
}

// Bank returns the current bank.
func (s *Symbols) Bank() int {
	return s.bank
}

// SwitchBank makes a bank current and returns its location counter. The
// location counter of the bank being left is saved. Without an explicit
// address, a bank continues where it left off, but never below the
// location counter of the shared bank; switching to the shared bank
// continues past the highest bank.
func (s *Symbols) SwitchBank(bank int, addr *int, lc int) int {
	if s.bank != object.NoBank {
		s.bankLC[s.bank] = lc
	}
	s.bank = bank
	if addr != nil {
		return *addr
	}
	next, ok := s.bankLC[bank]
	if !ok {
		next = lc
	}
	if bank == object.SharedBank {
		for _, v := range s.bankLC {
			next = max(next, v)
		}
	} else if shared, ok := s.bankLC[object.SharedBank]; ok {
		next = max(next, shared)
	}
	return next
}

func (s *Symbols) resetBanks() {
	s.bank = object.NoBank
	clear(s.bankLC)
}

// Unused returns the labels that were defined but never used, sorted by
// name.
func (s *Symbols) Unused() []*Symbol {
	var unused []*Symbol
	for _, sym := range s.symbols {
		if sym.Label && !sym.Used {
			unused = append(unused, sym)
		}
	}
	sort.Slice(unused, func(i, j int) bool { return unused[i].Name < unused[j].Name })
	return unused
}

// Names returns all symbol names, sorted.
func (s *Symbols) Names() []string {
	names := make([]string, 0, len(s.symbols))
	for n := range s.symbols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
