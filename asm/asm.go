// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a two-pass TMS9900 cross-assembler with macros,
// conditional assembly, relocatable code, banked memory and
// auto-constants.
package asm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/go9900/cpu"
	"github.com/beevik/go9900/object"
	"github.com/golang/glog"
)

// ErrAssembly is returned when a source unit has errors. The diagnostics
// of the Assembly describe them.
var ErrAssembly = errors.New("assembly failed")

var errSourceDepth = object.Errorf(object.ErrSyntax, "Too many nested files or macros")

// Options control the assembly of a source unit.
type Options struct {
	Syntax       SyntaxMode
	Arch         cpu.Architecture
	IncludePaths []string          // searched by COPY and BCOPY
	Defines      map[string]string // symbols defined before assembly, value defaults to 1
	Warnings     Warnings          // enabled warning categories
	Verbose      bool              // verbose output during assembly
	Out          io.Writer         // used for verbose output, defaults to stdout
}

// Assembly is the result of assembling one source unit.
type Assembly struct {
	Program     *object.Program
	Statements  []*Statement // source remaining after preprocessing
	Listing     *Listing
	Symbols     *Symbols
	SourceMap   *SourceMap
	Diagnostics []Diagnostic
	Errors      int // number of error diagnostics
	Cycles      int // estimated cycles of all instructions
}

type defRef struct {
	name string
	pos  int
}

type posDiagnostic struct {
	pos int
	d   Diagnostic
}

// The assembler is a state object used during the assembly of
// machine code from assembly code.
type assembler struct {
	opts       *Options
	unit       int
	instSet    *cpu.InstructionSet
	parser     parser
	preproc    *preprocessor
	sources    sourceStack
	exprParser exprParser
	symbols    *Symbols
	autos      *autoPool
	timing     Timing
	out        io.Writer
	verbose    bool

	pass     int
	program  *object.Program
	segment  *object.Segment
	lc       int  // location counter
	reloc    bool // location counter is relocatable
	dummy    bool // code is assembled but discarded
	xorg     int  // load address minus location counter
	relocLC  int  // relocatable location counter saved by AORG
	end      bool // END seen
	xops     map[string]int
	defs     []defRef
	stmts    []*Statement
	stmt     *Statement // statement being processed
	pos      int        // index of that statement

	listing   *Listing
	sourceMap *SourceMap
	listOn    bool
	pageBreak bool
	listed    []listEntry // entries emitted by the statement
	cycles    int

	errors map[int]Diagnostic // one error per statement
	extra  []posDiagnostic    // warnings and errors of other origin
}

// AssembleFile reads a file containing TMS9900 assembly code and
// assembles it as a unit with the given id.
func AssembleFile(path string, unit int, opts *Options) (*Assembly, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, object.Errorf(object.ErrIO, "%v", err)
	}
	defer file.Close()
	return Assemble(file, path, unit, opts)
}

// Assemble reads data from the provided stream and attempts to assemble it
// into TMS9900 machine code. The unit id tags the relocatable addresses of
// the program so the linker can place the unit.
func Assemble(r io.Reader, filename string, unit int, opts *Options) (*Assembly, error) {
	if opts == nil {
		opts = &Options{}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	lines, err := readLines(r)
	if err != nil {
		return nil, object.Errorf(object.ErrIO, "%v", err)
	}

	a := &assembler{
		opts:    opts,
		unit:    unit,
		instSet: cpu.GetInstructionSet(opts.Arch),
		parser:  parser{mode: opts.Syntax, files: []string{filename}},
		preproc: newPreprocessor(),
		symbols: NewSymbols(),
		autos:   newAutoPool(),
		out:     out,
		verbose: opts.Verbose,
		errors:  make(map[int]Diagnostic),
	}
	a.sources.push(&frame{fileIndex: 0, lines: lines})

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).pass1,  // Preprocess, count locations and collect symbols
		(*assembler).pass2,  // Replay the statements and generate code
		(*assembler).finish, // Export definitions and report unused symbols
	}
	for _, step := range steps {
		if err = step(a); err != nil {
			break
		}
	}

	assembly := a.assembly()
	glog.V(1).Infof("%s: %d statements, %d errors", filename, len(a.stmts), assembly.Errors)
	if assembly.Errors > 0 {
		return assembly, ErrAssembly
	}
	return assembly, nil
}

// Collect the results of the assembler.
func (a *assembler) assembly() *Assembly {
	var all []posDiagnostic
	for pos, d := range a.errors {
		all = append(all, posDiagnostic{pos, d})
	}
	all = append(all, a.extra...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].pos < all[j].pos })

	assembly := &Assembly{
		Program:    a.program,
		Statements: a.stmts,
		Listing:    a.listing,
		Symbols:    a.symbols,
		SourceMap:  a.sourceMap,
		Cycles:     a.timing.Total,
	}
	for _, pd := range all {
		assembly.Diagnostics = append(assembly.Diagnostics, pd.d)
		if pd.d.Severity == SeverityError {
			assembly.Errors++
		}
	}
	return assembly
}

// Reset the per-pass state.
func (a *assembler) startPass(pass int) {
	a.pass = pass
	a.lc, a.reloc, a.dummy, a.xorg, a.relocLC = 0, true, false, 0, 0
	a.end = false
	a.xops = make(map[string]int)
	a.defs = nil
	a.listOn = true
	a.symbols.startPass(pass)

	name := ""
	if a.program != nil {
		name = a.program.Name
	}
	a.program = object.NewProgram(name, a.unit)
	a.openSegment(0, true, false, 0)
	a.segment.Root = true

	names := make([]string, 0, len(a.opts.Defines))
	for n := range a.opts.Defines {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		v := object.Value(object.Word(1))
		if s := a.opts.Defines[n]; s != "" {
			w, _, err := parseNumber(newFstring(0, 0, s))
			if err != nil {
				a.fatal(fmt.Sprintf("Invalid value for %s: %s", n, s))
				continue
			}
			v = w
		}
		if pass == 1 {
			if _, err := a.symbols.AddSymbol(n, v, KindEQU); err != nil {
				a.fatal(err.Error())
			}
		} else {
			a.symbols.Redefine(n, v)
		}
	}
}

// Read the source, run the preprocessor, and record the remaining
// statements while counting locations and defining symbols.
func (a *assembler) pass1() error {
	a.logSection("Pass 1")
	glog.V(1).Infof("%s: pass 1", a.parser.files[0])
	a.startPass(1)

	for !a.end {
		line, f, ok := a.sources.next()
		if !ok {
			break
		}
		s := a.parser.parse(f.fileIndex, f.line(), line)
		a.stmt = s
		consumed, err := a.preproc.process(a, s, line)
		if err != nil {
			if errors.Is(err, errSourceDepth) {
				a.fatal(err.Error())
				return err
			}
			a.addError(-1, s, err)
		}
		if consumed {
			continue
		}
		canonicalize(s)
		a.stmts = append(a.stmts, s)
		a.statement(len(a.stmts)-1, s)
	}

	if block := a.preproc.unterminated(); block != "" {
		err := object.Errorf(object.ErrSyntax, "Unterminated %s at end of source", block)
		a.fatal(err.Error())
		return err
	}
	return nil
}

// Replay the recorded statements with all symbols known and generate
// code.
func (a *assembler) pass2() error {
	a.logSection("Pass 2")
	glog.V(1).Infof("%s: pass 2", a.parser.files[0])
	a.listing = &Listing{}
	a.sourceMap = &SourceMap{Files: a.parser.files}
	a.startPass(2)

	for pos, s := range a.stmts {
		a.statement(pos, s)
		if a.end {
			break
		}
	}
	a.program.Close(a.lc)
	return nil
}

// Export the DEF symbols and report unused labels.
func (a *assembler) finish() error {
	defs := make(map[string]bool)
	for _, d := range a.defs {
		defs[d.name] = true
		v, ok := a.symbols.GetSymbol(d.name)
		var err error
		switch v := v.(type) {
		case object.Address:
			a.program.Externals.AddDef(d.name, v)
			a.sourceMap.Exports = append(a.sourceMap.Exports, Export{d.name, v})
		case object.Word:
			addr := object.AbsAddr(uint16(v))
			a.program.Externals.AddDef(d.name, addr)
			a.sourceMap.Exports = append(a.sourceMap.Exports, Export{d.name, addr})
		case object.Reference:
			err = object.Errorf(object.ErrInvalidAddress, "Cannot export external symbol: %s", d.name)
		default:
			if !ok {
				err = object.Errorf(object.ErrUnknownSymbol, "Unknown symbol in DEF: %s", d.name)
			}
		}
		if err != nil {
			a.addError(d.pos, a.stmts[d.pos], err)
		}
	}

	if a.opts.Warnings.Enabled(CategoryUnused) {
		for _, sym := range a.symbols.Unused() {
			if !defs[sym.Name] {
				a.extra = append(a.extra, posDiagnostic{len(a.stmts), Diagnostic{
					Pass:     2,
					File:     sym.File,
					Line:     sym.Line,
					Message:  "Unused label: " + sym.Name,
					Category: CategoryUnused,
					Severity: SeverityWarning,
				}})
			}
		}
	}
	a.sourceMap.sort()
	return nil
}

// Process one statement, recording any error and, in pass 2, its listing.
func (a *assembler) statement(pos int, s *Statement) {
	a.pos, a.stmt = pos, s
	a.symbols.at(pos, s.File, s.Line)
	a.listed, a.cycles = a.listed[:0], 0
	start := a.here()

	if err := a.process(s); err != nil {
		a.addError(pos, s, err)
	}
	glog.V(2).Infof("pass %d: %s:%d lc=%04X %s", a.pass, s.File, s.Line, a.lc, s.Source)

	if a.pass == 2 {
		if a.listOn {
			a.listing.add(s, start, a.listed, a.cycles, a.pageBreak)
		}
		a.pageBreak = false
		if len(a.listed) > 0 {
			a.sourceMap.add(a.listed[0].lc, a.reloc, s)
		}
	}
}

// Dispatch a statement to the directive or instruction that handles it.
func (a *assembler) process(s *Statement) error {
	if s.Mnemonic == "" {
		if s.Label != "" {
			return a.bindLabel(s)
		}
		return nil
	}

	if d, ok := directives[s.Mnemonic]; ok {
		switch d.label {
		case labelLC:
			if err := a.bindLabel(s); err != nil {
				return err
			}
		case labelEven:
			a.even()
			if err := a.bindLabel(s); err != nil {
				return err
			}
		}
		return d.fn(a, s)
	}

	if inst, xop := a.lookupInstruction(s.Mnemonic); inst != nil {
		a.even()
		if err := a.bindLabel(s); err != nil {
			return err
		}
		return a.assembleInstruction(s, inst, xop)
	}

	a.bindLabel(s)
	return object.Errorf(object.ErrSyntax, "Invalid mnemonic: %s", s.Mnemonic)
}

// Bind the label of a statement to the location counter.
func (a *assembler) bindLabel(s *Statement) error {
	switch {
	case s.Label == "":
		return nil
	case strings.HasPrefix(s.Label, "!"):
		a.symbols.AddLocal(s.Label[1:], a.here())
		return nil
	case !identifierStartChar(s.Label[0]):
		return object.Errorf(object.ErrSyntax, "Invalid label: %s", s.Label)
	default:
		return a.symbols.AddLabel(s.Label, a.here())
	}
}

// Start a new segment at a location counter.
func (a *assembler) openSegment(lc int, reloc, dummy bool, xorg int) {
	if a.reloc && !a.dummy {
		a.relocLC = a.lc
	}
	a.lc, a.reloc, a.dummy, a.xorg = lc, reloc, dummy, xorg
	s := object.NewSegment(lc, reloc, a.symbols.Bank(), a.unit)
	s.Dummy, s.Xorg = dummy, xorg
	a.segment = a.program.OpenSegment(s)
}

// Return the address of the location counter.
func (a *assembler) here() object.Address {
	addr := object.Address{Addr: uint16(a.lc), Bank: a.symbols.Bank()}
	if a.reloc {
		addr.Reloc, addr.Unit = true, a.unit
	}
	return addr
}

// Align the location counter to a word boundary.
func (a *assembler) even() {
	if a.lc&1 != 0 {
		a.lc++
	}
}

// Store an entry at the location counter and advance it. Only the second
// pass generates code.
func (a *assembler) emit(e object.Entry) {
	if a.pass == 2 {
		a.segment.Put(a.lc, e)
		a.listed = append(a.listed, listEntry{a.lc, e})
	}
	a.lc += e.Size()
}

//
// expression evaluation
//

// Evaluate an expression. In pass 1 an expression using symbols that are
// not defined yet has a nil value.
func (a *assembler) expr(op fstring) (object.Value, error) {
	if op.isEmpty() {
		return nil, object.Errorf(object.ErrSyntax, "Missing operand")
	}
	e, err := a.exprParser.parse(op)
	if err != nil {
		return nil, err
	}
	if a.exprParser.precedence {
		a.warn(CategoryPrecedence, "Expression evaluated left to right: %s", restoreTexts(op.str, a.stmt.Texts))
	}
	t, err := e.eval(a)
	if err != nil {
		return nil, err
	}
	return t.result()
}

// Evaluate an expression whose value must be known in the first pass and
// must not be relocatable.
func (a *assembler) wellDefined(op fstring) (object.Word, error) {
	v, err := a.expr(op)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, object.Errorf(object.ErrUnknownSymbol, "Undefined symbol in %s", op.str)
	}
	return absoluteValue(v)
}

// Evaluate an absolute expression. Unknown values are zero in pass 1.
func (a *assembler) absolute(op fstring) (object.Word, error) {
	v, err := a.expr(op)
	if err != nil {
		return 0, err
	}
	if v == nil {
		if a.pass == 1 {
			return 0, nil
		}
		return 0, object.Errorf(object.ErrUnknownSymbol, "Undefined symbol in %s", op.str)
	}
	return absoluteValue(v)
}

func absoluteValue(v object.Value) (object.Word, error) {
	switch v := v.(type) {
	case object.Reference:
		return 0, object.Errorf(object.ErrInvalidAddress, "External symbol not allowed: %s", v.Name)
	case object.Address:
		if v.Reloc {
			return 0, object.Errorf(object.ErrInvalidAddress, "Relocatable value not allowed")
		}
	}
	return object.Word(object.Val(v)), nil
}

func (a *assembler) symbol(name string) (object.Value, error) {
	if v, ok := a.symbols.GetSymbol(name); ok {
		if v == nil && a.pass == 2 {
			return nil, object.Errorf(object.ErrUnknownSymbol, "Undefined value of symbol: %s", name)
		}
		return v, nil
	}
	if r, ok := a.registerName(name); ok {
		return object.Word(r), nil
	}
	if v, ok := object.Builtin(name); ok {
		return object.AbsAddr(v), nil
	}
	if a.pass == 1 {
		return nil, nil
	}
	return nil, object.Errorf(object.ErrUnknownSymbol, "Unknown symbol: %s", name)
}

func (a *assembler) local(l Local) (object.Value, error) {
	addr, ok := a.symbols.GetLocal(l.Name, l.Distance)
	switch {
	case ok:
		return addr, nil
	case a.pass == 1:
		return nil, nil
	default:
		return nil, object.Errorf(object.ErrUnknownSymbol, "Unknown local label: !%s", l.Name)
	}
}

func (a *assembler) location() object.Address {
	return a.here()
}

func (a *assembler) textValue(index int) (string, error) {
	if index >= len(a.stmt.Texts) {
		return "", object.Errorf(object.ErrSyntax, "Invalid text literal")
	}
	return a.stmt.Texts[index], nil
}

//
// diagnostics
//

func errorKind(err error) error {
	var e *object.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return err
}

// Record an error of a statement. Each statement keeps a single error,
// and errors of the second pass replace those of the first.
func (a *assembler) addError(pos int, s *Statement, err error) {
	d := Diagnostic{
		Pass:     a.pass,
		File:     s.File,
		Line:     s.Line,
		Source:   s.Source,
		Message:  err.Error(),
		Severity: SeverityError,
		Err:      errorKind(err),
	}
	if a.verbose {
		fmt.Fprintln(a.out, d.String())
	}
	if pos < 0 {
		a.extra = append(a.extra, posDiagnostic{len(a.stmts), d})
		return
	}
	if old, ok := a.errors[pos]; !ok || old.Pass < a.pass {
		a.errors[pos] = d
	}
}

// Record a fatal error that ends the assembly of the unit.
func (a *assembler) fatal(msg string) {
	a.extra = append(a.extra, posDiagnostic{len(a.stmts), Diagnostic{
		Pass:     a.pass,
		File:     a.parser.files[0],
		Message:  msg,
		Severity: SeverityError,
		Err:      object.ErrSyntax,
	}})
}

// Record a warning for the current statement. Warnings are reported by
// the second pass only, so each is reported once.
func (a *assembler) warn(c Category, format string, args ...any) {
	if a.pass != 2 || !a.opts.Warnings.Enabled(c) || !a.stmt.pragma("warnings", true) {
		return
	}
	s := a.stmt
	a.extra = append(a.extra, posDiagnostic{a.pos, Diagnostic{
		Pass:     a.pass,
		File:     s.File,
		Line:     s.Line,
		Source:   s.Source,
		Message:  fmt.Sprintf(format, args...),
		Category: c,
		Severity: SeverityWarning,
	}})
}

// In verbose mode, log a string to the output.
func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *assembler) logLine(s *Statement, format string, args ...any) {
	if a.verbose && a.pass == 2 {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-12s %-4d | %-32s | %s\n", filepath.Base(s.File), s.Line, detail, s.Source)
	}
}

// In verbose mode, log a section header to the output.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
