// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session sequences the batch operations of the go9900 tools:
// assembling and loading units, linking them, and writing the selected
// outputs. A session may be driven by a program or by text commands.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/go9900/asm"
	"github.com/beevik/go9900/cpu"
	"github.com/beevik/go9900/object"
	"github.com/golang/glog"
)

// Errors
var (
	ErrNoUnits = errors.New("no units to link")
	errQuit    = errors.New("quit")
)

// Creator is written to the end of object code files.
const Creator = "go9900"

// A Unit is an assembled source file or a loaded object code file.
type Unit struct {
	ID       int
	Name     string
	Program  *object.Program
	Assembly *asm.Assembly // nil for object code
}

// A Session holds the units, definitions and settings of one run of the
// tools.
type Session struct {
	Settings *Settings
	Defines  map[string]string
	Units    []*Unit
	Linked   *object.Program
	Offsets  object.Offsets

	linkedBase  uint16
	nextUnit    int
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
}

// New creates a session writing its messages to w.
func New(w io.Writer) *Session {
	return &Session{
		Settings: DefaultSettings(),
		Defines:  make(map[string]string),
		output:   bufio.NewWriter(w),
	}
}

// NextUnit returns a new unit id. Ids start at 1.
func (s *Session) NextUnit() int {
	s.nextUnit++
	return s.nextUnit
}

// Define adds a symbol definition of the form name[=value] for the units
// assembled from now on.
func (s *Session) Define(def string) error {
	name, value, _ := strings.Cut(def, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("invalid definition '%s'", def)
	}
	s.Defines[name] = strings.TrimSpace(value)
	return nil
}

func (s *Session) options() (*asm.Options, error) {
	st := s.Settings
	mode, ok := asm.ParseSyntaxMode(st.Syntax)
	if !ok {
		return nil, fmt.Errorf("unknown syntax mode '%s'", st.Syntax)
	}
	arch, ok := cpu.ParseArchitecture(st.Arch)
	if !ok {
		return nil, fmt.Errorf("unknown cpu '%s'", st.Arch)
	}

	var warnings asm.Warnings
	for _, w := range []struct {
		on bool
		c  asm.Category
	}{
		{st.WarnOptimize, asm.CategoryOptimization},
		{st.WarnSuspect, asm.CategorySuspicious},
		{st.WarnUnused, asm.CategoryUnused},
		{st.WarnPrec, asm.CategoryPrecedence},
	} {
		if w.on {
			warnings |= asm.Warnings(w.c)
		}
	}

	var paths []string
	for _, p := range strings.Split(st.IncludePath, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	return &asm.Options{
		Syntax:       mode,
		Arch:         arch,
		IncludePaths: paths,
		Defines:      s.Defines,
		Warnings:     warnings,
		Verbose:      st.Verbose,
		Out:          s.output,
	}, nil
}

// Assemble assembles a source file into a new unit. Diagnostics are
// written to the session output; a unit with errors is not added.
func (s *Session) Assemble(path string) (*Unit, error) {
	opts, err := s.options()
	if err != nil {
		return nil, err
	}

	id := s.NextUnit()
	a, err := asm.AssembleFile(path, id, opts)
	if a != nil {
		s.printDiagnostics(a.Diagnostics)
	}
	if err != nil {
		if errors.Is(err, asm.ErrAssembly) {
			s.printf("%s: %d error(s).\n", path, a.Errors)
		}
		return nil, err
	}

	u := &Unit{ID: id, Name: path, Program: a.Program, Assembly: a}
	s.addUnit(u)
	return u, nil
}

// Load reads an object code file into a new unit.
func (s *Session) Load(path string) (*Unit, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, object.Errorf(object.ErrIO, "%v", err)
	}
	defer file.Close()

	o := &object.ObjectCode{Unit: s.NextUnit()}
	if _, err := o.ReadFrom(file); err != nil {
		return nil, err
	}

	u := &Unit{ID: o.Unit, Name: path, Program: o.Program}
	s.addUnit(u)
	return u, nil
}

func (s *Session) addUnit(u *Unit) {
	glog.V(1).Infof("unit %d: %s", u.ID, u.Name)
	s.Units = append(s.Units, u)
	s.Linked, s.Offsets = nil, nil
}

func (s *Session) linker() *object.Linker {
	return &object.Linker{
		Base:             s.Settings.Base,
		ResolveConflicts: s.Settings.Resolve,
		Quiet:            s.Settings.Quiet,
	}
}

func (s *Session) programs() []*object.Program {
	programs := make([]*object.Program, len(s.Units))
	for i, u := range s.Units {
		programs[i] = u.Program
	}
	return programs
}

// Link links all units into one absolute program. The result is kept
// until another unit is added.
func (s *Session) Link() (*object.Program, error) {
	return s.link(s.Settings.Base)
}

func (s *Session) link(base uint16) (*object.Program, error) {
	if s.Linked != nil && s.linkedBase == base {
		return s.Linked, nil
	}
	if len(s.Units) == 0 {
		return nil, ErrNoUnits
	}

	l := s.linker()
	l.Base = base
	programs := s.programs()
	offsets, err := l.Layout(programs)
	if err != nil {
		return nil, err
	}
	p, err := l.Link(programs...)
	if err != nil {
		return nil, err
	}
	if s.Settings.Name != "" {
		p.Name = s.Settings.Name
	}
	s.Linked, s.Offsets, s.linkedBase = p, offsets, base
	return p, nil
}

// DefaultOutput returns the output file name used for a source file when
// none is given.
func (s *Session) DefaultOutput(source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	f, _ := ParseFormat(s.Settings.Format)
	switch f {
	case FormatBinary:
		return base + ".bin"
	case FormatImage:
		return base + ".img"
	case FormatCart:
		return base + ".rpk"
	case FormatText:
		return base + ".dat"
	default:
		return base + ".obj"
	}
}

func (s *Session) programName(path string) string {
	if s.Settings.Name != "" {
		return s.Settings.Name
	}
	name := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
}

// Write writes the output of the selected format to a file. Object code
// of a single unit keeps the unit relocatable; all other outputs are
// generated from the linked program.
func (s *Session) Write(path string) error {
	format, err := ParseFormat(s.Settings.Format)
	if err != nil {
		return err
	}
	if len(s.Units) == 0 {
		return ErrNoUnits
	}
	glog.V(1).Infof("writing %s output to %s", format, path)

	if format == FormatObject && len(s.Units) == 1 {
		p := s.Units[0].Program
		p.Name = s.programName(path)
		return writeFile(path, &object.ObjectCode{Program: p, Creator: Creator})
	}

	// Relocatable cartridge code follows the synthesized header unless
	// the base was moved.
	name := s.programName(path)
	base := s.Settings.Base
	if format == FormatCart && base == DefaultBase {
		base = object.CartridgeBase(name)
	}
	p, err := s.link(base)
	if err != nil {
		return err
	}
	p.Name = name

	switch format {
	case FormatObject:
		return writeFile(path, &object.ObjectCode{Program: p, Creator: Creator})
	case FormatBinary:
		return s.writeBinaries(p, path)
	case FormatImage:
		return s.writeImage(p, path)
	case FormatCart:
		c, err := p.Cartridge(p.Name)
		if err != nil {
			return err
		}
		return writeFile(path, c)
	default:
		return s.writeText(p, path)
	}
}

func (s *Session) writeBinaries(p *object.Program, path string) error {
	if s.Settings.Join {
		data, err := p.Joined(s.Settings.Minimize)
		if err != nil {
			return err
		}
		return writeBytes(path, data)
	}

	bins, err := p.Binaries(s.Settings.Minimize)
	if err != nil {
		return err
	}
	if len(bins) == 1 {
		return writeBytes(path, bins[0].Data)
	}
	for _, b := range bins {
		if err := writeBytes(binaryName(path, b), b.Data); err != nil {
			return err
		}
	}
	return nil
}

// File name of one of several binaries: the address and bank of the
// binary are inserted before the extension.
func binaryName(path string, b object.Binary) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if b.Bank != object.NoBank {
		return fmt.Sprintf("%s_%04x_b%d%s", base, b.Addr, b.Bank, ext)
	}
	return fmt.Sprintf("%s_%04x%s", base, b.Addr, ext)
}

func (s *Session) writeImage(p *object.Program, path string) error {
	files, err := p.Image(filepath.Base(path), s.Settings.ChunkSize)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	for _, f := range files {
		if err := writeBytes(filepath.Join(dir, f.Name), f.Data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) writeText(p *object.Program, path string) error {
	flavor, err := ParseTextFlavor(s.Settings.TextFlavor)
	if err != nil {
		return err
	}
	bins, err := p.Binaries(s.Settings.Minimize)
	if err != nil {
		return err
	}
	return writeFile(path, &object.TextDump{
		Flavor:   flavor,
		Words:    s.Settings.TextWords,
		Reverse:  s.Settings.TextReverse,
		Name:     p.Name,
		Binaries: bins,
	})
}

func (s *Session) assembled() []*Unit {
	var units []*Unit
	for _, u := range s.Units {
		if u.Assembly != nil {
			units = append(units, u)
		}
	}
	return units
}

// WriteListing writes the listings of all assembled units to a file.
func (s *Session) WriteListing(path string) error {
	return s.writeUnits(path, func(w io.Writer, u *Unit) error {
		_, err := u.Assembly.Listing.WriteTo(w)
		return err
	})
}

// WriteSymbols writes the symbols of all assembled units to a file, as a
// symbol table or, with equ set, as EQU statements.
func (s *Session) WriteSymbols(path string, equ bool) error {
	return s.writeUnits(path, func(w io.Writer, u *Unit) error {
		return asm.WriteSymbols(w, u.Assembly.Symbols, equ)
	})
}

// WriteSourceMap writes the source map of the first assembled unit.
func (s *Session) WriteSourceMap(path string) error {
	units := s.assembled()
	if len(units) == 0 {
		return ErrNoUnits
	}
	return writeFile(path, units[0].Assembly.SourceMap)
}

func (s *Session) writeUnits(path string, fn func(w io.Writer, u *Unit) error) error {
	units := s.assembled()
	if len(units) == 0 {
		return ErrNoUnits
	}
	file, err := os.Create(path)
	if err != nil {
		return object.Errorf(object.ErrIO, "%v", err)
	}
	w := bufio.NewWriter(file)
	for _, u := range units {
		if err = fn(w, u); err != nil {
			break
		}
	}
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeFile(path string, wt io.WriterTo) error {
	file, err := os.Create(path)
	if err != nil {
		return object.Errorf(object.ErrIO, "%v", err)
	}
	_, err = wt.WriteTo(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeBytes(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return object.Errorf(object.ErrIO, "%v", err)
	}
	return nil
}

func (s *Session) printDiagnostics(diags []asm.Diagnostic) {
	for _, d := range diags {
		s.println(d.String())
	}
}

func (s *Session) print(args ...any) {
	fmt.Fprint(s.output, args...)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.output, format, args...)
	s.flush()
}

func (s *Session) println(args ...any) {
	fmt.Fprintln(s.output, args...)
	s.flush()
}

// Flush writes any buffered session output.
func (s *Session) Flush() {
	s.flush()
}

func (s *Session) flush() {
	s.output.Flush()
}
