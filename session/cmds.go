// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/go9900/object"
	"github.com/k0kubun/pp/v3"
)

type handler func(*Session, cmd.Selection) error

type helpEntry struct {
	usage string
	brief string
}

var (
	cmds     *cmd.Tree
	helpList []helpEntry
)

func addCommand(t *cmd.Tree, d cmd.CommandDescriptor) {
	t.AddCommand(d)
	if d.Brief != "" {
		helpList = append(helpList, helpEntry{d.Usage, d.Brief})
	}
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "go9900"})
	addCommand(root, cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
		Data:        handler((*Session).cmdHelp),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:  "assemble",
		Brief: "Assemble a source file into a new unit",
		Description: "Run the assembler on the specified file using the" +
			" current settings and definitions. Errors and warnings are" +
			" displayed; a unit with errors is discarded.",
		Usage: "assemble <filename>",
		Data:  handler((*Session).cmdAssemble),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load an object code file as a new unit",
		Description: "Read a file in tagged object code format. The unit" +
			" may be relocatable and may reference symbols defined by" +
			" other units.",
		Usage: "load <filename>",
		Data:  handler((*Session).cmdLoad),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:  "link",
		Brief: "Link all units",
		Description: "Place the relocatable units after the base address," +
			" resolve references between units and report the placement" +
			" of each unit.",
		Usage: "link",
		Data:  handler((*Session).cmdLink),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:  "define",
		Brief: "Define a symbol for later assemblies",
		Description: "Define a symbol that is visible to all units assembled" +
			" afterwards. The value defaults to 1. Without arguments, the" +
			" current definitions are displayed.",
		Usage: "define [<name>[=<value>]]",
		Data:  handler((*Session).cmdDefine),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		Usage: "set [<var> <value>]",
		Data:  handler((*Session).cmdSet),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:  "units",
		Brief: "List the units of the session",
		Usage: "units",
		Data:  handler((*Session).cmdUnits),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump the linked program",
		Description: "Display the unit placement and the segments of the" +
			" linked program in detail.",
		Usage: "dump",
		Data:  handler((*Session).cmdDump),
	})
	addCommand(root, cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
		Data:        handler((*Session).cmdQuit),
	})

	// Write commands
	wr := root.AddSubtree(cmd.TreeDescriptor{Name: "write", Brief: "Write commands"})
	addCommand(wr, cmd.CommandDescriptor{
		Name:  "output",
		Brief: "Write the program in the selected format",
		Description: "Write the program using the output format selected" +
			" with the format setting: object, binary, image, cart or text.",
		Usage: "write output <filename>",
		Data:  handler((*Session).cmdWriteOutput),
	})
	addCommand(wr, cmd.CommandDescriptor{
		Name:  "listing",
		Brief: "Write the listing of the assembled units",
		Usage: "write listing <filename>",
		Data:  handler((*Session).cmdWriteListing),
	})
	addCommand(wr, cmd.CommandDescriptor{
		Name:  "symbols",
		Brief: "Write the symbol table of the assembled units",
		Usage: "write symbols <filename>",
		Data:  handler((*Session).cmdWriteSymbols),
	})
	addCommand(wr, cmd.CommandDescriptor{
		Name:  "equates",
		Brief: "Write the symbols as EQU statements",
		Usage: "write equates <filename>",
		Data:  handler((*Session).cmdWriteEquates),
	})
	addCommand(wr, cmd.CommandDescriptor{
		Name:  "sourcemap",
		Brief: "Write the source map of the first unit",
		Usage: "write sourcemap <filename>",
		Data:  handler((*Session).cmdWriteSourceMap),
	})

	// Add command shortcuts.
	root.AddShortcut("a", "assemble")
	root.AddShortcut("l", "load")
	root.AddShortcut("w", "write output")
	root.AddShortcut("wl", "write listing")
	root.AddShortcut("ws", "write symbols")
	root.AddShortcut("?", "help")

	cmds = root
}

// RunCommands accepts session commands from a reader and outputs the
// results to a writer. If the commands are interactive, a prompt is
// displayed while the session waits for the next command. The return
// value reports whether every command succeeded.
func (s *Session) RunCommands(r io.Reader, w io.Writer, interactive bool) bool {
	s.input = bufio.NewScanner(r)
	s.output = bufio.NewWriter(w)
	s.interactive = interactive

	ok := true
	for {
		s.prompt()

		line, err := s.getLine()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		c, err := cmds.Lookup(line)
		switch {
		case err == cmd.ErrNotFound:
			s.println("Command not found.")
			ok = false
			continue
		case err == cmd.ErrAmbiguous:
			s.println("Command is ambiguous.")
			ok = false
			continue
		case err != nil:
			s.printf("ERROR: %v.\n", err)
			ok = false
			continue
		}
		if c.Command == nil {
			continue
		}

		h := c.Command.Data.(handler)
		err = h(s, c)
		if err == errQuit {
			break
		}
		if err != nil {
			s.printf("ERROR: %v.\n", err)
			ok = false
		}
	}
	s.flush()
	return ok
}

func (s *Session) getLine() (string, error) {
	if s.input.Scan() {
		return s.input.Text(), nil
	}
	if s.input.Err() != nil {
		return "", s.input.Err()
	}
	return "", io.EOF
}

func (s *Session) prompt() {
	if s.interactive {
		s.print("* ")
		s.flush()
	}
}

func (s *Session) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		s.println("Commands:")
		for _, e := range helpList {
			s.printf("    %-28s %s\n", e.usage, e.brief)
		}
		return nil
	}

	sel, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil {
		s.printf("%v\n", err)
		return nil
	}
	if sel.Command == nil {
		return nil
	}
	if sel.Command.Usage != "" {
		s.printf("Syntax: %s\n\n", sel.Command.Usage)
	}
	switch {
	case sel.Command.Description != "":
		s.printf("Description:\n%s\n\n", indentWrap(3, sel.Command.Description))
	case sel.Command.Brief != "":
		s.printf("Description:\n%s.\n\n", indentWrap(3, sel.Command.Brief))
	}
	return nil
}

func (s *Session) usage(c cmd.Selection) {
	s.printf("Syntax: %s\n", c.Command.Usage)
}

func (s *Session) cmdAssemble(c cmd.Selection) error {
	if len(c.Args) != 1 {
		s.usage(c)
		return nil
	}
	u, err := s.Assemble(c.Args[0])
	if err != nil {
		return err
	}
	s.printf("Assembled '%s' as unit %d (%d cycles).\n", u.Name, u.ID, u.Assembly.Cycles)
	return nil
}

func (s *Session) cmdLoad(c cmd.Selection) error {
	if len(c.Args) != 1 {
		s.usage(c)
		return nil
	}
	u, err := s.Load(c.Args[0])
	if err != nil {
		return err
	}
	s.printf("Loaded '%s' as unit %d.\n", u.Name, u.ID)
	return nil
}

func (s *Session) cmdLink(c cmd.Selection) error {
	p, err := s.Link()
	if err != nil {
		return err
	}
	ids := make([]int, 0, len(s.Offsets))
	for id := range s.Offsets {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s.printf("Unit %d placed at >%04X.\n", id, s.Offsets[id])
	}
	if p.Entry != nil {
		s.printf("Entry at >%04X.\n", p.Entry.Addr)
	}
	return nil
}

func (s *Session) cmdDefine(c cmd.Selection) error {
	if len(c.Args) == 0 {
		names := make([]string, 0, len(s.Defines))
		for n := range s.Defines {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			v := s.Defines[n]
			if v == "" {
				v = "1"
			}
			s.printf("    %-14s %s\n", n, v)
		}
		return nil
	}
	for _, def := range c.Args {
		if err := s.Define(def); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		s.println("Variables:")
		s.Settings.Display(s.output)
		s.flush()
	case 1:
		s.usage(c)
	default:
		key, value := c.Args[0], strings.Join(c.Args[1:], " ")
		if err := s.Settings.SetString(key, value); err != nil {
			return err
		}
		s.println("Setting updated.")
	}
	return nil
}

func (s *Session) cmdUnits(c cmd.Selection) error {
	if len(s.Units) == 0 {
		s.println("No units.")
		return nil
	}
	for _, u := range s.Units {
		kind := "object"
		if u.Assembly != nil {
			kind = "source"
		}
		reloc := ""
		if u.Program.Relocatable() {
			reloc = " relocatable"
		}
		s.printf("    %2d  %-6s %s%s\n", u.ID, kind, u.Name, reloc)
	}
	return nil
}

type unitSummary struct {
	ID        int
	Name      string
	RelocSize int
	Defs      []string
	Refs      []string
}

func (s *Session) cmdDump(c cmd.Selection) error {
	p, err := s.Link()
	if err != nil {
		return err
	}

	var units []unitSummary
	for _, u := range s.Units {
		units = append(units, unitSummary{
			ID:        u.ID,
			Name:      u.Name,
			RelocSize: u.Program.RelocSize(u.ID),
			Defs:      u.Program.Externals.DefNames(),
			Refs:      u.Program.References(),
		})
	}

	printer := pp.New()
	printer.SetOutput(s.output)
	printer.SetColoringEnabled(false)
	printer.Println(units)
	printer.Println(s.Offsets)
	printer.Println(dumpSegments(p))
	s.flush()
	return nil
}

type segmentSummary struct {
	Start, End int
	Reloc      bool
	Bank       int
	Dummy      bool
}

func dumpSegments(p *object.Program) []segmentSummary {
	var segs []segmentSummary
	for _, seg := range p.Segments {
		if seg.Empty() {
			continue
		}
		segs = append(segs, segmentSummary{seg.Start(), seg.End(), seg.Reloc, seg.Bank, seg.Dummy})
	}
	return segs
}

func (s *Session) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (s *Session) fileArg(c cmd.Selection) (string, bool) {
	if len(c.Args) != 1 {
		s.usage(c)
		return "", false
	}
	return c.Args[0], true
}

func (s *Session) cmdWriteOutput(c cmd.Selection) error {
	if path, ok := s.fileArg(c); ok {
		return s.Write(path)
	}
	return nil
}

func (s *Session) cmdWriteListing(c cmd.Selection) error {
	if path, ok := s.fileArg(c); ok {
		return s.WriteListing(path)
	}
	return nil
}

func (s *Session) cmdWriteSymbols(c cmd.Selection) error {
	if path, ok := s.fileArg(c); ok {
		return s.WriteSymbols(path, false)
	}
	return nil
}

func (s *Session) cmdWriteEquates(c cmd.Selection) error {
	if path, ok := s.fileArg(c); ok {
		return s.WriteSymbols(path, true)
	}
	return nil
}

func (s *Session) cmdWriteSourceMap(c cmd.Selection) error {
	if path, ok := s.fileArg(c); ok {
		return s.WriteSourceMap(path)
	}
	return nil
}
