// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/go9900/session"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

type options struct {
	output      string
	format      string
	name        string
	base        uint16
	resolve     bool
	quiet       bool
	minimize    bool
	join        bool
	chunk       int
	flavor      string
	textWords   bool
	textReverse bool
	listing     string
	symbols     string
	equates     string
	sourceMap   string
	defines     []string
	includes    []string
	syntax      string
	arch        string
	warnings    bool
	verbose     bool
	scripts     []string
	interactive bool
}

func newRootCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "go9900 [flags] [file ...]",
		Short: "TMS9900 cross-assembler and linker",
		Long: "go9900 assembles TMS9900 and TMS9995 source files, links them with\n" +
			"object code files, and writes object code, binaries, program images,\n" +
			"cartridges or text dumps. Without files it reads commands from the\n" +
			"standard input.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			flag.CommandLine.Parse(nil)
			defer glog.Flush()
			return run(&opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file name")
	f.StringVarP(&opts.format, "format", "f", "object", "output format: object, binary, image, cart or text")
	f.StringVarP(&opts.name, "name", "n", "", "program name")
	f.Uint16VarP(&opts.base, "base", "a", 0xa000, "address of the first relocatable unit")
	f.BoolVarP(&opts.resolve, "resolve-conflicts", "R", false, "move relocatable units clear of absolute code")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "leave unresolved references as zero")
	f.BoolVarP(&opts.minimize, "minimize", "m", false, "strip leading and trailing zeros of binaries")
	f.BoolVarP(&opts.join, "join", "j", false, "join the banks of a binary into one file")
	f.IntVar(&opts.chunk, "chunk-size", 0x2000, "size of program image files")
	f.StringVar(&opts.flavor, "text", "asm", "text dump flavor: asm, basic or c")
	f.BoolVar(&opts.textWords, "text-words", false, "text dump of words instead of bytes")
	f.BoolVar(&opts.textReverse, "text-reverse", false, "swap the bytes of text dump words")
	f.StringVarP(&opts.listing, "listing", "L", "", "write the listing to a file")
	f.StringVarP(&opts.symbols, "symbols", "S", "", "write the symbol table to a file")
	f.StringVarP(&opts.equates, "equates", "E", "", "write the symbols as EQU statements to a file")
	f.StringVar(&opts.sourceMap, "source-map", "", "write the source map to a file")
	f.StringArrayVarP(&opts.defines, "define", "D", nil, "define a symbol, as name[=value]")
	f.StringArrayVarP(&opts.includes, "include", "I", nil, "add an include directory")
	f.StringVarP(&opts.syntax, "syntax", "s", "default", "syntax mode: default, strict or relaxed")
	f.StringVar(&opts.arch, "cpu", "tms9900", "target cpu: tms9900 or tms9995")
	f.BoolVarP(&opts.warnings, "warnings", "w", false, "enable all warnings")
	f.BoolVarP(&opts.verbose, "verbose", "V", false, "verbose assembler output")
	f.StringArrayVarP(&opts.scripts, "script", "x", nil, "run the commands of a file")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "read commands after processing the files")

	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	return cmd
}

func configure(s *session.Session, opts *options) error {
	st := s.Settings
	st.Format = opts.format
	st.Name = opts.name
	st.Base = opts.base
	st.Resolve = opts.resolve
	st.Quiet = opts.quiet
	st.Minimize = opts.minimize
	st.Join = opts.join
	st.ChunkSize = opts.chunk
	st.TextFlavor = opts.flavor
	st.TextWords = opts.textWords
	st.TextReverse = opts.textReverse
	st.IncludePath = strings.Join(opts.includes, ",")
	st.Syntax = opts.syntax
	st.Arch = opts.arch
	st.Verbose = opts.verbose
	if opts.warnings {
		st.WarnPrec = true
	}

	if _, err := session.ParseFormat(st.Format); err != nil {
		return err
	}
	if _, err := session.ParseTextFlavor(st.TextFlavor); err != nil {
		return err
	}
	for _, d := range opts.defines {
		if err := s.Define(d); err != nil {
			return err
		}
	}
	return nil
}

func isObjectCode(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj", ".o":
		return true
	default:
		return false
	}
}

func run(opts *options, args []string) error {
	s := session.New(os.Stdout)
	defer s.Flush()

	if err := configure(s, opts); err != nil {
		return err
	}

	for _, path := range args {
		var err error
		if isObjectCode(path) {
			_, err = s.Load(path)
		} else {
			_, err = s.Assemble(path)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if len(args) > 0 {
		out := opts.output
		if out == "" {
			out = s.DefaultOutput(args[0])
		}
		if err := s.Write(out); err != nil {
			return err
		}
		if err := writeExtras(s, opts); err != nil {
			return err
		}
	}

	for _, script := range opts.scripts {
		file, err := os.Open(script)
		if err != nil {
			return err
		}
		ok := s.RunCommands(file, os.Stdout, false)
		file.Close()
		if !ok {
			return fmt.Errorf("%s: command failed", script)
		}
	}

	if opts.interactive || (len(args) == 0 && len(opts.scripts) == 0) {
		s.RunCommands(os.Stdin, os.Stdout, session.IsTerminal())
	}
	return nil
}

func writeExtras(s *session.Session, opts *options) error {
	if opts.listing != "" {
		if err := s.WriteListing(opts.listing); err != nil {
			return err
		}
	}
	if opts.symbols != "" {
		if err := s.WriteSymbols(opts.symbols, false); err != nil {
			return err
		}
	}
	if opts.equates != "" {
		if err := s.WriteSymbols(opts.equates, true); err != nil {
			return err
		}
	}
	if opts.sourceMap != "" {
		return s.WriteSourceMap(opts.sourceMap)
	}
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}
