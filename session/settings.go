// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/go9900/object"
	"github.com/beevik/prefixtree/v2"
)

// Settings configure the assembler, the linker and the output writers of a
// session. Names are matched by unique prefix, ignoring case.
type Settings struct {
	Syntax       string `doc:"syntax mode: default, strict or relaxed"`
	Arch         string `doc:"target cpu: tms9900 or tms9995"`
	IncludePath  string `doc:"include directories, separated by commas"`
	Format       string `doc:"output format: object, binary, image, cart or text"`
	Name         string `doc:"program name, derived from the output file when empty"`
	Base         uint16 `doc:"address of the first relocatable unit"`
	Resolve      bool   `doc:"move relocatable units clear of absolute code"`
	Quiet        bool   `doc:"leave unresolved references as zero"`
	Minimize     bool   `doc:"strip leading and trailing zeros of binaries"`
	Join         bool   `doc:"join the banks of a binary into one file"`
	ChunkSize    int    `doc:"size of program image files"`
	TextFlavor   string `doc:"text dump flavor: asm, basic or c"`
	TextWords    bool   `doc:"text dump of words instead of bytes"`
	TextReverse  bool   `doc:"swap the bytes of text dump words"`
	WarnOptimize bool   `doc:"warn about shorter alternatives"`
	WarnSuspect  bool   `doc:"warn about suspicious code"`
	WarnUnused   bool   `doc:"warn about unused symbols"`
	WarnPrec     bool   `doc:"warn about left-to-right evaluation"`
	Verbose      bool   `doc:"verbose assembler output"`
}

// DefaultBase is the link address of relocatable code unless the base
// setting is changed. Cartridges link at the address following their
// header instead.
const DefaultBase = 0xA000

// DefaultSettings returns the initial settings of a session.
func DefaultSettings() *Settings {
	return &Settings{
		Syntax:       "default",
		Arch:         "tms9900",
		Format:       "object",
		Base:         DefaultBase,
		ChunkSize:    object.DefaultChunkSize,
		TextFlavor:   "asm",
		WarnOptimize: true,
		WarnSuspect:  true,
		WarnUnused:   true,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(Settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// Display writes every setting with its value and description.
func (s *Settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch f.kind {
		case reflect.String:
			s = fmt.Sprintf("    %-14s \"%s\"", f.name, v.String())
		case reflect.Uint16:
			s = fmt.Sprintf("    %-14s >%04X", f.name, uint16(v.Uint()))
		default:
			s = fmt.Sprintf("    %-14s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-30s (%s)\n", s, f.doc)
	}
}

// Kind returns the kind of a setting, or reflect.Invalid if the key does
// not select exactly one setting.
func (s *Settings) Kind(key string) reflect.Kind {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid
	}
	return f.kind
}

// Set changes a setting to a value of a convertible type.
func (s *Settings) Set(key string, value any) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return fmt.Errorf("setting '%s': %w", key, err)
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.String && vIn.Type().Kind() != reflect.String) ||
		(f.kind != reflect.String && vIn.Type().Kind() == reflect.String) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return errors.New("invalid type")
	}
	vInConverted := vIn.Convert(f.typ)

	vOut := reflect.ValueOf(s).Elem().Field(f.index).Addr().Elem()
	vOut.Set(vInConverted)
	return nil
}

// SetString parses a textual value according to the kind of the setting
// and stores it. Numbers are decimal, or hexadecimal with a '>' or "0x"
// prefix.
func (s *Settings) SetString(key, value string) error {
	switch s.Kind(key) {
	case reflect.Invalid:
		return fmt.Errorf("Setting '%s' not found", key)
	case reflect.String:
		return s.Set(key, value)
	case reflect.Bool:
		v, err := stringToBool(value)
		if err != nil {
			return err
		}
		return s.Set(key, v)
	default:
		v, err := parseNumber(value)
		if err != nil {
			return err
		}
		return s.Set(key, v)
	}
}

// Output formats
type Format byte

// All output formats
const (
	FormatObject Format = iota
	FormatBinary
	FormatImage
	FormatCart
	FormatText
)

var formatNames = []string{"object", "binary", "image", "cart", "text"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "?"
}

var (
	formatTree = prefixtree.New[Format]()
	flavorTree = prefixtree.New[object.TextFlavor]()
)

func init() {
	for i, n := range formatNames {
		formatTree.Add(n, Format(i))
	}
	for i, n := range object.TextFlavorNames {
		flavorTree.Add(n, object.TextFlavor(i))
	}
}

// ParseFormat returns the output format selected by a unique prefix of its
// name.
func ParseFormat(name string) (Format, error) {
	f, err := formatTree.FindValue(strings.ToLower(name))
	if err != nil {
		return FormatObject, fmt.Errorf("output format '%s': %w", name, err)
	}
	return f, nil
}

// ParseTextFlavor returns the text dump flavor selected by a unique prefix
// of its name.
func ParseTextFlavor(name string) (object.TextFlavor, error) {
	f, err := flavorTree.FindValue(strings.ToLower(name))
	if err != nil {
		return object.TextAssembly, fmt.Errorf("text flavor '%s': %w", name, err)
	}
	return f, nil
}

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false", "off", "no":
		return false, nil
	case "1", "true", "on", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value '%s'", s)
	}
}

func parseNumber(s string) (int, error) {
	base := 10
	switch {
	case strings.HasPrefix(s, ">"):
		s, base = s[1:], 16
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid number '%s'", s)
	}
	return int(v), nil
}
