// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import "strings"

// Externals holds the symbols a unit imports (REF) and exports (DEF).
type Externals struct {
	Refs []string
	Defs map[string]Address

	refSet   map[string]bool
	defOrder []string
}

// NewExternals creates an empty set of externals.
func NewExternals() *Externals {
	return &Externals{
		Defs:   make(map[string]Address),
		refSet: make(map[string]bool),
	}
}

// AddRef imports a symbol.
func (x *Externals) AddRef(name string) {
	if !x.refSet[name] {
		x.refSet[name] = true
		x.Refs = append(x.Refs, name)
	}
}

// IsRef reports whether a symbol is imported.
func (x *Externals) IsRef(name string) bool {
	return x.refSet[name]
}

// AddDef exports a symbol. Exporting a name twice keeps the latest value.
func (x *Externals) AddDef(name string, a Address) {
	if _, ok := x.Defs[name]; !ok {
		x.defOrder = append(x.defOrder, name)
	}
	x.Defs[name] = a
}

// DefNames returns the exported names in the order they were added.
func (x *Externals) DefNames() []string {
	return x.defOrder
}

// The built-in symbols are the fixed hardware addresses of the TI-99/4A, which
// need no REF to be used.
var builtins = map[string]uint16{
	"SCRPAD": 0x8300,
	"GPLWS":  0x83e0,
	"SOUND":  0x8400,
	"VDPRD":  0x8800,
	"VDPSTA": 0x8802,
	"VDPWD":  0x8c00,
	"VDPWA":  0x8c02,
	"SPCHRD": 0x9000,
	"SPCHWT": 0x9400,
	"GRMRD":  0x9800,
	"GRMRA":  0x9802,
	"GRMWD":  0x9c00,
	"GRMWA":  0x9c02,
}

// Builtin returns the address of a built-in hardware symbol.
func Builtin(name string) (uint16, bool) {
	v, ok := builtins[strings.ToUpper(name)]
	return v, ok
}
