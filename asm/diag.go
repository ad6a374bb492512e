// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

// Severity of a diagnostic.
type Severity byte

// All severities
const (
	SeverityWarning Severity = iota
	SeverityError
)

// A Category classifies warnings so they can be enabled independently.
type Category byte

// All warning categories
const (
	CategoryGeneral      Category = 1 << iota // always reported
	CategoryOptimization                      // shorter code is possible
	CategorySuspicious                        // likely a mistake
	CategoryUnused                            // symbol never used
	CategoryPrecedence                        // left-to-right evaluation differs from usual precedence
)

var categoryNames = map[Category]string{
	CategoryGeneral:      "",
	CategoryOptimization: "optimization",
	CategorySuspicious:   "suspicious",
	CategoryUnused:       "unused",
	CategoryPrecedence:   "precedence",
}

func (c Category) String() string {
	return categoryNames[c]
}

// Warnings is a set of enabled warning categories.
type Warnings byte

// AllWarnings enables every category.
const AllWarnings = Warnings(CategoryOptimization | CategorySuspicious | CategoryUnused | CategoryPrecedence)

// Enabled reports whether warnings of a category are reported.
func (w Warnings) Enabled(c Category) bool {
	return c == CategoryGeneral || Warnings(c)&w != 0
}

// A Diagnostic is an error or warning tied to a source line.
type Diagnostic struct {
	Pass     int    // 0 for diagnostics not tied to a pass
	File     string // source file name
	Line     int    // 1-based line number, 0 when unknown
	Source   string // source line text
	Message  string
	Category Category
	Severity Severity
	Err      error // error kind for errors
}

func (d Diagnostic) String() string {
	kind := "Error"
	if d.Severity == SeverityWarning {
		kind = "Warning"
		if c := d.Category.String(); c != "" {
			kind = fmt.Sprintf("Warning (%s)", c)
		}
	}
	if d.Line == 0 {
		return fmt.Sprintf("%s: %s: %s", d.File, kind, d.Message)
	}
	return fmt.Sprintf("%s <%d> %s\n***** %s: %s", d.File, d.Line, d.Source, kind, d.Message)
}
