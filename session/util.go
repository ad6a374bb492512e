// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"os"
	"strings"

	"github.com/beevik/term"
)

const defaultWidth = 80

// IsTerminal reports whether standard input is an interactive terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func screenWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w < 20 {
		return defaultWidth
	}
	return w
}

// Wrap text into lines no wider than the screen, each indented.
func indentWrap(indent int, s string) string {
	width := screenWidth() - indent - 1
	pad := strings.Repeat(" ", indent)

	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(s) {
		switch {
		case n == 0:
			b.WriteString(pad)
		case n+1+len(word) > width:
			b.WriteByte('\n')
			b.WriteString(pad)
			n = 0
		default:
			b.WriteByte(' ')
			n++
		}
		b.WriteString(word)
		n += len(word)
	}
	return b.String()
}
