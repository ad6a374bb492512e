// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/go9900/object"
)

var hex = "0123456789ABCDEF"

// Return a 4-digit hexadecimal representation of a word.
func hexWord(v uint16) string {
	return string([]byte{hex[v>>12], hex[v>>8&0xf], hex[v>>4&0xf], hex[v&0xf]})
}

// Return a 2-digit hexadecimal representation of a byte.
func hexByte(v byte) string {
	return string([]byte{hex[v>>4], hex[v&0xf]})
}

// Pad a name with dots up to a width.
func padDots(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(".", width-len(s))
}

// Return the listing text of a value: relocatable addresses carry a
// trailing quote, external references a trailing double quote.
func valueText(v object.Value) string {
	switch v := v.(type) {
	case object.Address:
		if v.Reloc {
			return hexWord(v.Addr) + "'"
		}
		return hexWord(v.Addr)
	case object.Reference:
		return "0000\""
	case nil:
		return "????"
	default:
		return hexWord(object.Val(v))
	}
}
