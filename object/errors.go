// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"errors"
	"fmt"
)

// Error kinds shared by the assembler, the linker and the output
// generators. Use errors.Is to test an error against a kind.
var (
	ErrSyntax          = errors.New("syntax error")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidRegister = errors.New("invalid register")
	ErrInvalidOperand  = errors.New("invalid operand")
	ErrLayout          = errors.New("layout error")
	ErrIO              = errors.New("i/o error")
)

// An Error is a message tagged with one of the error kinds.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf creates a new Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
