// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"

	"github.com/beevik/go9900/object"
)

//
// exprOp
//

type exprOp byte

const (
	// unary operations
	opUnaryMinus exprOp = iota
	opUnaryPlus
	opBitwiseNEG

	// binary operations, longest symbols first
	opPower
	opUnsignedDivide
	opUnsignedModulo
	opShiftLeft
	opShiftRight
	opMultiply
	opDivide
	opModulo
	opAdd
	opSubtract
	opBitwiseAND
	opBitwiseOR
	opBitwiseXOR

	// value "operations"
	opNumber
	opIdentifier
	opLocal
	opText
	opLC

	// pseudo-operations (used only during parsing but not stored in expr's)
	opLeftParen
	opRightParen
)

type opdata struct {
	precedence      byte
	binary          bool
	leftAssociative bool
	symbol          string
	eval            func(a, b object.Word) (object.Word, error)
}

func wrap(fn func(a, b object.Word) object.Word) func(a, b object.Word) (object.Word, error) {
	return func(a, b object.Word) (object.Word, error) { return fn(a, b), nil }
}

// All binary operators share one precedence level and are evaluated
// strictly from left to right. Unary operators bind tighter.
var ops = []opdata{
	{2, false, false, "-", wrap(func(a, b object.Word) object.Word { return a.Neg() })},  // uminus
	{2, false, false, "+", wrap(func(a, b object.Word) object.Word { return a })},        // uplus
	{2, false, false, "~", wrap(func(a, b object.Word) object.Word { return a.Not() })},  // bitneg
	{1, true, true, "**", wrap(object.Word.Pow)},                                         // power
	{1, true, true, "//", object.Word.Div},                                               // unsigned divide
	{1, true, true, "%%", object.Word.Mod},                                               // unsigned modulo
	{1, true, true, "<<", wrap(object.Word.Shl)},                                         // shift_left
	{1, true, true, ">>", wrap(object.Word.Shr)},                                         // shift_right
	{1, true, true, "*", wrap(object.Word.Mul)},                                          // multiply
	{1, true, true, "/", object.Word.SDiv},                                               // divide
	{1, true, true, "%", object.Word.SMod},                                               // modulo
	{1, true, true, "+", wrap(object.Word.Add)},                                          // add
	{1, true, true, "-", wrap(object.Word.Sub)},                                          // subtract
	{1, true, true, "&", wrap(object.Word.And)},                                          // and
	{1, true, true, "|", wrap(object.Word.Or)},                                           // or
	{1, true, true, "^", wrap(object.Word.Xor)},                                          // xor

	// value operations
	{0, false, false, "", nil}, // number
	{0, false, false, "", nil}, // identifier
	{0, false, false, "", nil}, // local
	{0, false, false, "", nil}, // text
	{0, false, false, "$", nil}, // location counter

	// pseudo-operations
	{0, false, false, "", nil}, // lparen
	{0, false, false, "", nil}, // rparen
}

func (op exprOp) isBinary() bool {
	return ops[op].binary
}

func (op exprOp) symbol() string {
	return ops[op].symbol
}

func (op exprOp) isCollapsible() bool {
	return ops[op].precedence > 0
}

// Binding strength of a binary operator in the usual notation, where
// ** binds tightest and | loosest. Zero for all other operators.
func (op exprOp) conventionalRank() int {
	switch op {
	case opPower:
		return 7
	case opMultiply, opDivide, opModulo, opUnsignedDivide, opUnsignedModulo:
		return 6
	case opAdd, opSubtract:
		return 5
	case opShiftLeft, opShiftRight:
		return 4
	case opBitwiseAND:
		return 3
	case opBitwiseXOR:
		return 2
	case opBitwiseOR:
		return 1
	}
	return 0
}

// Compare the precendence and associativity of 'op' to 'other'.
// Return true if the shunting yard algorithm should cause an
// expression node collapse.
func (op exprOp) collapses(other exprOp) bool {
	if ops[op].leftAssociative {
		return ops[op].precedence <= ops[other].precedence
	}
	return ops[op].precedence < ops[other].precedence
}

//
// expr
//

// An expr represents a single node in a binary expression tree.
// The root node represents an entire expression.
type expr struct {
	op         exprOp
	number     object.Word
	identifier fstring
	local      Local
	text       int
	child0     *expr
	child1     *expr
}

// Return the expression as a postfix notation string.
func (e *expr) String() string {
	switch {
	case e.op == opNumber:
		return fmt.Sprintf("%d", e.number)
	case e.op == opIdentifier:
		return e.identifier.str
	case e.op == opLocal:
		return fmt.Sprintf("!%s%+d", e.local.Name, e.local.Distance)
	case e.op == opText:
		return fmt.Sprintf("'%d'", e.text)
	case e.op == opLC:
		return "$"
	case e.op.isBinary():
		return fmt.Sprintf("%s %s %s", e.child0.String(), e.child1.String(), e.op.symbol())
	default:
		return fmt.Sprintf("%s [%s]", e.child0.String(), e.op.symbol())
	}
}

// A resolver supplies the values of the names an expression refers to.
// A nil value without an error stands for a symbol that is not known
// yet.
type resolver interface {
	symbol(name string) (object.Value, error)
	local(l Local) (object.Value, error)
	location() object.Address
	textValue(index int) (string, error)
}

// A term is an intermediate result of expression evaluation. The reloc
// count is the number of relocatable addresses added minus the number
// subtracted; addrs counts absolute and relocatable addresses the same
// way.
type term struct {
	value   object.Word
	reloc   int
	addrs   int
	bank    int
	unit    int
	ref     *object.Reference
	unknown bool
}

func newTerm(v object.Value) term {
	switch v := v.(type) {
	case object.Word:
		return term{value: v}
	case object.Address:
		t := term{value: object.Word(v.Addr), addrs: 1, bank: v.Bank, unit: v.Unit}
		if v.Reloc {
			t.reloc = 1
		}
		return t
	case object.Reference:
		return term{ref: &v}
	default:
		return term{unknown: true}
	}
}

// Convert the term into the value of a complete expression.
func (t term) result() (object.Value, error) {
	switch {
	case t.unknown:
		return nil, nil
	case t.ref != nil:
		return *t.ref, nil
	case t.reloc == 1:
		return object.Address{Addr: uint16(t.value), Reloc: true, Bank: t.bank, Unit: t.unit}, nil
	case t.reloc != 0:
		return nil, object.Errorf(object.ErrInvalidAddress, "Invalid relocatable expression")
	case t.addrs == 1:
		return object.Address{Addr: uint16(t.value), Bank: t.bank}, nil
	default:
		return t.value, nil
	}
}

// Evaluate the expression tree.
func (e *expr) eval(r resolver) (term, error) {
	switch e.op {
	case opNumber:
		return term{value: e.number}, nil

	case opIdentifier:
		v, err := r.symbol(e.identifier.str)
		if err != nil {
			return term{}, err
		}
		return newTerm(v), nil

	case opLocal:
		v, err := r.local(e.local)
		if err != nil {
			return term{}, err
		}
		return newTerm(v), nil

	case opLC:
		return newTerm(r.location()), nil

	case opText:
		s, err := r.textValue(e.text)
		if err != nil {
			return term{}, err
		}
		switch len(s) {
		case 1:
			return term{value: object.Word(s[0])}, nil
		case 2:
			return term{value: object.Word(s[0])<<8 | object.Word(s[1])}, nil
		default:
			return term{}, object.Errorf(object.ErrSyntax, "Invalid text literal: '%s'", s)
		}
	}

	a, err := e.child0.eval(r)
	if err != nil {
		return term{}, err
	}
	var b term
	if e.op.isBinary() {
		if b, err = e.child1.eval(r); err != nil {
			return term{}, err
		}
	}
	if a.ref != nil || b.ref != nil {
		return term{}, object.Errorf(object.ErrInvalidAddress, "Invalid use of external reference")
	}
	if a.unknown || b.unknown {
		return term{unknown: true}, nil
	}

	t := term{bank: a.bank, unit: a.unit}
	if a.addrs == 0 {
		t.bank, t.unit = b.bank, b.unit
	}
	switch e.op {
	case opAdd, opUnaryPlus:
		t.reloc, t.addrs = a.reloc+b.reloc, a.addrs+b.addrs
	case opSubtract:
		t.reloc, t.addrs = a.reloc-b.reloc, a.addrs-b.addrs
	case opUnaryMinus:
		t.reloc, t.addrs = -a.reloc, -a.addrs
	default:
		if a.reloc != 0 || b.reloc != 0 {
			return term{}, object.Errorf(object.ErrInvalidAddress, "Invalid operation on relocatable address")
		}
	}
	t.value, err = ops[e.op].eval(a.value, b.value)
	return t, err
}

//
// token
//

type tokentype byte

const (
	tokenNil tokentype = iota
	tokenOp
	tokenNumber
	tokenIdentifier
	tokenLocal
	tokenText
	tokenLC
	tokenLeftParen
	tokenRightParen
)

func (tt tokentype) isValue() bool {
	return tt >= tokenNumber && tt <= tokenLC
}

type token struct {
	tt         tokentype
	number     object.Word
	identifier fstring
	local      Local
	text       int
	op         exprOp
}

//
// exprParser
//

type exprParser struct {
	operandStack  exprStack
	operatorStack opStack
	parenCounter  int
	prevToken     token
	loosest       []int  // loosest binary operator seen, per parenthesis level
	precedence    bool   // result depends on left-to-right evaluation
}

// Parse an expression from the line until it is exhausted.
func (p *exprParser) parse(line fstring) (e *expr, err error) {
	p.prevToken = token{}
	p.loosest = append(p.loosest[:0], 0)
	p.precedence = false
	defer p.reset()

	// Process expression using Dijkstra's shunting-yard algorithm
	for err == nil {

		// Parse the next expression token
		var token token
		var out fstring
		token, out, err = p.parseToken(line)
		if err != nil {
			break
		}

		// We're done when the token parser returns the nil token
		if token.tt == tokenNil {
			break
		}

		// Handle each possible token type
		switch token.tt {

		case tokenNumber:
			p.operandStack.push(&expr{op: opNumber, number: token.number})

		case tokenIdentifier:
			p.operandStack.push(&expr{op: opIdentifier, identifier: token.identifier})

		case tokenLocal:
			p.operandStack.push(&expr{op: opLocal, local: token.local})

		case tokenText:
			p.operandStack.push(&expr{op: opText, text: token.text})

		case tokenLC:
			p.operandStack.push(&expr{op: opLC})

		case tokenOp:
			p.checkPrecedence(token.op)
			for err == nil && !p.operatorStack.empty() && token.op.collapses(p.operatorStack.peek()) {
				err = p.operandStack.collapse(p.operatorStack.pop())
			}
			p.operatorStack.push(token.op)

		case tokenLeftParen:
			p.operatorStack.push(opLeftParen)
			p.loosest = append(p.loosest, 0)

		case tokenRightParen:
			for err == nil {
				if p.operatorStack.empty() {
					err = object.Errorf(object.ErrSyntax, "Mismatched parentheses")
					break
				}
				op := p.operatorStack.pop()
				if op == opLeftParen {
					break
				}
				err = p.operandStack.collapse(op)
			}
			p.loosest = p.loosest[:len(p.loosest)-1]
		}
		line = out
	}

	if err == nil && p.parenCounter != 0 {
		err = object.Errorf(object.ErrSyntax, "Mismatched parentheses")
	}

	// Collapse any operators (and operands) remaining on the stack
	for err == nil && !p.operatorStack.empty() {
		err = p.operandStack.collapse(p.operatorStack.pop())
	}

	if err == nil {
		if len(p.operandStack.data) != 1 {
			return nil, object.Errorf(object.ErrSyntax, "Expression syntax error")
		}
		e = p.operandStack.peek()
	}
	return e, err
}

// Left-to-right evaluation differs from the usual precedence whenever an
// operator binds tighter than one before it on the same parenthesis
// level, as in 1+2*3 or 1|2+3. A chain of ** also differs, since ** is
// usually right associative.
func (p *exprParser) checkPrecedence(op exprOp) {
	rank := op.conventionalRank()
	if rank == 0 {
		return
	}
	level := len(p.loosest) - 1
	switch loosest := p.loosest[level]; {
	case loosest == 0 || rank < loosest:
		p.loosest[level] = rank
	case rank > loosest || op == opPower:
		p.precedence = true
	}
}

func (p *exprParser) expectOperator() bool {
	return p.prevToken.tt.isValue() || p.prevToken.tt == tokenRightParen
}

// Attempt to parse the next token from the line.
func (p *exprParser) parseToken(line fstring) (t token, out fstring, err error) {
	line = line.consumeWhitespace()
	if line.isEmpty() {
		t.tt, out = tokenNil, line
		return
	}
	if !p.expectOperator() {
		t, out, err = p.parseValue(line)
	} else {
		t, out, err = p.parseOperator(line)
	}
	p.prevToken = t
	return
}

// Parse a token in a place where an operand is expected.
func (p *exprParser) parseValue(line fstring) (t token, out fstring, err error) {
	switch {
	case line.startsWith(decimal) || line.startsWithChar('>') || line.startsWithChar(':'):
		t.tt = tokenNumber
		t.number, out, err = parseNumber(line)

	case line.startsWithChar('$'):
		t.tt, out = tokenLC, line.consume(1)

	case line.startsWithChar('\''):
		rest := line.consume(1)
		i := 1 + rest.scanUntilChar('\'')
		if i >= len(line.str) {
			return t, line, object.Errorf(object.ErrSyntax, "Unterminated text literal")
		}
		n, ok := textIndex(line.str[:i+1])
		if !ok {
			return t, line, object.Errorf(object.ErrSyntax, "Invalid text literal")
		}
		t.tt, t.text, out = tokenText, n, line.consume(i+1)

	case line.startsWithChar('!') || (line.startsWithChar('-') && isLocalRef(line.str)):
		n := line.scanWhile(func(c byte) bool { return c == '-' || c == '!' })
		name := line.consume(n)
		n += name.scanWhile(identifierChar)
		l, _ := ParseLocal(line.str[:n])
		t.tt, t.local, out = tokenLocal, l, line.consume(n)

	case line.startsWith(identifierStartChar):
		t.tt = tokenIdentifier
		t.identifier, out = line.consumeWhile(identifierChar)

	case line.startsWithChar('('):
		p.parenCounter++
		t.tt, t.op, out = tokenLeftParen, opLeftParen, line.consume(1)

	default:
		for i := opUnaryMinus; i <= opBitwiseNEG; i++ {
			if line.startsWithString(ops[i].symbol) {
				return token{tt: tokenOp, op: i}, line.consume(1), nil
			}
		}
		err = object.Errorf(object.ErrSyntax, "Expression syntax error at '%s'", line.str)
	}
	return
}

// Parse a token in a place where an operator is expected.
func (p *exprParser) parseOperator(line fstring) (t token, out fstring, err error) {
	if line.startsWithChar(')') {
		if p.parenCounter == 0 {
			return t, line, object.Errorf(object.ErrSyntax, "Mismatched parentheses")
		}
		p.parenCounter--
		return token{tt: tokenRightParen, op: opRightParen}, line.consume(1), nil
	}
	for i := opPower; i <= opBitwiseXOR; i++ {
		if line.startsWithString(ops[i].symbol) {
			return token{tt: tokenOp, op: i}, line.consume(len(ops[i].symbol)), nil
		}
	}
	return t, line, object.Errorf(object.ErrSyntax, "Expression syntax error at '%s'", line.str)
}

// A local label reference written with leading minus signs, like "--!x".
func isLocalRef(s string) bool {
	i := 0
	for i < len(s) && s[i] == '-' {
		i++
	}
	return i < len(s) && s[i] == '!'
}

// Parse a number from the line. The following numeric formats are allowed:
//
//	[0-9]+          Decimal number
//	>[0-9a-fA-F]+   Hexadecimal number
//	:[01]+          Binary number
//
// All numbers are truncated to 16 bits.
func parseNumber(line fstring) (value object.Word, remain fstring, err error) {
	base, fn := 10, decimal
	switch {
	case line.startsWithChar('>'):
		line = line.consume(1)
		base, fn = 16, hexadecimal
	case line.startsWithChar(':'):
		line = line.consume(1)
		base, fn = 2, binarynum
	}

	numstr, remain := line.consumeWhile(fn)
	if remain.startsWith(identifierChar) {
		return 0, remain, object.Errorf(object.ErrSyntax, "Invalid number: %s%s", numstr.str, remain.str)
	}

	num64, converr := strconv.ParseUint(numstr.str, base, 64)
	if converr != nil {
		return 0, remain, object.Errorf(object.ErrSyntax, "Failed to parse number '%s'", numstr.str)
	}
	return object.Word(num64), remain, nil
}

func (p *exprParser) reset() {
	p.operandStack.data, p.operatorStack.data = nil, nil
	p.parenCounter = 0
}

//
// exprStack
//

type exprStack struct {
	data []*expr
}

func (s *exprStack) empty() bool {
	return len(s.data) == 0
}

func (s *exprStack) push(e *expr) {
	s.data = append(s.data, e)
}

func (s *exprStack) pop() *expr {
	l := len(s.data)
	e := s.data[l-1]
	s.data = s.data[:l-1]
	return e
}

func (s *exprStack) peek() *expr {
	if len(s.data) == 0 {
		return nil
	}
	return s.data[len(s.data)-1]
}

// Collapse one or more expression nodes on the top of the
// stack into a combined expression node, and push the combined
// node back onto the stack.
func (s *exprStack) collapse(op exprOp) error {
	errSyntax := object.Errorf(object.ErrSyntax, "Expression syntax error")
	switch {
	case !op.isCollapsible():
		return errSyntax
	case op.isBinary():
		if len(s.data) < 2 {
			return errSyntax
		}
		s.push(&expr{op: op, child1: s.pop(), child0: s.pop()})
	default:
		if s.empty() {
			return errSyntax
		}
		s.push(&expr{op: op, child0: s.pop()})
	}
	return nil
}

//
// opStack
//

type opStack struct {
	data []exprOp
}

func (s *opStack) push(op exprOp) {
	s.data = append(s.data, op)
}

func (s *opStack) pop() exprOp {
	op := s.data[len(s.data)-1]
	s.data = s.data[0 : len(s.data)-1]
	return op
}

func (s *opStack) empty() bool {
	return len(s.data) == 0
}

func (s *opStack) peek() exprOp {
	return s.data[len(s.data)-1]
}
