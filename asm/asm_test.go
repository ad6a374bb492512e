// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/beevik/go9900/object"
)

func assembleWith(code string, opts *Options) (*Assembly, error) {
	r := bytes.NewReader([]byte(code))
	if opts.Out == nil {
		opts.Out = &bytes.Buffer{}
	}
	return Assemble(r, "test", 1, opts)
}

func assemble(code string) (*Assembly, error) {
	return assembleWith(code, &Options{})
}

// Load all non-dummy segments of a program into memory and return the
// hex string of n bytes starting at lo.
func image(t *testing.T, p *object.Program, lo, n int) string {
	m := object.NewFlatMemory()
	for _, s := range p.Segments {
		if s.Dummy {
			continue
		}
		if err := object.Load(m, s); err != nil {
			t.Fatal(err)
		}
	}
	return fmt.Sprintf("%X", m.Slice(lo, lo+n))
}

func firstError(a *Assembly) (Diagnostic, bool) {
	for _, d := range a.Diagnostics {
		if d.Severity == SeverityError {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// The code of the source is expected at >A000.
func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	assembly, err := assemble(asm)
	if err != nil {
		if d, ok := firstError(assembly); ok {
			t.Error(d.String())
		} else {
			t.Error(err)
		}
		return
	}

	s := image(t, assembly.Program, 0xa000, len(expected)/2)
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

// Check the first error of the source. An empty message only checks the
// error kind.
func checkASMError(t *testing.T, asm string, kind error, msg string) {
	t.Helper()
	assembly, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if !errors.Is(err, ErrAssembly) {
		t.Errorf("Expected ErrAssembly, got '%v'\n", err)
		return
	}
	d, ok := firstError(assembly)
	if !ok {
		t.Errorf("Expected an error diagnostic\n")
		return
	}
	if !errors.Is(d.Err, kind) {
		t.Errorf("Expected kind '%v', got '%v' (%s)\n", kind, d.Err, d.Message)
	}
	if msg != "" && d.Message != msg {
		t.Errorf("Expected '%s', got '%s'\n", msg, d.Message)
	}
}

func warnings(a *Assembly) []string {
	var w []string
	for _, d := range a.Diagnostics {
		if d.Severity == SeverityWarning {
			w = append(w, d.Message)
		}
	}
	return w
}

func TestFormatI(t *testing.T) {
	asm := `
	AORG >A000
	MOV R1,R2
	MOVB *R3,@>8300
	A *R4+,@2(R5)`

	checkASM(t, asm, "C081D8138300A9740002")
}

func TestJumps(t *testing.T) {
	asm := `
	AORG >A000
L1	JMP L1
	JEQ L2
	NOP
L2	RT`

	checkASM(t, asm, "10FF13011000045B")
}

func TestImmediates(t *testing.T) {
	asm := `
	AORG >A000
	LI R0,>1234
	AI R1,-1
	LWPI >8300`

	checkASM(t, asm, "020012340221FFFF02E08300")
}

func TestShiftsAndCRU(t *testing.T) {
	asm := `
	AORG >A000
	SLA R2,4
	SRL R3,0
	COC @>10,R4
	LDCR *R1,8
	STCR R2,16
	SBO 5
	TB -1`

	checkASM(t, asm, "0A42090321200010321134021D051FFF")
}

func TestXOP(t *testing.T) {
	asm := `
	AORG >A000
	XOP @>10,2
	DXOP VEC,3
	VEC R1`

	checkASM(t, asm, "2CA000102CC1")
}

func TestData(t *testing.T) {
	asm := `
	AORG >A000
	BYTE 1,2,3
	DATA >1234
	TEXT 'AB'
	STRI 'HI'`

	checkASM(t, asm, "0102030012344142024849")
}

func TestTextNegate(t *testing.T) {
	asm := `
	AORG >A000
	TEXT -'AB'`

	checkASM(t, asm, "41BE")
}

func TestTextLiteralValue(t *testing.T) {
	asm := `
	AORG >A000
	DATA 'A','AB'`

	checkASM(t, asm, "00414142")
}

func TestNumberFormats(t *testing.T) {
	asm := `
	AORG >A000
	DATA 10,>1F,:101,-1`

	checkASM(t, asm, "000A001F0005FFFF")
}

func TestEquates(t *testing.T) {
	asm := `
X	EQU 5
X	EQU 5
Y	EQU X*2+1
	AORG >A000
	DATA X,Y`

	checkASM(t, asm, "0005000B")
}

func TestDuplicateEquate(t *testing.T) {
	asm := `
X	EQU 5
X	EQU 6`

	checkASMError(t, asm, object.ErrDuplicateSymbol, "Duplicate symbol: X")
}

func TestDuplicateLabel(t *testing.T) {
	asm := `
L	DATA 1
L	DATA 2`

	checkASMError(t, asm, object.ErrDuplicateSymbol, "Duplicate symbol: L")
}

func TestWeakEquate(t *testing.T) {
	asm := `
X	EQU 5
X	WEQU 6
Y	WEQU 1
Y	EQU 2
	AORG >A000
	DATA X,Y`

	checkASM(t, asm, "00050002")

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	w := warnings(assembly)
	if len(w) != 2 || w[0] != "Weak definition of X ignored" || w[1] != "Symbol Y redefined" {
		t.Errorf("unexpected warnings: %q", w)
	}
}

func TestForwardReference(t *testing.T) {
	asm := `
	AORG >A000
	DATA LATER
	B @LATER
LATER	DATA 1`

	checkASM(t, asm, "A0060460A0060001")
}

func TestRelocatableExpressions(t *testing.T) {
	asm := `
L1	DATA 0
L2	DATA L2-L1
	DATA L1+2`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	s := assembly.Program.Segments[0]
	if !s.Reloc {
		t.Fatal("expected relocatable segment")
	}
	e, _ := s.At(2)
	if e != object.Entry(object.Abs{V: 2}) {
		t.Errorf("L2-L1: got %v", e)
	}
	e, _ = s.At(4)
	if a, ok := e.(object.Address); !ok || !a.Reloc || a.Addr != 2 || a.Unit != 1 {
		t.Errorf("L1+2: got %v", e)
	}
}

func TestRelocatableErrors(t *testing.T) {
	checkASMError(t, "L1\tDATA 0\n\tDATA L1*2",
		object.ErrInvalidAddress, "Invalid operation on relocatable address")
	checkASMError(t, "L1\tDATA 0\nL2\tDATA L1+L2",
		object.ErrInvalidAddress, "Invalid relocatable expression")
	checkASMError(t, "\tREF EXT\n\tDATA EXT+1",
		object.ErrInvalidAddress, "Invalid use of external reference")
}

func TestExpressionErrors(t *testing.T) {
	checkASMError(t, "\tDATA 1/0", object.ErrDivisionByZero, "")
	checkASMError(t, "\tDATA (1+2", object.ErrSyntax, "Mismatched parentheses")
	checkASMError(t, "\tDATA 12AB", object.ErrSyntax, "")
	checkASMError(t, "\tDATA NOWHERE", object.ErrUnknownSymbol, "Unknown symbol: NOWHERE")
}

func TestPrecedenceWarning(t *testing.T) {
	asm := `
	AORG >A000
	DATA 1+2*3
	DATA 2*3+1
	DATA 1+(2*3)`

	checkASM(t, asm, "000900070007")

	assembly, err := assembleWith(asm, &Options{Warnings: AllWarnings})
	if err != nil {
		t.Fatal(err)
	}
	w := warnings(assembly)
	if len(w) != 1 || !strings.HasPrefix(w[0], "Expression evaluated left to right") {
		t.Errorf("unexpected warnings: %q", w)
	}
}

func TestPrecedenceWarningPairs(t *testing.T) {
	tests := []struct {
		expr string
		warn bool
	}{
		{"1|2+3", true},
		{"1<<2+1", true},
		{"1&2<<1", true},
		{"2*3**2", true},
		{"2**3**2", true},
		{"1*2+3*4", true},
		{"1+2<<1", false},
		{"2**2*3", false},
		{"1+2-3", false},
		{"4/2*3", false},
		{"1|(2+3)", false},
	}

	for _, test := range tests {
		assembly, err := assembleWith("\tDATA "+test.expr, &Options{Warnings: AllWarnings})
		if err != nil {
			t.Fatalf("%s: %v", test.expr, err)
		}
		if w := warnings(assembly); (len(w) == 1) != test.warn {
			t.Errorf("%s: got warnings %q", test.expr, w)
		}
	}
}

func TestRegisterErrors(t *testing.T) {
	checkASMError(t, "\tMOV 16,R1", object.ErrInvalidRegister, "Invalid register: 16")
	checkASMError(t, "\tMOV @2(R0),R1", object.ErrInvalidRegister, "Cannot use R0 as index register")
}

func TestRegisterAlias(t *testing.T) {
	asm := `
SP	REQU 10
	AORG >A000
	MOV *SP+,R1`

	// MOV: dst REG 1, src INC 10
	checkASM(t, asm, "C07A")
}

func TestStrictRegisters(t *testing.T) {
	asm := "\tAORG >A000\n\tMOV 1,2"
	assembly, err := assembleWith(asm, &Options{Syntax: Strict})
	if err != nil {
		t.Fatal(err)
	}
	if s := image(t, assembly.Program, 0xa000, 2); s != "C081" {
		t.Errorf("got %s", s)
	}

	if _, err := assembleWith("\tMOV R1,R2", &Options{Syntax: Strict}); err == nil {
		t.Error("expected R1 to be unknown in strict mode")
	}
}

func TestJumpErrors(t *testing.T) {
	checkASMError(t, "\tAORG >A000\n\tJMP >A200", object.ErrInvalidOperand, "Jump target out of range")
	checkASMError(t, "\tAORG >A000\n\tJMP >A001", object.ErrInvalidAddress, "Jump to odd address")
	checkASMError(t, "\tREF X\n\tJMP X", object.ErrInvalidAddress, "Jump target cannot be external")
}

func TestUnknownMnemonic(t *testing.T) {
	checkASMError(t, "\tFOO R1", object.ErrSyntax, "Invalid mnemonic: FOO")
}

func TestLocalLabels(t *testing.T) {
	asm := `
	AORG >A000
!L	DEC R1
	JNE -!L
	JMP !L
!L	RTWP`

	checkASM(t, asm, "060116FE10000380")
}

func TestAutoConstants(t *testing.T) {
	asm := `
	AORG >A000
	MOVB B#>12,R1
	MOV W#>1234,R2
	MOV W#>1234,R3
	AUTO`

	checkASM(t, asm, "D060A00CC0A0A00EC0E0A00E12001234")
}

func TestMissingAuto(t *testing.T) {
	checkASMError(t, "\tMOV W#1,R1", object.ErrSyntax, "Missing AUTO directive")
}

func TestMacro(t *testing.T) {
	asm := `
	.DEFM VAL
	DATA #1
	.ENDM
	AORG >A000
	.VAL 42`

	checkASM(t, asm, "002A")

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(assembly.Statements); n != 3 {
		t.Fatalf("expected 3 statements, got %d", n)
	}
	s := assembly.Statements[2]
	if s.Mnemonic != "DATA" || len(s.Operands) != 1 || s.Operands[0].str != "42" {
		t.Errorf("unexpected expansion: %s %v", s.Mnemonic, s.Operands)
	}
}

func TestMacroErrors(t *testing.T) {
	checkASMError(t, "\t.DEFM M\n\tDATA #2\n\t.ENDM\n\t.M 1", object.ErrSyntax, "Missing argument #2 for macro .M")
	checkASMError(t, "\t.NONE", object.ErrSyntax, "Unknown macro: .NONE")
	checkASMError(t, "\t.DEFM M\n\tDATA 1", object.ErrSyntax, "Unterminated .DEFM at end of source")
}

func TestRecursiveMacro(t *testing.T) {
	asm := `
	.DEFM LOOP
	.LOOP
	.ENDM
	.LOOP`

	checkASMError(t, asm, object.ErrSyntax, "Too many nested files or macros")
}

func TestConditionals(t *testing.T) {
	asm := `
FLAG	EQU 1
	AORG >A000
	.IFEQ FLAG,1
	DATA 1
	.ELSE
	DATA 2
	.ENDIF
	.IFDEF NOPE
	DATA 3
	.ENDIF
	.IFNDEF NOPE
	.IFGT FLAG
	DATA 4
	.ENDIF
	.ENDIF`

	checkASM(t, asm, "00010004")
}

func TestDefines(t *testing.T) {
	asm := `
	AORG >A000
	.IFDEF DEBUG
	DATA LEVEL
	.ENDIF`

	opts := &Options{Defines: map[string]string{"DEBUG": "", "LEVEL": ">10"}}
	assembly, err := assembleWith(asm, opts)
	if err != nil {
		t.Fatal(err)
	}
	if s := image(t, assembly.Program, 0xa000, 2); s != "0010" {
		t.Errorf("got %s", s)
	}
}

func TestConditionalErrors(t *testing.T) {
	checkASMError(t, "\t.ENDIF", object.ErrSyntax, "Missing .IF")
	checkASMError(t, "\t.IFEQ 1\n\tDATA 1", object.ErrSyntax, "Unterminated .IF at end of source")
	checkASMError(t, "\t.ERROR 'stop here'", object.ErrSyntax, "stop here")
}

func TestRepeat(t *testing.T) {
	asm := `
	AORG >A000
	.REPT 3
	DATA 7
	.ENDR`

	checkASM(t, asm, "000700070007")
}

func TestColumnOneDirectives(t *testing.T) {
	checkASM(t, ".DEFM M\n\tDATA #1\n.ENDM\n\tAORG >A000\n\t.M 42", "002A")
	checkASM(t, "\tAORG >A000\n.IFEQ 1,1\n\tDATA 1\n.ELSE\n\tDATA 2\n.ENDIF", "0001")
	checkASM(t, "\tAORG >A000\n.REPT 2\n\tDATA 7\n.ENDR", "00070007")
	checkASM(t, "\t.DEFM M\n\tDATA 5\n\t.ENDM\n\tAORG >A000\n.M", "0005")
}

func TestUnterminatedAtEnd(t *testing.T) {
	checkASMError(t, "\t.IFEQ 1,1\n\tDATA 1\n\tEND", object.ErrSyntax, "Unterminated .IF at end of source")
	checkASMError(t, "\t.DEFM M\n\tDATA 1\n\tEND", object.ErrSyntax, "Unterminated .DEFM at end of source")
}

func TestSegments(t *testing.T) {
	asm := `
	DATA 1
	AORG >A000
	DATA 2
	DORG >B000
DUMMY	DATA 3
	RORG
	DATA DUMMY`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	var abs, dummy, reloc int
	for _, s := range assembly.Program.Segments {
		switch {
		case s.Dummy:
			dummy++
		case s.Reloc:
			reloc++
			if s.Min == 2 {
				e, _ := s.At(2)
				if e != object.Entry(object.AbsAddr(0xb000)) {
					t.Errorf("DUMMY: got %v", e)
				}
			}
		default:
			abs++
		}
	}
	if abs != 1 || dummy != 1 || reloc != 2 {
		t.Errorf("segments: abs=%d dummy=%d reloc=%d", abs, dummy, reloc)
	}
}

func TestBSSAndEven(t *testing.T) {
	asm := `
	AORG >A000
	BYTE 1
BUF	BSS 3
	EVEN
	DATA BUF
TOP	BES 2
	DATA TOP`

	checkASM(t, asm, "01000000A0010000A008")
}

func TestXORG(t *testing.T) {
	asm := `
	AORG >A000
	XORG >8300
FAST	DATA FAST
	DATA $`

	checkASM(t, asm, "83008302")
}

func TestEndEntry(t *testing.T) {
	asm := `
	AORG >A000
START	DATA 1
	END START
	DATA 2`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	e := assembly.Program.Entry
	if e == nil || e.Addr != 0xa000 {
		t.Errorf("entry: got %v", e)
	}
	if len(assembly.Statements) != 4 {
		t.Errorf("statements after END were assembled")
	}
}

func TestBanks(t *testing.T) {
	asm := `
	BANK 0,>6000
L0	DATA 1
	BANK 1,>6000
L1	DATA 2
	B @L1
	B @X#L0`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	banks := assembly.Program.Banks()
	if len(banks) != 2 {
		t.Errorf("banks: got %v", banks)
	}

	checkASMError(t, asm+"\n\tB @L0", object.ErrInvalidAddress, "Invalid cross-bank access to bank 0")
}

func TestHints(t *testing.T) {
	asm := `
	AORG >A000
	LI R0,0
	LI R1,-1
	AI R2,2
	B R3
	B @NEAR
NEAR	MOV @R4,R1
	LI R0,0 ;: warnings=off`

	assembly, err := assembleWith(asm, &Options{Warnings: AllWarnings})
	if err != nil {
		t.Fatal(err)
	}
	exp := []string{
		"Possible CLR instead of LI 0",
		"Possible SETO instead of LI -1",
		"Possible INCT instead of AI 2",
		"Branch to register: R3",
		"Possible jump instead of branch: @NEAR",
		"Register used as symbolic address: @R4",
	}
	w := warnings(assembly)
	if len(w) != len(exp) {
		t.Fatalf("warnings: got %q", w)
	}
	for i := range exp {
		if w[i] != exp[i] {
			t.Errorf("warning %d: exp %q, got %q", i, exp[i], w[i])
		}
	}

	assembly, err = assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	if w := warnings(assembly); len(w) != 0 {
		t.Errorf("disabled warnings reported: %q", w)
	}
}

func TestUnusedWarning(t *testing.T) {
	asm := `
	DEF USED
USED	DATA 1
IDLE	DATA 2
REFD	DATA REFD`

	assembly, err := assembleWith(asm, &Options{Warnings: Warnings(CategoryUnused)})
	if err != nil {
		t.Fatal(err)
	}
	w := warnings(assembly)
	if len(w) != 1 || w[0] != "Unused label: IDLE" {
		t.Errorf("unexpected warnings: %q", w)
	}
}

func TestTiming(t *testing.T) {
	asm := `
	AORG >A000
	MOV R1,R2
	MOV *R1+,@>8300
	MOV *R1+,@>8300 ;: demux=on
	SLA R2,4`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	var cycles []int
	for _, l := range assembly.Listing.Lines {
		if l.Cycles > 0 {
			cycles = append(cycles, l.Cycles)
		}
	}
	exp := []int{14, 30, 58, 20}
	if fmt.Sprint(cycles) != fmt.Sprint(exp) {
		t.Errorf("cycles: exp %v, got %v", exp, cycles)
	}
	if assembly.Cycles != 122 {
		t.Errorf("total: exp 122, got %d", assembly.Cycles)
	}
}

func TestLink(t *testing.T) {
	main := `
	DEF START
	REF SUB
START	BL @SUB
	B *11
	END START`

	sub := `
	DEF SUB
SUB	LI R0,>0042
	RT`

	a1, err := Assemble(strings.NewReader(main), "main", 1, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	a2, err := Assemble(strings.NewReader(sub), "sub", 2, &Options{})
	if err != nil {
		t.Fatal(err)
	}

	l := &object.Linker{Base: 0xa000}
	p, err := l.Link(a1.Program, a2.Program)
	if err != nil {
		t.Fatal(err)
	}
	if s := image(t, p, 0xa000, 12); s != "06A0A006045B02000042045B" {
		t.Errorf("linked code: got %s", s)
	}
	if p.Entry == nil || p.Entry.Addr != 0xa000 || p.Entry.Reloc {
		t.Errorf("entry: got %v", p.Entry)
	}
}

func TestObjectCodeRoundTrip(t *testing.T) {
	assembly, err := assemble("\tAORG 0\n\tDATA 1,2,3")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := &object.ObjectCode{Program: assembly.Program}
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	r := &object.ObjectCode{Unit: 1}
	if _, err := r.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if s := image(t, r.Program, 0, 6); s != "000100020003" {
		t.Errorf("got %s", s)
	}
}

func TestObjectCodeReferences(t *testing.T) {
	main := `
	REF EXT
	DATA EXT
	B @EXT
	DATA 9`

	lib := `
	DEF EXT
EXT	DATA >1234`

	a1, err := Assemble(strings.NewReader(main), "main", 1, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	a2, err := Assemble(strings.NewReader(lib), "lib", 2, &Options{})
	if err != nil {
		t.Fatal(err)
	}

	l := &object.Linker{Base: 0xa000}
	p, err := l.Link(a1.Program, a2.Program)
	if err != nil {
		t.Fatal(err)
	}
	direct := image(t, p, 0xa000, 10)
	if direct != "A0080460A00800091234" {
		t.Errorf("direct link: got %s", direct)
	}

	var buf bytes.Buffer
	w := &object.ObjectCode{Program: a1.Program}
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	r := &object.ObjectCode{Unit: 1}
	if _, err := r.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	p, err = l.Link(r.Program, a2.Program)
	if err != nil {
		t.Fatal(err)
	}
	if s := image(t, p, 0xa000, 10); s != direct {
		t.Errorf("linked object code: got %s, exp %s", s, direct)
	}
}

func TestListing(t *testing.T) {
	asm := `	TITL 'DEMO'
	AORG >A000
START	LI R1,>1234
	BYTE 1,2,3
	PAGE
	UNL
	DATA 9
	LIST`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	l := assembly.Listing
	if l.Title != "DEMO" {
		t.Errorf("title: got %q", l.Title)
	}

	var li, by *ListingLine
	for i := range l.Lines {
		switch {
		case strings.Contains(l.Lines[i].Source, "LI R1"):
			li = &l.Lines[i]
		case strings.Contains(l.Lines[i].Source, "BYTE"):
			by = &l.Lines[i]
		case strings.Contains(l.Lines[i].Source, "DATA 9"):
			t.Error("statement listed while listing is off")
		}
	}
	if li == nil || by == nil {
		t.Fatal("missing listing lines")
	}
	if li.Cycles != 12 || len(li.Words) != 2 || li.Words[0].Text != "0201" || li.Words[1].Text != "1234" {
		t.Errorf("LI line: %+v", *li)
	}
	if len(by.Words) != 2 || by.Words[0].Text != "0102" || by.Words[1].Text != "03  " {
		t.Errorf("BYTE line: %+v", *by)
	}

	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, exp := range []string{
		"DEMO\n",
		"0003 A000 0201   12 START\tLI R1,>1234\n",
		"     A002 1234\n",
		"     A006 03\n",
		"\f\n",
	} {
		if !strings.Contains(out, exp) {
			t.Errorf("listing lacks %q:\n%s", exp, out)
		}
	}
}

func TestSymbolDump(t *testing.T) {
	asm := `
SIZE	EQU >20
	AORG >A000
START	DATA SIZE`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteSymbols(&buf, assembly.Symbols, false); err != nil {
		t.Fatal(err)
	}
	if exp := "SIZE......... >0020\nSTART........ >A000\n"; buf.String() != exp {
		t.Errorf("symbols: got %q", buf.String())
	}

	buf.Reset()
	if err := WriteSymbols(&buf, assembly.Symbols, true); err != nil {
		t.Fatal(err)
	}
	if exp := "SIZE     EQU >0020\nSTART    EQU >A000\n"; buf.String() != exp {
		t.Errorf("equates: got %q", buf.String())
	}
}

func TestSourceMap(t *testing.T) {
	asm := `
	DEF START
	AORG >A000
START	DATA 1
	DATA 2`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	sm := assembly.SourceMap
	if file, line := sm.Search(0xa002, false); file != "test" || line != 5 {
		t.Errorf("search: got %s:%d", file, line)
	}
	if len(sm.Exports) != 1 || sm.Exports[0].Name != "START" || sm.Exports[0].Address.Addr != 0xa000 {
		t.Errorf("exports: got %+v", sm.Exports)
	}

	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	var sm2 SourceMap
	if _, err := sm2.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if file, line := sm2.Search(0xa000, false); file != "test" || line != 4 {
		t.Errorf("search after reload: got %s:%d", file, line)
	}
}

func TestErrorPerStatement(t *testing.T) {
	assembly, err := assemble("\tDATA 1/0,NOWHERE\n\tMOV 16,R1")
	if err == nil {
		t.Fatal("expected errors")
	}
	if assembly.Errors != 2 {
		t.Errorf("expected one error per statement, got %d", assembly.Errors)
	}
	d, _ := firstError(assembly)
	if d.Line != 1 || d.Pass != 2 {
		t.Errorf("first error: %+v", d)
	}
}
