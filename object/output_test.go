// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/beevik/etree"
)

func TestBinaryFullAndMinimized(t *testing.T) {
	p := absProgram("P", 1, 0xa000,
		Block{Len: 4},
		Abs{V: 0x1234},
		Abs{V: 0x5678},
		Block{Len: 2},
	)

	full, err := p.Binaries(false)
	if err != nil {
		t.Fatal(err)
	}
	small, err := p.Binaries(true)
	if err != nil {
		t.Fatal(err)
	}
	if full[0].Addr != 0xa000 || len(full[0].Data) != 10 {
		t.Errorf("full image incorrect: >%04X %X", full[0].Addr, full[0].Data)
	}
	if small[0].Addr != 0xa004 || string(small[0].Data) != "\x12\x34\x56\x78" {
		t.Errorf("minimized image incorrect: >%04X %X", small[0].Addr, small[0].Data)
	}
	off := small[0].Addr - full[0].Addr
	if !bytes.Equal(full[0].Data[off:off+len(small[0].Data)], small[0].Data) {
		t.Error("minimized image is not a slice of the full image")
	}
}

func TestBinaryOverlap(t *testing.T) {
	p := absProgram("P", 1, 0xa000, Abs{V: 0x1234})
	s := p.OpenSegment(NewSegment(0xa000, false, NoBank, 1))
	s.Put(0xa000, Abs{V: 0x1234})
	p.Close(0xa002)
	if _, err := p.Binaries(false); err != nil {
		t.Errorf("identical overlap should be accepted: %v", err)
	}

	s = p.OpenSegment(NewSegment(0xa000, false, NoBank, 1))
	s.Put(0xa000, Abs{V: 0x4321})
	p.Close(0xa002)
	if _, err := p.Binaries(false); !errors.Is(err, ErrLayout) {
		t.Errorf("expected ambiguous overlap, got %v", err)
	}
}

func TestBinarySaveRanges(t *testing.T) {
	p := absProgram("P", 1, 0xa000, Abs{V: 0x1111}, Abs{V: 0x2222}, Abs{V: 0x3333})
	p.Saves = []SaveRange{{0xa002, 0xa004}, {0x9ffe, 0xa002}}
	bins, err := p.Binaries(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(bins) != 2 || string(bins[0].Data) != "\x22\x22" || string(bins[1].Data) != "\x00\x00\x11\x11" {
		t.Errorf("unexpected save images %+v", bins)
	}
	bins, _ = p.Binaries(true)
	if bins[1].Addr != 0xa000 || string(bins[1].Data) != "\x11\x11" {
		t.Errorf("unexpected minimized save image %+v", bins[1])
	}
}

func bankedProgram() *Program {
	p := NewProgram("BANKED", 1)
	for bank := 0; bank < 2; bank++ {
		s := p.OpenSegment(NewSegment(0x6000, false, bank, 1))
		s.Put(0x6000, Abs{V: uint16(0xb000 + bank)})
	}
	p.Close(0x6002)
	return p
}

func TestBinaryJoined(t *testing.T) {
	p := bankedProgram()
	full, err := p.Joined(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != 2*BankSize || full[0] != 0xb0 || full[BankSize+1] != 0x01 {
		t.Errorf("unexpected joined image, length %d", len(full))
	}
	small, _ := p.Joined(true)
	if len(small) != BankSize+2 {
		t.Errorf("minimized join should not pad the last bank, length %d", len(small))
	}
}

func TestImageChunks(t *testing.T) {
	data := make([]Entry, 0x1800)
	for i := range data {
		data[i] = Abs{V: uint16(i)}
	}
	p := absProgram("P", 1, 0xa000, data...)

	files, err := p.Image("PROG", DefaultChunkSize)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "PROG" || files[1].Name != "PROH" {
		t.Errorf("unexpected names %s %s", files[0].Name, files[1].Name)
	}
	h0, h1 := files[0].Data[:6], files[1].Data[:6]
	if string(h0) != "\xff\xff\x20\x00\xa0\x00" {
		t.Errorf("first header incorrect: %X", h0)
	}
	rest := 0x3000 - 0x1ffa
	if string(h1) != string([]byte{0, 0, byte((rest + 6) >> 8), byte(rest + 6), 0xbf, 0xfa}) {
		t.Errorf("second header incorrect: %X", h1)
	}
	if len(files[0].Data) != 0x2000 || len(files[1].Data) != rest+6 {
		t.Errorf("file lengths incorrect: %d %d", len(files[0].Data), len(files[1].Data))
	}
}

func TestCartridgeHeader(t *testing.T) {
	base := CartridgeBase("hello")
	if base != 0x6016 {
		t.Fatalf("unexpected cartridge base >%04X", base)
	}
	p := absProgram("P", 1, int(base), Abs{V: 0x045b})
	c, err := p.Cartridge("hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.ROM) != BankSize {
		t.Errorf("ROM not padded: %d bytes", len(c.ROM))
	}
	exp := "\xaa\x01\x00\x00\x00\x00\x60\x0c\x00\x00\x00\x00\x00\x00\x60\x16\x05HELLO"
	if string(c.ROM[:len(exp)]) != exp {
		t.Errorf("header incorrect: %X", c.ROM[:len(exp)])
	}
	if c.ROM[0x16] != 0x04 || c.ROM[0x17] != 0x5b {
		t.Errorf("code not following header: %X", c.ROM[0x16:0x18])
	}
}

func TestCartridgeOwnHeader(t *testing.T) {
	p := absProgram("P", 1, 0x6000, Abs{V: 0xaa01}, Abs{V: 0x0100})
	c, err := p.Cartridge("own")
	if err != nil {
		t.Fatal(err)
	}
	if c.ROM[0] != 0xaa || c.ROM[2] != 0x01 || c.ROM[4] != 0 {
		t.Errorf("program header should be kept: %X", c.ROM[:6])
	}
}

func TestCartridgeArchive(t *testing.T) {
	p := absProgram("P", 1, int(CartridgeBase("demo")), Abs{V: 0x10ff})
	c, err := p.Cartridge("demo")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	z, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	files := make(map[string][]byte)
	for _, f := range z.File {
		r, _ := f.Open()
		files[f.Name], _ = io.ReadAll(r)
		r.Close()
	}
	if len(files["DEMOC.bin"]) != BankSize {
		t.Errorf("ROM missing from archive")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(files["layout.xml"]); err != nil {
		t.Fatal(err)
	}
	rom := doc.FindElement("//rom")
	if rom == nil || rom.SelectAttrValue("file", "") != "DEMOC.bin" {
		t.Error("layout does not name the ROM")
	}
	meta := etree.NewDocument()
	if err := meta.ReadFromBytes(files["meta-inf.xml"]); err != nil {
		t.Fatal(err)
	}
	if name := meta.FindElement("//name"); name == nil || name.Text() != "DEMO" {
		t.Error("metadata does not name the cartridge")
	}
}

func TestTextDump(t *testing.T) {
	bins := []Binary{{Bank: NoBank, Addr: 0xa000, Data: []byte{0x12, 0x34, 0x56}}}
	cases := []struct {
		dump TextDump
		exp  string
	}{
		{
			TextDump{Flavor: TextAssembly, Words: true, Name: "X"},
			"* X >A000\n       DATA >1234,>5600\n",
		},
		{
			TextDump{Flavor: TextAssembly, Name: "X", PerLine: 2},
			"* X >A000\n       BYTE >12,>34\n       BYTE >56\n",
		},
		{
			TextDump{Flavor: TextBasic, Reverse: true},
			"100 DATA 52,18,86\n",
		},
		{
			TextDump{Flavor: TextC, Words: true, Reverse: true, Name: "x"},
			"unsigned short x_a000[] = {\n  0x3412, 0x0056,\n};\n",
		},
	}
	for _, c := range cases {
		var sb strings.Builder
		c.dump.Binaries = bins
		if _, err := c.dump.WriteTo(&sb); err != nil {
			t.Fatal(err)
		}
		if sb.String() != c.exp {
			t.Errorf("%s dump incorrect\n got: %q\n exp: %q", c.dump.Flavor, sb.String(), c.exp)
		}
	}
}
