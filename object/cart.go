// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// Address of the cartridge ROM window.
const CartridgeAddr = 0x6000

// Size of the header synthesized for a program named 'name'. The header
// holds the standard cartridge fields followed by a single program list
// entry.
func cartHeaderSize(name string) int {
	return align(0x10 + 1 + len(name))
}

// CartridgeBase returns the address at which relocatable code is linked
// when the cartridge header is synthesized.
func CartridgeBase(name string) uint16 {
	return uint16(CartridgeAddr + cartHeaderSize(cartName(name)))
}

func cartName(name string) string {
	return strings.ToUpper(name)
}

// A Cartridge is a ROM image packaged for an emulator.
type Cartridge struct {
	Name string
	ROM  []byte // banks of BankSize bytes each
}

// Cartridge builds the cartridge ROM of a linked program. Unless the
// program supplies its own header (a >AA byte at >6000), a header is
// created with a single program list entry starting the program at its
// entry address, or just past the header.
func (p *Program) Cartridge(name string) (*Cartridge, error) {
	name = cartName(name)
	images, err := p.bankImages()
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, Errorf(ErrInvalidAddress, "program %s holds no data", p.Name)
	}

	first := images[0]
	if !first.mem.Stored(CartridgeAddr) || first.mem.LoadByte(CartridgeAddr) != 0xaa {
		entry := CartridgeBase(name)
		if p.Entry != nil {
			entry = p.Entry.Addr
		}
		h := cartHeader(name, entry)
		if err := first.mem.StoreBytes(CartridgeAddr, h); err != nil {
			return nil, Errorf(ErrLayout, "cartridge header overlaps program code")
		}
		if first.lo > CartridgeAddr || !first.ok {
			first.lo = CartridgeAddr
		}
		first.hi = max(first.hi, CartridgeAddr+len(h))
	}

	c := &Cartridge{Name: name}
	for _, img := range images {
		if img.lo < CartridgeAddr || img.hi > CartridgeAddr+BankSize {
			return nil, Errorf(ErrInvalidAddress, "cartridge code outside of >6000->7FFF")
		}
		c.ROM = append(c.ROM, img.mem.Slice(CartridgeAddr, CartridgeAddr+BankSize)...)
	}
	return c, nil
}

func cartHeader(name string, entry uint16) []byte {
	h := []byte{
		0xaa, 0x01, 0x00, 0x00, // valid header, version, programs, reserved
		0x00, 0x00, // power-up list
		0x60, 0x0c, // program list
		0x00, 0x00, // DSR list
		0x00, 0x00, // subprogram list
		0x00, 0x00, // next program list entry
		byte(entry >> 8), byte(entry),
		byte(len(name)),
	}
	h = append(h, name...)
	if len(h)&1 != 0 {
		h = append(h, 0)
	}
	return h
}

// ROMName returns the file name of the ROM inside the cartridge archive.
func (c *Cartridge) ROMName() string {
	return c.Name + "C.bin"
}

// WriteTo writes the cartridge as an RPK archive containing the ROM, a
// layout description and the cartridge metadata.
func (c *Cartridge) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	z := zip.NewWriter(&buf)

	layout, err := c.layout().WriteToBytes()
	if err != nil {
		return 0, Errorf(ErrIO, "%v", err)
	}
	meta, err := c.metaInf().WriteToBytes()
	if err != nil {
		return 0, Errorf(ErrIO, "%v", err)
	}
	files := []struct {
		name string
		data []byte
	}{
		{"layout.xml", layout},
		{"meta-inf.xml", meta},
		{c.ROMName(), c.ROM},
	}
	for _, f := range files {
		fw, err := z.Create(f.name)
		if err != nil {
			return 0, Errorf(ErrIO, "%v", err)
		}
		if _, err := fw.Write(f.data); err != nil {
			return 0, Errorf(ErrIO, "%v", err)
		}
	}
	if err := z.Close(); err != nil {
		return 0, Errorf(ErrIO, "%v", err)
	}
	return buf.WriteTo(w)
}

func (c *Cartridge) layout() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	romset := doc.CreateElement("romset")
	romset.CreateAttr("version", "1.0")

	rom := romset.CreateElement("resources").CreateElement("rom")
	rom.CreateAttr("id", "romimage")
	rom.CreateAttr("file", c.ROMName())

	pcb := romset.CreateElement("configuration").CreateElement("pcb")
	if len(c.ROM) > BankSize {
		pcb.CreateAttr("type", "paged378")
	} else {
		pcb.CreateAttr("type", "standard")
	}
	socket := pcb.CreateElement("socket")
	socket.CreateAttr("id", "rom_socket")
	socket.CreateAttr("uses", "romimage")

	doc.Indent(2)
	return doc
}

func (c *Cartridge) metaInf() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.CreateElement("meta-inf").CreateElement("name").SetText(c.Name)
	doc.Indent(2)
	return doc
}
