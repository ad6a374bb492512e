// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import "encoding/binary"

// Default size of a program image file, header included.
const DefaultChunkSize = 0x2000

const imageHeaderSize = 6

// An ImageFile is one file of a memory image program, loadable with
// option 5 of the Editor/Assembler cartridge.
type ImageFile struct {
	Name string
	Data []byte // header followed by payload
}

// Image splits the data of a linked program into program image files.
// Each file starts with a header holding a "more files follow" flag, the
// file length including the header, and the load address. File names
// after the first are derived by incrementing the last character of the
// name.
func (p *Program) Image(name string, chunkSize int) ([]ImageFile, error) {
	if chunkSize <= imageHeaderSize {
		chunkSize = DefaultChunkSize
	}
	bins, err := p.Binaries(true)
	if err != nil {
		return nil, err
	}
	if len(bins) == 0 {
		return nil, Errorf(ErrInvalidAddress, "program %s holds no data", p.Name)
	}
	if len(bins) > 1 {
		return nil, Errorf(ErrInvalidAddress, "program image cannot hold banked or saved ranges")
	}

	data, addr := bins[0].Data, bins[0].Addr
	payload := chunkSize - imageHeaderSize
	var files []ImageFile
	for off := 0; off < len(data); off += payload {
		end := min(off+payload, len(data))
		more := uint16(0)
		if end < len(data) {
			more = 0xffff
		}
		b := make([]byte, imageHeaderSize, imageHeaderSize+end-off)
		binary.BigEndian.PutUint16(b[0:], more)
		binary.BigEndian.PutUint16(b[2:], uint16(end-off+imageHeaderSize))
		binary.BigEndian.PutUint16(b[4:], uint16(addr+off))
		b = append(b, data[off:end]...)
		files = append(files, ImageFile{Name: name, Data: b})
		name = nextName(name)
	}
	return files, nil
}

// nextName increments the last character of a file name.
func nextName(name string) string {
	if name == "" {
		return name
	}
	b := []byte(name)
	b[len(b)-1]++
	return string(b)
}
