// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"bytes"
	"sort"
)

// Size of a cartridge bank and of a joined bank block.
const BankSize = 0x2000

// A Binary is a contiguous memory image.
type Binary struct {
	Bank int // NoBank unless the program uses banked memory
	Addr int
	Data []byte
}

// Memory images of each bank used by a program.
type bankImage struct {
	bank     int
	mem      *FlatMemory
	lo, hi   int // full span, including reserved space
	dlo, dhi int // span of the emitted data
	ok, dok  bool
}

func (p *Program) bankImages() ([]*bankImage, error) {
	if p.Relocatable() {
		return nil, Errorf(ErrInvalidAddress, "program %s contains relocatable code and must be linked", p.Name)
	}

	banks := p.Banks()
	if banks == nil {
		banks = []int{NoBank}
	}
	var images []*bankImage
	for _, b := range banks {
		img := &bankImage{bank: b, mem: NewFlatMemory()}
		for _, s := range p.Segments {
			if s.Dummy || !inBank(s.Bank, b) {
				continue
			}
			if err := Load(img.mem, s); err != nil {
				return nil, err
			}
			if !img.ok || s.Start() < img.lo {
				img.lo = s.Start()
			}
			if !img.ok || s.End() > img.hi {
				img.hi = s.End()
			}
			img.ok = true
			if lo, hi, ok := s.Extent(); ok {
				lo, hi = lo+s.Xorg, hi+s.Xorg
				if !img.dok || lo < img.dlo {
					img.dlo = lo
				}
				if !img.dok || hi > img.dhi {
					img.dhi = hi
				}
				img.dok = true
			}
		}
		if img.ok {
			images = append(images, img)
		}
	}
	return images, nil
}

func inBank(segBank, bank int) bool {
	return bank == NoBank || segBank < 0 || segBank == bank
}

// Binaries returns the memory images of a linked program, one per bank. A
// full image spans every segment, reserved space included, zero filled. A
// minimized image spans only the bytes holding data. When the program has
// SAVE ranges, one image is returned for each range instead.
func (p *Program) Binaries(minimize bool) ([]Binary, error) {
	images, err := p.bankImages()
	if err != nil {
		return nil, err
	}

	var bins []Binary
	for _, img := range images {
		if len(p.Saves) > 0 {
			for _, r := range p.Saves {
				lo, hi := r.Start, r.End
				if minimize {
					for lo < hi && !img.mem.Stored(uint16(lo)) {
						lo++
					}
					for hi > lo && !img.mem.Stored(uint16(hi-1)) {
						hi--
					}
				}
				bins = append(bins, Binary{img.bank, lo, img.mem.Slice(lo, hi)})
			}
			continue
		}
		lo, hi := img.lo, img.hi
		if minimize {
			lo, hi = img.dlo, img.dhi
		}
		if hi > lo {
			bins = append(bins, Binary{img.bank, lo, img.mem.Slice(lo, hi)})
		}
	}
	return bins, nil
}

// Joined returns the images of all banks concatenated, each padded to a
// multiple of the bank size. A minimized join leaves the final bank
// unpadded.
func (p *Program) Joined(minimize bool) ([]byte, error) {
	bins, err := p.Binaries(minimize)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bins, func(i, j int) bool { return bins[i].Bank < bins[j].Bank })

	var buf bytes.Buffer
	for i, b := range bins {
		buf.Write(b.Data)
		if minimize && i == len(bins)-1 {
			break
		}
		if pad := len(b.Data) % BankSize; pad != 0 {
			buf.Write(make([]byte, BankSize-pad))
		}
	}
	return buf.Bytes(), nil
}
