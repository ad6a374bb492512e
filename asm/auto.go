// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"sort"

	"github.com/beevik/go9900/object"
)

type autoKey struct {
	size  int
	value uint16
	bank  int
}

// The pool of auto-constants created by W# and B# operands. Constants
// are collected during the first pass and placed by the AUTO directive
// of their bank.
type autoPool struct {
	consts map[autoKey]*object.AutoConstant
	placed map[int][]*object.AutoConstant // constants placed by each AUTO statement
}

func newAutoPool() *autoPool {
	return &autoPool{
		consts: make(map[autoKey]*object.AutoConstant),
		placed: make(map[int][]*object.AutoConstant),
	}
}

// Return the constant with the given size, value and bank. With create
// set, missing constants are added to the pool.
func (p *autoPool) get(size int, value uint16, bank int, create bool) *object.AutoConstant {
	k := autoKey{size, value, bank}
	c, ok := p.consts[k]
	if !ok && create {
		c = &object.AutoConstant{Size: size, Value: value, Bank: bank}
		p.consts[k] = c
	}
	return c
}

// Return the constants of a bank that have no address yet, bytes first.
func (p *autoPool) unplaced(bank int) []*object.AutoConstant {
	var list []*object.AutoConstant
	for _, c := range p.consts {
		if c.Bank == bank && c.Addr == nil {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Less(list[j]) })
	return list
}

// Place the pending auto-constants of the current bank at the location
// counter. The pass 2 replay emits the same constants at the same
// addresses.
func (a *assembler) placeAutos() {
	var list []*object.AutoConstant
	if a.pass == 1 {
		list = a.autos.unplaced(a.symbols.Bank())
		a.autos.placed[a.pos] = list
	} else {
		list = a.autos.placed[a.pos]
	}
	for _, c := range list {
		if c.Size == 2 {
			a.even()
		}
		if a.pass == 1 {
			addr := a.here()
			c.Addr = &addr
		}
		a.emit(object.Auto{Const: c})
	}
}
