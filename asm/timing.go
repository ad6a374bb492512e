// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "github.com/beevik/go9900/cpu"

// Additional clock cycles and memory accesses of an addressing mode.
type modeCost struct {
	cycles   int
	accesses int
}

var wordCost = [4]modeCost{
	cpu.REG: {0, 0},
	cpu.IND: {4, 1},
	cpu.SYM: {8, 1},
	cpu.INC: {8, 2},
}

var byteCost = [4]modeCost{
	cpu.REG: {0, 0},
	cpu.IND: {4, 1},
	cpu.SYM: {8, 1},
	cpu.INC: {6, 2},
}

var indexedCost = modeCost{8, 2}

// Each memory access through the 8-bit multiplexer costs four wait
// states.
const demuxWaitStates = 4

// Timing estimates the execution time of instructions. The estimate is
// informational only.
type Timing struct {
	Total int // sum of the cycles of all timed instructions
}

func operandCost(inst *cpu.Instruction, o *operand) modeCost {
	if o.mode == cpu.SYM && o.reg != 0 {
		return indexedCost
	}
	if inst.ByteOp {
		return byteCost[o.mode]
	}
	return wordCost[o.mode]
}

// Estimate the clock cycles of an instruction, given its general address
// operands and its shift or bit count. With demux set, every memory
// access incurs wait states.
func (t *Timing) cycles(inst *cpu.Instruction, ops []operand, count int, demux bool) int {
	c, n := inst.Cycles, inst.Accesses
	for i := range ops {
		cost := operandCost(inst, &ops[i])
		c += cost.cycles
		n += cost.accesses
	}

	switch inst.Format {
	case cpu.FormatV:
		if count == 0 {
			c += 8 // count taken from R0
		} else {
			c += 2 * count
		}
	case cpu.FormatIV:
		if count == 0 {
			count = 16
		}
		if inst.Name == "LDCR" {
			c += 2 * count
		} else {
			switch {
			case count == 8:
				c += 2
			case count > 8 && count < 16:
				c += 16
			case count == 16:
				c += 18
			}
		}
	}

	if demux {
		c += demuxWaitStates * n
	}
	t.Total += c
	return c
}
