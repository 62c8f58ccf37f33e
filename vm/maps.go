// Copyright 2024 The probeum/avm Authors
// This file is part of the avm library.
//
// The avm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The avm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the avm library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// stepAggregate dispatches the tuple/list/map construction and access
// family: put_list/put_tuple/put build cons cells and tuples the way the
// corresponding BIFs and pattern-match compilation emit them; the map
// opcodes wrap heap/maputil.go's flat, sorted-key representation.
func (g *Global) stepAggregate(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	ops := instr.Operands
	h := ctx.Heap

	switch instr.Op {
	case loader.OpPutList:
		head := g.value(ctx, ops[0])
		tail := g.value(ctx, ops[1])
		writeReg(ctx, ops[2], h.Cons(head, tail))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpPutTuple:
		arity := uint32(ops[0].Value)
		t := h.NewTuple(arity)
		writeReg(ctx, ops[1], t)
		g.tupleBuild = t
		g.tupleBuildNext = 0
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpPut:
		v := g.value(ctx, ops[0])
		h.PutTupleElement(g.tupleBuild, g.tupleBuildNext, v)
		g.tupleBuildNext++
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpPutTuple2:
		elems := ops[2:]
		t := h.NewTuple(uint32(len(elems)))
		for i, o := range elems {
			h.PutTupleElement(t, uint32(i), g.value(ctx, o))
		}
		writeReg(ctx, ops[0], t)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpGetTupleElement:
		src := g.value(ctx, ops[0])
		idx := uint32(ops[1].Value)
		writeReg(ctx, ops[2], h.TupleElement(src, idx))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpSetTupleElement:
		v := g.value(ctx, ops[0])
		tup := g.value(ctx, ops[1])
		idx := uint32(ops[2].Value)
		h.PutTupleElement(tup, idx, v)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpGetList:
		src := g.value(ctx, ops[0])
		writeReg(ctx, ops[1], h.Head(src))
		writeReg(ctx, ops[2], h.Tail(src))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpPutMapAssoc:
		src := g.value(ctx, ops[1])
		pairs := g.materializePairs(ctx, ops[5:]) // ops[4] is the group-count operand
		writeReg(ctx, ops[2], h.PutMapAssoc(src, pairs))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpPutMapExact:
		src := g.value(ctx, ops[1])
		pairs := g.materializePairs(ctx, ops[5:]) // ops[4] is the group-count operand
		res, ok := h.PutMapExact(src, pairs)
		if !ok {
			if off, ok := g.labelOffset(ctx, ops[0]); ok {
				ctx.IP = off
				return StepResult{Kind: StepContinue}
			}
			return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadarg))
		}
		writeReg(ctx, ops[2], res)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpHasMapFields:
		src := g.value(ctx, ops[1])
		for _, keyOp := range ops[3:] { // ops[2] is the group-count operand
			key := g.value(ctx, keyOp)
			if h.MapFindPos(src, key) < 0 {
				off, _ := g.labelOffset(ctx, ops[0])
				ctx.IP = off
				return StepResult{Kind: StepContinue}
			}
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpGetMapElements:
		src := g.value(ctx, ops[1])
		rest := ops[3:] // ops[2] is the group-count operand
		for i := 0; i+1 < len(rest); i += 2 {
			key := g.value(ctx, rest[i])
			pos := h.MapFindPos(src, key)
			if pos < 0 {
				off, _ := g.labelOffset(ctx, ops[0])
				ctx.IP = off
				return StepResult{Kind: StepContinue}
			}
			writeReg(ctx, rest[i+1], h.MapValueAt(src, uint32(pos)))
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}
	}
	panic("vm: stepAggregate called for unhandled opcode")
}

func (g *Global) materializePairs(ctx *process.Context, ops []loader.Operand) []term.Term {
	out := make([]term.Term, len(ops))
	for i, o := range ops {
		out[i] = g.value(ctx, o)
	}
	return out
}
