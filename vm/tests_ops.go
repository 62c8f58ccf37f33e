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
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

func kindOf(h *heap.Heap, t term.Term) (term.BoxKind, bool) {
	if !term.IsBoxed(t) {
		return 0, false
	}
	return term.HeaderKind(h.Memory[term.BoxedOffset(t)]), true
}

func isNumber(h *heap.Heap, t term.Term) bool {
	if term.IsSmallInt(t) {
		return true
	}
	k, ok := kindOf(h, t)
	return ok && (k == term.KindPosBig || k == term.KindNegBig || k == term.KindFloat)
}

// stepTest dispatches the is_*/test_arity/select_val/select_tuple_arity/
// is_tagged_tuple family: every one of these is "evaluate a predicate (or
// match a value/arity against a table) and branch to Fail on mismatch,
// otherwise fall through".
func (g *Global) stepTest(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	ops := instr.Operands
	h := ctx.Heap

	branchOnFalse := func(ok bool) StepResult {
		if ok {
			ctx.IP = nextIP
			return StepResult{Kind: StepContinue}
		}
		off, _ := g.labelOffset(ctx, ops[0])
		ctx.IP = off
		return StepResult{Kind: StepContinue}
	}

	switch instr.Op {
	case loader.OpIsInteger:
		v := g.value(ctx, ops[1])
		k, isBoxed := kindOf(h, v)
		return branchOnFalse(term.IsSmallInt(v) || (isBoxed && (k == term.KindPosBig || k == term.KindNegBig)))
	case loader.OpIsFloat:
		v := g.value(ctx, ops[1])
		k, ok := kindOf(h, v)
		return branchOnFalse(ok && k == term.KindFloat)
	case loader.OpIsNumber:
		return branchOnFalse(isNumber(h, g.value(ctx, ops[1])))
	case loader.OpIsAtom:
		return branchOnFalse(term.IsAtom(g.value(ctx, ops[1])))
	case loader.OpIsPid:
		return branchOnFalse(term.IsPid(g.value(ctx, ops[1])))
	case loader.OpIsReference:
		v := g.value(ctx, ops[1])
		k, ok := kindOf(h, v)
		return branchOnFalse(ok && k == term.KindRef)
	case loader.OpIsPort:
		return branchOnFalse(false) // ports are reserved, never produced
	case loader.OpIsNil:
		return branchOnFalse(term.IsNil(g.value(ctx, ops[1])))
	case loader.OpIsBinary:
		v := g.value(ctx, ops[1])
		k, ok := kindOf(h, v)
		return branchOnFalse(ok && (k == term.KindBinary || k == term.KindRefcBinary || k == term.KindSubBinary))
	case loader.OpIsList:
		v := g.value(ctx, ops[1])
		return branchOnFalse(term.IsNil(v) || term.IsNonemptyList(v))
	case loader.OpIsNonemptyList:
		return branchOnFalse(term.IsNonemptyList(g.value(ctx, ops[1])))
	case loader.OpIsTuple:
		return branchOnFalse(h.IsTuple(g.value(ctx, ops[1])))
	case loader.OpIsFunction:
		return branchOnFalse(h.IsFunction(g.value(ctx, ops[1])))
	case loader.OpIsBoolean:
		v := g.value(ctx, ops[1])
		return branchOnFalse(term.IsAtom(v) && (term.AtomID(v) == atomtable.IDTrue || term.AtomID(v) == atomtable.IDFalse))
	case loader.OpIsMap:
		return branchOnFalse(h.IsMap(g.value(ctx, ops[1])))
	case loader.OpIsBitstr:
		v := g.value(ctx, ops[1])
		k, ok := kindOf(h, v)
		return branchOnFalse(ok && (k == term.KindBinary || k == term.KindRefcBinary || k == term.KindSubBinary))

	case loader.OpTestArity:
		v := g.value(ctx, ops[1])
		return branchOnFalse(h.IsTuple(v) && h.TupleArity(v) == uint32(ops[2].Value))

	case loader.OpIsTaggedTuple:
		v := g.value(ctx, ops[1])
		if !h.IsTuple(v) || h.TupleArity(v) != uint32(ops[2].Value) {
			off, _ := g.labelOffset(ctx, ops[0])
			ctx.IP = off
			return StepResult{Kind: StepContinue}
		}
		tag := g.value(ctx, ops[3])
		return branchOnFalse(heap.Equal(h, h.TupleElement(v, 0), tag))

	case loader.OpSelectVal:
		return g.stepSelectVal(ctx, ops, nextIP)

	case loader.OpSelectTupleArity:
		return g.stepSelectTupleArity(ctx, ops, nextIP)
	}
	panic("vm: stepTest called for unhandled opcode")
}

func (g *Global) stepSelectVal(ctx *process.Context, ops []loader.Operand, nextIP uint32) StepResult {
	h := ctx.Heap
	v := g.value(ctx, ops[0])
	pairs := ops[3:] // ops[2] is the group-count operand DecodeInstruction appends
	for i := 0; i+1 < len(pairs); i += 2 {
		candidate := g.value(ctx, pairs[i])
		if heap.Equal(h, v, candidate) {
			off, _ := g.labelOffset(ctx, pairs[i+1])
			ctx.IP = off
			return StepResult{Kind: StepContinue}
		}
	}
	off, _ := g.labelOffset(ctx, ops[1])
	ctx.IP = off
	return StepResult{Kind: StepContinue}
}

func (g *Global) stepSelectTupleArity(ctx *process.Context, ops []loader.Operand, nextIP uint32) StepResult {
	h := ctx.Heap
	v := g.value(ctx, ops[0])
	if !h.IsTuple(v) {
		off, _ := g.labelOffset(ctx, ops[1])
		ctx.IP = off
		return StepResult{Kind: StepContinue}
	}
	arity := h.TupleArity(v)
	pairs := ops[3:] // ops[2] is the group-count operand DecodeInstruction appends
	for i := 0; i+1 < len(pairs); i += 2 {
		if uint32(pairs[i].Value) == arity {
			off, _ := g.labelOffset(ctx, pairs[i+1])
			ctx.IP = off
			return StepResult{Kind: StepContinue}
		}
	}
	off, _ := g.labelOffset(ctx, ops[1])
	ctx.IP = off
	return StepResult{Kind: StepContinue}
}
