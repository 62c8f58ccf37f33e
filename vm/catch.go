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

// stepCatch dispatches the catch/try/raise/badmatch family. Fail-free
// instructions (badmatch, case_end, if_end, try_case_end, raise) always
// raise; catch/try write a protected-block marker; catch_end/try_end are
// hygiene-only no-ops on the normal (non-exceptional) path, since the
// actual value-wrapping happens once, in raise, when the unwind finds the
// matching frame — a deliberate departure from real BEAM's instruction
// placement (there, catch_end itself does the wrapping) but an internally
// consistent one: this VM never needs wire compatibility with an external
// bytecode compiler's placement convention.
func (g *Global) stepCatch(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	ops := instr.Operands
	switch instr.Op {
	case loader.OpCatch:
		off, _ := g.labelOffset(ctx, ops[1])
		*ctx.Heap.YSlot(ctx.Heap.EStack, uint32(ops[0].Value)) = newCatchFrame(ctx.CurrentModule.Index, off, false)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpTry:
		off, _ := g.labelOffset(ctx, ops[1])
		*ctx.Heap.YSlot(ctx.Heap.EStack, uint32(ops[0].Value)) = newCatchFrame(ctx.CurrentModule.Index, off, true)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpCatchEnd, loader.OpTryEnd:
		*ctx.Heap.YSlot(ctx.Heap.EStack, uint32(ops[0].Value)) = term.Nil
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpTryCaseEnd:
		val := g.value(ctx, ops[0])
		reason := ctx.Heap.NewTuple(2)
		ctx.Heap.PutTupleElement(reason, 0, g.atom(atomtable.IDTryClause))
		ctx.Heap.PutTupleElement(reason, 1, val)
		return g.raise(ctx, g.atom(atomtable.IDError), reason)

	case loader.OpRaise:
		class := g.value(ctx, ops[0])
		reason := g.value(ctx, ops[1])
		return g.raise(ctx, class, reason)

	case loader.OpBadmatch:
		val := g.value(ctx, ops[0])
		reason := ctx.Heap.NewTuple(2)
		ctx.Heap.PutTupleElement(reason, 0, g.atom(atomtable.IDBadmatch))
		ctx.Heap.PutTupleElement(reason, 1, val)
		return g.raise(ctx, g.atom(atomtable.IDError), reason)

	case loader.OpCaseEnd:
		val := g.value(ctx, ops[0])
		reason := ctx.Heap.NewTuple(2)
		ctx.Heap.PutTupleElement(reason, 0, g.atom(atomtable.IDCaseClause))
		ctx.Heap.PutTupleElement(reason, 1, val)
		return g.raise(ctx, g.atom(atomtable.IDError), reason)

	case loader.OpIfEnd:
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDIfClause))
	}
	panic("vm: stepCatch called for unhandled opcode")
}

// raise is the generic exception path every raising instruction (and every
// failing BIF/NIF, via their x[0]/x[1] convention) funnels through. It scans
// the stack from the current frame toward the base, innermost first,
// looking for a catch/try marker; CP words are skipped (isCP), ordinary
// y-slot values are skipped (neither isCP nor isCatchFrame matches an
// ordinary term, by construction — see cp.go). If nothing is found before
// the stack is exhausted, the process terminates.
func (g *Global) raise(ctx *process.Context, class, reason term.Term) StepResult {
	h := ctx.Heap
	for sp := h.EStack; sp < h.StackBase; sp++ {
		word := h.Memory[sp]
		if isCP(word) {
			continue
		}
		modIdx, label, isTry, ok := decodeCatchFrame(word)
		if !ok {
			continue
		}
		h.EStack = sp + 1
		mod, ok := g.ByIndex(modIdx)
		if !ok {
			break
		}
		ctx.CurrentModule = mod
		ctx.IP = label
		if isTry {
			ctx.XRegs[0] = class
			ctx.XRegs[1] = reason
			ctx.XRegs[2] = term.Nil
		} else {
			ctx.XRegs[0] = g.wrapCaught(ctx, class, reason)
		}
		return StepResult{Kind: StepContinue}
	}

	return StepResult{Kind: StepTerminated, Reason: g.terminalReason(ctx, class, reason)}
}

// wrapCaught builds the single value a plain catch delivers: a throw's
// reason unwrapped, or an {'EXIT', Reason} tuple for exit/error classes.
func (g *Global) wrapCaught(ctx *process.Context, class, reason term.Term) term.Term {
	if term.IsAtom(class) && term.AtomID(class) == atomtable.IDThrow {
		return reason
	}
	t := ctx.Heap.NewTuple(2)
	ctx.Heap.PutTupleElement(t, 0, g.atom(atomtable.IDEXIT))
	ctx.Heap.PutTupleElement(t, 1, reason)
	return t
}

// terminalReason computes the exit reason an uncaught exception propagates
// with, per real Erlang's rule that an uncaught throw becomes
// {'nocatch', Value} at the top of a process while uncaught exit/error
// reasons propagate as-is.
func (g *Global) terminalReason(ctx *process.Context, class, reason term.Term) term.Term {
	if term.IsAtom(class) && term.AtomID(class) == atomtable.IDThrow {
		t := ctx.Heap.NewTuple(2)
		ctx.Heap.PutTupleElement(t, 0, g.atom(atomtable.IDNocatch))
		ctx.Heap.PutTupleElement(t, 1, reason)
		return t
	}
	return reason
}
