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

// opAllocate reserves N y-slots (plus optionally HeapWords of heap headroom)
// for the frame the following instructions will run in, and stores the CP
// register onto the stack so a later deallocate/call_last/return can recover
// it. Zero variants additionally set every y-slot to term.Nil; non-zero
// variants leave the y-slots holding whatever words the stack zone held.
func (g *Global) opAllocate(ctx *process.Context, nSlots, live, heapWords uint32, zero bool) error {
	if err := ctx.Heap.EnsureFree(nSlots+1+heapWords, ctx.Roots(int(live)), true); err != nil {
		return err
	}
	base := ctx.Heap.PushFrame(nSlots)
	ctx.Heap.Memory[base] = ctx.CP
	if zero {
		for i := uint32(0); i < nSlots; i++ {
			*ctx.Heap.YSlot(base, i) = term.Nil
		}
	}
	return nil
}

// opDeallocate pops a frame without transferring control, restoring CP into
// its register (the caller, typically the instruction just before a
// call_only or return, resumes from wherever CP was left pointing).
func (g *Global) opDeallocate(ctx *process.Context, nSlots uint32) {
	ctx.CP = ctx.Heap.PopFrame(nSlots)
}

// opTestHeap ensures N words of heap headroom without touching the stack.
func (g *Global) opTestHeap(ctx *process.Context, n, live uint32) error {
	return ctx.Heap.EnsureFree(n, ctx.Roots(int(live)), true)
}

// opKill clears a y-slot ahead of a GC, matching real BEAM's "kill"
// invalidation of a register no longer needed by the frame.
func (g *Global) opKill(ctx *process.Context, slot uint32) {
	*ctx.Heap.YSlot(ctx.Heap.EStack, slot) = term.Nil
}

// opTrim shrinks the active frame by dropping its first N y-slots (those
// next to the saved CP) and keeping the Remaining slots after them, which
// become y0..y(Remaining-1). Heap.PushFrame/PopFrame
// have no primitive for this (a real BEAM frame only ever grows or fully
// unwinds), so trim is implemented directly: shift the frame's base up by N
// words, relocate the saved CP and the kept slots, and leave the discarded
// N words free.
func (g *Global) opTrim(ctx *process.Context, n, remaining uint32) {
	h := ctx.Heap
	oldBase := h.EStack
	newBase := oldBase + n
	savedCP := h.Memory[oldBase]
	kept := make([]term.Term, remaining)
	for i := uint32(0); i < remaining; i++ {
		kept[i] = *h.YSlot(oldBase, n+i)
	}
	h.Memory[newBase] = savedCP
	for i := uint32(0); i < remaining; i++ {
		*h.YSlot(newBase, i) = kept[i]
	}
	h.EStack = newBase
}

// opCall implements the call family: call sets CP to the resume point right
// after the call instruction and jumps to label; call_only tail-jumps
// without touching CP (no frame is active to return to); call_last pops a
// frame (restoring CP from the stack) before jumping, for a tail call from
// inside a frame about to be discarded.
func (g *Global) opCall(ctx *process.Context, label uint32) {
	off, _ := ctx.CurrentModule.LabelOffset(label)
	ctx.IP = off
}

func (g *Global) opCallSetCP(ctx *process.Context, label uint32, returnIP uint32) {
	ctx.CP = newCP(ctx.CurrentModule.Index, returnIP)
	off, _ := ctx.CurrentModule.LabelOffset(label)
	ctx.IP = off
}

func (g *Global) opCallLast(ctx *process.Context, label, dealloc uint32) {
	ctx.CP = ctx.Heap.PopFrame(dealloc)
	off, _ := ctx.CurrentModule.LabelOffset(label)
	ctx.IP = off
}

// opReturn implements the return instruction: jump to wherever CP points, or
// terminate the process normally if CP is the sentinel a freshly spawned
// process starts with (its entry call has nothing to return to).
//
// StepResult's Terminated case carries the exit reason atom so the driver
// loop can hand it straight to Scheduler.Terminate.
func (g *Global) opReturn(ctx *process.Context) StepResult {
	modIdx, off, sentinel := decodeCP(ctx.CP)
	if sentinel {
		return StepResult{Kind: StepTerminated, Reason: g.atom(atomtable.IDNormal)}
	}
	mod, ok := g.ByIndex(modIdx)
	if !ok {
		return StepResult{Kind: StepTerminated, Reason: g.atom(atomtable.IDUndef)}
	}
	ctx.CurrentModule = mod
	ctx.IP = off
	return StepResult{Kind: StepContinue}
}

// callExtTarget resolves a call_ext-family instruction's import slot,
// triggering lazy resolution if the module hadn't been loaded yet at
// load time.
func (g *Global) callExtTarget(ctx *process.Context, importIdx uint32) (*loader.Import, error) {
	imp := &ctx.CurrentModule.Imports[importIdx]
	if imp.Kind == loader.ImportUnresolved {
		if err := ctx.CurrentModule.ResolveOnCall(int(importIdx), g); err != nil {
			return imp, err
		}
	}
	return imp, nil
}
