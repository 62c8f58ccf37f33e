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

// Package heap implements the per-process heap/stack region, its copying
// collector, and the constructors/accessors for every boxed term kind.
package heap

import (
	"errors"

	"github.com/probeum/avm/term"
)

// ErrOutOfMemory is returned by EnsureFree when the requested headroom
// would push the region past its configured maximum size.
var ErrOutOfMemory = errors.New("out of memory")

// RefBin is a refcounted binary shared across processes (e.g. literal
// binaries loaded from a module, or binaries promoted off-heap).
type RefBin struct {
	Data []byte
	refs int32
}

func (r *RefBin) IncRef() { r.refs++ }
func (r *RefBin) DecRef() { r.refs-- }

// Fragment is an off-main-heap allocation (e.g. a just-received message body
// that didn't fit without a GC) linked to a process until the next GC merges
// it into the main heap.
type Fragment struct {
	Memory []term.Term
	Next   *Fragment
}

// Root is a single GC root: either a pointer to an x-register / dictionary
// slot (Slot) or an index into the stack (handled separately by the Heap).
type Root struct {
	Slot *term.Term
}

// Heap is a single contiguous per-process region: the heap zone grows up
// from index 1, the stack zone grows down from the top, free space lies
// between them. Word 0 is never allocated, so no boxed pointer is the zero
// word (term.IsBoxed rejects zero).
type Heap struct {
	Memory    []term.Term
	HTop      uint32 // first free heap word
	EStack    uint32 // current stack pointer (stack grows down toward HTop)
	StackBase uint32 // fixed high end == len(Memory)

	RefBins    []*RefBin // side table for refcounted binaries
	Fragments  *Fragment
	MaxWords   uint32 // 0 == unbounded

	// BitstringBuild is the current build target root (an *unevaluated*
	// in-progress binary under construction by bs_init/bs_put_*); kept
	// alive across GC as part of the root set.
	BitstringBuild term.Term
}

// New allocates a fresh heap+stack region of the given total word size.
func New(words uint32) *Heap {
	return &Heap{
		Memory:    make([]term.Term, words),
		HTop:      1,
		EStack:    words,
		StackBase: words,
	}
}

// Free returns the number of words currently available between the heap top
// and the stack pointer.
func (h *Heap) Free() uint32 {
	if h.EStack < h.HTop {
		return 0
	}
	return h.EStack - h.HTop
}

// Alloc returns a pointer (heap word offset) to n freshly reserved,
// uninitialized heap words. The caller must have called EnsureFree(n) (or
// otherwise know the headroom exists) first; Alloc itself never triggers GC.
func (h *Heap) Alloc(n uint32) uint32 {
	off := h.HTop
	h.HTop += n
	return off
}

// PushFrame reserves nSlots y-slots plus one CP word below the current stack
// pointer and returns the new stack pointer (the frame's base). The caller
// writes cp into Memory[newSP] themselves (allocate writes the saved CP,
// y-slots are Memory[newSP+1 : newSP+1+nSlots]).
func (h *Heap) PushFrame(nSlots uint32) uint32 {
	h.EStack -= nSlots + 1
	return h.EStack
}

// PopFrame releases nSlots+1 words from the stack (the saved CP plus the
// frame's y-slots), returning the saved CP word.
func (h *Heap) PopFrame(nSlots uint32) term.Term {
	cp := h.Memory[h.EStack]
	h.EStack += nSlots + 1
	return cp
}

// YSlot returns a pointer to y-slot index idx of the frame based at base
// (the value PushFrame returned); slot 0 is immediately above the saved CP.
func (h *Heap) YSlot(base, idx uint32) *term.Term {
	return &h.Memory[base+1+idx]
}

// EnsureFree guarantees n words of combined heap+stack headroom, running a
// GC pass with the supplied roots if necessary. Any term.Term decoded from
// Memory before this call must be re-read afterward: GC may have moved it.
func (h *Heap) EnsureFree(n uint32, roots []Root, stackRoots bool) error {
	if h.Free() >= n {
		return nil
	}
	h.collect(roots, stackRoots)
	if h.Free() >= n {
		return nil
	}
	grown := grow(h, n)
	if h.MaxWords != 0 && uint32(len(grown)) > h.MaxWords {
		return ErrOutOfMemory
	}
	h.Memory = grown
	return nil
}

func grow(h *Heap, n uint32) []term.Term {
	used := h.HTop + (h.StackBase - h.EStack)
	need := used + n
	newSize := uint32(len(h.Memory)) * 2
	for newSize < need {
		newSize *= 2
	}
	mem := make([]term.Term, newSize)
	copy(mem, h.Memory[:h.HTop])
	stackLen := h.StackBase - h.EStack
	copy(mem[newSize-stackLen:], h.Memory[h.EStack:h.StackBase])
	h.EStack = newSize - stackLen
	h.StackBase = newSize
	return mem
}

// SweepMSOList releases refcounts held by binaries that are no longer
// reachable after a collection; called by the collector with the set of
// RefBin indices it found still live.
func (h *Heap) SweepMSOList(liveIdx map[int]bool) {
	for i, rb := range h.RefBins {
		if rb == nil {
			continue
		}
		if !liveIdx[i] {
			rb.DecRef()
			h.RefBins[i] = nil
		}
	}
}
