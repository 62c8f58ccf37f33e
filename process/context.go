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

// Package process implements the per-process Context: x-registers, heap,
// mailbox, dictionary, monitor/link list, and process flags, plus the
// saved instruction pointer a preempted process
// resumes from.
package process

import (
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/term"
)

// NumXRegs is the fixed x-register file size.
const NumXRegs = 16

// Flag is a bitmask of per-process behavior flags.
type Flag uint8

const (
	FlagWaitingTimeout Flag = 1 << iota
	FlagWaitingTimeoutExpired
	FlagTrapExit
)

// Set/Clear/Has give named, readable flag access over the bitmask.
func (f *Flag) Set(bit Flag)     { *f |= bit }
func (f *Flag) Clear(bit Flag)   { *f &^= bit }
func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// MonitorEntry is one entry of a process's monitor/link list:
// the peer pid, the ref-ticks identifying the monitor (0 for a plain link,
// which has no ref), and whether this entry is a link (bidirectional;
// whether an exit propagates depends on the reason and the peer's
// trap_exit flag) vs. a monitor (one-directional DOWN message).
type MonitorEntry struct {
	PeerPid  term.Term
	RefTicks uint64
	IsLink   bool
}

// DictEntry is one process-dictionary key/value pair.
type DictEntry struct {
	Key term.Term
	Val term.Term
}

// Context is one process: its identity, execution state, and the resources
// a running process needs.
type Context struct {
	Pid  term.Term
	Heap *heap.Heap

	XRegs [NumXRegs]term.Term

	// CurrentModule/IP are the saved instruction pointer and owning module
	// a preempted or newly scheduled process resumes from. CP is the return
	// address register the call family sets and return/deallocate consume;
	// it is opaque to this package (avm/vm encodes and decodes it).
	CurrentModule *loader.Module
	IP            uint32
	CP            term.Term

	Mailbox Mailbox

	Dictionary []DictEntry

	Monitors []MonitorEntry

	Flags Flag

	GroupLeader term.Term
	ExitReason  term.Term
}

// New constructs a fresh process context: pid, an owned heap of the given
// word size, and group_leader defaulted to itself (matching a process with
// no explicit group leader set at spawn).
func New(pid term.Term, heapWords uint32) *Context {
	c := &Context{
		Pid:  pid,
		Heap: heap.New(heapWords),
	}
	c.GroupLeader = pid
	return c
}

// Roots returns every GC root this process holds: the
// first `live` x-registers, the mailbox's message bodies and save buffer,
// the dictionary, and the current bitstring-build term. The stack zone
// itself is handled separately by Heap.EnsureFree's stackRoots flag.
func (c *Context) Roots(live int) []heap.Root {
	roots := make([]heap.Root, 0, live+len(c.Mailbox.messages)+len(c.Mailbox.save)+2*len(c.Dictionary)+1)
	for i := 0; i < live; i++ {
		roots = append(roots, heap.Root{Slot: &c.XRegs[i]})
	}
	roots = append(roots, c.Mailbox.Roots()...)
	for i := range c.Dictionary {
		roots = append(roots, heap.Root{Slot: &c.Dictionary[i].Key}, heap.Root{Slot: &c.Dictionary[i].Val})
	}
	roots = append(roots, heap.Root{Slot: &c.Heap.BitstringBuild})
	return roots
}
