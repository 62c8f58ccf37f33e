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

// Package sched implements the single-threaded cooperative scheduler:
// ready/waiting/registry process sets, round-robin reduction-counted
// preemption, a timer wheel for wait_timeout, and monitor/link exit
// propagation. It owns no module-loading or
// interpreter state; avm/vm's Global wires this scheduler to the atom
// table, module registry, and interpreter driver loop.
package sched

import (
	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// Scheduler holds the three process sets (ready, waiting,
// and the complete by-pid registry) plus the timer wheel and the currently
// running process, if any.
type Scheduler struct {
	atoms *atomtable.Table

	Quantum int

	ready   []term.Term
	waiting map[term.Term]bool
	procs   map[term.Term]*process.Context

	Running term.Term // term.Invalid when nothing is scheduled

	timers []*Timer

	nextPid uint32

	idKilled uint32
	idKill   uint32
}

// New constructs an empty scheduler with the given reduction quantum.
func New(atoms *atomtable.Table, quantum int) *Scheduler {
	return &Scheduler{
		atoms:    atoms,
		Quantum:  quantum,
		waiting:  make(map[term.Term]bool),
		procs:    make(map[term.Term]*process.Context),
		Running:  term.Invalid,
		nextPid:  1,
		idKilled: atoms.Insert("killed"),
		idKill:   atoms.Insert("kill"),
	}
}

// AllocPid assigns the next monotonic pid; pids are never reused within a
// session.
func (s *Scheduler) AllocPid() term.Term {
	id := s.nextPid
	s.nextPid++
	return term.FromPid(id)
}

// Spawn registers ctx in the process registry and enqueues it ready.
func (s *Scheduler) Spawn(ctx *process.Context) {
	s.procs[ctx.Pid] = ctx
	s.ready = append(s.ready, ctx.Pid)
}

// Lookup finds a process by pid, reporting whether it's still alive.
func (s *Scheduler) Lookup(pid term.Term) (*process.Context, bool) {
	c, ok := s.procs[pid]
	return c, ok
}

// IsAlive implements erlang:is_process_alive/1.
func (s *Scheduler) IsAlive(pid term.Term) bool {
	_, ok := s.procs[pid]
	return ok
}

// NextReady dequeues the next ready process round-robin, making it Running.
// The caller is responsible for re-enqueueing the previously running
// process first if it's still runnable (ReschedulePrevious).
func (s *Scheduler) NextReady() (*process.Context, bool) {
	if len(s.ready) == 0 {
		s.Running = term.Invalid
		return nil, false
	}
	pid := s.ready[0]
	s.ready = s.ready[1:]
	s.Running = pid
	return s.procs[pid], true
}

// ReschedulePrevious re-enqueues pid at the back of the ready queue (used
// when a process's reduction count reaches zero but it's still runnable),
// implementing round-robin preemption.
func (s *Scheduler) ReschedulePrevious(pid term.Term) {
	if _, ok := s.procs[pid]; ok {
		s.ready = append(s.ready, pid)
	}
}

// Block moves pid from running to waiting (the wait instruction).
func (s *Scheduler) Block(pid term.Term) {
	s.waiting[pid] = true
	if s.Running == pid {
		s.Running = term.Invalid
	}
}

// Wake moves pid from waiting back to the ready queue, cancelling any timer
// armed for it (a message arrived before the timeout did).
func (s *Scheduler) Wake(pid term.Term) {
	if !s.waiting[pid] {
		return
	}
	delete(s.waiting, pid)
	s.cancelTimer(pid)
	if _, ok := s.procs[pid]; ok {
		s.ready = append(s.ready, pid)
	}
}

// IsWaiting reports whether pid is currently blocked.
func (s *Scheduler) IsWaiting(pid term.Term) bool {
	return s.waiting[pid]
}

// ReadyLen and WaitingLen expose queue depths for diagnostics/tests.
func (s *Scheduler) ReadyLen() int   { return len(s.ready) }
func (s *Scheduler) WaitingLen() int { return len(s.waiting) }

// Terminate removes pid from every set and delivers DOWN/EXIT notifications
// to its monitors and links, per the termination propagation
// rules. reason is a term living in the terminating process's own heap;
// it is deep-copied into each target's heap before delivery.
func (s *Scheduler) Terminate(pid term.Term, reason term.Term) {
	ctx, ok := s.procs[pid]
	if !ok {
		return
	}
	delete(s.procs, pid)
	delete(s.waiting, pid)
	s.removeFromReady(pid)
	s.cancelTimer(pid)

	normal := term.FromAtom(atomtable.IDNormal)
	isNormal := heap.Equal(ctx.Heap, reason, normal)

	for _, m := range ctx.Monitors {
		target, ok := s.procs[m.PeerPid]
		if !ok {
			continue
		}
		if m.IsLink {
			if !isNormal || target.Flags.Has(process.FlagTrapExit) {
				if target.Flags.Has(process.FlagTrapExit) {
					s.deliverExit(target, ctx.Heap, ctx.Pid, reason)
				} else {
					s.Terminate(target.Pid, copyInto(target.Heap, ctx.Heap, reason))
				}
			}
			continue
		}
		s.deliverDown(target, ctx.Heap, m.RefTicks, ctx.Pid, reason)
	}
}

func (s *Scheduler) removeFromReady(pid term.Term) {
	out := s.ready[:0]
	for _, p := range s.ready {
		if p != pid {
			out = append(out, p)
		}
	}
	s.ready = out
}

func copyInto(dst, src *heap.Heap, t term.Term) term.Term {
	if src == dst {
		return t
	}
	return heap.CopyTerm(t, src, dst)
}

func (s *Scheduler) deliverExit(target *process.Context, srcHeap *heap.Heap, from, reason term.Term) {
	h := target.Heap
	r := copyInto(h, srcHeap, reason)
	msg := h.NewTuple(3)
	h.PutTupleElement(msg, 0, term.FromAtom(atomtable.IDEXIT))
	h.PutTupleElement(msg, 1, from)
	h.PutTupleElement(msg, 2, r)
	target.Mailbox.Enqueue(msg)
	s.Wake(target.Pid)
}

func (s *Scheduler) deliverDown(target *process.Context, srcHeap *heap.Heap, refTicks uint64, from, reason term.Term) {
	h := target.Heap
	r := copyInto(h, srcHeap, reason)
	ref := h.NewRef(refTicks)
	msg := h.NewTuple(5)
	h.PutTupleElement(msg, 0, term.FromAtom(atomtable.IDDOWN))
	h.PutTupleElement(msg, 1, ref)
	h.PutTupleElement(msg, 2, term.FromAtom(atomtable.IDProcess))
	h.PutTupleElement(msg, 3, from)
	h.PutTupleElement(msg, 4, r)
	target.Mailbox.Enqueue(msg)
	s.Wake(target.Pid)
}

// SignalExit implements erlang:exit/2's asynchronous exit signal:
// reason 'kill' unconditionally terminates target
// (recorded as 'killed'), bypassing trap_exit, matching real BEAM's
// untrappable kill; otherwise a trapping target receives
// {'EXIT', from, reason}, while a non-trapping target is terminated with
// reason (cascading through its own links via Terminate).
func (s *Scheduler) SignalExit(fromHeap *heap.Heap, from, target, reason term.Term) {
	t, ok := s.procs[target]
	if !ok {
		return
	}
	if term.IsAtom(reason) && term.AtomID(reason) == s.idKill {
		s.Terminate(target, term.FromAtom(s.idKilled))
		return
	}
	if t.Flags.Has(process.FlagTrapExit) {
		s.deliverExit(t, fromHeap, from, reason)
		return
	}
	isNormal := term.IsAtom(reason) && term.AtomID(reason) == atomtable.IDNormal
	if !isNormal {
		s.Terminate(target, copyInto(t.Heap, fromHeap, reason))
	}
}

// Send implements the send instruction's delivery semantics: if the
// receiver exists, msg is deep-copied into its heap and enqueued; a
// waiting receiver is woken. A send to a dead pid is silently dropped, as
// real BEAM does (no error is raised).
func (s *Scheduler) Send(fromHeap *heap.Heap, to, msg term.Term) {
	target, ok := s.procs[to]
	if !ok {
		return
	}
	copied := copyInto(target.Heap, fromHeap, msg)
	target.Mailbox.Enqueue(copied)
	s.Wake(target.Pid)
}
