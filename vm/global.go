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

// Package vm ties together the term/heap/loader/process/sched/nif/bitstring
// packages into the running interpreter: Global is the one process-wide
// context holding the shared mutable state (atom table, scheduler, module
// registry), and Step drives a single process through instructions between
// scheduler yield points.
package vm

import (
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/avmconfig"
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/log"
	"github.com/probeum/avm/nif"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/sched"
	"github.com/probeum/avm/term"
)

// Global holds the VM-wide state passed explicitly rather than kept in
// package-level statics: the atom table, pid allocator and scheduler queues
// (via *sched.Scheduler), the ref-tick counter, and the module registry (by
// atom and by numeric index, both LRU-cached over the authoritative maps).
type Global struct {
	Atoms   *atomtable.Table
	Sched   *sched.Scheduler
	Natives *nif.Registry
	Config  avmconfig.Config
	Log     *log.Logger

	mu          sync.RWMutex
	byAtom      map[uint32]*loader.Module
	byIndex     map[uint32]*loader.Module
	atomCache   *lru.Cache
	indexCache  *lru.Cache
	nextIndex   uint32
	nextRefTick uint64

	monitorOwner map[uint64]term.Term

	// tupleBuild/tupleBuildNext track the tuple under construction between a
	// put_tuple and the put instructions that follow it immediately, mirroring
	// real BEAM's single-tuple-builder-at-a-time convention (no yield point
	// ever falls between put_tuple and its puts).
	tupleBuild     term.Term
	tupleBuildNext uint32

	// bsCursor tracks the write position of the binary under construction
	// between a bs_init/bs_init_bits/bs_append and the bs_put_* instructions
	// that follow it, for the same single-builder-at-a-time reason.
	bsCursor int

	// clockTicks is the logical clock wait_timeout deadlines are measured
	// against: the driver loop advances it once per dispatched instruction,
	// so a timeout value is a reduction count rather than wall-clock time.
	clockTicks uint64
}

// NewGlobal constructs a fresh VM-wide context with an empty module
// registry and the concrete BIF/NIF set wired in, and binds itself as the
// nif.Runtime the process-control NIFs delegate to.
func NewGlobal(cfg avmconfig.Config) *Global {
	atoms := atomtable.New()
	atomCache, _ := lru.New(1024)
	indexCache, _ := lru.New(1024)
	g := &Global{
		Atoms:        atoms,
		Sched:        sched.New(atoms, cfg.Scheduler.ReductionQuantum),
		Natives:      nif.New(atoms),
		Config:       cfg,
		Log:          log.Root(),
		byAtom:       make(map[uint32]*loader.Module),
		byIndex:      make(map[uint32]*loader.Module),
		atomCache:    atomCache,
		indexCache:   indexCache,
		monitorOwner: make(map[uint64]term.Term),
	}
	g.Natives.BindRuntime(g)
	return g
}

// LoadModule parses a module's container bytes, registers it by atom and
// index, and resolves its imports against the native table.
func (g *Global) LoadModule(r io.Reader) (*loader.Module, error) {
	g.mu.Lock()
	index := g.nextIndex
	g.nextIndex++
	g.mu.Unlock()

	m, err := loader.Load(r, g.Atoms, index)
	if err != nil {
		return nil, err
	}
	m.ResolveAtLoad(g.Natives)

	g.mu.Lock()
	g.byAtom[m.Atom] = m
	g.byIndex[m.Index] = m
	g.mu.Unlock()
	g.atomCache.Add(m.Atom, m)
	g.indexCache.Add(m.Index, m)
	return m, nil
}

// ByAtom implements loader.ModuleResolver.
func (g *Global) ByAtom(moduleAtom uint32) (*loader.Module, bool) {
	if v, ok := g.atomCache.Get(moduleAtom); ok {
		return v.(*loader.Module), true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.byAtom[moduleAtom]
	if ok {
		g.atomCache.Add(moduleAtom, m)
	}
	return m, ok
}

// ByIndex looks up a loaded module by its registry slot.
func (g *Global) ByIndex(idx uint32) (*loader.Module, bool) {
	if v, ok := g.indexCache.Get(idx); ok {
		return v.(*loader.Module), true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.byIndex[idx]
	if ok {
		g.indexCache.Add(idx, m)
	}
	return m, ok
}

// NextRefTick hands out the next value of the monotonic ref-ticks counter,
// used for monitor refs. wait_timeout deadlines do not use it; they are
// measured against Clock.
func (g *Global) NextRefTick() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextRefTick++
	return g.nextRefTick
}

// Clock returns the current value of the logical clock wait_timeout
// deadlines are measured against.
func (g *Global) Clock() *uint256.Int {
	return new(uint256.Int).SetUint64(g.clockTicks)
}

// Tick advances the logical clock by one, called once per dispatched
// instruction by the driver loop.
func (g *Global) Tick() {
	g.clockTicks++
}

// Spawn implements nif.Runtime: resolves module:function/len(args) to an
// entry label, builds a fresh process context, copies the argument terms
// into its heap, and enqueues it ready.
func (g *Global) Spawn(ctx *process.Context, module, function term.Term, args []term.Term, link, monitor bool) (term.Term, uint64, bool) {
	if !term.IsAtom(module) || !term.IsAtom(function) {
		return term.Invalid, 0, false
	}
	mod, ok := g.ByAtom(term.AtomID(module))
	if !ok {
		return term.Invalid, 0, false
	}
	label, ok := mod.Exports[loader.ExportKey{FunctionAtom: term.AtomID(function), Arity: uint32(len(args))}]
	if !ok {
		return term.Invalid, 0, false
	}
	off, ok := mod.LabelOffset(label)
	if !ok {
		return term.Invalid, 0, false
	}

	pid := g.Sched.AllocPid()
	child := process.New(pid, uint32(g.Config.Heap.InitialWords))
	child.CurrentModule = mod
	child.IP = off
	child.CP = sentinelCP()
	for i, a := range args {
		if i >= process.NumXRegs {
			break
		}
		child.XRegs[i] = heap.CopyTerm(a, ctx.Heap, child.Heap)
	}
	g.Sched.Spawn(child)

	if link {
		child.AddMonitor(ctx.Pid, 0, true)
		ctx.AddMonitor(pid, 0, true)
	}
	var refTicks uint64
	if monitor {
		refTicks = g.NextRefTick()
		child.AddMonitor(ctx.Pid, refTicks, false)
		g.mu.Lock()
		g.monitorOwner[refTicks] = pid
		g.mu.Unlock()
	}
	return pid, refTicks, true
}

// SpawnRoot resolves module:function/arity to an entry label and constructs
// the VM's very first process: unlike Spawn, there is no parent context to
// link or monitor, so the caller receives the fresh *process.Context
// directly and is responsible for placing its arguments into XRegs before
// the process is first scheduled.
func (g *Global) SpawnRoot(module, function term.Term, arity int) (*process.Context, bool) {
	if !term.IsAtom(module) || !term.IsAtom(function) {
		return nil, false
	}
	mod, ok := g.ByAtom(term.AtomID(module))
	if !ok {
		return nil, false
	}
	label, ok := mod.Exports[loader.ExportKey{FunctionAtom: term.AtomID(function), Arity: uint32(arity)}]
	if !ok {
		return nil, false
	}
	off, ok := mod.LabelOffset(label)
	if !ok {
		return nil, false
	}

	pid := g.Sched.AllocPid()
	root := process.New(pid, uint32(g.Config.Heap.InitialWords))
	root.CurrentModule = mod
	root.IP = off
	root.CP = sentinelCP()
	g.Sched.Spawn(root)
	return root, true
}

// Link implements nif.Runtime: a link is symmetric, so both contexts get an
// entry naming the other.
func (g *Global) Link(from, to term.Term) bool {
	a, ok1 := g.Sched.Lookup(from)
	b, ok2 := g.Sched.Lookup(to)
	if !ok1 || !ok2 {
		return false
	}
	a.AddMonitor(to, 0, true)
	b.AddMonitor(from, 0, true)
	return true
}

// Unlink implements nif.Runtime.
func (g *Global) Unlink(from, to term.Term) {
	if a, ok := g.Sched.Lookup(from); ok {
		a.RemoveLink(to)
	}
	if b, ok := g.Sched.Lookup(to); ok {
		b.RemoveLink(from)
	}
}

// Monitor implements nif.Runtime. The entry lives on the monitored (to)
// process's list, naming the watcher (from): Scheduler.Terminate delivers
// DOWN by walking the dying process's own monitor list.
func (g *Global) Monitor(from, to term.Term) (uint64, bool) {
	_, ok1 := g.Sched.Lookup(from)
	target, ok2 := g.Sched.Lookup(to)
	if !ok1 || !ok2 {
		return 0, false
	}
	ref := g.NextRefTick()
	target.AddMonitor(from, ref, false)
	g.mu.Lock()
	g.monitorOwner[ref] = to
	g.mu.Unlock()
	return ref, true
}

// Demonitor implements nif.Runtime.
func (g *Global) Demonitor(refTicks uint64) {
	g.mu.Lock()
	owner, ok := g.monitorOwner[refTicks]
	delete(g.monitorOwner, refTicks)
	g.mu.Unlock()
	if !ok {
		return
	}
	if ctx, ok := g.Sched.Lookup(owner); ok {
		ctx.RemoveMonitor(refTicks)
	}
}

// Send implements nif.Runtime.
func (g *Global) Send(from *process.Context, to, msg term.Term) {
	g.Sched.Send(from.Heap, to, msg)
}

// IsAlive implements nif.Runtime.
func (g *Global) IsAlive(pid term.Term) bool {
	return g.Sched.IsAlive(pid)
}

// Exit implements nif.Runtime.
func (g *Global) Exit(ctx *process.Context, target, reason term.Term) {
	g.Sched.SignalExit(ctx.Heap, ctx.Pid, target, reason)
}
