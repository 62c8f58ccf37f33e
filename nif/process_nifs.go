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

package nif

import (
	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// registerProcessNIFs wires the process-control surface: spawn variants,
// link/monitor bookkeeping, exit signaling, and mailbox send. Every one of
// these has side effects beyond its own return value (process creation,
// scheduler-queue mutation), so they're NIFs rather than BIFs even where
// their declared Erlang arity is <= 2.
func (r *Registry) registerProcessNIFs() {
	r.registerNIF("erlang", "spawn", 1, r.nifSpawn1)
	r.registerNIF("erlang", "spawn", 3, r.nifSpawn3)
	r.registerNIF("erlang", "spawn_link", 1, r.nifSpawnLink1)
	r.registerNIF("erlang", "spawn_link", 3, r.nifSpawnLink3)
	r.registerNIF("erlang", "spawn_monitor", 1, r.nifSpawnMonitor1)
	r.registerNIF("erlang", "spawn_monitor", 3, r.nifSpawnMonitor3)
	r.registerNIF("erlang", "monitor", 2, r.nifMonitor)
	r.registerNIF("erlang", "link", 1, r.nifLink)
	r.registerNIF("erlang", "unlink", 1, r.nifUnlink)
	r.registerNIF("erlang", "exit", 1, r.nifExit1)
	r.registerNIF("erlang", "exit", 2, r.nifExit2)
	r.registerNIF("erlang", "process_flag", 2, r.nifProcessFlag)
	r.registerNIF("erlang", "self", 0, r.nifSelf)
	r.registerNIF("erlang", "send", 2, r.nifSend)
	r.registerNIF("erlang", "is_process_alive", 1, r.nifIsProcessAlive)
}

func listToSlice(h interface {
	Tail(term.Term) term.Term
	Head(term.Term) term.Term
}, list term.Term) ([]term.Term, bool) {
	var out []term.Term
	for term.IsNonemptyList(list) {
		out = append(out, h.Head(list))
		list = h.Tail(list)
	}
	if !term.IsNil(list) {
		return nil, false
	}
	return out, true
}

func (r *Registry) spawnFromFun(ctx *process.Context, fun term.Term, link, monitor bool) term.Term {
	h := ctx.Heap
	if !h.IsFunction(fun) {
		return r.badarg(ctx)
	}
	indexOrName := h.ClosureIndexOrName(fun)
	if !term.IsAtom(indexOrName) {
		// A local (non-exported) fun reference has no (module,function)
		// export-table entry to spawn against; this VM only supports
		// spawning a named/exported fun value, not an anonymous closure.
		return r.badarg(ctx)
	}
	module := h.ClosureModule(fun)
	freeze := h.ClosureFreezeVars(fun)
	return r.doSpawn(ctx, module, indexOrName, freeze, link, monitor)
}

func (r *Registry) doSpawn(ctx *process.Context, module, function term.Term, args []term.Term, link, monitor bool) term.Term {
	h := ctx.Heap
	pid, refTicks, ok := r.rt.Spawn(ctx, module, function, args, link, monitor)
	if !ok {
		return r.badarg(ctx)
	}
	if !monitor {
		return pid
	}
	out := h.NewTuple(2)
	h.PutTupleElement(out, 0, pid)
	h.PutTupleElement(out, 1, h.NewRef(refTicks))
	return out
}

func (r *Registry) nifSpawn1(ctx *process.Context, args []term.Term) term.Term {
	return r.spawnFromFun(ctx, args[0], false, false)
}

func (r *Registry) nifSpawnLink1(ctx *process.Context, args []term.Term) term.Term {
	return r.spawnFromFun(ctx, args[0], true, false)
}

func (r *Registry) nifSpawnMonitor1(ctx *process.Context, args []term.Term) term.Term {
	return r.spawnFromFun(ctx, args[0], false, true)
}

func (r *Registry) spawnMFA(ctx *process.Context, args []term.Term, link, monitor bool) term.Term {
	module, function, argList := args[0], args[1], args[2]
	if !term.IsAtom(module) || !term.IsAtom(function) {
		return r.badarg(ctx)
	}
	spawnArgs, ok := listToSlice(ctx.Heap, argList)
	if !ok {
		return r.badarg(ctx)
	}
	return r.doSpawn(ctx, module, function, spawnArgs, link, monitor)
}

func (r *Registry) nifSpawn3(ctx *process.Context, args []term.Term) term.Term {
	return r.spawnMFA(ctx, args, false, false)
}

func (r *Registry) nifSpawnLink3(ctx *process.Context, args []term.Term) term.Term {
	return r.spawnMFA(ctx, args, true, false)
}

func (r *Registry) nifSpawnMonitor3(ctx *process.Context, args []term.Term) term.Term {
	return r.spawnMFA(ctx, args, false, true)
}

func (r *Registry) nifMonitor(ctx *process.Context, args []term.Term) term.Term {
	kind, target := args[0], args[1]
	idProcess := r.atoms.Insert("process")
	if !term.IsAtom(kind) || term.AtomID(kind) != idProcess || !term.IsPid(target) {
		return r.badarg(ctx)
	}
	refTicks, ok := r.rt.Monitor(ctx.Pid, target)
	if !ok {
		return r.badarg(ctx)
	}
	return ctx.Heap.NewRef(refTicks)
}

func (r *Registry) nifLink(ctx *process.Context, args []term.Term) term.Term {
	if !term.IsPid(args[0]) {
		return r.badarg(ctx)
	}
	if !r.rt.Link(ctx.Pid, args[0]) {
		return r.badarg(ctx)
	}
	return term.FromAtom(atomtable.IDTrue)
}

func (r *Registry) nifUnlink(ctx *process.Context, args []term.Term) term.Term {
	if !term.IsPid(args[0]) {
		return r.badarg(ctx)
	}
	r.rt.Unlink(ctx.Pid, args[0])
	return term.FromAtom(atomtable.IDTrue)
}

func (r *Registry) nifExit1(ctx *process.Context, args []term.Term) term.Term {
	ctx.XRegs[0] = term.FromAtom(atomtable.IDExit)
	ctx.XRegs[1] = args[0]
	return term.Invalid
}

func (r *Registry) nifExit2(ctx *process.Context, args []term.Term) term.Term {
	target, reason := args[0], args[1]
	if !term.IsPid(target) {
		return r.badarg(ctx)
	}
	r.rt.Exit(ctx, target, reason)
	return term.FromAtom(atomtable.IDTrue)
}

func (r *Registry) nifProcessFlag(ctx *process.Context, args []term.Term) term.Term {
	flagName, value := args[0], args[1]
	idTrapExit := r.atoms.Insert("trap_exit")
	if !term.IsAtom(flagName) || term.AtomID(flagName) != idTrapExit {
		return r.badarg(ctx)
	}
	if !term.IsBoolean(value, atomtable.IDTrue, atomtable.IDFalse) {
		return r.badarg(ctx)
	}
	old := boolTerm(ctx.Flags.Has(process.FlagTrapExit))
	if term.AtomID(value) == atomtable.IDTrue {
		ctx.Flags.Set(process.FlagTrapExit)
	} else {
		ctx.Flags.Clear(process.FlagTrapExit)
	}
	return old
}

func (r *Registry) nifSelf(ctx *process.Context, args []term.Term) term.Term {
	return ctx.Pid
}

func (r *Registry) nifSend(ctx *process.Context, args []term.Term) term.Term {
	to, msg := args[0], args[1]
	if !term.IsPid(to) {
		return r.badarg(ctx)
	}
	r.rt.Send(ctx, to, msg)
	return msg
}

func (r *Registry) nifIsProcessAlive(ctx *process.Context, args []term.Term) term.Term {
	if !term.IsPid(args[0]) {
		return r.badarg(ctx)
	}
	return boolTerm(r.rt.IsAlive(args[0]))
}
