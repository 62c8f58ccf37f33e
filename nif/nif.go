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

// Package nif implements the two native-function tables a BEAM-style VM
// needs: BIFs (pure, arity 0-2, an optional GC-BIF subset) and NIFs
// (arbitrary arity, side-effecting things like spawn/send/monitor).
// Both are keyed by (module atom, function atom, arity) and looked up
// through the loader.NativeResolver interface at module-load time.
package nif

import (
	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// Func is the common calling convention for both tables: given the calling
// process and already-decoded argument terms, return the result, or
// term.Invalid to signal the caller should transfer to handle_error with
// x[0]/x[1] already set to the error class and reason, following the
// usual "invalid_term ... with x[0]/x[1] already set" convention.
type Func func(ctx *process.Context, args []term.Term) term.Term

type key struct {
	module, function uint32
	arity            int
}

type bifEntry struct {
	fn   Func
	isGC bool
}

// Registry is the two BIF/NIF tables loader.Module.ResolveAtLoad resolves
// imports against. Process-control NIFs (spawn, link, monitor, send, ...)
// delegate to a Runtime bound after construction, since creating the
// registry happens before the VM's global context exists.
type Registry struct {
	atoms *atomtable.Table
	bifs  map[key]bifEntry
	nifs  map[key]Func
	rt    Runtime

	idBadarith uint32
}

// New builds an empty registry and wires in the concrete BIF/NIF set.
// atoms is the shared
// global atom table; function/module names are interned into it as they're
// registered.
func New(atoms *atomtable.Table) *Registry {
	r := &Registry{
		atoms:      atoms,
		bifs:       make(map[key]bifEntry),
		nifs:       make(map[key]Func),
		idBadarith: atoms.Insert("badarith"),
	}
	r.registerArithBIFs()
	r.registerComparisonBIFs()
	r.registerTypeBIFs()
	r.registerListBIFs()
	r.registerTupleBIFs()
	r.registerMapBIFs()
	r.registerBinaryBIFs()
	r.registerProcessNIFs()
	r.registerPlatformStubs()
	return r
}

// BindRuntime wires the process-control surface (spawn/link/monitor/send)
// to the VM's global context. Must be called once before any spawn/link/
// monitor/send NIF runs; avm/vm.Global calls this right after constructing
// both itself and the registry.
func (r *Registry) BindRuntime(rt Runtime) {
	r.rt = rt
}

func (r *Registry) registerBIF(module, function string, arity int, isGC bool, fn Func) {
	k := key{module: r.atoms.Insert(module), function: r.atoms.Insert(function), arity: arity}
	r.bifs[k] = bifEntry{fn: fn, isGC: isGC}
}

func (r *Registry) registerNIF(module, function string, arity int, fn Func) {
	k := key{module: r.atoms.Insert(module), function: r.atoms.Insert(function), arity: arity}
	r.nifs[k] = fn
}

// LookupBIF implements loader.NativeResolver.
func (r *Registry) LookupBIF(moduleAtom, functionAtom uint32, arity int) (interface{}, bool, bool) {
	e, ok := r.bifs[key{moduleAtom, functionAtom, arity}]
	if !ok {
		return nil, false, false
	}
	return e.fn, e.isGC, true
}

// LookupNIF implements loader.NativeResolver.
func (r *Registry) LookupNIF(moduleAtom, functionAtom uint32, arity int) (interface{}, bool) {
	fn, ok := r.nifs[key{moduleAtom, functionAtom, arity}]
	return fn, ok
}

// raiseError sets x[0]/x[1] to {error, reason} and returns the invalid
// sentinel, the convention every failing BIF/NIF in this package follows.
func raiseError(ctx *process.Context, reason term.Term) term.Term {
	ctx.XRegs[0] = term.FromAtom(atomtable.IDError)
	ctx.XRegs[1] = reason
	return term.Invalid
}

func (r *Registry) badarg(ctx *process.Context) term.Term {
	return raiseError(ctx, term.FromAtom(atomtable.IDBadarg))
}

func (r *Registry) badarith(ctx *process.Context) term.Term {
	return raiseError(ctx, term.FromAtom(r.idBadarith))
}

func boolTerm(b bool) term.Term {
	if b {
		return term.FromAtom(atomtable.IDTrue)
	}
	return term.FromAtom(atomtable.IDFalse)
}
