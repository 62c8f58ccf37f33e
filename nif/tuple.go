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
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// registerTupleBIFs wires tuple_size/1 and element/2 as BIFs, and
// setelement/3 (which allocates a fresh tuple) as a NIF, since its arity is
// outside the 0-2 range BIFs are kept to.
func (r *Registry) registerTupleBIFs() {
	r.registerBIF("erlang", "tuple_size", 1, false, r.bifTupleSize)
	r.registerBIF("erlang", "element", 2, false, r.bifElement)
	r.registerNIF("erlang", "setelement", 3, r.nifSetElement)
}

func (r *Registry) bifTupleSize(ctx *process.Context, args []term.Term) term.Term {
	if !ctx.Heap.IsTuple(args[0]) {
		return r.badarg(ctx)
	}
	return term.FromSmallInt(int64(ctx.Heap.TupleArity(args[0])))
}

func (r *Registry) bifElement(ctx *process.Context, args []term.Term) term.Term {
	h := ctx.Heap
	idxTerm, tup := args[0], args[1]
	if !h.IsTuple(tup) || !term.IsSmallInt(idxTerm) {
		return r.badarg(ctx)
	}
	idx := term.ToSmallInt(idxTerm)
	if idx < 1 || idx > int64(h.TupleArity(tup)) {
		return r.badarg(ctx)
	}
	return h.TupleElement(tup, uint32(idx-1))
}

func (r *Registry) nifSetElement(ctx *process.Context, args []term.Term) term.Term {
	h := ctx.Heap
	idxTerm, tup, val := args[0], args[1], args[2]
	if !h.IsTuple(tup) || !term.IsSmallInt(idxTerm) {
		return r.badarg(ctx)
	}
	idx := term.ToSmallInt(idxTerm)
	arity := h.TupleArity(tup)
	if idx < 1 || idx > int64(arity) {
		return r.badarg(ctx)
	}
	out := h.NewTuple(arity)
	for i := uint32(0); i < arity; i++ {
		if i == uint32(idx-1) {
			h.PutTupleElement(out, i, val)
		} else {
			h.PutTupleElement(out, i, h.TupleElement(tup, i))
		}
	}
	return out
}
