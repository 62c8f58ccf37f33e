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

// registerListBIFs wires the list accessors: hd/1, tl/1 raise badarg on a
// non-cons argument (including nil), matching real erlang:hd/erlang:tl.
// length/1 raises badarg on an improper list.
func (r *Registry) registerListBIFs() {
	r.registerBIF("erlang", "hd", 1, false, r.bifHd)
	r.registerBIF("erlang", "tl", 1, false, r.bifTl)
	r.registerBIF("erlang", "length", 1, false, r.bifLength)
}

func (r *Registry) bifHd(ctx *process.Context, args []term.Term) term.Term {
	if !term.IsNonemptyList(args[0]) {
		return r.badarg(ctx)
	}
	return ctx.Heap.Head(args[0])
}

func (r *Registry) bifTl(ctx *process.Context, args []term.Term) term.Term {
	if !term.IsNonemptyList(args[0]) {
		return r.badarg(ctx)
	}
	return ctx.Heap.Tail(args[0])
}

func (r *Registry) bifLength(ctx *process.Context, args []term.Term) term.Term {
	h := ctx.Heap
	n := int64(0)
	t := args[0]
	for term.IsNonemptyList(t) {
		n++
		t = h.Tail(t)
	}
	if !term.IsNil(t) {
		return r.badarg(ctx)
	}
	return term.FromSmallInt(n)
}
