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

func typeBIF(pred func(*process.Context, term.Term) bool) Func {
	return func(ctx *process.Context, args []term.Term) term.Term {
		return boolTerm(pred(ctx, args[0]))
	}
}

// registerTypeBIFs wires the one-argument type-predicate BIFs. None
// allocate or can fail, so all are plain (non-GC) BIFs.
func (r *Registry) registerTypeBIFs() {
	r.registerBIF("erlang", "is_atom", 1, false, typeBIF(func(_ *process.Context, t term.Term) bool { return term.IsAtom(t) }))
	r.registerBIF("erlang", "is_integer", 1, false, typeBIF(func(c *process.Context, t term.Term) bool {
		return term.IsSmallInt(t) || c.Heap.IsBigInt(t)
	}))
	r.registerBIF("erlang", "is_float", 1, false, typeBIF(func(c *process.Context, t term.Term) bool { return c.Heap.IsFloat(t) }))
	r.registerBIF("erlang", "is_number", 1, false, typeBIF(func(c *process.Context, t term.Term) bool { return isNumber(c.Heap, t) }))
	r.registerBIF("erlang", "is_list", 1, false, typeBIF(func(_ *process.Context, t term.Term) bool { return term.IsList(t) }))
	r.registerBIF("erlang", "is_tuple", 1, false, typeBIF(func(c *process.Context, t term.Term) bool { return c.Heap.IsTuple(t) }))
	r.registerBIF("erlang", "is_binary", 1, false, typeBIF(func(c *process.Context, t term.Term) bool { return c.Heap.IsBinary(t) }))
	r.registerBIF("erlang", "is_pid", 1, false, typeBIF(func(_ *process.Context, t term.Term) bool { return term.IsPid(t) }))
	r.registerBIF("erlang", "is_map", 1, false, typeBIF(func(c *process.Context, t term.Term) bool { return c.Heap.IsMap(t) }))
	r.registerBIF("erlang", "is_function", 1, false, typeBIF(func(c *process.Context, t term.Term) bool { return c.Heap.IsFunction(t) }))
	r.registerBIF("erlang", "is_reference", 1, false, typeBIF(func(c *process.Context, t term.Term) bool { return c.Heap.IsRef(t) }))
	r.registerBIF("erlang", "is_boolean", 1, false, typeBIF(func(_ *process.Context, t term.Term) bool {
		return term.IsBoolean(t, atomtable.IDTrue, atomtable.IDFalse)
	}))
}
