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

// registerMapBIFs wires map_size/1, map_get/2 (badarg on a missing key, per
// real erlang:map_get) and is_map_key/2.
func (r *Registry) registerMapBIFs() {
	r.registerBIF("erlang", "map_size", 1, false, r.bifMapSize)
	r.registerBIF("erlang", "map_get", 2, false, r.bifMapGet)
	r.registerBIF("erlang", "is_map_key", 2, false, r.bifIsMapKey)
}

func (r *Registry) bifMapSize(ctx *process.Context, args []term.Term) term.Term {
	if !ctx.Heap.IsMap(args[0]) {
		return r.badarg(ctx)
	}
	return term.FromSmallInt(int64(ctx.Heap.MapSize(args[0])))
}

func (r *Registry) bifMapGet(ctx *process.Context, args []term.Term) term.Term {
	h := ctx.Heap
	key, m := args[0], args[1]
	if !h.IsMap(m) {
		return r.badarg(ctx)
	}
	pos := h.MapFindPos(m, key)
	if pos < 0 {
		return r.badarg(ctx)
	}
	return h.MapValueAt(m, uint32(pos))
}

func (r *Registry) bifIsMapKey(ctx *process.Context, args []term.Term) term.Term {
	h := ctx.Heap
	key, m := args[0], args[1]
	if !h.IsMap(m) {
		return r.badarg(ctx)
	}
	return boolTerm(h.MapFindPos(m, key) >= 0)
}

// registerBinaryBIFs wires byte_size/1 and bit_size/1. This VM restricts
// bitstring construction/matching to byte-aligned segments,
// so bit_size is always byte_size*8 in practice, but both are exposed for
// source compatibility with code that calls either.
func (r *Registry) registerBinaryBIFs() {
	r.registerBIF("erlang", "byte_size", 1, false, r.bifByteSize)
	r.registerBIF("erlang", "bit_size", 1, false, r.bifBitSize)
}

func (r *Registry) bifByteSize(ctx *process.Context, args []term.Term) term.Term {
	if !ctx.Heap.IsBinary(args[0]) {
		return r.badarg(ctx)
	}
	return term.FromSmallInt(int64(ctx.Heap.BinarySize(args[0])))
}

func (r *Registry) bifBitSize(ctx *process.Context, args []term.Term) term.Term {
	if !ctx.Heap.IsBinary(args[0]) {
		return r.badarg(ctx)
	}
	return term.FromSmallInt(int64(ctx.Heap.BinarySize(args[0])) * 8)
}
