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
	"math/big"

	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// registerArithBIFs wires erlang's two-operand arithmetic operators. All
// five are GC-BIFs: a boxed-big-integer result may need to allocate.
func (r *Registry) registerArithBIFs() {
	r.registerBIF("erlang", "+", 2, true, r.bifAdd)
	r.registerBIF("erlang", "-", 2, true, r.bifSub)
	r.registerBIF("erlang", "*", 2, true, r.bifMul)
	r.registerBIF("erlang", "div", 2, true, r.bifIntDiv)
	r.registerBIF("erlang", "rem", 2, true, r.bifRem)
}

func isNumber(h *heap.Heap, t term.Term) bool {
	if term.IsSmallInt(t) {
		return true
	}
	return h.IsBigInt(t) || h.IsFloat(t)
}

func asFloat(h *heap.Heap, t term.Term) float64 {
	if h.IsFloat(t) {
		return h.FloatValue(t)
	}
	if term.IsSmallInt(t) {
		return float64(term.ToSmallInt(t))
	}
	f := new(big.Float).SetInt(h.BigIntValue(t))
	v, _ := f.Float64()
	return v
}

// bigResult demotes v to an immediate small int when it fits, else allocates
// a boxed big integer on h.
func bigResult(h *heap.Heap, v *big.Int) term.Term {
	if v.IsInt64() && term.FitsSmall(v.Int64()) {
		return term.FromSmallInt(v.Int64())
	}
	return h.NewBigInt(v)
}

func (r *Registry) binaryArith(ctx *process.Context, args []term.Term, intOp func(*big.Int, *big.Int, *big.Int) *big.Int, floatOp func(a, b float64) float64) term.Term {
	h := ctx.Heap
	a, b := args[0], args[1]
	if !isNumber(h, a) || !isNumber(h, b) {
		return r.badarith(ctx)
	}
	if h.IsFloat(a) || h.IsFloat(b) {
		return h.NewFloat(floatOp(asFloat(h, a), asFloat(h, b)))
	}
	av, bv := h.IntValue(a), h.IntValue(b)
	out := new(big.Int)
	intOp(out, av, bv)
	return bigResult(h, out)
}

func (r *Registry) bifAdd(ctx *process.Context, args []term.Term) term.Term {
	return r.binaryArith(ctx, args,
		func(out, a, b *big.Int) *big.Int { return out.Add(a, b) },
		func(a, b float64) float64 { return a + b })
}

func (r *Registry) bifSub(ctx *process.Context, args []term.Term) term.Term {
	return r.binaryArith(ctx, args,
		func(out, a, b *big.Int) *big.Int { return out.Sub(a, b) },
		func(a, b float64) float64 { return a - b })
}

func (r *Registry) bifMul(ctx *process.Context, args []term.Term) term.Term {
	return r.binaryArith(ctx, args,
		func(out, a, b *big.Int) *big.Int { return out.Mul(a, b) },
		func(a, b float64) float64 { return a * b })
}

// bifIntDiv implements erlang:'div'/2: truncating integer division, integer
// operands only (floats raise badarith, matching real Erlang).
func (r *Registry) bifIntDiv(ctx *process.Context, args []term.Term) term.Term {
	h := ctx.Heap
	a, b := args[0], args[1]
	if h.IsFloat(a) || h.IsFloat(b) || !isNumber(h, a) || !isNumber(h, b) {
		return r.badarith(ctx)
	}
	bv := h.IntValue(b)
	if bv.Sign() == 0 {
		return r.badarith(ctx)
	}
	out := new(big.Int).Quo(h.IntValue(a), bv)
	return bigResult(h, out)
}

// bifRem implements erlang:'rem'/2: remainder with the sign of the dividend.
func (r *Registry) bifRem(ctx *process.Context, args []term.Term) term.Term {
	h := ctx.Heap
	a, b := args[0], args[1]
	if h.IsFloat(a) || h.IsFloat(b) || !isNumber(h, a) || !isNumber(h, b) {
		return r.badarith(ctx)
	}
	bv := h.IntValue(b)
	if bv.Sign() == 0 {
		return r.badarith(ctx)
	}
	out := new(big.Int).Rem(h.IntValue(a), bv)
	return bigResult(h, out)
}
