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

package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/avm/avmconfig"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/term"
)

func TestStepAggregatePutTupleThenPutFillsElementsInOrder(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()

	res := g.stepAggregate(ctx, loader.Instruction{
		Op: loader.OpPutTuple,
		Operands: []loader.Operand{
			{Kind: loader.KindLiteral, Value: 2},
			{Kind: loader.KindXReg, Reg: 0},
		},
	}, 3)
	require.Equal(t, StepContinue, res.Kind)

	res = g.stepAggregate(ctx, loader.Instruction{
		Op:       loader.OpPut,
		Operands: []loader.Operand{{Kind: loader.KindLiteral, Value: 10}},
	}, 4)
	require.Equal(t, StepContinue, res.Kind)
	res = g.stepAggregate(ctx, loader.Instruction{
		Op:       loader.OpPut,
		Operands: []loader.Operand{{Kind: loader.KindLiteral, Value: 20}},
	}, 5)
	require.Equal(t, StepContinue, res.Kind)

	tup := ctx.XRegs[0]
	require.True(t, ctx.Heap.IsTuple(tup))
	assert.Equal(t, int64(10), term.ToSmallInt(ctx.Heap.TupleElement(tup, 0)))
	assert.Equal(t, int64(20), term.ToSmallInt(ctx.Heap.TupleElement(tup, 1)))
}

func TestStepAggregatePutListConsesHeadOntoTail(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()

	res := g.stepAggregate(ctx, loader.Instruction{
		Op: loader.OpPutList,
		Operands: []loader.Operand{
			{Kind: loader.KindLiteral, Value: 1},
			{Kind: loader.KindAtom, Value: 0},
			{Kind: loader.KindXReg, Reg: 0},
		},
	}, 3)
	require.Equal(t, StepContinue, res.Kind)

	lst := ctx.XRegs[0]
	require.True(t, term.IsNonemptyList(lst))
	assert.Equal(t, int64(1), term.ToSmallInt(ctx.Heap.Head(lst)))
	assert.True(t, term.IsNil(ctx.Heap.Tail(lst)))
}

func TestStepAggregateGetTupleElementReadsByIndex(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()

	tup := ctx.Heap.NewTuple(2)
	ctx.Heap.PutTupleElement(tup, 0, term.FromSmallInt(7))
	ctx.Heap.PutTupleElement(tup, 1, term.FromSmallInt(8))
	ctx.XRegs[0] = tup

	res := g.stepAggregate(ctx, loader.Instruction{
		Op: loader.OpGetTupleElement,
		Operands: []loader.Operand{
			{Kind: loader.KindXReg, Reg: 0},
			{Kind: loader.KindLiteral, Value: 1},
			{Kind: loader.KindXReg, Reg: 1},
		},
	}, 3)
	require.Equal(t, StepContinue, res.Kind)
	assert.Equal(t, int64(8), term.ToSmallInt(ctx.XRegs[1]))
}

func TestStepAggregatePutMapAssocAndGetMapElements(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()

	ctx.XRegs[5] = ctx.Heap.NewMap(0) // empty map to assoc onto

	res := g.stepAggregate(ctx, loader.Instruction{
		Op: loader.OpPutMapAssoc,
		Operands: []loader.Operand{
			{Kind: loader.KindLabel, Value: 1}, // fail label, unused on the build path
			{Kind: loader.KindXReg, Reg: 5},     // src map
			{Kind: loader.KindXReg, Reg: 0},     // dst
			{},
			{Kind: loader.KindLiteral, Value: 2}, // group count (2 pairs)
			{Kind: loader.KindLiteral, Value: 1}, // key
			{Kind: loader.KindLiteral, Value: 100},
			{Kind: loader.KindLiteral, Value: 2},
			{Kind: loader.KindLiteral, Value: 200},
		},
	}, 9)
	require.Equal(t, StepContinue, res.Kind)
	m := ctx.XRegs[0]
	require.True(t, ctx.Heap.IsMap(m))

	res = g.stepAggregate(ctx, loader.Instruction{
		Op: loader.OpGetMapElements,
		Operands: []loader.Operand{
			{Kind: loader.KindLabel, Value: 1},
			{Kind: loader.KindXReg, Reg: 0},
			{},
			{Kind: loader.KindLiteral, Value: 1},
			{Kind: loader.KindXReg, Reg: 1},
			{Kind: loader.KindLiteral, Value: 2},
			{Kind: loader.KindXReg, Reg: 2},
		},
	}, 16)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 16, ctx.IP)
	assert.Equal(t, int64(100), term.ToSmallInt(ctx.XRegs[1]))
	assert.Equal(t, int64(200), term.ToSmallInt(ctx.XRegs[2]))
}

func TestStepAggregateGetMapElementsBranchesOnMissingKey(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()

	ctx.XRegs[5] = ctx.Heap.NewMap(0)

	res := g.stepAggregate(ctx, loader.Instruction{
		Op: loader.OpPutMapAssoc,
		Operands: []loader.Operand{
			{Kind: loader.KindLabel, Value: 1},
			{Kind: loader.KindXReg, Reg: 5},
			{Kind: loader.KindXReg, Reg: 0},
			{},
			{Kind: loader.KindLiteral, Value: 1},
			{Kind: loader.KindLiteral, Value: 1},
			{Kind: loader.KindLiteral, Value: 100},
		},
	}, 9)
	require.Equal(t, StepContinue, res.Kind)

	res = g.stepAggregate(ctx, loader.Instruction{
		Op: loader.OpGetMapElements,
		Operands: []loader.Operand{
			{Kind: loader.KindLabel, Value: 1}, // fail label -> 11
			{Kind: loader.KindXReg, Reg: 0},
			{},
			{Kind: loader.KindLiteral, Value: 999}, // absent key
			{Kind: loader.KindXReg, Reg: 1},
		},
	}, 16)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 11, ctx.IP)
}
