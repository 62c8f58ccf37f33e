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

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/avmconfig"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/term"
)

func TestStepMakeFun2BuildsClosureCallableByCallFun(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels() // Labels: [0, 11, 22]
	modAtom := g.Atoms.Insert("funmod")
	ctx.CurrentModule.Atom = modAtom
	ctx.CurrentModule.Functions = []loader.FunctionEntry{
		{Label: 1, Arity: 0, NumFree: 0},
	}
	g.byAtom[modAtom] = ctx.CurrentModule
	g.byIndex[ctx.CurrentModule.Index] = ctx.CurrentModule

	res := g.stepMakeFun(ctx, loader.Instruction{
		Op:       loader.OpMakeFun2,
		Operands: []loader.Operand{{Kind: loader.KindLiteral, Value: 0}},
	}, 9)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 9, ctx.IP)
	require.True(t, ctx.Heap.IsFunction(ctx.XRegs[0]))
	assert.EqualValues(t, 0, ctx.Heap.ClosureArity(ctx.XRegs[0]))

	res = g.stepCallFun(ctx, 0, 20, 0, false)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 11, ctx.IP) // label 1 -> offset 11
}

func TestStepMakeFun2CapturesFreezeVarsFromLeadingRegisters(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	modAtom := g.Atoms.Insert("funmod2")
	ctx.CurrentModule.Atom = modAtom
	ctx.CurrentModule.Functions = []loader.FunctionEntry{
		{Label: 1, Arity: 1, NumFree: 1}, // one frozen var, zero visible args
	}
	g.byAtom[modAtom] = ctx.CurrentModule
	g.byIndex[ctx.CurrentModule.Index] = ctx.CurrentModule

	ctx.XRegs[0] = term.FromSmallInt(42)

	res := g.stepMakeFun(ctx, loader.Instruction{
		Op:       loader.OpMakeFun2,
		Operands: []loader.Operand{{Kind: loader.KindLiteral, Value: 0}},
	}, 9)
	require.Equal(t, StepContinue, res.Kind)
	fn := ctx.XRegs[0]
	require.True(t, ctx.Heap.IsFunction(fn))
	assert.EqualValues(t, 0, ctx.Heap.ClosureArity(fn))
	freeze := ctx.Heap.ClosureFreezeVars(fn)
	require.Len(t, freeze, 1)
	assert.Equal(t, int64(42), term.ToSmallInt(freeze[0]))
}

func TestStepMakeFun3CapturesExplicitRegisterList(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	modAtom := g.Atoms.Insert("funmod3")
	ctx.CurrentModule.Atom = modAtom
	ctx.CurrentModule.Functions = []loader.FunctionEntry{
		{Label: 1, Arity: 1, NumFree: 1},
	}
	g.byAtom[modAtom] = ctx.CurrentModule
	g.byIndex[ctx.CurrentModule.Index] = ctx.CurrentModule

	ctx.XRegs[2] = term.FromSmallInt(99)

	res := g.stepMakeFun(ctx, loader.Instruction{
		Op: loader.OpMakeFun3,
		Operands: []loader.Operand{
			{Kind: loader.KindLiteral, Value: 0},  // function index
			{Kind: loader.KindXReg, Reg: 1},       // destination x1
			{Kind: loader.KindLiteral, Value: 1},  // group count
			{Kind: loader.KindXReg, Reg: 2},       // frozen register
		},
	}, 9)
	require.Equal(t, StepContinue, res.Kind)
	fn := ctx.XRegs[1]
	require.True(t, ctx.Heap.IsFunction(fn))
	freeze := ctx.Heap.ClosureFreezeVars(fn)
	require.Len(t, freeze, 1)
	assert.Equal(t, int64(99), term.ToSmallInt(freeze[0]))
}

func TestStepMakeFunUnknownIndexRaisesBadfun(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()

	res := g.stepMakeFun(ctx, loader.Instruction{
		Op:       loader.OpMakeFun2,
		Operands: []loader.Operand{{Kind: loader.KindLiteral, Value: 0}},
	}, 9)
	require.Equal(t, StepTerminated, res.Kind)
	require.True(t, term.IsAtom(res.Reason))
	assert.Equal(t, atomtable.IDBadfun, term.AtomID(res.Reason))
}
