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

// TestStepMoveCopiesRegister drives Step's own opcode-decode path (not a
// hand-built loader.Instruction), to exercise DecodeInstruction's inline
// operand encoding alongside the dispatch switch itself: x0 holds the
// move's source, x1 its destination.
func TestStepMoveCopiesRegister(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	ctx.CurrentModule.Code = []byte{
		byte(loader.OpLabel), 0x10, // label(1) -> offset 2
		byte(loader.OpMove), 0x03, 0x13, // move x0, x1 (inline XReg 0 -> XReg 1)
		byte(loader.OpReturn),
	}
	ctx.CurrentModule.Labels = []uint32{0, 2}
	ctx.IP = 2
	ctx.XRegs[0] = term.FromSmallInt(5)

	res := g.Step(ctx)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 5, ctx.IP)
	assert.Equal(t, int64(5), term.ToSmallInt(ctx.XRegs[1]))
}

func TestStepJumpBranchesToLabel(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels() // Labels: [0, 11, 22]
	ctx.CurrentModule.Code = []byte{
		byte(loader.OpLabel), 0x10, // label(1) -> offset 2
		byte(loader.OpJump), 0x25, // jump to label 2 (inline KindLabel, value 2)
	}
	ctx.IP = 2

	res := g.Step(ctx)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 22, ctx.IP)
}

// erlangPlusModule builds a module whose single import is erlang:+/2,
// resolved against the real arithmetic BIF the same way ResolveAtLoad
// does at real load time.
func erlangPlusModule(g *Global) *loader.Module {
	erlang := g.Atoms.Insert("erlang")
	plus := g.Atoms.Insert("+")
	m := &loader.Module{
		Index:  1,
		Atom:   g.Atoms.Insert("arith"),
		Labels: []uint32{0, 11},
		Imports: []loader.Import{
			{ModuleAtom: erlang, FunctionAtom: plus, Arity: 2},
		},
	}
	m.ResolveAtLoad(g.Natives)
	return m
}

func TestStepCallExtInvokesBIFAndStoresResult(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	m := erlangPlusModule(g)
	ctx.CurrentModule = m
	g.byIndex[m.Index] = m

	ctx.XRegs[0] = term.FromSmallInt(2)
	ctx.XRegs[1] = term.FromSmallInt(3)

	res := g.stepCallExt(ctx, loader.Instruction{
		Op: loader.OpCallExt,
		Operands: []loader.Operand{
			{Kind: loader.KindLiteral, Value: 2}, // arity
			{Kind: loader.KindLiteral, Value: 0}, // import index
		},
	}, 9)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 9, ctx.IP)
	assert.Equal(t, int64(5), term.ToSmallInt(ctx.XRegs[0]))
}

func TestStepCallExtUndefImportRaisesUndef(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	m := &loader.Module{
		Index:  1,
		Atom:   g.Atoms.Insert("nothing"),
		Labels: []uint32{0, 11},
		Imports: []loader.Import{
			{ModuleAtom: g.Atoms.Insert("missing_mod"), FunctionAtom: g.Atoms.Insert("missing_fun"), Arity: 0},
		},
	}
	ctx.CurrentModule = m

	res := g.stepCallExt(ctx, loader.Instruction{
		Op: loader.OpCallExt,
		Operands: []loader.Operand{
			{Kind: loader.KindLiteral, Value: 0},
			{Kind: loader.KindLiteral, Value: 0},
		},
	}, 9)
	require.Equal(t, StepTerminated, res.Kind)
}

func TestStepApplyDispatchesToExportedFunction(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	target := registerBareModule(g, "applied", "go")

	ctx.XRegs[0] = term.FromAtom(target.Atom)
	ctx.XRegs[1] = term.FromAtom(g.Atoms.Insert("go"))
	ctx.XRegs[2] = term.Nil

	res := g.stepApply(ctx, 0, 9, 0, false)
	require.Equal(t, StepContinue, res.Kind)
	assert.Equal(t, target, ctx.CurrentModule)
}

func TestStepApplyUndefExportRaises(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	target := registerBareModule(g, "applied2", "go")

	ctx.XRegs[0] = term.FromAtom(target.Atom)
	ctx.XRegs[1] = term.FromAtom(g.Atoms.Insert("missing"))
	ctx.XRegs[2] = term.Nil

	res := g.stepApply(ctx, 0, 9, 0, false)
	require.Equal(t, StepTerminated, res.Kind) // no catch frame on the stack: raise terminates
	require.True(t, term.IsAtom(res.Reason))
	assert.Equal(t, atomtable.IDUndef, term.AtomID(res.Reason))
}
