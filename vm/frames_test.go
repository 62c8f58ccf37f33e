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
	"github.com/probeum/avm/term"
)

func TestOpAllocateThenDeallocateRestoresCP(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	ctx.CP = newCP(ctx.CurrentModule.Index, 42)

	require.NoError(t, g.opAllocate(ctx, 2, 0, 0, false))
	*ctx.Heap.YSlot(ctx.Heap.EStack, 0) = term.FromSmallInt(1)
	*ctx.Heap.YSlot(ctx.Heap.EStack, 1) = term.FromSmallInt(2)

	g.opDeallocate(ctx, 2)
	_, off, sentinel := decodeCP(ctx.CP)
	assert.False(t, sentinel)
	assert.EqualValues(t, 42, off)
}

func TestOpAllocateZeroClearsSlots(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	ctx.CP = sentinelCP()

	require.NoError(t, g.opAllocate(ctx, 3, 0, 0, true))
	for i := uint32(0); i < 3; i++ {
		assert.True(t, term.IsNil(*ctx.Heap.YSlot(ctx.Heap.EStack, i)))
	}
}

func TestOpTrimKeepsOnlyTrailingSlots(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	ctx.CP = newCP(ctx.CurrentModule.Index, 7)

	require.NoError(t, g.opAllocate(ctx, 4, 0, 0, false))
	*ctx.Heap.YSlot(ctx.Heap.EStack, 0) = term.FromSmallInt(10)
	*ctx.Heap.YSlot(ctx.Heap.EStack, 1) = term.FromSmallInt(20)
	*ctx.Heap.YSlot(ctx.Heap.EStack, 2) = term.FromSmallInt(30)
	*ctx.Heap.YSlot(ctx.Heap.EStack, 3) = term.FromSmallInt(40)

	g.opTrim(ctx, 2, 2)

	assert.Equal(t, int64(30), term.ToSmallInt(*ctx.Heap.YSlot(ctx.Heap.EStack, 0)))
	assert.Equal(t, int64(40), term.ToSmallInt(*ctx.Heap.YSlot(ctx.Heap.EStack, 1)))
	_, off, sentinel := decodeCP(ctx.Heap.Memory[ctx.Heap.EStack])
	assert.False(t, sentinel)
	assert.EqualValues(t, 7, off)
}

func TestOpCallSetCPThenReturnComesBack(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	g.byIndex[ctx.CurrentModule.Index] = ctx.CurrentModule

	g.opCallSetCP(ctx, 1, 99)
	assert.EqualValues(t, 11, ctx.IP)
	_, off, sentinel := decodeCP(ctx.CP)
	require.False(t, sentinel)
	assert.EqualValues(t, 99, off)

	res := g.opReturn(ctx)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 99, ctx.IP)
}

func TestOpReturnWithSentinelCPTerminatesNormally(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := ctxWithLabels()
	ctx.CP = sentinelCP()

	res := g.opReturn(ctx)
	require.Equal(t, StepTerminated, res.Kind)
	require.True(t, term.IsAtom(res.Reason))
	assert.Equal(t, atomtable.IDNormal, term.AtomID(res.Reason))
}
