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
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

func spawnTestCtx(g *Global) *process.Context {
	pid := g.Sched.AllocPid()
	ctx := process.New(pid, 4096)
	g.Sched.Spawn(ctx)
	return ctx
}

func TestStepMessagingSendDeliversAndWakesReceiver(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	sender := spawnTestCtx(g)
	receiver := spawnTestCtx(g)
	g.Sched.Block(receiver.Pid)

	sender.XRegs[0] = receiver.Pid
	sender.XRegs[1] = term.FromSmallInt(42)

	res := g.stepMessaging(sender, loader.Instruction{Op: loader.OpSend}, 5)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 5, sender.IP)
	assert.Equal(t, term.FromSmallInt(42), sender.XRegs[0])

	assert.False(t, g.Sched.IsWaiting(receiver.Pid))
	msg, ok := receiver.Mailbox.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(42), term.ToSmallInt(msg))
}

func TestStepMessagingLoopRecBranchesToFailLabelWhenEmpty(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := spawnTestCtx(g)
	ctx.CurrentModule = &loader.Module{Labels: []uint32{0, 99}}

	res := g.stepMessaging(ctx, loader.Instruction{
		Op: loader.OpLoopRec,
		Operands: []loader.Operand{
			{Kind: loader.KindLabel, Value: 1},
			{Kind: loader.KindXReg, Reg: 0},
		},
	}, 7)
	require.Equal(t, StepContinue, res.Kind)
	assert.EqualValues(t, 99, ctx.IP)
}

func TestStepMessagingWaitTimeoutArmsTimerThatExpiresAndWakes(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := spawnTestCtx(g)
	ctx.CurrentModule = &loader.Module{Labels: []uint32{0, 123}}

	res := g.stepMessaging(ctx, loader.Instruction{
		Op: loader.OpWaitTimeout,
		Operands: []loader.Operand{
			{Kind: loader.KindLabel, Value: 1},
			{Kind: loader.KindLiteral, Value: 10},
		},
	}, 7)
	require.Equal(t, StepYield, res.Kind)
	assert.EqualValues(t, 123, ctx.IP)
	assert.True(t, g.Sched.IsWaiting(ctx.Pid))
	assert.True(t, ctx.Flags.Has(process.FlagWaitingTimeout))

	for i := 0; i < 10; i++ {
		g.Tick()
	}
	g.Sched.ExpireUpTo(g.Clock())

	assert.False(t, g.Sched.IsWaiting(ctx.Pid))
	assert.True(t, ctx.Flags.Has(process.FlagWaitingTimeoutExpired))
}

func TestStepMessagingWaitTimeoutInfinityArmsNoTimer(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	ctx := spawnTestCtx(g)
	ctx.CurrentModule = &loader.Module{
		Labels:            []uint32{0, 1},
		LocalAtomToGlobal: []uint32{0, atomtable.IDInfinity},
	}

	res := g.stepMessaging(ctx, loader.Instruction{
		Op: loader.OpWaitTimeout,
		Operands: []loader.Operand{
			{Kind: loader.KindLabel, Value: 1},
			{Kind: loader.KindAtom, Value: 1},
		},
	}, 7)
	require.Equal(t, StepYield, res.Kind)
	_, ok := g.Sched.NextDeadline()
	assert.False(t, ok)
}
