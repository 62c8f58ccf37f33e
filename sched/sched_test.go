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

package sched

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

func newCtx(s *Scheduler) *process.Context {
	pid := s.AllocPid()
	c := process.New(pid, 4096)
	s.Spawn(c)
	return c
}

func TestRoundRobinReadyOrder(t *testing.T) {
	s := New(atomtable.New(), 100)
	a := newCtx(s)
	b := newCtx(s)

	got, ok := s.NextReady()
	require.True(t, ok)
	assert.Equal(t, a.Pid, got.Pid)

	s.ReschedulePrevious(a.Pid)
	got, ok = s.NextReady()
	require.True(t, ok)
	assert.Equal(t, b.Pid, got.Pid)

	got, ok = s.NextReady()
	require.True(t, ok)
	assert.Equal(t, a.Pid, got.Pid)
}

func TestBlockAndWake(t *testing.T) {
	s := New(atomtable.New(), 100)
	a := newCtx(s)
	_, _ = s.NextReady()

	s.Block(a.Pid)
	assert.True(t, s.IsWaiting(a.Pid))
	assert.Equal(t, 0, s.ReadyLen())

	s.Wake(a.Pid)
	assert.False(t, s.IsWaiting(a.Pid))
	assert.Equal(t, 1, s.ReadyLen())
}

func TestTimerFiresAndSetsExpiredFlag(t *testing.T) {
	s := New(atomtable.New(), 100)
	a := newCtx(s)
	_, _ = s.NextReady()
	s.Block(a.Pid)

	now := uint256.NewInt(0)
	timeout := uint256.NewInt(50)
	s.ArmTimeout(a.Pid, now, timeout)

	fired := s.ExpireUpTo(uint256.NewInt(49))
	assert.Empty(t, fired)
	assert.True(t, s.IsWaiting(a.Pid))

	fired = s.ExpireUpTo(uint256.NewInt(50))
	require.Len(t, fired, 1)
	assert.Equal(t, a.Pid, fired[0])
	assert.False(t, s.IsWaiting(a.Pid))
	assert.True(t, a.Flags.Has(process.FlagWaitingTimeoutExpired))
}

func TestWakeBeforeTimerCancelsIt(t *testing.T) {
	s := New(atomtable.New(), 100)
	a := newCtx(s)
	_, _ = s.NextReady()
	s.Block(a.Pid)
	s.ArmTimeout(a.Pid, uint256.NewInt(0), uint256.NewInt(50))

	s.Wake(a.Pid)
	_, ok := s.NextDeadline()
	assert.False(t, ok)
}

func TestSendDeliversAcrossHeapsAndWakes(t *testing.T) {
	s := New(atomtable.New(), 100)
	a := newCtx(s)
	b := newCtx(s)
	_, _ = s.NextReady() // a running
	s.Block(b.Pid)

	s.Send(a.Heap, b.Pid, term.FromSmallInt(7))

	assert.False(t, s.IsWaiting(b.Pid))
	v, ok := b.Mailbox.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(7), term.ToSmallInt(v))
}

func TestTerminateDeliversDownToMonitor(t *testing.T) {
	s := New(atomtable.New(), 100)
	victim := newCtx(s)
	watcher := newCtx(s)
	victim.AddMonitor(watcher.Pid, 7, false)

	reason := term.FromAtom(atomtable.IDBadarg)
	s.Terminate(victim.Pid, reason)

	_, alive := s.Lookup(victim.Pid)
	assert.False(t, alive)

	msg, ok := watcher.Mailbox.Peek()
	require.True(t, ok)
	assert.True(t, watcher.Heap.IsTuple(msg))
}

func TestTerminateCascadesThroughNonTrappingLink(t *testing.T) {
	s := New(atomtable.New(), 100)
	victim := newCtx(s)
	linked := newCtx(s)
	victim.AddMonitor(linked.Pid, 0, true)

	s.Terminate(victim.Pid, term.FromAtom(atomtable.IDBadarg))

	_, aliveVictim := s.Lookup(victim.Pid)
	_, aliveLinked := s.Lookup(linked.Pid)
	assert.False(t, aliveVictim)
	assert.False(t, aliveLinked)
}

func TestTerminateDeliversExitToTrappingLink(t *testing.T) {
	s := New(atomtable.New(), 100)
	victim := newCtx(s)
	linked := newCtx(s)
	linked.Flags.Set(process.FlagTrapExit)
	victim.AddMonitor(linked.Pid, 0, true)

	s.Terminate(victim.Pid, term.FromAtom(atomtable.IDBadarg))

	_, aliveLinked := s.Lookup(linked.Pid)
	assert.True(t, aliveLinked)
	msg, ok := linked.Mailbox.Peek()
	require.True(t, ok)
	assert.True(t, linked.Heap.IsTuple(msg))
}

func TestTerminateWithNormalReasonDoesNotKillNonTrappingLink(t *testing.T) {
	s := New(atomtable.New(), 100)
	victim := newCtx(s)
	linked := newCtx(s)
	victim.AddMonitor(linked.Pid, 0, true)

	s.Terminate(victim.Pid, term.FromAtom(atomtable.IDNormal))

	_, aliveLinked := s.Lookup(linked.Pid)
	assert.True(t, aliveLinked)
	assert.True(t, linked.Mailbox.Empty())
}
