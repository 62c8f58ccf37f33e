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
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

func spawnBareProcess(g *Global) *process.Context {
	pid := g.Sched.AllocPid()
	ctx := process.New(pid, 4096)
	g.Sched.Spawn(ctx)
	return ctx
}

func TestLinkIsSymmetricAndCascadesOnAbnormalExit(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	a := spawnBareProcess(g)
	b := spawnBareProcess(g)

	require.True(t, g.Link(a.Pid, b.Pid))
	assert.Len(t, a.Monitors, 1)
	assert.Len(t, b.Monitors, 1)

	g.Sched.Terminate(a.Pid, term.FromAtom(atomtable.IDBadarg))
	assert.False(t, g.IsAlive(a.Pid))
	assert.False(t, g.IsAlive(b.Pid)) // abnormal exit cascades through the link
}

func TestUnlinkStopsCascade(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	a := spawnBareProcess(g)
	b := spawnBareProcess(g)
	require.True(t, g.Link(a.Pid, b.Pid))

	g.Unlink(a.Pid, b.Pid)
	assert.Empty(t, a.Monitors)
	assert.Empty(t, b.Monitors)

	g.Sched.Terminate(a.Pid, term.FromAtom(atomtable.IDBadarg))
	assert.True(t, g.IsAlive(b.Pid))
}

func TestMonitorDeliversDownOnTermination(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	watcher := spawnBareProcess(g)
	target := spawnBareProcess(g)

	ref, ok := g.Monitor(watcher.Pid, target.Pid)
	require.True(t, ok)
	require.NotZero(t, ref)

	g.Sched.Terminate(target.Pid, term.FromAtom(atomtable.IDNormal))

	msg, ok := watcher.Mailbox.Peek()
	require.True(t, ok)
	require.True(t, watcher.Heap.IsTuple(msg))
	assert.Equal(t, atomtable.IDDOWN, term.AtomID(watcher.Heap.TupleElement(msg, 0)))
}

func TestDemonitorPreventsLaterDown(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	watcher := spawnBareProcess(g)
	target := spawnBareProcess(g)

	ref, ok := g.Monitor(watcher.Pid, target.Pid)
	require.True(t, ok)

	g.Demonitor(ref)
	assert.Empty(t, target.Monitors)

	g.Sched.Terminate(target.Pid, term.FromAtom(atomtable.IDNormal))
	_, ok = watcher.Mailbox.Peek()
	assert.False(t, ok)
}

func TestSendEnqueuesIntoRecipientMailbox(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	from := spawnBareProcess(g)
	to := spawnBareProcess(g)

	g.Send(from, to.Pid, term.FromSmallInt(11))

	msg, ok := to.Mailbox.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(11), term.ToSmallInt(msg))
}

func TestExitWithNormalReasonLeavesTargetAlive(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	from := spawnBareProcess(g)
	target := spawnBareProcess(g)

	g.Exit(from, target.Pid, term.FromAtom(atomtable.IDNormal))
	assert.True(t, g.IsAlive(target.Pid))
}

func TestExitWithAbnormalReasonKillsNonTrappingTarget(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	from := spawnBareProcess(g)
	target := spawnBareProcess(g)

	g.Exit(from, target.Pid, term.FromAtom(atomtable.IDBadarg))
	assert.False(t, g.IsAlive(target.Pid))
}

func TestSpawnPlacesArgsAndLinksWhenRequested(t *testing.T) {
	g := NewGlobal(avmconfig.Default())
	registerBareModule(g, "spawnee", "go")
	parent := spawnBareProcess(g)

	modAtom := term.FromAtom(g.Atoms.Insert("spawnee"))
	funAtom := term.FromAtom(g.Atoms.Insert("go"))
	pid, _, ok := g.Spawn(parent, modAtom, funAtom, nil, true, false)
	require.True(t, ok)
	assert.True(t, g.IsAlive(pid))

	child, found := g.Sched.Lookup(pid)
	require.True(t, found)
	assert.Len(t, child.Monitors, 1)
	assert.Len(t, parent.Monitors, 1)
}
