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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

func newTestCtx() (*atomtable.Table, *process.Context) {
	atoms := atomtable.New()
	ctx := process.New(term.FromPid(1), 4096)
	return atoms, ctx
}

func call(t *testing.T, r *Registry, module, function string, arity int, ctx *process.Context, args []term.Term) term.Term {
	t.Helper()
	modID, ok := r.atoms.Lookup(module)
	require.True(t, ok)
	funID, ok := r.atoms.Lookup(function)
	require.True(t, ok)
	if fn, _, ok := r.LookupBIF(modID, funID, arity); ok {
		return fn.(Func)(ctx, args)
	}
	fn, ok := r.LookupNIF(modID, funID, arity)
	require.True(t, ok, "no BIF or NIF registered for %s:%s/%d", module, function, arity)
	return fn.(Func)(ctx, args)
}

func TestArithmeticSmallAndBig(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)

	sum := call(t, r, "erlang", "+", 2, ctx, []term.Term{term.FromSmallInt(2), term.FromSmallInt(3)})
	assert.Equal(t, int64(5), term.ToSmallInt(sum))

	big := ctx.Heap.NewBigFromInt64(1 << 62)
	res := call(t, r, "erlang", "+", 2, ctx, []term.Term{big, term.FromSmallInt(1)})
	assert.True(t, ctx.Heap.IsBigInt(res))
}

func TestDivByZeroRaisesBadarith(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)

	res := call(t, r, "erlang", "div", 2, ctx, []term.Term{term.FromSmallInt(4), term.FromSmallInt(0)})
	assert.Equal(t, term.Invalid, res)
	assert.Equal(t, atomtable.IDError, term.AtomID(ctx.XRegs[0]))
}

func TestComparisonExactVsStructural(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)

	intTerm := term.FromSmallInt(2)
	floatTerm := ctx.Heap.NewFloat(2.0)

	eq := call(t, r, "erlang", "==", 2, ctx, []term.Term{intTerm, floatTerm})
	assert.Equal(t, atomtable.IDTrue, term.AtomID(eq))

	exact := call(t, r, "erlang", "=:=", 2, ctx, []term.Term{intTerm, floatTerm})
	assert.Equal(t, atomtable.IDFalse, term.AtomID(exact))
}

func TestHdTlBadarg(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)

	res := call(t, r, "erlang", "hd", 1, ctx, []term.Term{term.Nil})
	assert.Equal(t, term.Invalid, res)
	assert.Equal(t, atomtable.IDBadarg, term.AtomID(ctx.XRegs[1]))

	list := ctx.Heap.Cons(term.FromSmallInt(1), term.Nil)
	assert.Equal(t, int64(1), term.ToSmallInt(call(t, r, "erlang", "hd", 1, ctx, []term.Term{list})))
}

func TestElementAndSetElement(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)
	h := ctx.Heap

	tup := h.NewTuple(2)
	h.PutTupleElement(tup, 0, term.FromSmallInt(10))
	h.PutTupleElement(tup, 1, term.FromSmallInt(20))

	el := call(t, r, "erlang", "element", 2, ctx, []term.Term{term.FromSmallInt(1), tup})
	assert.Equal(t, int64(10), term.ToSmallInt(el))

	updated := call(t, r, "erlang", "setelement", 3, ctx, []term.Term{term.FromSmallInt(1), tup, term.FromSmallInt(99)})
	assert.Equal(t, int64(99), term.ToSmallInt(h.TupleElement(updated, 0)))
	assert.Equal(t, int64(10), term.ToSmallInt(h.TupleElement(tup, 0))) // original untouched
}

func TestMapGetMissingKeyBadarg(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)
	h := ctx.Heap

	m := h.PutMapAssoc(h.NewMap(0), []term.Term{term.FromAtom(100), term.FromSmallInt(1)})
	res := call(t, r, "erlang", "map_get", 2, ctx, []term.Term{term.FromAtom(200), m})
	assert.Equal(t, term.Invalid, res)
}

type fakeRuntime struct {
	spawnedPid term.Term
	alive      map[term.Term]bool
	linked     map[term.Term]bool
	sent       []term.Term
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{alive: make(map[term.Term]bool), linked: make(map[term.Term]bool)}
}

func (f *fakeRuntime) Spawn(ctx *process.Context, module, function term.Term, args []term.Term, link, monitor bool) (term.Term, uint64, bool) {
	f.spawnedPid = term.FromPid(99)
	f.alive[f.spawnedPid] = true
	return f.spawnedPid, 7, true
}
func (f *fakeRuntime) Link(from, to term.Term) bool    { f.linked[to] = true; return true }
func (f *fakeRuntime) Unlink(from, to term.Term)       { delete(f.linked, to) }
func (f *fakeRuntime) Monitor(from, to term.Term) (uint64, bool) { return 5, true }
func (f *fakeRuntime) Demonitor(refTicks uint64)       {}
func (f *fakeRuntime) Send(from *process.Context, to, msg term.Term) { f.sent = append(f.sent, msg) }
func (f *fakeRuntime) IsAlive(pid term.Term) bool      { return f.alive[pid] }
func (f *fakeRuntime) Exit(ctx *process.Context, target, reason term.Term) {}

func TestSpawnMonitorReturnsPidAndRef(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)
	rt := newFakeRuntime()
	r.BindRuntime(rt)

	module := term.FromAtom(atoms.Insert("mymod"))
	function := term.FromAtom(atoms.Insert("myfun"))
	res := call(t, r, "erlang", "spawn_monitor", 3, ctx, []term.Term{module, function, term.Nil})

	require.True(t, ctx.Heap.IsTuple(res))
	pid := ctx.Heap.TupleElement(res, 0)
	assert.Equal(t, rt.spawnedPid, pid)
	assert.True(t, ctx.Heap.IsRef(ctx.Heap.TupleElement(res, 1)))
}

func TestSendDelegatesToRuntime(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)
	rt := newFakeRuntime()
	r.BindRuntime(rt)

	to := term.FromPid(5)
	msg := term.FromSmallInt(42)
	res := call(t, r, "erlang", "send", 2, ctx, []term.Term{to, msg})
	assert.Equal(t, msg, res)
	require.Len(t, rt.sent, 1)
	assert.Equal(t, msg, rt.sent[0])
}

func TestIsProcessAliveDelegates(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)
	rt := newFakeRuntime()
	r.BindRuntime(rt)

	pid := term.FromPid(123)
	assert.Equal(t, atomtable.IDFalse, term.AtomID(call(t, r, "erlang", "is_process_alive", 1, ctx, []term.Term{pid})))
	rt.alive[pid] = true
	assert.Equal(t, atomtable.IDTrue, term.AtomID(call(t, r, "erlang", "is_process_alive", 1, ctx, []term.Term{pid})))
}

func TestProcessFlagTrapExit(t *testing.T) {
	atoms, ctx := newTestCtx()
	r := New(atoms)

	old := call(t, r, "erlang", "process_flag", 2, ctx, []term.Term{
		term.FromAtom(atoms.Insert("trap_exit")), term.FromAtom(atomtable.IDTrue),
	})
	assert.Equal(t, atomtable.IDFalse, term.AtomID(old))
	assert.True(t, ctx.Flags.Has(process.FlagTrapExit))
}
