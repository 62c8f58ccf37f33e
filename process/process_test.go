package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/term"
)

func TestMailboxFIFOOrdering(t *testing.T) {
	var mb Mailbox
	mb.Enqueue(term.FromSmallInt(1))
	mb.Enqueue(term.FromSmallInt(2))
	mb.Enqueue(term.FromSmallInt(3))

	var seen []int64
	for !mb.Empty() {
		v, ok := mb.Peek()
		require.True(t, ok)
		seen = append(seen, term.ToSmallInt(v))
		mb.RemoveCurrent()
	}
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestMailboxSaveBufferPreservesSkippedMessage(t *testing.T) {
	var mb Mailbox
	mb.Enqueue(term.FromSmallInt(1))
	mb.Enqueue(term.FromSmallInt(2))

	v, ok := mb.Peek()
	require.True(t, ok)
	require.Equal(t, int64(1), term.ToSmallInt(v))
	mb.SkipToSave() // m1 doesn't match this clause

	v, ok = mb.Peek()
	require.True(t, ok)
	require.Equal(t, int64(2), term.ToSmallInt(v))
	mb.RemoveCurrent() // m2 matched

	v, ok = mb.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(1), term.ToSmallInt(v))
}

func TestMailboxTimeoutRestoresWithoutDropping(t *testing.T) {
	var mb Mailbox
	mb.Enqueue(term.FromSmallInt(1))
	mb.SkipToSave()
	assert.True(t, mb.Empty())
	mb.Timeout()
	v, ok := mb.Peek()
	require.True(t, ok)
	assert.Equal(t, int64(1), term.ToSmallInt(v))
}

func TestDictionaryPutGetErase(t *testing.T) {
	h := heap.New(4096)
	c := New(term.FromPid(1), 4096)

	k := term.FromAtom(100)
	old := c.Put(h, k, term.FromSmallInt(7))
	assert.True(t, term.IsNil(old))

	old = c.Put(h, k, term.FromSmallInt(8))
	assert.Equal(t, int64(7), term.ToSmallInt(old))

	v, ok := c.Get(h, k)
	require.True(t, ok)
	assert.Equal(t, int64(8), term.ToSmallInt(v))

	erased := c.Erase(h, k)
	assert.Equal(t, int64(8), term.ToSmallInt(erased))
	_, ok = c.Get(h, k)
	assert.False(t, ok)
}

func TestMonitorAddAndRemove(t *testing.T) {
	c := New(term.FromPid(1), 4096)
	peer := term.FromPid(2)
	c.AddMonitor(peer, 42, false)
	c.AddMonitor(peer, 0, true)
	require.Len(t, c.Monitors, 2)

	c.RemoveMonitor(42)
	require.Len(t, c.Monitors, 1)
	assert.True(t, c.Monitors[0].IsLink)

	c.RemoveLink(peer)
	assert.Len(t, c.Monitors, 0)
}

func TestContextRootsCoverXRegsMailboxDictionaryAndBuild(t *testing.T) {
	c := New(term.FromPid(1), 4096)
	c.XRegs[0] = term.FromSmallInt(1)
	c.Mailbox.Enqueue(term.FromSmallInt(2))
	c.Dictionary = append(c.Dictionary, DictEntry{Key: term.FromAtom(1), Val: term.FromSmallInt(3)})
	c.Heap.BitstringBuild = term.FromSmallInt(4)

	roots := c.Roots(1)
	// 1 x-reg + 1 mailbox message + 2 dictionary slots + 1 build root.
	assert.Len(t, roots, 5)
}
