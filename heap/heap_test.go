package heap

import (
	"testing"

	"github.com/probeum/avm/term"
	"github.com/stretchr/testify/require"
)

func TestSmallIntRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, term.MaxSmall, term.MinSmall, 42, -42} {
		tm := term.FromSmallInt(v)
		require.True(t, term.IsSmallInt(tm))
		require.Equal(t, v, term.ToSmallInt(tm))
	}
}

func TestBigIntPromotion(t *testing.T) {
	h := New(64)
	v := int64(term.MaxSmall) + 1
	tm := h.NewInt(v)
	require.True(t, h.IsBigInt(tm))
	require.Equal(t, v, h.IntValue(tm).Int64())
}

func TestTupleRoundTrip(t *testing.T) {
	h := New(64)
	tup := h.NewTuple(3)
	h.PutTupleElement(tup, 0, term.FromSmallInt(1))
	h.PutTupleElement(tup, 1, term.FromSmallInt(2))
	h.PutTupleElement(tup, 2, term.FromSmallInt(3))
	require.EqualValues(t, 3, h.TupleArity(tup))
	require.Equal(t, int64(2), term.ToSmallInt(h.TupleElement(tup, 1)))
}

func TestListConsAndCompare(t *testing.T) {
	h := New(64)
	l := h.Cons(term.FromSmallInt(1), h.Cons(term.FromSmallInt(2), term.Nil))
	require.True(t, term.IsNonemptyList(l))
	require.Equal(t, int64(1), term.ToSmallInt(h.Head(l)))
	l2 := h.Cons(term.FromSmallInt(1), h.Cons(term.FromSmallInt(2), term.Nil))
	require.Equal(t, 0, Compare(h, l, l2))
}

func TestGCForwardsClosureFreezeVars(t *testing.T) {
	h := New(64)
	tup := h.NewTuple(1)
	h.PutTupleElement(tup, 0, term.FromSmallInt(7))
	fn := h.NewClosure(term.FromAtom(1), term.FromSmallInt(0), 0, []term.Term{tup})

	root := fn
	h.collect([]Root{{Slot: &root}}, false)

	require.True(t, h.IsFunction(root))
	freeze := h.ClosureFreezeVars(root)
	require.Len(t, freeze, 1)
	require.Equal(t, int64(7), term.ToSmallInt(h.TupleElement(freeze[0], 0)))
}

func TestCopyTermForwardsClosureFreezeVars(t *testing.T) {
	src := New(64)
	dst := New(64)
	tup := src.NewTuple(1)
	src.PutTupleElement(tup, 0, term.FromSmallInt(9))
	fn := src.NewClosure(term.FromAtom(2), term.FromSmallInt(1), 1, []term.Term{tup})

	copied := CopyTerm(fn, src, dst)

	require.True(t, dst.IsFunction(copied))
	freeze := dst.ClosureFreezeVars(copied)
	require.Len(t, freeze, 1)
	require.Equal(t, int64(9), term.ToSmallInt(dst.TupleElement(freeze[0], 0)))
}

func TestTotalOrderingTypePrecedence(t *testing.T) {
	h := New(128)
	num := term.FromSmallInt(1)
	atom := term.FromAtom(5)
	ref := h.NewRef(1)
	fn := h.NewClosure(atom, term.FromSmallInt(0), 0, nil)
	tup := h.NewTuple(0)
	mp := h.NewMap(0)
	lst := h.Cons(term.FromSmallInt(1), term.Nil)
	bin := h.NewBinary([]byte{1})

	order := []term.Term{num, atom, ref, fn, tup, mp, lst, bin}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			require.Less(t, Compare(h, order[i], order[j]), 0, "index %d vs %d", i, j)
		}
	}
}

func TestMapAssocAndExact(t *testing.T) {
	h := New(256)
	aAtom, bAtom, cAtom := term.FromAtom(1), term.FromAtom(2), term.FromAtom(3)
	base := h.NewMap(2)
	keys := h.MapKeysTuple(base)
	h.PutTupleElement(keys, 0, aAtom)
	h.PutTupleElement(keys, 1, bAtom)
	h.SetMapValueAt(base, 0, term.FromSmallInt(1))
	h.SetMapValueAt(base, 1, term.FromSmallInt(2))

	assoc := h.PutMapAssoc(base, []term.Term{cAtom, term.FromSmallInt(3)})
	require.EqualValues(t, 3, h.MapSize(assoc))
	pos := h.MapFindPos(assoc, cAtom)
	require.GreaterOrEqual(t, pos, 0)
	require.Equal(t, int64(3), term.ToSmallInt(h.MapValueAt(assoc, uint32(pos))))

	_, ok := h.PutMapExact(base, []term.Term{cAtom, term.FromSmallInt(9)})
	require.False(t, ok)
}

func TestBinaryRoundTrip(t *testing.T) {
	h := New(64)
	b := h.NewBinary([]byte{1, 2, 3, 4, 5})
	require.True(t, h.IsBinary(b))
	require.Equal(t, 5, h.BinarySize(b))
	require.Equal(t, []byte{1, 2, 3, 4, 5}, h.BinaryData(b))
}

func TestCopyTermCrossHeap(t *testing.T) {
	src := New(64)
	dst := New(64)
	tup := src.NewTuple(2)
	src.PutTupleElement(tup, 0, term.FromSmallInt(10))
	src.PutTupleElement(tup, 1, src.Cons(term.FromSmallInt(20), term.Nil))

	copied := CopyTerm(tup, src, dst)
	require.True(t, dst.IsTuple(copied))
	require.Equal(t, int64(10), term.ToSmallInt(dst.TupleElement(copied, 0)))
	tail := dst.TupleElement(copied, 1)
	require.Equal(t, int64(20), term.ToSmallInt(dst.Head(tail)))
}
