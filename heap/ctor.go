package heap

import (
	"math"
	"math/big"

	"github.com/probeum/avm/term"
)

// NewTuple allocates an arity-sized tuple and returns its boxed term; the
// caller fills elements with PutTupleElement before the tuple is ever GC'd.
func (h *Heap) NewTuple(arity uint32) term.Term {
	off := h.Alloc(1 + arity)
	h.Memory[off] = term.MakeHeader(term.KindTuple, arity)
	return term.FromBoxedPointer(off)
}

// PutTupleElement writes element i (0-based) of a tuple allocated by
// NewTuple.
func (h *Heap) PutTupleElement(t term.Term, i uint32, v term.Term) {
	off := term.BoxedOffset(t)
	h.Memory[off+1+i] = v
}

// TupleArity returns a tuple's element count.
func (h *Heap) TupleArity(t term.Term) uint32 {
	return term.HeaderSize(h.Memory[term.BoxedOffset(t)])
}

// TupleElement reads element i (0-based) of a tuple.
func (h *Heap) TupleElement(t term.Term, i uint32) term.Term {
	off := term.BoxedOffset(t)
	return h.Memory[off+1+i]
}

// IsTuple reports whether t is a boxed tuple.
func (h *Heap) IsTuple(t term.Term) bool {
	return term.IsBoxed(t) && term.HeaderKind(h.Memory[term.BoxedOffset(t)]) == term.KindTuple
}

// Cons allocates a list cell and returns its term.
func (h *Heap) Cons(head, tail term.Term) term.Term {
	off := h.Alloc(2)
	h.Memory[off] = head
	h.Memory[off+1] = tail
	return term.FromListPointer(off)
}

// Head returns the head of a non-empty list cell.
func (h *Heap) Head(t term.Term) term.Term {
	return h.Memory[term.ListOffset(t)]
}

// Tail returns the tail of a non-empty list cell.
func (h *Heap) Tail(t term.Term) term.Term {
	return h.Memory[term.ListOffset(t)+1]
}

// NewInt constructs an integer term, promoting to a boxed big integer if v
// doesn't fit the immediate small-integer range.
func (h *Heap) NewInt(v int64) term.Term {
	if term.FitsSmall(v) {
		return term.FromSmallInt(v)
	}
	return h.NewBigFromInt64(v)
}

// NewBigFromInt64 always allocates a boxed big integer, even if v would fit
// as a small int; used by arithmetic BIFs that have already decided to
// promote.
func (h *Heap) NewBigFromInt64(v int64) term.Term {
	return h.NewBigInt(big.NewInt(v))
}

// NewBigInt allocates a 1- or 2-limb boxed big integer from a *big.Int.
func (h *Heap) NewBigInt(v *big.Int) term.Term {
	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	words := abs.Bits()
	limbs := make([]uint64, 0, 2)
	for _, w := range words {
		limbs = append(limbs, uint64(w))
	}
	if len(limbs) == 0 {
		limbs = []uint64{0}
	}
	if len(limbs) > 2 {
		limbs = limbs[:2] // saturate; overflow BIFs check before calling this
	}
	kind := term.KindPosBig
	if neg {
		kind = term.KindNegBig
	}
	off := h.Alloc(1 + uint32(len(limbs)))
	h.Memory[off] = term.MakeHeader(kind, uint32(len(limbs)))
	for i, l := range limbs {
		h.Memory[off+1+uint32(i)] = term.Term(l)
	}
	return term.FromBoxedPointer(off)
}

// IsBigInt reports whether t is a boxed positive or negative big integer.
func (h *Heap) IsBigInt(t term.Term) bool {
	if !term.IsBoxed(t) {
		return false
	}
	k := term.HeaderKind(h.Memory[term.BoxedOffset(t)])
	return k == term.KindPosBig || k == term.KindNegBig
}

// BigIntValue reconstructs a *big.Int from a boxed big-integer term.
func (h *Heap) BigIntValue(t term.Term) *big.Int {
	off := term.BoxedOffset(t)
	header := h.Memory[off]
	kind := term.HeaderKind(header)
	size := term.HeaderSize(header)
	limbs := make([]big.Word, size)
	for i := uint32(0); i < size; i++ {
		limbs[i] = big.Word(h.Memory[off+1+i])
	}
	v := new(big.Int).SetBits(limbs)
	if kind == term.KindNegBig {
		v.Neg(v)
	}
	return v
}

// IntValue returns the integer value of either a small int or a boxed big
// integer as a *big.Int (callers that only need int64 and know the term is
// small should prefer term.ToSmallInt for the fast path).
func (h *Heap) IntValue(t term.Term) *big.Int {
	if term.IsSmallInt(t) {
		return big.NewInt(term.ToSmallInt(t))
	}
	return h.BigIntValue(t)
}

// NewFloat allocates a boxed float term.
func (h *Heap) NewFloat(v float64) term.Term {
	off := h.Alloc(2)
	h.Memory[off] = term.MakeHeader(term.KindFloat, 1)
	h.Memory[off+1] = term.Term(math.Float64bits(v))
	return term.FromBoxedPointer(off)
}

// IsFloat reports whether t is a boxed float.
func (h *Heap) IsFloat(t term.Term) bool {
	return term.IsBoxed(t) && term.HeaderKind(h.Memory[term.BoxedOffset(t)]) == term.KindFloat
}

// FloatValue reads a boxed float's value.
func (h *Heap) FloatValue(t term.Term) float64 {
	off := term.BoxedOffset(t)
	return math.Float64frombits(uint64(h.Memory[off+1]))
}

// NewRef allocates a boxed reference term from a monotonic tick value.
func (h *Heap) NewRef(ticks uint64) term.Term {
	off := h.Alloc(2)
	h.Memory[off] = term.MakeHeader(term.KindRef, 1)
	h.Memory[off+1] = term.Term(ticks)
	return term.FromBoxedPointer(off)
}

// IsRef reports whether t is a boxed reference.
func (h *Heap) IsRef(t term.Term) bool {
	return term.IsBoxed(t) && term.HeaderKind(h.Memory[term.BoxedOffset(t)]) == term.KindRef
}

// RefTicks reads a reference's tick value.
func (h *Heap) RefTicks(t term.Term) uint64 {
	off := term.BoxedOffset(t)
	return uint64(h.Memory[off+1])
}

// NewClosure allocates a function-closure term: module atom, an
// index-or-name term (a small int label index, or an atom for a
// name-resolved external fun), declared arity, and freeze (captured) vars.
func (h *Heap) NewClosure(module term.Term, indexOrName term.Term, arity uint32, freeze []term.Term) term.Term {
	off := h.Alloc(4 + uint32(len(freeze)))
	h.Memory[off] = term.MakeHeader(term.KindFun, uint32(len(freeze)))
	h.Memory[off+1] = module
	h.Memory[off+2] = indexOrName
	h.Memory[off+3] = term.FromSmallInt(int64(arity))
	for i, f := range freeze {
		h.Memory[off+4+uint32(i)] = f
	}
	return term.FromBoxedPointer(off)
}

// IsFunction reports whether t is a boxed closure.
func (h *Heap) IsFunction(t term.Term) bool {
	return term.IsBoxed(t) && term.HeaderKind(h.Memory[term.BoxedOffset(t)]) == term.KindFun
}

// ClosureModule, ClosureIndexOrName, ClosureArity and ClosureFreezeVars read
// back a closure's fields.
func (h *Heap) ClosureModule(t term.Term) term.Term { return h.Memory[term.BoxedOffset(t)+1] }
func (h *Heap) ClosureIndexOrName(t term.Term) term.Term {
	return h.Memory[term.BoxedOffset(t)+2]
}
func (h *Heap) ClosureArity(t term.Term) uint32 {
	return uint32(term.ToSmallInt(h.Memory[term.BoxedOffset(t)+3]))
}
func (h *Heap) ClosureFreezeVars(t term.Term) []term.Term {
	off := term.BoxedOffset(t)
	n := term.HeaderSize(h.Memory[off])
	return h.Memory[off+4 : off+4+n]
}
