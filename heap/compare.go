package heap

import (
	"math/big"

	"github.com/probeum/avm/term"
)

// typeRank implements the total type ordering: number < atom
// < reference < function < port < pid < tuple < map < list < binary. Port
// rank 4 is reserved but never produced (this VM has no port-owning
// entities); pid occupies rank 5.
func typeRank(h *Heap, t term.Term) int {
	switch {
	case term.IsSmallInt(t):
		return 0
	case term.IsNil(t):
		return 8
	case term.IsAtom(t):
		return 1
	case term.IsPid(t):
		return 5
	case term.IsBoxed(t):
		switch term.HeaderKind(h.Memory[term.BoxedOffset(t)]) {
		case term.KindPosBig, term.KindNegBig, term.KindFloat:
			return 0
		case term.KindRef:
			return 2
		case term.KindFun:
			return 3
		case term.KindTuple:
			return 6
		case term.KindMap:
			return 7
		case term.KindBinary, term.KindRefcBinary, term.KindSubBinary:
			return 9
		}
	case term.IsNonemptyList(t):
		return 8
	}
	return 10
}

// Compare implements the total ordering over all representable terms:
// numeric comparison by value (promoting to float
// across mixed int/float comparisons), then the type-rank table above for
// everything else, recursing structurally for compound terms.
func Compare(h *Heap, a, b term.Term) int {
	an, bn := isNumeric(h, a), isNumeric(h, b)
	if an && bn {
		return compareNumeric(h, a, b)
	}
	ra, rb := typeRank(h, a), typeRank(h, b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 1: // atom: compare by id (stable interning order is sufficient
		// for a total order; true BEAM compares atom text, not id, but id
		// order is a valid total order for this VM's own atom table).
		return int(term.AtomID(a)) - int(term.AtomID(b))
	case 2:
		return cmpU64(h.RefTicks(a), h.RefTicks(b))
	case 3:
		return compareClosures(h, a, b)
	case 5:
		return int(term.PidID(a)) - int(term.PidID(b))
	case 6:
		return compareTuples(h, a, b)
	case 7:
		return compareMaps(h, a, b)
	case 8:
		return compareLists(h, a, b)
	case 9:
		return compareBinaries(h, a, b)
	}
	return 0
}

// Equal implements exact equality: types must match (2 == 2.0 is false).
func Equal(h *Heap, a, b term.Term) bool {
	if isNumeric(h, a) && isNumeric(h, b) {
		aFloat, bFloat := h.IsFloat(a), h.IsFloat(b)
		if aFloat != bFloat {
			return false
		}
	}
	return Compare(h, a, b) == 0
}

// StructurallyEqual implements structural equality: integer vs float
// compare by value (2 == 2.0 is true).
func StructurallyEqual(h *Heap, a, b term.Term) bool {
	return Compare(h, a, b) == 0
}

func isNumeric(h *Heap, t term.Term) bool {
	if term.IsSmallInt(t) {
		return true
	}
	if !term.IsBoxed(t) {
		return false
	}
	switch term.HeaderKind(h.Memory[term.BoxedOffset(t)]) {
	case term.KindPosBig, term.KindNegBig, term.KindFloat:
		return true
	}
	return false
}

func compareNumeric(h *Heap, a, b term.Term) int {
	if term.IsSmallInt(a) && term.IsSmallInt(b) {
		av, bv := term.ToSmallInt(a), term.ToSmallInt(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	if h.IsFloat(a) || h.IsFloat(b) {
		af, bf := toFloat(h, a), toFloat(h, b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return h.IntValue(a).Cmp(h.IntValue(b))
}

func toFloat(h *Heap, t term.Term) float64 {
	if h.IsFloat(t) {
		return h.FloatValue(t)
	}
	if term.IsSmallInt(t) {
		return float64(term.ToSmallInt(t))
	}
	f := new(big.Float).SetInt(h.BigIntValue(t))
	v, _ := f.Float64()
	return v
}

func cmpU64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareClosures(h *Heap, a, b term.Term) int {
	if c := Compare(h, h.ClosureModule(a), h.ClosureModule(b)); c != 0 {
		return c
	}
	if c := int(h.ClosureArity(a)) - int(h.ClosureArity(b)); c != 0 {
		return c
	}
	return Compare(h, h.ClosureIndexOrName(a), h.ClosureIndexOrName(b))
}

func compareTuples(h *Heap, a, b term.Term) int {
	an, bn := h.TupleArity(a), h.TupleArity(b)
	if an != bn {
		return int(an) - int(bn)
	}
	for i := uint32(0); i < an; i++ {
		if c := Compare(h, h.TupleElement(a, i), h.TupleElement(b, i)); c != 0 {
			return c
		}
	}
	return 0
}

func compareMaps(h *Heap, a, b term.Term) int {
	an, bn := h.MapSize(a), h.MapSize(b)
	if an != bn {
		return int(an) - int(bn)
	}
	ae, be := h.sortedEntries(a), h.sortedEntries(b)
	for i := range ae {
		if c := Compare(h, ae[i].key, be[i].key); c != 0 {
			return c
		}
		if c := Compare(h, ae[i].val, be[i].val); c != 0 {
			return c
		}
	}
	return 0
}

func compareLists(h *Heap, a, b term.Term) int {
	for {
		aNil, bNil := term.IsNil(a), term.IsNil(b)
		switch {
		case aNil && bNil:
			return 0
		case aNil:
			return -1
		case bNil:
			return 1
		}
		if c := Compare(h, h.Head(a), h.Head(b)); c != 0 {
			return c
		}
		a, b = h.Tail(a), h.Tail(b)
	}
}

func compareBinaries(h *Heap, a, b term.Term) int {
	ad, bd := h.BinaryData(a), h.BinaryData(b)
	if len(ad) != len(bd) {
		return len(ad) - len(bd)
	}
	for i := range ad {
		if ad[i] != bd[i] {
			return int(ad[i]) - int(bd[i])
		}
	}
	return 0
}
