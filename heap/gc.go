package heap

import "github.com/probeum/avm/term"

// collect runs a single copying-GC pass. Roots are the explicit root slots
// (x-registers up to `live`, the process dictionary, the bitstring build
// target) plus, if stackRoots is true, every stack word between EStack and
// StackBase (CPs are skipped: they carry no heap pointers of their own, only
// module/offset encodings the interpreter resolves directly).
func (h *Heap) collect(roots []Root, stackRoots bool) {
	newMem := make([]term.Term, len(h.Memory))
	newTop := uint32(1) // word 0 stays unallocated, as in New
	forward := make(map[uint32]uint32)
	liveRefBins := make(map[int]bool)

	var copyTerm func(t term.Term) term.Term
	copyTerm = func(t term.Term) term.Term {
		switch {
		case term.IsNonemptyList(t):
			off := term.ListOffset(t)
			if nOff, ok := forward[off]; ok {
				return term.FromListPointer(nOff)
			}
			nOff := newTop
			newTop += 2
			forward[off] = nOff
			head, tail := h.Memory[off], h.Memory[off+1]
			newMem[nOff] = copyTerm(head)
			newMem[nOff+1] = copyTerm(tail)
			return term.FromListPointer(nOff)
		case term.IsBoxed(t):
			off := term.BoxedOffset(t)
			if nOff, ok := forward[off]; ok {
				return term.FromBoxedPointer(nOff)
			}
			return copyBoxed(h, off, newMem, &newTop, forward, copyTerm, liveRefBins)
		default:
			return t
		}
	}

	for _, r := range roots {
		if r.Slot != nil {
			*r.Slot = copyTerm(*r.Slot)
		}
	}
	if stackRoots {
		// The stack zone keeps its indices (only the heap zone is
		// compacted); CP/catch-label words use reserved tag bits copyTerm
		// never matches, so they pass through unchanged.
		for i := h.EStack; i < h.StackBase; i++ {
			newMem[i] = copyTerm(h.Memory[i])
		}
	}
	// merge fragments: anything still reachable got copied above when
	// referenced from a root; fragments themselves are now garbage once
	// merged, so the list is simply dropped after copy.
	h.Fragments = nil
	h.SweepMSOList(liveRefBins)

	h.Memory = newMem
	h.HTop = newTop
}

func copyBoxed(h *Heap, off uint32, newMem []term.Term, newTop *uint32, forward map[uint32]uint32, copyTerm func(term.Term) term.Term, liveRefBins map[int]bool) term.Term {
	header := h.Memory[off]
	kind := term.HeaderKind(header)
	size := term.HeaderSize(header)

	switch kind {
	case term.KindTuple:
		nOff := *newTop
		*newTop += 1 + size
		forward[off] = nOff
		newMem[nOff] = header
		for i := uint32(0); i < size; i++ {
			newMem[nOff+1+i] = copyTerm(h.Memory[off+1+i])
		}
		return term.FromBoxedPointer(nOff)

	case term.KindMap:
		nOff := *newTop
		*newTop += 2 + size
		forward[off] = nOff
		newMem[nOff] = header
		newMem[nOff+1] = copyTerm(h.Memory[off+1]) // keys tuple
		for i := uint32(0); i < size; i++ {
			newMem[nOff+2+i] = copyTerm(h.Memory[off+2+i])
		}
		return term.FromBoxedPointer(nOff)

	case term.KindFun:
		// header, module atom, index-or-label, arity, freeze[0..size)
		nOff := *newTop
		*newTop += 4 + size
		forward[off] = nOff
		newMem[nOff] = header
		newMem[nOff+1] = h.Memory[off+1] // module atom, immediate
		newMem[nOff+2] = h.Memory[off+2] // index-or-label, immediate
		newMem[nOff+3] = h.Memory[off+3] // arity, immediate
		for i := uint32(0); i < size; i++ {
			newMem[nOff+4+i] = copyTerm(h.Memory[off+4+i])
		}
		return term.FromBoxedPointer(nOff)

	case term.KindPosBig, term.KindNegBig, term.KindFloat, term.KindRef:
		nOff := *newTop
		*newTop += 1 + size
		forward[off] = nOff
		copy(newMem[nOff:nOff+1+size], h.Memory[off:off+1+size])
		return term.FromBoxedPointer(nOff)

	case term.KindBinary:
		words := (size + 7) / 8
		nOff := *newTop
		*newTop += 1 + words
		forward[off] = nOff
		copy(newMem[nOff:nOff+1+words], h.Memory[off:off+1+words])
		return term.FromBoxedPointer(nOff)

	case term.KindRefcBinary:
		nOff := *newTop
		*newTop += 2
		forward[off] = nOff
		newMem[nOff] = header
		newMem[nOff+1] = h.Memory[off+1]
		liveRefBins[int(h.Memory[off+1])] = true
		return term.FromBoxedPointer(nOff)

	case term.KindSubBinary:
		nOff := *newTop
		*newTop += 4
		forward[off] = nOff
		newMem[nOff] = header
		newMem[nOff+1] = copyTerm(h.Memory[off+1])
		newMem[nOff+2] = h.Memory[off+2]
		newMem[nOff+3] = h.Memory[off+3]
		return term.FromBoxedPointer(nOff)

	case term.KindMatchState:
		nOff := *newTop
		*newTop += 3 + size
		forward[off] = nOff
		newMem[nOff] = header
		newMem[nOff+1] = copyTerm(h.Memory[off+1])
		newMem[nOff+2] = h.Memory[off+2]
		for i := uint32(0); i < size; i++ {
			newMem[nOff+3+i] = h.Memory[off+3+i]
		}
		return term.FromBoxedPointer(nOff)

	default:
		nOff := *newTop
		*newTop += 1 + size
		forward[off] = nOff
		copy(newMem[nOff:nOff+1+size], h.Memory[off:off+1+size])
		return term.FromBoxedPointer(nOff)
	}
}

// CopyTerm deep-copies a term tree rooted at t, located in src, into dst.
// Shared substructure is copied as-is (no hash-consing), matching the
// usual contract for cross-process message sends.
func CopyTerm(t term.Term, src, dst *Heap) term.Term {
	forward := make(map[uint32]uint32)
	var cp func(term.Term) term.Term
	cp = func(t term.Term) term.Term {
		switch {
		case term.IsNonemptyList(t):
			off := term.ListOffset(t)
			if nOff, ok := forward[off]; ok {
				return term.FromListPointer(nOff)
			}
			nOff := dst.Alloc(2)
			forward[off] = nOff
			head, tail := src.Memory[off], src.Memory[off+1]
			h, tl := cp(head), cp(tail)
			dst.Memory[nOff] = h
			dst.Memory[nOff+1] = tl
			return term.FromListPointer(nOff)
		case term.IsBoxed(t):
			off := term.BoxedOffset(t)
			if nOff, ok := forward[off]; ok {
				return term.FromBoxedPointer(nOff)
			}
			return copyBoxedCross(src, dst, off, forward, cp)
		default:
			return t
		}
	}
	return cp(t)
}

func copyBoxedCross(src, dst *Heap, off uint32, forward map[uint32]uint32, cp func(term.Term) term.Term) term.Term {
	header := src.Memory[off]
	kind := term.HeaderKind(header)
	size := term.HeaderSize(header)

	switch kind {
	case term.KindTuple:
		n := dst.Alloc(1 + size)
		forward[off] = n
		dst.Memory[n] = header
		for i := uint32(0); i < size; i++ {
			dst.Memory[n+1+i] = cp(src.Memory[off+1+i])
		}
		return term.FromBoxedPointer(n)
	case term.KindMap:
		n := dst.Alloc(2 + size)
		forward[off] = n
		dst.Memory[n] = header
		dst.Memory[n+1] = cp(src.Memory[off+1])
		for i := uint32(0); i < size; i++ {
			dst.Memory[n+2+i] = cp(src.Memory[off+2+i])
		}
		return term.FromBoxedPointer(n)
	case term.KindFun:
		n := dst.Alloc(4 + size)
		forward[off] = n
		dst.Memory[n] = header
		dst.Memory[n+1] = src.Memory[off+1] // module atom, immediate
		dst.Memory[n+2] = src.Memory[off+2] // index-or-label, immediate
		dst.Memory[n+3] = src.Memory[off+3] // arity, immediate
		for i := uint32(0); i < size; i++ {
			dst.Memory[n+4+i] = cp(src.Memory[off+4+i])
		}
		return term.FromBoxedPointer(n)
	case term.KindBinary:
		words := (size + 7) / 8
		n := dst.Alloc(1 + words)
		forward[off] = n
		copy(dst.Memory[n:n+1+words], src.Memory[off:off+1+words])
		return term.FromBoxedPointer(n)
	case term.KindSubBinary:
		parent := cp(src.Memory[off+1])
		n := dst.Alloc(4)
		forward[off] = n
		dst.Memory[n] = header
		dst.Memory[n+1] = parent
		dst.Memory[n+2] = src.Memory[off+2]
		dst.Memory[n+3] = src.Memory[off+3]
		return term.FromBoxedPointer(n)
	case term.KindMatchState:
		n := dst.Alloc(3 + size)
		forward[off] = n
		dst.Memory[n] = header
		dst.Memory[n+1] = cp(src.Memory[off+1])
		dst.Memory[n+2] = src.Memory[off+2]
		for i := uint32(0); i < size; i++ {
			dst.Memory[n+3+i] = src.Memory[off+3+i]
		}
		return term.FromBoxedPointer(n)
	default:
		n := dst.Alloc(1 + size)
		forward[off] = n
		copy(dst.Memory[n:n+1+size], src.Memory[off:off+1+size])
		return term.FromBoxedPointer(n)
	}
}
