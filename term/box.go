package term

// BoxKind discriminates the payload of a boxed heap object. It lives in the
// low byte of the object's header word; the allocator and collector only
// need this byte plus a kind -> size function, never a concrete Go type.
type BoxKind uint8

const (
	KindTuple BoxKind = iota + 1
	KindPosBig
	KindNegBig
	KindFloat
	KindRef
	KindFun
	KindBinary
	KindRefcBinary
	KindSubBinary
	KindMatchState
	KindMap
)

const (
	headerKindShift = 0
	headerKindBits  = 8
	headerKindMask  = Term(1)<<headerKindBits - 1
	headerSizeShift = headerKindBits
)

// MakeHeader packs a boxed object's header word from its kind and a
// kind-specific size/arity field.
func MakeHeader(kind BoxKind, size uint32) Term {
	return Term(kind) | Term(size)<<headerSizeShift
}

// HeaderKind extracts the BoxKind from a header word.
func HeaderKind(header Term) BoxKind {
	return BoxKind(header & headerKindMask)
}

// HeaderSize extracts the kind-specific size/arity field from a header word.
func HeaderSize(header Term) uint32 {
	return uint32(header >> headerSizeShift)
}
