package loader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/probeum/avm/term"
)

// External-term tags used by this VM's literal table. These are this
// implementation's own compact encoding (documented here; this package
// contains no encoder for it) rather than a byte-for-byte
// reproduction of an external compiler's literal dump, since no compiler
// producing that format is part of this system's scope (the "pack"/build
// tooling is excluded; only the in-VM loader and its own test fixtures
// ever produce or consume this table).
const (
	litTagSmallInt = 0x01
	litTagAtom     = 0x02
	litTagNil      = 0x03
	litTagList     = 0x04
	litTagTuple    = 0x05
	litTagBinary   = 0x06
	litTagFloat    = 0x07
)

// decodeExternalTerm decodes one literal entry's payload into a term.Term
// allocated on the module's literal heap, interning any embedded atom name
// directly (literal atoms are stored by name, not by local index, since
// they don't appear in the AtU8 table).
func decodeExternalTerm(data []byte, m *Module) (term.Term, error) {
	t, _, err := decodeTermAt(data, 0, m)
	return t, err
}

func decodeTermAt(data []byte, off int, m *Module) (term.Term, int, error) {
	if off >= len(data) {
		return term.Invalid, off, fmt.Errorf("%w: truncated literal term", ErrMalformed)
	}
	tag := data[off]
	off++
	switch tag {
	case litTagSmallInt:
		if off+8 > len(data) {
			return term.Invalid, off, fmt.Errorf("%w: truncated literal int", ErrMalformed)
		}
		v := int64(binary.BigEndian.Uint64(data[off : off+8]))
		off += 8
		return m.LiteralHeap.NewInt(v), off, nil

	case litTagFloat:
		if off+8 > len(data) {
			return term.Invalid, off, fmt.Errorf("%w: truncated literal float", ErrMalformed)
		}
		bits := binary.BigEndian.Uint64(data[off : off+8])
		off += 8
		return m.LiteralHeap.NewFloat(math.Float64frombits(bits)), off, nil

	case litTagAtom:
		if off+4 > len(data) {
			return term.Invalid, off, fmt.Errorf("%w: truncated literal atom length", ErrMalformed)
		}
		l := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if off+l > len(data) {
			return term.Invalid, off, fmt.Errorf("%w: truncated literal atom name", ErrMalformed)
		}
		name := string(data[off : off+l])
		off += l
		return term.FromAtom(m.internLiteralAtom(name)), off, nil

	case litTagNil:
		return term.Nil, off, nil

	case litTagList:
		head, next, err := decodeTermAt(data, off, m)
		if err != nil {
			return term.Invalid, off, err
		}
		tail, next2, err := decodeTermAt(data, next, m)
		if err != nil {
			return term.Invalid, off, err
		}
		return m.LiteralHeap.Cons(head, tail), next2, nil

	case litTagTuple:
		if off+4 > len(data) {
			return term.Invalid, off, fmt.Errorf("%w: truncated literal tuple arity", ErrMalformed)
		}
		arity := binary.BigEndian.Uint32(data[off : off+4])
		off += 4
		tup := m.LiteralHeap.NewTuple(arity)
		for i := uint32(0); i < arity; i++ {
			var el term.Term
			var err error
			el, off, err = decodeTermAt(data, off, m)
			if err != nil {
				return term.Invalid, off, err
			}
			m.LiteralHeap.PutTupleElement(tup, i, el)
		}
		return tup, off, nil

	case litTagBinary:
		if off+4 > len(data) {
			return term.Invalid, off, fmt.Errorf("%w: truncated literal binary length", ErrMalformed)
		}
		l := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if off+l > len(data) {
			return term.Invalid, off, fmt.Errorf("%w: truncated literal binary data", ErrMalformed)
		}
		b := m.LiteralHeap.NewBinary(data[off : off+l])
		off += l
		return b, off, nil

	default:
		return term.Invalid, off, fmt.Errorf("%w: unknown literal tag %d", ErrMalformed, tag)
	}
}
