package heap

import "github.com/probeum/avm/term"

// NewBinary allocates a heap binary of len(data) bytes and copies data into
// its payload words.
func (h *Heap) NewBinary(data []byte) term.Term {
	words := uint32((len(data) + 7) / 8)
	off := h.Alloc(1 + words)
	h.Memory[off] = term.MakeHeader(term.KindBinary, uint32(len(data)))
	writeBytesToWords(h.Memory[off+1:off+1+words], data)
	return term.FromBoxedPointer(off)
}

// NewRefcBinary registers data in the side refcount table and returns a
// boxed reference to it; used for large/literal binaries shared without a
// full per-process copy.
func (h *Heap) NewRefcBinary(data []byte) term.Term {
	rb := &RefBin{Data: data, refs: 1}
	idx := len(h.RefBins)
	h.RefBins = append(h.RefBins, rb)
	off := h.Alloc(2)
	h.Memory[off] = term.MakeHeader(term.KindRefcBinary, uint32(len(data)))
	h.Memory[off+1] = term.Term(idx)
	return term.FromBoxedPointer(off)
}

// IsBinary reports whether t is a heap, refcounted, or sub-binary.
func (h *Heap) IsBinary(t term.Term) bool {
	if !term.IsBoxed(t) {
		return false
	}
	switch term.HeaderKind(h.Memory[term.BoxedOffset(t)]) {
	case term.KindBinary, term.KindRefcBinary, term.KindSubBinary:
		return true
	}
	return false
}

// BinarySize returns a binary's byte length, following sub-binary views.
func (h *Heap) BinarySize(t term.Term) int {
	off := term.BoxedOffset(t)
	header := h.Memory[off]
	switch term.HeaderKind(header) {
	case term.KindBinary, term.KindRefcBinary:
		return int(term.HeaderSize(header))
	case term.KindSubBinary:
		return int(term.ToSmallInt(h.Memory[off+2]))
	}
	return 0
}

// BinaryData returns a binary's bytes as a new slice (sub-binaries are
// resolved to their viewed window).
func (h *Heap) BinaryData(t term.Term) []byte {
	off := term.BoxedOffset(t)
	header := h.Memory[off]
	switch term.HeaderKind(header) {
	case term.KindBinary:
		size := int(term.HeaderSize(header))
		words := (size + 7) / 8
		raw := wordsAsBytes(h.Memory[off+1 : off+1+uint32(words)])
		out := make([]byte, size)
		copy(out, raw)
		return out
	case term.KindRefcBinary:
		idx := int(h.Memory[off+1])
		return h.RefBins[idx].Data
	case term.KindSubBinary:
		parent := h.Memory[off+1]
		start := int(term.ToSmallInt(h.Memory[off+2]))
		length := int(term.ToSmallInt(h.Memory[off+3]))
		full := h.BinaryData(parent)
		return full[start : start+length]
	}
	return nil
}

// NewSubBinary allocates a (parent, byteStart, byteLen) view term.
func (h *Heap) NewSubBinary(parent term.Term, byteStart, byteLen int) term.Term {
	off := h.Alloc(4)
	h.Memory[off] = term.MakeHeader(term.KindSubBinary, 0)
	h.Memory[off+1] = parent
	h.Memory[off+2] = term.FromSmallInt(int64(byteStart))
	h.Memory[off+3] = term.FromSmallInt(int64(byteLen))
	return term.FromBoxedPointer(off)
}

// NewMatchState wraps src (a binary or sub-binary) in a match-state with
// nSlots save slots, all initialized to an invalid/unset marker (-1).
func (h *Heap) NewMatchState(src term.Term, nSlots uint32) term.Term {
	off := h.Alloc(3 + nSlots)
	h.Memory[off] = term.MakeHeader(term.KindMatchState, nSlots)
	h.Memory[off+1] = src
	h.Memory[off+2] = term.FromSmallInt(0) // bit offset
	for i := uint32(0); i < nSlots; i++ {
		h.Memory[off+3+i] = term.FromSmallInt(-1)
	}
	return term.FromBoxedPointer(off)
}

// IsMatchState reports whether t is a boxed match-state.
func (h *Heap) IsMatchState(t term.Term) bool {
	return term.IsBoxed(t) && term.HeaderKind(h.Memory[term.BoxedOffset(t)]) == term.KindMatchState
}

func (h *Heap) MatchStateBinary(t term.Term) term.Term { return h.Memory[term.BoxedOffset(t)+1] }
func (h *Heap) MatchStateOffset(t term.Term) int {
	return int(term.ToSmallInt(h.Memory[term.BoxedOffset(t)+2]))
}
func (h *Heap) SetMatchStateOffset(t term.Term, bitOffset int) {
	h.Memory[term.BoxedOffset(t)+2] = term.FromSmallInt(int64(bitOffset))
}
func (h *Heap) MatchStateSaveSlots(t term.Term) int {
	return int(term.HeaderSize(h.Memory[term.BoxedOffset(t)]))
}
func (h *Heap) MatchStateSave(t term.Term, slot int, value int) {
	h.Memory[term.BoxedOffset(t)+3+uint32(slot)] = term.FromSmallInt(int64(value))
}
func (h *Heap) MatchStateRestore(t term.Term, slot int) int {
	return int(term.ToSmallInt(h.Memory[term.BoxedOffset(t)+3+uint32(slot)]))
}

// WriteBinaryBytes overwrites data into a heap or refc binary's bytes
// starting at byte offset off, used by the bitstring builder to fill a
// pre-sized binary in place (construction is restricted to
// byte-aligned writes, so off and len(data) are always whole bytes).
func (h *Heap) WriteBinaryBytes(t term.Term, off int, data []byte) {
	boxOff := term.BoxedOffset(t)
	switch term.HeaderKind(h.Memory[boxOff]) {
	case term.KindBinary:
		base := boxOff + 1
		for i, b := range data {
			wordIdx := uint32((off + i) / 8)
			byteIdx := uint((off + i) % 8)
			w := h.Memory[base+wordIdx]
			mask := term.Term(0xFF) << (8 * byteIdx)
			w = (w &^ mask) | (term.Term(b) << (8 * byteIdx))
			h.Memory[base+wordIdx] = w
		}
	case term.KindRefcBinary:
		idx := int(h.Memory[boxOff+1])
		copy(h.RefBins[idx].Data[off:], data)
	}
}

func wordsAsBytes(words []term.Term) []byte {
	out := make([]byte, len(words)*8)
	for i, w := range words {
		for b := 0; b < 8; b++ {
			out[i*8+b] = byte(w >> (8 * b))
		}
	}
	return out
}

// writeBytesToWords packs data's bytes little-endian into words, the
// inverse of wordsAsBytes, leaving any trailing partial word zero-padded.
func writeBytesToWords(words []term.Term, data []byte) {
	for i := range words {
		var w term.Term
		for b := 0; b < 8; b++ {
			idx := i*8 + b
			if idx >= len(data) {
				break
			}
			w |= term.Term(data[idx]) << (8 * b)
		}
		words[i] = w
	}
}
