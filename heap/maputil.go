package heap

import "github.com/probeum/avm/term"

// NewMap allocates an empty-shaped map object: a keys tuple of the given
// size (filled by the caller) plus a parallel values array.
func (h *Heap) NewMap(size uint32) term.Term {
	keys := h.NewTuple(size)
	off := h.Alloc(2 + size)
	h.Memory[off] = term.MakeHeader(term.KindMap, size)
	h.Memory[off+1] = keys
	return term.FromBoxedPointer(off)
}

// IsMap reports whether t is a boxed map.
func (h *Heap) IsMap(t term.Term) bool {
	return term.IsBoxed(t) && term.HeaderKind(h.Memory[term.BoxedOffset(t)]) == term.KindMap
}

// MapSize returns a map's key/value count.
func (h *Heap) MapSize(t term.Term) uint32 {
	return term.HeaderSize(h.Memory[term.BoxedOffset(t)])
}

// MapKeysTuple returns the boxed keys-tuple term (may be shared structurally
// with another map produced by an earlier assoc).
func (h *Heap) MapKeysTuple(t term.Term) term.Term {
	return h.Memory[term.BoxedOffset(t)+1]
}

// MapValueAt reads the value stored at position pos (0-based, matching the
// keys tuple's element order).
func (h *Heap) MapValueAt(t term.Term, pos uint32) term.Term {
	off := term.BoxedOffset(t)
	return h.Memory[off+2+pos]
}

// SetMapValueAt overwrites the value at position pos in-place (used by
// put_map_exact once the new map has been allocated and seeded).
func (h *Heap) SetMapValueAt(t term.Term, pos uint32, v term.Term) {
	off := term.BoxedOffset(t)
	h.Memory[off+2+pos] = v
}

// MapFindPos returns the position of key in the map's key order, or -1 if
// absent. Keys are kept sorted by term ordering (Compare), matching the
// BEAM flat-map representation's invariant, so lookup is O(log n).
func (h *Heap) MapFindPos(t term.Term, key term.Term) int {
	keys := h.MapKeysTuple(t)
	n := h.TupleArity(keys)
	lo, hi := 0, int(n)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		k := h.TupleElement(keys, uint32(mid))
		c := Compare(h, k, key)
		switch {
		case c == 0:
			return mid
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

// mapEntry is a key/value pair used while building a merged map.
type mapEntry struct {
	key, val term.Term
}

// sortedEntries reads a map's entries as a key-sorted slice.
func (h *Heap) sortedEntries(t term.Term) []mapEntry {
	keys := h.MapKeysTuple(t)
	n := h.TupleArity(keys)
	out := make([]mapEntry, n)
	for i := uint32(0); i < n; i++ {
		out[i] = mapEntry{h.TupleElement(keys, i), h.MapValueAt(t, i)}
	}
	return out
}

// PutMapAssoc implements put_map_assoc: merge newPairs (key,value,...) into
// src, new keys inserted in sorted order, equal keys taking the new value.
func (h *Heap) PutMapAssoc(src term.Term, newPairs []term.Term) term.Term {
	existing := h.sortedEntries(src)
	incoming := make([]mapEntry, 0, len(newPairs)/2)
	for i := 0; i < len(newPairs); i += 2 {
		incoming = append(incoming, mapEntry{newPairs[i], newPairs[i+1]})
	}
	merged := mergeEntries(h, existing, incoming)
	return h.buildMap(merged)
}

// PutMapExact implements put_map_exact: every key in pairs must already
// exist in src; returns (term.Invalid, false) otherwise (the caller raises
// badarg).
func (h *Heap) PutMapExact(src term.Term, pairs []term.Term) (term.Term, bool) {
	existing := h.sortedEntries(src)
	for i := 0; i < len(pairs); i += 2 {
		key := pairs[i]
		found := false
		for _, e := range existing {
			if Compare(h, e.key, key) == 0 {
				found = true
				break
			}
		}
		if !found {
			return term.Invalid, false
		}
	}
	for i := 0; i < len(pairs); i += 2 {
		key, val := pairs[i], pairs[i+1]
		for j := range existing {
			if Compare(h, existing[j].key, key) == 0 {
				existing[j].val = val
				break
			}
		}
	}
	return h.buildMap(existing), true
}

func mergeEntries(h *Heap, existing, incoming []mapEntry) []mapEntry {
	used := make([]bool, len(incoming))
	out := make([]mapEntry, 0, len(existing)+len(incoming))
	for _, e := range existing {
		replaced := false
		for i, n := range incoming {
			if used[i] {
				continue
			}
			if Compare(h, e.key, n.key) == 0 {
				out = append(out, n)
				used[i] = true
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	var fresh []mapEntry
	for i, n := range incoming {
		if !used[i] {
			fresh = append(fresh, n)
		}
	}
	out = append(out, fresh...)
	sortEntries(h, out)
	return out
}

func sortEntries(h *Heap, entries []mapEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && Compare(h, entries[j-1].key, entries[j].key) > 0; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

func (h *Heap) buildMap(entries []mapEntry) term.Term {
	m := h.NewMap(uint32(len(entries)))
	keys := h.MapKeysTuple(m)
	for i, e := range entries {
		h.PutTupleElement(keys, uint32(i), e.key)
		h.SetMapValueAt(m, uint32(i), e.val)
	}
	return m
}
