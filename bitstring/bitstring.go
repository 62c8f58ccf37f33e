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

// Package bitstring implements the construction and matching operations the
// bs_* instruction family needs. Every operation here
// supports only byte-aligned, unit-8, zero-flags segments; anything a real
// bit-level match/construct would need (arbitrary unit, signed/native
// endianness flags other than big-endian, sub-byte offsets) reports
// ErrUnsupported instead of being approximated.
package bitstring

import (
	"errors"
	"math/big"

	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/term"
)

// ErrUnsupported is returned for any segment shape outside the byte-aligned,
// unit-8, flags-0 subset this VM implements.
var ErrUnsupported = errors.New("bitstring: unsupported segment")

// Builder tracks an in-progress binary under construction. The backing term
// is always a fixed-size, zero-filled binary allocated up front (the total
// size of every put_* call a builder will receive is known from the
// bs_init/bs_init_bits operand before any put happens); Cursor is the
// write position in bytes.
type Builder struct {
	Term   term.Term
	Cursor int
}

// Init starts a new build of a fixed sizeBytes-long binary, rooting it in
// h.BitstringBuild so GC keeps it alive across the sequence of put_*
// instructions that follow.
func Init(h *heap.Heap, sizeBytes int) *Builder {
	t := h.NewBinary(make([]byte, sizeBytes))
	h.BitstringBuild = t
	return &Builder{Term: t}
}

// InitBits is bs_init_bits: sizeBits must be a multiple of 8, per the
// byte-aligned restriction.
func InitBits(h *heap.Heap, sizeBits int) (*Builder, error) {
	if sizeBits%8 != 0 {
		return nil, ErrUnsupported
	}
	return Init(h, sizeBits/8), nil
}

// Append is bs_append: copies src's bytes into a new, larger binary with
// extraBytes of fresh zeroed room after them, and continues the build there.
// unit and flags are the instruction's operands, checked against the
// byte-aligned/unit-8/flags-0 restriction.
func Append(h *heap.Heap, src term.Term, extraBytes, unit, flags int) (*Builder, error) {
	if unit != 8 || flags != 0 {
		return nil, ErrUnsupported
	}
	base := h.BinaryData(src)
	buf := make([]byte, len(base)+extraBytes)
	copy(buf, base)
	t := h.NewBinary(buf)
	h.BitstringBuild = t
	return &Builder{Term: t, Cursor: len(base)}, nil
}

// PutInteger is bs_put_integer: writes value's low sizeBytes bytes,
// big-endian, at the builder's cursor. unit and flags are checked against
// the byte-aligned/unit-8/flags-0 restriction (so "size" is always a whole
// byte count already, not a bit count needing unit multiplication).
func (b *Builder) PutInteger(h *heap.Heap, value *big.Int, sizeBytes, unit, flags int) error {
	if unit != 8 || flags != 0 {
		return ErrUnsupported
	}
	buf := make([]byte, sizeBytes)
	fillBigEndian(buf, value)
	h.WriteBinaryBytes(b.Term, b.Cursor, buf)
	b.Cursor += sizeBytes
	return nil
}

// PutBinary is bs_put_binary: copies all of src's bytes at the cursor (size
// -1 / "all") or exactly sizeBytes of them.
func (b *Builder) PutBinary(h *heap.Heap, src term.Term, sizeBytes int, unit, flags int) error {
	if unit != 8 || flags != 0 {
		return ErrUnsupported
	}
	data := h.BinaryData(src)
	if sizeBytes >= 0 {
		if sizeBytes > len(data) {
			return ErrUnsupported
		}
		data = data[:sizeBytes]
	}
	h.WriteBinaryBytes(b.Term, b.Cursor, data)
	b.Cursor += len(data)
	return nil
}

// PutString is bs_put_string: copies a literal byte string at the cursor.
func (b *Builder) PutString(h *heap.Heap, data []byte) {
	h.WriteBinaryBytes(b.Term, b.Cursor, data)
	b.Cursor += len(data)
}

// fillBigEndian packs v's two's-complement representation into buf,
// big-endian, truncating or sign/zero-extending to len(buf) bytes.
func fillBigEndian(buf []byte, v *big.Int) {
	if v.Sign() >= 0 {
		raw := v.Bytes()
		copyTail(buf, raw)
		return
	}
	bits := uint(len(buf)) * 8
	mod := new(big.Int).Lsh(big.NewInt(1), bits)
	mod.Add(mod, v)
	raw := mod.Bytes()
	copyTail(buf, raw)
}

func copyTail(dst, src []byte) {
	if len(src) >= len(dst) {
		copy(dst, src[len(src)-len(dst):])
		return
	}
	copy(dst[len(dst)-len(src):], src)
}

// StartMatch begins matching over src (a binary or sub-binary), allocating a
// match-state with nSlots save slots, all initially unset.
func StartMatch(h *heap.Heap, src term.Term, nSlots int) term.Term {
	return h.NewMatchState(src, uint32(nSlots))
}

// GetInteger is bs_get_integer: reads sizeBytes bytes at the match-state's
// current position as a big-endian integer, advancing the position. ok is
// false (not an error) when the match simply doesn't have enough bits left,
// which the interpreter turns into a branch to the instruction's fail
// label rather than an exception.
func GetInteger(h *heap.Heap, ms term.Term, sizeBytes, unit, flags int, signed bool) (term.Term, bool, error) {
	if unit != 8 || flags != 0 {
		return term.Invalid, false, ErrUnsupported
	}
	bitOff := h.MatchStateOffset(ms)
	if bitOff%8 != 0 {
		return term.Invalid, false, ErrUnsupported
	}
	byteOff := bitOff / 8
	data := h.BinaryData(h.MatchStateBinary(ms))
	if byteOff+sizeBytes > len(data) {
		return term.Invalid, false, nil
	}
	chunk := data[byteOff : byteOff+sizeBytes]
	v := new(big.Int).SetBytes(chunk)
	if signed && sizeBytes > 0 && chunk[0]&0x80 != 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(sizeBytes)*8)
		v.Sub(v, full)
	}
	h.SetMatchStateOffset(ms, bitOff+sizeBytes*8)
	if v.IsInt64() {
		return h.NewInt(v.Int64()), true, nil
	}
	return h.NewBigInt(v), true, nil
}

// GetBinary is bs_get_binary: carves out the next sizeBytes bytes as a
// sub-binary view, advancing the position.
func GetBinary(h *heap.Heap, ms term.Term, sizeBytes, unit, flags int) (term.Term, bool, error) {
	if unit != 8 || flags != 0 {
		return term.Invalid, false, ErrUnsupported
	}
	bitOff := h.MatchStateOffset(ms)
	if bitOff%8 != 0 {
		return term.Invalid, false, ErrUnsupported
	}
	byteOff := bitOff / 8
	bin := h.MatchStateBinary(ms)
	if byteOff+sizeBytes > h.BinarySize(bin) {
		return term.Invalid, false, nil
	}
	sub := h.NewSubBinary(bin, byteOff, sizeBytes)
	h.SetMatchStateOffset(ms, bitOff+sizeBytes*8)
	return sub, true, nil
}

// SkipBits is bs_skip_bits: advances the position by sizeBytes bytes
// without producing a term.
func SkipBits(h *heap.Heap, ms term.Term, sizeBytes, unit, flags int) (bool, error) {
	if unit != 8 || flags != 0 {
		return false, ErrUnsupported
	}
	bitOff := h.MatchStateOffset(ms)
	if bitOff%8 != 0 {
		return false, ErrUnsupported
	}
	byteOff := bitOff / 8
	if byteOff+sizeBytes > h.BinarySize(h.MatchStateBinary(ms)) {
		return false, nil
	}
	h.SetMatchStateOffset(ms, bitOff+sizeBytes*8)
	return true, nil
}

// TestUnit is bs_test_unit: checks the number of bytes remaining is a
// multiple of unit bytes (unit here is already in byte terms, since the
// instruction's own unit operand is required to be 8).
func TestUnit(h *heap.Heap, ms term.Term, unit int) (bool, error) {
	if unit != 1 {
		return false, ErrUnsupported
	}
	return true, nil
}

// TestTail is bs_test_tail: succeeds iff exactly sizeBytes bytes remain.
func TestTail(h *heap.Heap, ms term.Term, sizeBytes int) bool {
	bitOff := h.MatchStateOffset(ms)
	byteOff := bitOff / 8
	remaining := h.BinarySize(h.MatchStateBinary(ms)) - byteOff
	return remaining == sizeBytes
}

// GetTail is bs_get_tail: returns the remainder of the binary from the
// current position as a sub-binary, consuming it all.
func GetTail(h *heap.Heap, ms term.Term) (term.Term, error) {
	bitOff := h.MatchStateOffset(ms)
	if bitOff%8 != 0 {
		return term.Invalid, ErrUnsupported
	}
	byteOff := bitOff / 8
	bin := h.MatchStateBinary(ms)
	size := h.BinarySize(bin)
	sub := h.NewSubBinary(bin, byteOff, size-byteOff)
	h.SetMatchStateOffset(ms, size*8)
	return sub, nil
}

// MatchString is bs_match_string: succeeds iff the next len(pattern) bytes
// equal pattern exactly, advancing the position on success.
func MatchString(h *heap.Heap, ms term.Term, pattern []byte) bool {
	bitOff := h.MatchStateOffset(ms)
	if bitOff%8 != 0 {
		return false
	}
	byteOff := bitOff / 8
	data := h.BinaryData(h.MatchStateBinary(ms))
	if byteOff+len(pattern) > len(data) {
		return false
	}
	for i, b := range pattern {
		if data[byteOff+i] != b {
			return false
		}
	}
	h.SetMatchStateOffset(ms, bitOff+len(pattern)*8)
	return true
}

// GetPosition and SetPosition are bs_get_position/bs_set_position: the
// match-state's byte offset, exposed directly for opcodes that snapshot and
// rewind a match without going through a named save slot.
func GetPosition(h *heap.Heap, ms term.Term) int { return h.MatchStateOffset(ms) / 8 }
func SetPosition(h *heap.Heap, ms term.Term, byteOff int) {
	h.SetMatchStateOffset(ms, byteOff*8)
}

// Save and Restore are bs_save/bs_restore: named checkpoints of the current
// position, used to backtrack across failed alternative clauses.
func Save(h *heap.Heap, ms term.Term, slot int) {
	h.MatchStateSave(ms, slot, h.MatchStateOffset(ms))
}
func Restore(h *heap.Heap, ms term.Term, slot int) {
	h.SetMatchStateOffset(ms, h.MatchStateRestore(ms, slot))
}
