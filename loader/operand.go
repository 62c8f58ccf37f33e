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

package loader

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/probeum/avm/term"
)

// ErrBadOperand is returned for an operand tag byte this decoder doesn't
// recognize; unknown encodings are fatal to the load.
var ErrBadOperand = errors.New("loader: unknown operand encoding")

// Kind identifies the broad operand kind carried by the low 3 bits of a tag
// byte (bit 3 of the byte selects between the inline and wide immediate
// forms within the same kind, as DecodeOperand reads them).
type Kind uint8

const (
	KindLiteral Kind = iota
	KindSmallInt
	KindAtom
	KindXReg
	KindYReg
	KindLabel
	KindChar
	KindExtended
)

// Operand is the structured result of decoding one instruction operand.
// DecodeOperand always fills every field; the loader's label-table walk
// reads only Len, while the interpreter uses Kind/Value/Reg/LiteralIdx and
// turns the operand into a term through Operand.Term.
type Operand struct {
	Kind       Kind
	Value      int64 // small int / label number / atom-inline index / char
	Reg        uint16
	FromTable  bool     // true when LiteralIdx/atom-index came from a wide/extended form
	LiteralIdx uint32   // index into the module's literal table, or a local atom index
	Big        *big.Int // N-byte big-endian form of a large integer, when it doesn't fit Value
	Len        int      // bytes consumed from the instruction stream, including the tag byte
}

// DecodeOperand decodes exactly one operand starting at code[off]. It is
// the single shared decoder both the loader and interpreter need: the loader's
// label-building pass only needs Operand.Len, the interpreter additionally
// uses the rest.
func DecodeOperand(code []byte, off int) (Operand, error) {
	if off >= len(code) {
		return Operand{}, fmt.Errorf("%w: truncated instruction stream", ErrBadOperand)
	}
	b := code[off]
	tag3 := Kind(b & 0x07)
	if tag3 == KindExtended {
		return decodeExtended(code, off)
	}

	switch {
	case b&0x08 == 0:
		// 4-bit inline immediate, sign-extended.
		v := int64(int8(b)) >> 4
		return Operand{Kind: tag3, Value: v, Reg: uint16(v), Len: 1}, nil

	case b&0x10 == 0:
		// 11-bit immediate: 3 bits from the tag byte, 8 from the next.
		if off+1 >= len(code) {
			return Operand{}, fmt.Errorf("%w: truncated 11-bit operand", ErrBadOperand)
		}
		v := (int64(b&0xE0) << 3) | int64(code[off+1])
		return Operand{Kind: tag3, Value: v, Reg: uint16(v), Len: 2}, nil

	default:
		// Wide form: either an N-byte big-endian integer/index, or the
		// "huge" escape when the size field reads as 7.
		sizeField := b >> 5
		if sizeField == 7 {
			if off+1 >= len(code) {
				return Operand{}, fmt.Errorf("%w: truncated huge-size operand", ErrBadOperand)
			}
			n := int(code[off+1])
			if off+2+n > len(code) {
				return Operand{}, fmt.Errorf("%w: truncated huge operand payload", ErrBadOperand)
			}
			return bigOperand(tag3, code[off+2:off+2+n], 2+n), nil
		}
		n := int(sizeField) + 2
		if off+1+n > len(code) {
			return Operand{}, fmt.Errorf("%w: truncated wide operand payload", ErrBadOperand)
		}
		return bigOperand(tag3, code[off+1:off+1+n], 1+n), nil
	}
}

func bigOperand(kind Kind, payload []byte, totalLen int) Operand {
	switch kind {
	case KindLiteral, KindAtom:
		idx := uint32(0)
		for _, bb := range payload {
			idx = idx<<8 | uint32(bb)
		}
		return Operand{Kind: kind, FromTable: true, LiteralIdx: idx, Len: totalLen}
	default:
		v := twosComplementBigEndian(payload)
		if v.IsInt64() {
			return Operand{Kind: kind, Value: v.Int64(), Len: totalLen}
		}
		return Operand{Kind: kind, Big: v, Len: totalLen}
	}
}

func twosComplementBigEndian(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		full := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		v.Sub(v, full)
	}
	return v
}

// decodeExtended handles the tag-7 "z" escape: a sub-tag byte followed by a
// kind-specific payload. This implementation supports the two extended
// sub-forms the interpreter actually needs (an extended literal-table
// reference, used by put_tuple2/select-style variable-length lists, and an
// extended list-length count); every other sub-tag is fatal, since
// newer-revision opcodes that would need them are out of this VM's scope.
func decodeExtended(code []byte, off int) (Operand, error) {
	if off+1 >= len(code) {
		return Operand{}, fmt.Errorf("%w: truncated extended operand", ErrBadOperand)
	}
	sub := code[off+1]
	switch sub {
	case 0: // list-length count, itself encoded as a following literal operand
		inner, err := DecodeOperand(code, off+2)
		if err != nil {
			return Operand{}, err
		}
		inner.Len += 2
		inner.Kind = KindLiteral
		return inner, nil
	case 3: // literal-table reference
		inner, err := DecodeOperand(code, off+2)
		if err != nil {
			return Operand{}, err
		}
		inner.Len += 2
		inner.Kind = KindLiteral
		inner.FromTable = true
		inner.LiteralIdx = uint32(inner.Value)
		return inner, nil
	default:
		return Operand{}, fmt.Errorf("%w: unsupported extended sub-form %d", ErrBadOperand, sub)
	}
}

// Term materializes the operand into a runtime term.Term. env supplies the
// callbacks needed for the forms that depend on interpreter state: atom
// lookups are by local index (mapped to global ids by the module) and
// literal-table loads read the module's literal heap.
type MaterializeEnv struct {
	LocalAtomToGlobal func(localIdx uint32) uint32
	Literal           func(idx uint32) term.Term
}

// Term resolves a decoded Operand to a term.Term using env. XReg/YReg/Label
// operands are not terms; callers branch on Kind before calling Term for
// those (see vm/interp.go's operand dispatch).
func (o Operand) Term(env MaterializeEnv) term.Term {
	switch o.Kind {
	case KindLiteral:
		if o.FromTable {
			return env.Literal(o.LiteralIdx)
		}
		return term.FromSmallInt(o.Value)
	case KindSmallInt:
		if o.Big != nil {
			return term.Invalid // caller must use BigValue() and box it; arithmetic-scale literal
		}
		return term.FromSmallInt(o.Value)
	case KindAtom:
		if !o.FromTable && o.Value == 0 {
			return term.Nil
		}
		localIdx := uint32(o.Value)
		if o.FromTable {
			localIdx = o.LiteralIdx
		}
		return term.FromAtom(env.LocalAtomToGlobal(localIdx))
	}
	return term.Invalid
}

// BigValue returns the arbitrary-precision integer value of a KindSmallInt
// operand that overflowed an int64 (the N-byte big-endian large-integer
// form used for tag 9).
func (o Operand) BigValue() *big.Int {
	if o.Big != nil {
		return o.Big
	}
	return big.NewInt(o.Value)
}
