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

// Package term implements the tagged-word value representation shared by
// every process heap in the VM. A Term is always exactly one machine word;
// boxed values live on a heap and are referenced through a boxed pointer.
package term

// Term is the uniform, one-word value representation. The low bits carry a
// tag; the remaining bits carry either an immediate payload or an index into
// a heap (list cell, boxed object).
type Term uint64

const (
	tagMask = 0x7

	tagSmallInt  = 0x1 // ...xxx1
	tagAtom      = 0x2 // ...x010
	tagListCell  = 0x4 // ...x100
	tagBoxed     = 0x0 // ...x000
	tagImmediate = 0x6 // ...x110 (pid/port space, reserved)
)

// Invalid is the sentinel returned by constructors that failed to allocate.
const Invalid Term = ^Term(0)

// Nil is the empty-list atom: atom id 0.
const Nil Term = Term(0<<3) | tagAtom

const (
	smallIntShift = 3
	// MaxSmall and MinSmall bound the immediate small-integer range: the
	// payload is a signed value in the remaining 61 bits after the 3-bit tag.
	MaxSmall = int64(1)<<60 - 1
	MinSmall = -(int64(1) << 60)
)

// FromSmallInt builds an immediate small-integer term. The caller must have
// already checked v is within [MinSmall, MaxSmall]; IsSmallInt + the boxed
// big-integer constructors in box.go handle promotion for callers that
// haven't.
func FromSmallInt(v int64) Term {
	return Term(uint64(v)<<smallIntShift) | tagSmallInt
}

// FitsSmall reports whether v can be represented as an immediate small int.
func FitsSmall(v int64) bool {
	return v >= MinSmall && v <= MaxSmall
}

// ToSmallInt extracts the signed payload of an immediate small integer.
func ToSmallInt(t Term) int64 {
	return int64(t) >> smallIntShift
}

// IsSmallInt reports whether t is an immediate small integer.
func IsSmallInt(t Term) bool {
	return t&1 == tagSmallInt
}

// FromAtom builds an atom-reference term from a global atom id.
func FromAtom(id uint32) Term {
	return Term(uint64(id)<<smallIntShift) | tagAtom
}

// IsAtom reports whether t is an atom reference.
func IsAtom(t Term) bool {
	return t&tagMask == tagAtom
}

// AtomID extracts the atom id of an atom-reference term.
func AtomID(t Term) uint32 {
	return uint32(t >> smallIntShift)
}

// IsNil reports whether t is the empty list / nil atom.
func IsNil(t Term) bool {
	return t == Nil
}

// IsList reports whether t is nil or a non-empty list cell (a proper or
// improper list head).
func IsList(t Term) bool {
	return IsNil(t) || IsNonemptyList(t)
}

// IsNonemptyList reports whether t points at a cons cell.
func IsNonemptyList(t Term) bool {
	return t&tagMask == tagListCell
}

// FromListPointer builds a list-cell term from a heap cell index (a word
// offset into the owning process's heap region).
func FromListPointer(offset uint32) Term {
	return Term(uint64(offset)<<smallIntShift) | tagListCell
}

// ListOffset extracts the heap word offset of a list-cell term.
func ListOffset(t Term) uint32 {
	return uint32(t >> smallIntShift)
}

// IsBoxed reports whether t is a pointer to a boxed heap object.
func IsBoxed(t Term) bool {
	return t&tagMask == tagBoxed && t != 0
}

// FromBoxedPointer builds a boxed term from a heap word offset pointing at
// the object's header word.
func FromBoxedPointer(offset uint32) Term {
	return Term(uint64(offset) << smallIntShift)
}

// BoxedOffset extracts the heap word offset of a boxed term.
func BoxedOffset(t Term) uint32 {
	return uint32(t >> smallIntShift)
}

// FromPid builds a pid-reference term from a process id, assigned
// monotonically by the global context's pid allocator and never reused
// within a session. Ports occupy the same reserved immediate
// tag space but are never constructed: this VM has no port-owning entities
// (file/socket drivers are out of scope), so the "port" rank in the total
// ordering is never actually observed at runtime.
func FromPid(id uint32) Term {
	return Term(uint64(id)<<smallIntShift) | tagImmediate
}

// IsPid reports whether t is a pid reference.
func IsPid(t Term) bool {
	return t&tagMask == tagImmediate
}

// PidID extracts the process id of a pid reference.
func PidID(t Term) uint32 {
	return uint32(t >> smallIntShift)
}

// IsBoolean reports whether t is the true or false atom; callers supply the
// interned ids (boolean identity depends on the atom table's assignment).
func IsBoolean(t Term, trueID, falseID uint32) bool {
	return IsAtom(t) && (AtomID(t) == trueID || AtomID(t) == falseID)
}

// IsNumber reports whether t is a small int or a boxed big/float. kindOf is
// supplied by the heap package (term has no heap access of its own).
func IsNumber(t Term, kindOf func(Term) (BoxKind, bool)) bool {
	if IsSmallInt(t) {
		return true
	}
	if !IsBoxed(t) {
		return false
	}
	k, ok := kindOf(t)
	return ok && (k == KindPosBig || k == KindNegBig || k == KindFloat)
}
