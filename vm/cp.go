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

package vm

import "github.com/probeum/avm/term"

// CP and catch-label words are produced and consumed only here, not by
// avm/term: they pack (module index, code offset) into the two tag bit
// patterns term.go leaves unused (0x3 and 0x5), so a stray CP or catch word
// sitting in a y-slot is never mistaken for an ordinary term by the
// collector or by term.IsBoxed/IsAtom/etc.
const (
	tagCP    = 0x3
	tagCatch = 0x5
	cpTagMask = 0x7
)

// sentinelModule marks the CP a freshly spawned process starts with: its
// outermost return lands here, meaning the process's own entry call
// returned and it should terminate normally rather than jump anywhere.
const sentinelModule = ^uint32(0)

func encodeCP(tag uint64, moduleIndex, offset uint32) term.Term {
	return term.Term(tag | (uint64(offset) << 3) | (uint64(moduleIndex) << 35))
}

func decodeCPWord(t term.Term, tag uint64) (moduleIndex, offset uint32, ok bool) {
	if uint64(t)&cpTagMask != tag {
		return 0, 0, false
	}
	offset = uint32((uint64(t) >> 3) & 0xFFFFFFFF)
	moduleIndex = uint32(uint64(t) >> 35)
	return moduleIndex, offset, true
}

// sentinelCP is the CP value pushed under a freshly spawned process's entry
// call, standing in for "the scheduler, not another frame".
func sentinelCP() term.Term {
	return encodeCP(tagCP, sentinelModule, 0)
}

func newCP(moduleIndex, offset uint32) term.Term { return encodeCP(tagCP, moduleIndex, offset) }

func decodeCP(t term.Term) (moduleIndex, offset uint32, isSentinel bool) {
	moduleIndex, offset, _ = decodeCPWord(t, tagCP)
	return moduleIndex, offset, moduleIndex == sentinelModule
}

// newCatchFrame encodes what a catch/try instruction writes into its
// designated y-slot: the module and label the matching catch_end/try_end
// lands at, plus whether the protected block was a try (class/reason/stack
// delivered to registers) vs. a plain catch (a single wrapped value).
func newCatchFrame(moduleIndex, label uint32, isTry bool) term.Term {
	v := uint64(tagCatch) | uint64(moduleIndex)<<35 | uint64(label)<<4
	if isTry {
		v |= 0x8
	}
	return term.Term(v)
}

func decodeCatchFrame(t term.Term) (moduleIndex, label uint32, isTry bool, ok bool) {
	if uint64(t)&cpTagMask != tagCatch {
		return 0, 0, false, false
	}
	isTry = uint64(t)&0x8 != 0
	label = uint32((uint64(t) >> 4) & 0x7FFFFFFF)
	moduleIndex = uint32(uint64(t) >> 35)
	return moduleIndex, label, isTry, true
}

func isCP(t term.Term) bool {
	return uint64(t)&cpTagMask == tagCP
}

func isCatchFrame(t term.Term) bool {
	return uint64(t)&cpTagMask == tagCatch
}
