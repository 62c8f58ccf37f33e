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

package process

import (
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/term"
)

// Mailbox is a FIFO message queue with a save buffer, implementing the
// peek/remove/save semantics of the receive instruction family. loop_rec always peeks
// the current head; loop_rec_end moves that head into the save buffer
// (revealing the next message) and retries; a successful match
// (remove_message) drops the head and restores the save buffer to the
// front, in original order; a timed-out receive (timeout) restores the
// save buffer without dropping anything.
type Mailbox struct {
	messages []term.Term
	save     []term.Term
}

// Enqueue appends msg to the tail of the mailbox (a delivered send).
func (m *Mailbox) Enqueue(msg term.Term) {
	m.messages = append(m.messages, msg)
}

// Empty reports whether there is no message left to examine.
func (m *Mailbox) Empty() bool {
	return len(m.messages) == 0
}

// Peek returns the current head message without removing it, for loop_rec.
func (m *Mailbox) Peek() (term.Term, bool) {
	if len(m.messages) == 0 {
		return term.Invalid, false
	}
	return m.messages[0], true
}

// SkipToSave is loop_rec_end: the current message didn't match this
// receive clause, so set it aside and look at the next one.
func (m *Mailbox) SkipToSave() {
	if len(m.messages) == 0 {
		return
	}
	m.save = append(m.save, m.messages[0])
	m.messages = m.messages[1:]
}

// RemoveCurrent is remove_message: the current head matched, so drop it and
// flush the save buffer back to the front in original order.
func (m *Mailbox) RemoveCurrent() {
	if len(m.messages) > 0 {
		m.messages = m.messages[1:]
	}
	m.flush()
}

// Timeout is the timeout instruction: no message matched before the timer
// fired, so flush the save buffer back without dropping anything.
func (m *Mailbox) Timeout() {
	m.flush()
}

func (m *Mailbox) flush() {
	if len(m.save) == 0 {
		return
	}
	restored := make([]term.Term, 0, len(m.save)+len(m.messages))
	restored = append(restored, m.save...)
	restored = append(restored, m.messages...)
	m.messages = restored
	m.save = m.save[:0]
}

// Roots returns a GC root for every message body currently held, whether
// still in the main queue or set aside in the save buffer.
func (m *Mailbox) Roots() []heap.Root {
	roots := make([]heap.Root, 0, len(m.messages)+len(m.save))
	for i := range m.messages {
		roots = append(roots, heap.Root{Slot: &m.messages[i]})
	}
	for i := range m.save {
		roots = append(roots, heap.Root{Slot: &m.save[i]})
	}
	return roots
}
