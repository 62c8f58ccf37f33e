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

// Put implements erlang:put/2: associates key with val, returning the
// previous value (or the nil atom if key was unset), matching real
// erlang:put's return convention.
func (c *Context) Put(h *heap.Heap, key, val term.Term) term.Term {
	for i := range c.Dictionary {
		if heap.Equal(h, c.Dictionary[i].Key, key) {
			old := c.Dictionary[i].Val
			c.Dictionary[i].Val = val
			return old
		}
	}
	c.Dictionary = append(c.Dictionary, DictEntry{Key: key, Val: val})
	return term.Nil
}

// Get implements erlang:get/1: looks up key, reporting whether it's set.
func (c *Context) Get(h *heap.Heap, key term.Term) (term.Term, bool) {
	for _, e := range c.Dictionary {
		if heap.Equal(h, e.Key, key) {
			return e.Val, true
		}
	}
	return term.Invalid, false
}

// GetAll implements erlang:get/0: every {Key, Val} pair as a list, built
// freshly on h (typically the calling process's own heap).
func (c *Context) GetAll(h *heap.Heap) term.Term {
	out := term.Nil
	for i := len(c.Dictionary) - 1; i >= 0; i-- {
		pair := h.NewTuple(2)
		h.PutTupleElement(pair, 0, c.Dictionary[i].Key)
		h.PutTupleElement(pair, 1, c.Dictionary[i].Val)
		out = h.Cons(pair, out)
	}
	return out
}

// Erase implements erlang:erase/1: removes key, returning its prior value
// (or the nil atom if it was unset).
func (c *Context) Erase(h *heap.Heap, key term.Term) term.Term {
	for i, e := range c.Dictionary {
		if heap.Equal(h, e.Key, key) {
			c.Dictionary = append(c.Dictionary[:i], c.Dictionary[i+1:]...)
			return e.Val
		}
	}
	return term.Nil
}
