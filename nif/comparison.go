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

package nif

import (
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// registerComparisonBIFs wires the eight relational operators over the total
// term ordering: '==' and '/=' compare structurally
// (2 == 2.0), while '=:=' and '=/=' require exact type match. None of these
// allocate, so they're plain BIFs, not GC-BIFs.
func (r *Registry) registerComparisonBIFs() {
	r.registerBIF("erlang", "==", 2, false, cmpBIF(func(c int) bool { return c == 0 }, false))
	r.registerBIF("erlang", "/=", 2, false, cmpBIF(func(c int) bool { return c != 0 }, false))
	r.registerBIF("erlang", "=:=", 2, false, cmpBIF(func(c int) bool { return c == 0 }, true))
	r.registerBIF("erlang", "=/=", 2, false, cmpBIF(func(c int) bool { return c != 0 }, true))
	r.registerBIF("erlang", "<", 2, false, cmpBIF(func(c int) bool { return c < 0 }, false))
	r.registerBIF("erlang", "=<", 2, false, cmpBIF(func(c int) bool { return c <= 0 }, false))
	r.registerBIF("erlang", ">", 2, false, cmpBIF(func(c int) bool { return c > 0 }, false))
	r.registerBIF("erlang", ">=", 2, false, cmpBIF(func(c int) bool { return c >= 0 }, false))
}

func cmpBIF(pred func(int) bool, exact bool) Func {
	return func(ctx *process.Context, args []term.Term) term.Term {
		h := ctx.Heap
		if exact {
			typeMismatch := h.IsFloat(args[0]) != h.IsFloat(args[1]) &&
				isNumber(h, args[0]) && isNumber(h, args[1])
			if typeMismatch {
				return boolTerm(pred(1)) // distinct types never compare equal
			}
		}
		return boolTerm(pred(heap.Compare(h, args[0], args[1])))
	}
}
