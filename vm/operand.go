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

import (
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// regSlot resolves an XReg/YReg operand to the register it names. Y-register
// operands always address the currently active (innermost) frame, whose
// base is the heap's current stack pointer.
func regSlot(ctx *process.Context, o loader.Operand) *term.Term {
	switch o.Kind {
	case loader.KindXReg:
		return &ctx.XRegs[o.Reg]
	case loader.KindYReg:
		return ctx.Heap.YSlot(ctx.Heap.EStack, uint32(o.Reg))
	}
	return nil
}

// readReg returns the value an XReg/YReg operand names.
func readReg(ctx *process.Context, o loader.Operand) term.Term {
	return *regSlot(ctx, o)
}

// writeReg stores v into an XReg/YReg operand's register.
func writeReg(ctx *process.Context, o loader.Operand, v term.Term) {
	*regSlot(ctx, o) = v
}

// value resolves any non-register operand (literal, small int, atom) to a
// term.Term via the owning module's materialize environment.
func (g *Global) value(ctx *process.Context, o loader.Operand) term.Term {
	if o.Kind == loader.KindXReg || o.Kind == loader.KindYReg {
		return readReg(ctx, o)
	}
	if o.Kind == loader.KindSmallInt && o.Big != nil {
		return ctx.Heap.NewBigInt(o.BigValue())
	}
	return o.Term(ctx.CurrentModule.Env())
}

// labelOffset resolves a KindLabel operand to a code offset in the current
// module. Label 0 (used as a "no fail label, raise instead" sentinel by the
// test/bif family) is returned as ok=false.
func (g *Global) labelOffset(ctx *process.Context, o loader.Operand) (uint32, bool) {
	if o.Value == 0 {
		return 0, false
	}
	return ctx.CurrentModule.LabelOffset(uint32(o.Value))
}
