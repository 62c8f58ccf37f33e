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
	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// stepMakeFun builds a closure over the current module's code from a FunT
// table entry, the runtime counterpart to call_fun's freeze-placement:
// make_fun2 names only the entry index and always lands the closure in x0,
// with the free variables already sitting contiguously in x0..NumFree-1;
// make_fun3 additionally names the destination register and the exact list
// of registers to capture, for frees the compiler couldn't place
// contiguously from x0.
func (g *Global) stepMakeFun(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	ops := instr.Operands
	mod := ctx.CurrentModule

	idx := uint32(ops[0].Value)
	if int(idx) >= len(mod.Functions) {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadfun))
	}
	fe := mod.Functions[idx]

	var dst loader.Operand
	var freeze []term.Term
	switch instr.Op {
	case loader.OpMakeFun2:
		dst = loader.Operand{Kind: loader.KindXReg, Reg: 0}
		freeze = make([]term.Term, fe.NumFree)
		copy(freeze, ctx.XRegs[:fe.NumFree])

	case loader.OpMakeFun3:
		dst = ops[1]
		regs := ops[3:] // ops[2] is the group-count operand
		freeze = make([]term.Term, len(regs))
		for i, r := range regs {
			freeze[i] = readReg(ctx, r)
		}
	}

	visibleArity := fe.Arity
	if visibleArity >= uint32(len(freeze)) {
		visibleArity -= uint32(len(freeze))
	}
	closure := ctx.Heap.NewClosure(term.FromAtom(mod.Atom), term.FromSmallInt(int64(fe.Label)), visibleArity, freeze)
	writeReg(ctx, dst, closure)
	ctx.IP = nextIP
	return StepResult{Kind: StepContinue}
}
