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
	"github.com/probeum/avm/bitstring"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/process"
)

// stepBitstring dispatches the bs_* family onto avm/bitstring's byte-aligned,
// unit-8, flags-0 builder/matcher. Every operand shape below follows the
// same convention: a leading Fail label for the instructions that can
// genuinely fail a match (insufficient bits, a literal mismatch), with unit
// and flags operands hardwired to the values the bitstring package actually
// implements — any other value surfaces as the unsupported atom rather than
// being silently approximated.
func (g *Global) stepBitstring(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	ops := instr.Operands
	h := ctx.Heap

	unsupported := func() StepResult {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUnsupported))
	}
	fail := func(failOp loader.Operand) StepResult {
		off, _ := g.labelOffset(ctx, failOp)
		ctx.IP = off
		return StepResult{Kind: StepContinue}
	}

	switch instr.Op {
	case loader.OpStartMatch2:
		src := g.value(ctx, ops[1])
		slots := int(ops[3].Value)
		writeReg(ctx, ops[4], bitstring.StartMatch(h, src, slots))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpStartMatch3:
		src := g.value(ctx, ops[1])
		writeReg(ctx, ops[3], bitstring.StartMatch(h, src, 0))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpStartMatch4:
		src := g.value(ctx, ops[1])
		writeReg(ctx, ops[2], bitstring.StartMatch(h, src, 0))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsGetInteger:
		ms := g.value(ctx, ops[1])
		sizeBytes := int(ops[2].Value)
		signed := ops[3].Value != 0
		v, ok, err := bitstring.GetInteger(h, ms, sizeBytes, 8, 0, signed)
		if err != nil {
			return unsupported()
		}
		if !ok {
			return fail(ops[0])
		}
		writeReg(ctx, ops[4], v)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsGetBinary:
		ms := g.value(ctx, ops[1])
		sizeBytes := int(ops[2].Value)
		v, ok, err := bitstring.GetBinary(h, ms, sizeBytes, 8, 0)
		if err != nil {
			return unsupported()
		}
		if !ok {
			return fail(ops[0])
		}
		writeReg(ctx, ops[4], v)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsSkipBits:
		ms := g.value(ctx, ops[1])
		sizeBytes := int(ops[2].Value)
		ok, err := bitstring.SkipBits(h, ms, sizeBytes, 8, 0)
		if err != nil {
			return unsupported()
		}
		if !ok {
			return fail(ops[0])
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsTestUnit:
		ms := g.value(ctx, ops[1])
		ok, err := bitstring.TestUnit(h, ms, int(ops[2].Value)/8)
		if err != nil {
			return unsupported()
		}
		if !ok {
			return fail(ops[0])
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsTestTail:
		ms := g.value(ctx, ops[1])
		if !bitstring.TestTail(h, ms, int(ops[2].Value)) {
			return fail(ops[0])
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsGetTail:
		ms := g.value(ctx, ops[0])
		v, err := bitstring.GetTail(h, ms)
		if err != nil {
			return unsupported()
		}
		writeReg(ctx, ops[1], v)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsMatchString:
		ms := g.value(ctx, ops[1])
		pattern := g.literalBytes(ctx, ops[2])
		if !bitstring.MatchString(h, ms, pattern) {
			return fail(ops[0])
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsSave:
		ms := g.value(ctx, ops[0])
		bitstring.Save(h, ms, int(ops[1].Value))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsRestore:
		ms := g.value(ctx, ops[0])
		bitstring.Restore(h, ms, int(ops[1].Value))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsGetPosition:
		ms := g.value(ctx, ops[0])
		writeReg(ctx, ops[1], h.NewInt(int64(bitstring.GetPosition(h, ms))))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsSetPosition:
		ms := g.value(ctx, ops[0])
		bitstring.SetPosition(h, ms, int(ops[1].Value))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsInit:
		b := bitstring.Init(h, int(ops[0].Value))
		g.bsCursor = b.Cursor
		writeReg(ctx, ops[2], b.Term)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsInitBits:
		b, err := bitstring.InitBits(h, int(ops[0].Value))
		if err != nil {
			return unsupported()
		}
		g.bsCursor = b.Cursor
		writeReg(ctx, ops[2], b.Term)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsAppend:
		src := g.value(ctx, ops[0])
		b, err := bitstring.Append(h, src, int(ops[1].Value), 8, 0)
		if err != nil {
			return unsupported()
		}
		g.bsCursor = b.Cursor
		writeReg(ctx, ops[3], b.Term)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsPutInteger:
		b := &bitstring.Builder{Term: h.BitstringBuild, Cursor: g.bsCursor}
		value := g.value(ctx, ops[4])
		if err := b.PutInteger(h, h.IntValue(value), int(ops[1].Value), int(ops[2].Value), int(ops[3].Value)); err != nil {
			return unsupported()
		}
		g.bsCursor = b.Cursor
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsPutBinary:
		b := &bitstring.Builder{Term: h.BitstringBuild, Cursor: g.bsCursor}
		src := g.value(ctx, ops[4])
		size := int(ops[1].Value)
		if err := b.PutBinary(h, src, size, int(ops[2].Value), int(ops[3].Value)); err != nil {
			return unsupported()
		}
		g.bsCursor = b.Cursor
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBsPutString:
		b := &bitstring.Builder{Term: h.BitstringBuild, Cursor: g.bsCursor}
		data := g.literalBytes(ctx, ops[1])
		if n := int(ops[0].Value); n >= 0 && n < len(data) {
			data = data[:n]
		}
		b.PutString(h, data)
		g.bsCursor = b.Cursor
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}
	}
	panic("vm: stepBitstring called for unhandled opcode")
}

// literalBytes reads a byte string out of the current module's Strings
// pool: o carries the byte offset, and the slice runs to the end of the
// pool. bs_put_string cuts it to its own length operand (ops[0]);
// bs_match_string passes it on uncut.
func (g *Global) literalBytes(ctx *process.Context, o loader.Operand) []byte {
	off := int(o.Value)
	if off < 0 || off > len(ctx.CurrentModule.Strings) {
		return nil
	}
	return ctx.CurrentModule.Strings[off:]
}
