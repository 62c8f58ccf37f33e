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
	"github.com/holiman/uint256"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// stepMessaging dispatches send and the full receive family: loop_rec,
// loop_rec_end, wait, wait_timeout, remove_message, timeout, recv_mark,
// recv_set. A receive loop in compiled code always has this shape:
//
//	recv_mark L1
//	loop_rec L2, Dst      (L2: no message, suspend)
//	<match against Dst, either falling to loop_rec_end or to remove_message>
//	loop_rec_end L1       (didn't match, set aside, retry)
//	...
//	L2: wait L1  /  wait_timeout L1, Timeout
//
// recv_mark/recv_set exist in real BEAM purely to let loop_rec skip
// re-scanning from the mailbox head on a retry; this VM's Mailbox already
// tracks its own head/save split so they are no-ops here.
func (g *Global) stepMessaging(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	ops := instr.Operands

	switch instr.Op {
	case loader.OpSend:
		to := ctx.XRegs[0]
		msg := ctx.XRegs[1]
		g.Sched.Send(ctx.Heap, to, msg)
		ctx.XRegs[0] = msg
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpLoopRec:
		msg, ok := ctx.Mailbox.Peek()
		if !ok {
			off, _ := g.labelOffset(ctx, ops[0])
			ctx.IP = off
			return StepResult{Kind: StepContinue}
		}
		writeReg(ctx, ops[1], msg)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpLoopRecEnd:
		ctx.Mailbox.SkipToSave()
		off, _ := g.labelOffset(ctx, ops[0])
		ctx.IP = off
		return StepResult{Kind: StepContinue}

	case loader.OpRemoveMessage:
		ctx.Mailbox.RemoveCurrent()
		ctx.Flags.Clear(process.FlagWaitingTimeout)
		ctx.Flags.Clear(process.FlagWaitingTimeoutExpired)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpTimeout:
		ctx.Mailbox.Timeout()
		ctx.Flags.Clear(process.FlagWaitingTimeout)
		ctx.Flags.Clear(process.FlagWaitingTimeoutExpired)
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpRecvMark, loader.OpRecvSet:
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpWait:
		off, _ := g.labelOffset(ctx, ops[0])
		ctx.IP = off
		ctx.Flags.Set(process.FlagWaitingTimeout)
		g.Sched.Block(ctx.Pid)
		return StepResult{Kind: StepYield}

	case loader.OpWaitTimeout:
		off, _ := g.labelOffset(ctx, ops[0])
		ctx.IP = off
		ctx.Flags.Set(process.FlagWaitingTimeout)
		g.Sched.Block(ctx.Pid)
		if ms, ok := g.timeoutTicks(ctx, ops[1]); ok {
			g.Sched.ArmTimeout(ctx.Pid, g.Clock(), ms)
		}
		return StepResult{Kind: StepYield}
	}
	panic("vm: stepMessaging called for unhandled opcode")
}

// timeoutTicks reads a wait_timeout operand: the atom 'infinity' arms no
// timer (ok is false), otherwise it is a non-negative integer millisecond
// count, interpreted directly as logical clock ticks.
func (g *Global) timeoutTicks(ctx *process.Context, o loader.Operand) (*uint256.Int, bool) {
	v := g.value(ctx, o)
	if term.IsAtom(v) && term.AtomID(v) == atomtable.IDInfinity {
		return nil, false
	}
	if term.IsSmallInt(v) {
		return uint256.NewInt(uint64(term.ToSmallInt(v))), true
	}
	return uint256.NewInt(uint64(ctx.Heap.IntValue(v).Int64())), true
}
