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
	"github.com/probeum/avm/heap"
	"github.com/probeum/avm/loader"
	"github.com/probeum/avm/nif"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// StepKind is the outcome of one call to Step.
type StepKind int

const (
	// StepContinue means the process has more instructions to run this
	// quantum; the driver loop should decrement the reduction count and
	// call Step again.
	StepContinue StepKind = iota
	// StepYield means the process blocked (wait/wait_timeout with no
	// message ready) and was moved to the scheduler's waiting set; the
	// driver loop must pick a different process.
	StepYield
	// StepTerminated means the process ran off the end of its own entry
	// call (normal) or hit an uncaught exception; Reason carries the exit
	// reason the driver loop hands to Scheduler.Terminate.
	StepTerminated
)

// StepResult is Step's return value: an explicit state machine in place of
// a monolithic loop with embedded control flow.
type StepResult struct {
	Kind   StepKind
	Reason term.Term
}

// atom materializes a reserved atomtable id as a term, for the handful of
// reserved atoms the interpreter itself (not a BIF/NIF) needs to produce.
func (g *Global) atom(id uint32) term.Term { return term.FromAtom(id) }

// Step decodes and executes exactly one instruction for ctx. The driver
// loop (Global.Run) calls this in a tight loop bounded by the scheduler's
// reduction quantum.
func (g *Global) Step(ctx *process.Context) StepResult {
	mod := ctx.CurrentModule
	instr, err := loader.DecodeInstruction(mod.Code, int(ctx.IP))
	if err != nil {
		return StepResult{Kind: StepTerminated, Reason: g.atom(atomtable.IDBadarg)}
	}
	nextIP := ctx.IP + uint32(instr.Len)
	ops := instr.Operands

	switch instr.Op {
	case loader.OpLabel, loader.OpFuncInfo, loader.OpIntCodeEnd:
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpJump:
		off, _ := g.labelOffset(ctx, ops[0])
		ctx.IP = off
		return StepResult{Kind: StepContinue}

	case loader.OpMove:
		writeReg(ctx, ops[1], g.value(ctx, ops[0]))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpCall:
		g.opCallSetCP(ctx, uint32(ops[1].Value), nextIP)
		return StepResult{Kind: StepContinue}

	case loader.OpCallOnly:
		g.opCall(ctx, uint32(ops[1].Value))
		return StepResult{Kind: StepContinue}

	case loader.OpCallLast:
		g.opCallLast(ctx, uint32(ops[1].Value), uint32(ops[2].Value))
		return StepResult{Kind: StepContinue}

	case loader.OpCallExt, loader.OpCallExtLast, loader.OpCallExtOnly:
		return g.stepCallExt(ctx, instr, nextIP)

	case loader.OpCallFun:
		return g.stepCallFun(ctx, int(ops[0].Value), nextIP, 0, false)

	case loader.OpApply:
		return g.stepApply(ctx, int(ops[0].Value), nextIP, 0, false)

	case loader.OpApplyLast:
		return g.stepApply(ctx, int(ops[0].Value), nextIP, uint32(ops[1].Value), true)

	case loader.OpReturn:
		return g.opReturn(ctx)

	case loader.OpAllocate:
		if err := g.opAllocate(ctx, uint32(ops[0].Value), uint32(ops[1].Value), 0, false); err != nil {
			return g.outOfMemory(ctx)
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpAllocateZero:
		if err := g.opAllocate(ctx, uint32(ops[0].Value), uint32(ops[1].Value), 0, true); err != nil {
			return g.outOfMemory(ctx)
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpAllocateHeap:
		if err := g.opAllocate(ctx, uint32(ops[0].Value), uint32(ops[2].Value), uint32(ops[1].Value), false); err != nil {
			return g.outOfMemory(ctx)
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpAllocateHeapZero:
		if err := g.opAllocate(ctx, uint32(ops[0].Value), uint32(ops[2].Value), uint32(ops[1].Value), true); err != nil {
			return g.outOfMemory(ctx)
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpDeallocate:
		g.opDeallocate(ctx, uint32(ops[0].Value))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpTrim:
		g.opTrim(ctx, uint32(ops[0].Value), uint32(ops[1].Value))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpTestHeap:
		if err := g.opTestHeap(ctx, uint32(ops[0].Value), uint32(ops[1].Value)); err != nil {
			return g.outOfMemory(ctx)
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpKill:
		g.opKill(ctx, uint32(ops[0].Value))
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.OpBif1:
		return g.stepBif(ctx, ops[0], ops[1], []loader.Operand{ops[2]}, ops[3], false, 0, nextIP)
	case loader.OpBif2:
		return g.stepBif(ctx, ops[0], ops[1], []loader.Operand{ops[2], ops[3]}, ops[4], false, 0, nextIP)
	case loader.OpGcBif1:
		return g.stepBif(ctx, ops[0], ops[2], []loader.Operand{ops[3]}, ops[4], true, uint32(ops[1].Value), nextIP)
	case loader.OpGcBif2:
		return g.stepBif(ctx, ops[0], ops[2], []loader.Operand{ops[3], ops[4]}, ops[5], true, uint32(ops[1].Value), nextIP)
	}

	return g.stepOther(ctx, instr, nextIP)
}

// stepCallExt handles call_ext/call_ext_last/call_ext_only: the target is an
// import-table entry rather than a local label, and may be a BIF, a NIF, or
// (after ResolveOnCall) another module's exported function.
func (g *Global) stepCallExt(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	ops := instr.Operands
	arity := int(ops[0].Value)
	importIdx := uint32(ops[1].Value)
	var dealloc uint32
	isLast := instr.Op == loader.OpCallExtLast
	isOnly := instr.Op == loader.OpCallExtOnly
	if isLast {
		dealloc = uint32(ops[2].Value)
	}

	imp, err := g.callExtTarget(ctx, importIdx)
	if err != nil {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUndef))
	}

	args := make([]term.Term, arity)
	copy(args, ctx.XRegs[:arity])

	switch imp.Kind {
	case loader.ImportBIF, loader.ImportNIF:
		var fn nif.Func
		if imp.Kind == loader.ImportBIF {
			fn = imp.BIF.(nif.Func)
		} else {
			fn = imp.NIF.(nif.Func)
		}
		res := fn(ctx, args)
		if res == term.Invalid {
			return g.raise(ctx, ctx.XRegs[0], ctx.XRegs[1])
		}
		ctx.XRegs[0] = res
		if isLast {
			ctx.CP = ctx.Heap.PopFrame(dealloc)
		}
		ctx.IP = nextIP
		return StepResult{Kind: StepContinue}

	case loader.ImportModuleFunc:
		target, ok := g.ByAtom(imp.TargetModule)
		if !ok {
			return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUndef))
		}
		off, ok := target.LabelOffset(imp.TargetLabel)
		if !ok {
			return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUndef))
		}
		if isOnly {
			// tail call: CP untouched
		} else if isLast {
			ctx.CP = ctx.Heap.PopFrame(dealloc)
		} else {
			ctx.CP = newCP(ctx.CurrentModule.Index, nextIP)
		}
		ctx.CurrentModule = target
		ctx.IP = off
		return StepResult{Kind: StepContinue}
	}

	return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUndef))
}

// stepBif handles bif1/bif2/gc_bif1/gc_bif2: materialize the operands, call
// the registered BIF, and either store the result or transfer to Fail (a
// branch target, for the guard-context form) or raise (Fail == label 0, the
// unguarded form).
func (g *Global) stepBif(ctx *process.Context, fail, bifOp loader.Operand, argOps []loader.Operand, dst loader.Operand, gc bool, heapNeed uint32, nextIP uint32) StepResult {
	if gc {
		if err := ctx.Heap.EnsureFree(heapNeed, ctx.Roots(process.NumXRegs), true); err != nil {
			return g.outOfMemory(ctx)
		}
	}
	imp := &ctx.CurrentModule.Imports[uint32(bifOp.Value)]
	args := make([]term.Term, len(argOps))
	for i, o := range argOps {
		args[i] = g.value(ctx, o)
	}
	var fn nif.Func
	if imp.Kind == loader.ImportBIF {
		fn = imp.BIF.(nif.Func)
	} else {
		fn = imp.NIF.(nif.Func)
	}
	res := fn(ctx, args)
	if res == term.Invalid {
		if off, ok := g.labelOffset(ctx, fail); ok {
			ctx.IP = off
			return StepResult{Kind: StepContinue}
		}
		return g.raise(ctx, ctx.XRegs[0], ctx.XRegs[1])
	}
	writeReg(ctx, dst, res)
	ctx.IP = nextIP
	return StepResult{Kind: StepContinue}
}

// stepCallFun implements call_fun/call_fun's closure-calling convention:
// XRegs[arity] holds the fun value built by make_fun/a literal closure,
// arguments are already in XRegs[0:arity].
func (g *Global) stepCallFun(ctx *process.Context, arity int, nextIP uint32, dealloc uint32, isLast bool) StepResult {
	fun := ctx.XRegs[arity]
	if !ctx.Heap.IsFunction(fun) {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadfun))
	}
	modAtom := ctx.Heap.ClosureModule(fun)
	mod, ok := g.ByAtom(term.AtomID(modAtom))
	if !ok {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadfun))
	}
	funArity := ctx.Heap.ClosureArity(fun)
	if int(funArity) != arity {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadarity))
	}
	freeze := ctx.Heap.ClosureFreezeVars(fun)
	for i, v := range freeze {
		ctx.XRegs[arity+i] = v
	}
	label := ctx.Heap.ClosureIndexOrName(fun)
	off, ok := mod.LabelOffset(uint32(term.ToSmallInt(label)))
	if !ok {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadfun))
	}
	if isLast {
		ctx.CP = ctx.Heap.PopFrame(dealloc)
	} else {
		ctx.CP = newCP(ctx.CurrentModule.Index, nextIP)
	}
	ctx.CurrentModule = mod
	ctx.IP = off
	return StepResult{Kind: StepContinue}
}

// stepApply implements apply/2's erlang:apply(Module, Function, Args)
// convention: XRegs[0..2] hold (module, function, arg list), already
// decoded by preceding move instructions.
func (g *Global) stepApply(ctx *process.Context, _ int, nextIP uint32, dealloc uint32, isLast bool) StepResult {
	module, function, argList := ctx.XRegs[0], ctx.XRegs[1], ctx.XRegs[2]
	args, ok := listToSlice(ctx.Heap, argList)
	if !ok {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadarg))
	}
	if !term.IsAtom(module) || !term.IsAtom(function) {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDBadarg))
	}
	mod, ok := g.ByAtom(term.AtomID(module))
	if !ok {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUndef))
	}
	label, ok := mod.Exports[loader.ExportKey{FunctionAtom: term.AtomID(function), Arity: uint32(len(args))}]
	if !ok {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUndef))
	}
	off, ok := mod.LabelOffset(label)
	if !ok {
		return g.raise(ctx, g.atom(atomtable.IDError), g.atom(atomtable.IDUndef))
	}
	for i, a := range args {
		if i >= process.NumXRegs {
			break
		}
		ctx.XRegs[i] = a
	}
	if isLast {
		ctx.CP = ctx.Heap.PopFrame(dealloc)
	} else {
		ctx.CP = newCP(ctx.CurrentModule.Index, nextIP)
	}
	ctx.CurrentModule = mod
	ctx.IP = off
	return StepResult{Kind: StepContinue}
}

func (g *Global) outOfMemory(ctx *process.Context) StepResult {
	return StepResult{Kind: StepTerminated, Reason: g.atom(atomtable.IDOutOfMemory)}
}

// listToSlice materializes a proper list term into a Go slice, for apply/2's
// argument list and the process-control NIFs' MFA-list decoding.
func listToSlice(h *heap.Heap, t term.Term) ([]term.Term, bool) {
	var out []term.Term
	for {
		if term.IsNil(t) {
			return out, true
		}
		if !term.IsNonemptyList(t) {
			return nil, false
		}
		out = append(out, h.Head(t))
		t = h.Tail(t)
	}
}

// stepOther routes every instruction Step's own switch doesn't handle
// inline to the file implementing its family: predicates/selects
// (tests_ops.go), catch/try/exceptions (catch.go), tuple/list/map
// construction and access (maps.go), bit-string matching and building
// (bitstring_ops.go), send/receive (messaging.go), and closure construction
// (funs.go).
func (g *Global) stepOther(ctx *process.Context, instr loader.Instruction, nextIP uint32) StepResult {
	switch instr.Op {
	case loader.OpIsInteger, loader.OpIsFloat, loader.OpIsNumber, loader.OpIsAtom,
		loader.OpIsPid, loader.OpIsReference, loader.OpIsPort, loader.OpIsNil,
		loader.OpIsBinary, loader.OpIsList, loader.OpIsNonemptyList, loader.OpIsTuple,
		loader.OpIsFunction, loader.OpIsBoolean, loader.OpIsMap, loader.OpIsBitstr,
		loader.OpTestArity, loader.OpIsTaggedTuple, loader.OpSelectVal, loader.OpSelectTupleArity:
		return g.stepTest(ctx, instr, nextIP)

	case loader.OpCatch, loader.OpTry, loader.OpCatchEnd, loader.OpTryEnd,
		loader.OpTryCaseEnd, loader.OpRaise, loader.OpBadmatch, loader.OpCaseEnd, loader.OpIfEnd:
		return g.stepCatch(ctx, instr, nextIP)

	case loader.OpPutList, loader.OpPutTuple, loader.OpPut, loader.OpPutTuple2,
		loader.OpGetTupleElement, loader.OpSetTupleElement, loader.OpGetList,
		loader.OpPutMapAssoc, loader.OpPutMapExact, loader.OpHasMapFields, loader.OpGetMapElements:
		return g.stepAggregate(ctx, instr, nextIP)

	case loader.OpStartMatch2, loader.OpStartMatch3, loader.OpStartMatch4,
		loader.OpBsGetInteger, loader.OpBsGetBinary, loader.OpBsSkipBits, loader.OpBsTestUnit,
		loader.OpBsTestTail, loader.OpBsGetTail, loader.OpBsMatchString, loader.OpBsSave,
		loader.OpBsRestore, loader.OpBsGetPosition, loader.OpBsSetPosition, loader.OpBsInit,
		loader.OpBsInitBits, loader.OpBsAppend, loader.OpBsPutInteger, loader.OpBsPutBinary,
		loader.OpBsPutString:
		return g.stepBitstring(ctx, instr, nextIP)

	case loader.OpSend, loader.OpLoopRec, loader.OpLoopRecEnd, loader.OpWait,
		loader.OpWaitTimeout, loader.OpRemoveMessage, loader.OpTimeout,
		loader.OpRecvMark, loader.OpRecvSet:
		return g.stepMessaging(ctx, instr, nextIP)

	case loader.OpMakeFun2, loader.OpMakeFun3:
		return g.stepMakeFun(ctx, instr, nextIP)
	}
	return StepResult{Kind: StepTerminated, Reason: g.atom(atomtable.IDBadarg)}
}
