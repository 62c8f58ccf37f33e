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

package loader

// Exported mirrors of the opcode constants, for avm/vm's dispatch switch.
// The underlying opXxx names stay unexported since nothing outside this
// package needs the numeric assignment itself, only the identity.
const (
	OpLabel      = opLabel
	OpFuncInfo   = opFuncInfo
	OpIntCodeEnd = opIntCodeEnd

	OpJump = opJump
	OpMove = opMove

	OpIsInteger      = opIsInteger
	OpIsFloat        = opIsFloat
	OpIsNumber       = opIsNumber
	OpIsAtom         = opIsAtom
	OpIsPid          = opIsPid
	OpIsReference    = opIsReference
	OpIsPort         = opIsPort
	OpIsNil          = opIsNil
	OpIsBinary       = opIsBinary
	OpIsList         = opIsList
	OpIsNonemptyList = opIsNonemptyList
	OpIsTuple        = opIsTuple
	OpIsFunction     = opIsFunction
	OpIsBoolean      = opIsBoolean
	OpIsMap          = opIsMap
	OpIsBitstr       = opIsBitstr

	OpTestArity        = opTestArity
	OpSelectVal        = opSelectVal
	OpSelectTupleArity = opSelectTupleArity
	OpIsTaggedTuple    = opIsTaggedTuple

	OpCall         = opCall
	OpCallLast     = opCallLast
	OpCallOnly     = opCallOnly
	OpCallExt      = opCallExt
	OpCallExtLast  = opCallExtLast
	OpCallExtOnly  = opCallExtOnly
	OpCallFun      = opCallFun
	OpApply        = opApply
	OpApplyLast    = opApplyLast
	OpReturn       = opReturn

	OpAllocate         = opAllocate
	OpAllocateHeap     = opAllocateHeap
	OpAllocateZero     = opAllocateZero
	OpAllocateHeapZero = opAllocateHeapZero
	OpDeallocate       = opDeallocate
	OpTrim             = opTrim
	OpTestHeap         = opTestHeap
	OpKill             = opKill

	OpCatch      = opCatch
	OpTry        = opTry
	OpCatchEnd   = opCatchEnd
	OpTryEnd     = opTryEnd
	OpTryCaseEnd = opTryCaseEnd
	OpRaise      = opRaise
	OpBadmatch   = opBadmatch
	OpCaseEnd    = opCaseEnd
	OpIfEnd      = opIfEnd

	OpSend          = opSend
	OpLoopRec       = opLoopRec
	OpLoopRecEnd    = opLoopRecEnd
	OpWait          = opWait
	OpWaitTimeout   = opWaitTimeout
	OpRemoveMessage = opRemoveMessage
	OpTimeout       = opTimeout
	OpRecvMark      = opRecvMark
	OpRecvSet       = opRecvSet

	OpPutList         = opPutList
	OpPutTuple        = opPutTuple
	OpPut             = opPut
	OpPutTuple2       = opPutTuple2
	OpGetTupleElement = opGetTupleElement
	OpSetTupleElement = opSetTupleElement

	OpPutMapAssoc    = opPutMapAssoc
	OpPutMapExact    = opPutMapExact
	OpHasMapFields   = opHasMapFields
	OpGetMapElements = opGetMapElements

	OpStartMatch2 = opStartMatch2
	OpStartMatch3 = opStartMatch3
	OpStartMatch4 = opStartMatch4

	OpBsGetInteger  = opBsGetInteger
	OpBsGetBinary   = opBsGetBinary
	OpBsSkipBits    = opBsSkipBits
	OpBsTestUnit    = opBsTestUnit
	OpBsTestTail    = opBsTestTail
	OpBsGetTail     = opBsGetTail
	OpBsMatchString = opBsMatchString
	OpBsSave        = opBsSave
	OpBsRestore     = opBsRestore
	OpBsGetPosition = opBsGetPosition
	OpBsSetPosition = opBsSetPosition

	OpBsInit       = opBsInit
	OpBsInitBits   = opBsInitBits
	OpBsAppend     = opBsAppend
	OpBsPutInteger = opBsPutInteger
	OpBsPutBinary  = opBsPutBinary
	OpBsPutString  = opBsPutString

	OpGcBif1 = opGcBif1
	OpGcBif2 = opGcBif2
	OpBif1   = opBif1
	OpBif2   = opBif2

	OpGetList = opGetList

	OpMakeFun2 = opMakeFun2
	OpMakeFun3 = opMakeFun3
)
