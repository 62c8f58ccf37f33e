package loader

// Opcode identifies one VM instruction. Values are assigned by this
// implementation (not required to match any other BEAM revision's numeric
// assignment — compatibility with arbitrary newer-revision opcode
// numbering is out of scope) but are stable for the
// lifetime of this module's bytecode format.
type Opcode = byte

const (
	opLabel Opcode = iota // pseudo-instruction: declares a label, 1 operand (label number)
	opFuncInfo             // module, function, arity — marks a function entry point
	opIntCodeEnd

	opJump
	opMove

	opIsInteger
	opIsFloat
	opIsNumber
	opIsAtom
	opIsPid
	opIsReference
	opIsPort
	opIsNil
	opIsBinary
	opIsList
	opIsNonemptyList
	opIsTuple
	opIsFunction
	opIsBoolean
	opIsMap
	opIsBitstr

	opTestArity
	opSelectVal
	opSelectTupleArity
	opIsTaggedTuple

	opCall
	opCallLast
	opCallOnly
	opCallExt
	opCallExtLast
	opCallExtOnly
	opCallFun
	opApply
	opApplyLast
	opReturn

	opAllocate
	opAllocateHeap
	opAllocateZero
	opAllocateHeapZero
	opDeallocate
	opTrim
	opTestHeap
	opKill

	opCatch
	opTry
	opCatchEnd
	opTryEnd
	opTryCaseEnd
	opRaise
	opBadmatch
	opCaseEnd
	opIfEnd

	opSend
	opLoopRec
	opLoopRecEnd
	opWait
	opWaitTimeout
	opRemoveMessage
	opTimeout
	opRecvMark
	opRecvSet

	opPutList
	opPutTuple
	opPut
	opPutTuple2
	opGetTupleElement
	opSetTupleElement

	opPutMapAssoc
	opPutMapExact
	opHasMapFields
	opGetMapElements

	opStartMatch2
	opStartMatch3
	opStartMatch4
	opBsGetInteger
	opBsGetBinary
	opBsSkipBits
	opBsTestUnit
	opBsTestTail
	opBsGetTail
	opBsMatchString
	opBsSave
	opBsRestore
	opBsGetPosition
	opBsSetPosition

	opBsInit
	opBsInitBits
	opBsAppend
	opBsPutInteger
	opBsPutBinary
	opBsPutString

	opGcBif1
	opGcBif2
	opBif1
	opBif2

	opGetList

	opMakeFun2
	opMakeFun3

	opNumOpcodes
)

// opSpec describes one opcode's operand shape for the shared decoder: a
// fixed prefix of simple operands, optionally followed by a length-prefixed
// list of operand groups (select_val's {value,label} pairs, put_map_assoc's
// {key,value} pairs, has_map_fields' bare key list, and so on).
type opSpec struct {
	fixed         int
	hasList       bool
	listGroupSize int
}

var opcodeSpecs = map[Opcode]opSpec{
	opLabel:      {fixed: 1},
	opFuncInfo:   {fixed: 3},
	opIntCodeEnd: {fixed: 0},

	opJump: {fixed: 1},
	opMove: {fixed: 2},

	opIsInteger:      {fixed: 2},
	opIsFloat:        {fixed: 2},
	opIsNumber:       {fixed: 2},
	opIsAtom:         {fixed: 2},
	opIsPid:          {fixed: 2},
	opIsReference:    {fixed: 2},
	opIsPort:         {fixed: 2},
	opIsNil:          {fixed: 2},
	opIsBinary:       {fixed: 2},
	opIsList:         {fixed: 2},
	opIsNonemptyList: {fixed: 2},
	opIsTuple:        {fixed: 2},
	opIsFunction:     {fixed: 2},
	opIsBoolean:      {fixed: 2},
	opIsMap:          {fixed: 2},
	opIsBitstr:       {fixed: 2},

	opTestArity:        {fixed: 3},
	opSelectVal:        {fixed: 2, hasList: true, listGroupSize: 2},
	opSelectTupleArity: {fixed: 2, hasList: true, listGroupSize: 2},
	opIsTaggedTuple:    {fixed: 4},

	opCall:         {fixed: 2},
	opCallLast:     {fixed: 3},
	opCallOnly:     {fixed: 2},
	opCallExt:      {fixed: 2},
	opCallExtLast:  {fixed: 3},
	opCallExtOnly:  {fixed: 2},
	opCallFun:      {fixed: 1},
	opApply:        {fixed: 1},
	opApplyLast:    {fixed: 2},
	opReturn:       {fixed: 0},

	opAllocate:         {fixed: 2},
	opAllocateHeap:     {fixed: 3},
	opAllocateZero:     {fixed: 2},
	opAllocateHeapZero: {fixed: 3},
	opDeallocate:       {fixed: 1},
	opTrim:             {fixed: 2},
	opTestHeap:         {fixed: 2},
	opKill:             {fixed: 1},

	opCatch:      {fixed: 2},
	opTry:        {fixed: 2},
	opCatchEnd:   {fixed: 1},
	opTryEnd:     {fixed: 1},
	opTryCaseEnd: {fixed: 1},
	opRaise:      {fixed: 2},
	opBadmatch:   {fixed: 1},
	opCaseEnd:    {fixed: 1},
	opIfEnd:      {fixed: 0},

	opSend:          {fixed: 0},
	opLoopRec:       {fixed: 2},
	opLoopRecEnd:    {fixed: 1},
	opWait:          {fixed: 1},
	opWaitTimeout:   {fixed: 2},
	opRemoveMessage: {fixed: 0},
	opTimeout:       {fixed: 0},
	opRecvMark:      {fixed: 1},
	opRecvSet:       {fixed: 1},

	opPutList:         {fixed: 3},
	opPutTuple:        {fixed: 2},
	opPut:             {fixed: 1},
	opPutTuple2:       {fixed: 1, hasList: true, listGroupSize: 1},
	opGetTupleElement: {fixed: 3},
	opSetTupleElement: {fixed: 3},

	opPutMapAssoc:    {fixed: 4, hasList: true, listGroupSize: 2},
	opPutMapExact:    {fixed: 4, hasList: true, listGroupSize: 2},
	opHasMapFields:   {fixed: 2, hasList: true, listGroupSize: 1},
	opGetMapElements: {fixed: 2, hasList: true, listGroupSize: 2},

	opStartMatch2: {fixed: 5},
	opStartMatch3: {fixed: 4},
	opStartMatch4: {fixed: 3},

	opBsGetInteger:  {fixed: 5},
	opBsGetBinary:   {fixed: 5},
	opBsSkipBits:    {fixed: 4},
	opBsTestUnit:    {fixed: 3},
	opBsTestTail:    {fixed: 3},
	opBsGetTail:     {fixed: 2},
	opBsMatchString: {fixed: 3},
	opBsSave:        {fixed: 2},
	opBsRestore:     {fixed: 2},
	opBsGetPosition: {fixed: 2},
	opBsSetPosition: {fixed: 2},

	opBsInit:      {fixed: 3},
	opBsInitBits:  {fixed: 3},
	opBsAppend:    {fixed: 4},
	opBsPutInteger: {fixed: 5},
	opBsPutBinary:  {fixed: 5},
	opBsPutString:  {fixed: 2},

	opGcBif1: {fixed: 5},
	opGcBif2: {fixed: 6},
	opBif1:   {fixed: 4},
	opBif2:   {fixed: 5},

	opGetList: {fixed: 3},

	opMakeFun2: {fixed: 1},
	opMakeFun3: {fixed: 2, hasList: true, listGroupSize: 1},
}

// opcodeArity maps every opcode with no variable-length list to its fixed
// operand count. Nothing in the package reads it; the label-building pass
// walks code with DecodeInstruction.
var opcodeArity = func() map[Opcode]int {
	m := make(map[Opcode]int, len(opcodeSpecs))
	for op, spec := range opcodeSpecs {
		if !spec.hasList {
			m[op] = spec.fixed
		}
	}
	return m
}()
