// Package opcodes defines the bytecode instruction set interpreted by the vm
// package and emitted into a bytecode.Module by the compiler contract.
package opcodes

// Opcode identifies a single bytecode instruction.
type Opcode uint16

const (
	Nop Opcode = iota // no operation

	// Flow control
	Args     // push an argument count ahead of a call instruction
	CallFunc // call a function resolved at compile time
	CallVar  // call a function referenced by a value on the stack
	CallExt  // call an external (native) function
	Invoke   // pop obj; invoke obj.{string} with obj as receiver
	Jmp      // unconditional jump
	JmpTrue  // pop; jump if truthy
	JmpFalse // pop; jump if falsy
	Ret      // return from the current function
	Switch   // dispatch on a switch table
	ThrowVar // pop; raise as exception

	// Arithmetic
	Add
	Sub
	Mul
	Div
	Mod
	Neg

	// Comparison
	Eq
	Neq
	Less
	LessEq
	Grtr
	GrtrEq

	// Logic
	Land
	Lor
	Lnot

	// Stack literals
	PushNil
	PushBool
	PushFloat
	PushInt
	PushString
	PushFunc
	PushGlobal
	Drop
	Dup
	Dup1

	// Locals
	GetLocal
	SetLocal

	// Indexed access (lists, strings)
	GetIndexed
	SetIndexed

	// Property access (objects, and built-in pseudo-properties)
	GetProperty
	SetMember

	// Misc
	Assert

	// Allocation
	NewList
	NewObj

	numValidOpcodes
)

// OperandType selects how an Instruction's operand slot must be interpreted.
type OperandType int

const (
	OperandNone OperandType = iota
	OperandCodeAddress
	OperandFunctionIndex
	OperandInteger
	OperandLocalIndex
	OperandReal
	OperandStringIndex
	OperandSwitchTableIndex
)

// Desc describes the static shape of an opcode: its mnemonic, its operand
// kind, and how many operand stack slots it consumes/produces. NumPop/NumPush
// of -1 means the stack effect is operand-dependent (Args-primed calls,
// NewList) and must be computed at dispatch time.
type Desc struct {
	Opcode      Opcode
	Mnemonic    string
	OperandType OperandType
	NumPop      int
	NumPush     int
}

var descs = [numValidOpcodes]Desc{
	Nop:         {Nop, "nop", OperandNone, 0, 0},
	Args:        {Args, "args", OperandInteger, 0, 0},
	CallFunc:    {CallFunc, "call_func", OperandFunctionIndex, -1, 1},
	CallVar:     {CallVar, "call_var", OperandNone, -1, 1},
	CallExt:     {CallExt, "call_ext", OperandInteger, -1, 1},
	Invoke:      {Invoke, "invoke", OperandStringIndex, -1, 1},
	Jmp:         {Jmp, "jmp", OperandCodeAddress, 0, 0},
	JmpTrue:     {JmpTrue, "jmp_true", OperandCodeAddress, 1, 0},
	JmpFalse:    {JmpFalse, "jmp_false", OperandCodeAddress, 1, 0},
	Ret:         {Ret, "ret", OperandNone, 0, 0},
	Switch:      {Switch, "op_switch", OperandSwitchTableIndex, 1, 0},
	ThrowVar:    {ThrowVar, "throw_var", OperandNone, 1, 0},
	Add:         {Add, "op_add", OperandNone, 2, 1},
	Sub:         {Sub, "op_sub", OperandNone, 2, 1},
	Mul:         {Mul, "op_mul", OperandNone, 2, 1},
	Div:         {Div, "op_div", OperandNone, 2, 1},
	Mod:         {Mod, "op_mod", OperandNone, 2, 1},
	Neg:         {Neg, "neg", OperandNone, 1, 1},
	Eq:          {Eq, "eq", OperandNone, 2, 1},
	Neq:         {Neq, "neq", OperandNone, 2, 1},
	Less:        {Less, "less", OperandNone, 2, 1},
	LessEq:      {LessEq, "lessEq", OperandNone, 2, 1},
	Grtr:        {Grtr, "grtr", OperandNone, 2, 1},
	GrtrEq:      {GrtrEq, "grtrEq", OperandNone, 2, 1},
	Land:        {Land, "land", OperandNone, 2, 1},
	Lor:         {Lor, "lor", OperandNone, 2, 1},
	Lnot:        {Lnot, "lnot", OperandNone, 1, 1},
	PushNil:     {PushNil, "pushnil", OperandNone, 0, 1},
	PushBool:    {PushBool, "pushc_b", OperandInteger, 0, 1},
	PushFloat:   {PushFloat, "pushc_f", OperandReal, 0, 1},
	PushInt:     {PushInt, "pushc_i", OperandInteger, 0, 1},
	PushString:  {PushString, "pushc_s", OperandStringIndex, 0, 1},
	PushFunc:    {PushFunc, "pushc_func", OperandFunctionIndex, 0, 1},
	PushGlobal:  {PushGlobal, "pushglobal", OperandNone, 0, 1},
	Drop:        {Drop, "drop", OperandNone, 1, 0},
	Dup:         {Dup, "dup", OperandNone, 0, 1},
	Dup1:        {Dup1, "dup1", OperandNone, 0, 1},
	GetLocal:    {GetLocal, "getLocal", OperandLocalIndex, 0, 1},
	SetLocal:    {SetLocal, "setLocal", OperandLocalIndex, 1, 0},
	GetIndexed:  {GetIndexed, "getIndexed", OperandNone, 2, 1},
	SetIndexed:  {SetIndexed, "setIndexed", OperandNone, 3, 0},
	GetProperty: {GetProperty, "getProperty", OperandStringIndex, 1, 1},
	SetMember:   {SetMember, "setMember", OperandStringIndex, 2, 0},
	Assert:      {Assert, "assert", OperandStringIndex, 1, 0},
	NewList:     {NewList, "new_list", OperandInteger, -1, 1},
	NewObj:      {NewObj, "new_obj", OperandNone, 0, 1},
}

// DescOf returns the static description of op, along with false if op is
// outside the valid opcode range.
func DescOf(op Opcode) (Desc, bool) {
	if op >= numValidOpcodes {
		return Desc{}, false
	}
	return descs[op], true
}

func (op Opcode) String() string {
	if d, ok := DescOf(op); ok {
		return d.Mnemonic
	}
	return "invalid"
}

// LocalThis is the reserved local-variable slot holding the receiver inside
// a method body invoked via Invoke.
const LocalThis = 0
