// Package bytecode defines the compiled-module wire format consumed by the
// vm package: a string pool, a function directory, a flat instruction
// stream, per-function exception handler ranges, and switch-dispatch
// tables. CompiledModule is the compiler's contract (what a front end must
// emit); LoadedModule is what VirtualMachine.LoadModule produces from it
// once string hashes are precomputed and call_ext operands are resolved
// against the host's registered externals.
package bytecode

import "github.com/mcejp/Helium/opcodes"

// CodeAddr indexes a single instruction within a module's flat Code slice.
type CodeAddr uint32

// Instruction is one bytecode instruction: an opcode plus, depending on
// opcodes.DescOf(Opcode).OperandType, at most one operand slot. Unlike the
// teacher's zend-style Op1/Op2/Result register encoding, Helium is a pure
// stack machine — every instruction's inputs and outputs live on the
// operand stack, never in the instruction itself.
type Instruction struct {
	Opcode opcodes.Opcode

	// Operand holds the single integer-shaped operand (code address,
	// function/string/local/switch-table index, or an integer/boolean
	// literal), interpreted according to the opcode's OperandType.
	Operand int64

	// Real holds the operand for PushFloat, since a float64 does not fit
	// losslessly in the Operand field's typical small-integer range.
	Real float64

	// Origin is optional debug provenance (source unit, enclosing
	// function, line), attached by the compiler front end and surfaced in
	// stack traces and disassembly. Nil for synthetic code such as
	// assembler-built test fixtures.
	Origin *Origin
}

// Origin records where an instruction came from, for diagnostics only —
// the VM never branches on it.
type Origin struct {
	Unit     string
	Function string
	Line     int
}

// Eh is one exception-handler range: instructions in [Start, Start+Length)
// are covered by Handler, a code address to resume at with the raised
// value on top of the stack.
type Eh struct {
	Start   CodeAddr
	Length  CodeAddr
	Handler CodeAddr
}

// Covers reports whether pc falls within the handler's protected range.
func (eh Eh) Covers(pc CodeAddr) bool {
	return pc >= eh.Start && pc < eh.Start+eh.Length
}

// SwitchTable backs the Switch opcode: Cases[i] maps to Handlers[i], and
// Handlers[len(Cases)] is the address of the else/default branch.
type SwitchTable struct {
	Cases    []SwitchCase
	Handlers []CodeAddr
}

// SwitchCase is one constant arm of a switch table. Only primitive,
// hashable literal kinds are legal compile-time switch cases.
type SwitchCase struct {
	Kind SwitchCaseKind
	Int  int64
	Str  string
}

type SwitchCaseKind byte

const (
	SwitchCaseInt SwitchCaseKind = iota
	SwitchCaseString
)

// ArgumentListType distinguishes how a function's parameter list is
// declared. Helium, like the original, supports only explicit fixed
// argument lists; the type exists so the format has room to grow.
type ArgumentListType byte

const (
	ArgumentListExplicit ArgumentListType = iota
)

// MainFunctionName is the reserved name of a module's entry point.
const MainFunctionName = ".main"

// Function describes one function's location in the module's flat code
// stream, its declared arity, and the exception handlers active while
// control is inside it.
type Function struct {
	Name                 string
	Exported             bool
	ArgumentListType     ArgumentListType
	NumExplicitArguments int

	Start  CodeAddr
	Length CodeAddr

	ExceptionHandlers []Eh
}

// Contains reports whether pc lies within the function's code range.
func (f Function) Contains(pc CodeAddr) bool {
	return pc >= f.Start && pc < f.Start+f.Length
}

// CompiledModule is the format a front end (or, in this repository, the
// bytecode builder used by tests and the CLI assembler) must produce: the
// compiler's contract, per the module's external interface. It has not yet
// been linked against a host's registered external functions.
type CompiledModule struct {
	Dependencies []string
	Functions    []Function
	Code         []Instruction
	StringPool   [][]byte
	SwitchTables []SwitchTable
}

// FindFunction returns the function named name, if any.
func (m *CompiledModule) FindFunction(name string) (Function, bool) {
	for _, f := range m.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}
