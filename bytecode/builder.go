package bytecode

import "github.com/mcejp/Helium/opcodes"

// Builder assembles a CompiledModule instruction by instruction. It exists
// because the lexer/parser/compiler front end that would normally turn
// source text into a Module is out of scope here; Builder is the minimal
// replacement needed to construct fixtures for tests and the CLI's
// built-in example programs.
type Builder struct {
	m CompiledModule

	stringIndex map[string]int
	funcIndex   map[string]int
	labels      map[string]CodeAddr
	pending     []pendingLabel
}

type pendingLabel struct {
	instruction int
	label       string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		stringIndex: make(map[string]int),
		funcIndex:   make(map[string]int),
		labels:      make(map[string]CodeAddr),
	}
}

// Dependency registers name as an external dependency if not already
// present and returns its index.
func (b *Builder) Dependency(name string) int {
	for i, d := range b.m.Dependencies {
		if d == name {
			return i
		}
	}
	b.m.Dependencies = append(b.m.Dependencies, name)
	return len(b.m.Dependencies) - 1
}

// String interns s and returns its string-pool index.
func (b *Builder) String(s string) int {
	if idx, ok := b.stringIndex[s]; ok {
		return idx
	}
	idx := len(b.m.StringPool)
	b.m.StringPool = append(b.m.StringPool, []byte(s))
	b.stringIndex[s] = idx
	return idx
}

// BeginFunction opens a new function starting at the current code address
// and returns its index. Call EndFunction once its body has been emitted.
func (b *Builder) BeginFunction(name string, exported bool, numArgs int) int {
	idx := len(b.m.Functions)
	b.m.Functions = append(b.m.Functions, Function{
		Name:                 name,
		Exported:             exported,
		ArgumentListType:     ArgumentListExplicit,
		NumExplicitArguments: numArgs,
		Start:                CodeAddr(len(b.m.Code)),
	})
	b.funcIndex[name] = idx
	return idx
}

// EndFunction closes the function at idx, fixing its Length to the
// distance from its Start to the current code address.
func (b *Builder) EndFunction(idx int) {
	f := &b.m.Functions[idx]
	f.Length = CodeAddr(len(b.m.Code)) - f.Start
}

// AddExceptionHandler attaches a protected range to the function at idx.
// handlerLabel is resolved immediately: a label not yet defined via Label
// resolves to address 0, and Finish does not patch it later.
func (b *Builder) AddExceptionHandler(idx int, start, length CodeAddr, handlerLabel string) {
	b.m.Functions[idx].ExceptionHandlers = append(b.m.Functions[idx].ExceptionHandlers, Eh{
		Start: start, Length: length, Handler: b.resolveLabel(handlerLabel),
	})
}

// Label marks the current code address with name, for later jump target
// resolution.
func (b *Builder) Label(name string) {
	b.labels[name] = CodeAddr(len(b.m.Code))
}

// Addr returns the code address the next emitted instruction will occupy,
// for callers that need to compute an exception handler's protected range
// without pre-declaring it as a named label.
func (b *Builder) Addr() CodeAddr {
	return CodeAddr(len(b.m.Code))
}

func (b *Builder) resolveLabel(name string) CodeAddr {
	if addr, ok := b.labels[name]; ok {
		return addr
	}
	return 0 // undefined label; not tracked in pending, so Finish leaves it at 0
}

// emit appends an instruction and returns its address.
func (b *Builder) emit(inst Instruction) CodeAddr {
	addr := CodeAddr(len(b.m.Code))
	b.m.Code = append(b.m.Code, inst)
	return addr
}

func (b *Builder) Nop() { b.emit(Instruction{Opcode: opcodes.Nop}) }

func (b *Builder) Args(n int) {
	b.emit(Instruction{Opcode: opcodes.Args, Operand: int64(n)})
}

func (b *Builder) CallFunc(funcIndex int) {
	b.emit(Instruction{Opcode: opcodes.CallFunc, Operand: int64(funcIndex)})
}

func (b *Builder) CallVar() { b.emit(Instruction{Opcode: opcodes.CallVar}) }

func (b *Builder) CallExt(depIndex int) {
	b.emit(Instruction{Opcode: opcodes.CallExt, Operand: int64(depIndex)})
}

func (b *Builder) Invoke(methodName string) {
	b.emit(Instruction{Opcode: opcodes.Invoke, Operand: int64(b.String(methodName))})
}

// Jmp emits an unconditional jump to a label, to be resolved by Finish.
func (b *Builder) Jmp(label string) { b.jumpTo(opcodes.Jmp, label) }
func (b *Builder) JmpTrue(label string) { b.jumpTo(opcodes.JmpTrue, label) }
func (b *Builder) JmpFalse(label string) { b.jumpTo(opcodes.JmpFalse, label) }

func (b *Builder) jumpTo(op opcodes.Opcode, label string) {
	addr := b.emit(Instruction{Opcode: op})
	b.pending = append(b.pending, pendingLabel{instruction: int(addr), label: label})
}

func (b *Builder) Ret()      { b.emit(Instruction{Opcode: opcodes.Ret}) }
func (b *Builder) ThrowVar() { b.emit(Instruction{Opcode: opcodes.ThrowVar}) }

func (b *Builder) Add() { b.emit(Instruction{Opcode: opcodes.Add}) }
func (b *Builder) Sub() { b.emit(Instruction{Opcode: opcodes.Sub}) }
func (b *Builder) Mul() { b.emit(Instruction{Opcode: opcodes.Mul}) }
func (b *Builder) Div() { b.emit(Instruction{Opcode: opcodes.Div}) }
func (b *Builder) Mod() { b.emit(Instruction{Opcode: opcodes.Mod}) }
func (b *Builder) Neg() { b.emit(Instruction{Opcode: opcodes.Neg}) }

func (b *Builder) Eq()     { b.emit(Instruction{Opcode: opcodes.Eq}) }
func (b *Builder) Neq()    { b.emit(Instruction{Opcode: opcodes.Neq}) }
func (b *Builder) Less()   { b.emit(Instruction{Opcode: opcodes.Less}) }
func (b *Builder) LessEq() { b.emit(Instruction{Opcode: opcodes.LessEq}) }
func (b *Builder) Grtr()   { b.emit(Instruction{Opcode: opcodes.Grtr}) }
func (b *Builder) GrtrEq() { b.emit(Instruction{Opcode: opcodes.GrtrEq}) }

func (b *Builder) Land() { b.emit(Instruction{Opcode: opcodes.Land}) }
func (b *Builder) Lor()  { b.emit(Instruction{Opcode: opcodes.Lor}) }
func (b *Builder) Lnot() { b.emit(Instruction{Opcode: opcodes.Lnot}) }

func (b *Builder) PushNil()      { b.emit(Instruction{Opcode: opcodes.PushNil}) }
func (b *Builder) PushBool(v bool) {
	n := int64(0)
	if v {
		n = 1
	}
	b.emit(Instruction{Opcode: opcodes.PushBool, Operand: n})
}
func (b *Builder) PushFloat(v float64) { b.emit(Instruction{Opcode: opcodes.PushFloat, Real: v}) }
func (b *Builder) PushInt(v int64)     { b.emit(Instruction{Opcode: opcodes.PushInt, Operand: v}) }
func (b *Builder) PushString(s string) {
	b.emit(Instruction{Opcode: opcodes.PushString, Operand: int64(b.String(s))})
}
func (b *Builder) PushFunc(funcIndex int) {
	b.emit(Instruction{Opcode: opcodes.PushFunc, Operand: int64(funcIndex)})
}
func (b *Builder) PushGlobal() { b.emit(Instruction{Opcode: opcodes.PushGlobal}) }
func (b *Builder) Drop()       { b.emit(Instruction{Opcode: opcodes.Drop}) }
func (b *Builder) Dup()        { b.emit(Instruction{Opcode: opcodes.Dup}) }
func (b *Builder) Dup1()       { b.emit(Instruction{Opcode: opcodes.Dup1}) }

func (b *Builder) GetLocal(index int) {
	b.emit(Instruction{Opcode: opcodes.GetLocal, Operand: int64(index)})
}
func (b *Builder) SetLocal(index int) {
	b.emit(Instruction{Opcode: opcodes.SetLocal, Operand: int64(index)})
}

func (b *Builder) GetIndexed() { b.emit(Instruction{Opcode: opcodes.GetIndexed}) }
func (b *Builder) SetIndexed() { b.emit(Instruction{Opcode: opcodes.SetIndexed}) }

func (b *Builder) GetProperty(name string) {
	b.emit(Instruction{Opcode: opcodes.GetProperty, Operand: int64(b.String(name))})
}
func (b *Builder) SetMember(name string) {
	b.emit(Instruction{Opcode: opcodes.SetMember, Operand: int64(b.String(name))})
}

func (b *Builder) Assert(message string) {
	b.emit(Instruction{Opcode: opcodes.Assert, Operand: int64(b.String(message))})
}

func (b *Builder) NewList(n int) { b.emit(Instruction{Opcode: opcodes.NewList, Operand: int64(n)}) }
func (b *Builder) NewObj()       { b.emit(Instruction{Opcode: opcodes.NewObj}) }

// Switch emits a Switch instruction dispatching on table tableIndex
// (already built via AddSwitchTable); the table's handlers, including the
// final else handler, are set separately with SetSwitchHandler.
func (b *Builder) Switch(tableIndex int) {
	b.emit(Instruction{Opcode: opcodes.Switch, Operand: int64(tableIndex)})
}

// AddSwitchTable registers a new switch table with the given cases and
// all handlers unset, and returns its index; use SetSwitchHandler to fill
// in each handler.
func (b *Builder) AddSwitchTable(cases []SwitchCase) int {
	idx := len(b.m.SwitchTables)
	b.m.SwitchTables = append(b.m.SwitchTables, SwitchTable{
		Cases:    cases,
		Handlers: make([]CodeAddr, len(cases)+1),
	})
	return idx
}

// SetSwitchHandler resolves the handler for case i (or, for i ==
// len(cases), the else branch) of table tableIndex to label, which must
// already have been defined via Label.
func (b *Builder) SetSwitchHandler(tableIndex, i int, label string) {
	b.m.SwitchTables[tableIndex].Handlers[i] = b.labels[label]
}

// Finish patches every pending jump-to-label instruction with its
// resolved code address and returns the completed module. Panics if a
// referenced label was never defined — a bug in the caller's assembly, not
// a runtime condition.
func (b *Builder) Finish() *CompiledModule {
	for _, p := range b.pending {
		addr, ok := b.labels[p.label]
		if !ok {
			panic("bytecode: undefined label " + p.label)
		}
		b.m.Code[p.instruction].Operand = int64(addr)
	}

	return &b.m
}
