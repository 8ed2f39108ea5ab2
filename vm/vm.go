// Package vm implements Helium's stack-oriented bytecode interpreter: the
// VirtualMachine (loaded modules, registered external functions, and the
// cycle-collected heap's possible-root queue) and the ActivationContext
// dispatch loop that actually executes a module's instructions.
package vm

import (
	"fmt"

	"github.com/mcejp/Helium/bytecode"
	"github.com/mcejp/Helium/opcodes"
	"github.com/mcejp/Helium/values"
)

// gcNumPossibleRootsThreshold is how many pending possible cycle roots
// accumulate before Execute triggers a collection pass on its own,
// without waiting for the caller to ask. Mirrors
// GC_NUM_POSSIBLE_ROOTS_THRESHOLD.
const gcNumPossibleRootsThreshold = 1000

// external is one entry of the VM's external-function table: a
// Go-implemented function importable by name from a module's dependency
// list. Mirrors the {name, callback} pairs VM::loadModule resolves
// against.
type external struct {
	name string
	fn   values.NativeFunc
}

// VirtualMachine owns every loaded module, the external-function table
// modules import from, the global object, and the cycle collector's
// possible-root queue. It implements values.GCHost (so a list or object
// can register itself as a possible root) and bytecode.ExternalResolver
// (so Load can resolve a module's imports). Mirrors class VM.
type VirtualMachine struct {
	modules []*bytecode.LoadedModule

	externals     []external
	externalIndex map[string]int

	global values.Value

	possibleRoots                   []values.Value
	numInstructionsSinceLastCollect uint64

	profile *profileState
}

// NewVirtualMachine returns a VM with an empty module table and a fresh
// global object, ready to have externals registered and modules loaded.
// Mirrors VM::VM.
func NewVirtualMachine() *VirtualMachine {
	vm := &VirtualMachine{externalIndex: make(map[string]int)}
	vm.global = values.NewObject(vm)
	return vm
}

// RegisterExternal makes fn importable under name by any module loaded
// afterward. Registering the same name twice replaces the previous
// implementation without changing its external-table index, so modules
// already linked against it keep working.
func (vm *VirtualMachine) RegisterExternal(name string, fn values.NativeFunc) {
	if idx, ok := vm.externalIndex[name]; ok {
		vm.externals[idx] = external{name: name, fn: fn}
		return
	}

	vm.externalIndex[name] = len(vm.externals)
	vm.externals = append(vm.externals, external{name: name, fn: fn})
}

// ResolveExternal implements bytecode.ExternalResolver.
func (vm *VirtualMachine) ResolveExternal(name string) (int, bool) {
	idx, ok := vm.externalIndex[name]
	return idx, ok
}

// LoadModule links m against the VM's registered externals and adds it to
// the module table, returning its module index. Mirrors VM::loadModule.
func (vm *VirtualMachine) LoadModule(m *bytecode.CompiledModule) (int, error) {
	index := len(vm.modules)

	loaded, err := bytecode.Load(m, vm, index)
	if err != nil {
		return 0, err
	}

	vm.modules = append(vm.modules, loaded)
	return index, nil
}

// ModuleByIndex returns the loaded module at index. Panics on an
// out-of-range index — every caller either already validated the index
// (module load) or derived it from bytecode the loader already checked
// (a call_func/call_ext/scriptFunction operand), so an out-of-range value
// here means a corrupt module, a bug this port cannot recover from any
// more gracefully than the original's array-index-without-bounds-check
// would.
func (vm *VirtualMachine) ModuleByIndex(index int) *bytecode.LoadedModule {
	return vm.modules[index]
}

// Global returns the VM's global object, the value the pushglobal opcode
// references.
func (vm *VirtualMachine) Global() values.Value { return vm.global }

// AddPossibleRoot implements values.GCHost: it enqueues v as a candidate
// cycle root for the next collection pass. Mirrors
// VM::addPossibleRootOfCycle.
func (vm *VirtualMachine) AddPossibleRoot(v values.Value) {
	vm.possibleRoots = append(vm.possibleRoots, v)
}

// CollectGarbage runs one full trial-deletion pass over the possible-root
// queue and returns how many values it reclaimed. Mirrors
// VM::collectGarbage.
func (vm *VirtualMachine) CollectGarbage() uint {
	// Phase 1 (mark): purple roots propagate grey and stay in the
	// candidate set; everything else is resolved here and dropped.
	candidates := vm.possibleRoots[:0:0]
	for _, root := range vm.possibleRoots {
		if !root.Mark() {
			candidates = append(candidates, root)
		}
	}

	// Phase 2 (scan): restore genuinely-reachable subgraphs to black,
	// provisionally paint the rest white.
	for _, root := range candidates {
		root.Scan()
	}

	// Phase 3 (collect): free whatever is still white and unregistered.
	var reclaimed uint
	for _, root := range candidates {
		root.MarkNotRegistered()
		reclaimed += root.CollectWhite()
	}

	vm.possibleRoots = nil
	vm.numInstructionsSinceLastCollect = 0
	return reclaimed
}

// Run starts moduleIndex's `.main` function with no arguments and drives
// it to completion. A normal return yields its return value (Nil if the
// function fell off the end without an explicit value); an uncaught
// script-level exception is reported as a *ScriptException.
func (vm *VirtualMachine) Run(moduleIndex int) (values.Value, error) {
	ctx := NewActivationContext(vm)
	ctx.CallMainFunction(moduleIndex)
	vm.Execute(ctx)
	return finalResult(ctx)
}

// CallFunction starts the named exported function of moduleIndex with
// args and drives it to completion. Unlike Run (which always starts
// `.main`), this lets a host or test target any function by name — the
// ability VM::execute's callers get for free by constructing their own
// ActivationContext and calling callScriptFunction directly.
func (vm *VirtualMachine) CallFunction(moduleIndex int, name string, args []values.Value) (values.Value, error) {
	module := vm.ModuleByIndex(moduleIndex)
	fnIndex, ok := module.FindFunctionIndex(name)
	if !ok {
		return values.UndefinedValue, fmt.Errorf("vm: function %q not found in module %d", name, moduleIndex)
	}

	ctx := NewActivationContext(vm)
	// The call protocol wants the operand stack holding arguments in
	// reverse source order (the last argument pushed first), so push back
	// to front: the first element of args ends up on top.
	for i := len(args) - 1; i >= 0; i-- {
		ctx.pushStack(args[i])
	}
	ctx.CallScriptFunction(moduleIndex, fnIndex, len(args), values.UndefinedValue)
	vm.Execute(ctx)
	return finalResult(ctx)
}

func finalResult(ctx *ActivationContext) (values.Value, error) {
	switch ctx.State() {
	case StateReturnedValue:
		if len(ctx.stack) > 0 {
			return ctx.popStack(), nil
		}
		return values.NewNil(), nil

	case StateRaisedException:
		return values.UndefinedValue, &ScriptException{Value: ctx.Exception()}

	default:
		return values.UndefinedValue, fmt.Errorf("vm: execution ended in unexpected state %s", ctx.State())
	}
}

// Execute runs ctx's dispatch loop until it leaves the ready state:
// having returned a value, raised an uncaught exception, or been
// suspended. Mirrors VM::execute.
func (vm *VirtualMachine) Execute(ctx *ActivationContext) {
	numArgs := -1

	for ctx.State() == StateReady {
		if uint(len(vm.possibleRoots)) > gcNumPossibleRootsThreshold {
			vm.CollectGarbage()
		}

		inst := ctx.activeModule.Code[ctx.pc]

		if vm.profile != nil {
			vm.profile.observe(int(ctx.pc), inst.Opcode)
		}

		ctx.pc++

		switch inst.Opcode {
		case opcodes.Nop:
			// no-op

		case opcodes.Args:
			numArgs = int(inst.Operand)

		case opcodes.Assert:
			expr := ctx.activeModule.Strings[inst.Operand].String()
			value := ctx.popStack()

			if !asBoolean(value) {
				ctx.RaiseException("failed assertion `" + expr + "`")
			}
			value.Release()

		case opcodes.CallFunc:
			ctx.CallScriptFunction(ctx.activeModuleIndex, int(inst.Operand), numArgs, values.UndefinedValue)

		case opcodes.CallVar:
			callable := ctx.popStack()
			ctx.Invoke(callable, numArgs)
			callable.Release()

		case opcodes.CallExt:
			ctx.CallNativeFunction(vm.externals[inst.Operand].fn, numArgs)

		case opcodes.Invoke:
			object := ctx.popStack()
			methodName := ctx.activeModule.Strings[inst.Operand].String()

			switch object.Type() {
			case values.List:
				if fn, ok := listMethods[methodName]; ok {
					ctx.CallNativeFunctionWithSelf(fn, numArgs, object)
				} else {
					ctx.RaiseException("Method '" + methodName + "' does not exist on list")
				}

			case values.String:
				if fn, ok := stringMethods[methodName]; ok {
					ctx.CallNativeFunctionWithSelf(fn, numArgs, object)
				} else {
					ctx.RaiseException("Method '" + methodName + "' does not exist on string")
				}

			default:
				if method, ok := getProperty(ctx, object, methodName, true); ok {
					ctx.InvokeWithSelf(method, object, numArgs)
				}
			}
			object.Release()

		case opcodes.Jmp:
			ctx.pc = bytecode.CodeAddr(inst.Operand)

		case opcodes.JmpTrue:
			value := ctx.popStack()
			if asBoolean(value) {
				ctx.pc = bytecode.CodeAddr(inst.Operand)
			}
			value.Release()

		case opcodes.JmpFalse:
			value := ctx.popStack()
			if !asBoolean(value) {
				ctx.pc = bytecode.CodeAddr(inst.Operand)
			}
			value.Release()

		case opcodes.Ret:
			ctx.frames = ctx.frames[:len(ctx.frames)-1]

			if len(ctx.frames) == 0 {
				ctx.state = StateReturnedValue
				break
			}

			ctx.frame = &ctx.frames[len(ctx.frames)-1]
			ctx.activeModule = ctx.frame.Module
			ctx.activeModuleIndex = ctx.frame.ModuleIndex
			ctx.pc = ctx.frame.PC

		case opcodes.Switch:
			value := ctx.popStack()
			table := ctx.activeModule.SwitchTables[inst.Operand]

			i := 0
			for ; i < len(table.Cases); i++ {
				if switchCaseMatches(value, table.Cases[i]) {
					break
				}
			}
			ctx.pc = table.Handlers[i]
			value.Release()

		case opcodes.ThrowVar:
			ctx.raiseExceptionValue(ctx.popStack())

		case opcodes.Add:
			right, left := ctx.popStack(), ctx.popStack()
			result := operatorAdd(ctx, left, right)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			left.Release()
			right.Release()

		case opcodes.Sub:
			right, left := ctx.popStack(), ctx.popStack()
			result := operatorSub(ctx, left, right)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			left.Release()
			right.Release()

		case opcodes.Mul:
			right, left := ctx.popStack(), ctx.popStack()
			result := operatorMul(ctx, left, right)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			left.Release()
			right.Release()

		case opcodes.Div:
			right, left := ctx.popStack(), ctx.popStack()
			result := operatorDiv(ctx, left, right)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			left.Release()
			right.Release()

		case opcodes.Mod:
			right, left := ctx.popStack(), ctx.popStack()
			result := operatorMod(ctx, left, right)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			left.Release()
			right.Release()

		case opcodes.Neg:
			left := ctx.popStack()
			result := operatorNeg(ctx, left)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			left.Release()

		case opcodes.Eq:
			right, left := ctx.popStack(), ctx.popStack()
			ctx.pushStack(values.NewBoolean(operatorEquals(left, right)))
			left.Release()
			right.Release()

		case opcodes.Neq:
			right, left := ctx.popStack(), ctx.popStack()
			ctx.pushStack(values.NewBoolean(!operatorEquals(left, right)))
			left.Release()
			right.Release()

		case opcodes.Less:
			right, left := ctx.popStack(), ctx.popStack()
			if result, ok := operatorLessThan(ctx, left, right); ok {
				ctx.pushStack(values.NewBoolean(result))
			}
			left.Release()
			right.Release()

		case opcodes.LessEq:
			right, left := ctx.popStack(), ctx.popStack()
			// implemented as not-greater-than
			if result, ok := operatorGreaterThan(ctx, left, right); ok {
				ctx.pushStack(values.NewBoolean(!result))
			}
			left.Release()
			right.Release()

		case opcodes.Grtr:
			right, left := ctx.popStack(), ctx.popStack()
			if result, ok := operatorGreaterThan(ctx, left, right); ok {
				ctx.pushStack(values.NewBoolean(result))
			}
			left.Release()
			right.Release()

		case opcodes.GrtrEq:
			right, left := ctx.popStack(), ctx.popStack()
			// implemented as not-less-than
			if result, ok := operatorLessThan(ctx, left, right); ok {
				ctx.pushStack(values.NewBoolean(!result))
			}
			left.Release()
			right.Release()

		case opcodes.Land:
			a, b := ctx.popStack(), ctx.popStack()
			result := operatorLogAnd(ctx, a, b)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			a.Release()
			b.Release()

		case opcodes.Lor:
			a, b := ctx.popStack(), ctx.popStack()
			result := operatorLogOr(ctx, a, b)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			a.Release()
			b.Release()

		case opcodes.Lnot:
			left := ctx.popStack()
			result := operatorLogNot(ctx, left)
			if !result.IsUndefined() {
				ctx.pushStack(result)
			}
			left.Release()

		case opcodes.PushNil:
			ctx.pushStack(values.NewNil())

		case opcodes.PushBool:
			ctx.pushStack(values.NewBoolean(inst.Operand != 0))

		case opcodes.PushFloat:
			ctx.pushStack(values.NewReal(inst.Real))

		case opcodes.PushInt:
			ctx.pushStack(values.NewInteger(inst.Operand))

		case opcodes.PushString:
			s := ctx.activeModule.Strings[inst.Operand]
			ctx.pushStack(values.NewBytes(s.Bytes))

		case opcodes.PushFunc:
			ctx.pushStack(values.NewScriptFunction(values.ScriptFunctionRef{
				ModuleIndex:   uint32(ctx.activeModuleIndex),
				FunctionIndex: uint32(inst.Operand),
			}))

		case opcodes.PushGlobal:
			ctx.pushStack(vm.global.Reference())

		case opcodes.Drop:
			value := ctx.popStack()
			value.Release()

		case opcodes.Dup:
			ctx.pushStack(ctx.topStack().Reference())

		case opcodes.Dup1:
			ctx.pushStack(ctx.belowTop(1).Reference())

		case opcodes.GetLocal:
			ctx.pushStack(ctx.frame.Local(int(inst.Operand)).Reference())

		case opcodes.SetLocal:
			ctx.frame.SetLocal(int(inst.Operand), ctx.popStack())

		case opcodes.GetIndexed:
			index, rng := ctx.popStack(), ctx.popStack()
			if item, ok := getIndexed(ctx, rng, index); ok {
				ctx.pushStack(item)
			}
			rng.Release()
			index.Release()

		case opcodes.SetIndexed:
			index, rng := ctx.popStack(), ctx.popStack()
			setIndexed(ctx, rng, index, ctx.popStack())
			rng.Release()
			index.Release()

		case opcodes.GetProperty:
			object := ctx.popStack()
			name := ctx.activeModule.Strings[inst.Operand].String()
			if member, ok := getProperty(ctx, object, name, true); ok {
				ctx.pushStack(member)
			}
			object.Release()

		case opcodes.SetMember:
			object := ctx.popStack()
			name := ctx.activeModule.Strings[inst.Operand].String()
			setMember(ctx, object, name, ctx.popStack())
			object.Release()

		case opcodes.NewList:
			count := int(inst.Operand)
			list := values.NewList(vm, count)
			for i := count - 1; i >= 0; i-- {
				list.SetItem(i, ctx.popStack())
			}
			ctx.pushStack(list)

		case opcodes.NewObj:
			ctx.pushStack(values.NewObject(vm))

		default:
			panic(fmt.Sprintf("%s: %s", ErrUnknownOpcode, inst.Opcode))
		}

		vm.numInstructionsSinceLastCollect++

		if ctx.state == StateRaisedException {
			unwindToHandler(ctx)
		}
	}
}

// unwindToHandler pops frames until one has an exception handler whose
// range covers that frame's current instruction (the one that just raised
// for the innermost frame, the pending call for each caller), restoring that frame's
// hot state, truncating the operand stack back to its base, and pushing
// the exception value for the handler to pick up. If no frame has a
// matching handler, the exception is left raised and the loop in Execute
// exits with ctx in the raisedException state. Mirrors the post-switch
// unwind block in VM::execute.
func unwindToHandler(ctx *ActivationContext) {
	found := false
	frameSwitched := false

	for len(ctx.frames) > 0 {
		frame := &ctx.frames[len(ctx.frames)-1]
		pc := ctx.pc - 1
		if frameSwitched {
			pc = frame.PC - 1
		}

		for _, eh := range frame.Function.ExceptionHandlers {
			if eh.Covers(pc) {
				ctx.pc = eh.Handler
				found = true
				break
			}
		}

		if found {
			break
		}

		ctx.frames = ctx.frames[:len(ctx.frames)-1]
		frameSwitched = true
	}

	if !found {
		return
	}

	if frameSwitched {
		ctx.frame = &ctx.frames[len(ctx.frames)-1]
		ctx.activeModule = ctx.frame.Module
		ctx.activeModuleIndex = ctx.frame.ModuleIndex
	}

	for len(ctx.stack) > ctx.frame.StackBase {
		value := ctx.popStack()
		value.Release()
	}

	ctx.pushStack(ctx.exception)
	ctx.exception = values.UndefinedValue
	ctx.Resume()
}

// switchCaseMatches reports whether v equals a switch table case,
// matching both type and value the way operatorEquals would for these
// two case kinds. Mirrors the op_switch case's per-entry operatorEquals
// call.
func switchCaseMatches(v values.Value, c bytecode.SwitchCase) bool {
	switch c.Kind {
	case bytecode.SwitchCaseInt:
		return v.Type() == values.Integer && v.Int() == c.Int
	case bytecode.SwitchCaseString:
		return v.Type() == values.String && v.Str() == c.Str
	default:
		return false
	}
}
