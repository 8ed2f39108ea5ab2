package vm

import (
	"fmt"

	"github.com/mcejp/Helium/bytecode"
	"github.com/mcejp/Helium/opcodes"
	"github.com/mcejp/Helium/values"
)

// State is the run state of an ActivationContext. Mirrors
// ActivationContext::State.
type State int

const (
	StateReady State = iota
	StateSuspended
	StateReturnedValue
	StateRaisedException
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateSuspended:
		return "suspended"
	case StateReturnedValue:
		return "returnedValue"
	case StateRaisedException:
		return "raisedException"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Frame is a single stack frame, always corresponding to a script function
// call in progress. Mirrors struct Frame.
type Frame struct {
	Function *bytecode.Function
	StackBase int
	Locals    []values.Value

	// Stashed copy of the *outgoing* frame's hot execution state, restored
	// into ActivationContext when a call returns to this frame. Flushed
	// only when this frame stops being the current one, not kept live
	// while it is.
	Module      *bytecode.LoadedModule
	ModuleIndex int
	PC          bytecode.CodeAddr
}

// Local reads local slot index, growing the backing slice (with Undefined
// fill) if it has never been written. Mirrors Frame::getLocal.
func (f *Frame) Local(index int) values.Value {
	if index >= len(f.Locals) {
		f.growLocals(index + 1)
	}
	return f.Locals[index]
}

// SetLocal stores value at local slot index, releasing whatever reference
// previously lived there. Mirrors Frame::setLocal, adapted for the fact
// that Go's Value has no destructor to run the release automatically.
func (f *Frame) SetLocal(index int, value values.Value) {
	if index >= len(f.Locals) {
		f.growLocals(index + 1)
	} else {
		f.Locals[index].Release()
	}
	f.Locals[index] = value
}

func (f *Frame) growLocals(minLength int) {
	grown := make([]values.Value, minLength)
	copy(grown, f.Locals)
	f.Locals = grown
}

// ActivationContext is a single call stack plus its in-flight operand
// stack and run state: one per concurrently executing script call chain.
// Mirrors ActivationContext.
type ActivationContext struct {
	vm    *VirtualMachine
	state State

	frames []Frame
	frame  *Frame // &frames[len(frames)-1], nil when frames is empty

	stack []values.Value

	activeModule      *bytecode.LoadedModule
	activeModuleIndex int
	pc                bytecode.CodeAddr

	// Stored by CallScriptFunction, mirroring ActivationContext::numArgs.
	// VM::execute keeps its own loop-local copy (set by the args opcode)
	// for dispatch; this field exists only to mirror the original layout.
	numArgs int

	exception values.Value
}

// NewActivationContext creates a context bound to vm, ready to run a
// function via CallMainFunction or CallScriptFunction.
func NewActivationContext(vm *VirtualMachine) *ActivationContext {
	return &ActivationContext{vm: vm, state: StateReady}
}

func (ctx *ActivationContext) State() State          { return ctx.state }
func (ctx *ActivationContext) Exception() values.Value { return ctx.exception }
func (ctx *ActivationContext) Resume()                { ctx.state = StateReady }
func (ctx *ActivationContext) Suspend()               { ctx.state = StateSuspended }

// popStack pops and returns the top of the operand stack. Underflow here
// means a bytecode-level bug (mismatched push/pop counts); it is not a
// condition script code can trigger or catch, so it panics rather than
// returning an error.
func (ctx *ActivationContext) popStack() values.Value {
	n := len(ctx.stack)
	if n == 0 {
		panic(ErrStackUnderflow)
	}
	v := ctx.stack[n-1]
	ctx.stack = ctx.stack[:n-1]
	return v
}

func (ctx *ActivationContext) pushStack(v values.Value) {
	ctx.stack = append(ctx.stack, v)
}

func (ctx *ActivationContext) topStack() values.Value {
	return ctx.stack[len(ctx.stack)-1]
}

// belowTop returns the value index slots below the current top of the
// operand stack (index 0 is the top itself). Mirrors InlineStack::getBelowTop,
// which NativeFunctionContext::getArg is built on.
func (ctx *ActivationContext) belowTop(index int) values.Value {
	return ctx.stack[len(ctx.stack)-1-index]
}

// LastExecutedInstruction returns the instruction at pc-1 in the active
// module, i.e. the one that was just executed, or false if none applies
// yet. Mirrors ActivationContext::getLastExecutedInstruction.
func (ctx *ActivationContext) LastExecutedInstruction() (bytecode.Instruction, bool) {
	if ctx.activeModule != nil && ctx.pc > 0 {
		return ctx.activeModule.Code[ctx.pc-1], true
	}
	return bytecode.Instruction{}, false
}

// CallMainFunction looks up the module's entry point and starts it.
// Mirrors ActivationContext::callMainFunction.
func (ctx *ActivationContext) CallMainFunction(moduleIndex int) {
	module := ctx.vm.ModuleByIndex(moduleIndex)
	fnIndex, ok := module.FindFunctionIndex(bytecode.MainFunctionName)
	if !ok {
		ctx.RaiseException("Module is not executable")
		return
	}

	ctx.CallScriptFunction(moduleIndex, fnIndex, 0, values.UndefinedValue)
}

// CallScriptFunction pushes a new frame for the given module/function and
// starts executing it; self becomes local 0 (`this`). Mirrors
// ActivationContext::callScriptFunction.
func (ctx *ActivationContext) CallScriptFunction(moduleIndex, functionIndex, numArgs int, self values.Value) {
	if ctx.frame != nil {
		ctx.frame.Module = ctx.activeModule
		ctx.frame.ModuleIndex = ctx.activeModuleIndex
		ctx.frame.PC = ctx.pc
	}

	ctx.frames = append(ctx.frames, Frame{})
	ctx.frame = &ctx.frames[len(ctx.frames)-1]

	ctx.activeModule = ctx.vm.ModuleByIndex(moduleIndex)
	ctx.activeModuleIndex = moduleIndex

	function := &ctx.activeModule.Functions[functionIndex]
	ctx.pc = function.Start
	ctx.numArgs = numArgs

	ctx.frame.Function = function
	ctx.frame.StackBase = len(ctx.stack)
	ctx.frame.SetLocal(opcodes.LocalThis, self)

	ctx.enterFunction(function, numArgs)
}

// enterFunction validates the call's argument count against the callee's
// declared arity and, if it matches, pops the arguments off the operand
// stack into locals 1..numArgs. A mismatch raises a catchable script
// exception rather than failing the call outright. Mirrors
// ActivationContext::enterFunction (Helium only has one ArgumentListType,
// explicit_, so there is no argument-list-type switch to replicate).
//
// The stack holds arguments in reverse source order (the last argument
// pushed first), so the first pop goes straight into local 1: callers are the
// ones responsible for pushing the last source argument first so that the
// first source argument ends up on top.
func (ctx *ActivationContext) enterFunction(function *bytecode.Function, numArgs int) {
	expected := function.NumExplicitArguments

	if numArgs != expected {
		ctx.RaiseException("Incorrect number of arguments in function call")
		return
	}

	for i := 0; i < expected; i++ {
		ctx.frame.SetLocal(i+1, ctx.popStack())
	}
}

// CallNativeFunction invokes fn with numArgs arguments already sitting on
// top of the operand stack, then replaces them with its single return
// value. Mirrors ActivationContext::callNativeFunction.
func (ctx *ActivationContext) CallNativeFunction(fn values.NativeFunc, numArgs int) {
	nctx := &nativeCallContext{ac: ctx, numArgs: numArgs}
	ret, err := fn(nctx)

	for i := 0; i < numArgs; i++ {
		arg := ctx.popStack()
		arg.Release()
	}

	if err != nil {
		ctx.RaiseException(err.Error())
		return
	}

	ctx.pushStack(ret)
}

// CallNativeFunctionWithSelf is CallNativeFunction for a method call: self
// is pushed as one additional, trailing argument (so it ends up on top,
// i.e. argument 0 from the callee's point of view — see
// nativeCallContext.Argument). Mirrors
// ActivationContext::callNativeFunctionWithSelf.
func (ctx *ActivationContext) CallNativeFunctionWithSelf(fn values.NativeFunc, numArgs int, self values.Value) {
	ctx.pushStack(self.Reference())
	ctx.CallNativeFunction(fn, numArgs+1)
}

// Invoke dispatches a call to callable, which may be a native function, a
// script function, or neither (in which case a catchable exception is
// raised). Mirrors ActivationContext::invoke.
func (ctx *ActivationContext) Invoke(callable values.Value, numArgs int) {
	switch callable.Type() {
	case values.NativeFunction:
		ctx.CallNativeFunction(callable.Native(), numArgs)
	case values.ScriptFunction:
		ref := callable.ScriptFunc()
		ctx.CallScriptFunction(int(ref.ModuleIndex), int(ref.FunctionIndex), numArgs, values.UndefinedValue)
	default:
		ctx.RaiseException("Attempting to call a non-function")
	}
}

// InvokeWithSelf is Invoke for a method call, threading self through to
// whichever call protocol ends up handling it. Mirrors
// ActivationContext::invokeWithSelf.
func (ctx *ActivationContext) InvokeWithSelf(callable, self values.Value, numArgs int) {
	switch callable.Type() {
	case values.NativeFunction:
		ctx.CallNativeFunctionWithSelf(callable.Native(), numArgs, self)
	case values.ScriptFunction:
		ref := callable.ScriptFunc()
		ctx.CallScriptFunction(int(ref.ModuleIndex), int(ref.FunctionIndex), numArgs, self.Reference())
	default:
		ctx.RaiseException("Attempting to call a non-function")
	}
}

// RaiseException builds a plain exception object (an Object with a
// "desc" string property) carrying desc, attaches a stacktrace, and moves
// the context into the raisedException state. This is the Go equivalent
// of the free function RuntimeFunctions::raiseException plus
// ActivationContext::raiseException, folded into one call since nothing
// else in this port needs to raise a bare ValueRef the way throw_var does.
func (ctx *ActivationContext) RaiseException(desc string) {
	ex := values.NewObject(ctx.vm)
	ex.SetProperty("desc", values.NewString(desc), false)
	ctx.raiseExceptionValue(ex)
}

// raiseExceptionValue raises val directly (used by the throw_var opcode,
// where the thrown value is already a fully-formed Value off the operand
// stack). Mirrors ActivationContext::raiseException.
func (ctx *ActivationContext) raiseExceptionValue(val values.Value) {
	if val.IsObject() {
		trace := values.NewList(ctx.vm, 5)

		ctx.WalkStack(func(function, unit string, line int) {
			entry := values.NewString(fmt.Sprintf("%s (%s:%d)", function, unit, line))
			trace.AddItem(entry)
		})

		val.SetProperty("stacktrace", trace, false)
	}

	ctx.exception = val
	ctx.state = StateRaisedException
}

// WalkStack invokes callback once per active frame, innermost first, with
// the origin (source function/unit/line) of that frame's last executed
// instruction. Mirrors ActivationContext::walkStack.
func (ctx *ActivationContext) WalkStack(callback func(function, unit string, line int)) {
	for i := len(ctx.frames) - 1; i >= 0; i-- {
		f := &ctx.frames[i]

		var module *bytecode.LoadedModule
		var pc bytecode.CodeAddr

		if f == ctx.frame {
			module, pc = ctx.activeModule, ctx.pc
		} else {
			module, pc = f.Module, f.PC
		}

		if module == nil || pc == 0 || int(pc)-1 >= len(module.Code) {
			continue
		}

		origin := module.Code[pc-1].Origin
		if origin != nil {
			callback(origin.Function, origin.Unit, origin.Line)
		}
	}
}

// nativeCallContext is the concrete values.NativeCallContext passed to a
// NativeFunc, reading arguments straight off the operand stack the way
// InlineStack::getBelowTop does, without popping them (CallNativeFunction
// pops them itself once the call returns). Mirrors NativeFunctionContext.
type nativeCallContext struct {
	ac      *ActivationContext
	numArgs int
}

func (n *nativeCallContext) Argument(index int) values.Value {
	return n.ac.belowTop(index)
}

func (n *nativeCallContext) NumArguments() int { return n.numArgs }
