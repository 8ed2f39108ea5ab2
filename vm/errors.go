package vm

import (
	"errors"
	"fmt"

	"github.com/mcejp/Helium/bytecode"
	"github.com/mcejp/Helium/opcodes"
	"github.com/mcejp/Helium/values"
)

// Host-level error sentinels: conditions that indicate a malformed module
// or an embedding bug, never something script code itself can raise or
// catch. Script-level failures (division by zero, a missing property, a
// non-function call) are reported as catchable exceptions through
// ActivationContext.RaiseException instead of these.
var (
	ErrStackUnderflow     = errors.New("vm: operand stack underflow")
	ErrUnknownOpcode      = errors.New("vm: unknown opcode")
	ErrModuleIndexInvalid = errors.New("vm: module index out of range")
	ErrFunctionIndexInvalid = errors.New("vm: function index out of range")
	ErrUnresolvedExternal = errors.New("vm: external function has no registered implementation")
)

// ExecError decorates a host-level error with the instruction and frame
// that were executing when it surfaced, for diagnostics. Mirrors the
// teacher runtime's VMError wrapper.
type ExecError struct {
	Err      error
	Function string
	Unit     string
	Line     int
	PC       bytecode.CodeAddr
	Opcode   opcodes.Opcode
}

func (e *ExecError) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("vm: %v (in %s at %s:%d, pc %04Xh, opcode %s)", e.Err, e.Function, e.Unit, e.Line, e.PC, e.Opcode)
	}
	return fmt.Sprintf("vm: %v (pc %04Xh, opcode %s)", e.Err, e.PC, e.Opcode)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ScriptException wraps an uncaught script-level exception value that
// propagated all the way out of Run. Its Error text prefers the
// exception object's "desc" property (the convention every raiseException
// call in the runtime establishes) and falls back to the value's type.
type ScriptException struct {
	Value values.Value
}

func (e *ScriptException) Error() string {
	if e.Value.IsObject() {
		if desc, ok := e.Value.GetProperty("desc"); ok && desc.IsString() {
			return "uncaught exception: " + desc.Str()
		}
	}
	return fmt.Sprintf("uncaught exception of type %s", e.Value.Type())
}

// Stacktrace returns the human-readable stack frames ActivationContext.
// RaiseException attached to the exception object, if any.
func (e *ScriptException) Stacktrace() []string {
	if !e.Value.IsObject() {
		return nil
	}
	trace, ok := e.Value.GetProperty("stacktrace")
	if !ok || !trace.IsList() {
		return nil
	}

	out := make([]string, 0, trace.Len())
	for i := 0; i < trace.Len(); i++ {
		item := trace.Item(i)
		if item.IsString() {
			out = append(out, item.Str())
		}
	}
	return out
}
