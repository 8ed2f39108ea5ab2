package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcejp/Helium/bytecode"
	"github.com/mcejp/Helium/values"
)

func loadBuiltModule(t *testing.T, machine *VirtualMachine, m *bytecode.CompiledModule) int {
	t.Helper()
	idx, err := machine.LoadModule(m)
	assert.NoError(t, err)
	return idx
}

// Scenario 1: "1 + 2 * 3;" returns 7.
func TestExecute_ArithmeticAndReturn(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushInt(1)
	b.PushInt(2)
	b.PushInt(3)
	b.Mul()
	b.Add()
	b.Ret()
	b.EndFunction(fn)

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	result, err := machine.Run(idx)
	assert.NoError(t, err)
	assert.Equal(t, values.Integer, result.Type())
	assert.Equal(t, int64(7), result.Int())
}

// Scenario 2: try { throw {desc: 'x'}; } catch e { return e.desc; } returns "x".
func TestExecute_ExceptionCatch(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.BeginFunction(bytecode.MainFunctionName, true, 0)

	tryStart := b.Addr()
	b.NewObj()
	b.PushString("x")
	b.Dup1()
	b.SetMember("desc")
	b.ThrowVar()
	tryEnd := b.Addr()

	b.Label("handler")
	b.GetProperty("desc")
	b.Ret()
	b.EndFunction(fn)

	b.AddExceptionHandler(fn, tryStart, tryEnd-tryStart, "handler")

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	result, err := machine.Run(idx)
	assert.NoError(t, err)
	assert.Equal(t, values.String, result.Type())
	assert.Equal(t, "x", result.Str())
}

// Scenario 3: a.x = b; b.x = a; drop outer refs; collect -> both reclaimed.
func TestCollectGarbage_ReclaimsCycle(t *testing.T) {
	machine := NewVirtualMachine()

	a := values.NewObject(machine)
	b := values.NewObject(machine)

	a.SetProperty("x", b.Reference(), false)
	b.SetProperty("x", a.Reference(), false)

	a.Release()
	b.Release()

	reclaimed := machine.CollectGarbage()
	assert.Equal(t, uint(2), reclaimed)
}

// Scenario 4: reading a missing property raises an exception naming it.
func TestExecute_MissingPropertyRaises(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.NewObj()
	b.GetProperty("missing")
	b.Ret()
	b.EndFunction(fn)

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	_, err := machine.Run(idx)
	assert.Error(t, err)

	scriptErr, ok := err.(*ScriptException)
	assert.True(t, ok)
	desc, ok := scriptErr.Value.GetProperty("desc")
	assert.True(t, ok)
	assert.Contains(t, desc.Str(), "missing")
}

// Scenario 5: calling a 2-argument function with 3 arguments raises an
// arity-mismatch exception without entering the callee's frame.
func TestExecute_ArityMismatchRaises(t *testing.T) {
	b := bytecode.NewBuilder()

	callee := b.BeginFunction("takesTwo", true, 2)
	b.GetLocal(1)
	b.Ret()
	b.EndFunction(callee)

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushInt(1)
	b.PushInt(2)
	b.PushInt(3)
	b.Args(3)
	b.CallFunc(callee)
	b.Ret()
	b.EndFunction(main)

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	_, err := machine.Run(idx)
	assert.Error(t, err)

	scriptErr, ok := err.(*ScriptException)
	assert.True(t, ok)
	desc, ok := scriptErr.Value.GetProperty("desc")
	assert.True(t, ok)
	assert.Contains(t, desc.Str(), "Incorrect number of arguments")
}

// Scenario 6: switch x { 1: "a", 2: "b", else: "c" } with x=7 returns "c".
func TestExecute_SwitchElseBranch(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.BeginFunction(bytecode.MainFunctionName, true, 0)

	table := b.AddSwitchTable([]bytecode.SwitchCase{
		{Kind: bytecode.SwitchCaseInt, Int: 1},
		{Kind: bytecode.SwitchCaseInt, Int: 2},
	})

	b.PushInt(7)
	b.Switch(table)

	b.Label("case_a")
	b.PushString("a")
	b.Ret()

	b.Label("case_b")
	b.PushString("b")
	b.Ret()

	b.Label("case_else")
	b.PushString("c")
	b.Ret()

	b.EndFunction(fn)

	b.SetSwitchHandler(table, 0, "case_a")
	b.SetSwitchHandler(table, 1, "case_b")
	b.SetSwitchHandler(table, 2, "case_else")

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	result, err := machine.Run(idx)
	assert.NoError(t, err)
	assert.Equal(t, values.String, result.Type())
	assert.Equal(t, "c", result.Str())
}

// Dispatch invariant: a raised exception with no covering handler leaves
// the context in raisedException and surfaces as a ScriptException from
// Run, carrying the original value.
func TestExecute_UncaughtExceptionPropagates(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.NewObj()
	b.PushString("boom")
	b.Dup1()
	b.SetMember("desc")
	b.ThrowVar()
	b.Ret()
	b.EndFunction(fn)

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	_, err := machine.Run(idx)
	assert.Error(t, err)

	scriptErr, ok := err.(*ScriptException)
	assert.True(t, ok)
	assert.True(t, scriptErr.Value.IsObject())
	desc, _ := scriptErr.Value.GetProperty("desc")
	assert.Equal(t, "boom", desc.Str())
}

func TestVirtualMachine_CallFunction(t *testing.T) {
	b := bytecode.NewBuilder()
	sum := b.BeginFunction("sum", true, 2)
	b.GetLocal(1)
	b.GetLocal(2)
	b.Add()
	b.Ret()
	b.EndFunction(sum)

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushNil()
	b.Ret()
	b.EndFunction(main)

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	result, err := machine.CallFunction(idx, "sum", []values.Value{values.NewInteger(10), values.NewInteger(32)})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), result.Int())
}

// The call protocol pushes arguments back to front so the first source
// argument ends up on top of the stack; Sub is not commutative, so this
// locks in that `sub(a, b)` called as sub(10, 3) returns 7, not -7.
func TestExecute_CallFunc_ArgumentOrder(t *testing.T) {
	b := bytecode.NewBuilder()
	sub := b.BeginFunction("sub", true, 2)
	b.GetLocal(1)
	b.GetLocal(2)
	b.Sub()
	b.Ret()
	b.EndFunction(sub)

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushInt(3)
	b.PushInt(10)
	b.Args(2)
	b.CallFunc(sub)
	b.Ret()
	b.EndFunction(main)

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	result, err := machine.Run(idx)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), result.Int())
}

// CallFunction's args slice is in source order; the helper must reverse it
// internally to satisfy the same push-back-to-front protocol.
func TestVirtualMachine_CallFunction_ArgumentOrder(t *testing.T) {
	b := bytecode.NewBuilder()
	sub := b.BeginFunction("sub", true, 2)
	b.GetLocal(1)
	b.GetLocal(2)
	b.Sub()
	b.Ret()
	b.EndFunction(sub)

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushNil()
	b.Ret()
	b.EndFunction(main)

	machine := NewVirtualMachine()
	idx := loadBuiltModule(t, machine, b.Finish())

	result, err := machine.CallFunction(idx, "sub", []values.Value{values.NewInteger(10), values.NewInteger(3)})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), result.Int())
}

func TestVirtualMachine_Profiling(t *testing.T) {
	b := bytecode.NewBuilder()
	fn := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushInt(1)
	b.PushInt(2)
	b.Add()
	b.Ret()
	b.EndFunction(fn)

	machine := NewVirtualMachine()
	machine.EnableProfiling()
	idx := loadBuiltModule(t, machine, b.Finish())

	_, err := machine.Run(idx)
	assert.NoError(t, err)

	spots := machine.HotSpots(0)
	assert.Len(t, spots, 4)
	assert.NotEmpty(t, machine.ProfileReport())
}
