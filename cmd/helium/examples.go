package main

import (
	"github.com/mcejp/Helium/bytecode"
)

// No persistent on-disk bytecode format exists for Helium modules, and the
// lexer/parser/AST front end that would turn source text into one is out of
// scope for this repository (see the module format's own doc comment on
// bytecode.Builder). So the reference driver's "program file" is a name
// into this built-in registry of modules assembled directly with
// bytecode.Builder, rather than a path read off disk — each entry is the
// moral equivalent of a tiny .helium source file, just assembled in Go
// instead of parsed from text.
var examplePrograms = map[string]func() *bytecode.CompiledModule{
	"hello":    buildHelloProgram,
	"sum":      buildSumProgram,
	"catch":    buildCatchProgram,
	"counter":  buildCounterProgram,
	"fizzbuzz": buildFizzBuzzProgram,
}

// buildHelloProgram prints a greeting and returns nil. Exercises
// push_string / call_ext / drop / ret.
func buildHelloProgram() *bytecode.CompiledModule {
	b := bytecode.NewBuilder()
	printlnExt := b.Dependency("io.println")

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushString("Hello from Helium!")
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()
	b.PushNil()
	b.Ret()
	b.EndFunction(main)

	return b.Finish()
}

// buildSumProgram defines an exported `sum(a, b)` function and a `.main`
// that calls it and prints the result. Exercises call_func, get_local,
// arithmetic, and the explicit-argument call protocol.
func buildSumProgram() *bytecode.CompiledModule {
	b := bytecode.NewBuilder()
	printlnExt := b.Dependency("io.println")

	sum := b.BeginFunction("sum", true, 2)
	b.GetLocal(1)
	b.GetLocal(2)
	b.Add()
	b.Ret()
	b.EndFunction(sum)

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	// Call protocol: push arguments back to front, so the first source
	// argument (19, landing in local 1 / `a`) ends up on top.
	b.PushInt(23)
	b.PushInt(19)
	b.Args(2)
	b.CallFunc(sum)
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()
	b.PushNil()
	b.Ret()
	b.EndFunction(main)

	return b.Finish()
}

// buildCatchProgram raises an exception from inside an exception handler's
// protected range and prints its `desc` once control resumes at the
// handler. Exercises throw_var, AddExceptionHandler, and unwind-to-handler.
func buildCatchProgram() *bytecode.CompiledModule {
	b := bytecode.NewBuilder()
	printlnExt := b.Dependency("io.println")

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)

	tryStart := b.Addr()
	b.NewObj()
	b.PushString("something went wrong")
	b.Dup1()
	b.SetMember("desc")
	b.ThrowVar()
	tryEnd := b.Addr()

	b.Jmp("after_handler")

	b.Label("handler")
	b.GetProperty("desc")
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()

	b.Label("after_handler")
	b.PushNil()
	b.Ret()
	b.EndFunction(main)

	b.AddExceptionHandler(main, tryStart, tryEnd-tryStart, "handler")

	return b.Finish()
}

// buildCounterProgram loops a local variable from 0 to 4, printing each
// value. Exercises jmp_false, set_local/get_local, and comparison opcodes.
func buildCounterProgram() *bytecode.CompiledModule {
	b := bytecode.NewBuilder()
	printlnExt := b.Dependency("io.println")

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushInt(0)
	b.SetLocal(1)

	b.Label("loop")
	b.GetLocal(1)
	b.PushInt(5)
	b.Less()
	b.JmpFalse("done")

	b.GetLocal(1)
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()

	b.GetLocal(1)
	b.PushInt(1)
	b.Add()
	b.SetLocal(1)
	b.Jmp("loop")

	b.Label("done")
	b.PushNil()
	b.Ret()
	b.EndFunction(main)

	return b.Finish()
}

// buildFizzBuzzProgram runs FizzBuzz from 1 to 15 using a switch table on
// `n % 3 == 0` and `n % 5 == 0` folded into one dispatch key.
// Exercises switch/mod/eq in combination.
func buildFizzBuzzProgram() *bytecode.CompiledModule {
	b := bytecode.NewBuilder()
	printlnExt := b.Dependency("io.println")

	main := b.BeginFunction(bytecode.MainFunctionName, true, 0)
	b.PushInt(1)
	b.SetLocal(1)

	b.Label("loop")
	b.GetLocal(1)
	b.PushInt(16)
	b.Less()
	b.JmpFalse("done")

	// key = (n % 3 == 0 ? 1 : 0) + (n % 5 == 0 ? 2 : 0), dispatched via switch
	b.GetLocal(1)
	b.PushInt(3)
	b.Mod()
	b.PushInt(0)
	b.Eq()
	b.JmpFalse("not_fizz")
	b.PushInt(1)
	b.SetLocal(2)
	b.Jmp("fizz_checked")
	b.Label("not_fizz")
	b.PushInt(0)
	b.SetLocal(2)
	b.Label("fizz_checked")

	b.GetLocal(1)
	b.PushInt(5)
	b.Mod()
	b.PushInt(0)
	b.Eq()
	b.JmpFalse("not_buzz")
	b.GetLocal(2)
	b.PushInt(2)
	b.Add()
	b.SetLocal(2)
	b.Jmp("buzz_checked")
	b.Label("not_buzz")
	b.Label("buzz_checked")

	table := b.AddSwitchTable([]bytecode.SwitchCase{
		{Kind: bytecode.SwitchCaseInt, Int: 1},
		{Kind: bytecode.SwitchCaseInt, Int: 2},
		{Kind: bytecode.SwitchCaseInt, Int: 3},
	})
	b.GetLocal(2)
	b.Switch(table)

	b.Label("case_fizz")
	b.PushString("Fizz")
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()
	b.Jmp("next")

	b.Label("case_buzz")
	b.PushString("Buzz")
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()
	b.Jmp("next")

	b.Label("case_fizzbuzz")
	b.PushString("FizzBuzz")
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()
	b.Jmp("next")

	b.Label("case_number")
	b.GetLocal(1)
	b.Args(1)
	b.CallExt(printlnExt)
	b.Drop()

	b.Label("next")
	b.GetLocal(1)
	b.PushInt(1)
	b.Add()
	b.SetLocal(1)
	b.Jmp("loop")

	b.Label("done")
	b.PushNil()
	b.Ret()
	b.EndFunction(main)

	b.SetSwitchHandler(table, 0, "case_fizz")
	b.SetSwitchHandler(table, 1, "case_buzz")
	b.SetSwitchHandler(table, 2, "case_fizzbuzz")
	b.SetSwitchHandler(table, 3, "case_number") // else branch

	return b.Finish()
}
