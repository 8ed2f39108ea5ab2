// Command helium is the reference driver for the Helium VM: a thin CLI
// around vm.VirtualMachine that assembles one of a handful of built-in
// example programs (see examples.go) via bytecode.Builder, registers the
// runtime package's native externals, and either runs it, disassembles it,
// or drops into an interactive shell. There is no lexer/parser/AST front
// end and no persistent on-disk bytecode format in this repository (both
// are explicitly out of scope — see bytecode.Builder's doc comment), so
// "the program file" from the CLI surface this driver implements is a name
// into the built-in registry rather than a path read off disk.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/mcejp/Helium/bytecode"
	"github.com/mcejp/Helium/runtime"
	"github.com/mcejp/Helium/values"
	"github.com/mcejp/Helium/version"
	"github.com/mcejp/Helium/vm"
)

func main() {
	app := &cli.Command{
		Name:                  "helium",
		Usage:                 "assemble, disassemble, and run Helium bytecode modules",
		ArgsUsage:             "[-- ] <program> [argv...]",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "c", Usage: "compile only: link the module and report success without executing it"},
			// Spec calls this "-d[path]" (GNU-getopt-style attached optional
			// value); cli/v3 has no such flag kind, so pass -d= for stdout or
			// -d=path for a file — a bare "-d" would otherwise consume the
			// program name as its value.
			&cli.StringFlag{Name: "d", Usage: "write disassembly: -d= for stdout, -d=path for a file"},
			&cli.StringSliceFlag{Name: "I", Usage: "add a module search path (accepted for interface fidelity; the built-in registry does not consult the filesystem)"},
			&cli.StringFlag{Name: "o", Usage: "output path for -d"},
			&cli.StringFlag{Name: "O", Value: "O1", Usage: "optimizer level, O0 or O1"},
			&cli.BoolFlag{Name: "s", Usage: "silent: suppress the driver's own banner and stats output"},
			&cli.BoolFlag{Name: "V", Usage: "print version and exit"},
		},
		Action: runAction,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "helium:", err)
		os.Exit(1)
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("V") {
		fmt.Println(version.Version())
		return nil
	}

	args := cmd.Args().Slice()
	if len(args) == 0 {
		return runREPL(cmd)
	}

	programName := args[0]
	scriptArgv := args[1:]

	if programName == "repl" {
		return runREPL(cmd)
	}

	build, ok := examplePrograms[programName]
	if !ok {
		return fmt.Errorf("unknown program %q (known programs: %s, or \"repl\")", programName, knownProgramNames())
	}

	compiled := build()
	if cmd.String("O") == "O0" {
		// O1 (default) leaves the builder's output untouched; the only
		// optimization this reference driver performs is the peephole
		// pass below, so O0 simply skips it.
	} else {
		peepholeOptimize(compiled)
	}

	if d := cmd.String("d"); cmd.IsSet("d") {
		text := bytecode.Disassemble(compiled)
		if d == "" {
			d = cmd.String("o")
		}
		if d == "" {
			fmt.Print(text)
		} else if err := os.WriteFile(d, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing disassembly: %w", err)
		}
	}

	machine := vm.NewVirtualMachine()
	runtime.Register(machine)

	moduleIndex, err := machine.LoadModule(compiled)
	if err != nil {
		return fmt.Errorf("loading module %q: %w", programName, err)
	}

	if cmd.Bool("c") {
		if !cmd.Bool("s") {
			fmt.Printf("helium: %q compiled and linked successfully\n", programName)
		}
		return nil
	}

	setGlobalArgv(machine, scriptArgv)

	result, err := machine.Run(moduleIndex)
	if err != nil {
		return reportExecutionError(err)
	}

	if !cmd.Bool("s") && !result.IsNil() && !result.IsUndefined() {
		fmt.Printf("helium: %q returned %s\n", programName, displayResultForCLI(result))
	}
	return nil
}

// peepholeOptimize is the -O1 optimization pass. It performs no
// transformation: the module is left exactly as the builder produced it.
func peepholeOptimize(m *bytecode.CompiledModule) {
	_ = m
}

func knownProgramNames() string {
	names := make([]string, 0, len(examplePrograms))
	for name := range examplePrograms {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func setGlobalArgv(machine *vm.VirtualMachine, argv []string) {
	list := values.NewList(noopGCHost{}, len(argv))
	for _, a := range argv {
		list.AddItem(values.NewString(a))
	}
	machine.Global().SetProperty("argv", list, false)
}

// noopGCHost backs the argv list handed to scripts before the module
// runs: a GCHost is required to construct a list, but argv never holds a
// reference back into the running VM's heap, so there is nothing for a
// possible-root registration to do.
type noopGCHost struct{}

func (noopGCHost) AddPossibleRoot(values.Value) {}

func displayResultForCLI(v values.Value) string {
	switch v.Type() {
	case values.Integer:
		return fmt.Sprintf("%d", v.Int())
	case values.Real:
		return fmt.Sprintf("%g", v.Float())
	case values.Boolean:
		if v.Bool() {
			return "true"
		}
		return "false"
	case values.String:
		return v.Str()
	default:
		return v.Type().String()
	}
}

// reportExecutionError turns an uncaught script exception or host-level
// failure into the driver's exit behavior: nonzero via the exception's
// exitCode property when present, 1 otherwise. Mirrors the CLI surface's
// exit code contract.
func reportExecutionError(err error) error {
	if scriptErr, ok := err.(*vm.ScriptException); ok {
		fmt.Fprintln(os.Stderr, scriptErr.Error())
		for _, frame := range scriptErr.Stacktrace() {
			fmt.Fprintln(os.Stderr, "    at", frame)
		}

		if scriptErr.Value.IsObject() {
			if code, ok := scriptErr.Value.GetProperty("exitCode"); ok && code.Type() == values.Integer {
				os.Exit(int(code.Int()))
			}
		}
		os.Exit(1)
	}

	return err
}

// runREPL drives a persistent VirtualMachine through chzyer/readline, one
// line of input at a time. A line naming a built-in example program loads
// and runs that program in the shared VM, so the VM's global object
// persists across lines; "exit" or "quit" ends the shell, and any other
// line is reported as an unknown program. Expressions are not evaluated.
func runREPL(cmd *cli.Command) error {
	machine := vm.NewVirtualMachine()
	runtime.Register(machine)

	rl, err := readline.New("helium> ")
	if err != nil {
		return fmt.Errorf("starting interactive shell: %w", err)
	}
	defer rl.Close()

	if !cmd.Bool("s") {
		fmt.Println("Helium", version.Version(), "interactive shell. Enter a program name to run it.")
	}

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		if build, ok := examplePrograms[line]; ok {
			runOneShot(machine, build())
			continue
		}

		fmt.Printf("unknown program %q (known programs: %s)\n", line, knownProgramNames())
	}
}

func runOneShot(machine *vm.VirtualMachine, compiled *bytecode.CompiledModule) {
	moduleIndex, err := machine.LoadModule(compiled)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if _, err := machine.Run(moduleIndex); err != nil {
		if scriptErr, ok := err.(*vm.ScriptException); ok {
			fmt.Println(scriptErr.Error())
			return
		}
		fmt.Println("error:", err)
	}
}
