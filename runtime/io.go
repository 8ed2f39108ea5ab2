package runtime

import (
	"fmt"
	"os"

	"github.com/mcejp/Helium/values"
	"github.com/mcejp/Helium/vm"
)

// registerIONatives installs the minimal host output binding the reference
// driver's example programs call through `call_ext`. Printing to a
// terminal is exactly the kind of host native-function binding the
// specification calls out as an external collaborator rather than core VM
// design, so it lives here next to the other externals, not in vm/.
func registerIONatives(machine *vm.VirtualMachine) {
	machine.RegisterExternal("io.print", nativeIOPrint)
	machine.RegisterExternal("io.println", nativeIOPrintln)
}

// nativeIOPrint writes every argument's display form to stdout, space
// separated, with no trailing newline.
func nativeIOPrint(ctx values.NativeCallContext) (values.Value, error) {
	writeArgs(ctx, "")
	return values.NewNil(), nil
}

// nativeIOPrintln is nativeIOPrint plus a trailing newline.
func nativeIOPrintln(ctx values.NativeCallContext) (values.Value, error) {
	writeArgs(ctx, "\n")
	return values.NewNil(), nil
}

func writeArgs(ctx values.NativeCallContext, suffix string) {
	for i := 0; i < ctx.NumArguments(); i++ {
		if i > 0 {
			fmt.Fprint(os.Stdout, " ")
		}
		fmt.Fprint(os.Stdout, displayString(ctx.Argument(i)))
	}
	fmt.Fprint(os.Stdout, suffix)
}

func displayString(v values.Value) string {
	switch v.Type() {
	case values.Nil:
		return "nil"
	case values.Boolean:
		if v.Bool() {
			return "true"
		}
		return "false"
	case values.Integer:
		return fmt.Sprintf("%d", v.Int())
	case values.Real:
		return fmt.Sprintf("%g", v.Float())
	case values.String:
		return v.Str()
	case values.List:
		s := "["
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				s += ", "
			}
			s += displayString(v.Item(i))
		}
		return s + "]"
	case values.Object:
		s := "{"
		for i := 0; i < v.NumMembers(); i++ {
			if i > 0 {
				s += ", "
			}
			name, value, _ := v.MemberAt(i)
			s += name + ": " + displayString(value)
		}
		return s + "}"
	default:
		return v.Type().String()
	}
}
