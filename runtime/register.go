// Package runtime supplies the host-side native functions a Helium VM
// registers as externals before loading any module: the built-in list and
// string methods live in vm/methods.go since the dispatch loop calls them
// directly, but everything a module reaches via `call_ext` — terminal
// output, UUID generation, human-readable formatting, and the SQL database
// binding — lives here, grounded the same way vm/methods.go is:
// hand-written native functions reading their arguments straight off the
// call context, not through a generic reflection-based binding layer.
package runtime

import "github.com/mcejp/Helium/vm"

// Register installs every native function this package provides onto vm,
// under the names a module's dependency list would name them by. Call it
// once, before loading any module that imports them.
func Register(machine *vm.VirtualMachine) {
	registerIONatives(machine)
	registerFormatNatives(machine)
	registerDBNatives(machine)
}
