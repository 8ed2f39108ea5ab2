package bytecode

import (
	"fmt"

	"github.com/mcejp/Helium/opcodes"
)

// InternedString is one entry of a loaded module's string pool: the raw
// bytes plus their precomputed hash.
type InternedString struct {
	Bytes []byte
	Hash  StringHash
}

func (s InternedString) String() string { return string(s.Bytes) }

// ExternalResolver maps a dependency name (as named in a module's import
// list) to a stable index in the host's external-function table. It is
// implemented by vm.VirtualMachine; Load depends on the interface only, to
// keep bytecode free of a vm import.
type ExternalResolver interface {
	ResolveExternal(name string) (int, bool)
}

// LoadedModule is an immutable, linked module ready for execution: every
// call_ext instruction's operand has been rewritten from a dependency-list
// index into a host external-table index, and every string pool entry
// carries its precomputed hash. Mirrors VM::loadModule's VMModule output.
type LoadedModule struct {
	Index int // this module's position in the VM's loaded-module table

	Functions    []Function
	Code         []Instruction
	Strings      []InternedString
	SwitchTables []SwitchTable
	Dependencies []string
}

// FindFunction returns the function named name, if any.
func (m *LoadedModule) FindFunction(name string) (Function, bool) {
	for _, f := range m.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}

// FindFunctionIndex returns the index into Functions of the function named
// name, if any — the form callers that will go on to index Functions
// directly (e.g. to start a call) need.
func (m *LoadedModule) FindFunctionIndex(name string) (int, bool) {
	for i, f := range m.Functions {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// FunctionAt returns the function whose code range contains pc, if any —
// used to attribute a program counter to a function for stack traces and
// disassembly.
func (m *LoadedModule) FunctionAt(pc CodeAddr) (Function, bool) {
	for _, f := range m.Functions {
		if f.Contains(pc) {
			return f, true
		}
	}
	return Function{}, false
}

// Load links a CompiledModule against host, resolving each dependency name
// to an external-table index and baking the per-instruction call_ext
// operands accordingly, and precomputing string-pool hashes. Mirrors
// VM::loadModule.
func Load(m *CompiledModule, host ExternalResolver, moduleIndex int) (*LoadedModule, error) {
	externalIndices := make([]int, len(m.Dependencies))

	for i, name := range m.Dependencies {
		idx, ok := host.ResolveExternal(name)
		if !ok {
			return nil, fmt.Errorf("bytecode: failed to link external %q", name)
		}
		externalIndices[i] = idx
	}

	strings := make([]InternedString, len(m.StringPool))
	for i, raw := range m.StringPool {
		buf := make([]byte, len(raw))
		copy(buf, raw)
		strings[i] = InternedString{Bytes: buf, Hash: hashBytes(buf)}
	}

	code := make([]Instruction, len(m.Code))
	copy(code, m.Code)

	for i := range code {
		if code[i].Opcode == opcodes.CallExt {
			depIndex := code[i].Operand
			if depIndex < 0 || int(depIndex) >= len(externalIndices) {
				return nil, fmt.Errorf("bytecode: call_ext operand %d out of range of %d dependencies", depIndex, len(externalIndices))
			}
			code[i].Operand = int64(externalIndices[depIndex])
		}
	}

	return &LoadedModule{
		Index:        moduleIndex,
		Functions:    append([]Function(nil), m.Functions...),
		Code:         code,
		Strings:      strings,
		SwitchTables: append([]SwitchTable(nil), m.SwitchTables...),
		Dependencies: append([]string(nil), m.Dependencies...),
	}, nil
}
