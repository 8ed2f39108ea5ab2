package bytecode

import (
	"fmt"
	"strings"

	"github.com/mcejp/Helium/opcodes"
)

// Disassemble renders m as human-readable text in the same layout as the
// original runtime's Disassembler: a function directory, a dependency
// import list, then the flat instruction stream (each line prefixed by its
// address and raw opcode byte, annotated with the referenced string or
// function name, or `this` for local slot 0), and finally the string pool. It accepts either
// a CompiledModule or a LoadedModule through the moduleView interface below.
func Disassemble(m moduleView) string {
	var b strings.Builder

	funcs := m.funcs()
	fmt.Fprintf(&b, "; %d functions in module\n", len(funcs))
	for i, f := range funcs {
		fmt.Fprintf(&b, "def `%s` at %04Xh length %04Xh\t; %3d, exported: %5t, %d explicit arguments, %d exception handlers\n",
			f.Name, f.Start, f.Length, i, f.Exported, f.NumExplicitArguments, len(f.ExceptionHandlers))
	}

	deps := m.deps()
	b.WriteString("\n")
	fmt.Fprintf(&b, "; %d dependencies\n", len(deps))
	for i, d := range deps {
		fmt.Fprintf(&b, "import `%s`\t; %3d\n", d, i)
	}
	b.WriteString("\n")

	code := m.code()
	switchTables := m.switches()
	strs := m.strs()

	for pc, inst := range code {
		if f, ok := m.functionAtExact(CodeAddr(pc)); ok {
			var args strings.Builder
			for i := 0; i < f.NumExplicitArguments; i++ {
				if i > 0 {
					args.WriteString(", ")
				}
				fmt.Fprintf(&args, "arg%d", i)
			}
			fmt.Fprintf(&b, "; def `%s`(%s)\n", f.Name, args.String())

			for i, eh := range f.ExceptionHandlers {
				fmt.Fprintf(&b, "; eh %d: <%04X; %04X) => %04X\n", i, eh.Start, eh.Start+eh.Length, eh.Handler)
			}
		}

		desc, ok := opcodes.DescOf(inst.Opcode)
		if !ok {
			fmt.Fprintf(&b, "%04x\t%02x\tUnknown instruction opcode %02xh!\n", pc, uint16(inst.Opcode), uint16(inst.Opcode))
			continue
		}

		line := fmt.Sprintf("%04x\t%02x\t%s", pc, uint16(inst.Opcode), desc.Mnemonic)

		switch desc.OperandType {
		case opcodes.OperandNone:
			// no operand to render

		case opcodes.OperandCodeAddress:
			line += fmt.Sprintf(" %04Xh", uint32(inst.Operand))

		case opcodes.OperandFunctionIndex:
			name := "?"
			if idx := int(inst.Operand); idx >= 0 && idx < len(funcs) {
				name = funcs[idx].Name
			}
			line += fmt.Sprintf(" %04Xh\t; `%s`", uint32(inst.Operand), name)

		case opcodes.OperandInteger:
			line += fmt.Sprintf(" %d", inst.Operand)

		case opcodes.OperandLocalIndex:
			line += fmt.Sprintf(" %d", inst.Operand)
			if inst.Operand == opcodes.LocalThis {
				line += "\t; `this`"
			}

		case opcodes.OperandReal:
			line += fmt.Sprintf(" %g", inst.Real)

		case opcodes.OperandStringIndex:
			text := ""
			if idx := int(inst.Operand); idx >= 0 && idx < len(strs) {
				text = strs[idx]
			}
			line += fmt.Sprintf(" %d\t; '%s'", inst.Operand, text)

		case opcodes.OperandSwitchTableIndex:
			b.WriteString(line + "\n")

			if idx := int(inst.Operand); idx >= 0 && idx < len(switchTables) {
				st := switchTables[idx]
				for i, handler := range st.Handlers {
					b.WriteString("              ")
					if i < len(st.Cases) {
						b.WriteString("case " + switchCaseString(st.Cases[i]))
					} else {
						b.WriteString("default")
					}
					fmt.Fprintf(&b, " : %04Xh\n", handler)
				}
			}

			continue
		}

		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "; %d strings\n", len(strs))
	for i, s := range strs {
		fmt.Fprintf(&b, "string '%s'\t; %3d\n", s, i)
	}

	return b.String()
}

func switchCaseString(c SwitchCase) string {
	switch c.Kind {
	case SwitchCaseInt:
		return fmt.Sprintf("%d", c.Int)
	case SwitchCaseString:
		return "'" + c.Str + "'"
	default:
		return "?"
	}
}

// moduleView abstracts over CompiledModule and LoadedModule so
// Disassemble can render either a not-yet-linked module or a linked one.
type moduleView interface {
	funcs() []Function
	deps() []string
	code() []Instruction
	switches() []SwitchTable
	strs() []string
	functionAtExact(pc CodeAddr) (Function, bool)
}

func functionAtExact(funcs []Function, pc CodeAddr) (Function, bool) {
	for _, f := range funcs {
		if pc == f.Start {
			return f, true
		}
	}
	return Function{}, false
}

func (m *CompiledModule) funcs() []Function    { return m.Functions }
func (m *CompiledModule) deps() []string       { return m.Dependencies }
func (m *CompiledModule) code() []Instruction  { return m.Code }
func (m *CompiledModule) switches() []SwitchTable { return m.SwitchTables }
func (m *CompiledModule) strs() []string {
	out := make([]string, len(m.StringPool))
	for i, s := range m.StringPool {
		out[i] = string(s)
	}
	return out
}
func (m *CompiledModule) functionAtExact(pc CodeAddr) (Function, bool) {
	return functionAtExact(m.Functions, pc)
}

func (m *LoadedModule) funcs() []Function    { return m.Functions }
func (m *LoadedModule) deps() []string       { return m.Dependencies }
func (m *LoadedModule) code() []Instruction  { return m.Code }
func (m *LoadedModule) switches() []SwitchTable { return m.SwitchTables }
func (m *LoadedModule) strs() []string {
	out := make([]string, len(m.Strings))
	for i, s := range m.Strings {
		out[i] = s.String()
	}
	return out
}
func (m *LoadedModule) functionAtExact(pc CodeAddr) (Function, bool) {
	return functionAtExact(m.Functions, pc)
}
