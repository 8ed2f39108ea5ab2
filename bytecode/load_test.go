package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubResolver struct {
	names []string
}

func (s *stubResolver) ResolveExternal(name string) (int, bool) {
	for i, n := range s.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func TestLoad_ResolvesCallExtOperand(t *testing.T) {
	b := NewBuilder()
	dep := b.Dependency("math")
	fn := b.BeginFunction(MainFunctionName, true, 0)
	b.CallExt(dep)
	b.Ret()
	b.EndFunction(fn)

	compiled := b.Finish()

	host := &stubResolver{names: []string{"io", "math"}}
	loaded, err := Load(compiled, host, 0)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Code[0].Operand, "call_ext operand must be rewritten to the host's external index")
}

func TestLoad_FailsOnUnresolvedDependency(t *testing.T) {
	b := NewBuilder()
	b.Dependency("missing")
	compiled := b.Finish()

	_, err := Load(compiled, &stubResolver{}, 0)
	assert.Error(t, err)
}

func TestBuilder_JumpLabelsResolveToAddresses(t *testing.T) {
	b := NewBuilder()
	fn := b.BeginFunction(MainFunctionName, true, 0)
	b.PushBool(true)
	b.JmpFalse("else")
	b.PushInt(1)
	b.Jmp("end")
	b.Label("else")
	b.PushInt(0)
	b.Label("end")
	b.Ret()
	b.EndFunction(fn)

	m := b.Finish()

	assert.Equal(t, int64(4), m.Code[1].Operand, "jmp_false must target the `else:` label's address")
	assert.Equal(t, int64(5), m.Code[3].Operand, "jmp must target the `end:` label's address")
}

func TestFunction_ContainsRange(t *testing.T) {
	f := Function{Start: 10, Length: 5}
	assert.True(t, f.Contains(10))
	assert.True(t, f.Contains(14))
	assert.False(t, f.Contains(15))
	assert.False(t, f.Contains(9))
}
