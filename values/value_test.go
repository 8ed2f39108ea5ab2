package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_Truthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", NewNil(), false},
		{"false", NewBoolean(false), false},
		{"true", NewBoolean(true), true},
		{"zero int", NewInteger(0), false},
		{"nonzero int", NewInteger(1), true},
		{"negative int", NewInteger(-1), true},
		{"zero real", NewReal(0), false},
		{"nonzero real", NewReal(0.5), true},
		{"empty string", NewString(""), false},
		{"nonempty string", NewString("x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Truthy())
		})
	}
}

func TestValue_ReferenceCountsPrimitivesIndependently(t *testing.T) {
	v := NewInteger(42)
	ref := v.Reference()

	assert.Equal(t, int64(42), ref.Int())

	ref.Release()
	// v is unaffected: primitives carry no shared identity.
	assert.Equal(t, int64(42), v.Int())
}

type fakeHost struct {
	roots []Value
}

func (h *fakeHost) AddPossibleRoot(v Value) {
	h.roots = append(h.roots, v)
}

func TestValue_StringRefcounting(t *testing.T) {
	s := NewString("hello")
	ref := s.Reference()

	assert.Equal(t, "hello", ref.Str())
	assert.Equal(t, uint32(2), s.str.numReferences)

	ref.Release()
	assert.Equal(t, uint32(1), s.str.numReferences)
}

func TestValue_AppendString(t *testing.T) {
	a := NewString("foo")
	b := a.AppendString([]byte("bar"))

	assert.Equal(t, "foo", a.Str())
	assert.Equal(t, "foobar", b.Str())
}

func TestValue_ListReleaseDestroysAtZeroRefs(t *testing.T) {
	host := &fakeHost{}
	l := NewList(host, 0)

	item := NewString("item")
	l.AddItem(item)

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, "item", l.Item(0).Str())

	l.Release()
	assert.True(t, l.IsUndefined())
	assert.Empty(t, host.roots)
}

func TestValue_ListReleaseRegistersPurpleOnSurvivingReference(t *testing.T) {
	host := &fakeHost{}
	l := NewList(host, 0)
	ref := l.Reference()

	ref.Release()

	assert.Len(t, host.roots, 1)
	assert.Equal(t, gcPurple, l.gc().flags&gcColourMask)
}
