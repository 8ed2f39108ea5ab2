package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObject_SetAndGetProperty(t *testing.T) {
	host := &fakeHost{}
	o := NewObject(host)

	res := o.SetProperty("x", NewInteger(10), false)
	assert.Equal(t, SetPropertySuccess, res)

	v, ok := o.GetProperty("x")
	assert.True(t, ok)
	assert.Equal(t, int64(10), v.Int())

	_, ok = o.GetProperty("missing")
	assert.False(t, ok)
}

func TestObject_SetPropertyReadOnlyRejected(t *testing.T) {
	host := &fakeHost{}
	o := NewObject(host)
	o.SetProperty("x", NewInteger(1), true)

	res := o.SetProperty("x", NewInteger(2), false)
	assert.Equal(t, SetPropertyReadOnly, res)

	v, _ := o.GetProperty("x")
	assert.Equal(t, int64(1), v.Int(), "read-only property must keep its original value")
}

func TestObject_CloneProperty(t *testing.T) {
	host := &fakeHost{}
	o := NewObject(host)
	o.SetProperty("name", NewString("alice"), false)

	cloned := o.CloneProperty("name")
	assert.Equal(t, "alice", cloned.Str())

	assert.True(t, o.CloneProperty("nope").IsUndefined())
}

func TestObject_Replicate(t *testing.T) {
	host := &fakeHost{}
	o := NewObject(host)
	o.SetProperty("a", NewInteger(1), false)
	o.SetProperty("b", NewInteger(2), true)

	copy_ := o.Replicate()
	assert.NotSame(t, o.obj, copy_.obj)

	a, _ := copy_.GetProperty("a")
	b, _ := copy_.GetProperty("b")
	assert.Equal(t, int64(1), a.Int())
	assert.Equal(t, int64(2), b.Int())

	res := copy_.SetProperty("b", NewInteger(3), false)
	assert.Equal(t, SetPropertyReadOnly, res, "read-only flag must survive replication")
}
