package values

// member is one named slot of an object: its value plus the read-only
// flag set by SetProperty. Mirrors struct Member.
type member struct {
	key      string
	value    Value
	readOnly bool
}

// objectData is the heap representation behind an Object value: an
// insertion-ordered, linearly-searched set of named members, plus the
// shared GC header and an optional clone/finalize hook pair used by
// host-registered object kinds. Mirrors ObjectInfo.
type objectData struct {
	gc       gc
	members  []member
	numMembers int

	clone    func(Value) Value
	finalize func(Value)
}

// NewObject allocates an empty object owned by host. Mirrors
// Value::newObject.
func NewObject(host GCHost) Value {
	return Value{
		typ: Object,
		obj: &objectData{
			gc: gc{host: host, numReferences: 1},
		},
	}
}

// SetCloneHook and SetFinalizeHook let the embedder register host-specific
// deep-copy and teardown behavior for an object, mirroring ObjectInfo's
// clone/finalize function pointers.
func (v Value) SetCloneHook(fn func(Value) Value) { v.obj.clone = fn }
func (v Value) SetFinalizeHook(fn func(Value))    { v.obj.finalize = fn }

func (v Value) findProperty(name string) int {
	for i := 0; i < v.obj.numMembers; i++ {
		if v.obj.members[i].key == name {
			return i
		}
	}
	return -1
}

// NumMembers reports the current member count, in insertion order.
func (v Value) NumMembers() int { return v.obj.numMembers }

// MemberAt returns the name, value, and read-only flag of the member at
// position i (0 <= i < NumMembers()), for iteration (printing, cloning).
func (v Value) MemberAt(i int) (name string, value Value, readOnly bool) {
	m := v.obj.members[i]
	return m.key, m.value, m.readOnly
}

// GetProperty reads a member by name, returning (value, true) if present.
// The returned value is NOT referenced for the caller; use CloneProperty
// when the caller needs an owned handle.
func (v Value) GetProperty(name string) (Value, bool) {
	idx := v.findProperty(name)
	if idx < 0 {
		return UndefinedValue, false
	}
	return v.obj.members[idx].value, true
}

// CloneProperty returns a new reference to the named member, or Undefined
// if absent. Mirrors Value::objectCloneProperty.
func (v Value) CloneProperty(name string) Value {
	idx := v.findProperty(name)
	if idx < 0 {
		return UndefinedValue
	}
	return v.obj.members[idx].value.Reference()
}

// SetPropertyResult reports the outcome of SetProperty. Mirrors
// Value::ObjectSetPropertyResult.
type SetPropertyResult int

const (
	SetPropertySuccess SetPropertyResult = iota
	SetPropertyReadOnly
)

// SetProperty stores valueRef (which the caller already owns a reference
// to) under name, creating the member if absent. Setting an existing
// read-only member releases valueRef and reports SetPropertyReadOnly
// without modifying the object. Mirrors Value::objectSetProperty (the
// C++ memoryError case has no analogue: Go's allocator does not fail the
// way a calloc/realloc can).
func (v Value) SetProperty(name string, valueRef Value, readOnly bool) SetPropertyResult {
	o := v.obj
	idx := v.findProperty(name)

	if idx < 0 {
		o.members = append(o.members, member{key: name, value: valueRef, readOnly: readOnly})
		o.numMembers++
		return SetPropertySuccess
	}

	if o.members[idx].readOnly {
		valueRef.Release()
		return SetPropertyReadOnly
	}

	o.members[idx].value.Release()
	o.members[idx].value = valueRef
	return SetPropertySuccess
}

// replicateObject performs the default (no clone hook) replicate: a fresh
// object with the same clone/finalize hooks and a reference-cloned copy of
// every member, preserving each member's read-only flag. Mirrors
// Value::replicateObject.
func (v Value) replicateObject() Value {
	copy_ := NewObject(v.obj.gc.host)
	copy_.obj.clone = v.obj.clone
	copy_.obj.finalize = v.obj.finalize

	for i := 0; i < v.obj.numMembers; i++ {
		m := v.obj.members[i]
		copy_.SetProperty(m.key, m.value.Reference(), m.readOnly)
	}

	return copy_
}

func (v Value) releaseObjectMembers() {
	o := v.obj
	if o.finalize != nil {
		o.finalize(v)
		o.finalize = nil
	}
	for i := 0; i < o.numMembers; i++ {
		o.members[i].value.Release()
	}
}

// destroyObject tears down an object whose refcount has reached zero and
// which is not (or no longer) registered with the collector. See
// destroyList for why releasing every member unconditionally is safe.
// Mirrors Value::objectDestroy.
func (v Value) destroyObject() {
	o := v.obj
	for i := 0; i < o.numMembers; i++ {
		o.members[i].value.Release()
	}
}
