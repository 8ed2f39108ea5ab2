// Package values implements Helium's tagged runtime value, together with
// the hybrid reference-counting and cycle-collecting heap that backs its
// two complex types, list and object.
package values

import (
	"fmt"
	"reflect"
)

// Type identifies the runtime representation a Value currently holds.
type Type byte

const (
	Undefined Type = iota // sentinel: access is a bug, never produced by running code

	Nil
	Boolean
	Integer
	Real

	Internal       // opaque host-side pointer, invisible to script code
	NativeFunction // function implemented in Go and exposed to scripts
	ScriptFunction // function defined in a loaded module

	String
	List
	Object
)

func (t Type) String() string {
	switch t {
	case Undefined:
		return "undefined"
	case Nil:
		return "nil"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Internal:
		return "internal"
	case NativeFunction:
		return "nativeFunction"
	case ScriptFunction:
		return "scriptFunction"
	case String:
		return "string"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// GCHost is the owner of the cycle-collected heap a list or object belongs
// to. It is implemented by vm.VirtualMachine; values depends on it only
// through this interface so that the values and vm packages never import
// each other.
type GCHost interface {
	// AddPossibleRoot enqueues a candidate root for the next collection
	// cycle, mirroring the original VM::addPossibleGarbage.
	AddPossibleRoot(v Value)
}

// ScriptFunctionRef locates a function inside a loaded module.
type ScriptFunctionRef struct {
	ModuleIndex   uint32
	FunctionIndex uint32
}

// NativeFunc is a Go-implemented function callable from script code.
type NativeFunc func(ctx NativeCallContext) (Value, error)

// NativeCallContext is the minimal surface a NativeFunc needs in order to
// read its arguments. The vm package supplies the concrete implementation;
// values only depends on the interface, again to avoid an import cycle.
type NativeCallContext interface {
	Argument(index int) Value
	NumArguments() int
}

// Value is Helium's tagged runtime value. It is always passed and stored by
// value (never by pointer) — the identity of a heap object lives in the
// string/list/object data it points to, not in the Value struct itself. The zero Value is
// Undefined.
type Value struct {
	typ Type

	boolean  bool
	integer  int64
	real     float64
	internal interface{}
	native   NativeFunc
	script   ScriptFunctionRef

	str  *stringData
	list *listData
	obj  *objectData
}

// Type reports the value's runtime tag.
func (v Value) Type() Type { return v.typ }

// Undefined is the sentinel value representing "no value" — it is never a
// legitimate operand, only ever the product of a bug or a truly empty slot.
var UndefinedValue = Value{typ: Undefined}

func (v Value) IsUndefined() bool { return v.typ == Undefined }
func (v Value) IsNil() bool       { return v.typ == Nil }
func (v Value) IsList() bool      { return v.typ == List }
func (v Value) IsObject() bool    { return v.typ == Object }
func (v Value) IsString() bool    { return v.typ == String }
func (v Value) IsNumeric() bool   { return v.typ == Integer || v.typ == Real }

// NewNil constructs a nil value.
func NewNil() Value { return Value{typ: Nil} }

// NewBoolean constructs a boolean value.
func NewBoolean(b bool) Value { return Value{typ: Boolean, boolean: b} }

// NewInteger constructs an integer value.
func NewInteger(i int64) Value { return Value{typ: Integer, integer: i} }

// NewReal constructs a floating-point value.
func NewReal(r float64) Value { return Value{typ: Real, real: r} }

// NewInternal wraps an arbitrary host-side value, invisible to script
// introspection, for passing opaque handles (e.g. open file descriptors)
// through script-visible containers.
func NewInternal(payload interface{}) Value { return Value{typ: Internal, internal: payload} }

// NewNativeFunction wraps a Go function as a callable script value.
func NewNativeFunction(fn NativeFunc) Value { return Value{typ: NativeFunction, native: fn} }

// NewScriptFunction constructs a reference to a function inside a loaded
// module.
func NewScriptFunction(ref ScriptFunctionRef) Value { return Value{typ: ScriptFunction, script: ref} }

// Bool returns the wrapped boolean. The caller must have checked Type().
func (v Value) Bool() bool { return v.boolean }

// Int returns the wrapped integer. The caller must have checked Type().
func (v Value) Int() int64 { return v.integer }

// Float returns the wrapped real. The caller must have checked Type().
func (v Value) Float() float64 { return v.real }

// Internal returns the wrapped opaque payload.
func (v Value) Internal() interface{} { return v.internal }

// Native returns the wrapped Go function.
func (v Value) Native() NativeFunc { return v.native }

// ScriptFunc returns the wrapped function reference.
func (v Value) ScriptFunc() ScriptFunctionRef { return v.script }

// Reference returns a new handle to the same underlying value, increasing
// the refcount of heap-backed types (list, object, string) and leaving
// every other type an independent copy (since they carry no identity). This
// mirrors Value::reference in the original runtime.
func (v Value) Reference() Value {
	switch v.typ {
	case Undefined:
		return UndefinedValue
	case List, Object:
		gc := v.gc()
		gc.numReferences++
		gc.flags &^= gcColourMask
		return v
	case String:
		v.str.numReferences++
		return v
	default:
		return v
	}
}

// Replicate returns a value suitable for use as an independent copy of v:
// for an object with a registered clone hook, that hook's result; for a
// plain object, a fresh object holding a new reference to each member
// (members are shared, not deep-copied) with read-only flags preserved; for
// every other type, the same thing Reference would return. Mirrors
// Value::replicate.
func (v Value) Replicate() Value {
	if v.typ == Object {
		if v.obj.clone != nil {
			return v.obj.clone(v)
		}
		return v.replicateObject()
	}
	return v.Reference()
}

// Release drops one reference to v. For list/object, a refcount reaching
// zero releases the value's own references to its children and either
// frees it immediately (if not known to a pending collection) or marks it
// black and leaves disposal to the collector. A refcount that does not
// reach zero instead marks the value purple and registers it as a possible
// cycle root, exactly as Value::release does.
func (v *Value) Release() {
	switch v.typ {
	case Undefined:
		return

	case List, Object:
		gc := v.gc()
		gc.numReferences--

		if gc.numReferences == 0 {
			if v.typ == List {
				v.releaseListItems()
			} else {
				v.releaseObjectMembers()
			}

			if gc.flags&gcRegistered != 0 {
				gc.flags &^= gcColourMask
			} else if v.typ == List {
				v.destroyList()
			} else {
				v.destroyObject()
			}
		} else if gc.flags&gcColourMask != gcPurple && gc.host != nil {
			gc.flags = (gc.flags &^ gcColourMask) | gcPurple

			if gc.flags&gcRegistered == 0 {
				gc.host.AddPossibleRoot(*v)
				gc.flags |= gcRegistered
			}
		}

	case String:
		v.str.numReferences--
		if v.str.numReferences == 0 {
			v.str = nil
		}
	}

	v.typ = Undefined
}

// SameIdentity reports whether v and other refer to the same underlying
// heap object (list, object), opaque payload (internal), or native
// function — the notion of equality operator== falls back to for every
// type that isn't compared structurally. Mirrors the original's raw
// pointer comparisons (left.list == right.list, left.object ==
// right.object, left.pointer == right.pointer, left.nativeFunction ==
// right.nativeFunction).
func (v Value) SameIdentity(other Value) bool {
	if v.typ != other.typ {
		return false
	}

	switch v.typ {
	case List:
		return v.list == other.list
	case Object:
		return v.obj == other.obj
	case Internal:
		return v.internal == other.internal
	case NativeFunction:
		return reflect.ValueOf(v.native).Pointer() == reflect.ValueOf(other.native).Pointer()
	default:
		return false
	}
}

// Truthy implements Helium's boolean-coercion rule for control-flow
// contexts (jmp_true/jmp_false, assert): nil and false are falsy,
// the integer/real zero are falsy, the empty string is falsy, and every
// other value — including empty lists and objects — is truthy.
func (v Value) Truthy() bool {
	switch v.typ {
	case Nil:
		return false
	case Boolean:
		return v.boolean
	case Integer:
		return v.integer != 0
	case Real:
		return v.real != 0
	case String:
		return v.str.length > 0
	default:
		return true
	}
}
