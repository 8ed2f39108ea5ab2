package vm

import (
	"strconv"

	"github.com/mcejp/Helium/values"
)

// This file is the Go counterpart of RuntimeFunctions.cpp: the primitive
// operations the dispatch loop leans on for coercion, indexing, property
// access, and the binary/unary operators. The original reaches a current
// ActivationContext through a thread-local pointer
// (ActivationContext::getCurrent()) so these can be called without
// threading it through every site; the Go port passes ctx explicitly
// instead, since a package-level mutable "current context" would make it
// unsafe to run more than one VM (or one call chain) per process.
//
// Every failure path here raises a catchable script exception on ctx (via
// ctx.RaiseException) rather than returning a Go error: these are the
// operations script code itself triggers and can wrap in a try/catch, not
// host-level bugs.

// asBoolean implements Helium's boolean-coercion rule. Every value
// converts; RuntimeFunctions::asBoolean's only failure path is the
// debug-only assertion against Undefined, which in this port is a bug in
// the VM itself (a genuinely undefined value should never reach dispatch)
// and is therefore a panic, not a catchable exception.
func asBoolean(v values.Value) bool {
	if v.IsUndefined() {
		panic("vm: asBoolean called on an undefined value")
	}
	return v.Truthy()
}

func asInteger(ctx *ActivationContext, v values.Value) (int64, bool) {
	if v.Type() == values.Integer {
		return v.Int(), true
	}
	ctx.RaiseException("Expected an integer")
	return 0, false
}

func asReal(ctx *ActivationContext, v values.Value) (float64, bool) {
	switch v.Type() {
	case values.Integer:
		return float64(v.Int()), true
	case values.Real:
		return v.Float(), true
	default:
		ctx.RaiseException("Expected a real")
		return 0, false
	}
}

func asString(ctx *ActivationContext, v values.Value) (string, bool) {
	if v.Type() == values.String {
		return v.Str(), true
	}
	ctx.RaiseException("Expected a string")
	return "", false
}

// getIndexed implements operator[] reads on lists and strings (a string
// index yields the integer byte value at that position). Mirrors
// RuntimeFunctions::getIndexed.
func getIndexed(ctx *ActivationContext, rng, index values.Value) (values.Value, bool) {
	switch rng.Type() {
	case values.List:
		if index.Type() != values.Integer {
			ctx.RaiseException("Invalid index for operator []")
			return values.UndefinedValue, false
		}
		i := index.Int()
		if i < 0 || i >= int64(rng.Len()) {
			ctx.RaiseException("List index out of range")
			return values.UndefinedValue, false
		}
		return rng.Item(int(i)).Reference(), true

	case values.String:
		if index.Type() != values.Integer {
			ctx.RaiseException("Invalid index for operator []")
			return values.UndefinedValue, false
		}
		i := index.Int()
		if i < 0 || i >= int64(rng.StringLen()) {
			ctx.RaiseException("String index out of range")
			return values.UndefinedValue, false
		}
		return values.NewInteger(int64(rng.Bytes()[i])), true

	default:
		ctx.RaiseException("Invalid value for operator []")
		return values.UndefinedValue, false
	}
}

// setIndexed implements operator[]= on lists. Mirrors
// RuntimeFunctions::setIndexed.
func setIndexed(ctx *ActivationContext, rng, index, value values.Value) bool {
	if rng.Type() != values.List {
		ctx.RaiseException("Invalid value for operator []")
		return false
	}
	if index.Type() != values.Integer {
		ctx.RaiseException("Invalid index for operator []")
		return false
	}
	i := index.Int()
	if i < 0 || i >= int64(rng.Len()) {
		ctx.RaiseException("List index out of range")
		return false
	}
	rng.SetItem(int(i), value)
	return true
}

// getProperty reads a named member, covering an object's own members plus
// the handful of built-in pseudo-properties the original hardcodes per
// type (integer.string, list.length, string.length) ahead of any
// user-defined prototype mechanism. Mirrors RuntimeFunctions::getProperty.
func getProperty(ctx *ActivationContext, object values.Value, name string, raiseIfNotExists bool) (values.Value, bool) {
	switch object.Type() {
	case values.Object:
		if v := object.CloneProperty(name); !v.IsUndefined() {
			return v, true
		}

	case values.Integer:
		if name == "string" {
			return values.NewString(strconv.FormatInt(object.Int(), 10)), true
		}

	case values.List:
		if name == "length" {
			return values.NewInteger(int64(object.Len())), true
		}

	case values.String:
		if name == "length" {
			return values.NewInteger(int64(object.StringLen())), true
		}
	}

	if raiseIfNotExists {
		ctx.RaiseException("Property '" + name + "' does not exist")
	}
	return values.UndefinedValue, false
}

// setMember implements member-variable assignment; only objects have
// assignable members. Mirrors RuntimeFunctions::setMember.
func setMember(ctx *ActivationContext, object values.Value, name string, value values.Value) bool {
	if object.Type() != values.Object {
		ctx.RaiseException("Attempting to set a member variable in a non-object")
		return false
	}

	switch object.SetProperty(name, value, false) {
	case values.SetPropertyReadOnly:
		ctx.RaiseException("Property '" + name + "' is read-only")
		return false
	default:
		return true
	}
}

// operatorAdd implements '+': numeric addition (with int/real promotion),
// string concatenation (also accepting a numeric right-hand operand,
// stringified), list concatenation, and object union (a replica of left
// with right's members copied in through SetProperty). In the object union
// a right member overwrites the value of a writable left member of the same
// name but keeps the left member's flags, so the result stays writable even
// when the right member is read-only; a read-only left member keeps its
// value and the right member's value is dropped. Mirrors
// RuntimeFunctions::operatorAdd.
func operatorAdd(ctx *ActivationContext, left, right values.Value) values.Value {
	switch {
	case left.Type() == values.Integer && right.Type() == values.Integer:
		return values.NewInteger(left.Int() + right.Int())
	case left.Type() == values.Integer && right.Type() == values.Real:
		return values.NewReal(float64(left.Int()) + right.Float())
	case left.Type() == values.Real && right.Type() == values.Integer:
		return values.NewReal(left.Float() + float64(right.Int()))
	case left.Type() == values.Real && right.Type() == values.Real:
		return values.NewReal(left.Float() + right.Float())

	case left.Type() == values.String && right.Type() == values.Integer:
		return left.AppendString([]byte(strconv.FormatInt(right.Int(), 10)))
	case left.Type() == values.String && right.Type() == values.Real:
		return left.AppendString([]byte(strconv.FormatFloat(right.Float(), 'g', -1, 64)))
	case left.Type() == values.String && right.Type() == values.String:
		return left.AppendString(right.Bytes())

	case left.Type() == values.List && right.Type() == values.List:
		sum := values.NewList(ctx.vm, left.Len()+right.Len())
		for i := 0; i < left.Len(); i++ {
			sum.AddItem(left.Item(i).Reference())
		}
		for i := 0; i < right.Len(); i++ {
			sum.AddItem(right.Item(i).Reference())
		}
		return sum

	case left.Type() == values.Object && right.Type() == values.Object:
		sum := left.Replicate()
		for i := 0; i < right.NumMembers(); i++ {
			name, value, readOnly := right.MemberAt(i)
			sum.SetProperty(name, value.Reference(), readOnly)
		}
		return sum

	default:
		ctx.RaiseException("Invalid operands to operator '+'")
		return values.UndefinedValue
	}
}

func operatorSub(ctx *ActivationContext, left, right values.Value) values.Value {
	switch {
	case left.Type() == values.Integer && right.Type() == values.Integer:
		return values.NewInteger(left.Int() - right.Int())
	case left.Type() == values.Integer && right.Type() == values.Real:
		return values.NewReal(float64(left.Int()) - right.Float())
	case left.Type() == values.Real && right.Type() == values.Integer:
		return values.NewReal(left.Float() - float64(right.Int()))
	case left.Type() == values.Real && right.Type() == values.Real:
		return values.NewReal(left.Float() - right.Float())
	default:
		ctx.RaiseException("Invalid operands to operator '-'")
		return values.UndefinedValue
	}
}

func operatorMul(ctx *ActivationContext, left, right values.Value) values.Value {
	switch {
	case left.Type() == values.Integer && right.Type() == values.Integer:
		return values.NewInteger(left.Int() * right.Int())
	case left.Type() == values.Integer && right.Type() == values.Real:
		return values.NewReal(float64(left.Int()) * right.Float())
	case left.Type() == values.Real && right.Type() == values.Integer:
		return values.NewReal(left.Float() * float64(right.Int()))
	case left.Type() == values.Real && right.Type() == values.Real:
		return values.NewReal(left.Float() * right.Float())
	default:
		ctx.RaiseException("Invalid operands to operator '*'")
		return values.UndefinedValue
	}
}

func operatorDiv(ctx *ActivationContext, left, right values.Value) values.Value {
	switch {
	case left.Type() == values.Integer && right.Type() == values.Integer:
		if right.Int() == 0 {
			ctx.RaiseException("Division by 0")
			return values.UndefinedValue
		}
		return values.NewInteger(left.Int() / right.Int())
	case left.Type() == values.Integer && right.Type() == values.Real:
		if right.Float() == 0 {
			ctx.RaiseException("Division by 0")
			return values.UndefinedValue
		}
		return values.NewReal(float64(left.Int()) / right.Float())
	case left.Type() == values.Real && right.Type() == values.Integer:
		if right.Int() == 0 {
			ctx.RaiseException("Division by 0")
			return values.UndefinedValue
		}
		return values.NewReal(left.Float() / float64(right.Int()))
	case left.Type() == values.Real && right.Type() == values.Real:
		if right.Float() == 0 {
			ctx.RaiseException("Division by 0")
			return values.UndefinedValue
		}
		return values.NewReal(left.Float() / right.Float())
	default:
		ctx.RaiseException("Invalid operands to operator '/'")
		return values.UndefinedValue
	}
}

func operatorMod(ctx *ActivationContext, left, right values.Value) values.Value {
	if left.Type() == values.Integer && right.Type() == values.Integer {
		if right.Int() == 0 {
			ctx.RaiseException("Division by 0")
			return values.UndefinedValue
		}
		return values.NewInteger(left.Int() % right.Int())
	}
	ctx.RaiseException("Invalid operands to operator '%'")
	return values.UndefinedValue
}

func operatorNeg(ctx *ActivationContext, left values.Value) values.Value {
	switch left.Type() {
	case values.Integer:
		return values.NewInteger(-left.Int())
	case values.Real:
		return values.NewReal(-left.Float())
	default:
		ctx.RaiseException("Invalid operand to unary operator '-'")
		return values.UndefinedValue
	}
}

func operatorLogAnd(ctx *ActivationContext, left, right values.Value) values.Value {
	if left.Type() == values.Boolean && right.Type() == values.Boolean {
		return values.NewBoolean(left.Bool() && right.Bool())
	}
	ctx.RaiseException("Invalid operands to operator '&&'")
	return values.UndefinedValue
}

func operatorLogOr(ctx *ActivationContext, left, right values.Value) values.Value {
	if left.Type() == values.Boolean && right.Type() == values.Boolean {
		return values.NewBoolean(left.Bool() || right.Bool())
	}
	ctx.RaiseException("Invalid operands to operator '||'")
	return values.UndefinedValue
}

func operatorLogNot(ctx *ActivationContext, left values.Value) values.Value {
	if left.Type() == values.Boolean {
		return values.NewBoolean(!left.Bool())
	}
	ctx.RaiseException("Invalid operand to operator '!'")
	return values.UndefinedValue
}

// operatorEquals implements '==': a type mismatch is always false (not an
// error), matching values across every representation. Mirrors
// RuntimeFunctions::operatorEquals, which — unlike the other comparison
// operators — never fails: a result is always produced.
func operatorEquals(left, right values.Value) bool {
	if left.Type() != right.Type() {
		return false
	}

	switch left.Type() {
	case values.Nil:
		return true
	case values.Boolean:
		return left.Bool() == right.Bool()
	case values.Integer:
		return left.Int() == right.Int()
	case values.Real:
		return left.Float() == right.Float()
	case values.String:
		return left.Str() == right.Str()
	case values.Object, values.List, values.Internal, values.NativeFunction:
		// Identity comparison: these compare by the heap/host pointer they
		// wrap. Two Values of these types compare equal here iff one was
		// produced from the other via Reference() (shared underlying
		// storage), matching the original's raw pointer comparisons.
		return left.SameIdentity(right)
	case values.ScriptFunction:
		return left.ScriptFunc() == right.ScriptFunc()
	default:
		return false
	}
}

func operatorGreaterThan(ctx *ActivationContext, left, right values.Value) (bool, bool) {
	switch {
	case left.Type() == values.Integer && right.Type() == values.Integer:
		return left.Int() > right.Int(), true
	case left.Type() == values.Integer && right.Type() == values.Real:
		return float64(left.Int()) > right.Float(), true
	case left.Type() == values.Real && right.Type() == values.Integer:
		return left.Float() > float64(right.Int()), true
	case left.Type() == values.Real && right.Type() == values.Real:
		return left.Float() > right.Float(), true
	default:
		ctx.RaiseException("Invalid operands to operator '>'")
		return false, false
	}
}

func operatorLessThan(ctx *ActivationContext, left, right values.Value) (bool, bool) {
	switch {
	case left.Type() == values.Integer && right.Type() == values.Integer:
		return left.Int() < right.Int(), true
	case left.Type() == values.Integer && right.Type() == values.Real:
		return float64(left.Int()) < right.Float(), true
	case left.Type() == values.Real && right.Type() == values.Integer:
		return left.Float() < float64(right.Int()), true
	case left.Type() == values.Real && right.Type() == values.Real:
		return left.Float() < right.Float(), true
	default:
		ctx.RaiseException("Invalid operands to operator '<'")
		return false, false
	}
}
