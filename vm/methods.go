package vm

import (
	"strings"

	"github.com/mcejp/Helium/values"
)

// listMethods and stringMethods back the invoke opcode's built-in method
// dispatch for list and string receivers, checked ahead of the general
// object getProperty+invoke path. Mirrors the listMethods/stringMethods
// maps VM's constructor seeds in the original.
var listMethods = map[string]values.NativeFunc{
	"add":    nativeListAdd,
	"remove": nativeListRemove,
}

var stringMethods = map[string]values.NativeFunc{
	"endsWith":   nativeStringEndsWith,
	"startsWith": nativeStringStartsWith,
}

// nativeListAdd appends every argument after the receiver to the list.
// Mirrors NativeListFunctions::add.
func nativeListAdd(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() < 1 {
		return values.UndefinedValue, errScript("Not enough arguments to <List>.add()")
	}

	list := ctx.Argument(0)
	if !list.IsList() {
		return values.UndefinedValue, errScript("Expected a list")
	}

	for i := 1; i < ctx.NumArguments(); i++ {
		list.AddItem(ctx.Argument(i).Reference())
	}

	return values.NewNil(), nil
}

// nativeListRemove removes count items (default 1) starting at offset.
// Mirrors NativeListFunctions::remove, including its original's count
// argument: a caller passing a third argument has it parsed into offset a
// second time rather than into count, so remove(list, i, n) removes one
// item at index n (the second argument replaces i as the offset). This is a faithful port of the
// upstream behavior, not a Go-side bug.
func nativeListRemove(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() < 2 || ctx.NumArguments() > 3 {
		return values.UndefinedValue, errScript("Unexpected number of arguments to <List>.remove()")
	}

	list := ctx.Argument(0)
	if !list.IsList() {
		return values.UndefinedValue, errScript("Expected a list")
	}

	offsetArg := ctx.Argument(1)
	if offsetArg.Type() != values.Integer {
		return values.UndefinedValue, errScript("Expected an integer")
	}
	offset := offsetArg.Int()
	count := int64(1)

	if ctx.NumArguments() >= 3 {
		secondArg := ctx.Argument(2)
		if secondArg.Type() != values.Integer {
			return values.UndefinedValue, errScript("Expected an integer")
		}
		offset = secondArg.Int()
	}

	list.RemoveItems(int(offset), int(count))
	return values.NewNil(), nil
}

// nativeStringEndsWith reports whether the receiver ends with its
// argument. Mirrors NativeStringFunctions::endsWith.
func nativeStringEndsWith(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 2 {
		return values.UndefinedValue, errScript("Unexpected number of arguments to <String>.endsWith()")
	}

	self := ctx.Argument(0)
	tail := ctx.Argument(1)
	if tail.Type() != values.String {
		return values.UndefinedValue, errScript("Expected a string")
	}

	return values.NewBoolean(strings.HasSuffix(self.Str(), tail.Str())), nil
}

// nativeStringStartsWith reports whether the receiver starts with its
// argument. Mirrors NativeStringFunctions::startsWith.
func nativeStringStartsWith(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 2 {
		return values.UndefinedValue, errScript("Unexpected number of arguments to <String>.startsWith()")
	}

	self := ctx.Argument(0)
	head := ctx.Argument(1)
	if head.Type() != values.String {
		return values.UndefinedValue, errScript("Expected a string")
	}

	return values.NewBoolean(strings.HasPrefix(self.Str(), head.Str())), nil
}

// scriptError is a plain error whose text is meant to flow verbatim into
// RaiseException, the way every raiseException(const char*) call in the
// original does. It carries no Go-specific wrapping since it's never
// inspected by host code — CallNativeFunction always turns it straight
// back into a script exception.
type scriptError string

func (e scriptError) Error() string { return string(e) }

func errScript(desc string) error { return scriptError(desc) }
