package runtime

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/mcejp/Helium/values"
	"github.com/mcejp/Helium/vm"
)

func registerFormatNatives(machine *vm.VirtualMachine) {
	machine.RegisterExternal("uuid.v4", nativeUUIDv4)
	machine.RegisterExternal("humanize.bytes", nativeHumanizeBytes)
	machine.RegisterExternal("humanize.time", nativeHumanizeTime)
	machine.RegisterExternal("humanize.ordinal", nativeHumanizeOrdinal)
	machine.RegisterExternal("humanize.comma", nativeHumanizeComma)
}

// nativeUUIDv4 takes no arguments and returns a freshly generated
// RFC 4122 version 4 UUID as a string.
func nativeUUIDv4(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 0 {
		return values.UndefinedValue, fmt.Errorf("uuid.v4() takes no arguments")
	}
	return values.NewString(uuid.New().String()), nil
}

// nativeHumanizeBytes takes a byte count and returns a string like "42 MB".
func nativeHumanizeBytes(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 1 {
		return values.UndefinedValue, fmt.Errorf("humanize.bytes(n) takes exactly one argument")
	}
	n := ctx.Argument(0)
	if n.Type() != values.Integer {
		return values.UndefinedValue, fmt.Errorf("humanize.bytes(n) expects an integer")
	}
	return values.NewString(humanize.Bytes(uint64(n.Int()))), nil
}

// nativeHumanizeTime takes a Unix timestamp (seconds) and returns a
// relative description like "3 days ago".
func nativeHumanizeTime(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 1 {
		return values.UndefinedValue, fmt.Errorf("humanize.time(unixSeconds) takes exactly one argument")
	}
	t := ctx.Argument(0)
	if t.Type() != values.Integer {
		return values.UndefinedValue, fmt.Errorf("humanize.time(unixSeconds) expects an integer")
	}
	return values.NewString(humanize.Time(time.Unix(t.Int(), 0))), nil
}

// nativeHumanizeOrdinal takes an integer and returns its ordinal form,
// e.g. 3 -> "3rd".
func nativeHumanizeOrdinal(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 1 {
		return values.UndefinedValue, fmt.Errorf("humanize.ordinal(n) takes exactly one argument")
	}
	n := ctx.Argument(0)
	if n.Type() != values.Integer {
		return values.UndefinedValue, fmt.Errorf("humanize.ordinal(n) expects an integer")
	}
	return values.NewString(humanize.Ordinal(int(n.Int()))), nil
}

// nativeHumanizeComma takes an integer and inserts thousands separators,
// e.g. 1000000 -> "1,000,000".
func nativeHumanizeComma(ctx values.NativeCallContext) (values.Value, error) {
	if ctx.NumArguments() != 1 {
		return values.UndefinedValue, fmt.Errorf("humanize.comma(n) takes exactly one argument")
	}
	n := ctx.Argument(0)
	if n.Type() != values.Integer {
		return values.UndefinedValue, fmt.Errorf("humanize.comma(n) expects an integer")
	}
	return values.NewString(humanize.Comma(n.Int())), nil
}
