package values

// stringData is the heap representation behind a String value: an
// immutable byte sequence, refcounted but never cycle-collected (strings
// cannot hold outgoing references, so they cannot participate in a
// reference cycle). Mirrors StringInfo.
type stringData struct {
	numReferences uint32
	length        int
	text          []byte
}

// NewString constructs a string value by copying s. Mirrors
// Value::newString / Value::newStringWithLength.
func NewString(s string) Value {
	text := make([]byte, len(s))
	copy(text, s)

	return Value{
		typ: String,
		str: &stringData{numReferences: 1, length: len(text), text: text},
	}
}

// NewBytes constructs a string value from a raw byte slice, copying it.
func NewBytes(b []byte) Value {
	text := make([]byte, len(b))
	copy(text, b)

	return Value{
		typ: String,
		str: &stringData{numReferences: 1, length: len(text), text: text},
	}
}

// StringLen reports the byte length of a string value.
func (v Value) StringLen() int { return v.str.length }

// Bytes returns the raw bytes backing a string value. Callers must not
// mutate the returned slice: strings are immutable and may be shared via
// Reference.
func (v Value) Bytes() []byte { return v.str.text }

// Str returns the string value's contents as a Go string.
func (v Value) Str() string { return string(v.str.text) }

// AppendString returns a new string holding v's bytes followed by more.
// Mirrors Value::appendString.
func (v Value) AppendString(more []byte) Value {
	combined := make([]byte, v.str.length+len(more))
	copy(combined, v.str.text)
	copy(combined[v.str.length:], more)

	return Value{
		typ: String,
		str: &stringData{numReferences: 1, length: len(combined), text: combined},
	}
}
