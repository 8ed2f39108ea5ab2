package bytecode

import "hash/fnv"

// StringHash identifies an interned string by content, precomputed once at
// load time so property and member lookups can compare hashes before
// falling back to a byte comparison. The original runtime hashes with
// xxHash32; nothing in the example corpus vendors an xxHash binding, so
// this uses the standard library's FNV-1a, which gives the same
// precompute-once/compare-by-hash-then-bytes shape without pulling in an
// unexercised dependency.
type StringHash uint32

func hashBytes(b []byte) StringHash {
	h := fnv.New32a()
	h.Write(b)
	return StringHash(h.Sum32())
}
