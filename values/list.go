package values

// listData is the heap representation behind a List value: a growable,
// zero-indexed array of Values, plus the shared GC header. Mirrors
// ListInfo.
type listData struct {
	gc     gc
	items  []Value
	length int
}

// NewList allocates an empty list with room for preallocSize items before
// the first growth, owned by host. Mirrors Value::newList.
func NewList(host GCHost, preallocSize int) Value {
	if preallocSize < 1 {
		preallocSize = 1
	}

	return Value{
		typ: List,
		list: &listData{
			gc:    gc{host: host, numReferences: 1},
			items: make([]Value, preallocSize),
		},
	}
}

// Len returns the number of items currently stored in the list.
func (v Value) Len() int {
	return v.list.length
}

// Item returns the item at index without bounds checking; callers must
// validate against Len() first and raise a range error of their own.
func (v Value) Item(index int) Value {
	return v.list.items[index]
}

// AddItem appends valueRef (which the caller has already given ownership
// of, typically via Reference or Replicate) to the end of the list.
// Mirrors Value::listAddItem / listSetItem.
func (v Value) AddItem(valueRef Value) {
	v.SetItem(v.list.length, valueRef)
}

// SetItem stores valueRef at index, growing the backing array and the
// logical length as needed, releasing whatever value previously occupied
// the slot. Mirrors Value::listSetItem.
func (v Value) SetItem(index int, valueRef Value) {
	l := v.list

	if index >= len(l.items) {
		l.grow(index + 1)
	} else if index < l.length {
		l.items[index].Release()
	}

	if l.length <= index {
		l.length = index + 1
	}

	l.items[index] = valueRef
}

func (l *listData) grow(minLength int) {
	newCap := minLength + minLength/2 + 1
	grown := make([]Value, newCap)
	copy(grown, l.items)
	l.items = grown
}

// RemoveItems releases and removes count items starting at index, shifting
// later items down. Mirrors Value::listRemoveItems.
func (v Value) RemoveItems(index, count int) {
	l := v.list

	if index >= l.length {
		return
	}

	if index+count > l.length {
		count = l.length - index
	}

	for i := index; i < index+count; i++ {
		l.items[i].Release()
	}

	copy(l.items[index:], l.items[index+count:l.length])
	l.length -= count
}

func (v Value) releaseListItems() {
	l := v.list
	for i := l.length - 1; i >= 0; i-- {
		l.items[i].Release()
	}
}

// destroyList tears down a list whose refcount has reached zero and which
// is not (or no longer) registered with the collector. Every item is
// released; a child already released by a prior releaseListItems pass is
// Undefined by then and Release is a no-op on it, so calling this
// unconditionally is safe regardless of which path reached it. Mirrors
// Value::listDestroy.
func (v Value) destroyList() {
	l := v.list
	for i := l.length - 1; i >= 0; i-- {
		l.items[i].Release()
	}
}
