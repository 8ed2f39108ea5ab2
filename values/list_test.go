package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList_SetItemGrowsAndOverwrites(t *testing.T) {
	host := &fakeHost{}
	l := NewList(host, 1)

	l.SetItem(0, NewInteger(1))
	l.SetItem(3, NewInteger(4))

	assert.Equal(t, 4, l.Len())
	assert.Equal(t, int64(1), l.Item(0).Int())
	assert.Equal(t, Undefined, l.Item(1).Type()) // zero-value gap, never written
	assert.Equal(t, int64(4), l.Item(3).Int())
}

func TestList_RemoveItemsShiftsDown(t *testing.T) {
	host := &fakeHost{}
	l := NewList(host, 0)
	l.AddItem(NewInteger(1))
	l.AddItem(NewInteger(2))
	l.AddItem(NewInteger(3))

	l.RemoveItems(0, 1)

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, int64(2), l.Item(0).Int())
	assert.Equal(t, int64(3), l.Item(1).Int())
}

func TestList_RemoveItemsClampsCount(t *testing.T) {
	host := &fakeHost{}
	l := NewList(host, 0)
	l.AddItem(NewInteger(1))
	l.AddItem(NewInteger(2))

	l.RemoveItems(1, 100)

	assert.Equal(t, 1, l.Len())
}
