package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// collectorHost is a minimal GCHost that records possible roots the way
// vm.VirtualMachine does, so the trial-deletion algorithm can be driven
// directly against the values package without a vm dependency.
type collectorHost struct {
	roots []Value
}

func (h *collectorHost) AddPossibleRoot(v Value) {
	h.roots = append(h.roots, v)
}

// collect runs one full trial-deletion pass over the recorded possible
// roots, mirroring VM::collectGarbage's three-phase structure, and returns
// the number of values reclaimed.
func (h *collectorHost) collect() uint {
	roots := h.roots
	h.roots = nil

	var candidates []Value
	for _, r := range roots {
		if !r.Mark() {
			candidates = append(candidates, r)
		}
	}

	for _, c := range candidates {
		c.Scan()
	}

	var reclaimed uint
	for _, c := range candidates {
		c.MarkNotRegistered()
		reclaimed += c.CollectWhite()
	}

	return reclaimed
}

func TestGC_TwoObjectCycleIsReclaimed(t *testing.T) {
	host := &collectorHost{}

	a := NewObject(host)
	b := NewObject(host)

	// a.next = b (a owns a reference to b)
	a.SetProperty("next", b.Reference(), false)
	// b.next = a, closing the cycle
	b.SetProperty("next", a.Reference(), false)

	// Drop the only external references. Each object's refcount is still 1
	// (held by the other), so neither is freed immediately, and each is
	// registered as a possible root.
	a.Release()
	b.Release()

	assert.Len(t, host.roots, 2)

	reclaimed := host.collect()
	assert.Equal(t, uint(2), reclaimed, "a two-node reference cycle must be fully reclaimed")
}

func TestGC_AcyclicGraphSurvivesCollection(t *testing.T) {
	host := &collectorHost{}

	parent := NewObject(host)
	child := NewObject(host)
	parent.SetProperty("child", child.Reference(), false)

	extra := child.Reference()
	child.Release()

	// extra is a live external reference to child: child's refcount is
	// still 2 (parent's + extra's) when parent drops its own handle.
	parent.Release()

	assert.Len(t, host.roots, 1, "only child lost a reference that didn't reach zero; parent reached zero and was freed")

	reclaimed := host.collect()
	assert.Equal(t, uint(0), reclaimed, "child is still held by extra, nothing is garbage yet")

	extra.Release()
}

func TestGC_ListCycleIsReclaimed(t *testing.T) {
	host := &collectorHost{}

	l := NewList(host, 1)
	l.AddItem(l.Reference()) // list containing itself

	l.Release()

	assert.Len(t, host.roots, 1)
	reclaimed := host.collect()
	assert.Equal(t, uint(1), reclaimed)
}
