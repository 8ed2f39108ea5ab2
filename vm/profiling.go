package vm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mcejp/Helium/opcodes"
)

// HotSpot is one entry of a profile report: a code address and how many
// times Execute dispatched an instruction there.
type HotSpot struct {
	PC    int
	Count int
}

// profileState accumulates per-instruction and per-opcode execution
// counts for a VirtualMachine with profiling turned on. Guarded by a
// mutex since nothing else in this port assumes an ActivationContext's
// instruction stream is only ever driven from one goroutine, and a
// profiler is exactly the kind of thing a host might want to read from
// concurrently with execution (e.g. a `-V` status line).
type profileState struct {
	mu sync.Mutex

	instructionCounts map[int]int
	opcodeCounts      map[opcodes.Opcode]int
}

func newProfileState() *profileState {
	return &profileState{
		instructionCounts: make(map[int]int),
		opcodeCounts:      make(map[opcodes.Opcode]int),
	}
}

func (ps *profileState) observe(pc int, opcode opcodes.Opcode) {
	ps.mu.Lock()
	ps.instructionCounts[pc]++
	ps.opcodeCounts[opcode]++
	ps.mu.Unlock()
}

// HotSpots returns the n most frequently executed code addresses, most
// frequent first (n <= 0 returns every address observed).
func (ps *profileState) HotSpots(n int) []HotSpot {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	spots := make([]HotSpot, 0, len(ps.instructionCounts))
	for pc, count := range ps.instructionCounts {
		spots = append(spots, HotSpot{PC: pc, Count: count})
	}
	sort.Slice(spots, func(i, j int) bool {
		if spots[i].Count == spots[j].Count {
			return spots[i].PC < spots[j].PC
		}
		return spots[i].Count > spots[j].Count
	})

	if n <= 0 || n >= len(spots) {
		return spots
	}
	return spots[:n]
}

// Report renders a one-line execution summary: total instructions
// dispatched, how many distinct addresses they span, and a breakdown of
// the busiest opcodes.
func (ps *profileState) Report() string {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if len(ps.instructionCounts) == 0 {
		return "(no profiling data)"
	}

	total := 0
	for _, count := range ps.instructionCounts {
		total += count
	}

	type opcodeCount struct {
		op    opcodes.Opcode
		count int
	}
	byOp := make([]opcodeCount, 0, len(ps.opcodeCounts))
	for op, count := range ps.opcodeCounts {
		byOp = append(byOp, opcodeCount{op, count})
	}
	sort.Slice(byOp, func(i, j int) bool { return byOp[i].count > byOp[j].count })

	busiest := ""
	for i, oc := range byOp {
		if i >= 3 {
			break
		}
		if busiest != "" {
			busiest += ", "
		}
		busiest += fmt.Sprintf("%s=%d", oc.op, oc.count)
	}

	return fmt.Sprintf("instructions executed: %d, unique addresses: %d, top opcodes: %s", total, len(ps.instructionCounts), busiest)
}

// EnableProfiling turns on per-instruction profiling for every
// ActivationContext this VM subsequently executes. Calling it again
// resets any counts already accumulated.
func (vm *VirtualMachine) EnableProfiling() {
	vm.profile = newProfileState()
}

// Profiling reports whether profiling is currently enabled.
func (vm *VirtualMachine) Profiling() bool { return vm.profile != nil }

// HotSpots returns the n busiest code addresses observed since profiling
// was enabled, or nil if profiling is off.
func (vm *VirtualMachine) HotSpots(n int) []HotSpot {
	if vm.profile == nil {
		return nil
	}
	return vm.profile.HotSpots(n)
}

// ProfileReport renders a human-readable execution summary, or the empty
// string if profiling is off.
func (vm *VirtualMachine) ProfileReport() string {
	if vm.profile == nil {
		return ""
	}
	return vm.profile.Report()
}
