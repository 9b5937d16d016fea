package sched

import (
	"fmt"

	"nakgo/internal/ir"
)

// dep identifies one barrier allocation. Allocations are numbered in order,
// so a smaller dep is an older one.
type dep int

const noDep dep = -1

// regDeps is the outstanding work on one register: at most one pending
// write and any number of pending reads.
type regDeps struct {
	wr dep
	rd []dep
}

// barrierAlloc hands out the hardware scoreboard barriers. It runs forward
// over the whole function with no state carried across branches.
type barrierAlloc struct {
	// owner[i] is the allocation currently holding barrier i.
	owner [ir.NumBarriers]dep
	next  dep
	regs  *regTracker[regDeps]
}

func newBarrierAlloc() *barrierAlloc {
	a := &barrierAlloc{regs: newRegTracker(regDeps{wr: noDep})}
	for i := range a.owner {
		a.owner[i] = noDep
	}
	return a
}

func (a *barrierAlloc) activeMask() uint8 {
	var mask uint8
	for i, d := range a.owner {
		if d != noDep {
			mask |= 1 << i
		}
	}
	return mask
}

// barrierOf returns the barrier still tracking d, if any.
func (a *barrierAlloc) barrierOf(d dep) (int, bool) {
	if d == noDep {
		return 0, false
	}
	for i, o := range a.owner {
		if o == d {
			return i, true
		}
	}
	return 0, false
}

func (a *barrierAlloc) free(mask uint8) {
	for i := range a.owner {
		if mask&(1<<i) != 0 {
			a.owner[i] = noDep
		}
	}
}

// alloc takes a free barrier, or evicts the oldest allocation. The evicted
// barrier is returned in wait so the current instruction waits for it.
func (a *barrierAlloc) alloc() (bar int, wait uint8) {
	oldest := -1
	for i, o := range a.owner {
		if o == noDep {
			a.owner[i] = a.next
			a.next++
			return i, 0
		}
		if oldest < 0 || o < a.owner[oldest] {
			oldest = i
		}
	}
	a.owner[oldest] = a.next
	a.next++
	return oldest, 1 << oldest
}

// waitMask is what instr must wait for: pending writes of everything it
// touches and pending reads of everything it overwrites.
func (a *barrierAlloc) waitMask(instr *ir.Instr) uint8 {
	if instr.IsBranch() {
		return a.activeMask()
	}
	var mask uint8
	add := func(d dep) {
		if bar, ok := a.barrierOf(d); ok {
			mask |= 1 << bar
		}
	}
	for _, reg := range srcRegs(instr) {
		for _, rd := range a.regs.regs(reg) {
			add(rd.wr)
		}
	}
	for _, reg := range dstRegs(instr) {
		for _, rd := range a.regs.regs(reg) {
			add(rd.wr)
			for _, d := range rd.rd {
				add(d)
			}
		}
	}
	return mask
}

func (a *barrierAlloc) instr(instr *ir.Instr) {
	wait := a.waitMask(instr)
	instr.Deps.AddWaitMask(wait)
	a.free(wait)

	if instr.HasFixedLatency() {
		return
	}

	dsts := dstRegs(instr)
	written := make(map[[2]int]bool)
	for _, reg := range dsts {
		lo, hi := reg.IdxRange()
		for i := lo; i < hi; i++ {
			written[[2]int{int(reg.File()), i}] = true
		}
	}
	var reads []*regDeps
	for _, reg := range srcRegs(instr) {
		slots := a.regs.regs(reg)
		lo, _ := reg.IdxRange()
		for i := range slots {
			if !written[[2]int{int(reg.File()), lo + i}] {
				reads = append(reads, &slots[i])
			}
		}
	}
	var writes []*regDeps
	for _, reg := range dsts {
		slots := a.regs.regs(reg)
		for i := range slots {
			writes = append(writes, &slots[i])
		}
	}

	if len(writes) > 0 {
		bar, evicted := a.alloc()
		a.evict(instr, evicted)
		instr.Deps.SetWrBar(bar)
		d := a.owner[bar]
		for _, w := range writes {
			w.wr = d
			w.rd = nil
		}
	}
	if len(reads) > 0 {
		bar, evicted := a.alloc()
		a.evict(instr, evicted)
		instr.Deps.SetRdBar(bar)
		d := a.owner[bar]
		for _, r := range reads {
			r.rd = append(a.live(r.rd), d)
		}
	}
}

// evict makes instr wait for a barrier taken from an older allocation. The
// oldest allocation always belongs to an earlier instruction, so the write
// barrier just taken is never the victim.
func (a *barrierAlloc) evict(instr *ir.Instr, mask uint8) {
	if mask == 0 {
		return
	}
	if instr.Deps.WrBar >= 0 && mask&(1<<instr.Deps.WrBar) != 0 {
		panic(fmt.Sprintf("sched: evicted the write barrier of %s", instr.Op.Name()))
	}
	instr.Deps.AddWaitMask(mask)
}

// live drops read dependencies whose barrier has been waited on.
func (a *barrierAlloc) live(deps []dep) []dep {
	out := deps[:0]
	for _, d := range deps {
		if _, ok := a.barrierOf(d); ok {
			out = append(out, d)
		}
	}
	return out
}

func allocBarriers(fn *ir.Function) {
	a := newBarrierAlloc()
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			a.instr(instr)
		}
	}
}
