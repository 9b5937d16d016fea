package sched

import "nakgo/internal/ir"

var trackedFiles = [...]ir.RegFile{ir.FileGPR, ir.FileUGPR, ir.FilePred, ir.FileUPred, ir.FileBar}

// regTracker keeps one T per architectural register. Hard-wired zero and
// true registers are never tracked.
type regTracker[T any] struct {
	files [len(trackedFiles)][]T
}

func newRegTracker[T any](init T) *regTracker[T] {
	t := &regTracker[T]{}
	for i, f := range trackedFiles {
		n := f.NumRegs()
		if z, ok := f.ZeroIdx(); ok {
			n = z
		}
		t.files[i] = make([]T, n)
		for j := range t.files[i] {
			t.files[i][j] = init
		}
	}
	return t
}

// regs returns the tracked slots of reg, skipping the zero register.
func (t *regTracker[T]) regs(reg ir.RegRef) []T {
	slots := t.files[reg.File()]
	lo, hi := reg.IdxRange()
	hi = min(hi, len(slots))
	if lo >= hi {
		return nil
	}
	return slots[lo:hi]
}

// srcRegs lists the registers instr reads, guard included.
func srcRegs(instr *ir.Instr) []ir.RegRef {
	var out []ir.RegRef
	if r, ok := instr.Pred.Ref.(ir.RegRef); ok {
		out = append(out, r)
	}
	for _, s := range instr.Srcs() {
		if r, ok := s.Reg(); ok {
			out = append(out, r)
		}
	}
	return out
}

// dstRegs lists the registers instr writes.
func dstRegs(instr *ir.Instr) []ir.RegRef {
	var out []ir.RegRef
	for _, d := range instr.Dsts() {
		switch r := (*d).(type) {
		case ir.RegRef:
			out = append(out, r)
		case ir.SSARef:
			panic("sched: SSA destination " + r.String() + " after register assignment")
		}
	}
	return out
}
