package passes

import (
	"fmt"

	"golang.org/x/tools/container/intsets"

	"nakgo/internal/ir"
)

// DeadCode removes instructions whose results are never read. Liveness of
// SSA values and phi ids is grown to a fixed point over the whole function,
// so values only used by dead loops are removed too.
type DeadCode struct {
	maxIterations int
}

func NewDeadCode() *DeadCode {
	return &DeadCode{maxIterations: 64}
}

func (d *DeadCode) Name() string { return "dce" }

func (d *DeadCode) Run(shader *ir.Shader) error {
	for i, fn := range shader.Functions {
		if err := d.runFunction(fn); err != nil {
			return fmt.Errorf("function %d: %w", i, err)
		}
	}
	return nil
}

type deadCodeState struct {
	liveSSA intsets.Sparse
	livePhi intsets.Sparse
	newLive bool
	anyDead bool
}

func (s *deadCodeState) markSSA(v ir.SSAValue) {
	if s.liveSSA.Insert(int(v)) {
		s.newLive = true
	}
}

func (s *deadCodeState) markSrc(src *ir.Src) {
	for _, v := range src.SSAValues() {
		s.markSSA(v)
	}
}

func (s *deadCodeState) markPhi(id uint32) {
	if s.livePhi.Insert(int(id)) {
		s.newLive = true
	}
}

func (s *deadCodeState) isDstLive(dst ir.Dst) bool {
	switch d := dst.(type) {
	case ir.SSARef:
		for _, v := range d.Values() {
			if s.liveSSA.Has(int(v)) {
				return true
			}
		}
		return false
	case ir.DstNone, nil:
		return false
	default:
		panic(fmt.Sprintf("dce: %v is not an SSA destination", dst))
	}
}

func (s *deadCodeState) isInstrLive(instr *ir.Instr) bool {
	if instr.Pred.IsFalse() {
		return false
	}
	if !instr.CanEliminate() {
		return true
	}
	for _, d := range instr.Dsts() {
		if s.isDstLive(*d) {
			return true
		}
	}
	return false
}

func (s *deadCodeState) mark(instr *ir.Instr) {
	switch op := instr.Op.(type) {
	case *ir.PhiSrcs:
		for i, id := range op.IDs {
			if s.livePhi.Has(int(id)) {
				s.markSrc(&op.Srcs[i])
			} else {
				s.anyDead = true
			}
		}
	case *ir.PhiDsts:
		for i, id := range op.IDs {
			if s.isDstLive(op.Dsts[i]) {
				s.markPhi(id)
			} else {
				s.anyDead = true
			}
		}
	case *ir.ParCopy:
		for i := range op.Dsts {
			if s.isDstLive(op.Dsts[i]) {
				s.markSrc(&op.Srcs[i])
			} else {
				s.anyDead = true
			}
		}
	default:
		if !s.isInstrLive(instr) {
			s.anyDead = true
			return
		}
		if v, ok := instr.Pred.Ref.(ir.SSAValue); ok {
			s.markSSA(v)
		}
		for _, src := range instr.Srcs() {
			s.markSrc(src)
		}
	}
}

// trim drops the dead entries of multi-entry pseudo ops and reports whether
// anything is left.
func (s *deadCodeState) trim(instr *ir.Instr) bool {
	switch op := instr.Op.(type) {
	case *ir.PhiSrcs:
		ids, srcs := op.IDs[:0], op.Srcs[:0]
		for i, id := range op.IDs {
			if s.livePhi.Has(int(id)) {
				ids, srcs = append(ids, id), append(srcs, op.Srcs[i])
			}
		}
		op.IDs, op.Srcs = ids, srcs
		return len(ids) > 0
	case *ir.PhiDsts:
		ids, dsts := op.IDs[:0], op.Dsts[:0]
		for i, id := range op.IDs {
			if s.isDstLive(op.Dsts[i]) {
				ids, dsts = append(ids, id), append(dsts, op.Dsts[i])
			}
		}
		op.IDs, op.Dsts = ids, dsts
		return len(ids) > 0
	case *ir.ParCopy:
		dsts, srcs := op.Dsts[:0], op.Srcs[:0]
		for i, d := range op.Dsts {
			if s.isDstLive(d) {
				dsts, srcs = append(dsts, d), append(srcs, op.Srcs[i])
			}
		}
		op.Dsts, op.Srcs = dsts, srcs
		return len(dsts) > 0
	default:
		return s.isInstrLive(instr)
	}
}

func (d *DeadCode) runFunction(fn *ir.Function) error {
	var s deadCodeState
	for iter := 0; ; iter++ {
		if iter == d.maxIterations {
			return fmt.Errorf("dce did not converge after %d iterations", iter)
		}
		s.newLive = false
		s.anyDead = false
		for bi := len(fn.Blocks) - 1; bi >= 0; bi-- {
			instrs := fn.Blocks[bi].Instrs
			for ii := len(instrs) - 1; ii >= 0; ii-- {
				s.mark(instrs[ii])
			}
		}
		if !s.newLive {
			break
		}
	}
	if !s.anyDead {
		return nil
	}
	fn.MapInstrs(func(instr *ir.Instr) []*ir.Instr {
		if s.trim(instr) {
			return []*ir.Instr{instr}
		}
		return nil
	})
	return nil
}
