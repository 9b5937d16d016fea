package passes

import "nakgo/internal/ir"

// CopyProp forwards the sources of plain moves into the instructions that
// read their results. The moves themselves are left for DCE.
type CopyProp struct{}

func (CopyProp) Name() string { return "copy-prop" }

func (CopyProp) Run(shader *ir.Shader) error {
	for _, fn := range shader.Functions {
		copyPropFunction(fn)
	}
	return nil
}

func copyPropFunction(fn *ir.Function) {
	copies := make(map[ir.SSAValue]ir.Src)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			propagatePred(instr, copies)
			for _, s := range instr.Srcs() {
				propagateSrc(s, copies)
			}
			if dst, src, ok := plainCopy(instr); ok {
				copies[dst] = src
			}
		}
	}
}

// plainCopy recognises an unpredicated full move of one value into a scalar
// SSA destination of a compatible file.
func plainCopy(instr *ir.Instr) (ir.SSAValue, ir.Src, bool) {
	if !instr.Pred.IsTrue() {
		return 0, ir.Src{}, false
	}
	var dst ir.Dst
	var src ir.Src
	switch op := instr.Op.(type) {
	case *ir.Copy:
		dst, src = op.Dst, op.Src
	case *ir.Mov:
		if op.QuadLanes != 0xf {
			return 0, ir.Src{}, false
		}
		dst, src = op.Dst, op.Src
	default:
		return 0, ir.Src{}, false
	}
	vec, ok := dst.(ir.SSARef)
	if !ok || vec.Comps() != 1 || !src.Mod.IsNone() {
		return 0, ir.Src{}, false
	}
	v := vec.At(0)
	switch ref := src.Ref.(type) {
	case ir.SSARef:
		if ref.Comps() != 1 || ref.File() != v.File() {
			return 0, ir.Src{}, false
		}
	case ir.SrcTrue, ir.SrcFalse:
		if !v.File().IsPredicate() {
			return 0, ir.Src{}, false
		}
	case ir.SrcZero, ir.Imm32, ir.CBufRef:
		if v.File() != ir.FileGPR {
			return 0, ir.Src{}, false
		}
	default:
		return 0, ir.Src{}, false
	}
	return v, src, true
}

func propagateSrc(s *ir.Src, copies map[ir.SSAValue]ir.Src) {
	vec, ok := s.Ref.(ir.SSARef)
	if !ok || vec.Comps() != 1 {
		return
	}
	src, ok := copies[vec.At(0)]
	if !ok {
		return
	}
	// Not of a constant predicate is the other constant.
	if s.Mod.IsBNot() {
		switch src.Ref.(type) {
		case ir.SrcTrue:
			*s = ir.BoolSrc(false)
			return
		case ir.SrcFalse:
			*s = ir.BoolSrc(true)
			return
		}
	}
	s.Ref = src.Ref
}

func propagatePred(instr *ir.Instr, copies map[ir.SSAValue]ir.Src) {
	v, ok := instr.Pred.Ref.(ir.SSAValue)
	if !ok {
		return
	}
	src, ok := copies[v]
	if !ok {
		return
	}
	switch ref := src.Ref.(type) {
	case ir.SSARef:
		instr.Pred.Ref = ref.At(0)
	case ir.SrcTrue:
		instr.Pred.Ref = ir.PredNone{}
	case ir.SrcFalse:
		instr.Pred = ir.Pred{Ref: ir.PredNone{}, Inv: !instr.Pred.Inv}
	}
}
