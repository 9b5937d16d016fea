package regalloc

import "nakgo/internal/ir"

// isolatePhis gives every phi operand a private value live only between the
// phi and an adjacent copy. Afterwards the values of one phi never interfere
// and can share a register.
func isolatePhis(fn *ir.Function) {
	files := make(map[uint32]ir.RegFile)
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if op, ok := instr.Op.(*ir.PhiDsts); ok {
				for i, d := range op.Dsts {
					if vec, ok := d.(ir.SSARef); ok {
						files[op.IDs[i]] = vec.File()
					}
				}
			}
		}
	}
	for _, b := range fn.Blocks {
		b.MapInstrs(func(instr *ir.Instr) []*ir.Instr {
			switch op := instr.Op.(type) {
			case *ir.PhiDsts:
				out := []*ir.Instr{instr}
				for i, d := range op.Dsts {
					vec, ok := d.(ir.SSARef)
					if !ok {
						continue
					}
					fresh := ir.NewSSARef(fn.SSA.Alloc(vec.File()))
					op.Dsts[i] = fresh
					out = append(out, ir.NewInstr(&ir.Copy{Dst: vec, Src: ir.NewSrc(fresh)}))
				}
				return out
			case *ir.PhiSrcs:
				var out []*ir.Instr
				for i, s := range op.Srcs {
					file, ok := files[op.IDs[i]]
					if !ok {
						// The phi is never read; its inputs are dead.
						continue
					}
					fresh := ir.NewSSARef(fn.SSA.Alloc(file))
					out = append(out, ir.NewInstr(&ir.Copy{Dst: fresh, Src: s}))
					op.Srcs[i] = ir.NewSrc(fresh)
				}
				return append(out, instr)
			}
			return []*ir.Instr{instr}
		})
	}
}

// joinPhis puts every value flowing through one phi in the same class.
func (a *allocator) joinPhis(fn *ir.Function) {
	first := make(map[uint32]ir.SSAValue)
	join := func(id uint32, v ir.SSAValue) {
		if rep, ok := first[id]; ok {
			a.classes.Union(rep, v)
		} else {
			first[id] = v
		}
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			switch op := instr.Op.(type) {
			case *ir.PhiDsts:
				for i, d := range op.Dsts {
					if vec, ok := d.(ir.SSARef); ok {
						join(op.IDs[i], vec.At(0))
					}
				}
			case *ir.PhiSrcs:
				for i, s := range op.Srcs {
					if vec, ok := s.Ref.(ir.SSARef); ok {
						join(op.IDs[i], vec.At(0))
					}
				}
			}
		}
	}
}
