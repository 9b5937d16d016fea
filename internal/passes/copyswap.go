package passes

import (
	"fmt"

	"nakgo/internal/ir"
)

// LowerCopySwap replaces the copy and swap pseudo ops with real moves. A
// swap becomes three exclusive-ors, so it needs no scratch register.
type LowerCopySwap struct{}

func (LowerCopySwap) Name() string { return "lower-copy-swap" }

func (LowerCopySwap) Run(shader *ir.Shader) error {
	sm := shader.Info.SM
	shader.MapInstrs(func(instr *ir.Instr) []*ir.Instr {
		b := ir.NewBuilder(sm, nil)
		switch op := instr.Op.(type) {
		case *ir.Copy:
			b.CopyTo(op.Dst, op.Src)
		case *ir.Swap:
			x, xok := op.Dsts[0].(ir.RegRef)
			y, yok := op.Dsts[1].(ir.RegRef)
			if !xok || !yok {
				panic("lower-copy-swap: swap operands must be registers")
			}
			lowerSwap(b, x, y)
		default:
			return []*ir.Instr{instr}
		}
		out := b.Instrs()
		for _, i := range out {
			i.Pred = instr.Pred
		}
		return out
	})
	return nil
}

func lowerSwap(b *ir.Builder, x, y ir.RegRef) {
	if x == y {
		return
	}
	if x.File() != y.File() || x.Comps() != 1 || y.Comps() != 1 {
		panic(fmt.Sprintf("lower-copy-swap: cannot swap %s and %s", x, y))
	}
	xor := func(dst, a, c ir.RegRef) {
		xorTo(b, dst, ir.NewSrc(a), ir.NewSrc(c))
	}
	xor(x, x, y)
	xor(y, x, y)
	xor(x, x, y)
}

func xorTo(b *ir.Builder, dst ir.RegRef, x, y ir.Src) {
	switch {
	case !dst.File().IsPredicate():
		b.Lop2To(dst, ir.LogicXor, x, y)
	case b.SM() >= 70:
		b.Push(&ir.PLop3{
			Dsts: [2]ir.Dst{dst, ir.DstNone{}},
			Srcs: [3]ir.Src{x, y, ir.BoolSrc(true)},
			Ops:  [2]ir.LogicOp{ir.LogicXor.LUT(), ir.LogicConst(false)},
		})
	default:
		b.Push(&ir.PSetP{
			Dsts: [2]ir.Dst{dst, ir.DstNone{}},
			Ops:  [2]ir.PredSetOp{ir.PredSetXor, ir.PredSetAnd},
			Srcs: [3]ir.Src{x, y, ir.BoolSrc(true)},
		})
	}
}
