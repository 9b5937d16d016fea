package legalize

import (
	"fmt"

	"nakgo/internal/ir"
	"nakgo/internal/liveness"
)

// The SM50 immediate slot holds 19 bits plus a sign bit. Integers are
// sign-extended from it, floats keep only their top 20 bits.
func fitsI20(src ir.Src) bool {
	imm, ok := src.Ref.(ir.Imm32)
	if !ok {
		return true
	}
	v := int32(foldImmMod(uint32(imm), src.Mod))
	return v >= -(1<<19) && v < 1<<19
}

func fitsF20(src ir.Src) bool {
	imm, ok := src.Ref.(ir.Imm32)
	return !ok || uint32(imm)&0xfff == 0
}

func copySrcIfI20Overflow(b *ir.Builder, src *ir.Src, typ ir.SrcType) {
	if !fitsI20(*src) {
		copySrc(b, src, typ)
	}
}

func copySrcIfF20Overflow(b *ir.Builder, src *ir.Src, typ ir.SrcType) {
	if !fitsF20(*src) {
		copySrc(b, src, typ)
	}
}

func legalizeSM50(b *ir.Builder, _ *liveness.Block, _ int, instr *ir.Instr) {
	switch op := instr.Op.(type) {
	case *ir.FAdd:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
		copySrcIfF20Overflow(b, &op.Srcs[1], ir.SrcF32)
	case *ir.FMul:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
		copySrcIfF20Overflow(b, &op.Srcs[1], ir.SrcF32)
	case *ir.FFma:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
		if _, ok := op.Srcs[2].Ref.(ir.Imm32); ok {
			copySrc(b, &op.Srcs[2], ir.SrcF32)
		}
		copySrcIfBothNotReg(b, &op.Srcs[1], &op.Srcs[2], ir.SrcF32)
		copySrcIfF20Overflow(b, &op.Srcs[1], ir.SrcF32)
	case *ir.FMnMx:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
		copySrcIfF20Overflow(b, &op.Srcs[1], ir.SrcF32)
	case *ir.FSet:
		if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
			op.CmpOp = op.CmpOp.Flip()
		}
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
		copySrcIfF20Overflow(b, &op.Srcs[1], ir.SrcF32)
	case *ir.FSetP:
		if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
			op.CmpOp = op.CmpOp.Flip()
		}
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
		copySrcIfF20Overflow(b, &op.Srcs[1], ir.SrcF32)
	case *ir.MuFu:
		copySrcIfNotReg(b, &op.Src, ir.SrcF32)
	case *ir.DAdd:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF64)
		copySrcIfF20Overflow(b, &op.Srcs[1], ir.SrcF64)
	case *ir.IAdd2:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcI32)
		copySrcIfI20Overflow(b, &op.Srcs[1], ir.SrcI32)
	case *ir.IAdd3:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		swapSrcsIfNotReg(&op.Srcs[2], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcI32)
		copySrcIfNotReg(b, &op.Srcs[2], ir.SrcI32)
		copySrcIfI20Overflow(b, &op.Srcs[1], ir.SrcI32)
	case *ir.IMad:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
		copySrcIfBothNotReg(b, &op.Srcs[1], &op.Srcs[2], ir.SrcALU)
		copySrcIfI20Overflow(b, &op.Srcs[1], ir.SrcALU)
	case *ir.IMnMx:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
		copySrcIfI20Overflow(b, &op.Srcs[1], ir.SrcALU)
	case *ir.ISetP:
		if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
			op.CmpOp = op.CmpOp.Flip()
		}
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
		copySrcIfI20Overflow(b, &op.Srcs[1], ir.SrcALU)
	case *ir.Lop2:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcB32)
		copySrcIfI20Overflow(b, &op.Srcs[1], ir.SrcB32)
	case *ir.Lop3:
		legalizeLop3(b, op)
	case *ir.Shf:
		copySrcIfNotReg(b, &op.Low, ir.SrcGPR)
		copySrcIfNotReg(b, &op.High, ir.SrcGPR)
		copySrcIfCBuf(b, &op.Shift, ir.SrcALU)
	case *ir.Shl:
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcGPR)
		copySrcIfCBuf(b, &op.Srcs[1], ir.SrcALU)
	case *ir.Prmt:
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
		copySrcIfNotReg(b, &op.Srcs[1], ir.SrcALU)
	case *ir.Sel:
		if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
			op.Cond = op.Cond.BNot()
		}
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
	case *ir.Ldc:
		if _, ok := op.CB.Ref.(ir.CBufRef); !ok {
			panic("legalize: ldc needs a constant buffer source")
		}
		copySrcIfNotReg(b, &op.Offset, ir.SrcGPR)
	case *ir.IAbs:
		copySrcIfI20Overflow(b, &op.Src, ir.SrcALU)
	case *ir.PopC:
		copySrcIfI20Overflow(b, &op.Src, ir.SrcB32)
	case *ir.Brev:
		copySrcIfI20Overflow(b, &op.Src, ir.SrcALU)
	case *ir.Flo:
		copySrcIfI20Overflow(b, &op.Src, ir.SrcALU)
	case *ir.I2F:
		copySrcIfI20Overflow(b, &op.Src, ir.SrcALU)
	case *ir.F2F:
		copySrcIfF20Overflow(b, &op.Src, ir.SrcF32)
	case *ir.F2I:
		copySrcIfF20Overflow(b, &op.Src, ir.SrcF32)
	case *ir.FRnd:
		copySrcIfF20Overflow(b, &op.Src, ir.SrcF32)
	case *ir.Mov, *ir.PSetP:
		// Every source form is encodable.
	case *ir.Undef, *ir.Copy, *ir.Swap, *ir.PhiSrcs, *ir.PhiDsts, *ir.ParCopy,
		*ir.FSOut, *ir.Nop:
		// Pseudo ops are lowered after register assignment.
	case *ir.IMad64, *ir.PLop3, *ir.FSwzAdd, *ir.Shfl, *ir.Vote, *ir.Out, *ir.OutFinal,
		*ir.BSSy, *ir.BSync, *ir.Break, *ir.BMov:
		panic(fmt.Sprintf("legalize: %s is not supported on sm %d", instr.Op.Name(), b.SM()))
	default:
		legalizeSrcsByType(b, instr, false)
	}
}
