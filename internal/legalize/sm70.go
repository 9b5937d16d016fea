package legalize

import (
	"fmt"

	"nakgo/internal/ir"
	"nakgo/internal/liveness"
)

func legalizeSM70(b *ir.Builder, bl *liveness.Block, ip int, instr *ir.Instr) {
	switch op := instr.Op.(type) {
	case *ir.FAdd:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
	case *ir.FMul:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
	case *ir.FFma:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
		copySrcIfBothNotReg(b, &op.Srcs[1], &op.Srcs[2], ir.SrcF32)
	case *ir.FMnMx:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
	case *ir.FSet:
		if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
			op.CmpOp = op.CmpOp.Flip()
		}
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
	case *ir.FSetP:
		if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
			op.CmpOp = op.CmpOp.Flip()
		}
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF32)
	case *ir.DAdd:
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcF64)
	case *ir.IAdd3:
		legalizeIAdd3SM70(b, op)
	case *ir.IMad:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
		copySrcIfBothNotReg(b, &op.Srcs[1], &op.Srcs[2], ir.SrcALU)
	case *ir.IMad64:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
		copySrcIfBothNotReg(b, &op.Srcs[1], &op.Srcs[2], ir.SrcALU)
	case *ir.IMnMx:
		swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1])
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
	case *ir.ISetP:
		if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
			op.CmpOp = op.CmpOp.Flip()
		}
		copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
	case *ir.Lop3:
		legalizeLop3(b, op)
	case *ir.PLop3:
		legalizePLop3(op)
	case *ir.Shf:
		copySrcIfNotReg(b, &op.Low, ir.SrcGPR)
		copySrcIfNotReg(b, &op.High, ir.SrcGPR)
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
	case *ir.Shfl:
		copySrcIfNotReg(b, &op.Src, ir.SrcGPR)
		copySrcIfCBuf(b, &op.Lane, ir.SrcALU)
		copySrcIfCBuf(b, &op.C, ir.SrcALU)
	case *ir.Out:
		copySrcIfNotReg(b, &op.Handle, ir.SrcGPR)
		copySrcIfCBuf(b, &op.Stream, ir.SrcALU)
	case *ir.BSSy:
		op.BarIn = roundTripBarIfLive(b, bl, ip, op.BarOut, op.BarIn)
	case *ir.Break:
		op.BarIn = roundTripBarIfLive(b, bl, ip, op.BarOut, op.BarIn)
	case *ir.MuFu, *ir.IAbs, *ir.PopC, *ir.Brev, *ir.Flo, *ir.Mov, *ir.Vote,
		*ir.F2F, *ir.F2I, *ir.I2F, *ir.FRnd, *ir.BSync:
		// Every source form is encodable.
	case *ir.Undef, *ir.Copy, *ir.Swap, *ir.PhiSrcs, *ir.PhiDsts, *ir.ParCopy,
		*ir.FSOut, *ir.Nop:
		// Pseudo ops are lowered after register assignment.
	case *ir.Lop2, *ir.PSetP, *ir.IAdd2, *ir.Shl:
		panic(fmt.Sprintf("legalize: %s is not supported on sm %d", instr.Op.Name(), b.SM()))
	default:
		legalizeSrcsByType(b, instr, true)
	}
}

// legalizeIAdd3SM70 keeps registers in slots 0 and 2. The hardware negates
// at most one of the first two sources, so a second modifier is resolved
// with a separate add.
func legalizeIAdd3SM70(b *ir.Builder, op *ir.IAdd3) {
	src0, src1, src2 := &op.Srcs[0], &op.Srcs[1], &op.Srcs[2]
	swapSrcsIfNotReg(src0, src1)
	swapSrcsIfNotReg(src2, src1)
	if !src0.Mod.IsNone() && !src1.Mod.IsNone() {
		val := b.AllocSSA(ir.FileGPR, 1)
		b.Push(ir.NewIAdd3(val, *src0, ir.ZeroSrc(), ir.ZeroSrc()))
		*src0 = ir.NewSrc(val)
	}
	copySrcIfNotReg(b, src0, ir.SrcI32)
	copySrcIfNotReg(b, src2, ir.SrcI32)
}

// roundTripBarIfLive gives bssy and break a private barrier input when the
// instruction overwrites a barrier value that is read again later. There is
// no barrier-to-barrier move, so the value goes through a GPR.
func roundTripBarIfLive(b *ir.Builder, bl *liveness.Block, ip int, out ir.Dst, in ir.Src) ir.Src {
	if _, none := out.(ir.DstNone); none || out == nil {
		return in
	}
	vec, ok := in.Ref.(ir.SSARef)
	if !ok {
		panic("legalize: barrier input must be an SSA value")
	}
	if bl == nil || !bl.IsLiveAfter(vec.At(0), ip) {
		return in
	}
	gpr := b.BMovToGPR(in)
	return ir.NewSrc(b.BMovToBar(ir.NewSrc(gpr)))
}
