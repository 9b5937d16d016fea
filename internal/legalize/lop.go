package legalize

import "nakgo/internal/ir"

// lopConst returns the constant a logic-op source stands for, if it is one.
func lopConst(src ir.Src) (bool, bool) {
	switch r := src.Ref.(type) {
	case ir.SrcZero, ir.SrcFalse:
		return false, true
	case ir.SrcTrue:
		return true, true
	case ir.Imm32:
		switch uint32(r) {
		case 0:
			return false, true
		case ^uint32(0):
			return true, true
		}
	}
	return false, false
}

// foldLopSrc replaces the truth-table column x of src with its known value
// and applies a bitwise-not modifier.
func foldLopSrc(src ir.Src, x uint8) uint8 {
	if v, ok := lopConst(src); ok {
		x = 0
		if v {
			x = 0xff
		}
	}
	if src.Mod.IsBNot() {
		x = ^x
	}
	return x
}

// foldLUT folds constant sources and not-modifiers of srcs into op. The
// folded sources are rewritten to the unmodified constant placeholder.
func foldLUT(op ir.LogicOp, srcs *[3]ir.Src) ir.LogicOp {
	s := *srcs
	return ir.NewLUT(func(x, y, z uint8) uint8 {
		x = foldLopSrc(s[0], x)
		y = foldLopSrc(s[1], y)
		z = foldLopSrc(s[2], z)
		return uint8(op.Eval(uint32(x), uint32(y), uint32(z)))
	})
}

func clearFolded(srcs *[3]ir.Src, placeholder ir.SrcRef) {
	for i := range srcs {
		srcs[i].Mod = ir.ModNone
		if _, ok := lopConst(srcs[i]); ok {
			srcs[i].Ref = placeholder
		}
	}
}

// swapLUTSrcs exchanges sources i and j of op's truth table.
func swapLUTSrcs(op ir.LogicOp, i, j int) ir.LogicOp {
	return ir.NewLUT(func(x, y, z uint8) uint8 {
		in := [3]uint8{x, y, z}
		in[i], in[j] = in[j], in[i]
		return uint8(op.Eval(uint32(in[0]), uint32(in[1]), uint32(in[2])))
	})
}

// legalizeLop3 folds constants into the table, then puts registers in the
// first and last slots, the only ones that cannot hold a constant.
func legalizeLop3(b *ir.Builder, op *ir.Lop3) {
	op.Op = foldLUT(op.Op, &op.Srcs)
	clearFolded(&op.Srcs, ir.SrcZero{})
	if swapSrcsIfNotReg(&op.Srcs[0], &op.Srcs[1]) {
		op.Op = swapLUTSrcs(op.Op, 0, 1)
	}
	if swapSrcsIfNotReg(&op.Srcs[2], &op.Srcs[1]) {
		op.Op = swapLUTSrcs(op.Op, 1, 2)
	}
	copySrcIfNotReg(b, &op.Srcs[0], ir.SrcALU)
	copySrcIfNotReg(b, &op.Srcs[2], ir.SrcALU)
}

func legalizePLop3(op *ir.PLop3) {
	for i := range op.Ops {
		op.Ops[i] = foldLUT(op.Ops[i], &op.Srcs)
	}
	clearFolded(&op.Srcs, ir.SrcTrue{})
}
