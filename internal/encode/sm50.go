package encode

import (
	"fmt"

	"nakgo/internal/bitview"
	"nakgo/internal/ir"
)

const (
	sm50InstrBytes = 8
	sm50GroupSize  = 3
	// One scheduling word plus three instructions.
	sm50GroupBytes = sm50InstrBytes * (sm50GroupSize + 1)
	sm50SchedBits  = 21
)

type sm50 struct {
	words [2]uint32
	v     bitview.View
	sched uint32
	sm    uint8
}

func newSM50(sm uint8) *sm50 {
	e := &sm50{sm: sm}
	e.v = bitview.New(e.words[:])
	return e
}

func (e *sm50) field(lo, hi int, val uint64) { e.v.SetField(lo, hi, val) }

func (e *sm50) bit(b int, val bool) { e.v.SetBit(b, val) }

func (e *sm50) opcode(op uint64) { e.field(48, 64, op) }

func (e *sm50) reg(lo int, idx uint64) { e.field(lo, lo+8, idx) }

func (e *sm50) dst(d ir.Dst) { e.reg(0, dstIdx(d)) }

func (e *sm50) predSrc(lo, notBit int, s ir.Src) {
	idx, not := predSrc(s)
	e.field(lo, lo+3, idx)
	e.bit(notBit, not)
}

func (e *sm50) predDst(lo int, d ir.Dst) { e.field(lo, lo+3, predDstIdx(d)) }

func (e *sm50) guard(p ir.Pred) {
	idx, inv := guard(p)
	e.field(16, 19, idx)
	e.bit(19, inv)
}

func (e *sm50) deps(d ir.InstrDeps) {
	v := bitview.New([]uint32{0})
	v.SetField(0, 4, uint64(d.Delay))
	v.SetBit(4, d.Yield)
	v.SetField(5, 8, barOrNone(d.WrBar))
	v.SetField(8, 11, barOrNone(d.RdBar))
	v.SetField(11, 17, uint64(d.WaitMask))
	v.SetField(17, 21, uint64(d.ReuseMask))
	e.sched = uint32(v.GetBitRange(0, 32))
}

func (e *sm50) cbuf(cb ir.CBufRef) {
	idx, ok := cb.Buf.(ir.CBufBinding)
	if !ok {
		panic("encode: constant buffer must be bound")
	}
	if cb.Offset%4 != 0 {
		panic(fmt.Sprintf("encode: constant buffer offset %#x is not word aligned", cb.Offset))
	}
	e.field(20, 34, uint64(cb.Offset>>2))
	e.field(34, 39, uint64(idx))
}

// The 20-bit immediate keeps 19 bits at 20..39 and the sign at 56.
func (e *sm50) immI20(imm uint32) {
	if top := imm & 0xfff80000; top != 0 && top != 0xfff80000 {
		panic(fmt.Sprintf("encode: %#x does not fit a 20-bit immediate", imm))
	}
	e.field(20, 39, uint64(imm&0x7ffff))
	e.bit(56, imm&0x80000 != 0)
}

// Float immediates keep their top 20 bits.
func (e *sm50) immF20(imm uint32) {
	if imm&0xfff != 0 {
		panic(fmt.Sprintf("encode: %#x does not fit a 20-bit float immediate", imm))
	}
	e.field(20, 39, uint64(imm>>12)&0x7ffff)
	e.bit(56, imm>>31 != 0)
}

// modBits names the abs and neg bits of one ALU source; -1 means the form
// has no such bit.
type modBits struct{ abs, neg int }

var noMods = modBits{-1, -1}

func (e *sm50) mods(m modBits, a aluSrc) {
	if m.abs >= 0 {
		e.bit(m.abs, a.abs)
	} else if a.abs {
		panic("encode: source has no absolute value bit")
	}
	if m.neg >= 0 {
		e.bit(m.neg, a.neg)
	} else if a.neg {
		panic("encode: source has no negate bit")
	}
}

// aluInfo describes an op using the shared register, immediate and constant
// buffer forms. variant picks the form byte column.
type aluInfo struct {
	opcode  uint64
	variant int
	mods    [3]modBits
	float   bool
	// Opcode of the 32-bit immediate form, zero when there is none.
	imm32 uint64
}

var (
	regForms  = [4]uint64{0x58, 0x5a, 0x5b, 0x5c}
	immForms  = [4]uint64{0x30, 0x34, 0x36, 0x38}
	cbufForms = [4]uint64{0x48, 0x4a, 0x4b, 0x4c}
)

func aluOf(s *ir.Src) aluSrc {
	if s == nil {
		return aluSrc{}
	}
	return newALUSrc(*s)
}

// alu encodes dst and sources and reports whether the 32-bit immediate form
// was used. src0 at 8..16 is a register; src1 selects the form; src2 at
// 39..47 is a register.
func (e *sm50) alu(info aluInfo, dst ir.Dst, src0, src1, src2 *ir.Src) bool {
	if dst != nil {
		e.dst(dst)
	}
	s0, s1, s2 := aluOf(src0), aluOf(src1), aluOf(src2)
	m2 := info.mods[2]

	if s0.kind != aluNone {
		if s0.kind != aluReg {
			panic("encode: src0 must be a register")
		}
		e.reg(8, uint64(s0.reg.Base()))
		e.mods(info.mods[0], s0)
	}

	var forms [4]uint64
	switch s1.kind {
	case aluReg:
		e.reg(20, uint64(s1.reg.Base()))
		e.mods(info.mods[1], s1)
		switch s2.kind {
		case aluNone:
		case aluReg:
			e.reg(39, uint64(s2.reg.Base()))
			e.mods(m2, s2)
		default:
			panic("encode: src2 must be a register")
		}
		forms = regForms
	case aluImm:
		if !s2.isNoneOrZero() {
			panic("encode: no immediate form takes three sources")
		}
		if info.imm32 != 0 {
			if s0.abs || s0.neg {
				panic("encode: 32-bit immediate form takes no modifiers")
			}
			e.opcode(info.imm32)
			e.field(20, 52, uint64(s1.imm))
			return true
		}
		forms = immForms
	case aluCBuf:
		e.cbuf(s1.cb)
		e.mods(info.mods[1], s1)
		switch s2.kind {
		case aluNone:
		case aluReg:
			e.reg(39, uint64(s2.reg.Base()))
			e.mods(m2, s2)
		default:
			panic("encode: src2 must be a register")
		}
		forms = cbufForms
	default:
		panic("encode: invalid instruction form")
	}

	e.field(48, 56, info.opcode)
	e.field(56, 64, forms[info.variant-1])
	if s1.kind == aluImm {
		if info.float {
			e.immF20(s1.imm)
		} else {
			e.immI20(s1.imm)
		}
	}
	return false
}

func (e *sm50) relOffset(lo, hi int, target uint32, ip int, labels Labels) {
	rel := labels.target(target) - (ip + sm50InstrBytes)
	e.v.SetSignedField(lo, hi, int64(rel))
}

// EncodeSM50 encodes one instruction located at byte offset ip and returns
// it with its 21-bit scheduling field.
func EncodeSM50(instr *ir.Instr, sm uint8, ip int, labels Labels) ([2]uint32, uint32) {
	if sm < 50 || sm >= 70 {
		panic(fmt.Sprintf("encode: sm %d does not use the 64-bit encoding", sm))
	}
	e := newSM50(sm)

	switch op := instr.Op.(type) {
	case *ir.FAdd:
		e.encodeFAdd(op)
	case *ir.FFma:
		e.encodeFFma(op)
	case *ir.FMnMx:
		e.alu(aluInfo{opcode: 0x60, variant: 4, float: true,
			mods: [3]modBits{{46, 48}, {49, 45}, noMods}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
		e.predSrc(39, 42, op.Min)
	case *ir.FMul:
		e.encodeFMul(op)
	case *ir.FSet:
		e.alu(aluInfo{opcode: 0x00, variant: 1, float: true,
			mods: [3]modBits{{54, 43}, {44, 53}, noMods}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
		e.predSrc(39, 42, ir.BoolSrc(true))
		e.field(48, 52, floatCmpCodes[op.CmpOp])
		// Boolean float result.
		e.bit(52, true)
	case *ir.FSetP:
		e.alu(aluInfo{opcode: 0xb0, variant: 3, float: true,
			mods: [3]modBits{{7, 43}, {44, 6}, noMods}},
			nil, &op.Srcs[0], &op.Srcs[1], nil)
		e.predDst(3, op.Dst)
		e.predDst(0, ir.DstNone{})
		e.predSrc(39, 42, op.Accum)
		e.field(45, 47, uint64(op.SetOp))
		e.field(48, 52, floatCmpCodes[op.CmpOp])
	case *ir.MuFu:
		e.encodeMuFu(op)
	case *ir.DAdd:
		e.alu(aluInfo{opcode: 0x70, variant: 4, float: true,
			mods: [3]modBits{{46, 48}, {49, 45}, noMods}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
		e.field(39, 41, uint64(op.Rnd))
	case *ir.IAbs:
		// I2I with the absolute value forced on.
		src := op.Src
		src.Mod = src.Mod.FAbs()
		e.alu(aluInfo{opcode: 0xe0, variant: 4,
			mods: [3]modBits{noMods, {49, 45}, noMods}},
			op.Dst, nil, &src, nil)
		e.bit(12, true)
		e.bit(13, true)
		e.field(8, 10, intSize(ir.I32))
		e.field(10, 12, intSize(ir.I32))
	case *ir.IAdd2:
		e.alu(aluInfo{opcode: 0x10, variant: 4, imm32: imm32Of(op.Srcs[1], 0x1c00),
			mods: [3]modBits{{-1, 49}, {-1, 48}, noMods}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
	case *ir.IAdd3:
		e.alu(aluInfo{opcode: 0xc0, variant: 4, imm32: 0x1c00,
			mods: [3]modBits{{-1, 51}, {-1, 50}, {-1, 49}}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], &op.Srcs[2])
	case *ir.IMad:
		e.encodeIMad(op)
	case *ir.IMnMx:
		e.alu(aluInfo{opcode: 0x20, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
		e.predSrc(39, 42, op.Min)
		e.bit(48, op.CmpType == ir.ICmpI32)
	case *ir.ISetP:
		e.alu(aluInfo{opcode: 0x60, variant: 3, mods: [3]modBits{noMods, noMods, noMods}},
			nil, &op.Srcs[0], &op.Srcs[1], nil)
		e.bit(48, op.CmpType == ir.ICmpI32)
		e.field(45, 47, uint64(op.SetOp))
		e.field(49, 52, intCmpCodes[op.CmpOp])
		e.predDst(3, op.Dst)
		e.predDst(0, ir.DstNone{})
		e.predSrc(39, 42, op.Accum)
	case *ir.Lop2:
		e.encodeLop2(op)
	case *ir.Lop3:
		e.encodeLop3(op)
	case *ir.PSetP:
		e.opcode(0x5090)
		e.predDst(3, op.Dsts[0])
		e.predDst(0, op.Dsts[1])
		e.predSrc(12, 15, op.Srcs[0])
		e.predSrc(29, 32, op.Srcs[1])
		e.predSrc(39, 42, op.Srcs[2])
		e.field(24, 26, uint64(op.Ops[0]))
		e.field(45, 47, uint64(op.Ops[1]))
	case *ir.PopC:
		src := op.Src
		not := src.Mod.IsBNot()
		src.Mod = ir.ModNone
		e.alu(aluInfo{opcode: 0x08, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
			op.Dst, nil, &src, nil)
		e.bit(40, not)
	case *ir.Brev:
		// BFE.BREV with a full-width bit field.
		width := ir.ImmSrc(0x2000)
		e.alu(aluInfo{opcode: 0x00, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
			op.Dst, &op.Src, &width, nil)
		e.bit(40, true)
	case *ir.Flo:
		src := op.Src
		not := src.Mod.IsBNot()
		src.Mod = ir.ModNone
		e.alu(aluInfo{opcode: 0x30, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
			op.Dst, nil, &src, nil)
		e.bit(40, not)
		e.bit(41, op.ShiftAmount)
		e.bit(48, op.Signed)
	case *ir.Prmt:
		e.alu(aluInfo{opcode: 0xc0, variant: 3, mods: [3]modBits{noMods, noMods, noMods}},
			op.Dst, &op.Srcs[0], &op.Sel, &op.Srcs[1])
	case *ir.Shf:
		e.encodeShf(op)
	case *ir.Shl:
		e.alu(aluInfo{opcode: 0x48, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
		e.bit(39, op.Wrap)
	case *ir.Mov:
		e.encodeMov(op)
	case *ir.Sel:
		e.alu(aluInfo{opcode: 0xa0, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
			op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
		e.predSrc(39, 42, op.Cond)
	case *ir.F2F:
		e.encodeF2F(op.Dst, op.Src, op.SrcType, op.DstType, op.Rnd, op.Ftz)
	case *ir.FRnd:
		// There is no FRND; F2F rounds in place.
		e.encodeF2F(op.Dst, op.Src, op.SrcType, op.DstType, op.Rnd, false)
	case *ir.F2I:
		e.alu(aluInfo{opcode: 0xb0, variant: 3, float: true,
			mods: [3]modBits{noMods, {49, 45}, noMods}},
			op.Dst, nil, &op.Src, nil)
		e.field(8, 10, intSize(op.DstType))
		e.field(10, 12, floatSize(op.SrcType))
		e.bit(12, op.DstType.IsSigned())
		e.field(39, 41, uint64(op.Rnd))
	case *ir.I2F:
		e.alu(aluInfo{opcode: 0xb8, variant: 4,
			mods: [3]modBits{noMods, {49, 45}, noMods}},
			op.Dst, nil, &op.Src, nil)
		e.bit(13, op.SrcType.IsSigned())
		e.field(8, 10, floatSize(op.DstType))
		e.field(10, 12, intSize(op.SrcType))
		e.field(39, 41, uint64(op.Rnd))
	case *ir.Ld:
		e.encodeLd(op)
	case *ir.St:
		e.encodeSt(op)
	case *ir.Ldc:
		e.opcode(0xef90)
		e.dst(op.Dst)
		e.reg(8, regIdx(op.Offset))
		cb, ok := op.CB.Ref.(ir.CBufRef)
		if !ok {
			panic("encode: ldc needs a constant buffer")
		}
		idx, ok := cb.Buf.(ir.CBufBinding)
		if !ok {
			panic("encode: constant buffer must be bound")
		}
		e.v.SetSignedField(20, 36, int64(int16(cb.Offset)))
		e.field(36, 41, uint64(idx))
		e.field(48, 51, uint64(op.MemType))
	case *ir.ALd:
		e.opcode(0xefd8)
		e.dst(op.Dst)
		e.reg(8, regIdx(op.Offset))
		e.reg(39, regIdx(op.Vtx))
		e.attrAccess(op.Access)
		e.bit(32, op.Access.Output)
	case *ir.ASt:
		e.opcode(0xeff0)
		e.reg(0, regIdx(op.Data))
		e.reg(8, regIdx(op.Offset))
		e.reg(39, regIdx(op.Vtx))
		e.attrAccess(op.Access)
	case *ir.SuSt:
		e.opcode(0xeb20)
		e.reg(8, regIdx(op.Coord))
		e.reg(0, regIdx(op.Data))
		e.reg(39, regIdx(op.Handle))
		e.field(33, 36, uint64(op.Dim))
		if op.Mask != 0x1 && op.Mask != 0x3 && op.Mask != 0xf {
			panic(fmt.Sprintf("encode: sust mask %#x", op.Mask))
		}
		e.field(20, 24, uint64(op.Mask))
	case *ir.Ipa:
		e.encodeIpa(op)
	case *ir.MemBar:
		e.opcode(0xef98)
		e.field(8, 10, uint64(op.Scope))
	case *ir.S2R:
		e.opcode(0xf0c8)
		e.dst(op.Dst)
		e.field(20, 28, uint64(op.Idx))
	case *ir.Bar:
		e.opcode(0xf0a8)
		e.reg(8, regIdx(ir.ZeroSrc()))
		e.predSrc(39, 42, ir.BoolSrc(true))
	case *ir.Bra:
		e.opcode(0xe240)
		e.relOffset(20, 44, op.TargetID, ip, labels)
		// Condition code always true.
		e.field(0, 5, 0xf)
	case *ir.Exit:
		e.opcode(0xe300)
		e.field(0, 4, 0xf)
	case *ir.Nop:
		e.opcode(0x50b0)
		e.field(8, 12, 0xf)
	default:
		panic(fmt.Sprintf("encode: %s is not supported on sm %d", instr.Op.Name(), sm))
	}

	e.guard(instr.Pred)
	e.deps(instr.Deps)
	return e.words, e.sched
}

func imm32Of(src ir.Src, op uint64) uint64 {
	imm, ok := src.AsImm()
	if ok && (imm&0xfff80000 != 0 && imm&0xfff80000 != 0xfff80000) {
		return op
	}
	return 0
}

func (e *sm50) encodeFAdd(op *ir.FAdd) {
	if imm, ok := op.Srcs[1].AsImm(); ok && imm&0xfff != 0 {
		e.opcode(0x0800)
		e.dst(op.Dst)
		e.reg(8, regIdx(ir.Src{Ref: op.Srcs[0].Ref}))
		e.field(20, 52, uint64(imm))
		e.bit(54, op.Srcs[0].Mod.HasFAbs())
		e.bit(56, op.Srcs[0].Mod.HasFNeg())
		return
	}
	e.alu(aluInfo{opcode: 0x58, variant: 4, float: true,
		mods: [3]modBits{{46, 48}, {49, 45}, noMods}},
		op.Dst, &op.Srcs[0], &op.Srcs[1], nil)
	e.field(39, 41, uint64(op.Rnd))
	e.bit(50, op.Saturate)
}

// FFMA does not follow the shared form table.
func (e *sm50) encodeFFma(op *ir.FFma) {
	e.dst(op.Dst)
	e.reg(8, regIdx(ir.Src{Ref: op.Srcs[0].Ref}))
	s1, s2 := newALUSrc(op.Srcs[1]), newALUSrc(op.Srcs[2])
	switch {
	case s1.kind == aluReg && s2.kind == aluReg:
		e.opcode(0x5980)
		e.reg(20, uint64(s1.reg.Base()))
		e.reg(39, uint64(s2.reg.Base()))
	case s1.kind == aluImm && s2.kind == aluReg:
		e.opcode(0x3280)
		e.immF20(s1.imm)
		e.reg(39, uint64(s2.reg.Base()))
	case s1.kind == aluCBuf && s2.kind == aluReg:
		e.opcode(0x4980)
		e.cbuf(s1.cb)
		e.reg(39, uint64(s2.reg.Base()))
	case s1.kind == aluReg && s2.kind == aluCBuf:
		e.opcode(0x5180)
		e.cbuf(s2.cb)
		e.reg(39, uint64(s1.reg.Base()))
	default:
		panic("encode: invalid ffma form")
	}
	_, neg0 := modAbsNeg(op.Srcs[0].Mod)
	e.bit(48, neg0 != s1.neg)
	e.bit(49, s2.neg)
	e.bit(50, op.Saturate)
	e.field(51, 53, uint64(op.Rnd))
}

func (e *sm50) encodeFMul(op *ir.FMul) {
	// A product has one sign; both negates fold into bit 48.
	_, neg0 := modAbsNeg(op.Srcs[0].Mod)
	_, neg1 := modAbsNeg(op.Srcs[1].Mod)
	a, b := op.Srcs[0], op.Srcs[1]
	a.Mod, b.Mod = ir.ModNone, ir.ModNone
	e.alu(aluInfo{opcode: 0x68, variant: 4, float: true, mods: [3]modBits{noMods, noMods, noMods}},
		op.Dst, &a, &b, nil)
	e.field(39, 41, uint64(op.Rnd))
	e.bit(48, neg0 != neg1)
	e.bit(50, op.Saturate)
}

func (e *sm50) encodeMuFu(op *ir.MuFu) {
	e.opcode(0x5080)
	e.dst(op.Dst)
	a := newALUSrc(op.Src)
	if a.kind != aluReg {
		panic("encode: mufu source must be a register")
	}
	e.reg(8, uint64(a.reg.Base()))
	e.bit(46, a.abs)
	e.bit(48, a.neg)
	switch {
	case op.Op == ir.MuFuSqrt && e.sm < 52:
		panic("encode: mufu.sqrt needs sm 52")
	case op.Op == ir.MuFuTanh:
		panic(fmt.Sprintf("encode: mufu.tanh is not supported on sm %d", e.sm))
	}
	e.field(20, 24, uint64(op.Op))
}

func (e *sm50) encodeIMad(op *ir.IMad) {
	_, neg0 := modAbsNeg(op.Srcs[0].Mod)
	_, neg1 := modAbsNeg(op.Srcs[1].Mod)
	a, b := op.Srcs[0], op.Srcs[1]
	a.Mod, b.Mod = ir.ModNone, ir.ModNone
	e.alu(aluInfo{opcode: 0x00, variant: 2,
		mods: [3]modBits{noMods, noMods, {-1, 52}}},
		op.Dst, &a, &b, &op.Srcs[2])
	e.bit(48, op.Signed)
	e.bit(51, neg0 != neg1)
	e.bit(53, op.Signed)
}

var lop2Codes = [...]uint64{
	ir.LogicAnd:   0,
	ir.LogicOr:    1,
	ir.LogicXor:   2,
	ir.LogicPassB: 3,
}

func (e *sm50) encodeLop2(op *ir.Lop2) {
	not0, not1 := op.Srcs[0].Mod.IsBNot(), op.Srcs[1].Mod.IsBNot()
	a, b := op.Srcs[0], op.Srcs[1]
	a.Mod, b.Mod = ir.ModNone, ir.ModNone
	e.alu(aluInfo{opcode: 0x40, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
		op.Dst, &a, &b, nil)
	e.bit(39, not0)
	e.bit(40, not1)
	e.field(41, 43, lop2Codes[op.Op])
	e.predDst(48, ir.DstNone{})
}

// LOP3 keeps its table at 28..36 in the register form and in the opcode's
// low byte otherwise.
func (e *sm50) encodeLop3(op *ir.Lop3) {
	e.dst(op.Dst)
	e.reg(8, regIdx(op.Srcs[0]))
	e.reg(39, regIdx(op.Srcs[2]))
	lut := uint64(op.Op.LUT)
	s1 := newALUSrc(op.Srcs[1])
	switch s1.kind {
	case aluReg:
		e.opcode(0x5be7)
		e.reg(20, uint64(s1.reg.Base()))
		e.field(28, 36, lut)
	case aluImm:
		e.opcode(0x3c00)
		e.field(48, 56, lut)
		e.immI20(s1.imm)
	case aluCBuf:
		e.opcode(0x0200)
		e.cbuf(s1.cb)
		e.field(48, 56, lut)
	default:
		panic("encode: invalid lop3 form")
	}
	if s1.abs || s1.neg {
		panic("encode: lop3 sources take no modifiers")
	}
}

func (e *sm50) encodeShf(op *ir.Shf) {
	if _, ok := op.Shift.Ref.(ir.CBufRef); ok {
		panic("encode: shf shift cannot be a constant buffer")
	}
	variant := 3
	if op.Right {
		variant = 4
	}
	e.alu(aluInfo{opcode: 0xf8, variant: variant, mods: [3]modBits{noMods, noMods, noMods}},
		op.Dst, &op.Low, &op.Shift, &op.High)
	switch op.DataType {
	case ir.U32, ir.I32:
		e.field(37, 39, 0)
	case ir.U64:
		e.field(37, 39, 2)
	case ir.I64:
		e.field(37, 39, 3)
	default:
		panic(fmt.Sprintf("encode: invalid shift type %s", op.DataType))
	}
	e.bit(50, op.Wrap)
	e.bit(48, op.DstHigh)
}

func (e *sm50) encodeMov(op *ir.Mov) {
	if imm, ok := op.Src.AsImm(); ok {
		// MOV32I
		e.opcode(0x0100)
		e.dst(op.Dst)
		e.field(20, 52, uint64(imm))
		e.field(12, 16, uint64(op.QuadLanes))
		return
	}
	e.alu(aluInfo{opcode: 0x98, variant: 4, mods: [3]modBits{noMods, noMods, noMods}},
		op.Dst, nil, &op.Src, nil)
	e.field(39, 43, uint64(op.QuadLanes))
}

func (e *sm50) encodeF2F(dst ir.Dst, src ir.Src, srcType, dstType ir.FloatType, rnd ir.FRndMode, ftz bool) {
	if _, ok := src.Ref.(ir.CBufRef); ok {
		panic("encode: f2f source cannot be a constant buffer")
	}
	e.alu(aluInfo{opcode: 0xa8, variant: 4, float: true,
		mods: [3]modBits{noMods, {49, 45}, noMods}},
		dst, nil, &src, nil)
	e.field(8, 10, floatSize(dstType))
	e.field(10, 12, floatSize(srcType))
	e.field(39, 41, uint64(rnd))
	e.bit(44, ftz)
}

var sm50MemOps = [...][2]uint64{
	ir.MemGlobal: {0x9c90, 0xeed8},
	ir.MemLocal:  {0xef40, 0xef50},
	ir.MemShared: {0xef48, 0xef58},
}

func (e *sm50) memAccess(a ir.MemAccess, offset int32) {
	e.bit(45, a.AddrType == ir.Addr64)
	e.field(48, 51, uint64(a.MemType))
	e.v.SetSignedField(20, 44, int64(offset))
}

func (e *sm50) encodeLd(op *ir.Ld) {
	e.opcode(sm50MemOps[op.Access.Space][0])
	e.dst(op.Dst)
	e.reg(8, regIdx(op.Addr))
	e.memAccess(op.Access, op.Offset)
}

func (e *sm50) encodeSt(op *ir.St) {
	e.opcode(sm50MemOps[op.Access.Space][1])
	e.reg(0, regIdx(op.Data))
	e.reg(8, regIdx(op.Addr))
	e.memAccess(op.Access, op.Offset)
}

func (e *sm50) attrAccess(a ir.AttrAccess) {
	if a.Comps < 1 || a.Comps > 4 {
		panic(fmt.Sprintf("encode: attribute access of %d components", a.Comps))
	}
	e.field(20, 31, uint64(a.Addr))
	e.bit(31, a.Patch)
	e.field(47, 49, uint64(a.Comps-1))
}

var sm50InterpFreq = [...]uint64{
	ir.InterpPass:     0,
	ir.InterpState:    1,
	ir.InterpConstant: 2,
}

func (e *sm50) encodeIpa(op *ir.Ipa) {
	if op.Addr%4 != 0 {
		panic(fmt.Sprintf("encode: ipa address %#x is not word aligned", op.Addr))
	}
	if op.Addr >= 1<<10 {
		panic(fmt.Sprintf("encode: ipa address %#x out of range", op.Addr))
	}
	e.opcode(0xe000)
	e.dst(op.Dst)
	e.reg(20, regIdx(op.Offset))
	e.reg(8, regIdx(ir.ZeroSrc()))
	e.field(28, 38, uint64(op.Addr))
	e.bit(38, false)
	e.predDst(47, ir.DstNone{})
	e.field(54, 56, sm50InterpFreq[op.Freq])
	e.field(52, 54, uint64(op.Loc))
}

// sm50Offsets lays blocks out in groups of three instructions, each behind
// a scheduling word, and points every label past the block's first
// scheduling word.
func sm50Offsets(fn *ir.Function) Labels {
	labels := make(Labels, len(fn.Blocks))
	off := 0
	for _, b := range fn.Blocks {
		labels[b.ID] = off + sm50InstrBytes
		off += numGroups(len(b.Instrs)) * sm50GroupBytes
	}
	return labels
}

func numGroups(n int) int { return (n + sm50GroupSize - 1) / sm50GroupSize }

func nopInstr() *ir.Instr { return ir.NewInstr(&ir.Nop{}) }

func encodeSM50(fn *ir.Function, sm uint8) []uint32 {
	labels := sm50Offsets(fn)
	var code []uint32
	for _, b := range fn.Blocks {
		for g := range numGroups(len(b.Instrs)) {
			base := len(code) * 4
			var sched [2]uint32
			sv := bitview.New(sched[:])
			var group [sm50GroupSize][2]uint32
			for i := range sm50GroupSize {
				instr := nopInstr()
				if k := g*sm50GroupSize + i; k < len(b.Instrs) {
					instr = b.Instrs[k]
				}
				ip := base + sm50InstrBytes*(i+1)
				w, s := EncodeSM50(instr, sm, ip, labels)
				group[i] = w
				sv.SetField(sm50SchedBits*i, sm50SchedBits*(i+1), uint64(s))
			}
			code = append(code, sched[:]...)
			for _, w := range group {
				code = append(code, w[:]...)
			}
		}
	}
	return code
}
