package encode

import (
	"fmt"

	"fortio.org/safecast"

	"nakgo/internal/bitview"
	"nakgo/internal/ir"
)

const sm75InstrBytes = 16

type sm75 struct {
	words [4]uint32
	v     bitview.View
	sm    uint8
}

func newSM75(sm uint8) *sm75 {
	e := &sm75{sm: sm}
	e.v = bitview.New(e.words[:])
	return e
}

func (e *sm75) field(lo, hi int, val uint64) { e.v.SetField(lo, hi, val) }

func (e *sm75) bit(b int, val bool) { e.v.SetBit(b, val) }

func (e *sm75) opcode(op uint64) { e.field(0, 12, op) }

func (e *sm75) reg(lo int, idx uint64) { e.field(lo, lo+8, idx) }

func (e *sm75) ureg(lo int, r ir.RegRef) {
	if r.File() != ir.FileUGPR {
		panic(fmt.Sprintf("encode: %v is not a uniform register", r))
	}
	e.field(lo, lo+8, uint64(r.Base()))
}

func (e *sm75) dst(d ir.Dst) { e.reg(16, dstIdx(d)) }

func (e *sm75) predSrc(lo, notBit int, s ir.Src) {
	idx, not := predSrc(s)
	e.field(lo, lo+3, idx)
	e.bit(notBit, not)
}

func (e *sm75) cbuf(lo, hi int, cb ir.CBufRef) {
	v := e.v.Subset(lo, hi)
	idx, ok := cb.Buf.(ir.CBufBinding)
	if !ok {
		panic("encode: constant buffer must be bound")
	}
	v.SetField(0, 16, uint64(cb.Offset))
	v.SetField(16, 21, uint64(idx))
}

func (e *sm75) mods(absBit, negBit int, a aluSrc) {
	e.bit(absBit, a.abs)
	e.bit(negBit, a.neg)
}

// alu writes dst and up to three sources and selects the form from what
// src1 and src2 hold. Reg slot 32..40 doubles as the uniform, immediate and
// constant buffer slot, so a non-register src2 swaps places with src1.
func (e *sm75) alu(op uint64, dst ir.Dst, src0 *ir.Src, src1 ir.Src, src2 *ir.Src) {
	if dst != nil {
		e.dst(dst)
	}
	if src0 != nil {
		a := newALUSrc(*src0)
		if a.kind != aluReg {
			panic(fmt.Sprintf("encode: src0 of %#x must be a register", op))
		}
		e.reg(24, uint64(a.reg.Base()))
		e.bit(72, a.neg)
		e.bit(73, a.abs)
	}

	s1 := newALUSrc(src1)
	var s2 aluSrc
	if src2 != nil {
		s2 = newALUSrc(*src2)
	}

	var form uint64
	switch s1.kind {
	case aluReg:
		switch s2.kind {
		case aluNone:
			e.reg(32, uint64(s1.reg.Base()))
			e.mods(62, 63, s1)
			form = 1
		case aluReg:
			e.reg(32, uint64(s1.reg.Base()))
			e.mods(62, 63, s1)
			e.reg(64, uint64(s2.reg.Base()))
			e.mods(74, 75, s2)
			form = 1
		case aluUReg:
			e.ureg(32, s2.reg)
			e.mods(62, 63, s2)
			e.reg(64, uint64(s1.reg.Base()))
			e.mods(74, 75, s1)
			form = 7
		case aluImm:
			e.field(32, 64, uint64(s2.imm))
			e.reg(64, uint64(s1.reg.Base()))
			e.mods(74, 75, s1)
			form = 2
		case aluCBuf:
			e.cbuf(38, 59, s2.cb)
			e.mods(62, 63, s2)
			e.reg(64, uint64(s1.reg.Base()))
			e.mods(74, 75, s1)
			form = 3
		}
	case aluUReg:
		e.ureg(32, s1.reg)
		e.mods(62, 63, s1)
		e.src2Reg(s2)
		form = 6
	case aluImm:
		e.field(32, 64, uint64(s1.imm))
		e.src2Reg(s2)
		form = 4
	case aluCBuf:
		e.cbuf(38, 59, s1.cb)
		e.mods(62, 63, s1)
		e.src2Reg(s2)
		form = 5
	default:
		panic("encode: invalid instruction form")
	}

	e.field(0, 9, op)
	e.field(9, 12, form)
}

func (e *sm75) src2Reg(s2 aluSrc) {
	switch s2.kind {
	case aluNone:
	case aluReg:
		e.reg(64, uint64(s2.reg.Base()))
		e.mods(74, 75, s2)
	default:
		panic("encode: src2 must be a register when src1 is not")
	}
}

func (e *sm75) deps(d ir.InstrDeps) {
	e.field(105, 109, uint64(d.Delay))
	e.bit(109, d.Yield)
	e.field(110, 113, barOrNone(d.WrBar))
	e.field(113, 116, barOrNone(d.RdBar))
	e.field(116, 122, uint64(d.WaitMask))
	e.field(122, 126, uint64(d.ReuseMask))
}

func (e *sm75) guard(p ir.Pred) {
	idx, inv := guard(p)
	e.field(12, 15, idx)
	e.bit(15, inv)
}

func (e *sm75) relOffset(lo, hi int, target uint32, ip int, labels Labels) {
	rel := labels.target(target) - (ip + sm75InstrBytes)
	e.v.SetSignedField(lo, hi, int64(rel))
}

func (e *sm75) memAccess(a ir.MemAccess) {
	e.bit(72, a.AddrType == ir.Addr64)
	e.field(73, 76, uint64(a.MemType))
	if e.sm > 75 {
		if a.Scope != ir.MemScopeSystem || a.Order != ir.MemOrderStrong {
			panic(fmt.Sprintf("encode: sm %d only encodes strong system accesses", e.sm))
		}
		e.field(77, 81, 0xa)
		return
	}
	e.field(77, 79, scopeCodes[a.Scope])
	order := uint64(1)
	if a.Order == ir.MemOrderStrong {
		order = 2
	}
	e.field(79, 81, order)
}

var scopeCodes = [...]uint64{
	ir.MemScopeCTA:    0,
	ir.MemScopeGPU:    2,
	ir.MemScopeSystem: 3,
}

// EncodeSM75 encodes one instruction located at byte offset ip.
func EncodeSM75(instr *ir.Instr, sm uint8, ip int, labels Labels) [4]uint32 {
	if sm < 70 {
		panic(fmt.Sprintf("encode: sm %d uses the 64-bit encoding", sm))
	}
	e := newSM75(sm)

	switch op := instr.Op.(type) {
	case *ir.FAdd:
		e.alu(0x021, op.Dst, &op.Srcs[0], op.Srcs[1], nil)
		e.bit(77, op.Saturate)
		e.field(78, 80, uint64(op.Rnd))
	case *ir.FFma:
		e.alu(0x023, op.Dst, &op.Srcs[0], op.Srcs[1], &op.Srcs[2])
		e.bit(77, op.Saturate)
		e.field(78, 80, uint64(op.Rnd))
	case *ir.FMul:
		e.alu(0x020, op.Dst, &op.Srcs[0], op.Srcs[1], nil)
		e.bit(77, op.Saturate)
		e.field(78, 80, uint64(op.Rnd))
	case *ir.FMnMx:
		e.alu(0x009, op.Dst, &op.Srcs[0], op.Srcs[1], nil)
		e.predSrc(87, 90, op.Min)
	case *ir.FSet:
		e.alu(0x00a, op.Dst, &op.Srcs[0], op.Srcs[1], nil)
		e.field(76, 80, floatCmpCodes[op.CmpOp])
		e.field(87, 90, truePred)
	case *ir.FSetP:
		e.alu(0x00b, nil, &op.Srcs[0], op.Srcs[1], nil)
		e.field(74, 76, uint64(op.SetOp))
		e.field(76, 80, floatCmpCodes[op.CmpOp])
		e.field(81, 84, predDstIdx(op.Dst))
		e.field(84, 87, truePred)
		e.predSrc(87, 90, op.Accum)
	case *ir.MuFu:
		e.alu(0x108, op.Dst, nil, op.Src, nil)
		e.field(74, 78, uint64(op.Op))
	case *ir.DAdd:
		e.alu(0x029, op.Dst, &op.Srcs[0], op.Srcs[1], nil)
		e.field(78, 80, uint64(op.Rnd))
	case *ir.IAbs:
		e.alu(0x013, op.Dst, nil, op.Src, nil)
	case *ir.IAdd3:
		e.alu(0x010, op.Dst, &op.Srcs[0], op.Srcs[1], &op.Srcs[2])
		e.field(81, 84, predDstIdx(op.Overflow[0]))
		e.field(84, 87, predDstIdx(op.Overflow[1]))
		// No carry in.
		e.predSrc(87, 90, ir.BoolSrc(false))
		e.predSrc(77, 80, ir.BoolSrc(false))
	case *ir.IMad:
		e.alu(0x024, op.Dst, &op.Srcs[0], op.Srcs[1], &op.Srcs[2])
		e.bit(73, op.Signed)
	case *ir.IMad64:
		e.alu(0x025, op.Dst, &op.Srcs[0], op.Srcs[1], &op.Srcs[2])
		e.bit(73, op.Signed)
	case *ir.IMnMx:
		e.alu(0x017, op.Dst, &op.Srcs[0], op.Srcs[1], nil)
		e.bit(73, op.CmpType == ir.ICmpI32)
		e.predSrc(87, 90, op.Min)
	case *ir.ISetP:
		e.alu(0x00c, nil, &op.Srcs[0], op.Srcs[1], nil)
		e.bit(73, op.CmpType == ir.ICmpI32)
		e.field(74, 76, uint64(op.SetOp))
		e.field(76, 79, intCmpCodes[op.CmpOp])
		e.field(81, 84, predDstIdx(op.Dst))
		e.field(84, 87, truePred)
		e.predSrc(87, 90, op.Accum)
	case *ir.Lop3:
		e.alu(0x012, op.Dst, &op.Srcs[0], op.Srcs[1], &op.Srcs[2])
		e.field(72, 80, uint64(op.Op.LUT))
		e.bit(80, false)
		e.field(81, 84, truePred)
		e.predSrc(87, 90, ir.BoolSrc(false))
	case *ir.PLop3:
		e.opcode(0x81c)
		e.field(16, 24, uint64(op.Ops[1].LUT))
		e.field(64, 67, uint64(op.Ops[0].LUT&0x7))
		e.field(72, 77, uint64(op.Ops[0].LUT>>3))
		e.predSrc(68, 71, op.Srcs[2])
		e.predSrc(77, 80, op.Srcs[1])
		e.field(81, 84, predDstIdx(op.Dsts[0]))
		e.field(84, 87, predDstIdx(op.Dsts[1]))
		e.predSrc(87, 90, op.Srcs[0])
	case *ir.PopC:
		src := op.Src
		not := src.Mod.IsBNot()
		src.Mod = ir.ModNone
		e.alu(0x109, op.Dst, nil, src, nil)
		e.bit(63, not)
	case *ir.Brev:
		e.alu(0x101, op.Dst, nil, op.Src, nil)
	case *ir.Flo:
		src := op.Src
		not := src.Mod.IsBNot()
		src.Mod = ir.ModNone
		e.alu(0x300, op.Dst, nil, src, nil)
		e.bit(63, not)
		e.bit(73, op.Signed)
		e.bit(74, op.ShiftAmount)
		e.field(81, 84, truePred)
	case *ir.Prmt:
		e.alu(0x016, op.Dst, &op.Srcs[0], op.Sel, &op.Srcs[1])
		e.field(72, 75, 0)
	case *ir.Shf:
		e.alu(0x019, op.Dst, &op.Low, op.Shift, &op.High)
		e.field(73, 75, shfType(op.DataType))
		e.bit(75, op.Wrap)
		e.bit(76, op.Right)
		e.bit(80, op.DstHigh)
	case *ir.Mov:
		e.alu(0x002, op.Dst, nil, op.Src, nil)
		e.field(72, 76, uint64(op.QuadLanes))
	case *ir.Sel:
		e.alu(0x007, op.Dst, &op.Srcs[0], op.Srcs[1], nil)
		e.predSrc(87, 90, op.Cond)
	case *ir.F2F:
		e.alu(0x104, op.Dst, nil, op.Src, nil)
		e.field(60, 62, floatSize(op.SrcType))
		e.field(75, 77, floatSize(op.DstType))
		e.field(78, 80, uint64(op.Rnd))
		e.bit(80, op.Ftz)
		e.bit(82, op.High)
	case *ir.F2I:
		e.alu(0x105, op.Dst, nil, op.Src, nil)
		e.bit(72, op.DstType.IsSigned())
		e.field(75, 77, intSize(op.DstType))
		e.field(78, 80, uint64(op.Rnd))
		e.field(84, 86, floatSize(op.SrcType))
	case *ir.I2F:
		e.alu(0x106, op.Dst, nil, op.Src, nil)
		e.field(60, 62, intSize(op.SrcType))
		e.bit(74, op.SrcType.IsSigned())
		e.field(75, 77, floatSize(op.DstType))
		e.field(78, 80, uint64(op.Rnd))
	case *ir.FRnd:
		e.alu(0x107, op.Dst, nil, op.Src, nil)
		e.field(75, 77, floatSize(op.DstType))
		e.field(78, 80, uint64(op.Rnd))
		e.field(84, 86, floatSize(op.SrcType))
	case *ir.Ld:
		e.opcode(0x980)
		e.dst(op.Dst)
		e.reg(24, regIdx(op.Addr))
		e.v.SetSignedField(32, 64, int64(op.Offset))
		e.memAccess(op.Access)
	case *ir.St:
		e.opcode(0x385)
		e.reg(24, regIdx(op.Addr))
		e.v.SetSignedField(32, 64, int64(op.Offset))
		e.reg(64, regIdx(op.Data))
		e.memAccess(op.Access)
	case *ir.Ldc:
		e.opcode(0xb82)
		e.dst(op.Dst)
		e.reg(24, regIdx(op.Offset))
		cb, ok := op.CB.Ref.(ir.CBufRef)
		if !ok {
			panic("encode: ldc needs a constant buffer")
		}
		e.cbuf(38, 59, cb)
		e.field(73, 76, uint64(op.MemType))
	case *ir.ALd:
		e.opcode(0x321)
		e.dst(op.Dst)
		e.reg(24, regIdx(op.Vtx))
		e.reg(32, regIdx(op.Offset))
		e.attrAccess(op.Access)
		e.bit(79, op.Access.Output)
	case *ir.ASt:
		if op.Access.Output {
			panic("encode: ast cannot read outputs")
		}
		e.opcode(0x322)
		e.reg(32, regIdx(op.Data))
		e.reg(24, regIdx(op.Vtx))
		e.reg(64, regIdx(op.Offset))
		e.attrAccess(op.Access)
	case *ir.Ipa:
		e.opcode(0x326)
		e.dst(op.Dst)
		if op.Addr%4 != 0 {
			panic(fmt.Sprintf("encode: ipa address %#x is not word aligned", op.Addr))
		}
		addr, err := safecast.Conv[uint8](op.Addr / 4)
		if err != nil {
			panic(fmt.Sprintf("encode: ipa address %#x: %v", op.Addr, err))
		}
		e.field(64, 72, uint64(addr))
		e.field(76, 78, map[ir.InterpFreq]uint64{ir.InterpPass: 0, ir.InterpConstant: 2, ir.InterpState: 3}[op.Freq])
		e.field(78, 80, uint64(op.Loc))
		e.reg(32, regIdx(op.Offset))
		e.field(81, 84, truePred)
	case *ir.MemBar:
		e.opcode(0x992)
		e.field(76, 79, scopeCodes[op.Scope])
	case *ir.S2R:
		e.opcode(0x919)
		e.dst(op.Dst)
		e.field(72, 80, uint64(op.Idx))
	case *ir.Shfl:
		e.encodeShfl(op)
	case *ir.Vote:
		e.opcode(0x806)
		e.dst(op.Ballot)
		e.field(81, 84, predDstIdx(op.Vote))
		e.predSrc(87, 90, op.Pred)
		e.field(72, 74, uint64(op.Op))
	case *ir.Out:
		e.alu(0x124, op.Dst, &op.Handle, op.Stream, nil)
		e.field(78, 80, uint64(op.OutType)+1)
	case *ir.OutFinal:
		e.alu(0x124, ir.DstNone{}, &op.Handle, ir.ZeroSrc(), nil)
	case *ir.Bar:
		e.opcode(0xb1d)
	case *ir.Bra:
		e.opcode(0x947)
		e.relOffset(34, 82, op.TargetID, ip, labels)
		e.field(87, 90, truePred)
	case *ir.Exit:
		e.opcode(0x94d)
		e.field(87, 90, truePred)
	case *ir.BSSy:
		e.opcode(0x945)
		e.field(16, 20, barIdx(op.BarOut))
		e.relOffset(34, 64, op.TargetID, ip, labels)
		e.predSrc(87, 90, op.Cond)
	case *ir.BSync:
		e.opcode(0x941)
		e.field(16, 20, barIdx(op.Bar.Ref))
		e.predSrc(87, 90, op.Cond)
	case *ir.Break:
		e.opcode(0x942)
		e.field(16, 20, barIdx(op.BarOut))
		e.predSrc(87, 90, op.Cond)
	case *ir.BMov:
		e.encodeBMov(op)
	case *ir.Nop:
		e.opcode(0x918)
	default:
		panic(fmt.Sprintf("encode: %s is not supported on sm %d", instr.Op.Name(), sm))
	}

	e.guard(instr.Pred)
	e.deps(instr.Deps)
	return e.words
}

func shfType(t ir.IntType) uint64 {
	switch t {
	case ir.I64:
		return 0
	case ir.U64:
		return 1
	case ir.I32:
		return 2
	case ir.U32:
		return 3
	default:
		panic(fmt.Sprintf("encode: invalid shift type %s", t))
	}
}

func (e *sm75) attrAccess(a ir.AttrAccess) {
	if a.Comps < 1 || a.Comps > 4 {
		panic(fmt.Sprintf("encode: attribute access of %d components", a.Comps))
	}
	e.field(40, 50, uint64(a.Addr))
	e.field(74, 76, uint64(a.Comps-1))
	e.bit(76, a.Patch)
	e.field(77, 78, uint64(a.Flags))
}

// Lane and clamp each come as a register or an immediate; the four
// combinations are separate opcodes.
func (e *sm75) encodeShfl(op *ir.Shfl) {
	laneImm, laneIsImm := op.Lane.AsImm()
	cImm, cIsImm := op.C.AsImm()
	switch {
	case !laneIsImm && !cIsImm:
		e.opcode(0x389)
	case laneIsImm && !cIsImm:
		e.opcode(0x589)
	case !laneIsImm && cIsImm:
		e.opcode(0x989)
	default:
		e.opcode(0xf89)
	}
	e.dst(op.Dst)
	e.field(81, 84, predDstIdx(op.InBounds))
	e.reg(24, regIdx(op.Src))
	if laneIsImm {
		e.field(53, 58, uint64(laneImm))
	} else {
		e.reg(32, regIdx(op.Lane))
	}
	if cIsImm {
		e.field(40, 53, uint64(cImm))
	} else {
		e.reg(64, regIdx(op.C))
	}
	e.field(58, 60, uint64(op.Op))
}

func (e *sm75) encodeBMov(op *ir.BMov) {
	switch d := op.Dst.(type) {
	case ir.RegRef:
		if d.File() == ir.FileBar {
			e.opcode(0x356)
			e.field(24, 28, barIdx(d))
			e.reg(32, regIdx(op.Src))
		} else {
			e.opcode(0x355)
			e.dst(d)
			e.field(24, 28, barIdx(op.Src.Ref))
		}
	default:
		panic("encode: bmov destination must be a register")
	}
	e.bit(84, op.Clear)
}

func sm75Offsets(fn *ir.Function) Labels {
	labels := make(Labels, len(fn.Blocks))
	ip := 0
	for _, b := range fn.Blocks {
		labels[b.ID] = ip
		ip += len(b.Instrs) * sm75InstrBytes
	}
	return labels
}

func encodeSM75(fn *ir.Function, sm uint8) []uint32 {
	labels := sm75Offsets(fn)
	var code []uint32
	ip := 0
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			w := EncodeSM75(instr, sm, ip, labels)
			code = append(code, w[:]...)
			ip += sm75InstrBytes
		}
	}
	return code
}
