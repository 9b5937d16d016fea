// Package encode packs legalized, scheduled and register-assigned IR into
// machine words.
//
// Encoding is two-pass per function: the byte offset of every block is
// computed first, then instructions are encoded in layout order. Branch
// displacements are relative to the instruction following the branch.
// Contract violations (SSA operands, unknown targets, ops a generation cannot
// encode) panic.
package encode

import (
	"fmt"

	"nakgo/internal/ir"
)

// Labels maps a block id to the byte offset of its first instruction.
type Labels map[uint32]int

func (l Labels) target(id uint32) int {
	off, ok := l[id]
	if !ok {
		panic(fmt.Sprintf("encode: branch to unknown block b%d", id))
	}
	return off
}

// Pass encodes the shader and keeps the result in Code.
type Pass struct {
	Code []uint32
}

func (*Pass) Name() string { return "encode" }

func (p *Pass) Run(shader *ir.Shader) error {
	p.Code = Encode(shader)
	return nil
}

// Encode returns the code of the shader's only function. SM 70 and later
// use the 128-bit encoding, SM 50 to 69 the 64-bit one.
func Encode(shader *ir.Shader) []uint32 {
	if len(shader.Functions) != 1 {
		panic(fmt.Sprintf("encode: expected one function, got %d", len(shader.Functions)))
	}
	fn := shader.Functions[0]
	sm := shader.Info.SM
	switch {
	case sm >= 70:
		return encodeSM75(fn, sm)
	case sm >= 50:
		return encodeSM50(fn, sm)
	default:
		panic(fmt.Sprintf("encode: sm %d is not supported", sm))
	}
}

// BlockOffsets computes the label table for fn as the given generation lays
// it out.
func BlockOffsets(fn *ir.Function, sm uint8) Labels {
	if sm >= 70 {
		return sm75Offsets(fn)
	}
	return sm50Offsets(fn)
}

type aluKind uint8

const (
	aluNone aluKind = iota
	aluReg
	aluUReg
	aluImm
	aluCBuf
)

// aluSrc is a source classified by the encoding form it selects.
type aluSrc struct {
	kind aluKind
	reg  ir.RegRef
	imm  uint32
	cb   ir.CBufRef
	abs  bool
	neg  bool
}

func modAbsNeg(m ir.SrcMod) (abs, neg bool) {
	switch m {
	case ir.ModNone:
		return false, false
	case ir.ModFAbs:
		return true, false
	case ir.ModFNeg, ir.ModINeg:
		return false, true
	case ir.ModFNegAbs:
		return true, true
	default:
		panic(fmt.Sprintf("encode: modifier %d is not an ALU modifier", m))
	}
}

// newALUSrc classifies s. Zero reads the GPR zero register.
func newALUSrc(s ir.Src) aluSrc {
	var a aluSrc
	switch ref := s.Ref.(type) {
	case ir.SrcZero:
		return aluSrc{kind: aluReg, reg: ir.ZeroReg(ir.FileGPR)}
	case ir.RegRef:
		if ref.Comps() != 1 {
			panic(fmt.Sprintf("encode: ALU source %v is a vector", ref))
		}
		switch ref.File() {
		case ir.FileGPR:
			a = aluSrc{kind: aluReg, reg: ref}
		case ir.FileUGPR:
			a = aluSrc{kind: aluUReg, reg: ref}
		default:
			panic(fmt.Sprintf("encode: invalid ALU register file %s", ref.File()))
		}
	case ir.Imm32:
		if !s.Mod.IsNone() {
			panic("encode: immediate with a source modifier")
		}
		return aluSrc{kind: aluImm, imm: uint32(ref)}
	case ir.CBufRef:
		a = aluSrc{kind: aluCBuf, cb: ref}
	case ir.SSARef:
		panic("encode: SSA values must be lowered")
	default:
		panic(fmt.Sprintf("encode: invalid ALU source %s", ir.FormatSrc(s)))
	}
	a.abs, a.neg = modAbsNeg(s.Mod)
	return a
}

func (a aluSrc) isNoneOrZero() bool {
	return a.kind == aluNone ||
		(a.kind == aluReg && a.reg.IsZero() && !a.abs && !a.neg)
}

// regIdx returns the register index of a GPR operand; zero maps to the zero
// register.
func regIdx(s ir.Src) uint64 {
	if !s.Mod.IsNone() {
		panic(fmt.Sprintf("encode: register source %s carries a modifier", ir.FormatSrc(s)))
	}
	switch ref := s.Ref.(type) {
	case ir.SrcZero:
		return uint64(ir.ZeroReg(ir.FileGPR).Base())
	case ir.RegRef:
		if ref.File() != ir.FileGPR {
			panic(fmt.Sprintf("encode: %v is not a GPR", ref))
		}
		return uint64(ref.Base())
	case ir.SSARef:
		panic("encode: SSA values must be lowered")
	default:
		panic(fmt.Sprintf("encode: %s is not a register", ir.FormatSrc(s)))
	}
}

func dstIdx(d ir.Dst) uint64 {
	switch ref := d.(type) {
	case ir.RegRef:
		if ref.File() != ir.FileGPR {
			panic(fmt.Sprintf("encode: destination %v is not a GPR", ref))
		}
		return uint64(ref.Base())
	case ir.DstNone, nil:
		return uint64(ir.ZeroReg(ir.FileGPR).Base())
	default:
		panic("encode: SSA values must be lowered")
	}
}

const truePred = 7

func predDstIdx(d ir.Dst) uint64 {
	switch ref := d.(type) {
	case ir.RegRef:
		if ref.File() != ir.FilePred || ref.Comps() != 1 {
			panic(fmt.Sprintf("encode: destination %v is not a predicate", ref))
		}
		return uint64(ref.Base())
	case ir.DstNone, nil:
		return truePred
	default:
		panic("encode: SSA values must be lowered")
	}
}

// predSrc returns the register and inversion bit of a predicate source.
func predSrc(s ir.Src) (uint64, bool) {
	not := s.Mod.IsBNot()
	switch ref := s.Ref.(type) {
	case ir.SrcTrue:
		return truePred, not
	case ir.SrcFalse:
		return truePred, !not
	case ir.RegRef:
		if ref.File() != ir.FilePred || ref.Comps() != 1 {
			panic(fmt.Sprintf("encode: %v is not a predicate", ref))
		}
		return uint64(ref.Base()), not
	default:
		panic(fmt.Sprintf("encode: %s is not a predicate register", ir.FormatSrc(s)))
	}
}

func guard(p ir.Pred) (uint64, bool) {
	switch ref := p.Ref.(type) {
	case ir.PredNone:
		return truePred, p.Inv
	case ir.RegRef:
		if ref.File() != ir.FilePred {
			panic(fmt.Sprintf("encode: guard %v is not a predicate", ref))
		}
		return uint64(ref.Base()), p.Inv
	default:
		panic("encode: SSA values must be lowered")
	}
}

func barIdx(ref any) uint64 {
	r, ok := ref.(ir.RegRef)
	if !ok || r.File() != ir.FileBar {
		panic(fmt.Sprintf("encode: %v is not a barrier register", ref))
	}
	return uint64(r.Base())
}

func barOrNone(wr int8) uint64 {
	if wr < 0 {
		return 7
	}
	return uint64(wr)
}

var intCmpCodes = [...]uint64{
	ir.ICmpEq: 2,
	ir.ICmpNe: 5,
	ir.ICmpLt: 1,
	ir.ICmpLe: 3,
	ir.ICmpGt: 4,
	ir.ICmpGe: 6,
}

var floatCmpCodes = [...]uint64{
	ir.FCmpOrdLt:   0x1,
	ir.FCmpOrdEq:   0x2,
	ir.FCmpOrdLe:   0x3,
	ir.FCmpOrdGt:   0x4,
	ir.FCmpOrdNe:   0x5,
	ir.FCmpOrdGe:   0x6,
	ir.FCmpIsNum:   0x7,
	ir.FCmpIsNan:   0x8,
	ir.FCmpUnordLt: 0x9,
	ir.FCmpUnordEq: 0xa,
	ir.FCmpUnordLe: 0xb,
	ir.FCmpUnordGt: 0xc,
	ir.FCmpUnordNe: 0xd,
	ir.FCmpUnordGe: 0xe,
}

// log2 of the byte size of a float or integer type.
func floatSize(t ir.FloatType) uint64 { return uint64(t) + 1 }

func intSize(t ir.IntType) uint64 { return uint64(t >> 1) }
