// Package legalize rewrites instruction operands into forms the encoder of
// the target generation can express. It runs on SSA form, before register
// assignment, and inserts copies into fresh SSA values where an operand slot
// cannot hold what it was given.
package legalize

import (
	"fmt"

	"nakgo/internal/ir"
	"nakgo/internal/liveness"
)

// Pass legalizes every function of a shader for its target SM.
type Pass struct{}

func (Pass) Name() string { return "legalize" }

func (Pass) Run(shader *ir.Shader) error {
	if shader.Info.SM < 50 {
		return fmt.Errorf("legalize: unsupported sm %d", shader.Info.SM)
	}
	Shader(shader)
	return nil
}

// Shader legalizes all functions of shader. Contract violations panic.
func Shader(shader *ir.Shader) {
	for _, fn := range shader.Functions {
		Function(fn, shader.Info.SM)
	}
}

type ruleSet func(b *ir.Builder, bl *liveness.Block, ip int, instr *ir.Instr)

func rulesFor(sm uint8) ruleSet {
	switch {
	case sm >= 70:
		return legalizeSM70
	case sm >= 50:
		return legalizeSM50
	default:
		panic(fmt.Sprintf("legalize: unsupported sm %d", sm))
	}
}

// Function legalizes fn for sm.
func Function(fn *ir.Function, sm uint8) {
	rules := rulesFor(sm)
	var live *liveness.Liveness
	if sm >= 70 {
		live = liveness.Compute(fn)
	}
	for _, block := range fn.Blocks {
		var bl *liveness.Block
		if live != nil {
			bl = live.Block(block.ID)
		}
		ip := 0
		block.MapInstrs(func(instr *ir.Instr) []*ir.Instr {
			b := ir.NewBuilder(sm, &fn.SSA)
			lowerINeg(sm, instr)
			rules(b, bl, ip, instr)
			normalizeImmModifiers(instr)
			splitVectorSrcs(b, instr)
			b.PushInstr(instr)
			ip++
			return b.Instrs()
		})
	}
}

// srcIsReg reports whether src can sit in a register-only slot. Physical
// registers only appear after assignment, when legalizing is over.
func srcIsReg(src ir.Src) bool {
	switch src.Ref.(type) {
	case ir.SrcZero, ir.SrcTrue, ir.SrcFalse, ir.SSARef:
		return true
	case ir.Imm32, ir.CBufRef:
		return false
	case ir.RegRef:
		panic("legalize: source is a physical register, shader is not in SSA form")
	default:
		panic(fmt.Sprintf("legalize: unknown source %v", src.Ref))
	}
}

// copySrc moves the reference of src into a fresh value, keeping the
// modifier on the operand.
func copySrc(b *ir.Builder, src *ir.Src, typ ir.SrcType) {
	switch typ {
	case ir.SrcF64:
		val := b.AllocSSA(ir.FileGPR, 2)
		lo, hi := split64(src.Ref)
		b.CopyTo(ir.NewSSARef(val.At(0)), ir.NewSrc(lo))
		b.CopyTo(ir.NewSSARef(val.At(1)), ir.NewSrc(hi))
		src.Ref = val
	case ir.SrcPred:
		src.Ref = b.Copy(ir.FilePred, ir.NewSrc(src.Ref))
	case ir.SrcGPR, ir.SrcALU, ir.SrcF32, ir.SrcI32, ir.SrcB32, ir.SrcSSA:
		src.Ref = b.Copy(ir.FileGPR, ir.NewSrc(src.Ref))
	default:
		panic(fmt.Sprintf("legalize: cannot copy a source of type %d", typ))
	}
}

// split64 returns the two 32-bit halves of a 64-bit constant operand. An
// immediate only carries the high half.
func split64(ref ir.SrcRef) (ir.SrcRef, ir.SrcRef) {
	switch r := ref.(type) {
	case ir.SrcZero:
		return r, r
	case ir.Imm32:
		return ir.SrcZero{}, r
	case ir.CBufRef:
		hi := r
		hi.Offset += 4
		return r, hi
	default:
		panic(fmt.Sprintf("legalize: %v is not a 64-bit constant", ref))
	}
}

func copySrcIfNotReg(b *ir.Builder, src *ir.Src, typ ir.SrcType) {
	if !srcIsReg(*src) {
		copySrc(b, src, typ)
	}
}

func copySrcIfCBuf(b *ir.Builder, src *ir.Src, typ ir.SrcType) {
	if _, ok := src.Ref.(ir.CBufRef); ok {
		copySrc(b, src, typ)
	}
}

func copySrcIfNotSSA(b *ir.Builder, src *ir.Src) {
	if _, ok := src.Ref.(ir.SSARef); !ok {
		copySrc(b, src, ir.SrcSSA)
	}
}

// copySrcIfBothNotReg leaves x alone when only one of the two slots can
// hold a constant.
func copySrcIfBothNotReg(b *ir.Builder, x, y *ir.Src, typ ir.SrcType) {
	if !srcIsReg(*x) && !srcIsReg(*y) {
		copySrc(b, y, typ)
	}
}

// swapSrcsIfNotReg moves a register into x when x holds a constant and y
// does not. It reports whether it swapped.
func swapSrcsIfNotReg(x, y *ir.Src) bool {
	if !srcIsReg(*x) && srcIsReg(*y) {
		*x, *y = *y, *x
		return true
	}
	return false
}

// legalizeSrcsByType handles every op without an explicit rule: register
// slots get copies, everything else must have been dealt with already.
func legalizeSrcsByType(b *ir.Builder, instr *ir.Instr, barOK bool) {
	types := instr.SrcTypes()
	for i, src := range instr.Srcs() {
		switch types[i] {
		case ir.SrcSSA:
			copySrcIfNotSSA(b, src)
		case ir.SrcGPR:
			copySrcIfNotReg(b, src, ir.SrcGPR)
		case ir.SrcBar:
			if !barOK {
				panic(fmt.Sprintf("legalize: %s: barrier sources are not supported on sm %d", instr.Op.Name(), b.SM()))
			}
		default:
			panic(fmt.Sprintf("legalize: %s: source %d must be legalized explicitly", instr.Op.Name(), i))
		}
	}
}

// lowerINeg turns integer negation into an add with zero, which both
// generations encode directly.
func lowerINeg(sm uint8, instr *ir.Instr) {
	op, ok := instr.Op.(*ir.INeg)
	if !ok {
		return
	}
	neg := op.Src
	neg.Mod = neg.Mod.INeg()
	if sm >= 70 {
		instr.Op = ir.NewIAdd3(op.Dst, neg, ir.ZeroSrc(), ir.ZeroSrc())
	} else {
		instr.Op = &ir.IAdd2{Dst: op.Dst, Srcs: [2]ir.Src{ir.ZeroSrc(), neg}}
	}
}

const signBit = uint32(1) << 31

// normalizeImmModifiers folds source modifiers on immediates into the
// immediate value, since no immediate slot has modifier bits.
func normalizeImmModifiers(instr *ir.Instr) {
	types := instr.SrcTypes()
	for i, src := range instr.Srcs() {
		imm, ok := src.Ref.(ir.Imm32)
		if !ok || src.Mod.IsNone() {
			continue
		}
		var legal bool
		switch types[i] {
		case ir.SrcF32, ir.SrcF64:
			legal = src.Mod == ir.ModFAbs || src.Mod == ir.ModFNeg || src.Mod == ir.ModFNegAbs
		case ir.SrcI32:
			legal = src.Mod == ir.ModINeg
		case ir.SrcB32:
			legal = src.Mod == ir.ModBNot
		case ir.SrcALU:
			legal = src.Mod.IsALU()
		default:
			panic(fmt.Sprintf("legalize: %s: source %d of this type takes no modifier", instr.Op.Name(), i))
		}
		if !legal {
			panic(fmt.Sprintf("legalize: %s: invalid modifier %v on immediate source %d", instr.Op.Name(), src.Mod, i))
		}
		*src = ir.ImmSrc(foldImmMod(uint32(imm), src.Mod))
	}
}

// foldImmMod applies a source modifier to the bits of an immediate.
func foldImmMod(v uint32, mod ir.SrcMod) uint32 {
	switch mod {
	case ir.ModFAbs:
		return v &^ signBit
	case ir.ModFNeg:
		return v ^ signBit
	case ir.ModFNegAbs:
		return v | signBit
	case ir.ModINeg:
		return -v
	case ir.ModBNot:
		return ^v
	default:
		return v
	}
}

// splitVectorSrcs makes sure no SSA value appears in two different vector
// sources of one instruction, or twice in the same vector, so that every
// vector can be given its own contiguous register range. A vector repeated
// verbatim shares the rewritten copy of its first occurrence.
func splitVectorSrcs(b *ir.Builder, instr *ir.Instr) {
	rewritten := map[ir.SSARef]ir.SSARef{}
	seen := map[ir.SSAValue]bool{}
	for _, src := range instr.Srcs() {
		vec, ok := src.Ref.(ir.SSARef)
		if !ok || vec.Comps() == 1 {
			continue
		}
		if nv, ok := rewritten[vec]; ok {
			src.Ref = nv
			continue
		}
		vals := vec.Values()
		for c, v := range vals {
			if !seen[v] {
				seen[v] = true
				continue
			}
			cp := b.AllocSSA(v.File(), 1)
			b.CopyTo(cp, ir.NewSrc(ir.NewSSARef(v)))
			vals[c] = cp.At(0)
		}
		nv := ir.NewSSARef(vals...)
		rewritten[vec] = nv
		src.Ref = nv
	}
}
