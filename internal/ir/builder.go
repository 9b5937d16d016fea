package ir

import "fmt"

// Builder accumulates instructions for insertion into a block. Passes that
// expand one instruction into several build the replacement here and splice
// the result back with BasicBlock.MapInstrs.
type Builder struct {
	sm     uint8
	alloc  *SSAAlloc
	instrs []*Instr
}

// NewBuilder returns a builder targeting sm. alloc may be nil once SSA
// values are no longer being created.
func NewBuilder(sm uint8, alloc *SSAAlloc) *Builder {
	return &Builder{sm: sm, alloc: alloc}
}

func (b *Builder) SM() uint8 { return b.sm }

// Instrs returns the instructions built so far.
func (b *Builder) Instrs() []*Instr { return b.instrs }

// Push wraps op in an instruction and appends it.
func (b *Builder) Push(op Op) *Instr {
	instr := NewInstr(op)
	b.instrs = append(b.instrs, instr)
	return instr
}

// PushInstr appends an existing instruction.
func (b *Builder) PushInstr(instr *Instr) {
	b.instrs = append(b.instrs, instr)
}

// AllocSSA returns comps fresh values in file.
func (b *Builder) AllocSSA(file RegFile, comps int) SSARef {
	if b.alloc == nil {
		panic("builder has no SSA allocator")
	}
	return b.alloc.AllocVec(file, comps)
}

// CopyTo copies src into dst using the cheapest move for the register files
// involved.
func (b *Builder) CopyTo(dst Dst, src Src) {
	if dstFile(dst).IsPredicate() {
		if b.sm >= 70 {
			b.Push(&PLop3{
				Dsts: [2]Dst{dst, DstNone{}},
				Srcs: [3]Src{src, BoolSrc(true), BoolSrc(true)},
				Ops:  [2]LogicOp{NewLUT(func(x, _, _ uint8) uint8 { return x }), LogicConst(false)},
			})
		} else {
			b.Push(&PSetP{
				Dsts: [2]Dst{dst, DstNone{}},
				Ops:  [2]PredSetOp{PredSetAnd, PredSetAnd},
				Srcs: [3]Src{src, BoolSrc(true), BoolSrc(true)},
			})
		}
		return
	}
	b.Push(NewMov(dst, src))
}

// Copy copies src into a fresh value of file.
func (b *Builder) Copy(file RegFile, src Src) SSARef {
	dst := b.AllocSSA(file, 1)
	b.CopyTo(dst, src)
	return dst
}

// Swap exchanges two registers of the same file.
func (b *Builder) Swap(x, y RegRef) {
	if x.File() != y.File() {
		panic("cannot swap registers of different files")
	}
	b.Push(&Swap{Dsts: [2]Dst{x, y}, Srcs: [2]Src{NewSrc(y), NewSrc(x)}})
}

// Lop2To writes a two-source logic op into dst.
func (b *Builder) Lop2To(dst Dst, op LogicOp2, x, y Src) {
	if b.sm >= 70 {
		b.Push(&Lop3{Dst: dst, Srcs: [3]Src{x, y, ZeroSrc()}, Op: op.LUT()})
	} else {
		b.Push(&Lop2{Dst: dst, Srcs: [2]Src{x, y}, Op: op})
	}
}

// IAdd adds two integers into a fresh GPR.
func (b *Builder) IAdd(x, y Src) SSARef {
	dst := b.AllocSSA(FileGPR, 1)
	if b.sm >= 70 {
		b.Push(NewIAdd3(dst, x, y, ZeroSrc()))
	} else {
		b.Push(&IAdd2{Dst: dst, Srcs: [2]Src{x, y}})
	}
	return dst
}

// ISetP compares two integers into a fresh predicate.
func (b *Builder) ISetP(cmpType IntCmpType, cmpOp IntCmpOp, x, y Src) SSARef {
	dst := b.AllocSSA(FilePred, 1)
	b.Push(&ISetP{Dst: dst, SetOp: PredSetAnd, CmpOp: cmpOp, CmpType: cmpType,
		Srcs: [2]Src{x, y}, Accum: BoolSrc(true)})
	return dst
}

// FAdd adds two floats into a fresh GPR.
func (b *Builder) FAdd(x, y Src) SSARef {
	dst := b.AllocSSA(FileGPR, 1)
	b.Push(&FAdd{Dst: dst, Srcs: [2]Src{x, y}})
	return dst
}

// Sel selects between two values into a fresh GPR.
func (b *Builder) Sel(cond, x, y Src) SSARef {
	dst := b.AllocSSA(FileGPR, 1)
	b.Push(&Sel{Dst: dst, Cond: cond, Srcs: [2]Src{x, y}})
	return dst
}

// BMovToGPR copies a barrier register into a fresh GPR.
func (b *Builder) BMovToGPR(src Src) SSARef {
	dst := b.AllocSSA(FileGPR, 1)
	b.Push(&BMov{Dst: dst, Src: src})
	return dst
}

// BMovToBar copies a GPR into a fresh barrier register.
func (b *Builder) BMovToBar(src Src) SSARef {
	dst := b.AllocSSA(FileBar, 1)
	b.Push(&BMov{Dst: dst, Src: src})
	return dst
}

func dstFile(dst Dst) RegFile {
	switch d := dst.(type) {
	case SSARef:
		return d.File()
	case RegRef:
		return d.File()
	default:
		panic(fmt.Sprintf("destination %v has no register file", dst))
	}
}
