// Package regalloc replaces SSA values with physical registers.
//
// The allocator never reuses a register: every congruence class of SSA
// values gets the next free register of its file. Values joined by a phi
// form one class. Vectors get contiguous, aligned runs.
package regalloc

import (
	"fmt"

	"fortio.org/safecast"

	"nakgo/internal/ir"
)

// Pass assigns registers to every function of a shader.
type Pass struct{}

func (Pass) Name() string { return "assign-regs" }

func (Pass) Run(shader *ir.Shader) error { return AssignRegs(shader) }

// AssignRegs rewrites the shader out of SSA form and records the number of
// GPRs it uses.
func AssignRegs(shader *ir.Shader) error {
	maxGPRs := 0
	for i, fn := range shader.Functions {
		n, err := assignFunction(fn, shader.Info.SM)
		if err != nil {
			return fmt.Errorf("regalloc: function %d: %w", i, err)
		}
		maxGPRs = max(maxGPRs, n)
	}
	n, err := safecast.Conv[uint8](maxGPRs)
	if err != nil {
		return fmt.Errorf("regalloc: %d GPRs: %w", maxGPRs, err)
	}
	shader.Info.NumGPRs = n
	return nil
}

type allocator struct {
	classes ir.UnionFind[ir.SSAValue]
	regs    map[ir.SSAValue]int
	next    map[ir.RegFile]int
}

func newAllocator() *allocator {
	return &allocator{
		regs: make(map[ir.SSAValue]int),
		next: make(map[ir.RegFile]int),
	}
}

// limit is the number of allocatable registers of file; the zero register
// is not one of them.
func limit(file ir.RegFile) int {
	if z, ok := file.ZeroIdx(); ok {
		return z
	}
	return file.NumRegs()
}

func vecAlign(comps int) int {
	switch {
	case comps <= 1:
		return 1
	case comps == 2:
		return 2
	default:
		return 4
	}
}

func (a *allocator) allocRun(file ir.RegFile, comps int) (int, error) {
	align := vecAlign(comps)
	base := (a.next[file] + align - 1) / align * align
	if base+comps > limit(file) {
		return 0, fmt.Errorf("out of %s registers", file)
	}
	a.next[file] = base + comps
	return base, nil
}

func (a *allocator) assigned(v ir.SSAValue) (int, bool) {
	r, ok := a.regs[a.classes.Find(v)]
	return r, ok
}

func (a *allocator) assignScalar(v ir.SSAValue) error {
	if _, ok := a.assigned(v); ok {
		return nil
	}
	base, err := a.allocRun(v.File(), 1)
	if err != nil {
		return err
	}
	a.regs[a.classes.Find(v)] = base
	return nil
}

// assignVector gives vec one contiguous run if none of its components has a
// register yet.
func (a *allocator) assignVector(vec ir.SSARef) error {
	for _, v := range vec.Values() {
		if _, ok := a.assigned(v); ok {
			return nil
		}
	}
	base, err := a.allocRun(vec.File(), vec.Comps())
	if err != nil {
		return err
	}
	for i, v := range vec.Values() {
		a.regs[a.classes.Find(v)] = base + i
	}
	return nil
}

// contiguous returns the register range vec occupies, if its components
// ended up next to each other.
func (a *allocator) contiguous(vec ir.SSARef) (ir.RegRef, bool) {
	base, _ := a.assigned(vec.At(0))
	for i, v := range vec.Values() {
		if r, _ := a.assigned(v); r != base+i {
			return ir.RegRef{}, false
		}
	}
	if vec.Comps() > 1 && base%vecAlign(vec.Comps()) != 0 {
		return ir.RegRef{}, false
	}
	return ir.NewRegRef(vec.File(), base, vec.Comps()), true
}

func (a *allocator) scalar(v ir.SSAValue) ir.RegRef {
	r, ok := a.assigned(v)
	if !ok {
		panic(fmt.Sprintf("regalloc: %v has no register", v))
	}
	return ir.NewRegRef(v.File(), r, 1)
}

func assignFunction(fn *ir.Function, sm uint8) (int, error) {
	isolatePhis(fn)
	a := newAllocator()
	a.joinPhis(fn)

	// Vectors first, so that values feeding a vector land next to each
	// other even when they are defined separately.
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			for _, vec := range vectors(instr) {
				if err := a.assignVector(vec); err != nil {
					return 0, err
				}
			}
		}
	}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			var err error
			visit := func(v ir.SSAValue) {
				if err == nil {
					err = a.assignScalar(v)
				}
			}
			instr.ForEachSSADef(visit)
			instr.ForEachSSAUse(visit)
			if err != nil {
				return 0, err
			}
		}
	}

	for _, b := range fn.Blocks {
		b.MapInstrs(func(instr *ir.Instr) []*ir.Instr {
			switch instr.Op.(type) {
			case *ir.PhiSrcs, *ir.PhiDsts, *ir.Undef:
				return nil
			}
			return a.rewrite(sm, instr)
		})
	}
	return a.next[ir.FileGPR], nil
}

func vectors(instr *ir.Instr) []ir.SSARef {
	var out []ir.SSARef
	for _, d := range instr.Dsts() {
		if vec, ok := (*d).(ir.SSARef); ok && vec.Comps() > 1 {
			out = append(out, vec)
		}
	}
	for _, s := range instr.Srcs() {
		if vec, ok := s.Ref.(ir.SSARef); ok && vec.Comps() > 1 {
			out = append(out, vec)
		}
	}
	return out
}

// rewrite replaces the SSA operands of instr. Vectors whose components are
// not contiguous go through a fresh run and explicit moves.
func (a *allocator) rewrite(sm uint8, instr *ir.Instr) []*ir.Instr {
	before := ir.NewBuilder(sm, nil)
	after := ir.NewBuilder(sm, nil)

	if v, ok := instr.Pred.Ref.(ir.SSAValue); ok {
		instr.Pred.Ref = a.scalar(v)
	}
	for _, s := range instr.Srcs() {
		switch ref := s.Ref.(type) {
		case ir.SSARef:
			s.Ref = a.srcRegs(before, ref)
		case ir.CBufRef:
			if h, ok := ref.Buf.(ir.CBufBindlessSSA); ok {
				ref.Buf = ir.CBufBindlessGPR{Handle: a.scalar(h.Handle)}
				s.Ref = ref
			}
		}
	}
	for _, d := range instr.Dsts() {
		if vec, ok := (*d).(ir.SSARef); ok {
			*d = a.dstRegs(after, vec)
		}
	}

	if isSelfCopy(instr) {
		return before.Instrs()
	}
	if out, ok := instr.Op.(*ir.FSOut); ok {
		instr.Op = a.fsOutCopy(out)
	}
	before.PushInstr(instr)
	for _, i := range after.Instrs() {
		before.PushInstr(i)
	}
	return before.Instrs()
}

func (a *allocator) srcRegs(b *ir.Builder, vec ir.SSARef) ir.RegRef {
	if reg, ok := a.contiguous(vec); ok {
		return reg
	}
	base, err := a.allocRun(vec.File(), vec.Comps())
	if err != nil {
		panic(fmt.Sprintf("regalloc: gathering %v: %v", vec, err))
	}
	for i, v := range vec.Values() {
		b.CopyTo(ir.NewRegRef(vec.File(), base+i, 1), ir.NewSrc(a.scalar(v)))
	}
	return ir.NewRegRef(vec.File(), base, vec.Comps())
}

func (a *allocator) dstRegs(b *ir.Builder, vec ir.SSARef) ir.RegRef {
	if reg, ok := a.contiguous(vec); ok {
		return reg
	}
	base, err := a.allocRun(vec.File(), vec.Comps())
	if err != nil {
		panic(fmt.Sprintf("regalloc: scattering %v: %v", vec, err))
	}
	for i, v := range vec.Values() {
		b.CopyTo(a.scalar(v), ir.NewSrc(ir.NewRegRef(vec.File(), base+i, 1)))
	}
	return ir.NewRegRef(vec.File(), base, vec.Comps())
}

// fsOutCopy moves the fragment outputs into r0 and up, where the hardware
// reads them at exit. Everything else is dead by then, so the copy may
// overwrite any register.
func (a *allocator) fsOutCopy(out *ir.FSOut) *ir.ParCopy {
	pc := &ir.ParCopy{}
	for i, src := range out.Srcs {
		pc.Push(ir.NewRegRef(ir.FileGPR, i, 1), src)
	}
	a.next[ir.FileGPR] = max(a.next[ir.FileGPR], len(out.Srcs))
	return pc
}

// isSelfCopy reports whether instr is a copy whose two sides were coalesced
// into the same register.
func isSelfCopy(instr *ir.Instr) bool {
	cp, ok := instr.Op.(*ir.Copy)
	if !ok || !cp.Src.Mod.IsNone() {
		return false
	}
	src, ok := cp.Src.Ref.(ir.RegRef)
	dst, isReg := cp.Dst.(ir.RegRef)
	return ok && isReg && src == dst
}
