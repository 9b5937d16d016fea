package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic: %s", what)
		}
	}()
	fn()
}

func TestRegRefBounds(t *testing.T) {
	r := NewRegRef(FileGPR, 252, 4)
	if lo, hi := r.IdxRange(); lo != 252 || hi != 256 {
		t.Fatalf("unexpected range [%d,%d)", lo, hi)
	}
	expectPanic(t, "gpr past the end", func() { NewRegRef(FileGPR, 253, 4) })
	expectPanic(t, "pred index 8", func() { NewRegRef(FilePred, 8, 1) })
	expectPanic(t, "bar zero", func() { ZeroReg(FileBar) })
	if !ZeroReg(FileUGPR).IsZero() || ZeroReg(FileUGPR).Base() != 63 {
		t.Fatalf("UGPR zero register must be ur63")
	}
}

func TestSSARefComponents(t *testing.T) {
	var alloc SSAAlloc
	v := alloc.AllocVec(FileGPR, 3)
	if v.Comps() != 3 || v.At(2).Idx() != 3 {
		t.Fatalf("unexpected vector %v", v)
	}
	if got := v.String(); got != "%r[1,2,3]" {
		t.Fatalf("unexpected rendering %q", got)
	}
	p := alloc.Alloc(FilePred)
	expectPanic(t, "mixed files", func() { NewSSARef(v.At(0), p) })
	expectPanic(t, "nine components", func() { alloc.AllocVec(FileGPR, 9) })
}

func TestSrcModAlgebra(t *testing.T) {
	cases := []struct {
		base, apply, want SrcMod
	}{
		{ModNone, ModFNeg, ModFNeg},
		{ModFNeg, ModFNeg, ModNone},
		{ModFAbs, ModFNeg, ModFNegAbs},
		{ModFNegAbs, ModFAbs, ModFAbs},
		{ModFNeg, ModFNegAbs, ModFNegAbs},
		{ModINeg, ModINeg, ModNone},
		{ModBNot, ModBNot, ModNone},
		{ModINeg, ModNone, ModINeg},
	}
	for _, c := range cases {
		if got := c.base.Modify(c.apply); got != c.want {
			t.Fatalf("%d.Modify(%d) = %d, want %d", c.base, c.apply, got, c.want)
		}
	}
	expectPanic(t, "fneg of ineg", func() { ModINeg.FNeg() })
	expectPanic(t, "bnot of fabs", func() { ModFAbs.BNot() })
	expectPanic(t, "ineg of bnot", func() { ModBNot.INeg() })
}

func TestSupportsType(t *testing.T) {
	var alloc SSAAlloc
	gpr := NewSrc(alloc.AllocVec(FileGPR, 1))
	pred := NewSrc(alloc.AllocVec(FilePred, 1))
	bar := NewSrc(alloc.AllocVec(FileBar, 1))
	cb := NewSrc(CBufRef{Buf: CBufBinding(1), Offset: 0x10})

	cases := []struct {
		name string
		src  Src
		typ  SrcType
		want bool
	}{
		{"ssa-plain", gpr, SrcSSA, true},
		{"ssa-imm", ImmSrc(4), SrcSSA, false},
		{"gpr-zero", ZeroSrc(), SrcGPR, true},
		{"gpr-cbuf", cb, SrcGPR, false},
		{"gpr-neg", gpr.INeg(), SrcGPR, false},
		{"alu-cbuf", cb, SrcALU, true},
		{"alu-bnot", gpr.BNot(), SrcALU, false},
		{"f32-fabs", gpr.FAbs(), SrcF32, true},
		{"f32-ineg", gpr.INeg(), SrcF32, false},
		{"i32-ineg", gpr.INeg(), SrcI32, true},
		{"b32-bnot", gpr.BNot(), SrcB32, true},
		{"pred-true", BoolSrc(true), SrcPred, true},
		{"pred-gpr", gpr, SrcPred, false},
		{"pred-not", pred.BNot(), SrcPred, true},
		{"bar-bar", bar, SrcBar, true},
		{"bar-gpr", gpr, SrcBar, false},
	}
	for _, c := range cases {
		if got := c.src.SupportsType(c.typ); got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestLogicOpEvalMatchesBuilder(t *testing.T) {
	op := NewLUT(func(x, y, z uint8) uint8 { return (x & y) ^ z })
	if op.LUT != 0x6a {
		t.Fatalf("unexpected lut %#x", op.LUT)
	}
	x, y, z := uint32(0xf0f0f0f0), uint32(0x12345678), uint32(0xdeadbeef)
	if got, want := op.Eval(x, y, z), (x&y)^z; got != want {
		t.Fatalf("eval = %#x want %#x", got, want)
	}
}

func TestLogicOpFixAndInvert(t *testing.T) {
	and := NewLUT(func(x, y, _ uint8) uint8 { return x & y })
	fixed := and
	fixed.FixSrc(0, true)
	if want := NewLUT(func(_, y, _ uint8) uint8 { return y }); fixed != want {
		t.Fatalf("and with x=1 should pass y, got %#x want %#x", fixed.LUT, want.LUT)
	}
	fixed = and
	fixed.FixSrc(1, false)
	if fixed != LogicConst(false) {
		t.Fatalf("and with y=0 should be false, got %#x", fixed.LUT)
	}

	inv := and
	inv.InvertSrc(1)
	if want := NewLUT(func(x, y, _ uint8) uint8 { return x &^ y }); inv != want {
		t.Fatalf("inverting y: got %#x want %#x", inv.LUT, want.LUT)
	}
	if and.SrcUsed(2) || !and.SrcUsed(0) {
		t.Fatalf("and uses x and y only")
	}
	expectPanic(t, "source 3", func() { and.SrcUsed(3) })
}

func TestCmpFlip(t *testing.T) {
	if FCmpOrdLt.Flip() != FCmpOrdGt || FCmpUnordGe.Flip() != FCmpUnordLe || FCmpOrdEq.Flip() != FCmpOrdEq {
		t.Fatalf("float flip mismatch")
	}
	if ICmpLe.Flip() != ICmpGe || ICmpNe.Flip() != ICmpNe {
		t.Fatalf("int flip mismatch")
	}
	expectPanic(t, "flip isnan", func() { FCmpIsNan.Flip() })
}

func TestLatencyClasses(t *testing.T) {
	cases := []struct {
		op    Op
		fixed bool
		lat   int
	}{
		{&FAdd{}, true, 6},
		{&Lop3{}, true, 6},
		{NewMov(DstNone{}, ZeroSrc()), true, 15},
		{&Exit{}, true, 15},
		{&Ld{}, false, 0},
		{&MuFu{}, false, 0},
		{&S2R{}, false, 0},
		{&BMov{}, false, 0},
	}
	for _, c := range cases {
		lat, ok := NewInstr(c.op).Latency()
		if ok != c.fixed || lat != c.lat {
			t.Fatalf("%s: got (%d,%v) want (%d,%v)", c.op.Name(), lat, ok, c.lat, c.fixed)
		}
	}
	expectPanic(t, "copy latency", func() { NewInstr(&Copy{}).Latency() })
	expectPanic(t, "par_copy latency", func() { NewInstr(&ParCopy{}).Latency() })
}

func TestEliminability(t *testing.T) {
	keep := []Op{&St{}, &Atom{}, &MemBar{}, &Bra{}, &Exit{}, &BSync{}, &OutFinal{}, &FSOut{}}
	for _, op := range keep {
		if NewInstr(op).CanEliminate() {
			t.Fatalf("%s must never be eliminated", op.Name())
		}
	}
	if !NewInstr(&FMul{}).CanEliminate() || !NewInstr(&Ld{}).CanEliminate() {
		t.Fatalf("pure ops must be eliminable")
	}
}

func TestSrcsArePointers(t *testing.T) {
	op := NewIAdd3(DstNone{}, ZeroSrc(), ImmSrc(1), ImmSrc(2))
	instr := NewInstr(op)
	*instr.Srcs()[2] = ImmSrc(7)
	if v, _ := op.Srcs[2].AsImm(); v != 7 {
		t.Fatalf("write through Srcs() did not reach the op")
	}
	pc := &ParCopy{}
	pc.Push(DstNone{}, ImmSrc(1))
	pc.Push(DstNone{}, ImmSrc(2))
	pi := NewInstr(pc)
	*pi.Srcs()[1] = ImmSrc(9)
	if v, _ := pc.Srcs[1].AsImm(); v != 9 || len(pi.SrcTypes()) != 2 {
		t.Fatalf("vector op pointers broken")
	}
}

func TestNewOpDefaults(t *testing.T) {
	op, ok := NewOp("isetp")
	if !ok {
		t.Fatalf("isetp unknown")
	}
	isetp := op.(*ISetP)
	if b, _ := isetp.Accum.AsBool(); !b {
		t.Fatalf("accumulator should default to true")
	}
	if _, ok := isetp.Dst.(DstNone); !ok {
		t.Fatalf("destination should default to none")
	}
	if _, ok := NewOp("frobnicate"); ok {
		t.Fatalf("unknown mnemonic accepted")
	}
}

func TestUnionFind(t *testing.T) {
	var uf UnionFind[SSAValue]
	a, b, c, d := NewSSAValue(FileGPR, 1), NewSSAValue(FileGPR, 2), NewSSAValue(FileGPR, 3), NewSSAValue(FileGPR, 4)
	if uf.Find(a) != a {
		t.Fatalf("singleton must be its own root")
	}
	uf.Union(a, b)
	uf.Union(c, d)
	if uf.Find(a) != uf.Find(b) || uf.Find(a) == uf.Find(c) {
		t.Fatalf("unexpected partition")
	}
	uf.Union(b, d)
	roots := map[SSAValue]bool{}
	for _, v := range []SSAValue{a, b, c, d} {
		roots[uf.Find(v)] = true
	}
	if len(roots) != 1 {
		t.Fatalf("expected one class, got %d", len(roots))
	}
}

func TestFormatInstr(t *testing.T) {
	var alloc SSAAlloc
	x := alloc.AllocVec(FileGPR, 1)
	p := alloc.AllocVec(FilePred, 1)
	isetp := NewInstr(&ISetP{Dst: p, CmpOp: ICmpLt, CmpType: ICmpI32,
		Srcs: [2]Src{NewSrc(x), ZeroSrc()}, Accum: BoolSrc(true)})
	bra := NewInstr(&Bra{TargetID: 2})
	bra.Pred = Pred{Ref: p.At(0), Inv: true}
	fadd := NewInstr(&FAdd{Dst: NewRegRef(FileGPR, 0, 1),
		Srcs: [2]Src{NewSrc(NewRegRef(FileGPR, 1, 1)).FNeg().FAbs(), NewSrc(CBufRef{Buf: CBufBinding(1), Offset: 0x10})}})
	fadd.Deps.SetDelay(4)
	fadd.Deps.SetWrBar(1)

	got := []string{FormatInstr(isetp), FormatInstr(bra), FormatInstr(fadd)}
	want := []string{
		"isetp.lt.i32.and %p2 = %r1, rZ, pT",
		"@!%p2 bra b2",
		"fadd r0 = |r1|, c[0x1][0x10] {delay=4 wr=1}",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("format mismatch (-want +got):\n%s", diff)
	}
}
