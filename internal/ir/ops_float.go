package ir

var (
	typesF32       = []SrcType{SrcF32}
	typesF32x2     = []SrcType{SrcF32, SrcF32}
	typesF32x3     = []SrcType{SrcF32, SrcF32, SrcF32}
	typesF32x2Pred = []SrcType{SrcF32, SrcF32, SrcPred}
	typesF64x2     = []SrcType{SrcF64, SrcF64}
	typesGPRx2     = []SrcType{SrcGPR, SrcGPR}
)

// FAdd is a 32-bit float add.
type FAdd struct {
	Dst      Dst
	Srcs     [2]Src
	Saturate bool
	Rnd      FRndMode
}

func (*FAdd) Name() string { return "fadd" }
func (op *FAdd) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FAdd) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*FAdd) srcTypes() []SrcType { return typesF32x2 }
func (op *FAdd) Attrs() []string { return attrList(rndAttr(op.Rnd), flagAttr("sat", op.Saturate)) }
func (op *FAdd) SetAttr(t string) bool {
	return setEnum(&op.Rnd, FRndModeNames, t) || setFlag(&op.Saturate, "sat", t)
}

// FFma is a fused 32-bit multiply-add.
type FFma struct {
	Dst      Dst
	Srcs     [3]Src
	Saturate bool
	Rnd      FRndMode
}

func (*FFma) Name() string { return "ffma" }
func (op *FFma) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FFma) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Srcs[2]} }
func (*FFma) srcTypes() []SrcType { return typesF32x3 }
func (op *FFma) Attrs() []string { return attrList(rndAttr(op.Rnd), flagAttr("sat", op.Saturate)) }
func (op *FFma) SetAttr(t string) bool {
	return setEnum(&op.Rnd, FRndModeNames, t) || setFlag(&op.Saturate, "sat", t)
}

// FMnMx selects the minimum of its sources when Min is true, else the maximum.
type FMnMx struct {
	Dst  Dst
	Srcs [2]Src
	Min  Src
}

func (*FMnMx) Name() string { return "fmnmx" }
func (op *FMnMx) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FMnMx) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Min} }
func (*FMnMx) srcTypes() []SrcType { return typesF32x2Pred }

// FMul is a 32-bit float multiply.
type FMul struct {
	Dst      Dst
	Srcs     [2]Src
	Saturate bool
	Rnd      FRndMode
}

func (*FMul) Name() string { return "fmul" }
func (op *FMul) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FMul) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*FMul) srcTypes() []SrcType { return typesF32x2 }
func (op *FMul) Attrs() []string { return attrList(rndAttr(op.Rnd), flagAttr("sat", op.Saturate)) }
func (op *FMul) SetAttr(t string) bool {
	return setEnum(&op.Rnd, FRndModeNames, t) || setFlag(&op.Saturate, "sat", t)
}

// MuFu evaluates a transcendental function.
type MuFu struct {
	Dst Dst
	Op  MuFuOp
	Src Src
}

func (*MuFu) Name() string { return "mufu" }
func (op *MuFu) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *MuFu) srcs() []*Src { return []*Src{&op.Src} }
func (*MuFu) srcTypes() []SrcType { return typesF32 }
func (op *MuFu) Attrs() []string { return []string{op.Op.String()} }
func (op *MuFu) SetAttr(t string) bool { return setEnum(&op.Op, MuFuOpNames, t) }

// FSet writes 1.0 or 0.0 depending on a float comparison.
type FSet struct {
	Dst   Dst
	CmpOp FloatCmpOp
	Srcs  [2]Src
}

func (*FSet) Name() string { return "fset" }
func (op *FSet) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FSet) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*FSet) srcTypes() []SrcType { return typesF32x2 }
func (op *FSet) Attrs() []string { return []string{op.CmpOp.String()} }
func (op *FSet) SetAttr(t string) bool { return setEnum(&op.CmpOp, FloatCmpOpNames, t) }

// FSetP writes a predicate from a float comparison combined with Accum.
type FSetP struct {
	Dst   Dst
	SetOp PredSetOp
	CmpOp FloatCmpOp
	Srcs  [2]Src
	Accum Src
}

func (*FSetP) Name() string { return "fsetp" }
func (op *FSetP) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FSetP) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Accum} }
func (*FSetP) srcTypes() []SrcType { return typesF32x2Pred }
func (op *FSetP) Attrs() []string { return []string{op.CmpOp.String(), op.SetOp.String()} }
func (op *FSetP) SetAttr(t string) bool {
	return setEnum(&op.CmpOp, FloatCmpOpNames, t) || setEnum(&op.SetOp, PredSetOpNames, t)
}

// DAdd is a 64-bit float add.
type DAdd struct {
	Dst  Dst
	Srcs [2]Src
	Rnd  FRndMode
}

func (*DAdd) Name() string { return "dadd" }
func (op *DAdd) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *DAdd) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*DAdd) srcTypes() []SrcType { return typesF64x2 }
func (op *DAdd) Attrs() []string { return attrList(rndAttr(op.Rnd)) }
func (op *DAdd) SetAttr(t string) bool { return setEnum(&op.Rnd, FRndModeNames, t) }

// FSwzAdd adds across a quad with per-lane operand swizzles.
type FSwzAdd struct {
	Dst  Dst
	Srcs [2]Src
	Rnd  FRndMode
	Ops  uint8
}

func (*FSwzAdd) Name() string { return "fswzadd" }
func (op *FSwzAdd) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FSwzAdd) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*FSwzAdd) srcTypes() []SrcType { return typesGPRx2 }
func (op *FSwzAdd) Attrs() []string { return attrList(rndAttr(op.Rnd), kvAttr("ops", uint64(op.Ops))) }
func (op *FSwzAdd) SetAttr(t string) bool {
	return setEnum(&op.Rnd, FRndModeNames, t) || setUint8(&op.Ops, t, "ops")
}
