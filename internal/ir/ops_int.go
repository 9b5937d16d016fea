package ir

var (
	typesALU       = []SrcType{SrcALU}
	typesALUx2     = []SrcType{SrcALU, SrcALU}
	typesALUx3     = []SrcType{SrcALU, SrcALU, SrcALU}
	typesALUx2Pred = []SrcType{SrcALU, SrcALU, SrcPred}
	typesI32x2     = []SrcType{SrcI32, SrcI32}
	typesI32x3     = []SrcType{SrcI32, SrcI32, SrcI32}
	typesB32       = []SrcType{SrcB32}
	typesB32x2     = []SrcType{SrcB32, SrcB32}
	typesPredx3    = []SrcType{SrcPred, SrcPred, SrcPred}
	typesShf       = []SrcType{SrcGPR, SrcALU, SrcGPR}
	typesGPRALU    = []SrcType{SrcGPR, SrcALU}
)

// IAbs is an integer absolute value.
type IAbs struct {
	Dst Dst
	Src Src
}

func (*IAbs) Name() string { return "iabs" }
func (op *IAbs) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *IAbs) srcs() []*Src { return []*Src{&op.Src} }
func (*IAbs) srcTypes() []SrcType { return typesALU }

// INeg is an integer negate.
type INeg struct {
	Dst Dst
	Src Src
}

func (*INeg) Name() string { return "ineg" }
func (op *INeg) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *INeg) srcs() []*Src { return []*Src{&op.Src} }
func (*INeg) srcTypes() []SrcType { return typesALU }

// IAdd2 is the two-source integer add of the oldest generation.
type IAdd2 struct {
	Dst  Dst
	Srcs [2]Src
}

func (*IAdd2) Name() string { return "iadd2" }
func (op *IAdd2) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *IAdd2) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*IAdd2) srcTypes() []SrcType { return typesI32x2 }

// IAdd3 adds three integers. Overflow optionally receives the carry-out
// predicates of the low and high halves of the add.
type IAdd3 struct {
	Dst      Dst
	Overflow [2]Dst
	Srcs     [3]Src
}

// NewIAdd3 builds an add with no carry-out.
func NewIAdd3(dst Dst, a, b, c Src) *IAdd3 {
	return &IAdd3{Dst: dst, Overflow: [2]Dst{DstNone{}, DstNone{}}, Srcs: [3]Src{a, b, c}}
}

func (*IAdd3) Name() string { return "iadd3" }
func (op *IAdd3) dsts() []*Dst { return []*Dst{&op.Dst, &op.Overflow[0], &op.Overflow[1]} }
func (op *IAdd3) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Srcs[2]} }
func (*IAdd3) srcTypes() []SrcType { return typesI32x3 }

// IMad is a 32-bit integer multiply-add.
type IMad struct {
	Dst    Dst
	Srcs   [3]Src
	Signed bool
}

func (*IMad) Name() string { return "imad" }
func (op *IMad) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *IMad) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Srcs[2]} }
func (*IMad) srcTypes() []SrcType { return typesALUx3 }
func (op *IMad) Attrs() []string { return attrList(flagAttr("s32", op.Signed)) }
func (op *IMad) SetAttr(t string) bool { return setFlag(&op.Signed, "s32", t) }

// IMad64 is a 32x32+64 bit integer multiply-add with a 64-bit result.
type IMad64 struct {
	Dst    Dst
	Srcs   [3]Src
	Signed bool
}

func (*IMad64) Name() string { return "imad64" }
func (op *IMad64) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *IMad64) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Srcs[2]} }
func (*IMad64) srcTypes() []SrcType { return typesALUx3 }
func (op *IMad64) Attrs() []string { return attrList(flagAttr("s32", op.Signed)) }
func (op *IMad64) SetAttr(t string) bool { return setFlag(&op.Signed, "s32", t) }

// IMnMx selects an integer minimum (Min true) or maximum.
type IMnMx struct {
	Dst     Dst
	CmpType IntCmpType
	Srcs    [2]Src
	Min     Src
}

func (*IMnMx) Name() string { return "imnmx" }
func (op *IMnMx) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *IMnMx) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Min} }
func (*IMnMx) srcTypes() []SrcType { return typesALUx2Pred }
func (op *IMnMx) Attrs() []string { return []string{op.CmpType.String()} }
func (op *IMnMx) SetAttr(t string) bool { return setEnum(&op.CmpType, IntCmpTypeNames, t) }

// ISetP writes a predicate from an integer comparison combined with Accum.
type ISetP struct {
	Dst     Dst
	SetOp   PredSetOp
	CmpOp   IntCmpOp
	CmpType IntCmpType
	Srcs    [2]Src
	Accum   Src
}

func (*ISetP) Name() string { return "isetp" }
func (op *ISetP) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *ISetP) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Accum} }
func (*ISetP) srcTypes() []SrcType { return typesALUx2Pred }
func (op *ISetP) Attrs() []string {
	return []string{op.CmpOp.String(), op.CmpType.String(), op.SetOp.String()}
}
func (op *ISetP) SetAttr(t string) bool {
	return setEnum(&op.CmpOp, IntCmpOpNames, t) ||
		setEnum(&op.CmpType, IntCmpTypeNames, t) ||
		setEnum(&op.SetOp, PredSetOpNames, t)
}

// Lop2 is the two-source logic op of the oldest generation.
type Lop2 struct {
	Dst  Dst
	Srcs [2]Src
	Op   LogicOp2
}

func (*Lop2) Name() string { return "lop2" }
func (op *Lop2) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Lop2) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Lop2) srcTypes() []SrcType { return typesB32x2 }
func (op *Lop2) Attrs() []string { return []string{op.Op.String()} }
func (op *Lop2) SetAttr(t string) bool { return setEnum(&op.Op, LogicOp2Names, t) }

// Lop3 applies a three-source truth table bitwise.
type Lop3 struct {
	Dst  Dst
	Srcs [3]Src
	Op   LogicOp
}

func (*Lop3) Name() string { return "lop3" }
func (op *Lop3) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Lop3) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Srcs[2]} }
func (*Lop3) srcTypes() []SrcType { return typesALUx3 }
func (op *Lop3) Attrs() []string { return []string{op.Op.String()} }
func (op *Lop3) SetAttr(t string) bool { return setUint8(&op.Op.LUT, t, "lut") }

// PSetP combines three predicates with two set ops into up to two results.
type PSetP struct {
	Dsts [2]Dst
	Ops  [2]PredSetOp
	Srcs [3]Src
}

func (*PSetP) Name() string { return "psetp" }
func (op *PSetP) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1]} }
func (op *PSetP) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Srcs[2]} }
func (*PSetP) srcTypes() []SrcType { return typesPredx3 }
func (op *PSetP) Attrs() []string { return []string{op.Ops[0].String(), op.Ops[1].String()} }
func (op *PSetP) SetAttr(t string) bool {
	// The first op token fills Ops[0], the second Ops[1].
	v, ok := LookupName[PredSetOp](PredSetOpNames, t)
	if !ok {
		return false
	}
	op.Ops[0], op.Ops[1] = op.Ops[1], v
	return true
}

// PLop3 applies two truth tables to three predicates.
type PLop3 struct {
	Dsts [2]Dst
	Srcs [3]Src
	Ops  [2]LogicOp
}

func (*PLop3) Name() string { return "plop3" }
func (op *PLop3) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1]} }
func (op *PLop3) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1], &op.Srcs[2]} }
func (*PLop3) srcTypes() []SrcType { return typesPredx3 }
func (op *PLop3) Attrs() []string {
	return []string{kvAttr("lut0", uint64(op.Ops[0].LUT)), kvAttr("lut1", uint64(op.Ops[1].LUT))}
}
func (op *PLop3) SetAttr(t string) bool {
	return setUint8(&op.Ops[0].LUT, t, "lut0") || setUint8(&op.Ops[1].LUT, t, "lut1")
}

// PopC counts set bits.
type PopC struct {
	Dst Dst
	Src Src
}

func (*PopC) Name() string { return "popc" }
func (op *PopC) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *PopC) srcs() []*Src { return []*Src{&op.Src} }
func (*PopC) srcTypes() []SrcType { return typesB32 }

// Brev reverses bit order.
type Brev struct {
	Dst Dst
	Src Src
}

func (*Brev) Name() string { return "brev" }
func (op *Brev) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Brev) srcs() []*Src { return []*Src{&op.Src} }
func (*Brev) srcTypes() []SrcType { return typesALU }

// Flo finds the leading one.
type Flo struct {
	Dst         Dst
	Src         Src
	Signed      bool
	ShiftAmount bool
}

func (*Flo) Name() string { return "flo" }
func (op *Flo) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Flo) srcs() []*Src { return []*Src{&op.Src} }
func (*Flo) srcTypes() []SrcType { return typesALU }
func (op *Flo) Attrs() []string {
	return attrList(flagAttr("s32", op.Signed), flagAttr("sh", op.ShiftAmount))
}
func (op *Flo) SetAttr(t string) bool {
	return setFlag(&op.Signed, "s32", t) || setFlag(&op.ShiftAmount, "sh", t)
}

// Prmt permutes bytes of two sources under control of Sel.
type Prmt struct {
	Dst  Dst
	Srcs [2]Src
	Sel  Src
}

func (*Prmt) Name() string { return "prmt" }
func (op *Prmt) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Prmt) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Sel, &op.Srcs[1]} }
func (*Prmt) srcTypes() []SrcType { return typesALUx3 }

// Shf is a funnel shift of the 64-bit value High:Low.
type Shf struct {
	Dst      Dst
	Low      Src
	Shift    Src
	High     Src
	Right    bool
	Wrap     bool
	Signed   bool
	DstHigh  bool
	DataType IntType
}

func (*Shf) Name() string { return "shf" }
func (op *Shf) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Shf) srcs() []*Src { return []*Src{&op.Low, &op.Shift, &op.High} }
func (*Shf) srcTypes() []SrcType { return typesShf }
func (op *Shf) Attrs() []string {
	dir := "l"
	if op.Right {
		dir = "r"
	}
	return attrList(dir, flagAttr("w", op.Wrap), flagAttr("s", op.Signed),
		flagAttr("hi", op.DstHigh), op.DataType.String())
}
func (op *Shf) SetAttr(t string) bool {
	switch t {
	case "l":
		op.Right = false
		return true
	case "r":
		op.Right = true
		return true
	}
	return setFlag(&op.Wrap, "w", t) || setFlag(&op.Signed, "s", t) ||
		setFlag(&op.DstHigh, "hi", t) || setEnum(&op.DataType, IntTypeNames, t)
}

// Shl is a plain left shift.
type Shl struct {
	Dst  Dst
	Srcs [2]Src
	Wrap bool
}

func (*Shl) Name() string { return "shl" }
func (op *Shl) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Shl) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Shl) srcTypes() []SrcType { return typesGPRALU }
func (op *Shl) Attrs() []string { return attrList(flagAttr("w", op.Wrap)) }
func (op *Shl) SetAttr(t string) bool { return setFlag(&op.Wrap, "w", t) }

// Mov copies a value, optionally only into the given quad lanes.
type Mov struct {
	Dst       Dst
	Src       Src
	QuadLanes uint8
}

// NewMov builds a full-lane move.
func NewMov(dst Dst, src Src) *Mov {
	return &Mov{Dst: dst, Src: src, QuadLanes: 0xf}
}

func (*Mov) Name() string { return "mov" }
func (op *Mov) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Mov) srcs() []*Src { return []*Src{&op.Src} }
func (*Mov) srcTypes() []SrcType { return typesALU }
func (op *Mov) Attrs() []string {
	if op.QuadLanes == 0xf {
		return nil
	}
	return []string{kvAttr("lanes", uint64(op.QuadLanes))}
}
func (op *Mov) SetAttr(t string) bool { return setUint8(&op.QuadLanes, t, "lanes") }

// Sel picks Srcs[0] when Cond holds, else Srcs[1].
type Sel struct {
	Dst  Dst
	Cond Src
	Srcs [2]Src
}

func (*Sel) Name() string { return "sel" }
func (op *Sel) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Sel) srcs() []*Src { return []*Src{&op.Cond, &op.Srcs[0], &op.Srcs[1]} }
func (*Sel) srcTypes() []SrcType { return typesSel }

var typesSel = []SrcType{SrcPred, SrcALU, SrcALU}
