package ir

var (
	typesBarPred = []SrcType{SrcBar, SrcPred}
	typesOut     = []SrcType{SrcGPR, SrcALU}
	typesBMov    = []SrcType{SrcSSA}
)

// Targeted ops refer to a block by label.
type Targeted interface {
	Target() uint32
	SetTarget(id uint32)
}

// Bra jumps to block Target.
type Bra struct {
	TargetID uint32
}

func (*Bra) Name() string { return "bra" }
func (*Bra) dsts() []*Dst { return nil }
func (*Bra) srcs() []*Src { return nil }
func (*Bra) srcTypes() []SrcType { return nil }
func (op *Bra) Target() uint32 { return op.TargetID }
func (op *Bra) SetTarget(id uint32) { op.TargetID = id }

// Exit terminates the thread.
type Exit struct{}

func (*Exit) Name() string { return "exit" }
func (*Exit) dsts() []*Dst { return nil }
func (*Exit) srcs() []*Src { return nil }
func (*Exit) srcTypes() []SrcType { return nil }

// Bar is a workgroup execution barrier.
type Bar struct{}

func (*Bar) Name() string { return "bar" }
func (*Bar) dsts() []*Dst { return nil }
func (*Bar) srcs() []*Src { return nil }
func (*Bar) srcTypes() []SrcType { return nil }

// BSSy saves the convergence mask into a barrier register ahead of a
// divergent region ending at Target.
type BSSy struct {
	BarOut   Dst
	BarIn    Src
	Cond     Src
	TargetID uint32
}

func (*BSSy) Name() string { return "bssy" }
func (op *BSSy) dsts() []*Dst { return []*Dst{&op.BarOut} }
func (op *BSSy) srcs() []*Src { return []*Src{&op.BarIn, &op.Cond} }
func (*BSSy) srcTypes() []SrcType { return typesBarPred }
func (op *BSSy) Target() uint32 { return op.TargetID }
func (op *BSSy) SetTarget(id uint32) { op.TargetID = id }

// BSync waits for every thread recorded in a barrier register.
type BSync struct {
	Bar  Src
	Cond Src
}

func (*BSync) Name() string { return "bsync" }
func (*BSync) dsts() []*Dst { return nil }
func (op *BSync) srcs() []*Src { return []*Src{&op.Bar, &op.Cond} }
func (*BSync) srcTypes() []SrcType { return typesBarPred }

// Break removes the current threads from a barrier register.
type Break struct {
	BarOut Dst
	BarIn  Src
	Cond   Src
}

func (*Break) Name() string { return "break" }
func (op *Break) dsts() []*Dst { return []*Dst{&op.BarOut} }
func (op *Break) srcs() []*Src { return []*Src{&op.BarIn, &op.Cond} }
func (*Break) srcTypes() []SrcType { return typesBarPred }

// BMov moves between a barrier register and a GPR.
type BMov struct {
	Dst   Dst
	Src   Src
	Clear bool
}

func (*BMov) Name() string { return "bmov" }
func (op *BMov) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *BMov) srcs() []*Src { return []*Src{&op.Src} }
func (*BMov) srcTypes() []SrcType { return typesBMov }
func (op *BMov) Attrs() []string { return attrList(flagAttr("clear", op.Clear)) }
func (op *BMov) SetAttr(t string) bool { return setFlag(&op.Clear, "clear", t) }

// S2R reads a system register.
type S2R struct {
	Dst Dst
	Idx uint8
}

func (*S2R) Name() string { return "s2r" }
func (op *S2R) dsts() []*Dst { return []*Dst{&op.Dst} }
func (*S2R) srcs() []*Src { return nil }
func (*S2R) srcTypes() []SrcType { return nil }
func (op *S2R) Attrs() []string { return []string{kvAttr("sr", uint64(op.Idx))} }
func (op *S2R) SetAttr(t string) bool { return setUint8(&op.Idx, t, "sr") }

// Shfl exchanges values between lanes of a warp.
type Shfl struct {
	Dst      Dst
	InBounds Dst
	Src      Src
	Lane     Src
	C        Src
	Op       ShflOp
}

func (*Shfl) Name() string { return "shfl" }
func (op *Shfl) dsts() []*Dst { return []*Dst{&op.Dst, &op.InBounds} }
func (op *Shfl) srcs() []*Src { return []*Src{&op.Src, &op.Lane, &op.C} }
func (*Shfl) srcTypes() []SrcType { return typesShfl }
func (op *Shfl) Attrs() []string { return []string{op.Op.String()} }
func (op *Shfl) SetAttr(t string) bool { return setEnum(&op.Op, ShflOpNames, t) }

var typesShfl = []SrcType{SrcGPR, SrcALU, SrcALU}

// Vote evaluates a predicate across the warp.
type Vote struct {
	Ballot Dst
	Vote   Dst
	Op     VoteOp
	Pred   Src
}

func (*Vote) Name() string { return "vote" }
func (op *Vote) dsts() []*Dst { return []*Dst{&op.Ballot, &op.Vote} }
func (op *Vote) srcs() []*Src { return []*Src{&op.Pred} }
func (*Vote) srcTypes() []SrcType { return typesPred }
func (op *Vote) Attrs() []string { return []string{op.Op.String()} }
func (op *Vote) SetAttr(t string) bool { return setEnum(&op.Op, VoteOpNames, t) }

var typesPred = []SrcType{SrcPred}

// Out emits or cuts a geometry primitive on a stream.
type Out struct {
	Dst     Dst
	Handle  Src
	Stream  Src
	OutType OutType
}

func (*Out) Name() string { return "out" }
func (op *Out) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Out) srcs() []*Src { return []*Src{&op.Handle, &op.Stream} }
func (*Out) srcTypes() []SrcType { return typesOut }
func (op *Out) Attrs() []string { return []string{op.OutType.String()} }
func (op *Out) SetAttr(t string) bool { return setEnum(&op.OutType, OutTypeNames, t) }

// OutFinal flushes the geometry output handle.
type OutFinal struct {
	Handle Src
}

func (*OutFinal) Name() string { return "out_final" }
func (*OutFinal) dsts() []*Dst { return nil }
func (op *OutFinal) srcs() []*Src { return []*Src{&op.Handle} }
func (*OutFinal) srcTypes() []SrcType { return typesGPR }
