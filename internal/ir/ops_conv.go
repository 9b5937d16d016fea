package ir

// F2F converts between float widths.
type F2F struct {
	Dst     Dst
	Src     Src
	SrcType FloatType
	DstType FloatType
	Rnd     FRndMode
	Ftz     bool
	High    bool
}

func (*F2F) Name() string { return "f2f" }
func (op *F2F) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *F2F) srcs() []*Src { return []*Src{&op.Src} }
func (*F2F) srcTypes() []SrcType { return typesF32 }
func (op *F2F) Attrs() []string {
	return attrList("dst="+op.DstType.String(), "src="+op.SrcType.String(), rndAttr(op.Rnd),
		flagAttr("ftz", op.Ftz), flagAttr("hi", op.High))
}
func (op *F2F) SetAttr(t string) bool {
	return setKVEnum(&op.DstType, FloatTypeNames, t, "dst") ||
		setKVEnum(&op.SrcType, FloatTypeNames, t, "src") ||
		setEnum(&op.Rnd, FRndModeNames, t) ||
		setFlag(&op.Ftz, "ftz", t) || setFlag(&op.High, "hi", t)
}

// F2I converts a float to an integer.
type F2I struct {
	Dst     Dst
	Src     Src
	SrcType FloatType
	DstType IntType
	Rnd     FRndMode
}

func (*F2I) Name() string { return "f2i" }
func (op *F2I) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *F2I) srcs() []*Src { return []*Src{&op.Src} }
func (*F2I) srcTypes() []SrcType { return typesF32 }
func (op *F2I) Attrs() []string {
	return attrList(op.DstType.String(), op.SrcType.String(), rndAttr(op.Rnd))
}
func (op *F2I) SetAttr(t string) bool {
	return setEnum(&op.DstType, IntTypeNames, t) ||
		setEnum(&op.SrcType, FloatTypeNames, t) ||
		setEnum(&op.Rnd, FRndModeNames, t)
}

// I2F converts an integer to a float.
type I2F struct {
	Dst     Dst
	Src     Src
	DstType FloatType
	SrcType IntType
	Rnd     FRndMode
}

func (*I2F) Name() string { return "i2f" }
func (op *I2F) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *I2F) srcs() []*Src { return []*Src{&op.Src} }
func (*I2F) srcTypes() []SrcType { return typesALU }
func (op *I2F) Attrs() []string {
	return attrList(op.DstType.String(), op.SrcType.String(), rndAttr(op.Rnd))
}
func (op *I2F) SetAttr(t string) bool {
	return setEnum(&op.DstType, FloatTypeNames, t) ||
		setEnum(&op.SrcType, IntTypeNames, t) ||
		setEnum(&op.Rnd, FRndModeNames, t)
}

// FRnd rounds a float to an integral value.
type FRnd struct {
	Dst     Dst
	Src     Src
	DstType FloatType
	SrcType FloatType
	Rnd     FRndMode
}

func (*FRnd) Name() string { return "frnd" }
func (op *FRnd) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *FRnd) srcs() []*Src { return []*Src{&op.Src} }
func (*FRnd) srcTypes() []SrcType { return typesF32 }
func (op *FRnd) Attrs() []string {
	return attrList("dst="+op.DstType.String(), "src="+op.SrcType.String(), rndAttr(op.Rnd))
}
func (op *FRnd) SetAttr(t string) bool {
	return setKVEnum(&op.DstType, FloatTypeNames, t, "dst") ||
		setKVEnum(&op.SrcType, FloatTypeNames, t, "src") ||
		setEnum(&op.Rnd, FRndModeNames, t)
}
