package ir

var (
	typesGPR       = []SrcType{SrcGPR}
	typesSSAx2     = []SrcType{SrcSSA, SrcSSA}
	typesGPRSSA    = []SrcType{SrcGPR, SrcSSA}
	typesGPRSSAx2  = []SrcType{SrcGPR, SrcSSA, SrcSSA}
	typesGPRGPRSSA = []SrcType{SrcGPR, SrcGPR, SrcSSA}
	typesLdc       = []SrcType{SrcALU, SrcGPR}
)

// Tex samples a texture. Texture semantics are opaque to the backend; the
// fields are carried through to the encoders.
type Tex struct {
	Dsts     [2]Dst
	Resident Dst
	Srcs     [2]Src
	Dim      TexDim
	LodMode  TexLodMode
	ZCmpr    bool
	Offset   bool
	Mask     uint8
}

func (*Tex) Name() string { return "tex" }
func (op *Tex) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1], &op.Resident} }
func (op *Tex) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Tex) srcTypes() []SrcType { return typesSSAx2 }
func (op *Tex) Attrs() []string {
	return attrList(op.Dim.String(), op.LodMode.String(), flagAttr("dc", op.ZCmpr),
		flagAttr("aoffi", op.Offset), kvAttr("mask", uint64(op.Mask)))
}
func (op *Tex) SetAttr(t string) bool {
	return setEnum(&op.Dim, TexDimNames, t) || setEnum(&op.LodMode, TexLodModeNames, t) ||
		setFlag(&op.ZCmpr, "dc", t) || setFlag(&op.Offset, "aoffi", t) || setUint8(&op.Mask, t, "mask")
}

// Tld fetches a texel without filtering.
type Tld struct {
	Dsts     [2]Dst
	Resident Dst
	Srcs     [2]Src
	Dim      TexDim
	IsMS     bool
	LodMode  TexLodMode
	Offset   bool
	Mask     uint8
}

func (*Tld) Name() string { return "tld" }
func (op *Tld) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1], &op.Resident} }
func (op *Tld) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Tld) srcTypes() []SrcType { return typesSSAx2 }
func (op *Tld) Attrs() []string {
	return attrList(op.Dim.String(), op.LodMode.String(), flagAttr("ms", op.IsMS),
		flagAttr("aoffi", op.Offset), kvAttr("mask", uint64(op.Mask)))
}
func (op *Tld) SetAttr(t string) bool {
	return setEnum(&op.Dim, TexDimNames, t) || setEnum(&op.LodMode, TexLodModeNames, t) ||
		setFlag(&op.IsMS, "ms", t) || setFlag(&op.Offset, "aoffi", t) || setUint8(&op.Mask, t, "mask")
}

// Tld4 gathers one component from a 2x2 footprint.
type Tld4 struct {
	Dsts     [2]Dst
	Resident Dst
	Srcs     [2]Src
	Dim      TexDim
	Comp     uint8
	ZCmpr    bool
	Offset   bool
	Mask     uint8
}

func (*Tld4) Name() string { return "tld4" }
func (op *Tld4) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1], &op.Resident} }
func (op *Tld4) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Tld4) srcTypes() []SrcType { return typesSSAx2 }
func (op *Tld4) Attrs() []string {
	return attrList(op.Dim.String(), kvAttr("comp", uint64(op.Comp)), flagAttr("dc", op.ZCmpr),
		flagAttr("aoffi", op.Offset), kvAttr("mask", uint64(op.Mask)))
}
func (op *Tld4) SetAttr(t string) bool {
	return setEnum(&op.Dim, TexDimNames, t) || setUint8(&op.Comp, t, "comp") ||
		setFlag(&op.ZCmpr, "dc", t) || setFlag(&op.Offset, "aoffi", t) || setUint8(&op.Mask, t, "mask")
}

// Tmml queries the level of detail a sample would use.
type Tmml struct {
	Dsts [2]Dst
	Srcs [2]Src
	Dim  TexDim
	Mask uint8
}

func (*Tmml) Name() string { return "tmml" }
func (op *Tmml) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1]} }
func (op *Tmml) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Tmml) srcTypes() []SrcType { return typesSSAx2 }
func (op *Tmml) Attrs() []string {
	return []string{op.Dim.String(), kvAttr("mask", uint64(op.Mask))}
}
func (op *Tmml) SetAttr(t string) bool {
	return setEnum(&op.Dim, TexDimNames, t) || setUint8(&op.Mask, t, "mask")
}

// Txd samples with explicit derivatives.
type Txd struct {
	Dsts     [2]Dst
	Resident Dst
	Srcs     [2]Src
	Dim      TexDim
	Offset   bool
	Mask     uint8
}

func (*Txd) Name() string { return "txd" }
func (op *Txd) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1], &op.Resident} }
func (op *Txd) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Txd) srcTypes() []SrcType { return typesSSAx2 }
func (op *Txd) Attrs() []string {
	return attrList(op.Dim.String(), flagAttr("aoffi", op.Offset), kvAttr("mask", uint64(op.Mask)))
}
func (op *Txd) SetAttr(t string) bool {
	return setEnum(&op.Dim, TexDimNames, t) || setFlag(&op.Offset, "aoffi", t) || setUint8(&op.Mask, t, "mask")
}

// Txq queries texture properties.
type Txq struct {
	Dsts  [2]Dst
	Src   Src
	Query TexQuery
	Mask  uint8
}

func (*Txq) Name() string { return "txq" }
func (op *Txq) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1]} }
func (op *Txq) srcs() []*Src { return []*Src{&op.Src} }
func (*Txq) srcTypes() []SrcType { return typesSSA }
func (op *Txq) Attrs() []string {
	return []string{op.Query.String(), kvAttr("mask", uint64(op.Mask))}
}
func (op *Txq) SetAttr(t string) bool {
	return setEnum(&op.Query, TexQueryNames, t) || setUint8(&op.Mask, t, "mask")
}

var typesSSA = []SrcType{SrcSSA}

// SuLd loads from a surface.
type SuLd struct {
	Dst      Dst
	Resident Dst
	Dim      ImageDim
	Order    MemOrder
	Scope    MemScope
	Mask     uint8
	Handle   Src
	Coord    Src
}

func (*SuLd) Name() string { return "suld" }
func (op *SuLd) dsts() []*Dst { return []*Dst{&op.Dst, &op.Resident} }
func (op *SuLd) srcs() []*Src { return []*Src{&op.Handle, &op.Coord} }
func (*SuLd) srcTypes() []SrcType { return typesGPRSSA }
func (op *SuLd) Attrs() []string {
	return []string{op.Dim.String(), op.Order.String(), op.Scope.String(), kvAttr("mask", uint64(op.Mask))}
}
func (op *SuLd) SetAttr(t string) bool {
	return setEnum(&op.Dim, ImageDimNames, t) || setEnum(&op.Order, MemOrderNames, t) ||
		setEnum(&op.Scope, MemScopeNames, t) || setUint8(&op.Mask, t, "mask")
}

// SuSt stores to a surface.
type SuSt struct {
	Dim    ImageDim
	Order  MemOrder
	Scope  MemScope
	Mask   uint8
	Handle Src
	Coord  Src
	Data   Src
}

func (*SuSt) Name() string { return "sust" }
func (*SuSt) dsts() []*Dst { return nil }
func (op *SuSt) srcs() []*Src { return []*Src{&op.Handle, &op.Coord, &op.Data} }
func (*SuSt) srcTypes() []SrcType { return typesGPRSSAx2 }
func (op *SuSt) Attrs() []string {
	return []string{op.Dim.String(), op.Order.String(), op.Scope.String(), kvAttr("mask", uint64(op.Mask))}
}
func (op *SuSt) SetAttr(t string) bool {
	return setEnum(&op.Dim, ImageDimNames, t) || setEnum(&op.Order, MemOrderNames, t) ||
		setEnum(&op.Scope, MemScopeNames, t) || setUint8(&op.Mask, t, "mask")
}

// SuAtom performs an atomic on a surface.
type SuAtom struct {
	Dst      Dst
	Resident Dst
	Dim      ImageDim
	AtomOp   AtomOp
	AtomType AtomType
	Order    MemOrder
	Scope    MemScope
	Handle   Src
	Coord    Src
	Data     Src
}

func (*SuAtom) Name() string { return "suatom" }
func (op *SuAtom) dsts() []*Dst { return []*Dst{&op.Dst, &op.Resident} }
func (op *SuAtom) srcs() []*Src { return []*Src{&op.Handle, &op.Coord, &op.Data} }
func (*SuAtom) srcTypes() []SrcType { return typesGPRSSAx2 }
func (op *SuAtom) Attrs() []string {
	return []string{op.Dim.String(), "op=" + op.AtomOp.String(), "type=" + op.AtomType.String(),
		op.Order.String(), op.Scope.String()}
}
func (op *SuAtom) SetAttr(t string) bool {
	return setEnum(&op.Dim, ImageDimNames, t) || setKVEnum(&op.AtomOp, AtomOpNames, t, "op") ||
		setKVEnum(&op.AtomType, AtomTypeNames, t, "type") || setEnum(&op.Order, MemOrderNames, t) ||
		setEnum(&op.Scope, MemScopeNames, t)
}

// Ld loads from memory at Addr+Offset.
type Ld struct {
	Dst    Dst
	Addr   Src
	Offset int32
	Access MemAccess
}

func (*Ld) Name() string { return "ld" }
func (op *Ld) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Ld) srcs() []*Src { return []*Src{&op.Addr} }
func (*Ld) srcTypes() []SrcType { return typesGPR }
func (op *Ld) Attrs() []string {
	return append(memAccessAttrs(op.Access), offsetAttr(op.Offset))
}
func (op *Ld) SetAttr(t string) bool {
	return setMemAccess(&op.Access, t) || setOffset(&op.Offset, t)
}

func offsetAttr(off int32) string {
	return "off=" + itoa(int64(off))
}

func setOffset(dst *int32, tok string) bool {
	n, ok := parseKVSigned(tok, "off")
	if !ok || n < -1<<31 || n >= 1<<31 {
		return false
	}
	*dst = int32(n)
	return true
}

// Ldc loads from a constant buffer at a dynamic offset.
type Ldc struct {
	Dst     Dst
	CB      Src
	Offset  Src
	MemType MemType
}

func (*Ldc) Name() string { return "ldc" }
func (op *Ldc) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Ldc) srcs() []*Src { return []*Src{&op.CB, &op.Offset} }
func (*Ldc) srcTypes() []SrcType { return typesLdc }
func (op *Ldc) Attrs() []string { return []string{op.MemType.String()} }
func (op *Ldc) SetAttr(t string) bool { return setEnum(&op.MemType, MemTypeNames, t) }

// St stores Data to memory at Addr+Offset.
type St struct {
	Addr   Src
	Data   Src
	Offset int32
	Access MemAccess
}

func (*St) Name() string { return "st" }
func (*St) dsts() []*Dst { return nil }
func (op *St) srcs() []*Src { return []*Src{&op.Addr, &op.Data} }
func (*St) srcTypes() []SrcType { return typesGPRSSA }
func (op *St) Attrs() []string {
	return append(memAccessAttrs(op.Access), offsetAttr(op.Offset))
}
func (op *St) SetAttr(t string) bool {
	return setMemAccess(&op.Access, t) || setOffset(&op.Offset, t)
}

// Atom performs an atomic read-modify-write on memory.
type Atom struct {
	Dst      Dst
	Addr     Src
	Data     Src
	AtomOp   AtomOp
	AtomType AtomType
	Offset   int32
	Access   MemAccess
}

func (*Atom) Name() string { return "atom" }
func (op *Atom) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Atom) srcs() []*Src { return []*Src{&op.Addr, &op.Data} }
func (*Atom) srcTypes() []SrcType { return typesGPRSSA }
func (op *Atom) Attrs() []string {
	return append([]string{"op=" + op.AtomOp.String(), "type=" + op.AtomType.String()},
		append(memAccessAttrs(op.Access), offsetAttr(op.Offset))...)
}
func (op *Atom) SetAttr(t string) bool {
	return setKVEnum(&op.AtomOp, AtomOpNames, t, "op") || setKVEnum(&op.AtomType, AtomTypeNames, t, "type") ||
		setMemAccess(&op.Access, t) || setOffset(&op.Offset, t)
}

// AtomCas is an atomic compare-and-swap.
type AtomCas struct {
	Dst      Dst
	Addr     Src
	Cmpr     Src
	Data     Src
	AtomType AtomType
	Offset   int32
	Access   MemAccess
}

func (*AtomCas) Name() string { return "atom_cas" }
func (op *AtomCas) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *AtomCas) srcs() []*Src { return []*Src{&op.Addr, &op.Cmpr, &op.Data} }
func (*AtomCas) srcTypes() []SrcType { return typesGPRSSAx2 }
func (op *AtomCas) Attrs() []string {
	return append([]string{"type=" + op.AtomType.String()},
		append(memAccessAttrs(op.Access), offsetAttr(op.Offset))...)
}
func (op *AtomCas) SetAttr(t string) bool {
	return setKVEnum(&op.AtomType, AtomTypeNames, t, "type") ||
		setMemAccess(&op.Access, t) || setOffset(&op.Offset, t)
}

// ALd loads a vertex attribute.
type ALd struct {
	Dst    Dst
	Vtx    Src
	Offset Src
	Access AttrAccess
}

func (*ALd) Name() string { return "ald" }
func (op *ALd) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *ALd) srcs() []*Src { return []*Src{&op.Vtx, &op.Offset} }
func (*ALd) srcTypes() []SrcType { return typesGPRx2 }
func (op *ALd) Attrs() []string { return attrAccessAttrs(op.Access) }
func (op *ALd) SetAttr(t string) bool { return setAttrAccess(&op.Access, t) }

// ASt stores a vertex attribute.
type ASt struct {
	Vtx    Src
	Offset Src
	Data   Src
	Access AttrAccess
}

func (*ASt) Name() string { return "ast" }
func (*ASt) dsts() []*Dst { return nil }
func (op *ASt) srcs() []*Src { return []*Src{&op.Vtx, &op.Offset, &op.Data} }
func (*ASt) srcTypes() []SrcType { return typesGPRGPRSSA }
func (op *ASt) Attrs() []string { return attrAccessAttrs(op.Access) }
func (op *ASt) SetAttr(t string) bool { return setAttrAccess(&op.Access, t) }

// Ipa interpolates a fragment input.
type Ipa struct {
	Dst    Dst
	Addr   uint16
	Freq   InterpFreq
	Loc    InterpLoc
	Offset Src
}

func (*Ipa) Name() string { return "ipa" }
func (op *Ipa) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Ipa) srcs() []*Src { return []*Src{&op.Offset} }
func (*Ipa) srcTypes() []SrcType { return typesGPR }
func (op *Ipa) Attrs() []string {
	return []string{kvAttr("addr", uint64(op.Addr)), op.Freq.String(), op.Loc.String()}
}
func (op *Ipa) SetAttr(t string) bool {
	return setUint16(&op.Addr, t, "addr") || setEnum(&op.Freq, InterpFreqNames, t) ||
		setEnum(&op.Loc, InterpLocNames, t)
}

// MemBar orders memory accesses within Scope.
type MemBar struct {
	Scope MemScope
}

func (*MemBar) Name() string { return "membar" }
func (*MemBar) dsts() []*Dst { return nil }
func (*MemBar) srcs() []*Src { return nil }
func (*MemBar) srcTypes() []SrcType { return nil }
func (op *MemBar) Attrs() []string { return []string{op.Scope.String()} }
func (op *MemBar) SetAttr(t string) bool { return setEnum(&op.Scope, MemScopeNames, t) }
