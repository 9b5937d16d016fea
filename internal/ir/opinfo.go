package ir

import "fmt"

// Fixed pipeline latencies in cycles.
const (
	ALULatency  = 6
	ConvLatency = 15
)

// Latency returns the fixed latency of the instruction. ok is false for
// variable-latency ops, which must be tracked with scoreboard barriers.
func (i *Instr) Latency() (cycles int, ok bool) {
	switch i.Op.(type) {
	case *FAdd, *FFma, *FMnMx, *FMul, *FSet, *FSetP, *DAdd,
		*IAbs, *INeg, *IAdd2, *IAdd3, *IMad, *IMad64, *IMnMx, *ISetP,
		*Lop2, *Lop3, *PLop3, *PSetP, *Shf, *Shl, *PopC, *Brev, *Flo,
		*Prmt, *FSwzAdd, *Vote:
		return ALULatency, true
	case *F2F, *F2I, *I2F, *FRnd, *Mov, *Sel, *ASt, *Bra, *Exit, *Nop:
		return ConvLatency, true
	case *MuFu,
		*Tex, *Tld, *Tld4, *Tmml, *Txd, *Txq,
		*SuLd, *SuSt, *SuAtom,
		*Ld, *Ldc, *St, *Atom, *AtomCas, *ALd, *Ipa, *MemBar,
		*Bar, *BSSy, *BSync, *Break, *BMov, *S2R, *Shfl, *Out, *OutFinal:
		return 0, false
	case *Undef, *PhiSrcs, *PhiDsts, *Swap, *ParCopy, *Copy, *FSOut:
		panic(fmt.Sprintf("%s is a pseudo op and has no latency", i.Op.Name()))
	default:
		panic(fmt.Sprintf("no latency information for %s", i.Op.Name()))
	}
}

// HasFixedLatency reports whether the op completes in a known cycle count.
func (i *Instr) HasFixedLatency() bool {
	_, ok := i.Latency()
	return ok
}

// CanEliminate reports whether the instruction may be removed when its
// results are unused.
func (i *Instr) CanEliminate() bool {
	switch i.Op.(type) {
	case *ASt, *SuSt, *SuAtom, *St, *Atom, *AtomCas, *MemBar, *Bra, *Exit,
		*Bar, *FSOut, *Out, *OutFinal, *BSSy, *Break, *BSync:
		return false
	default:
		return true
	}
}

// IsPseudo reports whether the op must be lowered before encoding.
func IsPseudo(op Op) bool {
	switch op.(type) {
	case *Undef, *PhiSrcs, *PhiDsts, *Swap, *ParCopy, *Copy, *FSOut:
		return true
	default:
		return false
	}
}

var opConstructors = map[string]func() Op{
	"fadd":      func() Op { return &FAdd{} },
	"ffma":      func() Op { return &FFma{} },
	"fmnmx":     func() Op { return &FMnMx{} },
	"fmul":      func() Op { return &FMul{} },
	"mufu":      func() Op { return &MuFu{} },
	"fset":      func() Op { return &FSet{} },
	"fsetp":     func() Op { return &FSetP{} },
	"dadd":      func() Op { return &DAdd{} },
	"fswzadd":   func() Op { return &FSwzAdd{} },
	"iabs":      func() Op { return &IAbs{} },
	"ineg":      func() Op { return &INeg{} },
	"iadd2":     func() Op { return &IAdd2{} },
	"iadd3":     func() Op { return &IAdd3{} },
	"imad":      func() Op { return &IMad{} },
	"imad64":    func() Op { return &IMad64{} },
	"imnmx":     func() Op { return &IMnMx{} },
	"isetp":     func() Op { return &ISetP{} },
	"lop2":      func() Op { return &Lop2{} },
	"lop3":      func() Op { return &Lop3{} },
	"psetp":     func() Op { return &PSetP{} },
	"plop3":     func() Op { return &PLop3{} },
	"popc":      func() Op { return &PopC{} },
	"brev":      func() Op { return &Brev{} },
	"flo":       func() Op { return &Flo{} },
	"prmt":      func() Op { return &Prmt{} },
	"shf":       func() Op { return &Shf{DataType: U32} },
	"shl":       func() Op { return &Shl{} },
	"mov":       func() Op { return &Mov{QuadLanes: 0xf} },
	"sel":       func() Op { return &Sel{} },
	"f2f":       func() Op { return &F2F{SrcType: F32, DstType: F32} },
	"f2i":       func() Op { return &F2I{SrcType: F32, DstType: I32} },
	"i2f":       func() Op { return &I2F{SrcType: I32, DstType: F32} },
	"frnd":      func() Op { return &FRnd{SrcType: F32, DstType: F32} },
	"tex":       func() Op { return &Tex{Mask: 0xf} },
	"tld":       func() Op { return &Tld{Mask: 0xf} },
	"tld4":      func() Op { return &Tld4{Mask: 0xf} },
	"tmml":      func() Op { return &Tmml{Mask: 0xf} },
	"txd":       func() Op { return &Txd{Mask: 0xf} },
	"txq":       func() Op { return &Txq{Mask: 0xf} },
	"suld":      func() Op { return &SuLd{Mask: 0xf} },
	"sust":      func() Op { return &SuSt{Mask: 0xf} },
	"suatom":    func() Op { return &SuAtom{} },
	"ld":        func() Op { return &Ld{Access: MemAccess{MemType: MemB32}} },
	"ldc":       func() Op { return &Ldc{MemType: MemB32} },
	"st":        func() Op { return &St{Access: MemAccess{MemType: MemB32}} },
	"atom":      func() Op { return &Atom{Access: MemAccess{MemType: MemB32}} },
	"atom_cas":  func() Op { return &AtomCas{Access: MemAccess{MemType: MemB32}} },
	"ald":       func() Op { return &ALd{Access: AttrAccess{Comps: 1}} },
	"ast":       func() Op { return &ASt{Access: AttrAccess{Comps: 1}} },
	"ipa":       func() Op { return &Ipa{} },
	"membar":    func() Op { return &MemBar{} },
	"bra":       func() Op { return &Bra{} },
	"exit":      func() Op { return &Exit{} },
	"bar":       func() Op { return &Bar{} },
	"bssy":      func() Op { return &BSSy{} },
	"bsync":     func() Op { return &BSync{} },
	"break":     func() Op { return &Break{} },
	"bmov":      func() Op { return &BMov{} },
	"s2r":       func() Op { return &S2R{} },
	"shfl":      func() Op { return &Shfl{} },
	"vote":      func() Op { return &Vote{} },
	"out":       func() Op { return &Out{} },
	"out_final": func() Op { return &OutFinal{} },
	"undef":     func() Op { return &Undef{} },
	"copy":      func() Op { return &Copy{} },
	"swap":      func() Op { return &Swap{} },
	"phi_src":   func() Op { return &PhiSrcs{} },
	"phi_dst":   func() Op { return &PhiDsts{} },
	"par_copy":  func() Op { return &ParCopy{} },
	"fs_out":    func() Op { return &FSOut{} },
	"nop":       func() Op { return &Nop{} },
}

// NewOp returns a default-initialized op for a mnemonic. Every destination
// starts as DstNone, predicate sources as true and other sources as zero.
func NewOp(name string) (Op, bool) {
	ctor, ok := opConstructors[name]
	if !ok {
		return nil, false
	}
	op := ctor()
	for _, d := range op.dsts() {
		*d = DstNone{}
	}
	types := op.srcTypes()
	for i, s := range op.srcs() {
		if types[i] == SrcPred {
			*s = BoolSrc(true)
		} else {
			*s = ZeroSrc()
		}
	}
	return op, true
}
