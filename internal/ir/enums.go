package ir

import "fmt"

// LookupName returns the index of s in names.
func LookupName[T ~uint8](names []string, s string) (T, bool) {
	for i, n := range names {
		if n == s {
			return T(i), true
		}
	}
	return 0, false
}

func enumName(names []string, i uint8) string {
	if int(i) < len(names) {
		return names[i]
	}
	return fmt.Sprintf("?%d", i)
}

// FloatCmpOp is a floating point comparison.
type FloatCmpOp uint8

const (
	FCmpOrdEq FloatCmpOp = iota
	FCmpOrdNe
	FCmpOrdLt
	FCmpOrdLe
	FCmpOrdGt
	FCmpOrdGe
	FCmpUnordEq
	FCmpUnordNe
	FCmpUnordLt
	FCmpUnordLe
	FCmpUnordGt
	FCmpUnordGe
	FCmpIsNum
	FCmpIsNan
)

var FloatCmpOpNames = []string{"eq", "ne", "lt", "le", "gt", "ge", "equ", "neu", "ltu", "leu", "gtu", "geu", "num", "nan"}

func (o FloatCmpOp) String() string { return enumName(FloatCmpOpNames, uint8(o)) }

// Flip returns the comparison with its operands swapped.
func (o FloatCmpOp) Flip() FloatCmpOp {
	switch o {
	case FCmpOrdEq, FCmpOrdNe, FCmpUnordEq, FCmpUnordNe:
		return o
	case FCmpOrdLt:
		return FCmpOrdGt
	case FCmpOrdLe:
		return FCmpOrdGe
	case FCmpOrdGt:
		return FCmpOrdLt
	case FCmpOrdGe:
		return FCmpOrdLe
	case FCmpUnordLt:
		return FCmpUnordGt
	case FCmpUnordLe:
		return FCmpUnordGe
	case FCmpUnordGt:
		return FCmpUnordLt
	case FCmpUnordGe:
		return FCmpUnordLe
	default:
		panic(fmt.Sprintf("cannot flip %s", o))
	}
}

// IntCmpOp is an integer comparison.
type IntCmpOp uint8

const (
	ICmpEq IntCmpOp = iota
	ICmpNe
	ICmpLt
	ICmpLe
	ICmpGt
	ICmpGe
)

var IntCmpOpNames = []string{"eq", "ne", "lt", "le", "gt", "ge"}

func (o IntCmpOp) String() string { return enumName(IntCmpOpNames, uint8(o)) }

// Flip returns the comparison with its operands swapped.
func (o IntCmpOp) Flip() IntCmpOp {
	switch o {
	case ICmpLt:
		return ICmpGt
	case ICmpLe:
		return ICmpGe
	case ICmpGt:
		return ICmpLt
	case ICmpGe:
		return ICmpLe
	default:
		return o
	}
}

// IntCmpType selects signed or unsigned comparison.
type IntCmpType uint8

const (
	ICmpU32 IntCmpType = iota
	ICmpI32
)

var IntCmpTypeNames = []string{"u32", "i32"}

func (t IntCmpType) String() string { return enumName(IntCmpTypeNames, uint8(t)) }

// PredSetOp combines a comparison result with an accumulator predicate.
type PredSetOp uint8

const (
	PredSetAnd PredSetOp = iota
	PredSetOr
	PredSetXor
)

var PredSetOpNames = []string{"and", "or", "xor"}

func (o PredSetOp) String() string { return enumName(PredSetOpNames, uint8(o)) }

// FRndMode is a float rounding mode.
type FRndMode uint8

const (
	RndNearestEven FRndMode = iota
	RndNegInf
	RndPosInf
	RndZero
)

var FRndModeNames = []string{"rn", "rm", "rp", "rz"}

func (m FRndMode) String() string { return enumName(FRndModeNames, uint8(m)) }

// FloatType is a float width.
type FloatType uint8

const (
	F16 FloatType = iota
	F32
	F64
)

var FloatTypeNames = []string{"f16", "f32", "f64"}

func (t FloatType) String() string { return enumName(FloatTypeNames, uint8(t)) }

// Bits returns the width in bits.
func (t FloatType) Bits() int { return 16 << t }

// IntType is an integer width and signedness.
type IntType uint8

const (
	U8 IntType = iota
	I8
	U16
	I16
	U32
	I32
	U64
	I64
)

var IntTypeNames = []string{"u8", "i8", "u16", "i16", "u32", "i32", "u64", "i64"}

func (t IntType) String() string { return enumName(IntTypeNames, uint8(t)) }

func (t IntType) IsSigned() bool { return t&1 == 1 }

// Bits returns the width in bits.
func (t IntType) Bits() int { return 8 << (t >> 1) }

// MuFuOp selects a multi-function unit operation.
type MuFuOp uint8

const (
	MuFuCos MuFuOp = iota
	MuFuSin
	MuFuExp2
	MuFuLog2
	MuFuRcp
	MuFuRsq
	MuFuRcp64H
	MuFuRsq64H
	MuFuSqrt
	MuFuTanh
)

var MuFuOpNames = []string{"cos", "sin", "ex2", "lg2", "rcp", "rsq", "rcp64h", "rsq64h", "sqrt", "tanh"}

func (o MuFuOp) String() string { return enumName(MuFuOpNames, uint8(o)) }

// MemAddrType is the width of a memory address.
type MemAddrType uint8

const (
	Addr32 MemAddrType = iota
	Addr64
)

var MemAddrTypeNames = []string{"a32", "a64"}

func (t MemAddrType) String() string { return enumName(MemAddrTypeNames, uint8(t)) }

// MemType is the type of a memory access.
type MemType uint8

const (
	MemU8 MemType = iota
	MemI8
	MemU16
	MemI16
	MemB32
	MemB64
	MemB128
)

var MemTypeNames = []string{"u8", "i8", "u16", "i16", "b32", "b64", "b128"}

func (t MemType) String() string { return enumName(MemTypeNames, uint8(t)) }

// Comps returns the number of 32-bit registers the access covers.
func (t MemType) Comps() int {
	switch t {
	case MemB64:
		return 2
	case MemB128:
		return 4
	default:
		return 1
	}
}

// MemOrder is the ordering of a memory access.
type MemOrder uint8

const (
	MemOrderWeak MemOrder = iota
	MemOrderStrong
)

var MemOrderNames = []string{"weak", "strong"}

func (o MemOrder) String() string { return enumName(MemOrderNames, uint8(o)) }

// MemScope is the visibility scope of a memory access.
type MemScope uint8

const (
	MemScopeCTA MemScope = iota
	MemScopeGPU
	MemScopeSystem
)

var MemScopeNames = []string{"cta", "gpu", "sys"}

func (s MemScope) String() string { return enumName(MemScopeNames, uint8(s)) }

// MemSpace is the address space of a memory access.
type MemSpace uint8

const (
	MemGlobal MemSpace = iota
	MemLocal
	MemShared
)

var MemSpaceNames = []string{"global", "local", "shared"}

func (s MemSpace) String() string { return enumName(MemSpaceNames, uint8(s)) }

// MemAccess describes a load or store.
type MemAccess struct {
	AddrType MemAddrType
	MemType  MemType
	Space    MemSpace
	Order    MemOrder
	Scope    MemScope
}

// AtomOp is an atomic read-modify-write operation.
type AtomOp uint8

const (
	AtomAdd AtomOp = iota
	AtomMin
	AtomMax
	AtomInc
	AtomDec
	AtomAnd
	AtomOr
	AtomXor
	AtomExch
)

var AtomOpNames = []string{"add", "min", "max", "inc", "dec", "and", "or", "xor", "exch"}

func (o AtomOp) String() string { return enumName(AtomOpNames, uint8(o)) }

// AtomType is the operand type of an atomic.
type AtomType uint8

const (
	AtomU32 AtomType = iota
	AtomI32
	AtomU64
	AtomI64
	AtomF32
	AtomF64
)

var AtomTypeNames = []string{"u32", "i32", "u64", "i64", "f32", "f64"}

func (t AtomType) String() string { return enumName(AtomTypeNames, uint8(t)) }

// Comps returns the number of 32-bit registers an operand occupies.
func (t AtomType) Comps() int {
	switch t {
	case AtomU64, AtomI64, AtomF64:
		return 2
	default:
		return 1
	}
}

// InterpFreq is the interpolation frequency of a fragment input.
type InterpFreq uint8

const (
	InterpPass InterpFreq = iota
	InterpConstant
	InterpState
)

var InterpFreqNames = []string{"pass", "constant", "state"}

func (f InterpFreq) String() string { return enumName(InterpFreqNames, uint8(f)) }

// InterpLoc is the sample location of a fragment input.
type InterpLoc uint8

const (
	InterpDefault InterpLoc = iota
	InterpCentroid
	InterpOffset
)

var InterpLocNames = []string{"default", "centroid", "offset"}

func (l InterpLoc) String() string { return enumName(InterpLocNames, uint8(l)) }

// AttrAccess describes an attribute load or store.
type AttrAccess struct {
	Addr   uint16
	Comps  uint8
	Patch  bool
	Output bool
	Flags  uint8
}

// TexDim is the dimensionality of a texture access.
type TexDim uint8

const (
	Tex1D TexDim = iota
	Tex2D
	Tex3D
	TexCube
	Tex1DArray
	Tex2DArray
	TexCubeArray
)

var TexDimNames = []string{"1d", "2d", "3d", "cube", "array1d", "array2d", "arraycube"}

func (d TexDim) String() string { return enumName(TexDimNames, uint8(d)) }

// TexLodMode selects how a texture level of detail is computed.
type TexLodMode uint8

const (
	LodAuto TexLodMode = iota
	LodZero
	LodBias
	LodLod
	LodClamp
	LodBiasClamp
)

var TexLodModeNames = []string{"auto", "lz", "lb", "ll", "lc", "lbc"}

func (m TexLodMode) String() string { return enumName(TexLodModeNames, uint8(m)) }

// TexQuery selects what a texture query returns.
type TexQuery uint8

const (
	TexQueryDimension TexQuery = iota
	TexQueryTextureType
	TexQuerySamplerPos
)

var TexQueryNames = []string{"dimension", "type", "samplerpos"}

func (q TexQuery) String() string { return enumName(TexQueryNames, uint8(q)) }

// ImageDim is the dimensionality of a surface access.
type ImageDim uint8

const (
	Image1D ImageDim = iota
	Image1DBuffer
	Image1DArray
	Image2D
	Image2DArray
	Image3D
)

var ImageDimNames = []string{"1d", "buf", "array1d", "2d", "array2d", "3d"}

func (d ImageDim) String() string { return enumName(ImageDimNames, uint8(d)) }

// ShflOp is a warp shuffle mode.
type ShflOp uint8

const (
	ShflIdx ShflOp = iota
	ShflUp
	ShflDown
	ShflBfly
)

var ShflOpNames = []string{"idx", "up", "down", "bfly"}

func (o ShflOp) String() string { return enumName(ShflOpNames, uint8(o)) }

// VoteOp is a warp vote mode.
type VoteOp uint8

const (
	VoteAll VoteOp = iota
	VoteAny
	VoteEq
)

var VoteOpNames = []string{"all", "any", "eq"}

func (o VoteOp) String() string { return enumName(VoteOpNames, uint8(o)) }

// OutType is a geometry stream output action.
type OutType uint8

const (
	OutEmit OutType = iota
	OutCut
	OutEmitThenCut
)

var OutTypeNames = []string{"emit", "cut", "emit_then_cut"}

func (t OutType) String() string { return enumName(OutTypeNames, uint8(t)) }
