package ir

import "fmt"

// SrcRef is implemented by every kind of source reference.
type SrcRef interface {
	isSrcRef()
}

// SrcZero reads as integer zero.
type SrcZero struct{}

// SrcTrue reads as the true predicate.
type SrcTrue struct{}

// SrcFalse reads as the false predicate.
type SrcFalse struct{}

// Imm32 is a 32-bit immediate.
type Imm32 uint32

// CBuf selects a constant buffer.
type CBuf interface {
	isCBuf()
}

// CBufBinding is a constant buffer bound at a fixed slot.
type CBufBinding uint8

// CBufBindlessSSA addresses a constant buffer through an SSA handle.
type CBufBindlessSSA struct{ Handle SSAValue }

// CBufBindlessGPR addresses a constant buffer through a register handle.
type CBufBindlessGPR struct{ Handle RegRef }

func (CBufBinding) isCBuf()     {}
func (CBufBindlessSSA) isCBuf() {}
func (CBufBindlessGPR) isCBuf() {}

// CBufRef is a byte offset into a constant buffer.
type CBufRef struct {
	Buf    CBuf
	Offset uint16
}

func (SrcZero) isSrcRef()  {}
func (SrcTrue) isSrcRef()  {}
func (SrcFalse) isSrcRef() {}
func (Imm32) isSrcRef()    {}
func (CBufRef) isSrcRef()  {}
func (SSARef) isSrcRef()   {}
func (RegRef) isSrcRef()   {}

// SrcMod is a source modifier applied on read.
type SrcMod uint8

const (
	ModNone SrcMod = iota
	ModFAbs
	ModFNeg
	ModFNegAbs
	ModINeg
	ModBNot
)

func (m SrcMod) IsNone() bool { return m == ModNone }

// HasFAbs reports whether the modifier takes a float absolute value.
func (m SrcMod) HasFAbs() bool {
	switch m {
	case ModNone, ModFNeg:
		return false
	case ModFAbs, ModFNegAbs:
		return true
	default:
		panic("not a float source modifier")
	}
}

// HasFNeg reports whether the modifier negates a float.
func (m SrcMod) HasFNeg() bool {
	switch m {
	case ModNone, ModFAbs:
		return false
	case ModFNeg, ModFNegAbs:
		return true
	default:
		panic("not a float source modifier")
	}
}

// IsINeg reports whether the modifier is an integer negate.
func (m SrcMod) IsINeg() bool {
	switch m {
	case ModNone:
		return false
	case ModINeg:
		return true
	default:
		panic("not an integer source modifier")
	}
}

// IsBNot reports whether the modifier is a bitwise not.
func (m SrcMod) IsBNot() bool {
	switch m {
	case ModNone:
		return false
	case ModBNot:
		return true
	default:
		panic("not a bitwise source modifier")
	}
}

// IsALU reports whether an ALU-class source may carry the modifier.
func (m SrcMod) IsALU() bool {
	return m != ModBNot
}

// FAbs returns the modifier with an absolute value applied on top.
func (m SrcMod) FAbs() SrcMod {
	switch m {
	case ModNone, ModFAbs, ModFNeg, ModFNegAbs:
		return ModFAbs
	default:
		panic("cannot take the absolute value of a non-float source")
	}
}

// FNeg returns the modifier with a float negate applied on top.
func (m SrcMod) FNeg() SrcMod {
	switch m {
	case ModNone:
		return ModFNeg
	case ModFAbs:
		return ModFNegAbs
	case ModFNeg:
		return ModNone
	case ModFNegAbs:
		return ModFAbs
	default:
		panic("cannot float-negate a non-float source")
	}
}

// INeg returns the modifier with an integer negate applied on top.
func (m SrcMod) INeg() SrcMod {
	switch m {
	case ModNone:
		return ModINeg
	case ModINeg:
		return ModNone
	default:
		panic("cannot integer-negate a non-integer source")
	}
}

// BNot returns the modifier with a bitwise not applied on top.
func (m SrcMod) BNot() SrcMod {
	switch m {
	case ModNone:
		return ModBNot
	case ModBNot:
		return ModNone
	default:
		panic("cannot bitwise-not a non-boolean source")
	}
}

// Modify applies other on top of m.
func (m SrcMod) Modify(other SrcMod) SrcMod {
	switch other {
	case ModNone:
		return m
	case ModFAbs:
		return m.FAbs()
	case ModFNeg:
		return m.FNeg()
	case ModFNegAbs:
		return m.FAbs().FNeg()
	case ModINeg:
		return m.INeg()
	case ModBNot:
		return m.BNot()
	default:
		panic(fmt.Sprintf("invalid source modifier %d", other))
	}
}

// SrcType classifies what a source slot accepts.
type SrcType uint8

const (
	SrcSSA SrcType = iota
	SrcGPR
	SrcALU
	SrcF32
	SrcF64
	SrcI32
	SrcB32
	SrcPred
	SrcBar
)

var srcTypeNames = [...]string{"ssa", "gpr", "alu", "f32", "f64", "i32", "b32", "pred", "bar"}

func (t SrcType) String() string { return srcTypeNames[t] }

// Src is an operand read by an instruction.
type Src struct {
	Ref SrcRef
	Mod SrcMod
}

// NewSrc wraps a reference with no modifier.
func NewSrc(ref SrcRef) Src { return Src{Ref: ref} }

// ZeroSrc returns the zero source.
func ZeroSrc() Src { return Src{Ref: SrcZero{}} }

// ImmSrc returns an immediate source.
func ImmSrc(v uint32) Src { return Src{Ref: Imm32(v)} }

// BoolSrc returns a constant predicate source.
func BoolSrc(b bool) Src {
	if b {
		return Src{Ref: SrcTrue{}}
	}
	return Src{Ref: SrcFalse{}}
}

func (s Src) FAbs() Src { s.Mod = s.Mod.FAbs(); return s }
func (s Src) FNeg() Src { s.Mod = s.Mod.FNeg(); return s }
func (s Src) INeg() Src { s.Mod = s.Mod.INeg(); return s }
func (s Src) BNot() Src { s.Mod = s.Mod.BNot(); return s }

// IsZero reports whether s is an unmodified zero.
func (s Src) IsZero() bool {
	switch r := s.Ref.(type) {
	case SrcZero:
		return s.Mod.IsNone()
	case Imm32:
		return r == 0 && s.Mod.IsNone()
	default:
		return false
	}
}

// AsSSA returns the SSA reference if s is one.
func (s Src) AsSSA() (SSARef, bool) {
	r, ok := s.Ref.(SSARef)
	return r, ok
}

// AsReg returns the register reference if s is one.
func (s Src) AsReg() (RegRef, bool) {
	r, ok := s.Ref.(RegRef)
	return r, ok
}

// AsImm returns the immediate if s is one.
func (s Src) AsImm() (uint32, bool) {
	r, ok := s.Ref.(Imm32)
	return uint32(r), ok
}

// AsBool returns the constant predicate value of s, honoring BNot.
func (s Src) AsBool() (bool, bool) {
	var v bool
	switch s.Ref.(type) {
	case SrcTrue:
		v = true
	case SrcFalse:
		v = false
	default:
		return false, false
	}
	if s.Mod == ModBNot {
		v = !v
	}
	return v, true
}

// IsUniform reports whether the referenced value is warp-uniform.
func (s Src) IsUniform() bool {
	switch r := s.Ref.(type) {
	case SrcZero, SrcTrue, SrcFalse, Imm32, CBufRef:
		return true
	case SSARef:
		return r.IsUniform()
	case RegRef:
		return r.File().IsUniform()
	default:
		return false
	}
}

// IsPredicate reports whether the reference holds a predicate.
func (s Src) IsPredicate() bool {
	switch r := s.Ref.(type) {
	case SrcTrue, SrcFalse:
		return true
	case SSARef:
		return r.IsPredicate()
	case RegRef:
		return r.File().IsPredicate()
	default:
		return false
	}
}

func refIsALU(ref SrcRef) bool {
	switch r := ref.(type) {
	case SrcZero, Imm32, CBufRef:
		return true
	case SSARef:
		return !r.IsPredicate() && r.File() != FileBar
	case RegRef:
		return !r.File().IsPredicate() && r.File() != FileBar
	default:
		return false
	}
}

func refIsBar(ref SrcRef) bool {
	switch r := ref.(type) {
	case SSARef:
		return r.File() == FileBar
	case RegRef:
		return r.File() == FileBar
	default:
		return false
	}
}

// SupportsType reports whether s is acceptable in a slot of type t.
func (s Src) SupportsType(t SrcType) bool {
	switch t {
	case SrcSSA:
		_, ok := s.Ref.(SSARef)
		_, isReg := s.Ref.(RegRef)
		return s.Mod.IsNone() && (ok || isReg)
	case SrcGPR:
		if !s.Mod.IsNone() {
			return false
		}
		switch s.Ref.(type) {
		case SrcZero, SSARef, RegRef:
			return refIsALU(s.Ref)
		}
		return false
	case SrcALU:
		return s.Mod.IsALU() && refIsALU(s.Ref)
	case SrcF32, SrcF64:
		switch s.Mod {
		case ModNone, ModFAbs, ModFNeg, ModFNegAbs:
			return refIsALU(s.Ref)
		}
		return false
	case SrcI32:
		return (s.Mod == ModNone || s.Mod == ModINeg) && refIsALU(s.Ref)
	case SrcB32:
		return (s.Mod == ModNone || s.Mod == ModBNot) && refIsALU(s.Ref)
	case SrcPred:
		return (s.Mod == ModNone || s.Mod == ModBNot) && s.IsPredicate()
	case SrcBar:
		return s.Mod.IsNone() && refIsBar(s.Ref)
	default:
		panic(fmt.Sprintf("invalid source type %d", t))
	}
}

// SSAValues returns every SSA value s reads, bindless handles included.
func (s Src) SSAValues() []SSAValue {
	switch r := s.Ref.(type) {
	case SSARef:
		return r.Values()
	case CBufRef:
		if b, ok := r.Buf.(CBufBindlessSSA); ok {
			return []SSAValue{b.Handle}
		}
	}
	return nil
}

// Reg returns the physical registers s reads, bindless handles included.
func (s Src) Reg() (RegRef, bool) {
	switch r := s.Ref.(type) {
	case RegRef:
		return r, true
	case CBufRef:
		if b, ok := r.Buf.(CBufBindlessGPR); ok {
			return b.Handle, true
		}
	}
	return RegRef{}, false
}

// Dst is implemented by every kind of destination.
type Dst interface {
	isDst()
}

// DstNone discards the result.
type DstNone struct{}

func (DstNone) isDst() {}
func (SSARef) isDst()  {}
func (RegRef) isDst()  {}

// PredRef is implemented by every kind of instruction guard.
type PredRef interface {
	isPredRef()
}

// PredNone means the instruction always executes (or never, if inverted).
type PredNone struct{}

func (PredNone) isPredRef() {}
func (SSAValue) isPredRef() {}
func (RegRef) isPredRef()   {}

// Pred guards an instruction.
type Pred struct {
	Ref PredRef
	Inv bool
}

// PredTrue returns the always-true guard.
func PredTrue() Pred { return Pred{Ref: PredNone{}} }

func (p Pred) isNone() bool {
	if p.Ref == nil {
		return true
	}
	_, ok := p.Ref.(PredNone)
	return ok
}

// IsTrue reports whether the instruction always executes.
func (p Pred) IsTrue() bool { return p.isNone() && !p.Inv }

// IsFalse reports whether the instruction never executes.
func (p Pred) IsFalse() bool { return p.isNone() && p.Inv }
