package ir

import (
	"fmt"
	"strings"
)

// RegFile identifies one of the hardware register files.
type RegFile uint8

const (
	FileGPR RegFile = iota
	FileUGPR
	FilePred
	FileUPred
	FileBar
)

var regFilePrefix = [...]string{"r", "ur", "p", "up", "b"}

func (f RegFile) String() string {
	if int(f) < len(regFilePrefix) {
		return regFilePrefix[f]
	}
	return fmt.Sprintf("file(%d)", uint8(f))
}

// IsUniform reports whether the file is shared by every thread of a warp.
func (f RegFile) IsUniform() bool {
	return f == FileUGPR || f == FileUPred
}

// IsPredicate reports whether the file holds one-bit predicates.
func (f RegFile) IsPredicate() bool {
	return f == FilePred || f == FileUPred
}

// NumRegs returns the number of addressable registers, zero register included.
func (f RegFile) NumRegs() int {
	switch f {
	case FileGPR:
		return 256
	case FileUGPR:
		return 64
	case FilePred, FileUPred:
		return 8
	case FileBar:
		return 16
	default:
		panic(fmt.Sprintf("invalid register file %d", f))
	}
}

// ZeroIdx returns the index of the hard-wired zero (or true) register.
func (f RegFile) ZeroIdx() (int, bool) {
	switch f {
	case FileGPR, FileUGPR, FilePred, FileUPred:
		return f.NumRegs() - 1, true
	default:
		return 0, false
	}
}

// SSAValue names one 32-bit (or one-bit predicate) SSA value. The register
// file lives in the top three bits and the index in the rest. Index zero is
// reserved as "none".
type SSAValue uint32

const ssaIdxBits = 29

// NewSSAValue packs a file and index into an SSAValue.
func NewSSAValue(file RegFile, idx uint32) SSAValue {
	if idx == 0 || idx >= 1<<ssaIdxBits {
		panic(fmt.Sprintf("invalid SSA index %d", idx))
	}
	return SSAValue(uint32(file)<<ssaIdxBits | idx)
}

func (v SSAValue) File() RegFile { return RegFile(uint32(v) >> ssaIdxBits) }

func (v SSAValue) Idx() uint32 { return uint32(v) & (1<<ssaIdxBits - 1) }

func (v SSAValue) String() string {
	return fmt.Sprintf("%%%s%d", v.File(), v.Idx())
}

// MaxSSAComps bounds the number of components of a vector SSA reference.
const MaxSSAComps = 8

// SSARef is a vector of one to MaxSSAComps SSA values from the same file.
type SSARef struct {
	comps uint8
	vals  [MaxSSAComps]SSAValue
}

// NewSSARef builds a reference from its components.
func NewSSARef(vals ...SSAValue) SSARef {
	if len(vals) == 0 || len(vals) > MaxSSAComps {
		panic(fmt.Sprintf("SSA reference must have 1 to %d components, got %d", MaxSSAComps, len(vals)))
	}
	var r SSARef
	r.comps = uint8(len(vals))
	for i, v := range vals {
		if v.File() != vals[0].File() {
			panic("SSA reference mixes register files")
		}
		r.vals[i] = v
	}
	return r
}

func (r SSARef) Comps() int { return int(r.comps) }

func (r SSARef) At(i int) SSAValue {
	if i < 0 || i >= int(r.comps) {
		panic(fmt.Sprintf("SSA component %d out of range", i))
	}
	return r.vals[i]
}

// Values returns a copy of the components.
func (r SSARef) Values() []SSAValue {
	return append([]SSAValue(nil), r.vals[:r.comps]...)
}

// With returns a copy with component i replaced.
func (r SSARef) With(i int, v SSAValue) SSARef {
	if i < 0 || i >= int(r.comps) {
		panic(fmt.Sprintf("SSA component %d out of range", i))
	}
	r.vals[i] = v
	return r
}

func (r SSARef) File() RegFile { return r.vals[0].File() }

func (r SSARef) IsPredicate() bool { return r.File().IsPredicate() }

func (r SSARef) IsUniform() bool { return r.File().IsUniform() }

func (r SSARef) String() string {
	if r.comps == 1 {
		return r.vals[0].String()
	}
	parts := make([]string, r.comps)
	for i := range parts {
		parts[i] = fmt.Sprint(r.vals[i].Idx())
	}
	return "%" + r.File().String() + "[" + strings.Join(parts, ",") + "]"
}

// SSAAlloc hands out monotonically increasing SSA indices for one function.
type SSAAlloc struct {
	count uint32
}

// Alloc returns a fresh scalar value in file.
func (a *SSAAlloc) Alloc(file RegFile) SSAValue {
	a.count++
	return NewSSAValue(file, a.count)
}

// AllocVec returns comps fresh values in file.
func (a *SSAAlloc) AllocVec(file RegFile, comps int) SSARef {
	vals := make([]SSAValue, comps)
	for i := range vals {
		vals[i] = a.Alloc(file)
	}
	return NewSSARef(vals...)
}

// MaxIdx returns the highest index handed out so far.
func (a *SSAAlloc) MaxIdx() uint32 { return a.count }

// Reserve makes sure future allocations do not collide with idx.
func (a *SSAAlloc) Reserve(idx uint32) {
	if idx > a.count {
		a.count = idx
	}
}

// RegRef names a contiguous run of physical registers.
type RegRef struct {
	file  RegFile
	base  uint16
	comps uint8
}

// NewRegRef validates and builds a register reference.
func NewRegRef(file RegFile, base, comps int) RegRef {
	if comps < 1 || comps > 8 {
		panic(fmt.Sprintf("register reference must have 1 to 8 components, got %d", comps))
	}
	if base < 0 || base+comps-1 >= file.NumRegs() {
		panic(fmt.Sprintf("register %s%d..%d out of range", file, base, base+comps))
	}
	return RegRef{file: file, base: uint16(base), comps: uint8(comps)}
}

// ZeroReg returns the zero (or always-true) register of file.
func ZeroReg(file RegFile) RegRef {
	idx, ok := file.ZeroIdx()
	if !ok {
		panic(fmt.Sprintf("register file %s has no zero register", file))
	}
	return NewRegRef(file, idx, 1)
}

func (r RegRef) File() RegFile { return r.file }

func (r RegRef) Base() int { return int(r.base) }

func (r RegRef) Comps() int { return int(r.comps) }

// IdxRange returns the half-open register index range covered.
func (r RegRef) IdxRange() (int, int) {
	return int(r.base), int(r.base) + int(r.comps)
}

// Comp returns the i-th scalar register of r.
func (r RegRef) Comp(i int) RegRef {
	if i < 0 || i >= int(r.comps) {
		panic(fmt.Sprintf("register component %d out of range", i))
	}
	return NewRegRef(r.file, int(r.base)+i, 1)
}

// IsZero reports whether r is the file's hard-wired zero register.
func (r RegRef) IsZero() bool {
	idx, ok := r.file.ZeroIdx()
	return ok && r.comps == 1 && int(r.base) == idx
}

func (r RegRef) String() string {
	if r.comps == 1 {
		return fmt.Sprintf("%s%d", r.file, r.base)
	}
	return fmt.Sprintf("%s%d:%d", r.file, r.base, r.comps)
}
