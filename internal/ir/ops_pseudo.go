package ir

import (
	"strconv"
	"strings"
)

// Pseudo ops exist only between passes and never reach an encoder.

// Undef defines a value with unspecified contents.
type Undef struct {
	Dst Dst
}

func (*Undef) Name() string { return "undef" }
func (op *Undef) dsts() []*Dst { return []*Dst{&op.Dst} }
func (*Undef) srcs() []*Src { return nil }
func (*Undef) srcTypes() []SrcType { return nil }

// Copy is a move that register assignment may coalesce away.
type Copy struct {
	Dst Dst
	Src Src
}

func (*Copy) Name() string { return "copy" }
func (op *Copy) dsts() []*Dst { return []*Dst{&op.Dst} }
func (op *Copy) srcs() []*Src { return []*Src{&op.Src} }
func (*Copy) srcTypes() []SrcType { return typesALU }

// Swap exchanges two registers.
type Swap struct {
	Dsts [2]Dst
	Srcs [2]Src
}

func (*Swap) Name() string { return "swap" }
func (op *Swap) dsts() []*Dst { return []*Dst{&op.Dsts[0], &op.Dsts[1]} }
func (op *Swap) srcs() []*Src { return []*Src{&op.Srcs[0], &op.Srcs[1]} }
func (*Swap) srcTypes() []SrcType { return typesGPRx2 }

func ptrs[T any](s []T) []*T {
	out := make([]*T, len(s))
	for i := range s {
		out[i] = &s[i]
	}
	return out
}

func repeatType(t SrcType, n int) []SrcType {
	out := make([]SrcType, n)
	for i := range out {
		out[i] = t
	}
	return out
}

// PhiSrcs sits at the end of a predecessor block and feeds phi IDs[i] with
// Srcs[i].
type PhiSrcs struct {
	IDs  []uint32
	Srcs []Src
}

// Add appends one incoming value.
func (op *PhiSrcs) Add(id uint32, src Src) {
	op.IDs = append(op.IDs, id)
	op.Srcs = append(op.Srcs, src)
}

func (*PhiSrcs) Name() string { return "phi_src" }
func (*PhiSrcs) dsts() []*Dst { return nil }
func (op *PhiSrcs) srcs() []*Src { return ptrs(op.Srcs) }
func (op *PhiSrcs) srcTypes() []SrcType { return repeatType(SrcGPR, len(op.Srcs)) }

// PhiDsts sits at the top of a join block and defines Dsts[i] from phi
// IDs[i].
type PhiDsts struct {
	IDs  []uint32
	Dsts []Dst
}

// Add appends one phi result.
func (op *PhiDsts) Add(id uint32, dst Dst) {
	op.IDs = append(op.IDs, id)
	op.Dsts = append(op.Dsts, dst)
}

func (*PhiDsts) Name() string { return "phi_dst" }
func (op *PhiDsts) dsts() []*Dst { return ptrs(op.Dsts) }
func (*PhiDsts) srcs() []*Src { return nil }
func (*PhiDsts) srcTypes() []SrcType { return nil }

// ParCopy performs every copy simultaneously.
type ParCopy struct {
	Dsts []Dst
	Srcs []Src
}

// Push appends one copy.
func (op *ParCopy) Push(dst Dst, src Src) {
	op.Dsts = append(op.Dsts, dst)
	op.Srcs = append(op.Srcs, src)
}

func (*ParCopy) Name() string { return "par_copy" }
func (op *ParCopy) dsts() []*Dst { return ptrs(op.Dsts) }
func (op *ParCopy) srcs() []*Src { return ptrs(op.Srcs) }
func (op *ParCopy) srcTypes() []SrcType { return repeatType(SrcGPR, len(op.Srcs)) }

// FSOut binds the fragment outputs to registers at the end of the shader.
type FSOut struct {
	Srcs []Src
}

func (*FSOut) Name() string { return "fs_out" }
func (*FSOut) dsts() []*Dst { return nil }
func (op *FSOut) srcs() []*Src { return ptrs(op.Srcs) }
func (op *FSOut) srcTypes() []SrcType { return repeatType(SrcGPR, len(op.Srcs)) }

// Nop does nothing. Encoders use it for padding.
type Nop struct{}

func (*Nop) Name() string { return "nop" }
func (*Nop) dsts() []*Dst { return nil }
func (*Nop) srcs() []*Src { return nil }
func (*Nop) srcTypes() []SrcType { return nil }

// Variadic ops size their operand lists on demand. The text parser uses this
// before filling operands in place.
type Variadic interface {
	Resize(dsts, srcs int)
}

func resize[T any](s []T, n int, fill T) []T {
	if len(s) >= n {
		return s[:n]
	}
	for len(s) < n {
		s = append(s, fill)
	}
	return s
}

func (op *PhiSrcs) Resize(_, srcs int) {
	op.Srcs = resize(op.Srcs, srcs, ZeroSrc())
	op.IDs = resize(op.IDs, srcs, 0)
}

func (op *PhiDsts) Resize(dsts, _ int) {
	op.Dsts = resize[Dst](op.Dsts, dsts, DstNone{})
	op.IDs = resize(op.IDs, dsts, 0)
}

func (op *ParCopy) Resize(dsts, srcs int) {
	op.Dsts = resize[Dst](op.Dsts, dsts, DstNone{})
	op.Srcs = resize(op.Srcs, srcs, ZeroSrc())
}

func (op *FSOut) Resize(_, srcs int) {
	op.Srcs = resize(op.Srcs, srcs, ZeroSrc())
}

func idsAttr(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = itoa(int64(id))
	}
	return "ids=" + strings.Join(parts, ":")
}

func parseIDs(tok string) ([]uint32, bool) {
	k, v, ok := splitKV(tok)
	if !ok || k != "ids" {
		return nil, false
	}
	var ids []uint32
	for _, part := range strings.Split(v, ":") {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, false
		}
		ids = append(ids, uint32(n))
	}
	return ids, true
}

func (op *PhiSrcs) Attrs() []string { return []string{idsAttr(op.IDs)} }

func (op *PhiSrcs) SetAttr(t string) bool {
	ids, ok := parseIDs(t)
	if ok {
		op.IDs = ids
	}
	return ok
}

func (op *PhiDsts) Attrs() []string { return []string{idsAttr(op.IDs)} }

func (op *PhiDsts) SetAttr(t string) bool {
	ids, ok := parseIDs(t)
	if ok {
		op.IDs = ids
	}
	return ok
}
