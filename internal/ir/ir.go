// Package ir defines the SSA machine IR shared by every backend pass.
package ir

import "fmt"

// Op is implemented by every instruction opcode. Dsts and Srcs return
// pointers into the op so that passes can rewrite operands in place.
type Op interface {
	Name() string
	dsts() []*Dst
	srcs() []*Src
	srcTypes() []SrcType
}

// Attributed ops carry mnemonic suffixes such as comparison or rounding
// modes. Attrs and SetAttr round-trip through the text form.
type Attributed interface {
	Attrs() []string
	SetAttr(tok string) bool
}

// Instr is one machine instruction.
type Instr struct {
	Op   Op
	Pred Pred
	Deps InstrDeps
}

// NewInstr wraps op in an unpredicated instruction with default dependency
// information.
func NewInstr(op Op) *Instr {
	return &Instr{Op: op, Pred: PredTrue(), Deps: NewInstrDeps()}
}

func (i *Instr) Dsts() []*Dst { return i.Op.dsts() }

func (i *Instr) Srcs() []*Src { return i.Op.srcs() }

// SrcTypes returns one type class per element of Srcs.
func (i *Instr) SrcTypes() []SrcType { return i.Op.srcTypes() }

// IsBranch reports whether the instruction ends its block.
func (i *Instr) IsBranch() bool {
	switch i.Op.(type) {
	case *Bra, *Exit:
		return true
	default:
		return false
	}
}

// ForEachSSAUse calls f for every SSA value read, the guard included.
func (i *Instr) ForEachSSAUse(f func(SSAValue)) {
	if v, ok := i.Pred.Ref.(SSAValue); ok {
		f(v)
	}
	for _, s := range i.Srcs() {
		for _, v := range s.SSAValues() {
			f(v)
		}
	}
}

// ForEachSSADef calls f for every SSA value written.
func (i *Instr) ForEachSSADef(f func(SSAValue)) {
	for _, d := range i.Dsts() {
		if r, ok := (*d).(SSARef); ok {
			for k := 0; k < r.Comps(); k++ {
				f(r.At(k))
			}
		}
	}
}

func (i *Instr) String() string { return FormatInstr(i) }

// Instruction timing limits and the number of hardware scoreboard barriers.
const (
	MinInstrDelay = 1
	MaxInstrDelay = 15
	NumBarriers   = 6
)

// InstrDeps carries the scheduling control bits of an instruction.
type InstrDeps struct {
	Delay     uint8
	Yield     bool
	WrBar     int8
	RdBar     int8
	WaitMask  uint8
	ReuseMask uint8
}

// NewInstrDeps returns the conservative defaults: full delay, no barriers.
func NewInstrDeps() InstrDeps {
	return InstrDeps{Delay: MaxInstrDelay, WrBar: -1, RdBar: -1}
}

// SetDelay sets the stall count.
func (d *InstrDeps) SetDelay(delay int) {
	if delay < MinInstrDelay || delay > MaxInstrDelay {
		panic(fmt.Sprintf("instruction delay %d out of range", delay))
	}
	d.Delay = uint8(delay)
}

// SetWrBar makes the instruction signal barrier idx when its results land.
func (d *InstrDeps) SetWrBar(idx int) {
	checkBarrier(idx)
	d.WrBar = int8(idx)
}

// SetRdBar makes the instruction signal barrier idx when its sources are read.
func (d *InstrDeps) SetRdBar(idx int) {
	checkBarrier(idx)
	d.RdBar = int8(idx)
}

// AddWaitMask adds barriers the instruction waits on before issuing.
func (d *InstrDeps) AddWaitMask(mask uint8) {
	if mask >= 1<<NumBarriers {
		panic(fmt.Sprintf("wait mask %#x names more than %d barriers", mask, NumBarriers))
	}
	d.WaitMask |= mask
}

func checkBarrier(idx int) {
	if idx < 0 || idx >= NumBarriers {
		panic(fmt.Sprintf("barrier index %d out of range", idx))
	}
}

// BasicBlock is a straight-line run of instructions.
type BasicBlock struct {
	ID     uint32
	Instrs []*Instr
}

// Branch returns the block's terminating branch, if any.
func (b *BasicBlock) Branch() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if last.IsBranch() {
		return last
	}
	return nil
}

// FallsThrough reports whether control may continue to the next block.
func (b *BasicBlock) FallsThrough() bool {
	br := b.Branch()
	return br == nil || !br.Pred.IsTrue()
}

// MapInstrs replaces every instruction with the result of f. Returning nil
// deletes the instruction.
func (b *BasicBlock) MapInstrs(f func(*Instr) []*Instr) {
	out := make([]*Instr, 0, len(b.Instrs))
	for _, instr := range b.Instrs {
		out = append(out, f(instr)...)
	}
	b.Instrs = out
}

// Function is a list of blocks in layout order.
type Function struct {
	Blocks []*BasicBlock
	SSA    SSAAlloc
}

// BlockByID returns the block with the given label.
func (f *Function) BlockByID(id uint32) (*BasicBlock, int, bool) {
	for i, b := range f.Blocks {
		if b.ID == id {
			return b, i, true
		}
	}
	return nil, -1, false
}

// MapInstrs applies f to every block.
func (f *Function) MapInstrs(fn func(*Instr) []*Instr) {
	for _, b := range f.Blocks {
		b.MapInstrs(fn)
	}
}

// ShaderStage is the pipeline stage a shader runs in.
type ShaderStage uint8

const (
	StageCompute ShaderStage = iota
	StageVertex
	StageTessCtrl
	StageTessEval
	StageGeometry
	StageFragment
)

var ShaderStageNames = []string{"compute", "vertex", "tess_ctrl", "tess_eval", "geometry", "fragment"}

func (s ShaderStage) String() string { return enumName(ShaderStageNames, uint8(s)) }

// OutputTopology is the primitive type a geometry shader emits.
type OutputTopology uint8

const (
	TopologyPointList OutputTopology = iota
	TopologyLineStrip
	TopologyTriangleStrip
)

var OutputTopologyNames = []string{"points", "line_strip", "triangle_strip"}

func (t OutputTopology) String() string { return enumName(OutputTopologyNames, uint8(t)) }

// StageInfo is what the header generator needs to know about a shader.
type StageInfo struct {
	Stage ShaderStage

	// Generic attribute vectors read and written, one bit per vec4.
	InputsRead     uint32
	OutputsWritten uint32
	// Inputs interpolated without perspective correction (fragment only).
	FlatInputs uint32

	ReadsPrimitiveID bool
	ReadsFragCoord   bool
	WritesPosition   bool
	WritesPointSize  bool
	WritesLayer      bool
	WritesViewport   bool

	// Fragment outputs.
	WritesColor      uint32
	WritesSampleMask bool
	WritesDepth      bool
	UsesKill         bool

	// Tessellation and geometry.
	PatchAttrs        uint8
	ThreadsPerPrim    uint8
	OutputTopology    OutputTopology
	MaxOutputVertices uint16
	StreamsWritten    uint8

	UsesGlobalStore bool
	UsesFP64        bool
}

// ShaderInfo is per-shader metadata filled in along the pipeline.
type ShaderInfo struct {
	SM      uint8
	NumGPRs uint8
	TLSSize uint32
	Stage   StageInfo
}

// Shader is the compilation unit.
type Shader struct {
	Info      ShaderInfo
	Functions []*Function
}

// MapInstrs applies f to every function.
func (s *Shader) MapInstrs(f func(*Instr) []*Instr) {
	for _, fn := range s.Functions {
		fn.MapInstrs(f)
	}
}
