// Package liveness computes per-block SSA liveness.
//
// Every block records, for each SSA value it touches, whether it defines the
// value and the instruction indices that read it. Reads that happen in a
// successor are folded into the same index space: a value first read at
// index k of a successor is recorded at len(block)+k. A value live through a
// successor without being read there carries that successor's own folded
// position, so the lowest such position wins.
package liveness

import (
	"fmt"
	"slices"

	"golang.org/x/tools/container/intsets"

	"nakgo/internal/cfg"
	"nakgo/internal/ir"
)

const noUse = -1

type valueInfo struct {
	defined bool
	uses    []int
	succUse int
}

func (vi *valueInfo) firstUse() int {
	if len(vi.uses) > 0 {
		return vi.uses[0]
	}
	return vi.succUse
}

// Block is the liveness of one basic block.
type Block struct {
	id      uint32
	ninstrs int
	values  map[ir.SSAValue]*valueInfo
	liveIn  intsets.Sparse
	liveOut intsets.Sparse
}

func newBlock(b *ir.BasicBlock) *Block {
	bl := &Block{
		id:      b.ID,
		ninstrs: len(b.Instrs),
		values:  make(map[ir.SSAValue]*valueInfo),
	}
	for ip, instr := range b.Instrs {
		instr.ForEachSSAUse(func(v ir.SSAValue) {
			vi := bl.value(v)
			if n := len(vi.uses); n == 0 || vi.uses[n-1] != ip {
				vi.uses = append(vi.uses, ip)
			}
		})
		instr.ForEachSSADef(func(v ir.SSAValue) {
			bl.value(v).defined = true
		})
	}
	for v, vi := range bl.values {
		if !vi.defined {
			bl.liveIn.Insert(int(v))
		}
	}
	return bl
}

func (bl *Block) value(v ir.SSAValue) *valueInfo {
	vi, ok := bl.values[v]
	if !ok {
		vi = &valueInfo{succUse: noUse}
		bl.values[v] = vi
	}
	return vi
}

// ID is the id of the block this liveness describes.
func (bl *Block) ID() uint32 { return bl.id }

// IsDefined reports whether v is written inside the block.
func (bl *Block) IsDefined(v ir.SSAValue) bool {
	vi, ok := bl.values[v]
	return ok && vi.defined
}

// Uses returns the ordered use positions of v, in-block indices first and
// then the folded successor position, if any.
func (bl *Block) Uses(v ir.SSAValue) []int {
	vi, ok := bl.values[v]
	if !ok {
		return nil
	}
	out := slices.Clone(vi.uses)
	if vi.succUse != noUse {
		out = append(out, vi.succUse)
	}
	return out
}

// LastUse returns the highest recorded use position of v, or -1.
func (bl *Block) LastUse(v ir.SSAValue) int {
	vi, ok := bl.values[v]
	switch {
	case !ok:
		return noUse
	case vi.succUse != noUse:
		return vi.succUse
	case len(vi.uses) > 0:
		return vi.uses[len(vi.uses)-1]
	}
	return noUse
}

// IsLiveAfter reports whether v is still needed after instruction ip.
func (bl *Block) IsLiveAfter(v ir.SSAValue, ip int) bool {
	return bl.LastUse(v) > ip
}

// IsLiveIn reports whether v is live on entry to the block.
func (bl *Block) IsLiveIn(v ir.SSAValue) bool { return bl.liveIn.Has(int(v)) }

// IsLiveOut reports whether v is live on exit from the block.
func (bl *Block) IsLiveOut(v ir.SSAValue) bool { return bl.liveOut.Has(int(v)) }

// LiveIn returns the live-in values in ascending order.
func (bl *Block) LiveIn() []ir.SSAValue { return toValues(&bl.liveIn) }

// LiveOut returns the live-out values in ascending order.
func (bl *Block) LiveOut() []ir.SSAValue { return toValues(&bl.liveOut) }

func toValues(s *intsets.Sparse) []ir.SSAValue {
	var out []ir.SSAValue
	for _, x := range s.AppendTo(nil) {
		out = append(out, ir.SSAValue(x))
	}
	return out
}

// Liveness is the result for a whole function.
type Liveness struct {
	blocks map[uint32]*Block
	graph  *cfg.Graph
	rounds int
}

// Compute runs the analysis over fn.
func Compute(fn *ir.Function) *Liveness {
	g := cfg.Build(fn)
	l := &Liveness{
		blocks: make(map[uint32]*Block, len(fn.Blocks)),
		graph:  g,
	}
	for _, b := range fn.Blocks {
		l.blocks[b.ID] = newBlock(b)
	}

	for changed := true; changed; {
		changed = false
		l.rounds++
		for i := len(fn.Blocks) - 1; i >= 0; i-- {
			bl := l.blocks[fn.Blocks[i].ID]
			for _, sid := range g.Successors(bl.id) {
				if l.propagate(bl, l.blocks[sid]) {
					changed = true
				}
			}
		}
	}
	return l
}

// propagate pulls the live-in values of succ into bl.
func (l *Liveness) propagate(bl, succ *Block) bool {
	changed := false
	for _, x := range succ.liveIn.AppendTo(nil) {
		v := ir.SSAValue(x)
		pos := bl.ninstrs + succ.values[v].firstUse()
		vi := bl.value(v)
		if vi.succUse == noUse || pos < vi.succUse {
			vi.succUse = pos
			changed = true
		}
		if bl.liveOut.Insert(x) {
			changed = true
		}
		if !vi.defined && bl.liveIn.Insert(x) {
			changed = true
		}
	}
	return changed
}

// Block returns the liveness of block id.
func (l *Liveness) Block(id uint32) *Block {
	bl, ok := l.blocks[id]
	if !ok {
		panic(fmt.Sprintf("liveness: unknown block b%d", id))
	}
	return bl
}

// Graph returns the control-flow graph the analysis was run on.
func (l *Liveness) Graph() *cfg.Graph { return l.graph }

// Rounds is the number of sweeps it took to reach the fixed point.
func (l *Liveness) Rounds() int { return l.rounds }
