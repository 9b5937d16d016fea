package passes

import (
	"fmt"

	"nakgo/internal/ir"
)

// LowerParCopies turns every par_copy into ordered copies, breaking cycles
// with swaps. It runs after register assignment.
type LowerParCopies struct{}

func (LowerParCopies) Name() string { return "lower-par-copies" }

func (LowerParCopies) Run(shader *ir.Shader) error {
	var err error
	shader.MapInstrs(func(instr *ir.Instr) []*ir.Instr {
		pc, ok := instr.Op.(*ir.ParCopy)
		if !ok {
			return []*ir.Instr{instr}
		}
		if !instr.Pred.IsTrue() {
			panic("lower-par-copies: par_copy must not be predicated")
		}
		out, lerr := lowerParCopy(shader.Info.SM, pc)
		if lerr != nil && err == nil {
			err = lerr
		}
		return out
	})
	return err
}

// copyGraph has one node per register or constant. Every node has at most
// one incoming edge, from the value it must receive.
type copyGraph struct {
	src   []int
	reads []int
}

func (g *copyGraph) addNode() int {
	g.src = append(g.src, -1)
	g.reads = append(g.reads, 0)
	return len(g.src) - 1
}

func (g *copyGraph) addEdge(dst, src int) {
	if dst == src || g.src[dst] != -1 {
		panic("lower-par-copies: malformed copy graph")
	}
	g.src[dst] = src
	g.reads[src]++
}

// delEdge removes the edge into dst and reports whether its source is no
// longer read.
func (g *copyGraph) delEdge(dst, src int) bool {
	g.src[dst] = -1
	g.reads[src]--
	return g.reads[src] == 0
}

// scalarCopies splits vector entries into one copy per component.
func scalarCopies(pc *ir.ParCopy) ([]ir.RegRef, []ir.SrcRef, error) {
	var dsts []ir.RegRef
	var srcs []ir.SrcRef
	for i, d := range pc.Dsts {
		reg, ok := d.(ir.RegRef)
		if !ok {
			return nil, nil, fmt.Errorf("par_copy destination %s is not a register", ir.FormatDst(d))
		}
		src := pc.Srcs[i]
		if !src.Mod.IsNone() {
			return nil, nil, fmt.Errorf("par_copy source %s has a modifier", ir.FormatSrc(src))
		}
		for c := 0; c < reg.Comps(); c++ {
			dsts = append(dsts, reg.Comp(c))
			switch ref := src.Ref.(type) {
			case ir.RegRef:
				if ref.Comps() != reg.Comps() {
					return nil, nil, fmt.Errorf("par_copy %s = %s: component count mismatch",
						ir.FormatDst(d), ir.FormatSrc(src))
				}
				srcs = append(srcs, ref.Comp(c))
			case ir.CBufRef:
				if _, bound := ref.Buf.(ir.CBufBinding); !bound {
					return nil, nil, fmt.Errorf("par_copy cannot read a bindless constant buffer")
				}
				ref.Offset += uint16(4 * c)
				srcs = append(srcs, ref)
			default:
				if reg.Comps() != 1 {
					return nil, nil, fmt.Errorf("par_copy constant %s into a vector", ir.FormatSrc(src))
				}
				srcs = append(srcs, src.Ref)
			}
		}
	}
	return dsts, srcs, nil
}

func lowerParCopy(sm uint8, pc *ir.ParCopy) ([]*ir.Instr, error) {
	dsts, srcs, err := scalarCopies(pc)
	if err != nil {
		return nil, err
	}

	var g copyGraph
	vals := make([]ir.SrcRef, 0, len(dsts))
	regIdx := make(map[ir.RegRef]int)
	for _, d := range dsts {
		if _, dup := regIdx[d]; dup {
			return nil, fmt.Errorf("par_copy writes %s twice", d)
		}
		regIdx[d] = g.addNode()
		vals = append(vals, d)
	}
	for dst, src := range srcs {
		idx := -1
		if reg, ok := src.(ir.RegRef); ok {
			if i, seen := regIdx[reg]; seen {
				idx = i
			} else {
				idx = g.addNode()
				regIdx[reg] = idx
				vals = append(vals, src)
			}
		} else {
			idx = g.addNode()
			vals = append(vals, src)
		}
		if dst != idx {
			g.addEdge(dst, idx)
		}
	}

	b := ir.NewBuilder(sm, nil)
	var ready []int
	for i := range dsts {
		if g.reads[i] == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		dst := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		src := g.src[dst]
		if src < 0 {
			continue
		}
		b.CopyTo(vals[dst].(ir.RegRef), ir.NewSrc(vals[src]))
		if g.delEdge(dst, src) {
			ready = append(ready, src)
		}
	}

	// Only disjoint cycles are left; each swap shortens one by a node.
	for i := range dsts {
		for g.src[i] >= 0 {
			j := g.src[i]
			k := g.src[j]
			b.Swap(vals[j].(ir.RegRef), vals[k].(ir.RegRef))
			g.delEdge(i, j)
			g.delEdge(j, k)
			if i != k {
				g.addEdge(i, k)
			}
		}
	}
	return b.Instrs(), nil
}
