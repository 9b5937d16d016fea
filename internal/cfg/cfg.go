// Package cfg derives the control-flow graph of a function from its branch
// instructions. The graph is a read-only view and has to be rebuilt whenever
// a block terminator changes.
package cfg

import (
	"fmt"

	"nakgo/internal/ir"
)

type node struct {
	preds  []uint32
	succs  [2]uint32
	nsuccs uint8
	layout int
}

// Graph holds successor and predecessor lists keyed by block id.
type Graph struct {
	nodes map[uint32]*node
	order []uint32
}

// Build computes the graph for fn. A block falls through to the next block
// in layout order unless it ends in an unpredicated branch; a bra adds its
// target, exit adds nothing.
func Build(fn *ir.Function) *Graph {
	g := &Graph{nodes: make(map[uint32]*node, len(fn.Blocks))}
	for i, b := range fn.Blocks {
		if _, dup := g.nodes[b.ID]; dup {
			panic(fmt.Sprintf("cfg: duplicate block b%d", b.ID))
		}
		g.nodes[b.ID] = &node{layout: i}
		g.order = append(g.order, b.ID)
	}

	for i, b := range fn.Blocks {
		n := g.nodes[b.ID]
		if b.FallsThrough() {
			if i+1 == len(fn.Blocks) {
				panic(fmt.Sprintf("cfg: b%d falls off the end of the function", b.ID))
			}
			g.link(n, b.ID, fn.Blocks[i+1].ID)
		}
		if br := b.Branch(); br != nil {
			switch op := br.Op.(type) {
			case *ir.Bra:
				if _, ok := g.nodes[op.TargetID]; !ok {
					panic(fmt.Sprintf("cfg: b%d branches to unknown block b%d", b.ID, op.TargetID))
				}
				g.link(n, b.ID, op.TargetID)
			case *ir.Exit:
			default:
				panic(fmt.Sprintf("cfg: unhandled branch op %s", br.Op.Name()))
			}
		}
	}
	return g
}

func (g *Graph) link(n *node, from, to uint32) {
	if n.nsuccs == 2 {
		panic(fmt.Sprintf("cfg: b%d has more than two successors", from))
	}
	n.succs[n.nsuccs] = to
	n.nsuccs++
	s := g.nodes[to]
	s.preds = append(s.preds, from)
}

func (g *Graph) node(id uint32) *node {
	n, ok := g.nodes[id]
	if !ok {
		panic(fmt.Sprintf("cfg: unknown block b%d", id))
	}
	return n
}

// Successors returns the successor ids of block id, fall-through first.
func (g *Graph) Successors(id uint32) []uint32 {
	n := g.node(id)
	return n.succs[:n.nsuccs]
}

// Predecessors returns the predecessor ids of block id in layout order of
// the branching block.
func (g *Graph) Predecessors(id uint32) []uint32 {
	return g.node(id).preds
}

// Layout returns the position of block id in the function.
func (g *Graph) Layout(id uint32) int { return g.node(id).layout }

// Blocks returns every block id in layout order.
func (g *Graph) Blocks() []uint32 { return g.order }

// Len is the number of blocks.
func (g *Graph) Len() int { return len(g.order) }
