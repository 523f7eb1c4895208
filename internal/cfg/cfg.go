// Package cfg computes control-flow facts over an ir.Func: successor and
// predecessor edges, a reverse-postorder block ordering, the dominator tree
// via the Cooper-Harvey-Kennedy iterative algorithm, and dominance
// frontiers. Grounded on the postorder/intersect pattern of
// fkuehnel-golang-cfg's dom.go, adapted from an *ssa.Block-and-successor-
// slice graph to ir.Func's BlockID-indexed graph.
package cfg

import "irl/internal/ir"

// Successors returns the block's outgoing control-flow edges. A block
// without a terminator (an ir.Func invariant violation, not a CFG concern)
// yields no successors.
func Successors(fn *ir.Func, id ir.BlockID) []ir.BlockID {
	b := fn.Block(id)
	if b == nil {
		return nil
	}
	term := b.Terminator()
	if term == nil {
		return nil
	}
	switch term.Op {
	case ir.OpJmp:
		return []ir.BlockID{term.Targets[0]}
	case ir.OpBr:
		return []ir.BlockID{term.Targets[0], term.Targets[1]}
	default:
		return nil
	}
}

// Graph precomputes successor and predecessor edges for every block in fn.
type Graph struct {
	fn    *ir.Func
	succs map[ir.BlockID][]ir.BlockID
	preds map[ir.BlockID][]ir.BlockID
}

// Build indexes fn's edges once; callers reuse the Graph across RPO,
// Dominators, and DominanceFrontier calls instead of re-walking terminators.
func Build(fn *ir.Func) *Graph {
	g := &Graph{
		fn:    fn,
		succs: make(map[ir.BlockID][]ir.BlockID, len(fn.Blocks)),
		preds: make(map[ir.BlockID][]ir.BlockID, len(fn.Blocks)),
	}
	for _, b := range fn.Blocks {
		ss := Successors(fn, b.ID)
		g.succs[b.ID] = ss
		for _, s := range ss {
			g.preds[s] = append(g.preds[s], b.ID)
		}
	}
	return g
}

func (g *Graph) Succs(id ir.BlockID) []ir.BlockID { return g.succs[id] }
func (g *Graph) Preds(id ir.BlockID) []ir.BlockID { return g.preds[id] }

// RPO returns a reverse-postorder ordering of blocks reachable from the
// entry block. Unreachable blocks are omitted.
func (g *Graph) RPO() []ir.BlockID {
	seen := make(map[ir.BlockID]bool, len(g.fn.Blocks))
	var order []ir.BlockID

	var visit func(id ir.BlockID)
	visit = func(id ir.BlockID) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, s := range g.succs[id] {
			visit(s)
		}
		order = append(order, id)
	}
	visit(g.fn.Entry)

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// Dominators computes the immediate dominator of every block reachable from
// the entry, via the Cooper-Harvey-Kennedy iterative fixpoint over a
// reverse-postorder worklist. idom[entry] == entry.
func (g *Graph) Dominators() map[ir.BlockID]ir.BlockID {
	rpo := g.RPO()
	postnum := make(map[ir.BlockID]int, len(rpo))
	for i, id := range rpo {
		postnum[id] = i
	}

	idom := make(map[ir.BlockID]ir.BlockID, len(rpo))
	entry := g.fn.Entry
	idom[entry] = entry

	intersect := func(a, b ir.BlockID) ir.BlockID {
		for a != b {
			for postnum[a] > postnum[b] {
				a = idom[a]
			}
			for postnum[b] > postnum[a] {
				b = idom[b]
			}
		}
		return a
	}

	changed := true
	for changed {
		changed = false
		for _, id := range rpo {
			if id == entry {
				continue
			}
			var newIdom ir.BlockID
			has := false
			for _, p := range g.preds[id] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !has {
					newIdom = p
					has = true
					continue
				}
				newIdom = intersect(newIdom, p)
			}
			if !has {
				continue
			}
			if old, ok := idom[id]; !ok || old != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}
	return idom
}

// DominanceFrontier derives DF via the standard two-loop pass: for every
// block with 2+ predecessors, walk each predecessor up its dominator chain
// (stopping at the block's own idom) adding the block to DF along the way.
func (g *Graph) DominanceFrontier(idom map[ir.BlockID]ir.BlockID) map[ir.BlockID][]ir.BlockID {
	df := make(map[ir.BlockID][]ir.BlockID)
	seen := make(map[ir.BlockID]map[ir.BlockID]bool)

	add := func(b, front ir.BlockID) {
		if seen[b] == nil {
			seen[b] = make(map[ir.BlockID]bool)
		}
		if seen[b][front] {
			return
		}
		seen[b][front] = true
		df[b] = append(df[b], front)
	}

	for _, block := range g.fn.Blocks {
		id := block.ID
		preds := g.preds[id]
		if len(preds) < 2 {
			continue
		}
		bIdom, ok := idom[id]
		if !ok {
			continue
		}
		for _, p := range preds {
			runner := p
			for {
				if _, ok := idom[runner]; !ok {
					break
				}
				if runner == bIdom {
					break
				}
				add(runner, id)
				if runner == idom[runner] {
					break
				}
				runner = idom[runner]
			}
		}
	}
	return df
}
