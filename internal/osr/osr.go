// Package osr implements operator strength reduction: finds induction
// variables via Kosaraju-Sharir strongly-connected-component detection
// over the SSA value-def graph, then rewrites derived expressions of the
// form iv*c+d (or iv+rc, iv shl k) into new induction variables updated by
// addition alone, per spec.md §4.6. Grounded on
// fkuehnel-golang-cfg/go-code/scc.go's SCCs iterator (first DFS pass
// computes postorder on forward edges, second pass BFS's the reversed
// edges in reverse-postorder order), adapted from its block-CFG graph to
// the def/use graph among add/sub/phi/mov instructions.
package osr

import (
	"irl/internal/ir"
	"irl/internal/source"
	"irl/internal/ssa"
	"irl/internal/symbols"
)

// node is one candidate in the induction-variable graph: a symbol defined
// by add, sub, phi, or mov — the only ops spec.md §4.6 allows inside an IV
// family's cycle.
type node struct {
	sym   symbols.Symbol
	instr *ir.Instr
}

type ivGraph struct {
	nodes map[symbols.Symbol]*node
	succs map[symbols.Symbol][]symbols.Symbol
	preds map[symbols.Symbol][]symbols.Symbol
}

func buildIVGraph(fn *ir.Func) *ivGraph {
	g := &ivGraph{
		nodes: make(map[symbols.Symbol]*node),
		succs: make(map[symbols.Symbol][]symbols.Symbol),
		preds: make(map[symbols.Symbol][]symbols.Symbol),
	}
	fn.AllInstrs(func(in *ir.Instr) {
		if !in.HasDst || !isIVOp(in.Op) {
			return
		}
		g.nodes[in.Dst] = &node{sym: in.Dst, instr: in}
	})
	for sym, n := range g.nodes {
		for _, opnd := range ivOperandsOf(n.instr) {
			if opnd.IsSymbol() {
				if _, ok := g.nodes[opnd.Sym]; ok {
					g.succs[sym] = append(g.succs[sym], opnd.Sym)
					g.preds[opnd.Sym] = append(g.preds[opnd.Sym], sym)
				}
			}
		}
	}
	return g
}

func isIVOp(op ir.Op) bool {
	return op == ir.OpAdd || op == ir.OpSub || op == ir.OpPhi || op == ir.OpMove
}

func ivOperandsOf(in *ir.Instr) []ir.Value {
	if in.Op == ir.OpPhi {
		vals := make([]ir.Value, 0, len(in.PhiArgs))
		for _, a := range in.PhiArgs {
			vals = append(vals, a.Val)
		}
		return vals
	}
	return []ir.Value{in.A, in.B}
}

// sccs finds the graph's strongly connected components via Kosaraju-Sharir:
// a DFS postorder over the forward edges, then a reverse-postorder sweep
// that BFS's the reversed edges to collect each component.
func (g *ivGraph) sccs() [][]symbols.Symbol {
	seen := make(map[symbols.Symbol]bool)
	var post []symbols.Symbol
	var visit func(symbols.Symbol)
	visit = func(s symbols.Symbol) {
		if seen[s] {
			return
		}
		seen[s] = true
		for _, t := range g.succs[s] {
			visit(t)
		}
		post = append(post, s)
	}
	for s := range g.nodes {
		visit(s)
	}

	assigned := make(map[symbols.Symbol]bool)
	var result [][]symbols.Symbol
	for i := len(post) - 1; i >= 0; i-- {
		leader := post[i]
		if assigned[leader] {
			continue
		}
		var comp []symbols.Symbol
		queue := []symbols.Symbol{leader}
		assigned[leader] = true
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]
			comp = append(comp, s)
			for _, p := range g.preds[s] {
				if !assigned[p] {
					assigned[p] = true
					queue = append(queue, p)
				}
			}
		}
		result = append(result, comp)
	}
	return result
}

// ivFamily describes one induction variable discovered in a non-trivial
// SCC: the header phi, its region-constant initial value and the
// preheader block it arrives from, the block that computes the back-edge
// increment, and the net additive step taken around the cycle per
// iteration.
type ivFamily struct {
	phi      *ir.Instr
	block    ir.BlockID
	init     ir.Value
	initPred ir.BlockID
	backPred ir.BlockID
	step     int64
	member   map[symbols.Symbol]bool
}

// Run finds induction-variable families and rewrites op(iv,rc) expressions
// that depend on them into new, addition-only induction variables. Returns
// the number of rewrites performed.
func Run(fn *ir.Func) int {
	g := buildIVGraph(fn)
	changed := 0
	freshVer := maxVersions(fn)
	for _, comp := range g.sccs() {
		if len(comp) < 2 {
			continue
		}
		members := make(map[symbols.Symbol]bool, len(comp))
		for _, s := range comp {
			members[s] = true
		}
		fam := classifyIV(g, members)
		if fam == nil {
			continue
		}
		changed += rewriteDerived(fn, fam, freshVer)
	}
	if changed > 0 {
		ssa.DCE(fn)
	}
	return changed
}

func maxVersions(fn *ir.Func) map[source.StringID]uint32 {
	m := make(map[source.StringID]uint32)
	fn.AllInstrs(func(in *ir.Instr) {
		if in.HasDst && in.Dst.Version > m[in.Dst.Name] {
			m[in.Dst.Name] = in.Dst.Version
		}
	})
	return m
}

func freshSymbol(freshVer map[source.StringID]uint32, like symbols.Symbol) symbols.Symbol {
	freshVer[like.Name]++
	return like.WithVersion(freshVer[like.Name])
}

// classifyIV locates the SCC's header phi and derives its step by walking
// the additive chain back to the phi. Only SCCs with exactly one phi are
// handled — multi-phi (nested) families are not reduced.
func classifyIV(g *ivGraph, members map[symbols.Symbol]bool) *ivFamily {
	var phiSym symbols.Symbol
	phiCount := 0
	for s := range members {
		if g.nodes[s].instr.Op == ir.OpPhi {
			phiSym = s
			phiCount++
		}
	}
	if phiCount != 1 {
		return nil
	}
	phi := g.nodes[phiSym].instr

	var init ir.Value
	var backSym symbols.Symbol
	var initPred, backPred ir.BlockID
	haveInit, haveBack := false, false
	for _, a := range phi.PhiArgs {
		if a.Val.IsSymbol() && members[a.Val.Sym] {
			backSym, backPred = a.Val.Sym, a.Pred
			haveBack = true
			continue
		}
		init, initPred = a.Val, a.Pred
		haveInit = true
	}
	if !haveInit || !haveBack {
		return nil
	}

	step, ok := walkStep(g, members, backSym, phiSym, 0, map[symbols.Symbol]bool{})
	if !ok {
		return nil
	}
	return &ivFamily{
		phi: phi, block: phi.Block, init: init, initPred: initPred,
		backPred: backPred, step: step, member: members,
	}
}

// walkStep follows the cycle from cur back to target, summing the additive
// constant of each add/sub/mov link; it fails if the chain is not a simple
// path of region-constant-offset links.
func walkStep(g *ivGraph, members map[symbols.Symbol]bool, cur, target symbols.Symbol, acc int64, seen map[symbols.Symbol]bool) (int64, bool) {
	if seen[cur] {
		return 0, false
	}
	seen[cur] = true
	if cur == target {
		return acc, true
	}
	n := g.nodes[cur]
	if n == nil {
		return 0, false
	}
	switch n.instr.Op {
	case ir.OpMove:
		if n.instr.A.IsSymbol() && members[n.instr.A.Sym] {
			return walkStep(g, members, n.instr.A.Sym, target, acc, seen)
		}
		return 0, false
	case ir.OpAdd, ir.OpSub:
		a, b := n.instr.A, n.instr.B
		var next symbols.Symbol
		var delta int64
		switch {
		case a.IsSymbol() && members[a.Sym] && b.IsConst():
			next, delta = a.Sym, b.Const
		case b.IsSymbol() && members[b.Sym] && a.IsConst() && n.instr.Op == ir.OpAdd:
			next, delta = b.Sym, a.Const
		default:
			return 0, false
		}
		if n.instr.Op == ir.OpSub {
			delta = -delta
		}
		return walkStep(g, members, next, target, acc+delta, seen)
	default:
		return 0, false
	}
}

// rewriteDerived scans the function for op(iv,rc) expressions depending on
// fam's header symbol and replaces each with a reference to a fresh
// induction variable stepped by addition alone, per spec.md §4.6's
// reduce(op,step,rc) table.
func rewriteDerived(fn *ir.Func, fam *ivFamily, freshVer map[source.StringID]uint32) int {
	changed := 0
	ivSym := fam.phi.Dst
	var rewrites []*ir.Instr
	fn.AllInstrs(func(in *ir.Instr) {
		if !in.HasDst || fam.member[in.Dst] {
			return
		}
		if _, _, _, ok := matchDerived(in, ivSym); ok {
			rewrites = append(rewrites, in)
		}
	})
	for _, in := range rewrites {
		op, _, rc, _ := matchDerived(in, ivSym)
		newStep, ok := reduceStep(op, fam.step, rc)
		if !ok {
			continue
		}
		installNewIV(fn, fam, in, op, rc, newStep, freshVer)
		changed++
	}
	return changed
}

func matchDerived(in *ir.Instr, iv symbols.Symbol) (ir.Op, symbols.Symbol, int64, bool) {
	switch in.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpShl:
		if in.A.IsSymbol() && in.A.Sym == iv && in.B.IsConst() {
			return in.Op, iv, in.B.Const, true
		}
		if in.Op == ir.OpAdd && in.B.IsSymbol() && in.B.Sym == iv && in.A.IsConst() {
			return in.Op, iv, in.A.Const, true
		}
	}
	return 0, symbols.Symbol{}, 0, false
}

func reduceStep(op ir.Op, step, rc int64) (int64, bool) {
	switch op {
	case ir.OpAdd, ir.OpSub:
		return step, true
	case ir.OpMul:
		return step * rc, true
	case ir.OpShl:
		return step << uint64(rc), true
	default:
		return 0, false
	}
}

// installNewIV inserts a fresh induction variable — a header phi fed by
// op(init,rc) from the preheader and by (newIV+newStep) from the latch —
// and collapses derived's own definition into a mov of the new phi.
func installNewIV(fn *ir.Func, fam *ivFamily, derived *ir.Instr, op ir.Op, rc, newStep int64, freshVer map[source.StringID]uint32) {
	ty := fn.DstTypes[derived.Dst]

	initSym := freshSymbol(freshVer, derived.Dst)
	initInstr := &ir.Instr{Op: op, HasDst: true, Dst: initSym, A: fam.init, B: ir.ConstValue(ty, rc)}
	if err := fn.InsertBeforeTerminator(fam.initPred, initInstr); err != nil {
		return
	}
	fn.DstTypes[initSym] = ty

	phiSym := freshSymbol(freshVer, derived.Dst)
	phi := &ir.Instr{Op: ir.OpPhi, HasDst: true, Dst: phiSym}
	if err := fn.PrependPhi(fam.block, phi); err != nil {
		return
	}
	fn.DstTypes[phiSym] = ty

	nextSym := freshSymbol(freshVer, derived.Dst)
	nextInstr := &ir.Instr{Op: ir.OpAdd, HasDst: true, Dst: nextSym, A: ir.SymValue(ty, phiSym), B: ir.ConstValue(ty, newStep)}
	if err := fn.InsertBeforeTerminator(fam.backPred, nextInstr); err != nil {
		return
	}
	fn.DstTypes[nextSym] = ty

	phi.PhiArgs = []ir.PhiArg{
		{Pred: fam.initPred, Val: ir.SymValue(ty, initSym)},
		{Pred: fam.backPred, Val: ir.SymValue(ty, nextSym)},
	}

	derived.Op = ir.OpMove
	derived.A = ir.SymValue(ty, phiSym)
	derived.B = ir.Value{}
	derived.Extra = nil
}
