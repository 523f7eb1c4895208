// Package pre implements GVN-PRE, partial redundancy elimination guided by
// value numbers: a computation redundant on only some incoming paths is
// made fully redundant by materializing it on the paths where it is
// missing, then the later occurrence is replaced by the available result.
// Grounded on the dataflow shape of spec.md §4.5 (EXP_GEN/PHI_GEN/TMP_GEN,
// AVAIL_OUT propagated top-down over the dominator tree, ANTIC_IN computed
// bottom-up to a fixed point over the reverse CFG) and on
// other_examples/wzh99-GoCompiler__gvn.go's representative-symbol
// bookkeeping for how a value class picks the name later occurrences are
// rewritten to.
package pre

import (
	"fmt"

	"irl/internal/cfg"
	"irl/internal/ir"
	"irl/internal/source"
	"irl/internal/ssa"
	"irl/internal/symbols"
)

type vnum int

type leader struct {
	sym   symbols.Symbol
	instr *ir.Instr
}

type pre struct {
	fn      *ir.Func
	g       *cfg.Graph
	idom    map[ir.BlockID]ir.BlockID
	kids    map[ir.BlockID][]ir.BlockID
	labelOf map[string]vnum
	numOf   map[symbols.Symbol]vnum
	leaders map[vnum]leader
	nextVN  vnum

	expGen  map[ir.BlockID]map[vnum]*ir.Instr
	phiGen  map[ir.BlockID]map[vnum]symbols.Symbol
	tmpGen  map[ir.BlockID]map[vnum]symbols.Symbol
	availIn map[ir.BlockID]map[vnum]leader
	antic   map[ir.BlockID]map[vnum]*ir.Instr

	maxVersion map[source.StringID]uint32
}

// freshSymbol mints an unused version of like's name, so a materialized
// copy or synthesized phi never collides with an existing SSA definition.
func (p *pre) freshSymbol(like symbols.Symbol) symbols.Symbol {
	p.maxVersion[like.Name]++
	return like.WithVersion(p.maxVersion[like.Name])
}

// Run performs one full PRE pass: simplify, build value numbers and
// dataflow sets, insert phis that make partially redundant expressions
// fully redundant, then eliminate every occurrence a dominating leader
// already covers. Returns the number of instructions changed or removed.
func Run(fn *ir.Func) int {
	p := &pre{fn: fn}
	changed := simplify(fn)

	p.g = cfg.Build(fn)
	p.idom = p.g.Dominators()
	p.kids = make(map[ir.BlockID][]ir.BlockID)
	for b, d := range p.idom {
		if b != d {
			p.kids[d] = append(p.kids[d], b)
		}
	}
	p.labelOf = make(map[string]vnum)
	p.numOf = make(map[symbols.Symbol]vnum)
	p.leaders = make(map[vnum]leader)
	p.maxVersion = make(map[source.StringID]uint32)
	fn.AllInstrs(func(in *ir.Instr) {
		if in.HasDst && in.Dst.Version > p.maxVersion[in.Dst.Name] {
			p.maxVersion[in.Dst.Name] = in.Dst.Version
		}
	})

	p.numberFunction()
	p.computeGenSets()
	p.computeAvailOut()
	p.computeAnticIn()

	changed += p.insert()
	changed += simplify(fn)
	changed += p.eliminate()
	return changed
}

func (p *pre) vnOf(v ir.Value) (vnum, bool) {
	if v.IsConst() {
		return p.intern(fmt.Sprintf("c:%d:%d", v.Type, v.Const), nil), true
	}
	if v.IsSymbol() {
		if n, ok := p.numOf[v.Sym]; ok {
			return n, true
		}
		return p.intern(fmt.Sprintf("s:%v", v.Sym), nil), true
	}
	return 0, false
}

func (p *pre) intern(label string, instr *ir.Instr) vnum {
	if n, ok := p.labelOf[label]; ok {
		return n
	}
	n := p.nextVN
	p.nextVN++
	p.labelOf[label] = n
	if instr != nil {
		p.leaders[n] = leader{sym: instr.Dst, instr: instr}
	}
	return n
}

// numberFunction assigns each pure SSA definition a value number derived
// from its operands' own numbers, walking blocks in RPO so every operand is
// numbered before any of its uses.
func (p *pre) numberFunction() {
	for _, id := range p.g.RPO() {
		b := p.fn.Block(id)
		for _, in := range b.Instrs {
			if !in.HasDst {
				continue
			}
			if in.Op == ir.OpPhi {
				n := p.intern(fmt.Sprintf("phi:%d:%d", id, in.ID), in)
				p.numOf[in.Dst] = n
				continue
			}
			if !isCandidate(in) {
				p.numOf[in.Dst] = p.intern(fmt.Sprintf("opaque:%d", in.ID), in)
				continue
			}
			an, _ := p.vnOf(in.A)
			bn, _ := p.vnOf(in.B)
			if in.Op.IsCommutative() && bn < an {
				an, bn = bn, an
			}
			label := fmt.Sprintf("%s:%d:%d", in.Op, an, bn)
			n := p.intern(label, in)
			p.numOf[in.Dst] = n
		}
	}
}

// isCandidate reports whether in is a pure binary computation eligible for
// PRE — loads and calls are excluded per spec.md §4.5.
func isCandidate(in *ir.Instr) bool {
	return in.Op.IsBinary()
}

func (p *pre) computeGenSets() {
	p.expGen = make(map[ir.BlockID]map[vnum]*ir.Instr)
	p.phiGen = make(map[ir.BlockID]map[vnum]symbols.Symbol)
	p.tmpGen = make(map[ir.BlockID]map[vnum]symbols.Symbol)
	for _, b := range p.fn.Blocks {
		p.expGen[b.ID] = make(map[vnum]*ir.Instr)
		p.phiGen[b.ID] = make(map[vnum]symbols.Symbol)
		p.tmpGen[b.ID] = make(map[vnum]symbols.Symbol)
		for _, in := range b.Instrs {
			if !in.HasDst {
				continue
			}
			n := p.numOf[in.Dst]
			switch {
			case in.Op == ir.OpPhi:
				p.phiGen[b.ID][n] = in.Dst
			case isCandidate(in):
				p.expGen[b.ID][n] = in
				p.tmpGen[b.ID][n] = in.Dst
			default:
				p.tmpGen[b.ID][n] = in.Dst
			}
		}
	}
}

// computeAvailOut propagates leaders top-down over the dominator tree:
// AVAIL_OUT(b) = AVAIL_OUT(idom(b)) ∪ PHI_GEN(b) ∪ TMP_GEN(b).
func (p *pre) computeAvailOut() {
	p.availIn = make(map[ir.BlockID]map[vnum]leader)
	var walk func(id ir.BlockID, inherited map[vnum]leader)
	walk = func(id ir.BlockID, inherited map[vnum]leader) {
		out := make(map[vnum]leader, len(inherited))
		for k, v := range inherited {
			out[k] = v
		}
		b := p.fn.Block(id)
		for _, in := range b.Instrs {
			if !in.HasDst {
				continue
			}
			n := p.numOf[in.Dst]
			if _, exists := out[n]; !exists {
				out[n] = leader{sym: in.Dst, instr: in}
			}
		}
		p.availIn[id] = out
		for _, c := range p.kids[id] {
			walk(c, out)
		}
	}
	walk(p.fn.Entry, map[vnum]leader{})
}

// computeAnticIn runs the backward fixed-point over the reverse CFG: start
// from ANTIC_OUT(b) = intersection over successors' ANTIC_IN, then
// ANTIC_IN(b) = canonicalise(ANTIC_OUT(b) ∪ EXP_GEN(b)).
func (p *pre) computeAnticIn() {
	p.antic = make(map[ir.BlockID]map[vnum]*ir.Instr)
	for _, b := range p.fn.Blocks {
		p.antic[b.ID] = make(map[vnum]*ir.Instr)
	}
	changed := true
	for changed {
		changed = false
		rpo := p.g.RPO()
		for i := len(rpo) - 1; i >= 0; i-- {
			id := rpo[i]
			succs := p.g.Succs(id)
			var out map[vnum]*ir.Instr
			for si, s := range succs {
				if si == 0 {
					out = copySet(p.antic[s])
					continue
				}
				out = intersectSet(out, p.antic[s])
			}
			if out == nil {
				out = map[vnum]*ir.Instr{}
			}
			for n, in := range p.expGen[id] {
				if _, ok := out[n]; !ok {
					out[n] = in
				}
			}
			if !setsEqual(out, p.antic[id]) {
				p.antic[id] = out
				changed = true
			}
		}
	}
}

func copySet(m map[vnum]*ir.Instr) map[vnum]*ir.Instr {
	out := make(map[vnum]*ir.Instr, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func intersectSet(a, b map[vnum]*ir.Instr) map[vnum]*ir.Instr {
	out := make(map[vnum]*ir.Instr)
	for k, v := range a {
		if _, ok := b[k]; ok {
			out[k] = v
		}
	}
	return out
}

func setsEqual(a, b map[vnum]*ir.Instr) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// insert materializes a partially-redundant expression on the predecessors
// where it is missing and threads a phi through the block, so a later pass
// of eliminate finds it fully available. Critical-edge splitting is not
// performed; predecessors with multiple successors are skipped for
// insertion, matching the conservative fallback the driver takes when it
// cannot safely place a copy.
func (p *pre) insert() int {
	changed := 0
	for _, b := range p.fn.Blocks {
		preds := p.g.Preds(b.ID)
		if len(preds) < 2 {
			continue
		}
		for n, in := range p.antic[b.ID] {
			if _, avail := p.availIn[b.ID][n]; avail {
				continue
			}
			present := 0
			missing := false
			for _, pr := range preds {
				if _, ok := p.availIn[pr][n]; ok {
					present++
				} else {
					missing = true
				}
			}
			if present == 0 || !missing {
				continue
			}
			if p.materialize(b.ID, preds, n, in) {
				changed++
			}
		}
	}
	return changed
}

func (p *pre) materialize(block ir.BlockID, preds []ir.BlockID, n vnum, template *ir.Instr) bool {
	for _, pr := range preds {
		if len(p.g.Succs(pr)) > 1 {
			return false
		}
	}
	perPred := make(map[ir.BlockID]symbols.Symbol, len(preds))
	for _, pr := range preds {
		if l, ok := p.availIn[pr][n]; ok {
			perPred[pr] = l.sym
			continue
		}
		dst := p.freshSymbol(template.Dst)
		clone := &ir.Instr{
			Op: template.Op, HasDst: true, Dst: dst,
			A: p.translateOperand(template.A, block, pr),
			B: p.translateOperand(template.B, block, pr),
		}
		if err := p.fn.InsertBeforeTerminator(pr, clone); err != nil {
			return false
		}
		p.fn.DstTypes[dst] = p.fn.DstTypes[template.Dst]
		p.availIn[pr][n] = leader{sym: dst, instr: clone}
		perPred[pr] = dst
	}
	phiDst := p.freshSymbol(template.Dst)
	phi := &ir.Instr{Op: ir.OpPhi, HasDst: true, Dst: phiDst}
	for _, pr := range preds {
		phi.PhiArgs = append(phi.PhiArgs, ir.PhiArg{Pred: pr, Val: ir.SymValue(p.fn.DstTypes[template.Dst], perPred[pr])})
	}
	if err := p.fn.PrependPhi(block, phi); err != nil {
		return false
	}
	p.fn.DstTypes[phiDst] = p.fn.DstTypes[template.Dst]
	p.availIn[block][n] = leader{sym: phiDst, instr: phi}
	p.leaders[n] = leader{sym: phiDst, instr: phi}
	return true
}

// translateOperand rewrites v for a clone being placed in predecessor pr of
// block: if v is the destination of a phi leading block, the clone in pr
// must use that phi's operand for the pr edge instead of the phi's own
// symbol, which is only defined in block. Any other operand (a parameter, a
// loop-invariant value, anything defined strictly before block) is already
// available unchanged in every predecessor and is returned as-is.
func (p *pre) translateOperand(v ir.Value, block, pr ir.BlockID) ir.Value {
	if !v.IsSymbol() {
		return v
	}
	for _, in := range p.fn.Block(block).Instrs {
		if in.Op != ir.OpPhi {
			break
		}
		if in.Dst != v.Sym {
			continue
		}
		for _, a := range in.PhiArgs {
			if a.Pred == pr {
				return a.Val
			}
		}
	}
	return v
}

// eliminate replaces every candidate computation whose value number has a
// dominating leader other than itself with a reference to that leader,
// then lets the caller's DCE clean up the dead instruction.
func (p *pre) eliminate() int {
	changed := 0
	du := ssa.Build(p.fn)
	for _, b := range p.fn.Blocks {
		avail := p.availIn[b.ID]
		for _, in := range b.Instrs {
			if !in.HasDst || !isCandidate(in) {
				continue
			}
			n := p.numOf[in.Dst]
			l, ok := avail[n]
			if !ok || l.sym == in.Dst {
				continue
			}
			du.ReplaceAllUses(in.Dst, l.sym)
			changed++
		}
	}
	if changed > 0 {
		ssa.DCE(p.fn)
	}
	return changed
}
