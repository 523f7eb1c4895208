// Package gvn implements global value numbering via the Alpern-Wegman-
// Zadeck optimistic congruence-class partitioning algorithm: start with one
// optimistic partition per opcode, then iteratively split any class whose
// members turn out not to share congruent operands, until a fixed point.
// Grounded on other_examples/wzh99-GoCompiler__gvn.go's GVNOpt.Optimize,
// adapted from its *Symbol/*SSAVert value graph to ir.Func's Instr/Value
// model — congruence candidates here are SSA-defining, side-effect-free
// instructions, keyed by their destination symbol. Phi instructions and
// calls are not candidates, so values merged at a join block are never
// placed in one class.
package gvn

import (
	"irl/internal/cfg"
	"irl/internal/ir"
	"irl/internal/ssa"
	"irl/internal/symbols"
)

type vertex struct {
	sym   symbols.Symbol
	instr *ir.Instr
	label string
}

// Run partitions fn's congruent pure instructions and rewrites every use of
// a non-representative member to the class's chosen representative,
// eliminating the now-redundant definitions via a trailing DCE. Returns the
// number of definitions folded into a representative.
func Run(fn *ir.Func) int {
	verts := collectVertices(fn)
	if len(verts) == 0 {
		return 0
	}
	order := make([]*vertex, 0, len(verts))
	for _, v := range verts {
		order = append(order, v)
	}

	part, valNum := initialPartition(order)
	part = refine(part, valNum, verts)

	idom := cfg.Build(fn).Dominators()
	rep := chooseRepresentatives(part, idom)
	return applyRewrite(fn, rep)
}

func collectVertices(fn *ir.Func) map[symbols.Symbol]*vertex {
	verts := make(map[symbols.Symbol]*vertex)
	fn.AllInstrs(func(in *ir.Instr) {
		if !in.HasDst || in.Op.HasSideEffect() || in.Op == ir.OpPhi || in.Op == ir.OpCall {
			return
		}
		verts[in.Dst] = &vertex{sym: in.Dst, instr: in, label: opLabel(in)}
	})
	return verts
}

// opLabel is the initial, optimistic partition key: opcode only, for every
// op including commutative ones. Baking operand identity (even canonicalized
// operand identity) into the initial label would only ever merge vertices
// that are syntactically identical up to commutation — refine is what
// discovers operands are congruent despite being different instructions, and
// an initial label keyed on operand identity pre-empts that discovery by
// putting congruent-but-not-identical commutative instructions in separate
// classes from the start, where splitByOperandCongruence can never reunite
// them (refine only ever splits, never merges).
func opLabel(in *ir.Instr) string {
	return in.Op.String()
}

func initialPartition(order []*vertex) ([][]*vertex, map[symbols.Symbol]int) {
	var part [][]*vertex
	valNum := make(map[symbols.Symbol]int)
	byLabel := make(map[string]int)
	for _, v := range order {
		if idx, ok := byLabel[v.label]; ok {
			part[idx] = append(part[idx], v)
			valNum[v.sym] = idx
			continue
		}
		idx := len(part)
		byLabel[v.label] = idx
		part = append(part, []*vertex{v})
		valNum[v.sym] = idx
	}
	return part, valNum
}

// refine repeatedly splits any class whose members disagree on the value
// numbers of their operands, until no class splits further.
func refine(part [][]*vertex, valNum map[symbols.Symbol]int, verts map[symbols.Symbol]*vertex) [][]*vertex {
	changed := true
	for changed {
		changed = false
		var next [][]*vertex
		for _, class := range part {
			groups := splitByOperandCongruence(class, valNum, verts)
			if len(groups) > 1 {
				changed = true
			}
			for _, g := range groups {
				idx := len(next)
				next = append(next, g)
				for _, v := range g {
					valNum[v.sym] = idx
				}
			}
		}
		part = next
	}
	return part
}

func splitByOperandCongruence(class []*vertex, valNum map[symbols.Symbol]int, verts map[symbols.Symbol]*vertex) [][]*vertex {
	if len(class) <= 1 {
		return [][]*vertex{class}
	}
	var groups [][]*vertex
	for _, v := range class {
		placed := false
		for gi, g := range groups {
			if operandsCongruent(v, g[0], valNum) {
				groups[gi] = append(g, v)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*vertex{v})
		}
	}
	return groups
}

// operandsCongruent compares a's and b's operands positionally for
// non-commutative ops. For a commutative op the operand pair is an unordered
// multiset: $p <- mul $x, 2 and $q <- mul 2, $y are congruent whenever $x and
// $y are, regardless of which side each operand sits on.
func operandsCongruent(a, b *vertex, valNum map[symbols.Symbol]int) bool {
	if a.instr.Op.IsCommutative() {
		straight := operandCongruent(a.instr.A, b.instr.A, valNum) && operandCongruent(a.instr.B, b.instr.B, valNum)
		crossed := operandCongruent(a.instr.A, b.instr.B, valNum) && operandCongruent(a.instr.B, b.instr.A, valNum)
		return straight || crossed
	}
	return operandCongruent(a.instr.A, b.instr.A, valNum) && operandCongruent(a.instr.B, b.instr.B, valNum)
}

func operandCongruent(a, b ir.Value, valNum map[symbols.Symbol]int) bool {
	if a.IsConst() != b.IsConst() || a.IsSymbol() != b.IsSymbol() {
		return !a.Valid() && !b.Valid()
	}
	if a.IsConst() {
		return a.Const == b.Const
	}
	if a.IsSymbol() {
		na, oka := valNum[a.Sym]
		nb, okb := valNum[b.Sym]
		if !oka || !okb {
			return a.Sym == b.Sym
		}
		return na == nb
	}
	return true
}

// blockDominates reports whether a dominates b in the CFG (reflexive: a
// dominates itself).
func blockDominates(idom map[ir.BlockID]ir.BlockID, a, b ir.BlockID) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		next, ok := idom[cur]
		if !ok || next == cur {
			return cur == a
		}
		cur = next
	}
}

// defDominates reports whether a's definition point dominates b's: either a
// and b sit in the same block and a was appended no later than b (InstrID is
// assigned in strictly increasing append order, so a same-block comparison
// is exactly program order), or a's block strictly dominates b's block.
func defDominates(idom map[ir.BlockID]ir.BlockID, a, b *vertex) bool {
	if a.instr.Block == b.instr.Block {
		return a.instr.ID <= b.instr.ID
	}
	return blockDominates(idom, a.instr.Block, b.instr.Block)
}

// chooseRepresentatives picks, per class, the member whose definition
// dominates every other member's definition, and rewrites the rest of the
// class to it. Congruence alone does not make a fold safe: rewriting a use
// to a representative that does not dominate it produces a value reference
// with no reaching definition on that path, an invalid-SSA fold regardless
// of how the representative was chosen (earliest program order is not
// dominance — two congruent instructions in sibling arms of a diamond have
// neither dominating the other). A class with no dominating member is left
// unmerged; optimistic congruence trades completeness for cheap discovery,
// never soundness.
func chooseRepresentatives(part [][]*vertex, idom map[ir.BlockID]ir.BlockID) map[symbols.Symbol]symbols.Symbol {
	rep := make(map[symbols.Symbol]symbols.Symbol)
	for _, class := range part {
		if len(class) <= 1 {
			continue
		}
		var best *vertex
		for _, cand := range class {
			dominatesAll := true
			for _, m := range class {
				if m == cand {
					continue
				}
				if !defDominates(idom, cand, m) {
					dominatesAll = false
					break
				}
			}
			if !dominatesAll {
				continue
			}
			if best == nil || cand.instr.ID < best.instr.ID {
				best = cand
			}
		}
		if best == nil {
			continue
		}
		for _, v := range class {
			if v != best {
				rep[v.sym] = best.sym
			}
		}
	}
	return rep
}

func applyRewrite(fn *ir.Func, rep map[symbols.Symbol]symbols.Symbol) int {
	if len(rep) == 0 {
		return 0
	}
	du := ssa.Build(fn)
	folded := 0
	for from, to := range rep {
		if from == to {
			continue
		}
		du.ReplaceAllUses(from, to)
		folded++
	}
	ssa.DCE(fn)
	return folded
}
