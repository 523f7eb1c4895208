// Package ssa builds and maintains SSA form over an ir.Func: a def/use
// index, dominance-frontier-based phi insertion and dominator-tree-walk
// renaming (promoting non-SSA locals to versioned SSA names), a verifier
// for the SSA invariants spec.md §3 names, dead code elimination, and copy
// propagation. Grounded on original_source/src/lang/ssa.rs's to_ssa
// (insert_phi + rename) and Verifier, re-expressed as plain functions over
// ir.Func/cfg.Graph rather than a dominator-tree-walk visitor interface.
package ssa

import (
	"irl/internal/ir"
	"irl/internal/symbols"
)

// Use is one occurrence of a symbol as an instruction operand: either a
// direct operand (A, B, Extra) or a phi argument value.
type Use struct {
	Instr *ir.Instr
	Block ir.BlockID
	IsPhi bool
	Pred  ir.BlockID // valid only if IsPhi
}

// DefUse indexes, for every local symbol in a function, its (at most one,
// once in SSA form) defining instruction and every use.
type DefUse struct {
	Def  map[symbols.Symbol]*ir.Instr
	Uses map[symbols.Symbol][]Use
}

// Build walks every instruction in fn once and records definitions and
// uses. Rebuild after any mutation that adds, removes, or retargets
// instructions — the index is a snapshot, not incrementally maintained.
func Build(fn *ir.Func) *DefUse {
	du := &DefUse{
		Def:  make(map[symbols.Symbol]*ir.Instr),
		Uses: make(map[symbols.Symbol][]Use),
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.HasDst {
				du.Def[in.Dst] = in
			}
			if in.Op == ir.OpPhi {
				for _, a := range in.PhiArgs {
					if a.Val.IsSymbol() {
						du.Uses[a.Val.Sym] = append(du.Uses[a.Val.Sym], Use{Instr: in, Block: b.ID, IsPhi: true, Pred: a.Pred})
					}
				}
				continue
			}
			in.Uses(func(v ir.Value) {
				if v.IsSymbol() {
					du.Uses[v.Sym] = append(du.Uses[v.Sym], Use{Instr: in, Block: b.ID})
				}
			})
		}
	}
	return du
}

// ReplaceAllUses rewrites every recorded use of from to to, in place. It
// does not check dominance of to at each use site — callers that must
// preserve invariant 4 (every use is dominated by its unique def) are
// responsible for only calling this when to already dominates every use of
// from, which is always true for the passes in this repository (GVN's
// congruence-class rewriting and GVN-PRE's elimination both compute that
// dominance fact before calling ReplaceAllUses).
func (du *DefUse) ReplaceAllUses(from, to symbols.Symbol) {
	uses := du.Uses[from]
	for _, u := range uses {
		replaceOperand(u.Instr, from, to, u)
	}
	du.Uses[to] = append(du.Uses[to], uses...)
	delete(du.Uses, from)
}

func replaceOperand(in *ir.Instr, from, to symbols.Symbol, u Use) {
	repl := func(v ir.Value) ir.Value {
		if v.IsSymbol() && v.Sym == from {
			return ir.SymValue(v.Type, to)
		}
		return v
	}
	if in.Op == ir.OpPhi {
		for i, a := range in.PhiArgs {
			if u.IsPhi && a.Pred == u.Pred && a.Val.IsSymbol() && a.Val.Sym == from {
				in.PhiArgs[i].Val = repl(a.Val)
			}
		}
		return
	}
	in.A = repl(in.A)
	in.B = repl(in.B)
	for i, v := range in.Extra {
		in.Extra[i] = repl(v)
	}
}
