package ssa

import (
	"fmt"

	"irl/internal/cfg"
	"irl/internal/ir"
	"irl/internal/symbols"
)

// VerifyError is one SSA invariant violation found by Verify.
type VerifyError struct {
	Block ir.BlockID
	Instr ir.InstrID
	Msg   string
}

func (e VerifyError) Error() string { return e.Msg }

// verifyState mirrors original_source/src/lang/ssa.rs's Verifier: a set of
// statically-seen definitions (invariant 5: unique definition) plus a
// dominator-path-shaped stack of availability frames (invariant 4: every
// use is dominated by its def) walked in dominator-tree order.
type verifyState struct {
	fn       *ir.Func
	g        *cfg.Graph
	idom     map[ir.BlockID]ir.BlockID
	kids     map[ir.BlockID][]ir.BlockID
	defined  map[symbols.Symbol]bool
	defBlock map[symbols.Symbol]ir.BlockID
	errs     []VerifyError
}

// dominates reports whether a dominates b by walking b's idom chain
// (reflexive: a dominates itself).
func dominates(idom map[ir.BlockID]ir.BlockID, a, b ir.BlockID) bool {
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

// Verify checks invariants 4-6 of spec.md §3 over a function already
// claimed to be in SSA form: every local is defined exactly once
// (invariant 5), every use is dominated by its definition (invariant 4),
// phi instructions occupy a leading prefix of their block and name every
// predecessor exactly once (invariant 6).
func Verify(fn *ir.Func) []VerifyError {
	g := cfg.Build(fn)
	idom := g.Dominators()
	kids := make(map[ir.BlockID][]ir.BlockID)
	for b, p := range idom {
		if b != p {
			kids[p] = append(kids[p], b)
		}
	}
	defBlock := make(map[symbols.Symbol]ir.BlockID)
	fn.AllInstrs(func(in *ir.Instr) {
		if in.HasDst {
			defBlock[in.Dst] = in.Block
		}
	})
	vs := &verifyState{fn: fn, g: g, idom: idom, kids: kids, defined: make(map[symbols.Symbol]bool), defBlock: defBlock}

	for _, p := range fn.Params {
		vs.defined[p.Sym] = true
		vs.defBlock[p.Sym] = fn.Entry
	}

	vs.verifyPhiOrdering()
	vs.walk(fn.Entry, map[symbols.Symbol]bool{})
	return vs.errs
}

func (vs *verifyState) verifyPhiOrdering() {
	for _, b := range vs.fn.Blocks {
		phiCount := 0
		for _, in := range b.Instrs {
			if in.Op == ir.OpPhi {
				phiCount++
			}
		}
		for i, in := range b.Instrs {
			if in.Op == ir.OpPhi && i >= phiCount {
				vs.errs = append(vs.errs, VerifyError{Block: b.ID, Instr: in.ID, Msg: "phi instruction does not lead its block"})
			}
		}
		preds := vs.g.Preds(b.ID)
		for _, in := range b.Instrs[:min(phiCount, len(b.Instrs))] {
			seen := make(map[ir.BlockID]bool)
			for _, a := range in.PhiArgs {
				if seen[a.Pred] {
					vs.errs = append(vs.errs, VerifyError{Block: b.ID, Instr: in.ID, Msg: "duplicate phi predecessor"})
				}
				seen[a.Pred] = true
				if a.Val.IsSymbol() && a.Val.Sym.Scope == symbols.ScopeLocal {
					defBlock, ok := vs.defBlock[a.Val.Sym]
					if !ok || !dominates(vs.idom, defBlock, a.Pred) {
						vs.errs = append(vs.errs, VerifyError{Block: b.ID, Instr: in.ID, Msg: fmt.Sprintf("phi operand %v not dominated by its definition at the end of predecessor %d", a.Val.Sym, a.Pred)})
					}
				}
			}
			for _, p := range preds {
				if !seen[p] {
					vs.errs = append(vs.errs, VerifyError{Block: b.ID, Instr: in.ID, Msg: fmt.Sprintf("phi operand missing for predecessor %d", p)})
				}
			}
		}
	}
}

// walk mirrors the Rust Renamer/Verifier's dominator-tree walk: avail is the
// set of symbols defined on the path from the function entry down to this
// block (passed by value so sibling subtrees don't see each other's defs).
func (vs *verifyState) walk(id ir.BlockID, avail map[symbols.Symbol]bool) {
	b := vs.fn.Block(id)
	local := make(map[symbols.Symbol]bool, len(avail))
	for s := range avail {
		local[s] = true
	}

	checkUse := func(in *ir.Instr, v ir.Value) {
		if !v.IsSymbol() || v.Sym.Scope != symbols.ScopeLocal {
			return
		}
		if !local[v.Sym] {
			vs.errs = append(vs.errs, VerifyError{Block: id, Instr: in.ID, Msg: fmt.Sprintf("use of %v not dominated by its definition", v.Sym)})
		}
	}
	checkDef := func(in *ir.Instr) {
		if !in.HasDst {
			return
		}
		if vs.defined[in.Dst] {
			vs.errs = append(vs.errs, VerifyError{Block: id, Instr: in.ID, Msg: fmt.Sprintf("%v is defined more than once", in.Dst)})
			return
		}
		vs.defined[in.Dst] = true
		local[in.Dst] = true
	}

	for _, in := range b.Instrs {
		if in.Op == ir.OpPhi {
			checkDef(in)
			continue
		}
		in.Uses(func(v ir.Value) { checkUse(in, v) })
		checkDef(in)
	}

	for _, c := range vs.kids[id] {
		vs.walk(c, local)
	}
}
