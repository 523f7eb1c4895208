package ssa

import (
	"irl/internal/cfg"
	"irl/internal/ir"
	"irl/internal/source"
	"irl/internal/symbols"
)

// ToSSA promotes every non-SSA local (version 0) in fn to versioned SSA
// form: dominance-frontier-based phi insertion followed by a dominator-
// tree-walk rename, mirroring original_source/src/lang/ssa.rs's
// insert_phi + rename. The rename gives every local definition a fresh
// version, including locals that already carry one. Mutates fn in place and returns the
// number of phi instructions inserted.
func ToSSA(fn *ir.Func) int {
	g := cfg.Build(fn)
	idom := g.Dominators()
	df := g.DominanceFrontier(idom)

	origDefs, defSites := collectDefSites(fn)
	inserted := insertPhis(fn, g, df, origDefs, defSites)

	kids := make(map[ir.BlockID][]ir.BlockID)
	for b, p := range idom {
		if b != p {
			kids[p] = append(kids[p], b)
		}
	}
	r := &renamer{fn: fn, stacks: make(map[source.StringID]*renameStack)}
	r.renameParams()
	r.walk(fn.Entry, kids)

	return inserted
}

// collectDefSites finds, for every non-SSA local name, the set of blocks
// that define it (origDefs[block] is the set of names defined in that
// block; defSites[name] is the set of blocks that define that name).
func collectDefSites(fn *ir.Func) (origDefs map[ir.BlockID]map[source.StringID]bool, defSites map[source.StringID]map[ir.BlockID]bool) {
	origDefs = make(map[ir.BlockID]map[source.StringID]bool)
	defSites = make(map[source.StringID]map[ir.BlockID]bool)
	for _, b := range fn.Blocks {
		names := make(map[source.StringID]bool)
		for _, in := range b.Instrs {
			if in.HasDst && in.Dst.Scope == symbols.ScopeLocal && in.Dst.Version == 0 {
				names[in.Dst.Name] = true
				if defSites[in.Dst.Name] == nil {
					defSites[in.Dst.Name] = make(map[ir.BlockID]bool)
				}
				defSites[in.Dst.Name][b.ID] = true
			}
		}
		origDefs[b.ID] = names
	}
	return origDefs, defSites
}

func insertPhis(fn *ir.Func, g *cfg.Graph, df map[ir.BlockID][]ir.BlockID, origDefs map[ir.BlockID]map[source.StringID]bool, defSites map[source.StringID]map[ir.BlockID]bool) int {
	insPhi := make(map[ir.BlockID]map[source.StringID]bool)
	for _, b := range fn.Blocks {
		insPhi[b.ID] = make(map[source.StringID]bool)
	}

	count := 0
	for name, sites := range defSites {
		work := make([]ir.BlockID, 0, len(sites))
		for b := range sites {
			work = append(work, b)
		}
		onWork := make(map[ir.BlockID]bool, len(work))
		for _, b := range work {
			onWork[b] = true
		}
		for len(work) > 0 {
			b := work[len(work)-1]
			work = work[:len(work)-1]
			onWork[b] = false

			for _, tgt := range df[b] {
				if insPhi[tgt][name] {
					continue
				}
				placePhi(fn, g, tgt, name)
				insPhi[tgt][name] = true
				count++
				if !origDefs[tgt][name] && !onWork[tgt] {
					work = append(work, tgt)
					onWork[tgt] = true
				}
			}
		}
	}
	return count
}

func placePhi(fn *ir.Func, g *cfg.Graph, block ir.BlockID, name source.StringID) {
	sym := symbols.Local(name, 0)
	ty := fn.DstTypes[sym]
	preds := g.Preds(block)
	in := &ir.Instr{Op: ir.OpPhi, HasDst: true, Dst: sym}
	for _, p := range preds {
		in.PhiArgs = append(in.PhiArgs, ir.PhiArg{Pred: p, Val: ir.SymValue(ty, sym)})
	}
	_ = fn.PrependPhi(block, in)
}

// renameStack is the per-name renaming status from the Rust RenamedSym:
// how many SSA versions have been minted, plus the stack of currently
// visible versions along the current dominator-tree path.
type renameStack struct {
	count uint32
	stack []symbols.Symbol
}

func (r *renameStack) latest() symbols.Symbol { return r.stack[len(r.stack)-1] }

func (r *renameStack) rename(name source.StringID) symbols.Symbol {
	r.count++
	sym := symbols.Local(name, r.count)
	r.stack = append(r.stack, sym)
	return sym
}

func (r *renameStack) pop() { r.stack = r.stack[:len(r.stack)-1] }

type renamer struct {
	fn     *ir.Func
	stacks map[source.StringID]*renameStack
}

func (r *renamer) stackFor(name source.StringID) *renameStack {
	s, ok := r.stacks[name]
	if !ok {
		s = &renameStack{}
		r.stacks[name] = s
	}
	return s
}

// renameParams seeds every parameter's name with version 0 as its initial
// stack entry, so uses before any reassignment resolve to the parameter
// itself rather than an undefined SSA name.
func (r *renamer) renameParams() {
	for _, p := range r.fn.Params {
		if p.Sym.Scope != symbols.ScopeLocal {
			continue
		}
		s := r.stackFor(p.Sym.Name)
		s.stack = append(s.stack, p.Sym)
	}
}

func (r *renamer) walk(id ir.BlockID, kids map[ir.BlockID][]ir.BlockID) {
	b := r.fn.Block(id)
	var defined []source.StringID

	renameUse := func(v ir.Value) ir.Value {
		if !v.IsSymbol() || v.Sym.Scope != symbols.ScopeLocal {
			return v
		}
		s, ok := r.stacks[v.Sym.Name]
		if !ok || len(s.stack) == 0 {
			return v
		}
		return ir.SymValue(v.Type, s.latest())
	}
	renameDef := func(sym symbols.Symbol) symbols.Symbol {
		if sym.Scope != symbols.ScopeLocal {
			return sym
		}
		s := r.stackFor(sym.Name)
		newSym := s.rename(sym.Name)
		defined = append(defined, sym.Name)
		if ty, ok := r.fn.DstTypes[sym]; ok {
			r.fn.DstTypes[newSym] = ty
		}
		return newSym
	}

	for _, in := range b.Instrs {
		if in.Op == ir.OpPhi {
			if in.HasDst {
				in.Dst = renameDef(in.Dst)
			}
			continue
		}
		in.A = renameUse(in.A)
		in.B = renameUse(in.B)
		for i, v := range in.Extra {
			in.Extra[i] = renameUse(v)
		}
		if in.HasDst {
			in.Dst = renameDef(in.Dst)
		}
	}

	// Fill in phi operands in every successor that correspond to this
	// block, using the version now visible at this block's exit.
	for _, succ := range successorsOf(r.fn, id) {
		sb := r.fn.Block(succ)
		for _, in := range sb.Phis() {
			for i, a := range in.PhiArgs {
				if a.Pred == id && a.Val.IsSymbol() {
					in.PhiArgs[i].Val = renameUse(a.Val)
				}
			}
		}
	}

	for _, c := range kids[id] {
		r.walk(c, kids)
	}

	for _, name := range defined {
		r.stacks[name].pop()
	}
}

func successorsOf(fn *ir.Func, id ir.BlockID) []ir.BlockID {
	b := fn.Block(id)
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
