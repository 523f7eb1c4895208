package ssa

import "irl/internal/ir"

// DCE removes SSA instructions with no side effect and no live use,
// propagating transitively: removing a dead instruction can make its own
// operands' sole remaining def dead too, so the worklist seeds from every
// instruction and keeps processing newly-dead defs until none remain.
// Liveness is judged by the live use-count, not by a reachability walk from
// roots, so a circular def/use chain whose members are used only by each
// other (an induction variable phi feeding only itself) keeps non-zero use
// counts and is not removed.
func DCE(fn *ir.Func) int {
	du := Build(fn)
	removed := 0

	liveCount := func(in *ir.Instr) int {
		if !in.HasDst {
			return 1 // no destination to ever go dead: always keep as-is
		}
		return len(du.Uses[in.Dst])
	}

	worklist := make([]*ir.Instr, 0)
	fn.AllInstrs(func(in *ir.Instr) { worklist = append(worklist, in) })

	dead := make(map[ir.InstrID]bool)
	for len(worklist) > 0 {
		in := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if dead[in.ID] || in.Op.HasSideEffect() || !in.HasDst {
			continue
		}
		if liveCount(in) > 0 {
			continue
		}
		dead[in.ID] = true
		removed++

		var operands []ir.Value
		if in.Op == ir.OpPhi {
			for _, a := range in.PhiArgs {
				operands = append(operands, a.Val)
			}
		} else {
			in.Uses(func(v ir.Value) { operands = append(operands, v) })
		}
		for _, v := range operands {
			if !v.IsSymbol() {
				continue
			}
			uses := du.Uses[v.Sym]
			for i, u := range uses {
				if u.Instr == in {
					uses = append(uses[:i], uses[i+1:]...)
					break
				}
			}
			du.Uses[v.Sym] = uses
			if def, ok := du.Def[v.Sym]; ok && def.HasDst {
				worklist = append(worklist, def)
			}
		}

		fn.RemoveInstr(in.Block, in.ID)
	}
	return removed
}
