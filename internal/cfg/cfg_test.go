package cfg

import (
	"testing"

	"irl/internal/ir"
	"irl/internal/source"
	"irl/internal/symbols"
	"irl/internal/types"
)

// buildDiamond builds Entry -> {Then, Else} -> Join -> (ret), the classic
// diamond CFG used to exercise dominance-frontier insertion.
func buildDiamond(t *testing.T) (*ir.Func, map[string]ir.BlockID) {
	t.Helper()
	strs := source.NewInterner()
	fn := ir.NewFunc(symbols.Global(strs.Intern("f")), nil, types.NoTypeID)
	ids := map[string]ir.BlockID{}
	for _, name := range []string{"Entry", "Then", "Else", "Join"} {
		id, err := fn.AddBlock(strs.Intern(name))
		if err != nil {
			t.Fatalf("AddBlock: %v", err)
		}
		ids[name] = id
	}
	mustAppend := func(name string, in *ir.Instr) {
		if err := fn.AppendInstr(ids[name], in); err != nil {
			t.Fatalf("AppendInstr %s: %v", name, err)
		}
	}
	mustAppend("Entry", &ir.Instr{Op: ir.OpBr, A: ir.ConstValue(types.NoTypeID, 1), Targets: [2]ir.BlockID{ids["Then"], ids["Else"]}})
	mustAppend("Then", &ir.Instr{Op: ir.OpJmp, Targets: [2]ir.BlockID{ids["Join"]}})
	mustAppend("Else", &ir.Instr{Op: ir.OpJmp, Targets: [2]ir.BlockID{ids["Join"]}})
	mustAppend("Join", &ir.Instr{Op: ir.OpRet})
	return fn, ids
}

func TestRPOVisitsEntryFirst(t *testing.T) {
	fn, ids := buildDiamond(t)
	g := Build(fn)
	rpo := g.RPO()
	if len(rpo) != 4 {
		t.Fatalf("expected 4 reachable blocks, got %d", len(rpo))
	}
	if rpo[0] != ids["Entry"] {
		t.Fatalf("expected Entry first, got %v", rpo[0])
	}
	if rpo[len(rpo)-1] != ids["Join"] {
		t.Fatalf("expected Join last, got %v", rpo[len(rpo)-1])
	}
}

func TestDominatorsOfDiamond(t *testing.T) {
	fn, ids := buildDiamond(t)
	g := Build(fn)
	idom := g.Dominators()
	if idom[ids["Then"]] != ids["Entry"] || idom[ids["Else"]] != ids["Entry"] {
		t.Fatalf("expected Entry to dominate Then/Else, got %+v", idom)
	}
	if idom[ids["Join"]] != ids["Entry"] {
		t.Fatalf("expected Entry to dominate Join (two preds), got %v", idom[ids["Join"]])
	}
}

func TestDominanceFrontierOfDiamond(t *testing.T) {
	fn, ids := buildDiamond(t)
	g := Build(fn)
	idom := g.Dominators()
	df := g.DominanceFrontier(idom)
	for _, name := range []string{"Then", "Else"} {
		found := false
		for _, f := range df[ids[name]] {
			if f == ids["Join"] {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected Join in DF(%s), got %+v", name, df[ids[name]])
		}
	}
	if len(df[ids["Entry"]]) != 0 {
		t.Fatalf("expected empty DF(Entry), got %+v", df[ids["Entry"]])
	}
}
