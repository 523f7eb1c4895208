package ssa_test

import (
	"strings"
	"testing"

	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/source"
	"irl/internal/ssa"
)

func build(t *testing.T, content string) *ir.Program {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.ir", []byte(content))
	strs := source.NewInterner()
	lx := lexer.New(fs.Get(id), strs, nil)
	p := parser.New(lx, strs, nil)
	ast, ok := p.ParseProgram()
	if !ok {
		t.Fatalf("parse failed")
	}
	b := ir.NewBuilder(strs, nil)
	prog, ok := b.Build(ast)
	if !ok {
		t.Fatalf("build failed")
	}
	return prog
}

func TestVerifyAcceptsWellFormedPhi(t *testing.T) {
	prog := build(t, `
		fn @max($a: i32, $b: i32) -> i32 {
		%Entry:
			$c.1 <- lt i32 $a, $b;
			br $c.1 ? %Then : %Join;
		%Then:
			jmp %Join;
		%Join:
			$r.1 <- phi i32 [%Entry: $b] [%Then: $a];
			ret $r.1;
		}
	`)
	errs := ssa.Verify(prog.Funcs[0])
	if len(errs) != 0 {
		t.Fatalf("expected no verify errors, got %+v", errs)
	}
}

func TestVerifyRejectsMissingPhiPredecessor(t *testing.T) {
	prog := build(t, `
		fn @max($a: i32, $b: i32) -> i32 {
		%Entry:
			$c.1 <- lt i32 $a, $b;
			br $c.1 ? %Then : %Join;
		%Then:
			jmp %Join;
		%Join:
			$r.1 <- phi i32 [%Entry: $b];
			ret $r.1;
		}
	`)
	errs := ssa.Verify(prog.Funcs[0])
	if len(errs) == 0 {
		t.Fatalf("expected a verify error for missing phi predecessor")
	}
}

func TestVerifyRejectsUseFromNonDominatingSibling(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32) -> i32 {
		%Entry:
			br $a ? %Then : %Else;
		%Then:
			$x.1 <- add i32 1, 2;
			jmp %Join;
		%Else:
			$y.1 <- add i32 $x.1, 1;
			jmp %Join;
		%Join:
			ret $y.1;
		}
	`)
	errs := ssa.Verify(prog.Funcs[0])
	if len(errs) == 0 {
		t.Fatalf("expected a dominance violation")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Msg, "not dominated by its definition") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a 'not dominated by its definition' error, got %+v", errs)
	}
}

func TestToSSAPromotesDiamondAssignment(t *testing.T) {
	prog := build(t, `
		fn @abs($x: i32) -> i32 {
		%Entry:
			$c.1 <- lt i32 $x, 0;
			br $c.1 ? %Neg : %Join;
		%Neg:
			$x <- neg i32 $x;
			jmp %Join;
		%Join:
			ret $x;
		}
	`)
	fn := prog.Funcs[0]
	inserted := ssa.ToSSA(fn)
	if inserted == 0 {
		t.Fatalf("expected ToSSA to insert at least one phi")
	}
	if errs := ssa.Verify(fn); len(errs) != 0 {
		t.Fatalf("expected SSA form to verify cleanly, got %+v", errs)
	}
}

func TestDCERemovesDeadDefinition(t *testing.T) {
	prog := build(t, `
		fn @f() -> i32 {
		%Entry:
			$dead.1 <- add i32 1, 2;
			ret 0;
		}
	`)
	fn := prog.Funcs[0]
	removed := ssa.DCE(fn)
	if removed != 1 {
		t.Fatalf("expected 1 instruction removed, got %d", removed)
	}
	if len(fn.Blocks[0].Instrs) != 1 {
		t.Fatalf("expected only the ret instruction to remain, got %+v", fn.Blocks[0].Instrs)
	}
}

func TestDCERemovesTransitivelyDeadChainButKeepsTheObservableStore(t *testing.T) {
	prog := build(t, `
		fn @f() -> i32 {
		%Entry:
			$p.1 <- alloc ptr(i32);
			$a.1 <- add i32 1, 2;
			$b.1 <- mul i32 $a.1, 2;
			$t.1 <- add i32 3, 4;
			st i32 $p.1, $t.1;
			ret 0;
		}
	`)
	fn := prog.Funcs[0]
	removed := ssa.DCE(fn)
	if removed != 2 {
		t.Fatalf("expected both $a.1 and $b.1 removed in one call, got %d", removed)
	}
	for _, in := range fn.Blocks[0].Instrs {
		if in.Op == ir.OpSt {
			if !in.B.IsSymbol() {
				t.Fatalf("expected the store to still reference its value, got %+v", in)
			}
			return
		}
	}
	t.Fatalf("expected the store to survive DCE, found none in %+v", fn.Blocks[0].Instrs)
}

func TestCopyPropEliminatesMov(t *testing.T) {
	prog := build(t, `
		fn @f() -> i32 {
		%Entry:
			$a.1 <- add i32 1, 2;
			$b.1 <- mov i32 $a.1;
			ret $b.1;
		}
	`)
	fn := prog.Funcs[0]
	removed := ssa.CopyProp(fn)
	if removed != 1 {
		t.Fatalf("expected 1 mov eliminated, got %d", removed)
	}
	ret := fn.Blocks[0].Terminator()
	if !ret.A.IsSymbol() || ret.A.Sym != fn.Blocks[0].Instrs[0].Dst {
		t.Fatalf("expected ret to use $a.1 directly, got %+v", ret.A)
	}
}
