package pipeline_test

import (
	"context"
	"testing"

	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/pipeline"
	"irl/internal/source"
	"irl/internal/ssa"
	"irl/internal/symbols"
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

func countOp(fn *ir.Func, op ir.Op) int {
	n := 0
	fn.AllInstrs(func(in *ir.Instr) {
		if in.Op == op {
			n++
		}
	})
	return n
}

func referencesSymbol(fn *ir.Func, sym symbols.Symbol) bool {
	found := false
	fn.AllInstrs(func(in *ir.Instr) {
		for _, v := range []ir.Value{in.A, in.B} {
			if v.IsSymbol() && v.Sym == sym {
				found = true
			}
		}
		for _, v := range in.Extra {
			if v.IsSymbol() && v.Sym == sym {
				found = true
			}
		}
		for _, p := range in.PhiArgs {
			if p.Val.IsSymbol() && p.Val.Sym == sym {
				found = true
			}
		}
	})
	return found
}

// Three induction variables are seeded identically (two from a literal
// constant, one from a read-only global holding the same value) and
// incremented identically on every loop iteration. The full pipeline
// should fold the global read to its initializer, discover all three
// chains congruent, and collapse two of them onto the third.
func TestRunCollapsesCongruentLoopChainsSeededFromAGlobal(t *testing.T) {
	prog := build(t, `
		@g: i32 <- 1;

		fn @f($n: i32) -> i32 {
		%Entry:
			$i.1 <- mov i32 1;
			$j.1 <- mov i32 1;
			$k.1 <- mov i32 @g;
			jmp %Loop;
		%Loop:
			$i.2 <- phi i32 [%Entry: $i.1] [%Loop: $i.3];
			$j.2 <- phi i32 [%Entry: $j.1] [%Loop: $j.3];
			$k.2 <- phi i32 [%Entry: $k.1] [%Loop: $k.3];
			$i.3 <- add i32 $i.2, 1;
			$j.3 <- add i32 $j.2, 1;
			$k.3 <- add i32 $k.2, 1;
			$c.1 <- lt i32 $i.3, $n;
			br $c.1 ? %Loop : %Exit;
		%Exit:
			$r.1 <- add i32 $j.3, $k.3;
			ret $r.1;
		}
	`)
	fn := prog.Funcs[0]
	beforeAdds := countOp(fn, ir.OpAdd)
	beforeTotal := 0
	fn.AllInstrs(func(*ir.Instr) { beforeTotal++ })

	gSym := prog.Globals[0].Sym

	res := pipeline.Run(context.Background(), prog, nil)
	if len(res.PanicsFound) != 0 {
		t.Fatalf("expected no pass panics, got %+v", res.PanicsFound)
	}

	if errs := ssa.Verify(fn); len(errs) != 0 {
		t.Fatalf("expected the optimized function to still verify, got %+v", errs)
	}
	if referencesSymbol(fn, gSym) {
		t.Fatalf("expected every read of @g to have folded to its constant initializer")
	}

	afterAdds := countOp(fn, ir.OpAdd)
	if afterAdds >= beforeAdds {
		t.Fatalf("expected congruent adds to collapse, got %d before and %d after", beforeAdds, afterAdds)
	}
	afterTotal := 0
	fn.AllInstrs(func(*ir.Instr) { afterTotal++ })
	if afterTotal >= beforeTotal {
		t.Fatalf("expected the pipeline to shrink the function, got %d before and %d after", beforeTotal, afterTotal)
	}
}
