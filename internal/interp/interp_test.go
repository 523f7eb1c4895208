package interp_test

import (
	"testing"

	"irl/internal/interp"
	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/source"
)

func build(t *testing.T, content string) (*ir.Program, *source.Interner) {
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
	return prog, strs
}

func TestRunExecutesStraightLineArithmetic(t *testing.T) {
	prog, strs := build(t, `
		fn @f() -> i32 {
		%Entry:
			$a.1 <- add i32 2, 3;
			$b.1 <- mul i32 $a.1, 10;
			ret $b.1;
		}
	`)
	res, err := interp.Run(prog, strs, prog.Funcs[0].Name)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if res.Executed != 3 {
		t.Fatalf("expected 3 executed instructions, got %d", res.Executed)
	}
}

func TestRunFollowsBranchAndPhi(t *testing.T) {
	prog, strs := build(t, `
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
	_, err := interp.Run(prog, strs, prog.Funcs[0].Name)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
}

func TestRunReportsDivisionByZero(t *testing.T) {
	prog, strs := build(t, `
		fn @f($a: i32) -> i32 {
		%Entry:
			$z.1 <- mod i32 $a, 0;
			ret $z.1;
		}
	`)
	_, err := interp.Run(prog, strs, prog.Funcs[0].Name)
	if err == nil {
		t.Fatalf("expected a division-by-zero runtime error")
	}
	rt, ok := err.(*interp.RuntimeError)
	if !ok || rt.Kind != "division-by-zero" {
		t.Fatalf("expected a division-by-zero RuntimeError, got %v", err)
	}
}

func TestRunAllocLoadStoreRoundTrips(t *testing.T) {
	prog, strs := build(t, `
		fn @f() -> i32 {
		%Entry:
			$p.1 <- alloc ptr(i32);
			st i32 $p.1, 42;
			$v.1 <- ld i32 $p.1;
			ret $v.1;
		}
	`)
	res, err := interp.Run(prog, strs, prog.Funcs[0].Name)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	_ = res
}
