package gvn_test

import (
	"testing"

	"irl/internal/gvn"
	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/source"
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

func TestRunFoldsRedundantComputation(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32, $b: i32) -> i32 {
		%Entry:
			$x.1 <- add i32 $a, $b;
			$y.1 <- add i32 $a, $b;
			$z.1 <- add i32 $y.1, $x.1;
			ret $z.1;
		}
	`)
	fn := prog.Funcs[0]
	folded := gvn.Run(fn)
	if folded == 0 {
		t.Fatalf("expected at least one congruent definition folded")
	}
	ret := fn.Blocks[0].Terminator()
	if !ret.A.IsSymbol() {
		t.Fatalf("expected ret operand to remain a symbol, got %+v", ret.A)
	}
}

func TestRunHonorsCommutativity(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32, $b: i32) -> i32 {
		%Entry:
			$x.1 <- add i32 $a, $b;
			$y.1 <- add i32 $b, $a;
			$z.1 <- add i32 $x.1, $y.1;
			ret $z.1;
		}
	`)
	fn := prog.Funcs[0]
	folded := gvn.Run(fn)
	if folded == 0 {
		t.Fatalf("expected commutative operands to be recognized as congruent")
	}
}

func TestRunLeavesDistinctComputationsAlone(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32, $b: i32) -> i32 {
		%Entry:
			$x.1 <- add i32 $a, $b;
			$y.1 <- sub i32 $a, $b;
			$z.1 <- add i32 $x.1, $y.1;
			ret $z.1;
		}
	`)
	fn := prog.Funcs[0]
	folded := gvn.Run(fn)
	if folded != 0 {
		t.Fatalf("expected no folding across distinct opcodes, got %d", folded)
	}
}
