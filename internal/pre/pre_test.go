package pre_test

import (
	"testing"

	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/pre"
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

func TestSimplifyRewritesAddZeroIdentity(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32) -> i32 {
		%Entry:
			$b.1 <- add i32 $a, 0;
			ret $b.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := pre.Run(fn)
	if changed == 0 {
		t.Fatalf("expected x+0 to simplify")
	}
	def := fn.Blocks[0].Instrs[0]
	if def.Op != ir.OpMove || !def.A.IsSymbol() {
		t.Fatalf("expected $b.1 rewritten to a mov of $a, got %+v", def)
	}
}

func TestRunEliminatesFullyRedundantComputation(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32, $b: i32) -> i32 {
		%Entry:
			$x.1 <- add i32 $a, $b;
			$y.1 <- add i32 $a, $b;
			$z.1 <- add i32 $x.1, $y.1;
			ret $z.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := pre.Run(fn)
	if changed == 0 {
		t.Fatalf("expected the duplicate add to be eliminated")
	}
}

func TestRunInsertsPhiForPartiallyRedundantExpression(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32, $b: i32, $p: i32) -> i32 {
		%Entry:
			br $p ? %Then : %ElseGate;
		%ElseGate:
			jmp %Join;
		%Then:
			$t.1 <- add i32 $a, $b;
			jmp %Join;
		%Join:
			$r.1 <- add i32 $a, $b;
			ret $r.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := pre.Run(fn)
	if changed == 0 {
		t.Fatalf("expected PRE to act on the partially redundant add")
	}
}
