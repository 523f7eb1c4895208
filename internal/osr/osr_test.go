package osr_test

import (
	"testing"

	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/osr"
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

func TestRunReducesMultiplyOnInductionVariable(t *testing.T) {
	prog := build(t, `
		fn @f($n: i32) -> i32 {
		%Entry:
			jmp %Loop;
		%Loop:
			$i.1 <- phi i32 [%Entry: 0] [%Loop: $i.2];
			$four_i.1 <- mul i32 $i.1, 4;
			$i.2 <- add i32 $i.1, 1;
			$done.1 <- ge i32 $i.2, $n;
			br $done.1 ? %Exit : %Loop;
		%Exit:
			ret $four_i.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := osr.Run(fn)
	if changed == 0 {
		t.Fatalf("expected the i*4 expression to be strength-reduced")
	}
	loopBlock := fn.Blocks[1]
	var foundMulReplacement, foundNewPhi bool
	for _, in := range loopBlock.Instrs {
		if in.Op == ir.OpMove {
			foundMulReplacement = true
		}
		if in.Op == ir.OpPhi && in.Dst.Name != fn.Blocks[1].Instrs[0].Dst.Name {
			foundNewPhi = true
		}
	}
	if !foundMulReplacement {
		t.Fatalf("expected the multiply's definition to collapse to a mov of the new IV")
	}
	if !foundNewPhi {
		t.Fatalf("expected a second header phi for the strength-reduced induction variable")
	}
}

func TestRunLeavesNonInductionMultiplyAlone(t *testing.T) {
	prog := build(t, `
		fn @f($a: i32, $b: i32) -> i32 {
		%Entry:
			$c.1 <- mul i32 $a, $b;
			ret $c.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := osr.Run(fn)
	if changed != 0 {
		t.Fatalf("expected no induction variable, got %d rewrites", changed)
	}
}
