package sccp_test

import (
	"testing"

	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/sccp"
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

func TestRunFoldsArithmeticChain(t *testing.T) {
	prog := build(t, `
		fn @f() -> i32 {
		%Entry:
			$a.1 <- add i32 1, 2;
			$b.1 <- mul i32 $a.1, 10;
			ret $b.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := sccp.Run(fn)
	if changed != 2 {
		t.Fatalf("expected both definitions folded, got %d", changed)
	}
	ret := fn.Blocks[0].Terminator()
	last := fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-2]
	if last.Op != ir.OpMove || !last.A.IsConst() || last.A.Const != 30 {
		t.Fatalf("expected $b.1 folded to mov of 30, got %+v", last)
	}
	if !ret.A.IsSymbol() {
		t.Fatalf("expected ret to still reference the folded symbol, got %+v", ret.A)
	}
}

func TestRunFoldsConstantBranch(t *testing.T) {
	prog := build(t, `
		fn @f() -> i32 {
		%Entry:
			$c.1 <- lt i32 1, 2;
			br $c.1 ? %Then : %Else;
		%Then:
			ret 10;
		%Else:
			ret 20;
		}
	`)
	fn := prog.Funcs[0]
	changed := sccp.Run(fn)
	if changed == 0 {
		t.Fatalf("expected the branch to fold")
	}
	term := fn.Blocks[0].Terminator()
	if term.Op != ir.OpJmp {
		t.Fatalf("expected entry's terminator to collapse to jmp, got %s", term.Op)
	}
}

func TestRunWithGlobalsFoldsReadOnlyGlobal(t *testing.T) {
	prog := build(t, `
		@g: i32 <- 1;
		fn @f() -> i32 {
		%Entry:
			$k.1 <- mov i32 @g;
			ret $k.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := sccp.RunWithGlobals(fn, prog.Globals)
	if changed != 1 {
		t.Fatalf("expected the global read to fold, got %d changed", changed)
	}
	mv := fn.Blocks[0].Instrs[0]
	if mv.Op != ir.OpMove || !mv.A.IsConst() || mv.A.Const != 1 {
		t.Fatalf("expected $k.1 folded to mov of constant 1, got %+v", mv)
	}
}

func TestRunWithoutGlobalsLeavesGlobalReadAtTop(t *testing.T) {
	prog := build(t, `
		@g: i32 <- 1;
		fn @f() -> i32 {
		%Entry:
			$k.1 <- mov i32 @g;
			ret $k.1;
		}
	`)
	fn := prog.Funcs[0]
	changed := sccp.Run(fn)
	mv := fn.Blocks[0].Instrs[0]
	if changed != 0 || mv.Op != ir.OpMove || !mv.A.IsSymbol() {
		t.Fatalf("expected Run (no globals) to leave the global read unfolded, got changed=%d instr=%+v", changed, mv)
	}
}

func TestRunMeetsPhiToBottomOnDivergentConstants(t *testing.T) {
	prog := build(t, `
		fn @f($p: i32) -> i32 {
		%Entry:
			br $p ? %Then : %Else;
		%Then:
			jmp %Join;
		%Else:
			jmp %Join;
		%Join:
			$r.1 <- phi i32 [%Then: 1] [%Else: 2];
			ret $r.1;
		}
	`)
	fn := prog.Funcs[0]
	sccp.Run(fn)
	var phi *ir.Instr
	for _, in := range fn.Blocks[3].Instrs {
		if in.Op == ir.OpPhi {
			phi = in
		}
	}
	if phi == nil {
		t.Fatalf("expected the join block to still carry its phi")
	}
}
