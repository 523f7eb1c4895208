package ir_test

import (
	"testing"

	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/source"
)

func build(t *testing.T, content string) (*ir.Program, bool) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.ir", []byte(content))
	strs := source.NewInterner()
	lx := lexer.New(fs.Get(id), strs, nil)
	p := parser.New(lx, strs, nil)
	prog, ok := p.ParseProgram()
	if !ok {
		t.Fatalf("parse failed")
	}
	b := ir.NewBuilder(strs, nil)
	return b.Build(prog)
}

func TestBuildAddFunction(t *testing.T) {
	prog, ok := build(t, `
		fn @add($a: i32, $b: i32) -> i32 {
		%Entry:
			$sum.1 <- add i32 $a, $b;
			ret $sum.1;
		}
	`)
	if !ok {
		t.Fatalf("expected build to succeed")
	}
	if len(prog.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Funcs))
	}
	fn := prog.Funcs[0]
	if len(fn.Blocks) != 1 || len(fn.Blocks[0].Instrs) != 2 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if fn.Blocks[0].Terminator() == nil {
		t.Fatalf("expected entry block to have a terminator")
	}
}

func TestBuildRejectsUndefinedSymbol(t *testing.T) {
	_, ok := build(t, `
		fn @f() -> i32 {
		%Entry:
			ret $missing;
		}
	`)
	if ok {
		t.Fatalf("expected build to fail on undefined symbol")
	}
}

func TestBuildRejectsMissingTerminator(t *testing.T) {
	_, ok := build(t, `
		fn @f() -> i32 {
		%Entry:
			$x.1 <- add i32 0, 1;
		}
	`)
	if ok {
		t.Fatalf("expected build to fail on missing terminator")
	}
}

func TestBuildRejectsUnknownBranchTarget(t *testing.T) {
	_, ok := build(t, `
		fn @f() -> i32 {
		%Entry:
			jmp %Nowhere;
		}
	`)
	if ok {
		t.Fatalf("expected build to fail on unknown branch target")
	}
}

func TestBuildResolvesTypeAliasAndGlobal(t *testing.T) {
	prog, ok := build(t, `
		type @Word = i32;
		@counter: @Word <- 10;

		fn @read() -> i32 {
		%Entry:
			$v.1 <- mov i32 @counter;
			ret $v.1;
		}
	`)
	if !ok {
		t.Fatalf("expected build to succeed")
	}
	g, ok := prog.Global(prog.Strings.Intern("counter"))
	if !ok {
		t.Fatalf("expected global counter to be defined")
	}
	i32 := prog.Types.Builtins().I32
	if g.Type != i32 {
		t.Fatalf("expected counter's alias type to unfold to i32, got %s", prog.Types.String(g.Type))
	}
}

func TestBuildCallArityMismatch(t *testing.T) {
	_, ok := build(t, `
		fn @callee($a: i32) -> i32 {
		%Entry:
			ret $a;
		}
		fn @caller() -> i32 {
		%Entry:
			$r.1 <- call @callee();
			ret $r.1;
		}
	`)
	if ok {
		t.Fatalf("expected build to fail on call arity mismatch")
	}
}
