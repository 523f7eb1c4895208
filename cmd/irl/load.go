package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"irl/internal/astir"
	"irl/internal/diag"
	"irl/internal/ir"
	"irl/internal/lexer"
	"irl/internal/parser"
	"irl/internal/source"
	"irl/internal/ssa"
	"irl/internal/token"
)

// loaded bundles every intermediate artifact one source file produces on
// its way from bytes to a verified program graph, so each subcommand can
// stop at the stage it cares about.
type loaded struct {
	fs     *source.FileSet
	strs   *source.Interner
	bag    *diag.Bag
	ast    *astir.Program
	astOK  bool
	prog   *ir.Program
	progOK bool
}

// loadTokens runs only the lexer, for the tokenize subcommand.
func loadTokens(path string, maxDiagnostics int) (*loaded, []token.Token, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", path, err)
	}
	strs := source.NewInterner()
	bag := diag.NewBag(maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	lx := lexer.New(fs.Get(id), strs, reporter)
	var tokens []token.Token
	for {
		tok := lx.Next()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return &loaded{fs: fs, strs: strs, bag: bag}, tokens, nil
}

// loadFile lexes, parses, and builds path's program graph in one pass,
// stopping as soon as a stage fails.
func loadFile(path string, maxDiagnostics int) (*loaded, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	strs := source.NewInterner()
	bag := diag.NewBag(maxDiagnostics)
	reporter := diag.BagReporter{Bag: bag}

	l := loaded{fs: fs, strs: strs, bag: bag}

	lx := lexer.New(fs.Get(id), strs, reporter)
	p := parser.New(lx, strs, reporter)
	ast, ok := p.ParseProgram()
	l.ast, l.astOK = ast, ok
	if !ok {
		return &l, nil
	}

	b := ir.NewBuilder(strs, reporter)
	prog, ok := b.Build(ast)
	l.prog, l.progOK = prog, ok
	if ok {
		for _, fn := range prog.Funcs {
			inSSA := false
			fn.AllInstrs(func(in *ir.Instr) {
				if in.Op == ir.OpPhi || (in.HasDst && in.Dst.Version > 0) {
					inSSA = true
				}
			})
			if !inSSA {
				ssa.ToSSA(fn)
			}
		}
	}
	return &l, nil
}

// verifyAll runs the SSA verifier over every function in prog, reporting
// any VerifyError onto bag.
func verifyAll(prog *ir.Program, bag *diag.Bag) bool {
	ok := true
	for _, fn := range prog.Funcs {
		for _, ve := range ssa.Verify(fn) {
			ok = false
			bag.Add(diag.NewError(diag.SSADominanceViolation, source.Span{}, fmt.Sprintf("block %d instr %d: %s", ve.Block, ve.Instr, ve.Msg)))
		}
	}
	return ok
}

func printDiagnostics(l *loaded, colored bool) {
	if l.bag == nil || l.bag.Len() == 0 {
		return
	}
	for _, d := range l.bag.Items() {
		start, _ := l.fs.Resolve(d.Primary)
		loc := fmt.Sprintf("%d:%d", start.Line, start.Col)
		label := fmt.Sprintf("%s %s %s: %s", d.Severity, d.Code.ID(), loc, d.Message)
		if !colored {
			fmt.Println(label)
			continue
		}
		switch d.Severity {
		case diag.SevError:
			color.New(color.FgRed, color.Bold).Println(label)
		case diag.SevWarning:
			color.New(color.FgYellow).Println(label)
		default:
			fmt.Println(label)
		}
	}
}

func useColor(cmd *cobra.Command, out *os.File) bool {
	colorFlag, _ := cmd.Root().PersistentFlags().GetString("color")
	switch colorFlag {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(out)
	}
}
