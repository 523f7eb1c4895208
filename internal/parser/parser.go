// Package parser implements a recursive-descent parser for the textual IR
// grammar (spec.md §6): type aliases, globals, functions, blocks, and
// instruction lines, including the phi-list grammar that needs two tokens
// of lookahead to disambiguate "$dst <- phi ..." from a bare terminator.
// Errors are reported through internal/diag and the parser resynchronizes
// at the next statement boundary rather than aborting on the first error.
package parser

import (
	"fmt"

	"irl/internal/astir"
	"irl/internal/diag"
	"irl/internal/lexer"
	"irl/internal/source"
	"irl/internal/token"
)

// Parser consumes a token.Token stream from a *lexer.Lexer and produces an
// astir.Program. It buffers up to two tokens of lookahead.
type Parser struct {
	lx     *lexer.Lexer
	strs   *source.Interner
	report diag.Reporter
	buf    []token.Token
	failed bool
}

func New(lx *lexer.Lexer, strs *source.Interner, report diag.Reporter) *Parser {
	return &Parser{lx: lx, strs: strs, report: report}
}

func (p *Parser) fill(n int) {
	for len(p.buf) <= n {
		p.buf = append(p.buf, p.lx.Next())
	}
}

func (p *Parser) cur() token.Token {
	p.fill(0)
	return p.buf[0]
}

func (p *Parser) peek(n int) token.Token {
	p.fill(n)
	return p.buf[n]
}

func (p *Parser) bump() token.Token {
	p.fill(0)
	t := p.buf[0]
	p.buf = p.buf[1:]
	return t
}

func (p *Parser) errorf(span source.Span, code diag.Code, format string, args ...any) {
	p.failed = true
	if p.report != nil {
		diag.ReportError(p.report, code, span, fmt.Sprintf(format, args...)).Emit()
	}
}

func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	t := p.cur()
	if t.Kind != k {
		p.errorf(t.Span, diag.SynUnexpectedToken, "expected %s, found %s", k, t.Kind)
		return t, false
	}
	return p.bump(), true
}

func (p *Parser) expectIdent(text string) bool {
	t := p.cur()
	if t.Kind != token.Ident || t.Text != text {
		p.errorf(t.Span, diag.SynUnexpectedToken, "expected %q, found %s", text, t.Kind)
		return false
	}
	p.bump()
	return true
}

// synchronize skips tokens up to and including the next ';' or '}' so
// parsing can continue after a malformed declaration or instruction line.
func (p *Parser) synchronize() {
	for {
		t := p.cur()
		if t.Kind == token.EOF {
			return
		}
		p.bump()
		if t.Kind == token.Semi || t.Kind == token.RBrace {
			return
		}
	}
}

// ParseProgram parses a whole textual IR unit. The second return value is
// false if the caller's diag.Reporter recorded any error.
func (p *Parser) ParseProgram() (*astir.Program, bool) {
	prog := &astir.Program{}
	for p.cur().Kind != token.EOF {
		switch t := p.cur(); {
		case t.Kind == token.Ident && t.Text == "type":
			if a, ok := p.parseAlias(); ok {
				prog.Aliases = append(prog.Aliases, a)
			} else {
				p.synchronize()
			}
		case t.Kind == token.Ident && t.Text == "fn":
			if f, ok := p.parseFunc(); ok {
				prog.Funcs = append(prog.Funcs, f)
			} else {
				p.synchronize()
			}
		case t.Kind == token.Global:
			if g, ok := p.parseGlobal(); ok {
				prog.Globals = append(prog.Globals, g)
			} else {
				p.synchronize()
			}
		default:
			p.errorf(t.Span, diag.SynUnexpectedToken, "expected a type alias, global, or function declaration, found %s", t.Kind)
			p.bump()
		}
	}
	return prog, !p.failed
}

func (p *Parser) parseAlias() (astir.AliasDecl, bool) {
	start := p.cur().Span
	p.bump() // 'type'
	name, ok := p.expect(token.Global)
	if !ok {
		return astir.AliasDecl{}, false
	}
	if _, ok := p.expect(token.Eq); !ok {
		return astir.AliasDecl{}, false
	}
	ty, ok := p.parseType()
	if !ok {
		return astir.AliasDecl{}, false
	}
	end, ok := p.expect(token.Semi)
	if !ok {
		return astir.AliasDecl{}, false
	}
	return astir.AliasDecl{Name: name.Text, Type: ty, Span: span(start, end.Span)}, true
}

func (p *Parser) parseGlobal() (astir.GlobalDecl, bool) {
	start := p.cur().Span
	name := p.bump() // Global
	if _, ok := p.expect(token.Colon); !ok {
		return astir.GlobalDecl{}, false
	}
	ty, ok := p.parseType()
	if !ok {
		return astir.GlobalDecl{}, false
	}
	g := astir.GlobalDecl{Name: name.Text, Type: ty}
	if p.cur().Kind == token.Arrow {
		p.bump()
		lit, ok := p.expect(token.Int)
		if !ok {
			return astir.GlobalDecl{}, false
		}
		g.HasInit = true
		g.Init = lit.IVal
	}
	end, ok := p.expect(token.Semi)
	if !ok {
		return astir.GlobalDecl{}, false
	}
	g.Span = span(start, end.Span)
	return g, true
}

func (p *Parser) parseType() (astir.TypeExpr, bool) {
	t := p.cur()
	if t.Kind != token.Ident {
		p.errorf(t.Span, diag.SynMalformedType, "expected a type, found %s", t.Kind)
		return astir.TypeExpr{}, false
	}
	switch t.Text {
	case "i8", "i16", "i32", "i64":
		p.bump()
		width := map[string]uint8{"i8": 8, "i16": 16, "i32": 32, "i64": 64}[t.Text]
		return astir.TypeExpr{Kind: astir.TypeInt, Width: width, Span: t.Span}, true
	case "ptr":
		p.bump()
		if _, ok := p.expect(token.LParen); !ok {
			return astir.TypeExpr{}, false
		}
		elem, ok := p.parseType()
		if !ok {
			return astir.TypeExpr{}, false
		}
		end, ok := p.expect(token.RParen)
		if !ok {
			return astir.TypeExpr{}, false
		}
		return astir.TypeExpr{Kind: astir.TypePtr, Elem: &elem, Span: span(t.Span, end.Span)}, true
	case "array":
		p.bump()
		if _, ok := p.expect(token.LParen); !ok {
			return astir.TypeExpr{}, false
		}
		elem, ok := p.parseType()
		if !ok {
			return astir.TypeExpr{}, false
		}
		if _, ok := p.expect(token.Comma); !ok {
			return astir.TypeExpr{}, false
		}
		n, ok := p.expect(token.Int)
		if !ok {
			return astir.TypeExpr{}, false
		}
		end, ok := p.expect(token.RParen)
		if !ok {
			return astir.TypeExpr{}, false
		}
		return astir.TypeExpr{Kind: astir.TypeArray, Elem: &elem, Count: uint32(n.IVal), Span: span(t.Span, end.Span)}, true
	case "struct":
		p.bump()
		if _, ok := p.expect(token.LParen); !ok {
			return astir.TypeExpr{}, false
		}
		var fields []astir.TypeExpr
		for p.cur().Kind != token.RParen {
			f, ok := p.parseType()
			if !ok {
				return astir.TypeExpr{}, false
			}
			fields = append(fields, f)
			if p.cur().Kind == token.Comma {
				p.bump()
			} else {
				break
			}
		}
		end, ok := p.expect(token.RParen)
		if !ok {
			return astir.TypeExpr{}, false
		}
		return astir.TypeExpr{Kind: astir.TypeStruct, Fields: fields, Span: span(t.Span, end.Span)}, true
	default:
		p.bump()
		return astir.TypeExpr{Kind: astir.TypeNamed, Name: t.Text, Span: t.Span}, true
	}
}

func (p *Parser) parseFunc() (astir.FuncDecl, bool) {
	start := p.cur().Span
	p.bump() // 'fn'
	name, ok := p.expect(token.Global)
	if !ok {
		return astir.FuncDecl{}, false
	}
	fn := astir.FuncDecl{Name: name.Text}
	if _, ok := p.expect(token.LParen); !ok {
		return astir.FuncDecl{}, false
	}
	for p.cur().Kind != token.RParen {
		param, ok := p.parseParam()
		if !ok {
			return astir.FuncDecl{}, false
		}
		fn.Params = append(fn.Params, param)
		if p.cur().Kind == token.Comma {
			p.bump()
		} else {
			break
		}
	}
	if _, ok := p.expect(token.RParen); !ok {
		return astir.FuncDecl{}, false
	}
	if p.cur().Kind == token.RetArrow {
		p.bump()
		ty, ok := p.parseType()
		if !ok {
			return astir.FuncDecl{}, false
		}
		fn.HasRet = true
		fn.RetType = ty
	}
	if _, ok := p.expect(token.LBrace); !ok {
		return astir.FuncDecl{}, false
	}
	for p.cur().Kind == token.Label {
		blk, ok := p.parseBlock()
		if !ok {
			return astir.FuncDecl{}, false
		}
		fn.Blocks = append(fn.Blocks, blk)
	}
	end, ok := p.expect(token.RBrace)
	if !ok {
		return astir.FuncDecl{}, false
	}
	fn.Span = span(start, end.Span)
	return fn, true
}

func (p *Parser) parseParam() (astir.ParamDecl, bool) {
	t, ok := p.expect(token.Local)
	if !ok {
		return astir.ParamDecl{}, false
	}
	if _, ok := p.expect(token.Colon); !ok {
		return astir.ParamDecl{}, false
	}
	ty, ok := p.parseType()
	if !ok {
		return astir.ParamDecl{}, false
	}
	return astir.ParamDecl{Name: t.Text, Version: t.Version, Type: ty, Span: span(t.Span, ty.Span)}, true
}

func (p *Parser) parseBlock() (astir.BlockDecl, bool) {
	label, ok := p.expect(token.Label)
	if !ok {
		return astir.BlockDecl{}, false
	}
	if _, ok := p.expect(token.Colon); !ok {
		return astir.BlockDecl{}, false
	}
	blk := astir.BlockDecl{Label: label.Text, Span: label.Span}
	for p.cur().Kind != token.Label && p.cur().Kind != token.RBrace && p.cur().Kind != token.EOF {
		in, ok := p.parseInstr()
		if !ok {
			p.synchronize()
			continue
		}
		blk.Instrs = append(blk.Instrs, in)
	}
	return blk, true
}

// parseInstr disambiguates an assignment instruction ("$dst <- op ...")
// from a bare terminator or side-effecting op (jmp, br, ret, st, call)
// using the second-token lookahead: Local immediately followed by Arrow.
func (p *Parser) parseInstr() (astir.InstrDecl, bool) {
	start := p.cur().Span
	var dstName string
	var dstVersion uint32
	hasVersion := false
	hasDst := false

	if p.cur().Kind == token.Local && p.peek(1).Kind == token.Arrow {
		dst := p.bump()
		p.bump() // Arrow
		dstName = dst.Text
		dstVersion = dst.Version
		hasVersion = dst.HasVersion
		hasDst = true
	}

	op, ok := p.expect(token.Ident)
	if !ok {
		return astir.InstrDecl{}, false
	}
	in := astir.InstrDecl{
		HasDst: hasDst, DstName: dstName, DstVersion: dstVersion, HasVersion: hasVersion,
		Op: op.Text,
	}

	switch op.Text {
	case "jmp":
		target, ok := p.expect(token.Label)
		if !ok {
			return astir.InstrDecl{}, false
		}
		in.Targets = []string{target.Text}
	case "br":
		cond, ok := p.parseOperand()
		if !ok {
			return astir.InstrDecl{}, false
		}
		in.Operands = append(in.Operands, cond)
		if _, ok := p.expect(token.Question); !ok {
			return astir.InstrDecl{}, false
		}
		tt, ok := p.expect(token.Label)
		if !ok {
			return astir.InstrDecl{}, false
		}
		if _, ok := p.expect(token.Colon); !ok {
			return astir.InstrDecl{}, false
		}
		ft, ok := p.expect(token.Label)
		if !ok {
			return astir.InstrDecl{}, false
		}
		in.Targets = []string{tt.Text, ft.Text}
	case "ret":
		if p.cur().Kind != token.Semi {
			v, ok := p.parseOperand()
			if !ok {
				return astir.InstrDecl{}, false
			}
			in.Operands = append(in.Operands, v)
		}
	case "call":
		callee, ok := p.expect(token.Global)
		if !ok {
			return astir.InstrDecl{}, false
		}
		in.Callee = callee.Text
		if _, ok := p.expect(token.LParen); !ok {
			return astir.InstrDecl{}, false
		}
		for p.cur().Kind != token.RParen {
			a, ok := p.parseOperand()
			if !ok {
				return astir.InstrDecl{}, false
			}
			in.Operands = append(in.Operands, a)
			if p.cur().Kind == token.Comma {
				p.bump()
			} else {
				break
			}
		}
		if _, ok := p.expect(token.RParen); !ok {
			return astir.InstrDecl{}, false
		}
	case "phi":
		ty, ok := p.parseType()
		if !ok {
			return astir.InstrDecl{}, false
		}
		in.Type = ty
		for p.cur().Kind == token.LBracket {
			argStart := p.cur().Span
			p.bump()
			pred, ok := p.expect(token.Label)
			if !ok {
				return astir.InstrDecl{}, false
			}
			if _, ok := p.expect(token.Colon); !ok {
				return astir.InstrDecl{}, false
			}
			val, ok := p.parseOperand()
			if !ok {
				return astir.InstrDecl{}, false
			}
			end, ok := p.expect(token.RBracket)
			if !ok {
				return astir.InstrDecl{}, false
			}
			in.PhiArgs = append(in.PhiArgs, astir.PhiArgDecl{Pred: pred.Text, Val: val, Span: span(argStart, end.Span)})
		}
		if len(in.PhiArgs) == 0 {
			p.errorf(p.cur().Span, diag.SynMalformedPhiList, "phi instruction has no predecessor arguments")
			return astir.InstrDecl{}, false
		}
	default:
		// Arithmetic/bitwise/comparison/mov/ld/st/alloc/new/ptr: an
		// operand type followed by a comma-separated operand list.
		ty, ok := p.parseType()
		if !ok {
			return astir.InstrDecl{}, false
		}
		in.Type = ty
		for p.cur().Kind != token.Semi {
			v, ok := p.parseOperand()
			if !ok {
				return astir.InstrDecl{}, false
			}
			in.Operands = append(in.Operands, v)
			if p.cur().Kind == token.Comma {
				p.bump()
			} else {
				break
			}
		}
	}

	end, ok := p.expect(token.Semi)
	if !ok {
		return astir.InstrDecl{}, false
	}
	in.Span = span(start, end.Span)
	return in, true
}

func (p *Parser) parseOperand() (astir.OperandExpr, bool) {
	t := p.cur()
	switch t.Kind {
	case token.Int:
		p.bump()
		return astir.OperandExpr{Kind: astir.OperandConst, IVal: t.IVal, Span: t.Span}, true
	case token.Global:
		p.bump()
		return astir.OperandExpr{Kind: astir.OperandGlobal, Name: t.Text, Span: t.Span}, true
	case token.Local:
		p.bump()
		return astir.OperandExpr{Kind: astir.OperandLocal, Name: t.Text, HasVersion: t.HasVersion, Version: t.Version, Span: t.Span}, true
	default:
		p.errorf(t.Span, diag.SynUnexpectedToken, "expected an operand, found %s", t.Kind)
		return astir.OperandExpr{}, false
	}
}

func span(a, b source.Span) source.Span {
	return source.Span{File: a.File, Start: a.Start, End: b.End}
}
