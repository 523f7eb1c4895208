package lexer

import (
	"fmt"
	"strconv"

	"irl/internal/diag"
	"irl/internal/source"
	"irl/internal/token"
)

// Lexer scans one file into a Token stream. It does not buffer the whole
// stream; callers pull tokens with Next.
type Lexer struct {
	cur    Cursor
	strs   *source.Interner
	report diag.Reporter
}

func New(f *source.File, strs *source.Interner, report diag.Reporter) *Lexer {
	return &Lexer{cur: NewCursor(f), strs: strs, report: report}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// Next scans and returns the next token, skipping whitespace and line
// comments ("# ...").
func (l *Lexer) Next() token.Token {
	l.skipTrivia()

	m := l.cur.Mark()
	if l.cur.EOF() {
		return token.Token{Kind: token.EOF, Span: l.cur.SpanFrom(m)}
	}

	b := l.cur.Peek()
	switch {
	case b == '@':
		return l.scanSigilName(m, token.Global)
	case b == '%':
		return l.scanSigilName(m, token.Label)
	case b == '$':
		return l.scanLocal(m)
	case isDigit(b) || (b == '-' && isDigit(l.cur.PeekAt(1))):
		return l.scanInt(m)
	case isAlpha(b):
		return l.scanIdent(m)
	default:
		return l.scanPunct(m)
	}
}

func (l *Lexer) skipTrivia() {
	for !l.cur.EOF() {
		b := l.cur.Peek()
		switch {
		case isSpace(b):
			l.cur.Bump()
		case b == '#':
			for !l.cur.EOF() && l.cur.Peek() != '\n' {
				l.cur.Bump()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanName() string {
	start := l.cur.Off
	for isAlnum(l.cur.Peek()) {
		l.cur.Bump()
	}
	return string(l.cur.File.Content[start:l.cur.Off])
}

func (l *Lexer) scanSigilName(m Mark, kind token.Kind) token.Token {
	l.cur.Bump() // sigil
	name := l.scanName()
	if name == "" {
		return l.errorf(m, diag.LexUnknownChar, "expected a name after sigil")
	}
	return token.Token{Kind: kind, Span: l.cur.SpanFrom(m), Text: name}
}

func (l *Lexer) scanLocal(m Mark) token.Token {
	l.cur.Bump() // '$'
	name := l.scanName()
	if name == "" {
		return l.errorf(m, diag.LexUnknownChar, "expected a name after '$'")
	}
	tok := token.Token{Kind: token.Local, Span: l.cur.SpanFrom(m), Text: name}
	if l.cur.Peek() == '.' && isDigit(l.cur.PeekAt(1)) {
		l.cur.Bump() // '.'
		vStart := l.cur.Off
		for isDigit(l.cur.Peek()) {
			l.cur.Bump()
		}
		v, err := strconv.ParseUint(string(l.cur.File.Content[vStart:l.cur.Off]), 10, 32)
		if err != nil {
			return l.errorf(m, diag.LexBadNumber, "malformed SSA version suffix")
		}
		tok.HasVersion = true
		tok.Version = uint32(v)
	}
	tok.Span = l.cur.SpanFrom(m)
	return tok
}

func (l *Lexer) scanInt(m Mark) token.Token {
	start := l.cur.Off
	if l.cur.Peek() == '-' {
		l.cur.Bump()
	}
	if !isDigit(l.cur.Peek()) {
		return l.errorf(m, diag.LexBadNumber, "malformed integer literal")
	}
	for isDigit(l.cur.Peek()) {
		l.cur.Bump()
	}
	text := string(l.cur.File.Content[start:l.cur.Off])
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return l.errorf(m, diag.LexBadNumber, "integer literal out of range: %s", text)
	}
	return token.Token{Kind: token.Int, Span: l.cur.SpanFrom(m), Text: text, IVal: v}
}

func (l *Lexer) scanIdent(m Mark) token.Token {
	name := l.scanName()
	return token.Token{Kind: token.Ident, Span: l.cur.SpanFrom(m), Text: name}
}

func (l *Lexer) scanPunct(m Mark) token.Token {
	b := l.cur.Bump()
	switch b {
	case '<':
		if l.cur.Eat('-') {
			return token.Token{Kind: token.Arrow, Span: l.cur.SpanFrom(m)}
		}
	case '-':
		if l.cur.Eat('>') {
			return token.Token{Kind: token.RetArrow, Span: l.cur.SpanFrom(m)}
		}
	case ':':
		return token.Token{Kind: token.Colon, Span: l.cur.SpanFrom(m)}
	case ';':
		return token.Token{Kind: token.Semi, Span: l.cur.SpanFrom(m)}
	case ',':
		return token.Token{Kind: token.Comma, Span: l.cur.SpanFrom(m)}
	case '{':
		return token.Token{Kind: token.LBrace, Span: l.cur.SpanFrom(m)}
	case '}':
		return token.Token{Kind: token.RBrace, Span: l.cur.SpanFrom(m)}
	case '(':
		return token.Token{Kind: token.LParen, Span: l.cur.SpanFrom(m)}
	case ')':
		return token.Token{Kind: token.RParen, Span: l.cur.SpanFrom(m)}
	case '[':
		return token.Token{Kind: token.LBracket, Span: l.cur.SpanFrom(m)}
	case ']':
		return token.Token{Kind: token.RBracket, Span: l.cur.SpanFrom(m)}
	case '?':
		return token.Token{Kind: token.Question, Span: l.cur.SpanFrom(m)}
	case '=':
		return token.Token{Kind: token.Eq, Span: l.cur.SpanFrom(m)}
	}
	return l.errorf(m, diag.LexUnknownChar, "unexpected character %q", b)
}

func (l *Lexer) errorf(m Mark, code diag.Code, format string, args ...any) token.Token {
	span := l.cur.SpanFrom(m)
	if l.report != nil {
		diag.ReportError(l.report, code, span, fmt.Sprintf(format, args...)).Emit()
	}
	return token.Token{Kind: token.Error, Span: span}
}
