// Package astir holds the parsed form of the textual IR grammar (spec.md
// §6): type alias declarations, global declarations, function declarations
// with their blocks and instruction lines, and phi operand lists — the
// direct output of internal/parser, consumed by internal/ir's Builder.
package astir

import "irl/internal/source"

// Program is a full parsed textual IR unit.
type Program struct {
	Aliases []AliasDecl
	Globals []GlobalDecl
	Funcs   []FuncDecl
}

type AliasDecl struct {
	Name string
	Type TypeExpr
	Span source.Span
}

type GlobalDecl struct {
	Name    string
	Type    TypeExpr
	HasInit bool
	Init    int64
	Span    source.Span
}

type ParamDecl struct {
	Name    string
	Version uint32
	Type    TypeExpr
	Span    source.Span
}

type FuncDecl struct {
	Name    string
	Params  []ParamDecl
	HasRet  bool
	RetType TypeExpr
	Blocks  []BlockDecl
	Span    source.Span
}

type BlockDecl struct {
	Label  string
	Instrs []InstrDecl
	Span   source.Span
}

// TypeExprKind distinguishes the forms of a parsed type expression.
type TypeExprKind uint8

const (
	TypeInt TypeExprKind = iota
	TypePtr
	TypeArray
	TypeStruct
	TypeNamed // reference to a declared alias
)

type TypeExpr struct {
	Kind   TypeExprKind
	Width  uint8       // TypeInt
	Elem   *TypeExpr   // TypePtr, TypeArray
	Count  uint32      // TypeArray
	Fields []TypeExpr  // TypeStruct
	Name   string      // TypeNamed
	Span   source.Span
}

// OperandExprKind distinguishes a parsed operand's form.
type OperandExprKind uint8

const (
	OperandConst OperandExprKind = iota
	OperandGlobal
	OperandLocal
)

type OperandExpr struct {
	Kind       OperandExprKind
	IVal       int64  // OperandConst
	Name       string // OperandGlobal, OperandLocal
	HasVersion bool   // OperandLocal
	Version    uint32 // OperandLocal
	Span       source.Span
}

// PhiArgDecl is one "[%pred: value]" entry of a phi instruction.
type PhiArgDecl struct {
	Pred string
	Val  OperandExpr
	Span source.Span
}

// InstrDecl is one parsed instruction line: "dst <- op type operands" or a
// bare terminator ("jmp %L;", "br cond ? %T : %F;", "ret [value];").
type InstrDecl struct {
	HasDst     bool
	DstName    string
	DstVersion uint32
	HasVersion bool

	Op   string
	Type TypeExpr

	Operands []OperandExpr // fixed + overflow operands, in source order
	PhiArgs  []PhiArgDecl  // only for op == "phi"

	Callee string // only for op == "call"

	// Targets: jmp has exactly one; br has two (true, false).
	Targets []string

	Span source.Span
}
