// Package ir implements the program graph: types, values, instructions,
// blocks, functions, and the whole program, as a tagged-variant instruction
// representation, plus the AST-to-graph builder that enforces
// construction-time invariants.
package ir

import (
	"strconv"

	"irl/internal/source"
	"irl/internal/symbols"
	"irl/internal/types"
)

// ValueKind distinguishes the operand forms spec.md §3 allows: a
// compile-time constant or a reference to a named symbol (global or local).
// Block labels are not values; they appear only in terminator targets and
// phi predecessor lists.
type ValueKind uint8

const (
	ValueInvalid ValueKind = iota
	ValueConst
	ValueSymbol
)

// Value is an operand: either an integer constant of a scalar type, or a
// reference to a global/local symbol.
type Value struct {
	Kind  ValueKind
	Type  types.TypeID
	Const int64
	Sym   symbols.Symbol
}

func ConstValue(t types.TypeID, v int64) Value {
	return Value{Kind: ValueConst, Type: t, Const: v}
}

func SymValue(t types.TypeID, sym symbols.Symbol) Value {
	return Value{Kind: ValueSymbol, Type: t, Sym: sym}
}

func (v Value) IsConst() bool  { return v.Kind == ValueConst }
func (v Value) IsSymbol() bool { return v.Kind == ValueSymbol }
func (v Value) Valid() bool    { return v.Kind != ValueInvalid }

// Equal reports structural equality of two operands: same kind, same
// constant value, or same symbol identity. It does not consult GVN; it is
// the plain operand-level equality the verifier and builder use.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueConst:
		return v.Const == o.Const && v.Type == o.Type
	case ValueSymbol:
		return v.Sym == o.Sym
	default:
		return true
	}
}

func (v Value) String(strs *source.Interner) string {
	switch v.Kind {
	case ValueConst:
		return strconv.FormatInt(v.Const, 10)
	case ValueSymbol:
		return v.Sym.String(strs)
	default:
		return "<invalid>"
	}
}
