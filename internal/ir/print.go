package ir

import (
	"fmt"
	"strconv"
	"strings"

	"irl/internal/source"
	"irl/internal/types"
)

// Print renders prog back into the textual grammar its own parser accepts
// (spec.md §6): type aliases are not re-emitted (they have already been
// unfolded into structural TypeIDs by the builder), globals and functions
// are. Round-trip equivalence is structural, not textual: reparsing Print's
// output yields a program graph with the same types, values, and control
// flow, not necessarily byte-identical text.
func Print(prog *Program, strs *source.Interner) string {
	var b strings.Builder
	for _, g := range prog.Globals {
		b.WriteString(g.Sym.String(strs))
		b.WriteString(": ")
		b.WriteString(typeString(prog.Types, g.Type))
		if g.HasInit {
			b.WriteString(" <- ")
			b.WriteString(strconv.FormatInt(g.Init, 10))
		}
		b.WriteString(";\n")
	}
	if len(prog.Globals) > 0 && len(prog.Funcs) > 0 {
		b.WriteString("\n")
	}
	for i, fn := range prog.Funcs {
		if i > 0 {
			b.WriteString("\n")
		}
		printFunc(&b, fn, prog.Types, strs)
	}
	return b.String()
}

func printFunc(b *strings.Builder, fn *Func, interner *types.Interner, strs *source.Interner) {
	b.WriteString("fn ")
	b.WriteString(fn.Name.String(strs))
	b.WriteString("(")
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Sym.String(strs))
		b.WriteString(": ")
		b.WriteString(typeString(interner, p.Type))
	}
	b.WriteString(")")
	if fn.RetType != types.NoTypeID {
		b.WriteString(" -> ")
		b.WriteString(typeString(interner, fn.RetType))
	}
	b.WriteString(" {\n")
	for _, blk := range fn.Blocks {
		b.WriteString(labelString(strs, blk.Label))
		b.WriteString(":\n")
		for _, in := range blk.Instrs {
			b.WriteString("\t")
			printInstr(b, fn, in, interner, strs)
			b.WriteString(";\n")
		}
	}
	b.WriteString("}\n")
}

func printInstr(b *strings.Builder, fn *Func, in *Instr, interner *types.Interner, strs *source.Interner) {
	if in.HasDst {
		b.WriteString(in.Dst.String(strs))
		b.WriteString(" <- ")
	}
	switch in.Op {
	case OpPhi:
		b.WriteString("phi ")
		b.WriteString(typeString(interner, fn.DstTypes[in.Dst]))
		for _, a := range in.PhiArgs {
			b.WriteString(" [")
			b.WriteString(labelString(strs, fn.Block(a.Pred).Label))
			b.WriteString(": ")
			b.WriteString(a.Val.String(strs))
			b.WriteString("]")
		}
	case OpJmp:
		b.WriteString("jmp ")
		b.WriteString(labelString(strs, fn.Block(in.Targets[0]).Label))
	case OpBr:
		b.WriteString("br ")
		b.WriteString(in.A.String(strs))
		b.WriteString(" ? ")
		b.WriteString(labelString(strs, fn.Block(in.Targets[0]).Label))
		b.WriteString(" : ")
		b.WriteString(labelString(strs, fn.Block(in.Targets[1]).Label))
	case OpRet:
		b.WriteString("ret")
		if in.A.Valid() {
			b.WriteString(" ")
			b.WriteString(in.A.String(strs))
		}
	case OpCall:
		b.WriteString("call ")
		b.WriteString(in.Callee.String(strs))
		b.WriteString("(")
		for i, a := range in.Extra {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String(strs))
		}
		b.WriteString(")")
	case OpAlloc, OpNew:
		b.WriteString(in.Op.String())
		b.WriteString(" ")
		b.WriteString(typeString(interner, fn.DstTypes[in.Dst]))
	case OpPtr:
		b.WriteString("ptr ")
		b.WriteString(typeString(interner, fn.DstTypes[in.Dst]))
		b.WriteString(" ")
		b.WriteString(in.A.String(strs))
		for _, idx := range in.Extra {
			b.WriteString(", ")
			b.WriteString(idx.String(strs))
		}
	case OpSt:
		b.WriteString("st ")
		b.WriteString(typeString(interner, in.B.Type))
		b.WriteString(" ")
		b.WriteString(in.A.String(strs))
		b.WriteString(", ")
		b.WriteString(in.B.String(strs))
	default:
		b.WriteString(in.Op.String())
		b.WriteString(" ")
		b.WriteString(typeString(interner, fn.DstTypes[in.Dst]))
		b.WriteString(" ")
		b.WriteString(in.A.String(strs))
		if in.B.Valid() {
			b.WriteString(", ")
			b.WriteString(in.B.String(strs))
		}
	}
}

// labelString renders a block label with its grammar sigil.
func labelString(strs *source.Interner, id source.StringID) string {
	return "%" + strs.MustLookup(id)
}

// typeString renders id using the parenthesized constructor syntax
// (ptr(T), array(T,N), struct(T,T,...)) the parser accepts — distinct from
// types.Interner.String, which uses angle brackets for debug/panic output
// and is not meant to round-trip through the parser.
func typeString(interner *types.Interner, id types.TypeID) string {
	if interner == nil || id == types.NoTypeID {
		return "i32"
	}
	t := interner.MustLookup(id)
	switch t.Kind {
	case types.KindInt:
		return fmt.Sprintf("i%d", t.Width)
	case types.KindPtr:
		return "ptr(" + typeString(interner, t.Elem) + ")"
	case types.KindArray:
		return fmt.Sprintf("array(%s,%d)", typeString(interner, t.Elem), t.Count)
	case types.KindStruct:
		fields := interner.StructFields(id)
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = typeString(interner, f)
		}
		return "struct(" + strings.Join(parts, ",") + ")"
	default:
		return "i32"
	}
}
