package ir

import (
	"fmt"

	"irl/internal/astir"
	"irl/internal/diag"
	"irl/internal/source"
	"irl/internal/symbols"
	"irl/internal/types"
)

// Builder walks a parsed astir.Program and emits a Program graph, checking
// the construction-time invariants spec.md §3 names: every symbol is
// defined before use (by declaration, not by dominance — that is
// internal/ssa's job), no duplicate definitions, operand arity matches the
// opcode, phi predecessor lists name only known blocks, every block ends in
// a terminator, and every branch target is a known label.
type Builder struct {
	strs   *source.Interner
	prog   *Program
	report diag.Reporter
	failed bool
}

func NewBuilder(strs *source.Interner, report diag.Reporter) *Builder {
	return &Builder{strs: strs, report: report}
}

func (b *Builder) errorf(span source.Span, code diag.Code, format string, args ...any) {
	b.failed = true
	if b.report != nil {
		diag.ReportError(b.report, code, span, fmt.Sprintf(format, args...)).Emit()
	}
}

// Build converts ast into a Program. The second return value is false if any
// construction error was reported.
func (b *Builder) Build(ast *astir.Program) (*Program, bool) {
	b.prog = NewProgram()
	b.prog.Strings = b.strs

	for _, a := range ast.Aliases {
		ty := b.resolveType(a.Type)
		b.prog.Types.DefineAlias(b.strs.Intern(a.Name), ty)
	}

	for _, g := range ast.Globals {
		ty := b.resolveType(g.Type)
		sym := symbols.Global(b.strs.Intern(g.Name))
		global := &Global{Sym: sym, Type: ty, HasInit: g.HasInit, Init: g.Init}
		if !b.prog.AddGlobal(global) {
			b.errorf(g.Span, diag.SemDuplicateDefinition, "duplicate global %q", g.Name)
		}
	}

	fns := make([]*Func, len(ast.Funcs))
	for i, fd := range ast.Funcs {
		params := make([]Param, len(fd.Params))
		for j, pd := range fd.Params {
			params[j] = Param{
				Sym:  symbols.Local(b.strs.Intern(pd.Name), pd.Version),
				Type: b.resolveType(pd.Type),
			}
		}
		retType := types.NoTypeID
		if fd.HasRet {
			retType = b.resolveType(fd.RetType)
		}
		fn := NewFunc(symbols.Global(b.strs.Intern(fd.Name)), params, retType)
		if !b.prog.AddFunc(fn) {
			b.errorf(fd.Span, diag.SemDuplicateDefinition, "duplicate function %q", fd.Name)
			continue
		}
		fns[i] = fn
	}

	for i, fd := range ast.Funcs {
		if fns[i] == nil {
			continue
		}
		b.buildFuncBody(fns[i], fd)
	}

	return b.prog, !b.failed
}

func (b *Builder) resolveType(te astir.TypeExpr) types.TypeID {
	switch te.Kind {
	case astir.TypeInt:
		return b.prog.Types.Intern(types.MakeInt(types.Width(te.Width)))
	case astir.TypePtr:
		elem := b.resolveType(*te.Elem)
		return b.prog.Types.Intern(types.MakePtr(elem))
	case astir.TypeArray:
		elem := b.resolveType(*te.Elem)
		return b.prog.Types.Intern(types.MakeArray(elem, te.Count))
	case astir.TypeStruct:
		fields := make([]types.TypeID, len(te.Fields))
		for i, f := range te.Fields {
			fields[i] = b.resolveType(f)
		}
		return b.prog.Types.InternStruct(fields)
	case astir.TypeNamed:
		id := b.strs.Intern(te.Name)
		if resolved, ok := b.prog.Types.ResolveAlias(id); ok {
			return resolved
		}
		b.errorf(te.Span, diag.SemUndefinedSymbol, "undefined type %q", te.Name)
		return types.NoTypeID
	default:
		return types.NoTypeID
	}
}

func (b *Builder) buildFuncBody(fn *Func, fd astir.FuncDecl) {
	for _, bd := range fd.Blocks {
		if _, err := fn.AddBlock(b.strs.Intern(bd.Label)); err != nil {
			b.errorf(bd.Span, diag.SemDuplicateBlock, "duplicate block label %q", bd.Label)
		}
	}

	locals := make(map[symbols.Symbol]types.TypeID)
	for _, p := range fn.Params {
		locals[p.Sym] = p.Type
	}
	// First pass: every instruction with a destination fixes that symbol's
	// type, independent of operand resolution order, since the grammar
	// always gives an explicit type for typed ops and call's type comes
	// from the already-registered callee signature.
	for _, bd := range fd.Blocks {
		for _, in := range bd.Instrs {
			if !in.HasDst {
				continue
			}
			sym := symbols.Local(b.strs.Intern(in.DstName), in.DstVersion)
			var ty types.TypeID
			if in.Op == "call" {
				callee, ok := b.prog.Func(b.strs.Intern(in.Callee))
				if ok {
					ty = callee.RetType
				}
			} else {
				ty = b.resolveType(in.Type)
			}
			// A version-0 local is not yet SSA-named: spec.md §6's textual
			// IR allows plain mutable locals (reassigned across a block, to
			// be promoted by internal/ssa's ToSSA later), so redefining one
			// is not an error. Only a duplicate *versioned* SSA name is.
			if sym.Version != 0 {
				if _, exists := locals[sym]; exists {
					b.errorf(in.Span, diag.SemDuplicateDefinition, "duplicate definition of %q", in.DstName)
					continue
				}
			}
			locals[sym] = ty
			fn.DstTypes[sym] = ty
		}
	}

	for _, bd := range fd.Blocks {
		blockID, _ := fn.BlockByLabel(b.strs.Intern(bd.Label))
		for _, in := range bd.Instrs {
			instr := b.buildInstr(fn, blockID, in, locals)
			if instr == nil {
				continue
			}
			var err error
			if instr.Op == OpPhi {
				err = fn.PrependPhi(blockID, instr)
			} else {
				err = fn.AppendInstr(blockID, instr)
			}
			if err != nil {
				b.errorf(in.Span, diag.SemInstructionMisplaced, "%v", err)
			}
		}
		blk := fn.Block(blockID)
		if blk.Terminator() == nil {
			b.errorf(bd.Span, diag.SemMissingTerminator, "block %q does not end in a terminator", bd.Label)
		}
	}
}

func (b *Builder) resolveBlockLabel(fn *Func, name string, span source.Span) BlockID {
	id, ok := fn.BlockByLabel(b.strs.Intern(name))
	if !ok {
		b.errorf(span, diag.SemUnknownBlockLabel, "branch to unknown block %q", name)
		return NoBlock
	}
	return id
}

func (b *Builder) resolveOperand(e astir.OperandExpr, expect types.TypeID, locals map[symbols.Symbol]types.TypeID) Value {
	switch e.Kind {
	case astir.OperandConst:
		return ConstValue(expect, e.IVal)
	case astir.OperandGlobal:
		name := b.strs.Intern(e.Name)
		g, ok := b.prog.Global(name)
		if !ok {
			b.errorf(e.Span, diag.SemUndefinedSymbol, "undefined global %q", e.Name)
			return Value{}
		}
		return SymValue(g.Type, symbols.Global(name))
	case astir.OperandLocal:
		sym := symbols.Local(b.strs.Intern(e.Name), e.Version)
		ty, ok := locals[sym]
		if !ok {
			b.errorf(e.Span, diag.SemUndefinedSymbol, "undefined symbol %q", e.Name)
			return Value{}
		}
		return SymValue(ty, sym)
	default:
		return Value{}
	}
}

func (b *Builder) buildInstr(fn *Func, block BlockID, in astir.InstrDecl, locals map[symbols.Symbol]types.TypeID) *Instr {
	op, ok := opFromName(in.Op)
	if !ok {
		b.errorf(in.Span, diag.SynUnexpectedToken, "unknown opcode %q", in.Op)
		return nil
	}

	instr := &Instr{Op: op}
	if in.HasDst {
		instr.HasDst = true
		instr.Dst = symbols.Local(b.strs.Intern(in.DstName), in.DstVersion)
	}

	// jmp/br/ret/call carry no explicit type in the grammar; every other op
	// does, and that type doubles as its destination's type.
	var ty types.TypeID
	switch op {
	case OpJmp, OpBr, OpRet, OpCall:
	default:
		ty = b.resolveType(in.Type)
	}

	switch op {
	case OpPhi:
		seen := make(map[string]bool, len(in.PhiArgs))
		for _, a := range in.PhiArgs {
			if seen[a.Pred] {
				b.errorf(a.Span, diag.SemMalformedPhiPred, "duplicate phi predecessor %q", a.Pred)
				continue
			}
			seen[a.Pred] = true
			pred := b.resolveBlockLabel(fn, a.Pred, a.Span)
			val := b.resolveOperand(a.Val, ty, locals)
			instr.PhiArgs = append(instr.PhiArgs, PhiArg{Pred: pred, Val: val})
		}
	case OpJmp:
		instr.Targets[0] = b.resolveBlockLabel(fn, in.Targets[0], in.Span)
	case OpBr:
		if len(in.Operands) != 1 {
			b.errorf(in.Span, diag.SemArityMismatch, "br expects exactly one condition operand")
			return instr
		}
		instr.A = b.resolveOperand(in.Operands[0], types.NoTypeID, locals)
		instr.Targets[0] = b.resolveBlockLabel(fn, in.Targets[0], in.Span)
		instr.Targets[1] = b.resolveBlockLabel(fn, in.Targets[1], in.Span)
	case OpRet:
		if len(in.Operands) == 1 {
			instr.A = b.resolveOperand(in.Operands[0], fn.RetType, locals)
		} else if len(in.Operands) > 1 {
			b.errorf(in.Span, diag.SemArityMismatch, "ret takes at most one operand")
		}
	case OpCall:
		callee, ok := b.prog.Func(b.strs.Intern(in.Callee))
		if !ok {
			b.errorf(in.Span, diag.SemUndefinedFunctionCall, "call to undefined function %q", in.Callee)
			return instr
		}
		instr.Callee = callee.Name
		if len(in.Operands) != len(callee.Params) {
			b.errorf(in.Span, diag.SemArityMismatch, "call to %q passes %d arguments, expected %d", in.Callee, len(in.Operands), len(callee.Params))
		}
		for i, o := range in.Operands {
			var argTy types.TypeID
			if i < len(callee.Params) {
				argTy = callee.Params[i].Type
			}
			instr.Extra = append(instr.Extra, b.resolveOperand(o, argTy, locals))
		}
	case OpAlloc, OpNew:
		if len(in.Operands) != 0 {
			b.errorf(in.Span, diag.SemArityMismatch, "%s takes no operands", in.Op)
		}
	case OpLd, OpMove, OpNeg, OpNot:
		if len(in.Operands) != 1 {
			b.errorf(in.Span, diag.SemArityMismatch, "%s expects exactly one operand", in.Op)
			return instr
		}
		instr.A = b.resolveOperand(in.Operands[0], ty, locals)
	case OpSt:
		if len(in.Operands) != 2 {
			b.errorf(in.Span, diag.SemArityMismatch, "st expects pointer and value operands")
			return instr
		}
		instr.A = b.resolveOperand(in.Operands[0], types.NoTypeID, locals)
		instr.B = b.resolveOperand(in.Operands[1], ty, locals)
	case OpPtr:
		if len(in.Operands) < 1 {
			b.errorf(in.Span, diag.SemArityMismatch, "ptr expects a base operand and at least zero indices")
			return instr
		}
		instr.A = b.resolveOperand(in.Operands[0], types.NoTypeID, locals)
		for _, o := range in.Operands[1:] {
			instr.Extra = append(instr.Extra, b.resolveOperand(o, types.NoTypeID, locals))
		}
	default:
		// Binary arithmetic/bitwise/compare ops.
		if len(in.Operands) != 2 {
			b.errorf(in.Span, diag.SemArityMismatch, "%s expects exactly two operands", in.Op)
			return instr
		}
		instr.A = b.resolveOperand(in.Operands[0], ty, locals)
		instr.B = b.resolveOperand(in.Operands[1], ty, locals)
	}
	return instr
}

func opFromName(name string) (Op, bool) {
	switch name {
	case "mov":
		return OpMove, true
	case "add":
		return OpAdd, true
	case "sub":
		return OpSub, true
	case "mul":
		return OpMul, true
	case "div":
		return OpDiv, true
	case "mod":
		return OpMod, true
	case "neg":
		return OpNeg, true
	case "and":
		return OpAnd, true
	case "or":
		return OpOr, true
	case "xor":
		return OpXor, true
	case "not":
		return OpNot, true
	case "shl":
		return OpShl, true
	case "shr":
		return OpShr, true
	case "eq":
		return OpEq, true
	case "ne":
		return OpNe, true
	case "lt":
		return OpLt, true
	case "le":
		return OpLe, true
	case "gt":
		return OpGt, true
	case "ge":
		return OpGe, true
	case "alloc":
		return OpAlloc, true
	case "new":
		return OpNew, true
	case "ld":
		return OpLd, true
	case "st":
		return OpSt, true
	case "ptr":
		return OpPtr, true
	case "jmp":
		return OpJmp, true
	case "br":
		return OpBr, true
	case "ret":
		return OpRet, true
	case "call":
		return OpCall, true
	case "phi":
		return OpPhi, true
	default:
		return OpInvalid, false
	}
}
