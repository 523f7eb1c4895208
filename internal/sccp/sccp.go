// Package sccp implements sparse conditional constant propagation, per
// Wegman and Zadeck's "Constant Propagation with Conditional Branches"
// (TOPLAS 1991): a three-level value lattice (Top/Const/Bottom) propagated
// optimistically through a dual worklist of CFG edges and SSA values, so a
// block unreachable under the discovered constants never pollutes a phi's
// meet and a branch on a folded condition prunes the dead arm's edge before
// it is ever visited. Grounded on
// other_examples/lfkdsk-go__sccp.go's worklist{edges,uses,latticeCells} and
// its meet/possibleConst/replaceConst structure, adapted from Go's SSA
// *Value/*Block model to ir.Instr/ir.Func.
package sccp

import (
	"irl/internal/cfg"
	"irl/internal/ir"
	"irl/internal/symbols"
	"irl/internal/types"
)

type tag uint8

const (
	top tag = iota
	constant
	bottom
)

type lattice struct {
	tag tag
	val int64
	ty  types.TypeID
}

func meet(a, b lattice) lattice {
	if a.tag == top {
		return b
	}
	if b.tag == top {
		return a
	}
	if a.tag == bottom || b.tag == bottom {
		return lattice{tag: bottom}
	}
	if a.val == b.val && a.ty == b.ty {
		return a
	}
	return lattice{tag: bottom}
}

type edge struct {
	from, to ir.BlockID
}

type solver struct {
	fn        *ir.Func
	g         *cfg.Graph
	cells     map[symbols.Symbol]lattice
	defOf     map[symbols.Symbol]*ir.Instr
	uses      map[symbols.Symbol][]*ir.Instr
	edgeQueue []edge
	valQueue  []*ir.Instr
	liveEdge  map[edge]bool
	liveBlock map[ir.BlockID]bool
}

// Run folds every symbol that is provably constant under reachable control
// flow to a mov of that constant, and rewrites any branch whose condition
// folded to a constant into an unconditional jump to its live arm. Returns
// the number of instructions rewritten.
func Run(fn *ir.Func) int {
	return RunWithGlobals(fn, nil)
}

// RunWithGlobals is Run, additionally seeding the lattice for any global in
// globals that has a static initializer: a global's value is set once, at
// program start, and no instruction's destination can ever be a global
// symbol (the builder only ever constructs a Local dst), so an initialized
// global reads as that initializer on every path through every function.
// seedGlobals still checks defOf before seeding, so this stays correct if
// that invariant ever loosens (e.g. an interprocedural write through a
// pointer) instead of relying on it silently.
func RunWithGlobals(fn *ir.Func, globals []*ir.Global) int {
	s := &solver{
		fn:        fn,
		g:         cfg.Build(fn),
		cells:     make(map[symbols.Symbol]lattice),
		defOf:     make(map[symbols.Symbol]*ir.Instr),
		uses:      make(map[symbols.Symbol][]*ir.Instr),
		liveEdge:  make(map[edge]bool),
		liveBlock: make(map[ir.BlockID]bool),
	}
	s.buildDefUse()
	s.seedGlobals(globals)
	for _, p := range fn.Params {
		s.cells[p.Sym] = lattice{tag: bottom}
	}
	s.edgeQueue = append(s.edgeQueue, edge{from: fn.Entry, to: fn.Entry})
	for len(s.edgeQueue) > 0 || len(s.valQueue) > 0 {
		if len(s.edgeQueue) > 0 {
			e := s.edgeQueue[0]
			s.edgeQueue = s.edgeQueue[1:]
			if s.liveEdge[e] {
				continue
			}
			s.liveEdge[e] = true
			firstVisit := !s.liveBlock[e.to]
			s.liveBlock[e.to] = true
			b := fn.Block(e.to)
			for _, in := range b.Instrs {
				if in.Op == ir.OpPhi || firstVisit {
					s.visit(in)
				}
			}
			continue
		}
		in := s.valQueue[0]
		s.valQueue = s.valQueue[1:]
		s.visit(in)
	}
	return s.rewrite()
}

func (s *solver) buildDefUse() {
	s.fn.AllInstrs(func(in *ir.Instr) {
		if in.HasDst {
			s.defOf[in.Dst] = in
		}
		for _, v := range s.operandsOf(in) {
			if v.IsSymbol() {
				s.uses[v.Sym] = append(s.uses[v.Sym], in)
			}
		}
	})
}

// seedGlobals primes the lattice for each initialized global fn never
// assigns to, so a read of it folds like any other provably-constant
// symbol instead of sitting at Top for the whole analysis.
func (s *solver) seedGlobals(globals []*ir.Global) {
	for _, g := range globals {
		if !g.HasInit {
			continue
		}
		if _, written := s.defOf[g.Sym]; written {
			continue
		}
		s.cells[g.Sym] = lattice{tag: constant, val: g.Init, ty: g.Type}
	}
}

func (s *solver) operandsOf(in *ir.Instr) []ir.Value {
	vals := []ir.Value{in.A, in.B}
	vals = append(vals, in.Extra...)
	for _, p := range in.PhiArgs {
		vals = append(vals, p.Val)
	}
	return vals
}

func (s *solver) lookup(v ir.Value) lattice {
	if v.IsConst() {
		return lattice{tag: constant, val: v.Const, ty: v.Type}
	}
	if v.IsSymbol() {
		if l, ok := s.cells[v.Sym]; ok {
			return l
		}
		return lattice{tag: top}
	}
	return lattice{tag: bottom}
}

func (s *solver) visit(in *ir.Instr) {
	if in.Op == ir.OpBr {
		s.visitBranch(in)
		return
	}
	if in.Op.IsTerminator() || !in.HasDst {
		return
	}
	before := s.cells[in.Dst]
	after := s.eval(in)
	if after == before {
		return
	}
	s.cells[in.Dst] = after
	for _, u := range s.uses[in.Dst] {
		s.valQueue = append(s.valQueue, u)
	}
}

func (s *solver) eval(in *ir.Instr) lattice {
	switch in.Op {
	case ir.OpMove:
		return s.lookup(in.A)
	case ir.OpPhi:
		l := lattice{tag: top}
		for _, p := range in.PhiArgs {
			if !s.liveEdge[edge{from: p.Pred, to: in.Block}] {
				continue
			}
			l = meet(l, s.lookup(p.Val))
		}
		return l
	case ir.OpCall, ir.OpLd, ir.OpAlloc, ir.OpNew, ir.OpPtr:
		return lattice{tag: bottom}
	case ir.OpNeg, ir.OpNot:
		a := s.lookup(in.A)
		if a.tag == top {
			return lattice{tag: top}
		}
		if a.tag == bottom {
			return lattice{tag: bottom}
		}
		if in.Op == ir.OpNeg {
			return lattice{tag: constant, val: -a.val, ty: a.ty}
		}
		return lattice{tag: constant, val: ^a.val, ty: a.ty}
	default:
		if !in.Op.IsBinary() {
			return lattice{tag: bottom}
		}
		a, b := s.lookup(in.A), s.lookup(in.B)
		if in.Op == ir.OpMul {
			// mul 0 is Const(0) regardless of the other operand's lattice
			// value: the zero identity holds even across a Bottom input,
			// so this is checked ahead of the general bottom-dominates rule.
			if a.tag == constant && a.val == 0 {
				return lattice{tag: constant, val: 0, ty: a.ty}
			}
			if b.tag == constant && b.val == 0 {
				return lattice{tag: constant, val: 0, ty: b.ty}
			}
		}
		if a.tag == bottom || b.tag == bottom {
			return lattice{tag: bottom}
		}
		if a.tag == top || b.tag == top {
			return lattice{tag: top}
		}
		v, ok := foldBinary(in.Op, a.val, b.val)
		if !ok {
			return lattice{tag: bottom}
		}
		return lattice{tag: constant, val: v, ty: a.ty}
	}
}

func foldBinary(op ir.Op, a, b int64) (int64, bool) {
	switch op {
	case ir.OpAdd:
		return a + b, true
	case ir.OpSub:
		return a - b, true
	case ir.OpMul:
		return a * b, true
	case ir.OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.OpMod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case ir.OpAnd:
		return a & b, true
	case ir.OpOr:
		return a | b, true
	case ir.OpXor:
		return a ^ b, true
	case ir.OpShl:
		return a << uint64(b), true
	case ir.OpShr:
		return a >> uint64(b), true
	case ir.OpEq:
		return boolInt(a == b), true
	case ir.OpNe:
		return boolInt(a != b), true
	case ir.OpLt:
		return boolInt(a < b), true
	case ir.OpLe:
		return boolInt(a <= b), true
	case ir.OpGt:
		return boolInt(a > b), true
	case ir.OpGe:
		return boolInt(a >= b), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (s *solver) visitBranch(in *ir.Instr) {
	block := in.Block
	cond := s.lookup(in.A)
	switch cond.tag {
	case constant:
		target := in.Targets[1]
		if cond.val != 0 {
			target = in.Targets[0]
		}
		s.edgeQueue = append(s.edgeQueue, edge{from: block, to: target})
	case bottom:
		s.edgeQueue = append(s.edgeQueue, edge{from: block, to: in.Targets[0]})
		s.edgeQueue = append(s.edgeQueue, edge{from: block, to: in.Targets[1]})
	}
}

// rewrite folds every symbol whose final lattice value is a constant into a
// mov instruction, and collapses a branch whose condition folded constant
// into an unconditional jump to the live arm.
// rewrite stages every fold as a Patch mutation rather than touching
// in.Op/in.A directly mid-walk, so a panic discovered partway through
// (e.g. a later pass's ir.Violate, recovered at the pipeline boundary)
// leaves this pass's own graph untouched until Apply commits it.
func (s *solver) rewrite() int {
	patch := ir.NewPatch()
	changed := 0
	s.fn.AllInstrs(func(in *ir.Instr) {
		if in.Op == ir.OpBr {
			if s.stageBranchFold(patch, in) {
				changed++
			}
			return
		}
		if !in.HasDst || (in.Op == ir.OpMove && in.A.IsConst()) {
			return
		}
		l, ok := s.cells[in.Dst]
		if !ok || l.tag != constant {
			return
		}
		patch.Mutate(func(f *ir.Func) {
			in.Op = ir.OpMove
			in.A = ir.ConstValue(l.ty, l.val)
			in.B = ir.Value{}
			in.Extra = nil
			in.PhiArgs = nil
		})
		changed++
	})
	s.fn.Apply(patch)
	return changed
}

func (s *solver) stageBranchFold(patch *ir.Patch, in *ir.Instr) bool {
	cond := s.lookup(in.A)
	if cond.tag != constant {
		return false
	}
	target := in.Targets[1]
	if cond.val != 0 {
		target = in.Targets[0]
	}
	patch.Mutate(func(f *ir.Func) {
		in.Op = ir.OpJmp
		in.A = ir.Value{}
		in.Targets[0] = target
	})
	return true
}
