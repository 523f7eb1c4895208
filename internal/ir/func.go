package ir

import (
	"fmt"

	"irl/internal/source"
	"irl/internal/symbols"
	"irl/internal/types"
)

// Param is one function parameter.
type Param struct {
	Sym  symbols.Symbol
	Type types.TypeID
}

// Func is a function: parameters, optional return type, an entry block,
// and its blocks. A block only ever enters Func.Blocks through AddBlock;
// neither the Builder nor ssa.Verify rejects a block that no path from
// Entry reaches.
type Func struct {
	Name    symbols.Symbol
	Params  []Param
	RetType types.TypeID // types.NoTypeID if the function returns nothing
	Entry   BlockID

	Blocks []*Block

	// DstTypes records the type of every symbol ever assigned as an
	// instruction's destination, since Instr itself has no type field for
	// Dst (only operand Values carry a Type). Populated at construction
	// time by Builder; internal/ssa consults it when synthesizing new phi
	// instructions that have no textual type annotation of their own.
	DstTypes map[symbols.Symbol]types.TypeID

	labelIndex map[source.StringID]BlockID
	nextInstr  InstrID
}

func NewFunc(name symbols.Symbol, params []Param, retType types.TypeID) *Func {
	f := &Func{
		Name:       name,
		Params:     params,
		RetType:    retType,
		Entry:      NoBlock,
		DstTypes:   make(map[symbols.Symbol]types.TypeID),
		labelIndex: make(map[source.StringID]BlockID),
	}
	for _, p := range params {
		f.DstTypes[p.Sym] = p.Type
	}
	return f
}

// AddBlock appends a fresh, empty block labeled by label and returns its ID.
// The first block added becomes Entry.
func (f *Func) AddBlock(label source.StringID) (BlockID, error) {
	if _, exists := f.labelIndex[label]; exists {
		return NoBlock, fmt.Errorf("duplicate block label")
	}
	id := BlockID(len(f.Blocks))
	f.Blocks = append(f.Blocks, &Block{ID: id, Label: label})
	f.labelIndex[label] = id
	if f.Entry == NoBlock {
		f.Entry = id
	}
	return id, nil
}

func (f *Func) Block(id BlockID) *Block {
	if int(id) < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return f.Blocks[id]
}

func (f *Func) BlockByLabel(label source.StringID) (BlockID, bool) {
	id, ok := f.labelIndex[label]
	return id, ok
}

// AppendInstr assigns in a stable InstrID and appends it to block's
// instruction list. Phi instructions must be appended before any non-phi
// instruction in the same block; AppendInstr enforces this ordering
// invariant (spec.md §3 invariant: phis precede all non-phi instructions).
func (f *Func) AppendInstr(block BlockID, in *Instr) error {
	b := f.Block(block)
	if b == nil {
		return fmt.Errorf("ir: append to unknown block")
	}
	if in.Op == OpPhi && len(b.Instrs) > 0 && b.Instrs[len(b.Instrs)-1].Op != OpPhi {
		return fmt.Errorf("ir: phi instruction appended after non-phi in block")
	}
	in.ID = f.nextInstr
	f.nextInstr++
	in.Block = block
	b.Instrs = append(b.Instrs, in)
	return nil
}

// PrependPhi inserts a phi instruction at the end of block's phi run, ahead
// of every non-phi instruction —
// used by SSA construction (dominance-frontier based phi insertion) which
// must add phis to blocks that may already hold other phis or body
// instructions.
func (f *Func) PrependPhi(block BlockID, in *Instr) error {
	b := f.Block(block)
	if b == nil {
		return fmt.Errorf("ir: prepend to unknown block")
	}
	if in.Op != OpPhi {
		return fmt.Errorf("ir: PrependPhi called with non-phi instruction")
	}
	in.ID = f.nextInstr
	f.nextInstr++
	in.Block = block
	phiCount := 0
	for phiCount < len(b.Instrs) && b.Instrs[phiCount].Op == OpPhi {
		phiCount++
	}
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[phiCount+1:], b.Instrs[phiCount:])
	b.Instrs[phiCount] = in
	return nil
}

// InsertBeforeTerminator assigns in a stable InstrID and splices it into
// block immediately before the block's terminator — used by PRE to
// materialize a computation on a predecessor that lacked it, without
// disturbing the terminator's required position as the block's last
// instruction.
func (f *Func) InsertBeforeTerminator(block BlockID, in *Instr) error {
	b := f.Block(block)
	if b == nil {
		return fmt.Errorf("ir: insert into unknown block")
	}
	idx := len(b.Instrs)
	if idx > 0 && b.Instrs[idx-1].Op.IsTerminator() {
		idx--
	}
	in.ID = f.nextInstr
	f.nextInstr++
	in.Block = block
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[idx+1:], b.Instrs[idx:])
	b.Instrs[idx] = in
	return nil
}

// RemoveInstr deletes the instruction with the given ID from block, if
// present.
func (f *Func) RemoveInstr(block BlockID, id InstrID) {
	b := f.Block(block)
	if b == nil {
		return
	}
	for i, in := range b.Instrs {
		if in.ID == id {
			b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
			return
		}
	}
}

// AllInstrs iterates every instruction in block order, then instruction
// order within each block — the canonical deterministic traversal order
// every fixed-point pass in this repository uses.
func (f *Func) AllInstrs(fn func(*Instr)) {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			fn(in)
		}
	}
}
