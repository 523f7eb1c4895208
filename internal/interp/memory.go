package interp

import (
	"irl/internal/ir"
	"irl/internal/types"
)

// memory is a flat, word-addressed heap: every scalar, pointer, array
// element, and struct field occupies exactly one word, regardless of its
// declared bit width. This interpreter exists to drive and observe the
// optimization pipeline, not to reproduce a target ABI, so there is no
// byte-level packing or alignment to get right — only enough of a memory
// model that alloc/new/ld/st/ptr have real, checkable semantics.
type memory struct {
	cells    map[int64]int64
	nextAddr int64
}

func newMemory() *memory {
	return &memory{cells: make(map[int64]int64), nextAddr: 1}
}

// sizeOf returns the word count a value of ty occupies.
func sizeOf(interner *types.Interner, ty types.TypeID) int64 {
	t := interner.MustLookup(ty)
	switch t.Kind {
	case types.KindInt, types.KindPtr:
		return 1
	case types.KindArray:
		return int64(t.Count) * sizeOf(interner, t.Elem)
	case types.KindStruct:
		var total int64
		for _, f := range interner.StructFields(ty) {
			total += sizeOf(interner, f)
		}
		return total
	default:
		return 1
	}
}

func (m *memory) alloc(interner *types.Interner, ty types.TypeID) int64 {
	base := m.nextAddr
	n := sizeOf(interner, ty)
	for i := int64(0); i < n; i++ {
		m.cells[base+i] = 0
	}
	m.nextAddr += n
	return base
}

// evalAlloc allocates space for the type alloc/new points at. ir.Instr has
// no Type field of its own — the builder records an instruction's declared
// type only via Func.DstTypes, keyed by its destination symbol — so the
// pointee type is one Elem lookup below in.Dst's recorded ptr(elem) type.
func (it *Interp) evalAlloc(f *Frame, in *ir.Instr) (int64, error) {
	ptrTy := it.prog.Types.MustLookup(f.fn.DstTypes[in.Dst])
	return it.mem.alloc(it.prog.Types, ptrTy.Elem), nil
}

func (it *Interp) evalLoad(f *Frame, in *ir.Instr) (int64, error) {
	addr, err := it.eval(f, in.A)
	if err != nil {
		return 0, err
	}
	v, ok := it.mem.cells[addr]
	if !ok {
		return 0, &RuntimeError{Func: f.fn.Name, Block: f.block, Index: f.ip, Kind: "null-dereference", Msg: "load from an address never allocated"}
	}
	return v, nil
}

func (it *Interp) evalStore(f *Frame, in *ir.Instr) error {
	addr, err := it.eval(f, in.A)
	if err != nil {
		return err
	}
	val, err := it.eval(f, in.B)
	if err != nil {
		return err
	}
	if _, ok := it.mem.cells[addr]; !ok {
		return &RuntimeError{Func: f.fn.Name, Block: f.block, Index: f.ip, Kind: "null-dereference", Msg: "store to an address never allocated"}
	}
	it.mem.cells[addr] = val
	return nil
}

// evalPtr walks in.A's pointee type structure through in.Extra's index
// list, accumulating a word offset: an array index scales by its element's
// size, a struct index sums the sizes of the fields before it.
func (it *Interp) evalPtr(f *Frame, in *ir.Instr) (int64, error) {
	base, err := it.eval(f, in.A)
	if err != nil {
		return 0, err
	}
	baseTy := it.prog.Types.MustLookup(in.A.Type)
	if baseTy.Kind != types.KindPtr {
		return 0, &RuntimeError{Func: f.fn.Name, Block: f.block, Index: f.ip, Kind: "out-of-bounds", Msg: "ptr base operand is not a pointer"}
	}
	curTy := baseTy.Elem
	offset := int64(0)
	for _, idxVal := range in.Extra {
		idx, err := it.eval(f, idxVal)
		if err != nil {
			return 0, err
		}
		t := it.prog.Types.MustLookup(curTy)
		switch t.Kind {
		case types.KindArray:
			if idx < 0 || uint32(idx) >= t.Count {
				return 0, &RuntimeError{Func: f.fn.Name, Block: f.block, Index: f.ip, Kind: "out-of-bounds", Msg: "array index out of bounds"}
			}
			offset += idx * sizeOf(it.prog.Types, t.Elem)
			curTy = t.Elem
		case types.KindStruct:
			fields := it.prog.Types.StructFields(curTy)
			if idx < 0 || int(idx) >= len(fields) {
				return 0, &RuntimeError{Func: f.fn.Name, Block: f.block, Index: f.ip, Kind: "out-of-bounds", Msg: "struct field index out of bounds"}
			}
			for _, prior := range fields[:idx] {
				offset += sizeOf(it.prog.Types, prior)
			}
			curTy = fields[idx]
		default:
			return 0, &RuntimeError{Func: f.fn.Name, Block: f.block, Index: f.ip, Kind: "out-of-bounds", Msg: "indexed into a non-aggregate type"}
		}
	}
	return base + offset, nil
}
