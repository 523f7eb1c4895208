package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"irl/internal/source"
)

// Builtins holds TypeIDs for the four scalar integer widths, seeded at
// construction so callers never need to re-intern them.
type Builtins struct {
	I8, I16, I32, I64 TypeID
}

// Interner gives stable TypeIDs to structural type descriptors. Equality of
// two Type values is exactly equality of their TypeID: aliases are resolved
// to their target's TypeID at Intern time rather than minting a distinct
// structural identity, so "structural modulo alias unfolding" holds by
// construction.
type Interner struct {
	types []Type
	index map[typeKey]TypeID

	structFields [][]TypeID
	structIndex  map[string]uint32

	aliases  map[source.StringID]TypeID
	builtins Builtins
}

func NewInterner() *Interner {
	in := &Interner{
		index:       make(map[typeKey]TypeID, 64),
		structIndex: make(map[string]uint32, 8),
		aliases:     make(map[source.StringID]TypeID),
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // TypeID 0 == NoTypeID
	in.structFields = append(in.structFields, nil)        // StructID 0 reserved

	in.builtins.I8 = in.Intern(MakeInt(Width8))
	in.builtins.I16 = in.Intern(MakeInt(Width16))
	in.builtins.I32 = in.Intern(MakeInt(Width32))
	in.builtins.I64 = in.Intern(MakeInt(Width64))
	return in
}

func (in *Interner) Builtins() Builtins { return in.builtins }

type typeKey struct {
	Kind     Kind
	Width    Width
	Elem     TypeID
	Count    uint32
	StructID uint32
}

func keyOf(t Type) typeKey {
	return typeKey{Kind: t.Kind, Width: t.Width, Elem: t.Elem, Count: t.Count, StructID: t.StructID}
}

// Intern returns the stable TypeID for t, inserting it if not already
// present. Callers build struct types via InternStruct, not Intern directly.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := keyOf(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("types: too many interned types: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// InternStruct returns the TypeID for a struct with these ordered field
// types, deduping by the exact field sequence.
func (in *Interner) InternStruct(fields []TypeID) TypeID {
	skey := structKey(fields)
	sid, ok := in.structIndex[skey]
	if !ok {
		n, err := safecast.Conv[uint32](len(in.structFields))
		if err != nil {
			panic(fmt.Errorf("types: too many struct shapes: %w", err))
		}
		sid = n
		cp := make([]TypeID, len(fields))
		copy(cp, fields)
		in.structFields = append(in.structFields, cp)
		in.structIndex[skey] = sid
	}
	return in.Intern(Type{Kind: KindStruct, StructID: sid})
}

func structKey(fields []TypeID) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(f), 10))
	}
	return b.String()
}

// StructFields returns the field types of a struct TypeID.
func (in *Interner) StructFields(id TypeID) []TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindStruct {
		return nil
	}
	return in.structFields[t.StructID]
}

// DefineAlias binds name to target's TypeID. A later call with the same name
// rebinds it (shadowing is the caller's concern to reject, not the
// interner's).
func (in *Interner) DefineAlias(name source.StringID, target TypeID) {
	in.aliases[name] = target
}

// ResolveAlias returns the TypeID an alias name unfolds to.
func (in *Interner) ResolveAlias(name source.StringID) (TypeID, bool) {
	id, ok := in.aliases[name]
	return id, ok
}

func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return t
}

// String renders id using alias-free structural syntax, e.g. "ptr<i32>",
// "array<4,i8>", "struct{i32,i64}".
func (in *Interner) String(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch t.Kind {
	case KindInt:
		return fmt.Sprintf("i%d", t.Width)
	case KindPtr:
		return fmt.Sprintf("ptr<%s>", in.String(t.Elem))
	case KindArray:
		return fmt.Sprintf("array<%d,%s>", t.Count, in.String(t.Elem))
	case KindStruct:
		fields := in.structFields[t.StructID]
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = in.String(f)
		}
		return "struct{" + strings.Join(parts, ",") + "}"
	default:
		return "<invalid>"
	}
}

// Equal reports whether a and b denote the same structural type. Since
// aliases unfold to their target's TypeID at DefineAlias/Intern time, this
// is exactly id equality.
func Equal(a, b TypeID) bool { return a == b }
