package types

import (
	"testing"

	"irl/internal/source"
)

func TestInternDedupes(t *testing.T) {
	in := NewInterner()
	a := in.Intern(MakeInt(Width32))
	b := in.Intern(MakeInt(Width32))
	if a != b {
		t.Fatalf("expected identical TypeID for repeated i32, got %d and %d", a, b)
	}
	if a != in.Builtins().I32 {
		t.Fatalf("expected i32 intern to reuse builtin TypeID")
	}
}

func TestInternStructDedupesByFieldSequence(t *testing.T) {
	in := NewInterner()
	i32 := in.Builtins().I32
	i64 := in.Builtins().I64

	s1 := in.InternStruct([]TypeID{i32, i64})
	s2 := in.InternStruct([]TypeID{i32, i64})
	s3 := in.InternStruct([]TypeID{i64, i32})

	if s1 != s2 {
		t.Fatalf("expected identical struct TypeIDs for identical field sequences")
	}
	if s1 == s3 {
		t.Fatalf("expected distinct struct TypeIDs for different field order")
	}
}

func TestAliasUnfoldsToTargetTypeID(t *testing.T) {
	in := NewInterner()
	interner := source.NewInterner()
	name := interner.Intern("@MyInt")

	ptr := in.Intern(MakePtr(in.Builtins().I32))
	in.DefineAlias(name, ptr)

	resolved, ok := in.ResolveAlias(name)
	if !ok {
		t.Fatalf("expected alias to resolve")
	}
	if resolved != ptr {
		t.Fatalf("expected alias to unfold to the exact target TypeID")
	}
	if !Equal(resolved, ptr) {
		t.Fatalf("expected structural equality through alias unfolding")
	}
}
