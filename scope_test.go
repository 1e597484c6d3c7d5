package main

import "testing"

// scope_test.go exercises the coalescing stack allocator (scope.go),
// ported field-for-field from original_source/src/scope_info.rs.

func TestScopePushReuse(t *testing.T) {
	s := NewScope()
	a, err := s.Tmp(8)
	if err != nil {
		t.Fatalf("Tmp: %v", err)
	}
	if err := s.Free(uint32(a.Offset), 8); err != nil {
		t.Fatalf("Free: %v", err)
	}
	b, err := s.Tmp(8)
	if err != nil {
		t.Fatalf("Tmp: %v", err)
	}
	if a.Offset != b.Offset {
		t.Fatalf("expected freed slot to be reused: got %d then %d", a.Offset, b.Offset)
	}
}

func TestScopeCoalesceAdjacentFrees(t *testing.T) {
	s := NewScope()
	a, err := s.Tmp(8)
	if err != nil {
		t.Fatalf("Tmp a: %v", err)
	}
	b, err := s.Tmp(8)
	if err != nil {
		t.Fatalf("Tmp b: %v", err)
	}
	if err := s.Free(uint32(a.Offset), 8); err != nil {
		t.Fatalf("Free a: %v", err)
	}
	if err := s.Free(uint32(b.Offset), 8); err != nil {
		t.Fatalf("Free b: %v", err)
	}
	c, err := s.Tmp(16)
	if err != nil {
		t.Fatalf("Tmp c (expected coalesced 16-byte span): %v", err)
	}
	if c.Offset != b.Offset {
		t.Fatalf("expected the coalesced span to start where the larger (later) slot was, got %d want %d", c.Offset, b.Offset)
	}
}

func TestScopeBeginEndRestoresState(t *testing.T) {
	s := NewScope()
	if _, err := s.Local("x", 8); err != nil {
		t.Fatalf("Local: %v", err)
	}
	if _, ok := s.Lookup("x"); !ok {
		t.Fatal("expected x to be visible before Begin")
	}

	saved := s.Begin()
	if _, ok := s.Lookup("x"); !ok {
		t.Fatal("expected x to still be visible through the enclosing scope chain")
	}
	if _, err := s.Local("y", 8); err != nil {
		t.Fatalf("Local y: %v", err)
	}
	if err := s.End(saved); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, ok := s.Lookup("y"); ok {
		t.Fatal("expected y to go out of scope after End")
	}
	if _, ok := s.Lookup("x"); !ok {
		t.Fatal("expected x to still be visible after End")
	}
}

func TestScopeBindVarRejectsRedefinition(t *testing.T) {
	s := NewScope()
	if err := s.BindVar("x", LitIntValue(1)); err != nil {
		t.Fatalf("first BindVar: %v", err)
	}
	if err := s.BindVar("x", LitIntValue(2)); err == nil {
		t.Fatal("expected redefining x in the same scope level to fail")
	}
}
