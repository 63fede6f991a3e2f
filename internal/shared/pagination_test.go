package shared

import "testing"

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 41)
	if p.Page != 1 || p.PerPage != 20 || p.TotalPages != 3 {
		t.Fatalf("unexpected pagination %+v", p)
	}
	if p.Offset() != 0 {
		t.Fatalf("expected offset 0, got %d", p.Offset())
	}
	if got := NewPagination(3, 10, 25).Offset(); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}
	if got := NewPagination(1, 10, 0).TotalPages; got != 0 {
		t.Fatalf("expected 0 pages, got %d", got)
	}
}
