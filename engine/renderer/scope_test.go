package renderer

import "testing"

func TestScopeReleasesInReverseOrder(t *testing.T) {
	var order []int
	var s Scope
	for i := 0; i < 3; i++ {
		n := i
		s.Defer(func() { order = append(order, n) })
	}
	s.Release()
	s.Release()

	if len(order) != 3 || order[0] != 2 || order[1] != 1 || order[2] != 0 {
		t.Fatalf("release order = %v, want [2 1 0] exactly once", order)
	}
	if s.Len() != 0 {
		t.Fatalf("scope still owns %d releasers", s.Len())
	}
}
