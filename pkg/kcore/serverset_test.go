package kcore

import "testing"

func TestServerSetSortedDeduplicated(t *testing.T) {
	s := newServerSet()
	for _, addr := range []string{"b:1", "a:1", "c:1", "a:1"} {
		s.Add(addr)
	}
	if s.Len() != 3 {
		t.Fatalf("got Len() = %d, want 3", s.Len())
	}
	got := s.Sorted()
	want := []string{"a:1", "b:1", "c:1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestServerSetContains(t *testing.T) {
	s := newServerSet()
	s.Add("a:1")
	if !s.Contains("a:1") {
		t.Fatal("expected Contains(a:1) == true")
	}
	if s.Contains("b:1") {
		t.Fatal("expected Contains(b:1) == false")
	}
}
