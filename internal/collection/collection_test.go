package collection

import "testing"

func TestListFIFO(t *testing.T) {
	l := NewList[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)

	for _, want := range []int{1, 2, 3} {
		got, ok := l.PopFront()
		if !ok || got != want {
			t.Fatalf("PopFront() = %v, %v; want %v, true", got, ok, want)
		}
	}
	if _, ok := l.PopFront(); ok {
		t.Fatalf("expected empty list to report ok=false")
	}
}

func TestListRemoveFirst(t *testing.T) {
	l := NewList[string]()
	l.PushBack("a")
	l.PushBack("b")
	l.PushBack("c")

	if !l.RemoveFirst(func(s string) bool { return s == "b" }) {
		t.Fatalf("expected to remove b")
	}
	var seen []string
	l.Each(func(s string) { seen = append(seen, s) })
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "c" {
		t.Fatalf("unexpected remaining order: %v", seen)
	}
}

func TestTreeOrderedIteration(t *testing.T) {
	tree := NewTree[int, string](func(a, b int) bool { return a < b })
	tree.Insert(5, "five")
	tree.Insert(1, "one")
	tree.Insert(3, "three")

	var keys []int
	tree.InOrder(func(k int, v string) { keys = append(keys, k) })
	want := []int{1, 3, 5}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("InOrder()[%d] = %d, want %d", i, keys[i], k)
		}
	}
}

func TestTreeFindAndRemove(t *testing.T) {
	tree := NewTree[string, int](func(a, b string) bool { return a < b })
	tree.Insert("pid-1", 1)
	if v, ok := tree.Find("pid-1"); !ok || v != 1 {
		t.Fatalf("Find() = %v, %v", v, ok)
	}
	tree.Remove("pid-1")
	if _, ok := tree.Find("pid-1"); ok {
		t.Fatalf("expected pid-1 removed")
	}
}
