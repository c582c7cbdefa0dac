package rpcwire

import "testing"

func TestBindAndLookupByTag(t *testing.T) {
	tbl := NewTable()
	tbl.Bind(TagOpen, "/mnt/fat", 10)
	tbl.Bind(TagOpen, "/mnt/ext", 11)

	bindings := tbl.Lookup(TagOpen)
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].Pattern != "/mnt/fat" || bindings[1].Pattern != "/mnt/ext" {
		t.Fatalf("unexpected binding order: %+v", bindings)
	}
}

func TestTagsReturnsAscendingOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Bind(TagStat, "/", 1)
	tbl.Bind(TagOpen, "/", 1)
	tbl.Bind(TagClose, "/", 1)

	tags := tbl.Tags()
	for i := 1; i < len(tags); i++ {
		if tags[i-1] >= tags[i] {
			t.Fatalf("tags not ascending: %v", tags)
		}
	}
}

func TestLookupUnboundTagReturnsEmpty(t *testing.T) {
	tbl := NewTable()
	if got := tbl.Lookup(TagMount); len(got) != 0 {
		t.Fatalf("expected no bindings, got %+v", got)
	}
}
