package marker

import (
	"testing"

	"github.com/lvlath-labs/opgraph/core"
)

func TestMarkerSetTagIsIdempotentAndScopedPerTag(t *testing.T) {
	ms := NewMarkerSet()
	var n core.NodeKey = 7

	if ms.Has(n, "seen") {
		t.Fatalf("fresh MarkerSet should not report any tag")
	}

	ms.Tag(n, "seen")
	ms.Tag(n, "seen")
	if !ms.Has(n, "seen") {
		t.Fatalf("Tag should make Has report true")
	}
	if ms.Has(n, "other") {
		t.Fatalf("Has must not leak across distinct tag names")
	}

	ms.Tag(n, "other")
	tags := ms.Tags(n)
	if len(tags) != 2 {
		t.Fatalf("expected 2 distinct tags, got %v", tags)
	}

	var untouched core.NodeKey = 8
	if ms.Tags(untouched) != nil {
		t.Fatalf("Tags on an untouched node should be nil")
	}
}

func TestTraceRecordsInOrderAndAssignsDistinctIDs(t *testing.T) {
	t1 := NewTrace()
	t2 := NewTrace()
	if t1.ID == "" || t2.ID == "" {
		t.Fatalf("NewTrace should assign a non-empty run id")
	}
	if t1.ID == t2.ID {
		t.Fatalf("two traces should get distinct run ids")
	}

	t1.Record("first")
	t1.Record("second")
	entries := t1.Entries()
	if len(entries) != 2 || entries[0] != "first" || entries[1] != "second" {
		t.Fatalf("unexpected entries: %v", entries)
	}
	if len(t2.Entries()) != 0 {
		t.Fatalf("a fresh trace should have no entries")
	}
}
