package absstate

import (
	"testing"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
)

// leafType is a domain with two disjoint leaves and no common ancestor,
// used only here to exercise Merge's drop-on-join-failure path - the
// module's own valuetype lattice always finds a join at Object, so it
// cannot reach this branch.
type leafType int

const (
	leafA leafType = iota
	leafB
)

func joinLeaf(a, b leafType) (leafType, bool) {
	if a == b {
		return a, true
	}
	return 0, false
}

func TestMergeKeepsAgreeingAIDsAndJoinsTypes(t *testing.T) {
	g := core.NewGraph[leafType, string]()
	key := g.AddNode(leafA)
	base := New[leafType, string](g)
	base.Bind(marker.Named("shared"), key)

	left := base.Clone()
	right := base.Clone()

	merged, report, err := Merge[leafType, string](left, right, joinLeaf)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(report.JoinFailed) != 0 || len(report.MissingFromLeft) != 0 || len(report.MissingFromRight) != 0 {
		t.Fatalf("identical branches should merge cleanly, got %+v", report)
	}
	if _, ok := merged.Resolve(marker.Named("shared")); !ok {
		t.Fatalf("an AID present and agreeing on both sides should survive the merge")
	}
}

func TestMergeDropsAIDWithNoJoin(t *testing.T) {
	g := core.NewGraph[leafType, string]()
	key := g.AddNode(leafA)
	base := New[leafType, string](g)
	aid := marker.Named("conflict")
	base.Bind(aid, key)

	left := base.Clone()
	right := base.Clone()
	right.Graph.SetNodeAttr(key, leafB)

	merged, report, err := Merge[leafType, string](left, right, joinLeaf)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(report.JoinFailed) != 1 || report.JoinFailed[0] != aid {
		t.Fatalf("expected conflict to be reported as JoinFailed, got %+v", report)
	}
	if _, ok := merged.Resolve(aid); ok {
		t.Fatalf("an AID with no defined join must be dropped from the merged state")
	}
}

func TestMergeReportsAsymmetricBindings(t *testing.T) {
	g := core.NewGraph[leafType, string]()
	key := g.AddNode(leafA)
	base := New[leafType, string](g)

	left := base.Clone()
	right := base.Clone()

	onlyLeft := marker.Named("only_left")
	onlyRight := marker.Named("only_right")
	left.Bind(onlyLeft, key)
	right.Bind(onlyRight, key)

	merged, report, err := Merge[leafType, string](left, right, joinLeaf)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(report.MissingFromRight) != 1 || report.MissingFromRight[0] != onlyLeft {
		t.Fatalf("expected onlyLeft reported as MissingFromRight, got %+v", report.MissingFromRight)
	}
	if len(report.MissingFromLeft) != 1 || report.MissingFromLeft[0] != onlyRight {
		t.Fatalf("expected onlyRight reported as MissingFromLeft, got %+v", report.MissingFromLeft)
	}
	if _, ok := merged.Resolve(onlyLeft); ok {
		t.Fatalf("an AID bound on only one side must not survive the merge")
	}
	if _, ok := merged.Resolve(onlyRight); ok {
		t.Fatalf("an AID bound on only one side must not survive the merge")
	}
}
