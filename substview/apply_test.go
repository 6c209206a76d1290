package substview

import (
	"testing"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/valuetype"
)

func TestApplyOutputChangesOrdersNewNodesBeforeNewEdges(t *testing.T) {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	root := g.AddNode(valuetype.Node{Value: 1})
	sub := paramgraph.NewSubstitution(map[marker.SubstMarker]core.NodeKey{vmRoot: root})
	v := New[valuetype.Node, valuetype.Label](g, sub)

	oc := paramgraph.NewOutputChanges[valuetype.Node, valuetype.Label]()
	oc.NewNodes["tail"] = valuetype.Node{Value: 2}
	oc.NewEdges[paramgraph.SigEdgeID{
		From: paramgraph.SigNodeID{Kind: paramgraph.SigExisting, Existing: vmRoot},
		To:   paramgraph.SigNodeID{Kind: paramgraph.SigNew, New: "tail"},
	}] = valuetype.Next

	out, err := ApplyOutputChanges[valuetype.Node, valuetype.Label](oc, v, nopJoinNode, nopJoinEdge)
	if err != nil {
		t.Fatalf("ApplyOutputChanges: %v", err)
	}
	tailKey, ok := out.NewNodes["tail"]
	if !ok {
		t.Fatalf("expected a new node named tail")
	}
	if len(out.NewEdges) != 1 || out.NewEdges[0] != (EdgeRef{root, tailKey}) {
		t.Fatalf("expected one edge from root to tail, got %v", out.NewEdges)
	}
}

func TestApplyOutputChangesMaybeDeletedSkipsAlreadyGoneNodes(t *testing.T) {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	root := g.AddNode(valuetype.Node{Value: 1})
	sub := paramgraph.NewSubstitution(map[marker.SubstMarker]core.NodeKey{vmRoot: root})
	v := New[valuetype.Node, valuetype.Label](g, sub)

	if err := v.DeleteNode(marker.Parameter(vmRoot)); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	oc := paramgraph.NewOutputChanges[valuetype.Node, valuetype.Label]()
	oc.MaybeDeletedNodes[vmRoot] = struct{}{}

	// root is already gone from this view; applying a maybe-delete over it
	// again must be a no-op, not an error.
	if _, err := ApplyOutputChanges[valuetype.Node, valuetype.Label](oc, v, nopJoinNode, nopJoinEdge); err != nil {
		t.Fatalf("ApplyOutputChanges should tolerate a maybe-delete over an already-removed node, got %v", err)
	}
}

func nopJoinNode(a, b valuetype.Node) (valuetype.Node, bool) { return a, true }
func nopJoinEdge(a, b valuetype.Label) (valuetype.Label, bool) { return a, true }
