package builtins

import (
	"testing"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/substview"
	"github.com/lvlath-labs/opgraph/valuetype"
)

func TestHeapSiftDownSwapsValuesWithLargestChild(t *testing.T) {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	parent := g.AddNode(valuetype.Node{Value: 5})
	smallChild := g.AddNode(valuetype.Node{Value: 3})
	bigChild := g.AddNode(valuetype.Node{Value: 9})
	if _, err := g.AddEdge(parent, smallChild, valuetype.Heap); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, err := g.AddEdge(parent, bigChild, valuetype.Heap); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	sub := paramgraph.NewSubstitution(map[marker.SubstMarker]core.NodeKey{heapSiftNode: parent})
	view := substview.New[valuetype.Node, valuetype.Label](g, sub)

	sift := NewHeapSiftDown()
	if _, err := sift.Apply(view, &opctx.ConcreteData{MarkerSet: marker.NewMarkerSet()}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	parentVal, err := g.NodeAttr(parent)
	if err != nil {
		t.Fatalf("NodeAttr: %v", err)
	}
	if parentVal.Value != 9 {
		t.Fatalf("parent should now hold the larger child's value, got %d", parentVal.Value)
	}
	bigVal, err := g.NodeAttr(bigChild)
	if err != nil {
		t.Fatalf("NodeAttr: %v", err)
	}
	if bigVal.Value != 5 {
		t.Fatalf("the formerly-largest child should now hold the old parent value, got %d", bigVal.Value)
	}
}

func TestHeapSiftDownNoOpWhenAlreadyOrdered(t *testing.T) {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	parent := g.AddNode(valuetype.Node{Value: 9})
	child := g.AddNode(valuetype.Node{Value: 3})
	if _, err := g.AddEdge(parent, child, valuetype.Heap); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	sub := paramgraph.NewSubstitution(map[marker.SubstMarker]core.NodeKey{heapSiftNode: parent})
	view := substview.New[valuetype.Node, valuetype.Label](g, sub)

	sift := NewHeapSiftDown()
	if _, err := sift.Apply(view, &opctx.ConcreteData{MarkerSet: marker.NewMarkerSet()}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	parentVal, _ := g.NodeAttr(parent)
	if parentVal.Value != 9 {
		t.Fatalf("an already max-ordered parent/child pair should be left untouched, got %d", parentVal.Value)
	}
}

func TestListSwapRewritesNeighborEdgesNotValues(t *testing.T) {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	prev := g.AddNode(valuetype.Node{Value: 0})
	x := g.AddNode(valuetype.Node{Value: 1})
	y := g.AddNode(valuetype.Node{Value: 2})
	next := g.AddNode(valuetype.Node{Value: 3})
	if _, err := g.AddEdge(prev, x, valuetype.Next); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, err := g.AddEdge(x, y, valuetype.Next); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if _, err := g.AddEdge(y, next, valuetype.Next); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	sub := paramgraph.NewSubstitution(map[marker.SubstMarker]core.NodeKey{
		listSwapPrev: prev, listSwapX: x, listSwapY: y, listSwapNext: next,
	})
	view := substview.New[valuetype.Node, valuetype.Label](g, sub)

	swap := NewListSwap()
	if _, err := swap.Apply(view, &opctx.ConcreteData{MarkerSet: marker.NewMarkerSet()}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	assertNext := func(from, want core.NodeKey) {
		t.Helper()
		for _, ek := range g.OutEdges(from) {
			attr, err := g.EdgeAttr(ek)
			if err != nil || attr != valuetype.Next {
				continue
			}
			_, to, err := g.EdgeEndpoints(ek)
			if err != nil {
				continue
			}
			if to != want {
				t.Fatalf("expected %v -> %v, got -> %v", from, want, to)
			}
			return
		}
		t.Fatalf("no Next edge found out of %v", from)
	}
	assertNext(prev, y)
	assertNext(y, x)
	assertNext(x, next)

	xVal, _ := g.NodeAttr(x)
	yVal, _ := g.NodeAttr(y)
	if xVal.Value != 1 || yVal.Value != 2 {
		t.Fatalf("ListSwap must rewrite edges only, never the nodes' own values; got x=%d y=%d", xVal.Value, yVal.Value)
	}
}
