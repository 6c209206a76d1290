package runner

import (
	"errors"
	"testing"

	"github.com/lvlath-labs/opgraph/builtins"
	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/valuetype"
)

const opListSwap opctx.OperationID = 0

func newListSwapRunner(t *testing.T) (*Runner[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label], *core.Graph[valuetype.Node, valuetype.Label], []core.NodeKey) {
	t.Helper()
	ctx := opctx.New[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]()
	if err := ctx.AddBuiltin(opListSwap, builtins.NewListSwap()); err != nil {
		t.Fatalf("AddBuiltin: %v", err)
	}

	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	prev := g.AddNode(valuetype.Node{Value: 0})
	x := g.AddNode(valuetype.Node{Value: 1})
	y := g.AddNode(valuetype.Node{Value: 2})
	next := g.AddNode(valuetype.Node{Value: 3})
	for _, e := range [][2]core.NodeKey{{prev, x}, {x, y}, {y, next}} {
		if _, err := g.AddEdge(e[0], e[1], valuetype.Next); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}

	r := New[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label](ctx, valuetype.Plugin())
	return r, g, []core.NodeKey{prev, x, y, next}
}

func TestRunFromConcreteRunsBuiltinOverMatchedArguments(t *testing.T) {
	r, g, nodes := newListSwapRunner(t)
	res, err := r.RunFromConcrete(g, opListSwap, nodes)
	if err != nil {
		t.Fatalf("RunFromConcrete: %v", err)
	}
	if res.MarkerSet == nil || res.Trace == nil {
		t.Fatalf("Result should carry a MarkerSet and Trace")
	}

	prev, x, y, next := nodes[0], nodes[1], nodes[2], nodes[3]
	foundPrevToY := false
	for _, ek := range g.OutEdges(prev) {
		_, to, err := g.EdgeEndpoints(ek)
		if err == nil && to == y {
			foundPrevToY = true
		}
	}
	if !foundPrevToY {
		t.Fatalf("expected prev -> y after the swap")
	}
	_ = x
	_ = next
}

func TestRunFromConcreteRejectsUnknownOperation(t *testing.T) {
	r, g, nodes := newListSwapRunner(t)
	_, err := r.RunFromConcrete(g, opctx.OperationID(999), nodes)
	if !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestRunFromConcreteRejectsArgumentCountMismatch(t *testing.T) {
	r, g, nodes := newListSwapRunner(t)
	_, err := r.RunFromConcrete(g, opListSwap, nodes[:2])
	if !errors.Is(err, ErrArgumentCountMismatch) {
		t.Fatalf("expected ErrArgumentCountMismatch, got %v", err)
	}
}

func TestRunFromConcreteRejectsAmbiguousArgumentSelection(t *testing.T) {
	r, g, nodes := newListSwapRunner(t)
	dup := []core.NodeKey{nodes[0], nodes[0], nodes[2], nodes[3]}
	_, err := r.RunFromConcrete(g, opListSwap, dup)
	if !errors.Is(err, ErrAmbiguousArgumentSelection) {
		t.Fatalf("expected ErrAmbiguousArgumentSelection, got %v", err)
	}
}

func TestRunFromConcreteRejectsArgumentDoesNotMatch(t *testing.T) {
	r, g, nodes := newListSwapRunner(t)
	// Reverse the chain: prev/x/y/next no longer form a Next-chain in the
	// order ListSwap's parameter pattern requires.
	_, err := r.RunFromConcrete(g, opListSwap, []core.NodeKey{nodes[3], nodes[2], nodes[1], nodes[0]})
	if !errors.Is(err, ErrArgumentDoesNotMatch) {
		t.Fatalf("expected ErrArgumentDoesNotMatch, got %v", err)
	}
}
