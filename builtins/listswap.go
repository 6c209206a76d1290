// File: listswap.go
// Role: ListSwap, the one primitive bubble sort's user-defined operations
// are built from. Grounded on core.AddEdge/core.RemoveEdge (the edge-
// rewrite primitives every teacher algorithm package ultimately bottoms
// out on), this swaps two adjacent list nodes by re-pointing their
// neighbors' Next edges rather than by exchanging the two nodes' values -
// the structural swap a graph-rewriting engine can express and verify,
// as opposed to a value-level swap a plain imperative sort would do.

package builtins

import (
	"fmt"

	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/substview"
	"github.com/lvlath-labs/opgraph/valuetype"
)

const (
	listSwapPrev marker.SubstMarker = iota
	listSwapX
	listSwapY
	listSwapNext
)

// ListSwap takes four explicit, Next-chained nodes prev -> x -> y -> next
// and rewrites them to prev -> y -> x -> next, leaving x and y's own
// values untouched - only the edges move.
type ListSwap struct {
	param *paramgraph.Parameter[valuetype.Type, valuetype.Label]
}

func NewListSwap() *ListSwap {
	p := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	_ = p.AddExplicitNode(listSwapPrev, valuetype.Object)
	_ = p.AddExplicitNode(listSwapX, valuetype.Object)
	_ = p.AddExplicitNode(listSwapY, valuetype.Object)
	_ = p.AddExplicitNode(listSwapNext, valuetype.Object)
	_ = p.AddEdge(listSwapPrev, listSwapX, valuetype.Next)
	_ = p.AddEdge(listSwapX, listSwapY, valuetype.Next)
	_ = p.AddEdge(listSwapY, listSwapNext, valuetype.Next)
	return &ListSwap{param: p}
}

func (l *ListSwap) Name() string { return "list_swap" }

func (l *ListSwap) Parameter() *paramgraph.Parameter[valuetype.Type, valuetype.Label] {
	return l.param
}

func (l *ListSwap) rewrite(
	deleteEdge func(from, to marker.AID) error,
	addEdge func(from, to marker.AID, attr valuetype.Label) error,
) error {
	prev, x, y, next := marker.Parameter(listSwapPrev), marker.Parameter(listSwapX), marker.Parameter(listSwapY), marker.Parameter(listSwapNext)
	if err := deleteEdge(prev, x); err != nil {
		return err
	}
	if err := deleteEdge(x, y); err != nil {
		return err
	}
	if err := deleteEdge(y, next); err != nil {
		return err
	}
	if err := addEdge(prev, y, valuetype.Next); err != nil {
		return err
	}
	if err := addEdge(y, x, valuetype.Next); err != nil {
		return err
	}
	if err := addEdge(x, next, valuetype.Next); err != nil {
		return err
	}
	return nil
}

func (l *ListSwap) ApplyAbstract(view *substview.View[valuetype.Type, valuetype.Label]) (*substview.AbstractOutput[valuetype.Type, valuetype.Label], error) {
	if err := l.rewrite(view.DeleteEdge, view.AddEdge); err != nil {
		return nil, fmt.Errorf("builtins.ListSwap: %w", err)
	}
	return view.Output(nil), nil
}

func (l *ListSwap) Apply(view *substview.View[valuetype.Node, valuetype.Label], data *opctx.ConcreteData) (*substview.ConcreteOutput, error) {
	if err := l.rewrite(view.DeleteEdge, view.AddEdge); err != nil {
		return nil, fmt.Errorf("builtins.ListSwap: %w", err)
	}
	return view.ConcreteResult(nil), nil
}
