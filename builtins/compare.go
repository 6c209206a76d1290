// File: compare.go
// Role: GreaterThan, the one value-comparison primitive this module's
// builtin queries offer - grounded on the same "native Go code plugged
// into the registry under opctx.BuiltinQuery" idiom ListSwap and the heap
// builtins use for opctx.BuiltinOperation, but answering a boolean rather
// than rewriting the graph. It exists so a user-defined operation can
// branch on a data value instead of only on graph shape.

package builtins

import (
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/substview"
	"github.com/lvlath-labs/opgraph/valuetype"
)

const (
	greaterThanLeft marker.SubstMarker = iota
	greaterThanRight
)

// GreaterThan takes two explicit Integer nodes and evaluates to true at
// run time when the left one's value is strictly greater than the
// right's. It narrows no types and rewrites nothing, so ApplyAbstract is a
// no-op - unlike ListSwap, a query's static effect is only "these two
// nodes must already be Integer", enforced by Parameter alone.
type GreaterThan struct {
	param *paramgraph.Parameter[valuetype.Type, valuetype.Label]
}

func NewGreaterThan() *GreaterThan {
	p := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	_ = p.AddExplicitNode(greaterThanLeft, valuetype.Integer)
	_ = p.AddExplicitNode(greaterThanRight, valuetype.Integer)
	return &GreaterThan{param: p}
}

func (g *GreaterThan) Name() string { return "greater_than" }

func (g *GreaterThan) Parameter() *paramgraph.Parameter[valuetype.Type, valuetype.Label] {
	return g.param
}

func (g *GreaterThan) ApplyAbstract(view *substview.View[valuetype.Type, valuetype.Label]) (*substview.AbstractOutput[valuetype.Type, valuetype.Label], error) {
	return view.Output(nil), nil
}

func (g *GreaterThan) Evaluate(view *substview.View[valuetype.Node, valuetype.Label], data *opctx.ConcreteData) (bool, error) {
	left, ok := view.NodeValue(marker.Parameter(greaterThanLeft))
	if !ok {
		return false, nil
	}
	right, ok := view.NodeValue(marker.Parameter(greaterThanRight))
	if !ok {
		return false, nil
	}
	return left.Value > right.Value, nil
}
