// File: bstdescend.go
// Role: BSTDescend, the one builtin scenario 4's recursive insert is built
// from. Grounded on core.Neighbors filtering by edge label (the teacher's
// pattern for picking a specific typed edge out of an adjacency list),
// generalized here to a labeled left/right child lookup driven by a value
// comparison - the data-dependent half of BST insertion this engine's
// purely structural Branch/ShapeQuery primitive cannot express on its own.
//
// BSTDescend leaves behind a purely structural marker once insertion
// completes at this level: a self-loop on the node labeled Done. A caller
// recursing node-by-node tests for that self-loop with a shape query to
// decide whether to recurse again or stop - turning one value-dependent
// decision into a structural one its own recursion can act on.
package builtins

import (
	"fmt"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/substview"
	"github.com/lvlath-labs/opgraph/valuetype"
)

const (
	bstDescendNode marker.SubstMarker = iota
	bstDescendTarget
)

// Done marks a BST node whose insertion recursion has reached its base
// case: the node carries a self-loop labeled Done once BSTDescend has
// either created target as its child, or found target already present.
const Done valuetype.Label = "done"

// BSTDescend compares target's value against node's, and:
//   - if target already equals node's value, does nothing but mark Done;
//   - else follows the Left or Right labeled edge to node's existing
//     child in that direction, if any, and stops there (the caller's own
//     recursion continues from that child, since no Done marker was left
//     on the original node - the child becomes the new "node" of the next
//     BSTDescend call);
//   - else, no child exists in that direction, so it creates target as a
//     new leaf under node via a Left/Right edge, and marks node Done.
type BSTDescend struct {
	param *paramgraph.Parameter[valuetype.Type, valuetype.Label]
}

func NewBSTDescend() *BSTDescend {
	p := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	_ = p.AddExplicitNode(bstDescendNode, valuetype.Integer)
	_ = p.AddExplicitNode(bstDescendTarget, valuetype.Integer)
	return &BSTDescend{param: p}
}

func (b *BSTDescend) Name() string { return "bst_descend" }

func (b *BSTDescend) Parameter() *paramgraph.Parameter[valuetype.Type, valuetype.Label] {
	return b.param
}

// ApplyAbstract reports the one structural shape every branch of Apply can
// produce: node may gain a new labeled child. The static builder cannot
// know which direction or whether a child already existed, so it only
// learns "node may have stayed or gained a child of abstract type
// Integer" under the name "child" (recorded under a Left edge) - good
// enough for a caller's own Call to bind a node for its next recursive step.
func (b *BSTDescend) ApplyAbstract(view *substview.View[valuetype.Type, valuetype.Label]) (*substview.AbstractOutput[valuetype.Type, valuetype.Label], error) {
	node, ok := view.Resolve(marker.Parameter(bstDescendNode))
	if !ok {
		return nil, fmt.Errorf("builtins.BSTDescend: node not bound")
	}
	childAID := marker.Named("child")
	childKey, err := view.AddNode(childAID, valuetype.Integer)
	if err != nil {
		return nil, err
	}
	if err := view.AddEdge(marker.Parameter(bstDescendNode), childAID, valuetype.Left); err != nil {
		return nil, err
	}
	_ = node
	_ = childKey
	out := view.Output(map[marker.AID]string{childAID: "child"})
	return out, nil
}

func (b *BSTDescend) Apply(view *substview.View[valuetype.Node, valuetype.Label], data *opctx.ConcreteData) (*substview.ConcreteOutput, error) {
	node, ok := view.Resolve(marker.Parameter(bstDescendNode))
	if !ok {
		return nil, fmt.Errorf("builtins.BSTDescend: node not bound")
	}
	target, ok := view.Resolve(marker.Parameter(bstDescendTarget))
	if !ok {
		return nil, fmt.Errorf("builtins.BSTDescend: target not bound")
	}
	g := view.Graph()

	nodeVal, err := g.NodeAttr(node)
	if err != nil {
		return nil, err
	}
	targetVal, err := g.NodeAttr(target)
	if err != nil {
		return nil, err
	}

	childAID := marker.Named("child")
	results := map[string]core.NodeKey{}

	if targetVal.Value == nodeVal.Value {
		data.MarkerSet.Tag(node, "bst:duplicate")
		if _, err := g.AddEdge(node, node, Done); err != nil {
			return nil, err
		}
		return &substview.ConcreteOutput{NewNodes: results}, nil
	}

	label := valuetype.Right
	if targetVal.Value < nodeVal.Value {
		label = valuetype.Left
	}

	if existing, found := labeledChild(g, node, label); found {
		if err := view.BindExisting(childAID, existing); err != nil {
			return nil, err
		}
		results["child"] = existing
		return &substview.ConcreteOutput{NewNodes: results}, nil
	}

	if err := view.BindExisting(childAID, target); err != nil {
		return nil, err
	}
	if _, err := g.AddEdge(node, target, label); err != nil {
		return nil, err
	}
	if _, err := g.AddEdge(node, node, Done); err != nil {
		return nil, err
	}
	results["child"] = target
	return &substview.ConcreteOutput{NewNodes: results}, nil
}

// labeledChild returns node's existing child reached by an edge labeled
// label, if any.
func labeledChild(g *core.Graph[valuetype.Node, valuetype.Label], node core.NodeKey, label valuetype.Label) (core.NodeKey, bool) {
	for _, ek := range g.OutEdges(node) {
		attr, err := g.EdgeAttr(ek)
		if err != nil || attr != label {
			continue
		}
		_, child, err := g.EdgeEndpoints(ek)
		if err != nil {
			continue
		}
		return child, true
	}
	return 0, false
}
