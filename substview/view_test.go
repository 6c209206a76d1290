package substview

import (
	"errors"
	"testing"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/valuetype"
)

const (
	vmRoot marker.SubstMarker = iota
	vmOther
)

func newRootView(t *testing.T) (*View[valuetype.Node, valuetype.Label], *core.Graph[valuetype.Node, valuetype.Label], core.NodeKey) {
	t.Helper()
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	root := g.AddNode(valuetype.Node{Value: 1})
	sub := paramgraph.NewSubstitution(map[marker.SubstMarker]core.NodeKey{vmRoot: root})
	return New[valuetype.Node, valuetype.Label](g, sub), g, root
}

func TestResolveParameterAndNewNode(t *testing.T) {
	v, _, root := newRootView(t)

	key, ok := v.Resolve(marker.Parameter(vmRoot))
	if !ok || key != root {
		t.Fatalf("Resolve(parameter) should return the substitution's bound key")
	}

	childAID := marker.Named("child")
	if _, ok := v.Resolve(childAID); ok {
		t.Fatalf("an unbound AID should not resolve")
	}

	childKey, err := v.AddNode(childAID, valuetype.Node{Value: 2})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	got, ok := v.Resolve(childAID)
	if !ok || got != childKey {
		t.Fatalf("Resolve should find the node just added")
	}

	_, err = v.AddNode(childAID, valuetype.Node{Value: 3})
	if !errors.Is(err, ErrAIDAlreadyBound) {
		t.Fatalf("re-adding a bound AID should fail with ErrAIDAlreadyBound, got %v", err)
	}
}

func TestDeleteNodeMakesAIDUnresolvable(t *testing.T) {
	v, _, root := newRootView(t)
	if err := v.DeleteNode(marker.Parameter(vmRoot)); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, ok := v.Resolve(marker.Parameter(vmRoot)); ok {
		t.Fatalf("a deleted node's AID must not resolve, even though the substitution still names it")
	}
	_ = root
}

func TestDeleteNodeUnknownAIDFails(t *testing.T) {
	v, _, _ := newRootView(t)
	err := v.DeleteNode(marker.Named("nope"))
	if !errors.Is(err, ErrAIDNotFound) {
		t.Fatalf("expected ErrAIDNotFound, got %v", err)
	}
}

func TestAddEdgeAndDeleteEdge(t *testing.T) {
	v, _, root := newRootView(t)
	childAID := marker.Named("child")
	if _, err := v.AddNode(childAID, valuetype.Node{Value: 2}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	if err := v.AddEdge(marker.Parameter(vmRoot), childAID, valuetype.Next); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	if err := v.DeleteEdge(marker.Parameter(vmRoot), childAID); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}
	if err := v.DeleteEdge(marker.Parameter(vmRoot), childAID); !errors.Is(err, ErrAIDNotFound) {
		t.Fatalf("deleting an already-removed edge should fail with ErrAIDNotFound, got %v", err)
	}
	_ = root
}

func TestNodeValueAndSetNodeValue(t *testing.T) {
	v, _, root := newRootView(t)
	attr, ok := v.NodeValue(marker.Parameter(vmRoot))
	if !ok || attr.Value != 1 {
		t.Fatalf("NodeValue should read the live attribute, got %+v %v", attr, ok)
	}

	if err := v.SetNodeValue(marker.Parameter(vmRoot), valuetype.Node{Value: 99}); err != nil {
		t.Fatalf("SetNodeValue: %v", err)
	}
	attr, ok = v.NodeValue(marker.Parameter(vmRoot))
	if !ok || attr.Value != 99 {
		t.Fatalf("SetNodeValue should be visible to a later NodeValue, got %+v", attr)
	}
	_ = root
}

func TestMaybeSetNodeValueJoinsOnWrite(t *testing.T) {
	v, _, root := newRootView(t)
	join := func(a, b valuetype.Node) (valuetype.Node, bool) {
		if a.Value == b.Value {
			return a, true
		}
		return valuetype.Node{}, false
	}

	ok, err := v.MaybeSetNodeValue(marker.Parameter(vmRoot), valuetype.Node{Value: 1}, join)
	if err != nil || !ok {
		t.Fatalf("joining equal values should succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = v.MaybeSetNodeValue(marker.Parameter(vmRoot), valuetype.Node{Value: 2}, join)
	if err != nil {
		t.Fatalf("a join-failure drop should not itself return an error: %v", err)
	}
	if ok {
		t.Fatalf("an undefined join should report ok=false")
	}
	if _, resolved := v.Resolve(marker.Parameter(vmRoot)); resolved {
		t.Fatalf("a node whose maybe-set join failed should be dropped from the view")
	}
	_ = root
}

func TestMaybeSetEdgeValueMissingEdgeIsNotAnError(t *testing.T) {
	v, _, _ := newRootView(t)
	childAID := marker.Named("child")
	if _, err := v.AddNode(childAID, valuetype.Node{Value: 2}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	join := func(a, b valuetype.Label) (valuetype.Label, bool) { return a, true }

	ok, err := v.MaybeSetEdgeValue(marker.Parameter(vmRoot), childAID, valuetype.Next, join)
	if err != nil {
		t.Fatalf("a missing edge should not be an error: %v", err)
	}
	if ok {
		t.Fatalf("a missing edge should report ok=false")
	}
}

func TestOutputReportsOnlyDesiredNewNodesAndFiltersEdges(t *testing.T) {
	v, _, root := newRootView(t)
	namedAID := marker.Named("out")
	scratchAID := marker.Named("scratch")

	namedKey, err := v.AddNode(namedAID, valuetype.Node{Value: 5})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := v.AddNode(scratchAID, valuetype.Node{Value: 6}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := v.AddEdge(marker.Parameter(vmRoot), namedAID, valuetype.Next); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	out := v.Output(map[marker.AID]string{namedAID: "result"})
	if len(out.NewNodes) != 1 || out.NewNodes["result"] != namedKey {
		t.Fatalf("Output should only report the desired-name node, got %+v", out.NewNodes)
	}
	if len(out.NewEdges) != 1 {
		t.Fatalf("the edge from the pre-existing root to the named new node should be reported, got %v", out.NewEdges)
	}
	_ = root
}

func TestConcreteResultIgnoresEdgesAndAttributes(t *testing.T) {
	v, _, _ := newRootView(t)
	namedAID := marker.Named("out")
	namedKey, err := v.AddNode(namedAID, valuetype.Node{Value: 5})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := v.DeleteNode(marker.Parameter(vmRoot)); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	res := v.ConcreteResult(map[marker.AID]string{namedAID: "result"})
	if res.NewNodes["result"] != namedKey {
		t.Fatalf("ConcreteResult should report the named new node")
	}
	if len(res.RemovedNodes) != 1 {
		t.Fatalf("ConcreteResult should report the removed node")
	}
}

func TestBindExistingRegistersAIDWithoutCreatingNode(t *testing.T) {
	v, g, root := newRootView(t)
	before := len(g.Nodes())

	aliasAID := marker.Named("alias")
	if err := v.BindExisting(aliasAID, root); err != nil {
		t.Fatalf("BindExisting: %v", err)
	}
	if len(g.Nodes()) != before {
		t.Fatalf("BindExisting must not create a new graph node")
	}
	key, ok := v.Resolve(aliasAID)
	if !ok || key != root {
		t.Fatalf("Resolve(alias) should return the bound existing key")
	}
}
