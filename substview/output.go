// File: output.go
// Role: the two output shapes a view can be reduced to once an operation
// body finishes running against it - the richer AbstractOutput used during
// static builds, and the minimal ConcreteOutput used at runtime, where a
// caller only ever needs to know which new nodes came out named what, and
// which previously-reachable nodes are now gone.

package substview

import (
	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
)

// ConcreteOutput is what a concrete (runtime) invocation reports back:
// the new nodes the caller asked to be named, and every node the operation
// removed. Changed attributes are not reported - a caller interested in a
// node's current value reads it directly from the live graph.
type ConcreteOutput struct {
	NewNodes     map[string]core.NodeKey
	RemovedNodes []core.NodeKey
}

// AbstractOutput is the full static report: new/removed nodes and edges,
// plus the maybe-changed attribute tables filtered down to nodes/edges that
// existed before the operation ran (new nodes' types are already recorded
// via NewNodes' declared values, not via the changed tables).
type AbstractOutput[V, E any] struct {
	NewNodes     map[string]core.NodeKey
	RemovedNodes []core.NodeKey
	NewEdges     []EdgeRef
	RemovedEdges []EdgeRef
	ChangedNodes map[core.NodeKey]V
	ChangedEdges map[EdgeRef]E
}

// Output reduces this view to its output given the desired output names for
// its new nodes: desiredNames maps an AID the body used for a new node to
// the stable name the operation exposes it under. Nodes created but never
// named are internal scratch nodes and are not reported.
func (v *View[V, E]) Output(desiredNames map[marker.AID]string) *AbstractOutput[V, E] {
	newNodes := make(map[string]core.NodeKey)
	newNodeKeys := make(map[core.NodeKey]bool)
	for _, aid := range v.newNodeList {
		name, wanted := desiredNames[aid]
		if !wanted {
			continue
		}
		key := v.newNodes[aid]
		newNodes[name] = key
		newNodeKeys[key] = true
	}

	existing := make(map[core.NodeKey]bool)
	for _, k := range v.subst.Values() {
		existing[k] = true
	}

	var newEdges []EdgeRef
	for _, ref := range v.newEdgeList {
		if newNodeKeys[ref.From] || newNodeKeys[ref.To] || existing[ref.From] || existing[ref.To] {
			newEdges = append(newEdges, ref)
		}
	}

	changedNodes := make(map[core.NodeKey]V)
	for k, attr := range v.changedNodeAttr {
		if existing[k] {
			changedNodes[k] = attr
		}
	}
	changedEdges := make(map[EdgeRef]E)
	for ref, attr := range v.changedEdgeAttr {
		if existing[ref.From] && existing[ref.To] {
			changedEdges[ref] = attr
		}
	}

	return &AbstractOutput[V, E]{
		NewNodes:     newNodes,
		RemovedNodes: append([]core.NodeKey{}, v.removedList...),
		NewEdges:     newEdges,
		RemovedEdges: append([]EdgeRef{}, v.removedEdgeList...),
		ChangedNodes: changedNodes,
		ChangedEdges: changedEdges,
	}
}

// ConcreteResult reduces this view to a ConcreteOutput, ignoring changed
// attributes and new/removed edges, which a concrete caller reads off the
// live graph directly instead.
func (v *View[V, E]) ConcreteResult(desiredNames map[marker.AID]string) *ConcreteOutput {
	newNodes := make(map[string]core.NodeKey)
	for _, aid := range v.newNodeList {
		if name, wanted := desiredNames[aid]; wanted {
			newNodes[name] = v.newNodes[aid]
		}
	}
	return &ConcreteOutput{
		NewNodes:     newNodes,
		RemovedNodes: append([]core.NodeKey{}, v.removedList...),
	}
}
