// Package substview implements the Graph Substitution View: a mutable
// window onto a Graph, scoped to one operation invocation, that lets an
// operation body address nodes by AID (a parameter marker, a nested call's
// output, or a host-assigned name) instead of by raw NodeKey, while
// recording every delta (new/removed nodes and edges, changed attributes)
// it causes so the caller can later compute the operation's output without
// re-diffing the whole graph.
//
// This is adapted from the teacher's non-mutating UnweightedView/
// InducedSubgraph pair (core/view.go): same idea of a thin layer over
// Graph that never exposes raw map iteration to its caller, generalized
// from "build a read-only derived graph" to "mutate in place while keeping
// a ledger of what changed."
package substview

import (
	"errors"
	"fmt"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
)

// Sentinel errors for substview operations.
var (
	// ErrAIDAlreadyBound indicates AddNode was called with an AID already
	// present in this view's substitution or new-node table.
	ErrAIDAlreadyBound = errors.New("substview: AID already bound")

	// ErrAIDNotFound indicates an AID does not resolve to a live node in
	// this view - either it was never bound, or it has since been removed.
	ErrAIDNotFound = errors.New("substview: AID not found")

	// ErrCannotRenameParameter indicates Rename was asked to re-address a
	// parameter AID - parameter AIDs resolve through the invocation's fixed
	// substitution, not this view's new-node table, so there is nothing to
	// repoint.
	ErrCannotRenameParameter = errors.New("substview: cannot rename a parameter AID")
)

func substviewErrorf(op string, base error, format string, args ...interface{}) error {
	return fmt.Errorf("substview.%s: %w: %s", op, base, fmt.Sprintf(format, args...))
}

// EdgeRef identifies an edge by its resolved endpoints, used as a map key
// for the changed/new/removed edge ledgers below.
type EdgeRef struct{ From, To core.NodeKey }

// View is a Graph Substitution View over Graph[V, E].
type View[V, E any] struct {
	graph *core.Graph[V, E]
	subst *paramgraph.Substitution

	newNodes    map[marker.AID]core.NodeKey
	newNodeList []marker.AID
	newEdgeList []EdgeRef
	removed     map[core.NodeKey]bool
	removedList []core.NodeKey
	removedEdge map[EdgeRef]bool
	removedEdgeList []EdgeRef

	changedNodeAttr map[core.NodeKey]V
	changedEdgeAttr map[EdgeRef]E
}

// New wraps g as a View scoped to one invocation's substitution. subst maps
// the invocation's parameter markers to already-resolved node keys in g.
func New[V, E any](g *core.Graph[V, E], subst *paramgraph.Substitution) *View[V, E] {
	return &View[V, E]{
		graph:           g,
		subst:           subst,
		newNodes:        make(map[marker.AID]core.NodeKey),
		removed:         make(map[core.NodeKey]bool),
		removedEdge:     make(map[EdgeRef]bool),
		changedNodeAttr: make(map[core.NodeKey]V),
		changedEdgeAttr: make(map[EdgeRef]E),
	}
}

// Graph exposes the underlying graph to builtins that need more than
// AID-addressed access (e.g. enumerating all out-edges of a matched node).
// Builtins also write through it; such writes are not recorded in this
// view's change ledgers.
func (v *View[V, E]) Graph() *core.Graph[V, E] { return v.graph }

// Resolve returns the NodeKey an AID currently refers to in this view, or
// false if the AID was never bound or the node it named has since been
// removed - a caller must not be able to resolve a stale handle into a
// live-looking key after deletion.
func (v *View[V, E]) Resolve(aid marker.AID) (core.NodeKey, bool) {
	var key core.NodeKey
	var ok bool
	if aid.Kind == marker.AIDParameter {
		key, ok = v.subst.Lookup(aid.Param)
	} else {
		key, ok = v.newNodes[aid]
	}
	if !ok || v.removed[key] {
		return 0, false
	}
	return key, true
}

// AddNode creates a new node with attr and binds aid to it. Returns
// ErrAIDAlreadyBound if aid already resolves to a live node - the Go
// counterpart of the original engine's panic on marker reuse, since this
// module never panics on a caller-triggered condition.
func (v *View[V, E]) AddNode(aid marker.AID, attr V) (core.NodeKey, error) {
	if _, ok := v.Resolve(aid); ok {
		return 0, substviewErrorf("AddNode", ErrAIDAlreadyBound, "%+v", aid)
	}
	key := v.graph.AddNode(attr)
	v.newNodes[aid] = key
	v.newNodeList = append(v.newNodeList, aid)
	return key, nil
}

// BindExisting registers aid as referring to an already-live node key - used
// when a nested call's output becomes visible under a new AID in the
// caller's view, without creating a second node. The bound key still
// appears in this view's new-node ledger (Output/ConcreteResult), so a
// caller that also declares this AID as one of its own outputs reports it
// correctly.
func (v *View[V, E]) BindExisting(aid marker.AID, key core.NodeKey) error {
	if _, ok := v.Resolve(aid); ok {
		return substviewErrorf("BindExisting", ErrAIDAlreadyBound, "%+v", aid)
	}
	v.newNodes[aid] = key
	v.newNodeList = append(v.newNodeList, aid)
	return nil
}

// DeleteNode removes the node aid refers to, recording it as removed.
func (v *View[V, E]) DeleteNode(aid marker.AID) error {
	key, ok := v.Resolve(aid)
	if !ok {
		return substviewErrorf("DeleteNode", ErrAIDNotFound, "%+v", aid)
	}
	if err := v.graph.RemoveNode(key); err != nil {
		return err
	}
	v.removed[key] = true
	v.removedList = append(v.removedList, key)
	return nil
}

// AddEdge adds an edge between the nodes from/to refer to.
func (v *View[V, E]) AddEdge(from, to marker.AID, attr E) error {
	fromKey, ok := v.Resolve(from)
	if !ok {
		return substviewErrorf("AddEdge", ErrAIDNotFound, "from %+v", from)
	}
	toKey, ok := v.Resolve(to)
	if !ok {
		return substviewErrorf("AddEdge", ErrAIDNotFound, "to %+v", to)
	}
	if _, err := v.graph.AddEdge(fromKey, toKey, attr); err != nil {
		return err
	}
	v.newEdgeList = append(v.newEdgeList, EdgeRef{fromKey, toKey})
	return nil
}

// DeleteEdge removes the edge between the nodes from/to refer to.
func (v *View[V, E]) DeleteEdge(from, to marker.AID) error {
	fromKey, ok := v.Resolve(from)
	if !ok {
		return substviewErrorf("DeleteEdge", ErrAIDNotFound, "from %+v", from)
	}
	toKey, ok := v.Resolve(to)
	if !ok {
		return substviewErrorf("DeleteEdge", ErrAIDNotFound, "to %+v", to)
	}
	ek, found := v.graph.EdgeBetween(fromKey, toKey)
	if !found {
		return substviewErrorf("DeleteEdge", ErrAIDNotFound, "edge %v->%v", fromKey, toKey)
	}
	if err := v.graph.RemoveEdge(ek); err != nil {
		return err
	}
	ref := EdgeRef{fromKey, toKey}
	v.removedEdge[ref] = true
	v.removedEdgeList = append(v.removedEdgeList, ref)
	return nil
}

// NodeValue returns the current attribute of the node aid refers to.
func (v *View[V, E]) NodeValue(aid marker.AID) (V, bool) {
	key, ok := v.Resolve(aid)
	if !ok {
		var zero V
		return zero, false
	}
	attr, err := v.graph.NodeAttr(key)
	if err != nil {
		var zero V
		return zero, false
	}
	return attr, true
}

// Rename re-addresses old's node under newAID, so that every later lookup
// of old no longer resolves and every lookup of newAID does. Parameter AIDs
// cannot be renamed, since their identity is the invocation's substitution
// itself, not an entry this view owns.
func (v *View[V, E]) Rename(old, newAID marker.AID) error {
	if old.Kind == marker.AIDParameter {
		return substviewErrorf("Rename", ErrCannotRenameParameter, "%+v", old)
	}
	key, ok := v.Resolve(old)
	if !ok {
		return substviewErrorf("Rename", ErrAIDNotFound, "%+v", old)
	}
	if _, ok := v.Resolve(newAID); ok {
		return substviewErrorf("Rename", ErrAIDAlreadyBound, "%+v", newAID)
	}

	delete(v.newNodes, old)
	v.newNodes[newAID] = key
	for i, aid := range v.newNodeList {
		if aid == old {
			v.newNodeList[i] = newAID
			break
		}
	}
	return nil
}

// Forget drops aid's binding without touching the underlying node, so a
// later shape query may bind a fresh AID to that same node. For a
// Parameter AID, Forget only checks that it resolves: its binding lives in
// the substitution, which this view does not own, so it stays resolvable.
func (v *View[V, E]) Forget(aid marker.AID) error {
	if _, ok := v.Resolve(aid); !ok {
		return substviewErrorf("Forget", ErrAIDNotFound, "%+v", aid)
	}
	if aid.Kind == marker.AIDParameter {
		return nil // lives in subst, which this view does not own
	}
	delete(v.newNodes, aid)
	for i, a := range v.newNodeList {
		if a == aid {
			v.newNodeList = append(v.newNodeList[:i], v.newNodeList[i+1:]...)
			break
		}
	}
	return nil
}

// SetNodeValue overwrites the attribute of the node aid refers to.
func (v *View[V, E]) SetNodeValue(aid marker.AID, attr V) error {
	key, ok := v.Resolve(aid)
	if !ok {
		return substviewErrorf("SetNodeValue", ErrAIDNotFound, "%+v", aid)
	}
	v.graph.SetNodeAttr(key, attr)
	v.changedNodeAttr[key] = attr
	return nil
}
