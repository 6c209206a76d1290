// File: maybeset.go
// Role: join-on-write updates used when applying an operation's
// maybe_changed output declarations, where the view does not know whether
// the node's value actually changed and must keep the most precise
// abstract value still true of both possibilities.
//
// The original engine panics (`.expect(...)`) when the join of the old and
// newly-written value is undefined, with an inline TODO acknowledging this
// should instead drop the node the way branch-merge drops an unmergeable
// AID. MaybeSetNodeValue/MaybeSetEdgeValue implement that fix directly:
// on join failure the node or edge is deleted from the view rather than
// left in an unsound state or causing a panic.

package substview

import "github.com/lvlath-labs/opgraph/marker"

// MaybeSetNodeValue records that aid's node may have been written with
// maybeWritten, then replaces its stored attribute with join(old,
// maybeWritten). If no such join exists, the node is dropped from the view
// (DeleteNode) instead of left with a stale or partially-applied value.
// Returns false if the drop occurred, true if the join succeeded normally.
func (v *View[V, E]) MaybeSetNodeValue(aid marker.AID, maybeWritten V, join func(a, b V) (V, bool)) (bool, error) {
	key, ok := v.Resolve(aid)
	if !ok {
		return false, substviewErrorf("MaybeSetNodeValue", ErrAIDNotFound, "%+v", aid)
	}
	old, err := v.graph.NodeAttr(key)
	if err != nil {
		return false, err
	}
	v.changedNodeAttr[key] = maybeWritten

	merged, ok := join(old, maybeWritten)
	if !ok {
		return false, v.DeleteNode(aid)
	}
	v.graph.SetNodeAttr(key, merged)
	return true, nil
}

// MaybeSetEdgeValue is MaybeSetNodeValue's edge counterpart. Unlike the
// node case, a missing edge is not an error here - the edge may simply not
// exist in this branch of execution - and is reported via the bool return
// rather than an error.
func (v *View[V, E]) MaybeSetEdgeValue(from, to marker.AID, maybeWritten E, join func(a, b E) (E, bool)) (bool, error) {
	fromKey, ok := v.Resolve(from)
	if !ok {
		return false, nil
	}
	toKey, ok := v.Resolve(to)
	if !ok {
		return false, nil
	}
	ek, found := v.graph.EdgeBetween(fromKey, toKey)
	if !found {
		return false, nil
	}
	old, err := v.graph.EdgeAttr(ek)
	if err != nil {
		return false, nil
	}
	ref := EdgeRef{fromKey, toKey}
	v.changedEdgeAttr[ref] = maybeWritten

	merged, ok := join(old, maybeWritten)
	if !ok {
		return false, v.DeleteEdge(from, to)
	}
	v.graph.SetEdgeAttr(ek, merged)
	return true, nil
}
