// Package absstate is the Abstract State Engine: the builder's static view
// of the graph as an operation body is built, addressed entirely by AID
// rather than NodeKey, plus the branch-merge operation that reconciles two
// independently-explored if/else bodies back into one state.
//
// State pairs an abstract Graph with the Binding that currently maps each
// live AID to a node in it. Binding, not graph structure, is what the
// builder consults when it resolves an AID a body instruction names - a
// node can still physically exist in Graph after its AID is dropped from
// Binding (e.g. by a failed branch-merge join), and the builder must still
// treat it as unreachable.
package absstate

import (
	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
)

// EdgeAID addresses an edge by the AIDs of its endpoints, the same way
// Binding addresses a node by its AID - used to record which edges a shape
// query, rather than the operation's own parameter, may have produced.
type EdgeAID struct {
	From, To marker.AID
}

// State is the builder's abstract view at one point in an operation body.
type State[NA, EA any] struct {
	Graph   *core.Graph[NA, EA]
	Binding map[marker.AID]core.NodeKey

	// Shaped holds every AID whose node may have been produced by a shape
	// query rather than handed in through the operation's own parameter -
	// the provenance taint spec's abstract state tracks so Build can refuse
	// to return one.
	Shaped map[marker.AID]bool
	// ShapedEdges mirrors Shaped for edges between two bound AIDs.
	ShapedEdges map[EdgeAID]bool
	// MayWritten holds, for each AID the body may have written a new value
	// into, the type recorded by the most recent RecordMayWrite for it -
	// distinct from Graph's node attribute, which holds the join of every
	// path. Earlier writes' types are replaced, not joined, and Merge keeps
	// left's entry when both branches have one.
	MayWritten map[marker.AID]NA
}

// New returns a State over an existing abstract graph with an empty
// binding (the caller populates it from the operation's parameter
// substitution before building begins).
func New[NA, EA any](g *core.Graph[NA, EA]) *State[NA, EA] {
	return &State[NA, EA]{
		Graph:       g,
		Binding:     make(map[marker.AID]core.NodeKey),
		Shaped:      make(map[marker.AID]bool),
		ShapedEdges: make(map[EdgeAID]bool),
		MayWritten:  make(map[marker.AID]NA),
	}
}

// MarkShaped records that aid's node may have come from a shape query.
func (s *State[NA, EA]) MarkShaped(aid marker.AID) {
	s.Shaped[aid] = true
}

// IsShaped reports whether aid was ever marked shaped.
func (s *State[NA, EA]) IsShaped(aid marker.AID) bool {
	return s.Shaped[aid]
}

// MarkShapedEdge records that the edge between from and to may have come
// from a shape query.
func (s *State[NA, EA]) MarkShapedEdge(from, to marker.AID) {
	s.ShapedEdges[EdgeAID{From: from, To: to}] = true
}

// IsShapedEdge reports whether the edge between from and to was ever marked
// shaped.
func (s *State[NA, EA]) IsShapedEdge(from, to marker.AID) bool {
	return s.ShapedEdges[EdgeAID{From: from, To: to}]
}

// RecordMayWrite notes that some path through the body may have written
// attr into aid's node, replacing any type recorded for aid before.
func (s *State[NA, EA]) RecordMayWrite(aid marker.AID, attr NA) {
	s.MayWritten[aid] = attr
}

// ForgetMayWrite clears any recorded may-write for aid, called when aid's
// binding itself is dropped.
func (s *State[NA, EA]) ForgetMayWrite(aid marker.AID) {
	delete(s.MayWritten, aid)
}

// MayWrite returns the type some path may have written into aid, if any.
func (s *State[NA, EA]) MayWrite(aid marker.AID) (NA, bool) {
	attr, ok := s.MayWritten[aid]
	return attr, ok
}

// Resolve returns the node aid is currently bound to, or false if aid is
// unbound or was dropped.
func (s *State[NA, EA]) Resolve(aid marker.AID) (core.NodeKey, bool) {
	k, ok := s.Binding[aid]
	return k, ok
}

// Bind records that aid now refers to k.
func (s *State[NA, EA]) Bind(aid marker.AID, k core.NodeKey) {
	s.Binding[aid] = k
}

// Drop removes aid from the binding. The underlying graph node, if any, is
// left untouched - dropping only affects reachability through this State.
func (s *State[NA, EA]) Drop(aid marker.AID) {
	delete(s.Binding, aid)
}

// Clone returns an independent copy: a deep graph clone and a copied
// binding, suitable as the starting point for one branch of an if/else.
func (s *State[NA, EA]) Clone() *State[NA, EA] {
	out := &State[NA, EA]{
		Graph:       s.Graph.Clone(),
		Binding:     make(map[marker.AID]core.NodeKey, len(s.Binding)),
		Shaped:      make(map[marker.AID]bool, len(s.Shaped)),
		ShapedEdges: make(map[EdgeAID]bool, len(s.ShapedEdges)),
		MayWritten:  make(map[marker.AID]NA, len(s.MayWritten)),
	}
	for aid, k := range s.Binding {
		out.Binding[aid] = k
	}
	for aid, v := range s.Shaped {
		out.Shaped[aid] = v
	}
	for ea, v := range s.ShapedEdges {
		out.ShapedEdges[ea] = v
	}
	for aid, attr := range s.MayWritten {
		out.MayWritten[aid] = attr
	}
	return out
}
