// File: signature.go
// Role: an operation's declared post-condition (OutputChanges) and full
// signature (Parameter + OutputChanges), plus the structural subtyping
// rules spec's recursion fixpoint and operation-exchange checks rely on.

package paramgraph

import (
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/semantics"
)

// SigNodeKind distinguishes the two ways a signature's new-edge endpoint
// can be identified.
type SigNodeKind int

const (
	// SigExisting references a pre-existing parameter-graph marker.
	SigExisting SigNodeKind = iota
	// SigNew references a node the operation itself creates.
	SigNew
)

// SigNodeID identifies one endpoint of a signature's new-edge declaration.
type SigNodeID struct {
	Kind     SigNodeKind
	Existing marker.SubstMarker
	New      string // output marker name, valid when Kind == SigNew
}

// SigEdgeID identifies a declared new edge by its two endpoints.
type SigEdgeID struct{ From, To SigNodeID }

// ParamEdgeID identifies a pre-existing parameter-graph edge by its two
// markers.
type ParamEdgeID struct{ From, To marker.SubstMarker }

// OutputChanges is the complete "must-occur" post-condition an operation
// guarantees on every invocation: new nodes/edges guaranteed to appear with
// a given type, and pre-existing nodes/edges that *may* have been changed
// or deleted - "may" because which branch of the operation body actually
// ran is not known statically.
type OutputChanges[NA, EA any] struct {
	NewNodes          map[string]NA
	NewEdges          map[SigEdgeID]EA
	MaybeChangedNodes map[marker.SubstMarker]NA
	MaybeChangedEdges map[ParamEdgeID]EA
	MaybeDeletedNodes map[marker.SubstMarker]struct{}
	MaybeDeletedEdges map[ParamEdgeID]struct{}
}

// NewOutputChanges returns an empty OutputChanges.
func NewOutputChanges[NA, EA any]() *OutputChanges[NA, EA] {
	return &OutputChanges[NA, EA]{
		NewNodes:          make(map[string]NA),
		NewEdges:          make(map[SigEdgeID]EA),
		MaybeChangedNodes: make(map[marker.SubstMarker]NA),
		MaybeChangedEdges: make(map[ParamEdgeID]EA),
		MaybeDeletedNodes: make(map[marker.SubstMarker]struct{}),
		MaybeDeletedEdges: make(map[ParamEdgeID]struct{}),
	}
}

// Signature is an operation's full, exported contract: its name, the shape
// callers must supply (Parameter), and the post-condition it guarantees
// (Output). Two operations with the same Signature are soundly
// interchangeable regardless of how differently they are implemented.
type Signature[NA, EA any] struct {
	Name      string
	Parameter *Parameter[NA, EA]
	Output    *OutputChanges[NA, EA]
}

// IsSubtypeOf reports whether self can be used wherever other is expected
// (self <: other), following the original engine's four-clause structural
// algorithm: new nodes/edges covariant by presence, maybe-changed
// nodes/edges covariant, maybe-deleted sets covariant by inclusion, with
// Parameter.IsSubtypeOf separately checking explicit inputs contravariantly.
func (oc *OutputChanges[NA, EA]) IsSubtypeOf(other *OutputChanges[NA, EA], matchNode semantics.NodeMatcher[NA], matchEdge semantics.EdgeMatcher[EA]) bool {
	for name, otherType := range other.NewNodes {
		selfType, ok := oc.NewNodes[name]
		if !ok || !matchNode(selfType, otherType) {
			return false
		}
	}
	for id, otherType := range other.NewEdges {
		selfType, ok := oc.NewEdges[id]
		if !ok || !matchEdge(selfType, otherType) {
			return false
		}
	}
	for m, selfType := range oc.MaybeChangedNodes {
		otherType, ok := other.MaybeChangedNodes[m]
		if !ok || !matchNode(selfType, otherType) {
			return false
		}
	}
	for id, selfType := range oc.MaybeChangedEdges {
		otherType, ok := other.MaybeChangedEdges[id]
		if !ok || !matchEdge(selfType, otherType) {
			return false
		}
	}
	for m := range oc.MaybeDeletedNodes {
		if _, ok := other.MaybeDeletedNodes[m]; !ok {
			return false
		}
	}
	for id := range oc.MaybeDeletedEdges {
		if _, ok := other.MaybeDeletedEdges[id]; !ok {
			return false
		}
	}
	return true
}

// IsSubtypeOf reports whether self can be used *as a parameter* wherever
// other is expected (self <: other). Parameters are contravariant: a
// caller expecting to call an operation with parameter `other` may instead
// call one with parameter `self` only if self's explicit input types are
// each a supertype of other's corresponding type - otherwise self could
// receive an argument more specific than it actually requires.
func (p *Parameter[NA, EA]) IsSubtypeOf(other *Parameter[NA, EA], matchNode semantics.NodeMatcher[NA]) bool {
	if len(p.ExplicitInputs) != len(other.ExplicitInputs) {
		return false
	}
	for i, selfMarker := range p.ExplicitInputs {
		otherMarker := other.ExplicitInputs[i]
		selfKey, ok := p.markerToKey[selfMarker]
		if !ok {
			return false
		}
		otherKey, ok := other.markerToKey[otherMarker]
		if !ok {
			return false
		}
		selfType, err := p.Graph.NodeAttr(selfKey)
		if err != nil {
			return false
		}
		otherType, err := other.Graph.NodeAttr(otherKey)
		if err != nil {
			return false
		}
		// NB: must check other <: self, the contravariant direction.
		if !matchNode(otherType, selfType) {
			return false
		}
	}
	return true
}

// SubtypeOf reports whether sig can be used wherever other is expected,
// combining the parameter (contravariant) and output (covariant) checks.
func (sig *Signature[NA, EA]) SubtypeOf(other *Signature[NA, EA], matchNode semantics.NodeMatcher[NA], matchEdge semantics.EdgeMatcher[EA]) bool {
	if !sig.Parameter.IsSubtypeOf(other.Parameter, matchNode) {
		return false
	}
	return sig.Output.IsSubtypeOf(other.Output, matchNode, matchEdge)
}
