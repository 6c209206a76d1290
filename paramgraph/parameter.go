// Package paramgraph implements an operation's static parameter graph - the
// shape and types a call site must provide - and the signature built from
// it: the post-condition an operation guarantees on every invocation.
//
// CheckValidity enforces the one structural invariant a parameter graph
// must satisfy: every context (non-explicit) node must be reachable,
// ignoring edge direction, from at least one explicit input node. A
// parameter graph with a component containing no explicit input would let
// a caller select arguments that leave part of the pattern unanchored,
// which this engine treats as a build-time error rather than a silently
// unmatchable operation.
package paramgraph

import (
	"errors"
	"fmt"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
)

// Sentinel errors for paramgraph operations.
var (
	// ErrContextNodeNotConnected indicates a parameter graph has a
	// weakly-connected component containing no explicit input node.
	ErrContextNodeNotConnected = errors.New("paramgraph: context node not connected to any explicit input")

	// ErrMarkerAlreadyUsed indicates AddNode was called with a marker
	// already present in this Parameter.
	ErrMarkerAlreadyUsed = errors.New("paramgraph: marker already used in this parameter graph")

	// ErrUnknownMarker indicates a marker with no corresponding node.
	ErrUnknownMarker = errors.New("paramgraph: unknown marker")

	// ErrArgumentCountMismatch indicates a call supplied a different number
	// of arguments than the parameter declares explicit inputs.
	ErrArgumentCountMismatch = errors.New("paramgraph: argument count mismatch")
)

func paramgraphErrorf(op string, base error, format string, args ...interface{}) error {
	return fmt.Errorf("paramgraph.%s: %w: %s", op, base, fmt.Sprintf(format, args...))
}

// Parameter is an operation's declared input shape: a small pattern graph
// plus the ordered subset of its nodes a caller supplies positionally
// (ExplicitInputs); every other node is "context" - required by the
// pattern but not itself a call argument.
type Parameter[NA, EA any] struct {
	Graph           *core.Graph[NA, EA]
	ExplicitInputs  []marker.SubstMarker
	markerToKey     map[marker.SubstMarker]core.NodeKey
	keyToMarker     map[core.NodeKey]marker.SubstMarker
	explicitLookup  map[marker.SubstMarker]bool
}

// NewParameter returns an empty Parameter ready for AddNode/AddEdge calls.
func NewParameter[NA, EA any]() *Parameter[NA, EA] {
	return &Parameter[NA, EA]{
		Graph:          core.NewGraph[NA, EA](core.WithMultiEdges(), core.WithLoops()),
		markerToKey:    make(map[marker.SubstMarker]core.NodeKey),
		keyToMarker:    make(map[core.NodeKey]marker.SubstMarker),
		explicitLookup: make(map[marker.SubstMarker]bool),
	}
}

// AddContextNode adds a node required by the pattern but not supplied as a
// positional call argument.
func (p *Parameter[NA, EA]) AddContextNode(m marker.SubstMarker, attr NA) error {
	return p.addNode(m, attr, false)
}

// AddExplicitNode adds a node supplied as the next positional call
// argument; order of AddExplicitNode calls is the order callers must supply
// arguments in.
func (p *Parameter[NA, EA]) AddExplicitNode(m marker.SubstMarker, attr NA) error {
	if err := p.addNode(m, attr, true); err != nil {
		return err
	}
	p.ExplicitInputs = append(p.ExplicitInputs, m)
	return nil
}

func (p *Parameter[NA, EA]) addNode(m marker.SubstMarker, attr NA, explicit bool) error {
	if _, used := p.markerToKey[m]; used {
		return paramgraphErrorf("AddNode", ErrMarkerAlreadyUsed, "marker %v", m)
	}
	key := p.Graph.AddNode(attr)
	p.markerToKey[m] = key
	p.keyToMarker[key] = m
	if explicit {
		p.explicitLookup[m] = true
	}
	return nil
}

// AddEdge adds a pattern edge between two already-added markers.
func (p *Parameter[NA, EA]) AddEdge(from, to marker.SubstMarker, attr EA) error {
	fromKey, ok := p.markerToKey[from]
	if !ok {
		return paramgraphErrorf("AddEdge", ErrUnknownMarker, "marker %v", from)
	}
	toKey, ok := p.markerToKey[to]
	if !ok {
		return paramgraphErrorf("AddEdge", ErrUnknownMarker, "marker %v", to)
	}
	_, err := p.Graph.AddEdge(fromKey, toKey, attr)
	return err
}

// NodeKey returns the pattern graph node key bound to m.
func (p *Parameter[NA, EA]) NodeKey(m marker.SubstMarker) (core.NodeKey, bool) {
	k, ok := p.markerToKey[m]
	return k, ok
}

// Marker returns the SubstMarker bound to a pattern graph node key.
func (p *Parameter[NA, EA]) Marker(k core.NodeKey) (marker.SubstMarker, bool) {
	m, ok := p.keyToMarker[k]
	return m, ok
}

// IsExplicit reports whether m is a positional (explicit) input.
func (p *Parameter[NA, EA]) IsExplicit(m marker.SubstMarker) bool {
	return p.explicitLookup[m]
}

// CheckValidity enforces the connectivity invariant described in the
// package doc: every weakly-connected component of the pattern graph must
// contain at least one explicit input marker.
func (p *Parameter[NA, EA]) CheckValidity() error {
	uf := newUnionFind(p.Graph.Nodes())
	for _, k := range p.Graph.Nodes() {
		for _, to := range p.Graph.OutNeighbors(k) {
			uf.union(k, to)
		}
	}

	hasExplicit := make(map[core.NodeKey]bool)
	for _, m := range p.ExplicitInputs {
		if k, ok := p.markerToKey[m]; ok {
			hasExplicit[uf.find(k)] = true
		}
	}

	for _, k := range p.Graph.Nodes() {
		if !hasExplicit[uf.find(k)] {
			m := p.keyToMarker[k]
			return paramgraphErrorf("CheckValidity", ErrContextNodeNotConnected, "marker %v", m)
		}
	}
	return nil
}

type unionFind struct {
	parent map[core.NodeKey]core.NodeKey
}

func newUnionFind(keys []core.NodeKey) *unionFind {
	uf := &unionFind{parent: make(map[core.NodeKey]core.NodeKey, len(keys))}
	for _, k := range keys {
		uf.parent[k] = k
	}
	return uf
}

func (uf *unionFind) find(k core.NodeKey) core.NodeKey {
	for uf.parent[k] != k {
		uf.parent[k] = uf.parent[uf.parent[k]]
		k = uf.parent[k]
	}
	return k
}

func (uf *unionFind) union(a, b core.NodeKey) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}

// Substitution maps a Parameter's markers to the concrete/abstract NodeKeys
// bound at one particular call site.
type Substitution struct {
	mapping map[marker.SubstMarker]core.NodeKey
}

// NewSubstitution wraps an already-computed marker->NodeKey mapping.
func NewSubstitution(mapping map[marker.SubstMarker]core.NodeKey) *Substitution {
	return &Substitution{mapping: mapping}
}

// Lookup returns the NodeKey bound to m, if any.
func (s *Substitution) Lookup(m marker.SubstMarker) (core.NodeKey, bool) {
	k, ok := s.mapping[m]
	return k, ok
}

// Values returns every NodeKey this substitution binds a marker to, used to
// filter an operation's abstract output down to pre-existing parameter
// nodes (new nodes are reported separately, via their own declared names).
func (s *Substitution) Values() []core.NodeKey {
	out := make([]core.NodeKey, 0, len(s.mapping))
	for _, k := range s.mapping {
		out = append(out, k)
	}
	return out
}

// InferExplicit zips param's ordered explicit inputs positionally against
// selected, the node keys a caller chose at a call site. This is the
// top-level call-argument binding; it is a plain positional zip, distinct
// from the monomorphism search used to resolve a nested call's full
// substitution (including context nodes) against the live graph.
func InferExplicit[NA, EA any](param *Parameter[NA, EA], selected []core.NodeKey) (*Substitution, error) {
	if len(param.ExplicitInputs) != len(selected) {
		return nil, paramgraphErrorf("InferExplicit", ErrArgumentCountMismatch,
			"expected %d, got %d", len(param.ExplicitInputs), len(selected))
	}
	mapping := make(map[marker.SubstMarker]core.NodeKey, len(selected))
	for i, m := range param.ExplicitInputs {
		mapping[m] = selected[i]
	}
	return &Substitution{mapping: mapping}, nil
}
