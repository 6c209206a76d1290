// File: match.go
// Role: subgraph-monomorphism search, the one piece of the "external graph
// collaborator" this engine cannot do without. Given a small pattern graph
// and a larger target graph, it yields injective, label-respecting
// embeddings of the pattern into the target in a fixed, repeatable order:
// pattern nodes are assigned in ascending NodeKey order, and for each
// pattern node candidate target nodes are tried in ascending NodeKey order.
// This mirrors the walker-struct recursion style used elsewhere in this
// package, backtracking instead of forward-traversing.

package core

// matcher carries one search's read-only state; a fresh matcher is built
// per FindMonomorphism call so concurrent searches never share mutable state.
//
// nodeMatch and edgeMatch are left as plain (unnamed) func types rather than
// package-level named types so that a semantics.Plugin's MatchNode/MatchEdge
// - themselves a distinct named type with the identical (have, want) shape -
// can be passed straight through without a wrapper: Go only allows direct
// assignment between two named function types when they're the same type, so
// naming this one too would force every caller to write a conversion.
type matcher[VN, VE any] struct {
	pattern, target *Graph[VN, VE]
	nodeMatch       func(have, want VN) bool
	edgeMatch       func(have, want VE) bool
	pinned          map[NodeKey]NodeKey // pattern key -> required target key

	order     []NodeKey // pattern nodes, ascending
	assigned  map[NodeKey]NodeKey
	usedTgt   map[NodeKey]bool
	targetAll []NodeKey // target nodes, ascending, recomputed once
}

// FindMonomorphism searches for an injective mapping from pattern's nodes to
// target's nodes such that:
//   - every pattern node maps to a target node whose attribute "have"
//     satisfies the pattern node's attribute "want" under nodeMatch(have,
//     want) (e.g. a type/subtype check - have is the target's actual
//     attribute, want is what the pattern requires);
//   - every pattern edge (u,v) maps to some target edge (mapping[u],
//     mapping[v]) whose attribute satisfies edgeMatch the same way (the
//     target may have additional edges or attributes the pattern does not
//     require - this is monomorphism, not isomorphism);
//   - pinned pre-assigns specific pattern nodes to specific target nodes
//     (e.g. explicit call arguments); the search fails immediately if a
//     pinned pattern node's attribute does not satisfy nodeMatch against its
//     pinned target.
//
// Returns the first mapping found under the fixed search order described
// above, and false if none exists. The search is exhaustive but bounded by
// the sizes this engine's scenarios actually use (parameter graphs and
// shape-query patterns are small, single- to low-double-digit node counts).
func FindMonomorphism[VN, VE any](
	pattern, target *Graph[VN, VE],
	pinned map[NodeKey]NodeKey,
	nodeMatch func(have, want VN) bool,
	edgeMatch func(have, want VE) bool,
) (map[NodeKey]NodeKey, bool) {
	m := &matcher[VN, VE]{
		pattern:   pattern,
		target:    target,
		nodeMatch: nodeMatch,
		edgeMatch: edgeMatch,
		pinned:    pinned,
		order:     pattern.Nodes(),
		assigned:  make(map[NodeKey]NodeKey),
		usedTgt:   make(map[NodeKey]bool),
		targetAll: target.Nodes(),
	}
	if m.search(0) {
		out := make(map[NodeKey]NodeKey, len(m.assigned))
		for k, v := range m.assigned {
			out[k] = v
		}
		return out, true
	}
	return nil, false
}

func (m *matcher[VN, VE]) search(i int) bool {
	if i == len(m.order) {
		return true
	}
	p := m.order[i]

	if pinnedTgt, isPinned := m.pinned[p]; isPinned {
		if m.usedTgt[pinnedTgt] {
			return false
		}
		if !m.tryAssign(p, pinnedTgt) {
			return false
		}
		if m.search(i + 1) {
			return true
		}
		m.unassign(p, pinnedTgt)
		return false
	}

	for _, t := range m.targetAll {
		if m.usedTgt[t] {
			continue
		}
		if !m.tryAssign(p, t) {
			continue
		}
		if m.search(i + 1) {
			return true
		}
		m.unassign(p, t)
	}
	return false
}

// tryAssign checks node-attribute compatibility and edge consistency with
// every pattern edge between p and an already-assigned pattern node, then
// commits the assignment if all checks pass.
func (m *matcher[VN, VE]) tryAssign(p, t NodeKey) bool {
	pAttr, err := m.pattern.NodeAttr(p)
	if err != nil {
		return false
	}
	tAttr, err := m.target.NodeAttr(t)
	if err != nil {
		return false
	}
	if !m.nodeMatch(tAttr, pAttr) {
		return false
	}
	if ek, ok := m.pattern.EdgeBetween(p, p); ok {
		if !m.edgeSatisfied(ek, t, t) {
			return false
		}
	}

	for other, otherTgt := range m.assigned {
		if ek, ok := m.pattern.EdgeBetween(p, other); ok {
			if !m.edgeSatisfied(ek, t, otherTgt) {
				return false
			}
		}
		if ek, ok := m.pattern.EdgeBetween(other, p); ok {
			if !m.edgeSatisfied(ek, otherTgt, t) {
				return false
			}
		}
	}

	m.assigned[p] = t
	m.usedTgt[t] = true
	return true
}

func (m *matcher[VN, VE]) edgeSatisfied(patternEdge EdgeKey, tFrom, tTo NodeKey) bool {
	pAttr, err := m.pattern.EdgeAttr(patternEdge)
	if err != nil {
		return false
	}
	for _, tEdge := range m.target.OutEdges(tFrom) {
		_, to, err := m.target.EdgeEndpoints(tEdge)
		if err != nil || to != tTo {
			continue
		}
		tAttr, err := m.target.EdgeAttr(tEdge)
		if err == nil && m.edgeMatch(tAttr, pAttr) {
			return true
		}
	}
	return false
}

func (m *matcher[VN, VE]) unassign(p, t NodeKey) {
	delete(m.assigned, p)
	delete(m.usedTgt, t)
}
