// File: neighbors.go
// Role: ordered neighbor/edge enumeration.
// AI-HINT: OutEdges/InEdges return edge keys sorted by (order, key) so that
// two graphs built with the same insertion sequence always iterate
// identically - operation builtins that care about edge order (e.g. a BST's
// left/right children) rely on this rather than map iteration order.

package core

import "sort"

// OutEdges returns the out-edges of k, ordered by insertion (Append/Prepend).
func (g *Graph[VN, VE]) OutEdges(k NodeKey) []EdgeKey {
	g.muNode.RLock()
	n, ok := g.nodes[k]
	g.muNode.RUnlock()
	if !ok {
		return nil
	}
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	out := append([]EdgeKey{}, n.out...)
	sort.Slice(out, func(i, j int) bool {
		oi, oj := g.edges[out[i]].outOrder, g.edges[out[j]].outOrder
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}

// InEdges returns the in-edges of k, ordered by insertion (Append/Prepend).
func (g *Graph[VN, VE]) InEdges(k NodeKey) []EdgeKey {
	g.muNode.RLock()
	n, ok := g.nodes[k]
	g.muNode.RUnlock()
	if !ok {
		return nil
	}
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	in := append([]EdgeKey{}, n.in...)
	sort.Slice(in, func(i, j int) bool {
		oi, oj := g.edges[in[i]].inOrder, g.edges[in[j]].inOrder
		if oi != oj {
			return oi < oj
		}
		return in[i] < in[j]
	})
	return in
}

// OutNeighbors returns the target node of each out-edge of k, in edge order.
func (g *Graph[VN, VE]) OutNeighbors(k NodeKey) []NodeKey {
	edges := g.OutEdges(k)
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	out := make([]NodeKey, len(edges))
	for i, ek := range edges {
		out[i] = g.edges[ek].to
	}
	return out
}

// Degree returns (out-degree, in-degree) for k.
func (g *Graph[VN, VE]) Degree(k NodeKey) (out, in int) {
	g.muNode.RLock()
	defer g.muNode.RUnlock()
	n, ok := g.nodes[k]
	if !ok {
		return 0, 0
	}
	return len(n.out), len(n.in)
}
