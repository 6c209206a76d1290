// File: methods.go
// Role: node/edge mutation and lookup primitives on Graph.
// Concurrency: muNode guards node creation/removal/attribute access;
// muEdge guards edge creation/removal and the ordering fields embedded in
// node records. Both locks are taken node-then-edge, never the reverse, to
// avoid lock-order inversion in future callers that hold both.

package core

import "fmt"

// AddNode creates a new node with the given attribute and returns its key.
// Complexity: O(1).
func (g *Graph[VN, VE]) AddNode(attr VN) NodeKey {
	g.muNode.Lock()
	defer g.muNode.Unlock()

	key := g.nextNodeKey
	g.nextNodeKey++
	g.nodes[key] = &node[VN]{key: key, attr: attr}
	return key
}

// RemoveNode deletes a node and every edge incident to it.
// Complexity: O(deg(node)).
func (g *Graph[VN, VE]) RemoveNode(k NodeKey) error {
	g.muNode.Lock()
	defer g.muNode.Unlock()
	g.muEdge.Lock()
	defer g.muEdge.Unlock()

	n, ok := g.nodes[k]
	if !ok {
		return fmt.Errorf("%w: node %d", ErrNodeNotFound, k)
	}

	for _, ek := range append(append([]EdgeKey{}, n.out...), n.in...) {
		g.removeEdgeLocked(ek)
	}
	delete(g.nodes, k)
	return nil
}

// NodeAttr returns the attribute currently stored for k.
func (g *Graph[VN, VE]) NodeAttr(k NodeKey) (VN, error) {
	g.muNode.RLock()
	defer g.muNode.RUnlock()

	n, ok := g.nodes[k]
	if !ok {
		var zero VN
		return zero, fmt.Errorf("%w: node %d", ErrNodeNotFound, k)
	}
	return n.attr, nil
}

// SetNodeAttr overwrites the attribute stored for k and returns the
// previous value. The second return is false if k did not exist, in which
// case no write occurred.
func (g *Graph[VN, VE]) SetNodeAttr(k NodeKey, attr VN) (VN, bool) {
	g.muNode.Lock()
	defer g.muNode.Unlock()

	n, ok := g.nodes[k]
	if !ok {
		var zero VN
		return zero, false
	}
	old := n.attr
	n.attr = attr
	return old, true
}

// HasNode reports whether k is a live node.
func (g *Graph[VN, VE]) HasNode(k NodeKey) bool {
	g.muNode.RLock()
	defer g.muNode.RUnlock()
	_, ok := g.nodes[k]
	return ok
}

// Nodes returns every live node key, ascending.
func (g *Graph[VN, VE]) Nodes() []NodeKey {
	g.muNode.RLock()
	defer g.muNode.RUnlock()

	out := make([]NodeKey, 0, len(g.nodes))
	for k := range g.nodes {
		out = append(out, k)
	}
	sortNodeKeys(out)
	return out
}

// AddEdgeOrdered creates a new directed edge from -> to with the given
// attribute, inserting it among from's out-edges and to's in-edges per the
// requested insertion. Returns ErrNodeNotFound if either endpoint is
// missing, ErrLoopNotAllowed for a self-loop when loops are disabled, and
// ErrMultiEdgeNotAllowed for a parallel edge when multi-edges are disabled.
func (g *Graph[VN, VE]) AddEdgeOrdered(from, to NodeKey, attr VE, outIns, inIns EdgeInsertion) (EdgeKey, error) {
	g.muNode.RLock()
	src, srcOK := g.nodes[from]
	dst, dstOK := g.nodes[to]
	g.muNode.RUnlock()
	if !srcOK {
		return 0, fmt.Errorf("%w: node %d", ErrNodeNotFound, from)
	}
	if !dstOK {
		return 0, fmt.Errorf("%w: node %d", ErrNodeNotFound, to)
	}

	g.muEdge.Lock()
	defer g.muEdge.Unlock()

	if from == to && !g.cfg.allowLoops {
		return 0, fmt.Errorf("%w: node %d", ErrLoopNotAllowed, from)
	}
	if !g.cfg.allowMulti {
		for _, ek := range src.out {
			if g.edges[ek].to == to {
				return 0, fmt.Errorf("%w: %d->%d", ErrMultiEdgeNotAllowed, from, to)
			}
		}
	}

	key := g.nextEdgeKey
	g.nextEdgeKey++
	e := &edge[VE]{
		key:      key,
		from:     from,
		to:       to,
		attr:     attr,
		outOrder: g.nextOrder(g.outOrders(src), outIns),
		inOrder:  g.nextOrder(g.inOrders(dst), inIns),
	}
	g.edges[key] = e
	src.out = append(src.out, key)
	dst.in = append(dst.in, key)
	return key, nil
}

// AddEdge is AddEdgeOrdered with InsertAppend on both ends, the common case.
func (g *Graph[VN, VE]) AddEdge(from, to NodeKey, attr VE) (EdgeKey, error) {
	return g.AddEdgeOrdered(from, to, attr, InsertAppend, InsertAppend)
}

// nextOrder computes the order key for a new entry on one side (out or in)
// of a node, given the order keys already assigned to that side. Append
// takes max+1, Prepend takes min-1, so existing siblings never need
// renumbering - ported from the original engine's source_out_order /
// target_in_order scheme.
func (g *Graph[VN, VE]) nextOrder(existingOrders []EdgeOrder, ins EdgeInsertion) EdgeOrder {
	if len(existingOrders) == 0 {
		return 0
	}
	lo, hi := existingOrders[0], existingOrders[0]
	for _, o := range existingOrders[1:] {
		if o < lo {
			lo = o
		}
		if o > hi {
			hi = o
		}
	}
	if ins == InsertAppend {
		return hi + 1
	}
	return lo - 1
}

func (g *Graph[VN, VE]) outOrders(n *node[VN]) []EdgeOrder {
	out := make([]EdgeOrder, len(n.out))
	for i, ek := range n.out {
		out[i] = g.edges[ek].outOrder
	}
	return out
}

func (g *Graph[VN, VE]) inOrders(n *node[VN]) []EdgeOrder {
	out := make([]EdgeOrder, len(n.in))
	for i, ek := range n.in {
		out[i] = g.edges[ek].inOrder
	}
	return out
}

// RemoveEdge deletes an edge by key.
func (g *Graph[VN, VE]) RemoveEdge(k EdgeKey) error {
	g.muEdge.Lock()
	defer g.muEdge.Unlock()
	if _, ok := g.edges[k]; !ok {
		return fmt.Errorf("%w: edge %d", ErrEdgeNotFound, k)
	}
	g.removeEdgeLocked(k)
	return nil
}

// removeEdgeLocked assumes muEdge (and, if touching node.out/in, muNode) is
// already held by the caller.
func (g *Graph[VN, VE]) removeEdgeLocked(k EdgeKey) {
	e, ok := g.edges[k]
	if !ok {
		return
	}
	if src, ok := g.nodes[e.from]; ok {
		src.out = removeKey(src.out, k)
	}
	if dst, ok := g.nodes[e.to]; ok {
		dst.in = removeKey(dst.in, k)
	}
	delete(g.edges, k)
}

// EdgeEndpoints returns the (from, to) pair for an edge key.
func (g *Graph[VN, VE]) EdgeEndpoints(k EdgeKey) (NodeKey, NodeKey, error) {
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	e, ok := g.edges[k]
	if !ok {
		return 0, 0, fmt.Errorf("%w: edge %d", ErrEdgeNotFound, k)
	}
	return e.from, e.to, nil
}

// EdgeAttr returns the attribute stored on an edge.
func (g *Graph[VN, VE]) EdgeAttr(k EdgeKey) (VE, error) {
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	e, ok := g.edges[k]
	if !ok {
		var zero VE
		return zero, fmt.Errorf("%w: edge %d", ErrEdgeNotFound, k)
	}
	return e.attr, nil
}

// SetEdgeAttr overwrites the attribute on an edge and returns the previous
// value; the second return is false if the edge did not exist.
func (g *Graph[VN, VE]) SetEdgeAttr(k EdgeKey, attr VE) (VE, bool) {
	g.muEdge.Lock()
	defer g.muEdge.Unlock()
	e, ok := g.edges[k]
	if !ok {
		var zero VE
		return zero, false
	}
	old := e.attr
	e.attr = attr
	return old, true
}

// EdgeBetween returns the first edge key found from -> to, if any.
func (g *Graph[VN, VE]) EdgeBetween(from, to NodeKey) (EdgeKey, bool) {
	g.muNode.RLock()
	src, ok := g.nodes[from]
	g.muNode.RUnlock()
	if !ok {
		return 0, false
	}
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	for _, ek := range src.out {
		if g.edges[ek].to == to {
			return ek, true
		}
	}
	return 0, false
}

func removeKey(s []EdgeKey, k EdgeKey) []EdgeKey {
	for i, v := range s {
		if v == k {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func sortNodeKeys(s []NodeKey) {
	// insertion sort: node counts in this engine's scenarios are small
	// (single-digit to low hundreds), and this keeps core dependency-free.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
