// File: clone.go
// Role: structural copies, used by the abstract state engine to snapshot a
// branch before exploring it and by the runner to build a shape query's
// search graph with hidden nodes removed.

package core

// Clone returns a deep structural copy: same node/edge keys, same
// attributes, same edge ordering, independent storage.
func (g *Graph[VN, VE]) Clone() *Graph[VN, VE] {
	g.muNode.RLock()
	g.muEdge.RLock()
	defer g.muNode.RUnlock()
	defer g.muEdge.RUnlock()

	out := &Graph[VN, VE]{
		cfg:         g.cfg,
		nextNodeKey: g.nextNodeKey,
		nextEdgeKey: g.nextEdgeKey,
		nodes:       make(map[NodeKey]*node[VN], len(g.nodes)),
		edges:       make(map[EdgeKey]*edge[VE], len(g.edges)),
	}
	for k, n := range g.nodes {
		out.nodes[k] = &node[VN]{
			key:  n.key,
			attr: n.attr,
			out:  append([]EdgeKey{}, n.out...),
			in:   append([]EdgeKey{}, n.in...),
		}
	}
	for k, e := range g.edges {
		out.edges[k] = &edge[VE]{
			key: e.key, from: e.from, to: e.to, attr: e.attr,
			outOrder: e.outOrder, inOrder: e.inOrder,
		}
	}
	return out
}
