// File: bfslayer.go
// Role: BFSLayer, adapted from bfs.BFS's walker-struct traversal (bfs/bfs.go)
// generalized from string vertex IDs to core.NodeKey and from an
// unweighted-only core.Graph to this module's generic one. Unlike bfs.BFS,
// BFSLayer never mutates its graph - its whole effect is the visit order it
// tags onto the concrete MarkerSet, since this engine's builtins have no
// channel for returning a plain value the way a Go function would.

package builtins

import (
	"fmt"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/substview"
	"github.com/lvlath-labs/opgraph/valuetype"
)

const bfsLayerRoot marker.SubstMarker = 0

// BFSLayer walks the live graph breadth-first from an explicit root node,
// tagging every visited node on the MarkerSet with its visit order and BFS
// layer. The walk follows out-edges only: a node reachable from the root
// solely against an edge's direction is not visited.
type BFSLayer struct {
	param *paramgraph.Parameter[valuetype.Type, valuetype.Label]
}

// NewBFSLayer builds the BFSLayer builtin, ready to register under an
// opctx.Context.
func NewBFSLayer() *BFSLayer {
	p := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	_ = p.AddExplicitNode(bfsLayerRoot, valuetype.Object)
	return &BFSLayer{param: p}
}

func (b *BFSLayer) Name() string { return "bfs_layer" }

func (b *BFSLayer) Parameter() *paramgraph.Parameter[valuetype.Type, valuetype.Label] {
	return b.param
}

// ApplyAbstract reports no guaranteed structural effect: BFSLayer never
// adds, removes, or changes a node or edge, only observes them.
func (b *BFSLayer) ApplyAbstract(view *substview.View[valuetype.Type, valuetype.Label]) (*substview.AbstractOutput[valuetype.Type, valuetype.Label], error) {
	return &substview.AbstractOutput[valuetype.Type, valuetype.Label]{}, nil
}

func (b *BFSLayer) Apply(view *substview.View[valuetype.Node, valuetype.Label], data *opctx.ConcreteData) (*substview.ConcreteOutput, error) {
	root, ok := view.Resolve(marker.Parameter(bfsLayerRoot))
	if !ok {
		return nil, fmt.Errorf("builtins.BFSLayer: root not bound")
	}

	g := view.Graph()
	visited := map[core.NodeKey]bool{root: true}
	depth := map[core.NodeKey]int{root: 0}
	queue := []core.NodeKey{root}
	order := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		data.MarkerSet.Tag(cur, fmt.Sprintf("bfs:order:%d", order))
		data.MarkerSet.Tag(cur, fmt.Sprintf("bfs:layer:%d", depth[cur]))
		order++

		for _, ek := range g.OutEdges(cur) {
			_, to, err := g.EdgeEndpoints(ek)
			if err != nil {
				continue
			}
			if !visited[to] {
				visited[to] = true
				depth[to] = depth[cur] + 1
				queue = append(queue, to)
			}
		}
	}
	return &substview.ConcreteOutput{}, nil
}
