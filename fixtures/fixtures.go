// Package fixtures builds the small concrete graphs the scenarios of
// spec §8 run against, adapted from the teacher's builder.Constructor
// pattern (builder/impl_path.go, impl_cycle.go): each fixture is a plain
// function returning a ready *core.Graph plus the NodeKeys a caller needs
// to name explicit operation arguments, rather than a closure deferred
// until BuildGraph runs - these fixtures have no shared config to thread
// through, so the extra indirection buys nothing here.
package fixtures

import (
	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/valuetype"
)

// Diamond builds the four-node diamond of scenario 1: 0 -> {1, 2},
// {1, 2} -> 3, with unlabeled edges. Node attributes carry the node's own
// position in the diamond (0..3) so a BFS layer assertion can read values
// straight off the result instead of re-deriving them from NodeKey.
type Diamond struct {
	Graph          *core.Graph[valuetype.Node, valuetype.Label]
	Root, A, B, Sink core.NodeKey
}

func NewDiamond() *Diamond {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	root := g.AddNode(valuetype.Node{Value: 0})
	a := g.AddNode(valuetype.Node{Value: 1})
	b := g.AddNode(valuetype.Node{Value: 2})
	sink := g.AddNode(valuetype.Node{Value: 3})
	mustAddEdge(g, root, a, valuetype.None)
	mustAddEdge(g, root, b, valuetype.None)
	mustAddEdge(g, a, sink, valuetype.None)
	mustAddEdge(g, b, sink, valuetype.None)
	return &Diamond{Graph: g, Root: root, A: a, B: b, Sink: sink}
}

// MaxHeap builds the max-heap of scenario 2: a sentinel with a single
// Heap edge to a root valued 5, whose own Heap children are 4 and 3 (in
// that edge order), and 4's sole Heap child is 1. This exact shape is
// the one whose repeated HeapExtractMax calls yield 5, 4, 3, 1 in order
// and leave the sentinel edge-less, per the scenario's literal claim.
type MaxHeap struct {
	Graph    *core.Graph[valuetype.Node, valuetype.Label]
	Sentinel core.NodeKey
}

func NewMaxHeap() *MaxHeap {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	sentinel := g.AddNode(valuetype.Node{Value: 0})
	five := g.AddNode(valuetype.Node{Value: 5})
	four := g.AddNode(valuetype.Node{Value: 4})
	three := g.AddNode(valuetype.Node{Value: 3})
	one := g.AddNode(valuetype.Node{Value: 1})
	mustAddEdge(g, sentinel, five, valuetype.Heap)
	mustAddEdge(g, five, four, valuetype.Heap)
	mustAddEdge(g, five, three, valuetype.Heap)
	mustAddEdge(g, four, one, valuetype.Heap)
	return &MaxHeap{Graph: g, Sentinel: sentinel}
}

// LinkedList builds the list of scenario 3: head and tail sentinels
// bracket the four value-bearing nodes 5 -> 3 -> 4 -> 1, all chained by
// Next edges. The sentinels give ListSwap a prev/next neighbor to
// rewrite at either end of the list, the way the teacher's doubly-linked
// structures always carry head/tail guards rather than special-casing
// the boundary.
type LinkedList struct {
	Graph            *core.Graph[valuetype.Node, valuetype.Label]
	Head, Tail       core.NodeKey
	V5, V3, V4, V1   core.NodeKey
}

func NewLinkedList() *LinkedList {
	g := core.NewGraph[valuetype.Node, valuetype.Label]()
	head := g.AddNode(valuetype.Node{Value: -1})
	v5 := g.AddNode(valuetype.Node{Value: 5})
	v3 := g.AddNode(valuetype.Node{Value: 3})
	v4 := g.AddNode(valuetype.Node{Value: 4})
	v1 := g.AddNode(valuetype.Node{Value: 1})
	tail := g.AddNode(valuetype.Node{Value: -1})
	mustAddEdge(g, head, v5, valuetype.Next)
	mustAddEdge(g, v5, v3, valuetype.Next)
	mustAddEdge(g, v3, v4, valuetype.Next)
	mustAddEdge(g, v4, v1, valuetype.Next)
	mustAddEdge(g, v1, tail, valuetype.Next)
	return &LinkedList{Graph: g, Head: head, Tail: tail, V5: v5, V3: v3, V4: v4, V1: v1}
}

// BST builds the starting tree of scenario 4: root valued 4 with a
// single Left edge to a node valued 2. Insertion of 3 and 5 is the
// scenario's own operation under test, not part of the fixture.
type BST struct {
	Graph      *core.Graph[valuetype.Node, valuetype.Label]
	Root, Left core.NodeKey
}

func NewBST() *BST {
	g := core.NewGraph[valuetype.Node, valuetype.Label](core.WithLoops())
	root := g.AddNode(valuetype.Node{Value: 4})
	left := g.AddNode(valuetype.Node{Value: 2})
	mustAddEdge(g, root, left, valuetype.Left)
	return &BST{Graph: g, Root: root, Left: left}
}

func mustAddEdge(g *core.Graph[valuetype.Node, valuetype.Label], from, to core.NodeKey, attr valuetype.Label) {
	if _, err := g.AddEdge(from, to, attr); err != nil {
		panic(err)
	}
}
