// File: heap.go
// Role: HeapSiftDown and HeapExtractMax, generalizing dijkstra's
// container/heap-based priority queue (dijkstra/dijkstra.go's nodePQ) from
// an array-indexed binary heap into a graph-native, edge-linked max-heap:
// a sentinel node's single Heap-labeled out-edge names the current root,
// and each node's own Heap-labeled out-edges name its children (a pairing
// heap, not a binary one, since a graph gives every node a variable
// number of children for free).

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

const heapSiftNode marker.SubstMarker = 0

// HeapSiftDown repairs a single parent/child value inversion: if node's
// value is smaller than one of its Heap-children's, it swaps the two
// nodes' values so the larger value sits above (a one-level repair step,
// left for a caller's recursive descent to chain into a full sift).
type HeapSiftDown struct {
	param *paramgraph.Parameter[valuetype.Type, valuetype.Label]
}

func NewHeapSiftDown() *HeapSiftDown {
	p := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	_ = p.AddExplicitNode(heapSiftNode, valuetype.Integer)
	return &HeapSiftDown{param: p}
}

func (h *HeapSiftDown) Name() string { return "heap_sift_down" }

func (h *HeapSiftDown) Parameter() *paramgraph.Parameter[valuetype.Type, valuetype.Label] {
	return h.param
}

func (h *HeapSiftDown) ApplyAbstract(view *substview.View[valuetype.Type, valuetype.Label]) (*substview.AbstractOutput[valuetype.Type, valuetype.Label], error) {
	return &substview.AbstractOutput[valuetype.Type, valuetype.Label]{}, nil
}

func (h *HeapSiftDown) Apply(view *substview.View[valuetype.Node, valuetype.Label], data *opctx.ConcreteData) (*substview.ConcreteOutput, error) {
	node, ok := view.Resolve(marker.Parameter(heapSiftNode))
	if !ok {
		return nil, fmt.Errorf("builtins.HeapSiftDown: node not bound")
	}
	g := view.Graph()

	nodeVal, err := g.NodeAttr(node)
	if err != nil {
		return nil, err
	}

	var biggestChild core.NodeKey
	found := false
	biggest := nodeVal.Value
	for _, ek := range g.OutEdges(node) {
		attr, err := g.EdgeAttr(ek)
		if err != nil || attr != valuetype.Heap {
			continue
		}
		_, child, err := g.EdgeEndpoints(ek)
		if err != nil {
			continue
		}
		childVal, err := g.NodeAttr(child)
		if err != nil {
			continue
		}
		if childVal.Value > biggest {
			biggest = childVal.Value
			biggestChild = child
			found = true
		}
	}
	if found {
		childVal, _ := g.NodeAttr(biggestChild)
		if _, ok := g.SetNodeAttr(node, childVal); !ok {
			return nil, fmt.Errorf("builtins.HeapSiftDown: node vanished mid-sift")
		}
		if _, ok := g.SetNodeAttr(biggestChild, nodeVal); !ok {
			return nil, fmt.Errorf("builtins.HeapSiftDown: child vanished mid-sift")
		}
	}
	return &substview.ConcreteOutput{}, nil
}

const heapExtractSentinel marker.SubstMarker = 0

// HeapExtractMax removes the current maximum from a pairing heap reached
// through sentinel's single Heap-labeled out-edge, tags the removed value
// onto sentinel's MarkerSet entry, and re-attaches sentinel to whatever
// node the two-pass pairing meld of the old root's children produces as
// the new maximum (or leaves sentinel childless if the heap is now empty).
type HeapExtractMax struct {
	param *paramgraph.Parameter[valuetype.Type, valuetype.Label]
}

func NewHeapExtractMax() *HeapExtractMax {
	p := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	_ = p.AddExplicitNode(heapExtractSentinel, valuetype.Object)
	return &HeapExtractMax{param: p}
}

func (h *HeapExtractMax) Name() string { return "heap_extract_max" }

func (h *HeapExtractMax) Parameter() *paramgraph.Parameter[valuetype.Type, valuetype.Label] {
	return h.param
}

// ApplyAbstract is empty: the new root (if any) replaces an already-
// abstract Integer node with another already-abstract Integer node, and
// this domain's lattice cannot express "heap became empty" as a type
// change, so there is nothing for the static builder to learn beyond what
// FindMonomorphism already pinned.
func (h *HeapExtractMax) ApplyAbstract(view *substview.View[valuetype.Type, valuetype.Label]) (*substview.AbstractOutput[valuetype.Type, valuetype.Label], error) {
	return &substview.AbstractOutput[valuetype.Type, valuetype.Label]{}, nil
}

func (h *HeapExtractMax) Apply(view *substview.View[valuetype.Node, valuetype.Label], data *opctx.ConcreteData) (*substview.ConcreteOutput, error) {
	sentinel, ok := view.Resolve(marker.Parameter(heapExtractSentinel))
	if !ok {
		return nil, fmt.Errorf("builtins.HeapExtractMax: sentinel not bound")
	}
	g := view.Graph()

	root, rootEdge, ok := heapChild(g, sentinel)
	if !ok {
		return nil, fmt.Errorf("builtins.HeapExtractMax: heap is empty")
	}
	rootVal, err := g.NodeAttr(root)
	if err != nil {
		return nil, err
	}
	data.MarkerSet.Tag(sentinel, fmt.Sprintf("extracted:%d", rootVal.Value))

	if err := g.RemoveEdge(rootEdge); err != nil {
		return nil, err
	}

	var children []core.NodeKey
	var childEdges []core.EdgeKey
	for _, ek := range g.OutEdges(root) {
		attr, err := g.EdgeAttr(ek)
		if err != nil || attr != valuetype.Heap {
			continue
		}
		_, c, err := g.EdgeEndpoints(ek)
		if err != nil {
			continue
		}
		children = append(children, c)
		childEdges = append(childEdges, ek)
	}
	for _, ek := range childEdges {
		if err := g.RemoveEdge(ek); err != nil {
			return nil, err
		}
	}
	if err := g.RemoveNode(root); err != nil {
		return nil, err
	}

	newRoot, hasNewRoot, err := pairwiseMeld(g, children)
	if err != nil {
		return nil, err
	}
	if hasNewRoot {
		if _, err := g.AddEdge(sentinel, newRoot, valuetype.Heap); err != nil {
			return nil, err
		}
	}
	return &substview.ConcreteOutput{}, nil
}

// heapChild returns the single Heap-labeled child of parent, if any.
func heapChild(g *core.Graph[valuetype.Node, valuetype.Label], parent core.NodeKey) (core.NodeKey, core.EdgeKey, bool) {
	for _, ek := range g.OutEdges(parent) {
		attr, err := g.EdgeAttr(ek)
		if err != nil || attr != valuetype.Heap {
			continue
		}
		_, child, err := g.EdgeEndpoints(ek)
		if err != nil {
			continue
		}
		return child, ek, true
	}
	return 0, 0, false
}

// meld attaches the smaller-valued root as a new child of the larger-
// valued one, leaving the loser's own existing children untouched - the
// defining simplification of a pairing heap's meld over a binary heap's
// full re-sift.
func meld(g *core.Graph[valuetype.Node, valuetype.Label], a, b core.NodeKey) (core.NodeKey, error) {
	av, err := g.NodeAttr(a)
	if err != nil {
		return 0, err
	}
	bv, err := g.NodeAttr(b)
	if err != nil {
		return 0, err
	}
	winner, loser := a, b
	if bv.Value > av.Value {
		winner, loser = b, a
	}
	if _, err := g.AddEdge(winner, loser, valuetype.Heap); err != nil {
		return 0, err
	}
	return winner, nil
}

// pairwiseMeld runs the standard two-pass pairing-heap meld over a root's
// former children: pair them up left to right, meld each pair, then meld
// the resulting list right to left into a single tree.
func pairwiseMeld(g *core.Graph[valuetype.Node, valuetype.Label], children []core.NodeKey) (core.NodeKey, bool, error) {
	if len(children) == 0 {
		return 0, false, nil
	}
	if len(children) == 1 {
		return children[0], true, nil
	}

	var firstPass []core.NodeKey
	i := 0
	for i+1 < len(children) {
		m, err := meld(g, children[i], children[i+1])
		if err != nil {
			return 0, false, err
		}
		firstPass = append(firstPass, m)
		i += 2
	}
	if i < len(children) {
		firstPass = append(firstPass, children[i])
	}

	result := firstPass[len(firstPass)-1]
	for j := len(firstPass) - 2; j >= 0; j-- {
		m, err := meld(g, result, firstPass[j])
		if err != nil {
			return 0, false, err
		}
		result = m
	}
	return result, true, nil
}
