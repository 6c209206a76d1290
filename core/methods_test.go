package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddEdgeOrdered_AppendPrepend(t *testing.T) {
	g := NewGraph[string, string](WithMultiEdges())
	root := g.AddNode("root")
	a := g.AddNode("a")
	b := g.AddNode("b")
	c := g.AddNode("c")

	_, err := g.AddEdgeOrdered(root, a, "mid", InsertAppend, InsertAppend)
	require.NoError(t, err)
	_, err = g.AddEdgeOrdered(root, b, "last", InsertAppend, InsertAppend)
	require.NoError(t, err)
	_, err = g.AddEdgeOrdered(root, c, "first", InsertPrepend, InsertAppend)
	require.NoError(t, err)

	got := g.OutNeighbors(root)
	require.Equal(t, []NodeKey{c, a, b}, got)
}

func TestAddNode_RemoveNode_RemovesIncidentEdges(t *testing.T) {
	g := NewGraph[int, int]()
	x := g.AddNode(1)
	y := g.AddNode(2)
	_, err := g.AddEdge(x, y, 9)
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(x))
	require.False(t, g.HasNode(x))
	require.Equal(t, 0, g.EdgeCount())
}

func TestAddEdge_NoLoopByDefault(t *testing.T) {
	g := NewGraph[int, int]()
	x := g.AddNode(1)
	_, err := g.AddEdge(x, x, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLoopNotAllowed))
}

func TestAddEdge_NoMultiByDefault(t *testing.T) {
	g := NewGraph[int, int]()
	x := g.AddNode(1)
	y := g.AddNode(2)
	_, err := g.AddEdge(x, y, 0)
	require.NoError(t, err)
	_, err = g.AddEdge(x, y, 0)
	require.True(t, errors.Is(err, ErrMultiEdgeNotAllowed))
}

func TestRemoveNode_NotFound(t *testing.T) {
	g := NewGraph[int, int]()
	require.True(t, errors.Is(g.RemoveNode(42), ErrNodeNotFound))
}

func TestClone_IsIndependent(t *testing.T) {
	g := NewGraph[string, string]()
	x := g.AddNode("x")
	y := g.AddNode("y")
	_, err := g.AddEdge(x, y, "e")
	require.NoError(t, err)

	clone := g.Clone()
	clone.SetNodeAttr(x, "changed")
	orig, _ := g.NodeAttr(x)
	require.Equal(t, "x", orig)
	cloned, _ := clone.NodeAttr(x)
	require.Equal(t, "changed", cloned)
}

func TestFindMonomorphism_SimpleChain(t *testing.T) {
	pattern := NewGraph[string, string]()
	p1 := pattern.AddNode("object")
	p2 := pattern.AddNode("object")
	_, err := pattern.AddEdge(p1, p2, "edge")
	require.NoError(t, err)

	target := NewGraph[string, string]()
	t1 := target.AddNode("int")
	t2 := target.AddNode("int")
	t3 := target.AddNode("int")
	_, err = target.AddEdge(t1, t2, "edge")
	require.NoError(t, err)
	_, err = target.AddEdge(t2, t3, "edge")
	require.NoError(t, err)

	alwaysTrue := func(a, b string) bool { return true }
	mapping, ok := FindMonomorphism(pattern, target, nil, alwaysTrue, alwaysTrue)
	require.True(t, ok)
	require.Contains(t, mapping, p1)
	require.Contains(t, mapping, p2)
	require.NotEqual(t, mapping[p1], mapping[p2])
}

func TestFindMonomorphism_PinnedMismatchFails(t *testing.T) {
	pattern := NewGraph[string, string]()
	p1 := pattern.AddNode("object")

	target := NewGraph[string, string]()
	t1 := target.AddNode("int")
	t2 := target.AddNode("int")

	nm := func(a, b string) bool { return a == b }
	em := func(a, b string) bool { return true }
	_, ok := FindMonomorphism(pattern, target, map[NodeKey]NodeKey{p1: t2}, nm, em)
	require.False(t, ok)
	require.NotNil(t, t1)
}

func TestFindMonomorphism_NoMatch(t *testing.T) {
	pattern := NewGraph[string, string]()
	p1 := pattern.AddNode("object")
	p2 := pattern.AddNode("object")
	_, err := pattern.AddEdge(p1, p2, "edge")
	require.NoError(t, err)

	target := NewGraph[string, string]()
	target.AddNode("int")

	alwaysTrue := func(a, b string) bool { return true }
	_, ok := FindMonomorphism(pattern, target, nil, alwaysTrue, alwaysTrue)
	require.False(t, ok)
}
