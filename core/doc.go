// Package core provides the generic directed, labeled multigraph this
// module builds a graph-rewriting engine on top of: Graph[VN, VE], its
// mutation primitives, and FindMonomorphism, the subgraph-monomorphism
// search used both to bind an operation's parameter graph against a call
// site and to evaluate shape queries at runtime.
//
// Graph favors explicit, opaque identity over caller-chosen names: nodes
// are addressed by NodeKey, an int64 assigned on AddNode, never reused.
// Out-edges and in-edges each carry an independent order key so that
// Append/Prepend insertion never requires renumbering existing siblings -
// this is what lets builtins like a binary-tree descent depend on "first
// child added" / "second child added" rather than re-deriving order from
// node attributes.
//
// Package layout:
//
//	types.go      - Graph, NodeKey, EdgeKey, EdgeOrder, GraphOption
//	methods.go    - AddNode/RemoveNode/AddEdgeOrdered/RemoveEdge and friends
//	neighbors.go  - ordered OutEdges/InEdges/OutNeighbors/Degree
//	match.go      - FindMonomorphism
//	clone.go      - Clone
package core
