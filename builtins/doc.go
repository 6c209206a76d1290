// Package builtins is a concrete built-in operation vocabulary (spec
// component C1's vocabulary half) adapted from the teacher's bfs, dfs,
// dijkstra and prim_kruskal packages. The engine itself (paramgraph,
// substview, absstate, opbuilder, opctx, runner) takes no position on what
// operations exist; spec.md leaves the vocabulary to "the client". This
// package is that client, targeting the valuetype domain (integer node
// payloads, next/left/right/heap edge labels) so the five scenarios of
// spec §8 have something concrete to run.
//
// A structural convention used throughout this package: most builtins
// touch nodes their own Parameter never declares (a heap node's children,
// a BST node's not-yet-known child), since the branching factor of those
// structures is not fixed ahead of time. Where that happens, Apply/
// ApplyAbstract read and write through View.Graph() directly by raw
// core.NodeKey rather than through the AID-addressed helpers (AddNode,
// SetNodeValue, ...), and construct their ConcreteOutput/AbstractOutput by
// hand instead of via View.Output/View.ConcreteResult. Where a builtin's
// entire effect is confined to its own declared parameter nodes (ListSwap),
// it uses the AID-addressed helpers the same as a user-defined operation's
// body would. BSTDescend mixes the two: its Apply works on the raw graph
// and builds its ConcreteOutput by hand, while its ApplyAbstract uses the
// AID-addressed helpers and View.Output.
package builtins
