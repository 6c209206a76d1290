// Package opgraph is a statically-typed, statically-verified
// graph-rewriting engine: operations are declared over a parameter graph
// (a pattern of explicit inputs, context nodes, and the edges between
// them), type-checked against each other at declaration time, and run by
// binding a call site's concrete nodes against that pattern and replaying
// the operation's recorded body against a mutable view of the host graph.
//
// Under the hood the engine is organized as a pipeline of subpackages:
//
//	core/       — the generic directed, labeled multigraph and its
//	              subgraph-monomorphism search (FindMonomorphism)
//	marker/     — stable identities for parameter slots, call sites, and
//	              dynamically-produced outputs (SubstMarker, AID, Interner)
//	paramgraph/ — an operation's declared parameter graph, its signature,
//	              and the subtyping rule used to check recursive/mutual
//	              calls before they ever run
//	semantics/  — the per-domain plumbing (match, join, abstraction) an
//	              operation's type checking and execution are built on
//	valuetype/  — a concrete two-level Object/Integer node-type domain and
//	              a five-label edge domain used by builtins and fixtures
//	substview/  — an AID-addressed mutable window over a host graph,
//	              recording every change an operation body makes
//	absstate/   — abstract graph state used while type-checking a body,
//	              plus branch-merge for if/else type checking
//	opctx/      — the operation registry (builtin and user-defined),
//	              with CBOR snapshot/load for persisting custom operations
//	opbuilder/  — the fluent API used to author a user-defined operation's
//	              body against its declared parameter graph
//	program/    — the recorded instruction stream a built operation replays
//	runner/     — binds a concrete call site to an operation and replays
//	              its body, producing the output and a mutation trace
//	builtins/   — a handful of native Go operations (heap maintenance,
//	              linked-list rewiring, BFS layering, BST descent) that
//	              plug into the same registry as user-defined operations
//
// This repository contains no examples package; the fixtures package builds
// the concrete graphs (a BFS diamond, a max-heap over a sentinel, an
// unsorted linked list, a BST) that the builtins run against.
package opgraph
