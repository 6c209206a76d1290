// Package semantics defines the client-supplied type system this engine is
// generic over: a concrete node/edge value type (NC, EC) actually carried
// by nodes and edges at runtime, an abstract node/edge value type (NA, EA)
// the builder reasons about statically, and the functions relating them -
// matching (is this abstract value acceptable where that one is expected),
// joining (what is the most precise abstract value describing either of two
// possible values), and projection (what abstract value describes this
// concrete value).
//
// The original engine this is adapted from expresses this as a single trait
// with associated types (Semantics::NodeAbstract, Semantics::NodeMatcher,
// ...). Go has no associated types, so Plugin bundles the same six
// relations as a plain value, built with functional options the way this
// module's other packages build their configuration - a client registers a
// Plugin once and passes it down through paramgraph, substview, absstate,
// opbuilder, and runner.
package semantics

// NodeMatcher reports whether `have` satisfies the expectation `want`
// (e.g. `have` is `want` or a subtype of it). Matching is not required to
// be symmetric.
type NodeMatcher[NA any] func(have, want NA) bool

// EdgeMatcher is NodeMatcher's edge-attribute counterpart.
type EdgeMatcher[EA any] func(have, want EA) bool

// NodeJoin computes the most precise abstract value describing either `a`
// or `b`, or reports false if no such value exists in the client's lattice
// (e.g. joining two unrelated leaf types). A join failure is not an error:
// callers drop the node from consideration rather than fail the build.
type NodeJoin[NA any] func(a, b NA) (joined NA, ok bool)

// EdgeJoin is NodeJoin's edge-attribute counterpart.
type EdgeJoin[EA any] func(a, b EA) (joined EA, ok bool)

// Plugin bundles one client type system's full set of relations. NC/EC are
// the concrete (runtime) node/edge value types; NA/EA are the abstract
// (build-time) node/edge value types.
type Plugin[NC, EC, NA, EA any] struct {
	MatchNode NodeMatcher[NA]
	MatchEdge EdgeMatcher[EA]
	JoinNode  NodeJoin[NA]
	JoinEdge  EdgeJoin[EA]

	// ToAbstractNode/ToAbstractEdge project a concrete runtime value down to
	// the abstract value describing it, used by the runner each time it
	// needs to recompute an up-to-date abstract view of the live graph
	// (e.g. before resolving a call's substitution).
	ToAbstractNode func(NC) NA
	ToAbstractEdge func(EC) EA
}

// Option configures a Plugin via functional options, mirroring this
// module's builder/runner configuration style.
type Option[NC, EC, NA, EA any] func(*Plugin[NC, EC, NA, EA])

// New builds a Plugin from the six required relations and any options.
func New[NC, EC, NA, EA any](
	matchNode NodeMatcher[NA],
	matchEdge EdgeMatcher[EA],
	joinNode NodeJoin[NA],
	joinEdge EdgeJoin[EA],
	toAbstractNode func(NC) NA,
	toAbstractEdge func(EC) EA,
	opts ...Option[NC, EC, NA, EA],
) *Plugin[NC, EC, NA, EA] {
	p := &Plugin[NC, EC, NA, EA]{
		MatchNode:      matchNode,
		MatchEdge:      matchEdge,
		JoinNode:       joinNode,
		JoinEdge:       joinEdge,
		ToAbstractNode: toAbstractNode,
		ToAbstractEdge: toAbstractEdge,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
