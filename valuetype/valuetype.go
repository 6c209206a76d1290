// Package valuetype is the concrete domain vocabulary the scenarios of this
// module's builtins/fixtures/examples packages are written against: integer
// node payloads and a small labeled-edge set (next/heap/left/right), plus the
// abstract type lattice semantics.Plugin is parameterized over (Object over
// Integer, and edge labels matched by exact label or wildcarded by "").
//
// Any semantics.Plugin[NC, EC, NA, EA] would do for this engine; this one
// exists so builtins/fixtures/examples have a single concrete instantiation
// to target, the way the teacher's algorithm packages all target the same
// core.Graph rather than being generic over a node payload themselves.
package valuetype

import "github.com/lvlath-labs/opgraph/semantics"

// Node is the concrete value carried by every node in the scenarios this
// module ships: a single integer payload. A graph-rewriting engine client
// could carry a richer struct; integers are enough to exercise BFS
// ordering, heap ordering, list values and BST ordering identically.
type Node struct {
	Value int64
}

// Type is the abstract node type this domain's lattice offers: every
// concrete Node projects to Integer, and Object is the supertype a
// parameter can declare when it only needs "some node", not specifically
// an Integer (used by the refinement shape-query scenario).
type Type int

const (
	// Object is the top of this lattice: matches any Node.
	Object Type = iota
	// Integer is every concrete Node's own type.
	Integer
)

func (t Type) String() string {
	switch t {
	case Object:
		return "Object"
	case Integer:
		return "Integer"
	default:
		return "Type(?)"
	}
}

// Label is both the concrete and abstract edge value: a small closed set of
// role names this domain's structures use to mean something beyond plain
// adjacency (list successor, heap child, BST child). The empty Label
// matches/joins as a wildcard, the way an untyped parameter edge does.
type Label string

const (
	// None is a plain, unlabeled edge (used by the BFS diamond fixture).
	None Label = ""
	// Next links one linked-list node to its successor.
	Next Label = "next"
	// Heap links a heap sentinel/parent to a child, in sift order.
	Heap Label = "heap"
	// Left links a BST node to its left child.
	Left Label = "left"
	// Right links a BST node to its right child.
	Right Label = "right"
)

// MatchNode reports whether a concrete/matched node of type have satisfies
// a pattern declaring want: Object accepts anything, Integer only matches
// Integer exactly (this lattice has no subtype of Integer).
func MatchNode(have, want Type) bool {
	return want == Object || have == want
}

// JoinNode returns the most precise type describing either a or b. This
// lattice is a two-level tree rooted at Object, so the join always exists:
// equal types join to themselves, anything else joins to Object. (A
// domain with disjoint leaf types under no common ancestor, used to
// exercise the drop-on-join-failure path, lives in absstate's own tests.)
func JoinNode(a, b Type) (Type, bool) {
	if a == b {
		return a, true
	}
	return Object, true
}

// ToAbstractNode projects every concrete Node to Integer - this domain has
// no node shape that is abstractly Object-but-not-Integer at runtime;
// Object only appears as a parameter's declared (looser) expectation.
func ToAbstractNode(Node) Type { return Integer }

// MatchEdge reports whether a concrete/matched edge labeled have satisfies
// a pattern wanting want: the empty Label is a wildcard.
func MatchEdge(have, want Label) bool {
	return want == None || have == want
}

// JoinEdge returns the most precise label describing either a or b: equal
// labels join to themselves, anything else joins to the wildcard.
func JoinEdge(a, b Label) (Label, bool) {
	if a == b {
		return a, true
	}
	return None, true
}

// ToAbstractEdge is the identity projection - labels are already the
// abstract edge type in this domain.
func ToAbstractEdge(l Label) Label { return l }

// Plugin builds the semantics.Plugin wiring the six relations above,
// ready to hand to paramgraph/substview/absstate/opbuilder/runner.
func Plugin() *semantics.Plugin[Node, Label, Type, Label] {
	return semantics.New(MatchNode, MatchEdge, JoinNode, JoinEdge, ToAbstractNode, ToAbstractEdge)
}
