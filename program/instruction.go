// Package program defines the instruction stream an opbuilder.Builder
// emits and a runner.Runner interprets: the durable, data-only
// representation of a user-defined operation's body, independent of both
// how it was constructed and how it is executed.
//
// Keeping this as plain data (no methods that touch a live graph) is what
// lets opctx hold operations without depending on opbuilder, and lets
// runner interpret them without depending on opbuilder either - both of
// them, and the CBOR snapshot codec, depend only on this package.
package program

import "github.com/lvlath-labs/opgraph/marker"

// InstrKind discriminates Instruction's variants. Go has no sum types, so
// Instruction carries every variant's fields and Kind says which are live -
// the same flattened-variant idiom this engine uses for AID.
type InstrKind int

const (
	InstrAddNode InstrKind = iota
	InstrAddEdge
	InstrDeleteNode
	InstrDeleteEdge
	InstrSetNodeValue
	InstrSetEdgeValue
	InstrCall
	InstrBranch
	// InstrBranchQuery is InstrBranch's builtin-query counterpart: the
	// condition is a registered opctx.BuiltinQuery evaluated against
	// BuiltinQueryArgs instead of a shape-query pattern match.
	InstrBranchQuery
	InstrReturn
	// InstrRename re-addresses a live AID under a new one everywhere the
	// running state stores it, without touching the underlying node.
	InstrRename
	// InstrForgetAID drops an AID's binding so a later shape query may match
	// its node again.
	InstrForgetAID
	// InstrDiverge fails the run unconditionally with a caller-supplied
	// message - the only way a body reaches the user-initiated error class.
	InstrDiverge
	// InstrTrace records a labeled debugging checkpoint into the run's
	// Trace: the graph's node and edge counts and the hidden-set size at
	// that point. AID bindings and graph contents are not recorded.
	InstrTrace
)

// ShapeQuery is a conditional pattern match: an additional small subgraph
// pattern anchored against already-bound AIDs, whose success or failure
// selects which arm of an InstrBranch runs and whose matched context nodes
// become newly bound AIDs for the chosen arm.
type ShapeQuery[NA, EA any] struct {
	// Pattern is the subgraph to search for, expressed the same way an
	// operation's own parameter graph is: explicit markers are the anchor
	// points, context markers are newly discovered on a match.
	Pattern *ParameterRef[NA, EA]
	// Anchors binds each of Pattern's explicit markers to an AID already
	// live in the state the query runs against.
	Anchors map[marker.SubstMarker]marker.AID
	// Bindings names the context markers of a successful match whose nodes
	// should become newly bound AIDs (under Named(name)) visible inside the
	// chosen branch - unnamed context markers match but are not bound,
	// implementing the "opt in to provenance" rule.
	Bindings map[marker.SubstMarker]string
	// Tag, if non-empty, is attached via the concrete MarkerSet to every
	// node this query actually binds to at runtime, regardless of whether
	// the caller named it in Bindings. The runner's hidden-node exclusion
	// for later shape queries does not read these tags; it works from its
	// own hidden-node set.
	Tag string
}

// ParameterRef is a minimal restatement of paramgraph.Parameter's shape
// sufficient for a shape query: a pattern graph plus which of its markers
// are the query's explicit (anchor) inputs. It intentionally does not
// reuse paramgraph.Parameter's NodeKey bookkeeping, since a shape query's
// pattern is built and matched once, not reused across many call sites.
type ParameterRef[NA, EA any] struct {
	Nodes          map[marker.SubstMarker]NA
	Edges          map[[2]marker.SubstMarker]EA
	ExplicitInputs []marker.SubstMarker
}

// Instruction is one step of an operation body. Node/edge values the body
// writes into the live graph (AddNode, AddEdge, SetNodeValue, SetEdgeValue)
// are concrete (NC/EC) - a body mutates the real graph, not a type lattice.
// A shape query's Pattern stays abstract (NA/EA), since matching it runs
// against an abstract projection of the live graph the same way a call
// site's parameter is matched.
type Instruction[NC, EC, NA, EA any] struct {
	Kind InstrKind

	// InstrAddNode / InstrDeleteNode / InstrSetNodeValue
	NodeAID  marker.AID
	NodeAttr NC

	// InstrAddEdge / InstrDeleteEdge / InstrSetEdgeValue
	EdgeFrom, EdgeTo marker.AID
	EdgeAttr         EC

	// InstrCall
	CallOperation uint32
	CallArgs      []marker.AID
	CallMarker    marker.CallMarker
	// CallOutputs maps each of this call's output markers to the callee's
	// declared output name it receives, forming DynamicOutput(CallMarker,
	// marker) AIDs.
	CallOutputs map[marker.OutputMarker]string

	// InstrBranch
	Query *ShapeQuery[NA, EA]
	Then  []Instruction[NC, EC, NA, EA]
	Else  []Instruction[NC, EC, NA, EA]

	// InstrBranchQuery. Then and Else above double as this variant's arms.
	BuiltinQueryOp   uint32
	BuiltinQueryArgs []marker.AID

	// InstrReturn
	ReturnOutputs map[string]marker.AID

	// InstrRename
	RenameOld, RenameNew marker.AID

	// InstrForgetAID
	ForgetAID marker.AID

	// InstrDiverge
	DivergeMessage string

	// InstrTrace
	TraceLabel string
}
