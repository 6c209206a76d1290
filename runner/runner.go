// Package runner is the Concrete Runner (spec component C6): it interprets
// a program.Instruction body against a live Graph[NC, EC], resolving calls
// by re-deriving an abstract substitution from the current concrete graph
// on every invocation rather than trusting a previously-computed one - the
// same rule the original engine's run_from_concrete follows.
//
// Matching is done via core.FindMonomorphism against an abstract projection
// of the live graph (built through the client's semantics.Plugin), so a
// call's argument types are checked exactly the way the builder checked
// them statically, just against whatever the graph actually looks like now.
package runner

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/program"
	"github.com/lvlath-labs/opgraph/semantics"
	"github.com/lvlath-labs/opgraph/substview"
)

// Sentinel errors for runner operations.
var (
	// ErrOperationNotFound indicates an InstrCall or RunFromConcrete named
	// an operation id not registered in the Context.
	ErrOperationNotFound = errors.New("runner: operation not found")

	// ErrArgumentCountMismatch indicates a call supplied a different number
	// of node arguments than the callee's parameter declares.
	ErrArgumentCountMismatch = errors.New("runner: argument count mismatch")

	// ErrArgumentDoesNotMatch indicates no substitution could be found
	// binding the callee's parameter graph against the supplied arguments
	// and the live graph around them.
	ErrArgumentDoesNotMatch = errors.New("runner: argument does not match parameter")

	// ErrAmbiguousArgumentSelection indicates the same concrete node was
	// selected more than once as an explicit argument - the original
	// engine's own TODO flags this as not yet handled soundly; this port
	// rejects it outright rather than matching an arbitrary embedding.
	ErrAmbiguousArgumentSelection = errors.New("runner: the same node was selected as more than one argument")

	// ErrUnboundAID indicates an instruction referenced an AID that does
	// not currently resolve to a live node.
	ErrUnboundAID = errors.New("runner: unbound AID")

	// ErrDiverge indicates an InstrDiverge step ran - the user-initiated
	// error class, raised deliberately by an operation body rather than
	// surfaced from a structural, typing, or provenance failure.
	ErrDiverge = errors.New("runner: diverge")
)

func runnerErrorf(op string, base error, format string, args ...interface{}) error {
	return fmt.Errorf("runner.%s: %w: %s", op, base, fmt.Sprintf(format, args...))
}

// Runner interprets operation bodies against a concrete graph.
type Runner[NC, EC, NA, EA any] struct {
	ctx    *opctx.Context[NC, EC, NA, EA]
	plugin *semantics.Plugin[NC, EC, NA, EA]
	log    hclog.Logger
}

// Option configures a Runner via functional options.
type Option[NC, EC, NA, EA any] func(*Runner[NC, EC, NA, EA])

// WithLogger attaches an hclog.Logger used for Trace-level diagnostics.
// Defaults to hclog.NewNullLogger().
func WithLogger[NC, EC, NA, EA any](l hclog.Logger) Option[NC, EC, NA, EA] {
	return func(r *Runner[NC, EC, NA, EA]) { r.log = l }
}

// New returns a Runner over ctx using plugin's matching/projection rules.
func New[NC, EC, NA, EA any](ctx *opctx.Context[NC, EC, NA, EA], plugin *semantics.Plugin[NC, EC, NA, EA], opts ...Option[NC, EC, NA, EA]) *Runner[NC, EC, NA, EA] {
	r := &Runner[NC, EC, NA, EA]{ctx: ctx, plugin: plugin, log: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is what a top-level RunFromConcrete call reports back.
type Result struct {
	Output    *substview.ConcreteOutput
	MarkerSet *marker.MarkerSet
	Trace     *marker.Trace
}

// RunFromConcrete matches op's parameter against the live graph g, anchored
// at the caller-selected explicit arguments selected, then runs it.
func (r *Runner[NC, EC, NA, EA]) RunFromConcrete(g *core.Graph[NC, EC], op opctx.OperationID, selected []core.NodeKey) (*Result, error) {
	param, err := r.ctx.Parameter(op)
	if err != nil {
		return nil, runnerErrorf("RunFromConcrete", ErrOperationNotFound, "op %d: %v", op, err)
	}

	subst, err := r.getSubstitution(g, param, selected)
	if err != nil {
		return nil, err
	}

	ms := marker.NewMarkerSet()
	tr := marker.NewTrace()
	tr.Record(fmt.Sprintf("run op=%d args=%v", op, selected))
	r.log.Trace("run starting", "op", op, "args", selected)

	out, err := r.execOperation(g, op, subst, map[core.NodeKey]bool{}, ms, tr)
	if err != nil {
		r.log.Trace("run failed", "op", op, "error", err)
		return nil, err
	}
	r.log.Trace("run finished", "op", op)
	return &Result{Output: out, MarkerSet: ms, Trace: tr}, nil
}

// getSubstitution binds param's explicit markers to selected positionally,
// then completes the substitution by searching for a full monomorphism of
// param's pattern graph into an abstract projection of g, pinned at the
// explicit bindings - context markers are resolved by this search, not
// supplied by the caller.
func (r *Runner[NC, EC, NA, EA]) getSubstitution(g *core.Graph[NC, EC], param *paramgraph.Parameter[NA, EA], selected []core.NodeKey) (*paramgraph.Substitution, error) {
	if len(param.ExplicitInputs) != len(selected) {
		return nil, runnerErrorf("getSubstitution", ErrArgumentCountMismatch,
			"expected %d, got %d", len(param.ExplicitInputs), len(selected))
	}
	seen := make(map[core.NodeKey]bool, len(selected))
	for _, k := range selected {
		if seen[k] {
			return nil, runnerErrorf("getSubstitution", ErrAmbiguousArgumentSelection, "node %v", k)
		}
		seen[k] = true
	}

	abstract, toAbstractKey, toConcreteKey := r.projectAbstract(g)

	pinned := make(map[core.NodeKey]core.NodeKey, len(selected))
	for i, m := range param.ExplicitInputs {
		patternKey, ok := param.NodeKey(m)
		if !ok {
			return nil, runnerErrorf("getSubstitution", ErrArgumentDoesNotMatch, "unknown marker %v", m)
		}
		pinned[patternKey] = toAbstractKey[selected[i]]
	}

	mapping, ok := core.FindMonomorphism(param.Graph, abstract, pinned, r.plugin.MatchNode, r.plugin.MatchEdge)
	if !ok {
		return nil, runnerErrorf("getSubstitution", ErrArgumentDoesNotMatch, "%d explicit inputs, %d candidate nodes", len(selected), abstract.NodeCount())
	}

	bySubst := make(map[marker.SubstMarker]core.NodeKey, len(mapping))
	for patternKey, abstractTargetKey := range mapping {
		m, ok := param.Marker(patternKey)
		if !ok {
			continue
		}
		bySubst[m] = toConcreteKey[abstractTargetKey]
	}
	return paramgraph.NewSubstitution(bySubst), nil
}

// projectAbstract builds a fresh abstract graph mirroring g's topology, with
// every node/edge attribute replaced by its projection through the client's
// semantics.Plugin, and returns the key mappings in both directions so a
// mapping found against the projection can be translated back to g.
func (r *Runner[NC, EC, NA, EA]) projectAbstract(g *core.Graph[NC, EC]) (*core.Graph[NA, EA], map[core.NodeKey]core.NodeKey, map[core.NodeKey]core.NodeKey) {
	out := core.NewGraph[NA, EA](core.WithMultiEdges(), core.WithLoops())
	toAbstract := make(map[core.NodeKey]core.NodeKey)
	toConcrete := make(map[core.NodeKey]core.NodeKey)
	for _, k := range g.Nodes() {
		attr, _ := g.NodeAttr(k)
		newKey := out.AddNode(r.plugin.ToAbstractNode(attr))
		toAbstract[k] = newKey
		toConcrete[newKey] = k
	}
	for _, k := range g.Nodes() {
		for _, ek := range g.OutEdges(k) {
			from, to, err := g.EdgeEndpoints(ek)
			if err != nil {
				continue
			}
			attr, err := g.EdgeAttr(ek)
			if err != nil {
				continue
			}
			_, _ = out.AddEdge(toAbstract[from], toAbstract[to], r.plugin.ToAbstractEdge(attr))
		}
	}
	return out, toAbstract, toConcrete
}
