// Package opctx holds the universe of operations a builder or runner can
// invoke by id: natively-implemented builtins and user-defined operations
// assembled from nested calls to other operations (possibly including
// themselves, recursively). It is the Go counterpart of the original
// engine's OperationContext.
package opctx

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/program"
	"github.com/lvlath-labs/opgraph/substview"
)

// Sentinel errors for opctx operations.
var (
	// ErrOperationNotFound indicates no builtin or custom operation is
	// registered under the requested id.
	ErrOperationNotFound = errors.New("opctx: operation not found")

	// ErrOperationIDInUse indicates an Add* call tried to reuse an id
	// already registered in this Context.
	ErrOperationIDInUse = errors.New("opctx: operation id already in use")
)

func opctxErrorf(op string, base error, format string, args ...interface{}) error {
	return fmt.Errorf("opctx.%s: %w: %s", op, base, fmt.Sprintf(format, args...))
}

// OperationID identifies one registered operation within a Context.
type OperationID uint32

// BuiltinOperation is implemented natively in Go rather than built from
// nested calls. NC/EC are the concrete value types; NA/EA are the abstract
// value types.
type BuiltinOperation[NC, EC, NA, EA any] interface {
	// Name returns a human-readable name, used in traces and errors.
	Name() string
	// Parameter returns the shape and types a call site must provide.
	Parameter() *paramgraph.Parameter[NA, EA]
	// ApplyAbstract statically applies this operation's effect to an
	// abstract view already matched against Parameter.
	ApplyAbstract(view *substview.View[NA, EA]) (*substview.AbstractOutput[NA, EA], error)
	// Apply runs this operation's effect against a concrete view already
	// matched against Parameter.
	Apply(view *substview.View[NC, EC], data *ConcreteData) (*substview.ConcreteOutput, error)
}

// ConcreteData is additional, global state available to a builtin while it
// runs, mirroring the original engine's ConcreteData: today just the
// MarkerSet shape queries use to tag the nodes they bind.
type ConcreteData struct {
	MarkerSet *marker.MarkerSet
}

// BuiltinQuery is a natively-implemented boolean predicate over already-
// bound nodes, used to drive an InstrBranchQuery instead of a shape-query
// pattern match - the engine's construct for data-dependent control flow
// that has nothing to do with graph shape (e.g. comparing two values).
type BuiltinQuery[NC, EC, NA, EA any] interface {
	// Name returns a human-readable name, used in traces and errors.
	Name() string
	// Parameter returns the shape and types a call site must provide.
	Parameter() *paramgraph.Parameter[NA, EA]
	// ApplyAbstract statically applies this query's effect, if any, to an
	// abstract view already matched against Parameter - most queries narrow
	// nothing and return an empty AbstractOutput.
	ApplyAbstract(view *substview.View[NA, EA]) (*substview.AbstractOutput[NA, EA], error)
	// Evaluate runs this query's predicate against a concrete view already
	// matched against Parameter, selecting the branch's true or false arm.
	Evaluate(view *substview.View[NC, EC], data *ConcreteData) (bool, error)
}

// Context is the set of operations a builder or runner may invoke by id.
type Context[NC, EC, NA, EA any] struct {
	log      hclog.Logger
	builtins map[OperationID]BuiltinOperation[NC, EC, NA, EA]
	custom   map[OperationID]*program.UserDefinedOperation[NC, EC, NA, EA]
	queries  map[OperationID]BuiltinQuery[NC, EC, NA, EA]
}

// Option configures a Context via functional options.
type Option[NC, EC, NA, EA any] func(*Context[NC, EC, NA, EA])

// WithLogger attaches an hclog.Logger used for Trace-level diagnostics on
// registration and lookup. Defaults to hclog.NewNullLogger().
func WithLogger[NC, EC, NA, EA any](l hclog.Logger) Option[NC, EC, NA, EA] {
	return func(c *Context[NC, EC, NA, EA]) { c.log = l }
}

// New returns an empty Context.
func New[NC, EC, NA, EA any](opts ...Option[NC, EC, NA, EA]) *Context[NC, EC, NA, EA] {
	c := &Context[NC, EC, NA, EA]{
		log:      hclog.NewNullLogger(),
		builtins: make(map[OperationID]BuiltinOperation[NC, EC, NA, EA]),
		custom:   make(map[OperationID]*program.UserDefinedOperation[NC, EC, NA, EA]),
		queries:  make(map[OperationID]BuiltinQuery[NC, EC, NA, EA]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddBuiltin registers a natively-implemented operation under id.
func (c *Context[NC, EC, NA, EA]) AddBuiltin(id OperationID, op BuiltinOperation[NC, EC, NA, EA]) error {
	if c.registered(id) {
		return opctxErrorf("AddBuiltin", ErrOperationIDInUse, "id %d", id)
	}
	c.builtins[id] = op
	c.log.Trace("registered builtin", "id", id, "name", op.Name())
	return nil
}

// AddCustom registers a user-defined operation under id.
func (c *Context[NC, EC, NA, EA]) AddCustom(id OperationID, op *program.UserDefinedOperation[NC, EC, NA, EA]) error {
	if c.registered(id) {
		return opctxErrorf("AddCustom", ErrOperationIDInUse, "id %d", id)
	}
	c.custom[id] = op
	c.log.Trace("registered custom operation", "id", id, "name", op.Signature.Name)
	return nil
}

// AddQuery registers a builtin query under id. Queries have their own id
// namespace, separate from builtins and custom operations, since a query is
// never itself called - it is only ever the condition of an InstrBranchQuery.
func (c *Context[NC, EC, NA, EA]) AddQuery(id OperationID, q BuiltinQuery[NC, EC, NA, EA]) error {
	if _, ok := c.queries[id]; ok {
		return opctxErrorf("AddQuery", ErrOperationIDInUse, "id %d", id)
	}
	c.queries[id] = q
	c.log.Trace("registered builtin query", "id", id, "name", q.Name())
	return nil
}

// Query returns the builtin query registered under id, if any.
func (c *Context[NC, EC, NA, EA]) Query(id OperationID) (BuiltinQuery[NC, EC, NA, EA], bool) {
	q, ok := c.queries[id]
	return q, ok
}

func (c *Context[NC, EC, NA, EA]) registered(id OperationID) bool {
	if _, ok := c.builtins[id]; ok {
		return true
	}
	_, ok := c.custom[id]
	return ok
}

// Builtin returns the builtin registered under id, if any.
func (c *Context[NC, EC, NA, EA]) Builtin(id OperationID) (BuiltinOperation[NC, EC, NA, EA], bool) {
	op, ok := c.builtins[id]
	return op, ok
}

// Custom returns the user-defined operation registered under id, if any.
func (c *Context[NC, EC, NA, EA]) Custom(id OperationID) (*program.UserDefinedOperation[NC, EC, NA, EA], bool) {
	op, ok := c.custom[id]
	return op, ok
}

// Parameter returns the parameter shape of whichever operation is
// registered under id, checking builtins before custom operations -
// matching the original engine's lookup precedence.
func (c *Context[NC, EC, NA, EA]) Parameter(id OperationID) (*paramgraph.Parameter[NA, EA], error) {
	if op, ok := c.builtins[id]; ok {
		return op.Parameter(), nil
	}
	if op, ok := c.custom[id]; ok {
		return op.Signature.Parameter, nil
	}
	return nil, opctxErrorf("Parameter", ErrOperationNotFound, "id %d", id)
}

// Signature returns the full signature of a custom operation, or a
// synthesized one (name + parameter, no further output guarantees known to
// the caller beyond what ApplyAbstract reports) for a builtin.
func (c *Context[NC, EC, NA, EA]) Signature(id OperationID) (*paramgraph.Signature[NA, EA], error) {
	if op, ok := c.custom[id]; ok {
		return op.Signature, nil
	}
	if op, ok := c.builtins[id]; ok {
		return &paramgraph.Signature[NA, EA]{
			Name:      op.Name(),
			Parameter: op.Parameter(),
			Output:    paramgraph.NewOutputChanges[NA, EA](),
		}, nil
	}
	return nil, opctxErrorf("Signature", ErrOperationNotFound, "id %d", id)
}
