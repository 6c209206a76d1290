// File: builder.go
// Role: the Builder itself - one per operation definition being assembled.
// Every mutating method does three things at once: updates the abstract
// absstate.State used for static checking, appends the matching
// program.Instruction to the body, and records enough of a delta ledger
// (changed/deleted markers, new/changed/deleted edges) that Build can
// derive the operation's final paramgraph.Signature without re-diffing the
// whole graph.

package opbuilder

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/lvlath-labs/opgraph/absstate"
	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/program"
	"github.com/lvlath-labs/opgraph/semantics"
	"github.com/lvlath-labs/opgraph/substview"
)

// edgeRef identifies a builder-level edge by the AIDs of its endpoints, as
// the body named them - distinct from substview.EdgeRef, which identifies a
// runtime edge by resolved NodeKey.
type edgeRef struct{ From, To marker.AID }

// shared is the state every sub-builder created by Branch's then/else
// closures has in common: the operation Context and type-system Plugin, the
// declared self-signature used to type-check recursive calls, and the
// call-marker counter, which must stay globally increasing across both arms
// of every branch in one operation body.
type shared[NC, EC, NA, EA any] struct {
	ctx    *opctx.Context[NC, EC, NA, EA]
	plugin *semantics.Plugin[NC, EC, NA, EA]
	log    hclog.Logger
	param  *paramgraph.Parameter[NA, EA]

	selfID      opctx.OperationID
	declaredSig *paramgraph.Signature[NA, EA]

	nextCall marker.CallMarker
}

// Builder assembles one operation body. NC/EC are the concrete value types
// instructions write into the live graph; NA/EA are the abstract value
// types the static state and signature are expressed in.
type Builder[NC, EC, NA, EA any] struct {
	shared *shared[NC, EC, NA, EA]
	state  *absstate.State[NA, EA]
	body   []program.Instruction[NC, EC, NA, EA]

	initialAIDs map[marker.AID]bool

	changedMarkers map[marker.SubstMarker]bool
	deletedMarkers map[marker.SubstMarker]bool

	newEdges        []edgeRef
	newEdgeAttr     map[edgeRef]EA
	changedEdges    map[edgeRef]bool
	changedEdgeAttr map[edgeRef]EA
	deletedEdges    map[edgeRef]bool
}

// Option configures a Builder via functional options.
type Option[NC, EC, NA, EA any] func(*Builder[NC, EC, NA, EA])

// WithLogger attaches an hclog.Logger used for Trace-level diagnostics.
// Defaults to hclog.NewNullLogger().
func WithLogger[NC, EC, NA, EA any](l hclog.Logger) Option[NC, EC, NA, EA] {
	return func(b *Builder[NC, EC, NA, EA]) { b.shared.log = l }
}

// NewBuilder starts building an operation whose call sites must match
// param. The initial abstract state is a clone of param's pattern graph
// (so its node keys line up exactly with param's own marker->key table),
// with every marker bound to an AID via marker.Parameter.
func NewBuilder[NC, EC, NA, EA any](
	ctx *opctx.Context[NC, EC, NA, EA],
	plugin *semantics.Plugin[NC, EC, NA, EA],
	param *paramgraph.Parameter[NA, EA],
	opts ...Option[NC, EC, NA, EA],
) *Builder[NC, EC, NA, EA] {
	state := absstate.New(param.Graph.Clone())
	initial := make(map[marker.AID]bool, len(param.ExplicitInputs))
	for _, k := range param.Graph.Nodes() {
		m, ok := param.Marker(k)
		if !ok {
			continue
		}
		aid := marker.Parameter(m)
		state.Bind(aid, k)
		initial[aid] = true
	}

	b := &Builder[NC, EC, NA, EA]{
		shared: &shared[NC, EC, NA, EA]{
			ctx:    ctx,
			plugin: plugin,
			log:    hclog.NewNullLogger(),
			param:  param,
		},
		state:           state,
		initialAIDs:     initial,
		changedMarkers:  make(map[marker.SubstMarker]bool),
		deletedMarkers:  make(map[marker.SubstMarker]bool),
		newEdgeAttr:     make(map[edgeRef]EA),
		changedEdges:    make(map[edgeRef]bool),
		changedEdgeAttr: make(map[edgeRef]EA),
		deletedEdges:    make(map[edgeRef]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DeclareSelf registers id/sig as this operation's own identity before the
// body is built, so a recursive Call(id, ...) inside the body can be
// type-checked against sig even though id is not yet registered in ctx.
// The caller remains responsible for checking, after Build, that the real
// signature Build returns is not more permissive than sig - the fixpoint
// this engine's recursive operations must satisfy.
func (b *Builder[NC, EC, NA, EA]) DeclareSelf(id opctx.OperationID, sig *paramgraph.Signature[NA, EA]) {
	b.shared.selfID = id
	b.shared.declaredSig = sig
}

func (b *Builder[NC, EC, NA, EA]) child(state *absstate.State[NA, EA]) *Builder[NC, EC, NA, EA] {
	return &Builder[NC, EC, NA, EA]{
		shared:          b.shared,
		state:           state,
		initialAIDs:     b.initialAIDs,
		changedMarkers:  make(map[marker.SubstMarker]bool),
		deletedMarkers:  make(map[marker.SubstMarker]bool),
		newEdgeAttr:     make(map[edgeRef]EA),
		changedEdges:    make(map[edgeRef]bool),
		changedEdgeAttr: make(map[edgeRef]EA),
		deletedEdges:    make(map[edgeRef]bool),
	}
}

// AddNode creates a new node from a concrete constructor value, projected
// to its abstract type for the static state, and binds aid to it.
func (b *Builder[NC, EC, NA, EA]) AddNode(aid marker.AID, concrete NC) error {
	if _, ok := b.state.Resolve(aid); ok {
		return opbuilderErrorf("AddNode", ErrAIDAlreadyBound, "%+v", aid)
	}
	key := b.state.Graph.AddNode(b.shared.plugin.ToAbstractNode(concrete))
	b.state.Bind(aid, key)
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrAddNode, NodeAID: aid, NodeAttr: concrete})
	return nil
}

// DeleteNode removes the node aid refers to from the static state.
func (b *Builder[NC, EC, NA, EA]) DeleteNode(aid marker.AID) error {
	key, ok := b.state.Resolve(aid)
	if !ok {
		return opbuilderErrorf("DeleteNode", ErrUnboundAID, "%+v", aid)
	}
	if err := b.state.Graph.RemoveNode(key); err != nil {
		return err
	}
	b.state.Drop(aid)
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrDeleteNode, NodeAID: aid})
	if aid.Kind == marker.AIDParameter {
		b.deletedMarkers[aid.Param] = true
		delete(b.changedMarkers, aid.Param)
	}
	return nil
}

// SetNodeValue overwrites the value of the node aid refers to.
func (b *Builder[NC, EC, NA, EA]) SetNodeValue(aid marker.AID, concrete NC) error {
	key, ok := b.state.Resolve(aid)
	if !ok {
		return opbuilderErrorf("SetNodeValue", ErrUnboundAID, "%+v", aid)
	}
	abstractAttr := b.shared.plugin.ToAbstractNode(concrete)
	b.state.Graph.SetNodeAttr(key, abstractAttr)
	b.state.RecordMayWrite(aid, abstractAttr)
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrSetNodeValue, NodeAID: aid, NodeAttr: concrete})
	if aid.Kind == marker.AIDParameter {
		b.changedMarkers[aid.Param] = true
	}
	return nil
}

// AddEdge adds an edge between the nodes from/to refer to.
func (b *Builder[NC, EC, NA, EA]) AddEdge(from, to marker.AID, concrete EC) error {
	fromKey, ok := b.state.Resolve(from)
	if !ok {
		return opbuilderErrorf("AddEdge", ErrUnboundAID, "from %+v", from)
	}
	toKey, ok := b.state.Resolve(to)
	if !ok {
		return opbuilderErrorf("AddEdge", ErrUnboundAID, "to %+v", to)
	}
	abstractAttr := b.shared.plugin.ToAbstractEdge(concrete)
	if _, err := b.state.Graph.AddEdge(fromKey, toKey, abstractAttr); err != nil {
		return err
	}
	ref := edgeRef{From: from, To: to}
	b.newEdges = append(b.newEdges, ref)
	b.newEdgeAttr[ref] = abstractAttr
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrAddEdge, EdgeFrom: from, EdgeTo: to, EdgeAttr: concrete})
	if b.state.IsShaped(from) || b.state.IsShaped(to) {
		b.state.MarkShapedEdge(from, to)
	}
	return nil
}

// DeleteEdge removes the edge between the nodes from/to refer to.
func (b *Builder[NC, EC, NA, EA]) DeleteEdge(from, to marker.AID) error {
	fromKey, ok := b.state.Resolve(from)
	if !ok {
		return opbuilderErrorf("DeleteEdge", ErrUnboundAID, "from %+v", from)
	}
	toKey, ok := b.state.Resolve(to)
	if !ok {
		return opbuilderErrorf("DeleteEdge", ErrUnboundAID, "to %+v", to)
	}
	ek, found := b.state.Graph.EdgeBetween(fromKey, toKey)
	if !found {
		return opbuilderErrorf("DeleteEdge", ErrUnboundAID, "no edge %v->%v", fromKey, toKey)
	}
	if err := b.state.Graph.RemoveEdge(ek); err != nil {
		return err
	}
	ref := edgeRef{From: from, To: to}
	b.deletedEdges[ref] = true
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrDeleteEdge, EdgeFrom: from, EdgeTo: to})
	return nil
}

// SetEdgeValue overwrites the value of the edge between from/to.
func (b *Builder[NC, EC, NA, EA]) SetEdgeValue(from, to marker.AID, concrete EC) error {
	fromKey, ok := b.state.Resolve(from)
	if !ok {
		return opbuilderErrorf("SetEdgeValue", ErrUnboundAID, "from %+v", from)
	}
	toKey, ok := b.state.Resolve(to)
	if !ok {
		return opbuilderErrorf("SetEdgeValue", ErrUnboundAID, "to %+v", to)
	}
	ek, found := b.state.Graph.EdgeBetween(fromKey, toKey)
	if !found {
		return opbuilderErrorf("SetEdgeValue", ErrUnboundAID, "no edge %v->%v", fromKey, toKey)
	}
	abstractAttr := b.shared.plugin.ToAbstractEdge(concrete)
	b.state.Graph.SetEdgeAttr(ek, abstractAttr)
	ref := edgeRef{From: from, To: to}
	b.changedEdges[ref] = true
	b.changedEdgeAttr[ref] = abstractAttr
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrSetEdgeValue, EdgeFrom: from, EdgeTo: to, EdgeAttr: concrete})
	return nil
}

// Rename re-addresses old as newAID everywhere the builder's state and
// ledgers store it - a bijection fixup over every index that can hold an
// AID, not just the binding, so a later instruction that looks newAID up
// sees everything old used to carry. Parameter AIDs are part of an
// operation's fixed identity and cannot be renamed.
func (b *Builder[NC, EC, NA, EA]) Rename(old, newAID marker.AID) error {
	if old.Kind == marker.AIDParameter {
		return opbuilderErrorf("Rename", ErrCannotRenameParameter, "%+v", old)
	}
	key, ok := b.state.Resolve(old)
	if !ok {
		return opbuilderErrorf("Rename", ErrUnboundAID, "%+v", old)
	}
	if _, ok := b.state.Resolve(newAID); ok {
		return opbuilderErrorf("Rename", ErrAIDAlreadyBound, "%+v", newAID)
	}

	b.state.Drop(old)
	b.state.Bind(newAID, key)
	if b.state.IsShaped(old) {
		b.state.MarkShaped(newAID)
	}
	if attr, ok := b.state.MayWrite(old); ok {
		b.state.RecordMayWrite(newAID, attr)
	}
	b.state.ForgetMayWrite(old)

	for ea := range b.state.ShapedEdges {
		if ea.From != old && ea.To != old {
			continue
		}
		from, to := ea.From, ea.To
		if from == old {
			from = newAID
		}
		if to == old {
			to = newAID
		}
		delete(b.state.ShapedEdges, ea)
		b.state.MarkShapedEdge(from, to)
	}

	renameRef := func(r edgeRef) edgeRef {
		if r.From == old {
			r.From = newAID
		}
		if r.To == old {
			r.To = newAID
		}
		return r
	}
	for i, ref := range b.newEdges {
		if ref.From != old && ref.To != old {
			continue
		}
		renamed := renameRef(ref)
		b.newEdgeAttr[renamed] = b.newEdgeAttr[ref]
		delete(b.newEdgeAttr, ref)
		b.newEdges[i] = renamed
	}
	for ref := range b.changedEdges {
		if ref.From != old && ref.To != old {
			continue
		}
		renamed := renameRef(ref)
		b.changedEdges[renamed] = true
		b.changedEdgeAttr[renamed] = b.changedEdgeAttr[ref]
		delete(b.changedEdges, ref)
		delete(b.changedEdgeAttr, ref)
	}
	for ref := range b.deletedEdges {
		if ref.From != old && ref.To != old {
			continue
		}
		delete(b.deletedEdges, ref)
		b.deletedEdges[renameRef(ref)] = true
	}

	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrRename, RenameOld: old, RenameNew: newAID})
	return nil
}

// ForgetAID drops aid's binding without touching the underlying node, so a
// later shape query may match that node again.
func (b *Builder[NC, EC, NA, EA]) ForgetAID(aid marker.AID) error {
	if _, ok := b.state.Resolve(aid); !ok {
		return opbuilderErrorf("ForgetAID", ErrUnboundAID, "%+v", aid)
	}
	b.state.Drop(aid)
	b.state.ForgetMayWrite(aid)
	if aid.Kind == marker.AIDParameter {
		b.deletedMarkers[aid.Param] = true
		delete(b.changedMarkers, aid.Param)
	}
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrForgetAID, ForgetAID: aid})
	return nil
}

// Diverge fails the run unconditionally with message - the only construct
// that reaches the user-initiated error class at run time.
func (b *Builder[NC, EC, NA, EA]) Diverge(message string) error {
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrDiverge, DivergeMessage: message})
	return nil
}

// Trace records a labeled debugging checkpoint, replayed at run time into
// the run's Trace.
func (b *Builder[NC, EC, NA, EA]) Trace(label string) error {
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrTrace, TraceLabel: label})
	return nil
}

func paramMarkerForKey[NA, EA any](state *absstate.State[NA, EA], key core.NodeKey) (marker.SubstMarker, bool) {
	for aid, k := range state.Binding {
		if k == key && aid.Kind == marker.AIDParameter {
			return aid.Param, true
		}
	}
	return 0, false
}

func dropAIDsForKey[NA, EA any](state *absstate.State[NA, EA], key core.NodeKey) {
	for aid, k := range state.Binding {
		if k == key {
			state.Drop(aid)
			state.ForgetMayWrite(aid)
		}
	}
}

// aidForKey returns any AID currently bound to key, parameter or not -
// used to translate a builtin's raw NodeKey-addressed AbstractOutput back
// into the AID-addressed ledger the rest of Builder works in.
func aidForKey[NA, EA any](state *absstate.State[NA, EA], key core.NodeKey) (marker.AID, bool) {
	for aid, k := range state.Binding {
		if k == key {
			return aid, true
		}
	}
	return marker.AID{}, false
}

// Call type-checks and records a call to another operation, statically
// matching op's parameter against the current abstract state (pinned at
// args) and applying the node part of its declared OutputChanges to that
// state - including the join-on-write fix: a maybe-changed node whose
// declared type has no join with its current type is dropped from the state
// rather than failing the build. Every AID bound to a maybe-deleted node is
// dropped as well. Declared new edges, maybe-changed edges and maybe-deleted
// edges are not applied to the abstract state. outputNames selects which of
// op's declared new nodes this call site adds to the state; the returned map
// gives each one a fresh AID the body can use in subsequent steps, and
// declared new nodes not named in outputNames are not added.
func (b *Builder[NC, EC, NA, EA]) Call(op opctx.OperationID, args []marker.AID, outputNames ...string) (map[string]marker.AID, error) {
	var param *paramgraph.Parameter[NA, EA]
	var sig *paramgraph.Signature[NA, EA]
	if op == b.shared.selfID && b.shared.declaredSig != nil {
		sig = b.shared.declaredSig
		param = sig.Parameter
	} else {
		var err error
		param, err = b.shared.ctx.Parameter(op)
		if err != nil {
			return nil, opbuilderErrorf("Call", ErrOperationNotFound, "op %d: %v", op, err)
		}
		sig, err = b.shared.ctx.Signature(op)
		if err != nil {
			return nil, err
		}
	}

	if len(args) != len(param.ExplicitInputs) {
		return nil, opbuilderErrorf("Call", ErrArgumentCountMismatch, "expected %d, got %d", len(param.ExplicitInputs), len(args))
	}

	pinned := make(map[core.NodeKey]core.NodeKey, len(args))
	for i, m := range param.ExplicitInputs {
		argKey, ok := b.state.Resolve(args[i])
		if !ok {
			return nil, opbuilderErrorf("Call", ErrUnboundAID, "argument %d (%+v)", i, args[i])
		}
		patternKey, ok := param.NodeKey(m)
		if !ok {
			return nil, opbuilderErrorf("Call", ErrArgumentDoesNotMatch, "marker %v has no pattern key", m)
		}
		pinned[patternKey] = argKey
	}

	mapping, ok := core.FindMonomorphism(param.Graph, b.state.Graph, pinned, b.shared.plugin.MatchNode, b.shared.plugin.MatchEdge)
	if !ok {
		return nil, opbuilderErrorf("Call", ErrArgumentDoesNotMatch, "op %d", op)
	}

	// Builtins carry no declared OutputChanges (opctx.Context.Signature
	// synthesizes an empty one for them, since they are native Go code, not
	// an instruction list) - their static effect is instead obtained by
	// running their own ApplyAbstract against a view of the current state,
	// the same way the concrete runner later runs their Apply.
	if builtin, isBuiltin := b.shared.ctx.Builtin(op); isBuiltin {
		return b.callBuiltin(op, builtin, param, args, mapping, outputNames)
	}

	callMarker := b.shared.nextCall
	b.shared.nextCall++

	callOutputs := make(map[marker.OutputMarker]string, len(outputNames))
	results := make(map[string]marker.AID, len(outputNames))
	for i, name := range outputNames {
		attr, ok := sig.Output.NewNodes[name]
		if !ok {
			return nil, opbuilderErrorf("Call", ErrUnknownOutputName, "%q on op %d", name, op)
		}
		key := b.state.Graph.AddNode(attr)
		om := marker.OutputMarker(i)
		aid := marker.DynamicOutput(callMarker, om)
		b.state.Bind(aid, key)
		callOutputs[om] = name
		results[name] = aid
	}

	for m, attr := range sig.Output.MaybeChangedNodes {
		patternKey, ok := param.NodeKey(m)
		if !ok {
			continue
		}
		localKey, ok := mapping[patternKey]
		if !ok {
			continue
		}
		cur, err := b.state.Graph.NodeAttr(localKey)
		if err != nil {
			return nil, err
		}
		joined, ok := b.shared.plugin.JoinNode(cur, attr)
		if !ok {
			if pm, found := paramMarkerForKey(b.state, localKey); found {
				b.deletedMarkers[pm] = true
				delete(b.changedMarkers, pm)
			}
			dropAIDsForKey(b.state, localKey)
			continue
		}
		b.state.Graph.SetNodeAttr(localKey, joined)
		if aid, found := aidForKey(b.state, localKey); found {
			b.state.RecordMayWrite(aid, attr)
		}
		if pm, found := paramMarkerForKey(b.state, localKey); found {
			b.changedMarkers[pm] = true
		}
	}
	for m := range sig.Output.MaybeDeletedNodes {
		patternKey, ok := param.NodeKey(m)
		if !ok {
			continue
		}
		localKey, ok := mapping[patternKey]
		if !ok {
			continue
		}
		if pm, found := paramMarkerForKey(b.state, localKey); found {
			b.deletedMarkers[pm] = true
			delete(b.changedMarkers, pm)
		}
		dropAIDsForKey(b.state, localKey)
	}

	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{
		Kind:          program.InstrCall,
		CallOperation: uint32(op),
		CallArgs:      args,
		CallMarker:    callMarker,
		CallOutputs:   callOutputs,
	})

	return results, nil
}

// callBuiltin is Call's path for a builtin callee: it builds a substitution
// from the monomorphism mapping just found, runs the builtin's own
// ApplyAbstract against a view over the builder's live abstract graph (which
// mutates b.state.Graph directly, exactly as the concrete runner's Apply
// mutates the live concrete graph), and folds the resulting AbstractOutput
// into the same changed/deleted/edge ledgers Build later reads.
func (b *Builder[NC, EC, NA, EA]) callBuiltin(
	op opctx.OperationID,
	builtin opctx.BuiltinOperation[NC, EC, NA, EA],
	param *paramgraph.Parameter[NA, EA],
	args []marker.AID,
	mapping map[core.NodeKey]core.NodeKey,
	outputNames []string,
) (map[string]marker.AID, error) {
	substMapping := make(map[marker.SubstMarker]core.NodeKey, len(mapping))
	for _, patternKey := range param.Graph.Nodes() {
		m, ok := param.Marker(patternKey)
		if !ok {
			continue
		}
		localKey, ok := mapping[patternKey]
		if !ok {
			continue
		}
		substMapping[m] = localKey
	}
	subst := paramgraph.NewSubstitution(substMapping)
	view := substview.New[NA, EA](b.state.Graph, subst)

	out, err := builtin.ApplyAbstract(view)
	if err != nil {
		return nil, opbuilderErrorf("Call", ErrArgumentDoesNotMatch, "builtin %q: %v", builtin.Name(), err)
	}

	callMarker := b.shared.nextCall
	b.shared.nextCall++

	callOutputs := make(map[marker.OutputMarker]string, len(outputNames))
	results := make(map[string]marker.AID, len(outputNames))
	for i, name := range outputNames {
		key, ok := out.NewNodes[name]
		if !ok {
			return nil, opbuilderErrorf("Call", ErrUnknownOutputName, "%q on builtin %q", name, builtin.Name())
		}
		om := marker.OutputMarker(i)
		aid := marker.DynamicOutput(callMarker, om)
		b.state.Bind(aid, key)
		callOutputs[om] = name
		results[name] = aid
	}

	for _, key := range out.RemovedNodes {
		if pm, found := paramMarkerForKey(b.state, key); found {
			b.deletedMarkers[pm] = true
			delete(b.changedMarkers, pm)
		}
		dropAIDsForKey(b.state, key)
	}
	for key, attr := range out.ChangedNodes {
		if pm, found := paramMarkerForKey(b.state, key); found {
			b.changedMarkers[pm] = true
		}
		if aid, found := aidForKey(b.state, key); found {
			b.state.RecordMayWrite(aid, attr)
		}
	}
	for _, er := range out.NewEdges {
		fromAID, ok1 := aidForKey(b.state, er.From)
		toAID, ok2 := aidForKey(b.state, er.To)
		if !ok1 || !ok2 {
			continue
		}
		ek, found := b.state.Graph.EdgeBetween(er.From, er.To)
		if !found {
			continue
		}
		attr, err := b.state.Graph.EdgeAttr(ek)
		if err != nil {
			return nil, err
		}
		ref := edgeRef{From: fromAID, To: toAID}
		b.newEdges = append(b.newEdges, ref)
		b.newEdgeAttr[ref] = attr
	}
	for ref, attr := range out.ChangedEdges {
		fromAID, ok1 := aidForKey(b.state, ref.From)
		toAID, ok2 := aidForKey(b.state, ref.To)
		if !ok1 || !ok2 {
			continue
		}
		r := edgeRef{From: fromAID, To: toAID}
		b.changedEdges[r] = true
		b.changedEdgeAttr[r] = attr
	}
	for _, er := range out.RemovedEdges {
		fromAID, ok1 := aidForKey(b.state, er.From)
		toAID, ok2 := aidForKey(b.state, er.To)
		if !ok1 || !ok2 {
			continue
		}
		b.deletedEdges[edgeRef{From: fromAID, To: toAID}] = true
	}

	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{
		Kind:          program.InstrCall,
		CallOperation: uint32(op),
		CallArgs:      args,
		CallMarker:    callMarker,
		CallOutputs:   callOutputs,
	})

	return results, nil
}

// Branch records a shape-query conditional: then/else each run against an
// independent clone of the current state (then's clone additionally binds
// query's declared context markers, standing in for whatever node actually
// gets matched there at runtime), and absstate.Merge reconciles the two
// resulting states back into one the builder continues from.
func (b *Builder[NC, EC, NA, EA]) Branch(
	query *program.ShapeQuery[NA, EA],
	then func(*Builder[NC, EC, NA, EA]) error,
	els func(*Builder[NC, EC, NA, EA]) error,
) error {
	thenState := b.state.Clone()
	for sm, name := range query.Bindings {
		attr, ok := query.Pattern.Nodes[sm]
		if !ok {
			continue
		}
		key := thenState.Graph.AddNode(attr)
		aid := marker.Named(name)
		thenState.Bind(aid, key)
		thenState.MarkShaped(aid)
	}
	bThen := b.child(thenState)
	if err := then(bThen); err != nil {
		return fmt.Errorf("opbuilder.Branch: then arm: %w", err)
	}

	elseState := b.state.Clone()
	bElse := b.child(elseState)
	if els != nil {
		if err := els(bElse); err != nil {
			return fmt.Errorf("opbuilder.Branch: else arm: %w", err)
		}
	}

	merged, report, err := absstate.Merge(bThen.state, bElse.state, b.shared.plugin.JoinNode)
	if err != nil {
		return err
	}
	for _, aid := range report.MissingFromLeft {
		if aid.Kind == marker.AIDParameter {
			b.deletedMarkers[aid.Param] = true
		}
	}
	for _, aid := range report.MissingFromRight {
		if aid.Kind == marker.AIDParameter {
			b.deletedMarkers[aid.Param] = true
		}
	}
	for _, aid := range report.JoinFailed {
		if aid.Kind == marker.AIDParameter {
			b.deletedMarkers[aid.Param] = true
		}
	}
	b.shared.log.Trace("branch merged", "missingLeft", len(report.MissingFromLeft),
		"missingRight", len(report.MissingFromRight), "joinFailed", len(report.JoinFailed))

	b.state = merged
	b.mergeEffects(bThen)
	b.mergeEffects(bElse)

	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{
		Kind:  program.InstrBranch,
		Query: query,
		Then:  bThen.body,
		Else:  bElse.body,
	})
	return nil
}

// BranchOnQuery records a builtin-query conditional: the registered query op
// is resolved and pinned against args exactly like a Call, its ApplyAbstract
// run once against the current state (queries narrow types the same way a
// builtin call can), and then/else are built and merged exactly as Branch
// does for a shape query - the only difference is what selects the arm at
// run time: a native predicate instead of a pattern match.
func (b *Builder[NC, EC, NA, EA]) BranchOnQuery(
	op opctx.OperationID,
	args []marker.AID,
	then func(*Builder[NC, EC, NA, EA]) error,
	els func(*Builder[NC, EC, NA, EA]) error,
) error {
	query, ok := b.shared.ctx.Query(op)
	if !ok {
		return opbuilderErrorf("BranchOnQuery", ErrOperationNotFound, "query %d", op)
	}
	param := query.Parameter()
	if len(args) != len(param.ExplicitInputs) {
		return opbuilderErrorf("BranchOnQuery", ErrArgumentCountMismatch, "expected %d, got %d", len(param.ExplicitInputs), len(args))
	}

	pinned := make(map[core.NodeKey]core.NodeKey, len(args))
	for i, m := range param.ExplicitInputs {
		argKey, ok := b.state.Resolve(args[i])
		if !ok {
			return opbuilderErrorf("BranchOnQuery", ErrUnboundAID, "argument %d (%+v)", i, args[i])
		}
		patternKey, ok := param.NodeKey(m)
		if !ok {
			return opbuilderErrorf("BranchOnQuery", ErrArgumentDoesNotMatch, "marker %v has no pattern key", m)
		}
		pinned[patternKey] = argKey
	}

	mapping, ok := core.FindMonomorphism(param.Graph, b.state.Graph, pinned, b.shared.plugin.MatchNode, b.shared.plugin.MatchEdge)
	if !ok {
		return opbuilderErrorf("BranchOnQuery", ErrArgumentDoesNotMatch, "query %d", op)
	}

	substMapping := make(map[marker.SubstMarker]core.NodeKey, len(mapping))
	for _, patternKey := range param.Graph.Nodes() {
		m, ok := param.Marker(patternKey)
		if !ok {
			continue
		}
		localKey, ok := mapping[patternKey]
		if !ok {
			continue
		}
		substMapping[m] = localKey
	}
	subst := paramgraph.NewSubstitution(substMapping)
	view := substview.New[NA, EA](b.state.Graph, subst)
	if _, err := query.ApplyAbstract(view); err != nil {
		return opbuilderErrorf("BranchOnQuery", ErrArgumentDoesNotMatch, "query %q: %v", query.Name(), err)
	}

	thenState := b.state.Clone()
	bThen := b.child(thenState)
	if err := then(bThen); err != nil {
		return fmt.Errorf("opbuilder.BranchOnQuery: then arm: %w", err)
	}

	elseState := b.state.Clone()
	bElse := b.child(elseState)
	if els != nil {
		if err := els(bElse); err != nil {
			return fmt.Errorf("opbuilder.BranchOnQuery: else arm: %w", err)
		}
	}

	merged, report, err := absstate.Merge(bThen.state, bElse.state, b.shared.plugin.JoinNode)
	if err != nil {
		return err
	}
	for _, aid := range report.MissingFromLeft {
		if aid.Kind == marker.AIDParameter {
			b.deletedMarkers[aid.Param] = true
		}
	}
	for _, aid := range report.MissingFromRight {
		if aid.Kind == marker.AIDParameter {
			b.deletedMarkers[aid.Param] = true
		}
	}
	for _, aid := range report.JoinFailed {
		if aid.Kind == marker.AIDParameter {
			b.deletedMarkers[aid.Param] = true
		}
	}
	b.shared.log.Trace("branch-query merged", "op", op, "missingLeft", len(report.MissingFromLeft),
		"missingRight", len(report.MissingFromRight), "joinFailed", len(report.JoinFailed))

	b.state = merged
	b.mergeEffects(bThen)
	b.mergeEffects(bElse)

	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{
		Kind:             program.InstrBranchQuery,
		BuiltinQueryOp:   uint32(op),
		BuiltinQueryArgs: args,
		Then:             bThen.body,
		Else:             bElse.body,
	})
	return nil
}

func (b *Builder[NC, EC, NA, EA]) mergeEffects(o *Builder[NC, EC, NA, EA]) {
	for m := range o.changedMarkers {
		b.changedMarkers[m] = true
	}
	for m := range o.deletedMarkers {
		b.deletedMarkers[m] = true
		delete(b.changedMarkers, m)
	}
	for _, ref := range o.newEdges {
		b.newEdges = append(b.newEdges, ref)
		b.newEdgeAttr[ref] = o.newEdgeAttr[ref]
	}
	for ref := range o.changedEdges {
		b.changedEdges[ref] = true
		b.changedEdgeAttr[ref] = o.changedEdgeAttr[ref]
	}
	for ref := range o.deletedEdges {
		b.deletedEdges[ref] = true
	}
}

func (b *Builder[NC, EC, NA, EA]) sigNodeID(aid marker.AID, nameOfNewAID map[marker.AID]string) (paramgraph.SigNodeID, bool) {
	if name, ok := nameOfNewAID[aid]; ok {
		return paramgraph.SigNodeID{Kind: paramgraph.SigNew, New: name}, true
	}
	if aid.Kind == marker.AIDParameter {
		return paramgraph.SigNodeID{Kind: paramgraph.SigExisting, Existing: aid.Param}, true
	}
	return paramgraph.SigNodeID{}, false
}

// Build finalizes the operation: appends the closing InstrReturn step
// (returns maps the names this operation exposes to the AIDs holding them),
// derives the OutputChanges this body's instructions actually produced, and
// returns the ready-to-register program.UserDefinedOperation.
func (b *Builder[NC, EC, NA, EA]) Build(name string, returns map[string]marker.AID) (*program.UserDefinedOperation[NC, EC, NA, EA], error) {
	b.body = append(b.body, program.Instruction[NC, EC, NA, EA]{Kind: program.InstrReturn, ReturnOutputs: returns})

	output := paramgraph.NewOutputChanges[NA, EA]()
	nameOfNewAID := make(map[marker.AID]string, len(returns))
	for rname, aid := range returns {
		if b.initialAIDs[aid] {
			continue
		}
		if b.state.IsShaped(aid) {
			return nil, opbuilderErrorf("Build", ErrReturnOfShapeTaintedNode, "%q -> %+v", rname, aid)
		}
		key, ok := b.state.Resolve(aid)
		if !ok {
			return nil, opbuilderErrorf("Build", ErrUnresolvedReturn, "%q -> %+v", rname, aid)
		}
		attr, err := b.state.Graph.NodeAttr(key)
		if err != nil {
			return nil, err
		}
		output.NewNodes[rname] = attr
		nameOfNewAID[aid] = rname
	}

	for m := range b.changedMarkers {
		key, ok := b.state.Resolve(marker.Parameter(m))
		if !ok {
			output.MaybeDeletedNodes[m] = struct{}{}
			continue
		}
		attr, err := b.state.Graph.NodeAttr(key)
		if err != nil {
			return nil, err
		}
		output.MaybeChangedNodes[m] = attr
	}
	for m := range b.deletedMarkers {
		output.MaybeDeletedNodes[m] = struct{}{}
	}

	for _, ref := range b.newEdges {
		fromID, ok1 := b.sigNodeID(ref.From, nameOfNewAID)
		toID, ok2 := b.sigNodeID(ref.To, nameOfNewAID)
		if !ok1 || !ok2 {
			continue
		}
		output.NewEdges[paramgraph.SigEdgeID{From: fromID, To: toID}] = b.newEdgeAttr[ref]
	}
	for ref := range b.changedEdges {
		if ref.From.Kind == marker.AIDParameter && ref.To.Kind == marker.AIDParameter {
			output.MaybeChangedEdges[paramgraph.ParamEdgeID{From: ref.From.Param, To: ref.To.Param}] = b.changedEdgeAttr[ref]
		}
	}
	for ref := range b.deletedEdges {
		if ref.From.Kind == marker.AIDParameter && ref.To.Kind == marker.AIDParameter {
			output.MaybeDeletedEdges[paramgraph.ParamEdgeID{From: ref.From.Param, To: ref.To.Param}] = struct{}{}
		}
	}

	sig := &paramgraph.Signature[NA, EA]{Name: name, Parameter: b.shared.param, Output: output}
	return &program.UserDefinedOperation[NC, EC, NA, EA]{Signature: sig, Body: b.body}, nil
}
