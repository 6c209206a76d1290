// File: exec.go
// Role: dispatches one operation invocation (builtin or user-defined) and,
// for user-defined operations, interprets their instruction body.

package runner

import (
	"fmt"

	"github.com/lvlath-labs/opgraph/core"
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/opctx"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/program"
	"github.com/lvlath-labs/opgraph/substview"
)

func (r *Runner[NC, EC, NA, EA]) execOperation(
	g *core.Graph[NC, EC],
	op opctx.OperationID,
	subst *paramgraph.Substitution,
	hidden map[core.NodeKey]bool,
	ms *marker.MarkerSet,
	tr *marker.Trace,
) (*substview.ConcreteOutput, error) {
	if builtin, ok := r.ctx.Builtin(op); ok {
		view := substview.New(g, subst)
		tr.Record(fmt.Sprintf("apply builtin %q", builtin.Name()))
		r.log.Trace("apply builtin", "op", op, "name", builtin.Name())
		out, err := builtin.Apply(view, &opctx.ConcreteData{MarkerSet: ms})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	custom, ok := r.ctx.Custom(op)
	if !ok {
		return nil, runnerErrorf("execOperation", ErrOperationNotFound, "op %d", op)
	}
	tr.Record(fmt.Sprintf("enter custom operation %q", custom.Signature.Name))
	r.log.Trace("enter custom operation", "op", op, "name", custom.Signature.Name)

	view := substview.New(g, subst)
	desiredNames := make(map[string]marker.AID)
	if err := r.execBody(view, custom.Body, hidden, ms, tr, desiredNames); err != nil {
		return nil, err
	}
	aidNames := make(map[marker.AID]string, len(desiredNames))
	for name, aid := range desiredNames {
		aidNames[aid] = name
	}
	return view.ConcreteResult(aidNames), nil
}

func (r *Runner[NC, EC, NA, EA]) execBody(
	view *substview.View[NC, EC],
	body []program.Instruction[NC, EC, NA, EA],
	hidden map[core.NodeKey]bool,
	ms *marker.MarkerSet,
	tr *marker.Trace,
	desiredNames map[string]marker.AID,
) error {
	for _, instr := range body {
		if err := r.execInstruction(view, instr, hidden, ms, tr, desiredNames); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner[NC, EC, NA, EA]) execInstruction(
	view *substview.View[NC, EC],
	instr program.Instruction[NC, EC, NA, EA],
	hidden map[core.NodeKey]bool,
	ms *marker.MarkerSet,
	tr *marker.Trace,
	desiredNames map[string]marker.AID,
) error {
	switch instr.Kind {
	case program.InstrAddNode:
		_, err := view.AddNode(instr.NodeAID, instr.NodeAttr)
		return err
	case program.InstrDeleteNode:
		return view.DeleteNode(instr.NodeAID)
	case program.InstrAddEdge:
		return view.AddEdge(instr.EdgeFrom, instr.EdgeTo, instr.EdgeAttr)
	case program.InstrDeleteEdge:
		return view.DeleteEdge(instr.EdgeFrom, instr.EdgeTo)
	case program.InstrSetNodeValue:
		return view.SetNodeValue(instr.NodeAID, instr.NodeAttr)
	case program.InstrSetEdgeValue:
		// Edge values are set directly through the graph, since View has no
		// SetEdgeValue helper symmetric with SetNodeValue; MaybeSetEdgeValue
		// is the join-on-write path that ApplyOutputChanges uses.
		fromKey, ok := view.Resolve(instr.EdgeFrom)
		if !ok {
			return runnerErrorf("execInstruction", ErrUnboundAID, "edge from %+v", instr.EdgeFrom)
		}
		toKey, ok := view.Resolve(instr.EdgeTo)
		if !ok {
			return runnerErrorf("execInstruction", ErrUnboundAID, "edge to %+v", instr.EdgeTo)
		}
		ek, found := view.Graph().EdgeBetween(fromKey, toKey)
		if !found {
			return runnerErrorf("execInstruction", ErrUnboundAID, "no edge %v->%v", fromKey, toKey)
		}
		view.Graph().SetEdgeAttr(ek, instr.EdgeAttr)
		return nil
	case program.InstrCall:
		return r.execCall(view, instr, hidden, ms, tr)
	case program.InstrBranch:
		return r.execBranch(view, instr, hidden, ms, tr, desiredNames)
	case program.InstrBranchQuery:
		return r.execBranchQuery(view, instr, hidden, ms, tr, desiredNames)
	case program.InstrReturn:
		for name, aid := range instr.ReturnOutputs {
			desiredNames[name] = aid
		}
		return nil
	case program.InstrRename:
		tr.Record(fmt.Sprintf("rename %+v -> %+v", instr.RenameOld, instr.RenameNew))
		return view.Rename(instr.RenameOld, instr.RenameNew)
	case program.InstrForgetAID:
		key, ok := view.Resolve(instr.ForgetAID)
		if !ok {
			return runnerErrorf("execInstruction", ErrUnboundAID, "%+v", instr.ForgetAID)
		}
		if err := view.Forget(instr.ForgetAID); err != nil {
			return err
		}
		delete(hidden, key)
		tr.Record(fmt.Sprintf("forget %+v", instr.ForgetAID))
		return nil
	case program.InstrDiverge:
		tr.Record(fmt.Sprintf("diverge: %s", instr.DivergeMessage))
		return runnerErrorf("execInstruction", ErrDiverge, "%s", instr.DivergeMessage)
	case program.InstrTrace:
		tr.Record(fmt.Sprintf("trace %q: nodes=%d edges=%d hidden=%d",
			instr.TraceLabel, view.Graph().NodeCount(), view.Graph().EdgeCount(), len(hidden)))
		return nil
	default:
		return runnerErrorf("execInstruction", ErrOperationNotFound, "unknown instruction kind %d", instr.Kind)
	}
}

func (r *Runner[NC, EC, NA, EA]) execCall(
	view *substview.View[NC, EC],
	instr program.Instruction[NC, EC, NA, EA],
	hidden map[core.NodeKey]bool,
	ms *marker.MarkerSet,
	tr *marker.Trace,
) error {
	args := make([]core.NodeKey, len(instr.CallArgs))
	for i, aid := range instr.CallArgs {
		key, ok := view.Resolve(aid)
		if !ok {
			return runnerErrorf("execCall", ErrUnboundAID, "argument %d (%+v)", i, aid)
		}
		args[i] = key
	}

	param, err := r.ctx.Parameter(opctx.OperationID(instr.CallOperation))
	if err != nil {
		return runnerErrorf("execCall", ErrOperationNotFound, "op %d: %v", instr.CallOperation, err)
	}
	subst, err := r.getSubstitution(view.Graph(), param, args)
	if err != nil {
		return err
	}

	nestedHidden := make(map[core.NodeKey]bool, len(hidden)+len(args))
	for k := range hidden {
		nestedHidden[k] = true
	}
	for _, k := range args {
		nestedHidden[k] = true
	}

	tr.Record(fmt.Sprintf("call op=%d args=%v", instr.CallOperation, args))
	r.log.Trace("call", "op", instr.CallOperation, "args", args)
	out, err := r.execOperation(view.Graph(), opctx.OperationID(instr.CallOperation), subst, nestedHidden, ms, tr)
	if err != nil {
		return err
	}

	for outMarker, calleeName := range instr.CallOutputs {
		key, ok := out.NewNodes[calleeName]
		if !ok {
			continue
		}
		aid := marker.DynamicOutput(instr.CallMarker, outMarker)
		if err := view.BindExisting(aid, key); err != nil {
			return err
		}
	}
	return nil
}

// execBranchQuery evaluates a registered builtin query against the live
// graph and runs whichever arm it selects - InstrBranch's counterpart for a
// condition that is a native predicate rather than a shape-query pattern
// match.
func (r *Runner[NC, EC, NA, EA]) execBranchQuery(
	view *substview.View[NC, EC],
	instr program.Instruction[NC, EC, NA, EA],
	hidden map[core.NodeKey]bool,
	ms *marker.MarkerSet,
	tr *marker.Trace,
	desiredNames map[string]marker.AID,
) error {
	query, ok := r.ctx.Query(opctx.OperationID(instr.BuiltinQueryOp))
	if !ok {
		return runnerErrorf("execBranchQuery", ErrOperationNotFound, "query %d", instr.BuiltinQueryOp)
	}

	args := make([]core.NodeKey, len(instr.BuiltinQueryArgs))
	for i, aid := range instr.BuiltinQueryArgs {
		key, ok := view.Resolve(aid)
		if !ok {
			return runnerErrorf("execBranchQuery", ErrUnboundAID, "argument %d (%+v)", i, aid)
		}
		args[i] = key
	}

	subst, err := r.getSubstitution(view.Graph(), query.Parameter(), args)
	if err != nil {
		return err
	}
	queryView := substview.New(view.Graph(), subst)

	matched, err := query.Evaluate(queryView, &opctx.ConcreteData{MarkerSet: ms})
	if err != nil {
		return err
	}

	branch := instr.Else
	if matched {
		branch = instr.Then
	}
	tr.Record(fmt.Sprintf("builtin query %q -> %v", query.Name(), matched))
	return r.execBody(view, branch, hidden, ms, tr, desiredNames)
}

// buildPatternGraph restates a ShapeQuery's ParameterRef as a core.Graph
// suitable for FindMonomorphism, along with the marker<->key correspondence
// needed to translate a match back into SubstMarker terms.
func buildPatternGraph[NA, EA any](ref *program.ParameterRef[NA, EA]) (*core.Graph[NA, EA], map[marker.SubstMarker]core.NodeKey, map[core.NodeKey]marker.SubstMarker) {
	g := core.NewGraph[NA, EA](core.WithMultiEdges(), core.WithLoops())
	markerKey := make(map[marker.SubstMarker]core.NodeKey, len(ref.Nodes))
	keyMarker := make(map[core.NodeKey]marker.SubstMarker, len(ref.Nodes))
	for sm, attr := range ref.Nodes {
		key := g.AddNode(attr)
		markerKey[sm] = key
		keyMarker[key] = sm
	}
	for pair, attr := range ref.Edges {
		from, ok1 := markerKey[pair[0]]
		to, ok2 := markerKey[pair[1]]
		if !ok1 || !ok2 {
			continue
		}
		_, _ = g.AddEdge(from, to, attr)
	}
	return g, markerKey, keyMarker
}

// execBranch evaluates a shape query against the live graph and runs
// whichever arm it selects. The hidden-handle rule is enforced by removing
// every node already bound to an outer-scope AID from the search space
// entirely, not merely excluding it from pinning - an inner shape query must
// never so much as observe a node an enclosing call already holds.
func (r *Runner[NC, EC, NA, EA]) execBranch(
	view *substview.View[NC, EC],
	instr program.Instruction[NC, EC, NA, EA],
	hidden map[core.NodeKey]bool,
	ms *marker.MarkerSet,
	tr *marker.Trace,
	desiredNames map[string]marker.AID,
) error {
	q := instr.Query
	abstract, toAbstractKey, toConcreteKey := r.projectAbstract(view.Graph())

	pattern, markerKey, keyMarker := buildPatternGraph(q.Pattern)

	// Anchors are explicitly pinned, not newly discovered: a node already
	// hidden from an enclosing scope (including this operation's own
	// parameters, hidden from the perspective of a caller one level up) must
	// still be usable as an anchor, or no nested operation could ever anchor
	// a shape query on its own "self" parameter. Only positions the search
	// itself discovers are barred from hidden nodes.
	anchorAbstract := make(map[core.NodeKey]bool, len(q.Anchors))
	pinned := make(map[core.NodeKey]core.NodeKey, len(q.Anchors))
	matched := true
	for sm, aid := range q.Anchors {
		concreteKey, ok := view.Resolve(aid)
		if !ok {
			matched = false
			break
		}
		patternKey, ok := markerKey[sm]
		if !ok {
			matched = false
			break
		}
		abstractKey, ok := toAbstractKey[concreteKey]
		if !ok {
			matched = false
			break
		}
		pinned[patternKey] = abstractKey
		anchorAbstract[abstractKey] = true
	}

	visible := abstract
	if matched && len(hidden) > 0 {
		visible = abstract.Clone()
		for abstractKey, concreteKey := range toConcreteKey {
			if hidden[concreteKey] && !anchorAbstract[abstractKey] {
				_ = visible.RemoveNode(abstractKey)
			}
		}
	}

	var mapping map[core.NodeKey]core.NodeKey
	if matched {
		mapping, matched = core.FindMonomorphism(pattern, visible, pinned, r.plugin.MatchNode, r.plugin.MatchEdge)
	}

	branch := instr.Else
	if matched {
		branch = instr.Then
		tr.Record(fmt.Sprintf("shape query matched, tag=%q", q.Tag))
		for patternKey, abstractKey := range mapping {
			concreteKey, ok := toConcreteKey[abstractKey]
			if !ok {
				continue
			}
			if q.Tag != "" {
				ms.Tag(concreteKey, q.Tag)
			}
			sm, ok := keyMarker[patternKey]
			if !ok {
				continue
			}
			if name, wantBind := q.Bindings[sm]; wantBind {
				if err := view.BindExisting(marker.Named(name), concreteKey); err != nil {
					return err
				}
			}
		}
	} else {
		tr.Record("shape query did not match")
	}
	r.log.Trace("shape query", "tag", q.Tag, "matched", matched)

	return r.execBody(view, branch, hidden, ms, tr, desiredNames)
}
