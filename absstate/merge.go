// File: merge.go
// Role: branch merging - reconciling the two abstract states produced by
// independently building an if/else's two bodies back into the single
// state the builder continues from after the branch.
//
// Both bodies start from the same pre-branch State (via Clone), so they
// share the same underlying node-key space up to whatever each body itself
// created; Merge therefore operates at the level of the AID binding and
// node types, not graph topology reconciliation: the merged graph is
// left's, with every still-live AID's node attribute updated to the type
// join of both branches' views of it. Edges are taken from left as they
// stand: they are not compared with right's edges and their attributes are
// not joined.
//
// An AID present in only one branch's binding, or present in both but with
// no defined type join, does not survive the merge - it is dropped, sound
// but surprising: code after the branch must treat that AID as gone even
// though one arm of the branch still considers it live.
package absstate

import (
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/semantics"
)

// Report summarizes what a Merge changed relative to each input, so the
// builder can surface a diagnostic for every AID it silently dropped.
type Report struct {
	// MissingFromLeft holds AIDs bound on the right but not the left.
	MissingFromLeft []marker.AID
	// MissingFromRight holds AIDs bound on the left but not the right.
	MissingFromRight []marker.AID
	// JoinFailed holds AIDs bound on both sides whose node types have no
	// defined join and were therefore dropped from the merged state.
	JoinFailed []marker.AID
}

// Merge reconciles left and right, the states resulting from independently
// building an if/else's two bodies, into the single state execution
// continues from afterward.
func Merge[NA, EA any](left, right *State[NA, EA], joinNode semantics.NodeJoin[NA]) (*State[NA, EA], *Report, error) {
	report := &Report{}
	merged := New[NA, EA](left.Graph)

	for aid, leftKey := range left.Binding {
		rightKey, ok := right.Binding[aid]
		if !ok {
			report.MissingFromRight = append(report.MissingFromRight, aid)
			continue
		}

		leftAttr, err := left.Graph.NodeAttr(leftKey)
		if err != nil {
			return nil, nil, err
		}
		rightAttr, err := right.Graph.NodeAttr(rightKey)
		if err != nil {
			return nil, nil, err
		}

		joined, ok := joinNode(leftAttr, rightAttr)
		if !ok {
			report.JoinFailed = append(report.JoinFailed, aid)
			continue
		}

		merged.Graph.SetNodeAttr(leftKey, joined)
		merged.Bind(aid, leftKey)

		if left.Shaped[aid] || right.Shaped[aid] {
			merged.MarkShaped(aid)
		}
		if attr, ok := left.MayWrite(aid); ok {
			merged.RecordMayWrite(aid, attr)
		} else if attr, ok := right.MayWrite(aid); ok {
			merged.RecordMayWrite(aid, attr)
		}
	}

	for aid := range right.Binding {
		if _, onLeft := left.Binding[aid]; !onLeft {
			report.MissingFromLeft = append(report.MissingFromLeft, aid)
		}
	}

	for ea := range left.ShapedEdges {
		if _, ok := merged.Binding[ea.From]; !ok {
			continue
		}
		if _, ok := merged.Binding[ea.To]; !ok {
			continue
		}
		merged.MarkShapedEdge(ea.From, ea.To)
	}
	for ea := range right.ShapedEdges {
		if _, ok := merged.Binding[ea.From]; !ok {
			continue
		}
		if _, ok := merged.Binding[ea.To]; !ok {
			continue
		}
		merged.MarkShapedEdge(ea.From, ea.To)
	}

	return merged, report, nil
}
