// File: apply.go
// Role: applies a paramgraph.OutputChanges (an operation's declared
// post-condition) to a View, in the fixed order the original engine uses:
// new nodes, then new edges (resolved against the new nodes just created),
// then maybe-changed nodes/edges (via the join-on-write semantics in
// maybeset.go), then maybe-deleted nodes/edges last.

package substview

import (
	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
)

// ApplyOutputChanges applies oc to view and returns the resulting
// AbstractOutput, naming every declared new node by the name it was
// declared under in oc.NewNodes.
func ApplyOutputChanges[NA, EA any](
	oc *paramgraph.OutputChanges[NA, EA],
	view *View[NA, EA],
	joinNode func(a, b NA) (NA, bool),
	joinEdge func(a, b EA) (EA, bool),
) (*AbstractOutput[NA, EA], error) {
	desiredNames := make(map[marker.AID]string, len(oc.NewNodes))

	for name, av := range oc.NewNodes {
		aid := marker.Named(name)
		if _, err := view.AddNode(aid, av); err != nil {
			return nil, err
		}
		desiredNames[aid] = name
	}

	sigToAID := func(id paramgraph.SigNodeID) marker.AID {
		if id.Kind == paramgraph.SigExisting {
			return marker.Parameter(id.Existing)
		}
		return marker.Named(id.New)
	}

	for id, av := range oc.NewEdges {
		from := sigToAID(id.From)
		to := sigToAID(id.To)
		if err := view.AddEdge(from, to, av); err != nil {
			return nil, err
		}
	}

	for m, av := range oc.MaybeChangedNodes {
		if _, err := view.MaybeSetNodeValue(marker.Parameter(m), av, joinNode); err != nil {
			return nil, err
		}
	}
	for id, av := range oc.MaybeChangedEdges {
		from := marker.Parameter(id.From)
		to := marker.Parameter(id.To)
		if _, err := view.MaybeSetEdgeValue(from, to, av, joinEdge); err != nil {
			return nil, err
		}
	}

	for m := range oc.MaybeDeletedNodes {
		aid := marker.Parameter(m)
		if _, ok := view.Resolve(aid); ok {
			if err := view.DeleteNode(aid); err != nil {
				return nil, err
			}
		}
	}
	for id := range oc.MaybeDeletedEdges {
		from := marker.Parameter(id.From)
		to := marker.Parameter(id.To)
		if _, ok := view.Resolve(from); ok {
			if _, ok := view.Resolve(to); ok {
				_ = view.DeleteEdge(from, to)
			}
		}
	}

	return view.Output(desiredNames), nil
}
