// File: snapshot.go
// Role: the opaque snapshot - serializing every custom operation this
// Context holds (name, parameter graph, instruction body, signature) to
// bytes and back, via CBOR (github.com/ugorji/go/codec), the way
// TumTum23-dag's Manifest marshals itself. "Opaque" means the wire layout
// is not a stable public format across module versions; only the logical
// property reload(Snapshot(ctx)) == ctx is guaranteed.
//
// Builtins are never snapshotted - a Context reloaded from a snapshot must
// be given the same builtins back by the host before use, since builtins
// are native Go code with no data representation.

package opctx

import (
	"bytes"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/ugorji/go/codec"

	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/program"
)

var cborHandle codec.CborHandle

// wireParameter restates paramgraph.Parameter's content as a flat,
// exported-field structure CBOR can walk by reflection.
type wireParameter[NA, EA any] struct {
	Nodes          map[marker.SubstMarker]NA
	Edges          []wireParamEdge[EA]
	ExplicitInputs []marker.SubstMarker
}

type wireParamEdge[EA any] struct {
	From, To marker.SubstMarker
	Attr     EA
}

type wireOutputChanges[NA, EA any] struct {
	NewNodes          map[string]NA
	NewEdges          []wireSigEdge[EA]
	MaybeChangedNodes map[marker.SubstMarker]NA
	MaybeChangedEdges []wireParamEdge[EA]
	MaybeDeletedNodes []marker.SubstMarker
	MaybeDeletedEdges []wireMarkerPair
}

type wireSigEdge[EA any] struct {
	From, To paramgraph.SigNodeID
	Attr     EA
}

type wireMarkerPair struct{ From, To marker.SubstMarker }

type wireOperation[NC, EC, NA, EA any] struct {
	Name      string
	Parameter wireParameter[NA, EA]
	Output    wireOutputChanges[NA, EA]
	Body      []program.Instruction[NC, EC, NA, EA]
}

type wireContext[NC, EC, NA, EA any] struct {
	Operations map[OperationID]wireOperation[NC, EC, NA, EA]
}

func toWireParameter[NA, EA any](p *paramgraph.Parameter[NA, EA]) (wireParameter[NA, EA], error) {
	out := wireParameter[NA, EA]{
		Nodes:          make(map[marker.SubstMarker]NA),
		ExplicitInputs: append([]marker.SubstMarker{}, p.ExplicitInputs...),
	}
	for _, k := range p.Graph.Nodes() {
		m, ok := p.Marker(k)
		if !ok {
			continue
		}
		attr, err := p.Graph.NodeAttr(k)
		if err != nil {
			return out, err
		}
		out.Nodes[m] = attr
		for _, ek := range p.Graph.OutEdges(k) {
			_, toKey, err := p.Graph.EdgeEndpoints(ek)
			if err != nil {
				return out, err
			}
			toMarker, ok := p.Marker(toKey)
			if !ok {
				continue
			}
			edgeAttr, err := p.Graph.EdgeAttr(ek)
			if err != nil {
				return out, err
			}
			out.Edges = append(out.Edges, wireParamEdge[EA]{From: m, To: toMarker, Attr: edgeAttr})
		}
	}
	return out, nil
}

func toWireOutputChanges[NA, EA any](oc *paramgraph.OutputChanges[NA, EA]) wireOutputChanges[NA, EA] {
	out := wireOutputChanges[NA, EA]{
		NewNodes:          oc.NewNodes,
		MaybeChangedNodes: oc.MaybeChangedNodes,
	}
	for id, attr := range oc.NewEdges {
		out.NewEdges = append(out.NewEdges, wireSigEdge[EA]{From: id.From, To: id.To, Attr: attr})
	}
	for id, attr := range oc.MaybeChangedEdges {
		out.MaybeChangedEdges = append(out.MaybeChangedEdges, wireParamEdge[EA]{From: id.From, To: id.To, Attr: attr})
	}
	for m := range oc.MaybeDeletedNodes {
		out.MaybeDeletedNodes = append(out.MaybeDeletedNodes, m)
	}
	for id := range oc.MaybeDeletedEdges {
		out.MaybeDeletedEdges = append(out.MaybeDeletedEdges, wireMarkerPair{From: id.From, To: id.To})
	}
	return out
}

// Snapshot serializes every custom operation in c to CBOR bytes.
func Snapshot[NC, EC, NA, EA any](c *Context[NC, EC, NA, EA]) ([]byte, error) {
	wc := wireContext[NC, EC, NA, EA]{Operations: make(map[OperationID]wireOperation[NC, EC, NA, EA], len(c.custom))}
	for id, op := range c.custom {
		wp, err := toWireParameter(op.Signature.Parameter)
		if err != nil {
			return nil, err
		}
		wc.Operations[id] = wireOperation[NC, EC, NA, EA]{
			Name:      op.Signature.Name,
			Parameter: wp,
			Output:    toWireOutputChanges(op.Signature.Output),
			Body:      op.Body,
		}
	}

	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, &cborHandle)
	if err := enc.Encode(&wc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load decodes bytes produced by Snapshot back into a fresh Context's
// custom-operation table. The caller must separately AddBuiltin every
// builtin the snapshotted operations call before running anything.
func Load[NC, EC, NA, EA any](data []byte, opts ...Option[NC, EC, NA, EA]) (*Context[NC, EC, NA, EA], error) {
	var wc wireContext[NC, EC, NA, EA]
	dec := codec.NewDecoderBytes(data, &cborHandle)
	if err := dec.Decode(&wc); err != nil {
		return nil, err
	}

	c := New[NC, EC, NA, EA](opts...)
	var errs *multierror.Error
	for id, wop := range wc.Operations {
		param := paramgraph.NewParameter[NA, EA]()
		explicit := make(map[marker.SubstMarker]bool, len(wop.Parameter.ExplicitInputs))
		for _, m := range wop.Parameter.ExplicitInputs {
			explicit[m] = true
		}
		failed := false
		for _, m := range wop.Parameter.ExplicitInputs {
			if err := param.AddExplicitNode(m, wop.Parameter.Nodes[m]); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("op %d %q: %w", id, wop.Name, err))
				failed = true
			}
		}
		for m, attr := range wop.Parameter.Nodes {
			if explicit[m] {
				continue
			}
			if err := param.AddContextNode(m, attr); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("op %d %q: %w", id, wop.Name, err))
				failed = true
			}
		}
		for _, e := range wop.Parameter.Edges {
			if err := param.AddEdge(e.From, e.To, e.Attr); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("op %d %q: %w", id, wop.Name, err))
				failed = true
			}
		}
		if failed {
			continue
		}

		output := fromWireOutputChanges(wop.Output)
		sig := &paramgraph.Signature[NA, EA]{Name: wop.Name, Parameter: param, Output: output}
		if err := c.AddCustom(OperationID(id), &program.UserDefinedOperation[NC, EC, NA, EA]{
			Signature: sig,
			Body:      wop.Body,
		}); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("op %d %q: %w", id, wop.Name, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

func fromWireOutputChanges[NA, EA any](w wireOutputChanges[NA, EA]) *paramgraph.OutputChanges[NA, EA] {
	oc := paramgraph.NewOutputChanges[NA, EA]()
	for k, v := range w.NewNodes {
		oc.NewNodes[k] = v
	}
	for k, v := range w.MaybeChangedNodes {
		oc.MaybeChangedNodes[k] = v
	}
	for _, e := range w.NewEdges {
		oc.NewEdges[paramgraph.SigEdgeID{From: e.From, To: e.To}] = e.Attr
	}
	for _, e := range w.MaybeChangedEdges {
		oc.MaybeChangedEdges[paramgraph.ParamEdgeID{From: e.From, To: e.To}] = e.Attr
	}
	for _, m := range w.MaybeDeletedNodes {
		oc.MaybeDeletedNodes[m] = struct{}{}
	}
	for _, p := range w.MaybeDeletedEdges {
		oc.MaybeDeletedEdges[paramgraph.ParamEdgeID{From: p.From, To: p.To}] = struct{}{}
	}
	return oc
}
