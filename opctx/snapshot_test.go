package opctx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ugorji/go/codec"

	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/program"
	"github.com/lvlath-labs/opgraph/valuetype"
)

const (
	snapRoot marker.SubstMarker = iota
	snapOther
)

func buildSnapshottableOp(t *testing.T) *program.UserDefinedOperation[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label] {
	t.Helper()
	param := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	if err := param.AddExplicitNode(snapRoot, valuetype.Object); err != nil {
		t.Fatalf("AddExplicitNode: %v", err)
	}
	if err := param.AddContextNode(snapOther, valuetype.Integer); err != nil {
		t.Fatalf("AddContextNode: %v", err)
	}
	if err := param.AddEdge(snapRoot, snapOther, valuetype.Next); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}

	output := paramgraph.NewOutputChanges[valuetype.Type, valuetype.Label]()
	output.NewNodes["tail"] = valuetype.Integer
	output.MaybeChangedNodes[snapRoot] = valuetype.Object

	body := []program.Instruction[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]{
		{
			Kind:     program.InstrAddNode,
			NodeAID:  marker.Named("tail"),
			NodeAttr: valuetype.Node{Value: 42},
		},
		{
			Kind:     program.InstrAddEdge,
			EdgeFrom: marker.Parameter(snapRoot),
			EdgeTo:   marker.Named("tail"),
			EdgeAttr: valuetype.Next,
		},
		{
			Kind:          program.InstrReturn,
			ReturnOutputs: map[string]marker.AID{"tail": marker.Named("tail")},
		},
	}

	return &program.UserDefinedOperation[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]{
		Signature: &paramgraph.Signature[valuetype.Type, valuetype.Label]{
			Name:      "snap_op",
			Parameter: param,
			Output:    output,
		},
		Body: body,
	}
}

func TestSnapshotLoadRoundTrip(t *testing.T) {
	ctx := New[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]()
	const id OperationID = 7
	if err := ctx.AddCustom(id, buildSnapshottableOp(t)); err != nil {
		t.Fatalf("AddCustom: %v", err)
	}

	data, err := Snapshot[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label](ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	reloaded, err := Load[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label](data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	op, ok := reloaded.Custom(id)
	if !ok {
		t.Fatalf("reloaded context should have the operation back under the same id")
	}
	if op.Signature.Name != "snap_op" {
		t.Fatalf("unexpected reloaded name: %q", op.Signature.Name)
	}
	if !op.Signature.Parameter.IsExplicit(snapRoot) || op.Signature.Parameter.IsExplicit(snapOther) {
		t.Fatalf("reloaded parameter should preserve explicit/context distinction")
	}
	if len(op.Body) != 3 {
		t.Fatalf("expected 3 reloaded instructions, got %d", len(op.Body))
	}
	if op.Body[0].Kind != program.InstrAddNode || op.Body[0].NodeAttr.Value != 42 {
		t.Fatalf("reloaded body's first instruction mismatch: %+v", op.Body[0])
	}
	if reloadedTail, ok := op.Signature.Output.NewNodes["tail"]; !ok || reloadedTail != valuetype.Integer {
		t.Fatalf("reloaded output should preserve the declared new node type")
	}
}

func TestLoadAccumulatesErrorsAcrossMalformedOperations(t *testing.T) {
	// Two operations whose parameter graphs both declare edges over markers
	// they never add as nodes - each independently invalid - should both be
	// reported by Load rather
	// than Load stopping at the first.
	wc := wireContext[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]{
		Operations: map[OperationID]wireOperation[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]{
			1: {
				Name: "bad1",
				Parameter: wireParameter[valuetype.Type, valuetype.Label]{
					Edges: []wireParamEdge[valuetype.Label]{{From: 0, To: 1, Attr: valuetype.None}},
				},
			},
			2: {
				Name: "bad2",
				Parameter: wireParameter[valuetype.Type, valuetype.Label]{
					Edges: []wireParamEdge[valuetype.Label]{{From: 5, To: 6, Attr: valuetype.None}},
				},
			},
		},
	}

	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, &cborHandle)
	if err := enc.Encode(&wc); err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err := Load[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label](buf.Bytes())
	if err == nil {
		t.Fatalf("Load should fail: both operations reference edges over unknown markers")
	}
	if !errors.Is(err, paramgraph.ErrUnknownMarker) {
		t.Fatalf("expected the aggregated error to wrap ErrUnknownMarker, got %v", err)
	}
}
