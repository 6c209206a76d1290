package opctx

import (
	"errors"
	"testing"

	"github.com/lvlath-labs/opgraph/marker"
	"github.com/lvlath-labs/opgraph/paramgraph"
	"github.com/lvlath-labs/opgraph/program"
	"github.com/lvlath-labs/opgraph/substview"
	"github.com/lvlath-labs/opgraph/valuetype"
)

// stubBuiltin is the minimal BuiltinOperation this package's tests need -
// its Apply/ApplyAbstract are never exercised here, only registration and
// lookup.
type stubBuiltin struct {
	name  string
	param *paramgraph.Parameter[valuetype.Type, valuetype.Label]
}

func (s *stubBuiltin) Name() string { return s.name }
func (s *stubBuiltin) Parameter() *paramgraph.Parameter[valuetype.Type, valuetype.Label] {
	return s.param
}
func (s *stubBuiltin) ApplyAbstract(*substview.View[valuetype.Type, valuetype.Label]) (*substview.AbstractOutput[valuetype.Type, valuetype.Label], error) {
	return nil, nil
}
func (s *stubBuiltin) Apply(*substview.View[valuetype.Node, valuetype.Label], *ConcreteData) (*substview.ConcreteOutput, error) {
	return nil, nil
}

func newStubBuiltin(t *testing.T, name string) *stubBuiltin {
	t.Helper()
	p := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	if err := p.AddExplicitNode(0, valuetype.Object); err != nil {
		t.Fatalf("AddExplicitNode: %v", err)
	}
	return &stubBuiltin{name: name, param: p}
}

func TestAddBuiltinAndAddCustomRejectIDCollision(t *testing.T) {
	ctx := New[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]()
	const id OperationID = 1

	if err := ctx.AddBuiltin(id, newStubBuiltin(t, "b1")); err != nil {
		t.Fatalf("AddBuiltin: %v", err)
	}
	if err := ctx.AddBuiltin(id, newStubBuiltin(t, "b2")); !errors.Is(err, ErrOperationIDInUse) {
		t.Fatalf("expected ErrOperationIDInUse on builtin/builtin collision, got %v", err)
	}

	custom := &program.UserDefinedOperation[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]{
		Signature: &paramgraph.Signature[valuetype.Type, valuetype.Label]{
			Name:      "c1",
			Parameter: paramgraph.NewParameter[valuetype.Type, valuetype.Label](),
			Output:    paramgraph.NewOutputChanges[valuetype.Type, valuetype.Label](),
		},
	}
	if err := ctx.AddCustom(id, custom); !errors.Is(err, ErrOperationIDInUse) {
		t.Fatalf("expected ErrOperationIDInUse on custom colliding with an existing builtin id, got %v", err)
	}
}

func TestParameterChecksBuiltinsBeforeCustom(t *testing.T) {
	ctx := New[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]()
	const builtinID OperationID = 1
	const customID OperationID = 2

	builtin := newStubBuiltin(t, "b1")
	if err := ctx.AddBuiltin(builtinID, builtin); err != nil {
		t.Fatalf("AddBuiltin: %v", err)
	}

	customParam := paramgraph.NewParameter[valuetype.Type, valuetype.Label]()
	if err := customParam.AddExplicitNode(0, valuetype.Integer); err != nil {
		t.Fatalf("AddExplicitNode: %v", err)
	}
	custom := &program.UserDefinedOperation[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]{
		Signature: &paramgraph.Signature[valuetype.Type, valuetype.Label]{
			Name:      "c1",
			Parameter: customParam,
			Output:    paramgraph.NewOutputChanges[valuetype.Type, valuetype.Label](),
		},
	}
	if err := ctx.AddCustom(customID, custom); err != nil {
		t.Fatalf("AddCustom: %v", err)
	}

	gotBuiltinParam, err := ctx.Parameter(builtinID)
	if err != nil || gotBuiltinParam != builtin.param {
		t.Fatalf("Parameter(builtinID) should return the builtin's own parameter, got %v %v", gotBuiltinParam, err)
	}
	gotCustomParam, err := ctx.Parameter(customID)
	if err != nil || gotCustomParam != customParam {
		t.Fatalf("Parameter(customID) should return the custom operation's parameter, got %v %v", gotCustomParam, err)
	}

	if _, err := ctx.Parameter(OperationID(999)); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound for an unregistered id, got %v", err)
	}
}

func TestSignatureSynthesizesOneForBuiltins(t *testing.T) {
	ctx := New[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]()
	const id OperationID = 1
	builtin := newStubBuiltin(t, "b1")
	if err := ctx.AddBuiltin(id, builtin); err != nil {
		t.Fatalf("AddBuiltin: %v", err)
	}

	sig, err := ctx.Signature(id)
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}
	if sig.Name != "b1" || sig.Parameter != builtin.param {
		t.Fatalf("synthesized builtin signature mismatch: %+v", sig)
	}
	if len(sig.Output.NewNodes) != 0 {
		t.Fatalf("a synthesized builtin signature should claim no further output guarantees")
	}
}

func TestCustomAndBuiltinLookupReturnFalseWhenAbsent(t *testing.T) {
	ctx := New[valuetype.Node, valuetype.Label, valuetype.Type, valuetype.Label]()
	if _, ok := ctx.Builtin(OperationID(1)); ok {
		t.Fatalf("Builtin should report false for an unregistered id")
	}
	if _, ok := ctx.Custom(OperationID(1)); ok {
		t.Fatalf("Custom should report false for an unregistered id")
	}
}
