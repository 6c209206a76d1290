package program

import (
	"testing"

	"github.com/lvlath-labs/opgraph/marker"
)

// TestInstructionKindsAreDistinct is a smoke check that Instruction's
// flattened-variant Kind values are pairwise distinct, the way callers
// switch on Kind to decide which of its fields are meaningful.
func TestInstructionKindsAreDistinct(t *testing.T) {
	kinds := []InstrKind{
		InstrAddNode, InstrAddEdge, InstrDeleteNode, InstrDeleteEdge,
		InstrSetNodeValue, InstrSetEdgeValue, InstrCall, InstrBranch, InstrReturn,
	}
	seen := make(map[InstrKind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			t.Fatalf("duplicate InstrKind value %v", k)
		}
		seen[k] = true
	}
}

func TestBranchInstructionCarriesBothArms(t *testing.T) {
	then := []Instruction[int, string, int, string]{{Kind: InstrAddNode}}
	els := []Instruction[int, string, int, string]{{Kind: InstrDeleteNode}}
	instr := Instruction[int, string, int, string]{
		Kind: InstrBranch,
		Query: &ShapeQuery[int, string]{
			Pattern: &ParameterRef[int, string]{
				Nodes:          map[marker.SubstMarker]int{0: 1},
				ExplicitInputs: []marker.SubstMarker{0},
			},
			Tag: "matched",
		},
		Then: then,
		Else: els,
	}
	if len(instr.Then) != 1 || instr.Then[0].Kind != InstrAddNode {
		t.Fatalf("Then arm not carried correctly: %+v", instr.Then)
	}
	if len(instr.Else) != 1 || instr.Else[0].Kind != InstrDeleteNode {
		t.Fatalf("Else arm not carried correctly: %+v", instr.Else)
	}
	if instr.Query.Tag != "matched" {
		t.Fatalf("Query.Tag not carried correctly: %q", instr.Query.Tag)
	}
}
