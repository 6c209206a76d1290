package marker

import "testing"

func TestInternerAssignsStableIncreasingMarkers(t *testing.T) {
	in := NewInterner()
	a := in.Intern("a")
	b := in.Intern("b")
	aAgain := in.Intern("a")

	if a != aAgain {
		t.Fatalf("re-interning the same name should return the same marker")
	}
	if a == b {
		t.Fatalf("distinct names should get distinct markers")
	}
	if in.Name(a) != "a" || in.Name(b) != "b" {
		t.Fatalf("Name should invert Intern")
	}
	if in.Name(SubstMarker(99)) != "" {
		t.Fatalf("Name of an unknown marker should be empty")
	}
}

func TestAIDConstructorsAndEquality(t *testing.T) {
	p1 := Parameter(SubstMarker(3))
	p2 := Parameter(SubstMarker(3))
	p3 := Parameter(SubstMarker(4))
	if p1 != p2 {
		t.Fatalf("two Parameter AIDs over the same marker should be ==")
	}
	if p1 == p3 {
		t.Fatalf("Parameter AIDs over different markers should not be ==")
	}

	d1 := DynamicOutput(CallMarker(1), OutputMarker(2))
	d2 := DynamicOutput(CallMarker(1), OutputMarker(2))
	if d1 != d2 {
		t.Fatalf("two identical DynamicOutput AIDs should be ==")
	}
	if d1 == p1 {
		t.Fatalf("AIDs of different kinds should never be ==, even with zeroed fields")
	}

	n1 := Named("x")
	n2 := Named("x")
	if n1 != n2 {
		t.Fatalf("two Named AIDs over the same name should be ==")
	}
	if n1.Kind != AIDNamed || p1.Kind != AIDParameter || d1.Kind != AIDDynamicOutput {
		t.Fatalf("constructors should set the expected Kind")
	}
}
