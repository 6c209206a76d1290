package semantics

import "testing"

func TestNewWiresAllSixRelations(t *testing.T) {
	matchNode := func(have, want int) bool { return have == want }
	matchEdge := func(have, want string) bool { return have == want }
	joinNode := func(a, b int) (int, bool) {
		if a == b {
			return a, true
		}
		return 0, false
	}
	joinEdge := func(a, b string) (string, bool) {
		if a == b {
			return a, true
		}
		return "", false
	}
	toAbsNode := func(n int64) int { return int(n) }
	toAbsEdge := func(e rune) string { return string(e) }

	p := New[int64, rune, int, string](matchNode, matchEdge, joinNode, joinEdge, toAbsNode, toAbsEdge)

	if !p.MatchNode(3, 3) || p.MatchNode(3, 4) {
		t.Fatalf("MatchNode not wired correctly")
	}
	if !p.MatchEdge("a", "a") || p.MatchEdge("a", "b") {
		t.Fatalf("MatchEdge not wired correctly")
	}
	if joined, ok := p.JoinNode(5, 5); !ok || joined != 5 {
		t.Fatalf("JoinNode not wired correctly: %v %v", joined, ok)
	}
	if _, ok := p.JoinNode(5, 6); ok {
		t.Fatalf("JoinNode should report failure for unequal ints")
	}
	if joined, ok := p.JoinEdge("x", "x"); !ok || joined != "x" {
		t.Fatalf("JoinEdge not wired correctly: %v %v", joined, ok)
	}
	if p.ToAbstractNode(7) != 7 {
		t.Fatalf("ToAbstractNode not wired correctly")
	}
	if got := p.ToAbstractEdge('q'); got != string(rune('q')) {
		t.Fatalf("ToAbstractEdge not wired correctly: %q", got)
	}
}

func TestOptionMutatesPluginAfterConstruction(t *testing.T) {
	base := func(have, want int) bool { return have == want }
	joinNode := func(a, b int) (int, bool) { return a, true }
	joinEdge := func(a, b string) (string, bool) { return a, true }
	matchEdge := func(have, want string) bool { return have == want }

	overridden := false
	withAlwaysMatch := func(p *Plugin[int64, rune, int, string]) {
		p.MatchNode = func(have, want int) bool {
			overridden = true
			return true
		}
	}

	p := New[int64, rune, int, string](base, matchEdge, joinNode, joinEdge,
		func(n int64) int { return int(n) }, func(e rune) string { return string(e) },
		withAlwaysMatch)

	if !p.MatchNode(1, 2) {
		t.Fatalf("option should have replaced MatchNode to always succeed")
	}
	if !overridden {
		t.Fatalf("replaced MatchNode was never actually invoked")
	}
}
