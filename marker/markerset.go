// File: markerset.go
// Role: runtime-only provenance tainting for shape-query matches.
// AI-HINT: a shape query marks the concrete nodes it bound, but that
// provenance is only visible to a caller that explicitly opts in by naming
// the tag it wants back - an untagged read sees nothing, which is what
// keeps shape-query provenance from leaking into code that never asked
// for it.

package marker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/lvlath-labs/opgraph/core"
)

// MarkerSet records, per concrete node, the set of named tags a shape query
// attached to it when it matched. It is created fresh per top-level
// concrete operation invocation and threaded through every nested call.
type MarkerSet struct {
	mu     sync.Mutex
	tagged map[core.NodeKey]map[string]struct{}
}

// NewMarkerSet returns an empty MarkerSet.
func NewMarkerSet() *MarkerSet {
	return &MarkerSet{tagged: make(map[core.NodeKey]map[string]struct{})}
}

// Tag attaches tag to n. Idempotent.
func (s *MarkerSet) Tag(n core.NodeKey, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tagged[n]
	if !ok {
		set = make(map[string]struct{})
		s.tagged[n] = set
	}
	set[tag] = struct{}{}
}

// Has reports whether n carries tag. A caller must name the exact tag it
// wants; there is no "any tag present" query, so provenance stays invisible
// to code that never asked about it.
func (s *MarkerSet) Has(n core.NodeKey, tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tagged[n]
	if !ok {
		return false
	}
	_, ok = set[tag]
	return ok
}

// Tags returns every tag attached to n.
func (s *MarkerSet) Tags(n core.NodeKey) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.tagged[n]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return out
}

// Trace accumulates a human-readable record of instruction dispatch and
// merge decisions for one top-level concrete operation invocation - the Go
// counterpart to the original engine's diagnostic trace, consumed through
// hclog rather than a dedicated log target. ID distinguishes the entries of
// concurrent top-level runs once a host interleaves several traces into one
// log stream.
type Trace struct {
	mu      sync.Mutex
	ID      string
	entries []string
}

// NewTrace returns an empty Trace carrying a fresh run id.
func NewTrace() *Trace { return &Trace{ID: uuid.NewString()} }

// Record appends one entry.
func (t *Trace) Record(entry string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
}

// Entries returns every recorded entry, in order.
func (t *Trace) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.entries...)
}
