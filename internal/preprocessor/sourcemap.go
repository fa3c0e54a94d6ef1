package preprocessor

import (
	"sort"

	"github.com/sourcepawn-studio/spls/internal/ids"
)

// Mapping is a single (original_range, preprocessed_range) correspondence.
// Grounded on pkg/preprocessor/sourcemap.go's Mapping struct, but swapped
// from line/column pairs to byte ranges per spec.md §3, which is what makes
// binary search (rather than the teacher's linear scan over Mappings) both
// correct and O(log n).
type Mapping struct {
	Original      ids.ByteRange
	Preprocessed  ids.ByteRange
	IsExpansion   bool // true if Preprocessed is the output of a macro expansion
}

// SourceMap is a sorted-by-Preprocessed.Start list of Mappings plus the
// total lengths of both buffers (spec.md §3). Sorting is maintained
// incrementally: callers append in preprocessing order, which is already
// monotonic in both coordinate spaces for this preprocessor's single
// left-to-right pass; out-of-order input is sorted defensively by
// ensureSorted on the first query.
type SourceMap struct {
	entries        []Mapping
	originalLen    uint32
	preprocessedLen uint32
	sorted         bool
}

// NewSourceMap creates an empty source map.
func NewSourceMap() *SourceMap {
	return &SourceMap{sorted: true}
}

// Add records one mapping. Mappings must be added in non-decreasing
// Preprocessed.Start order during normal left-to-right preprocessing; Add
// tolerates out-of-order input by deferring the sort to first query.
func (sm *SourceMap) Add(m Mapping) {
	if n := len(sm.entries); n > 0 && m.Preprocessed.Start < sm.entries[n-1].Preprocessed.Start {
		sm.sorted = false
	}
	sm.entries = append(sm.entries, m)
	if m.Original.End > sm.originalLen {
		sm.originalLen = m.Original.End
	}
	if m.Preprocessed.End > sm.preprocessedLen {
		sm.preprocessedLen = m.Preprocessed.End
	}
}

func (sm *SourceMap) ensureSorted() {
	if sm.sorted {
		return
	}
	sort.Slice(sm.entries, func(i, j int) bool {
		return sm.entries[i].Preprocessed.Start < sm.entries[j].Preprocessed.Start
	})
	sm.sorted = true
}

// Len returns the number of mapping entries.
func (sm *SourceMap) Len() int { return len(sm.entries) }

// OriginalLen and PreprocessedLen return the total sizes of each buffer, as
// observed through mappings added so far.
func (sm *SourceMap) OriginalLen() uint32     { return sm.originalLen }
func (sm *SourceMap) PreprocessedLen() uint32 { return sm.preprocessedLen }

// ToPreprocessed maps an original-text offset to a preprocessed-text offset
// (spec.md §3). If pos falls inside a range whose mapping is an
// expansion, the start of the expansion's Preprocessed range is returned
// (goto-definition navigates to where the macro was invoked, not into its
// expanded body).
func (sm *SourceMap) ToPreprocessed(pos uint32) (uint32, bool) {
	sm.ensureSorted()
	idx := sort.Search(len(sm.entries), func(i int) bool {
		return sm.entries[i].Original.End > pos
	})
	for i := idx; i < len(sm.entries); i++ {
		e := sm.entries[i]
		if !e.Original.ContainsInclusive(pos) {
			if e.Original.Start > pos {
				break
			}
			continue
		}
		if e.IsExpansion {
			return e.Preprocessed.Start, true
		}
		offset := pos - e.Original.Start
		return e.Preprocessed.Start + offset, true
	}
	return 0, false
}

// ToOriginal maps a preprocessed-text byte range back to the original-text
// range it was produced from, via binary search over Preprocessed.Start
// (spec.md §3 — the inverse query, used to report diagnostics and
// definitions in the user's coordinates).
func (sm *SourceMap) ToOriginal(r ids.ByteRange) (ids.ByteRange, bool) {
	sm.ensureSorted()
	idx := sort.Search(len(sm.entries), func(i int) bool {
		return sm.entries[i].Preprocessed.End > r.Start
	})
	if idx >= len(sm.entries) {
		return ids.ByteRange{}, false
	}
	e := sm.entries[idx]
	if !e.Preprocessed.ContainsInclusive(r.Start) {
		return ids.ByteRange{}, false
	}
	if e.IsExpansion {
		return e.Original, true
	}
	startOffset := r.Start - e.Preprocessed.Start
	length := r.Len()
	return ids.ByteRange{
		Start: e.Original.Start + startOffset,
		End:   e.Original.Start + startOffset + length,
	}, true
}
