package preprocessor

import "github.com/sourcepawn-studio/spls/internal/ids"

// ConditionState is the state of one #if/#elif/#else frame (spec.md §4.2
// point 6). Grounded directly on
// original_source/crates/preprocessor/src/conditions.rs's ConditionState.
type ConditionState int

const (
	// NotActivated means no branch of this conditional has been true yet;
	// a later #elif/#else may still activate.
	NotActivated ConditionState = iota
	// Activated means a branch already fired; subsequent #elif/#else in
	// this chain must be skipped even if their own condition is true.
	Activated
	// Active means this frame's code should be emitted.
	Active
)

// ConditionStack tracks nested #if frames. Code is emitted only when every
// frame on the stack is Active (spec.md §4.2 point 2).
type ConditionStack struct {
	frames []ConditionState
}

// Top returns the innermost frame, if any.
func (s *ConditionStack) Top() (ConditionState, bool) {
	if len(s.frames) == 0 {
		return 0, false
	}
	return s.frames[len(s.frames)-1], true
}

// Push adds a new innermost frame.
func (s *ConditionStack) Push(state ConditionState) {
	s.frames = append(s.frames, state)
}

// Pop removes and returns the innermost frame.
func (s *ConditionStack) Pop() (ConditionState, bool) {
	if len(s.frames) == 0 {
		return 0, false
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, true
}

// SetTop replaces the innermost frame's state in place, used by #else/#elif
// to flip between Active and Activated/NotActivated.
func (s *ConditionStack) SetTop(state ConditionState) {
	if len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1] = state
}

// AllActive reports whether every frame on the stack is Active — the
// condition under which the preprocessor emits code.
func (s *ConditionStack) AllActive() bool {
	for _, f := range s.frames {
		if f != Active {
			return false
		}
	}
	return true
}

// Depth returns the number of open conditional frames.
func (s *ConditionStack) Depth() int { return len(s.frames) }

// ConditionOffsetStack pairs with ConditionStack to remember where each
// open #if-family directive started, so #endif can record the byte span as
// an inactive range when at least one branch of the conditional was never
// Active. Grounded on conditions.rs's ConditionOffsetStack.
type ConditionOffsetStack struct {
	starts         []uint32
	hadInactive    []bool
	inactiveRanges []ids.ByteRange
}

// Push records the byte offset where a new #if/#ifdef frame begins.
func (s *ConditionOffsetStack) Push(start uint32) {
	s.starts = append(s.starts, start)
	s.hadInactive = append(s.hadInactive, false)
}

// MarkFrameHadInactiveBranch flags the innermost open frame as having
// produced at least one non-Active branch (so its whole span should be
// recorded as partially inactive once it closes).
func (s *ConditionOffsetStack) MarkFrameHadInactiveBranch() {
	if n := len(s.hadInactive); n > 0 {
		s.hadInactive[n-1] = true
	}
}

// PopAndRecord closes the innermost frame at byte offset end, appending an
// inactive range if that frame ever had a non-Active branch.
func (s *ConditionOffsetStack) PopAndRecord(end uint32) {
	n := len(s.starts)
	if n == 0 {
		return
	}
	start := s.starts[n-1]
	had := s.hadInactive[n-1]
	s.starts = s.starts[:n-1]
	s.hadInactive = s.hadInactive[:n-1]
	if had {
		s.inactiveRanges = append(s.inactiveRanges, ids.ByteRange{Start: start, End: end})
	}
}

// InactiveRanges returns every recorded inactive range, for
// PreprocessingResult.InactiveRanges (spec.md §3).
func (s *ConditionOffsetStack) InactiveRanges() []ids.ByteRange {
	return s.inactiveRanges
}
