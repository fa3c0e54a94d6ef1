package query

import (
	"errors"
	"strings"

	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
)

// ErrCancelled is returned by any query evaluated against a snapshot that a
// concurrent write has since invalidated (spec.md §5).
var ErrCancelled = errors.New("query: cancelled")

// CycleError reports a query that, while computing, was asked to compute
// itself again — a DAG violation spec.md §5 requires rejecting outright
// rather than deadlocking or recursing forever.
type CycleError struct {
	Names []string // query keys on the cycle, in recursion order
}

func (e *CycleError) Error() string {
	return "query: cycle detected: " + strings.Join(e.Names, " -> ")
}

// ToDiagnostic converts a query error into spec.md §7's unified taxonomy,
// for callers that want to surface it the same way as any other
// resolver-raised problem. Returns false for errors outside the taxonomy.
func ToDiagnostic(file ids.FileID, rng ids.ByteRange, err error) (diagnostic.Diagnostic, bool) {
	switch {
	case errors.Is(err, ErrCancelled):
		return diagnostic.Diagnostic{Kind: diagnostic.Cancelled, File: file, Range: rng}, true
	default:
		var cycle *CycleError
		if errors.As(err, &cycle) {
			return diagnostic.Diagnostic{Kind: diagnostic.QueryCycle, File: file, Range: rng, Names: cycle.Names}, true
		}
	}
	return diagnostic.Diagnostic{}, false
}
