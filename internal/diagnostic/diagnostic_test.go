package diagnostic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
)

func TestFromPreprocessorErrorsMapsKindsAndPreservesRange(t *testing.T) {
	rng := ids.ByteRange{Start: 3, End: 9}
	errs := []preprocessor.Error{
		{Kind: preprocessor.UnresolvedInclude, Range: rng, Message: "cannot resolve include: foo.inc"},
		{Kind: preprocessor.UnresolvedMacro, Range: rng, Message: "unresolved identifier in #if expression: FOO"},
		{Kind: preprocessor.PreprocessorEvaluationError, Range: rng, Message: "could not evaluate #if expression"},
	}

	out := diagnostic.FromPreprocessorErrors(1, errs, nil)
	require.Len(t, out, 3)
	assert.Equal(t, diagnostic.UnresolvedInclude, out[0].Kind)
	assert.Equal(t, rng, out[0].Range)
	assert.Equal(t, ids.FileID(1), out[0].File)
	assert.Equal(t, diagnostic.UnresolvedMacro, out[1].Kind)
	assert.Equal(t, diagnostic.PreprocessorEvaluationError, out[2].Kind)
}

func TestFromPreprocessorErrorsAppendsInactiveCodeRanges(t *testing.T) {
	inactive := []ids.ByteRange{{Start: 0, End: 5}, {Start: 10, End: 20}}
	out := diagnostic.FromPreprocessorErrors(1, nil, inactive)
	require.Len(t, out, 2)
	for _, d := range out {
		assert.Equal(t, diagnostic.InactiveCode, d.Kind)
	}
	assert.Equal(t, inactive[0], out[0].Range)
	assert.Equal(t, inactive[1], out[1].Range)
}
