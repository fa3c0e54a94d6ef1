package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/config"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/query"
	"github.com/sourcepawn-studio/spls/internal/resolver"
	"github.com/sourcepawn-studio/spls/internal/vfs"
)

func offsetOf(src, substr string) uint32 {
	for i := 0; i+len(substr) <= len(src); i++ {
		if src[i:i+len(substr)] == substr {
			return uint32(i)
		}
	}
	return 0
}

func offsetRange(src, substr string) ids.ByteRange {
	start := offsetOf(src, substr)
	return ids.ByteRange{Start: start, End: start + uint32(len(substr))}
}

func TestPreprocessIsCachedUntilFileEdited(t *testing.T) {
	fs := vfs.NewMemFS()
	root := fs.WriteFile("/proj/plugin.sp", "int g_count;\n")
	db := query.NewDatabase(fs, nil)

	s1 := db.Snapshot(context.Background())
	first, err := s1.Preprocess(root)
	require.NoError(t, err)

	second, err := s1.Preprocess(root)
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated query on an unchanged snapshot must hit the cache")

	_, _ = db.SetFileContents(context.Background(), "/proj/plugin.sp", strPtr("int g_count;\nint g_other;\n"))

	s2 := db.Snapshot(context.Background())
	third, err := s2.Preprocess(root)
	require.NoError(t, err)
	assert.NotSame(t, first, third, "a revision bump must invalidate the cached result")
	assert.Contains(t, third.PreprocessedText, "g_other")
}

func TestSetFileContentsCancelsOutstandingSnapshot(t *testing.T) {
	fs := vfs.NewMemFS()
	root := fs.WriteFile("/proj/plugin.sp", "int g_count;\n")
	db := query.NewDatabase(fs, nil)

	s := db.Snapshot(context.Background())

	_, _, err := s.FileText(root)
	require.NoError(t, err, "a snapshot taken before any write must still be live")

	_, _ = db.SetFileContents(context.Background(), "/proj/other.sp", strPtr("int x;\n"))

	_, _, err = s.FileText(root)
	assert.ErrorIs(t, err, query.ErrCancelled, "a write must cancel every snapshot taken before it, even one touching an unrelated file")
}

func TestResolveFindsProjectFunctionDefinition(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "void Helper() {}\nvoid f() {\n\tHelper();\n}\n"
	root := fs.WriteFile("/proj/plugin.sp", src)
	db := query.NewDatabase(fs, nil)

	s := db.Snapshot(context.Background())
	useOffset := offsetOf(src, "Helper();")
	target, diags, err := s.Resolve(root, root, useOffset)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, root, target.File)
	assert.Equal(t, offsetOf(src, "void Helper()"), target.Range.Start)
}

func TestReferencesCollectsEveryUseAcrossAnIncludedFile(t *testing.T) {
	fs := vfs.NewMemFS()
	libSrc := "void Helper() {}\n"
	lib := fs.WriteFile("/proj/lib.sp", libSrc)
	mainSrc := "#include \"lib.sp\"\nvoid f() {\n\tHelper();\n}\nvoid g() {\n\tHelper();\n}\n"
	root := fs.WriteFile("/proj/plugin.sp", mainSrc)
	db := query.NewDatabase(fs, nil)

	s := db.Snapshot(context.Background())

	projects, err := s.ProjectGraph()
	require.NoError(t, err)
	require.Len(t, projects, 1, "an #include edge must merge both files into one project")
	assert.ElementsMatch(t, []int{int(root), int(lib)}, []int{int(projects[0].Files[0]), int(projects[0].Files[1])})

	target := resolver.Target{File: lib, Range: offsetRange(libSrc, "void Helper() {}")}
	refs, err := s.References(projects[0].Root, target)
	require.NoError(t, err)
	assert.Len(t, refs, 3, "the declaration's name in lib.sp and both calls in plugin.sp must be found")
}

func TestNewDatabaseAppliesConfiguredIncludeDirectories(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.WriteFile("/include/lib.inc", "void Helper() {}\n")
	mainSrc := "#include <lib.inc>\nvoid f() {\n\tHelper();\n}\n"
	root := fs.WriteFile("/proj/plugin.sp", mainSrc)

	cfg := &config.Config{IncludesDirectories: []string{"/include"}}
	db := query.NewDatabase(fs, cfg)

	s := db.Snapshot(context.Background())
	pp, err := s.Preprocess(root)
	require.NoError(t, err)
	require.Len(t, pp.Includes, 1, "the angle-bracket include must resolve against the configured root")
}

func TestCompletionListsProjectAndLocalNames(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "int g_count;\nvoid f() {\n\tint total;\n\t\n}\n"
	root := fs.WriteFile("/proj/plugin.sp", src)
	db := query.NewDatabase(fs, nil)

	s := db.Snapshot(context.Background())
	cursor := offsetOf(src, "\n}\n")
	res, err := s.Completion(root, root, cursor)
	require.NoError(t, err)
	assert.Equal(t, resolver.ContextGeneral, res.Context)

	var names []string
	for _, it := range res.Items {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, "g_count")
	assert.Contains(t, names, "total")
}

func TestToDiagnosticMapsCancelledAndCycleErrors(t *testing.T) {
	fs := vfs.NewMemFS()
	root := fs.WriteFile("/proj/plugin.sp", "int x;\n")

	d, ok := query.ToDiagnostic(root, ids.ByteRange{}, query.ErrCancelled)
	require.True(t, ok)
	assert.Equal(t, root, d.File)

	cycle := &query.CycleError{Names: []string{"a", "b", "a"}}
	d, ok = query.ToDiagnostic(root, ids.ByteRange{}, cycle)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "a"}, d.Names)

	_, ok = query.ToDiagnostic(root, ids.ByteRange{}, assertErr{})
	assert.False(t, ok, "an error outside the taxonomy must not be mistaken for one")
}

type assertErr struct{}

func (assertErr) Error() string { return "not a query error" }

func strPtr(s string) *string { return &s }
