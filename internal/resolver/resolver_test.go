package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
	"github.com/sourcepawn-studio/spls/internal/resolver"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

type fakeFile struct {
	syn  *syntax.Tree
	tree *itemtree.Tree
	sm   *preprocessor.SourceMap
	orig string // preprocessed == original text for every fixture in this file
}

type fakeProvider struct {
	files    map[ids.FileID]*fakeFile
	includes map[ids.FileID][]ids.FileID
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{files: map[ids.FileID]*fakeFile{}, includes: map[ids.FileID][]ids.FileID{}}
}

// addFile parses src (treated as already "preprocessed" — no macros or
// #include lines in any fixture here) and registers an identity source map,
// since none of these tests need expansion-aware offset mapping.
func (f *fakeProvider) addFile(file ids.FileID, src string) {
	syn := syntax.Parse(src)
	tree := itemtree.Build(file, syn, src, nil)
	sm := preprocessor.NewSourceMap()
	sm.Add(preprocessor.Mapping{
		Original:     ids.ByteRange{Start: 0, End: uint32(len(src))},
		Preprocessed: ids.ByteRange{Start: 0, End: uint32(len(src))},
	})
	f.files[file] = &fakeFile{syn: syn, tree: tree, sm: sm, orig: src}
}

func (f *fakeProvider) SyntaxTree(file ids.FileID) *syntax.Tree {
	ff := f.files[file]
	if ff == nil {
		return nil
	}
	return ff.syn
}

func (f *fakeProvider) ItemTree(file ids.FileID) *itemtree.Tree {
	ff := f.files[file]
	if ff == nil {
		return nil
	}
	return ff.tree
}

func (f *fakeProvider) SourceMap(file ids.FileID) *preprocessor.SourceMap {
	ff := f.files[file]
	if ff == nil {
		return nil
	}
	return ff.sm
}

func (f *fakeProvider) PreprocessedText(file ids.FileID) string {
	ff := f.files[file]
	if ff == nil {
		return ""
	}
	return ff.orig
}

func (f *fakeProvider) OriginalText(file ids.FileID) (string, bool) {
	ff := f.files[file]
	if ff == nil {
		return "", false
	}
	return ff.orig, true
}

func (f *fakeProvider) Includes(file ids.FileID) []ids.FileID { return f.includes[file] }

func (f *fakeProvider) Files() []ids.FileID {
	out := make([]ids.FileID, 0, len(f.files))
	for id := range f.files {
		out = append(out, id)
	}
	return out
}

func buildMap(f *fakeProvider, root ids.FileID) *defmap.Map {
	return defmap.Build(root, f.Files(), f, f)
}

func offsetOf(src, substr string) uint32 {
	for i := 0; i+len(substr) <= len(src); i++ {
		if src[i:i+len(substr)] == substr {
			return uint32(i)
		}
	}
	return 0
}

func TestFindDefinitionResolvesLocalVariable(t *testing.T) {
	const root ids.FileID = 1
	src := "void f() {\n\tint total = 0;\n\ttotal += 1;\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "total +=")
	target, diags, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	assert.Nil(t, diags)
	assert.Equal(t, root, target.File)

	declOffset := offsetOf(src, "total = 0")
	assert.Equal(t, declOffset, target.Range.Start)
}

func TestFindDefinitionResolvesParameter(t *testing.T) {
	const root ids.FileID = 1
	src := "void f(int amount) {\n\treturn amount;\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "return amount") + uint32(len("return "))
	target, _, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	// A parameter's recorded location spans the whole "int amount" clause —
	// there is no separate node for just the name.
	assert.Equal(t, offsetOf(src, "int amount)"), target.Range.Start)
}

func TestFindDefinitionResolvesProjectFunction(t *testing.T) {
	const root ids.FileID = 1
	src := "void Helper() {}\nvoid f() {\n\tHelper();\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "Helper();")
	target, _, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	assert.Equal(t, offsetOf(src, "void Helper()"), target.Range.Start)
}

func TestFindDefinitionResolvesQualifiedFieldAccessThroughParamType(t *testing.T) {
	const root ids.FileID = 1
	src := "enum struct Player {\n\tint health;\n}\n\nvoid Reset(Player p) {\n\tp.health = 0;\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "health = 0")
	target, _, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	assert.Equal(t, offsetOf(src, "int health;"), target.Range.Start)
}

func TestFindDefinitionResolvesThisFieldAccessInsideMethod(t *testing.T) {
	const root ids.FileID = 1
	src := "enum struct Player {\n\tint health;\n\n\tvoid Reset() {\n\t\tthis.health = 0;\n\t}\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "health = 0")
	target, _, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	assert.Equal(t, offsetOf(src, "int health;"), target.Range.Start)
}

func TestFindDefinitionClimbsMethodmapInheritanceChain(t *testing.T) {
	const root ids.FileID = 1
	src := "methodmap Base {\n\tpublic void Greet() {}\n}\n\nmethodmap Derived < Base {\n}\n\nvoid f(Derived d) {\n\td.Greet();\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "Greet();")
	target, _, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	assert.Equal(t, offsetOf(src, "public void Greet()"), target.Range.Start)
}

func TestFindDefinitionReportsIncorrectNumberOfArguments(t *testing.T) {
	const root ids.FileID = 1
	src := "void Helper(int a, int b) {}\nvoid f() {\n\tHelper(1);\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "Helper(1)")
	_, diags, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.IncorrectNumberOfArguments, diags[0].Kind)
	assert.Equal(t, 2, diags[0].Expected)
	assert.Equal(t, 1, diags[0].Actual)
	assert.True(t, diags[0].AtLeast)
}

func TestFindDefinitionReportsUnresolvedNamedArg(t *testing.T) {
	const root ids.FileID = 1
	src := "void Helper(int a, int b) {}\nvoid f() {\n\tHelper(.a = 1, .bogus = 2);\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	useOffset := offsetOf(src, "Helper(.a")
	_, diags, ok := resolver.FindDefinition(root, useOffset, p, dm)
	require.True(t, ok)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.UnresolvedNamedArg, diags[0].Kind)
	assert.Equal(t, "bogus", diags[0].Name)
}

func TestFindReferencesCollectsEveryUseOfAFunction(t *testing.T) {
	const root ids.FileID = 1
	src := "void Helper() {}\nvoid f() {\n\tHelper();\n\tHelper();\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	declOffset := offsetOf(src, "Helper() {}")
	target, _, ok := resolver.FindDefinition(root, declOffset, p, dm)
	require.True(t, ok)

	refs := resolver.FindReferences(target, p.Files(), p, dm)
	// The declaration's own name plus both call sites.
	assert.Len(t, refs, 3)
}

func TestCompletionGeneralIncludesProjectDefsAndLocals(t *testing.T) {
	const root ids.FileID = 1
	src := "int g_count;\nvoid f() {\n\tint total;\n\t\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	cursor := offsetOf(src, "\n}\n")
	res := resolver.Completion(root, cursor, p, dm)
	assert.Equal(t, resolver.ContextGeneral, res.Context)

	var names []string
	for _, it := range res.Items {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, "g_count")
	assert.Contains(t, names, "total")
}

func TestCompletionAfterDotListsMemberFields(t *testing.T) {
	const root ids.FileID = 1
	src := "enum struct Player {\n\tint health;\n}\n\nvoid f(Player p) {\n\tp.\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	cursor := offsetOf(src, "p.\n}") + uint32(len("p."))
	res := resolver.Completion(root, cursor, p, dm)
	require.Equal(t, resolver.ContextMember, res.Context)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "health", res.Items[0].Name)
}

func TestCompletionInsideIncludePathReturnsPartialPath(t *testing.T) {
	const root ids.FileID = 1
	src := "#include <sourcemod\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	cursor := uint32(len(src) - 1) // just after "sourcemod"
	res := resolver.Completion(root, cursor, p, dm)
	assert.Equal(t, resolver.ContextIncludePath, res.Context)
	assert.Equal(t, "sourcemod", res.Partial)
}

func TestCompletionInsideHookEventStringListsEventNames(t *testing.T) {
	const root ids.FileID = 1
	src := "void f() {\n\tHookEvent(\"player_d\n}\n"
	p := newFakeProvider()
	p.addFile(root, src)
	dm := buildMap(p, root)

	cursor := offsetOf(src, "player_d") + uint32(len("player_d"))
	res := resolver.Completion(root, cursor, p, dm)
	require.Equal(t, resolver.ContextEventName, res.Context)
	var names []string
	for _, it := range res.Items {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, "player_death")
}
