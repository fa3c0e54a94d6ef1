package defmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

type fakeProject struct {
	trees    map[ids.FileID]*itemtree.Tree
	syns     map[ids.FileID]*syntax.Tree
	includes map[ids.FileID][]ids.FileID
}

func (f *fakeProject) ItemTree(file ids.FileID) *itemtree.Tree { return f.trees[file] }
func (f *fakeProject) SyntaxTree(file ids.FileID) *syntax.Tree { return f.syns[file] }
func (f *fakeProject) Includes(file ids.FileID) []ids.FileID   { return f.includes[file] }

func build(file ids.FileID, src string) (*syntax.Tree, *itemtree.Tree) {
	syn := syntax.Parse(src)
	tree := itemtree.Build(file, syn, src, nil)
	return syn, tree
}

func TestBuildMergesAcrossIncludesWithDFSOrder(t *testing.T) {
	const root ids.FileID = 1
	const inc ids.FileID = 2

	rootSyn, rootTree := build(root, "#include <a>\nint g_root = 1;\n")
	incSyn, incTree := build(inc, "int g_shared = 2;\n")

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: rootTree, inc: incTree},
		syns:     map[ids.FileID]*syntax.Tree{root: rootSyn, inc: incSyn},
		includes: map[ids.FileID][]ids.FileID{root: {inc}},
	}

	m := defmap.Build(root, []ids.FileID{root, inc}, p, p)

	rootDef, ok := m.Lookup("g_root")
	require.True(t, ok)
	assert.Equal(t, defmap.KindGlobal, rootDef.Kind)

	incDef, ok := m.Lookup("g_shared")
	require.True(t, ok)
	assert.Equal(t, inc, incDef.File)
}

func TestBuildLaterVisitedDefinitionWinsAndRecordsCollision(t *testing.T) {
	const root ids.FileID = 1
	const inc ids.FileID = 2

	rootSyn, rootTree := build(root, "#include <a>\nint Dup() { return 1; }\n")
	incSyn, incTree := build(inc, "int Dup() { return 2; }\n")

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: rootTree, inc: incTree},
		syns:     map[ids.FileID]*syntax.Tree{root: rootSyn, inc: incSyn},
		includes: map[ids.FileID][]ids.FileID{root: {inc}},
	}

	m := defmap.Build(root, []ids.FileID{root, inc}, p, p)

	winner, ok := m.Lookup("Dup")
	require.True(t, ok)
	// The DFS visits root first, then inc — inc's definition is later-visited
	// and must win.
	assert.Equal(t, inc, winner.File)

	collisions := m.Collisions("Dup")
	require.Len(t, collisions, 2)
	assert.Equal(t, root, collisions[0].File)
	assert.Equal(t, inc, collisions[1].File)
}

func TestBuildOmitsEnumStructMethodsFromTopLevelNames(t *testing.T) {
	const root ids.FileID = 1
	src := "enum struct Player {\n\tint health;\n\tvoid Reset() {\n\t\tthis.health = 0;\n\t}\n}\n"
	syn, tree := build(root, src)

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: tree},
		syns:     map[ids.FileID]*syntax.Tree{root: syn},
		includes: map[ids.FileID][]ids.FileID{},
	}

	m := defmap.Build(root, []ids.FileID{root}, p, p)

	_, ok := m.Lookup("Reset")
	assert.False(t, ok, "methods are not project-scope names")

	playerDef, ok := m.Lookup("Player")
	require.True(t, ok)
	assert.Equal(t, defmap.KindEnumStruct, playerDef.Kind)
}

func TestBuildRecordsEnumVariantsAsVariantKind(t *testing.T) {
	const root ids.FileID = 1
	syn, tree := build(root, "enum State { State_None, State_Active }\n")

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: tree},
		syns:     map[ids.FileID]*syntax.Tree{root: syn},
		includes: map[ids.FileID][]ids.FileID{},
	}

	m := defmap.Build(root, []ids.FileID{root}, p, p)

	def, ok := m.Lookup("State_Active")
	require.True(t, ok)
	assert.Equal(t, defmap.KindVariant, def.Kind)
	assert.True(t, def.HasVariant)
}

func TestItemsInReturnsReverseIndexForDocumentSymbols(t *testing.T) {
	const root ids.FileID = 1
	syn, tree := build(root, "int g_a = 1;\nint g_b = 2;\n")

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: tree},
		syns:     map[ids.FileID]*syntax.Tree{root: syn},
		includes: map[ids.FileID][]ids.FileID{},
	}

	m := defmap.Build(root, []ids.FileID{root}, p, p)
	assert.Len(t, m.ItemsIn(root), 2)
}

func TestChildScopeCollectsFunctionParamsAndLocals(t *testing.T) {
	const root ids.FileID = 1
	src := "void f(int amount) {\n\tint total = amount;\n\tfor (int i = 0; i < 10; i++) {\n\t\ttotal += i;\n\t}\n}\n"
	syn, tree := build(root, src)

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: tree},
		syns:     map[ids.FileID]*syntax.Tree{root: syn},
		includes: map[ids.FileID][]ids.FileID{},
	}

	m := defmap.Build(root, []ids.FileID{root}, p, p)
	def, ok := m.Lookup("f")
	require.True(t, ok)

	scope := m.ChildScope(root, def.Item, p)
	require.NotNil(t, scope)
	assert.True(t, scope.Has("amount"))
	assert.True(t, scope.Has("total"))
	assert.True(t, scope.Has("i"))
	assert.False(t, scope.Has("nonexistent"))

	// Calling again must return the cached scope, not rebuild it.
	assert.Same(t, scope, m.ChildScope(root, def.Item, p))
}

func TestChildScopeForEnumStructUsesFieldsWithoutSyntaxTree(t *testing.T) {
	const root ids.FileID = 1
	src := "enum struct Player {\n\tint health;\n\tvoid Reset() {}\n}\n"
	_, tree := build(root, src)

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: tree},
		includes: map[ids.FileID][]ids.FileID{},
	}

	m := defmap.Build(root, []ids.FileID{root}, p, p)
	def, ok := m.Lookup("Player")
	require.True(t, ok)

	scope := m.ChildScope(root, def.Item, nil)
	require.NotNil(t, scope)
	assert.True(t, scope.Has("health"))
}

func TestChildScopeRecordsDeclaredTypeForBareIdentifierTypes(t *testing.T) {
	const root ids.FileID = 1
	src := "void f() {\n\tPlayer p;\n}\n"
	syn, tree := build(root, src)

	p := &fakeProject{
		trees:    map[ids.FileID]*itemtree.Tree{root: tree},
		syns:     map[ids.FileID]*syntax.Tree{root: syn},
		includes: map[ids.FileID][]ids.FileID{},
	}

	m := defmap.Build(root, []ids.FileID{root}, p, p)
	def, ok := m.Lookup("f")
	require.True(t, ok)

	scope := m.ChildScope(root, def.Item, p)
	require.NotNil(t, scope)
	typ, ok := scope.TypeOf("p")
	require.True(t, ok)
	assert.Equal(t, "Player", typ)
}
