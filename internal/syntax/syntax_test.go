package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/syntax"
)

func findFirst(n *syntax.Node, kind syntax.NodeKind) *syntax.Node {
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if found := findFirst(c, kind); found != nil {
			return found
		}
	}
	return nil
}

func countKind(n *syntax.Node, kind syntax.NodeKind) int {
	count := 0
	if n.Kind == kind {
		count++
	}
	for _, c := range n.Children {
		count += countKind(c, kind)
	}
	return count
}

func TestParseFunctionDeclaration(t *testing.T) {
	tree := syntax.Parse("public void OnPluginStart()\n{\n\tint x = 1;\n}\n")
	require.NotNil(t, tree.Root)
	fn := findFirst(tree.Root, syntax.NodeFunctionDecl)
	require.NotNil(t, fn)
	name := findFirst(fn, syntax.NodeIdentExpr)
	require.NotNil(t, name)
	assert.Equal(t, "OnPluginStart", name.Text)
	assert.NotNil(t, findFirst(fn, syntax.NodeBlock))
	assert.Empty(t, tree.Errors)
}

func TestParseGlobalVarDeclWithInitializer(t *testing.T) {
	tree := syntax.Parse("int g_count = 0;\n")
	decl := findFirst(tree.Root, syntax.NodeGlobalVarDecl)
	require.NotNil(t, decl)
	declarator := findFirst(decl, syntax.NodeDeclarator)
	require.NotNil(t, declarator)
	assert.Equal(t, "g_count", declarator.Text)
}

func TestParseEnumWithVariants(t *testing.T) {
	tree := syntax.Parse("enum State { State_None, State_Active = 2 }\n")
	e := findFirst(tree.Root, syntax.NodeEnumDecl)
	require.NotNil(t, e)
	assert.Equal(t, "State", e.Text)
	assert.Equal(t, 2, countKind(e, syntax.NodeEnumVariant))
}

func TestParseEnumStructWithFieldAndMethod(t *testing.T) {
	src := "enum struct Player {\n\tint health;\n\tvoid Reset() {\n\t\tthis.health = 100;\n\t}\n}\n"
	tree := syntax.Parse(src)
	es := findFirst(tree.Root, syntax.NodeEnumStructDecl)
	require.NotNil(t, es)
	assert.Equal(t, "Player", es.Text)
	assert.NotNil(t, findFirst(es, syntax.NodeEnumStructField))
	assert.NotNil(t, findFirst(es, syntax.NodeFunctionDecl))
}

func TestParseMethodmapWithPropertyAndMethod(t *testing.T) {
	src := "methodmap Gun < Weapon {\n\tpublic native void Fire();\n\tproperty int Ammo {\n\t\tpublic get() { return 0; }\n\t}\n}\n"
	tree := syntax.Parse(src)
	mm := findFirst(tree.Root, syntax.NodeMethodmapDecl)
	require.NotNil(t, mm)
	assert.Equal(t, "Gun", mm.Text)
	assert.NotNil(t, findFirst(mm, syntax.NodeMethodmapProperty))
	assert.NotNil(t, findFirst(mm, syntax.NodeFunctionDecl))
}

func TestParseIfWhileForStatements(t *testing.T) {
	src := "void f() {\n\tif (x > 0) { y = 1; } else { y = 2; }\n\twhile (x < 10) { x++; }\n\tfor (int i = 0; i < 10; i++) { z += i; }\n}\n"
	tree := syntax.Parse(src)
	fn := findFirst(tree.Root, syntax.NodeFunctionDecl)
	require.NotNil(t, fn)
	assert.NotNil(t, findFirst(fn, syntax.NodeIfStmt))
	assert.NotNil(t, findFirst(fn, syntax.NodeWhileStmt))
	assert.NotNil(t, findFirst(fn, syntax.NodeForStmt))
}

func TestParseCallAndFieldAccessExpressions(t *testing.T) {
	src := "void f() {\n\tg_player.Reset();\n\tPrintToServer(\"hi %d\", 1);\n}\n"
	tree := syntax.Parse(src)
	fn := findFirst(tree.Root, syntax.NodeFunctionDecl)
	require.NotNil(t, fn)
	assert.NotNil(t, findFirst(fn, syntax.NodeFieldExpr))
	assert.NotNil(t, findFirst(fn, syntax.NodeCallExpr))
}

func TestParseMalformedFunctionRecordsError(t *testing.T) {
	tree := syntax.Parse("public void Broken(\n")
	assert.NotEmpty(t, tree.Errors)
}

func TestAstPtrResolvesSameNodeForIdenticalText(t *testing.T) {
	src := "int g_count = 0;\n"
	tree1 := syntax.Parse(src)
	tree2 := syntax.Parse(src)
	decl1 := findFirst(tree1.Root, syntax.NodeGlobalVarDecl)
	ptr := syntax.PtrOf(decl1)
	resolved := ptr.Resolve(tree2)
	require.NotNil(t, resolved)
	assert.Equal(t, syntax.NodeGlobalVarDecl, resolved.Kind)
}

func TestNodeAtFindsInnermostIdentifier(t *testing.T) {
	src := "void f() {\n\tint x = 1;\n}\n"
	tree := syntax.Parse(src)
	declarator := findFirst(tree.Root, syntax.NodeDeclarator)
	require.NotNil(t, declarator)
	mid := declarator.Range.Start + 1
	node := syntax.NodeAt(tree, mid)
	require.NotNil(t, node)
}
