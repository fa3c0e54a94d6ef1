package itemtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

func TestBuildCollectsFunctionAndGlobalItems(t *testing.T) {
	src := "int g_count = 0;\n\npublic void OnPluginStart()\n{\n\tint x = 1;\n}\n"
	syn := syntax.Parse(src)
	tree := itemtree.Build(1, syn, src, nil)

	var sawGlobal, sawFunc bool
	for _, it := range tree.Items {
		switch it.Kind {
		case itemtree.KindGlobal:
			sawGlobal = true
			assert.Equal(t, "g_count", it.Name)
		case itemtree.KindFunction:
			sawFunc = true
			assert.Equal(t, "OnPluginStart", it.Name)
			assert.Contains(t, it.SignatureText, "OnPluginStart()")
		}
	}
	assert.True(t, sawGlobal)
	assert.True(t, sawFunc)
}

func TestBuildDoesNotDescendIntoFunctionBody(t *testing.T) {
	src := "void f() {\n\tint local = 1;\n\tlocal = local + 1;\n}\n"
	syn := syntax.Parse(src)
	tree := itemtree.Build(1, syn, src, nil)
	// Only the top-level "f" should be an item; its body's local variable
	// never becomes a separate item.
	require.Len(t, tree.Items, 1)
	assert.Equal(t, "f", tree.Items[0].Name)
}

func TestBuildEnumRecordsVariants(t *testing.T) {
	src := "enum State { State_None, State_Active }\n"
	syn := syntax.Parse(src)
	tree := itemtree.Build(1, syn, src, nil)
	require.Len(t, tree.Items, 1)
	require.Equal(t, itemtree.KindEnum, tree.Items[0].Kind)
	require.Len(t, tree.Items[0].Variants, 2)
	assert.Equal(t, "State_None", tree.Variant(tree.Items[0].Variants[0]).Name)
}

func TestBuildEnumStructRecordsFieldsAndMethods(t *testing.T) {
	src := "enum struct Player {\n\tint health;\n\tvoid Reset() {\n\t\tthis.health = 100;\n\t}\n}\n"
	syn := syntax.Parse(src)
	tree := itemtree.Build(1, syn, src, nil)
	require.Len(t, tree.Items, 2) // enum struct + its one method item
	var es *itemtree.Item
	for i := range tree.Items {
		if tree.Items[i].Kind == itemtree.KindEnumStruct {
			es = &tree.Items[i]
		}
	}
	require.NotNil(t, es)
	require.Len(t, es.Fields, 1)
	assert.Equal(t, "health", es.Fields[0].Name)
	require.Len(t, es.Methods, 1)

	// The method is reachable only through es.Methods, not as its own
	// top-level entry — DefMap merges TopLevel, not Items.
	require.Len(t, tree.TopLevel, 1)
	assert.Equal(t, itemtree.KindEnumStruct, tree.Item(tree.TopLevel[0]).Kind)
}

func TestBuildMethodmapRecordsInheritAndMembers(t *testing.T) {
	src := "methodmap Gun < Weapon {\n\tpublic native void Fire();\n\tproperty int Ammo {\n\t\tpublic get() { return 0; }\n\t}\n}\n"
	syn := syntax.Parse(src)
	tree := itemtree.Build(1, syn, src, nil)
	var mm *itemtree.Item
	for i := range tree.Items {
		if tree.Items[i].Kind == itemtree.KindMethodmap {
			mm = &tree.Items[i]
		}
	}
	require.NotNil(t, mm)
	assert.Equal(t, "Weapon", mm.InheritName)
	require.Len(t, mm.Properties, 1)
	assert.Equal(t, "Ammo", mm.Properties[0].Name)
	require.Len(t, mm.Methods, 1)
}

func TestBuildIncludesDefineItemsFromMacroEnv(t *testing.T) {
	env := preprocessor.NewMacroEnv()
	env.Define(preprocessor.Macro{Name: "MAX_PLAYERS"})
	syn := syntax.Parse("")
	tree := itemtree.Build(1, syn, "", env)
	require.Len(t, tree.Items, 1)
	assert.Equal(t, itemtree.KindDefine, tree.Items[0].Kind)
	assert.Equal(t, "MAX_PLAYERS", tree.Items[0].Name)
}
