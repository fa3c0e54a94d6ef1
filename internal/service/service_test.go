package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/config"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/service"
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

func TestGotoDefinitionAcrossInclude(t *testing.T) {
	fs := vfs.NewMemFS()
	libSrc := "int foo;\n"
	lib := fs.WriteFile("/proj/bar.sp", libSrc)
	mainSrc := "#include \"bar.sp\"\nvoid use() {\n\tfoo = 1;\n}\n"
	main := fs.WriteFile("/proj/main.sp", mainSrc)
	svc := service.New(fs, nil)

	target, diags, err := svc.GotoDefinition(context.Background(), ids.FilePosition{File: main, Offset: offsetOf(mainSrc, "foo = 1")})
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, target, 1)
	assert.Equal(t, lib, target[0].File)
	assert.Equal(t, offsetOf(libSrc, "foo"), target[0].Range.Start)
}

func TestHoverDescribesFunctionSignature(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "void Helper(int a, int b) {}\nvoid f() {\n\tHelper(1, 2);\n}\n"
	file := fs.WriteFile("/proj/plugin.sp", src)
	svc := service.New(fs, nil)

	hover, err := svc.Hover(context.Background(), ids.FilePosition{File: file, Offset: offsetOf(src, "Helper(1, 2)")})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "void Helper(int a, int b)", hover.Contents)
	assert.Equal(t, offsetOf(src, "void Helper"), hover.Target.Start)
}

func TestHoverDescribesEnumStructField(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "enum struct Player {\n\tint health;\n}\n\nvoid Reset(Player p) {\n\tp.health = 0;\n}\n"
	file := fs.WriteFile("/proj/plugin.sp", src)
	svc := service.New(fs, nil)

	hover, err := svc.Hover(context.Background(), ids.FilePosition{File: file, Offset: offsetOf(src, "health = 0")})
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "Player.health (property)", hover.Contents)
}

func TestReferencesIncludesDeclarationAndEveryUse(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "void Helper() {}\nvoid f() {\n\tHelper();\n\tHelper();\n}\n"
	file := fs.WriteFile("/proj/plugin.sp", src)
	svc := service.New(fs, nil)

	refs, err := svc.References(context.Background(), ids.FilePosition{File: file, Offset: offsetOf(src, "void Helper()")})
	require.NoError(t, err)
	assert.Len(t, refs, 3, "the declaration plus both calls")
}

func TestRenameProducesEditsGroupedPerFile(t *testing.T) {
	fs := vfs.NewMemFS()
	libSrc := "void Helper() {}\n"
	lib := fs.WriteFile("/proj/lib.sp", libSrc)
	mainSrc := "#include \"lib.sp\"\nvoid f() {\n\tHelper();\n}\n"
	main := fs.WriteFile("/proj/plugin.sp", mainSrc)
	svc := service.New(fs, nil)

	change, err := svc.Rename(context.Background(), ids.FilePosition{File: main, Offset: offsetOf(mainSrc, "Helper();")}, "DoHelp")
	require.NoError(t, err)
	require.NotNil(t, change)
	require.Len(t, change.Files, 2)

	var sawLib, sawMain bool
	for _, fe := range change.Files {
		for _, e := range fe.Edits {
			assert.Equal(t, "DoHelp", e.NewText)
		}
		switch fe.File {
		case lib:
			sawLib = true
		case main:
			sawMain = true
		}
	}
	assert.True(t, sawLib)
	assert.True(t, sawMain)
}

func TestDocumentSymbolsListsTopLevelAndNestedMembers(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "enum struct Player {\n\tint health;\n\n\tvoid Reset() {\n\t\tthis.health = 0;\n\t}\n}\n\nint g_count;\n"
	file := fs.WriteFile("/proj/plugin.sp", src)
	svc := service.New(fs, nil)

	symbols, err := svc.DocumentSymbols(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	player := symbols[0]
	assert.Equal(t, "Player", player.Name)
	assert.Equal(t, itemtree.KindEnumStruct, player.Kind)
	require.Len(t, player.Children, 2)
	assert.Equal(t, "health", player.Children[0].Name)
	assert.Equal(t, "Reset", player.Children[1].Name)

	assert.Equal(t, "g_count", symbols[1].Name)
}

func TestSemanticTokensTagsDeclarationAndReferences(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "void Helper() {}\nvoid f() {\n\tHelper();\n}\n"
	file := fs.WriteFile("/proj/plugin.sp", src)
	svc := service.New(fs, nil)

	toks, err := svc.SemanticTokens(context.Background(), file)
	require.NoError(t, err)

	var decl, ref, other bool
	for _, tok := range toks {
		if tok.Kind != service.HLFunction {
			continue
		}
		switch tok.Range.Start {
		case offsetOf(src, "Helper()"):
			decl = true
			assert.Contains(t, tok.Modifiers, service.HLDeclaration)
		case offsetOf(src, "Helper();"):
			ref = true
			assert.NotContains(t, tok.Modifiers, service.HLDeclaration)
		default:
			other = true
		}
	}
	assert.True(t, decl, "the declaration site must be tagged")
	assert.True(t, ref, "the call site must be tagged")
	assert.False(t, other)
}

func TestSignatureHelpReportsActiveParameter(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "void Helper(int a, int b) {}\nvoid f() {\n\tHelper(1, 2);\n}\n"
	file := fs.WriteFile("/proj/plugin.sp", src)
	svc := service.New(fs, nil)

	help, err := svc.SignatureHelp(context.Background(), ids.FilePosition{File: file, Offset: offsetOf(src, "2);")})
	require.NoError(t, err)
	require.NotNil(t, help)
	assert.Equal(t, "void Helper(int a, int b)", help.Label)
	assert.Equal(t, 1, help.ActiveParameter)
}

func TestApplyChangeAssignsFileIDsAndUpdatesIncludeRoots(t *testing.T) {
	fs := vfs.NewMemFS()
	fs.WriteFile("/include/lib.inc", "void Helper() {}\n")
	svc := service.New(fs, &config.Config{})

	text := "#include <lib.inc>\nvoid f() {\n\tHelper();\n}\n"
	assigned := svc.ApplyChange(context.Background(), service.Change{
		Roots:        []string{"/include"},
		FilesChanged: []service.FileChange{{Path: "/proj/plugin.sp", Text: &text}},
	})
	require.Len(t, assigned, 1)

	target, _, err := svc.GotoDefinition(context.Background(), ids.FilePosition{File: assigned[0], Offset: offsetOf(text, "Helper();")})
	require.NoError(t, err)
	require.Len(t, target, 1, "the configured include root must resolve the angle-bracket include")
}

func TestCompletionsListsProjectNames(t *testing.T) {
	fs := vfs.NewMemFS()
	src := "int g_count;\nvoid f() {\n\t\n}\n"
	file := fs.WriteFile("/proj/plugin.sp", src)
	svc := service.New(fs, nil)

	res, err := svc.Completions(context.Background(), ids.FilePosition{File: file, Offset: offsetOf(src, "\n}\n")}, "")
	require.NoError(t, err)

	var names []string
	for _, it := range res.Items {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, "g_count")
}
