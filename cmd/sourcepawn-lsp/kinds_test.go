package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/protocol"

	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/resolver"
	"github.com/sourcepawn-studio/spls/internal/service"
)

func TestSemanticTokenTypeIndexCoversEveryHighlightKind(t *testing.T) {
	seen := make(map[uint32]bool)
	kinds := []service.HighlightKind{
		service.HLVariable, service.HLEnumMember, service.HLFunction, service.HLClass,
		service.HLMethod, service.HLMacro, service.HLProperty, service.HLStruct, service.HLEnum,
	}
	for _, k := range kinds {
		idx := semanticTokenTypeIndex(k)
		assert.Less(t, int(idx), len(semanticTokenLegend))
		seen[idx] = true
	}
	assert.Len(t, seen, len(kinds), "every HighlightKind must map to a distinct legend index")
}

func TestSemanticTokenModifierBits(t *testing.T) {
	assert.Equal(t, uint32(1), semanticTokenModifierBits([]service.HighlightModifier{service.HLDeclaration}))
	assert.Equal(t, uint32(0), semanticTokenModifierBits(nil))
}

func TestItemtreeKindToSymbolKind(t *testing.T) {
	cases := map[itemtree.Kind]protocol.SymbolKind{
		itemtree.KindFunction:   protocol.SymbolKindFunction,
		itemtree.KindGlobal:     protocol.SymbolKindVariable,
		itemtree.KindEnum:       protocol.SymbolKindEnum,
		itemtree.KindEnumStruct: protocol.SymbolKindStruct,
		itemtree.KindMethodmap:  protocol.SymbolKindClass,
		itemtree.KindDefine:     protocol.SymbolKindConstant,
	}
	for k, want := range cases {
		assert.Equal(t, want, itemtreeKindToSymbolKind(k))
	}
}

func TestCompletionKindForDef(t *testing.T) {
	it := resolver.CompletionItem{Kind: resolver.ItemDef, DefKind: defmap.KindFunction, Name: "DoThing"}
	assert.Equal(t, protocol.CompletionItemKindFunction, completionKindFor(it))

	it = resolver.CompletionItem{Kind: resolver.ItemDef, DefKind: defmap.KindMethodmap, Name: "Handle"}
	assert.Equal(t, protocol.CompletionItemKindClass, completionKindFor(it))
}

func TestCompletionKindForNonDef(t *testing.T) {
	assert.Equal(t, protocol.CompletionItemKindVariable, completionKindFor(resolver.CompletionItem{Kind: resolver.ItemLocal}))
	assert.Equal(t, protocol.CompletionItemKindMethod, completionKindFor(resolver.CompletionItem{Kind: resolver.ItemMethod}))
	assert.Equal(t, protocol.CompletionItemKindField, completionKindFor(resolver.CompletionItem{Kind: resolver.ItemField}))
}
