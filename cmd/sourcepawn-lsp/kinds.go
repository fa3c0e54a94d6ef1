package main

import (
	"go.lsp.dev/protocol"

	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/resolver"
	"github.com/sourcepawn-studio/spls/internal/service"
)

// semanticTokenLegend is the fixed token-type/modifier ordering advertised in
// initialize's capabilities and indexed into by encodeSemanticTokens.
// Grounded on bufbuild-buf/private/buf/buflsp/server.go's local
// SematicTokensLegend/semanticTypeLegend, itself built the same way gopls
// builds its own legend: one string per iota-ordered token-type constant.
var semanticTokenLegend = []string{
	"variable",
	"enumMember",
	"function",
	"class",
	"method",
	"macro",
	"property",
	"struct",
	"enum",
}

var semanticTokenModifiers = []string{"declaration"}

func semanticTokenTypeIndex(k service.HighlightKind) uint32 {
	switch k {
	case service.HLVariable:
		return 0
	case service.HLEnumMember:
		return 1
	case service.HLFunction:
		return 2
	case service.HLClass:
		return 3
	case service.HLMethod:
		return 4
	case service.HLMacro:
		return 5
	case service.HLProperty:
		return 6
	case service.HLStruct:
		return 7
	case service.HLEnum:
		return 8
	default:
		return 0
	}
}

func semanticTokenModifierBits(mods []service.HighlightModifier) uint32 {
	var bits uint32
	for _, m := range mods {
		if m == service.HLDeclaration {
			bits |= 1 << 0
		}
	}
	return bits
}

// itemtreeKindToSymbolKind maps a document-symbol entry's itemtree.Kind to
// the wire's fixed SymbolKind enumeration (LSP 3.17 §SymbolKind), the same
// numeric space bufbuild-buf/private/buf/buflsp exercises for its own
// protobuf-message/field/enum symbols.
func itemtreeKindToSymbolKind(k itemtree.Kind) protocol.SymbolKind {
	switch k {
	case itemtree.KindFunction:
		return protocol.SymbolKindFunction
	case itemtree.KindGlobal:
		return protocol.SymbolKindVariable
	case itemtree.KindEnum:
		return protocol.SymbolKindEnum
	case itemtree.KindEnumStruct:
		return protocol.SymbolKindStruct
	case itemtree.KindMethodmap:
		return protocol.SymbolKindClass
	case itemtree.KindTypedef, itemtree.KindTypeset, itemtree.KindFunctag, itemtree.KindFuncenum:
		return protocol.SymbolKindInterface
	case itemtree.KindDefine:
		return protocol.SymbolKindConstant
	default:
		return protocol.SymbolKindVariable
	}
}

// completionKindFor maps one resolver.CompletionItem to the wire's
// CompletionItemKind, consulting DefKind when the candidate came from the
// project definition map (ItemDef) and the enclosing ItemKind otherwise.
func completionKindFor(it resolver.CompletionItem) protocol.CompletionItemKind {
	switch it.Kind {
	case resolver.ItemDef:
		switch it.DefKind {
		case defmap.KindFunction:
			return protocol.CompletionItemKindFunction
		case defmap.KindGlobal:
			return protocol.CompletionItemKindVariable
		case defmap.KindEnumStruct:
			return protocol.CompletionItemKindStruct
		case defmap.KindMethodmap:
			return protocol.CompletionItemKindClass
		case defmap.KindEnum:
			return protocol.CompletionItemKindEnum
		case defmap.KindVariant:
			return protocol.CompletionItemKindEnumMember
		default:
			return protocol.CompletionItemKindClass
		}
	case resolver.ItemLocal:
		return protocol.CompletionItemKindVariable
	case resolver.ItemField, resolver.ItemProperty:
		return protocol.CompletionItemKindField
	case resolver.ItemMethod:
		return protocol.CompletionItemKindMethod
	case resolver.ItemEnumVariant:
		return protocol.CompletionItemKindEnumMember
	case resolver.ItemEventName:
		return protocol.CompletionItemKindKeyword
	default:
		return protocol.CompletionItemKindText
	}
}
