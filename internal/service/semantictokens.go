package service

import (
	"context"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// HighlightKind is semantic_tokens' token-type tag, grounded on
// original_source/crates/sourcepawn_lsp/src/providers/semantic_tokens.rs's
// SemanticTokensLegend (VARIABLE, ENUM_MEMBER, FUNCTION, CLASS, METHOD,
// MACRO, PROPERTY, STRUCT, ENUM) — encoding that list into a client-facing
// LSP legend array is the transport layer's job (spec.md's Non-goals).
type HighlightKind int

const (
	HLVariable HighlightKind = iota
	HLEnumMember
	HLFunction
	HLClass
	HLMethod
	HLMacro
	HLProperty
	HLStruct
	HLEnum
)

// HighlightModifier is semantic_tokens' token-modifier tag. Only
// HLDeclaration is ever produced: the original's other three (READONLY,
// DEPRECATED, MODIFICATION) need data this engine's item tree doesn't carry
// (a const-qualifier flag, a `#pragma deprecated` annotation, an
// assignment-vs-read distinction) — adding them would mean inventing data
// the spec never asks the preprocessor/item-tree layers to record.
type HighlightModifier int

const (
	HLDeclaration HighlightModifier = iota
)

// HighlightRange is semantic_tokens' result element (spec.md §6). Range is
// in file's original (un-preprocessed) text, like every other
// FileRange-shaped result this package returns.
type HighlightRange struct {
	File      ids.FileID
	Range     ids.ByteRange
	Kind      HighlightKind
	Modifiers []HighlightModifier
}

// SemanticTokens implements spec.md §6's semantic_tokens(FileId) →
// list<HighlightRange>. Grounded on the original's per-item dispatch loop
// (build_enum/build_function/build_methodmap/...), adapted from "walk a
// stored back-reference list per item" to "walk every identifier in the
// file and resolve it on demand" (SPEC_FULL.md §4.9's memoized
// resolver.FindDefinition is this engine's equivalent of that stored list).
func (svc *Service) SemanticTokens(ctx context.Context, file ids.FileID) ([]HighlightRange, error) {
	s := svc.db.Snapshot(ctx)
	root, err := svc.rootFor(s, file)
	if err != nil {
		return nil, err
	}
	tree, err := s.ItemTree(file)
	if err != nil || tree == nil {
		return nil, err
	}
	dm, err := s.DefMap(root)
	if err != nil {
		return nil, err
	}
	sm := sourceMapOf(s, file)
	toOriginal := func(r ids.ByteRange) (ids.ByteRange, bool) {
		if sm == nil {
			return r, true
		}
		return sm.ToOriginal(r)
	}

	var out []HighlightRange
	push := func(ppRange ids.ByteRange, kind HighlightKind) {
		orig, ok := toOriginal(ppRange)
		if !ok {
			return
		}
		out = append(out, HighlightRange{File: file, Range: orig, Kind: kind, Modifiers: []HighlightModifier{HLDeclaration}})
	}

	for _, id := range dm.ItemsIn(file) {
		it := tree.Item(id)
		switch it.Kind {
		case itemtree.KindFunction:
			push(ptrRange(it.Ptr), HLFunction)
		case itemtree.KindGlobal:
			push(ptrRange(it.Ptr), HLVariable)
		case itemtree.KindEnum:
			push(ptrRange(it.Ptr), HLEnum)
			for _, vid := range it.Variants {
				push(ptrRange(tree.Variant(vid).Ptr), HLEnumMember)
			}
		case itemtree.KindEnumStruct:
			push(ptrRange(it.Ptr), HLStruct)
			for _, f := range it.Fields {
				push(ptrRange(f.Ptr), HLProperty)
			}
			for _, me := range it.Methods {
				push(ptrRange(tree.Item(me.Item).Ptr), HLMethod)
			}
		case itemtree.KindMethodmap:
			push(ptrRange(it.Ptr), HLClass)
			for _, pr := range it.Properties {
				push(ptrRange(pr.Ptr), HLProperty)
			}
			for _, me := range it.Methods {
				push(ptrRange(tree.Item(me.Item).Ptr), HLMethod)
			}
		case itemtree.KindTypedef, itemtree.KindTypeset, itemtree.KindFunctag, itemtree.KindFuncenum:
			push(ptrRange(it.Ptr), HLClass)
		case itemtree.KindDefine:
			out = append(out, HighlightRange{
				File:      it.DefinitionSite.File,
				Range:     ids.ByteRange{Start: it.DefinitionSite.Start, End: it.DefinitionSite.End},
				Kind:      HLMacro,
				Modifiers: []HighlightModifier{HLDeclaration},
			})
		}
	}

	synTree, err := s.Parse(file)
	if err != nil || synTree == nil || synTree.Root == nil {
		return out, nil
	}
	walkSemanticRefs(synTree.Root, func(n *syntax.Node) {
		orig, ok := toOriginal(n.Range)
		if !ok {
			return
		}
		target, _, err := s.Resolve(root, file, orig.Start)
		if err != nil || target.File == ids.Invalid {
			return
		}
		if desc, ok := itemAt(s, target.File, target.Range); ok {
			if target.File == file && target.Range == orig {
				return // already emitted as a declaration above
			}
			out = append(out, HighlightRange{File: file, Range: orig, Kind: desc.Kind})
			return
		}
		// Not in any item tree: a function parameter or local variable,
		// resolved against the enclosing scope rather than the project-wide
		// definition map.
		out = append(out, HighlightRange{File: file, Range: orig, Kind: HLVariable})
	})

	return out, nil
}

func ptrRange(p syntax.AstPtr) ids.ByteRange {
	return ids.ByteRange{Start: p.Start, End: p.End}
}

func walkSemanticRefs(n *syntax.Node, visit func(*syntax.Node)) {
	if n.Kind == syntax.NodeIdentExpr && n.Text != "" {
		visit(n)
	}
	for _, c := range n.Children {
		walkSemanticRefs(c, visit)
	}
}
