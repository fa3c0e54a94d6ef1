// Package resolver implements spec.md §4.8: given a cursor position, map it
// through the source map to a preprocessed offset, locate the syntax node,
// and resolve the name against the project's definition map and the local
// scopes of its enclosing function/method or enum-struct/methodmap.
//
// Grounded on internal/defmap (the DefMap and Scope this package resolves
// against) and internal/syntax's PathTo/NodeAt (the ancestor-chain walk used
// to tell a qualified access apart from a free identifier). The call-site
// argument-count/named-argument checks are grounded on
// original_source/crates/ide-diagnostics/src/handlers/incorrect_number_of_arguments.rs
// and unresolved_named_arg.rs (SPEC_FULL.md §4.8).
package resolver

import (
	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// Provider resolves the per-file artifacts the resolver reads. It is
// satisfied by the query engine's snapshot view (internal/query) and, in
// tests, by a fake directly wiring fixed trees. It structurally satisfies
// defmap.SyntaxTrees, so a Provider can be passed anywhere a Map's ChildScope
// needs one.
type Provider interface {
	SyntaxTree(file ids.FileID) *syntax.Tree
	ItemTree(file ids.FileID) *itemtree.Tree
	SourceMap(file ids.FileID) *preprocessor.SourceMap
	// PreprocessedText returns the file's preprocessed buffer — only
	// completion's textual accessor-detection needs this.
	PreprocessedText(file ids.FileID) string
	// OriginalText returns the file's unpreprocessed buffer, and false if
	// unavailable — only completion's #include/HookEvent textual context
	// detection needs this, since #include lines never survive into the
	// preprocessed buffer at all.
	OriginalText(file ids.FileID) (string, bool)
}

// Target is a navigation result: a byte range in file's original (un-
// preprocessed) text, matching FileRange in spec.md §6's LSP-facing API.
type Target struct {
	File  ids.FileID
	Range ids.ByteRange
}

// FindDefinition implements spec.md §4.8's first query. userOffset is a byte
// offset into file's original text. Diagnostics is non-nil only when the
// identifier under the cursor is the callee of a call expression resolving
// to a function/method — the call-site argument checks run as a side effect
// of that resolution (SPEC_FULL.md §4.8), not as a separate query.
func FindDefinition(file ids.FileID, userOffset uint32, p Provider, dm *defmap.Map) (Target, []diagnostic.Diagnostic, bool) {
	ppOffset, leaf, path, ok := locate(file, userOffset, p)
	if !ok || leaf.Kind != syntax.NodeIdentExpr || leaf.Text == "" {
		return Target{}, nil, false
	}
	name := leaf.Text
	parent := parentOf(path)

	// a.b / a::b — leaf is the member side of a qualified access.
	if parent != nil && isAccessor(parent.Kind) && len(parent.Children) == 2 && parent.Children[1] == leaf {
		typeName, ok := typeOfObject(file, path, parent.Children[0], p, dm)
		if !ok {
			return Target{}, nil, false
		}
		t, ok := resolveMember(typeName, name, p, dm)
		return t, nil, ok
	}

	var diags []diagnostic.Diagnostic
	if parent != nil && parent.Kind == syntax.NodeCallExpr && len(parent.Children) == 2 && parent.Children[0] == leaf {
		if d, ok := dm.Lookup(name); ok && d.Kind == defmap.KindFunction {
			diags = checkCallSite(file, parent, d, name, p)
		}
	}

	if fnItem, ok := enclosingFunctionItem(file, path, p); ok {
		scope := dm.ChildScope(file, fnItem, p)
		if loc, ok := scope.LocationOf(name); ok {
			if t, ok := targetFromRange(file, loc, p); ok {
				return t, diags, true
			}
		}
	}

	if memberItem, ok := enclosingMemberItem(file, path, p); ok {
		scope := dm.ChildScope(file, memberItem, p)
		if loc, ok := scope.LocationOf(name); ok {
			if t, ok := targetFromRange(file, loc, p); ok {
				return t, diags, true
			}
		}
	}

	if d, ok := dm.Lookup(name); ok {
		if t, ok := targetFromDef(d, p); ok {
			return t, diags, true
		}
	}

	return Target{}, diags, false
}

func isAccessor(k syntax.NodeKind) bool {
	return k == syntax.NodeFieldExpr || k == syntax.NodeScopeExpr
}

func locate(file ids.FileID, userOffset uint32, p Provider) (ppOffset uint32, leaf *syntax.Node, path []*syntax.Node, ok bool) {
	tree := p.SyntaxTree(file)
	if tree == nil {
		return 0, nil, nil, false
	}
	pp := userOffset
	if sm := p.SourceMap(file); sm != nil {
		if mapped, mok := sm.ToPreprocessed(userOffset); mok {
			pp = mapped
		}
	}
	path = syntax.PathTo(tree, pp)
	if len(path) == 0 {
		return 0, nil, nil, false
	}
	return pp, path[len(path)-1], path, true
}

func parentOf(path []*syntax.Node) *syntax.Node {
	if len(path) < 2 {
		return nil
	}
	return path[len(path)-2]
}

// enclosingFunctionItem finds the nearest NodeFunctionDecl ancestor in path
// and returns the item tree entry it corresponds to.
func enclosingFunctionItem(file ids.FileID, path []*syntax.Node, p Provider) (itemtree.ItemId, bool) {
	node, ok := findAncestor(path, syntax.NodeFunctionDecl)
	if !ok {
		return 0, false
	}
	return itemIdForNode(p.ItemTree(file), node)
}

// enclosingMemberItem finds the nearest enum-struct/methodmap ancestor in
// path and returns the item tree entry it corresponds to.
func enclosingMemberItem(file ids.FileID, path []*syntax.Node, p Provider) (itemtree.ItemId, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i].Kind {
		case syntax.NodeEnumStructDecl, syntax.NodeMethodmapDecl:
			return itemIdForNode(p.ItemTree(file), path[i])
		}
	}
	return 0, false
}

func findAncestor(path []*syntax.Node, kind syntax.NodeKind) (*syntax.Node, bool) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Kind == kind {
			return path[i], true
		}
	}
	return nil, false
}

func itemIdForNode(tree *itemtree.Tree, node *syntax.Node) (itemtree.ItemId, bool) {
	if tree == nil || node == nil {
		return 0, false
	}
	want := syntax.PtrOf(node)
	for i, it := range tree.Items {
		if it.Ptr == want {
			return itemtree.ItemId(i), true
		}
	}
	return 0, false
}

// typeOfObject resolves the type name of the object half of a qualified
// access (the "first resolve a, obtain its type" step of spec.md §4.8).
func typeOfObject(file ids.FileID, path []*syntax.Node, obj *syntax.Node, p Provider, dm *defmap.Map) (string, bool) {
	switch obj.Kind {
	case syntax.NodeThisExpr:
		item, ok := enclosingMemberItem(file, path, p)
		if !ok {
			return "", false
		}
		tree := p.ItemTree(file)
		if tree == nil {
			return "", false
		}
		return tree.Item(item).Name, true
	case syntax.NodeIdentExpr:
		name := obj.Text
		if fnItem, ok := enclosingFunctionItem(file, path, p); ok {
			if t, ok := dm.ChildScope(file, fnItem, p).TypeOf(name); ok {
				return t, true
			}
		}
		if memberItem, ok := enclosingMemberItem(file, path, p); ok {
			if t, ok := dm.ChildScope(file, memberItem, p).TypeOf(name); ok {
				return t, true
			}
		}
		if d, ok := dm.Lookup(name); ok && (d.Kind == defmap.KindEnumStruct || d.Kind == defmap.KindMethodmap) {
			return name, true
		}
		return "", false
	default:
		// Deeper expressions (a call result, an index expression, a nested
		// field access) would need a type inferred from a signature's return
		// type — not tracked anywhere in the item tree, so qualified access
		// on anything but a bare identifier or `this` is unsupported.
		return "", false
	}
}

// resolveMember looks up member in typeName's member scope, climbing a
// methodmap's inheritance chain (spec.md §4.7 MethodmapItem.inherit) when
// not found directly.
func resolveMember(typeName, member string, p Provider, dm *defmap.Map) (Target, bool) {
	seen := map[string]bool{}
	for typeName != "" && !seen[typeName] {
		seen[typeName] = true
		def, ok := dm.Lookup(typeName)
		if !ok || (def.Kind != defmap.KindEnumStruct && def.Kind != defmap.KindMethodmap) {
			return Target{}, false
		}
		tree := p.ItemTree(def.File)
		if tree == nil {
			return Target{}, false
		}
		item := tree.Item(def.Item)
		for _, f := range item.Fields {
			if f.Name == member {
				return targetFromRange(def.File, ids.ByteRange{Start: f.Ptr.Start, End: f.Ptr.End}, p)
			}
		}
		for _, pr := range item.Properties {
			if pr.Name == member {
				return targetFromRange(def.File, ids.ByteRange{Start: pr.Ptr.Start, End: pr.Ptr.End}, p)
			}
		}
		for _, me := range item.Methods {
			mItem := tree.Item(me.Item)
			if mItem.Name == member {
				return targetFromRange(def.File, ids.ByteRange{Start: mItem.Ptr.Start, End: mItem.Ptr.End}, p)
			}
		}
		typeName = item.InheritName
	}
	return Target{}, false
}

func targetFromRange(file ids.FileID, ppRange ids.ByteRange, p Provider) (Target, bool) {
	sm := p.SourceMap(file)
	if sm == nil {
		return Target{File: file, Range: ppRange}, true
	}
	orig, ok := sm.ToOriginal(ppRange)
	if !ok {
		return Target{}, false
	}
	return Target{File: file, Range: orig}, true
}

func targetFromDef(d defmap.Def, p Provider) (Target, bool) {
	tree := p.ItemTree(d.File)
	if tree == nil {
		return Target{}, false
	}
	if d.HasVariant {
		v := tree.Variant(d.Variant)
		return targetFromRange(d.File, ids.ByteRange{Start: v.Ptr.Start, End: v.Ptr.End}, p)
	}
	it := tree.Item(d.Item)
	if d.Kind == defmap.KindMacro {
		return Target{File: it.DefinitionSite.File, Range: ids.ByteRange{Start: it.DefinitionSite.Start, End: it.DefinitionSite.End}}, true
	}
	return targetFromRange(d.File, ids.ByteRange{Start: it.Ptr.Start, End: it.Ptr.End}, p)
}
