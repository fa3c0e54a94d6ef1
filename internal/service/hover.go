package service

import (
	"context"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
	"github.com/sourcepawn-studio/spls/internal/query"
	"github.com/sourcepawn-studio/spls/internal/resolver"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// itemDescriptor is what itemAt finds at a given original-text range: enough
// to build both a hover string and a semantic token, without re-deriving the
// same item-tree/source-map lookup twice.
type itemDescriptor struct {
	Kind      HighlightKind
	Name      string
	Container string // enclosing enum-struct/methodmap name, empty at top level
	Signature string // KindFunction/method only
}

// itemAt finds the item-tree entry (or enum variant, enum-struct field,
// methodmap property) whose original-text range equals rng, by re-running
// the same Ptr → SourceMap.ToOriginal conversion every definition target was
// produced with (internal/resolver's targetFromRange/targetFromDef). It is
// the single lookup both Hover and SemanticTokens use to describe a
// resolved location.
func itemAt(s *query.Snapshot, file ids.FileID, rng ids.ByteRange) (itemDescriptor, bool) {
	tree, err := s.ItemTree(file)
	if err != nil || tree == nil {
		return itemDescriptor{}, false
	}
	sm := sourceMapOf(s, file)
	toOriginal := func(r ids.ByteRange) (ids.ByteRange, bool) {
		if sm == nil {
			return r, true
		}
		return sm.ToOriginal(r)
	}

	methodIDs := make(map[itemtree.ItemId]itemtree.Item)
	for _, tid := range tree.TopLevel {
		t := tree.Item(tid)
		for _, me := range t.Methods {
			methodIDs[me.Item] = t
		}
	}

	for i := range tree.Items {
		id := itemtree.ItemId(i)
		it := tree.Item(id)
		if it.Kind == itemtree.KindDefine {
			if ids.ByteRange{Start: it.DefinitionSite.Start, End: it.DefinitionSite.End} == rng {
				return itemDescriptor{Kind: HLMacro, Name: it.Name}, true
			}
			continue
		}

		if orig, ok := toOriginal(ids.ByteRange{Start: it.Ptr.Start, End: it.Ptr.End}); ok && orig == rng {
			switch it.Kind {
			case itemtree.KindFunction:
				if container, isMethod := methodIDs[id]; isMethod {
					return itemDescriptor{Kind: HLMethod, Name: it.Name, Container: container.Name, Signature: it.SignatureText}, true
				}
				return itemDescriptor{Kind: HLFunction, Name: it.Name, Signature: it.SignatureText}, true
			case itemtree.KindGlobal:
				return itemDescriptor{Kind: HLVariable, Name: it.Name}, true
			case itemtree.KindEnum:
				return itemDescriptor{Kind: HLEnum, Name: it.Name}, true
			case itemtree.KindEnumStruct:
				return itemDescriptor{Kind: HLStruct, Name: it.Name}, true
			case itemtree.KindMethodmap:
				return itemDescriptor{Kind: HLClass, Name: it.Name}, true
			case itemtree.KindTypedef, itemtree.KindTypeset, itemtree.KindFunctag, itemtree.KindFuncenum:
				return itemDescriptor{Kind: HLClass, Name: it.Name}, true
			}
		}

		for _, f := range it.Fields {
			if orig, ok := toOriginal(ids.ByteRange{Start: f.Ptr.Start, End: f.Ptr.End}); ok && orig == rng {
				return itemDescriptor{Kind: HLProperty, Name: f.Name, Container: it.Name}, true
			}
		}
		for _, pr := range it.Properties {
			if orig, ok := toOriginal(ids.ByteRange{Start: pr.Ptr.Start, End: pr.Ptr.End}); ok && orig == rng {
				return itemDescriptor{Kind: HLProperty, Name: pr.Name, Container: it.Name}, true
			}
		}
	}

	for _, v := range tree.Variants {
		if orig, ok := toOriginal(ids.ByteRange{Start: v.Ptr.Start, End: v.Ptr.End}); ok && orig == rng {
			return itemDescriptor{Kind: HLEnumMember, Name: v.Name}, true
		}
	}

	return itemDescriptor{}, false
}

func sourceMapOf(s *query.Snapshot, file ids.FileID) *preprocessor.SourceMap {
	pp, err := s.Preprocess(file)
	if err != nil || pp == nil {
		return nil
	}
	return pp.SourceMap
}

// HoverResult is hover's result (spec.md §6). Contents is a plain-text
// signature/kind description — rendering it to Markdown is the transport
// layer's concern (spec.md's Non-goals).
type HoverResult struct {
	Contents string
	Target   ids.FileRange
}

// Hover implements spec.md §6's hover(FilePosition) → HoverResult?: the same
// goto-definition resolution as GotoDefinition, described in prose instead
// of just located.
func (svc *Service) Hover(ctx context.Context, pos ids.FilePosition) (*HoverResult, error) {
	s := svc.db.Snapshot(ctx)
	root, err := svc.rootFor(s, pos.File)
	if err != nil {
		return nil, err
	}
	target, _, err := s.Resolve(root, pos.File, pos.Offset)
	if err != nil {
		return nil, err
	}
	if (target == resolver.Target{}) {
		return nil, nil
	}
	desc, ok := itemAt(s, target.File, target.Range)
	if !ok {
		return nil, nil
	}
	return &HoverResult{
		Contents: describe(desc),
		Target:   ids.FileRange{File: target.File, Start: target.Range.Start, End: target.Range.End},
	}, nil
}

func describe(d itemDescriptor) string {
	if d.Signature != "" {
		if d.Container != "" {
			return d.Container + "." + d.Signature
		}
		return d.Signature
	}
	label := hoverLabel(d.Kind)
	if d.Container != "" {
		return d.Container + "." + d.Name + " (" + label + ")"
	}
	return d.Name + " (" + label + ")"
}

func hoverLabel(k HighlightKind) string {
	switch k {
	case HLVariable:
		return "variable"
	case HLEnumMember:
		return "enum member"
	case HLFunction:
		return "function"
	case HLClass:
		return "methodmap"
	case HLMethod:
		return "method"
	case HLMacro:
		return "define"
	case HLProperty:
		return "property"
	case HLStruct:
		return "enum struct"
	case HLEnum:
		return "enum"
	default:
		return "symbol"
	}
}

// SignatureHelp is signature_help's result (spec.md §6). ActiveParameter is
// the zero-based index of the argument the cursor currently sits in,
// counted from the call site's own argument list.
type SignatureHelp struct {
	Label           string
	ActiveParameter int
}

// SignatureHelp implements spec.md §6's signature_help(FilePosition) →
// SignatureHelp?: walks up from the cursor to the nearest enclosing call
// expression, resolves its callee, and returns the callee's recorded
// SignatureText (itemtree.Item.SignatureText) plus which argument the
// cursor is in.
func (svc *Service) SignatureHelp(ctx context.Context, pos ids.FilePosition) (*SignatureHelp, error) {
	s := svc.db.Snapshot(ctx)
	root, err := svc.rootFor(s, pos.File)
	if err != nil {
		return nil, err
	}
	pp, err := s.Preprocess(pos.File)
	if err != nil || pp == nil {
		return nil, err
	}
	ppOffset := pos.Offset
	if pp.SourceMap != nil {
		if mapped, ok := pp.SourceMap.ToPreprocessed(pos.Offset); ok {
			ppOffset = mapped
		}
	}
	tree, err := s.Parse(pos.File)
	if err != nil || tree == nil {
		return nil, err
	}
	path := syntax.PathTo(tree, ppOffset)
	call, argList := enclosingCall(path)
	if call == nil || argList == nil {
		return nil, nil
	}
	if call.Children[0].Kind != syntax.NodeIdentExpr {
		return nil, nil
	}
	name := call.Children[0].Text

	dm, err := s.DefMap(root)
	if err != nil {
		return nil, err
	}
	def, ok := dm.Lookup(name)
	if !ok {
		return nil, nil
	}
	defTree, err := s.ItemTree(def.File)
	if err != nil || defTree == nil {
		return nil, err
	}
	item := defTree.Item(def.Item)
	if item.SignatureText == "" {
		return nil, nil
	}

	active := 0
	for _, arg := range argList.Children {
		if ppOffset > arg.Range.End {
			active++
			continue
		}
		break
	}
	return &SignatureHelp{Label: item.SignatureText, ActiveParameter: active}, nil
}

func enclosingCall(path []*syntax.Node) (call, argList *syntax.Node) {
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.Kind == syntax.NodeCallExpr && len(n.Children) == 2 {
			return n, n.Children[1]
		}
	}
	return nil, nil
}
