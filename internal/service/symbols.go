package service

import (
	"context"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// Symbol is document_symbols' result element (spec.md §6). Kind reuses
// itemtree.Kind directly rather than a second parallel enum — mapping it to
// an LSP SymbolKind is the transport layer's job (spec.md's Non-goals).
type Symbol struct {
	Name     string
	Kind     itemtree.Kind
	Range    ids.FileRange
	Detail   string
	Children []Symbol
}

// DocumentSymbols implements spec.md §6's document_symbols(FileId) →
// list<Symbol>: every top-level declaration in file (defmap.Map.ItemsIn,
// built "for document-symbols"), with enum-struct/methodmap
// fields/properties/methods and enum variants nested as Children.
func (svc *Service) DocumentSymbols(ctx context.Context, file ids.FileID) ([]Symbol, error) {
	s := svc.db.Snapshot(ctx)
	root, err := svc.rootFor(s, file)
	if err != nil {
		return nil, err
	}
	dm, err := s.DefMap(root)
	if err != nil {
		return nil, err
	}
	tree, err := s.ItemTree(file)
	if err != nil || tree == nil {
		return nil, err
	}
	sm := sourceMapOf(s, file)
	toOriginal := func(r ids.ByteRange) (ids.ByteRange, bool) {
		if sm == nil {
			return r, true
		}
		return sm.ToOriginal(r)
	}
	toRange := func(p syntax.AstPtr) ids.FileRange {
		orig, ok := toOriginal(ids.ByteRange{Start: p.Start, End: p.End})
		if !ok {
			return ids.FileRange{File: file}
		}
		return ids.FileRange{File: file, Start: orig.Start, End: orig.End}
	}

	itemIDs := dm.ItemsIn(file)
	symbols := make([]Symbol, 0, len(itemIDs))
	for _, id := range itemIDs {
		it := tree.Item(id)
		if it.Kind == itemtree.KindDefine {
			symbols = append(symbols, Symbol{
				Name:  it.Name,
				Kind:  it.Kind,
				Range: ids.FileRange{File: it.DefinitionSite.File, Start: it.DefinitionSite.Start, End: it.DefinitionSite.End},
			})
			continue
		}

		sym := Symbol{Name: it.Name, Kind: it.Kind, Range: toRange(it.Ptr), Detail: it.SignatureText}
		switch it.Kind {
		case itemtree.KindEnum:
			for _, vid := range it.Variants {
				v := tree.Variant(vid)
				sym.Children = append(sym.Children, Symbol{Name: v.Name, Kind: it.Kind, Range: toRange(v.Ptr)})
			}
		case itemtree.KindEnumStruct, itemtree.KindMethodmap:
			for _, f := range it.Fields {
				sym.Children = append(sym.Children, Symbol{Name: f.Name, Kind: itemtree.KindGlobal, Range: toRange(f.Ptr)})
			}
			for _, pr := range it.Properties {
				sym.Children = append(sym.Children, Symbol{Name: pr.Name, Kind: itemtree.KindGlobal, Range: toRange(pr.Ptr)})
			}
			for _, me := range it.Methods {
				mItem := tree.Item(me.Item)
				sym.Children = append(sym.Children, Symbol{Name: mItem.Name, Kind: itemtree.KindFunction, Range: toRange(mItem.Ptr), Detail: mItem.SignatureText})
			}
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}
