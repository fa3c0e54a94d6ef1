package defmap

import (
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// Scope is the child scope of a function, method, enum-struct, or
// methodmap item (spec.md §4.7), computed lazily the first time Resolver
// asks for it. For a function/method it is parameters plus every local
// variable declared anywhere in its body (SourcePawn has no block-scoped
// shadowing worth modeling separately here — the resolver only needs "is
// this name local", not which block introduced it). For an enum-struct or
// methodmap it is the fields/properties already recorded on the Item (the
// only member kinds spec.md §4.7's unqualified-name lookup step considers),
// so no syntax-tree walk is needed.
type Scope struct {
	Names map[string]bool
	// Types maps a name in this scope to its declared type name, when known
	// (see syntax.Node.TypeText) — the resolver's qualified-name lookup
	// ("first resolve a, obtain its type") uses this to find the member
	// scope for `a.b`.
	Types map[string]string
	// Locations maps a name to the byte range of its declaring node, in the
	// same coordinate space (preprocessed text) as the file the scope was
	// built from — the resolver converts this to original-text coordinates
	// via that file's source map before returning it as a definition
	// target.
	Locations map[string]ids.ByteRange
}

// Has reports whether name is visible in this scope.
func (s *Scope) Has(name string) bool {
	if s == nil {
		return false
	}
	return s.Names[name]
}

// TypeOf returns the declared type name of name in this scope, if known.
func (s *Scope) TypeOf(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	t, ok := s.Types[name]
	return t, ok && t != ""
}

// LocationOf returns the declaring range of name in this scope, if known.
func (s *Scope) LocationOf(name string) (ids.ByteRange, bool) {
	if s == nil {
		return ids.ByteRange{}, false
	}
	r, ok := s.Locations[name]
	return r, ok
}

// SyntaxTrees resolves a file's parsed syntax tree, needed only to walk a
// function/method body when its scope is first requested.
type SyntaxTrees interface {
	SyntaxTree(file ids.FileID) *syntax.Tree
}

// ChildScope returns (building and caching it on first call) the child
// scope of the item identified by (file, id). syn is consulted only for
// KindFunction items; it may be nil for the other kinds.
func (m *Map) ChildScope(file ids.FileID, id itemtree.ItemId, syn SyntaxTrees) *Scope {
	key := fileItem{file: file, item: id}
	if s, ok := m.scopes[key]; ok {
		return s
	}

	tree := m.trees.ItemTree(file)
	if tree == nil {
		return nil
	}
	it := tree.Item(id)

	var s *Scope
	switch it.Kind {
	case itemtree.KindFunction:
		s = functionScope(file, it, syn)
	case itemtree.KindEnumStruct:
		s = memberScope(it)
	case itemtree.KindMethodmap:
		s = memberScope(it)
	default:
		s = emptyScope()
	}

	m.scopes[key] = s
	return s
}

func emptyScope() *Scope {
	return &Scope{Names: map[string]bool{}, Types: map[string]string{}, Locations: map[string]ids.ByteRange{}}
}

func memberScope(it itemtree.Item) *Scope {
	s := emptyScope()
	for _, f := range it.Fields {
		s.Names[f.Name] = true
		if f.TypeName != "" {
			s.Types[f.Name] = f.TypeName
		}
		s.Locations[f.Name] = ids.ByteRange{Start: f.Ptr.Start, End: f.Ptr.End}
	}
	for _, p := range it.Properties {
		s.Names[p.Name] = true
		s.Locations[p.Name] = ids.ByteRange{Start: p.Ptr.Start, End: p.Ptr.End}
	}
	return s
}

func functionScope(file ids.FileID, it itemtree.Item, syn SyntaxTrees) *Scope {
	s := emptyScope()
	if syn == nil {
		return s
	}
	tree := syn.SyntaxTree(file)
	if tree == nil {
		return s
	}
	node := it.Ptr.Resolve(tree)
	if node == nil {
		return s
	}
	for _, c := range node.Children {
		switch c.Kind {
		case syntax.NodeParamList:
			for _, p := range c.Children {
				if p.Kind == syntax.NodeParam && p.Text != "" {
					s.Names[p.Text] = true
					if p.TypeText != "" {
						s.Types[p.Text] = p.TypeText
					}
					s.Locations[p.Text] = p.Range
				}
			}
		case syntax.NodeBlock:
			collectLocals(c, s)
		}
	}
	return s
}

func collectLocals(n *syntax.Node, s *Scope) {
	if n.Kind == syntax.NodeVarDeclStmt {
		for _, d := range n.Children {
			if d.Kind == syntax.NodeDeclarator && d.Text != "" {
				s.Names[d.Text] = true
				if d.TypeText != "" {
					s.Types[d.Text] = d.TypeText
				}
				s.Locations[d.Text] = d.Range
			}
		}
	}
	for _, c := range n.Children {
		collectLocals(c, s)
	}
}
