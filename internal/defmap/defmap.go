// Package defmap builds spec.md §4.7's per-project definition map: starting
// at the project root, DFS over #include edges, merging each visited file's
// top-level item-tree declarations into a single name -> DefKind table.
//
// Grounded on internal/project/graph.go's DFS-over-edges shape (itself
// grounded on pkg/build/dependency_graph.go's cycle-tracking DFS), reused
// here for a directed walk instead of an undirected component search —
// include order matters for collision resolution ("later-visited definition
// wins"), so this package keeps its own DFS rather than reusing
// project.Graph.Components, which discards visit order.
package defmap

import (
	"sort"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
)

// DefKind is the closed tag of a project-scope definition (spec.md §3
// DefKind: "Function | Global | EnumStruct | Methodmap | Enum | Variant |
// Typedef | Typeset | Functag | Funcenum | Macro").
type DefKind int

const (
	KindFunction DefKind = iota
	KindGlobal
	KindEnumStruct
	KindMethodmap
	KindEnum
	KindVariant
	KindTypedef
	KindTypeset
	KindFunctag
	KindFuncenum
	KindMacro
)

// Def is one named, project-visible definition.
type Def struct {
	Kind DefKind
	Name string
	File ids.FileID
	Item itemtree.ItemId

	// Variant is only meaningful when Kind == KindVariant; it names which
	// enum member of the Enum item identified by Item this Def is.
	Variant    itemtree.VariantId
	HasVariant bool
}

// ItemTrees resolves a file's already-built item tree. defmap never parses
// or builds item trees itself — it only merges trees the query layer (or a
// test) hands it.
type ItemTrees interface {
	ItemTree(file ids.FileID) *itemtree.Tree
}

// Includes resolves the #include/#tryinclude edges recorded while
// preprocessing file, in source order, so the DFS below visits files in the
// same order the preprocessor encountered them.
type Includes interface {
	Includes(file ids.FileID) []ids.FileID
}

type fileItem struct {
	file ids.FileID
	item itemtree.ItemId
}

// Map is one project's merged definition table (spec.md §3 DefMap).
type Map struct {
	defs       map[string]Def
	collisions map[string][]Def
	byFile     map[ids.FileID][]itemtree.ItemId

	trees  ItemTrees
	scopes map[fileItem]*Scope
}

// Lookup returns the winning definition for name, if any (spec.md §4.7:
// "a later-visited definition replaces an earlier one").
func (m *Map) Lookup(name string) (Def, bool) {
	d, ok := m.defs[name]
	return d, ok
}

// Collisions returns every definition recorded for name, in DFS visit
// order, when more than one file defines it — for the duplicate-definition
// diagnostic spec.md §4.7 calls for. Returns nil when name has exactly one
// definition.
func (m *Map) Collisions(name string) []Def {
	return m.collisions[name]
}

// Names returns every name with at least one definition, for
// workspace-symbol style listings. Order is unspecified.
func (m *Map) Names() []string {
	names := make([]string, 0, len(m.defs))
	for n := range m.defs {
		names = append(names, n)
	}
	return names
}

// ItemsIn returns the ItemIds defined directly in file (spec.md §4.7's
// reverse index, for document-symbols).
func (m *Map) ItemsIn(file ids.FileID) []itemtree.ItemId {
	return m.byFile[file]
}

// Build performs the DFS described in spec.md §4.7 starting at root, then
// visits any file in files not reached from root (e.g. an orphaned member
// of the same connected component reached only through a sibling that
// itself failed to preprocess) in ascending FileID order, for determinism.
func Build(root ids.FileID, files []ids.FileID, trees ItemTrees, includes Includes) *Map {
	m := &Map{
		defs:       make(map[string]Def),
		collisions: make(map[string][]Def),
		byFile:     make(map[ids.FileID][]itemtree.ItemId),
		trees:      trees,
		scopes:     make(map[fileItem]*Scope),
	}

	visited := make(map[ids.FileID]bool)
	var order []ids.FileID
	var dfs func(ids.FileID)
	dfs = func(f ids.FileID) {
		if visited[f] {
			return
		}
		visited[f] = true
		order = append(order, f)
		for _, inc := range includes.Includes(f) {
			dfs(inc)
		}
	}

	if root != ids.Invalid {
		dfs(root)
	}

	rest := make([]ids.FileID, len(files))
	copy(rest, files)
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, f := range rest {
		dfs(f)
	}

	for _, f := range order {
		m.mergeFile(f)
	}
	return m
}

func (m *Map) mergeFile(file ids.FileID) {
	tree := m.trees.ItemTree(file)
	if tree == nil {
		return
	}
	for _, id := range tree.TopLevel {
		it := tree.Item(id)
		m.byFile[file] = append(m.byFile[file], id)

		kind, ok := defKindOf(it.Kind)
		if !ok {
			continue
		}
		def := Def{Kind: kind, Name: it.Name, File: file, Item: id}
		m.record(def)

		if it.Kind == itemtree.KindEnum {
			for _, vid := range it.Variants {
				v := tree.Variant(vid)
				m.record(Def{Kind: KindVariant, Name: v.Name, File: file, Item: id, Variant: vid, HasVariant: true})
			}
		}
	}
}

func (m *Map) record(def Def) {
	if def.Name == "" {
		return
	}
	if _, exists := m.defs[def.Name]; exists {
		if len(m.collisions[def.Name]) == 0 {
			m.collisions[def.Name] = append(m.collisions[def.Name], m.defs[def.Name])
		}
		m.collisions[def.Name] = append(m.collisions[def.Name], def)
	}
	m.defs[def.Name] = def
}

func defKindOf(k itemtree.Kind) (DefKind, bool) {
	switch k {
	case itemtree.KindFunction:
		return KindFunction, true
	case itemtree.KindGlobal:
		return KindGlobal, true
	case itemtree.KindEnumStruct:
		return KindEnumStruct, true
	case itemtree.KindMethodmap:
		return KindMethodmap, true
	case itemtree.KindEnum:
		return KindEnum, true
	case itemtree.KindTypedef:
		return KindTypedef, true
	case itemtree.KindTypeset:
		return KindTypeset, true
	case itemtree.KindFunctag:
		return KindFunctag, true
	case itemtree.KindFuncenum:
		return KindFuncenum, true
	case itemtree.KindDefine:
		return KindMacro, true
	default:
		return 0, false
	}
}
