// Package itemtree implements spec.md §4.5: a per-file flat arena of
// top-level declarations, built by visiting the syntax tree's immediate
// children exactly once. Function, method, and property-accessor bodies
// are never descended into — only their name and AstPtr are recorded —
// which is what keeps the item tree stable across edits confined to a
// function body.
package itemtree

import (
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// ItemId identifies one declaration within a single file's item tree.
type ItemId uint32

// VariantId identifies one enum variant within a single file's item tree.
type VariantId uint32

// Kind is the closed tag of item tree declarations (spec.md §3 ItemTree).
type Kind int

const (
	KindFunction Kind = iota
	KindGlobal
	KindEnum
	KindEnumStruct
	KindMethodmap
	KindTypedef
	KindTypeset
	KindFunctag
	KindFuncenum
	KindDefine
)

// Field is one enum-struct field (spec.md §3 EnumStructItem.fields).
type Field struct {
	Name string
	Ptr  syntax.AstPtr
	// TypeName is the field's declared type when it was itself a bare
	// identifier (an enum-struct or methodmap name), empty for builtin
	// types — see syntax.Node.TypeText.
	TypeName string
}

// Method is one enum-struct/methodmap method (spec.md §3 .methods); its
// body is recorded only as an AstPtr, never walked here.
type Method struct {
	Item ItemId
}

// Property is one methodmap property (spec.md §3 MethodmapItem.properties).
type Property struct {
	Name string
	Ptr  syntax.AstPtr
}

// Variant is one enum member.
type Variant struct {
	Name string
	Ptr  syntax.AstPtr
}

// Item is one declaration. Not every field is populated for every Kind —
// see the per-Kind comments below — mirroring spec.md §3's tagged-union
// ItemTree shape without Go's lack of sum types forcing N separate slices.
type Item struct {
	Kind Kind
	Name string
	Ptr  syntax.AstPtr

	// KindFunction: the full declaration text, e.g. "public void
	// OnPluginStart()" — used for hover and signature help without
	// re-parsing.
	SignatureText string

	// KindEnum.
	Variants []VariantId

	// KindEnumStruct.
	Fields  []Field
	Methods []Method

	// KindMethodmap.
	InheritName string
	Properties  []Property

	// KindDefine: re-exported from the preprocessor so hover/goto-
	// definition on a macro name works through the same ItemTree/DefMap
	// path as every other declaration kind.
	DefinitionSite ids.FileRange
	IsFunctionLike bool
}

// Tree is one file's item tree plus its enum-variant arena.
type Tree struct {
	File     ids.FileID
	Items    []Item
	Variants []Variant

	// TopLevel holds the ids of items that are direct declarations in the
	// file (what spec.md §4.7's DefMap merges), as opposed to the ItemIds
	// enum-struct/methodmap methods get pushed under — those are reachable
	// only through their parent's Methods field, never merged into the
	// project-wide name table directly.
	TopLevel []ItemId
}

// Item returns the item stored at id.
func (t *Tree) Item(id ItemId) Item { return t.Items[id] }

// Variant returns the variant stored at id.
func (t *Tree) Variant(id VariantId) Variant { return t.Variants[id] }

func (t *Tree) push(it Item) ItemId {
	id := ItemId(len(t.Items))
	t.Items = append(t.Items, it)
	return id
}

func (t *Tree) pushVariant(v Variant) VariantId {
	id := VariantId(len(t.Variants))
	t.Variants = append(t.Variants, v)
	return id
}

// Build walks syn's top-level children exactly once, producing a Tree. src
// is the preprocessed text syn was parsed from (needed to slice out
// SignatureText). macros, if non-nil, contributes one KindDefine item per
// macro recorded in the file's preprocessing result (spec.md §3: "DefineItem
// re-exported from the preprocessor").
func Build(file ids.FileID, syn *syntax.Tree, src string, macros *preprocessor.MacroEnv) *Tree {
	t := &Tree{File: file}
	if syn != nil && syn.Root != nil {
		for _, child := range syn.Root.Children {
			t.visitTopLevel(child, src)
		}
	}
	if macros != nil {
		for _, name := range macros.Names() {
			m, ok := macros.Lookup(name)
			if !ok {
				continue
			}
			id := t.push(Item{
				Kind:           KindDefine,
				Name:           m.Name,
				DefinitionSite: m.DefinitionSite,
				IsFunctionLike: m.IsFunctionLike(),
			})
			t.TopLevel = append(t.TopLevel, id)
		}
	}
	return t
}

func (t *Tree) visitTopLevel(n *syntax.Node, src string) {
	switch n.Kind {
	case syntax.NodeFunctionDecl:
		t.TopLevel = append(t.TopLevel, t.push(functionItem(n, src)))
	case syntax.NodeGlobalVarDecl:
		for _, decl := range n.Children {
			if decl.Kind != syntax.NodeDeclarator {
				continue
			}
			id := t.push(Item{Kind: KindGlobal, Name: decl.Text, Ptr: syntax.PtrOf(decl)})
			t.TopLevel = append(t.TopLevel, id)
		}
	case syntax.NodeEnumDecl:
		t.TopLevel = append(t.TopLevel, t.push(t.enumItem(n)))
	case syntax.NodeEnumStructDecl:
		t.TopLevel = append(t.TopLevel, t.push(t.enumStructItem(n, src)))
	case syntax.NodeMethodmapDecl:
		t.TopLevel = append(t.TopLevel, t.push(t.methodmapItem(n, src)))
	case syntax.NodeTypedefDecl:
		t.TopLevel = append(t.TopLevel, t.push(Item{Kind: KindTypedef, Name: n.Text, Ptr: syntax.PtrOf(n)}))
	case syntax.NodeTypesetDecl:
		t.TopLevel = append(t.TopLevel, t.push(Item{Kind: KindTypeset, Name: n.Text, Ptr: syntax.PtrOf(n)}))
	case syntax.NodeFunctagDecl:
		t.TopLevel = append(t.TopLevel, t.push(Item{Kind: KindFunctag, Name: n.Text, Ptr: syntax.PtrOf(n)}))
	case syntax.NodeFuncenumDecl:
		t.TopLevel = append(t.TopLevel, t.push(Item{Kind: KindFuncenum, Name: n.Text, Ptr: syntax.PtrOf(n)}))
	}
}

func functionItem(n *syntax.Node, src string) Item {
	name := ""
	for _, c := range n.Children {
		if c.Kind == syntax.NodeIdentExpr {
			name = c.Text
			break
		}
	}
	return Item{
		Kind:          KindFunction,
		Name:          name,
		Ptr:           syntax.PtrOf(n),
		SignatureText: signatureText(n, src),
	}
}

// signatureText slices out everything up to (but not including) the
// function body/terminator, trimmed of the trailing whitespace the lexer
// doesn't tokenize — a cheap substring since Range already spans the whole
// declaration.
func signatureText(n *syntax.Node, src string) string {
	end := n.Range.End
	for _, c := range n.Children {
		if c.Kind == syntax.NodeBlock {
			end = c.Range.Start
			break
		}
	}
	if int(end) > len(src) {
		end = uint32(len(src))
	}
	if n.Range.Start > end {
		return ""
	}
	text := src[n.Range.Start:end]
	return trimRight(text)
}

func trimRight(s string) string {
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ';' {
			end--
			continue
		}
		break
	}
	return s[:end]
}

func (t *Tree) enumItem(n *syntax.Node) Item {
	var variants []VariantId
	for _, c := range n.Children {
		if c.Kind != syntax.NodeEnumVariant {
			continue
		}
		id := t.pushVariant(Variant{Name: c.Text, Ptr: syntax.PtrOf(c)})
		variants = append(variants, id)
	}
	return Item{Kind: KindEnum, Name: n.Text, Ptr: syntax.PtrOf(n), Variants: variants}
}

func (t *Tree) enumStructItem(n *syntax.Node, src string) Item {
	var fields []Field
	var methods []Method
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.NodeEnumStructField:
			fields = append(fields, Field{Name: c.Text, Ptr: syntax.PtrOf(c), TypeName: c.TypeText})
		case syntax.NodeFunctionDecl:
			id := t.push(functionItem(c, src))
			methods = append(methods, Method{Item: id})
		}
	}
	return Item{Kind: KindEnumStruct, Name: n.Text, Ptr: syntax.PtrOf(n), Fields: fields, Methods: methods}
}

func (t *Tree) methodmapItem(n *syntax.Node, src string) Item {
	var inherit string
	var properties []Property
	var methods []Method
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.NodeIdentExpr:
			inherit = c.Text
		case syntax.NodeMethodmapProperty:
			properties = append(properties, Property{Name: c.Text, Ptr: syntax.PtrOf(c)})
		case syntax.NodeFunctionDecl:
			id := t.push(functionItem(c, src))
			methods = append(methods, Method{Item: id})
		}
	}
	return Item{Kind: KindMethodmap, Name: n.Text, Ptr: syntax.PtrOf(n), InheritName: inherit, Properties: properties, Methods: methods}
}
