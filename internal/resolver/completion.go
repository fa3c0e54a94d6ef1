package resolver

import (
	"strings"

	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/events"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// CompletionContext is the syntactic context spec.md §4.8's third query
// detects before choosing a candidate set.
type CompletionContext int

const (
	// ContextGeneral covers both "top-level" and "inside a block" — the
	// candidate set (project DefMap plus whatever local scope is in effect)
	// only differs by whether a scope is present, not by context, so both
	// collapse to one case.
	ContextGeneral CompletionContext = iota
	ContextMember
	ContextIncludePath
	ContextEventName
)

// ItemKind tags one CompletionItem's origin.
type ItemKind int

const (
	ItemDef ItemKind = iota
	ItemLocal
	ItemField
	ItemProperty
	ItemMethod
	ItemEnumVariant
	ItemEventName
)

// CompletionItem is one completion candidate.
type CompletionItem struct {
	Kind ItemKind
	Name string
	// DefKind is populated only when Kind == ItemDef, naming which DefKind
	// the candidate is (function/global/enum/...), for client-side icon
	// choice.
	DefKind defmap.DefKind
}

// CompletionResult is Completion's return value. Partial is the token
// already typed at the cursor. File-path completion itself is the VFS
// layer's job (spec.md §6's VFS trait is the only thing that can list a
// directory), so ContextIncludePath carries no Items — the caller uses
// Partial to drive its own directory lookup.
type CompletionResult struct {
	Context CompletionContext
	Items   []CompletionItem
	Partial string
}

// Completion implements spec.md §4.8's third query. userOffset is a byte
// offset into file's original text.
func Completion(file ids.FileID, userOffset uint32, p Provider, dm *defmap.Map) CompletionResult {
	if orig, ok := p.OriginalText(file); ok {
		if res, handled := completeFromOriginalText(orig, userOffset); handled {
			return res
		}
	}

	sm := p.SourceMap(file)
	ppOffset := userOffset
	if sm != nil {
		if mapped, ok := sm.ToPreprocessed(userOffset); ok {
			ppOffset = mapped
		}
	}

	text := p.PreprocessedText(file)
	if object, accessor := precedingAccessor(text, ppOffset); accessor != "" {
		path := syntax.PathTo(p.SyntaxTree(file), ppOffset)
		objNode := &syntax.Node{Kind: syntax.NodeIdentExpr, Text: object}
		if object == "this" {
			objNode = &syntax.Node{Kind: syntax.NodeThisExpr}
		}
		if typeName, ok := typeOfObject(file, path, objNode, p, dm); ok {
			return CompletionResult{Context: ContextMember, Items: memberItems(typeName, p, dm)}
		}
		return CompletionResult{Context: ContextMember}
	}

	return CompletionResult{Context: ContextGeneral, Items: generalItems(file, ppOffset, p, dm)}
}

// completeFromOriginalText detects the two completion contexts that never
// survive into the preprocessed buffer: an #include path (the preprocessor
// consumes the whole directive line) and a HookEvent("...") first-argument
// string (detected as plain text so it still works while the string literal
// is mid-edit and wouldn't parse as a valid NodeCallExpr yet).
func completeFromOriginalText(text string, pos uint32) (CompletionResult, bool) {
	if int(pos) > len(text) {
		return CompletionResult{}, false
	}
	lineStart := pos
	for lineStart > 0 && text[lineStart-1] != '\n' {
		lineStart--
	}
	prefix := text[lineStart:pos]
	trimmed := strings.TrimLeft(prefix, " \t")

	if strings.HasPrefix(trimmed, "#include") || strings.HasPrefix(trimmed, "#tryinclude") {
		rest := strings.TrimPrefix(strings.TrimPrefix(trimmed, "#tryinclude"), "#include")
		rest = strings.TrimLeft(rest, " \t")
		switch {
		case strings.HasPrefix(rest, "\"") && !strings.Contains(rest[1:], "\""):
			return CompletionResult{Context: ContextIncludePath, Partial: rest[1:]}, true
		case strings.HasPrefix(rest, "<") && !strings.Contains(rest[1:], ">"):
			return CompletionResult{Context: ContextIncludePath, Partial: rest[1:]}, true
		case rest == "":
			return CompletionResult{Context: ContextIncludePath}, true
		}
	}

	if idx := strings.LastIndex(prefix, "HookEvent("); idx >= 0 {
		rest := strings.TrimLeft(prefix[idx+len("HookEvent("):], " \t")
		if strings.HasPrefix(rest, "\"") && !strings.Contains(rest[1:], "\"") {
			partial := rest[1:]
			var items []CompletionItem
			for _, name := range events.Names {
				if strings.HasPrefix(name, partial) {
					items = append(items, CompletionItem{Kind: ItemEventName, Name: name})
				}
			}
			return CompletionResult{Context: ContextEventName, Items: items, Partial: partial}, true
		}
	}

	return CompletionResult{}, false
}

// memberItems lists the fields/properties/methods of typeName and, for a
// methodmap, every ancestor in its inherit chain.
func memberItems(typeName string, p Provider, dm *defmap.Map) []CompletionItem {
	var items []CompletionItem
	seen := map[string]bool{}
	for typeName != "" && !seen[typeName] {
		seen[typeName] = true
		def, ok := dm.Lookup(typeName)
		if !ok {
			break
		}
		tree := p.ItemTree(def.File)
		if tree == nil {
			break
		}
		item := tree.Item(def.Item)
		for _, f := range item.Fields {
			items = append(items, CompletionItem{Kind: ItemField, Name: f.Name})
		}
		for _, pr := range item.Properties {
			items = append(items, CompletionItem{Kind: ItemProperty, Name: pr.Name})
		}
		for _, me := range item.Methods {
			items = append(items, CompletionItem{Kind: ItemMethod, Name: tree.Item(me.Item).Name})
		}
		typeName = item.InheritName
	}
	return items
}

// generalItems merges the project DefMap with whatever local scope (function
// body or enclosing enum-struct/methodmap) is in effect at ppOffset — the
// top-level and in-block contexts only differ in whether a scope exists, so
// both are handled uniformly here.
func generalItems(file ids.FileID, ppOffset uint32, p Provider, dm *defmap.Map) []CompletionItem {
	var items []CompletionItem
	for _, name := range dm.Names() {
		d, ok := dm.Lookup(name)
		if !ok {
			continue
		}
		kind := ItemDef
		if d.Kind == defmap.KindVariant {
			kind = ItemEnumVariant
		}
		items = append(items, CompletionItem{Kind: kind, Name: name, DefKind: d.Kind})
	}

	path := syntax.PathTo(p.SyntaxTree(file), ppOffset)
	if fnItem, ok := enclosingFunctionItem(file, path, p); ok {
		scope := dm.ChildScope(file, fnItem, p)
		for name := range scope.Names {
			items = append(items, CompletionItem{Kind: ItemLocal, Name: name})
		}
	}
	if memberItem, ok := enclosingMemberItem(file, path, p); ok {
		scope := dm.ChildScope(file, memberItem, p)
		for name := range scope.Names {
			items = append(items, CompletionItem{Kind: ItemField, Name: name})
		}
	}
	return items
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// precedingAccessor scans text backward from pos, skipping the partial
// identifier currently being typed, and reports the object name and
// accessor ("." or "::") immediately before it, if any — a textual
// heuristic rather than a syntax-tree lookup, since the member name being
// completed usually isn't valid syntax yet.
func precedingAccessor(text string, pos uint32) (object, accessor string) {
	i := int(pos)
	if i > len(text) {
		i = len(text)
	}
	for i > 0 && isIdentChar(text[i-1]) {
		i--
	}
	switch {
	case i >= 2 && text[i-2:i] == "::":
		accessor = "::"
		i -= 2
	case i >= 1 && text[i-1] == '.':
		accessor = "."
		i--
	default:
		return "", ""
	}
	end := i
	for i > 0 && isIdentChar(text[i-1]) {
		i--
	}
	object = text[i:end]
	if object == "" {
		return "", ""
	}
	return object, accessor
}
