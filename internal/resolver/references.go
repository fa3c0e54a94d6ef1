package resolver

import (
	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// FindReferences implements spec.md §4.8's second query: resolve every
// identifier token across files (lazy, per file — each file's syntax tree is
// only walked once here, and FindDefinition itself only touches what it
// needs) and collect the ones whose definition equals target. files is the
// project's file set (from project.Project.Files, typically).
//
// Field accesses, method calls, scope accesses, and constructor calls are
// distinguished from free identifiers by FindDefinition's own parent
// inspection — the same resolution path goto-definition uses, so a
// reference and its definition always agree.
func FindReferences(target Target, files []ids.FileID, p Provider, dm *defmap.Map) []Target {
	var refs []Target
	for _, f := range files {
		tree := p.SyntaxTree(f)
		if tree == nil || tree.Root == nil {
			continue
		}
		walkIdentifiers(tree.Root, func(n *syntax.Node) {
			userRange, ok := targetFromRange(f, n.Range, p)
			if !ok {
				return
			}
			t, _, ok := FindDefinition(f, userRange.Range.Start, p, dm)
			if ok && t == target {
				refs = append(refs, userRange)
			}
		})
	}
	return refs
}

func walkIdentifiers(n *syntax.Node, visit func(*syntax.Node)) {
	if n.Kind == syntax.NodeIdentExpr && n.Text != "" {
		visit(n)
	}
	for _, c := range n.Children {
		walkIdentifiers(c, visit)
	}
}
