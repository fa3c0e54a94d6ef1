package query

import (
	"fmt"

	"github.com/sourcepawn-studio/spls/internal/defmap"
	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/itemtree"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
	"github.com/sourcepawn-studio/spls/internal/project"
	"github.com/sourcepawn-studio/spls/internal/resolver"
	"github.com/sourcepawn-studio/spls/internal/syntax"
)

// FileText implements spec.md §4.9's file_text(FileId) — the terminal read
// every other query bottoms out at. It is not memoized in a table of its
// own: the VFS already holds the text in memory, so there is nothing to
// recompute, unlike preprocess/parse/item_tree/def_map, which redo real
// work when their inputs go stale.
func (s *Snapshot) FileText(file ids.FileID) (string, bool, error) {
	if err := s.checkCancelled(); err != nil {
		return "", false, err
	}
	text, ok := s.db.vfs.FileText(file)
	return text, ok, nil
}

// resolveInclude composes the VFS's two path-resolution primitives per
// spec.md §6: a quoted #include prefers the anchor's own directory,
// falling back to the configured include roots; an angle-bracket or
// bareword #include does the reverse.
func (s *Snapshot) resolveInclude(anchor ids.FileID, path string, quoted bool) (ids.FileID, bool) {
	if quoted {
		if id, ok := s.db.vfs.ResolvePath(anchor, path); ok {
			return id, true
		}
		return s.db.vfs.ResolvePathRelativeToRoots(path)
	}
	if id, ok := s.db.vfs.ResolvePathRelativeToRoots(path); ok {
		return id, true
	}
	return s.db.vfs.ResolvePath(anchor, path)
}

// Preprocess implements spec.md §4.9's preprocess(FileId). file is treated
// as its own preprocessing root with a fresh macro environment — a
// deliberate simplification over the original's fully context-sensitive
// preprocessing (where a file's expansion can in principle depend on which
// macros its includer had already defined before the #include line): query
// granularity here is per-file, and nothing in this codebase needs a
// file's preprocessed form to vary by which file asked for it.
func (s *Snapshot) Preprocess(file ids.FileID) (*preprocessor.PreprocessingResult, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	pop, err := s.enter(fmt.Sprintf("preprocess:%d", file))
	if err != nil {
		return nil, err
	}
	defer pop()

	return s.db.pps.get(file, s.rev, func() (*preprocessor.PreprocessingResult, []depRecord, error) {
		text, ok := s.db.vfs.FileText(file)
		if !ok {
			return &preprocessor.PreprocessingResult{}, []depRecord{{file: file, rev: s.rev(file)}}, nil
		}

		pp := preprocessor.New(s.resolveInclude, s.db.vfs.FileText)
		results := pp.PreprocessFile(file, text, preprocessor.NewMacroEnv(), nil)

		// Every file visited in this sweep (file plus everything it
		// transitively includes) is a dependency of file's own result: a
		// change anywhere in the sweep can change file's expansion.
		deps := make([]depRecord, 0, len(results))
		for f := range results {
			deps = append(deps, depRecord{file: f, rev: s.rev(f)})
		}
		for f, res := range results {
			if f != file {
				s.db.pps.store(f, res, deps)
			}
		}

		if err := s.checkCancelled(); err != nil {
			return nil, nil, err
		}
		return results[file], deps, nil
	})
}

// Parse implements spec.md §4.9's parse(FileId): depends on file_text of
// the preprocessed file, i.e. it parses whatever Preprocess(file) produced,
// never the user's raw text directly.
func (s *Snapshot) Parse(file ids.FileID) (*syntax.Tree, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	pop, err := s.enter(fmt.Sprintf("parse:%d", file))
	if err != nil {
		return nil, err
	}
	defer pop()

	return s.db.parses.get(file, s.rev, func() (*syntax.Tree, []depRecord, error) {
		pp, err := s.Preprocess(file)
		if err != nil {
			return nil, nil, err
		}
		tree := syntax.Parse(pp.PreprocessedText)
		return tree, []depRecord{{file: file, rev: s.rev(file)}}, nil
	})
}

// ItemTree implements spec.md §4.9's item_tree(FileId): depends on parse.
func (s *Snapshot) ItemTree(file ids.FileID) (*itemtree.Tree, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	pop, err := s.enter(fmt.Sprintf("item_tree:%d", file))
	if err != nil {
		return nil, err
	}
	defer pop()

	return s.db.items.get(file, s.rev, func() (*itemtree.Tree, []depRecord, error) {
		tree, err := s.Parse(file)
		if err != nil {
			return nil, nil, err
		}
		pp, err := s.Preprocess(file)
		if err != nil {
			return nil, nil, err
		}
		it := itemtree.Build(file, tree, pp.PreprocessedText, pp.MacrosAfter)
		return it, []depRecord{{file: file, rev: s.rev(file)}}, nil
	})
}

// includesOf returns file's include edges by preprocessing it, used by both
// ProjectGraph and defmap.Build's Includes collaborator interface.
func (s *Snapshot) includesOf(file ids.FileID) []ids.FileID {
	pp, err := s.Preprocess(file)
	if err != nil || pp == nil {
		return nil
	}
	return pp.Includes
}

// ProjectGraph implements spec.md §4.9's project_graph(): the include graph
// over every file the VFS currently knows about, partitioned into
// connected-component projects with a resolved root each (spec.md §4.6).
func (s *Snapshot) ProjectGraph() ([]project.Project, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	pop, err := s.enter("project_graph")
	if err != nil {
		return nil, err
	}
	defer pop()

	var zero struct{}
	return s.db.graphs.get(zero, s.rev, func() ([]project.Project, []depRecord, error) {
		files := s.db.vfs.Files()
		g := project.NewGraph()
		deps := make([]depRecord, 0, len(files))
		for _, f := range files {
			g.AddFile(f)
			deps = append(deps, depRecord{file: f, rev: s.rev(f)})
			for _, inc := range s.includesOf(f) {
				g.AddEdge(f, inc)
			}
			if err := s.checkCancelled(); err != nil {
				return nil, nil, err
			}
		}
		projects := g.BuildProjects(&rootSelector{s: s}, s.db.cfg.MainPath)
		return projects, deps, nil
	})
}

// rootSelector adapts a Snapshot to project.RootSelector (spec.md §4.6).
type rootSelector struct{ s *Snapshot }

func (r *rootSelector) Path(file ids.FileID) (string, bool) { return r.s.db.vfs.Path(file) }
func (r *rootSelector) IsIncludeDirectory(file ids.FileID) bool {
	return r.s.db.vfs.IsIncludeDirectory(file)
}
func (r *rootSelector) HasPluginStart(file ids.FileID) bool {
	text, ok := r.s.db.vfs.FileText(file)
	return ok && containsPluginStart(text)
}

func containsPluginStart(text string) bool {
	const needle = "OnPluginStart("
	for i := 0; i+len(needle) <= len(text); i++ {
		if text[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// DefMap implements spec.md §4.9's def_map(project_root): depends on
// item_tree of every file in root's project.
func (s *Snapshot) DefMap(root ids.FileID) (*defmap.Map, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	pop, err := s.enter(fmt.Sprintf("def_map:%d", root))
	if err != nil {
		return nil, err
	}
	defer pop()

	return s.db.defMaps.get(root, s.rev, func() (*defmap.Map, []depRecord, error) {
		projects, err := s.ProjectGraph()
		if err != nil {
			return nil, nil, err
		}
		var files []ids.FileID
		for _, p := range projects {
			if p.Root == root {
				files = p.Files
				break
			}
		}
		if files == nil {
			files = []ids.FileID{root}
		}

		deps := make([]depRecord, 0, len(files))
		for _, f := range files {
			if _, err := s.ItemTree(f); err != nil {
				return nil, nil, err
			}
			deps = append(deps, depRecord{file: f, rev: s.rev(f)})
		}
		if err := s.checkCancelled(); err != nil {
			return nil, nil, err
		}
		m := defmap.Build(root, files, &itemTreeLookup{s: s}, &includeLookup{s: s})
		return m, deps, nil
	})
}

type itemTreeLookup struct{ s *Snapshot }

func (l *itemTreeLookup) ItemTree(file ids.FileID) *itemtree.Tree {
	it, err := l.s.ItemTree(file)
	if err != nil {
		return nil
	}
	return it
}

type includeLookup struct{ s *Snapshot }

func (l *includeLookup) Includes(file ids.FileID) []ids.FileID { return l.s.includesOf(file) }

// provider adapts a Snapshot to resolver.Provider.
type provider struct {
	s *Snapshot
}

func (p *provider) SyntaxTree(file ids.FileID) *syntax.Tree {
	t, err := p.s.Parse(file)
	if err != nil {
		return nil
	}
	return t
}

func (p *provider) ItemTree(file ids.FileID) *itemtree.Tree {
	t, err := p.s.ItemTree(file)
	if err != nil {
		return nil
	}
	return t
}

func (p *provider) SourceMap(file ids.FileID) *preprocessor.SourceMap {
	pp, err := p.s.Preprocess(file)
	if err != nil || pp == nil {
		return nil
	}
	return pp.SourceMap
}

func (p *provider) PreprocessedText(file ids.FileID) string {
	pp, err := p.s.Preprocess(file)
	if err != nil || pp == nil {
		return ""
	}
	return pp.PreprocessedText
}

func (p *provider) OriginalText(file ids.FileID) (string, bool) {
	return p.s.db.vfs.FileText(file)
}

// Resolve implements spec.md §4.9's resolve(FileId, offset): goto-definition
// at userOffset within a project rooted at root, plus any call-site
// diagnostics goto-definition raises as a side effect (resolver.FindDefinition).
func (s *Snapshot) Resolve(root, file ids.FileID, userOffset uint32) (resolver.Target, []diagnostic.Diagnostic, error) {
	if err := s.checkCancelled(); err != nil {
		return resolver.Target{}, nil, err
	}
	pop, err := s.enter(fmt.Sprintf("resolve:%d:%d", file, userOffset))
	if err != nil {
		return resolver.Target{}, nil, err
	}
	defer pop()

	dm, err := s.DefMap(root)
	if err != nil {
		return resolver.Target{}, nil, err
	}
	if err := s.checkCancelled(); err != nil {
		return resolver.Target{}, nil, err
	}
	p := &provider{s: s}
	target, diags, ok := resolver.FindDefinition(file, userOffset, p, dm)
	if !ok {
		return resolver.Target{}, diags, nil
	}
	return target, diags, nil
}

// References implements goto-definition's companion query: every use of
// whatever target names, across every file in root's project.
func (s *Snapshot) References(root ids.FileID, target resolver.Target) ([]resolver.Target, error) {
	if err := s.checkCancelled(); err != nil {
		return nil, err
	}
	dm, err := s.DefMap(root)
	if err != nil {
		return nil, err
	}
	projects, err := s.ProjectGraph()
	if err != nil {
		return nil, err
	}
	var files []ids.FileID
	for _, proj := range projects {
		if proj.Root == root {
			files = proj.Files
			break
		}
	}
	if files == nil {
		files = []ids.FileID{root}
	}
	p := &provider{s: s}
	return resolver.FindReferences(target, files, p, dm), nil
}

// Completion implements spec.md §4.9's completion half of resolve(FileId,
// offset) (spec.md §4.8's third query class).
func (s *Snapshot) Completion(root, file ids.FileID, userOffset uint32) (resolver.CompletionResult, error) {
	if err := s.checkCancelled(); err != nil {
		return resolver.CompletionResult{}, err
	}
	dm, err := s.DefMap(root)
	if err != nil {
		return resolver.CompletionResult{}, err
	}
	p := &provider{s: s}
	return resolver.Completion(file, userOffset, p, dm), nil
}
