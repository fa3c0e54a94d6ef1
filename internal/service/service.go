// Package service implements spec.md §6's LSP-facing API: the outbound
// surface a transport layer (cmd/sourcepawn-lsp) dispatches editor requests
// onto. Every method here is a thin wrapper translating one editor-facing
// operation into one or more internal/query.Snapshot queries and shaping the
// result into the types spec.md §6 names — no markdown rendering, no LSP
// protocol types, no semantic token legend encoding (spec.md's own
// Non-goals: "rendering of results to LSP types" is the transport layer's
// job, grounded on how thin pkg/lsp/handlers.go stayed in the teacher,
// proxying almost everything straight through to gopls rather than
// reshaping it).
package service

import (
	"context"

	"github.com/sourcepawn-studio/spls/internal/config"
	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/query"
	"github.com/sourcepawn-studio/spls/internal/resolver"
	"github.com/sourcepawn-studio/spls/internal/vfs"
)

// Service owns the query database and the last-applied configuration. It is
// the single object a transport layer needs to construct once per project.
type Service struct {
	db  *query.Database
	cfg *config.Config
}

// New creates a Service over fs, using cfg (or config.DefaultConfig() if
// nil) as the initial configuration.
func New(fs vfs.FS, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Service{db: query.NewDatabase(fs, cfg), cfg: cfg}
}

// FileChange is one entry of apply_change's files_changed list. Text == nil
// denotes deletion (spec.md §6).
type FileChange struct {
	Path string
	Text *string
}

// Change is apply_change's argument (spec.md §6). Roots, when non-nil,
// replaces the configured includes_directories outright; nil leaves the
// current configuration untouched — the LSP transport only sends it on a
// workspace/configuration change, not on every keystroke.
type Change struct {
	Roots        []string
	FilesChanged []FileChange
}

// ApplyChange implements spec.md §6's apply_change(Change). It returns the
// FileID assigned to (or already held by) each entry of FilesChanged, in
// order, since a transport layer that only knows paths needs a way to learn
// the FileId spec.md's other operations address files by.
func (svc *Service) ApplyChange(ctx context.Context, change Change) []ids.FileID {
	if change.Roots != nil {
		next := *svc.cfg
		next.IncludesDirectories = change.Roots
		svc.cfg = &next
		svc.db.SetConfig(ctx, svc.cfg)
	}

	out := make([]ids.FileID, 0, len(change.FilesChanged))
	for _, fc := range change.FilesChanged {
		id, _ := svc.db.SetFileContents(ctx, fc.Path, fc.Text)
		out = append(out, id)
	}
	return out
}

// rootFor finds the project root whose component contains file (spec.md
// §4.6), falling back to file itself when project_graph() has no record of
// it yet (e.g. a file whose only reference is the cursor currently sitting
// in it, not yet reachable from any #include sweep).
func (svc *Service) rootFor(s *query.Snapshot, file ids.FileID) (ids.FileID, error) {
	projects, err := s.ProjectGraph()
	if err != nil {
		return ids.Invalid, err
	}
	for _, p := range projects {
		for _, f := range p.Files {
			if f == file {
				return p.Root, nil
			}
		}
	}
	return file, nil
}

// NavigationTarget is goto_definition's result element (spec.md §6).
type NavigationTarget struct {
	File  ids.FileID
	Range ids.ByteRange
}

// GotoDefinition implements spec.md §6's goto_definition(FilePosition).
// Diagnostics raised as a side effect of resolving the callee of a call
// expression (SPEC_FULL.md §4.8's argument-count/named-argument checks) are
// returned alongside, for a transport layer that wants to publish them
// without a separate request.
func (svc *Service) GotoDefinition(ctx context.Context, pos ids.FilePosition) ([]NavigationTarget, []diagnostic.Diagnostic, error) {
	s := svc.db.Snapshot(ctx)
	root, err := svc.rootFor(s, pos.File)
	if err != nil {
		return nil, nil, err
	}
	target, diags, err := s.Resolve(root, pos.File, pos.Offset)
	if err != nil {
		return nil, nil, err
	}
	if (target == resolver.Target{}) {
		return nil, diags, nil
	}
	return []NavigationTarget{{File: target.File, Range: target.Range}}, diags, nil
}

// References implements spec.md §6's references(FilePosition) →
// list<FileRange>: the definition itself plus every other use, across every
// file in the project. Returns nil when the cursor isn't on a resolvable
// identifier.
func (svc *Service) References(ctx context.Context, pos ids.FilePosition) ([]ids.FileRange, error) {
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
	refs, err := s.References(root, target)
	if err != nil {
		return nil, err
	}

	out := make([]ids.FileRange, 0, len(refs)+1)
	out = append(out, ids.FileRange{File: target.File, Start: target.Range.Start, End: target.Range.End})
	for _, r := range refs {
		if r.File == target.File && r.Range == target.Range {
			continue
		}
		out = append(out, ids.FileRange{File: r.File, Start: r.Range.Start, End: r.Range.End})
	}
	return out, nil
}

// TextEdit is one replacement within a single file.
type TextEdit struct {
	Range   ids.ByteRange
	NewText string
}

// FileEdit groups every TextEdit rename produces for one file.
type FileEdit struct {
	File  ids.FileID
	Edits []TextEdit
}

// SourceChange is rename's result (spec.md §6).
type SourceChange struct {
	Files []FileEdit
}

// Rename implements spec.md §6's rename(FilePosition, new_name) →
// SourceChange: every location References would report, rewritten to
// newName and grouped per file.
func (svc *Service) Rename(ctx context.Context, pos ids.FilePosition, newName string) (*SourceChange, error) {
	locs, err := svc.References(ctx, pos)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}

	byFile := make(map[ids.FileID][]TextEdit)
	var order []ids.FileID
	for _, loc := range locs {
		if _, seen := byFile[loc.File]; !seen {
			order = append(order, loc.File)
		}
		byFile[loc.File] = append(byFile[loc.File], TextEdit{
			Range:   ids.ByteRange{Start: loc.Start, End: loc.End},
			NewText: newName,
		})
	}

	change := &SourceChange{Files: make([]FileEdit, 0, len(order))}
	for _, f := range order {
		change.Files = append(change.Files, FileEdit{File: f, Edits: byFile[f]})
	}
	return change, nil
}

// Completions implements spec.md §6's completions(FilePosition,
// trigger_char?) → list<CompletionItem>. triggerChar is accepted for API
// fidelity but not consulted: resolver.Completion already detects every
// context (member access, #include path, HookEvent name, general) directly
// from the surrounding text, the same way regardless of what triggered the
// request.
func (svc *Service) Completions(ctx context.Context, pos ids.FilePosition, triggerChar string) (resolver.CompletionResult, error) {
	_ = triggerChar
	s := svc.db.Snapshot(ctx)
	root, err := svc.rootFor(s, pos.File)
	if err != nil {
		return resolver.CompletionResult{}, err
	}
	return s.Completion(root, pos.File, pos.Offset)
}
