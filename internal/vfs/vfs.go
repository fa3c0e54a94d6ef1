// Package vfs defines the virtual file system boundary the analysis core
// consumes. The concrete backing store (real disk, editor-managed buffers,
// an in-memory test fixture) is an external collaborator — spec.md §1 scopes
// it out of the core on purpose. This package only carries the trait
// (FS interface) plus a simple in-memory implementation used by tests and by
// the doctor CLI when no editor is attached.
//
// Grounded on original_source/crates/vfs (file_set.rs, anchored_path.rs):
// paths are partitioned into FileSets rooted at configured directories, and
// resolution is either anchor-relative (quoted #include) or root-relative
// (angle-bracket #include, search path fallback).
package vfs

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/sourcepawn-studio/spls/internal/ids"
)

// AnchoredPath is a path string relative to some anchor file's directory —
// the quoted-include case of spec.md §6.
type AnchoredPath struct {
	Anchor ids.FileID
	Path   string
}

// ChangeKind distinguishes the three ways a file can be observed to change.
type ChangeKind int

const (
	// Modified means the file's contents changed (or it was created).
	Modified ChangeKind = iota
	// Deleted means set_file_contents was called with a nil text.
	Deleted
)

// Change describes a single file mutation delivered on the change stream.
type Change struct {
	File ids.FileID
	Kind ChangeKind
}

// FS is the interface the core consumes. Implementations must be safe for
// concurrent reads; SetFileContents is the only mutator and is the only
// source of revision bumps (spec.md §5).
type FS interface {
	// FileText returns the current contents of file. Returns ("", false) if
	// the file does not exist (e.g. was deleted).
	FileText(file ids.FileID) (string, bool)

	// FileExtension returns the file's extension without the leading dot
	// (e.g. "sp", "inc").
	FileExtension(file ids.FileID) string

	// ResolvePath tries anchor's directory first (spec.md §6).
	ResolvePath(anchor ids.FileID, relative string) (ids.FileID, bool)

	// ResolvePathRelativeToRoots consults configured include directories in
	// order (spec.md §6).
	ResolvePathRelativeToRoots(relative string) (ids.FileID, bool)

	// Path returns the path a FileID was registered under, for diagnostics
	// and debugging only — the core must never branch on this value.
	Path(file ids.FileID) (string, bool)

	// SetFileContents installs new content for a path, assigning a FileID on
	// first sight. text == nil denotes deletion. Returns the file's FileID
	// and whether its revision advanced.
	SetFileContents(path string, text *string) (ids.FileID, bool)

	// Revision returns the file's current revision (0 for an unknown file).
	Revision(file ids.FileID) ids.Revision

	// IsIncludeDirectory reports whether file lives under a configured
	// include root; root selection skips such files (spec.md §4.6 point 2).
	IsIncludeDirectory(file ids.FileID) bool

	// Files returns every live (non-deleted) FileID known to this FS, sorted
	// by path — the query engine's project_graph() walks this set to find
	// every file's include edges (spec.md §4.9), and root-selection uses it
	// for its smallest-FileID tie-break (spec.md §4.6 point 3).
	Files() []ids.FileID

	// SetIncludeDirectories configures the ordered list of roots
	// ResolvePathRelativeToRoots consults (spec.md §6
	// includes_directories). The query database calls this whenever
	// SetConfig installs a configuration with a different list.
	SetIncludeDirectories(dirs []string)
}

// MemFS is a simple in-memory FS: the reference implementation used by unit
// tests and by the standalone CLI, grounded on the FileSet/Vfs split of
// original_source/crates/vfs/src/file_set.rs (paths partitioned into roots,
// with one local root and N include roots).
type MemFS struct {
	mu sync.RWMutex

	nextID      ids.FileID
	pathToID    map[string]ids.FileID
	idToPath    map[ids.FileID]string
	idToText    map[ids.FileID]string
	idToRev     map[ids.FileID]ids.Revision
	idToExists  map[ids.FileID]bool
	includeDirs []string // normalized, slash-separated, no trailing slash
}

// NewMemFS creates an empty in-memory VFS with no configured include roots.
func NewMemFS() *MemFS {
	return &MemFS{
		nextID:     1,
		pathToID:   make(map[string]ids.FileID),
		idToPath:   make(map[ids.FileID]string),
		idToText:   make(map[ids.FileID]string),
		idToRev:    make(map[ids.FileID]ids.Revision),
		idToExists: make(map[ids.FileID]bool),
	}
}

// SetIncludeDirectories configures the ordered list of roots consulted by
// ResolvePathRelativeToRoots (spec.md §6 includes_directories).
func (m *MemFS) SetIncludeDirectories(dirs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.includeDirs = make([]string, len(dirs))
	for i, d := range dirs {
		m.includeDirs[i] = normalize(d)
	}
}

func normalize(p string) string {
	p = filepathToSlash(p)
	return strings.TrimSuffix(p, "/")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func (m *MemFS) internID(p string) ids.FileID {
	p = normalize(p)
	if id, ok := m.pathToID[p]; ok {
		return id
	}
	id := m.nextID
	m.nextID++
	m.pathToID[p] = id
	m.idToPath[id] = p
	return id
}

// WriteFile is a test/CLI convenience: it installs text for path and returns
// the assigned FileID, bumping the revision.
func (m *MemFS) WriteFile(path string, text string) ids.FileID {
	id, _ := m.SetFileContents(path, &text)
	return id
}

func (m *MemFS) SetFileContents(p string, text *string) (ids.FileID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.internID(p)
	if text == nil {
		if !m.idToExists[id] {
			return id, false
		}
		m.idToExists[id] = false
		m.idToText[id] = ""
		m.idToRev[id]++
		return id, true
	}

	if m.idToExists[id] && m.idToText[id] == *text {
		return id, false
	}
	m.idToExists[id] = true
	m.idToText[id] = *text
	m.idToRev[id]++
	return id, true
}

func (m *MemFS) FileText(file ids.FileID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.idToExists[file] {
		return "", false
	}
	return m.idToText[file], true
}

func (m *MemFS) FileExtension(file ids.FileID) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.idToPath[file]
	ext := path.Ext(p)
	return strings.TrimPrefix(ext, ".")
}

func (m *MemFS) Path(file ids.FileID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.idToPath[file]
	return p, ok
}

func (m *MemFS) Revision(file ids.FileID) ids.Revision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idToRev[file]
}

func (m *MemFS) ResolvePath(anchor ids.FileID, relative string) (ids.FileID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if strings.HasPrefix(relative, "/") {
		id, ok := m.pathToID[normalize(relative)]
		return id, ok && m.idToExists[id]
	}

	anchorPath, ok := m.idToPath[anchor]
	if !ok {
		return ids.Invalid, false
	}
	dir := path.Dir(anchorPath)
	joined := normalize(path.Join(dir, relative))
	id, ok := m.pathToID[joined]
	return id, ok && m.idToExists[id]
}

func (m *MemFS) ResolvePathRelativeToRoots(relative string) (ids.FileID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, root := range m.includeDirs {
		joined := normalize(path.Join(root, relative))
		if id, ok := m.pathToID[joined]; ok && m.idToExists[id] {
			return id, true
		}
	}
	return ids.Invalid, false
}

func (m *MemFS) IsIncludeDirectory(file ids.FileID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.idToPath[file]
	if !ok {
		return false
	}
	for _, root := range m.includeDirs {
		if p == root || strings.HasPrefix(p, root+"/") {
			return true
		}
	}
	return false
}

// Files returns every live (non-deleted) FileID, sorted — used by the
// project graph's root-selection tie-break (spec.md §4.6 point 3) and by
// tests that need a stable iteration order.
func (m *MemFS) Files() []ids.FileID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ids.FileID, 0, len(m.idToExists))
	for id, exists := range m.idToExists {
		if exists {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.idToPath[out[i]] < m.idToPath[out[j]] })
	return out
}
