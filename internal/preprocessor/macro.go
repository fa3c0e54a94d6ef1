// Package preprocessor implements the two-pass textual preprocessor:
// macro expansion and conditional compilation, producing a preprocessed
// text buffer, a byte-range SourceMap back to the original, and the
// transitive #include graph.
//
// Grounded on original_source/crates/preprocessor (symbol.rs, conditions.rs,
// offset.rs, db.rs, result.rs) for the data-model shapes, and on the
// teacher's pkg/preprocessor for the overall "accumulate into a buffer plus
// a parallel mapping list" control-flow shape — though the teacher's own
// SourceMap (pkg/preprocessor/sourcemap.go) is a line/column linear scan,
// which this package replaces with a sorted byte-range table searched in
// O(log n), per spec.md §3.
package preprocessor

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/lexer"
)

// RangeLessToken is a macro body token stripped of its definition-site byte
// range — only its kind and text matter once it is stored in a Macro body,
// since bodies are replayed at arbitrary call sites. Grounded on
// crates/preprocessor/src/symbol.rs's RangeLessSymbol.
type RangeLessToken struct {
	Kind lexer.Kind
	Text string
}

// Macro is an object-like or function-like macro definition (spec.md §3).
// Params is nil for object-like macros. The %0-%9 placeholders in Body are
// recognized at substitution time (see substituteParams).
type Macro struct {
	Name           string
	Params         []string // parameter names, in declaration order; nil if object-like
	Body           []RangeLessToken
	DefinitionSite ids.FileRange
}

// IsFunctionLike reports whether the macro takes an argument list.
func (m Macro) IsFunctionLike() bool { return m.Params != nil }

// MacroEnv is the set of macros visible at a point in preprocessing, plus
// the set of names currently mid-expansion (direct-recursion guard).
// Content-addressed via Hash so that structurally identical environments
// collapse to one query cache key (spec.md §3, §4.9) — grounded on
// original_source/crates/preprocessor/src/db.rs's HashableHashMap<String,
// Macro> key, generalized here with xxhash since Go has no derive-Hash.
type MacroEnv struct {
	macros    map[string]Macro
	expanding map[string]bool
}

// NewMacroEnv creates an empty environment.
func NewMacroEnv() *MacroEnv {
	return &MacroEnv{macros: make(map[string]Macro), expanding: make(map[string]bool)}
}

// Clone returns a deep-enough copy safe to mutate independently — used when
// entering an #include so the included file's local #defines don't leak
// back into the includer's environment except via the returned merge.
func (e *MacroEnv) Clone() *MacroEnv {
	out := NewMacroEnv()
	for k, v := range e.macros {
		out.macros[k] = v
	}
	return out
}

// Define installs or replaces a macro.
func (e *MacroEnv) Define(m Macro) { e.macros[m.Name] = m }

// Undef removes a macro, a no-op if absent.
func (e *MacroEnv) Undef(name string) { delete(e.macros, name) }

// Lookup returns a macro by name.
func (e *MacroEnv) Lookup(name string) (Macro, bool) {
	m, ok := e.macros[name]
	return m, ok
}

// MergeFrom installs every macro from other into e, overwriting on
// conflict — this is the "merge the returned MacroEnv back into the
// current one" step of spec.md §4.2 point 8.
func (e *MacroEnv) MergeFrom(other *MacroEnv) {
	for k, v := range other.macros {
		e.macros[k] = v
	}
}

// BeginExpanding marks name as mid-expansion; EndExpanding clears it. Used
// to implement the "disabled set" that blocks direct macro recursion
// (spec.md §4.2 point 11).
func (e *MacroEnv) BeginExpanding(name string) { e.expanding[name] = true }
func (e *MacroEnv) EndExpanding(name string)   { delete(e.expanding, name) }
func (e *MacroEnv) IsExpanding(name string) bool { return e.expanding[name] }

// Hash returns a content hash over the sorted (name, macro) pairs, making
// MacroEnv usable as a cache key independent of map iteration order.
func (e *MacroEnv) Hash() uint64 {
	names := make([]string, 0, len(e.macros))
	for n := range e.macros {
		names = append(names, n)
	}
	sort.Strings(names)

	h := xxhash.New()
	for _, n := range names {
		m := e.macros[n]
		_, _ = h.WriteString(n)
		_, _ = h.WriteString("\x00")
		for _, p := range m.Params {
			_, _ = h.WriteString(p)
			_, _ = h.WriteString(",")
		}
		_, _ = h.WriteString("\x00")
		for _, tok := range m.Body {
			_, _ = h.WriteString(tok.Text)
			_, _ = h.WriteString("\x01")
		}
		_, _ = h.WriteString("\x02")
	}
	return h.Sum64()
}

// Names returns every defined macro name, sorted — used by itemtree.Build
// to export one define item per macro.
func (e *MacroEnv) Names() []string {
	out := make([]string, 0, len(e.macros))
	for n := range e.macros {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
