// Package diagnostic implements spec.md §7's closed error taxonomy: one
// `Kind` enum covering both preprocessor errors and resolver-raised
// problems, so a caller asking for "all diagnostics for this file" gets a
// single flat list regardless of which layer raised each entry.
package diagnostic

import (
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/preprocessor"
)

// Kind is the closed tag of spec.md §7's error taxonomy.
type Kind int

const (
	UnresolvedInclude Kind = iota
	UnresolvedMacro
	PreprocessorEvaluationError
	InactiveCode
	UnresolvedField
	UnresolvedMethodCall
	UnresolvedConstructor
	UnresolvedNamedArg
	UnresolvedInherit
	IncorrectNumberOfArguments
	InvalidUseOfThis
	Cancelled
	QueryCycle
)

// ConstructorProblem is UnresolvedConstructor's `kind` payload (spec.md §7).
type ConstructorProblem int

const (
	DoesNotExist ConstructorProblem = iota
	IsEnumStructNotMethodmap
	HasNoConstructor
)

// Diagnostic is one taxonomy entry. Not every field is populated for every
// Kind — see the per-Kind comments — mirroring itemtree.Item's flat-struct
// approach to a tagged union rather than defining thirteen Go types plus an
// interface.
type Diagnostic struct {
	Kind  Kind
	File  ids.FileID
	Range ids.ByteRange

	// UnresolvedInclude, resolver-raised only — preprocessor-raised
	// UnresolvedInclude carries its path inside Text instead, since
	// preprocessor.Error only has a rendered Message.
	Path string

	// UnresolvedField.name, UnresolvedMethodCall.name, UnresolvedNamedArg.name.
	// Resolver-raised UnresolvedMacro also sets this; preprocessor-raised
	// UnresolvedMacro carries its name inside Text for the same reason as
	// Path above.
	Name string

	// Text holds PreprocessorEvaluationError's source snippet, and is also
	// where every diagnostic converted from a preprocessor.Error keeps its
	// already-rendered message.
	Text string

	// UnresolvedField.receiver_type, UnresolvedMethodCall.receiver_type.
	ReceiverType string

	// UnresolvedConstructor.methodmap_name, UnresolvedInherit.methodmap_name.
	MethodmapName string
	// UnresolvedConstructor.kind.
	ConstructorProblem ConstructorProblem

	// UnresolvedInherit.exists_but_wrong_kind.
	ExistsButWrongKind bool

	// UnresolvedNamedArg.callee, IncorrectNumberOfArguments.callee.
	Callee string
	// IncorrectNumberOfArguments.
	Expected int
	Actual   int
	AtLeast  bool

	// QueryCycle.names.
	Names []string
}

// FromPreprocessorErrors converts a file's preprocessor.Error batch and
// inactive-range list into the unified taxonomy, so a caller collecting
// "every diagnostic for this file" doesn't need to special-case the
// preprocessing layer (spec.md §7: "carried in PreprocessingResult.errors
// and as AnyDiagnostic variants out of the resolver" — one taxonomy, two
// sources).
func FromPreprocessorErrors(file ids.FileID, errs []preprocessor.Error, inactiveRanges []ids.ByteRange) []Diagnostic {
	out := make([]Diagnostic, 0, len(errs)+len(inactiveRanges))
	for _, e := range errs {
		d := Diagnostic{File: file, Range: e.Range, Text: e.Message}
		switch e.Kind {
		case preprocessor.UnresolvedInclude:
			d.Kind = UnresolvedInclude
		case preprocessor.UnresolvedMacro:
			d.Kind = UnresolvedMacro
		case preprocessor.PreprocessorEvaluationError:
			d.Kind = PreprocessorEvaluationError
		default:
			continue
		}
		out = append(out, d)
	}
	for _, r := range inactiveRanges {
		out = append(out, Diagnostic{Kind: InactiveCode, File: file, Range: r})
	}
	return out
}
