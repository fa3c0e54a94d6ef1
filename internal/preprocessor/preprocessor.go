package preprocessor

import (
	"strings"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/lexer"
)

// ErrorKind is the closed set of non-fatal preprocessing failures
// (spec.md §4.2 Failure semantics / §7).
type ErrorKind int

const (
	UnresolvedInclude ErrorKind = iota
	UnresolvedMacro
	PreprocessorEvaluationError
)

// Error is one collected preprocessing diagnostic. None of these abort
// preprocessing — the engine always produces a best-effort result.
type Error struct {
	Kind    ErrorKind
	Range   ids.ByteRange
	Message string
}

// PreprocessingResult is the per-file output of preprocessing (spec.md §3).
type PreprocessingResult struct {
	PreprocessedText string
	MacrosAfter      *MacroEnv
	SourceMap        *SourceMap
	Errors           []Error
	InactiveRanges   []ids.ByteRange
	// Includes lists every FileID this file successfully #include'd or
	// #tryinclude'd, in source order — the project graph's edges.
	Includes []ids.FileID
}

// IncludeResolver resolves a #include/#tryinclude path relative to anchor.
// quoted selects anchor-first resolution; false selects resolution against
// the configured search roots first (spec.md §6).
type IncludeResolver func(anchor ids.FileID, path string, quoted bool) (ids.FileID, bool)

// FileTextLookup returns the current text of a file, as the VFS would.
type FileTextLookup func(file ids.FileID) (string, bool)

// Preprocessor runs the two-pass (macro expansion + conditional
// compilation) algorithm of spec.md §4.2, grounded on the overall
// accumulate-into-a-buffer-plus-parallel-mapping control flow of the
// teacher's pkg/preprocessor.Preprocessor.Process, and on
// original_source/crates/preprocessor/src/db.rs for the recursive
// "preprocess this file, folding in every transitively-included file's
// result" shape that PreprocessFile below implements directly (in place of
// the original's salsa query wrapper, which belongs to internal/query).
type Preprocessor struct {
	resolveInclude IncludeResolver
	fileText       FileTextLookup
}

// New creates a Preprocessor bound to the given VFS-backed callbacks.
func New(resolveInclude IncludeResolver, fileText FileTextLookup) *Preprocessor {
	return &Preprocessor{resolveInclude: resolveInclude, fileText: fileText}
}

// PreprocessFile preprocesses file and, transitively, every file it
// includes, returning one PreprocessingResult per visited file. inputEnv is
// the MacroEnv inherited from whatever included this file (empty for a
// root). beingPreprocessed guards against include cycles (spec.md §4.2
// Cycle policy): re-entering a file already on the stack is skipped
// silently.
func (p *Preprocessor) PreprocessFile(
	file ids.FileID,
	text string,
	inputEnv *MacroEnv,
	beingPreprocessed map[ids.FileID]bool,
) map[ids.FileID]*PreprocessingResult {
	being := make(map[ids.FileID]bool, len(beingPreprocessed)+1)
	for k, v := range beingPreprocessed {
		being[k] = v
	}
	being[file] = true

	results := make(map[ids.FileID]*PreprocessingResult)
	run := &fileRun{
		p:      p,
		file:   file,
		src:    text,
		env:    inputEnv.Clone(),
		being:  being,
		out:    results,
	}
	results[file] = run.process()
	return results
}

// fileRun holds the mutable state threaded through one file's preprocessing
// pass.
type fileRun struct {
	p    *Preprocessor
	file ids.FileID
	src  string
	env  *MacroEnv
	being map[ids.FileID]bool
	out  map[ids.FileID]*PreprocessingResult

	buf      strings.Builder
	outPos   uint32
	sm       *SourceMap
	errs     []Error
	includes []ids.FileID

	conds       ConditionStack
	condOffsets ConditionOffsetStack
	inactiveRanges []ids.ByteRange

	stopped bool // set by #endinput
}

func (r *fileRun) process() *PreprocessingResult {
	r.sm = NewSourceMap()
	toks := lexer.Tokenize(r.src)

	i := 0
	for i < len(toks) && !r.stopped {
		tok := toks[i]

		switch {
		case tok.Kind == lexer.Newline:
			r.emitVerbatim(tok)
			i++

		case tok.Kind.IsTrivia():
			if r.conds.AllActive() {
				r.emitVerbatim(tok)
			}
			i++

		case isDirectiveKind(tok.Kind):
			lineEnd := r.scanLogicalLineEnd(toks, i)
			r.handleDirective(toks, i, lineEnd)
			i = lineEnd

		default:
			if r.conds.AllActive() {
				i = r.emitToken(toks, i)
			} else {
				i++
			}
		}
	}

	r.inactiveRanges = append(r.inactiveRanges, r.condOffsets.InactiveRanges()...)

	return &PreprocessingResult{
		PreprocessedText: r.buf.String(),
		MacrosAfter:      r.env,
		SourceMap:        r.sm,
		Errors:           r.errs,
		InactiveRanges:   r.inactiveRanges,
		Includes:         r.includes,
	}
}

// scanLogicalLineEnd returns the index one past the last token of the
// logical line starting at i, treating LineContinuation as extending the
// line (spec.md §4.1, §4.2 point 3).
func (r *fileRun) scanLogicalLineEnd(toks []lexer.Token, i int) int {
	j := i
	for j < len(toks) {
		if toks[j].Kind == lexer.Newline {
			return j
		}
		j++
	}
	return j
}

func isDirectiveKind(k lexer.Kind) bool {
	switch k {
	case lexer.MDefine, lexer.MUndef, lexer.MIf, lexer.MElseif, lexer.MElse, lexer.MEndif,
		lexer.MInclude, lexer.MTryinclude, lexer.MEndinput, lexer.MPragma, lexer.MDeprecate,
		lexer.MAssert, lexer.MError, lexer.MWarning, lexer.MLine, lexer.MFile, lexer.MLeaving,
		lexer.MOptionalNewdecls, lexer.MOptionalSemi, lexer.MRequireNewdecls, lexer.MRequireSemi:
		return true
	default:
		return false
	}
}

func (r *fileRun) handleDirective(toks []lexer.Token, start, end int) {
	directive := toks[start]
	body := toks[start+1 : end]

	switch directive.Kind {
	case lexer.MDefine:
		r.handleDefine(body)
	case lexer.MUndef:
		if name, ok := firstIdent(body, r.src); ok {
			r.env.Undef(name)
		}
	case lexer.MIf:
		r.handleIf(body)
	case lexer.MElseif:
		r.handleElseif(body)
	case lexer.MElse:
		r.handleElse(directive.Range.End)
	case lexer.MEndif:
		r.handleEndif(directive.Range.End)
	case lexer.MInclude:
		r.handleInclude(body, false)
	case lexer.MTryinclude:
		r.handleInclude(body, true)
	case lexer.MEndinput:
		if r.conds.AllActive() {
			r.stopped = true
		}
	default:
		// #pragma, #assert, #error, #warning, #line, #file, #leaving, and
		// the newdecls/semicolon hint directives are recognized but have no
		// effect on preprocessing output — they are consumed (not emitted)
		// like every other directive line.
	}
}

func firstIdent(toks []lexer.Token, src string) (string, bool) {
	for _, t := range toks {
		if t.Kind == lexer.Identifier {
			return t.Text(src), true
		}
	}
	return "", false
}

// handleDefine implements spec.md §4.2 point 3: parse an optional
// parameter list (only if '(' immediately follows the name with no
// whitespace), then collect body tokens to end of logical line.
func (r *fileRun) handleDefine(body []lexer.Token) {
	if len(body) == 0 || body[0].Kind != lexer.Identifier {
		return
	}
	name := body[0].Text(r.src)
	rest := body[1:]

	var params []string
	if len(rest) > 0 && rest[0].Kind == lexer.LParen && rest[0].LeadingWhitespaceWidth == 0 {
		depth := 0
		j := 0
		for j < len(rest) {
			if rest[j].Kind == lexer.LParen {
				depth++
			}
			if rest[j].Kind == lexer.RParen {
				depth--
				if depth == 0 {
					j++
					break
				}
			}
			if rest[j].Kind == lexer.Identifier {
				params = append(params, rest[j].Text(r.src))
			}
			j++
		}
		rest = rest[j:]
		if params == nil {
			params = []string{} // function-like with zero params, still function-like
		}
	}

	bodyToks := make([]RangeLessToken, 0, len(rest))
	for i := 0; i < len(rest); i++ {
		t := rest[i]
		if t.Kind.IsTrivia() || t.Kind == lexer.LineContinuation {
			continue
		}
		// %0-%9 positional parameter markers arrive as two adjacent tokens
		// (Percent, IntegerLiteral) with no whitespace between them; fold
		// them into a single placeholder token so substituteParams can
		// recognize them (spec.md §4.2 point 11).
		if t.Kind == lexer.Percent && i+1 < len(rest) {
			nt := rest[i+1]
			if nt.Kind == lexer.IntegerLiteral && nt.LeadingWhitespaceWidth == 0 &&
				len(nt.Text(r.src)) == 1 && nt.Text(r.src)[0] >= '0' && nt.Text(r.src)[0] <= '9' {
				bodyToks = append(bodyToks, RangeLessToken{Kind: lexer.Percent, Text: "%" + nt.Text(r.src)})
				i++
				continue
			}
		}
		bodyToks = append(bodyToks, RangeLessToken{Kind: t.Kind, Text: t.Text(r.src)})
	}

	r.env.Define(Macro{
		Name:   name,
		Params: params,
		Body:   bodyToks,
		DefinitionSite: ids.FileRange{File: r.file, Start: body[0].Range.Start, End: body[0].Range.End},
	})
}

func (r *fileRun) handleIf(body []lexer.Token) {
	expr := r.expandForEval(body)
	res := NewEvaluator(r.env).Eval(expr)
	r.reportEvalError(res, body)

	active := res.Value != 0
	r.condOffsets.Push(rangeStart(body))
	if active {
		r.conds.Push(Active)
	} else {
		r.conds.Push(NotActivated)
		r.condOffsets.MarkFrameHadInactiveBranch()
	}
}

func (r *fileRun) handleElseif(body []lexer.Token) {
	top, ok := r.conds.Top()
	if !ok {
		return
	}
	switch top {
	case Active:
		r.conds.SetTop(Activated)
		r.condOffsets.MarkFrameHadInactiveBranch()
	case NotActivated:
		expr := r.expandForEval(body)
		res := NewEvaluator(r.env).Eval(expr)
		r.reportEvalError(res, body)
		if res.Value != 0 {
			r.conds.SetTop(Active)
		} else {
			r.condOffsets.MarkFrameHadInactiveBranch()
		}
	case Activated:
		r.condOffsets.MarkFrameHadInactiveBranch()
	}
}

func (r *fileRun) handleElse(pos uint32) {
	top, ok := r.conds.Top()
	if !ok {
		return
	}
	switch top {
	case NotActivated:
		r.conds.SetTop(Active)
	case Active:
		r.conds.SetTop(Activated)
		r.condOffsets.MarkFrameHadInactiveBranch()
	case Activated:
		r.condOffsets.MarkFrameHadInactiveBranch()
	}
}

func (r *fileRun) handleEndif(pos uint32) {
	r.conds.Pop()
	r.condOffsets.PopAndRecord(pos)
}

func (r *fileRun) reportEvalError(res EvalResult, body []lexer.Token) {
	rng := ids.ByteRange{}
	if len(body) > 0 {
		rng = ids.ByteRange{Start: body[0].Range.Start, End: body[len(body)-1].Range.End}
	}
	switch res.Error {
	case EvalUnresolvedMacro:
		r.errs = append(r.errs, Error{Kind: UnresolvedMacro, Range: rng, Message: "unresolved identifier in #if expression: " + res.BadName})
	case EvalEvaluationError:
		r.errs = append(r.errs, Error{Kind: PreprocessorEvaluationError, Range: rng, Message: "could not evaluate #if expression"})
	}
}

func rangeStart(toks []lexer.Token) uint32 {
	if len(toks) == 0 {
		return 0
	}
	return toks[0].Range.Start
}

// expandForEval performs best-effort object-like macro substitution over an
// #if/#elif expression's tokens, leaving `defined` and its argument alone so
// evalDefined can still answer "is NAME defined" rather than its expansion.
// Function-like macro invocations inside #if expressions are left
// unexpanded (see DESIGN.md) — they are rare in practice (most SourcePawn
// #if guards test plain feature-flag defines).
func (r *fileRun) expandForEval(toks []lexer.Token) []RangeLessToken {
	out := make([]RangeLessToken, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind.IsTrivia() {
			continue
		}
		if t.Kind == lexer.KwDefined {
			out = append(out, RangeLessToken{Kind: t.Kind, Text: t.Text(r.src)})
			// copy through "(", NAME, ")" verbatim without trying to expand NAME
			for copied := 0; copied < 3 && i+1 < len(toks); {
				i++
				nt := toks[i]
				if nt.Kind.IsTrivia() {
					continue
				}
				out = append(out, RangeLessToken{Kind: nt.Kind, Text: nt.Text(r.src)})
				copied++
				if nt.Kind == lexer.RParen {
					break
				}
			}
			continue
		}
		if t.Kind == lexer.Identifier {
			if m, ok := r.env.Lookup(t.Text(r.src)); ok && !m.IsFunctionLike() && !r.env.IsExpanding(m.Name) {
				r.env.BeginExpanding(m.Name)
				out = append(out, r.expandObjectLikeRecursive(m)...)
				r.env.EndExpanding(m.Name)
				continue
			}
		}
		out = append(out, RangeLessToken{Kind: t.Kind, Text: t.Text(r.src)})
	}
	return out
}

func (r *fileRun) expandObjectLikeRecursive(m Macro) []RangeLessToken {
	out := make([]RangeLessToken, 0, len(m.Body))
	for _, bt := range m.Body {
		if bt.Kind == lexer.Identifier {
			if nested, ok := r.env.Lookup(bt.Text); ok && !nested.IsFunctionLike() && !r.env.IsExpanding(nested.Name) {
				r.env.BeginExpanding(nested.Name)
				out = append(out, r.expandObjectLikeRecursive(nested)...)
				r.env.EndExpanding(nested.Name)
				continue
			}
		}
		out = append(out, bt)
	}
	return out
}

func (r *fileRun) handleInclude(body []lexer.Token, tryinclude bool) {
	if !r.conds.AllActive() {
		return
	}
	path, quoted, rng, ok := parseIncludePath(body, r.src)
	if !ok {
		return
	}

	target, resolved := r.p.resolveInclude(r.file, path, quoted)
	if !resolved {
		if !tryinclude {
			r.errs = append(r.errs, Error{Kind: UnresolvedInclude, Range: rng, Message: "cannot resolve include: " + path})
		}
		return
	}

	r.includes = append(r.includes, target)

	if r.being[target] {
		return // cycle: skip silently (spec.md §4.2 Cycle policy)
	}

	text, ok := r.p.fileText(target)
	if !ok {
		if !tryinclude {
			r.errs = append(r.errs, Error{Kind: UnresolvedInclude, Range: rng, Message: "include target has no text: " + path})
		}
		return
	}

	nested := r.p.PreprocessFile(target, text, r.env, r.being)
	for fid, res := range nested {
		r.out[fid] = res
	}
	if nestedResult, ok := nested[target]; ok {
		r.env.MergeFrom(nestedResult.MacrosAfter)
	}
}

// parseIncludePath extracts the path string and whether it was quoted from
// the directive body: either a single StringLiteral ("path") or a sequence
// bracketed by Lt/Gt (<path>).
func parseIncludePath(body []lexer.Token, src string) (string, bool, ids.ByteRange, bool) {
	var filtered []lexer.Token
	for _, t := range body {
		if !t.Kind.IsTrivia() {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return "", false, ids.ByteRange{}, false
	}
	if filtered[0].Kind == lexer.StringLiteral {
		text := filtered[0].Text(src)
		return strings.Trim(text, `"`), true, filtered[0].Range, true
	}
	if filtered[0].Kind == lexer.Lt {
		end := len(filtered) - 1
		if end < 1 || filtered[end].Kind != lexer.Gt {
			return "", false, ids.ByteRange{}, false
		}
		var sb strings.Builder
		for _, t := range filtered[1:end] {
			sb.WriteString(t.Text(src))
		}
		rng := ids.ByteRange{Start: filtered[0].Range.Start, End: filtered[end].Range.End}
		return sb.String(), false, rng, true
	}
	return "", false, ids.ByteRange{}, false
}

// emitVerbatim writes a token to the buffer unchanged, first reinserting the
// inline whitespace gap that separated it from whatever was emitted before
// it (LeadingWhitespaceWidth bytes immediately preceding t.Range.Start in the
// original source), so that adjacent tokens never fuse together in the
// preprocessed buffer (spec.md §4.1's byte-faithful reconstruction
// requirement). The SourceMap entry covers the gap plus the token itself so
// its Original and Preprocessed ranges stay the same length.
func (r *fileRun) emitVerbatim(t lexer.Token) {
	gapStart := t.Range.Start - t.LeadingWhitespaceWidth
	text := r.src[gapStart:t.Range.End]
	start := r.outPos
	r.buf.WriteString(text)
	r.outPos += uint32(len(text))
	r.sm.Add(Mapping{
		Original:     ids.ByteRange{Start: gapStart, End: t.Range.End},
		Preprocessed: ids.ByteRange{Start: start, End: r.outPos},
	})
}

// emitToken emits the token at toks[i], expanding it first if it names a
// macro (spec.md §4.2 point 11), and returns the index of the next
// unconsumed token.
func (r *fileRun) emitToken(toks []lexer.Token, i int) int {
	t := toks[i]
	if t.Kind != lexer.Identifier {
		r.emitVerbatim(t)
		return i + 1
	}

	name := t.Text(r.src)
	m, ok := r.env.Lookup(name)
	if !ok || r.env.IsExpanding(name) {
		r.emitVerbatim(t)
		return i + 1
	}

	if !m.IsFunctionLike() {
		r.env.BeginExpanding(name)
		expanded := r.expandObjectLikeRecursive(m)
		r.env.EndExpanding(name)
		r.emitExpansion(expanded, t.Range, t.LeadingWhitespaceWidth)
		return i + 1
	}

	args, nextI, matched := parseCallArgs(toks, i+1, r.src)
	if !matched {
		r.emitVerbatim(t)
		return i + 1
	}

	r.env.BeginExpanding(name)
	expanded := substituteParams(m, args)
	expanded = r.rescanExpansion(expanded)
	r.env.EndExpanding(name)

	callSite := ids.ByteRange{Start: t.Range.Start, End: toks[nextI-1].Range.End}
	r.emitExpansion(expanded, callSite, t.LeadingWhitespaceWidth)
	return nextI
}

// rescanExpansion re-expands any macro references inside an
// already-substituted function-like macro body, honoring the disabled set
// so direct recursion terminates (spec.md §4.2 point 11).
func (r *fileRun) rescanExpansion(toks []RangeLessToken) []RangeLessToken {
	out := make([]RangeLessToken, 0, len(toks))
	for _, t := range toks {
		if t.Kind == lexer.Identifier {
			if m, ok := r.env.Lookup(t.Text); ok && !m.IsFunctionLike() && !r.env.IsExpanding(m.Name) {
				r.env.BeginExpanding(m.Name)
				out = append(out, r.expandObjectLikeRecursive(m)...)
				r.env.EndExpanding(m.Name)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// emitExpansion writes expanded tokens to the buffer, joined by single
// spaces. The leadingWS bytes of inline whitespace that preceded the macro
// name in the original source are written first, verbatim and with their
// own mapping, as emitVerbatim does. Every expansion byte maps back to
// callSite as its original range, per spec.md §4.2 point 12:
// "goto-definition on an expansion result navigates to where the user
// wrote the macro name."
func (r *fileRun) emitExpansion(toks []RangeLessToken, callSite ids.ByteRange, leadingWS uint32) {
	if leadingWS > 0 {
		gapStart := callSite.Start - leadingWS
		gapOut := r.outPos
		r.buf.WriteString(r.src[gapStart:callSite.Start])
		r.outPos += leadingWS
		r.sm.Add(Mapping{
			Original:     ids.ByteRange{Start: gapStart, End: callSite.Start},
			Preprocessed: ids.ByteRange{Start: gapOut, End: r.outPos},
		})
	}
	start := r.outPos
	for i, t := range toks {
		if i > 0 {
			r.buf.WriteByte(' ')
			r.outPos++
		}
		r.buf.WriteString(t.Text)
		r.outPos += uint32(len(t.Text))
	}
	if start == r.outPos {
		return
	}
	r.sm.Add(Mapping{
		Original:     callSite,
		Preprocessed: ids.ByteRange{Start: start, End: r.outPos},
		IsExpansion:  true,
	})
}

// parseCallArgs lexes a parenthesized, comma-separated argument list
// starting at toks[start] (which must be '('), splitting only on top-level
// commas (spec.md §4.2 point 11). Returns the raw per-argument token
// sequences, the index past the closing ')', and whether a '(' was found
// at all (a function-like macro name with no following '(' is not an
// invocation and must be emitted as plain text).
func parseCallArgs(toks []lexer.Token, start int, src string) ([][]RangeLessToken, int, bool) {
	j := start
	for j < len(toks) && toks[j].Kind.IsTrivia() {
		j++
	}
	if j >= len(toks) || toks[j].Kind != lexer.LParen {
		return nil, start, false
	}
	j++

	var args [][]RangeLessToken
	var current []RangeLessToken
	depth := 1
	for j < len(toks) {
		t := toks[j]
		switch t.Kind {
		case lexer.LParen:
			depth++
			current = append(current, RangeLessToken{Kind: t.Kind, Text: t.Text(src)})
		case lexer.RParen:
			depth--
			if depth == 0 {
				args = append(args, current)
				j++
				return args, j, true
			}
			current = append(current, RangeLessToken{Kind: t.Kind, Text: t.Text(src)})
		case lexer.Comma:
			if depth == 1 {
				args = append(args, current)
				current = nil
			} else {
				current = append(current, RangeLessToken{Kind: t.Kind, Text: t.Text(src)})
			}
		default:
			if !t.Kind.IsTrivia() {
				current = append(current, RangeLessToken{Kind: t.Kind, Text: t.Text(src)})
			}
		}
		j++
	}
	return nil, start, false
}

// substituteParams replaces %0-%9 placeholders in m.Body with the
// corresponding argument's token sequence (spec.md §4.2 point 11).
func substituteParams(m Macro, args [][]RangeLessToken) []RangeLessToken {
	out := make([]RangeLessToken, 0, len(m.Body))
	for _, bt := range m.Body {
		if idx, ok := placeholderIndex(bt); ok {
			if idx < len(args) {
				out = append(out, args[idx]...)
			}
			continue
		}
		out = append(out, bt)
	}
	return out
}

// placeholderIndex recognizes a %0-%9 body token. handleDefine folds the
// lexer's separate Percent and IntegerLiteral tokens into one RangeLessToken
// of Kind Percent and Text "%N" while collecting a macro body, so we only
// need to check that shape here.
func placeholderIndex(t RangeLessToken) (int, bool) {
	if t.Kind == lexer.Percent && len(t.Text) == 2 && t.Text[0] == '%' && t.Text[1] >= '0' && t.Text[1] <= '9' {
		return int(t.Text[1] - '0'), true
	}
	return 0, false
}
