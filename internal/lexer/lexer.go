package lexer

import (
	"strings"

	"github.com/sourcepawn-studio/spls/internal/ids"
)

// Token is one lexical unit: its kind, the byte range it occupies in the
// buffer that produced it, and the width in bytes of the inline whitespace
// (spaces/tabs/CRs) immediately preceding it on the same line
// (LeadingWhitespaceWidth — spec.md §4.1: "every token carries ... the
// whitespace width preceding it, needed to reconstruct a byte-faithful
// preprocessed buffer"). Two uses: the preprocessor decides whether a
// macro invocation's argument list is "adjacent" (the C-preprocessor rule
// that `FOO (x)` and `FOO(x)` are both valid function-like invocations but
// whitespace position matters) by testing this for zero, and it reconstructs
// the exact source gap before re-emitting a token verbatim by slicing
// Range.Start-LeadingWhitespaceWidth : Range.Start, rather than fusing
// adjacent tokens together.
type Token struct {
	Kind                   Kind
	Range                  ids.ByteRange
	LeadingWhitespaceWidth uint32
}

// Text returns the token's source text given the buffer it was lexed from.
func (t Token) Text(src string) string {
	return src[t.Range.Start:t.Range.End]
}

// Lexer is a restartable scanner over a byte buffer. "Restartable" means a
// caller can request the next token starting from an arbitrary byte offset
// (Reset). The preprocessor itself lexes whole files through Tokenize and
// does not call Reset. Grounded on the
// SourcePawnLexer iterator design of lexer.rs, which is likewise a thin
// cursor over the full input rather than a pre-tokenized list.
type Lexer struct {
	src               string
	pos               int
	insidePreprocessor bool
	atLineStart        bool
}

// New creates a lexer over src, positioned at the start of a line (so that a
// leading '#' is recognized as a directive introducer).
func New(src string) *Lexer {
	return &Lexer{src: src, pos: 0, atLineStart: true}
}

// Reset repositions the lexer to byte offset pos, as if scanning had begun
// there. atLineStart must be supplied by the caller since the lexer cannot
// infer it without looking backward.
func (l *Lexer) Reset(pos int, atLineStart bool) {
	l.pos = pos
	l.atLineStart = atLineStart
	l.insidePreprocessor = false
}

// Pos returns the current byte offset.
func (l *Lexer) Pos() int { return l.pos }

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

// Next scans and returns the next token, or (Token{Kind: EOF}, false) at end
// of input.
func (l *Lexer) Next() (Token, bool) {
	leadingWS := l.skipInlineWhitespace()

	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Range: ids.ByteRange{Start: uint32(l.pos), End: uint32(l.pos)}}, false
	}

	start := l.pos
	c := l.peek()

	switch {
	case c == '\n':
		l.pos++
		l.atLineStart = true
		return l.tok(Newline, start, leadingWS), true
	case c == '\\' && l.peekAt(1) == '\n':
		l.pos += 2
		l.atLineStart = true
		return l.tok(LineContinuation, start, leadingWS), true
	case c == '/' && l.peekAt(1) == '/':
		l.scanLineComment()
		return l.tok(LineComment, start, leadingWS), true
	case c == '/' && l.peekAt(1) == '*':
		l.scanBlockComment()
		return l.tok(BlockComment, start, leadingWS), true
	case c == '#' && l.atLineStart:
		l.atLineStart = false
		return l.scanDirectiveIntroducer(start, leadingWS)
	case isIdentStart(c):
		l.atLineStart = false
		return l.scanIdentOrKeyword(start, leadingWS)
	case c >= '0' && c <= '9':
		l.atLineStart = false
		return l.scanNumber(start, leadingWS)
	case c == '"':
		l.atLineStart = false
		l.scanString('"')
		return l.tok(StringLiteral, start, leadingWS), true
	case c == '\'':
		l.atLineStart = false
		l.scanString('\'')
		return l.tok(CharLiteral, start, leadingWS), true
	default:
		l.atLineStart = false
		return l.scanOperator(start, leadingWS)
	}
}

func (l *Lexer) tok(k Kind, start int, leadingWS uint32) Token {
	return Token{
		Kind:                   k,
		Range:                  ids.ByteRange{Start: uint32(start), End: uint32(l.pos)},
		LeadingWhitespaceWidth: leadingWS,
	}
}

// skipInlineWhitespace advances over spaces, tabs and carriage returns
// (never newlines) and
// returns the number of bytes consumed.
func (l *Lexer) skipInlineWhitespace() uint32 {
	start := l.pos
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\r') {
		l.pos++
	}
	return uint32(l.pos - start)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (l *Lexer) scanIdentOrKeyword(start int, leadingWS uint32) (Token, bool) {
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if kind, ok := LookupKeyword(text); ok {
		return l.tok(kind, start, leadingWS), true
	}
	return l.tok(Identifier, start, leadingWS), true
}

func (l *Lexer) scanNumber(start int, leadingWS uint32) (Token, bool) {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.pos += 2
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
		return l.tok(HexLiteral, start, leadingWS), true
	}
	if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.pos += 2
		for l.pos < len(l.src) && (l.src[l.pos] == '0' || l.src[l.pos] == '1' || l.src[l.pos] == '_') {
			l.pos++
		}
		return l.tok(BinaryLiteral, start, leadingWS), true
	}
	if l.peek() == '0' && l.peekAt(1) == 'o' {
		l.pos += 2
		for l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '7' {
			l.pos++
		}
		return l.tok(OctodecimalLiteral, start, leadingWS), true
	}

	isFloat := false
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.pos
		l.pos++
		if l.peek() == '+' || l.peek() == '-' {
			l.pos++
		}
		if isDigit(l.peek()) {
			isFloat = true
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}
	if isFloat {
		return l.tok(FloatLiteral, start, leadingWS), true
	}
	return l.tok(IntegerLiteral, start, leadingWS), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '_'
}

func (l *Lexer) scanString(quote byte) {
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos += 2
			continue
		}
		if c == quote {
			l.pos++
			return
		}
		if c == '\n' {
			return // unterminated: the literal ends before the newline
		}
		l.pos++
	}
}

func (l *Lexer) scanLineComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *Lexer) scanBlockComment() {
	l.pos += 2
	for l.pos+1 < len(l.src) {
		if l.src[l.pos] == '*' && l.src[l.pos+1] == '/' {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.src)
}

// scanDirectiveIntroducer consumes the '#' and the following directive
// identifier, looking it up against the preprocessor directive table, and
// sets insidePreprocessor. Any other tokens on the line are lexed exactly as
// they would be anywhere else; nothing in the lexer reads the flag.
func (l *Lexer) scanDirectiveIntroducer(start int, leadingWS uint32) (Token, bool) {
	l.pos++ // '#'
	l.skipInlineWhitespace()
	identStart := l.pos
	for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
		l.pos++
	}
	name := l.src[identStart:l.pos]
	l.insidePreprocessor = true
	if kind, ok := LookupDirective(strings.ToLower(name)); ok {
		return l.tok(kind, start, leadingWS), true
	}
	return l.tok(Unknown, start, leadingWS), true
}

var threeCharOps = map[string]Kind{
	"...": Ellipses,
	">>>": Ushr,
	">>=": AssignShr,
	"<<=": AssignShl,
}

var twoCharOps = map[string]Kind{
	"+=": AssignAdd, "-=": AssignSub, "*=": AssignMul, "/=": AssignDiv, "%=": AssignMod,
	"&=": AssignBitAnd, "|=": AssignBitOr, "^=": AssignBitXor,
	">>": Shr, "<<": Shl, "++": Increment, "--": Decrement,
	"==": Equals, "!=": NotEquals, "<=": Le, ">=": Ge,
	"&&": And, "||": Or, "::": Scope,
}

var singleCharOps = map[byte]Kind{
	'+': Plus, '-': Minus, '*': Star, '/': Slash, '%': Percent,
	'&': Ampersand, '|': Bitor, '^': Bitxor, '=': Assign, ';': Semicolon,
	'{': LBrace, '}': RBrace, '(': LParen, ')': RParen, '[': LBracket, ']': RBracket,
	'<': Lt, '>': Gt, ',': Comma, '!': Not, '~': Tilde, '?': Qmark, ':': Colon, '.': Dot,
}

func (l *Lexer) scanOperator(start int, leadingWS uint32) (Token, bool) {
	if l.pos+3 <= len(l.src) {
		if kind, ok := threeCharOps[l.src[l.pos:l.pos+3]]; ok {
			l.pos += 3
			return l.tok(kind, start, leadingWS), true
		}
	}
	if l.pos+2 <= len(l.src) {
		if kind, ok := twoCharOps[l.src[l.pos:l.pos+2]]; ok {
			l.pos += 2
			return l.tok(kind, start, leadingWS), true
		}
	}

	c := l.src[l.pos]
	if kind, ok := singleCharOps[c]; ok {
		l.pos++
		return l.tok(kind, start, leadingWS), true
	}
	l.pos++
	return l.tok(Unknown, start, leadingWS), true
}

// Tokenize runs the lexer to completion, returning every token including
// trivia. Callers that want a syntax-only stream should filter with
// Kind.IsTrivia.
func Tokenize(src string) []Token {
	l := New(src)
	var out []Token
	for {
		t, ok := l.Next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out
}
