package preprocessor

import (
	"strconv"
	"strings"

	"github.com/sourcepawn-studio/spls/internal/lexer"
)

// EvalError distinguishes the two ways #if expression evaluation can fail
// without being fatal to preprocessing (spec.md §4.2 Failure semantics).
type EvalError int

const (
	// EvalOK means evaluation succeeded.
	EvalOK EvalError = iota
	// EvalUnresolvedMacro means an identifier was neither a keyword nor
	// resolvable through the MacroEnv.
	EvalUnresolvedMacro
	// EvalEvaluationError covers parse failures and division by zero.
	EvalEvaluationError
)

// EvalResult is the outcome of evaluating one #if/#elif expression.
type EvalResult struct {
	Value int64
	Error EvalError
	// BadName is set when Error == EvalUnresolvedMacro.
	BadName string
}

// evalTokenStream is a cursor over a slice of range-less tokens — the
// evaluator operates on these rather than lexer.Token+buffer because its
// input has usually already passed through object-like macro substitution
// (expandForEval), which produces synthetic tokens with no byte range of
// their own. Trivia is filtered out — the evaluator never sees comments or
// line continuations.
type evalTokenStream struct {
	toks []RangeLessToken
	pos  int
}

func newEvalTokenStream(toks []RangeLessToken) *evalTokenStream {
	filtered := make([]RangeLessToken, 0, len(toks))
	for _, t := range toks {
		if !t.Kind.IsTrivia() && t.Kind != lexer.Newline {
			filtered = append(filtered, t)
		}
	}
	return &evalTokenStream{toks: filtered}
}

func (s *evalTokenStream) peek() (RangeLessToken, bool) {
	if s.pos >= len(s.toks) {
		return RangeLessToken{}, false
	}
	return s.toks[s.pos], true
}

func (s *evalTokenStream) next() (RangeLessToken, bool) {
	t, ok := s.peek()
	if ok {
		s.pos++
	}
	return t, ok
}

func (s *evalTokenStream) text(t RangeLessToken) string { return t.Text }

// Evaluator evaluates #if/#elif expressions against a MacroEnv (spec.md
// §4.3). It is a precedence-climbing (Pratt) evaluator over the C operator
// set. It does no macro expansion itself: an identifier that reaches it is
// reported as EvalUnresolvedMacro.
type Evaluator struct {
	env *MacroEnv
}

// NewEvaluator creates an evaluator bound to env; defined(NAME) is answered
// by looking NAME up in it, so it sees whatever is currently defined.
func NewEvaluator(env *MacroEnv) *Evaluator {
	return &Evaluator{env: env}
}

// Eval evaluates a token stream (already macro-pre-expanded for identifiers
// other than `defined`) representing one #if/#elif condition.
func (e *Evaluator) Eval(toks []RangeLessToken) EvalResult {
	s := newEvalTokenStream(toks)
	val, res := e.parseExpr(s, 0)
	if res.Error != EvalOK {
		return res
	}
	if _, ok := s.peek(); ok {
		return EvalResult{Error: EvalEvaluationError}
	}
	return EvalResult{Value: val}
}

// precedence levels, highest binds tightest; unary ops are handled
// separately in parseUnary.
var binaryPrecedence = map[lexer.Kind]int{
	lexer.Or:  1,
	lexer.And: 2,
	lexer.Bitor: 3,
	lexer.Bitxor: 4,
	lexer.Ampersand: 5,
	lexer.Equals: 6, lexer.NotEquals: 6,
	lexer.Lt: 7, lexer.Le: 7, lexer.Gt: 7, lexer.Ge: 7,
	lexer.Shl: 8, lexer.Shr: 8, lexer.Ushr: 8,
	lexer.Plus: 9, lexer.Minus: 9,
	lexer.Star: 10, lexer.Slash: 10, lexer.Percent: 10,
}

func (e *Evaluator) parseExpr(s *evalTokenStream, minPrec int) (int64, EvalResult) {
	left, res := e.parseUnary(s)
	if res.Error != EvalOK {
		return 0, res
	}
	for {
		tok, ok := s.peek()
		if !ok {
			break
		}
		prec, isBinary := binaryPrecedence[tok.Kind]
		if !isBinary || prec < minPrec {
			break
		}
		s.next()
		right, res := e.parseExpr(s, prec+1)
		if res.Error != EvalOK {
			return 0, res
		}
		v, res := applyBinary(tok.Kind, left, right)
		if res.Error != EvalOK {
			return 0, res
		}
		left = v
	}
	return left, EvalResult{}
}

func applyBinary(op lexer.Kind, l, r int64) (int64, EvalResult) {
	switch op {
	case lexer.Plus:
		return l + r, EvalResult{}
	case lexer.Minus:
		return l - r, EvalResult{}
	case lexer.Star:
		return l * r, EvalResult{}
	case lexer.Slash:
		if r == 0 {
			return 0, EvalResult{Error: EvalEvaluationError}
		}
		return l / r, EvalResult{}
	case lexer.Percent:
		if r == 0 {
			return 0, EvalResult{Error: EvalEvaluationError}
		}
		return l % r, EvalResult{}
	case lexer.Equals:
		return boolToInt(l == r), EvalResult{}
	case lexer.NotEquals:
		return boolToInt(l != r), EvalResult{}
	case lexer.Lt:
		return boolToInt(l < r), EvalResult{}
	case lexer.Le:
		return boolToInt(l <= r), EvalResult{}
	case lexer.Gt:
		return boolToInt(l > r), EvalResult{}
	case lexer.Ge:
		return boolToInt(l >= r), EvalResult{}
	case lexer.And:
		return boolToInt(l != 0 && r != 0), EvalResult{}
	case lexer.Or:
		return boolToInt(l != 0 || r != 0), EvalResult{}
	case lexer.Ampersand:
		return l & r, EvalResult{}
	case lexer.Bitor:
		return l | r, EvalResult{}
	case lexer.Bitxor:
		return l ^ r, EvalResult{}
	case lexer.Shl:
		return l << uint64(r), EvalResult{}
	case lexer.Shr:
		return l >> uint64(r), EvalResult{}
	case lexer.Ushr:
		return int64(uint64(l) >> uint64(r)), EvalResult{}
	default:
		return 0, EvalResult{Error: EvalEvaluationError}
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (e *Evaluator) parseUnary(s *evalTokenStream) (int64, EvalResult) {
	tok, ok := s.peek()
	if !ok {
		return 0, EvalResult{Error: EvalEvaluationError}
	}
	switch tok.Kind {
	case lexer.Not:
		s.next()
		v, res := e.parseUnary(s)
		if res.Error != EvalOK {
			return 0, res
		}
		return boolToInt(v == 0), EvalResult{}
	case lexer.Minus:
		s.next()
		v, res := e.parseUnary(s)
		if res.Error != EvalOK {
			return 0, res
		}
		return -v, EvalResult{}
	case lexer.Tilde:
		s.next()
		v, res := e.parseUnary(s)
		if res.Error != EvalOK {
			return 0, res
		}
		return ^v, EvalResult{}
	default:
		return e.parsePrimary(s)
	}
}

func (e *Evaluator) parsePrimary(s *evalTokenStream) (int64, EvalResult) {
	tok, ok := s.next()
	if !ok {
		return 0, EvalResult{Error: EvalEvaluationError}
	}

	switch tok.Kind {
	case lexer.LParen:
		v, res := e.parseExpr(s, 0)
		if res.Error != EvalOK {
			return 0, res
		}
		if close, ok := s.next(); !ok || close.Kind != lexer.RParen {
			return 0, EvalResult{Error: EvalEvaluationError}
		}
		return v, EvalResult{}

	case lexer.IntegerLiteral:
		v, err := strconv.ParseInt(stripDigitSeparators(s.text(tok)), 10, 64)
		if err != nil {
			return 0, EvalResult{Error: EvalEvaluationError}
		}
		return v, EvalResult{}

	case lexer.HexLiteral:
		text := strings.TrimPrefix(strings.TrimPrefix(s.text(tok), "0x"), "0X")
		v, err := strconv.ParseInt(stripDigitSeparators(text), 16, 64)
		if err != nil {
			return 0, EvalResult{Error: EvalEvaluationError}
		}
		return v, EvalResult{}

	case lexer.BinaryLiteral:
		text := strings.TrimPrefix(strings.TrimPrefix(s.text(tok), "0b"), "0B")
		v, err := strconv.ParseInt(stripDigitSeparators(text), 2, 64)
		if err != nil {
			return 0, EvalResult{Error: EvalEvaluationError}
		}
		return v, EvalResult{}

	case lexer.OctodecimalLiteral:
		text := strings.TrimPrefix(s.text(tok), "0o")
		v, err := strconv.ParseInt(text, 8, 64)
		if err != nil {
			return 0, EvalResult{Error: EvalEvaluationError}
		}
		return v, EvalResult{}

	case lexer.CharLiteral:
		return charLiteralValue(s.text(tok)), EvalResult{}

	case lexer.KwTrue:
		return 1, EvalResult{}
	case lexer.KwFalse:
		return 0, EvalResult{}

	case lexer.KwDefined:
		return e.evalDefined(s)

	case lexer.Identifier:
		return 0, EvalResult{Error: EvalUnresolvedMacro, BadName: s.text(tok)}

	default:
		return 0, EvalResult{Error: EvalEvaluationError}
	}
}

func (e *Evaluator) evalDefined(s *evalTokenStream) (int64, EvalResult) {
	open, ok := s.next()
	if !ok || open.Kind != lexer.LParen {
		return 0, EvalResult{Error: EvalEvaluationError}
	}
	name, ok := s.next()
	if !ok || name.Kind != lexer.Identifier {
		return 0, EvalResult{Error: EvalEvaluationError}
	}
	close, ok := s.next()
	if !ok || close.Kind != lexer.RParen {
		return 0, EvalResult{Error: EvalEvaluationError}
	}
	_, defined := e.env.Lookup(s.text(name))
	return boolToInt(defined), EvalResult{}
}

func stripDigitSeparators(s string) string {
	return strings.ReplaceAll(s, "_", "")
}

func charLiteralValue(text string) int64 {
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'")
	if inner == "" {
		return 0
	}
	if inner[0] == '\\' && len(inner) > 1 {
		switch inner[1] {
		case 'n':
			return int64('\n')
		case 't':
			return int64('\t')
		case 'r':
			return int64('\r')
		case '0':
			return 0
		case '\\':
			return int64('\\')
		case '\'':
			return int64('\'')
		default:
			return int64(inner[1])
		}
	}
	r := []rune(inner)
	return int64(r[0])
}
