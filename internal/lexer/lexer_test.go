package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/lexer"
)

func kinds(toks []lexer.Token) []lexer.Kind {
	out := make([]lexer.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeIdentifiersAndKeywords(t *testing.T) {
	toks := lexer.Tokenize("public void OnPluginStart()")
	require.NotEmpty(t, toks)
	assert.Equal(t, []lexer.Kind{
		lexer.KwPublic, lexer.KwVoid, lexer.Identifier, lexer.LParen, lexer.RParen,
	}, kinds(toks))
}

func TestTokenizeNumberLiterals(t *testing.T) {
	toks := lexer.Tokenize("0x1F 0b101 3.14 42")
	require.Len(t, toks, 4)
	assert.Equal(t, lexer.HexLiteral, toks[0].Kind)
	assert.Equal(t, lexer.BinaryLiteral, toks[1].Kind)
	assert.Equal(t, lexer.FloatLiteral, toks[2].Kind)
	assert.Equal(t, lexer.IntegerLiteral, toks[3].Kind)
}

func TestTokenizeStringAndCharLiterals(t *testing.T) {
	toks := lexer.Tokenize(`"hello \"world\"" 'a'`)
	require.Len(t, toks, 2)
	assert.Equal(t, lexer.StringLiteral, toks[0].Kind)
	assert.Equal(t, lexer.CharLiteral, toks[1].Kind)
}

func TestTokenizeDirectiveIntroducerOnlyAtLineStart(t *testing.T) {
	src := "#define FOO 1\nx = FOO # not_a_directive\n"
	toks := lexer.Tokenize(src)
	require.NotEmpty(t, toks)
	assert.Equal(t, lexer.MDefine, toks[0].Kind)

	found := false
	for _, tok := range toks {
		if tok.Kind == lexer.Unknown {
			found = true
		}
	}
	assert.True(t, found, "a '#' not at line start must not resolve to a known directive")
}

func TestTokenizeLineContinuationAndComments(t *testing.T) {
	src := "int x = 1 + \\\n2; // trailing\n/* block */"
	toks := lexer.Tokenize(src)
	hasContinuation := false
	hasLineComment := false
	hasBlockComment := false
	for _, tok := range toks {
		switch tok.Kind {
		case lexer.LineContinuation:
			hasContinuation = true
		case lexer.LineComment:
			hasLineComment = true
		case lexer.BlockComment:
			hasBlockComment = true
		}
	}
	assert.True(t, hasContinuation)
	assert.True(t, hasLineComment)
	assert.True(t, hasBlockComment)
}

func TestTokenRangesAreByteAccurate(t *testing.T) {
	src := "int   foo"
	toks := lexer.Tokenize(src)
	require.Len(t, toks, 2)
	assert.Equal(t, "int", toks[0].Text(src))
	assert.Equal(t, "foo", toks[1].Text(src))
	assert.Equal(t, uint32(3), toks[1].LeadingWhitespaceWidth)
}

func TestTokenizeCompoundAssignOperators(t *testing.T) {
	toks := lexer.Tokenize("x += 1; y >>>= 2; z <<= 3;")
	kindSet := map[lexer.Kind]bool{}
	for _, tok := range toks {
		kindSet[tok.Kind] = true
	}
	assert.True(t, kindSet[lexer.AssignAdd])
	assert.True(t, kindSet[lexer.AssignShl])
}
