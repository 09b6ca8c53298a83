package lexer_test

import (
	"testing"

	"github.com/ifj21/ifjc/internal/lexer"
	"github.com/ifj21/ifjc/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New(src)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func TestKeywordsNeverLexAsIdentifier(t *testing.T) {
	kws := []string{"do", "else", "end", "function", "global", "if", "local",
		"nil", "require", "return", "then", "while", "integer", "number",
		"string", "boolean"}

	for _, kw := range kws {
		toks := collect(t, kw)
		require.Len(t, toks, 2)
		assert.Equalf(t, token.KEYWORD, toks[0].Type, "keyword %q lexed as %s", kw, toks[0].Type)
		assert.Equal(t, kw, toks[0].Literal)
	}
}

func TestIdentifierVsKeyword(t *testing.T) {
	toks := collect(t, "whiley")
	require.Len(t, toks, 2)
	assert.Equal(t, token.IDENT, toks[0].Type)
	assert.Equal(t, "whiley", toks[0].Literal)
}

func TestIntegerLiteral(t *testing.T) {
	toks := collect(t, "42")
	require.Len(t, toks, 2)
	assert.Equal(t, token.INT, toks[0].Type)
	assert.Equal(t, "42", toks[0].Literal)
}

func TestNumberLiteralVariants(t *testing.T) {
	cases := []string{"1.5", "1e10", "1.5e-3", "1E+2", "0.001"}
	for _, c := range cases {
		toks := collect(t, c)
		require.Len(t, toks, 2, c)
		assert.Equalf(t, token.NUMBER, toks[0].Type, "case %q", c)
		assert.Equal(t, c, toks[0].Literal)
	}
}

func TestTrailingExponentWithoutDigitsIsLexicalError(t *testing.T) {
	toks := collect(t, "1e")
	require.Len(t, toks, 2)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestStringEscapes(t *testing.T) {
	toks := collect(t, `"a\nb\t\\\"\065"`)
	require.Len(t, toks, 2)
	require.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, "\"a\nb\t\\\"A\"", toks[0].Literal)
}

func TestStringDisallowsLowControlBytes(t *testing.T) {
	toks := collect(t, "\"a\x01b\"")
	require.Len(t, toks, 4)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestUnterminatedStringIsLexicalError(t *testing.T) {
	toks := collect(t, `"abc`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestLineCommentSkipped(t *testing.T) {
	toks := collect(t, "local -- comment\nx")
	require.Len(t, toks, 3)
	assert.Equal(t, "local", toks[0].Literal)
	assert.Equal(t, "x", toks[1].Literal)
}

func TestBlockCommentSkipped(t *testing.T) {
	toks := collect(t, "local --[[ a block\ncomment ]] x")
	require.Len(t, toks, 3)
	assert.Equal(t, "local", toks[0].Literal)
	assert.Equal(t, "x", toks[1].Literal)
}

func TestUnterminatedBlockCommentIsLexicalError(t *testing.T) {
	toks := collect(t, "local --[[ never closes")
	require.Len(t, toks, 3)
	assert.Equal(t, token.ILLEGAL, toks[1].Type)
}

func TestMultiCharOperators(t *testing.T) {
	cases := map[string]string{
		"==": "==", "~=": "~=", "<=": "<=", ">=": ">=", "..": "..", "//": "//",
	}
	for src, want := range cases {
		toks := collect(t, src)
		require.Len(t, toks, 2, src)
		assert.Equal(t, token.OPERATOR, toks[0].Type)
		assert.Equal(t, want, toks[0].Literal)
	}
}

func TestSingleCharFallbackWhenSecondCharDoesNotMatch(t *testing.T) {
	toks := collect(t, "< x")
	require.Len(t, toks, 3)
	assert.Equal(t, "<", toks[0].Literal)
	assert.Equal(t, "x", toks[1].Literal)
}

func TestUnaryMinusIsJustAnOperatorToken(t *testing.T) {
	toks := collect(t, "-1")
	require.Len(t, toks, 3)
	assert.Equal(t, "-", toks[0].Literal)
	assert.Equal(t, token.INT, toks[1].Type)
}

func TestLookaheadIsIdempotentUntilConsumed(t *testing.T) {
	l := lexer.New("foo bar")
	first := l.Lookahead()
	second := l.Lookahead()
	assert.Equal(t, first, second)

	consumed := l.NextToken()
	assert.Equal(t, first, consumed)

	next := l.Lookahead()
	assert.Equal(t, "bar", next.Literal)
}

func TestPositionsAdvancePerRune(t *testing.T) {
	toks := collect(t, "ab cd")
	require.Len(t, toks, 3)
	assert.Equal(t, token.Position{Row: 1, Col: 1}, toks[0].Pos)
	assert.Equal(t, token.Position{Row: 1, Col: 4}, toks[1].Pos)
}

func TestPositionsAdvanceAcrossLines(t *testing.T) {
	toks := collect(t, "a\nb")
	require.Len(t, toks, 3)
	assert.Equal(t, 1, toks[0].Pos.Row)
	assert.Equal(t, 2, toks[1].Pos.Row)
}

func TestFullProgramTokenizes(t *testing.T) {
	src := `require "ifj21" function main() local a : integer = 1 + 2 write(a) end main()`
	toks := collect(t, src)
	assert.NotEmpty(t, toks)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Type)
}
