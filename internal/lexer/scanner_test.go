package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thorn/internal/lexer"
)

func tokenTypes(tokens []lexer.Token) []lexer.TokenType {
	out := make([]lexer.TokenType, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Type)
	}
	return out
}

func TestScanPunctuationAndOperators(t *testing.T) {
	s := lexer.NewScanner("( ) { } [ ] , . ; + - * / % ** = => == != < > <= >= && || ! ?? : ::")
	tokens := s.ScanTokens()
	assert.False(t, s.Diagnostics().HasErrors())

	types := tokenTypes(tokens)
	assert.Equal(t, []lexer.TokenType{
		lexer.TokenLParen, lexer.TokenRParen, lexer.TokenLBrace, lexer.TokenRBrace,
		lexer.TokenLBracket, lexer.TokenRBracket, lexer.TokenComma, lexer.TokenDot,
		lexer.TokenSemicolon, lexer.TokenPlus, lexer.TokenMinus, lexer.TokenStar,
		lexer.TokenSlash, lexer.TokenPercent, lexer.TokenStarStar, lexer.TokenEqual,
		lexer.TokenArrow, lexer.TokenDoubleEqual, lexer.TokenNotEqual, lexer.TokenLT,
		lexer.TokenGT, lexer.TokenLE, lexer.TokenGE, lexer.TokenAnd, lexer.TokenOr,
		lexer.TokenNot, lexer.TokenQQ, lexer.TokenColon, lexer.TokenDoubleColon,
		lexer.TokenEOF,
	}, types)
}

func TestScanKeywordsVsIdentifiers(t *testing.T) {
	s := lexer.NewScanner("class foo while bar_2 match")
	tokens := s.ScanTokens()
	types := tokenTypes(tokens)
	assert.Equal(t, []lexer.TokenType{
		lexer.TokenClass, lexer.TokenIdent, lexer.TokenWhile, lexer.TokenIdent,
		lexer.TokenMatch, lexer.TokenEOF,
	}, types)
}

func TestScanNumberLiterals(t *testing.T) {
	s := lexer.NewScanner("123 1.5 1e10 1.5e-3")
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	require.Len(t, tokens, 5) // 4 numbers + EOF
	assert.Equal(t, 123.0, tokens[0].Literal)
	assert.Equal(t, 1.5, tokens[1].Literal)
	assert.Equal(t, 1e10, tokens[2].Literal)
	assert.Equal(t, 1.5e-3, tokens[3].Literal)
}

func TestScanStringEscapes(t *testing.T) {
	s := lexer.NewScanner(`"line1\nline2\t\"quoted\""`)
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	require.Equal(t, lexer.TokenString, tokens[0].Type)
	assert.Equal(t, "line1\nline2\t\"quoted\"", tokens[0].Literal)
}

func TestScanUnicodeEscape(t *testing.T) {
	s := lexer.NewScanner(`"\u{1F600}"`)
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	assert.Equal(t, "\U0001F600", tokens[0].Literal)
}

func TestUnterminatedStringIsLexError(t *testing.T) {
	s := lexer.NewScanner(`"unterminated`)
	s.ScanTokens()
	assert.True(t, s.Diagnostics().HasErrors())
}

func TestInterpStringPreservesExpressionSpan(t *testing.T) {
	s := lexer.NewScanner("`Hello ${name}!`")
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	require.Equal(t, lexer.TokenInterpString, tokens[0].Type)
	assert.Equal(t, "Hello ${name}!", tokens[0].Literal)
}

func TestInterpStringHandlesNestedBraces(t *testing.T) {
	s := lexer.NewScanner("`${dict[\"a\"]}`")
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	assert.Equal(t, `${dict["a"]}`, tokens[0].Literal)
}

func TestImmutSigil(t *testing.T) {
	s := lexer.NewScanner("@immut x = 1")
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	assert.Equal(t, lexer.TokenImmut, tokens[0].Type)
}

func TestUnknownSigilIsLexError(t *testing.T) {
	s := lexer.NewScanner("@bogus x = 1")
	s.ScanTokens()
	assert.True(t, s.Diagnostics().HasErrors())
}

func TestLineAndBlockComments(t *testing.T) {
	s := lexer.NewScanner("1 // comment\n/* block\ncomment */ 2")
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	types := tokenTypes(tokens)
	assert.Equal(t, []lexer.TokenType{lexer.TokenNumber, lexer.TokenNumber, lexer.TokenEOF}, types)
}

func TestNestedBlockComments(t *testing.T) {
	s := lexer.NewScanner("/* outer /* inner */ still outer */ 1")
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	assert.Equal(t, lexer.TokenNumber, tokens[0].Type)
}

func TestUnexpectedCharacterIsLexError(t *testing.T) {
	s := lexer.NewScanner("1 ~ 2")
	s.ScanTokens()
	assert.True(t, s.Diagnostics().HasErrors())
}

func TestShebangIsSkipped(t *testing.T) {
	s := lexer.NewScanner("#!/usr/bin/env thorn\n1")
	tokens := s.ScanTokens()
	require.False(t, s.Diagnostics().HasErrors())
	assert.Equal(t, lexer.TokenNumber, tokens[0].Type)
}

func TestLineAndColumnTracking(t *testing.T) {
	s := lexer.NewScanner("x\ny")
	tokens := s.ScanTokens()
	require.Len(t, tokens, 3)
	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 2, tokens[1].Line)
}
