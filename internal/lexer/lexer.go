// Package lexer implements the deterministic finite-state scanner for the
// IFJ21 source language: a byte stream in, a tagged Token stream out, with
// string-escape decoding, numeric literal classification, and one-token
// lookahead.
//
// The scanner is modeled on the teacher compiler's rune-based lexer
// (position tracking per rune, not per display column), generalized from
// that compiler's Pascal-like grammar to the smaller, Lua-like keyword and
// operator set this front end recognizes.
package lexer

import (
	"strconv"
	"strings"

	"github.com/ifj21/ifjc/internal/source"
	"github.com/ifj21/ifjc/internal/token"
)

// keywords is the fixed reserved-word set from spec §4.1. `boolean` is
// included alongside the spec's literal list — see SPEC_FULL.md's Open
// Questions section for why.
var keywords = map[string]bool{
	"do":       true,
	"else":     true,
	"end":      true,
	"function": true,
	"global":   true,
	"if":       true,
	"integer":  true,
	"local":    true,
	"nil":      true,
	"number":   true,
	"require":  true,
	"return":   true,
	"string":   true,
	"then":     true,
	"while":    true,
	"boolean":  true,
}

// Lexer is a one-token-lookahead scanner over a source.Source.
type Lexer struct {
	src *source.Source

	buffered   bool
	lookaheadT token.Token

	// unterminatedComment records that a "--[[" block comment ran to EOF
	// without a matching "]]"; the next scan() call surfaces it as a
	// lexical ILLEGAL token at the comment's opening position.
	unterminatedComment    bool
	unterminatedCommentPos token.Position
}

// New creates a Lexer over the given input string.
func New(input string) *Lexer {
	return &Lexer{src: source.New(input)}
}

// NextToken consumes and returns the next token, advancing the cursor. If a
// token was previously produced via Lookahead, it is returned and the
// cursor is not advanced again.
func (l *Lexer) NextToken() token.Token {
	if l.buffered {
		l.buffered = false
		return l.lookaheadT
	}
	return l.scan()
}

// Lookahead returns the next token without consuming it. Calling Lookahead
// repeatedly without an intervening NextToken returns the same token
// (idempotent), per spec §4.1's public contract.
func (l *Lexer) Lookahead() token.Token {
	if !l.buffered {
		l.lookaheadT = l.scan()
		l.buffered = true
	}
	return l.lookaheadT
}

// scan runs the FSM from Init to a completed token.
func (l *Lexer) scan() token.Token {
	for {
		if l.unterminatedComment {
			l.unterminatedComment = false
			return token.New(token.ILLEGAL, "--[[", l.unterminatedCommentPos)
		}

		r := l.src.Next()

		switch {
		case r == 0:
			return token.New(token.EOF, "", l.src.Pos())

		case isSpace(r):
			continue

		case r == '-':
			tok, isReal := l.scanMinusOrComment()
			if isReal {
				return tok
			}
			continue

		case isDigit(r):
			return l.scanNumber(r)

		case r == '"':
			return l.scanString()

		case isIdentStart(r):
			return l.scanIdentOrKeyword(r)

		default:
			return l.scanOperatorOrSeparator(r)
		}
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}

// scanMinusOrComment handles `-`, `--` line comments, and `--[[ ... ]]`
// block comments. The macro-states Com1..ComF from spec §4.1 collapse into
// straight-line code here since Go doesn't need an explicit state table to
// express "consume until newline" / "consume until ]]".
//
// Returns (token, true) when a real token (the minus operator) was
// produced; returns (zero, false) when a comment was skipped and the
// caller should loop for the next real token.
func (l *Lexer) scanMinusOrComment() (token.Token, bool) {
	pos := l.src.Pos()
	second := l.src.Next()
	if second != '-' {
		if second != 0 {
			l.src.PushBack(second)
		}
		return token.New(token.OPERATOR, "-", pos), true
	}

	// Saw "--": either a block comment "--[[" or a line comment.
	third := l.src.Next()
	if third != '[' {
		if third != 0 {
			l.src.PushBack(third)
		}
		l.skipLineComment()
		return token.Token{}, false
	}
	fourth := l.src.Next()
	if fourth != '[' {
		if fourth != 0 {
			l.src.PushBack(fourth)
		}
		l.skipLineComment()
		return token.Token{}, false
	}

	l.skipBlockComment(pos)
	return token.Token{}, false
}

func (l *Lexer) skipLineComment() {
	for {
		r := l.src.Next()
		if r == 0 || r == '\n' {
			return
		}
	}
}

// skipBlockComment consumes until the matching "]]". EOF before the
// terminator is a lexical error; it is recorded and surfaced on the next
// call to scan() as an ILLEGAL token at the comment's opening position.
func (l *Lexer) skipBlockComment(start token.Position) {
	for {
		r := l.src.Next()
		if r == 0 {
			l.unterminatedComment = true
			l.unterminatedCommentPos = start
			return
		}
		if r == ']' {
			r2 := l.src.Next()
			if r2 == ']' {
				return
			}
			if r2 != 0 {
				l.src.PushBack(r2)
			}
		}
	}
}

func (l *Lexer) scanNumber(first rune) token.Token {
	pos := l.src.Pos()
	var b strings.Builder
	b.WriteRune(first)

	for isDigit(l.peek()) {
		b.WriteRune(l.src.Next())
	}

	isFloat := false

	// Fractional part: '.' must be followed by at least one digit, else
	// the '.' is not part of this number.
	if l.peek() == '.' {
		dot := l.src.Next() // consume '.'
		if isDigit(l.peek()) {
			isFloat = true
			b.WriteRune(dot)
			for isDigit(l.peek()) {
				b.WriteRune(l.src.Next())
			}
		} else {
			l.src.PushBack(dot)
		}
	}

	// Exponent: [eE][+-]?DIGIT+. A trailing `e` with no digits is a
	// lexical error (spec §4.1).
	if p := l.peek(); p == 'e' || p == 'E' {
		e := l.src.Next()
		var sign rune
		signConsumed := false
		if n := l.peek(); n == '+' || n == '-' {
			sign = l.src.Next()
			signConsumed = true
		}
		if isDigit(l.peek()) {
			isFloat = true
			b.WriteRune(e)
			if signConsumed {
				b.WriteRune(sign)
			}
			for isDigit(l.peek()) {
				b.WriteRune(l.src.Next())
			}
		} else {
			return token.New(token.ILLEGAL, b.String()+"e", pos)
		}
	}

	lit := b.String()
	if isFloat {
		if _, err := strconv.ParseFloat(lit, 64); err != nil {
			return token.New(token.ILLEGAL, lit, pos)
		}
		return token.New(token.NUMBER, lit, pos)
	}
	if _, err := strconv.ParseInt(lit, 10, 64); err != nil {
		return token.New(token.ILLEGAL, lit, pos)
	}
	return token.New(token.INT, lit, pos)
}

// scanString decodes a double-quoted string literal, including `\n`, `\t`,
// `\\`, `\"`, and `\DDD` decimal-code escapes. The decoded attribute keeps
// the surrounding quotes, per spec §4.1, so downstream code can recognize a
// string literal token by its leading/trailing `"` without consulting the
// token Type.
func (l *Lexer) scanString() token.Token {
	pos := l.src.Pos()
	var b strings.Builder
	b.WriteByte('"')

	for {
		r := l.src.Next()
		switch {
		case r == 0:
			return token.New(token.ILLEGAL, b.String(), pos)
		case r == '"':
			b.WriteByte('"')
			return token.New(token.STRING, b.String(), pos)
		case r == '\\':
			esc := l.src.Next()
			switch {
			case esc == 'n':
				b.WriteByte('\n')
			case esc == 't':
				b.WriteByte('\t')
			case esc == '\\':
				b.WriteByte('\\')
			case esc == '"':
				b.WriteByte('"')
			case isDigit(esc):
				digits := []rune{esc}
				for i := 0; i < 2 && isDigit(l.peek()); i++ {
					digits = append(digits, l.src.Next())
				}
				n, err := strconv.Atoi(string(digits))
				if err != nil || n < 1 || n > 255 {
					return token.New(token.ILLEGAL, b.String(), pos)
				}
				b.WriteByte(byte(n))
			default:
				return token.New(token.ILLEGAL, b.String(), pos)
			}
		case r < 32:
			return token.New(token.ILLEGAL, b.String(), pos)
		default:
			b.WriteRune(r)
		}
	}
}

func (l *Lexer) scanIdentOrKeyword(first rune) token.Token {
	pos := l.src.Pos()
	var b strings.Builder
	b.WriteRune(first)
	for isIdentCont(l.peek()) {
		b.WriteRune(l.src.Next())
	}
	lit := b.String()
	if keywords[lit] {
		return token.New(token.KEYWORD, lit, pos)
	}
	return token.New(token.IDENT, lit, pos)
}

// multiCharOps lists the first rune of every two-character operator the
// FSM must recognize before falling back to the single-character form
// (spec §4.1's Op1..OpF4 macro-states), paired with the full two-char
// lexeme to match against.
var multiCharOps = map[rune]string{
	'=': "==",
	'~': "~=",
	'<': "<=",
	'>': ">=",
	'.': "..",
	'/': "//",
}

func (l *Lexer) scanOperatorOrSeparator(first rune) token.Token {
	pos := l.src.Pos()

	if want, ok := multiCharOps[first]; ok {
		next := l.src.Next()
		if string(first)+string(next) == want {
			return token.New(token.OPERATOR, want, pos)
		}
		if next != 0 {
			l.src.PushBack(next)
		}
	}

	switch first {
	case '+', '*', '^', '%', '#', '<', '>', '~', '=', '/':
		return token.New(token.OPERATOR, string(first), pos)
	case '(', ')', ',', ':', ';':
		return token.New(token.SEPARATOR, string(first), pos)
	default:
		return token.New(token.ILLEGAL, string(first), pos)
	}
}

// peek returns the next rune without consuming it.
func (l *Lexer) peek() rune {
	r := l.src.Next()
	l.src.PushBack(r)
	return r
}
