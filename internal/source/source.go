// Package source provides a UTF-8 rune source with row/column position
// tracking and one-rune pushback, the leaf of the
// compiler pipeline.
package source

import (
	"unicode/utf8"

	"github.com/ifj21/ifjc/internal/token"
)

// Source scans UTF-8 text one rune at a time, tracking the 1-indexed
// row/column of the rune last returned by Next. It supports pushing back
// exactly one rune, which is sufficient for the lexer's maximum lookahead
// (deciding between `-` and `--`, `<` and `<=`, etc. only ever needs one
// character of pushback once the FSM has consumed the first byte of the
// next token).
type Source struct {
	input string
	pos   int // byte offset of the next rune to decode

	row, col int // position of the rune last returned by Next

	pushedBack bool
	pbRune     rune
	pbRow      int
	pbCol      int
	pbSize     int
}

// New creates a Source over the given input. Row/column numbering starts at
// (1, 0): the first call to Next reports column 1.
func New(input string) *Source {
	return &Source{input: input, row: 1, col: 0}
}

// eof is returned by Next once input is exhausted.
const eof rune = 0

// Next returns the next rune and advances the cursor. It returns eof (0)
// at end of input. Invalid UTF-8 bytes are surfaced as utf8.RuneError.
func (s *Source) Next() rune {
	if s.pushedBack {
		s.pushedBack = false
		s.row, s.col = s.pbRow, s.pbCol
		s.pos += s.pbSize
		return s.pbRune
	}

	if s.pos >= len(s.input) {
		s.col++
		s.pbSize = 0
		return eof
	}

	r, size := utf8.DecodeRuneInString(s.input[s.pos:])
	s.pos += size

	if r == '\n' {
		s.row++
		s.col = 0
	} else {
		s.col++
	}

	s.pbSize = size
	return r
}

// PushBack undoes the most recent Next call. It may be called at most once
// between two Next calls.
func (s *Source) PushBack(r rune) {
	s.pushedBack = true
	s.pbRune = r
	s.pbRow, s.pbCol = s.row, s.col
	if s.pbSize > 0 {
		s.pos -= s.pbSize
	}
}

// Pos reports the position of the rune last returned by Next.
func (s *Source) Pos() token.Position {
	return token.Position{Row: s.row, Col: s.col}
}
