// Package board implements the bitboard position model, the magic-bitboard
// attack tables and Zobrist keying used by the engine caches.
package board

import "fmt"

// Square is a board square index, a1=0 .. h8=63 (little-endian rank-file).
type Square uint8

// One row per rank; iota advances per line.
const (
	A1, B1, C1, D1, E1, F1, G1, H1 Square = iota*8 + 0, iota*8 + 1, iota*8 + 2, iota*8 + 3, iota*8 + 4, iota*8 + 5, iota*8 + 6, iota*8 + 7
	A2, B2, C2, D2, E2, F2, G2, H2
	A3, B3, C3, D3, E3, F3, G3, H3
	A4, B4, C4, D4, E4, F4, G4, H4
	A5, B5, C5, D5, E5, F5, G5, H5
	A6, B6, C6, D6, E6, F6, G6, H6
	A7, B7, C7, D7, E7, F7, G7, H7
	A8, B8, C8, D8, E8, F8, G8, H8
)

// NoSquare marks an absent square (no en passant target, missing king).
const NoSquare Square = 64

// NewSquare builds a square from 0-based file and rank.
func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

// File returns 0 (a) .. 7 (h).
func (sq Square) File() int {
	return int(sq) & 7
}

// Rank returns 0 (first rank) .. 7 (eighth rank).
func (sq Square) Rank() int {
	return int(sq) >> 3
}

// RelativeRank returns the rank as seen from c's side of the board.
func (sq Square) RelativeRank(c Color) int {
	if c == White {
		return sq.Rank()
	}
	return 7 - sq.Rank()
}

// IsValid reports whether sq is on the board.
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

func (sq Square) String() string {
	if !sq.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", 'a'+sq.File(), '1'+sq.Rank())
}

// ParseSquare parses algebraic notation such as "g4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	file, rank := int(s[0])-'a', int(s[1])-'1'
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	return NewSquare(file, rank), nil
}

// assertSquare enforces the caller contract on square arguments. It compiles
// to nothing unless the chessdebug build tag is set.
func assertSquare(sq Square) {
	if debugAsserts && !sq.IsValid() {
		panic(fmt.Sprintf("board: square %d out of range", sq))
	}
}
