package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPosition is wrapped by Validate and ParseFEN.
var ErrInvalidPosition = errors.New("invalid position")

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	return cr&castleRight(c, kingSide) != 0
}

func castleRight(c Color, kingSide bool) CastlingRights {
	r := WhiteQueenSideCastle
	if kingSide {
		r = WhiteKingSideCastle
	}
	if c == Black {
		r <<= 2
	}
	return r
}

// castlingMask[sq] holds the rights that survive a move touching sq.
var castlingMask [64]CastlingRights

func init() {
	for sq := range castlingMask {
		castlingMask[sq] = AllCastling
	}
	castlingMask[E1] &^= WhiteKingSideCastle | WhiteQueenSideCastle
	castlingMask[H1] &^= WhiteKingSideCastle
	castlingMask[A1] &^= WhiteQueenSideCastle
	castlingMask[E8] &^= BlackKingSideCastle | BlackQueenSideCastle
	castlingMask[H8] &^= BlackKingSideCastle
	castlingMask[A8] &^= BlackQueenSideCastle
}

// Position represents a complete chess position.
type Position struct {
	// Piece bitboards: [Color][PieceType]
	Pieces [2][6]Bitboard

	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // NoSquare if none
	HalfMoveClock  int    // plies since the last pawn move or capture
	FullMoveNumber int    // starts at 1

	// Hash and PawnKey are maintained incrementally by MakeMove.
	Hash    uint64
	PawnKey uint64

	KingSquare [2]Square
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	return &newPos
}

// Ply returns the number of half moves played since the game start.
func (p *Position) Ply() int {
	return (p.FullMoveNumber-1)*2 + int(p.SideToMove)
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	c := White
	if p.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// Has reports whether piece stands on sq.
func (p *Position) Has(piece Piece, sq Square) bool {
	return p.Pieces[piece.Color()][piece.Type()].IsSet(sq)
}

// Count returns how many pieces of the given kind color c has.
func (p *Position) Count(c Color, pt PieceType) int {
	return p.Pieces[c][pt].PopCount()
}

// Put places a piece on an empty square without touching the keys. It is
// meant for building positions by hand; call Refresh afterwards.
func (p *Position) Put(piece Piece, sq Square) {
	p.setPiece(piece, sq)
}

// Refresh recomputes occupancy, king squares and both keys from the piece
// bitboards.
func (p *Position) Refresh() {
	p.updateOccupied()
	p.findKings()
	p.Hash = ComputeKey(p)
	p.PawnKey = ComputePawnKey(p)
}

// setPiece places a piece on a square (does not update hash).
func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	c, pt := piece.Color(), piece.Type()
	bb := SquareBB(sq)

	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb

	if pt == King {
		p.KingSquare[c] = sq
	}
}

// removePiece removes a piece from a square (does not update hash).
func (p *Position) removePiece(c Color, pt PieceType, sq Square) {
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
}

// movePiece moves a piece from one square to another (does not update hash).
func (p *Position) movePiece(c Color, pt PieceType, from, to Square) {
	moveBB := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= moveBB
	p.Occupied[c] ^= moveBB
	p.AllOccupied ^= moveBB

	if pt == King {
		p.KingSquare[c] = to
	}
}

// updateOccupied recalculates occupancy bitboards from piece bitboards.
func (p *Position) updateOccupied() {
	p.Occupied[White] = Empty
	p.Occupied[Black] = Empty

	for pt := Pawn; pt <= King; pt++ {
		p.Occupied[White] |= p.Pieces[White][pt]
		p.Occupied[Black] |= p.Pieces[Black][pt]
	}

	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
}

// findKings locates and caches the king positions.
func (p *Position) findKings() {
	p.KingSquare[White] = p.Pieces[White][King].LSB()
	p.KingSquare[Black] = p.Pieces[Black][King].LSB()
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteByte('\n')
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Castling: %s\n", p.CastlingRights)
	fmt.Fprintf(&sb, "En passant: %s\n", p.EnPassant)
	fmt.Fprintf(&sb, "Half-move clock: %d\n", p.HalfMoveClock)
	fmt.Fprintf(&sb, "Full move: %d\n", p.FullMoveNumber)
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}

// Clear resets the position to an empty board.
func (p *Position) Clear() {
	*p = Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}
	p.KingSquare[White] = NoSquare
	p.KingSquare[Black] = NoSquare
}

// Validate checks the structural sanity of the position.
func (p *Position) Validate() error {
	if p.Pieces[White][King].PopCount() != 1 {
		return fmt.Errorf("%w: white must have exactly one king", ErrInvalidPosition)
	}
	if p.Pieces[Black][King].PopCount() != 1 {
		return fmt.Errorf("%w: black must have exactly one king", ErrInvalidPosition)
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("%w: pawns cannot be on rank 1 or 8", ErrInvalidPosition)
	}
	if p.Occupied[White]&p.Occupied[Black] != 0 {
		return fmt.Errorf("%w: square occupied by both colors", ErrInvalidPosition)
	}
	if p.IsSquareAttacked(p.KingSquare[p.SideToMove.Other()], p.SideToMove) {
		return fmt.Errorf("%w: side not to move is in check", ErrInvalidPosition)
	}
	return nil
}

// HasNonPawnMaterial returns true if the side to move has non-pawn material.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Pieces[us][Knight]|p.Pieces[us][Bishop]|p.Pieces[us][Rook]|p.Pieces[us][Queen] != 0
}
