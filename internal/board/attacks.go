package board

// tables is built once at package initialization; a collision here is fatal
// because nothing downstream can run without validated tables.
var tables *AttackTables

func init() {
	t, err := BuildTables()
	if err != nil {
		panic("board: " + err.Error())
	}
	tables = t
}

// DefaultTables returns the process-wide attack tables.
func DefaultTables() *AttackTables {
	return tables
}

// Attacks returns the attack set of piece p on sq for the given occupancy,
// using the process-wide tables.
func Attacks(p Piece, sq Square, occupied Bitboard) Bitboard {
	return tables.Attacks(p, sq, occupied)
}

// KnightAttacks returns the knight attack set for a square.
func KnightAttacks(sq Square) Bitboard {
	assertSquare(sq)
	return tables.knight[sq]
}

// KingAttacks returns the king attack set for a square.
func KingAttacks(sq Square) Bitboard {
	assertSquare(sq)
	return tables.king[sq]
}

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard {
	assertSquare(sq)
	return tables.pawn[c][sq]
}

// BishopAttacks returns bishop attacks for the given occupancy.
func BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	assertSquare(sq)
	return tables.bishop(sq, occupied)
}

// RookAttacks returns rook attacks for the given occupancy.
func RookAttacks(sq Square, occupied Bitboard) Bitboard {
	assertSquare(sq)
	return tables.rook(sq, occupied)
}

// QueenAttacks returns queen attacks for the given occupancy.
func QueenAttacks(sq Square, occupied Bitboard) Bitboard {
	return BishopAttacks(sq, occupied) | RookAttacks(sq, occupied)
}

// AttackersByColor returns the pieces of color c attacking sq.
func (p *Position) AttackersByColor(sq Square, c Color, occupied Bitboard) Bitboard {
	diagonal := p.Pieces[c][Bishop] | p.Pieces[c][Queen]
	straight := p.Pieces[c][Rook] | p.Pieces[c][Queen]
	return PawnAttacks(sq, c.Other())&p.Pieces[c][Pawn] |
		KnightAttacks(sq)&p.Pieces[c][Knight] |
		KingAttacks(sq)&p.Pieces[c][King] |
		BishopAttacks(sq, occupied)&diagonal |
		RookAttacks(sq, occupied)&straight
}

// IsSquareAttacked reports whether any piece of color by attacks sq.
func (p *Position) IsSquareAttacked(sq Square, by Color) bool {
	return p.AttackersByColor(sq, by, p.AllOccupied) != 0
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	us := p.SideToMove
	ksq := p.KingSquare[us]
	if !ksq.IsValid() {
		return false
	}
	return p.IsSquareAttacked(ksq, us.Other())
}
