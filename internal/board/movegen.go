package board

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	var pseudo MoveList
	p.generateAllMoves(&pseudo)

	legal := &MoveList{}
	for _, m := range pseudo.Slice() {
		if p.IsLegal(m) {
			legal.Add(m)
		}
	}
	return legal
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave king in check).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := &MoveList{}
	p.generateAllMoves(ml)
	return ml
}

// IsLegal reports whether a pseudo-legal move keeps the mover's king safe.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	undo := p.MakeMove(m)
	safe := !p.IsSquareAttacked(p.KingSquare[us], us.Other())
	p.UnmakeMove(m, undo)
	return safe
}

// generateAllMoves generates all pseudo-legal moves.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	targets := ^p.Occupied[us]

	p.generatePawnMoves(ml, us)

	for pt := Knight; pt <= King; pt++ {
		pieces := p.Pieces[us][pt]
		piece := NewPiece(pt, us)
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := Attacks(piece, from, p.AllOccupied) & targets
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	p.generateCastlingMoves(ml, us)
}

// generatePawnMoves generates all pawn moves.
func (p *Position) generatePawnMoves(ml *MoveList, us Color) {
	pawns := p.Pieces[us][Pawn]
	empty := ^p.AllOccupied
	enemies := p.Occupied[us.Other()]

	var push1, push2 Bitboard
	promotionRank := Rank8
	pushDir := 8
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		promotionRank = Rank1
		pushDir = -8
	}

	for push1 != 0 {
		to := push1.PopLSB()
		addPawnMove(ml, Square(int(to)-pushDir), to, promotionRank)
	}
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}

	for pawns != 0 {
		from := pawns.PopLSB()
		attacks := PawnAttacks(from, us) & enemies
		for attacks != 0 {
			addPawnMove(ml, from, attacks.PopLSB(), promotionRank)
		}
		if p.EnPassant != NoSquare && PawnAttacks(from, us).IsSet(p.EnPassant) {
			ml.Add(NewEnPassant(from, p.EnPassant))
		}
	}
}

func addPawnMove(ml *MoveList, from, to Square, promotionRank Bitboard) {
	if !promotionRank.IsSet(to) {
		ml.Add(NewMove(from, to))
		return
	}
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// castlePath lists, per color and wing, the squares that must be empty and
// the squares the king crosses (which must not be attacked).
var castlePath = [2][2]struct {
	empty, safe Bitboard
	from, to    Square
}{
	White: {
		{SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(C1) | SquareBB(D1) | SquareBB(E1), E1, C1},
		{SquareBB(F1) | SquareBB(G1), SquareBB(E1) | SquareBB(F1) | SquareBB(G1), E1, G1},
	},
	Black: {
		{SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(C8) | SquareBB(D8) | SquareBB(E8), E8, C8},
		{SquareBB(F8) | SquareBB(G8), SquareBB(E8) | SquareBB(F8) | SquareBB(G8), E8, G8},
	},
}

// generateCastlingMoves generates castling moves.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	for wing, path := range castlePath[us] {
		if !p.CastlingRights.CanCastle(us, wing == 1) || p.AllOccupied&path.empty != 0 {
			continue
		}
		safe, ok := path.safe, true
		for safe != 0 {
			if p.IsSquareAttacked(safe.PopLSB(), them) {
				ok = false
				break
			}
		}
		if ok {
			ml.Add(NewCastling(path.from, path.to))
		}
	}
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for _, m := range moves.Slice() {
		undo := p.MakeMove(m)
		nodes += p.Perft(depth - 1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}
