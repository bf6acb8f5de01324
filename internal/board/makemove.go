package board

// Delta describes what m changes in the current position without applying it.
func (p *Position) Delta(m Move) MoveDelta {
	us := p.SideToMove
	from, to := m.From(), m.To()

	d := MoveDelta{
		Color:           us,
		Piece:           p.PieceAt(from).Type(),
		From:            from,
		To:              to,
		Captured:        NoPieceType,
		CaptureSq:       to,
		Promotion:       m.Promotion(),
		RookFrom:        NoSquare,
		RookTo:          NoSquare,
		CastlingBefore:  p.CastlingRights,
		EnPassantBefore: p.EnPassant,
		EnPassantAfter:  NoSquare,
	}

	switch {
	case m.IsEnPassant():
		d.Captured = Pawn
		if us == White {
			d.CaptureSq = to - 8
		} else {
			d.CaptureSq = to + 8
		}
	case m.IsCastling():
		if to > from {
			d.RookFrom, d.RookTo = to+1, to-1
		} else {
			d.RookFrom, d.RookTo = to-2, to+1
		}
	default:
		if captured := p.PieceAt(to); captured != NoPiece {
			d.Captured = captured.Type()
		}
	}

	d.CastlingAfter = p.CastlingRights & castlingMask[from] & castlingMask[to]

	// The en passant square is only recorded when a capture is possible, so
	// that transpositions with and without a dead en passant square hash alike.
	if d.Piece == Pawn && (int(to)-int(from) == 16 || int(from)-int(to) == 16) {
		ep := (from + to) / 2
		if PawnAttacks(ep, us)&p.Pieces[us.Other()][Pawn] != 0 {
			d.EnPassantAfter = ep
		}
	}
	return d
}

// MakeMove applies m and returns what UnmakeMove needs to take it back.
// Keys are updated only through UpdateKey and UpdatePawnKey.
func (p *Position) MakeMove(m Move) UndoInfo {
	d := p.Delta(m)
	undo := UndoInfo{
		Delta:         d,
		HalfMoveClock: p.HalfMoveClock,
		Hash:          p.Hash,
		PawnKey:       p.PawnKey,
	}
	p.applyDelta(d)

	if d.Piece == Pawn || d.Captured != NoPieceType {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if d.Color == Black {
		p.FullMoveNumber++
	}
	p.Hash = UpdateKey(p.Hash, d)
	p.PawnKey = UpdatePawnKey(p.PawnKey, d)
	return undo
}

// UnmakeMove takes back a move made with MakeMove.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	d := undo.Delta
	them := d.Color.Other()

	if d.Promotion != NoPieceType {
		p.removePiece(d.Color, d.Promotion, d.To)
		p.setPiece(NewPiece(d.Piece, d.Color), d.From)
	} else {
		p.movePiece(d.Color, d.Piece, d.To, d.From)
	}
	if d.Captured != NoPieceType {
		p.setPiece(NewPiece(d.Captured, them), d.CaptureSq)
	}
	if d.RookFrom != NoSquare {
		p.movePiece(d.Color, Rook, d.RookTo, d.RookFrom)
	}

	p.SideToMove = d.Color
	p.CastlingRights = d.CastlingBefore
	p.EnPassant = d.EnPassantBefore
	p.HalfMoveClock = undo.HalfMoveClock
	if d.Color == Black {
		p.FullMoveNumber--
	}
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
}

func (p *Position) applyDelta(d MoveDelta) {
	if d.Captured != NoPieceType {
		p.removePiece(d.Color.Other(), d.Captured, d.CaptureSq)
	}
	if d.Promotion != NoPieceType {
		p.removePiece(d.Color, d.Piece, d.From)
		p.setPiece(NewPiece(d.Promotion, d.Color), d.To)
	} else {
		p.movePiece(d.Color, d.Piece, d.From, d.To)
	}
	if d.RookFrom != NoSquare {
		p.movePiece(d.Color, Rook, d.RookFrom, d.RookTo)
	}
	p.SideToMove = d.Color.Other()
	p.CastlingRights = d.CastlingAfter
	p.EnPassant = d.EnPassantAfter
}

// NullMoveUndo stores state for unmake of null move.
type NullMoveUndo struct {
	EnPassant     Square
	HalfMoveClock int
	Hash          uint64
}

// MakeNullMove passes the turn without moving.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{
		EnPassant:     p.EnPassant,
		HalfMoveClock: p.HalfMoveClock,
		Hash:          p.Hash,
	}
	p.Hash = NullMoveKey(p.Hash, p.EnPassant)
	p.EnPassant = NoSquare
	p.HalfMoveClock++
	if p.SideToMove == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = p.SideToMove.Other()
	return undo
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.SideToMove = p.SideToMove.Other()
	if p.SideToMove == Black {
		p.FullMoveNumber--
	}
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
}
