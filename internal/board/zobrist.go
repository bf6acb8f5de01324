package board

// Zobrist keys. Every feature of a position gets an independent random
// constant and the position key is the XOR of the constants of the features
// present, so a move only toggles the handful of features it changes.
var (
	zobristPiece      [2][6][64]uint64
	zobristCastling   [4]uint64 // one per castling right bit
	zobristEnPassant  [8]uint64 // one per file
	zobristSideToMove uint64    // present when black is to move

	// castlingKeys[cr] is the XOR of the bit keys set in cr.
	castlingKeys [16]uint64
)

func init() {
	initZobrist()
}

// prng is xorshift64* with a fixed seed so keys are stable across runs.
type prng struct {
	state uint64
}

func (r *prng) next() uint64 {
	r.state ^= r.state >> 12
	r.state ^= r.state << 25
	r.state ^= r.state >> 27
	return r.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := &prng{state: 0x98F107A2BEEF1234}

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}
	for i := range zobristCastling {
		zobristCastling[i] = rng.next()
	}
	for file := range zobristEnPassant {
		zobristEnPassant[file] = rng.next()
	}
	zobristSideToMove = rng.next()

	for cr := range castlingKeys {
		for bit := 0; bit < 4; bit++ {
			if cr&(1<<bit) != 0 {
				castlingKeys[cr] ^= zobristCastling[bit]
			}
		}
	}
}

// ZobristPiece returns the key of a colored piece on a square.
func ZobristPiece(c Color, pt PieceType, sq Square) uint64 {
	return zobristPiece[c][pt][sq]
}

// ComputeKey hashes the position from scratch. It must always equal the
// incrementally maintained Position.Hash.
func ComputeKey(p *Position) uint64 {
	var key uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				key ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	key ^= castlingKeys[p.CastlingRights&AllCastling]
	if p.EnPassant != NoSquare {
		key ^= zobristEnPassant[p.EnPassant.File()]
	}
	if p.SideToMove == Black {
		key ^= zobristSideToMove
	}
	return key
}

// ComputePawnKey hashes only the pawns of both colors, the key of the pawn
// structure cache.
func ComputePawnKey(p *Position) uint64 {
	var key uint64
	for c := White; c <= Black; c++ {
		bb := p.Pieces[c][Pawn]
		for bb != 0 {
			key ^= zobristPiece[c][Pawn][bb.PopLSB()]
		}
	}
	return key
}

// MoveDelta lists every keyed feature a move changes.
type MoveDelta struct {
	Color Color
	Piece PieceType // the moving piece before any promotion
	From  Square
	To    Square

	Captured  PieceType // NoPieceType when nothing is captured
	CaptureSq Square    // differs from To for en passant

	Promotion PieceType // NoPieceType unless the move promotes

	RookFrom Square // NoSquare unless castling
	RookTo   Square

	CastlingBefore CastlingRights
	CastlingAfter  CastlingRights

	EnPassantBefore Square
	EnPassantAfter  Square
}

// UpdateKey applies a move delta to a position key in constant time.
func UpdateKey(key uint64, d MoveDelta) uint64 {
	us, them := d.Color, d.Color.Other()

	placed := d.Piece
	if d.Promotion != NoPieceType {
		placed = d.Promotion
	}
	key ^= zobristPiece[us][d.Piece][d.From]
	key ^= zobristPiece[us][placed][d.To]

	if d.Captured != NoPieceType {
		key ^= zobristPiece[them][d.Captured][d.CaptureSq]
	}
	if d.RookFrom != NoSquare {
		key ^= zobristPiece[us][Rook][d.RookFrom] ^ zobristPiece[us][Rook][d.RookTo]
	}
	if d.CastlingBefore != d.CastlingAfter {
		key ^= castlingKeys[d.CastlingBefore] ^ castlingKeys[d.CastlingAfter]
	}
	if d.EnPassantBefore != NoSquare {
		key ^= zobristEnPassant[d.EnPassantBefore.File()]
	}
	if d.EnPassantAfter != NoSquare {
		key ^= zobristEnPassant[d.EnPassantAfter.File()]
	}
	return key ^ zobristSideToMove
}

// UpdatePawnKey applies the pawn part of a move delta to a pawn key.
func UpdatePawnKey(key uint64, d MoveDelta) uint64 {
	if d.Piece == Pawn {
		key ^= zobristPiece[d.Color][Pawn][d.From]
		if d.Promotion == NoPieceType {
			key ^= zobristPiece[d.Color][Pawn][d.To]
		}
	}
	if d.Captured == Pawn {
		key ^= zobristPiece[d.Color.Other()][Pawn][d.CaptureSq]
	}
	return key
}

// NullMoveKey returns the key after passing the turn, which also clears
// any en passant square.
func NullMoveKey(key uint64, enPassant Square) uint64 {
	if enPassant != NoSquare {
		key ^= zobristEnPassant[enPassant.File()]
	}
	return key ^ zobristSideToMove
}
