package board

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Fancy magic bitboards for sliding piece attacks. The multipliers are
// precomputed data (see cmd/magicgen); building the tables only checks them.

var (
	// ErrMagicCollision means a multiplier sends two occupancies with
	// different attack sets to the same slot.
	ErrMagicCollision = errors.New("magic collision")

	// ErrTableMismatch means a built table disagrees with ray casting.
	ErrTableMismatch = errors.New("attack table mismatch")
)

const (
	bishopTableSize = 5248
	rookTableSize   = 102400
)

// Magic is the per-square lookup record for one slider.
type Magic struct {
	Mask   Bitboard // relevant occupancy, board edges removed
	Magic  uint64   // multiplier
	Shift  uint8    // 64 - popcount(Mask)
	Offset uint32   // first slot in the shared attack table
}

// index maps an occupancy to a slot relative to Offset.
func (m *Magic) index(occupied Bitboard) uint32 {
	return uint32((uint64(occupied&m.Mask) * m.Magic) >> m.Shift)
}

var bishopMagicNumbers = [64]uint64{
	0x0002020202020200, 0x0002020202020000, 0x0004010202000000, 0x0004040080000000,
	0x0001104000000000, 0x0000821040000000, 0x0000410410400000, 0x0000104104104000,
	0x0000040404040400, 0x0000020202020200, 0x0000040102020000, 0x0000040400800000,
	0x0000011040000000, 0x0000008210400000, 0x0000004104104000, 0x0000002082082000,
	0x0004000808080800, 0x0002000404040400, 0x0001000202020200, 0x0000800802004000,
	0x0000800400A00000, 0x0000200100884000, 0x0000400082082000, 0x0000200041041000,
	0x0002080010101000, 0x0001040008080800, 0x0000208004010400, 0x0000404004010200,
	0x0000840000802000, 0x0000404002011000, 0x0000808001041000, 0x0000404000820800,
	0x0001041000202000, 0x0000820800101000, 0x0000104400080800, 0x0000020080080080,
	0x0000404040040100, 0x0000808100020100, 0x0001010100020800, 0x0000808080010400,
	0x0000820820004000, 0x0000410410002000, 0x0000082088001000, 0x0000002011000800,
	0x0000080100400400, 0x0001010101000200, 0x0002020202000400, 0x0001010101000200,
	0x0000410410400000, 0x0000208208200000, 0x0000002084100000, 0x0000000020880000,
	0x0000001002020000, 0x0000040408020000, 0x0004040404040000, 0x0002020202020000,
	0x0000104104104000, 0x0000002082082000, 0x0000000020841000, 0x0000000000208800,
	0x0000000010020200, 0x0000000404080200, 0x0000040404040400, 0x0002020202020200,
}

var rookMagicNumbers = [64]uint64{
	0x0080001020400080, 0x0040001000200040, 0x0080081000200080, 0x0080040800100080,
	0x0080020400080080, 0x0080010200040080, 0x0080008001000200, 0x0080002040800100,
	0x0000800020400080, 0x0000400020005000, 0x0000801000200080, 0x0000800800100080,
	0x0000800400080080, 0x0000800200040080, 0x0000800100020080, 0x0000800040800100,
	0x0000208000400080, 0x0000404000201000, 0x0000808010002000, 0x0000808008001000,
	0x0000808004000800, 0x0000808002000400, 0x0000010100020004, 0x0000020000408104,
	0x0000208080004000, 0x0000200040005000, 0x0000100080200080, 0x0000080080100080,
	0x0000040080080080, 0x0000020080040080, 0x0000010080800200, 0x0000800080004100,
	0x0000204000800080, 0x0000200040401000, 0x0000100080802000, 0x0000080080801000,
	0x0000040080800800, 0x0000020080800400, 0x0000020001010004, 0x0000800040800100,
	0x0000204000808000, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000010002008080, 0x0000004081020004,
	0x0000204000800080, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000800100020080, 0x0000800041000080,
	0x00FFFCDDFCED714A, 0x007FFCDDFCED714A, 0x003FFFCDFFD88096, 0x0000040810002101,
	0x0001000204080011, 0x0001000204000801, 0x0001000082000401, 0x0001FFFAABFAD1A2,
}

// AttackTables holds every precomputed attack set. It is immutable once
// BuildTables returns and may be shared freely between goroutines.
type AttackTables struct {
	bishopMagics [64]Magic
	rookMagics   [64]Magic
	bishopTable  [bishopTableSize]Bitboard
	rookTable    [rookTableSize]Bitboard

	knight [64]Bitboard
	king   [64]Bitboard
	pawn   [2][64]Bitboard
}

// BuildTables computes the leaper tables and fills the slider tables from
// the precomputed multipliers, enumerating every occupancy subset of every
// relevant mask. A destructive collision is reported as ErrMagicCollision.
func BuildTables() (*AttackTables, error) {
	t := new(AttackTables)
	t.initLeapers()
	if err := fillSlider(Bishop, &bishopMagicNumbers, &t.bishopMagics, t.bishopTable[:]); err != nil {
		return nil, err
	}
	if err := fillSlider(Rook, &rookMagicNumbers, &t.rookMagics, t.rookTable[:]); err != nil {
		return nil, err
	}
	return t, nil
}

func fillSlider(pt PieceType, numbers *[64]uint64, magics *[64]Magic, table []Bitboard) error {
	var offset uint32
	for sq := A1; sq <= H8; sq++ {
		mask := RelevantMask(pt, sq)
		n := mask.PopCount()
		m := Magic{
			Mask:   mask,
			Magic:  numbers[sq],
			Shift:  uint8(64 - n),
			Offset: offset,
		}

		size := uint32(1) << n
		if int(offset+size) > len(table) {
			return fmt.Errorf("%w: %s table overflows at %s", ErrMagicCollision, pt, sq)
		}

		used := make([]bool, size)
		for i := 0; i < int(size); i++ {
			occ := OccupancySubset(i, mask)
			attacks := SlidingAttacksSlow(pt, sq, occ)
			idx := m.index(occ)
			slot := &table[offset+idx]
			// Two subsets sharing a slot is fine when their attacks agree.
			if used[idx] && *slot != attacks {
				return fmt.Errorf("%w: %s on %s, subset %#x", ErrMagicCollision, pt, sq, uint64(occ))
			}
			used[idx] = true
			*slot = attacks
		}

		magics[sq] = m
		offset += size
	}
	return nil
}

func (t *AttackTables) initLeapers() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		t.knight[sq] = (bb<<17)&NotFileA | (bb<<15)&NotFileH |
			(bb>>15)&NotFileA | (bb>>17)&NotFileH |
			(bb<<10)&NotFileAB | (bb<<6)&NotFileGH |
			(bb>>6)&NotFileAB | (bb>>10)&NotFileGH

		t.king[sq] = bb.North() | bb.South() | bb.East() | bb.West() |
			bb.NorthEast() | bb.NorthWest() | bb.SouthEast() | bb.SouthWest()

		t.pawn[White][sq] = bb.NorthEast() | bb.NorthWest()
		t.pawn[Black][sq] = bb.SouthEast() | bb.SouthWest()
	}
}

// Attacks returns the squares attacked by piece p standing on sq, given the
// board occupancy. Pawn attacks depend on the piece color; the occupancy is
// ignored for leapers.
func (t *AttackTables) Attacks(p Piece, sq Square, occupied Bitboard) Bitboard {
	assertSquare(sq)
	switch p.Type() {
	case Pawn:
		return t.pawn[p.Color()][sq]
	case Knight:
		return t.knight[sq]
	case Bishop:
		return t.bishop(sq, occupied)
	case Rook:
		return t.rook(sq, occupied)
	case Queen:
		return t.bishop(sq, occupied) | t.rook(sq, occupied)
	case King:
		return t.king[sq]
	}
	return Empty
}

func (t *AttackTables) bishop(sq Square, occupied Bitboard) Bitboard {
	m := &t.bishopMagics[sq]
	return t.bishopTable[m.Offset+m.index(occupied)]
}

func (t *AttackTables) rook(sq Square, occupied Bitboard) Bitboard {
	m := &t.rookMagics[sq]
	return t.rookTable[m.Offset+m.index(occupied)]
}

// Magic returns the lookup record of a slider on sq.
func (t *AttackTables) Magic(pt PieceType, sq Square) Magic {
	if pt == Bishop {
		return t.bishopMagics[sq]
	}
	return t.rookMagics[sq]
}

// Verify cross-checks every slider slot against brute-force ray casting,
// covering every occupancy subset of every square. Squares are checked in
// parallel; the first mismatch cancels the rest.
func (t *AttackTables) Verify(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, pt := range []PieceType{Bishop, Rook} {
		for sq := A1; sq <= H8; sq++ {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				piece := NewPiece(pt, White)
				mask := RelevantMask(pt, sq)
				for i := 0; i < 1<<mask.PopCount(); i++ {
					occ := OccupancySubset(i, mask)
					// Edge squares outside the mask must not change the answer.
					for _, o := range [2]Bitboard{occ, occ | Edges&^SquareBB(sq)} {
						if got, want := t.Attacks(piece, sq, o), SlidingAttacksSlow(pt, sq, o); got != want {
							return fmt.Errorf("%w: %s on %s, occupancy %#x", ErrTableMismatch, pt, sq, uint64(o))
						}
					}
				}
				return nil
			})
		}
	}
	return g.Wait()
}

// RelevantMask returns the squares whose occupancy can change the attacks of
// a bishop or rook on sq: its rays, minus the last square of each ray.
func RelevantMask(pt PieceType, sq Square) Bitboard {
	if pt == Bishop {
		return SlidingAttacksSlow(Bishop, sq, Empty) &^ Edges
	}

	file, rank := sq.File(), sq.Rank()
	var mask Bitboard
	for f := 1; f < 7; f++ {
		if f != file {
			mask |= SquareBB(NewSquare(f, rank))
		}
	}
	for r := 1; r < 7; r++ {
		if r != rank {
			mask |= SquareBB(NewSquare(file, r))
		}
	}
	return mask
}

// OccupancySubset returns the index-th subset of mask: bit i of index selects
// the i-th lowest square of the mask.
func OccupancySubset(index int, mask Bitboard) Bitboard {
	var occ Bitboard
	for i := 0; mask != 0; i++ {
		sq := mask.PopLSB()
		if index&(1<<i) != 0 {
			occ |= SquareBB(sq)
		}
	}
	return occ
}

var (
	rookDirections   = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopDirections = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

// SlidingAttacksSlow ray-casts from sq in every direction of the slider,
// stopping on (and including) the first occupied square.
func SlidingAttacksSlow(pt PieceType, sq Square, occupied Bitboard) Bitboard {
	var attacks Bitboard
	if pt == Rook || pt == Queen {
		attacks |= castRays(sq, occupied, &rookDirections)
	}
	if pt == Bishop || pt == Queen {
		attacks |= castRays(sq, occupied, &bishopDirections)
	}
	return attacks
}

func castRays(sq Square, occupied Bitboard, dirs *[4][2]int) Bitboard {
	var attacks Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
			s := SquareBB(NewSquare(f, r))
			attacks |= s
			if occupied&s != 0 {
				break
			}
			f += d[0]
			r += d[1]
		}
	}
	return attacks
}
