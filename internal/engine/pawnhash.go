package engine

import (
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// Wing indexes king shelter counts.
const (
	KingSide  = 0
	QueenSide = 1
)

// PawnEntry stores cached pawn structure evaluation. File masks hold one
// bit per file, bit 0 = a-file.
type PawnEntry struct {
	Key uint64

	Passed   [2]board.Bitboard
	Doubled  [2]uint8
	Isolated [2]uint8
	HalfOpen [2]uint8 // files without pawns of that color
	Open     uint8    // files without pawns

	// Shelter counts own pawns in front of each wing, [color][wing].
	Shelter [2][2]int8

	MgScore int16 // white's point of view
	EgScore int16
}

// Payload layout:
//
//	w0  passed pawns, white
//	w1  passed pawns, black
//	w2  doubled W|B, isolated W|B, half-open W|B, open, generation
//	w3  mg, eg, shelter W king/queen, shelter B king/queen
func (e *PawnEntry) pack(gen uint8) [4]uint64 {
	return [4]uint64{
		uint64(e.Passed[board.White]),
		uint64(e.Passed[board.Black]),
		uint64(e.Doubled[0]) | uint64(e.Doubled[1])<<8 |
			uint64(e.Isolated[0])<<16 | uint64(e.Isolated[1])<<24 |
			uint64(e.HalfOpen[0])<<32 | uint64(e.HalfOpen[1])<<40 |
			uint64(e.Open)<<48 | uint64(gen)<<56,
		uint64(uint16(e.MgScore)) | uint64(uint16(e.EgScore))<<16 |
			uint64(uint8(e.Shelter[0][KingSide]))<<32 | uint64(uint8(e.Shelter[0][QueenSide]))<<40 |
			uint64(uint8(e.Shelter[1][KingSide]))<<48 | uint64(uint8(e.Shelter[1][QueenSide]))<<56,
	}
}

func unpackPawnEntry(key uint64, w [4]uint64) (e PawnEntry, gen uint8) {
	e.Key = key
	e.Passed = [2]board.Bitboard{board.Bitboard(w[0]), board.Bitboard(w[1])}
	e.Doubled = [2]uint8{uint8(w[2]), uint8(w[2] >> 8)}
	e.Isolated = [2]uint8{uint8(w[2] >> 16), uint8(w[2] >> 24)}
	e.HalfOpen = [2]uint8{uint8(w[2] >> 32), uint8(w[2] >> 40)}
	e.Open = uint8(w[2] >> 48)
	e.MgScore = int16(uint16(w[3]))
	e.EgScore = int16(uint16(w[3] >> 16))
	e.Shelter = [2][2]int8{
		{int8(uint8(w[3] >> 32)), int8(uint8(w[3] >> 40))},
		{int8(uint8(w[3] >> 48)), int8(uint8(w[3] >> 56))},
	}
	return e, uint8(w[2] >> 56)
}

// pawnSlot is a check word, key^w0^w1^w2^w3, and the payload words.
type pawnSlot struct {
	check atomic.Uint64
	w     [4]atomic.Uint64
}

func (s *pawnSlot) load() (key uint64, w [4]uint64) {
	key = s.check.Load()
	for i := range w {
		w[i] = s.w[i].Load()
		key ^= w[i]
	}
	return key, w
}

func (s *pawnSlot) store(key uint64, w [4]uint64) {
	check := key
	for i := range w {
		s.w[i].Store(w[i])
		check ^= w[i]
	}
	s.check.Store(check)
}

// PawnTable is a lockless hash table for caching pawn structure
// evaluations. Stores always overwrite; an entry is usable only while its
// generation is current.
type PawnTable struct {
	slots []pawnSlot
	mask  uint64
	gen   generation

	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewPawnTable creates a pawn table with entries slots, a power of two.
func NewPawnTable(entries uint64) *PawnTable {
	pt := &PawnTable{
		slots: make([]pawnSlot, entries),
		mask:  entries - 1,
	}
	pt.gen.reset()
	return pt
}

// Probe looks up a pawn structure evaluation in the hash table.
func (pt *PawnTable) Probe(key uint64) (PawnEntry, bool) {
	pt.probes.Add(1)
	k, w := pt.slots[key&pt.mask].load()
	if k != key {
		return PawnEntry{}, false
	}
	e, gen := unpackPawnEntry(k, w)
	if gen != pt.gen.current() {
		return PawnEntry{}, false
	}
	pt.hits.Add(1)
	return e, true
}

// Store saves a pawn structure evaluation, replacing whatever the slot held.
func (pt *PawnTable) Store(key uint64, e PawnEntry) {
	e.Key = key
	pt.slots[key&pt.mask].store(key, e.pack(pt.gen.current()))
}

// NewGeneration invalidates every stored entry; see
// TranspositionTable.NewGeneration.
func (pt *PawnTable) NewGeneration() (wrapped bool) {
	if pt.gen.advance() {
		pt.clearSlots()
		return true
	}
	return false
}

// Generation returns the current generation tag.
func (pt *PawnTable) Generation() uint8 {
	return pt.gen.current()
}

// Clear clears the pawn hash table.
func (pt *PawnTable) Clear() {
	pt.clearSlots()
	pt.gen.reset()
	pt.hits.Store(0)
	pt.probes.Store(0)
}

func (pt *PawnTable) clearSlots() {
	for i := range pt.slots {
		for j := range pt.slots[i].w {
			pt.slots[i].w[j].Store(0)
		}
		pt.slots[i].check.Store(0)
	}
}

// HitRate returns the cache hit rate as a percentage.
func (pt *PawnTable) HitRate() float64 {
	probes := pt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(pt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entries in the table.
func (pt *PawnTable) Size() uint64 {
	return uint64(len(pt.slots))
}
