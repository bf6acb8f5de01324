package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
// TTNone is never stored, so an all-zero slot reads as empty.
type TTFlag uint8

const (
	TTNone       TTFlag = iota
	TTExact             // Exact score
	TTLowerBound        // Failed high (beta cutoff)
	TTUpperBound        // Failed low
)

func (f TTFlag) String() string {
	switch f {
	case TTExact:
		return "exact"
	case TTLowerBound:
		return "lower"
	case TTUpperBound:
		return "upper"
	default:
		return "none"
	}
}

// TTEntry is a decoded transposition table entry.
type TTEntry struct {
	Key        uint64
	BestMove   board.Move
	Score      int16
	Depth      int8
	Flag       TTFlag
	Generation uint8
}

// Data word layout:
//
//	bits  0-15  best move
//	bits 16-31  score (int16)
//	bits 32-39  depth (int8)
//	bits 40-47  flag
//	bits 48-55  generation
func (e TTEntry) pack() uint64 {
	return uint64(e.BestMove) |
		uint64(uint16(e.Score))<<16 |
		uint64(uint8(e.Depth))<<32 |
		uint64(e.Flag)<<40 |
		uint64(e.Generation)<<48
}

func unpackTTEntry(key, data uint64) TTEntry {
	return TTEntry{
		Key:        key,
		BestMove:   board.Move(data),
		Score:      int16(uint16(data >> 16)),
		Depth:      int8(uint8(data >> 32)),
		Flag:       TTFlag(data >> 40),
		Generation: uint8(data >> 48),
	}
}

// ttSlot holds one entry as two words. check is key^data, so a slot whose
// words come from two different writes fails the key test and reads as a
// miss instead of returning another position's payload.
type ttSlot struct {
	check atomic.Uint64
	data  atomic.Uint64
}

func (s *ttSlot) load() (key, data uint64) {
	check := s.check.Load()
	data = s.data.Load()
	return check ^ data, data
}

func (s *ttSlot) store(key, data uint64) {
	s.data.Store(data)
	s.check.Store(key ^ data)
}

// ProbeResult is what a main table lookup reports.
type ProbeResult struct {
	Hit    bool // an entry with the probed key was found
	Usable bool // its score may replace a search at the requested depth and window
	Score  int
	Move   board.Move // returned on every hit, usable or not
	Depth  int
	Bound  TTFlag
}

// TranspositionTable is a lockless hash table for search results, shared by
// every search worker. Entries are grouped into buckets of bucketSlots; the
// bucket of a key is the aligned group containing key&mask.
type TranspositionTable struct {
	slots      []ttSlot
	size       uint64
	mask       uint64
	bucketMask uint64 // clears the in-bucket bits of an index
	gen        generation

	// Statistics
	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTranspositionTable creates a table of entries slots grouped in buckets
// of bucketSlots. Both must be powers of two (see EvaluationParameters).
func NewTranspositionTable(entries uint64, bucketSlots int) *TranspositionTable {
	tt := &TranspositionTable{
		slots:      make([]ttSlot, entries),
		size:       entries,
		mask:       entries - 1,
		bucketMask: ^uint64(bucketSlots - 1),
	}
	tt.gen.reset()
	return tt
}

func (tt *TranspositionTable) bucket(key uint64) []ttSlot {
	first := key & tt.mask & tt.bucketMask
	return tt.slots[first : first+^tt.bucketMask+1]
}

// Probe looks up key. Usable requires the stored depth to cover depth, the
// bound to be decisive for the (alpha, beta) window and the entry to belong
// to the current generation.
func (tt *TranspositionTable) Probe(key uint64, depth, alpha, beta int) ProbeResult {
	tt.probes.Add(1)

	bucket := tt.bucket(key)
	for i := range bucket {
		k, data := bucket[i].load()
		if k != key || data == 0 {
			continue
		}
		tt.hits.Add(1)

		e := unpackTTEntry(k, data)
		r := ProbeResult{
			Hit:   true,
			Score: int(e.Score),
			Move:  e.BestMove,
			Depth: int(e.Depth),
			Bound: e.Flag,
		}
		if r.Depth >= depth && e.Generation == tt.gen.current() {
			switch e.Flag {
			case TTExact:
				r.Usable = true
			case TTLowerBound:
				r.Usable = r.Score >= beta
			case TTUpperBound:
				r.Usable = r.Score <= alpha
			}
		}
		return r
	}
	return ProbeResult{}
}

// Entry returns the raw entry stored for key, if any, regardless of depth
// or generation.
func (tt *TranspositionTable) Entry(key uint64) (TTEntry, bool) {
	bucket := tt.bucket(key)
	for i := range bucket {
		if k, data := bucket[i].load(); k == key && data != 0 {
			return unpackTTEntry(k, data), true
		}
	}
	return TTEntry{}, false
}

// Store saves a search result. It always writes: the victim is the slot
// already holding key, else an empty slot, else the shallowest entry of an
// older generation, else the shallowest entry. Ties go to the lowest slot.
func (tt *TranspositionTable) Store(key uint64, depth int, flag TTFlag, score int, bestMove board.Move) {
	gen := tt.gen.current()
	bucket := tt.bucket(key)

	// Lower class wins: 0 empty, 1 older generation, 2 current generation.
	victim, victimClass, victimDepth := 0, 3, 0
	for i := range bucket {
		k, data := bucket[i].load()
		if data != 0 && k == key {
			victim = i
			break
		}
		class, depth := 0, 0
		if data != 0 {
			e := unpackTTEntry(k, data)
			class, depth = 2, int(e.Depth)
			if e.Generation != gen {
				class = 1
			}
		}
		if class < victimClass || class == victimClass && depth < victimDepth {
			victim, victimClass, victimDepth = i, class, depth
		}
	}

	if flag == TTNone {
		flag = TTExact
	}
	e := TTEntry{
		BestMove:   bestMove,
		Score:      int16(clamp(score, math.MinInt16, math.MaxInt16)),
		Depth:      int8(clamp(depth, math.MinInt8, math.MaxInt8)),
		Flag:       flag,
		Generation: gen,
	}
	bucket[victim].store(key, e.pack())
}

// NewGeneration marks every stored score as stale. On wraparound of the
// 8-bit counter the table is cleared and the counter restarts at 1, so an
// old entry can never alias the current generation. Callers must not run
// it concurrently with Probe or Store.
func (tt *TranspositionTable) NewGeneration() (wrapped bool) {
	if tt.gen.advance() {
		tt.clearSlots()
		return true
	}
	return false
}

// Generation returns the current generation tag.
func (tt *TranspositionTable) Generation() uint8 {
	return tt.gen.current()
}

// Clear empties the table and restarts the generation and statistics.
func (tt *TranspositionTable) Clear() {
	tt.clearSlots()
	tt.gen.reset()
	tt.hits.Store(0)
	tt.probes.Store(0)
}

func (tt *TranspositionTable) clearSlots() {
	for i := range tt.slots {
		tt.slots[i].data.Store(0)
		tt.slots[i].check.Store(0)
	}
}

// HashFull returns the permille of a 1000-slot sample holding entries of the
// current generation.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}

	gen := tt.gen.current()
	used := 0
	for i := 0; i < sampleSize; i++ {
		if _, data := tt.slots[i].load(); data != 0 && uint8(data>>48) == gen {
			used++
		}
	}
	return used * 1000 / sampleSize
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// BucketSlots returns the number of entries per bucket.
func (tt *TranspositionTable) BucketSlots() int {
	return int(^tt.bucketMask + 1)
}

// generation is an 8-bit cache generation, 1..255. Zero is reserved so that
// an empty slot never matches the current generation.
type generation struct {
	v atomic.Uint32
}

func (g *generation) current() uint8 {
	return uint8(g.v.Load())
}

func (g *generation) reset() {
	g.v.Store(1)
}

// advance moves to the next generation and reports whether it wrapped back
// to 1.
func (g *generation) advance() (wrapped bool) {
	next := g.v.Load() + 1
	if next > math.MaxUint8 {
		g.v.Store(1)
		return true
	}
	g.v.Store(next)
	return false
}
