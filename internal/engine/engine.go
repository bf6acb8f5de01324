// Package engine owns the search caches shared by all workers: the main
// transposition table, the pawn structure table and the monitor that
// invalidates their scores between search episodes.
package engine

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/logging"
)

// Runtime bundles the attack tables, both caches and the consistency
// monitor. Probe and Store methods are safe for concurrent use; the
// remaining methods must run between search episodes.
type Runtime struct {
	params  EvaluationParameters
	tables  *board.AttackTables
	tt      *TranspositionTable
	pawns   *PawnTable
	monitor *ThreatMonitor
	sink    logging.Sink
}

// Stats is a snapshot of cache usage.
type Stats struct {
	MainEntries    uint64
	MainBytes      uint64
	PawnEntries    uint64
	PawnBytes      uint64
	BucketSlots    int
	HashFull       int     // permille
	MainHitRate    float64 // percent
	PawnHitRate    float64 // percent
	MainGeneration uint8
	PawnGeneration uint8
	Threat         ThreatState
}

// New validates params and allocates the caches. A nil sink discards
// diagnostics. Invalid parameters are reported to the sink and returned.
func New(params EvaluationParameters, sink logging.Sink) (*Runtime, error) {
	if sink == nil {
		sink = logging.Discard
	}
	if err := params.Validate(); err != nil {
		sink.Print(logging.SeverityError, err.Error())
		return nil, err
	}

	r := &Runtime{
		params: params,
		tables: board.DefaultTables(),
		sink:   sink,
	}
	r.allocate()
	return r, nil
}

func (r *Runtime) allocate() {
	p := &r.params
	r.tt = NewTranspositionTable(p.MainEntries, p.BucketSlots)
	r.pawns = NewPawnTable(p.PawnEntries)
	r.monitor = NewThreatMonitor(r.tt, r.pawns, p, r.sink)
	r.sink.Print(logging.SeverityInfo, fmt.Sprintf("hash tables ready: main %s (%d entries, %d per bucket), pawn %s (%d entries)",
		humanize.IBytes(p.MainBytes()), p.MainEntries, p.BucketSlots,
		humanize.IBytes(p.PawnBytes()), p.PawnEntries))
}

// Parameters returns the parameters the runtime was built with.
func (r *Runtime) Parameters() EvaluationParameters {
	return r.params
}

// Attacks returns the attack set of piece p on sq.
func (r *Runtime) Attacks(p board.Piece, sq board.Square, occupied board.Bitboard) board.Bitboard {
	return r.tables.Attacks(p, sq, occupied)
}

// ComputeKey hashes pos from scratch.
func (r *Runtime) ComputeKey(pos *board.Position) uint64 {
	return board.ComputeKey(pos)
}

// UpdateKey applies a move delta to key.
func (r *Runtime) UpdateKey(key uint64, d board.MoveDelta) uint64 {
	return board.UpdateKey(key, d)
}

func (r *Runtime) ProbeMain(key uint64, depth, alpha, beta int) ProbeResult {
	return r.tt.Probe(key, depth, alpha, beta)
}

func (r *Runtime) StoreMain(key uint64, depth int, bound TTFlag, score int, move board.Move) {
	r.tt.Store(key, depth, bound, score, move)
}

func (r *Runtime) ProbePawn(key uint64) (PawnEntry, bool) {
	return r.pawns.Probe(key)
}

func (r *Runtime) StorePawn(key uint64, e PawnEntry) {
	r.pawns.Store(key, e)
}

// PawnStructure returns the pawn terms of pos from the pawn table, computing
// and storing them on a miss.
func (r *Runtime) PawnStructure(pos *board.Position) PawnEntry {
	if e, ok := r.pawns.Probe(pos.PawnKey); ok {
		return e
	}
	e := EvaluatePawns(pos, &r.params)
	r.pawns.Store(pos.PawnKey, e)
	return e
}

// RunConsistencyCheck runs the threat monitor on the root position of the
// next search episode.
func (r *Runtime) RunConsistencyCheck(pos *board.Position) ConsistencyResult {
	return r.monitor.Check(pos)
}

// NewGame clears both tables and the monitor.
func (r *Runtime) NewGame() {
	r.tt.Clear()
	r.pawns.Clear()
	r.monitor.Reset()
}

// Resize rebuilds the caches for new parameters. Cached entries are lost.
// On error the runtime keeps its previous tables.
func (r *Runtime) Resize(params EvaluationParameters) error {
	if err := params.Validate(); err != nil {
		r.sink.Print(logging.SeverityError, err.Error())
		return err
	}
	r.params = params
	r.allocate()
	return nil
}

// Stats returns a snapshot of cache usage.
func (r *Runtime) Stats() Stats {
	return Stats{
		MainEntries:    r.tt.Size(),
		MainBytes:      r.params.MainBytes(),
		PawnEntries:    r.pawns.Size(),
		PawnBytes:      r.params.PawnBytes(),
		BucketSlots:    r.tt.BucketSlots(),
		HashFull:       r.tt.HashFull(),
		MainHitRate:    r.tt.HitRate(),
		PawnHitRate:    r.pawns.HitRate(),
		MainGeneration: r.tt.Generation(),
		PawnGeneration: r.pawns.Generation(),
		Threat:         r.monitor.State(),
	}
}
