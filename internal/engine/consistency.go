package engine

import (
	"fmt"
	"strings"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/logging"
)

// Corner names one of the four castled-king configurations watched for a
// latent mating attack.
type Corner uint8

const (
	WhiteKingSideCorner Corner = iota
	WhiteQueenSideCorner
	BlackKingSideCorner
	BlackQueenSideCorner
)

func (c Corner) String() string {
	return [...]string{"white king side", "white queen side", "black king side", "black queen side"}[c]
}

// CornerMask has one bit per Corner whose threat pattern is present.
type CornerMask uint8

// Has reports whether the pattern of corner c is present.
func (m CornerMask) Has(c Corner) bool {
	return m&(1<<c) != 0
}

func (m CornerMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for c := WhiteKingSideCorner; c <= BlackQueenSideCorner; c++ {
		if m.Has(c) {
			parts = append(parts, c.String())
		}
	}
	return strings.Join(parts, ", ")
}

// threatPattern: the defender's king sits in the corner, the attacker keeps
// a queen and a rook and has a knight or bishop on the wedge square, and
// the two pawns that both attack the wedge are in place.
type threatPattern struct {
	defender     board.Color
	king         board.Bitboard
	wedge        board.Square
	defenderPawn board.Square
	attackerPawn board.Square
}

var threatPatterns = [4]threatPattern{
	WhiteKingSideCorner:  {board.White, board.SquareBB(board.G1) | board.SquareBB(board.H1), board.G4, board.H3, board.H5},
	WhiteQueenSideCorner: {board.White, board.SquareBB(board.B1) | board.SquareBB(board.A1), board.B4, board.A3, board.A5},
	BlackKingSideCorner:  {board.Black, board.SquareBB(board.G8) | board.SquareBB(board.H8), board.G5, board.H6, board.H4},
	BlackQueenSideCorner: {board.Black, board.SquareBB(board.B8) | board.SquareBB(board.A8), board.B5, board.A6, board.A4},
}

func (t *threatPattern) present(pos *board.Position) bool {
	attacker := t.defender.Other()
	return pos.Pieces[t.defender][board.King]&t.king != 0 &&
		pos.Count(attacker, board.Queen) > 0 &&
		pos.Count(attacker, board.Rook) > 0 &&
		(pos.Pieces[attacker][board.Knight]|pos.Pieces[attacker][board.Bishop]).IsSet(t.wedge) &&
		pos.Pieces[t.defender][board.Pawn].IsSet(t.defenderPawn) &&
		pos.Pieces[attacker][board.Pawn].IsSet(t.attackerPawn)
}

// DetectThreats evaluates the threat pattern of every corner.
func DetectThreats(pos *board.Position) CornerMask {
	var m CornerMask
	for c := range threatPatterns {
		if threatPatterns[c].present(pos) {
			m |= 1 << c
		}
	}
	return m
}

// ConsistencyResult reports what one consistency check found and did.
type ConsistencyResult struct {
	ThreatActive  bool
	Corners       CornerMask
	Invalidated   bool // the main table generation was bumped
	ThreatChanged bool
	RuleTriggered bool // the half-move clock is above the threshold
	Generation    uint8
	Ply           int
}

// ThreatState is the monitor's memory between calls, for diagnostics.
type ThreatState struct {
	Corners             CornerMask
	LastChangePly       int // -1 before the first change
	LastInvalidationPly int // -1 before the first invalidation
	MainGeneration      uint8
	PawnGeneration      uint8
}

// ThreatMonitor decides, once per root ply, whether cached scores can
// still be trusted. It bumps the main table generation when the threat
// pattern of any corner appears or disappears, and on every ply while the
// half-move clock is above the threshold. A threat flip also bumps the pawn
// table generation, since pawn terms were scored without the pattern.
//
// Check must run between search episodes, never concurrently with probes.
type ThreatMonitor struct {
	main      *TranspositionTable
	pawns     *PawnTable
	sink      logging.Sink
	threshold int

	corners             CornerMask
	lastChangePly       int
	lastInvalidationPly int

	// Last rule trigger, so a repeated check of the same position and clock
	// does not fire twice.
	ruleFired bool
	ruleKey   uint64
	ruleClock int
}

// NewThreatMonitor creates a monitor over the two tables.
func NewThreatMonitor(main *TranspositionTable, pawns *PawnTable, params *EvaluationParameters, sink logging.Sink) *ThreatMonitor {
	m := &ThreatMonitor{
		main:      main,
		pawns:     pawns,
		sink:      sink,
		threshold: params.FiftyMoveThreshold,
	}
	m.Reset()
	return m
}

// Reset forgets the previous game.
func (m *ThreatMonitor) Reset() {
	m.corners = 0
	m.lastChangePly = -1
	m.lastInvalidationPly = -1
	m.ruleFired = false
	m.ruleKey = 0
	m.ruleClock = 0
}

// Check evaluates pos and invalidates stale cache generations. The main
// generation is bumped at most once per call.
func (m *ThreatMonitor) Check(pos *board.Position) ConsistencyResult {
	ply := pos.Ply()
	corners := DetectThreats(pos)
	res := ConsistencyResult{
		ThreatActive: corners != 0,
		Corners:      corners,
		Ply:          ply,
	}

	if corners != m.corners {
		res.ThreatChanged = true
		m.sink.Print(logging.SeverityHash, fmt.Sprintf("threat pattern changed at ply %d: %s -> %s", ply, m.corners, corners))
		m.corners = corners
		m.lastChangePly = ply
		if m.pawns.NewGeneration() {
			m.sink.Print(logging.SeverityHash|logging.SeverityWarn, "pawn table generation wrapped, table cleared")
		}
	}

	if pos.HalfMoveClock > m.threshold && !(m.ruleFired && m.ruleKey == pos.Hash && m.ruleClock == pos.HalfMoveClock) {
		res.RuleTriggered = true
		m.ruleFired, m.ruleKey, m.ruleClock = true, pos.Hash, pos.HalfMoveClock
		m.sink.Print(logging.SeverityHash, fmt.Sprintf("half-move clock %d above %d at ply %d, cached scores invalidated", pos.HalfMoveClock, m.threshold, ply))
	}

	if res.ThreatChanged || res.RuleTriggered {
		res.Invalidated = true
		m.lastInvalidationPly = ply
		if m.main.NewGeneration() {
			m.sink.Print(logging.SeverityHash|logging.SeverityWarn, "main table generation wrapped, table cleared")
		}
	}

	res.Generation = m.main.Generation()
	return res
}

// State returns a snapshot of the monitor for diagnostics.
func (m *ThreatMonitor) State() ThreatState {
	return ThreatState{
		Corners:             m.corners,
		LastChangePly:       m.lastChangePly,
		LastInvalidationPly: m.lastInvalidationPly,
		MainGeneration:      m.main.Generation(),
		PawnGeneration:      m.pawns.Generation(),
	}
}
