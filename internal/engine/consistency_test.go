package engine

import (
	"strings"
	"testing"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/logging"
)

type recordedMessage struct {
	mask logging.Severity
	msg  string
}

type recorder struct {
	messages []recordedMessage
}

func (r *recorder) Print(mask logging.Severity, msg string) {
	r.messages = append(r.messages, recordedMessage{mask, msg})
}

func (r *recorder) count(mask logging.Severity) int {
	n := 0
	for _, m := range r.messages {
		if m.mask&mask == mask {
			n++
		}
	}
	return n
}

func newTestMonitor(t *testing.T) (*ThreatMonitor, *TranspositionTable, *PawnTable, *recorder) {
	t.Helper()
	params := DefaultParameters()
	tt := NewTranspositionTable(1024, 4)
	pt := NewPawnTable(64)
	rec := &recorder{}
	return NewThreatMonitor(tt, pt, &params, rec), tt, pt, rec
}

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

// White castled on g1 with h3 played; a black knight sits on g4, supported
// by the h5 pawn, with black's queen and rook still on the board.
const (
	quietKingSideFEN  = "r2q2k1/5pp1/5n2/7p/8/7P/5PP1/5RK1 w - - 0 20"
	trojanKingSideFEN = "r2q2k1/5pp1/8/7p/6n1/7P/5PP1/5RK1 w - - 0 20"
)

func TestDetectThreats(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want CornerMask
	}{
		{"start position", board.StartFEN, 0},
		{"quiet king side", quietKingSideFEN, 0},
		{"white king side g1", trojanKingSideFEN, 1 << WhiteKingSideCorner},
		{"white king side h1", "r2q2k1/5pp1/8/7p/6n1/7P/5PP1/5R1K w - - 0 20", 1 << WhiteKingSideCorner},
		{"white king side bishop wedge", "r2q2k1/5pp1/8/7p/6b1/7P/5PP1/5RK1 w - - 0 20", 1 << WhiteKingSideCorner},
		{"white king side without rook", "3q2k1/5pp1/8/7p/6n1/7P/5PP1/5RK1 w - - 0 20", 0},
		{"white king side without queen", "r5k1/5pp1/8/7p/6n1/7P/5PP1/5RK1 w - - 0 20", 0},
		{"white king side king on f1", "r2q2k1/5pp1/8/7p/6n1/7P/5PP1/4RK2 w - - 0 20", 0},
		{"white queen side", "r2q2k1/8/8/p7/1b6/P7/8/1K6 w - - 0 1", 1 << WhiteQueenSideCorner},
		{"black king side", "6k1/8/7p/6N1/7P/8/8/3QR1K1 w - - 0 1", 1 << BlackKingSideCorner},
		{"black queen side", "1k6/8/p7/1B6/P7/8/8/3QR1K1 w - - 0 1", 1 << BlackQueenSideCorner},
		// Only a white pawn on a4 attacks b5; a black one there does not count.
		{"black queen side own pawn on a4", "1k6/8/p7/1B6/p7/8/8/3QR1K1 w - - 0 1", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectThreats(mustFEN(t, tc.fen)); got != tc.want {
				t.Errorf("DetectThreats = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestConsistencyStartPosition(t *testing.T) {
	m, tt, pt, rec := newTestMonitor(t)
	gen := tt.Generation()

	res := m.Check(board.NewPosition())
	if res.ThreatActive || res.Invalidated || res.ThreatChanged || res.RuleTriggered {
		t.Errorf("start position: %+v", res)
	}
	if tt.Generation() != gen || pt.Generation() != 1 {
		t.Errorf("generations moved: main %d pawn %d", tt.Generation(), pt.Generation())
	}
	if len(rec.messages) != 0 {
		t.Errorf("unexpected diagnostics: %v", rec.messages)
	}
}

func TestConsistencyThreatFlip(t *testing.T) {
	m, tt, pt, rec := newTestMonitor(t)

	quiet := mustFEN(t, quietKingSideFEN)
	if res := m.Check(quiet); res.Invalidated {
		t.Fatalf("quiet position invalidated: %+v", res)
	}

	trojan := mustFEN(t, trojanKingSideFEN)
	move := board.NewMove(board.G4, board.H2)
	tt.Store(trojan.Hash, 10, TTExact, -50, move)
	params := DefaultParameters()
	pt.Store(trojan.PawnKey, EvaluatePawns(trojan, &params))

	before := tt.Generation()
	res := m.Check(trojan)
	if !res.ThreatActive || !res.ThreatChanged || !res.Invalidated {
		t.Fatalf("flip not reported: %+v", res)
	}
	if !res.Corners.Has(WhiteKingSideCorner) {
		t.Errorf("corners %s", res.Corners)
	}
	if got := tt.Generation(); got != before+1 || res.Generation != got {
		t.Errorf("generation %d -> %d (result %d), want exactly one bump", before, got, res.Generation)
	}
	if rec.count(logging.SeverityHash) != 1 || !strings.Contains(rec.messages[0].msg, "threat") {
		t.Errorf("diagnostics: %v", rec.messages)
	}

	r := tt.Probe(trojan.Hash, 10, -Infinity, Infinity)
	if !r.Hit || r.Usable {
		t.Errorf("stored entry after flip: hit=%v usable=%v, want hit and unusable", r.Hit, r.Usable)
	}
	if r.Move != move {
		t.Errorf("move hint %v, want %v", r.Move, move)
	}
	if _, ok := pt.Probe(trojan.PawnKey); ok {
		t.Errorf("pawn entry survived the threat flip")
	}

	// Unchanged position: nothing more to do.
	again := m.Check(trojan)
	if again.Invalidated || again.ThreatChanged || !again.ThreatActive {
		t.Errorf("second check: %+v", again)
	}
	if tt.Generation() != before+1 {
		t.Errorf("second check bumped the generation")
	}

	// The knight leaves: the pattern disappears, which is a flip too.
	if res := m.Check(quiet); !res.ThreatChanged || !res.Invalidated || res.ThreatActive {
		t.Errorf("threat removal: %+v", res)
	}

	st := m.State()
	if st.Corners != 0 || st.LastChangePly != quiet.Ply() || st.LastInvalidationPly != quiet.Ply() {
		t.Errorf("state %+v", st)
	}
	if st.PawnGeneration != 3 || st.MainGeneration != before+2 {
		t.Errorf("generations in state: %+v", st)
	}
}

func TestConsistencyFiftyMoveRule(t *testing.T) {
	m, tt, pt, rec := newTestMonitor(t)
	pos := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 60")

	check := func(clock int) ConsistencyResult {
		pos.HalfMoveClock = clock
		return m.Check(pos)
	}

	if res := check(79); res.RuleTriggered || res.Invalidated {
		t.Errorf("clock 79: %+v", res)
	}
	if res := check(80); res.RuleTriggered {
		t.Errorf("clock 80 is not above the threshold: %+v", res)
	}

	gen := tt.Generation()
	if res := check(81); !res.RuleTriggered || !res.Invalidated {
		t.Errorf("clock 81: %+v", res)
	}
	if res := check(95); !res.RuleTriggered || !res.Invalidated {
		t.Errorf("clock 95: %+v", res)
	}
	if tt.Generation() != gen+2 {
		t.Errorf("generation %d, want %d", tt.Generation(), gen+2)
	}
	if pt.Generation() != 1 {
		t.Errorf("rule trigger bumped the pawn generation to %d", pt.Generation())
	}

	// Same position, same clock: idempotent.
	if res := check(95); res.Invalidated {
		t.Errorf("repeated check at 95 invalidated again: %+v", res)
	}
	if rec.count(logging.SeverityHash) != 2 {
		t.Errorf("diagnostics: %v", rec.messages)
	}
}

func TestConsistencyOneBumpPerCall(t *testing.T) {
	m, tt, _, _ := newTestMonitor(t)
	pos := mustFEN(t, "r2q2k1/5pp1/8/7p/6n1/7P/5PP1/5RK1 w - - 90 60")

	gen := tt.Generation()
	res := m.Check(pos)
	if !res.ThreatChanged || !res.RuleTriggered {
		t.Fatalf("expected both triggers: %+v", res)
	}
	if tt.Generation() != gen+1 {
		t.Errorf("generation moved by %d, want 1", tt.Generation()-gen)
	}
}

func TestConsistencyGenerationWrap(t *testing.T) {
	m, tt, _, rec := newTestMonitor(t)
	pos := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 60")
	tt.Store(pos.Hash, 5, TTExact, 0, board.NoMove)

	for clock := 81; clock < 81+254; clock++ {
		pos.HalfMoveClock = clock
		m.Check(pos)
	}
	if tt.Generation() != 255 || rec.count(logging.SeverityWarn) != 0 {
		t.Fatalf("generation %d, warnings %d", tt.Generation(), rec.count(logging.SeverityWarn))
	}

	pos.HalfMoveClock = 400
	res := m.Check(pos)
	if !res.Invalidated || res.Generation != 1 {
		t.Errorf("wrap: %+v", res)
	}
	if rec.count(logging.SeverityWarn|logging.SeverityHash) != 1 {
		t.Errorf("wrap not logged as a warning: %v", rec.messages[len(rec.messages)-1])
	}
	if _, ok := tt.Entry(pos.Hash); ok {
		t.Errorf("entry survived the wrap")
	}
}

func TestConsistencyReset(t *testing.T) {
	m, _, _, _ := newTestMonitor(t)
	trojan := mustFEN(t, trojanKingSideFEN)
	m.Check(trojan)
	m.Reset()

	st := m.State()
	if st.Corners != 0 || st.LastChangePly != -1 || st.LastInvalidationPly != -1 {
		t.Errorf("state after reset %+v", st)
	}
	if res := m.Check(trojan); !res.ThreatChanged {
		t.Errorf("threat not reported after reset: %+v", res)
	}
}
