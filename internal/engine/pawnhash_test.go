package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

func samplePawnEntry() PawnEntry {
	return PawnEntry{
		Passed:   [2]board.Bitboard{board.SquareBB(board.D5), board.SquareBB(board.H2) | board.SquareBB(board.A3)},
		Doubled:  [2]uint8{0x04, 0x80},
		Isolated: [2]uint8{0x01, 0x00},
		HalfOpen: [2]uint8{0x30, 0x0C},
		Open:     0x20,
		Shelter:  [2][2]int8{{3, 1}, {0, 2}},
		MgScore:  -123,
		EgScore:  456,
	}
}

func TestPawnTableStoreProbe(t *testing.T) {
	pt := NewPawnTable(256)
	const key = 0xA5A5A5A5_12345678

	want := samplePawnEntry()
	pt.Store(key, want)
	got, ok := pt.Probe(key)
	if !ok {
		t.Fatalf("stored key missed")
	}
	want.Key = key
	if got != want {
		t.Errorf("got %+v\nwant %+v", got, want)
	}

	if _, ok := pt.Probe(key + 256); ok {
		t.Errorf("different key in the same slot hit")
	}
}

func TestPawnTableAlwaysOverwrites(t *testing.T) {
	pt := NewPawnTable(16)
	first, second := uint64(0x100|3), uint64(0x200|3)

	pt.Store(first, samplePawnEntry())
	pt.Store(second, PawnEntry{MgScore: 9})

	if _, ok := pt.Probe(first); ok {
		t.Errorf("overwritten entry still hits")
	}
	if e, ok := pt.Probe(second); !ok || e.MgScore != 9 {
		t.Errorf("second entry: %+v, %v", e, ok)
	}
}

// A position without pawns has pawn key 0, which must not be confused with
// an empty slot.
func TestPawnTablePawnlessKey(t *testing.T) {
	pt := NewPawnTable(16)
	if _, ok := pt.Probe(0); ok {
		t.Fatalf("empty table hit for key 0")
	}
	pt.Store(0, PawnEntry{Open: 0xFF, HalfOpen: [2]uint8{0xFF, 0xFF}})
	if e, ok := pt.Probe(0); !ok || e.Open != 0xFF {
		t.Errorf("key 0: %+v, %v", e, ok)
	}
}

func TestPawnTableGeneration(t *testing.T) {
	pt := NewPawnTable(16)
	pt.Store(5, samplePawnEntry())
	pt.NewGeneration()
	if _, ok := pt.Probe(5); ok {
		t.Errorf("entry of the previous generation hit")
	}
	pt.Store(5, samplePawnEntry())
	if _, ok := pt.Probe(5); !ok {
		t.Errorf("restored entry missed")
	}

	for i := 0; i < 253; i++ {
		if pt.NewGeneration() {
			t.Fatalf("wrapped after %d bumps", i+2)
		}
	}
	if !pt.NewGeneration() || pt.Generation() != 1 {
		t.Fatalf("expected wraparound to generation 1, got %d", pt.Generation())
	}
	if _, ok := pt.Probe(5); ok {
		t.Errorf("entry survived the wraparound")
	}
}

func TestPawnTableTornEntryIsMiss(t *testing.T) {
	pt := NewPawnTable(16)
	pt.Store(77, samplePawnEntry())
	slot := &pt.slots[77&pt.mask]
	slot.w[3].Store(slot.w[3].Load() + 1)
	if _, ok := pt.Probe(77); ok {
		t.Errorf("torn entry accepted")
	}
}

func TestEvaluatePawns(t *testing.T) {
	params := DefaultParameters()

	t.Run("start position", func(t *testing.T) {
		e := EvaluatePawns(board.NewPosition(), &params)
		if e.MgScore != 0 || e.EgScore != 0 {
			t.Errorf("symmetric structure scored %d/%d", e.MgScore, e.EgScore)
		}
		if e.Passed != [2]board.Bitboard{} || e.Doubled != [2]uint8{} || e.Isolated != [2]uint8{} {
			t.Errorf("unexpected classification: %+v", e)
		}
		if e.Open != 0 || e.HalfOpen != [2]uint8{} {
			t.Errorf("open files in the start position: %+v", e)
		}
		if e.Shelter != [2][2]int8{{3, 3}, {3, 3}} {
			t.Errorf("shelter %v", e.Shelter)
		}
	})

	t.Run("structures", func(t *testing.T) {
		// White: a2 isolated, c3/c4 doubled, every pawn passed. Black: h7 isolated and passed.
		pos, err := board.ParseFEN("4k3/7p/8/4P3/2PP4/2P5/P7/4K3 w - - 0 1")
		if err != nil {
			t.Fatal(err)
		}
		e := EvaluatePawns(pos, &params)

		if e.Doubled[board.White] != 1<<2 {
			t.Errorf("white doubled %08b, want c-file", e.Doubled[board.White])
		}
		if e.Isolated[board.White] != 1<<0 {
			t.Errorf("white isolated %08b, want a-file", e.Isolated[board.White])
		}
		if e.Isolated[board.Black] != 1<<7 {
			t.Errorf("black isolated %08b, want h-file", e.Isolated[board.Black])
		}
		wantPassed := board.SquareBB(board.A2) | board.SquareBB(board.C3) | board.SquareBB(board.C4) |
			board.SquareBB(board.D4) | board.SquareBB(board.E5)
		if e.Passed[board.White] != wantPassed {
			t.Errorf("white passed:\n%s", e.Passed[board.White])
		}
		if e.Passed[board.Black] != board.SquareBB(board.H7) {
			t.Errorf("black passed:\n%s", e.Passed[board.Black])
		}
		if e.Open != 0b0110_0010 {
			t.Errorf("open files %08b, want b, f and g", e.Open)
		}
		if e.EgScore <= 0 {
			t.Errorf("white's passers should win the endgame, eg %d", e.EgScore)
		}
	})

	t.Run("backward", func(t *testing.T) {
		// d3 lags behind c4 and e4, and the c5 pawn guards d4.
		pos, err := board.ParseFEN("4k3/8/8/2p5/2P1P3/3P4/8/4K3 w - - 0 1")
		if err != nil {
			t.Fatal(err)
		}
		if !isBackward(board.D3, board.White, pos.Pieces[board.White][board.Pawn], pos.Pieces[board.Black][board.Pawn]) {
			t.Errorf("d3 not backward")
		}
		if isBackward(board.C4, board.White, pos.Pieces[board.White][board.Pawn], pos.Pieces[board.Black][board.Pawn]) {
			t.Errorf("c4 backward although d3 supports it")
		}
	})
}
