package board

import (
	"math/rand/v2"
	"testing"
)

func checkKeys(t *testing.T, pos *Position, context string) {
	t.Helper()
	if want := ComputeKey(pos); pos.Hash != want {
		t.Fatalf("%s: incremental key %016x, from scratch %016x\n%s", context, pos.Hash, want, pos)
	}
	if want := ComputePawnKey(pos); pos.PawnKey != want {
		t.Fatalf("%s: incremental pawn key %016x, from scratch %016x\n%s", context, pos.PawnKey, want, pos)
	}
}

// Random legal playouts, null moves included, must keep the incremental keys
// equal to the recomputed ones after every make and every unmake.
func TestIncrementalKeysRandomPlayouts(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for _, fen := range []string{StartFEN, KiwipeteFEN, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -"} {
		for game := 0; game < 20; game++ {
			pos, err := ParseFEN(fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			start := *pos

			type step struct {
				move Move
				undo UndoInfo
				null *NullMoveUndo
			}
			var history []step

			for ply := 0; ply < 120; ply++ {
				if rng.IntN(10) == 0 && !pos.InCheck() {
					u := pos.MakeNullMove()
					history = append(history, step{null: &u})
					checkKeys(t, pos, "after null move")
					continue
				}
				moves := pos.GenerateLegalMoves()
				if moves.Len() == 0 {
					break
				}
				m := moves.Get(rng.IntN(moves.Len()))
				undo := pos.MakeMove(m)
				history = append(history, step{move: m, undo: undo})
				checkKeys(t, pos, "after "+m.String())
			}

			for i := len(history) - 1; i >= 0; i-- {
				s := history[i]
				if s.null != nil {
					pos.UnmakeNullMove(*s.null)
				} else {
					pos.UnmakeMove(s.move, s.undo)
				}
				checkKeys(t, pos, "after unmake")
			}
			if *pos != start {
				t.Fatalf("position not restored:\n%s\nwant:\n%s", pos, &start)
			}
		}
	}
}

func TestUpdateKeyMatchesMakeMove(t *testing.T) {
	pos, err := ParseFEN(KiwipeteFEN)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range pos.GenerateLegalMoves().Slice() {
		d := pos.Delta(m)
		predicted := UpdateKey(pos.Hash, d)
		predictedPawn := UpdatePawnKey(pos.PawnKey, d)

		undo := pos.MakeMove(m)
		if pos.Hash != predicted {
			t.Errorf("%s: UpdateKey %016x, MakeMove %016x", m, predicted, pos.Hash)
		}
		if pos.PawnKey != predictedPawn {
			t.Errorf("%s: UpdatePawnKey %016x, MakeMove %016x", m, predictedPawn, pos.PawnKey)
		}
		pos.UnmakeMove(m, undo)
	}
}

func TestKeyDistinguishesState(t *testing.T) {
	base := "r3k2r/8/8/8/4Pp2/8/8/R3K2R b KQkq e3 0 1"
	variants := []string{
		"r3k2r/8/8/8/4Pp2/8/8/R3K2R b KQkq - 0 1", // en passant
		"r3k2r/8/8/8/4Pp2/8/8/R3K2R b KQk e3 0 1", // castling
		"r3k2r/8/8/8/4Pp2/8/8/R3K2R w KQkq - 0 1", // side to move
		"r3k2r/8/8/8/4Pp2/8/8/R3K1R1 b Qkq e3 0 1",
	}
	b, err := ParseFEN(base)
	if err != nil {
		t.Fatal(err)
	}
	for _, fen := range variants {
		v, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if v.Hash == b.Hash {
			t.Errorf("%q hashes like %q", fen, base)
		}
	}

	// Clocks are not part of the key.
	c, _ := ParseFEN("r3k2r/8/8/8/4Pp2/8/8/R3K2R b KQkq e3 37 60")
	if c.Hash != b.Hash {
		t.Errorf("clocks changed the key")
	}
}

// Reaching the same position through different move orders gives the same key.
func TestKeyTransposition(t *testing.T) {
	play := func(moves ...string) *Position {
		pos := NewPosition()
		for _, s := range moves {
			m, err := ParseMove(s, pos)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", s, err)
			}
			pos.MakeMove(m)
		}
		return pos
	}
	a := play("g1f3", "g8f6", "b1c3", "b8c6")
	b := play("b1c3", "b8c6", "g1f3", "g8f6")
	if a.Hash != b.Hash || a.PawnKey != b.PawnKey {
		t.Errorf("transposed positions differ: %016x vs %016x", a.Hash, b.Hash)
	}

	// A double push nobody can capture leaves no en passant square behind.
	c := play("e2e4")
	if c.EnPassant != NoSquare {
		t.Errorf("en passant square %s recorded without a capturing pawn", c.EnPassant)
	}
}

func TestPawnKeyIgnoresPieces(t *testing.T) {
	pos := NewPosition()
	pawnKey := pos.PawnKey
	m, _ := ParseMove("g1f3", pos)
	pos.MakeMove(m)
	if pos.PawnKey != pawnKey {
		t.Errorf("knight move changed pawn key")
	}
	m, _ = ParseMove("e7e5", pos)
	pos.MakeMove(m)
	if pos.PawnKey == pawnKey {
		t.Errorf("pawn move left pawn key unchanged")
	}
}

func BenchmarkComputeKey(b *testing.B) {
	pos, _ := ParseFEN(KiwipeteFEN)
	for i := 0; i < b.N; i++ {
		_ = ComputeKey(pos)
	}
}
