package main

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

func newRuntime(t *testing.T) *engine.Runtime {
	t.Helper()
	p := engine.DefaultParameters()
	p.MainEntries = 1 << 10
	p.PawnEntries = 1 << 6
	rt, err := engine.New(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestReplay(t *testing.T) {
	t.Run("opening", func(t *testing.T) {
		rt := newRuntime(t)
		pos := board.NewPosition()
		var plies []int
		r, err := replay(rt, pos, splitMoves("e2e4 e7e5,g1f3 b8c6 f1c4 g8f6 e1g1"), func(ply int, _ board.Move, _ engine.ConsistencyResult) {
			plies = append(plies, ply)
		})
		if err != nil {
			t.Fatal(err)
		}
		if r.Plies != 8 || len(plies) != 8 || plies[7] != 7 {
			t.Errorf("visited plies %v, result %+v", plies, r)
		}
		if r.Invalidations != 0 || r.LongestQuiet != 8 {
			t.Errorf("quiet opening invalidated: %+v", r)
		}
		if !pos.Has(board.WhiteKing, board.G1) {
			t.Errorf("castling not replayed: %s", pos.ToFEN())
		}
	})

	t.Run("threat appears", func(t *testing.T) {
		rt := newRuntime(t)
		pos, err := board.ParseFEN("r2q2k1/5pp1/5n2/7p/8/7P/5PP1/5RK1 b - - 0 20")
		if err != nil {
			t.Fatal(err)
		}
		r, err := replay(rt, pos, []string{"f6g4"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if r.ThreatFlips != 1 || r.Invalidations != 1 || r.RuleTriggers != 0 {
			t.Errorf("result %+v", r)
		}
		if st := rt.Stats(); st.MainGeneration != 2 || st.PawnGeneration != 2 {
			t.Errorf("generations after the flip: %+v", st)
		}
	})

	t.Run("fifty-move zone", func(t *testing.T) {
		rt := newRuntime(t)
		pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/R3K3 w - - 79 60")
		if err != nil {
			t.Fatal(err)
		}
		r, err := replay(rt, pos, splitMoves("a1a2 e8d8 a2a3 d8e8"), nil)
		if err != nil {
			t.Fatal(err)
		}
		// Clocks 79 and 80 are quiet, 81 to 83 each invalidate.
		if r.RuleTriggers != 3 || r.Invalidations != 3 || r.LongestQuiet != 2 {
			t.Errorf("result %+v", r)
		}
	})

	t.Run("illegal move", func(t *testing.T) {
		rt := newRuntime(t)
		if _, err := replay(rt, board.NewPosition(), []string{"e2e5"}, nil); err == nil {
			t.Errorf("illegal move accepted")
		}
		if _, err := replay(rt, board.NewPosition(), []string{"e2"}, nil); err == nil {
			t.Errorf("malformed move accepted")
		}
	})
}
