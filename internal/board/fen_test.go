package board

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		KiwipeteFEN,
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/8/8/8/4Pp2/8/8/R3K2R b KQkq e3 0 1",
		"6k1/5ppp/8/8/6n1/7P/5PP1/q4RK1 w - - 81 120",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Errorf("ParseFEN(%q): %v", fen, err)
			continue
		}
		if got := pos.ToFEN(); got != fen {
			t.Errorf("ToFEN() = %q, want %q", got, fen)
		}
		if pos.Hash != ComputeKey(pos) {
			t.Errorf("%q: key not initialized", fen)
		}
	}
}

func TestParseFENRejects(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkx - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQ1BNR w kq - 0 1", // no white king
		"P3k3/8/8/8/8/8/8/4K3 w - - 0 1",                         // pawn on the last rank
		"4k3/8/8/8/8/8/8/4K2r b - - 0 1",                         // white king in check, black to move
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("ParseFEN(%q) = %v, want ErrInvalidPosition", fen, err)
		}
	}
}

func TestPly(t *testing.T) {
	pos := NewPosition()
	if pos.Ply() != 0 {
		t.Errorf("start ply = %d", pos.Ply())
	}
	for i, s := range []string{"e2e4", "e7e5", "g1f3"} {
		m, err := ParseMove(s, pos)
		if err != nil {
			t.Fatal(err)
		}
		pos.MakeMove(m)
		if pos.Ply() != i+1 {
			t.Errorf("after %s ply = %d, want %d", s, pos.Ply(), i+1)
		}
	}
}

func TestParseMoveFlags(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/4Pp2/8/1p6/R3K2R b KQkq e3 0 1")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		s    string
		flag uint16
	}{
		{"e8g8", FlagCastling},
		{"e8c8", FlagCastling},
		{"f4e3", FlagEnPassant},
		{"b2b1q", FlagPromotion},
		{"a8a1", FlagNormal},
	}
	for _, tc := range tests {
		m, err := ParseMove(tc.s, pos)
		if err != nil {
			t.Errorf("ParseMove(%s): %v", tc.s, err)
			continue
		}
		if m.Flag() != tc.flag || m.String() != tc.s {
			t.Errorf("ParseMove(%s) = %s flag %#x, want flag %#x", tc.s, m, m.Flag(), tc.flag)
		}
		if !pos.GenerateLegalMoves().Contains(m) {
			t.Errorf("%s not generated", tc.s)
		}
	}
}
