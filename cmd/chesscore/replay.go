package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// replay plays moves from pos, running the consistency check before every
// root position the way a search driver would between episodes. Each root
// also stores a shallow entry and its pawn structure, so invalidations have
// something to act on.
func replay(rt *engine.Runtime, pos *board.Position, moves []string, onPly func(ply int, m board.Move, res engine.ConsistencyResult)) (storage.SessionResult, error) {
	var result storage.SessionResult
	start := time.Now()
	quiet := 0

	visit := func(m board.Move) {
		res := rt.RunConsistencyCheck(pos)
		result.Plies++
		if res.Invalidated {
			result.Invalidations++
			result.LongestQuiet = max(result.LongestQuiet, quiet)
			quiet = 0
		} else {
			quiet++
		}
		if res.ThreatChanged {
			result.ThreatFlips++
		}
		if res.RuleTriggered {
			result.RuleTriggers++
		}

		pawns := rt.PawnStructure(pos)
		score := int(pawns.MgScore)
		if pos.SideToMove == board.Black {
			score = -score
		}
		if probe := rt.ProbeMain(pos.Hash, 1, -engine.Infinity, engine.Infinity); !probe.Usable {
			rt.StoreMain(pos.Hash, 1, engine.TTExact, score, board.NoMove)
		}

		if onPly != nil {
			onPly(res.Ply, m, res)
		}
	}

	visit(board.NoMove)
	for _, s := range moves {
		m, err := board.ParseMove(s, pos)
		if err != nil {
			return result, fmt.Errorf("ply %d: %w", pos.Ply(), err)
		}
		if !pos.GenerateLegalMoves().Contains(m) {
			return result, fmt.Errorf("ply %d: illegal move %s in %s", pos.Ply(), s, pos.ToFEN())
		}
		pos.MakeMove(m)
		visit(m)
	}

	result.LongestQuiet = max(result.LongestQuiet, quiet)
	result.Duration = time.Since(start)
	return result, nil
}

// splitMoves accepts moves separated by spaces or commas.
func splitMoves(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
}
