package engine

import "github.com/hailam/chesscore/internal/board"

// Wing files: a-c for the queen side, f-h for the king side.
var wingFiles = [2]board.Bitboard{
	KingSide:  board.FileF | board.FileG | board.FileH,
	QueenSide: board.FileA | board.FileB | board.FileC,
}

// shelterRanks are the second and third ranks of each color.
var shelterRanks = [2]board.Bitboard{
	board.White: board.Rank2 | board.Rank3,
	board.Black: board.Rank7 | board.Rank6,
}

func adjacentFiles(file int) board.Bitboard {
	var adj board.Bitboard
	if file > 0 {
		adj |= board.FileMask[file-1]
	}
	if file < 7 {
		adj |= board.FileMask[file+1]
	}
	return adj
}

// frontSpan returns the squares ahead of sq on its file and both adjacent
// files, from c's point of view.
func frontSpan(sq board.Square, c board.Color) board.Bitboard {
	var ahead board.Bitboard
	if c == board.White {
		ahead = board.SquareBB(sq).North().NorthFill()
	} else {
		ahead = board.SquareBB(sq).South().SouthFill()
	}
	return ahead | ahead.East() | ahead.West()
}

// EvaluatePawns computes the pawn structure terms of pos. The result depends
// on the pawns alone, so it can be cached under the pawn key.
func EvaluatePawns(pos *board.Position, params *EvaluationParameters) PawnEntry {
	w := &params.Pawn
	e := PawnEntry{Key: pos.PawnKey}

	allPawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	e.Open = ^allPawns.FileSet()

	var mg, eg int
	for color := board.White; color <= board.Black; color++ {
		sign := 1
		if color == board.Black {
			sign = -1
		}

		own := pos.Pieces[color][board.Pawn]
		enemy := pos.Pieces[color.Other()][board.Pawn]
		e.HalfOpen[color] = ^own.FileSet()

		for file := 0; file < 8; file++ {
			onFile := own & board.FileMask[file]
			if onFile == 0 {
				continue
			}
			if onFile.PopCount() > 1 {
				e.Doubled[color] |= 1 << file
				mg += sign * w.DoubledMg
				eg += sign * w.DoubledEg
			}
			if own&adjacentFiles(file) == 0 {
				e.Isolated[color] |= 1 << file
				mg += sign * w.IsolatedMg * onFile.PopCount()
				eg += sign * w.IsolatedEg * onFile.PopCount()
			}
		}

		for wing := KingSide; wing <= QueenSide; wing++ {
			e.Shelter[color][wing] = int8((own & wingFiles[wing] & shelterRanks[color]).PopCount())
		}

		e.Passed[color] = passedPawns(own, enemy, color)

		pawns := own
		for pawns != 0 {
			sq := pawns.PopLSB()

			if e.Passed[color].IsSet(sq) {
				bonus := w.Passed[sq.RelativeRank(color)]
				if hasConnectedPasser(e.Passed[color], sq) {
					bonus += w.PassedConnected
				}
				mg += sign * bonus / 2
				eg += sign * bonus
			}

			if isBackward(sq, color, own, enemy) {
				mg += sign * w.BackwardMg
				eg += sign * w.BackwardEg
			}
		}
	}

	e.MgScore = int16(clamp(mg, -Infinity, Infinity))
	e.EgScore = int16(clamp(eg, -Infinity, Infinity))
	return e
}

// passedPawns returns the pawns of own with no enemy pawn ahead on their
// own or an adjacent file.
func passedPawns(own, enemy board.Bitboard, c board.Color) board.Bitboard {
	var passed board.Bitboard
	for own != 0 {
		sq := own.PopLSB()
		if frontSpan(sq, c)&enemy == 0 {
			passed |= board.SquareBB(sq)
		}
	}
	return passed
}

// hasConnectedPasser reports whether a passed pawn on an adjacent file
// stands at most one rank away from sq.
func hasConnectedPasser(passed board.Bitboard, sq board.Square) bool {
	neighbours := passed & adjacentFiles(sq.File())
	for neighbours != 0 {
		if abs(neighbours.PopLSB().Rank()-sq.Rank()) <= 1 {
			return true
		}
	}
	return false
}

// isBackward: no own pawn on an adjacent file is level with or behind sq,
// and an enemy pawn guards the stop square.
func isBackward(sq board.Square, c board.Color, own, enemy board.Bitboard) bool {
	adj := own & adjacentFiles(sq.File())
	if adj == 0 || sq.RelativeRank(c) <= 1 {
		return false
	}

	var support board.Bitboard
	for r := 0; r < 8; r++ {
		if c == board.White && r <= sq.Rank() || c == board.Black && r >= sq.Rank() {
			support |= board.RankMask[r]
		}
	}
	if adj&support != 0 {
		return false
	}

	stop := sq + 8
	if c == board.Black {
		stop = sq - 8
	}
	return board.PawnAttacks(stop, c)&enemy != 0
}
