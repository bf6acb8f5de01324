package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity reports a cache capacity that is zero, not a power
	// of two, or smaller than its bucket.
	ErrInvalidCapacity = errors.New("invalid cache capacity")

	// ErrInvalidParameter reports any other out-of-range parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Entry footprints used to turn megabytes into entry counts.
const (
	ttEntryBytes   = 16 // check word + data word
	pawnEntryBytes = 40 // check word + four payload words
)

const (
	DefaultHashMB             = 16
	DefaultPawnHashMB         = 1
	DefaultBucketSlots        = 4
	DefaultFiftyMoveThreshold = 80
)

// PawnWeights are the pawn structure terms, in centipawns, from white's
// point of view per pawn.
type PawnWeights struct {
	DoubledMg, DoubledEg   int
	IsolatedMg, IsolatedEg int
	BackwardMg, BackwardEg int

	// Passed is indexed by relative rank.
	Passed          [8]int
	PassedConnected int

	// ShelterMg is paid per pawn sheltering a castled king's wing.
	ShelterMg int
}

// EvaluationParameters is built once at startup and shared read-only by the
// caches, the consistency monitor and pawn evaluation.
type EvaluationParameters struct {
	MainEntries uint64 // power of two
	PawnEntries uint64 // power of two
	BucketSlots int    // power of two, at most MainEntries

	// FiftyMoveThreshold is the half-move clock above which every root ply
	// invalidates cached scores.
	FiftyMoveThreshold int

	Pawn PawnWeights
}

// DefaultPawnWeights returns the stock pawn structure weights.
func DefaultPawnWeights() PawnWeights {
	return PawnWeights{
		DoubledMg:       -15,
		DoubledEg:       -20,
		IsolatedMg:      -20,
		IsolatedEg:      -25,
		BackwardMg:      -15,
		BackwardEg:      -10,
		Passed:          [8]int{0, 10, 20, 40, 70, 120, 200, 0},
		PassedConnected: 20,
		ShelterMg:       10,
	}
}

// DefaultParameters returns parameters for the default cache sizes.
func DefaultParameters() EvaluationParameters {
	return ParametersForSize(DefaultHashMB, DefaultPawnHashMB)
}

// ParametersForSize sizes both caches from megabyte budgets, rounding entry
// counts down to powers of two. Other fields take their defaults.
func ParametersForSize(hashMB, pawnHashMB int) EvaluationParameters {
	entries := func(mb, size int) uint64 {
		if mb <= 0 {
			return 0
		}
		return roundDownToPowerOf2(uint64(mb) * 1024 * 1024 / uint64(size))
	}
	return EvaluationParameters{
		MainEntries:        entries(hashMB, ttEntryBytes),
		PawnEntries:        entries(pawnHashMB, pawnEntryBytes),
		BucketSlots:        DefaultBucketSlots,
		FiftyMoveThreshold: DefaultFiftyMoveThreshold,
		Pawn:               DefaultPawnWeights(),
	}
}

// Validate reports the first misconfiguration found.
func (p *EvaluationParameters) Validate() error {
	if !isPowerOfTwo(p.MainEntries) {
		return fmt.Errorf("%w: main table has %d entries, want a power of two", ErrInvalidCapacity, p.MainEntries)
	}
	if !isPowerOfTwo(p.PawnEntries) {
		return fmt.Errorf("%w: pawn table has %d entries, want a power of two", ErrInvalidCapacity, p.PawnEntries)
	}
	if p.BucketSlots <= 0 || !isPowerOfTwo(uint64(p.BucketSlots)) {
		return fmt.Errorf("%w: bucket slots %d, want a power of two", ErrInvalidParameter, p.BucketSlots)
	}
	if uint64(p.BucketSlots) > p.MainEntries {
		return fmt.Errorf("%w: bucket of %d slots exceeds %d entries", ErrInvalidCapacity, p.BucketSlots, p.MainEntries)
	}
	if p.FiftyMoveThreshold < 0 {
		return fmt.Errorf("%w: fifty-move threshold %d", ErrInvalidParameter, p.FiftyMoveThreshold)
	}
	return nil
}

// MainBytes and PawnBytes are the memory footprints of the two caches.
func (p *EvaluationParameters) MainBytes() uint64 { return p.MainEntries * ttEntryBytes }
func (p *EvaluationParameters) PawnBytes() uint64 { return p.PawnEntries * pawnEntryBytes }
