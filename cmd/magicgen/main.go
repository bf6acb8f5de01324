// Command magicgen searches for magic multipliers for the slider attack
// tables and prints them as Go arrays ready to paste into internal/board.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/bits"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
)

var errNotFound = errors.New("no magic found")

var (
	seed     = flag.Uint64("seed", 0x98F107A2, "random seed")
	maxTries = flag.Int("tries", 100_000_000, "candidates per square before giving up")
	timeout  = flag.Duration("timeout", time.Minute, "overall time limit")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	for _, pt := range []board.PieceType{board.Bishop, board.Rook} {
		start := time.Now()
		magics, err := searchAll(ctx, pt, *seed, *maxTries)
		if err != nil {
			log.Fatal(err)
		}
		printArray(pt, magics)
		log.Printf("%s magics found in %s", pt, time.Since(start).Round(time.Millisecond))
	}
}

// searchAll finds one multiplier per square, squares in parallel.
func searchAll(ctx context.Context, pt board.PieceType, seed uint64, tries int) ([64]uint64, error) {
	var magics [64]uint64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for sq := board.A1; sq <= board.H8; sq++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(sq)<<8|uint64(pt)))
			m, err := findMagic(ctx, pt, sq, rng, tries)
			if err != nil {
				return err
			}
			magics[sq] = m
			return nil
		})
	}
	return magics, g.Wait()
}

// findMagic tries sparse random multipliers until one maps every occupancy
// subset of the relevant mask without a destructive collision.
func findMagic(ctx context.Context, pt board.PieceType, sq board.Square, rng *rand.Rand, tries int) (uint64, error) {
	mask := board.RelevantMask(pt, sq)
	n := mask.PopCount()
	size := 1 << n

	occupancies := make([]board.Bitboard, size)
	attacks := make([]board.Bitboard, size)
	for i := range occupancies {
		occupancies[i] = board.OccupancySubset(i, mask)
		attacks[i] = board.SlidingAttacksSlow(pt, sq, occupancies[i])
	}

	used := make([]board.Bitboard, size)
	epoch := make([]int, size)
	for try := 1; try <= tries; try++ {
		if try%4096 == 1 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		magic := rng.Uint64() & rng.Uint64() & rng.Uint64()
		// Too few high bits in the product never spread the mask well.
		if bits.OnesCount64((uint64(mask)*magic)&0xFF00000000000000) < 6 {
			continue
		}

		ok := true
		for i, occ := range occupancies {
			idx := (uint64(occ) * magic) >> (64 - n)
			if epoch[idx] != try {
				epoch[idx] = try
				used[idx] = attacks[i]
			} else if used[idx] != attacks[i] {
				ok = false
				break
			}
		}
		if ok {
			return magic, nil
		}
	}
	return 0, fmt.Errorf("%w: %s on %s after %d tries", errNotFound, pt, sq, tries)
}

func printArray(pt board.PieceType, magics [64]uint64) {
	name := "bishopMagicNumbers"
	if pt == board.Rook {
		name = "rookMagicNumbers"
	}
	fmt.Fprintf(os.Stdout, "var %s = [64]uint64{\n", name)
	for i := 0; i < 64; i += 4 {
		fmt.Fprintf(os.Stdout, "\t0x%016x, 0x%016x, 0x%016x, 0x%016x,\n", magics[i], magics[i+1], magics[i+2], magics[i+3])
	}
	fmt.Fprintln(os.Stdout, "}")
}
