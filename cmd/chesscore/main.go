// Command chesscore builds the engine caches from stored settings, optionally
// self-checks the attack tables, and replays a game ply by ply through the
// cache consistency monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logging"
	"github.com/hailam/chesscore/internal/storage"
)

var (
	fen        = flag.String("fen", board.StartFEN, "starting position")
	moves      = flag.String("moves", "", "moves to replay in coordinate notation, space or comma separated")
	hashMB     = flag.Int("hash", engine.DefaultHashMB, "main table size in MB")
	pawnHashMB = flag.Int("pawnhash", engine.DefaultPawnHashMB, "pawn table size in MB")
	buckets    = flag.Int("buckets", engine.DefaultBucketSlots, "main table slots per bucket")
	fifty      = flag.Int("fifty", engine.DefaultFiftyMoveThreshold, "half-move clock above which cached scores are dropped every ply")
	selfCheck  = flag.Bool("selfcheck", false, "rebuild the attack tables and verify every occupancy")
	perft      = flag.Int("perft", 0, "run perft to this depth on the final position")
	dbDir      = flag.String("db", "", "settings database directory (default: platform data dir)")
	noDB       = flag.Bool("nodb", false, "do not read or write the settings database")
	save       = flag.Bool("save", false, "store the effective settings")
	verbose    = flag.Bool("verbose", false, "show debug and hash diagnostics")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	var store *storage.Storage
	settings := storage.DefaultSettings()
	if !*noDB {
		var err error
		if store, err = storage.Open(*dbDir); err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		if settings, err = store.LoadSettings(); err != nil {
			log.Fatal(err)
		}
	}
	applyFlags(settings)

	params, err := settings.Parameters()
	if err != nil {
		log.Fatal(err)
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	sink := logging.Filter(logging.NewZerolog(zl), settings.LogMask)

	if *selfCheck {
		if err := verifyTables(sink); err != nil {
			log.Fatal(err)
		}
	}

	rt, err := engine.New(params, sink)
	if err != nil {
		log.Fatal(err)
	}

	pos, err := board.ParseFEN(*fen)
	if err != nil {
		log.Fatal(err)
	}

	p := message.NewPrinter(language.English)
	result, err := replay(rt, pos, splitMoves(*moves), func(ply int, m board.Move, res engine.ConsistencyResult) {
		if !res.Invalidated {
			return
		}
		p.Printf("ply %d %s: generation %d, threats %s, rule %v\n", ply, m, res.Generation, res.Corners, res.RuleTriggered)
	})
	if err != nil {
		log.Fatal(err)
	}

	printStats(p, rt.Stats(), result)

	if *perft > 0 {
		start := time.Now()
		nodes := pos.Perft(*perft)
		elapsed := time.Since(start)
		p.Printf("perft(%d) = %d nodes (%d n/s, %.3fs)\n", *perft, nodes,
			int(float64(nodes)/elapsed.Seconds()), elapsed.Seconds())
	}

	if store == nil {
		return
	}
	if *save {
		if err := store.SaveSettings(settings); err != nil {
			log.Fatal(err)
		}
		sink.Print(logging.SeverityInfo, "settings saved")
	}
	totals, err := store.RecordSession(result)
	if err != nil {
		log.Fatal(err)
	}
	p.Printf("all sessions: %d plies, %.1f invalidations per 100 plies\n", totals.Plies, totals.InvalidationRate())
}

// applyFlags overrides stored settings with the flags given on the command
// line.
func applyFlags(s *storage.Settings) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "hash":
			s.HashMB = *hashMB
		case "pawnhash":
			s.PawnHashMB = *pawnHashMB
		case "buckets":
			s.BucketSlots = *buckets
		case "fifty":
			s.FiftyMoveThreshold = *fifty
		}
	})
	if *verbose {
		s.LogMask = logging.SeverityAll
	}
}

func verifyTables(sink logging.Sink) error {
	start := time.Now()
	tables, err := board.BuildTables()
	if err != nil {
		return err
	}
	if err := tables.Verify(context.Background()); err != nil {
		return err
	}
	sink.Print(logging.SeverityInfo, fmt.Sprintf("attack tables verified in %s", time.Since(start).Round(time.Millisecond)))
	return nil
}

func printStats(p *message.Printer, st engine.Stats, r storage.SessionResult) {
	p.Printf("main table: %d entries (%s, %d per bucket), %d‰ full, hit rate %.1f%%, generation %d\n",
		st.MainEntries, humanize.IBytes(st.MainBytes), st.BucketSlots, st.HashFull, st.MainHitRate, st.MainGeneration)
	p.Printf("pawn table: %d entries (%s), hit rate %.1f%%, generation %d\n",
		st.PawnEntries, humanize.IBytes(st.PawnBytes), st.PawnHitRate, st.PawnGeneration)
	p.Printf("replay: %d plies, %d invalidations (%d threat flips, %d rule triggers), longest quiet run %d, %s\n",
		r.Plies, r.Invalidations, r.ThreatFlips, r.RuleTriggers, r.LongestQuiet, r.Duration.Round(time.Microsecond))
	if st.Threat.Corners != 0 {
		p.Printf("active threats: %s (since ply %d)\n", st.Threat.Corners, st.Threat.LastChangePly)
	}
}
