package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/logging"
)

// Storage keys
const (
	keySettings    = "settings"
	keyStats       = "stats"
	keyFirstLaunch = "first_launch"
)

// Settings is the persisted, user-facing form of the engine configuration.
type Settings struct {
	HashMB             int              `json:"hash_mb"`
	PawnHashMB         int              `json:"pawn_hash_mb"`
	BucketSlots        int              `json:"bucket_slots"`
	FiftyMoveThreshold int              `json:"fifty_move_threshold"`
	LogMask            logging.Severity `json:"log_mask"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// DefaultSettings returns the settings matching engine.DefaultParameters.
func DefaultSettings() *Settings {
	return &Settings{
		HashMB:             engine.DefaultHashMB,
		PawnHashMB:         engine.DefaultPawnHashMB,
		BucketSlots:        engine.DefaultBucketSlots,
		FiftyMoveThreshold: engine.DefaultFiftyMoveThreshold,
		LogMask:            logging.SeverityInfo | logging.SeverityWarn | logging.SeverityError,
	}
}

// Parameters converts s into validated engine parameters.
func (s *Settings) Parameters() (engine.EvaluationParameters, error) {
	p := engine.ParametersForSize(s.HashMB, s.PawnHashMB)
	p.BucketSlots = s.BucketSlots
	p.FiftyMoveThreshold = s.FiftyMoveThreshold
	if err := p.Validate(); err != nil {
		return engine.EvaluationParameters{}, fmt.Errorf("settings: %w", err)
	}
	return p, nil
}

// SessionStats accumulates what replayed games did to the caches.
type SessionStats struct {
	Sessions      int           `json:"sessions"`
	Plies         int           `json:"plies"`
	Invalidations int           `json:"invalidations"`
	ThreatFlips   int           `json:"threat_flips"`
	RuleTriggers  int           `json:"rule_triggers"`
	LongestQuiet  int           `json:"longest_quiet"` // most consecutive plies without invalidation
	TotalTime     time.Duration `json:"total_time"`
}

// SessionResult summarizes one replay.
type SessionResult struct {
	Plies         int
	Invalidations int
	ThreatFlips   int
	RuleTriggers  int
	LongestQuiet  int
	Duration      time.Duration
}

// InvalidationRate returns invalidations per hundred plies.
func (s *SessionStats) InvalidationRate() float64 {
	if s.Plies == 0 {
		return 0
	}
	return float64(s.Invalidations) / float64(s.Plies) * 100
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens the database in dir, or in the platform data directory when
// dir is empty.
func Open(dir string) (*Storage, error) {
	if dir == "" {
		var err error
		if dir, err = GetDatabaseDir(); err != nil {
			return nil, err
		}
	}
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a database that lives only as long as the Storage.
func OpenInMemory() (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Storage, error) {
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsFirstLaunch returns true if no settings were ever saved.
func (s *Storage) IsFirstLaunch() (bool, error) {
	firstLaunch := true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, err
}

// SaveSettings stores s and marks the first launch complete.
func (s *Storage) SaveSettings(settings *Settings) error {
	settings.UpdatedAt = time.Now()

	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keySettings), data); err != nil {
			return err
		}
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadSettings loads the settings, returning defaults if none are stored.
// Stored fields override the defaults one by one.
func (s *Storage) LoadSettings() (*Settings, error) {
	settings := DefaultSettings()
	if err := s.get(keySettings, settings); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// LoadStats loads session statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*SessionStats, error) {
	stats := &SessionStats{}
	if err := s.get(keyStats, stats); err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

// RecordSession adds one replay to the stored statistics.
func (s *Storage) RecordSession(result SessionResult) (*SessionStats, error) {
	stats, err := s.LoadStats()
	if err != nil {
		return nil, err
	}

	stats.Sessions++
	stats.Plies += result.Plies
	stats.Invalidations += result.Invalidations
	stats.ThreatFlips += result.ThreatFlips
	stats.RuleTriggers += result.RuleTriggers
	stats.TotalTime += result.Duration
	stats.LongestQuiet = max(stats.LongestQuiet, result.LongestQuiet)

	data, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
	if err != nil {
		return nil, fmt.Errorf("save stats: %w", err)
	}
	return stats, nil
}

// get decodes the JSON value of key into v, leaving v untouched when the
// key is absent.
func (s *Storage) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}
