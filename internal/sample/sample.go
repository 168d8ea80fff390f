// Package sample generates synthetic rosters for demos, smoke tests and
// load checks against the assignment API.
package sample

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/roster/internal/domain/pool"
)

// Generation constants.
const (
	defaultCount    = 20
	defaultTopTier  = 16
	tiersEvery      = 3
	minTier         = 1
	baseTrophies    = 5000
	trophyStep      = 10
	trophyJitter    = 40
	levelsPerTier   = 5
	levelJitter     = 10
	tagLength       = 9
	defaultSeedWord = 0x5eed
)

var heroNames = []string{"King", "Queen", "Warden", "Champion"}

type settings struct {
	topTier int
	seed    uint64
	heroes  bool
}

// Option configures generation.
type Option func(*settings)

// WithTopTier sets the tier of the first three candidates.
func WithTopTier(tier int) Option {
	return func(s *settings) {
		if tier >= minTier {
			s.topTier = tier
		}
	}
}

// WithSeed makes the output reproducible for a given seed.
func WithSeed(seed uint64) Option {
	return func(s *settings) { s.seed = seed }
}

// WithoutHeroes omits sub attributes from every record.
func WithoutHeroes() Option {
	return func(s *settings) { s.heroes = false }
}

// Roster returns n candidate records whose tier drops by one every three
// records. Non-positive n yields the default of 20.
func Roster(n int, opts ...Option) []pool.Record {
	cfg := settings{topTier: defaultTopTier, seed: defaultSeedWord, heroes: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if n <= 0 {
		n = defaultCount
	}

	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], cfg.seed)
	src := rand.NewChaCha8(key)
	rng := rand.New(src)

	records := make([]pool.Record, n)
	for i := range records {
		tier := max(cfg.topTier-i/tiersEvery, minTier)
		rec := pool.Record{
			"tag":      tag(src),
			"name":     fmt.Sprintf("player-%02d", i+1),
			"th":       tier,
			"trophies": max(baseTrophies-i*trophyStep+rng.IntN(trophyJitter), 0),
		}
		if cfg.heroes {
			heroes := make([]any, len(heroNames))
			for h, name := range heroNames {
				heroes[h] = map[string]any{
					"name":  name,
					"level": tier*levelsPerTier + rng.IntN(levelJitter),
				}
			}
			rec["heroes"] = heroes
		}
		records[i] = rec
	}
	return records
}

// tag derives a clan-style tag from a random UUID drawn from src.
func tag(src *rand.ChaCha8) string {
	id, err := uuid.NewRandomFromReader(src)
	if err != nil {
		id = uuid.New()
	}
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return "#" + hex[:tagLength]
}
