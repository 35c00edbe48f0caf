// Package random provides seed generation and per-run random sources.
//
// A battle run owns exactly one *rand.Rand built by New; recording the seed
// is enough to replay the run.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
)

// NewSeed returns a positive seed drawn from the operating system's
// entropy source. Zero is never returned since it means "pick one".
func NewSeed() (int64, error) {
	var buf [8]byte
	for {
		if _, err := crand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("read random seed: %w", err)
		}
		if seed := int64(binary.BigEndian.Uint64(buf[:]) & math.MaxInt64); seed != 0 {
			return seed, nil
		}
	}
}

// ResolveSeed keeps an explicit seed and replaces zero with NewSeed.
func ResolveSeed(seed int64) (int64, error) {
	if seed == 0 {
		return NewSeed()
	}
	return seed, nil
}

// New returns the generator for a run seeded with seed.
func New(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation rolls, not secrets
}
