// Package dice rolls polyhedral dice from an explicit random source.
//
// Every roll takes its randomness from a caller-owned *rand.Rand, never from
// the global source, so a battle seeded once replays exactly.
package dice

import "math/rand"

// Sum rolls count dice with the given sides and returns their total. A nil
// source or a non-positive count or sides rolls nothing.
func Sum(rng *rand.Rand, count, sides int) int {
	if rng == nil || count <= 0 || sides <= 0 {
		return 0
	}
	total := 0
	for range count {
		total += rng.Intn(sides) + 1
	}
	return total
}

// TwoD6 rolls the 2d6 used by initiative, to-hit and morale checks.
func TwoD6(rng *rand.Rand) int {
	return Sum(rng, 2, 6)
}
