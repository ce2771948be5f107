// Package dice provides the randomness abstraction for combat rolls.
//
// All combat math draws randomness through Source so that tests can
// substitute deterministic sequences and replay stays reproducible: rolls
// happen once, their outcomes are persisted as events, and replay never
// re-rolls.
package dice

import (
	"crypto/rand"
	"math/big"
)

// Source is the randomness provider for all combat rolls.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics if n <= 0 or if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// chanceResolution is the denominator used to resolve probability rolls.
const chanceResolution = 1_000_000

// Between returns a random int in [min, max] inclusive.
//
// Precondition: min <= max; src must be non-nil.
func Between(src Source, min, max int) int {
	if min == max {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Chance reports whether a roll under probability p succeeded.
//
// Precondition: src must be non-nil. p <= 0 never succeeds; p >= 1 always.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Intn(chanceResolution) < int(p*chanceResolution)
}

// WeightedIndex picks an index with probability proportional to its weight.
// Zero-weight entries are never picked.
//
// Precondition: at least one weight must be > 0; all weights >= 0.
// Postcondition: returns an index i with weights[i] > 0.
func WeightedIndex(src Source, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		panic("dice: WeightedIndex requires a positive total weight")
	}
	roll := src.Intn(total)
	for i, w := range weights {
		if roll < w {
			return i
		}
		roll -= w
	}
	// Unreachable: roll < total by construction.
	return len(weights) - 1
}

// Shuffle permutes xs in place using Fisher-Yates.
//
// Precondition: src must be non-nil.
func Shuffle[T any](src Source, xs []T) {
	for i := len(xs) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}
