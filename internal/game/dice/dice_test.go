package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/grumblebean/brawl/internal/game/dice"
)

// seqSource replays a fixed sequence of roll results, reducing each value
// modulo n so scripted values never violate the Intn contract.
type seqSource struct {
	vals []int
	pos  int
}

func (s *seqSource) Intn(n int) int {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	return v % n
}

func TestBetweenBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		min := rapid.IntRange(-100, 100).Draw(t, "min")
		max := rapid.IntRange(min, min+200).Draw(t, "max")
		roll := rapid.IntRange(0, 1<<30).Draw(t, "roll")

		v := dice.Between(&seqSource{vals: []int{roll}}, min, max)
		assert.GreaterOrEqual(t, v, min)
		assert.LessOrEqual(t, v, max)
	})
}

func TestBetweenDegenerate(t *testing.T) {
	// min == max must not touch the source at all.
	assert.Equal(t, 7, dice.Between(nil, 7, 7))
}

func TestChanceExtremes(t *testing.T) {
	src := &seqSource{vals: []int{999_999}}
	assert.False(t, dice.Chance(src, 0))
	assert.False(t, dice.Chance(src, -0.5))
	assert.True(t, dice.Chance(src, 1))
	assert.True(t, dice.Chance(src, 1.5))
}

func TestChanceThreshold(t *testing.T) {
	// A roll just under the scaled probability succeeds, at it fails.
	assert.True(t, dice.Chance(&seqSource{vals: []int{249_999}}, 0.25))
	assert.False(t, dice.Chance(&seqSource{vals: []int{250_000}}, 0.25))
}

func TestWeightedIndexSkipsZeroWeights(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		weights := rapid.SliceOfN(rapid.IntRange(0, 20), 1, 8).Draw(t, "weights")
		total := 0
		for _, w := range weights {
			total += w
		}
		if total == 0 {
			weights[0] = 1
		}
		roll := rapid.IntRange(0, 1<<30).Draw(t, "roll")

		i := dice.WeightedIndex(&seqSource{vals: []int{roll}}, weights)
		assert.Greater(t, weights[i], 0)
	})
}

func TestWeightedIndexProportional(t *testing.T) {
	weights := []int{0, 3, 7}
	assert.Equal(t, 1, dice.WeightedIndex(&seqSource{vals: []int{0}}, weights))
	assert.Equal(t, 1, dice.WeightedIndex(&seqSource{vals: []int{2}}, weights))
	assert.Equal(t, 2, dice.WeightedIndex(&seqSource{vals: []int{3}}, weights))
	assert.Equal(t, 2, dice.WeightedIndex(&seqSource{vals: []int{9}}, weights))
}

func TestWeightedIndexPanicsOnZeroTotal(t *testing.T) {
	assert.Panics(t, func() {
		dice.WeightedIndex(&seqSource{}, []int{0, 0})
	})
}

func TestShuffleIsPermutation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xs := rapid.SliceOfN(rapid.IntRange(0, 50), 0, 12).Draw(t, "xs")
		rolls := rapid.SliceOfN(rapid.IntRange(0, 1<<30), 1, 16).Draw(t, "rolls")

		orig := make([]int, len(xs))
		copy(orig, xs)
		dice.Shuffle(&seqSource{vals: rolls}, xs)

		assert.ElementsMatch(t, orig, xs)
	})
}

func TestCryptoSourceRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 100; i++ {
		v := src.Intn(6)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 6)
	}
}

func TestCryptoSourcePanicsOnBadN(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestRollerDelegates(t *testing.T) {
	r := dice.NewLoggedRoller(&seqSource{vals: []int{4}}, zaptest.NewLogger(t))
	assert.Equal(t, 5, r.Between(1, 10))
	assert.Equal(t, 0, r.WeightedIndex([]int{1}))
	assert.True(t, r.Chance(1))
}
