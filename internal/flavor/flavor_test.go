package flavor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/grumblebean/brawl/internal/config"
	"github.com/grumblebean/brawl/internal/game/content"
)

type fixedSource struct{ n int }

func (f fixedSource) Intn(n int) int {
	if f.n >= n {
		return n - 1
	}
	return f.n
}

func testEnemy() *content.EnemyDef {
	return &content.EnemyDef{Type: "cave_rat", Name: "Cave Rat", Description: "a mangy tunnel rat"}
}

func TestLineDisabledUsesFallback(t *testing.T) {
	g := NewGenerator(config.FlavorConfig{Enabled: false}, fixedSource{n: 0}, zap.NewNop())

	line := g.Line(context.Background(), testEnemy(), "spawn")
	assert.Equal(t, fallbackLines["spawn"][0], line)
}

func TestLineUnknownMomentEmpty(t *testing.T) {
	g := NewGenerator(config.FlavorConfig{Enabled: false}, fixedSource{n: 0}, zap.NewNop())

	assert.Empty(t, g.Line(context.Background(), testEnemy(), "unknown_moment"))
}

func TestFallbackCoversEngineMoments(t *testing.T) {
	for _, moment := range []string{"spawn", "phase", "defeat"} {
		assert.NotEmpty(t, fallbackLines[moment], "moment %q has no fallback lines", moment)
	}
}

func TestFirstLineTruncatesMultiline(t *testing.T) {
	assert.Equal(t, "first", firstLine("first\nsecond\nthird"))
	assert.Equal(t, "only", firstLine("  only  "))
}

func TestDescribeMomentAlwaysNonEmpty(t *testing.T) {
	for _, moment := range []string{"spawn", "phase", "defeat", "something_else"} {
		assert.NotEmpty(t, describeMoment(moment))
	}
}
