package encounter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/encounter"
)

func char(memberID int64) *actor.Character {
	return &actor.Character{MemberID: memberID}
}

func TestRefreshInitiativeOrder(t *testing.T) {
	c := &encounter.Context{
		Characters: []*actor.Character{char(300), char(100), char(200)},
	}
	c.RefreshInitiative(true)

	// Slice order is first-engagement order; the opponent always anchors
	// the rear.
	assert.Equal(t, []int64{300, 100, 200, actor.OpponentID}, c.Initiative)
	assert.Equal(t, 4, c.RoundSize)
	assert.Zero(t, c.TurnsTaken)
	assert.Equal(t, int64(300), c.CurrentActorID())
}

func TestRefreshInitiativeSkipsInactive(t *testing.T) {
	down := char(100)
	down.Defeated = true
	leaving := char(200)
	leaving.Leaving = true
	gone := char(300)
	gone.Out = true

	c := &encounter.Context{
		Characters: []*actor.Character{down, leaving, char(400), gone},
	}
	c.RefreshInitiative(true)

	assert.Equal(t, []int64{400, actor.OpponentID}, c.Initiative)
	assert.Equal(t, 2, c.RoundSize)
}

func TestRotateInitiativeConsumesRound(t *testing.T) {
	c := &encounter.Context{
		Characters: []*actor.Character{char(100), char(200)},
	}
	c.RefreshInitiative(true)
	require.Equal(t, 3, c.RoundSize)

	seen := make([]int64, 0, c.RoundSize)
	for !c.RoundExhausted() {
		seen = append(seen, c.CurrentActorID())
		c.RotateInitiative()
	}
	assert.Equal(t, []int64{100, 200, actor.OpponentID}, seen)

	// The queue is back at its starting arrangement after a full cycle.
	assert.Equal(t, int64(100), c.CurrentActorID())
}

func TestMidRoundJoinDoesNotReorder(t *testing.T) {
	c := &encounter.Context{
		Characters: []*actor.Character{char(100)},
	}
	c.RefreshInitiative(true)
	c.RotateInitiative()

	// A member joining mid-round leaves the running queue alone.
	c.Characters = append(c.Characters, char(200))
	c.RefreshInitiative(false)
	assert.Equal(t, []int64{actor.OpponentID, 100}, c.Initiative)
	assert.Equal(t, 2, c.RoundSize)
	assert.Equal(t, 1, c.TurnsTaken)

	// The next round boundary folds them in.
	c.RefreshInitiative(true)
	assert.Equal(t, []int64{100, 200, actor.OpponentID}, c.Initiative)
	assert.Equal(t, 3, c.RoundSize)
}

func TestPartySizeFloorsAtOne(t *testing.T) {
	down := char(100)
	down.Defeated = true
	c := &encounter.Context{Characters: []*actor.Character{down}}
	assert.Equal(t, 1, c.PartySize())
	assert.True(t, c.AllCharactersIncapacitated())
}

func TestActorLookup(t *testing.T) {
	a := char(100)
	opp := &actor.Opponent{}
	opp.ID = actor.OpponentID
	c := &encounter.Context{
		Characters: []*actor.Character{a},
		Opponent:   opp,
	}

	assert.Same(t, &a.Actor, c.ActorByID(100))
	assert.Same(t, &opp.Actor, c.ActorByID(actor.OpponentID))
	assert.Nil(t, c.ActorByID(999))
	assert.Same(t, a, c.CharacterByID(100))
	assert.Nil(t, c.CharacterByID(999))
}

func TestLivingOppositionEmptyWhenDefeated(t *testing.T) {
	opp := &actor.Opponent{}
	c := &encounter.Context{
		Characters: []*actor.Character{char(100)},
		Opponent:   opp,
	}
	assert.Len(t, c.LivingOpposition(), 1)

	opp.Defeated = true
	assert.Empty(t, c.LivingOpposition())
}
