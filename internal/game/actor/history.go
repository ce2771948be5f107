package actor

import "github.com/grumblebean/brawl/internal/game/event"

// History is the ordered event record of one encounter. Slices are sorted
// ascending by event id; only synchronized events belong here.
type History struct {
	Encounter []*event.EncounterEvent
	Combat    []*event.CombatEvent
	Status    []*event.StatusEffectEvent
}

// CurrentRound returns the encounter's round counter: the number of
// NewRound events recorded so far. 0 means combat has not started.
func (h *History) CurrentRound() int {
	n := 0
	for _, e := range h.Encounter {
		if e.Type == event.EncounterNewRound {
			n++
		}
	}
	return n
}

// RoundOf returns the round an event id falls in: the number of NewRound
// events with a smaller id. Events before the first round are round 0.
func (h *History) RoundOf(id int64) int {
	n := 0
	for _, e := range h.Encounter {
		if e.Type == event.EncounterNewRound && e.ID < id {
			n++
		}
	}
	return n
}

// LastNewRoundID returns the id of the most recent NewRound event, or 0.
func (h *History) LastNewRoundID() int64 {
	var id int64
	for _, e := range h.Encounter {
		if e.Type == event.EncounterNewRound {
			id = e.ID
		}
	}
	return id
}

// LastTurnEndID returns the id of the most recent end-of-turn marker,
// member or enemy, or 0 when no turn has completed yet.
func (h *History) LastTurnEndID() int64 {
	var id int64
	for _, e := range h.Combat {
		if e.Type == event.CombatMemberEndTurn || e.Type == event.CombatEnemyEndTurn {
			id = e.ID
		}
	}
	return id
}

// LastPhaseChangeID returns the id of the most recent EnemyPhaseChange
// event, or 0 when the opponent is still in its initial form.
func (h *History) LastPhaseChangeID() int64 {
	var id int64
	for _, e := range h.Encounter {
		if e.Type == event.EncounterEnemyPhaseChange {
			id = e.ID
		}
	}
	return id
}

// PhaseCount returns the number of phase transitions recorded.
func (h *History) PhaseCount() int {
	n := 0
	for _, e := range h.Encounter {
		if e.Type == event.EncounterEnemyPhaseChange {
			n++
		}
	}
	return n
}

// Ended reports whether an End event has been recorded.
func (h *History) Ended() bool {
	for _, e := range h.Encounter {
		if e.Type == event.EncounterEnd {
			return true
		}
	}
	return false
}

// Participants returns the member ids with a MemberEngage event, in order
// of first engagement. This ordering is the canonical initiative baseline.
func (h *History) Participants() []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, e := range h.Encounter {
		if e.Type == event.EncounterMemberEngage && !seen[e.MemberID] {
			seen[e.MemberID] = true
			out = append(out, e.MemberID)
		}
	}
	return out
}

// LastEventID returns the highest event id across all three streams.
func (h *History) LastEventID() int64 {
	var max int64
	if n := len(h.Encounter); n > 0 && h.Encounter[n-1].ID > max {
		max = h.Encounter[n-1].ID
	}
	if n := len(h.Combat); n > 0 && h.Combat[n-1].ID > max {
		max = h.Combat[n-1].ID
	}
	if n := len(h.Status); n > 0 && h.Status[n-1].ID > max {
		max = h.Status[n-1].ID
	}
	return max
}

// Append adds a synchronized event to the matching stream, preserving
// ascending id order for bus-delivered events.
//
// Precondition: ev must be synchronized and belong to this encounter.
func (h *History) Append(ev event.Event) {
	switch e := ev.(type) {
	case *event.EncounterEvent:
		h.Encounter = append(h.Encounter, e)
	case *event.CombatEvent:
		h.Combat = append(h.Combat, e)
	case *event.StatusEffectEvent:
		h.Status = append(h.Status, e)
	}
}

// Clone returns a shallow copy with independent slices, so a loaded context
// can keep its own append point.
func (h *History) Clone() *History {
	c := &History{
		Encounter: make([]*event.EncounterEvent, len(h.Encounter)),
		Combat:    make([]*event.CombatEvent, len(h.Combat)),
		Status:    make([]*event.StatusEffectEvent, len(h.Status)),
	}
	copy(c.Encounter, h.Encounter)
	copy(c.Combat, h.Combat)
	copy(c.Status, h.Status)
	return c
}
