package effects

import (
	"fmt"
	"math"

	"github.com/grumblebean/brawl/internal/game/actor"
	"github.com/grumblebean/brawl/internal/game/content"
)

// blindMissChance is the per-attack miss probability while blinded.
const blindMissChance = 0.5

func builtinHandlers() []Handler {
	return []Handler{
		tickDamageHandler{typ: content.StatusBleed, verb: "bleeds"},
		tickDamageHandler{typ: content.StatusPoison, verb: "suffers poison"},
		regenerationHandler{},
		blindHandler{},
		inspiredHandler{},
		protectionHandler{},
		stunHandler{},
		deathProtectionHandler{},
		rageQuitHandler{},
		cleanseHandler{},
	}
}

// tickDamageHandler serves effects that deal their application value as
// flat damage each time their consume trigger fires.
type tickDamageHandler struct {
	typ  string
	verb string
}

func (h tickDamageHandler) Type() string { return h.typ }

func (h tickDamageHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	dmg := int(math.Round(ae.Applied.Value))
	if dmg < 1 {
		dmg = 1
	}
	return Outcome{
		Modifier: 1,
		Damage:   dmg,
		Info:     []string{fmt.Sprintf("%s %s for %d", tc.Holder.Name, h.verb, dmg)},
	}, nil
}

type regenerationHandler struct{}

func (regenerationHandler) Type() string { return content.StatusRegeneration }

func (regenerationHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	heal := int(math.Round(ae.Applied.Value))
	if heal < 1 {
		heal = 1
	}
	return Outcome{
		Modifier: 1,
		Heal:     heal,
		Info:     []string{fmt.Sprintf("%s regenerates %d", tc.Holder.Name, heal)},
	}, nil
}

type blindHandler struct{}

func (blindHandler) Type() string { return content.StatusBlind }

func (blindHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	out := Outcome{Modifier: 1}
	if tc.Roller.Chance(blindMissChance) {
		out.Flags |= FlagMiss
		out.Info = append(out.Info, fmt.Sprintf("%s swings blind and misses", tc.Holder.Name))
	}
	return out, nil
}

type inspiredHandler struct{}

func (inspiredHandler) Type() string { return content.StatusInspired }

func (inspiredHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	return Outcome{Modifier: 1 + ae.Applied.Value}, nil
}

type protectionHandler struct{}

func (protectionHandler) Type() string { return content.StatusProtection }

func (protectionHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	reduction := ae.Applied.Value
	if reduction < 0 {
		reduction = 0
	}
	if reduction > 1 {
		reduction = 1
	}
	return Outcome{
		Modifier: 1 - reduction,
		Info:     []string{fmt.Sprintf("%s is protected", tc.Holder.Name)},
	}, nil
}

type stunHandler struct{}

func (stunHandler) Type() string { return content.StatusStun }

func (stunHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	return Outcome{
		Modifier: 1,
		Flags:    FlagSkipTurn,
		Info:     []string{fmt.Sprintf("%s is stunned and loses their turn", tc.Holder.Name)},
	}, nil
}

type deathProtectionHandler struct{}

func (deathProtectionHandler) Type() string { return content.StatusDeathProtection }

func (deathProtectionHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	return Outcome{
		Modifier: 1,
		Flags:    FlagPreventDeath,
		Info:     []string{fmt.Sprintf("%s refuses to die", tc.Holder.Name)},
	}, nil
}

type rageQuitHandler struct{}

func (rageQuitHandler) Type() string { return content.StatusRageQuit }

func (rageQuitHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	// The encounter abort itself keys off the recorded status stack, so a
	// reloaded engine reaches the same verdict. The handler only narrates.
	return Outcome{
		Modifier: 1,
		Info:     []string{fmt.Sprintf("%s flips the table and storms out", tc.Holder.Name)},
	}, nil
}

// cleanseHandler exists so a cleanse arriving as a status application has a
// registered handler; the actual removal pass is Pipeline.Cleanse.
type cleanseHandler struct{}

func (cleanseHandler) Type() string { return content.StatusCleanse }

func (cleanseHandler) Handle(tc TriggerContext, ae *actor.ActiveStatusEffect) (Outcome, error) {
	return Outcome{Modifier: 1}, nil
}
