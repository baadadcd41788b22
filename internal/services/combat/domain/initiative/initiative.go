// Package initiative computes initiative scores and orders combatants.
package initiative

import (
	"github.com/louisbranch/shadowtrack/internal/services/combat/dice"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
)

// MaxDice caps initiative dice.
const MaxDice = 5

// Score is an actor's initiative base and dice count.
type Score struct {
	Base int `json:"base"`
	Dice int `json:"dice"`
}

// Of computes the initiative score for the actor's current perception mode.
//
//	meatspace: reaction + intuition, 1 die
//	astral:    2 x intuition, 2 dice
//	matrix:    intuition + data processing, 3 dice (4 in hot-sim)
//
// Flat modifiers are added afterwards; dice are clamped to [0, MaxDice] and
// forced to MaxDice when the edge boost is active.
func Of(a actor.Actor) Score {
	var s Score
	switch a.Initiative.Mode {
	case actor.ModeAstral:
		s = Score{Base: 2 * a.Attribute(actor.AttrIntuition), Dice: 2}
	case actor.ModeMatrix:
		s = Score{Base: a.Attribute(actor.AttrIntuition) + a.Attribute(actor.AttrDataProcessing), Dice: 3}
		if a.Initiative.HotSim {
			s.Dice = 4
		}
	case actor.ModeMeatspace, "":
		s = Score{Base: a.Attribute(actor.AttrReaction) + a.Attribute(actor.AttrIntuition), Dice: 1}
	}
	s.Base += a.Initiative.Modifier
	s.Dice = min(max(s.Dice+a.Initiative.DiceModifier, 0), MaxDice)
	if a.Initiative.EdgeBoost {
		s.Dice = MaxDice
	}
	return s
}

// Roll returns base plus the sum of the score's d6s.
func Roll(s Score, r dice.Roller) int {
	return s.Base + dice.D6(r, s.Dice)
}

// ValidScore floors an initiative score at zero.
func ValidScore(n int) int {
	return max(n, 0)
}

// Entry is one combatant to order.
type Entry struct {
	ID string
	// Actor is nil when the backing actor could not be loaded.
	Actor *actor.Actor
	// Score is nil when the combatant has not rolled.
	Score *int
}

// Compare returns a negative number when a goes before b. Ties after every
// attribute tie-break are settled by a fresh coin flip, so the result for
// fully tied pairs is not stable across calls.
func Compare(a, b Entry, r dice.Roller) int {
	if a.Actor == nil || b.Actor == nil {
		return 0
	}
	switch {
	case a.Score == nil && b.Score == nil:
		return 0
	case a.Score == nil:
		return 1
	case b.Score == nil:
		return -1
	}
	if d := *b.Score - *a.Score; d != 0 {
		return d
	}
	for _, attr := range []string{actor.AttrEdge, actor.AttrReaction, actor.AttrIntuition} {
		if d := b.Actor.Attribute(attr) - a.Actor.Attribute(attr); d != 0 {
			return d
		}
	}
	if dice.Coin(r) == 1 {
		return -1
	}
	return 1
}

// Order sorts entries and returns their ids. Insertion sort keeps the result
// ordered by score and tie-break attributes even though fully tied pairs
// compare randomly; combat rosters are small.
func Order(entries []Entry, r dice.Roller) []string {
	sorted := append([]Entry(nil), entries...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && Compare(sorted[j], sorted[j-1], r) < 0; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	ids := make([]string, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}
	return ids
}
