// Package action tracks the per-round major/minor/free action budget.
package action

import (
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
)

// ConvertCost is how many minor actions buy one major action.
const ConvertCost = 4

// Denial codes returned when a spend cannot be made.
const (
	DenialNone           Denial = ""
	DenialNoMajorActions Denial = "no_major_actions"
	DenialNoMinorActions Denial = "no_minor_actions"
	DenialNotEnoughMinor Denial = "not_enough_minor_actions"
)

// Denial explains why a budget change was refused.
type Denial string

// Reset returns a fresh budget for round: one major, one minor plus one per
// initiative die, unlimited free. A budget already initialised for round is
// returned unchanged with changed=false so spent actions survive a repeated
// reset.
func Reset(b actor.Actions, dice, round int) (next actor.Actions, changed bool) {
	if round > 0 && b.Round == round {
		return b, false
	}
	return actor.Actions{
		Major: 1,
		Minor: 1 + max(dice, 0),
		Free:  actor.Unlimited,
		Round: round,
	}, true
}

// SpendMajor uses one major action.
func SpendMajor(b actor.Actions) (actor.Actions, Denial) {
	if b.Major < 1 {
		return b, DenialNoMajorActions
	}
	b.Major--
	return b, DenialNone
}

// SpendMinor uses one minor action.
func SpendMinor(b actor.Actions) (actor.Actions, Denial) {
	if b.Minor < 1 {
		return b, DenialNoMinorActions
	}
	b.Minor--
	return b, DenialNone
}

// Convert trades ConvertCost minor actions for one extra major action.
func Convert(b actor.Actions) (actor.Actions, Denial) {
	if b.Minor < ConvertCost {
		return b, DenialNotEnoughMinor
	}
	b.Minor -= ConvertCost
	b.Major++
	return b, DenialNone
}

// Update writes every budget field of actorID.
func Update(actorID string, b actor.Actions) docstore.Update {
	return docstore.NewUpdate(docstore.ActorRef(actorID)).
		Set(actor.PathActionsMajor, b.Major).
		Set(actor.PathActionsMinor, b.Minor).
		Set(actor.PathActionsFree, b.Free).
		Set(actor.PathActionsRound, b.Round)
}
