package phase

import (
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/armor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/damage"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/edge"
)

// Expect pins a command to the session position it was issued against.
// Nil fields are not checked.
type Expect struct {
	ExpectedRound *int `json:"expected_round,omitempty"`
	ExpectedTurn  *int `json:"expected_turn,omitempty"`
}

// At returns an Expect for the given round and turn.
func At(round, turn int) Expect {
	return Expect{ExpectedRound: intPtr(round), ExpectedTurn: intPtr(turn)}
}

// Stale reports whether s has moved past the expected position.
func (e Expect) Stale(s Session) bool {
	if e.ExpectedRound != nil && *e.ExpectedRound != s.Round {
		return true
	}
	return e.ExpectedTurn != nil && *e.ExpectedTurn != s.Turn
}

// Pinned reports whether any expectation was set.
func (e Expect) Pinned() bool {
	return e.ExpectedRound != nil || e.ExpectedTurn != nil
}

// CreatePayload creates a session.
type CreatePayload struct {
	Settings Settings `json:"settings"`
}

// TransitionPayload is shared by start, next_turn, next_round and end.
type TransitionPayload struct {
	Expect
}

// EnterActionPhasePayload re-enters the action phase. An empty CombatantID
// means the current combatant.
type EnterActionPhasePayload struct {
	Expect
	CombatantID string `json:"combatant_id,omitempty"`
}

// AddCombatantPayload adds an actor to the session.
type AddCombatantPayload struct {
	CombatantID      string `json:"combatant_id,omitempty"`
	ActorID          string `json:"actor_id"`
	PlayerControlled bool   `json:"player_controlled,omitempty"`
	Initiative       *int   `json:"initiative,omitempty"`
}

// CombatantPayload addresses one combatant.
type CombatantPayload struct {
	CombatantID string `json:"combatant_id"`
}

// RollInitiativePayload rolls for the listed combatants, or all unrolled
// combatants when the list is empty. Existing scores are kept unless Reroll.
type RollInitiativePayload struct {
	CombatantIDs []string `json:"combatant_ids,omitempty"`
	Reroll       bool     `json:"reroll,omitempty"`
}

// AdjustInitiativePayload shifts a score by Delta.
type AdjustInitiativePayload struct {
	CombatantID string `json:"combatant_id"`
	Delta       int    `json:"delta"`
}

// RecordAttackPayload marks that a combatant fired. Recoil defaults to 1.
type RecordAttackPayload struct {
	CombatantID string `json:"combatant_id"`
	Recoil      *int   `json:"recoil,omitempty"`
}

// ActorPayload addresses one actor.
type ActorPayload struct {
	ActorID string `json:"actor_id"`
}

// ApplyDamagePayload routes a hit through the damage pipeline.
type ApplyDamagePayload struct {
	ActorID string        `json:"actor_id"`
	Type    damage.Type   `json:"type"`
	Amount  int           `json:"amount"`
	AP      int           `json:"ap,omitempty"`
	Element armor.Element `json:"element,omitempty"`
	Soak    int           `json:"soak,omitempty"`
}

// HealPayload removes damage from one track.
type HealPayload struct {
	ActorID string `json:"actor_id"`
	Track   string `json:"track"`
	Amount  int    `json:"amount"`
}

// SpendEdgePayload spends edge.
type SpendEdgePayload struct {
	ActorID string `json:"actor_id"`
	Amount  int    `json:"amount"`
}

// TriggerPayload is the wire form of an edge trigger.
type TriggerPayload struct {
	Kind          edge.TriggerKind `json:"kind"`
	AttackRating  int              `json:"attack_rating,omitempty"`
	DefenseRating int              `json:"defense_rating,omitempty"`
	// DefenderID resolves DefenseRating from the defender's armor and body
	// when DefenseRating is zero.
	DefenderID string    `json:"defender_id,omitempty"`
	Side       edge.Side `json:"side,omitempty"`
	Attribute  string    `json:"attribute,omitempty"`
}

// GainEdgePayload asks for one edge.
type GainEdgePayload struct {
	ActorID string         `json:"actor_id"`
	Trigger TriggerPayload `json:"trigger"`
}

// EdgeBoostPayload buys an edge boost.
type EdgeBoostPayload struct {
	ActorID  string     `json:"actor_id"`
	Boost    edge.Boost `json:"boost"`
	TargetID string     `json:"target_id,omitempty"`
}

// actorRefs collects every actor id a payload can mention.
type actorRefs struct {
	ActorID  string `json:"actor_id"`
	TargetID string `json:"target_id"`
	Trigger  struct {
		DefenderID string `json:"defender_id"`
	} `json:"trigger"`
}
