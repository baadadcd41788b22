package phase

import "github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"

// Outcome record types.
const (
	RecordCombatCreated      command.RecordType = "combat_created"
	RecordCombatStarted      command.RecordType = "combat_started"
	RecordCombatEnded        command.RecordType = "combat_ended"
	RecordRoundStarted       command.RecordType = "round_started"
	RecordRoundEnded         command.RecordType = "round_ended"
	RecordTurnStarted        command.RecordType = "turn_started"
	RecordCombatantAdded     command.RecordType = "combatant_added"
	RecordCombatantRemoved   command.RecordType = "combatant_removed"
	RecordInitiativeRolled   command.RecordType = "initiative_rolled"
	RecordInitiativeAdjusted command.RecordType = "initiative_adjusted"
	RecordAttackRecorded     command.RecordType = "attack_recorded"
	RecordDefenseRecorded    command.RecordType = "defense_recorded"
	RecordDamageApplied      command.RecordType = "damage_applied"
	RecordHealed             command.RecordType = "healed"
	RecordStatusChanged      command.RecordType = "status_changed"
	RecordEdgeSpent          command.RecordType = "edge_spent"
	RecordEdgeGained         command.RecordType = "edge_gained"
	RecordEdgeDenied         command.RecordType = "edge_denied"
	RecordEdgeBoosted        command.RecordType = "edge_boosted"
	RecordActionsChanged     command.RecordType = "actions_changed"
	RecordRunReset           command.RecordType = "run_reset"
	RecordAlreadyApplied     command.RecordType = "already_applied"
)

// Rejection codes.
const (
	RejectionCombatExists       = "COMBAT_ALREADY_EXISTS"
	RejectionCombatNotFound     = "COMBAT_NOT_FOUND"
	RejectionCombatAlreadyStart = "COMBAT_ALREADY_STARTED"
	RejectionCombatNotStarted   = "COMBAT_NOT_STARTED"
	RejectionCombatEnded        = "COMBAT_ENDED"
	RejectionNoCombatants       = "COMBAT_NO_COMBATANTS"
	RejectionCombatantNotFound  = "COMBATANT_NOT_FOUND"
	RejectionCombatantExists    = "COMBATANT_ALREADY_PRESENT"
	RejectionCombatantNotRolled = "COMBATANT_NOT_ROLLED"
	RejectionActorNotFound      = "ACTOR_NOT_FOUND"
	RejectionTargetNotFound     = "TARGET_NOT_FOUND"
	RejectionNoMajorActions     = "NO_MAJOR_ACTIONS"
	RejectionNoMinorActions     = "NO_MINOR_ACTIONS"
	RejectionNotEnoughMinor     = "NOT_ENOUGH_MINOR_ACTIONS"
	RejectionNoEdge             = "NO_EDGE"
	RejectionInsufficientEdge   = "INSUFFICIENT_EDGE"
	RejectionAwardNotAllowed    = "EDGE_AWARD_NOT_ALLOWED"
	RejectionUnsupportedCommand = "COMMAND_UNSUPPORTED"
	RejectionPayloadInvalid     = "PAYLOAD_INVALID"
)

// TurnStarted is the data of a turn_started record.
type TurnStarted struct {
	CombatantID string `json:"combatant_id"`
	ActorID     string `json:"actor_id"`
	Round       int    `json:"round"`
	Turn        int    `json:"turn"`
}

// RoundMarker is the data of round_started and round_ended records.
type RoundMarker struct {
	Round int `json:"round"`
}

// InitiativeRolled is the data of an initiative_rolled record.
type InitiativeRolled struct {
	CombatantID string `json:"combatant_id"`
	Base        int    `json:"base"`
	Dice        int    `json:"dice"`
	Total       int    `json:"total"`
}

// InitiativeAdjusted is the data of an initiative_adjusted record. Floored is
// set when the adjustment would have gone below zero.
type InitiativeAdjusted struct {
	CombatantID string `json:"combatant_id"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	Floored     bool   `json:"floored"`
}

// ActionsChanged is the data of an actions_changed record.
type ActionsChanged struct {
	ActorID string `json:"actor_id"`
	Major   int    `json:"major"`
	Minor   int    `json:"minor"`
	Free    int    `json:"free"`
	Round   int    `json:"round"`
}

// EdgeChanged is the data of edge_spent, edge_gained, edge_denied and
// edge_boosted records.
type EdgeChanged struct {
	ActorID  string `json:"actor_id"`
	Uses     int    `json:"uses"`
	Amount   int    `json:"amount,omitempty"`
	Reason   string `json:"reason"`
	Boost    string `json:"boost,omitempty"`
	TargetID string `json:"target_id,omitempty"`
}

// StatusChanged is the data of a status_changed record.
type StatusChanged struct {
	ActorID  string   `json:"actor_id"`
	Statuses []string `json:"statuses"`
	Defeated bool     `json:"defeated"`
}

// AlreadyApplied is the data of an already_applied record.
type AlreadyApplied struct {
	Command string `json:"command"`
	Round   int    `json:"round"`
	Turn    int    `json:"turn"`
}
