package phase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/edge"
)

// Command types.
const (
	CommandCreate           command.Type = "combat.create"
	CommandStart            command.Type = "combat.start"
	CommandNextTurn         command.Type = "combat.next_turn"
	CommandNextRound        command.Type = "combat.next_round"
	CommandEnterActionPhase command.Type = "combat.enter_action_phase"
	CommandEnd              command.Type = "combat.end"

	CommandAddCombatant     command.Type = "combatant.add"
	CommandRemoveCombatant  command.Type = "combatant.remove"
	CommandRollInitiative   command.Type = "combatant.roll_initiative"
	CommandAdjustInitiative command.Type = "combatant.adjust_initiative"
	CommandRecordAttack     command.Type = "combatant.record_attack"
	CommandRecordDefense    command.Type = "combatant.record_defense"

	CommandApplyDamage  command.Type = "actor.apply_damage"
	CommandHeal         command.Type = "actor.heal"
	CommandSpendEdge    command.Type = "actor.spend_edge"
	CommandGainEdge     command.Type = "actor.gain_edge"
	CommandEdgeBoost    command.Type = "actor.edge_boost"
	CommandSpendMajor   command.Type = "actor.spend_major"
	CommandSpendMinor   command.Type = "actor.spend_minor"
	CommandConvertMinor command.Type = "actor.convert_minor"
	CommandResetRun     command.Type = "actor.reset_run"
)

var (
	errActorIDRequired     = errors.New("actor_id is required")
	errCombatantIDRequired = errors.New("combatant_id is required")
	errNegativeAmount      = errors.New("amount must be non-negative")
)

// Definitions returns the command table for the combat engine.
func Definitions() []command.Definition {
	session := func(t command.Type, v command.PayloadValidator) command.Definition {
		return command.Definition{Type: t, Scope: command.ScopeSession, ValidatePayload: v, Relayable: true}
	}
	actorScoped := func(t command.Type, v command.PayloadValidator) command.Definition {
		return command.Definition{Type: t, Scope: command.ScopeActor, ValidatePayload: v, Relayable: true}
	}
	return []command.Definition{
		{Type: CommandCreate, Scope: command.ScopeSession, ValidatePayload: validateCreate},
		session(CommandStart, nil),
		session(CommandNextTurn, nil),
		session(CommandNextRound, nil),
		session(CommandEnterActionPhase, nil),
		session(CommandEnd, nil),

		session(CommandAddCombatant, validateAddCombatant),
		session(CommandRemoveCombatant, requireCombatant),
		session(CommandRollInitiative, nil),
		session(CommandAdjustInitiative, requireCombatant),
		session(CommandRecordAttack, validateRecordAttack),
		session(CommandRecordDefense, requireCombatant),

		actorScoped(CommandApplyDamage, validateApplyDamage),
		actorScoped(CommandHeal, validateHeal),
		actorScoped(CommandSpendEdge, validateSpendEdge),
		actorScoped(CommandGainEdge, validateGainEdge),
		actorScoped(CommandEdgeBoost, validateEdgeBoost),
		actorScoped(CommandSpendMajor, requireActor),
		actorScoped(CommandSpendMinor, requireActor),
		actorScoped(CommandConvertMinor, requireActor),
		actorScoped(CommandResetRun, requireActor),
	}
}

// NewRegistry returns a registry with every combat command registered.
func NewRegistry() *command.Registry {
	return command.NewRegistry().MustRegister(Definitions()...)
}

func decodeStrict(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

func validateCreate(raw json.RawMessage) error {
	var p CreatePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if p.Settings.InitiativePassReduction < 0 {
		return errors.New("initiative_pass_reduction must be non-negative")
	}
	return nil
}

func validateAddCombatant(raw json.RawMessage) error {
	var p AddCombatantPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return errActorIDRequired
	}
	return nil
}

func requireCombatant(raw json.RawMessage) error {
	var p CombatantPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.CombatantID) == "" {
		return errCombatantIDRequired
	}
	return nil
}

func validateRecordAttack(raw json.RawMessage) error {
	var p RecordAttackPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.CombatantID) == "" {
		return errCombatantIDRequired
	}
	if p.Recoil != nil && *p.Recoil < 0 {
		return errors.New("recoil must be non-negative")
	}
	return nil
}

func requireActor(raw json.RawMessage) error {
	var p ActorPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return errActorIDRequired
	}
	return nil
}

func validateApplyDamage(raw json.RawMessage) error {
	var p ApplyDamagePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return errActorIDRequired
	}
	if !p.Type.Valid() {
		return fmt.Errorf("unknown damage type %q", p.Type)
	}
	if p.Amount < 0 || p.Soak < 0 {
		return errNegativeAmount
	}
	return nil
}

func validateHeal(raw json.RawMessage) error {
	var p HealPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return errActorIDRequired
	}
	switch p.Track {
	case actor.TrackPhysical, actor.TrackStun, actor.TrackMatrix, actor.TrackOverflow:
	default:
		return fmt.Errorf("unknown track %q", p.Track)
	}
	if p.Amount < 0 {
		return errNegativeAmount
	}
	return nil
}

func validateSpendEdge(raw json.RawMessage) error {
	var p SpendEdgePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return errActorIDRequired
	}
	if p.Amount < 0 {
		return errNegativeAmount
	}
	return nil
}

func validateGainEdge(raw json.RawMessage) error {
	var p GainEdgePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return errActorIDRequired
	}
	switch p.Trigger.Kind {
	case edge.TriggerAwarded, edge.TriggerAttributeTest:
	case edge.TriggerRatingAdvantage:
		if p.Trigger.Side != edge.SideAttacker && p.Trigger.Side != edge.SideDefender {
			return fmt.Errorf("unknown side %q", p.Trigger.Side)
		}
	default:
		return fmt.Errorf("unknown trigger %q", p.Trigger.Kind)
	}
	return nil
}

func validateEdgeBoost(raw json.RawMessage) error {
	var p EdgeBoostPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ActorID) == "" {
		return errActorIDRequired
	}
	if _, err := edge.Cost(p.Boost); err != nil {
		return err
	}
	if edge.NeedsTarget(p.Boost) && strings.TrimSpace(p.TargetID) == "" {
		return errors.New("target_id is required for this boost")
	}
	return nil
}

// ActorIDs returns the actors a command needs loaded besides session
// combatants.
func ActorIDs(cmd command.Command) []string {
	var refs actorRefs
	_ = json.Unmarshal(cmd.Payload, &refs)
	var ids []string
	for _, id := range []string{refs.ActorID, refs.TargetID, refs.Trigger.DefenderID} {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		dup := false
		for _, seen := range ids {
			dup = dup || seen == id
		}
		if !dup {
			ids = append(ids, id)
		}
	}
	return ids
}

