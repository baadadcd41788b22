package phase

import (
	"log"
	"strings"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/action"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/damage"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/edge"
)

// Healed is the data of a healed record.
type Healed struct {
	ActorID string          `json:"actor_id"`
	Track   string          `json:"track"`
	Amount  int             `json:"amount"`
	Changes []damage.Change `json:"changes,omitempty"`
}

// DamageApplied is the data of a damage_applied record.
type DamageApplied struct {
	ActorID string         `json:"actor_id"`
	Outcome damage.Outcome `json:"outcome"`
}

// RunReset is the data of a run_reset record.
type RunReset struct {
	ActorID  string `json:"actor_id"`
	EdgeUses int    `json:"edge_uses"`
}

// decideActor handles commands addressed to one actor. A session is optional;
// when present the actor's combatants are kept in step with its status.
func decideActor(t *txn) command.Decision {
	if t.cmd.SessionID != "" && t.exists && t.session.Ended {
		return reject(RejectionCombatEnded, "combat has ended")
	}
	var p ActorPayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	a, ok := t.actor(p.ActorID)
	if !ok {
		return reject(RejectionActorNotFound, "actor not found: "+p.ActorID)
	}

	switch t.cmd.Type {
	case CommandApplyDamage:
		return applyDamage(t, a)
	case CommandHeal:
		return heal(t, a)
	case CommandSpendEdge:
		return spendEdge(t, a)
	case CommandGainEdge:
		return gainEdge(t, a)
	case CommandEdgeBoost:
		return edgeBoost(t, a)
	case CommandSpendMajor:
		return spendActions(t, a, action.SpendMajor)
	case CommandSpendMinor:
		return spendActions(t, a, action.SpendMinor)
	case CommandConvertMinor:
		return spendActions(t, a, action.Convert)
	case CommandResetRun:
		return resetRun(t, a)
	}
	return reject(RejectionUnsupportedCommand, "command type is not supported: "+string(t.cmd.Type))
}

func applyDamage(t *txn, a *actor.Actor) command.Decision {
	var p ApplyDamagePayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	pipeline := damage.Pipeline{Armor: t.armor()}
	out := pipeline.Resolve(a, damage.Instance{
		Type:    p.Type,
		Amount:  p.Amount,
		AP:      p.AP,
		Element: p.Element,
	}, p.Soak, &t.batch)
	if out.Excess > 0 {
		log.Printf("apply damage: %s could not absorb %d %s", a.ID, out.Excess, p.Type)
	}
	t.record(RecordDamageApplied, a.ID, DamageApplied{ActorID: a.ID, Outcome: out})
	if out.StatusPatch.Changed() {
		t.record(RecordStatusChanged, a.ID, StatusChanged{
			ActorID:  a.ID,
			Statuses: a.Statuses,
			Defeated: out.StatusPatch.Defeated,
		})
	}
	t.syncDefeated(a.ID, out.Status.Defeated())
	return t.accept()
}

func heal(t *txn, a *actor.Actor) command.Decision {
	var p HealPayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	m := damage.NewMutator(a, &t.batch)
	healed := m.Heal(p.Track, p.Amount)
	t.record(RecordHealed, a.ID, Healed{ActorID: a.ID, Track: p.Track, Amount: healed, Changes: m.Changes})
	t.reconcileStatus(a)
	return t.accept()
}

func spendEdge(t *txn, a *actor.Actor) command.Decision {
	var p SpendEdgePayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	res := edge.Spend(a.EdgeOrZero(), p.Amount)
	if res.Denied {
		return reject(rejectionFor(res.Reason), "actor has no edge: "+a.ID)
	}
	if res.Repaired {
		log.Printf("spend edge: %s had uses %d outside [0, %d], clamped", a.ID, a.Edge.Uses, a.Edge.Value)
	}
	t.setEdgeUses(a, res.Uses)
	t.record(RecordEdgeSpent, a.ID, EdgeChanged{ActorID: a.ID, Uses: res.Uses, Amount: res.Spent, Reason: string(res.Reason)})
	return t.accept()
}

func gainEdge(t *txn, a *actor.Actor) command.Decision {
	var p GainEdgePayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	var trigger edge.Trigger
	switch p.Trigger.Kind {
	case edge.TriggerRatingAdvantage:
		ra := edge.RatingAdvantage{
			AttackRating:  p.Trigger.AttackRating,
			DefenseRating: p.Trigger.DefenseRating,
			Side:          p.Trigger.Side,
		}
		if ra.DefenseRating == 0 && p.Trigger.DefenderID != "" {
			defender, ok := t.actor(p.Trigger.DefenderID)
			if !ok {
				return reject(RejectionTargetNotFound, "defender not found: "+p.Trigger.DefenderID)
			}
			ra.DefenseRating = t.armor().DefenseRating(*defender)
		}
		trigger = ra
	case edge.TriggerAttributeTest:
		trigger = edge.AttributeTest{Attribute: p.Trigger.Attribute}
	case edge.TriggerAwarded:
		if t.cmd.ActorType == command.ActorTypeParticipant {
			return reject(RejectionAwardNotAllowed, "only the game master may award edge")
		}
		trigger = edge.Awarded{}
	}

	grant := edge.Gain(*a, trigger)
	data := EdgeChanged{ActorID: a.ID, Uses: grant.Uses, Reason: string(grant.Reason)}
	if !grant.Gained {
		// A denied gain is an outcome, not an error.
		t.record(RecordEdgeDenied, a.ID, data)
		return t.accept()
	}
	data.Amount = 1
	t.setEdgeUses(a, grant.Uses)
	t.setEdgeGained(a, grant.RoundGained)
	t.record(RecordEdgeGained, a.ID, data)
	return t.accept()
}

func edgeBoost(t *txn, a *actor.Actor) command.Decision {
	var p EdgeBoostPayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	var target *actor.Actor
	if edge.NeedsTarget(p.Boost) {
		var ok bool
		if target, ok = t.actor(p.TargetID); !ok {
			return reject(RejectionTargetNotFound, "target not found: "+p.TargetID)
		}
	}
	res, err := edge.SpendBoost(a.EdgeOrZero(), p.Boost)
	if err != nil {
		return reject(RejectionPayloadInvalid, err.Error())
	}
	if res.Denied {
		return reject(rejectionFor(res.Reason), "not enough edge for "+string(p.Boost))
	}
	t.setEdgeUses(a, res.Uses)

	if target != nil && target.Edge != nil {
		t.setEdgeUses(target, edge.Adjust(*target.Edge, edge.TargetDelta(p.Boost)))
	}
	if p.Boost == edge.BoostHealPhysical {
		damage.NewMutator(a, &t.batch).Heal(actor.TrackPhysical, 1)
		t.reconcileStatus(a)
	}
	t.record(RecordEdgeBoosted, a.ID, EdgeChanged{
		ActorID:  a.ID,
		Uses:     res.Uses,
		Amount:   res.Spent,
		Reason:   string(res.Reason),
		Boost:    string(p.Boost),
		TargetID: p.TargetID,
	})
	return t.accept()
}

func spendActions(t *txn, a *actor.Actor, spend func(actor.Actions) (actor.Actions, action.Denial)) command.Decision {
	next, denial := spend(a.Actions)
	if denial != action.DenialNone {
		return reject(strings.ToUpper(string(denial)), "action budget exhausted: "+a.ID)
	}
	t.setActions(a, next)
	return t.accept()
}

// resetRun readies an actor for a new run: damage cleared, edge restored
// where the category allows it, and a fresh out-of-combat budget.
func resetRun(t *txn, a *actor.Actor) command.Decision {
	m := damage.NewMutator(a, &t.batch)
	for _, track := range []string{actor.TrackPhysical, actor.TrackOverflow, actor.TrackStun} {
		m.Set(track, 0)
	}
	if a.RestoresEdgeOnReset() && a.Edge != nil {
		t.setEdgeUses(a, edge.Ceiling(*a.Edge))
	}
	t.setEdgeGained(a, 0)
	t.setMultiDefense(a, 0)
	t.setRecoil(a, 0)
	next, _ := action.Reset(a.Actions, 0, 0)
	t.setActions(a, next)
	t.reconcileStatus(a)
	t.record(RecordRunReset, a.ID, RunReset{ActorID: a.ID, EdgeUses: a.EdgeOrZero().Uses})
	return t.accept()
}

func rejectionFor(reason edge.Reason) string {
	switch reason {
	case edge.ReasonNoEdge:
		return RejectionNoEdge
	case edge.ReasonInsufficientEdge:
		return RejectionInsufficientEdge
	}
	return strings.ToUpper(string(reason))
}
