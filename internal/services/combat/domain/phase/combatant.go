package phase

import (
	"log"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/initiative"
)

// AttackRecorded is the data of an attack_recorded record.
type AttackRecorded struct {
	CombatantID string `json:"combatant_id"`
	Recoil      int    `json:"recoil"`
}

// DefenseRecorded is the data of a defense_recorded record.
type DefenseRecorded struct {
	CombatantID  string `json:"combatant_id"`
	MultiDefense int    `json:"multi_defense"`
}

func decideCombatant(t *txn) command.Decision {
	if !t.exists {
		return reject(RejectionCombatNotFound, "combat not found")
	}
	if t.session.Ended {
		return reject(RejectionCombatEnded, "combat has ended")
	}
	switch t.cmd.Type {
	case CommandAddCombatant:
		return addCombatant(t)
	case CommandRemoveCombatant:
		return removeCombatant(t)
	case CommandRollInitiative:
		return rollInitiative(t)
	case CommandAdjustInitiative:
		return adjustInitiative(t)
	case CommandRecordAttack:
		return recordAttack(t)
	case CommandRecordDefense:
		return recordDefense(t)
	}
	return reject(RejectionUnsupportedCommand, "command type is not supported: "+string(t.cmd.Type))
}

func addCombatant(t *txn) command.Decision {
	var p AddCombatantPayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	id := p.CombatantID
	if id == "" {
		id = p.ActorID
	}
	if existing, ok := t.session.Combatants[id]; ok {
		if existing.ActorID == p.ActorID {
			return t.alreadyApplied()
		}
		return reject(RejectionCombatantExists, "combatant already present: "+id)
	}
	a, ok := t.actor(p.ActorID)
	if !ok {
		return reject(RejectionActorNotFound, "actor not found: "+p.ActorID)
	}

	c := Combatant{ID: id, ActorID: p.ActorID, PlayerControlled: p.PlayerControlled}
	if p.Initiative != nil {
		c.Initiative = intPtr(initiative.ValidScore(*p.Initiative))
	}
	t.putCombatant(c)
	t.record(RecordCombatantAdded, id, c)

	if t.session.Started {
		t.reorder(true)
		t.resetActions(a, t.session.Round)
	}
	return t.accept()
}

func removeCombatant(t *txn) command.Decision {
	var p CombatantPayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	if _, ok := t.session.Combatants[p.CombatantID]; !ok {
		return t.alreadyApplied()
	}

	turn := t.session.Turn
	current := false
	turns := make([]string, 0, len(t.session.Turns))
	for i, id := range t.session.Turns {
		if id == p.CombatantID {
			if i < turn {
				turn--
			}
			current = i == t.session.Turn
			continue
		}
		turns = append(turns, id)
	}
	t.deleteCombatant(p.CombatantID)
	t.setTurns(turns)
	if t.session.Started {
		t.setTurn(min(max(turn, 0), len(turns)))
	}
	t.record(RecordCombatantRemoved, p.CombatantID, CombatantPayload{CombatantID: p.CombatantID})
	// Removing the acting combatant hands the turn to the next eligible one.
	// With nobody left this round, the turn waits for the round to advance.
	if t.session.Started && current {
		if next := t.nextEligible(turn - 1); next >= 0 {
			t.setTurn(next)
			t.enterActionPhase(turns[next])
		}
	}
	return t.accept()
}

func rollInitiative(t *txn) command.Decision {
	var p RollInitiativePayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	ids := p.CombatantIDs
	if len(ids) == 0 {
		ids = t.session.CombatantIDs()
	}
	for _, id := range ids {
		if _, ok := t.session.Combatants[id]; !ok {
			return reject(RejectionCombatantNotFound, "combatant not found: "+id)
		}
	}
	rolled := 0
	for _, id := range ids {
		if t.session.Combatants[id].Rolled() && !p.Reroll {
			continue
		}
		if t.rollFor(id) {
			rolled++
		}
	}
	if rolled > 0 {
		t.reorder(true)
	}
	return t.accept()
}

func adjustInitiative(t *txn) command.Decision {
	var p AdjustInitiativePayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	c, ok := t.session.Combatants[p.CombatantID]
	if !ok {
		return reject(RejectionCombatantNotFound, "combatant not found: "+p.CombatantID)
	}
	if !c.Rolled() {
		return reject(RejectionCombatantNotRolled, "combatant has not rolled initiative: "+c.ID)
	}
	from := c.Score()
	to := from + p.Delta
	adjusted := InitiativeAdjusted{CombatantID: c.ID, From: from, To: initiative.ValidScore(to)}
	if to < 0 {
		adjusted.Floored = true
		log.Printf("adjust initiative: %s would drop to %d, holding at 0", c.ID, to)
	}
	t.setInitiative(c.ID, &adjusted.To)
	t.reorder(true)
	t.record(RecordInitiativeAdjusted, c.ID, adjusted)
	return t.accept()
}

func recordAttack(t *txn) command.Decision {
	var p RecordAttackPayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	c, ok := t.session.Combatants[p.CombatantID]
	if !ok {
		return reject(RejectionCombatantNotFound, "combatant not found: "+p.CombatantID)
	}
	a, ok := t.actor(c.ActorID)
	if !ok {
		return reject(RejectionActorNotFound, "actor not found: "+c.ActorID)
	}
	recoil := 1
	if p.Recoil != nil {
		recoil = *p.Recoil
	}
	if a.HasPhysicalBody() {
		t.setRecoil(a, a.Modifiers.Recoil+recoil)
	}
	t.setTurnsSinceLastAttack(c.ID, intPtr(0))
	t.record(RecordAttackRecorded, c.ID, AttackRecorded{CombatantID: c.ID, Recoil: a.Modifiers.Recoil})
	return t.accept()
}

func recordDefense(t *txn) command.Decision {
	var p CombatantPayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	c, ok := t.session.Combatants[p.CombatantID]
	if !ok {
		return reject(RejectionCombatantNotFound, "combatant not found: "+p.CombatantID)
	}
	a, ok := t.actor(c.ActorID)
	if !ok {
		return reject(RejectionActorNotFound, "actor not found: "+c.ActorID)
	}
	previous := max(-a.Modifiers.MultiDefense, 0)
	t.setMultiDefense(a, -(previous + 1))
	t.record(RecordDefenseRecorded, c.ID, DefenseRecorded{CombatantID: c.ID, MultiDefense: a.Modifiers.MultiDefense})
	return t.accept()
}
