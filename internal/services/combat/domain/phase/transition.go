package phase

import (
	"encoding/json"

	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/initiative"
)

func decideCreate(t *txn) command.Decision {
	if t.exists {
		return reject(RejectionCombatExists, "combat already exists")
	}
	var p CreatePayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	t.session = Session{
		ID:         t.cmd.SessionID,
		Turns:      []string{},
		Settings:   p.Settings.normalized(),
		Combatants: map[string]Combatant{},
	}
	doc, err := json.Marshal(t.session)
	if err != nil {
		return reject(RejectionPayloadInvalid, err.Error())
	}
	t.batch.Add(docstore.Update{Ref: docstore.CombatRef(t.session.ID), Replace: doc})
	t.record(RecordCombatCreated, t.session.ID, t.session.Settings)
	return t.accept()
}

// decideTransition handles the round and turn commands. Each carries the
// position it was issued against; once the session has moved past it the
// command is an accepted no-op, so a redelivered transition never advances
// twice.
func decideTransition(t *txn) command.Decision {
	if !t.exists {
		return reject(RejectionCombatNotFound, "combat not found")
	}
	var p EnterActionPhasePayload
	if d := decodePayload(t, &p); d != nil {
		return *d
	}
	if p.Stale(t.session) {
		return t.alreadyApplied()
	}
	if t.cmd.Type == CommandEnd {
		return decideEnd(t)
	}
	if t.session.Ended {
		return reject(RejectionCombatEnded, "combat has ended")
	}

	switch t.cmd.Type {
	case CommandStart:
		if t.session.Stage() != StageNotStarted {
			return reject(RejectionCombatAlreadyStart, "combat already started")
		}
		return start(t)
	case CommandNextTurn:
		if t.session.Stage() == StageNotStarted {
			return start(t)
		}
		return nextTurn(t)
	case CommandNextRound:
		if t.session.Stage() == StageNotStarted {
			return reject(RejectionCombatNotStarted, "combat has not started")
		}
		nextRound(t)
		return t.accept()
	case CommandEnterActionPhase:
		return enterActionPhase(t, p.CombatantID)
	}
	return reject(RejectionUnsupportedCommand, "command type is not supported: "+string(t.cmd.Type))
}

func start(t *txn) command.Decision {
	if len(t.session.Combatants) == 0 {
		return reject(RejectionNoCombatants, "combat has no combatants")
	}
	for _, cid := range t.session.CombatantIDs() {
		c := t.session.Combatants[cid]
		if c.Rolled() {
			continue
		}
		if t.session.Settings.OnlyAutoRollNPC && c.PlayerControlled {
			continue
		}
		t.rollFor(cid)
	}
	round := t.session.Settings.normalized().InitialRound
	t.setRound(round)
	t.setTurn(0)
	t.setStarted(true)
	t.resetRound(round)
	t.reorder(false)
	t.record(RecordCombatStarted, t.session.ID, RoundMarker{Round: round})
	t.record(RecordRoundStarted, t.session.ID, RoundMarker{Round: round})
	t.beginRound()
	return t.accept()
}

func nextTurn(t *txn) command.Decision {
	if next := t.nextEligible(t.session.Turn); next >= 0 {
		t.setTurn(next)
		t.enterActionPhase(t.session.Turns[next])
		return t.accept()
	}
	nextRound(t)
	return t.accept()
}

// nextRound advances the whole session in one batch: counters, budgets,
// pass reduction, newcomer rolls, order, and the first turn.
func nextRound(t *txn) {
	ended := t.session.Round
	t.record(RecordRoundEnded, t.session.ID, RoundMarker{Round: ended})

	round := ended + 1
	t.setRound(round)
	t.setSkipRoll(true)
	t.resetRound(round)

	reduction := t.session.Settings.InitiativePassReduction
	for _, cid := range t.session.CombatantIDs() {
		c := t.session.Combatants[cid]
		if !c.Rolled() {
			if !(t.session.Settings.OnlyAutoRollNPC && c.PlayerControlled) {
				t.rollFor(cid)
			}
			continue
		}
		if reduction > 0 {
			reduced := initiative.ValidScore(c.Score() - reduction)
			if reduced != c.Score() {
				t.setInitiative(cid, &reduced)
			}
		}
	}

	t.reorder(false)
	t.record(RecordRoundStarted, t.session.ID, RoundMarker{Round: round})
	t.beginRound()
}

func enterActionPhase(t *txn, cid string) command.Decision {
	if t.session.Stage() != StageRoundActive {
		return reject(RejectionCombatNotStarted, "no turn is active")
	}
	if cid == "" {
		current, _ := t.session.Current()
		cid = current.ID
	}
	if _, ok := t.session.Combatants[cid]; !ok {
		return reject(RejectionCombatantNotFound, "combatant not found: "+cid)
	}
	t.enterActionPhase(cid)
	return t.accept()
}

func decideEnd(t *txn) command.Decision {
	if t.session.Ended {
		return t.alreadyApplied()
	}
	t.setEnded(true)
	for _, aid := range t.session.ActorIDs() {
		if a, ok := t.actor(aid); ok {
			t.setMultiDefense(a, 0)
		}
	}
	t.record(RecordCombatEnded, t.session.ID, RoundMarker{Round: t.session.Round})
	return t.accept()
}
