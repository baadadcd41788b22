package phase

import (
	"encoding/json"
	"log"
	"time"

	"github.com/louisbranch/shadowtrack/internal/services/combat/dice"
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/action"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/armor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/condition"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/initiative"
)

// Decider turns commands into decisions. It holds no session state; the
// roller and armor cache are the only collaborators.
type Decider struct {
	Roller dice.Roller
	Armor  *armor.Resolver
}

// NewDecider returns a decider using roller for every random outcome.
func NewDecider(roller dice.Roller, resolver *armor.Resolver) Decider {
	if resolver == nil {
		resolver = armor.NewResolver()
	}
	return Decider{Roller: roller, Armor: resolver}
}

// Decide returns the decision for cmd against state. It never mutates state:
// every write is staged in the returned batch.
func (d Decider) Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	t := newTxn(state, cmd, now(), d)

	switch cmd.Type {
	case CommandCreate:
		return decideCreate(t)
	case CommandStart, CommandNextTurn, CommandNextRound, CommandEnterActionPhase, CommandEnd:
		return decideTransition(t)
	case CommandAddCombatant, CommandRemoveCombatant, CommandRollInitiative,
		CommandAdjustInitiative, CommandRecordAttack, CommandRecordDefense:
		return decideCombatant(t)
	case CommandApplyDamage, CommandHeal, CommandSpendEdge, CommandGainEdge, CommandEdgeBoost,
		CommandSpendMajor, CommandSpendMinor, CommandConvertMinor, CommandResetRun:
		return decideActor(t)
	}
	return reject(RejectionUnsupportedCommand, "command type is not supported: "+string(cmd.Type))
}

func reject(code, message string) command.Decision {
	return command.Reject(command.Rejection{Code: code, Message: message})
}

// txn stages one decision: a cloned session, cloned actors and the batch
// that persists them.
type txn struct {
	cmd     command.Command
	at      time.Time
	decider Decider
	exists  bool
	loaded  map[string]actor.Actor
	session Session
	actors  map[string]*actor.Actor
	batch   docstore.Batch
	records []command.Record
}

func newTxn(state State, cmd command.Command, at time.Time, d Decider) *txn {
	s := state.Session.Clone()
	if s.ID == "" {
		s.ID = cmd.SessionID
	}
	return &txn{
		cmd:     cmd,
		at:      at,
		decider: d,
		exists:  state.Exists,
		loaded:  state.Actors,
		session: s,
		actors:  map[string]*actor.Actor{},
	}
}

func (t *txn) accept() command.Decision {
	return command.Accept(t.batch, t.records...)
}

func (t *txn) record(recordType command.RecordType, entityID string, data any) {
	t.records = append(t.records, command.NewRecord(t.cmd, recordType, entityID, data, t.at))
}

func (t *txn) alreadyApplied() command.Decision {
	t.record(RecordAlreadyApplied, t.session.ID, AlreadyApplied{
		Command: string(t.cmd.Type),
		Round:   t.session.Round,
		Turn:    t.session.Turn,
	})
	return t.accept()
}

func (t *txn) roller() dice.Roller { return t.decider.Roller }

func (t *txn) armor() *armor.Resolver {
	if t.decider.Armor == nil {
		t.decider.Armor = armor.NewResolver()
	}
	return t.decider.Armor
}

// Session writes.

func (t *txn) setSession(path string, value any) {
	t.batch.Add(docstore.NewUpdate(docstore.CombatRef(t.session.ID)).Set(path, value))
}

func (t *txn) setRound(n int) {
	t.session.Round = n
	t.setSession(PathRound, n)
}

func (t *txn) setTurn(n int) {
	if t.session.Turn == n {
		return
	}
	t.session.Turn = n
	t.setSession(PathTurn, n)
}

func (t *txn) setTurns(ids []string) {
	t.session.Turns = append([]string{}, ids...)
	t.setSession(PathTurns, t.session.Turns)
}

func (t *txn) setStarted(v bool) {
	t.session.Started = v
	t.setSession(PathStarted, v)
}

func (t *txn) setEnded(v bool) {
	t.session.Ended = v
	t.setSession(PathEnded, v)
}

func (t *txn) setSkipRoll(v bool) {
	if t.session.SkipRollInitiative == v {
		return
	}
	t.session.SkipRollInitiative = v
	t.setSession(PathSkipRollInitiative, v)
}

func (t *txn) setInitiative(cid string, score *int) {
	c := t.session.Combatants[cid]
	c.Initiative = clonePtr(score)
	t.session.Combatants[cid] = c
	t.setSession(CombatantPath(cid, "initiative"), intOrNull(score))
}

func (t *txn) setDefeated(cid string, v bool) {
	c := t.session.Combatants[cid]
	if c.Defeated == v {
		return
	}
	c.Defeated = v
	t.session.Combatants[cid] = c
	t.setSession(CombatantPath(cid, "defeated"), v)
}

func (t *txn) setTurnsSinceLastAttack(cid string, n *int) {
	c := t.session.Combatants[cid]
	c.TurnsSinceLastAttack = clonePtr(n)
	t.session.Combatants[cid] = c
	t.setSession(CombatantPath(cid, "turns_since_last_attack"), intOrNull(n))
}

func (t *txn) putCombatant(c Combatant) {
	if t.session.Combatants == nil {
		t.session.Combatants = map[string]Combatant{}
	}
	t.session.Combatants[c.ID] = c.clone()
	t.setSession(CombatantPath(c.ID), c)
}

func (t *txn) deleteCombatant(cid string) {
	delete(t.session.Combatants, cid)
	t.batch.Add(docstore.NewUpdate(docstore.CombatRef(t.session.ID)).Unset(CombatantPath(cid)))
}

// Actor writes.

// actor returns the staged copy of an actor, staging it on first use.
func (t *txn) actor(id string) (*actor.Actor, bool) {
	if a, ok := t.actors[id]; ok {
		return a, true
	}
	loaded, ok := t.loaded[id]
	if !ok {
		return nil, false
	}
	a := loaded.Clone()
	t.actors[id] = &a
	return &a, true
}

func (t *txn) setActor(id, path string, value any) {
	t.batch.Add(docstore.NewUpdate(docstore.ActorRef(id)).Set(path, value))
}

func (t *txn) setEdgeUses(a *actor.Actor, uses int) {
	if a.Edge == nil || a.Edge.Uses == uses {
		return
	}
	a.Edge.Uses = uses
	t.setActor(a.ID, actor.PathEdgeUses, uses)
}

func (t *txn) setEdgeGained(a *actor.Actor, n int) {
	if a.Round.EdgeGained == n {
		return
	}
	a.Round.EdgeGained = n
	t.setActor(a.ID, actor.PathRoundEdgeGained, n)
}

func (t *txn) setMultiDefense(a *actor.Actor, n int) {
	if a.Modifiers.MultiDefense == n {
		return
	}
	a.Modifiers.MultiDefense = n
	t.setActor(a.ID, actor.PathMultiDefense, n)
}

func (t *txn) setRecoil(a *actor.Actor, n int) {
	if a.Modifiers.Recoil == n {
		return
	}
	a.Modifiers.Recoil = n
	t.setActor(a.ID, actor.PathRecoil, n)
}

func (t *txn) setActions(a *actor.Actor, next actor.Actions) {
	if a.Actions == next {
		return
	}
	a.Actions = next
	t.batch.Add(action.Update(a.ID, next))
	t.record(RecordActionsChanged, a.ID, ActionsChanged{
		ActorID: a.ID,
		Major:   next.Major,
		Minor:   next.Minor,
		Free:    next.Free,
		Round:   next.Round,
	})
}

// reconcileStatus brings the visible statuses in line with the tracks and
// mirrors the defeated flag onto the actor's combatants.
func (t *txn) reconcileStatus(a *actor.Actor) condition.Patch {
	status := condition.Determine(*a)
	patch := condition.Reconcile(a.Statuses, status)
	if patch.Changed() {
		a.Statuses = patch.Apply(a.Statuses)
		statuses := a.Statuses
		if statuses == nil {
			statuses = []string{}
		}
		t.setActor(a.ID, actor.PathStatuses, statuses)
		t.record(RecordStatusChanged, a.ID, StatusChanged{ActorID: a.ID, Statuses: statuses, Defeated: patch.Defeated})
	}
	t.syncDefeated(a.ID, patch.Defeated)
	return patch
}

func (t *txn) syncDefeated(actorID string, defeated bool) {
	if !t.exists {
		return
	}
	for _, cid := range t.session.CombatantsOf(actorID) {
		t.setDefeated(cid, defeated)
	}
}

// Phase helpers shared by transitions and combatant commands.

// rollFor rolls initiative for one combatant. Combatants whose actor is
// missing are left unrolled.
func (t *txn) rollFor(cid string) bool {
	c, ok := t.session.Combatants[cid]
	if !ok {
		return false
	}
	a, ok := t.actor(c.ActorID)
	if !ok {
		log.Printf("roll initiative: combatant %s has no actor %s", cid, c.ActorID)
		return false
	}
	score := initiative.Of(*a)
	total := initiative.ValidScore(initiative.Roll(score, t.roller()))
	t.setInitiative(cid, &total)
	t.record(RecordInitiativeRolled, cid, InitiativeRolled{
		CombatantID: cid,
		Base:        score.Base,
		Dice:        score.Dice,
		Total:       total,
	})
	return true
}

// reorder recomputes the turn order. With keepCurrent the turn follows the
// combatant whose turn it is; otherwise, or when that combatant is gone, the
// turn index stays where it was. Callers starting a round set the turn
// afterwards.
func (t *txn) reorder(keepCurrent bool) {
	current := ""
	if keepCurrent && t.session.Started {
		if c, ok := t.session.Current(); ok {
			current = c.ID
		}
	}

	seen := map[string]bool{}
	var base []string
	for _, id := range t.session.Turns {
		if _, ok := t.session.Combatants[id]; ok && !seen[id] {
			seen[id] = true
			base = append(base, id)
		}
	}
	for _, id := range t.session.CombatantIDs() {
		if !seen[id] {
			base = append(base, id)
		}
	}

	entries := make([]initiative.Entry, 0, len(base))
	for _, id := range base {
		c := t.session.Combatants[id]
		entry := initiative.Entry{ID: id, Score: c.Initiative}
		if a, ok := t.actor(c.ActorID); ok {
			entry.Actor = a
		}
		entries = append(entries, entry)
	}
	order := initiative.Order(entries, t.roller())
	t.setTurns(order)

	if current == "" {
		t.setTurn(min(t.session.Turn, len(order)))
		return
	}
	for i, id := range order {
		if id == current {
			t.setTurn(i)
			return
		}
	}
}

// resetRound gives every actor in the session a fresh budget and clears
// its round counters. Budgets already initialised for round are kept.
func (t *txn) resetRound(round int) {
	for _, aid := range t.session.ActorIDs() {
		a, ok := t.actor(aid)
		if !ok {
			continue
		}
		t.resetActions(a, round)
		t.setEdgeGained(a, 0)
	}
}

func (t *txn) resetActions(a *actor.Actor, round int) {
	if next, changed := action.Reset(a.Actions, initiative.Of(*a).Dice, round); changed {
		t.setActions(a, next)
	}
}

// eligible reports whether the combatant at position i may take a turn.
func (t *txn) eligible(i int) bool {
	c, ok := t.session.Combatants[t.session.Turns[i]]
	if !ok {
		return false
	}
	if _, ok := t.actor(c.ActorID); !ok {
		return false
	}
	if c.Defeated && t.session.Settings.SkipDefeated {
		return false
	}
	return c.Score() > 0
}

// nextEligible returns the first eligible position after from, or -1.
func (t *txn) nextEligible(from int) int {
	for i := max(from+1, 0); i < len(t.session.Turns); i++ {
		if t.eligible(i) {
			return i
		}
	}
	return -1
}

// enterActionPhase prepares the combatant for its turn. Multi-defense is
// cleared; recoil persists only while the combatant fired last turn.
func (t *txn) enterActionPhase(cid string) {
	c, ok := t.session.Combatants[cid]
	if !ok {
		return
	}
	if a, ok := t.actor(c.ActorID); ok {
		t.setMultiDefense(a, 0)
		tsla := c.TurnsSinceLastAttack
		switch {
		case tsla == nil || *tsla > 0:
			if a.HasPhysicalBody() {
				t.setRecoil(a, 0)
			}
		case *tsla == 0:
			t.setTurnsSinceLastAttack(cid, intPtr(1))
		}
	}
	t.record(RecordTurnStarted, cid, TurnStarted{
		CombatantID: cid,
		ActorID:     c.ActorID,
		Round:       t.session.Round,
		Turn:        t.session.Turn,
	})
}

// beginRound points the turn at the first eligible combatant and enters
// its action phase. The first position is used when nobody is eligible.
func (t *txn) beginRound() {
	if len(t.session.Turns) == 0 {
		t.setTurn(0)
		return
	}
	first := t.nextEligible(-1)
	if first < 0 {
		first = 0
	}
	t.setTurn(first)
	t.enterActionPhase(t.session.Turns[first])
}

func decodePayload(t *txn, v any) *command.Decision {
	if err := json.Unmarshal(t.cmd.Payload, v); err != nil && len(t.cmd.Payload) > 0 {
		d := reject(RejectionPayloadInvalid, err.Error())
		return &d
	}
	return nil
}
