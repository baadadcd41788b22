package phase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/shadowtrack/internal/services/combat/dice"
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/armor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/condition"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/damage"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/edge"
)

const testSession = "combat-1"

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func fighter(id string, reaction, intuition int) actor.Actor {
	return actor.Actor{
		ID:       id,
		Name:     id,
		Category: actor.CategoryCharacter,
		Attributes: map[string]int{
			actor.AttrReaction:  reaction,
			actor.AttrIntuition: intuition,
			actor.AttrBody:      3,
		},
		Tracks: actor.Tracks{
			Physical: &actor.PhysicalTrack{Track: actor.Track{Max: 10}, Overflow: &actor.Track{Max: 3}},
			Stun:     &actor.Track{Max: 10},
		},
		Edge: &actor.Edge{Value: 3, Uses: 1},
	}
}

func drone(id string) actor.Actor {
	return actor.Actor{
		ID:         id,
		Name:       id,
		Category:   actor.CategoryVehicle,
		Attributes: map[string]int{actor.AttrReaction: 2, actor.AttrIntuition: 2},
		Tracks:     actor.Tracks{Physical: &actor.PhysicalTrack{Track: actor.Track{Max: 10}}},
	}
}

// harness runs commands through validation, decision and commit against a
// memory store, the way the engine does.
type harness struct {
	t        *testing.T
	store    *docstore.Memory
	decider  Decider
	registry *command.Registry
}

func newHarness(t *testing.T, actors ...actor.Actor) *harness {
	t.Helper()
	store := docstore.NewMemory()
	for _, a := range actors {
		if err := store.Put(docstore.ActorRef(a.ID), a); err != nil {
			t.Fatalf("put actor %s: %v", a.ID, err)
		}
	}
	return &harness{
		t:        t,
		store:    store,
		decider:  NewDecider(dice.NewScripted(6), armor.NewResolver()),
		registry: NewRegistry(),
	}
}

func (h *harness) state(cmd command.Command) State {
	h.t.Helper()
	ctx := context.Background()
	st := State{Actors: map[string]actor.Actor{}}
	if cmd.SessionID != "" {
		err := docstore.LoadJSON(ctx, h.store, docstore.CombatRef(cmd.SessionID), &st.Session)
		switch {
		case err == nil:
			st.Exists = true
		case !errors.Is(err, docstore.ErrNotFound):
			h.t.Fatalf("load session: %v", err)
		}
	}
	ids := append(st.Session.ActorIDs(), ActorIDs(cmd)...)
	for _, id := range ids {
		var a actor.Actor
		if err := docstore.LoadJSON(ctx, h.store, docstore.ActorRef(id), &a); err == nil {
			st.Actors[id] = a
		}
	}
	return st
}

func (h *harness) run(sessionID string, cmdType command.Type, payload any) command.Decision {
	h.t.Helper()
	cmd, err := command.New(sessionID, cmdType, payload)
	if err != nil {
		h.t.Fatalf("new %s: %v", cmdType, err)
	}
	cmd, err = h.registry.Validate(cmd)
	if err != nil {
		h.t.Fatalf("validate %s: %v", cmdType, err)
	}
	decision := h.decider.Decide(h.state(cmd), cmd, fixedNow)
	if !decision.Batch.Empty() {
		if err := h.store.Commit(context.Background(), decision.Batch); err != nil {
			h.t.Fatalf("commit %s: %v", cmdType, err)
		}
	}
	return decision
}

func (h *harness) must(cmdType command.Type, payload any) command.Decision {
	h.t.Helper()
	d := h.run(testSession, cmdType, payload)
	if d.Rejected() {
		h.t.Fatalf("%s rejected: %+v", cmdType, d.Rejections)
	}
	return d
}

func (h *harness) session() Session {
	h.t.Helper()
	var s Session
	if err := docstore.LoadJSON(context.Background(), h.store, docstore.CombatRef(testSession), &s); err != nil {
		h.t.Fatalf("load session: %v", err)
	}
	return s
}

func (h *harness) actor(id string) actor.Actor {
	h.t.Helper()
	var a actor.Actor
	if err := docstore.LoadJSON(context.Background(), h.store, docstore.ActorRef(id), &a); err != nil {
		h.t.Fatalf("load actor %s: %v", id, err)
	}
	return a
}

// setup creates a session with the given settings and adds one combatant
// per actor.
func (h *harness) setup(settings Settings, actorIDs ...string) {
	h.t.Helper()
	h.must(CommandCreate, CreatePayload{Settings: settings})
	for _, id := range actorIDs {
		h.must(CommandAddCombatant, AddCombatantPayload{ActorID: id})
	}
}

func hasRecord(d command.Decision, recordType command.RecordType) bool {
	for _, r := range d.Records {
		if r.Type == recordType {
			return true
		}
	}
	return false
}

func rejectionCode(d command.Decision) string {
	if len(d.Rejections) == 0 {
		return ""
	}
	return d.Rejections[0].Code
}

func threeFighters(t *testing.T) *harness {
	return newHarness(t, fighter("ace", 5, 4), fighter("bruiser", 3, 3), drone("drone"))
}

func TestCreateRejectsExistingCombat(t *testing.T) {
	h := threeFighters(t)
	h.must(CommandCreate, nil)
	d := h.run(testSession, CommandCreate, nil)
	if rejectionCode(d) != RejectionCombatExists {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionCombatExists)
	}
	if got := h.session().Settings.InitialRound; got != DefaultInitialRound {
		t.Fatalf("initial round = %d, want %d", got, DefaultInitialRound)
	}
}

func TestStartRejectsWithoutCombatants(t *testing.T) {
	h := threeFighters(t)
	h.must(CommandCreate, nil)
	d := h.run(testSession, CommandStart, nil)
	if rejectionCode(d) != RejectionNoCombatants {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionNoCombatants)
	}
}

func TestCommandsAgainstMissingCombat(t *testing.T) {
	h := threeFighters(t)
	for _, cmdType := range []command.Type{CommandStart, CommandNextTurn, CommandRollInitiative} {
		d := h.run(testSession, cmdType, nil)
		if rejectionCode(d) != RejectionCombatNotFound {
			t.Fatalf("%s rejection = %q, want %q", cmdType, rejectionCode(d), RejectionCombatNotFound)
		}
	}
}

func TestStartRollsOrdersAndEntersFirstTurn(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "bruiser", "drone", "ace")

	d := h.must(CommandStart, TransitionPayload{Expect: At(0, 0)})
	for _, rt := range []command.RecordType{RecordInitiativeRolled, RecordCombatStarted, RecordRoundStarted, RecordTurnStarted, RecordActionsChanged} {
		if !hasRecord(d, rt) {
			t.Fatalf("missing %s record", rt)
		}
	}

	s := h.session()
	if s.Round != 1 || s.Turn != 0 || !s.Started {
		t.Fatalf("session = round %d turn %d started %v, want 1/0/true", s.Round, s.Turn, s.Started)
	}
	if want := []string{"ace", "bruiser", "drone"}; !reflect.DeepEqual(s.Turns, want) {
		t.Fatalf("turns = %v, want %v", s.Turns, want)
	}
	wantScores := map[string]int{"ace": 15, "bruiser": 12, "drone": 10}
	for id, want := range wantScores {
		if got := s.Combatants[id].Score(); got != want {
			t.Fatalf("%s initiative = %d, want %d", id, got, want)
		}
	}
	if got := h.actor("ace").Actions; got != (actor.Actions{Major: 1, Minor: 2, Free: actor.Unlimited, Round: 1}) {
		t.Fatalf("ace actions = %+v", got)
	}

	again := h.run(testSession, CommandStart, nil)
	if rejectionCode(again) != RejectionCombatAlreadyStart {
		t.Fatalf("second start rejection = %q", rejectionCode(again))
	}
}

func TestStartOnlyAutoRollsNPCs(t *testing.T) {
	h := threeFighters(t)
	h.must(CommandCreate, CreatePayload{Settings: Settings{OnlyAutoRollNPC: true}})
	h.must(CommandAddCombatant, AddCombatantPayload{ActorID: "ace", PlayerControlled: true})
	h.must(CommandAddCombatant, AddCombatantPayload{ActorID: "drone"})
	h.must(CommandStart, nil)

	s := h.session()
	if s.Combatants["ace"].Rolled() {
		t.Fatal("player controlled combatant should not be auto rolled")
	}
	if !s.Combatants["drone"].Rolled() {
		t.Fatal("npc should be auto rolled")
	}
	if s.Turns[0] != "drone" {
		t.Fatalf("turns = %v, want drone first", s.Turns)
	}
}

func TestNextTurnAdvancesThenFallsThroughToNextRound(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace", "bruiser", "drone")
	h.must(CommandStart, nil)

	h.must(CommandNextTurn, TransitionPayload{Expect: At(1, 0)})
	h.must(CommandNextTurn, TransitionPayload{Expect: At(1, 1)})
	if s := h.session(); s.Turn != 2 {
		t.Fatalf("turn = %d, want 2", s.Turn)
	}

	d := h.must(CommandNextTurn, TransitionPayload{Expect: At(1, 2)})
	if !hasRecord(d, RecordRoundEnded) || !hasRecord(d, RecordRoundStarted) {
		t.Fatalf("records = %+v, want round_ended and round_started", d.Records)
	}
	s := h.session()
	if s.Round != 2 || s.Turn != 0 {
		t.Fatalf("session = round %d turn %d, want 2/0", s.Round, s.Turn)
	}
	if !s.SkipRollInitiative {
		t.Fatal("skip roll initiative should be set after a round advance")
	}
	if got := h.actor("bruiser").Actions.Round; got != 2 {
		t.Fatalf("bruiser budget round = %d, want 2", got)
	}
}

func TestNextTurnOnUnstartedCombatStarts(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace")
	d := h.must(CommandNextTurn, nil)
	if !hasRecord(d, RecordCombatStarted) {
		t.Fatalf("records = %+v, want combat_started", d.Records)
	}
	if s := h.session(); s.Round != 1 {
		t.Fatalf("round = %d, want 1", s.Round)
	}
}

func TestNextRoundIsIdempotentPerExpectedPosition(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace", "bruiser")
	h.must(CommandStart, nil)
	h.must(CommandSpendMajor, ActorPayload{ActorID: "ace"})

	first := h.must(CommandNextRound, TransitionPayload{Expect: At(1, 0)})
	if first.Batch.Empty() {
		t.Fatal("first next_round should write")
	}
	h.must(CommandSpendMajor, ActorPayload{ActorID: "ace"})

	second := h.must(CommandNextRound, TransitionPayload{Expect: At(1, 0)})
	if !second.Batch.Empty() {
		t.Fatalf("redelivered next_round wrote %+v", second.Batch)
	}
	if !hasRecord(second, RecordAlreadyApplied) {
		t.Fatalf("records = %+v, want already_applied", second.Records)
	}
	if s := h.session(); s.Round != 2 {
		t.Fatalf("round = %d, want 2", s.Round)
	}
	if got := h.actor("ace").Actions.Major; got != 0 {
		t.Fatalf("ace major = %d, want spent action kept", got)
	}
}

func TestNextRoundReducesScoresAndRollsOnlyNewcomers(t *testing.T) {
	late := fighter("late", 1, 1)
	h := newHarness(t, fighter("ace", 5, 4), fighter("bruiser", 3, 3), drone("drone"), late)
	h.setup(Settings{InitiativePassReduction: 10}, "ace", "bruiser", "drone")
	h.must(CommandStart, nil)

	h.must(CommandAddCombatant, AddCombatantPayload{ActorID: "late"})
	s := h.session()
	if s.Turns[0] != "ace" || s.Turns[len(s.Turns)-1] != "late" {
		t.Fatalf("turns = %v, want current kept and newcomer last", s.Turns)
	}
	if s.Turn != 0 {
		t.Fatalf("turn = %d, want 0", s.Turn)
	}

	h.must(CommandNextRound, TransitionPayload{Expect: At(1, 0)})
	s = h.session()
	want := map[string]int{"ace": 5, "bruiser": 2, "drone": 0, "late": 8}
	for id, score := range want {
		if got := s.Combatants[id].Score(); got != score {
			t.Fatalf("%s initiative = %d, want %d", id, got, score)
		}
	}
	if order := []string{"late", "ace", "bruiser", "drone"}; !reflect.DeepEqual(s.Turns, order) {
		t.Fatalf("turns = %v, want %v", s.Turns, order)
	}

	h.must(CommandNextTurn, nil)
	h.must(CommandNextTurn, nil)
	if s = h.session(); s.Turn != 2 {
		t.Fatalf("turn = %d, want bruiser at 2", s.Turn)
	}
	// Drone has no initiative left, so the round ends.
	h.must(CommandNextTurn, nil)
	if s = h.session(); s.Round != 3 {
		t.Fatalf("round = %d, want 3", s.Round)
	}
}

func TestNextTurnDefeatedCombatants(t *testing.T) {
	tests := []struct {
		name         string
		skipDefeated bool
		wantTurn     int
	}{
		{name: "skipped", skipDefeated: true, wantTurn: 2},
		{name: "kept", skipDefeated: false, wantTurn: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := threeFighters(t)
			h.setup(Settings{SkipDefeated: tc.skipDefeated}, "ace", "bruiser", "drone")
			h.must(CommandStart, nil)

			d := h.must(CommandApplyDamage, ApplyDamagePayload{ActorID: "bruiser", Type: damage.TypePhysical, Amount: 10})
			if !hasRecord(d, RecordStatusChanged) {
				t.Fatalf("records = %+v, want status_changed", d.Records)
			}
			if !h.session().Combatants["bruiser"].Defeated {
				t.Fatal("bruiser combatant should be defeated")
			}
			if got := h.actor("bruiser").Statuses; !reflect.DeepEqual(got, []string{condition.StatusDying}) {
				t.Fatalf("statuses = %v", got)
			}

			h.must(CommandNextTurn, nil)
			if got := h.session().Turn; got != tc.wantTurn {
				t.Fatalf("turn = %d, want %d", got, tc.wantTurn)
			}
		})
	}
}

func TestEnterActionPhaseRecoil(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace")
	h.must(CommandStart, nil)

	h.must(CommandRecordAttack, RecordAttackPayload{CombatantID: "ace"})
	if got := h.actor("ace").Modifiers.Recoil; got != 1 {
		t.Fatalf("recoil = %d, want 1", got)
	}
	two := 2
	h.must(CommandRecordAttack, RecordAttackPayload{CombatantID: "ace", Recoil: &two})
	if got := h.actor("ace").Modifiers.Recoil; got != 3 {
		t.Fatalf("recoil = %d, want progressive 3", got)
	}

	// Fired last turn: recoil carries, counter moves to 1.
	h.must(CommandNextTurn, nil)
	if got := h.actor("ace").Modifiers.Recoil; got != 3 {
		t.Fatalf("recoil after one turn = %d, want 3", got)
	}
	if tsla := h.session().Combatants["ace"].TurnsSinceLastAttack; tsla == nil || *tsla != 1 {
		t.Fatalf("turns since last attack = %v, want 1", tsla)
	}

	// Held fire: recoil clears.
	h.must(CommandNextTurn, nil)
	if got := h.actor("ace").Modifiers.Recoil; got != 0 {
		t.Fatalf("recoil after idle turn = %d, want 0", got)
	}
}

func TestRecordDefenseStacksAndClearsOnActionPhase(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace", "bruiser")
	h.must(CommandStart, nil)

	h.must(CommandRecordDefense, CombatantPayload{CombatantID: "ace"})
	h.must(CommandRecordDefense, CombatantPayload{CombatantID: "ace"})
	if got := h.actor("ace").Modifiers.MultiDefense; got != -2 {
		t.Fatalf("multi defense = %d, want -2", got)
	}
	h.must(CommandEnterActionPhase, EnterActionPhasePayload{})
	if got := h.actor("ace").Modifiers.MultiDefense; got != 0 {
		t.Fatalf("multi defense = %d, want cleared", got)
	}
}

func TestAdjustInitiative(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace", "bruiser")

	d := h.run(testSession, CommandAdjustInitiative, AdjustInitiativePayload{CombatantID: "ace", Delta: 2})
	if rejectionCode(d) != RejectionCombatantNotRolled {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionCombatantNotRolled)
	}

	h.must(CommandStart, nil)
	h.must(CommandAdjustInitiative, AdjustInitiativePayload{CombatantID: "bruiser", Delta: 5})
	s := h.session()
	if s.Turns[0] != "bruiser" || s.Turn != 1 {
		t.Fatalf("turns = %v turn %d, want bruiser first and ace still acting", s.Turns, s.Turn)
	}

	h.must(CommandAdjustInitiative, AdjustInitiativePayload{CombatantID: "ace", Delta: -40})
	if got := h.session().Combatants["ace"].Score(); got != 0 {
		t.Fatalf("ace initiative = %d, want floored at 0", got)
	}
}

func TestRemoveCombatant(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace", "bruiser", "drone")
	h.must(CommandStart, nil)
	h.must(CommandNextTurn, nil)

	h.must(CommandRemoveCombatant, CombatantPayload{CombatantID: "ace"})
	s := h.session()
	if _, ok := s.Combatants["ace"]; ok {
		t.Fatal("ace should be removed")
	}
	if want := []string{"bruiser", "drone"}; !reflect.DeepEqual(s.Turns, want) {
		t.Fatalf("turns = %v, want %v", s.Turns, want)
	}
	if s.Turn != 0 {
		t.Fatalf("turn = %d, want bruiser kept at 0", s.Turn)
	}

	d := h.must(CommandRemoveCombatant, CombatantPayload{CombatantID: "ace"})
	if !hasRecord(d, RecordAlreadyApplied) {
		t.Fatalf("records = %+v, want already_applied", d.Records)
	}
}

func TestRemoveActingCombatantStartsNextTurn(t *testing.T) {
	tests := []struct {
		name        string
		remove      string
		wantStarted bool
		wantTurns   []string
	}{
		{name: "acting", remove: "ace", wantStarted: true, wantTurns: []string{"bruiser", "drone"}},
		{name: "waiting", remove: "drone", wantStarted: false, wantTurns: []string{"ace", "bruiser"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := threeFighters(t)
			h.setup(Settings{}, "ace", "bruiser", "drone")
			h.must(CommandStart, nil)
			h.must(CommandRecordDefense, CombatantPayload{CombatantID: "bruiser"})

			d := h.must(CommandRemoveCombatant, CombatantPayload{CombatantID: tc.remove})
			if got := hasRecord(d, RecordTurnStarted); got != tc.wantStarted {
				t.Fatalf("turn started = %v, want %v", got, tc.wantStarted)
			}
			s := h.session()
			if !reflect.DeepEqual(s.Turns, tc.wantTurns) || s.Turn != 0 {
				t.Fatalf("turns = %v turn %d, want %v turn 0", s.Turns, s.Turn, tc.wantTurns)
			}
			wantDefense := -1
			if tc.wantStarted {
				wantDefense = 0
			}
			if got := h.actor("bruiser").Modifiers.MultiDefense; got != wantDefense {
				t.Fatalf("bruiser multi defense = %d, want %d", got, wantDefense)
			}
		})
	}
}

func TestAddCombatantTwiceIsAlreadyApplied(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace")
	d := h.must(CommandAddCombatant, AddCombatantPayload{ActorID: "ace"})
	if !hasRecord(d, RecordAlreadyApplied) {
		t.Fatalf("records = %+v, want already_applied", d.Records)
	}
	clash := h.run(testSession, CommandAddCombatant, AddCombatantPayload{CombatantID: "ace", ActorID: "bruiser"})
	if rejectionCode(clash) != RejectionCombatantExists {
		t.Fatalf("rejection = %q", rejectionCode(clash))
	}
	missing := h.run(testSession, CommandAddCombatant, AddCombatantPayload{ActorID: "ghost"})
	if rejectionCode(missing) != RejectionActorNotFound {
		t.Fatalf("rejection = %q", rejectionCode(missing))
	}
}

func TestEndClearsMultiDefenseAndIsIdempotent(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace", "bruiser")
	h.must(CommandStart, nil)
	h.must(CommandRecordDefense, CombatantPayload{CombatantID: "bruiser"})

	d := h.must(CommandEnd, nil)
	if !hasRecord(d, RecordCombatEnded) {
		t.Fatalf("records = %+v", d.Records)
	}
	if got := h.actor("bruiser").Modifiers.MultiDefense; got != 0 {
		t.Fatalf("multi defense = %d, want cleared", got)
	}
	again := h.must(CommandEnd, nil)
	if !hasRecord(again, RecordAlreadyApplied) {
		t.Fatalf("records = %+v, want already_applied", again.Records)
	}
	if d := h.run(testSession, CommandNextTurn, nil); rejectionCode(d) != RejectionCombatEnded {
		t.Fatalf("next turn after end rejection = %q", rejectionCode(d))
	}
}

func TestActionBudgetCommands(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "ace")
	h.must(CommandStart, nil)

	h.must(CommandSpendMajor, ActorPayload{ActorID: "ace"})
	if d := h.run("", CommandSpendMajor, ActorPayload{ActorID: "ace"}); rejectionCode(d) != RejectionNoMajorActions {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionNoMajorActions)
	}
	if d := h.run("", CommandConvertMinor, ActorPayload{ActorID: "ace"}); rejectionCode(d) != RejectionNotEnoughMinor {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionNotEnoughMinor)
	}
	h.must(CommandSpendMinor, ActorPayload{ActorID: "ace"})
	h.must(CommandSpendMinor, ActorPayload{ActorID: "ace"})
	if d := h.run("", CommandSpendMinor, ActorPayload{ActorID: "ace"}); rejectionCode(d) != RejectionNoMinorActions {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionNoMinorActions)
	}
	if got := h.actor("ace").Actions; got.Major != 0 || got.Minor != 0 {
		t.Fatalf("actions = %+v, want spent", got)
	}
}

func TestEdgeCommands(t *testing.T) {
	h := threeFighters(t)

	d := h.run("", CommandGainEdge, GainEdgePayload{ActorID: "ace", Trigger: TriggerPayload{
		Kind:         edge.TriggerRatingAdvantage,
		AttackRating: 12,
		DefenderID:   "bruiser",
		Side:         edge.SideAttacker,
	}})
	if !hasRecord(d, RecordEdgeGained) {
		t.Fatalf("records = %+v, want edge_gained", d.Records)
	}
	ace := h.actor("ace")
	if ace.Edge.Uses != 2 || ace.Round.EdgeGained != 1 {
		t.Fatalf("ace edge = %+v round %+v", ace.Edge, ace.Round)
	}

	h.must(CommandGainEdge, GainEdgePayload{ActorID: "ace", Trigger: TriggerPayload{Kind: edge.TriggerAwarded}})
	denied := h.run("", CommandGainEdge, GainEdgePayload{ActorID: "ace", Trigger: TriggerPayload{Kind: edge.TriggerAwarded}})
	if denied.Rejected() || !hasRecord(denied, RecordEdgeDenied) || !denied.Batch.Empty() {
		t.Fatalf("gain at maximum = %+v, want accepted edge_denied without writes", denied)
	}

	h.must(CommandEdgeBoost, EdgeBoostPayload{ActorID: "ace", Boost: edge.BoostGiveAlly, TargetID: "bruiser"})
	if got := h.actor("ace").Edge.Uses; got != 1 {
		t.Fatalf("ace uses = %d, want 1", got)
	}
	if got := h.actor("bruiser").Edge.Uses; got != 2 {
		t.Fatalf("bruiser uses = %d, want 2", got)
	}
	if d := h.run("", CommandEdgeBoost, EdgeBoostPayload{ActorID: "ace", Boost: edge.BoostRerollFailed}); rejectionCode(d) != RejectionInsufficientEdge {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionInsufficientEdge)
	}

	h.must(CommandSpendEdge, SpendEdgePayload{ActorID: "bruiser", Amount: 5})
	if got := h.actor("bruiser").Edge.Uses; got != 0 {
		t.Fatalf("bruiser uses = %d, want clamped to 0", got)
	}
	if d := h.run("", CommandSpendEdge, SpendEdgePayload{ActorID: "drone", Amount: 1}); rejectionCode(d) != RejectionNoEdge {
		t.Fatalf("rejection = %q, want %q", rejectionCode(d), RejectionNoEdge)
	}
}

func TestHealAndResetRun(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{}, "bruiser")
	h.must(CommandApplyDamage, ApplyDamagePayload{ActorID: "bruiser", Type: damage.TypeStun, Amount: 14})
	b := h.actor("bruiser")
	if b.Tracks.Stun.Value != 10 || b.Tracks.Physical.Value != 2 {
		t.Fatalf("tracks = stun %d physical %d, want 10/2", b.Tracks.Stun.Value, b.Tracks.Physical.Value)
	}
	if !h.session().Combatants["bruiser"].Defeated {
		t.Fatal("unconscious combatant should be defeated")
	}

	h.must(CommandHeal, HealPayload{ActorID: "bruiser", Track: actor.TrackStun, Amount: 3})
	if got := h.actor("bruiser").Statuses; len(got) != 0 {
		t.Fatalf("statuses = %v, want cleared", got)
	}
	if h.session().Combatants["bruiser"].Defeated {
		t.Fatal("healed combatant should not be defeated")
	}

	h.must(CommandSpendEdge, SpendEdgePayload{ActorID: "bruiser", Amount: 1})
	h.must(CommandResetRun, ActorPayload{ActorID: "bruiser"})
	b = h.actor("bruiser")
	if b.Tracks.Stun.Value != 0 || b.Tracks.Physical.Value != 0 {
		t.Fatalf("tracks not cleared: %+v", b.Tracks)
	}
	if b.Edge.Uses != 3 {
		t.Fatalf("edge uses = %d, want restored to 3", b.Edge.Uses)
	}
	if b.Actions != (actor.Actions{Major: 1, Minor: 1, Free: actor.Unlimited}) {
		t.Fatalf("actions = %+v", b.Actions)
	}
}

func TestDecideDoesNotMutateState(t *testing.T) {
	h := threeFighters(t)
	h.setup(Settings{InitiativePassReduction: 3}, "ace", "bruiser")
	h.must(CommandStart, nil)
	h.must(CommandRecordAttack, RecordAttackPayload{CombatantID: "ace"})

	cmd, err := command.New(testSession, CommandNextRound, nil)
	if err != nil {
		t.Fatalf("new command: %v", err)
	}
	st := h.state(cmd)
	before := State{Session: st.Session.Clone(), Exists: st.Exists, Actors: map[string]actor.Actor{}}
	for id, a := range st.Actors {
		before.Actors[id] = a.Clone()
	}

	d := h.decider.Decide(st, cmd, fixedNow)
	if d.Rejected() || d.Batch.Empty() {
		t.Fatalf("decision = %+v", d)
	}
	if !reflect.DeepEqual(st, before) {
		t.Fatal("decide mutated its input state")
	}
}

func TestDecideUnknownCommand(t *testing.T) {
	d := NewDecider(dice.NewScripted(1), nil).Decide(State{}, command.Command{Type: "combat.unknown"}, nil)
	if rejectionCode(d) != RejectionUnsupportedCommand {
		t.Fatalf("rejection = %q", rejectionCode(d))
	}
}

func TestEdgeAwardRequiresGameMaster(t *testing.T) {
	tests := []struct {
		actorType command.ActorType
		wantCode  string
	}{
		{actorType: command.ActorTypeParticipant, wantCode: RejectionAwardNotAllowed},
		{actorType: command.ActorTypeGM},
		{actorType: command.ActorTypeSystem},
	}
	for _, tc := range tests {
		t.Run(string(tc.actorType), func(t *testing.T) {
			h := threeFighters(t)
			cmd, err := command.New("", CommandGainEdge, GainEdgePayload{ActorID: "ace", Trigger: TriggerPayload{Kind: edge.TriggerAwarded}})
			if err != nil {
				t.Fatalf("new command: %v", err)
			}
			cmd.ActorType = tc.actorType
			cmd.ActorID = "player-1"
			if cmd, err = h.registry.Validate(cmd); err != nil {
				t.Fatalf("validate: %v", err)
			}
			d := h.decider.Decide(h.state(cmd), cmd, fixedNow)
			if got := rejectionCode(d); got != tc.wantCode {
				t.Fatalf("rejection = %q, want %q", got, tc.wantCode)
			}
			if tc.wantCode != "" {
				if !d.Batch.Empty() || hasRecord(d, RecordEdgeGained) {
					t.Fatalf("rejected award still wrote: %+v", d)
				}
				return
			}
			if !hasRecord(d, RecordEdgeGained) {
				t.Fatalf("records = %+v, want edge_gained", d.Records)
			}
		})
	}
}
