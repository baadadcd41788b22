package phase

import (
	"sort"

	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
)

// DefaultInitialRound is the round a combat starts in.
const DefaultInitialRound = 1

// Stage is the coarse state machine position of a session.
type Stage string

const (
	StageNotStarted  Stage = "not_started"
	StageRoundActive Stage = "round_active"
	StageRoundEnding Stage = "round_ending"
	StageEnded       Stage = "ended"
)

// Settings are per-session options.
type Settings struct {
	SkipDefeated            bool `json:"skip_defeated"`
	OnlyAutoRollNPC         bool `json:"only_auto_roll_npc"`
	InitiativePassReduction int  `json:"initiative_pass_reduction"`
	InitialRound            int  `json:"initial_round"`
}

func (s Settings) normalized() Settings {
	if s.InitialRound <= 0 {
		s.InitialRound = DefaultInitialRound
	}
	s.InitiativePassReduction = max(s.InitiativePassReduction, 0)
	return s
}

// Combatant binds an actor to a session.
type Combatant struct {
	ID                   string `json:"id"`
	ActorID              string `json:"actor_id"`
	Initiative           *int   `json:"initiative"`
	Defeated             bool   `json:"defeated"`
	PlayerControlled     bool   `json:"player_controlled"`
	TurnsSinceLastAttack *int   `json:"turns_since_last_attack"`
}

// Rolled reports whether the combatant has an initiative score.
func (c Combatant) Rolled() bool { return c.Initiative != nil }

// Score returns the initiative score or 0.
func (c Combatant) Score() int {
	if c.Initiative == nil {
		return 0
	}
	return *c.Initiative
}

func (c Combatant) clone() Combatant {
	c.Initiative = clonePtr(c.Initiative)
	c.TurnsSinceLastAttack = clonePtr(c.TurnsSinceLastAttack)
	return c
}

// Session is the combat session document.
type Session struct {
	ID                 string               `json:"id"`
	Round              int                  `json:"round"`
	Turn               int                  `json:"turn"`
	Turns              []string             `json:"turns"`
	SkipRollInitiative bool                 `json:"skip_roll_initiative"`
	Started            bool                 `json:"started"`
	Ended              bool                 `json:"ended"`
	Settings           Settings             `json:"settings"`
	Combatants         map[string]Combatant `json:"combatants"`
}

// Stage derives the state machine position.
func (s Session) Stage() Stage {
	switch {
	case s.Ended:
		return StageEnded
	case !s.Started || s.Round == 0:
		return StageNotStarted
	case s.Turn >= len(s.Turns):
		return StageRoundEnding
	}
	return StageRoundActive
}

// Current returns the combatant whose turn it is.
func (s Session) Current() (Combatant, bool) {
	if s.Turn < 0 || s.Turn >= len(s.Turns) {
		return Combatant{}, false
	}
	c, ok := s.Combatants[s.Turns[s.Turn]]
	return c, ok
}

// CombatantIDs returns combatant ids sorted lexically.
func (s Session) CombatantIDs() []string {
	ids := make([]string, 0, len(s.Combatants))
	for id := range s.Combatants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CombatantsOf returns the ids of combatants backed by actorID.
func (s Session) CombatantsOf(actorID string) []string {
	var ids []string
	for _, id := range s.CombatantIDs() {
		if s.Combatants[id].ActorID == actorID {
			ids = append(ids, id)
		}
	}
	return ids
}

// ActorIDs returns the distinct actor ids referenced by combatants.
func (s Session) ActorIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, cid := range s.CombatantIDs() {
		aid := s.Combatants[cid].ActorID
		if aid == "" || seen[aid] {
			continue
		}
		seen[aid] = true
		ids = append(ids, aid)
	}
	return ids
}

// Clone deep-copies the session.
func (s Session) Clone() Session {
	out := s
	out.Turns = append([]string(nil), s.Turns...)
	out.Combatants = make(map[string]Combatant, len(s.Combatants))
	for id, c := range s.Combatants {
		out.Combatants[id] = c.clone()
	}
	return out
}

// State is everything a decision reads.
type State struct {
	Session Session
	// Exists is false when no session document was found.
	Exists bool
	Actors map[string]actor.Actor
}

// Session document paths.
const (
	PathRound              = "round"
	PathTurn               = "turn"
	PathTurns              = "turns"
	PathSkipRollInitiative = "skip_roll_initiative"
	PathStarted            = "started"
	PathEnded              = "ended"
)

// CombatantPath addresses a combatant or one of its fields.
func CombatantPath(id string, field ...string) string {
	return docstore.Key(append([]string{"combatants", id}, field...)...)
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intPtr(v int) *int { return &v }

func intOrNull(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
