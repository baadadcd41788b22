package edge

import "github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"

// TriggerKind names a trigger variant.
type TriggerKind string

const (
	TriggerRatingAdvantage TriggerKind = "rating_advantage"
	TriggerAttributeTest   TriggerKind = "attribute_test"
	TriggerAwarded         TriggerKind = "awarded"
)

// Trigger is the condition that may award edge. The set is closed.
type Trigger interface {
	Kind() TriggerKind
	holds(a actor.Actor) bool
}

// Side is the gaining actor's role in a rating comparison.
type Side string

const (
	SideAttacker Side = "attacker"
	SideDefender Side = "defender"
)

// RatingAdvantage holds when the gaining side beats the other rating by at
// least SignificantAdvantage. Ties favour the attacker.
type RatingAdvantage struct {
	AttackRating  int
	DefenseRating int
	Side          Side
}

func (RatingAdvantage) Kind() TriggerKind { return TriggerRatingAdvantage }

func (t RatingAdvantage) holds(actor.Actor) bool {
	diff := t.AttackRating - t.DefenseRating
	attackerWins := diff >= 0
	if diff < 0 {
		diff = -diff
	}
	if diff < SignificantAdvantage {
		return false
	}
	switch t.Side {
	case SideAttacker:
		return attackerWins
	case SideDefender:
		return !attackerWins
	}
	return false
}

// AttributeTest holds when the actor has a quality that grants edge on tests
// of Attribute.
type AttributeTest struct {
	Attribute string
}

func (AttributeTest) Kind() TriggerKind { return TriggerAttributeTest }

func (t AttributeTest) holds(a actor.Actor) bool {
	for _, q := range a.Qualities {
		if q.EdgeAttribute != "" && q.EdgeAttribute == t.Attribute {
			return true
		}
	}
	return false
}

// Awarded is a manual grant; it always holds.
type Awarded struct{}

func (Awarded) Kind() TriggerKind { return TriggerAwarded }

func (Awarded) holds(actor.Actor) bool { return true }

// Grant is the outcome of a gain attempt.
type Grant struct {
	Gained      bool   `json:"gained"`
	Reason      Reason `json:"reason"`
	Uses        int    `json:"uses"`
	RoundGained int    `json:"round_gained"`
}

// Gain decides whether a gains one edge. Gates apply in order: category,
// edge present, ceiling, round cap, trigger. A nil trigger never holds.
func Gain(a actor.Actor, trigger Trigger) Grant {
	e := a.EdgeOrZero()
	denied := func(reason Reason) Grant {
		return Grant{Reason: reason, Uses: e.Uses, RoundGained: a.Round.EdgeGained}
	}
	if !a.CanGainEdge() {
		return denied(ReasonSpirit)
	}
	if a.Edge == nil || e.Value <= 0 {
		return denied(ReasonNoEdge)
	}
	if e.Uses >= Ceiling(e) {
		return denied(ReasonMaximumEdge)
	}
	if a.Round.EdgeGained >= RoundCap {
		return denied(ReasonRoundCap)
	}
	if trigger == nil || !trigger.holds(a) {
		return denied(ReasonNoTrigger)
	}
	return Grant{
		Gained:      true,
		Reason:      ReasonGained,
		Uses:        Adjust(e, 1),
		RoundGained: a.Round.EdgeGained + 1,
	}
}
