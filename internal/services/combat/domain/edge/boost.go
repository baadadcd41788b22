package edge

import (
	"fmt"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
)

// Boost is a fixed-cost edge expenditure.
type Boost string

const (
	BoostAddOneDie    Boost = "add_one_die"
	BoostGiveAlly     Boost = "give_ally"
	BoostRemoveFoe    Boost = "remove_foe"
	BoostAddAttribute Boost = "add_attribute"
	BoostRerollFailed Boost = "reroll_failed"
	BoostHealPhysical Boost = "heal_physical"
)

var boostCosts = map[Boost]int{
	BoostAddOneDie:    1,
	BoostGiveAlly:     2,
	BoostRemoveFoe:    2,
	BoostAddAttribute: 4,
	BoostRerollFailed: 4,
	BoostHealPhysical: 4,
}

// Cost returns the edge cost of b.
func Cost(b Boost) (int, error) {
	cost, ok := boostCosts[b]
	if !ok {
		return 0, fmt.Errorf("unknown edge boost %q", b)
	}
	return cost, nil
}

// TargetDelta is the change a boost makes to its target's edge uses.
func TargetDelta(b Boost) int {
	switch b {
	case BoostGiveAlly:
		return 1
	case BoostRemoveFoe:
		return -1
	}
	return 0
}

// NeedsTarget reports whether b acts on another actor.
func NeedsTarget(b Boost) bool { return TargetDelta(b) != 0 }

// SpendBoost pays for b. Unlike Spend it never clamps: an actor without
// enough uses is denied outright.
func SpendBoost(e actor.Edge, b Boost) (SpendResult, error) {
	cost, err := Cost(b)
	if err != nil {
		return SpendResult{}, err
	}
	if e.Value <= 0 {
		return SpendResult{Uses: e.Uses, Denied: true, Reason: ReasonNoEdge}, nil
	}
	if e.Uses < cost {
		return SpendResult{Uses: e.Uses, Denied: true, Reason: ReasonInsufficientEdge}, nil
	}
	return Spend(e, cost), nil
}
