// Package edge implements the edge ledger: spending, gated gains, and the
// fixed-cost edge boosts.
//
// Every function here is pure. Callers persist the returned uses and round
// counters; a denied result means nothing is written.
package edge

import "github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"

const (
	// MaxUses caps edge uses regardless of the edge attribute.
	MaxUses = 7
	// RoundCap is how much edge an actor can gain in one round.
	RoundCap = 2
	// SignificantAdvantage is the rating gap that awards edge.
	SignificantAdvantage = 4
)

// Reason explains a ledger result.
type Reason string

const (
	ReasonGained           Reason = "gained"
	ReasonSpent            Reason = "spent"
	ReasonMaximumEdge      Reason = "maximum_edge"
	ReasonRoundCap         Reason = "round_cap"
	ReasonNoTrigger        Reason = "no_trigger"
	ReasonSpirit           Reason = "spirit"
	ReasonNoEdge           Reason = "no_edge"
	ReasonInsufficientEdge Reason = "insufficient_edge"
)

// SpendResult is the outcome of a spend.
type SpendResult struct {
	Uses   int    `json:"uses"`
	Spent  int    `json:"spent"`
	Denied bool   `json:"denied"`
	Reason Reason `json:"reason"`
	// Repaired is set when a stored uses outside [0, value] was clamped first.
	Repaired bool `json:"repaired,omitempty"`
}

// Spend removes amount from uses, clamping the result into [0, value]. An
// actor with no edge at all is denied. A stored uses outside [0, value] is
// clamped back into range before the spend.
func Spend(e actor.Edge, amount int) SpendResult {
	if e.Value <= 0 {
		return SpendResult{Uses: e.Uses, Denied: true, Reason: ReasonNoEdge}
	}
	res := SpendResult{Reason: ReasonSpent}
	uses := e.Uses
	if uses < 0 || uses > e.Value {
		uses = clamp(uses, 0, e.Value)
		res.Repaired = true
	}
	next := max(uses-max(amount, 0), 0)
	res.Spent = uses - next
	res.Uses = next
	return res
}

// Adjust shifts uses by delta within [0, min(value, MaxUses)]. Used for
// effects that hand edge to or take it from another actor.
func Adjust(e actor.Edge, delta int) int {
	return clamp(max(e.Uses, 0)+delta, 0, Ceiling(e))
}

// Ceiling is the most uses an actor can hold.
func Ceiling(e actor.Edge) int {
	return max(min(e.Value, MaxUses), 0)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
