// Package dice supplies the random outcome generator used by combat rules.
//
// Rules never touch a random source directly. They receive a Roller, which
// keeps deciders replayable: production wires a seeded roller and tests wire
// a scripted one.
package dice

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/louisbranch/shadowtrack/internal/platform/random"
)

// ErrMissingDice indicates a roll request had no dice specified.
var ErrMissingDice = errors.New("at least one die must be provided")

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// Roller produces die results. A roll of zero dice returns an empty slice.
type Roller interface {
	Roll(count, sides int) []int
}

// DiceSpec describes a die to roll and how many times to roll it.
type DiceSpec struct {
	Sides int
	Count int
}

// RollRequest describes a request to roll one or more dice.
type RollRequest struct {
	Dice []DiceSpec
	Seed int64
}

// DieRoll captures the results for a single dice spec.
type DieRoll struct {
	Sides   int
	Results []int
	Total   int
}

// RollResult captures the results from rolling multiple dice.
type RollResult struct {
	Rolls []DieRoll
	Total int
}

// RollDice rolls dice based on the provided request.
//
// RollDice is deterministic with respect to Seed: the same seed and the same
// Dice slice always produce the same result. Specs are processed in slice
// order and each DieRoll total is the sum of its results.
func RollDice(request RollRequest) (RollResult, error) {
	if len(request.Dice) == 0 {
		return RollResult{}, ErrMissingDice
	}

	rng := rand.New(rand.NewSource(request.Seed))
	rolls := make([]DieRoll, 0, len(request.Dice))
	total := 0
	for _, spec := range request.Dice {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return RollResult{}, ErrInvalidDiceSpec
		}
		results := make([]int, spec.Count)
		rollTotal := 0
		for i := range results {
			results[i] = rng.Intn(spec.Sides) + 1
			rollTotal += results[i]
		}
		rolls = append(rolls, DieRoll{Sides: spec.Sides, Results: results, Total: rollTotal})
		total += rollTotal
	}
	return RollResult{Rolls: rolls, Total: total}, nil
}

// SeededRoller draws a fresh seed for every roll and delegates to RollDice.
type SeededRoller struct {
	mu   sync.Mutex
	seed random.SeedFunc
	// last holds the seed of the most recent roll for audit logs.
	last int64
}

// NewSeededRoller returns a roller backed by seed. A nil seed uses crypto seeds.
func NewSeededRoller(seed random.SeedFunc) *SeededRoller {
	if seed == nil {
		seed = random.NewSeed
	}
	return &SeededRoller{seed: seed}
}

// Roll implements Roller. Seed failures fall back to the previous seed plus one
// so a transient entropy error never stalls a combat.
func (r *SeededRoller) Roll(count, sides int) []int {
	if count <= 0 || sides <= 0 {
		return []int{}
	}
	r.mu.Lock()
	seed, err := r.seed()
	if err != nil {
		seed = r.last + 1
	}
	r.last = seed
	r.mu.Unlock()

	result, err := RollDice(RollRequest{Dice: []DiceSpec{{Sides: sides, Count: count}}, Seed: seed})
	if err != nil {
		return []int{}
	}
	return result.Rolls[0].Results
}

// LastSeed reports the seed used by the most recent roll.
func (r *SeededRoller) LastSeed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Scripted replays a fixed list of results in order, wrapping around when
// exhausted. Values are clamped into [1, sides] for each roll.
type Scripted struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewScripted returns a roller that yields values in order.
func NewScripted(values ...int) *Scripted {
	return &Scripted{values: append([]int(nil), values...)}
}

// Roll implements Roller.
func (s *Scripted) Roll(count, sides int) []int {
	if count <= 0 || sides <= 0 {
		return []int{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, count)
	for i := range out {
		v := 1
		if len(s.values) > 0 {
			v = s.values[s.next%len(s.values)]
			s.next++
		}
		out[i] = min(max(v, 1), sides)
	}
	return out
}

// Sum totals a roll.
func Sum(results []int) int {
	total := 0
	for _, v := range results {
		total += v
	}
	return total
}

// D6 rolls count six-sided dice and returns their sum.
func D6(r Roller, count int) int {
	if r == nil || count <= 0 {
		return 0
	}
	return Sum(r.Roll(count, 6))
}

// Coin rolls 1d2 and returns 1 or 2.
func Coin(r Roller) int {
	if r == nil {
		return 1
	}
	results := r.Roll(1, 2)
	if len(results) == 0 {
		return 1
	}
	return results[0]
}
