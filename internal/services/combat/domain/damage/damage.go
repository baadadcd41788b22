// Package damage implements track arithmetic and the damage pipeline that
// routes an incoming instance through armor, tracks, overflow and defeat.
package damage

import (
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/armor"
)

// Type is the damage kind.
type Type string

const (
	TypePhysical Type = "physical"
	TypeStun     Type = "stun"
	TypeMatrix   Type = "matrix"
)

// Valid reports whether t is a known damage type.
func (t Type) Valid() bool {
	switch t {
	case TypePhysical, TypeStun, TypeMatrix:
		return true
	}
	return false
}

// Instance is an incoming hit. It is built when an attack resolves and
// consumed immediately.
type Instance struct {
	Type    Type          `json:"type"`
	Amount  int           `json:"amount"`
	AP      int           `json:"ap,omitempty"`
	Element armor.Element `json:"element,omitempty"`
}

// Portion is how an amount splits against a track.
type Portion struct {
	Fits     int `json:"fits"`
	Overflow int `json:"overflow"`
}

// Split divides amount into what fits in the track and what overflows.
// Negative amounts are treated as zero.
func Split(amount int, t actor.Track) Portion {
	amount = max(amount, 0)
	room := max(t.Max-t.Value, 0)
	fits := min(amount, room)
	return Portion{Fits: fits, Overflow: amount - fits}
}

// Apply adds amount to the track, clamped at max.
func Apply(t actor.Track, amount int) actor.Track {
	if amount <= 0 || t.Value >= t.Max {
		return t
	}
	t.Value = min(t.Value+amount, t.Max)
	return t
}

// Heal subtracts amount from the track, clamped at zero.
func Heal(t actor.Track, amount int) actor.Track {
	if amount <= 0 || t.Value <= 0 {
		return t
	}
	t.Value = max(t.Value-amount, 0)
	return t
}

// KnocksDown reports whether net damage exceeds the actor's body.
func KnocksDown(net, body int) bool {
	return net > body
}

// StunOverflowToPhysical converts stun overflow into physical damage.
func StunOverflowToPhysical(overflow int) int {
	return max(overflow, 0) / 2
}
