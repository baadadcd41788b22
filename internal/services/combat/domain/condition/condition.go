// Package condition derives defeat status from an actor's damage tracks.
package condition

import "github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"

// Status names applied to actors.
const (
	StatusUnconscious = "unconscious"
	StatusDying       = "dying"
	StatusDead        = "dead"
)

// Status is the defeat state of an actor.
type Status struct {
	Unconscious bool `json:"unconscious"`
	Dying       bool `json:"dying"`
	Dead        bool `json:"dead"`
}

// Defeated reports whether any defeat flag is set.
func (s Status) Defeated() bool { return s.Unconscious || s.Dying || s.Dead }

// Strongest returns the most severe applicable status name, or "".
func (s Status) Strongest() string {
	switch {
	case s.Dead:
		return StatusDead
	case s.Dying:
		return StatusDying
	case s.Unconscious:
		return StatusUnconscious
	}
	return ""
}

// Determine computes defeat status from track fill. Missing tracks count as
// not full.
func Determine(a actor.Actor) Status {
	physical, _ := a.Track(actor.TrackPhysical)
	switch a.Category {
	case actor.CategorySprite, actor.CategoryIC:
		matrix, _ := a.Track(actor.TrackMatrix)
		return Status{Dead: matrix.Full()}
	case actor.CategoryVehicle:
		return Status{Dead: physical.Full()}
	case actor.CategoryCharacter, actor.CategorySpirit, actor.CategoryCritter:
		if a.Grunt {
			return Status{Dead: physical.Full()}
		}
		stun, _ := a.Track(actor.TrackStun)
		overflow, _ := a.Track(actor.TrackOverflow)
		return Status{
			Unconscious: stun.Full(),
			Dying:       physical.Full(),
			Dead:        overflow.Full(),
		}
	}
	return Status{}
}

// Patch is the idempotent status change that brings an actor in line with a
// determined Status.
type Patch struct {
	Remove   []string `json:"remove,omitempty"`
	Add      string   `json:"add,omitempty"`
	Defeated bool     `json:"defeated"`
}

// Changed reports whether applying the patch alters the status list.
func (p Patch) Changed() bool { return len(p.Remove) > 0 || p.Add != "" }

// Reconcile compares current visible statuses to the determined status. Only
// the most severe status is shown; weaker defeat statuses are removed and an
// already applied status is never added twice.
func Reconcile(current []string, status Status) Patch {
	want := status.Strongest()
	patch := Patch{Defeated: status.Defeated()}
	has := false
	for _, s := range current {
		switch s {
		case StatusUnconscious, StatusDying, StatusDead:
			if s == want {
				has = true
				continue
			}
			patch.Remove = append(patch.Remove, s)
		}
	}
	if want != "" && !has {
		patch.Add = want
	}
	return patch
}

// Apply returns current with the patch applied, preserving unrelated statuses.
func (p Patch) Apply(current []string) []string {
	out := make([]string, 0, len(current)+1)
	for _, s := range current {
		removed := false
		for _, r := range p.Remove {
			if s == r {
				removed = true
				break
			}
		}
		if !removed {
			out = append(out, s)
		}
	}
	if p.Add != "" {
		out = append(out, p.Add)
	}
	return out
}
