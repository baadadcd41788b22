package damage

import (
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
)

// Change records one track write.
type Change struct {
	Track  string `json:"track"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// Mutator applies track arithmetic to a staged actor and records each new
// value as a single-field update in the batch.
type Mutator struct {
	Actor   *actor.Actor
	Batch   *docstore.Batch
	Changes []Change
}

// NewMutator stages writes for a.
func NewMutator(a *actor.Actor, b *docstore.Batch) *Mutator {
	return &Mutator{Actor: a, Batch: b}
}

// Apply adds amount to the named track. It returns how the amount split;
// the overflow portion is left for the caller to route. Missing tracks absorb
// nothing and report the whole amount as overflow.
func (m *Mutator) Apply(track string, amount int) Portion {
	t, ok := m.Actor.Track(track)
	if !ok {
		return Portion{Overflow: max(amount, 0)}
	}
	portion := Split(amount, t)
	m.write(track, t, Apply(t, portion.Fits))
	return portion
}

// Heal removes amount from the named track and returns the amount healed.
func (m *Mutator) Heal(track string, amount int) int {
	t, ok := m.Actor.Track(track)
	if !ok {
		return 0
	}
	next := Heal(t, amount)
	m.write(track, t, next)
	return t.Value - next.Value
}

// Set writes an absolute track value, clamped into [0, max].
func (m *Mutator) Set(track string, value int) {
	t, ok := m.Actor.Track(track)
	if !ok {
		return
	}
	next := t
	next.Value = min(max(value, 0), t.Max)
	m.write(track, t, next)
}

func (m *Mutator) write(name string, before, after actor.Track) {
	if before.Value == after.Value {
		return
	}
	setTrackValue(m.Actor, name, after.Value)
	if m.Batch != nil {
		m.Batch.Add(docstore.NewUpdate(docstore.ActorRef(m.Actor.ID)).Set(actor.TrackValuePath(name), after.Value))
	}
	m.Changes = append(m.Changes, Change{Track: name, Before: before.Value, After: after.Value})
}

func setTrackValue(a *actor.Actor, name string, value int) {
	switch name {
	case actor.TrackPhysical:
		a.Tracks.Physical.Value = value
	case actor.TrackStun:
		a.Tracks.Stun.Value = value
	case actor.TrackMatrix:
		a.Tracks.Matrix.Value = value
	case actor.TrackOverflow:
		a.Tracks.Physical.Overflow.Value = value
	}
}
