package damage

import (
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/armor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/condition"
)

// Outcome summarizes a resolved hit.
type Outcome struct {
	Instance      Instance      `json:"instance"`
	Soak          int           `json:"soak"`
	Net           int           `json:"net"`
	DefenseRating int           `json:"defense_rating"`
	Armor         armor.Profile `json:"armor"`
	Changes       []Change      `json:"changes,omitempty"`
	// Excess is damage no track could hold.
	Excess      int              `json:"excess,omitempty"`
	KnockedDown bool             `json:"knocked_down"`
	Status      condition.Status `json:"status"`
	StatusPatch condition.Patch  `json:"status_patch"`
}

// Pipeline routes damage through armor, tracks, overflow and defeat.
type Pipeline struct {
	Armor *armor.Resolver
}

// Resolve applies inst to a after soak hits, staging every write in b. The
// actor is mutated in place to reflect the staged state.
//
// Stun that overflows its track continues as physical damage at half value;
// physical that overflows continues into the overflow sub-track. Anything
// left after that is reported as Excess.
func (p Pipeline) Resolve(a *actor.Actor, inst Instance, soak int, b *docstore.Batch) Outcome {
	resolver := p.Armor
	if resolver == nil {
		resolver = armor.NewResolver()
	}
	out := Outcome{Instance: inst, Soak: max(soak, 0)}
	out.Armor = resolver.Resolve(*a, &armor.Attack{AP: inst.AP, Element: inst.Element})
	// The rating reflects this attack: AP and element already sit in the
	// profile's modifiers.
	out.DefenseRating = max(out.Armor.Value+a.Attribute(actor.AttrBody), 0)
	out.Net = max(inst.Amount-out.Soak, 0)

	m := NewMutator(a, b)
	switch inst.Type {
	case TypeStun:
		out.Excess = p.applyStun(m, a, out.Net)
	case TypePhysical:
		out.Excess = p.applyPhysical(m, out.Net)
	case TypeMatrix:
		if a.Tracks.Matrix != nil {
			out.Excess = m.Apply(actor.TrackMatrix, out.Net).Overflow
		} else {
			out.Excess = out.Net
		}
	}
	out.Changes = m.Changes

	if inst.Type != TypeMatrix && a.HasPhysicalBody() {
		out.KnockedDown = KnocksDown(out.Net, a.Attribute(actor.AttrBody))
	}

	out.Status = condition.Determine(*a)
	out.StatusPatch = condition.Reconcile(a.Statuses, out.Status)
	if out.StatusPatch.Changed() {
		a.Statuses = out.StatusPatch.Apply(a.Statuses)
		if b != nil {
			b.Add(docstore.NewUpdate(docstore.ActorRef(a.ID)).Set(actor.PathStatuses, a.Statuses))
		}
	}
	return out
}

func (p Pipeline) applyStun(m *Mutator, a *actor.Actor, amount int) int {
	if a.Tracks.Stun == nil {
		// Grunts keep a single monitor.
		if a.Grunt {
			return p.applyPhysical(m, amount)
		}
		return amount
	}
	overflow := m.Apply(actor.TrackStun, amount).Overflow
	if overflow == 0 {
		return 0
	}
	physical := StunOverflowToPhysical(overflow)
	return p.applyPhysical(m, physical)
}

func (p Pipeline) applyPhysical(m *Mutator, amount int) int {
	if amount == 0 {
		return 0
	}
	overflow := m.Apply(actor.TrackPhysical, amount).Overflow
	if overflow == 0 {
		return 0
	}
	return m.Apply(actor.TrackOverflow, overflow).Overflow
}
