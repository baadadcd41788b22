// Package armor resolves an actor's protection from its equipped items.
//
// The standing profile is the best single armor item as base, plus every
// equipped accessory, plus elemental resistances summed across all equipped
// protective items. Resolving against an attack folds penetration and the
// matching elemental resistance in as modifiers.
package armor

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
)

// Element names an elemental damage kind.
type Element string

const (
	ElementNone        Element = ""
	ElementFire        Element = "fire"
	ElementCold        Element = "cold"
	ElementElectricity Element = "electricity"
	ElementAcid        Element = "acid"
	ElementRadiation   Element = "radiation"
)

// Attack is the part of an incoming attack that affects armor.
type Attack struct {
	// AP is the armor penetration rating; its magnitude is subtracted.
	AP      int
	Element Element
}

// Modifier is one named contribution to the armor value.
type Modifier struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Profile is a resolved armor profile.
type Profile struct {
	Base        int        `json:"base"`
	Mods        []Modifier `json:"mod,omitempty"`
	Value       int        `json:"value"`
	Fire        int        `json:"fire"`
	Cold        int        `json:"cold"`
	Electricity int        `json:"electricity"`
	Acid        int        `json:"acid"`
	Radiation   int        `json:"radiation"`
}

// Resistance returns the profile's resistance to element.
func (p Profile) Resistance(element Element) int {
	switch element {
	case ElementFire:
		return p.Fire
	case ElementCold:
		return p.Cold
	case ElementElectricity:
		return p.Electricity
	case ElementAcid:
		return p.Acid
	case ElementRadiation:
		return p.Radiation
	case ElementNone:
		return 0
	}
	return 0
}

func (p Profile) clone() Profile {
	p.Mods = append([]Modifier(nil), p.Mods...)
	return p
}

func (p *Profile) recompute() {
	total := p.Base
	for _, m := range p.Mods {
		total += m.Value
	}
	p.Value = max(total, 0)
}

// Modifier names added when resolving against an attack.
const (
	ModArmorPenetration = "armor_penetration"
	ModElemental        = "elemental_resistance"
)

type cacheEntry struct {
	hash    uint64
	profile Profile
}

// Resolver memoizes standing profiles per actor, keyed by a content hash of
// the equipped protective items. Any change to those items changes the hash,
// so stale entries are never served. Safe for concurrent use.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
	// computed counts cache misses.
	computed int
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: map[string]cacheEntry{}}
}

// Resolve returns the actor's armor profile, optionally against an attack.
// Categories without armor capability resolve to a zero profile.
func (r *Resolver) Resolve(a actor.Actor, attack *Attack) Profile {
	if !a.CanWearArmor() {
		return Profile{}
	}
	profile := r.standing(a)
	if attack == nil {
		return profile
	}
	if attack.AP != 0 {
		profile.Mods = append(profile.Mods, Modifier{Name: ModArmorPenetration, Value: -abs(attack.AP)})
	}
	if res := profile.Resistance(attack.Element); res > 0 {
		profile.Mods = append(profile.Mods, Modifier{Name: ModElemental, Value: res})
	}
	profile.recompute()
	return profile
}

// DefenseRating is armor value plus body, never below zero.
func (r *Resolver) DefenseRating(a actor.Actor) int {
	return max(r.Resolve(a, nil).Value+a.Attribute(actor.AttrBody), 0)
}

// Invalidate drops the memoized profile for an actor.
func (r *Resolver) Invalidate(actorID string) {
	r.mu.Lock()
	delete(r.cache, actorID)
	r.mu.Unlock()
}

// Misses reports how many profiles were computed rather than served from cache.
func (r *Resolver) Misses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.computed
}

func (r *Resolver) standing(a actor.Actor) Profile {
	hash := EquipmentHash(a.Items)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		r.cache = map[string]cacheEntry{}
	}
	if entry, ok := r.cache[a.ID]; ok && entry.hash == hash {
		return entry.profile.clone()
	}
	profile := Standing(a.Items)
	r.computed++
	if a.ID != "" {
		r.cache[a.ID] = cacheEntry{hash: hash, profile: profile}
	}
	return profile.clone()
}

// Standing computes a profile from items without memoization.
func Standing(items []actor.Item) Profile {
	var p Profile
	for _, item := range items {
		if !item.Equipped || !protective(item) {
			continue
		}
		switch item.Type {
		case actor.ItemArmor:
			p.Base = max(p.Base, item.Value)
		case actor.ItemAccessory:
			if item.Value != 0 {
				p.Mods = append(p.Mods, Modifier{Name: item.Name, Value: item.Value})
			}
		case actor.ItemGear:
		}
		p.Fire += item.Fire
		p.Cold += item.Cold
		p.Electricity += item.Electricity
		p.Acid += item.Acid
		p.Radiation += item.Radiation
	}
	p.recompute()
	return p
}

// EquipmentHash hashes the identity and protective values of every equipped
// armor or accessory item, in collection order.
func EquipmentHash(items []actor.Item) uint64 {
	d := xxhash.New()
	var buf [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		_, _ = d.Write(buf[:])
	}
	for _, item := range items {
		if !item.Equipped || !protective(item) {
			continue
		}
		_, _ = d.WriteString(item.ID)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(item.Name)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(string(item.Type))
		_, _ = d.WriteString("\x00")
		for _, v := range []int{item.Value, item.Fire, item.Cold, item.Electricity, item.Acid, item.Radiation} {
			writeInt(v)
		}
	}
	return d.Sum64()
}

func protective(item actor.Item) bool {
	return item.Type == actor.ItemArmor || item.Type == actor.ItemAccessory
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
