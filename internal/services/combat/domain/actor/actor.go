// Package actor defines the combat-relevant shape of an actor document and
// the capability accessors rules consult.
//
// Actors are prepared outside the combat engine; this package only reads them
// and names the document paths rules write to.
package actor

import "fmt"

// Category is the closed set of actor kinds.
type Category string

const (
	CategoryCharacter Category = "character"
	CategorySpirit    Category = "spirit"
	CategorySprite    Category = "sprite"
	CategoryIC        Category = "ic"
	CategoryVehicle   Category = "vehicle"
	CategoryCritter   Category = "critter"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategoryCharacter,
	CategorySpirit,
	CategorySprite,
	CategoryIC,
	CategoryVehicle,
	CategoryCritter,
}

// ParseCategory validates a category string.
func ParseCategory(value string) (Category, error) {
	for _, c := range Categories {
		if string(c) == value {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown actor category %q", value)
}

// Attribute names used by combat rules.
const (
	AttrBody           = "body"
	AttrAgility        = "agility"
	AttrReaction       = "reaction"
	AttrStrength       = "strength"
	AttrWillpower      = "willpower"
	AttrLogic          = "logic"
	AttrIntuition      = "intuition"
	AttrCharisma       = "charisma"
	AttrMagic          = "magic"
	AttrResonance      = "resonance"
	AttrDataProcessing = "data_processing"
	AttrEdge           = "edge"
)

// Track is a damage pool.
type Track struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// Full reports whether the track is saturated. A zero-capacity track is never
// full so actors without a real monitor cannot be defeated by it.
func (t Track) Full() bool { return t.Max > 0 && t.Value >= t.Max }

// PhysicalTrack is the physical monitor with its overflow sub-track.
type PhysicalTrack struct {
	Track
	Overflow *Track `json:"overflow,omitempty"`
}

// Tracks holds the optional damage monitors of an actor.
type Tracks struct {
	Physical *PhysicalTrack `json:"physical,omitempty"`
	Stun     *Track         `json:"stun,omitempty"`
	Matrix   *Track         `json:"matrix,omitempty"`
}

// Edge is the edge resource: Value is the maximum, Uses what remains.
type Edge struct {
	Value int `json:"value"`
	Uses  int `json:"uses"`
}

// ItemType distinguishes base armor from stacking accessories.
type ItemType string

const (
	ItemArmor     ItemType = "armor"
	ItemAccessory ItemType = "accessory"
	ItemGear      ItemType = "gear"
)

// Item is one piece of equipment. Only armor and accessories protect.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        ItemType `json:"type"`
	Equipped    bool     `json:"equipped"`
	Value       int      `json:"value"`
	Fire        int      `json:"fire,omitempty"`
	Cold        int      `json:"cold,omitempty"`
	Electricity int      `json:"electricity,omitempty"`
	Acid        int      `json:"acid,omitempty"`
	Radiation   int      `json:"radiation,omitempty"`
}

// PerceptionMode selects which attribute pair drives initiative.
type PerceptionMode string

const (
	ModeMeatspace PerceptionMode = "meatspace"
	ModeAstral    PerceptionMode = "astral"
	ModeMatrix    PerceptionMode = "matrix"
)

// Initiative is the actor's initiative preparation block.
type Initiative struct {
	Mode PerceptionMode `json:"mode,omitempty"`
	// HotSim adds a die in matrix mode.
	HotSim       bool `json:"hot_sim,omitempty"`
	Modifier     int  `json:"modifier,omitempty"`
	DiceModifier int  `json:"dice_modifier,omitempty"`
	EdgeBoost    bool `json:"edge_boost,omitempty"`
}

// Unlimited marks an action count with no cap.
const Unlimited = -1

// Actions is the per-round action budget. Round records which combat round
// the budget was initialised for.
type Actions struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Free  int `json:"free"`
	Round int `json:"round"`
}

// RoundTracker holds per-round counters reset at every round start.
type RoundTracker struct {
	EdgeGained int `json:"edge_gained"`
}

// Modifiers are transient combat modifiers.
type Modifiers struct {
	MultiDefense int `json:"multi_defense"`
	Recoil       int `json:"recoil"`
}

// Quality is a trait. EdgeAttribute names an attribute whose tests grant edge.
type Quality struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	EdgeAttribute string `json:"edge_attribute,omitempty"`
}

// Actor is the combat view of an actor document.
type Actor struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Category   Category       `json:"category"`
	Grunt      bool           `json:"grunt,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty"`
	Tracks     Tracks         `json:"track"`
	Items      []Item         `json:"items,omitempty"`
	Edge       *Edge          `json:"edge,omitempty"`
	Initiative Initiative     `json:"initiative"`
	Actions    Actions        `json:"actions"`
	Round      RoundTracker   `json:"round"`
	Modifiers  Modifiers      `json:"modifiers"`
	Statuses   []string       `json:"statuses,omitempty"`
	Qualities  []Quality      `json:"qualities,omitempty"`
}

// Attribute returns the named attribute or 0 when absent.
func (a Actor) Attribute(name string) int {
	return a.Attributes[name]
}

// HasAttribute reports whether the actor defines the attribute at all.
func (a Actor) HasAttribute(name string) bool {
	_, ok := a.Attributes[name]
	return ok
}

// Track returns a copy of the named monitor. Unknown or absent tracks return
// ok=false rather than an error.
func (a Actor) Track(name string) (Track, bool) {
	switch name {
	case TrackPhysical:
		if a.Tracks.Physical == nil {
			return Track{}, false
		}
		return a.Tracks.Physical.Track, true
	case TrackStun:
		if a.Tracks.Stun == nil {
			return Track{}, false
		}
		return *a.Tracks.Stun, true
	case TrackMatrix:
		if a.Tracks.Matrix == nil {
			return Track{}, false
		}
		return *a.Tracks.Matrix, true
	case TrackOverflow:
		if a.Tracks.Physical == nil || a.Tracks.Physical.Overflow == nil {
			return Track{}, false
		}
		return *a.Tracks.Physical.Overflow, true
	}
	return Track{}, false
}

// EdgeOrZero returns the edge resource or a zero value.
func (a Actor) EdgeOrZero() Edge {
	if a.Edge == nil {
		return Edge{}
	}
	return *a.Edge
}

// HasStatus reports whether status is currently applied.
func (a Actor) HasStatus(status string) bool {
	for _, s := range a.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsMatrixNative reports whether the actor lives in the matrix.
func (a Actor) IsMatrixNative() bool {
	switch a.Category {
	case CategorySprite, CategoryIC:
		return true
	case CategoryCharacter, CategorySpirit, CategoryVehicle, CategoryCritter:
		return false
	}
	return false
}

// IsVehicle reports whether the actor is a vehicle or drone.
func (a Actor) IsVehicle() bool { return a.Category == CategoryVehicle }

// HasPhysicalBody reports whether the actor handles physical weapons and so
// accrues recoil and wears armor.
func (a Actor) HasPhysicalBody() bool {
	switch a.Category {
	case CategoryCharacter, CategorySpirit, CategoryVehicle, CategoryCritter:
		return true
	case CategorySprite, CategoryIC:
		return false
	}
	return false
}

// CanWearArmor reports whether equipment armor applies to the category.
func (a Actor) CanWearArmor() bool {
	switch a.Category {
	case CategoryCharacter, CategoryCritter, CategoryVehicle:
		return true
	case CategorySpirit, CategorySprite, CategoryIC:
		return false
	}
	return false
}

// CanGainEdge reports whether the category may ever gain edge.
func (a Actor) CanGainEdge() bool {
	switch a.Category {
	case CategorySpirit:
		return false
	case CategoryCharacter, CategorySprite, CategoryIC, CategoryVehicle, CategoryCritter:
		return true
	}
	return false
}

// RestoresEdgeOnReset reports whether a new run refills edge.
func (a Actor) RestoresEdgeOnReset() bool {
	switch a.Category {
	case CategoryCharacter, CategoryCritter:
		return true
	case CategorySpirit, CategorySprite, CategoryIC, CategoryVehicle:
		return false
	}
	return false
}

// Clone returns a deep copy so staged mutations never alias loaded state.
func (a Actor) Clone() Actor {
	out := a
	if a.Attributes != nil {
		out.Attributes = make(map[string]int, len(a.Attributes))
		for k, v := range a.Attributes {
			out.Attributes[k] = v
		}
	}
	if a.Tracks.Physical != nil {
		p := *a.Tracks.Physical
		if p.Overflow != nil {
			o := *p.Overflow
			p.Overflow = &o
		}
		out.Tracks.Physical = &p
	}
	if a.Tracks.Stun != nil {
		s := *a.Tracks.Stun
		out.Tracks.Stun = &s
	}
	if a.Tracks.Matrix != nil {
		m := *a.Tracks.Matrix
		out.Tracks.Matrix = &m
	}
	if a.Edge != nil {
		e := *a.Edge
		out.Edge = &e
	}
	out.Items = append([]Item(nil), a.Items...)
	out.Statuses = append([]string(nil), a.Statuses...)
	out.Qualities = append([]Quality(nil), a.Qualities...)
	return out
}
