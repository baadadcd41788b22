package armor

import (
	"testing"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
)

func runner(items ...actor.Item) actor.Actor {
	return actor.Actor{
		ID:         "a1",
		Category:   actor.CategoryCharacter,
		Attributes: map[string]int{actor.AttrBody: 4},
		Items:      items,
	}
}

func TestStandingUsesBestBaseAndStacksAccessories(t *testing.T) {
	a := runner(
		actor.Item{ID: "j", Name: "Jacket", Type: actor.ItemArmor, Equipped: true, Value: 4, Fire: 1},
		actor.Item{ID: "v", Name: "Vest", Type: actor.ItemArmor, Equipped: true, Value: 3, Cold: 2},
		actor.Item{ID: "h", Name: "Helmet", Type: actor.ItemAccessory, Equipped: true, Value: 1, Fire: 2},
		actor.Item{ID: "s", Name: "Shield", Type: actor.ItemAccessory, Equipped: false, Value: 2},
		actor.Item{ID: "k", Name: "Knife", Type: actor.ItemGear, Equipped: true, Value: 9},
	)
	p := NewResolver().Resolve(a, nil)
	if p.Base != 4 {
		t.Fatalf("base = %d, want 4", p.Base)
	}
	if p.Value != 5 {
		t.Fatalf("value = %d, want 5", p.Value)
	}
	if p.Fire != 3 || p.Cold != 2 {
		t.Fatalf("elementals fire=%d cold=%d, want 3 and 2", p.Fire, p.Cold)
	}
}

func TestResolveAgainstAttack(t *testing.T) {
	a := runner(actor.Item{ID: "j", Name: "Jacket", Type: actor.ItemArmor, Equipped: true, Value: 4, Fire: 2})
	r := NewResolver()

	p := r.Resolve(a, &Attack{AP: -3, Element: ElementFire})
	if p.Value != 3 {
		t.Fatalf("value = %d, want 4-3+2=3", p.Value)
	}

	p = r.Resolve(a, &Attack{AP: 9})
	if p.Value != 0 {
		t.Fatalf("value = %d, want floor at 0", p.Value)
	}

	if standing := r.Resolve(a, nil); standing.Value != 4 || len(standing.Mods) != 0 {
		t.Fatalf("attack modifiers leaked into cached profile: %+v", standing)
	}
}

func TestResolveWithoutArmorCapability(t *testing.T) {
	ic := actor.Actor{ID: "ic", Category: actor.CategoryIC, Items: []actor.Item{
		{ID: "x", Type: actor.ItemArmor, Equipped: true, Value: 5},
	}}
	if p := NewResolver().Resolve(ic, &Attack{AP: 2}); p.Value != 0 || p.Base != 0 {
		t.Fatalf("expected zero profile, got %+v", p)
	}
}

func TestResolverCacheFollowsEquipmentContent(t *testing.T) {
	r := NewResolver()
	a := runner(actor.Item{ID: "j", Name: "Jacket", Type: actor.ItemArmor, Equipped: true, Value: 4})

	r.Resolve(a, nil)
	r.Resolve(a, nil)
	if r.Misses() != 1 {
		t.Fatalf("misses = %d, want 1", r.Misses())
	}

	a.Items[0].Value = 6
	if p := r.Resolve(a, nil); p.Value != 6 {
		t.Fatalf("value = %d, want 6 after equipment change", p.Value)
	}
	if r.Misses() != 2 {
		t.Fatalf("misses = %d, want 2", r.Misses())
	}

	a.Items[0].Equipped = false
	if p := r.Resolve(a, nil); p.Value != 0 {
		t.Fatalf("value = %d, want 0 after unequip", p.Value)
	}

	r.Invalidate(a.ID)
	r.Resolve(a, nil)
	if r.Misses() != 4 {
		t.Fatalf("misses = %d, want 4 after invalidate", r.Misses())
	}
}

func TestEquipmentHashIgnoresUnequippedAndGear(t *testing.T) {
	base := []actor.Item{{ID: "j", Name: "Jacket", Type: actor.ItemArmor, Equipped: true, Value: 4}}
	extra := append(append([]actor.Item(nil), base...),
		actor.Item{ID: "k", Type: actor.ItemGear, Equipped: true, Value: 1},
		actor.Item{ID: "s", Type: actor.ItemAccessory, Equipped: false, Value: 2},
	)
	if EquipmentHash(base) != EquipmentHash(extra) {
		t.Fatal("hash should ignore gear and unequipped items")
	}
}

func TestDefenseRating(t *testing.T) {
	a := runner(actor.Item{ID: "j", Type: actor.ItemArmor, Equipped: true, Value: 3})
	if got := NewResolver().DefenseRating(a); got != 7 {
		t.Fatalf("defense rating = %d, want 7", got)
	}
}
