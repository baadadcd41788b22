package docstore

import (
	"errors"
	"testing"
)

func TestPatchAppliesFieldsInPathOrder(t *testing.T) {
	doc := []byte(`{"track":{"physical":{"value":8,"max":10}}}`)
	u := NewUpdate(ActorRef("a1")).
		Set("track.physical.value", 10).
		Set("track.stun.value", 2)

	out, err := Patch(doc, u)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if got := Get(out, "track.physical.value").Int(); got != 10 {
		t.Fatalf("physical = %d, want 10", got)
	}
	if got := Get(out, "track.stun.value").Int(); got != 2 {
		t.Fatalf("stun = %d, want 2", got)
	}
}

func TestPatchDeleteAndReplace(t *testing.T) {
	u := Update{
		Ref:     CombatRef("c1"),
		Replace: []byte(`{"combatants":{"x":{"id":"x"},"y":{"id":"y"}}}`),
	}
	u = u.Unset("combatants.x")

	out, err := Patch(nil, u)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if Get(out, "combatants.x").Exists() {
		t.Fatal("expected combatant x removed")
	}
	if !Get(out, "combatants.y").Exists() {
		t.Fatal("expected combatant y kept")
	}
}

func TestPatchMissingDocument(t *testing.T) {
	_, err := Patch(nil, NewUpdate(ActorRef("a1")).Set("name", "x"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeyEscapesSyntax(t *testing.T) {
	doc := []byte(`{"combatants":{}}`)
	path := Key("combatants", "a.b", "initiative")
	if path != `combatants.a\.b.initiative` {
		t.Fatalf("path = %q", path)
	}
	out, err := Patch(doc, NewUpdate(CombatRef("c")).Set(path, 7))
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if got := Get(out, path).Int(); got != 7 {
		t.Fatalf("initiative = %d, want 7", got)
	}
}

func TestBatchAddMergesSameDocument(t *testing.T) {
	var b Batch
	b.Add(NewUpdate(ActorRef("a")).Set("edge.uses", 1))
	b.Add(NewUpdate(ActorRef("b")).Set("edge.uses", 2))
	b.Add(NewUpdate(ActorRef("a")).Set("edge.uses", 3).Set("actions.major", 0))
	b.Add(NewUpdate(ActorRef("c")))

	if len(b.Updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(b.Updates))
	}
	if got := b.Updates[0].Fields["edge.uses"]; got != 3 {
		t.Fatalf("edge.uses = %v, want 3", got)
	}
	if len(b.Updates[0].Fields) != 2 {
		t.Fatalf("expected merged fields, got %v", b.Updates[0].Fields)
	}
	if b.Empty() {
		t.Fatal("batch should not be empty")
	}
	if !(Batch{}).Empty() {
		t.Fatal("zero batch should be empty")
	}
}
