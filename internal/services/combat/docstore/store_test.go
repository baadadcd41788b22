package docstore

import (
	"context"
	"errors"
	"testing"
)

type sheet struct {
	Name  string         `json:"name"`
	Edge  int            `json:"edge"`
	Notes map[string]int `json:"notes,omitempty"`
}

func TestMemoryCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if err := store.Put(ActorRef("a"), sheet{Name: "A", Edge: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}

	batch := Batch{Updates: []Update{
		NewUpdate(ActorRef("a")).Set("edge", 3),
		NewUpdate(ActorRef("missing")).Set("edge", 1),
	}}
	if err := store.Commit(ctx, batch); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var got sheet
	if err := LoadJSON(ctx, store, ActorRef("a"), &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Edge != 1 {
		t.Fatalf("edge = %d, want untouched 1", got.Edge)
	}
}

func TestMemoryObserversSkipSilentBatches(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	var seen []Batch
	store.Watch(func(b Batch) { seen = append(seen, b) })

	if err := store.Put(ActorRef("a"), sheet{Name: "A"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Commit(ctx, Batch{Updates: []Update{NewUpdate(ActorRef("a")).Set("edge", 2)}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(seen))
	}
}

func TestMemoryCommitRejectsInvalidRef(t *testing.T) {
	store := NewMemory()
	err := store.Commit(context.Background(), Batch{Updates: []Update{NewUpdate(Ref{}).Set("x", 1)}})
	if !errors.Is(err, ErrRefRequired) {
		t.Fatalf("expected ErrRefRequired, got %v", err)
	}
}

func TestApplyJSONDropsDeletedMapKeys(t *testing.T) {
	s := sheet{Name: "A", Notes: map[string]int{"x": 1, "y": 2}}
	if err := ApplyJSON(&s, NewUpdate(ActorRef("a")).Unset("notes.x").Set("edge", 4)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := s.Notes["x"]; ok {
		t.Fatal("expected x removed")
	}
	if s.Edge != 4 || s.Notes["y"] != 2 {
		t.Fatalf("unexpected sheet: %+v", s)
	}
}

func TestLoadHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory().Load(ctx, ActorRef("a")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
