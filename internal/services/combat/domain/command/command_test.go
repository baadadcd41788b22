package command

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := r.Register(Definition{Type: "combat.next_turn", Scope: ScopeSession, Relayable: true}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(Definition{
		Type:  "actor.heal",
		Scope: ScopeActor,
		ValidatePayload: func(raw json.RawMessage) error {
			var p struct {
				Amount int `json:"amount"`
			}
			_ = json.Unmarshal(raw, &p)
			if p.Amount < 0 {
				return errors.New("amount must be non-negative")
			}
			return nil
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func TestRegisterRejectsDuplicatesAndBadScope(t *testing.T) {
	r := testRegistry(t)
	if err := r.Register(Definition{Type: "combat.next_turn", Scope: ScopeSession}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := r.Register(Definition{Type: "x", Scope: "world"}); err == nil {
		t.Fatal("expected scope error")
	}
	if err := r.Register(Definition{Type: " ", Scope: ScopeActor}); !errors.Is(err, ErrTypeRequired) {
		t.Fatalf("expected ErrTypeRequired, got %v", err)
	}
}

func TestValidateNormalizes(t *testing.T) {
	r := testRegistry(t)
	cmd, err := r.Validate(Command{SessionID: " s1 ", Type: " combat.next_turn "})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cmd.SessionID != "s1" || cmd.Type != "combat.next_turn" {
		t.Fatalf("unexpected normalization: %+v", cmd)
	}
	if cmd.ActorType != ActorTypeSystem {
		t.Fatalf("actor type = %q, want system", cmd.ActorType)
	}
	if string(cmd.Payload) != "{}" {
		t.Fatalf("payload = %s, want {}", cmd.Payload)
	}
}

func TestValidateErrors(t *testing.T) {
	r := testRegistry(t)
	tests := []struct {
		name string
		cmd  Command
		want error
	}{
		{"missing type", Command{}, ErrTypeRequired},
		{"unknown type", Command{Type: "combat.teleport"}, ErrTypeUnknown},
		{"missing session", Command{Type: "combat.next_turn"}, ErrSessionIDRequired},
		{"bad actor type", Command{Type: "actor.heal", ActorType: "dragon"}, ErrActorTypeInvalid},
		{"participant without id", Command{Type: "actor.heal", ActorType: ActorTypeParticipant}, ErrActorIDRequired},
		{"bad json", Command{Type: "actor.heal", Payload: json.RawMessage("{")}, ErrPayloadInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Validate(tt.cmd); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateRunsPayloadValidator(t *testing.T) {
	r := testRegistry(t)
	cmd, err := New("", "actor.heal", map[string]int{"amount": -1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := r.Validate(cmd); err == nil {
		t.Fatal("expected payload validation error")
	}
}

func TestActorScopeAllowsMissingSession(t *testing.T) {
	r := testRegistry(t)
	if _, err := r.Validate(Command{Type: "actor.heal"}); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestListDefinitionsSorted(t *testing.T) {
	defs := testRegistry(t).ListDefinitions()
	if len(defs) != 2 || defs[0].Type != "actor.heal" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
}

func TestDecisionHelpers(t *testing.T) {
	var b docstore.Batch
	b.Add(docstore.NewUpdate(docstore.ActorRef("a")).Set("edge.uses", 1))
	cmd := Command{SessionID: "s1", Type: "actor.spend_edge"}
	rec := NewRecord(cmd, "edge_spent", "a", map[string]int{"uses": 1}, time.Unix(0, 0))
	d := Accept(b, rec)
	if d.Rejected() || len(d.Records) != 1 || d.Records[0].SessionID != "s1" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if !Reject(Rejection{Code: "X"}).Rejected() {
		t.Fatal("expected rejected decision")
	}
}
