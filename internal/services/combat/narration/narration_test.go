package narration

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/damage"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/phase"
)

var testNow = time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)

func record(recType command.RecordType, data any) command.Record {
	return command.NewRecord(command.Command{SessionID: "s1"}, recType, "e1", data, testNow)
}

type staticNames map[string]string

func (n staticNames) Name(_ context.Context, id string) string {
	if name, ok := n[id]; ok {
		return name
	}
	return id
}

func TestRenderRecords(t *testing.T) {
	names := staticNames{"ace": "Ace", "ork": "Bruiser"}
	tests := []struct {
		name   string
		locale string
		rec    command.Record
		want   []string
	}{
		{
			name:   "round started",
			locale: "en-US",
			rec:    record(phase.RecordRoundStarted, phase.RoundMarker{Round: 3}),
			want:   []string{"Round 3 begins."},
		},
		{
			name:   "turn started counts from one",
			locale: "en-US",
			rec:    record(phase.RecordTurnStarted, phase.TurnStarted{CombatantID: "ace", ActorID: "ace", Round: 1, Turn: 0}),
			want:   []string{"Ace acts (round 1, turn 1)."},
		},
		{
			name:   "damage with knock down",
			locale: "en-US",
			rec: record(phase.RecordDamageApplied, phase.DamageApplied{ActorID: "ork", Outcome: damage.Outcome{
				Instance:    damage.Instance{Type: damage.TypePhysical, Amount: 7},
				Soak:        2,
				Net:         5,
				KnockedDown: true,
			}}),
			want: []string{
				"Bruiser takes 5 physical damage (7 incoming, 2 soaked).",
				"Bruiser is knocked down.",
			},
		},
		{
			name:   "edge denied reason",
			locale: "en-US",
			rec:    record(phase.RecordEdgeDenied, phase.EdgeChanged{ActorID: "ace", Uses: 3, Reason: "round_cap"}),
			want:   []string{"Ace gains no Edge: round limit reached."},
		},
		{
			name:   "edge boost in portuguese",
			locale: "pt-BR",
			rec:    record(phase.RecordEdgeBoosted, phase.EdgeChanged{ActorID: "ace", Amount: 2, Boost: "give_ally"}),
			want:   []string{"Ace gasta 2 de Edge para dar Edge a um aliado."},
		},
		{
			name:   "floored initiative",
			locale: "en-US",
			rec:    record(phase.RecordInitiativeAdjusted, phase.InitiativeAdjusted{CombatantID: "ork", From: 3, To: 0, Floored: true}),
			want:   []string{"Bruiser cannot drop below initiative 0."},
		},
		{
			name:   "defeat",
			locale: "en-US",
			rec:    record(phase.RecordStatusChanged, phase.StatusChanged{ActorID: "ork", Statuses: []string{"dying"}, Defeated: true}),
			want:   []string{"Bruiser is out of the fight (dying)."},
		},
		{
			name:   "zero heal is silent",
			locale: "en-US",
			rec:    record(phase.RecordHealed, phase.Healed{ActorID: "ace", Track: "stun"}),
		},
		{
			name:   "unknown locale falls back",
			locale: "xx",
			rec:    record(phase.RecordRoundEnded, phase.RoundMarker{Round: 1}),
			want:   []string{"Round 1 ends."},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines := New(tc.locale, names).Render(context.Background(), tc.rec)
			if len(lines) != len(tc.want) {
				t.Fatalf("lines = %+v, want %v", lines, tc.want)
			}
			for i, line := range lines {
				if line.Text != tc.want[i] {
					t.Fatalf("line %d = %q, want %q", i, line.Text, tc.want[i])
				}
				if line.SessionID != "s1" || line.Type != tc.rec.Type {
					t.Fatalf("line metadata = %+v", line)
				}
			}
		})
	}
}

func TestRejection(t *testing.T) {
	n := New("pt-BR", nil)
	if got := n.Rejection(command.Rejection{Code: phase.RejectionNoEdge}); got != "Este personagem não tem Edge." {
		t.Fatalf("rejection = %q", got)
	}
	if got := n.Rejection(command.Rejection{Code: "SOMETHING_NEW", Message: "raw"}); got != "raw" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestStoreNames(t *testing.T) {
	store := docstore.NewMemory()
	if err := store.Put(docstore.ActorRef("ace"), actor.Actor{ID: "ace", Name: "Ace"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(docstore.ActorRef("anon"), actor.Actor{ID: "anon"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	names := StoreNames{Store: store}
	ctx := context.Background()
	for id, want := range map[string]string{"ace": "Ace", "anon": "anon", "ghost": "ghost"} {
		if got := names.Name(ctx, id); got != want {
			t.Errorf("Name(%s) = %q, want %q", id, got, want)
		}
	}
}

func TestFeedKeepsLatestLines(t *testing.T) {
	feed := &Feed{Narrator: New("en-US", nil), Limit: 2}
	recs := []command.Record{
		record(phase.RecordRoundStarted, phase.RoundMarker{Round: 1}),
		record(phase.RecordRoundEnded, phase.RoundMarker{Round: 1}),
		record(phase.RecordRoundStarted, phase.RoundMarker{Round: 2}),
	}
	if err := feed.Publish(context.Background(), recs); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := len(feed.Records()); got != 2 {
		t.Fatalf("records = %d, want 2", got)
	}
	lines := feed.Lines(context.Background())
	if len(lines) != 2 || lines[0].Text != "Round 1 ends." || lines[1].Text != "Round 2 begins." {
		t.Fatalf("lines = %+v", lines)
	}
}

type failingSink struct{ err error }

func (f failingSink) Publish(context.Context, []command.Record) error { return f.err }

func TestFanoutJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	fan := Fanout{
		LogSink{Narrator: New("en-US", nil), Logger: log.New(&buf, "", 0)},
		nil,
		failingSink{err: boom},
	}
	err := fan.Publish(context.Background(), []command.Record{record(phase.RecordCombatEnded, phase.RoundMarker{Round: 4})})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !strings.Contains(buf.String(), "s1: Combat ends in round 4.") {
		t.Fatalf("log = %q", buf.String())
	}
}
