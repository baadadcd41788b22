// Package narration turns engine records into player-facing lines of text.
package narration

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/shadowtrack/internal/platform/i18n/catalog"
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/phase"
)

// Line is one rendered record.
type Line struct {
	Type      command.RecordType `json:"type"`
	SessionID string             `json:"session_id,omitempty"`
	EntityID  string             `json:"entity_id,omitempty"`
	Text      string             `json:"text"`
}

// Names resolves an actor or combatant id to a display name.
type Names interface {
	Name(ctx context.Context, id string) string
}

// IDNames shows raw ids.
type IDNames struct{}

// Name returns id.
func (IDNames) Name(_ context.Context, id string) string { return id }

// StoreNames reads the name field of actor documents.
type StoreNames struct {
	Store docstore.Store
}

// Name returns the actor's name, or id when the actor has none.
func (n StoreNames) Name(ctx context.Context, id string) string {
	if n.Store == nil || id == "" {
		return id
	}
	doc, err := n.Store.Load(ctx, docstore.ActorRef(id))
	if err != nil {
		return id
	}
	if name := strings.TrimSpace(gjson.GetBytes(doc, "name").String()); name != "" {
		return name
	}
	return id
}

// Narrator renders records in one locale.
type Narrator struct {
	printer *message.Printer
	names   Names
}

// New returns a narrator for locale. An unknown locale narrates in the base
// locale; a nil names resolver shows ids.
func New(locale string, names Names) *Narrator {
	bundle := catalog.Default()
	tag, err := language.Parse(locale)
	if err != nil || !bundle.HasLocale(tag.String()) {
		tag = bundle.Match(locale)
	}
	if names == nil {
		names = IDNames{}
	}
	return &Narrator{printer: message.NewPrinter(tag), names: names}
}

// Render returns the lines for rec. Records with nothing to say to players,
// such as an unchanged budget at the start of a round, yield no lines.
func (n *Narrator) Render(ctx context.Context, rec command.Record) []Line {
	data := gjson.ParseBytes(rec.Data)
	name := func(path string) string { return n.names.Name(ctx, data.Get(path).String()) }
	var texts []string
	say := func(key string, args ...any) {
		texts = append(texts, n.printer.Sprintf(key, args...))
	}

	switch rec.Type {
	case phase.RecordCombatCreated:
		say("combat.created", rec.SessionID)
	case phase.RecordCombatStarted:
		say("combat.started", data.Get("round").Int())
	case phase.RecordCombatEnded:
		say("combat.ended", data.Get("round").Int())
	case phase.RecordRoundStarted:
		say("combat.round_started", data.Get("round").Int())
	case phase.RecordRoundEnded:
		say("combat.round_ended", data.Get("round").Int())
	case phase.RecordTurnStarted:
		say("combat.turn_started", name("actor_id"), data.Get("round").Int(), data.Get("turn").Int()+1)
	case phase.RecordCombatantAdded:
		say("combat.combatant_added", name("actor_id"))
	case phase.RecordCombatantRemoved:
		say("combat.combatant_removed", name("combatant_id"))
	case phase.RecordInitiativeRolled:
		say("combat.initiative_rolled", name("combatant_id"),
			data.Get("total").Int(), data.Get("base").Int(), data.Get("dice").Int())
	case phase.RecordInitiativeAdjusted:
		if data.Get("floored").Bool() {
			say("combat.initiative_floored", name("combatant_id"), data.Get("to").Int())
			break
		}
		say("combat.initiative_adjusted", name("combatant_id"), data.Get("from").Int(), data.Get("to").Int())
	case phase.RecordAttackRecorded:
		say("combat.attack_recorded", name("combatant_id"), data.Get("recoil").Int())
	case phase.RecordDefenseRecorded:
		say("combat.defense_recorded", name("combatant_id"), data.Get("multi_defense").Int())
	case phase.RecordDamageApplied:
		out := data.Get("outcome")
		who := name("actor_id")
		say("combat.damage_applied", who, out.Get("net").Int(), out.Get("instance.type").String(),
			out.Get("instance.amount").Int(), out.Get("soak").Int())
		if out.Get("knocked_down").Bool() {
			say("combat.knocked_down", who)
		}
	case phase.RecordHealed:
		if amount := data.Get("amount").Int(); amount > 0 {
			say("combat.healed", name("actor_id"), amount, data.Get("track").String())
		}
	case phase.RecordStatusChanged:
		statuses := data.Get("statuses").Array()
		if data.Get("defeated").Bool() && len(statuses) > 0 {
			say("combat.status_defeated", name("actor_id"), statuses[len(statuses)-1].String())
		} else if len(statuses) == 0 {
			say("combat.status_cleared", name("actor_id"))
		}
	case phase.RecordEdgeSpent:
		say("combat.edge_spent", name("actor_id"), data.Get("amount").Int(), data.Get("uses").Int())
	case phase.RecordEdgeGained:
		say("combat.edge_gained", name("actor_id"), data.Get("uses").Int())
	case phase.RecordEdgeDenied:
		say("combat.edge_denied", name("actor_id"), n.printer.Sprintf("combat.reason."+data.Get("reason").String()))
	case phase.RecordEdgeBoosted:
		say("combat.edge_boosted", name("actor_id"), data.Get("amount").Int(),
			n.printer.Sprintf("combat.boost."+data.Get("boost").String()))
	case phase.RecordActionsChanged:
		say("combat.actions_changed", name("actor_id"), data.Get("major").Int(), data.Get("minor").Int())
	case phase.RecordRunReset:
		say("combat.run_reset", name("actor_id"), data.Get("edge_uses").Int())
	case phase.RecordAlreadyApplied:
		say("combat.already_applied", data.Get("command").String())
	}

	lines := make([]Line, 0, len(texts))
	for _, text := range texts {
		lines = append(lines, Line{Type: rec.Type, SessionID: rec.SessionID, EntityID: rec.EntityID, Text: text})
	}
	return lines
}

// Rejection renders a rejection, falling back to its own message when the
// code has no translation.
func (n *Narrator) Rejection(rej command.Rejection) string {
	key := "rejection." + rej.Code
	if text := n.printer.Sprintf(key); text != key {
		return text
	}
	return rej.Message
}
