package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	platformotel "github.com/louisbranch/shadowtrack/internal/platform/otel"
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/phase"
)

// Decider returns a decision for a command.
type Decider interface {
	Decide(state phase.State, cmd command.Command, now func() time.Time) command.Decision
}

// RecordSink receives the records of every committed decision.
type RecordSink interface {
	Publish(ctx context.Context, records []command.Record) error
}

// Handler validates, decides and commits commands.
type Handler struct {
	Commands *command.Registry
	Loader   StateLoader
	Decider  Decider
	Store    docstore.Store
	Sink     RecordSink
	Now      func() time.Time
	Tracer   trace.Tracer

	locks keyedMutex
}

// Result captures execution outcomes.
type Result struct {
	Command  command.Command
	Decision command.Decision
}

// Handle runs cmd. Rejections come back in the decision with a nil error;
// errors are reserved for invalid commands and infrastructure failures.
func (h *Handler) Handle(ctx context.Context, cmd command.Command) (Result, error) {
	if h.Commands == nil {
		return Result{}, ErrCommandRegistryRequired
	}
	if h.Decider == nil {
		return Result{}, ErrDeciderRequired
	}
	if h.Store == nil {
		return Result{}, ErrStoreRequired
	}
	validated, err := h.Commands.Validate(cmd)
	if err != nil {
		return Result{}, wrapNonRetryable(fmt.Errorf("validate %s: %w", cmd.Type, err))
	}
	cmd = validated

	tracer := h.Tracer
	if tracer == nil {
		tracer = platformotel.Tracer("shadowtrack/combat/engine")
	}
	ctx, span := tracer.Start(ctx, "combat.handle "+string(cmd.Type), trace.WithAttributes(
		attribute.String("combat.command", string(cmd.Type)),
		attribute.String("combat.session_id", cmd.SessionID),
		attribute.String("combat.request_id", cmd.RequestID),
	))
	defer span.End()

	unlock, err := h.lock(ctx, cmd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	defer unlock()

	loader := h.Loader
	if loader == nil {
		loader = StoreLoader{Store: h.Store}
	}
	state, err := loader.Load(ctx, cmd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	now := h.Now
	if now == nil {
		now = time.Now
	}
	decision := h.Decider.Decide(state, cmd, now)
	result := Result{Command: cmd, Decision: decision}
	if decision.Rejected() {
		span.SetAttributes(attribute.String("combat.rejection", decision.Rejections[0].Code))
		return result, nil
	}

	if !decision.Batch.Empty() {
		if err := h.Store.Commit(ctx, decision.Batch); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return Result{}, fmt.Errorf("commit %s: %w", cmd.Type, err)
		}
	}
	span.SetAttributes(
		attribute.Int("combat.updates", len(decision.Batch.Updates)),
		attribute.Int("combat.records", len(decision.Records)),
	)

	if h.Sink != nil && len(decision.Records) > 0 {
		if err := h.Sink.Publish(ctx, decision.Records); err != nil {
			span.SetStatus(codes.Error, err.Error())
			// State is already committed; a retry would only repeat records.
			return result, wrapNonRetryable(fmt.Errorf("publish %s records: %w", cmd.Type, err))
		}
	}
	return result, nil
}

// lock takes every key cmd needs before its state is read: the session
// first, then each actor it may write in id order. Session keys always come
// before actor keys and actor keys are sorted, so two commands never wait on
// each other in a cycle. The session is read under its own lock, which keeps
// its roster fixed until the actors are locked too.
func (h *Handler) lock(ctx context.Context, cmd command.Command) (func(), error) {
	var held []func()
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	if cmd.SessionID != "" {
		held = append(held, h.locks.Lock(sessionKey(cmd.SessionID)))
	}
	roster, err := h.roster(ctx, cmd.SessionID)
	if err != nil {
		release()
		return nil, err
	}
	for _, key := range lockKeys(cmd, roster) {
		held = append(held, h.locks.Lock(key))
	}
	if len(held) == 0 {
		held = append(held, h.locks.Lock("type:"+string(cmd.Type)))
	}
	return release, nil
}

// roster returns the actor ids behind a session's combatants.
func (h *Handler) roster(ctx context.Context, sessionID string) ([]string, error) {
	if sessionID == "" {
		return nil, nil
	}
	var s phase.Session
	err := docstore.LoadJSON(ctx, h.Store, docstore.CombatRef(sessionID), &s)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return s.ActorIDs(), nil
}

func sessionKey(id string) string { return "session:" + id }

// lockKeys returns the sorted actor keys for the session roster plus the
// actors the payload names.
func lockKeys(cmd command.Command, roster []string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, id := range append(append([]string(nil), roster...), phase.ActorIDs(cmd)...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, "actor:"+id)
	}
	sort.Strings(keys)
	return keys
}
