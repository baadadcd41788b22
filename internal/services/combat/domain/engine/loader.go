package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/phase"
)

// StateLoader loads the state a command is decided against.
type StateLoader interface {
	Load(ctx context.Context, cmd command.Command) (phase.State, error)
}

// StoreLoader reads state from a document store: the session document when
// the command names one, every actor behind its combatants, and the actors
// the payload mentions. Missing actors are left out so deciders can reject
// or skip them; a missing session yields State.Exists == false.
type StoreLoader struct {
	Store docstore.Store
}

// Load implements StateLoader.
func (l StoreLoader) Load(ctx context.Context, cmd command.Command) (phase.State, error) {
	if l.Store == nil {
		return phase.State{}, ErrStoreRequired
	}
	state := phase.State{Actors: map[string]actor.Actor{}}
	if cmd.SessionID != "" {
		err := docstore.LoadJSON(ctx, l.Store, docstore.CombatRef(cmd.SessionID), &state.Session)
		switch {
		case err == nil:
			state.Exists = true
		case errors.Is(err, docstore.ErrNotFound):
		default:
			return phase.State{}, fmt.Errorf("load session %s: %w", cmd.SessionID, err)
		}
	}

	ids := append(state.Session.ActorIDs(), phase.ActorIDs(cmd)...)
	for _, id := range ids {
		if _, ok := state.Actors[id]; ok {
			continue
		}
		var a actor.Actor
		err := docstore.LoadJSON(ctx, l.Store, docstore.ActorRef(id), &a)
		switch {
		case err == nil:
			state.Actors[id] = a
		case errors.Is(err, docstore.ErrNotFound):
		default:
			return phase.State{}, fmt.Errorf("load actor %s: %w", id, err)
		}
	}
	return state, nil
}
