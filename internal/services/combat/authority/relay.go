package authority

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/louisbranch/shadowtrack/internal/platform/id"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/engine"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/phase"
)

// Executor runs a command against authoritative state.
type Executor interface {
	Handle(ctx context.Context, cmd command.Command) (engine.Result, error)
}

// PositionReader reports the round and turn a session is at. A zero Expect
// means the position is unknown.
type PositionReader interface {
	Position(ctx context.Context, sessionID string) (phase.Expect, error)
}

// Relay is the entry point for every combat mutation on a participant.
type Relay struct {
	// IsAuthority reports whether this participant holds write authority.
	// A nil func means it does not.
	IsAuthority func() bool
	Executor    Executor
	Emitter     Emitter
	// Commands decides which command types may be relayed. When nil every
	// type is accepted.
	Commands *command.Registry
	// RecentCapacity bounds the remembered request IDs.
	RecentCapacity int
	NewRequestID   func() (string, error)
	// Positions pins unpinned round and turn advances to the session's
	// current position before they are relayed.
	Positions PositionReader

	once     sync.Once
	recent   *recentAcks
	inflight singleflight.Group
}

// Outcome describes what happened to a requested command.
type Outcome struct {
	// Relayed is true when the command was sent to the authority instead of
	// being executed here.
	Relayed bool
	Result  engine.Result
	Ack     Ack
}

// Request executes cmd when this participant is the authority, otherwise
// forwards it and returns without touching local state.
func (r *Relay) Request(ctx context.Context, cmd command.Command) (Outcome, error) {
	if r.authoritative() {
		if r.Executor == nil {
			return Outcome{}, ErrExecutorRequired
		}
		result, err := r.Executor.Handle(ctx, cmd)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: result}, nil
	}

	if r.Emitter == nil {
		return Outcome{}, ErrEmitterRequired
	}
	if !r.relayable(cmd) {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotRelayable, cmd.Type)
	}
	cmd, err := r.pin(ctx, cmd)
	if err != nil {
		return Outcome{}, err
	}
	if cmd.RequestID == "" {
		requestID, err := r.newRequestID()
		if err != nil {
			return Outcome{}, err
		}
		cmd.RequestID = requestID
	}
	msg, err := EncodeCommand(cmd)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode %s: %w", cmd.Type, err)
	}
	ack, err := r.Emitter.EmitToAuthority(ctx, msg)
	if err != nil {
		return Outcome{}, fmt.Errorf("relay %s: %w", cmd.Type, err)
	}
	return Outcome{Relayed: true, Ack: ack}, nil
}

// Serve registers the relay's handler for command messages on rcv. Only the
// authority should call it.
func (r *Relay) Serve(rcv Receiver) {
	rcv.OnMessage(KindCommand, r.HandleMessage)
}

// HandleMessage executes a relayed command and reports the result.
func (r *Relay) HandleMessage(ctx context.Context, msg Message) Ack {
	cmd, err := DecodeCommand(msg)
	if err != nil {
		return Ack{Error: "decode message: " + err.Error()}
	}
	ack := Ack{RequestID: cmd.RequestID}
	if !r.relayable(cmd) {
		ack.Error = fmt.Sprintf("%s: %s", ErrNotRelayable, cmd.Type)
		return ack
	}
	if r.Executor == nil {
		ack.Error = ErrExecutorRequired.Error()
		return ack
	}
	if cmd.RequestID == "" {
		return r.execute(ctx, cmd)
	}
	if seen, ok := r.recentAcks().get(cmd.RequestID); ok {
		seen.Duplicate = true
		return seen
	}

	// Deliveries of one request ID share a single execution: a copy that
	// arrives while the first is still running waits for its ack.
	leader := false
	v, _, _ := r.inflight.Do(cmd.RequestID, func() (any, error) {
		if seen, ok := r.recentAcks().get(cmd.RequestID); ok {
			seen.Duplicate = true
			return seen, nil
		}
		leader = true
		return r.execute(ctx, cmd), nil
	})
	ack = v.(Ack)
	if !leader {
		ack.Duplicate = true
	}
	return ack
}

// execute runs cmd and remembers its ack unless the failure is retryable.
func (r *Relay) execute(ctx context.Context, cmd command.Command) Ack {
	ack := Ack{RequestID: cmd.RequestID}
	result, err := r.Executor.Handle(ctx, cmd)
	if err != nil {
		ack.Error = err.Error()
		ack.Retryable = !engine.IsNonRetryable(err)
		if ack.Retryable {
			log.Printf("relay: %s %s failed, sender may retry: %v", cmd.Type, cmd.RequestID, err)
			return ack
		}
	} else {
		ack.Accepted = !result.Decision.Rejected()
		ack.Rejections = result.Decision.Rejections
	}
	if cmd.RequestID != "" {
		r.recentAcks().put(cmd.RequestID, ack)
	}
	return ack
}

func (r *Relay) authoritative() bool {
	return r.IsAuthority != nil && r.IsAuthority()
}

// relayable reports whether cmd may reach the authority from elsewhere. The
// game master may issue any command.
func (r *Relay) relayable(cmd command.Command) bool {
	if r.Commands == nil || cmd.ActorType == command.ActorTypeGM {
		return true
	}
	def, ok := r.Commands.Definition(cmd.Type)
	return ok && def.Relayable
}

func (r *Relay) pin(ctx context.Context, cmd command.Command) (command.Command, error) {
	if r.Positions == nil || cmd.SessionID == "" || !phase.Advances(cmd.Type) {
		return cmd, nil
	}
	at, err := r.Positions.Position(ctx, cmd.SessionID)
	if err != nil {
		return cmd, fmt.Errorf("read position of %s: %w", cmd.SessionID, err)
	}
	pinned, err := phase.Pin(cmd, at)
	if err != nil {
		return cmd, fmt.Errorf("pin %s: %w", cmd.Type, err)
	}
	return pinned, nil
}

func (r *Relay) newRequestID() (string, error) {
	if r.NewRequestID != nil {
		return r.NewRequestID()
	}
	return id.NewID()
}

func (r *Relay) recentAcks() *recentAcks {
	r.once.Do(func() {
		r.recent = newRecentAcks(r.RecentCapacity)
	})
	return r.recent
}
