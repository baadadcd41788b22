package authority

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
)

// KindCommand is the message kind carrying an encoded command.
const KindCommand = "combat.command"

var (
	// ErrNoAuthority indicates no authority is listening on the channel.
	ErrNoAuthority = errors.New("no authority is registered for message kind")
	// ErrEmitterRequired indicates a non-authoritative relay without a channel.
	ErrEmitterRequired = errors.New("emitter is required to relay commands")
	// ErrExecutorRequired indicates an authoritative relay without an engine.
	ErrExecutorRequired = errors.New("executor is required on the authority")
	// ErrNotRelayable indicates a command only the authority may issue.
	ErrNotRelayable = errors.New("command type cannot be relayed to the authority")
)

// Message is the envelope sent to the authority.
type Message struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Ack is the authority's answer to a relayed message.
type Ack struct {
	RequestID  string              `json:"request_id"`
	Accepted   bool                `json:"accepted"`
	Duplicate  bool                `json:"duplicate,omitempty"`
	Rejections []command.Rejection `json:"rejections,omitempty"`
	Error      string              `json:"error,omitempty"`
	Retryable  bool                `json:"retryable,omitempty"`
}

// Failed reports whether the authority could not process the message.
func (a Ack) Failed() bool { return a.Error != "" }

// MessageHandler handles one message delivered to the authority.
type MessageHandler func(ctx context.Context, msg Message) Ack

// Emitter delivers messages to whoever holds authority.
type Emitter interface {
	EmitToAuthority(ctx context.Context, msg Message) (Ack, error)
}

// Receiver registers the authority's message handlers.
type Receiver interface {
	OnMessage(kind string, handler MessageHandler)
}

// Channel is a bidirectional message channel.
type Channel interface {
	Emitter
	Receiver
}

// EncodeCommand wraps cmd in a command message.
func EncodeCommand(cmd command.Command) (Message, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindCommand, Payload: data}, nil
}

// DecodeCommand reads the command carried by msg.
func DecodeCommand(msg Message) (command.Command, error) {
	var cmd command.Command
	if msg.Kind != KindCommand {
		return cmd, errors.New("message kind is not a command: " + msg.Kind)
	}
	if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
		return cmd, err
	}
	return cmd, nil
}
