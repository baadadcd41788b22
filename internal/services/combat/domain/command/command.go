package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSessionIDRequired indicates a combat command without a session.
	ErrSessionIDRequired = errors.New("session id is required")
	// ErrTypeRequired indicates a missing command type.
	ErrTypeRequired = errors.New("command type is required")
	// ErrTypeUnknown indicates an unregistered command type.
	ErrTypeUnknown = errors.New("command type is not registered")
	// ErrActorTypeInvalid indicates an unknown issuer type.
	ErrActorTypeInvalid = errors.New("actor type is invalid")
	// ErrActorIDRequired indicates a participant command without an issuer id.
	ErrActorIDRequired = errors.New("actor id is required for participant or gm")
	// ErrPayloadInvalid indicates malformed payload JSON.
	ErrPayloadInvalid = errors.New("payload json must be valid")
)

// Type identifies the command type string.
type Type string

// Scope declares which document a command is anchored on.
type Scope string

const (
	// ScopeSession commands require a combat session id.
	ScopeSession Scope = "session"
	// ScopeActor commands target an actor; the session is optional.
	ScopeActor Scope = "actor"
)

// ActorType identifies who issued the command.
type ActorType string

const (
	ActorTypeSystem      ActorType = "system"
	ActorTypeParticipant ActorType = "participant"
	ActorTypeGM          ActorType = "gm"
)

// Command is the canonical envelope.
type Command struct {
	SessionID string          `json:"session_id,omitempty"`
	Type      Type            `json:"type"`
	ActorType ActorType       `json:"actor_type,omitempty"`
	ActorID   string          `json:"actor_id,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds a command with payload encoded as JSON.
func New(sessionID string, cmdType Type, payload any) (Command, error) {
	cmd := Command{SessionID: sessionID, Type: cmdType}
	if payload == nil {
		return cmd, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Command{}, fmt.Errorf("encode %s payload: %w", cmdType, err)
	}
	cmd.Payload = data
	return cmd, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (c Command) Decode(v any) error {
	if len(c.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", c.Type, err)
	}
	return nil
}

// PayloadValidator validates a payload JSON document.
type PayloadValidator func(json.RawMessage) error

// Definition registers metadata for a command type.
type Definition struct {
	Type            Type
	Scope           Scope
	ValidatePayload PayloadValidator
	// Relayable commands may be requested by non-authoritative participants.
	Relayable bool
}

// Registry stores command definitions and validates commands.
type Registry struct {
	definitions map[Type]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[Type]Definition)}
}

// Register adds a command type definition.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Type = Type(strings.TrimSpace(string(def.Type)))
	if def.Type == "" {
		return ErrTypeRequired
	}
	switch def.Scope {
	case ScopeSession, ScopeActor:
	default:
		return fmt.Errorf("scope must be session or actor")
	}
	if r.definitions == nil {
		r.definitions = make(map[Type]Definition)
	}
	if _, exists := r.definitions[def.Type]; exists {
		return fmt.Errorf("command type already registered: %s", def.Type)
	}
	r.definitions[def.Type] = def
	return nil
}

// MustRegister registers every definition and panics on error. It is meant
// for package init of static command tables.
func (r *Registry) MustRegister(defs ...Definition) *Registry {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Validate normalizes a command before it is decided.
func (r *Registry) Validate(cmd Command) (Command, error) {
	cmd.Type = Type(strings.TrimSpace(string(cmd.Type)))
	if cmd.Type == "" {
		return Command{}, ErrTypeRequired
	}
	def, ok := r.Definition(cmd.Type)
	if !ok {
		return Command{}, ErrTypeUnknown
	}

	cmd.SessionID = strings.TrimSpace(cmd.SessionID)
	if def.Scope == ScopeSession && cmd.SessionID == "" {
		return Command{}, ErrSessionIDRequired
	}

	cmd.ActorType = ActorType(strings.TrimSpace(string(cmd.ActorType)))
	if cmd.ActorType == "" {
		cmd.ActorType = ActorTypeSystem
	}
	switch cmd.ActorType {
	case ActorTypeSystem, ActorTypeParticipant, ActorTypeGM:
	default:
		return Command{}, ErrActorTypeInvalid
	}
	cmd.ActorID = strings.TrimSpace(cmd.ActorID)
	if cmd.ActorType != ActorTypeSystem && cmd.ActorID == "" {
		return Command{}, ErrActorIDRequired
	}

	if len(cmd.Payload) == 0 {
		cmd.Payload = json.RawMessage("{}")
	}
	if !json.Valid(cmd.Payload) {
		return Command{}, ErrPayloadInvalid
	}
	if def.ValidatePayload != nil {
		if err := def.ValidatePayload(cmd.Payload); err != nil {
			return Command{}, fmt.Errorf("payload invalid: %w", err)
		}
	}
	return cmd, nil
}

// Definition returns the definition for a type.
func (r *Registry) Definition(cmdType Type) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	def, ok := r.definitions[Type(strings.TrimSpace(string(cmdType)))]
	return def, ok
}

// ListDefinitions returns a stable, sorted snapshot of registered definitions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Type < definitions[j].Type
	})
	return definitions
}
