// Package combatctl implements a command-line participant for the combat
// server: it mints tokens and relays single commands.
package combatctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	entrypoint "github.com/louisbranch/shadowtrack/internal/platform/cmd"
	"github.com/louisbranch/shadowtrack/internal/platform/discovery"
	"github.com/louisbranch/shadowtrack/internal/services/combat/authority"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
	"github.com/louisbranch/shadowtrack/internal/services/combat/transport/wsrelay"
)

// Config holds defaults shared by every subcommand.
type Config struct {
	URL         string        `env:"SHADOWTRACK_COMBAT_URL"`
	Token       string        `env:"SHADOWTRACK_COMBAT_TOKEN"`
	TokenSecret string        `env:"SHADOWTRACK_COMBAT_TOKEN_SECRET"`
	TokenIssuer string        `env:"SHADOWTRACK_COMBAT_TOKEN_ISSUER" envDefault:"shadowtrack"`
	Timeout     time.Duration `env:"SHADOWTRACK_COMBAT_TIMEOUT"      envDefault:"10s"`
}

const usage = "usage: combatctl token|send [flags]"

// Run executes one subcommand and writes its result to out.
func Run(ctx context.Context, args []string, out io.Writer) error {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return err
	}
	cfg.URL = discovery.OrDefaultRelayURL(cfg.URL, discovery.ServiceCombat)
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "token":
		return runToken(cfg, args[1:], out)
	case "send":
		return runSend(ctx, cfg, args[1:], out)
	}
	return fmt.Errorf("unknown subcommand %q\n%s", args[0], usage)
}

func runToken(cfg Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	participant := fs.String("participant", "", "participant id (token subject)")
	session := fs.String("session", "", "restrict the token to one combat session")
	role := fs.String("role", wsrelay.RoleParticipant, "participant or gm")
	ttl := fs.Duration("ttl", 0, "token lifetime")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return err
	}
	token, err := wsrelay.IssueRoleToken(wsrelay.TokenConfig{
		Secret: []byte(cfg.TokenSecret),
		Issuer: cfg.TokenIssuer,
		TTL:    *ttl,
	}, *participant, *session, *role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// setFlags collects repeated -set path=value flags.
type setFlags []string

func (s *setFlags) String() string     { return strings.Join(*s, ",") }
func (s *setFlags) Set(v string) error { *s = append(*s, v); return nil }

func runSend(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	url := fs.String("url", cfg.URL, "combat websocket url")
	token := fs.String("token", cfg.Token, "participant token")
	session := fs.String("session", "", "combat session id")
	cmdType := fs.String("type", "", "command type, e.g. combat.next_turn")
	payload := fs.String("payload", "", "payload JSON")
	var sets setFlags
	fs.Var(&sets, "set", "payload field as path=value; repeatable")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return err
	}
	if *cmdType == "" {
		return errors.New("-type is required")
	}
	body, err := buildPayload(*payload, sets)
	if err != nil {
		return err
	}

	client := &wsrelay.Client{URL: *url, Token: *token}
	defer client.Close()
	relay := &authority.Relay{Emitter: client}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	outcome, err := relay.Request(ctx, command.Command{
		SessionID: *session,
		Type:      command.Type(*cmdType),
		Payload:   body,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome.Ack); err != nil {
		return err
	}
	if !outcome.Ack.Accepted {
		return errors.New("command was not accepted")
	}
	return nil
}

// buildPayload starts from base JSON and applies each path=value. Values that
// are valid JSON (numbers, booleans, objects) are set raw; anything else is a
// string.
func buildPayload(base string, sets []string) (json.RawMessage, error) {
	doc := strings.TrimSpace(base)
	if doc == "" {
		doc = "{}"
	}
	if !gjson.Valid(doc) {
		return nil, errors.New("-payload must be valid JSON")
	}
	for _, entry := range sets {
		path, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("-set %q: want path=value", entry)
		}
		var err error
		if gjson.Valid(value) {
			doc, err = sjson.SetRaw(doc, path, value)
		} else {
			doc, err = sjson.Set(doc, path, value)
		}
		if err != nil {
			return nil, fmt.Errorf("-set %q: %w", entry, err)
		}
	}
	return json.RawMessage(doc), nil
}
