package phase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
)

// Advances reports whether t moves the session to another turn or round.
func Advances(t command.Type) bool {
	return t == CommandNextTurn || t == CommandNextRound
}

// Pin sets the expected position on an advance that carries none, so a
// second delivery of the same advance is a no-op. Other commands, and
// advances that are already pinned, come back unchanged.
func Pin(cmd command.Command, at Expect) (command.Command, error) {
	if !Advances(cmd.Type) || !at.Pinned() {
		return cmd, nil
	}
	raw := bytes.TrimSpace(cmd.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	var current Expect
	if err := json.Unmarshal(raw, &current); err != nil {
		return cmd, fmt.Errorf("decode payload: %w", err)
	}
	if current.Pinned() {
		return cmd, nil
	}
	out := append([]byte(nil), raw...)
	var err error
	if at.ExpectedRound != nil {
		if out, err = sjson.SetBytes(out, "expected_round", *at.ExpectedRound); err != nil {
			return cmd, fmt.Errorf("pin round: %w", err)
		}
	}
	if at.ExpectedTurn != nil {
		if out, err = sjson.SetBytes(out, "expected_turn", *at.ExpectedTurn); err != nil {
			return cmd, fmt.Errorf("pin turn: %w", err)
		}
	}
	cmd.Payload = out
	return cmd, nil
}
