package command

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
)

// RecordType names an outcome record.
type RecordType string

// Record is a structured outcome handed to presentation. The engine never
// reads records back.
type Record struct {
	Type      RecordType      `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	EntityID  string          `json:"entity_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewRecord builds a record for cmd with data encoded as JSON.
func NewRecord(cmd Command, recordType RecordType, entityID string, data any, now time.Time) Record {
	rec := Record{Type: recordType, SessionID: cmd.SessionID, EntityID: entityID, Timestamp: now.UTC()}
	if data != nil {
		rec.Data, _ = json.Marshal(data)
	}
	return rec
}

// Decision is the pure outcome of deciding a command.
type Decision struct {
	Batch      docstore.Batch
	Records    []Record
	Rejections []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Accept returns a decision committing batch and emitting records.
func Accept(batch docstore.Batch, records ...Record) Decision {
	return Decision{Batch: batch, Records: append([]Record(nil), records...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Rejected reports whether the decision declined the command.
func (d Decision) Rejected() bool { return len(d.Rejections) > 0 }
