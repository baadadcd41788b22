package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// ErrNotFound indicates the referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrRefRequired indicates an update without a kind or id.
	ErrRefRequired = errors.New("document kind and id are required")
)

// Kind names a document collection.
type Kind string

const (
	// KindActor stores actor sheets.
	KindActor Kind = "actor"
	// KindCombat stores combat sessions.
	KindCombat Kind = "combat"
)

// Ref addresses one document.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// ActorRef returns the ref of an actor document.
func ActorRef(id string) Ref { return Ref{Kind: KindActor, ID: id} }

// CombatRef returns the ref of a combat session document.
func CombatRef(id string) Ref { return Ref{Kind: KindCombat, ID: id} }

func (r Ref) String() string { return string(r.Kind) + "/" + r.ID }

// Valid reports whether both parts of the ref are set.
func (r Ref) Valid() bool {
	return strings.TrimSpace(string(r.Kind)) != "" && strings.TrimSpace(r.ID) != ""
}

type deleteMarker struct{}

// Delete removes the field at a path when used as an update value.
var Delete any = deleteMarker{}

// Update is a set of path/value writes against a single document.
type Update struct {
	Ref Ref `json:"ref"`
	// Replace, when set, becomes the whole document before Fields apply.
	Replace json.RawMessage `json:"replace,omitempty"`
	Fields  map[string]any  `json:"fields,omitempty"`
}

// NewUpdate returns an empty update for ref.
func NewUpdate(ref Ref) Update {
	return Update{Ref: ref, Fields: map[string]any{}}
}

// ReplaceWith returns an update replacing the document at ref with the JSON
// encoding of v.
func ReplaceWith(ref Ref, v any) (Update, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Update{}, fmt.Errorf("marshal %s: %w", ref, err)
	}
	return Update{Ref: ref, Replace: data}, nil
}

// Set records a write of value at path.
func (u Update) Set(path string, value any) Update {
	if u.Fields == nil {
		u.Fields = map[string]any{}
	}
	u.Fields[path] = value
	return u
}

// Unset records removal of path.
func (u Update) Unset(path string) Update {
	return u.Set(path, Delete)
}

// Empty reports whether the update writes nothing.
func (u Update) Empty() bool {
	return len(u.Replace) == 0 && len(u.Fields) == 0
}

// Paths returns the update's paths in lexical order.
func (u Update) Paths() []string {
	paths := make([]string, 0, len(u.Fields))
	for path := range u.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Batch groups updates committed as one unit. Silent batches are persisted
// but do not notify observers.
type Batch struct {
	Updates []Update `json:"updates"`
	Silent  bool     `json:"silent,omitempty"`
}

// Add merges u into the batch, folding writes to the same document into one
// update. Later writes to the same path win.
func (b *Batch) Add(u Update) {
	if u.Empty() {
		return
	}
	for i := range b.Updates {
		if b.Updates[i].Ref != u.Ref {
			continue
		}
		existing := &b.Updates[i]
		if len(u.Replace) > 0 {
			existing.Replace = u.Replace
			existing.Fields = map[string]any{}
		}
		if existing.Fields == nil {
			existing.Fields = map[string]any{}
		}
		for path, value := range u.Fields {
			existing.Fields[path] = value
		}
		return
	}
	fields := make(map[string]any, len(u.Fields))
	for path, value := range u.Fields {
		fields[path] = value
	}
	u.Fields = fields
	b.Updates = append(b.Updates, u)
}

// Empty reports whether the batch carries no writes.
func (b Batch) Empty() bool {
	for _, u := range b.Updates {
		if !u.Empty() {
			return false
		}
	}
	return true
}

// Refs lists the documents touched by the batch in commit order.
func (b Batch) Refs() []Ref {
	refs := make([]Ref, 0, len(b.Updates))
	for _, u := range b.Updates {
		refs = append(refs, u.Ref)
	}
	return refs
}

// Patch applies u to doc and returns the new document. doc may be nil when u
// replaces the document. Fields apply in lexical path order so a batch always
// produces the same bytes.
func Patch(doc []byte, u Update) ([]byte, error) {
	out := doc
	if len(u.Replace) > 0 {
		if !json.Valid(u.Replace) {
			return nil, fmt.Errorf("patch %s: replacement is not valid json", u.Ref)
		}
		out = append([]byte(nil), u.Replace...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("patch %s: %w", u.Ref, ErrNotFound)
	}
	var err error
	for _, path := range u.Paths() {
		value := u.Fields[path]
		if _, ok := value.(deleteMarker); ok {
			out, err = sjson.DeleteBytes(out, path)
		} else {
			out, err = sjson.SetBytes(out, path, value)
		}
		if err != nil {
			return nil, fmt.Errorf("patch %s at %q: %w", u.Ref, path, err)
		}
	}
	return out, nil
}

// Get reads the value at path from doc.
func Get(doc []byte, path string) gjson.Result {
	return gjson.GetBytes(doc, path)
}

// Key joins path segments, escaping characters gjson treats as syntax so map
// keys such as combatant ids address a single member.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = escapeSegment(part)
	}
	return strings.Join(escaped, ".")
}

func escapeSegment(part string) string {
	if !strings.ContainsAny(part, `.*?|#@\`) {
		return part
	}
	var sb strings.Builder
	for _, r := range part {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
