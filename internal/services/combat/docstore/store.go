package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Store loads documents and commits batches atomically.
type Store interface {
	Load(ctx context.Context, ref Ref) ([]byte, error)
	Commit(ctx context.Context, batch Batch) error
}

// Observer is notified after a non-silent batch commits.
type Observer func(batch Batch)

// Memory is an in-process Store. Commits stage every patched document before
// swapping any of them in, so a failing update leaves all documents intact.
type Memory struct {
	mu        sync.RWMutex
	docs      map[Ref][]byte
	observers []Observer
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: map[Ref][]byte{}}
}

// Put stores v as the document at ref, replacing any previous document.
func (m *Memory) Put(ref Ref, v any) error {
	u, err := ReplaceWith(ref, v)
	if err != nil {
		return err
	}
	return m.Commit(context.Background(), Batch{Updates: []Update{u}, Silent: true})
}

// Watch registers an observer for non-silent commits.
func (m *Memory) Watch(observer Observer) {
	if observer == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, observer)
	m.mu.Unlock()
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context, ref Ref) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[ref]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", ref, ErrNotFound)
	}
	return append([]byte(nil), doc...), nil
}

// Commit implements Store.
func (m *Memory) Commit(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	staged := make(map[Ref][]byte, len(batch.Updates))
	for _, u := range batch.Updates {
		if !u.Ref.Valid() {
			m.mu.Unlock()
			return ErrRefRequired
		}
		current, ok := staged[u.Ref]
		if !ok {
			current = m.docs[u.Ref]
		}
		next, err := Patch(current, u)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		staged[u.Ref] = next
	}
	for ref, doc := range staged {
		m.docs[ref] = doc
	}
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	if !batch.Silent {
		for _, observe := range observers {
			observe(batch)
		}
	}
	return nil
}

// LoadJSON loads the document at ref into v.
func LoadJSON(ctx context.Context, store Store, ref Ref, v any) error {
	data, err := store.Load(ctx, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", ref, err)
	}
	return nil
}

// ApplyJSON patches the JSON encoding of v with u and decodes the result back
// into v. Deciders use it to fold their own updates into in-memory state.
func ApplyJSON(v any, u Update) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", u.Ref, err)
	}
	next, err := Patch(data, u)
	if err != nil {
		return err
	}
	// Decoding into a populated value would keep deleted map keys.
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("apply %s: target must be a non-nil pointer", u.Ref)
	}
	target.Elem().Set(reflect.Zero(target.Elem().Type()))
	if err := json.Unmarshal(next, v); err != nil {
		return fmt.Errorf("decode %s: %w", u.Ref, err)
	}
	return nil
}
