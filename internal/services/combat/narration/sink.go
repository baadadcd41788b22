package narration

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/command"
)

// LogSink narrates records to a logger.
type LogSink struct {
	Narrator *Narrator
	Logger   *log.Logger
}

// Publish logs one line per rendered record.
func (s LogSink) Publish(ctx context.Context, records []command.Record) error {
	narrator := s.Narrator
	if narrator == nil {
		narrator = New("", nil)
	}
	for _, rec := range records {
		for _, line := range narrator.Render(ctx, rec) {
			if s.Logger != nil {
				s.Logger.Printf("%s: %s", line.SessionID, line.Text)
			} else {
				log.Printf("%s: %s", line.SessionID, line.Text)
			}
		}
	}
	return nil
}

// Feed keeps the latest published records in memory so clients can read the
// combat log in their own locale.
type Feed struct {
	Narrator *Narrator
	// Limit caps the retained records; zero keeps everything.
	Limit int

	mu      sync.Mutex
	records []command.Record
}

// Publish appends records, dropping the oldest past Limit.
func (f *Feed) Publish(_ context.Context, records []command.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, records...)
	if f.Limit > 0 && len(f.records) > f.Limit {
		f.records = append([]command.Record(nil), f.records[len(f.records)-f.Limit:]...)
	}
	return nil
}

// Records returns a copy of the retained records.
func (f *Feed) Records() []command.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]command.Record(nil), f.records...)
}

// Lines renders the retained records with the feed's narrator.
func (f *Feed) Lines(ctx context.Context) []Line {
	narrator := f.Narrator
	if narrator == nil {
		narrator = New("", nil)
	}
	var lines []Line
	for _, rec := range f.Records() {
		lines = append(lines, narrator.Render(ctx, rec)...)
	}
	return lines
}

// Sink is the publishing side of a record consumer.
type Sink interface {
	Publish(ctx context.Context, records []command.Record) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(ctx context.Context, records []command.Record) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
