package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Memory keeps entries in memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory returns an empty memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Write appends entry.
func (m *Memory) Write(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// Text writes one human-readable line per entry.
type Text struct {
	w io.Writer
}

// NewText returns a text sink writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Write formats entry as a single line.
func (t *Text) Write(entry Entry) error {
	_, err := fmt.Fprintln(t.w, FormatLine(entry))
	return err
}

// FormatLine renders an entry the way the text sink prints it.
func FormatLine(entry Entry) string {
	prefix := fmt.Sprintf("[round %d] %-10s", entry.Round, entry.Phase)
	if entry.Severity != SeverityInfo && entry.Severity != "" {
		prefix += " " + string(entry.Severity) + ":"
	}
	return prefix + " " + entry.Message
}

// JSON writes newline-delimited JSON entries.
type JSON struct {
	enc *json.Encoder
}

// NewJSON returns a JSON lines sink writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{enc: json.NewEncoder(w)}
}

// Write encodes entry on its own line.
func (j *JSON) Write(entry Entry) error {
	if err := j.enc.Encode(entry); err != nil {
		return fmt.Errorf("encode entry %d: %w", entry.Seq, err)
	}
	return nil
}

// Multi fans entries out to sinks in order. Every sink sees every entry even
// when an earlier one fails.
func Multi(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return multi(filtered)
}

type multi []Sink

func (m multi) Write(entry Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
