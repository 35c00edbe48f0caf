// Package report narrates a battle run as an ordered stream of entries.
//
// A Reporter stamps each entry with a sequence number and a timestamp and
// hands it to a single Sink synchronously, in emission order. Sink failures
// are logged and remembered; they never stop the battle.
package report

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// Category groups entries by the part of the run that produced them.
type Category string

const (
	CategoryScenario   Category = "scenario"
	CategoryInitiative Category = "initiative"
	CategoryDeployment Category = "deployment"
	CategoryMovement   Category = "movement"
	CategoryFiring     Category = "firing"
	CategoryEnd        Category = "end"
	CategoryVictory    Category = "victory"
	CategoryEngine     Category = "engine"
)

// Severity marks how noteworthy an entry is.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Entry is one immutable narrative line.
type Entry struct {
	Seq      int       `json:"seq"`
	Round    int       `json:"round"`
	Phase    string    `json:"phase"`
	Category Category  `json:"category"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
	Entity   string    `json:"entity,omitempty"`
	Target   string    `json:"target,omitempty"`
}

// Sink receives entries in emission order.
type Sink interface {
	Write(Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Entry) error

// Write calls f.
func (f SinkFunc) Write(entry Entry) error {
	return f(entry)
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reporter forwards entries to a sink. It is not safe for concurrent use;
// each run owns its own Reporter.
type Reporter struct {
	sink   Sink
	now    func() time.Time
	logger *zap.Logger
	seq    int
	err    error
}

// New returns a Reporter writing to sink. A nil sink discards entries.
func New(sink Sink, opts ...Option) *Reporter {
	r := &Reporter{
		sink:   sink,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Emit stamps entry and writes it to the sink. The stamped entry is returned.
func (r *Reporter) Emit(entry Entry) Entry {
	r.seq++
	entry.Seq = r.seq
	entry.At = r.now().UTC()
	entry.Message = singleLine(entry.Message)
	if entry.Severity == "" {
		entry.Severity = SeverityInfo
	}
	if r.sink == nil {
		return entry
	}
	if err := r.sink.Write(entry); err != nil {
		r.logger.Warn("report sink write failed",
			zap.Int("seq", entry.Seq),
			zap.Int("round", entry.Round),
			zap.String("phase", entry.Phase),
			zap.Error(err),
		)
		if r.err == nil {
			r.err = err
		}
	}
	return entry
}

// Count returns the number of entries emitted so far.
func (r *Reporter) Count() int {
	return r.seq
}

// Err returns the first sink failure, if any.
func (r *Reporter) Err() error {
	return r.err
}

func singleLine(message string) string {
	message = strings.TrimSpace(message)
	if !strings.ContainsAny(message, "\r\n") {
		return message
	}
	return strings.Join(strings.Fields(message), " ")
}
