package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/autoresolve/internal/platform/i18n"
	"golang.org/x/text/language"
)

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestReporterStampsInOrder(t *testing.T) {
	mem := NewMemory()
	r := New(mem, WithClock(fixedNow))
	r.Emit(Entry{Round: 0, Phase: "starting_scenario", Category: CategoryScenario, Message: "begin"})
	r.Emit(Entry{Round: 1, Phase: "firing", Category: CategoryFiring, Severity: SeverityWarn, Message: "line one\nline two"})

	entries := mem.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Seq != 1 || entries[1].Seq != 2 {
		t.Fatalf("seq = %d, %d", entries[0].Seq, entries[1].Seq)
	}
	if entries[0].Severity != SeverityInfo {
		t.Fatalf("default severity = %q", entries[0].Severity)
	}
	if entries[1].Message != "line one line two" {
		t.Fatalf("message = %q", entries[1].Message)
	}
	if !entries[0].At.Equal(fixedNow()) {
		t.Fatalf("at = %v", entries[0].At)
	}
	if r.Count() != 2 {
		t.Fatalf("count = %d", r.Count())
	}
}

func TestReporterSurvivesSinkFailure(t *testing.T) {
	boom := errors.New("disk full")
	calls := 0
	r := New(SinkFunc(func(Entry) error {
		calls++
		return boom
	}))
	r.Emit(Entry{Message: "a"})
	r.Emit(Entry{Message: "b"})
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if !errors.Is(r.Err(), boom) {
		t.Fatalf("err = %v", r.Err())
	}
}

func TestNilSinkDiscards(t *testing.T) {
	r := New(nil)
	entry := r.Emit(Entry{Message: "x"})
	if entry.Seq != 1 || r.Err() != nil {
		t.Fatalf("entry = %+v err = %v", entry, r.Err())
	}
}

func TestMultiWritesEverySink(t *testing.T) {
	first := NewMemory()
	second := NewMemory()
	failing := SinkFunc(func(Entry) error { return errors.New("nope") })
	sink := Multi(first, nil, failing, second)
	if err := sink.Write(Entry{Seq: 1}); err == nil {
		t.Fatal("expected joined error")
	}
	if len(first.Entries()) != 1 || len(second.Entries()) != 1 {
		t.Fatalf("first=%d second=%d", len(first.Entries()), len(second.Entries()))
	}
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewText(&buf)
	if err := sink.Write(Entry{Round: 2, Phase: "firing", Severity: SeverityInfo, Message: "a hits b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Write(Entry{Round: 2, Phase: "end", Severity: SeverityWarn, Message: "odd"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "[round 2] firing") || !strings.HasSuffix(lines[0], "a hits b") {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "warn: odd") {
		t.Fatalf("line 1 = %q", lines[1])
	}
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf)
	for i := 1; i <= 2; i++ {
		if err := sink.Write(Entry{Seq: i, Category: CategoryEngine, Message: "m", Entity: "e1"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	dec := json.NewDecoder(&buf)
	for i := 1; i <= 2; i++ {
		var got Entry
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Seq != i || got.Entity != "e1" || got.Category != CategoryEngine {
			t.Fatalf("entry = %+v", got)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    string
	}{
		{
			name:    "local victory",
			summary: Summary{Scenario: "ridge", Seed: 7, Verdict: VerdictVictory, Victor: "red", LocalTeam: "red", LocalVictory: true, Rounds: 3},
			want:    "Victory! red won after 3 rounds",
		},
		{
			name:    "local defeat",
			summary: Summary{Scenario: "ridge", Verdict: VerdictVictory, Victor: "blue", LocalTeam: "red", Rounds: 4},
			want:    "Defeat. blue won after 4 rounds",
		},
		{
			name:    "neutral victory",
			summary: Summary{Scenario: "ridge", Verdict: VerdictVictory, Victor: "blue", Rounds: 4},
			want:    "blue won after 4 rounds",
		},
		{
			name:    "round cap",
			summary: Summary{Scenario: "ridge", Verdict: VerdictRoundCap, Rounds: 50},
			want:    "No decision after 50 rounds",
		},
		{
			name:    "draw",
			summary: Summary{Scenario: "ridge", Verdict: VerdictDraw, Rounds: 2},
			want:    "No side left standing after 2 rounds",
		},
		{
			name:    "halted",
			summary: Summary{Scenario: "ridge", Verdict: VerdictHalted, Rounds: 1},
			want:    "Stopped without a verdict after 1 rounds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteSummary(&buf, i18n.Printer(language.MustParse("en-US")), tt.summary); err != nil {
				t.Fatalf("write summary: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("summary = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteSummaryGroupsLargeNumbers(t *testing.T) {
	var buf bytes.Buffer
	s := Summary{Scenario: "siege", Verdict: VerdictRoundCap, Rounds: 1, Entries: 12345}
	if err := WriteSummary(&buf, i18n.Printer(language.MustParse("en-US")), s); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	if !strings.Contains(buf.String(), "12,345 report entries") {
		t.Fatalf("summary = %q", buf.String())
	}
}
