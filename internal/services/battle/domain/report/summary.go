package report

import (
	"io"

	"golang.org/x/text/message"
)

// Verdict mirrors the terminal status of a run for summaries.
type Verdict string

const (
	VerdictVictory  Verdict = "victory"
	VerdictDraw     Verdict = "draw"
	VerdictRoundCap Verdict = "round_cap"
	VerdictHalted   Verdict = "halted"
)

// Summary is the closing digest of one run.
type Summary struct {
	Scenario     string
	Seed         int64
	Verdict      Verdict
	Victor       string
	LocalTeam    string
	LocalVictory bool
	Rounds       int
	Survivors    int
	Destroyed    int
	Withdrawn    int
	Entries      int
}

// WriteSummary prints a localized digest using p. Keys resolve through the
// embedded catalogs registered with x/text/message.
func WriteSummary(w io.Writer, p *message.Printer, s Summary) error {
	lines := []string{p.Sprintf("summary.header", s.Scenario, s.Seed)}
	switch {
	case s.Verdict == VerdictVictory && s.LocalTeam != "" && s.LocalVictory:
		lines = append(lines, p.Sprintf("summary.local_victory", s.Victor, s.Rounds))
	case s.Verdict == VerdictVictory && s.LocalTeam != "":
		lines = append(lines, p.Sprintf("summary.local_defeat", s.Victor, s.Rounds))
	case s.Verdict == VerdictVictory:
		lines = append(lines, p.Sprintf("summary.victory", s.Victor, s.Rounds))
	case s.Verdict == VerdictDraw:
		lines = append(lines, p.Sprintf("summary.draw", s.Rounds))
	case s.Verdict == VerdictHalted:
		lines = append(lines, p.Sprintf("summary.halted", s.Rounds))
	default:
		lines = append(lines, p.Sprintf("summary.round_cap", s.Rounds))
	}
	lines = append(lines,
		p.Sprintf("summary.losses", s.Survivors, s.Destroyed+s.Withdrawn, s.Destroyed, s.Withdrawn),
		p.Sprintf("summary.entries", s.Entries),
	)
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}
