package store

import "strings"

// EarningsEvent is a scheduled or reported earnings release. Rows are
// written by the ingest pipeline; this subsystem only reads them.
type EarningsEvent struct {
	ID       int32
	Symbol   string
	Company  string
	ReportTs int64
}

// EarningsAnalysis is the AI-generated narrative for an earnings event,
// produced by the analysis pipeline. Read-only here; may not exist.
type EarningsAnalysis struct {
	ID         int32
	EventID    int32
	Summary    string
	Highlights []string
	Concerns   []string
	CreatedTs  int64
	UpdatedTs  int64
}

// Narrative flattens summary, highlights, and concerns into the single
// text that alignment scoring embeds.
func (a *EarningsAnalysis) Narrative() string {
	var b strings.Builder
	b.WriteString(a.Summary)
	if len(a.Highlights) > 0 {
		b.WriteString("\nHighlights: ")
		b.WriteString(strings.Join(a.Highlights, "; "))
	}
	if len(a.Concerns) > 0 {
		b.WriteString("\nConcerns: ")
		b.WriteString(strings.Join(a.Concerns, "; "))
	}
	return b.String()
}
