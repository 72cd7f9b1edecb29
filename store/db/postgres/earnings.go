package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/finbrief/finbrief/store"
)

// GetEarningsEvent gets an earnings event by id. Returns nil when absent.
func (d *DB) GetEarningsEvent(ctx context.Context, id int32) (*store.EarningsEvent, error) {
	query := `
		SELECT id, symbol, company, report_ts
		FROM earnings_event
		WHERE id = $1
	`

	var event store.EarningsEvent
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Symbol,
		&event.Company,
		&event.ReportTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get earnings event")
	}

	return &event, nil
}

// GetEarningsAnalysis gets the AI analysis narrative for an event.
// Returns nil when no analysis exists yet.
func (d *DB) GetEarningsAnalysis(ctx context.Context, eventID int32) (*store.EarningsAnalysis, error) {
	query := `
		SELECT id, event_id, summary, highlights, concerns, created_ts, updated_ts
		FROM earnings_analysis
		WHERE event_id = $1
	`

	var analysis store.EarningsAnalysis
	var highlights, concerns string
	err := d.db.QueryRowContext(ctx, query, eventID).Scan(
		&analysis.ID,
		&analysis.EventID,
		&analysis.Summary,
		&highlights,
		&concerns,
		&analysis.CreatedTs,
		&analysis.UpdatedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get earnings analysis")
	}

	analysis.Highlights = unmarshalStringList(highlights)
	analysis.Concerns = unmarshalStringList(concerns)
	return &analysis, nil
}
