package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/finbrief/finbrief/store"
)

// UpsertNoteEmbedding inserts or updates the embedding of a note's
// current content.
func (d *DB) UpsertNoteEmbedding(ctx context.Context, upsert *store.NoteEmbedding) (*store.NoteEmbedding, error) {
	now := time.Now().Unix()

	stmt := `
		INSERT INTO note_embedding (note_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (note_id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`

	vector := pgvector.NewVector(upsert.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		upsert.NoteID,
		vector,
		upsert.Model,
		now,
		now,
	).Scan(&upsert.ID, &upsert.CreatedTs, &upsert.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert note embedding")
	}

	return upsert, nil
}

// FindNotesWithoutEmbedding returns notes whose embedding row is missing
// or predates the note's last update. Used by the backfill runner to
// repair the semantic index after best-effort upserts failed.
func (d *DB) FindNotesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.Note, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT n.id, n.uid, n.creator_id, n.event_id, n.symbol, n.content, n.tags, n.latest_version, n.created_ts, n.updated_ts
		FROM note n
		LEFT JOIN note_embedding e ON n.id = e.note_id AND e.model = $1
		WHERE e.id IS NULL OR e.updated_ts < n.updated_ts
		ORDER BY n.updated_ts DESC
		LIMIT $2
	`

	rows, err := d.db.QueryContext(ctx, query, model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find notes without embedding")
	}
	defer rows.Close()

	list := []*store.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan note")
		}
		list = append(list, note)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// VectorSearchNotes performs nearest-neighbor search using pgvector.
// The <=> operator computes cosine distance (1 - cosine_similarity),
// so results are ordered by distance ascending.
func (d *DB) VectorSearchNotes(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.NoteWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	vector := pgvector.NewVector(opts.Vector)
	where := []string{"n.creator_id = $2"}
	args := []any{vector, opts.CreatorID}

	if opts.Symbol != nil {
		where = append(where, "n.symbol = "+placeholder(len(args)+1))
		args = append(args, *opts.Symbol)
	}
	where = append(where, "1 - (e.embedding <=> $1) >= "+placeholder(len(args)+1))
	args = append(args, opts.MinScore)
	args = append(args, limit)

	query := `
		SELECT
			n.id, n.uid, n.creator_id, n.event_id, n.symbol, n.content, n.tags,
			n.latest_version, n.created_ts, n.updated_ts,
			1 - (e.embedding <=> $1) AS score
		FROM note n
		INNER JOIN note_embedding e ON n.id = e.note_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.embedding <=> $1
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search notes")
	}
	defer rows.Close()

	results := []*store.NoteWithScore{}
	for rows.Next() {
		var result store.NoteWithScore
		var note store.Note
		var tags string

		if err := rows.Scan(
			&note.ID,
			&note.UID,
			&note.CreatorID,
			&note.EventID,
			&note.Symbol,
			&note.Content,
			&tags,
			&note.LatestVersion,
			&note.CreatedTs,
			&note.UpdatedTs,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}

		note.Tags = unmarshalTags(tags)
		result.Note = &note
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
