package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/finbrief/finbrief/store"
)

// CreateNoteVersion writes a new immutable version snapshot.
func (d *DB) CreateNoteVersion(ctx context.Context, create *store.NoteVersion) (*store.NoteVersion, error) {
	now := time.Now().Unix()

	stmt := `
		INSERT INTO note_version (note_id, version, content, tags, alignment_score, alignment_summary, created_ts)
		VALUES (` + placeholders(7) + `)
		RETURNING id
	`

	err := d.db.QueryRowContext(ctx, stmt,
		create.NoteID,
		create.Version,
		create.Content,
		marshalTags(create.Tags),
		create.AlignmentScore,
		create.AlignmentSummary,
		now,
	).Scan(&create.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrVersionConflict
		}
		return nil, errors.Wrap(err, "failed to create note version")
	}

	create.CreatedTs = now
	return create, nil
}

// ListNoteVersions lists versions, descending by version number.
func (d *DB) ListNoteVersions(ctx context.Context, find *store.FindNoteVersion) ([]*store.NoteVersion, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.NoteID != nil {
		where, args = append(where, "note_id = ?"), append(args, *find.NoteID)
	}
	if find.Version != nil {
		where, args = append(where, "version = ?"), append(args, *find.Version)
	}

	query := `
		SELECT id, note_id, version, content, tags, alignment_score, alignment_summary, created_ts
		FROM note_version
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY version DESC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list note versions")
	}
	defer rows.Close()

	list := []*store.NoteVersion{}
	for rows.Next() {
		var version store.NoteVersion
		var tags string
		if err := rows.Scan(
			&version.ID,
			&version.NoteID,
			&version.Version,
			&version.Content,
			&tags,
			&version.AlignmentScore,
			&version.AlignmentSummary,
			&version.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan note version")
		}
		version.Tags = unmarshalTags(tags)
		list = append(list, &version)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
