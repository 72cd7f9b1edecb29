package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/finbrief/finbrief/store"
)

// CreateNote creates a note at version 1.
func (d *DB) CreateNote(ctx context.Context, create *store.Note) (*store.Note, error) {
	now := time.Now().Unix()

	stmt := `
		INSERT INTO note (uid, creator_id, event_id, symbol, content, tags, latest_version, created_ts, updated_ts)
		VALUES (` + placeholders(9) + `)
		RETURNING id
	`

	err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.CreatorID,
		create.EventID,
		create.Symbol,
		create.Content,
		marshalTags(create.Tags),
		1,
		now,
		now,
	).Scan(&create.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrVersionConflict
		}
		return nil, errors.Wrap(err, "failed to create note")
	}

	create.LatestVersion = 1
	create.CreatedTs = now
	create.UpdatedTs = now
	return create, nil
}

// UpdateNote performs a compare-and-swap on latest_version.
func (d *DB) UpdateNote(ctx context.Context, update *store.UpdateNote) (*store.Note, error) {
	now := time.Now().Unix()

	stmt := `
		UPDATE note
		SET content = ?, tags = ?, latest_version = latest_version + 1, updated_ts = ?
		WHERE id = ? AND latest_version = ?
		RETURNING id, uid, creator_id, event_id, symbol, content, tags, latest_version, created_ts, updated_ts
	`

	note, err := scanNote(d.db.QueryRowContext(ctx, stmt,
		update.Content,
		marshalTags(update.Tags),
		now,
		update.ID,
		update.ExpectedVersion,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVersionConflict
		}
		return nil, errors.Wrap(err, "failed to update note")
	}

	return note, nil
}

// ListNotes lists notes matching the condition, most recently updated first.
func (d *DB) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = ?"), append(args, *find.CreatorID)
	}
	if find.EventID != nil {
		where, args = append(where, "event_id = ?"), append(args, *find.EventID)
	}
	if find.Symbol != nil {
		where, args = append(where, "symbol = ?"), append(args, *find.Symbol)
	}
	if find.ContentSearch != nil {
		// SQLite LIKE is case-insensitive for ASCII by default.
		where, args = append(where, "content LIKE ?"), append(args, "%"+*find.ContentSearch+"%")
	}

	query := `
		SELECT id, uid, creator_id, event_id, symbol, content, tags, latest_version, created_ts, updated_ts
		FROM note
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, id DESC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notes")
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (*store.Note, error) {
	var note store.Note
	var tags string
	if err := s.Scan(
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
	); err != nil {
		return nil, err
	}
	note.Tags = unmarshalTags(tags)
	return &note, nil
}
