package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/finbrief/finbrief/store"
)

// SQLite has no pgvector equivalent. Vector storage and search require
// PostgreSQL; on this driver the retrieval orchestrator falls back to
// substring matching.

// UpsertNoteEmbedding is NOT supported for SQLite.
func (d *DB) UpsertNoteEmbedding(ctx context.Context, upsert *store.NoteEmbedding) (*store.NoteEmbedding, error) {
	return nil, errors.New("note embedding (vector storage) requires PostgreSQL with pgvector extension")
}

// VectorSearchNotes is NOT supported for SQLite.
func (d *DB) VectorSearchNotes(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.NoteWithScore, error) {
	return nil, errors.New("vector search requires PostgreSQL with pgvector extension")
}

// FindNotesWithoutEmbedding is NOT supported for SQLite.
func (d *DB) FindNotesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.Note, error) {
	return nil, errors.New("note embedding (vector storage) requires PostgreSQL with pgvector extension")
}
