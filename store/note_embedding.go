package store

import "context"

// NoteEmbedding is the vector embedding of a note's current content.
// At most one row per note; stale or absent rows must not block writes.
type NoteEmbedding struct {
	ID        int32
	NoteID    int32
	Embedding []float32
	Model     string // Model identifier, e.g., "text-embedding-3-small"
	CreatedTs int64
	UpdatedTs int64
}

// NoteWithScore is a vector search result with its similarity score.
type NoteWithScore struct {
	Note  *Note
	Score float64 // Cosine similarity, higher is more similar
}

// VectorSearchOptions are the options for nearest-neighbor search.
type VectorSearchOptions struct {
	CreatorID int32     // Required, only search notes of this user
	Vector    []float32 // Query vector
	Symbol    *string   // Optional ticker filter
	MinScore  float64   // Drop results below this similarity
	Limit     int       // Number of results to return, default 10
}

// UpsertNoteEmbedding inserts or updates a note embedding.
func (s *Store) UpsertNoteEmbedding(ctx context.Context, upsert *NoteEmbedding) (*NoteEmbedding, error) {
	return s.driver.UpsertNoteEmbedding(ctx, upsert)
}

// VectorSearchNotes performs vector similarity search.
func (s *Store) VectorSearchNotes(ctx context.Context, opts *VectorSearchOptions) ([]*NoteWithScore, error) {
	return s.driver.VectorSearchNotes(ctx, opts)
}

// FindNotesWithoutEmbedding returns notes with a missing or stale
// embedding, most recently updated first.
func (s *Store) FindNotesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*Note, error) {
	return s.driver.FindNotesWithoutEmbedding(ctx, model, limit)
}
