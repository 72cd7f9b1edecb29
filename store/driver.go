package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// ErrVersionConflict is returned when a conditional note update finds a
// different latest_version than expected, or a note-version insert
// collides on (note_id, version). Callers retry with a fresh read.
var ErrVersionConflict = errors.New("note version conflict")

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// EarningsEvent read model (produced by the ingest pipeline).
	GetEarningsEvent(ctx context.Context, id int32) (*EarningsEvent, error)
	GetEarningsAnalysis(ctx context.Context, eventID int32) (*EarningsAnalysis, error)

	// Note model related methods.
	CreateNote(ctx context.Context, create *Note) (*Note, error)
	// UpdateNote performs a compare-and-swap on latest_version: the update
	// only applies when the row still holds update.ExpectedVersion, and
	// bumps latest_version by exactly one. Returns ErrVersionConflict on a
	// stale expectation.
	UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error)
	ListNotes(ctx context.Context, find *FindNote) ([]*Note, error)

	// NoteVersion model related methods. Versions are immutable once written.
	CreateNoteVersion(ctx context.Context, create *NoteVersion) (*NoteVersion, error)
	ListNoteVersions(ctx context.Context, find *FindNoteVersion) ([]*NoteVersion, error)

	// NoteEmbedding model related methods.
	UpsertNoteEmbedding(ctx context.Context, upsert *NoteEmbedding) (*NoteEmbedding, error)
	// FindNotesWithoutEmbedding returns notes whose embedding row for the
	// given model is missing or older than the note's last update.
	FindNotesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*Note, error)
	// VectorSearchNotes performs nearest-neighbor search over current note
	// embeddings, scoped to one creator.
	VectorSearchNotes(ctx context.Context, opts *VectorSearchOptions) ([]*NoteWithScore, error)
}
