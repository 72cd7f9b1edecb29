package store

import "context"

// NoteVersion is an immutable snapshot in a note's edit history.
// Version numbers form a gapless increasing sequence starting at 1.
type NoteVersion struct {
	ID      int32
	NoteID  int32
	Version int32

	Content string
	Tags    []string

	// AlignmentScore and AlignmentSummary are nil when no analysis existed
	// or the embedding provider was unavailable at write time.
	AlignmentScore   *float64
	AlignmentSummary *string

	CreatedTs int64
}

// FindNoteVersion is the find condition for note versions.
type FindNoteVersion struct {
	NoteID  *int32
	Version *int32
	Limit   *int
}

// CreateNoteVersion writes a new immutable version snapshot.
func (s *Store) CreateNoteVersion(ctx context.Context, create *NoteVersion) (*NoteVersion, error) {
	return s.driver.CreateNoteVersion(ctx, create)
}

// ListNoteVersions lists versions, descending by version number.
func (s *Store) ListNoteVersions(ctx context.Context, find *FindNoteVersion) ([]*NoteVersion, error) {
	return s.driver.ListNoteVersions(ctx, find)
}

// GetNoteVersion gets one version of a note. Returns nil when absent.
func (s *Store) GetNoteVersion(ctx context.Context, noteID, version int32) (*NoteVersion, error) {
	list, err := s.driver.ListNoteVersions(ctx, &FindNoteVersion{
		NoteID:  &noteID,
		Version: &version,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
