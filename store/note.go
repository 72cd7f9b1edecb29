package store

import "context"

// Note is a user's free-text annotation attached to one earnings event.
// There is at most one note per (creator, event) pair.
type Note struct {
	ID  int32
	UID string

	CreatorID int32
	EventID   int32
	// Symbol is denormalized from the earnings event at creation time.
	Symbol string

	Content string
	Tags    []string
	// LatestVersion equals the version number of the most recently written
	// note_version row for this note.
	LatestVersion int32

	CreatedTs int64
	UpdatedTs int64
}

// FindNote is the find condition for notes.
type FindNote struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	EventID   *int32
	Symbol    *string
	// ContentSearch matches content by case-insensitive substring.
	ContentSearch *string
	Limit         *int
}

// UpdateNote is a conditional update of a note's denormalized fields.
type UpdateNote struct {
	ID int32
	// ExpectedVersion is the latest_version the caller observed; the update
	// applies only if the row still holds it.
	ExpectedVersion int32
	Content         string
	Tags            []string
}

// CreateNote creates a note at version 1.
func (s *Store) CreateNote(ctx context.Context, create *Note) (*Note, error) {
	return s.driver.CreateNote(ctx, create)
}

// UpdateNote applies a compare-and-swap update, bumping latest_version.
func (s *Store) UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error) {
	return s.driver.UpdateNote(ctx, update)
}

// ListNotes lists notes matching the condition, most recently updated first.
func (s *Store) ListNotes(ctx context.Context, find *FindNote) ([]*Note, error) {
	return s.driver.ListNotes(ctx, find)
}

// GetNote gets a single note matching the condition. Returns nil when absent.
func (s *Store) GetNote(ctx context.Context, find *FindNote) (*Note, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListNotes(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
