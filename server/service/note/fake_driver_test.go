package note

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/finbrief/finbrief/store"
)

// fakeDriver is an in-memory store.Driver for service tests. It mirrors
// the SQL drivers' contracts: unique keys surface as ErrVersionConflict,
// listings order by recency, and vector search behavior is injectable.
type fakeDriver struct {
	mu sync.Mutex

	nextID  int32
	seq     int64 // monotonic clock for created/updated timestamps
	notes   map[int32]*store.Note
	vers    []*store.NoteVersion
	embeds  map[int32]*store.NoteEmbedding
	events  map[int32]*store.EarningsEvent
	analyst map[int32]*store.EarningsAnalysis

	// conflictNextUpdate simulates a concurrent writer: the next UpdateNote
	// call bumps the row (with its own version snapshot) and reports a
	// stale expectation.
	conflictNextUpdate bool

	vectorHits []*store.NoteWithScore
	vectorErr  error
	listErr    error

	updateCalls   int
	analysisReads int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		notes:   map[int32]*store.Note{},
		embeds:  map[int32]*store.NoteEmbedding{},
		events:  map[int32]*store.EarningsEvent{},
		analyst: map[int32]*store.EarningsAnalysis{},
	}
}

func (d *fakeDriver) GetDB() *sql.DB { return nil }
func (d *fakeDriver) Close() error   { return nil }

func (d *fakeDriver) IsInitialized(ctx context.Context) (bool, error) { return true, nil }

func (d *fakeDriver) GetEarningsEvent(ctx context.Context, id int32) (*store.EarningsEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events[id], nil
}

func (d *fakeDriver) GetEarningsAnalysis(ctx context.Context, eventID int32) (*store.EarningsAnalysis, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.analysisReads++
	return d.analyst[eventID], nil
}

func (d *fakeDriver) CreateNote(ctx context.Context, create *store.Note) (*store.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.notes {
		if n.CreatorID == create.CreatorID && n.EventID == create.EventID {
			return nil, store.ErrVersionConflict
		}
	}
	d.nextID++
	d.seq++
	note := *create
	note.ID = d.nextID
	note.LatestVersion = 1
	note.CreatedTs = d.seq
	note.UpdatedTs = d.seq
	d.notes[note.ID] = &note
	copied := note
	return &copied, nil
}

func (d *fakeDriver) UpdateNote(ctx context.Context, update *store.UpdateNote) (*store.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateCalls++
	note, ok := d.notes[update.ID]
	if !ok {
		return nil, store.ErrVersionConflict
	}
	if d.conflictNextUpdate {
		d.conflictNextUpdate = false
		d.seq++
		note.LatestVersion++
		note.UpdatedTs = d.seq
		d.vers = append(d.vers, &store.NoteVersion{
			ID:        int32(len(d.vers) + 1),
			NoteID:    note.ID,
			Version:   note.LatestVersion,
			Content:   note.Content,
			Tags:      note.Tags,
			CreatedTs: d.seq,
		})
		return nil, store.ErrVersionConflict
	}
	if note.LatestVersion != update.ExpectedVersion {
		return nil, store.ErrVersionConflict
	}
	d.seq++
	note.Content = update.Content
	note.Tags = update.Tags
	note.LatestVersion++
	note.UpdatedTs = d.seq
	copied := *note
	return &copied, nil
}

func (d *fakeDriver) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	var list []*store.Note
	for _, n := range d.notes {
		if find.ID != nil && n.ID != *find.ID {
			continue
		}
		if find.UID != nil && n.UID != *find.UID {
			continue
		}
		if find.CreatorID != nil && n.CreatorID != *find.CreatorID {
			continue
		}
		if find.EventID != nil && n.EventID != *find.EventID {
			continue
		}
		if find.Symbol != nil && n.Symbol != *find.Symbol {
			continue
		}
		if find.ContentSearch != nil && !strings.Contains(strings.ToLower(n.Content), strings.ToLower(*find.ContentSearch)) {
			continue
		}
		copied := *n
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].UpdatedTs != list[j].UpdatedTs {
			return list[i].UpdatedTs > list[j].UpdatedTs
		}
		return list[i].ID > list[j].ID
	})
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *fakeDriver) CreateNoteVersion(ctx context.Context, create *store.NoteVersion) (*store.NoteVersion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, v := range d.vers {
		if v.NoteID == create.NoteID && v.Version == create.Version {
			return nil, store.ErrVersionConflict
		}
	}
	d.seq++
	version := *create
	version.ID = int32(len(d.vers) + 1)
	version.CreatedTs = d.seq
	d.vers = append(d.vers, &version)
	copied := version
	return &copied, nil
}

func (d *fakeDriver) ListNoteVersions(ctx context.Context, find *store.FindNoteVersion) ([]*store.NoteVersion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var list []*store.NoteVersion
	for _, v := range d.vers {
		if find.NoteID != nil && v.NoteID != *find.NoteID {
			continue
		}
		if find.Version != nil && v.Version != *find.Version {
			continue
		}
		copied := *v
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Version > list[j].Version })
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *fakeDriver) UpsertNoteEmbedding(ctx context.Context, upsert *store.NoteEmbedding) (*store.NoteEmbedding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	row := *upsert
	if existing, ok := d.embeds[upsert.NoteID]; ok {
		row.ID = existing.ID
		row.CreatedTs = existing.CreatedTs
	} else {
		row.ID = int32(len(d.embeds) + 1)
		row.CreatedTs = d.seq
	}
	row.UpdatedTs = d.seq
	d.embeds[row.NoteID] = &row
	copied := row
	return &copied, nil
}

func (d *fakeDriver) FindNotesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.Note, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var list []*store.Note
	for _, n := range d.notes {
		if e, ok := d.embeds[n.ID]; ok && e.Model == model && e.UpdatedTs >= n.UpdatedTs {
			continue
		}
		copied := *n
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedTs > list[j].UpdatedTs })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (d *fakeDriver) VectorSearchNotes(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.NoteWithScore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.vectorErr != nil {
		return nil, d.vectorErr
	}
	return d.vectorHits, nil
}
