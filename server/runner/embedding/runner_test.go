package embedding

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finbrief/finbrief/internal/profile"
	"github.com/finbrief/finbrief/store"
)

type backfillDriver struct {
	store.Driver

	pending []*store.Note
	embeds  map[int32]*store.NoteEmbedding
}

func (d *backfillDriver) GetDB() *sql.DB { return nil }
func (d *backfillDriver) Close() error   { return nil }

func (d *backfillDriver) FindNotesWithoutEmbedding(ctx context.Context, model string, limit int) ([]*store.Note, error) {
	var list []*store.Note
	for _, n := range d.pending {
		if _, ok := d.embeds[n.ID]; !ok {
			list = append(list, n)
		}
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (d *backfillDriver) UpsertNoteEmbedding(ctx context.Context, upsert *store.NoteEmbedding) (*store.NoteEmbedding, error) {
	d.embeds[upsert.NoteID] = upsert
	return upsert, nil
}

type batchEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *batchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

func (e *batchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *batchEmbedder) Dimensions() int { return len(e.vector) }
func (e *batchEmbedder) Model() string   { return "test-embed" }
func (e *batchEmbedder) Enabled() bool   { return true }

func TestRunOnceBackfillsPendingNotes(t *testing.T) {
	driver := &backfillDriver{
		pending: []*store.Note{
			{ID: 1, Content: "guidance raised"},
			{ID: 2, Content: "margins flat"},
			{ID: 3, Content: "buyback announced"},
		},
		embeds: map[int32]*store.NoteEmbedding{},
	}
	embedder := &batchEmbedder{vector: []float32{0.5, 0.5}}
	runner := NewRunner(store.New(driver, &profile.Profile{Mode: "dev"}), embedder, nil)
	runner.batchSize = 2

	runner.RunOnce(context.Background())

	require.Len(t, driver.embeds, 3)
	require.Equal(t, 2, embedder.calls)
	require.Equal(t, "test-embed", driver.embeds[1].Model)
	require.Equal(t, []float32{0.5, 0.5}, driver.embeds[2].Embedding)
}

func TestRunOnceSkipsOnProviderFailure(t *testing.T) {
	driver := &backfillDriver{
		pending: []*store.Note{{ID: 1, Content: "guidance raised"}},
		embeds:  map[int32]*store.NoteEmbedding{},
	}
	embedder := &batchEmbedder{err: errors.New("provider down")}
	runner := NewRunner(store.New(driver, &profile.Profile{Mode: "dev"}), embedder, nil)

	runner.RunOnce(context.Background())

	require.Empty(t, driver.embeds)
}

func TestRunOnceNoPendingNotes(t *testing.T) {
	driver := &backfillDriver{embeds: map[int32]*store.NoteEmbedding{}}
	embedder := &batchEmbedder{vector: []float32{1}}
	runner := NewRunner(store.New(driver, &profile.Profile{Mode: "dev"}), embedder, nil)

	runner.RunOnce(context.Background())

	require.Zero(t, embedder.calls)
}
