package note

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finbrief/finbrief/internal/profile"
	"github.com/finbrief/finbrief/plugin/ai"
	"github.com/finbrief/finbrief/plugin/ai/alignment"
	"github.com/finbrief/finbrief/plugin/ai/tags"
	svcerrors "github.com/finbrief/finbrief/server/internal/errors"
	"github.com/finbrief/finbrief/store"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.vector) }
func (s *stubEmbedder) Model() string   { return "stub-embed" }
func (s *stubEmbedder) Enabled() bool   { return true }

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	return s.response, s.err
}

func newTestService(driver *fakeDriver, embedder ai.EmbeddingService, llm ai.LLMService) *Service {
	s := store.New(driver, &profile.Profile{Mode: "dev"})
	var extractor *tags.Extractor
	if llm != nil {
		extractor = tags.NewExtractor(llm, nil)
	}
	var scorer *alignment.Scorer
	if embedder != nil {
		scorer = alignment.NewScorer(embedder, nil)
	}
	return NewService(s, embedder, extractor, scorer, nil)
}

func seedEvent(driver *fakeDriver, id int32, symbol string) {
	driver.events[id] = &store.EarningsEvent{ID: id, Symbol: symbol, Company: symbol + " Inc."}
}

func TestUpsertNoteCreatesFirstVersion(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	svc := newTestService(driver, nil, nil)
	ctx := context.Background()

	note, version, err := svc.UpsertNote(ctx, 1, 7, "  Guidance looks conservative.  ")
	require.NoError(t, err)
	require.Equal(t, int32(1), version)
	require.Equal(t, int32(1), note.LatestVersion)
	require.Equal(t, "AAPL", note.Symbol)
	require.Equal(t, "Guidance looks conservative.", note.Content)

	versions, err := svc.ListVersions(ctx, 1, note.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, int32(1), versions[0].Version)
	require.Nil(t, versions[0].AlignmentScore)
	require.Empty(t, driver.embeds)
}

func TestUpsertNoteAppendsVersions(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	svc := newTestService(driver, nil, nil)
	ctx := context.Background()

	first, _, err := svc.UpsertNote(ctx, 1, 7, "first take")
	require.NoError(t, err)

	second, version, err := svc.UpsertNote(ctx, 1, 7, "second take")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, int32(2), version)
	require.Equal(t, int32(2), second.LatestVersion)

	versions, err := svc.ListVersions(ctx, 1, first.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, int32(2), versions[0].Version)
	require.Equal(t, "second take", versions[0].Content)
	require.Equal(t, int32(1), versions[1].Version)
	require.Equal(t, "first take", versions[1].Content)
}

func TestUpsertNoteValidation(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	svc := newTestService(driver, nil, nil)
	ctx := context.Background()

	_, _, err := svc.UpsertNote(ctx, 1, 7, "   ")
	require.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeInvalidArgument))

	long := make([]byte, MaxContentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err = svc.UpsertNote(ctx, 1, 7, string(long))
	require.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeInvalidArgument))

	_, _, err = svc.UpsertNote(ctx, 1, 99, "no such event")
	require.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestUpsertNoteRetriesOnceOnConflict(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	svc := newTestService(driver, nil, nil)
	ctx := context.Background()

	note, _, err := svc.UpsertNote(ctx, 1, 7, "first take")
	require.NoError(t, err)

	// A concurrent writer bumps the note between our read and our CAS.
	driver.conflictNextUpdate = true

	updated, version, err := svc.UpsertNote(ctx, 1, 7, "second take")
	require.NoError(t, err)
	require.Equal(t, note.ID, updated.ID)
	require.Equal(t, int32(3), version)
	require.Equal(t, 2, driver.updateCalls)

	versions, err := svc.ListVersions(ctx, 1, note.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		require.Equal(t, int32(3-i), v.Version)
	}
}

func TestUpsertNoteEmbeddingIsBestEffort(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	embedder := &stubEmbedder{err: errors.New("provider down")}
	svc := newTestService(driver, embedder, nil)
	ctx := context.Background()

	note, version, err := svc.UpsertNote(ctx, 1, 7, "margins compressing")
	require.NoError(t, err)
	require.Equal(t, int32(1), version)
	require.Empty(t, driver.embeds)

	embedder.err = nil
	embedder.vector = []float32{0.1, 0.2, 0.3}
	_, _, err = svc.UpsertNote(ctx, 1, 7, "margins recovering")
	require.NoError(t, err)
	require.Len(t, driver.embeds, 1)
	require.Equal(t, "stub-embed", driver.embeds[note.ID].Model)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, driver.embeds[note.ID].Embedding)
}

func TestUpsertNoteAnnotations(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	driver.analyst[7] = &store.EarningsAnalysis{EventID: 7, Summary: "Strong quarter with expanding services revenue."}

	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	llm := &stubLLM{response: `{"tags": ["#guidance", "margins", "Margins", "buyback"]}`}
	svc := newTestService(driver, embedder, llm)
	ctx := context.Background()

	note, _, err := svc.UpsertNote(ctx, 1, 7, "services growth supports the guidance raise")
	require.NoError(t, err)
	require.Equal(t, []string{"guidance", "margins", "buyback"}, note.Tags)

	versions, err := svc.ListVersions(ctx, 1, note.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.NotNil(t, versions[0].AlignmentScore)
	// Identical stub vectors for note and narrative give similarity 1.
	require.InDelta(t, 1.0, *versions[0].AlignmentScore, 1e-9)
	require.NotNil(t, versions[0].AlignmentSummary)
	require.Contains(t, *versions[0].AlignmentSummary, "High alignment")
}

func TestUpsertNoteDegradesWithoutAnalysis(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	llm := &stubLLM{err: errors.New("llm timeout")}
	svc := newTestService(driver, embedder, llm)
	ctx := context.Background()

	note, _, err := svc.UpsertNote(ctx, 1, 7, "watching inventory levels")
	require.NoError(t, err)
	require.Empty(t, note.Tags)

	versions, err := svc.ListVersions(ctx, 1, note.ID, 0)
	require.NoError(t, err)
	require.Nil(t, versions[0].AlignmentScore)
	require.Nil(t, versions[0].AlignmentSummary)
}

func TestRestoreVersion(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	llm := &stubLLM{response: `{"tags": ["guidance"]}`}
	svc := newTestService(driver, nil, llm)
	ctx := context.Background()

	note, _, err := svc.UpsertNote(ctx, 1, 7, "original thesis")
	require.NoError(t, err)
	_, _, err = svc.UpsertNote(ctx, 1, 7, "revised thesis")
	require.NoError(t, err)

	restored, version, err := svc.RestoreVersion(ctx, 1, note.ID, 1)
	require.NoError(t, err)
	require.Equal(t, int32(3), version)
	require.Equal(t, "original thesis", restored.Content)
	require.Equal(t, []string{"guidance"}, restored.Tags)

	versions, err := svc.ListVersions(ctx, 1, note.ID, 0)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	require.Equal(t, "original thesis", versions[0].Content)
	require.Equal(t, "revised thesis", versions[1].Content)
}

func TestRestoreVersionReadsFreshAnalysis(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	driver.analyst[7] = &store.EarningsAnalysis{EventID: 7, Summary: "Guidance raised on services strength."}

	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	svc := newTestService(driver, embedder, nil)
	ctx := context.Background()

	note, _, err := svc.UpsertNote(ctx, 1, 7, "services growth supports the raise")
	require.NoError(t, err)
	require.Equal(t, 1, driver.analysisReads)

	// A second write within the TTL is served from the cache.
	_, _, err = svc.UpsertNote(ctx, 1, 7, "still constructive after the call")
	require.NoError(t, err)
	require.Equal(t, 1, driver.analysisReads)

	// The analysis is withdrawn; a restore must see that immediately
	// instead of scoring against the cached narrative.
	delete(driver.analyst, 7)

	_, version, err := svc.RestoreVersion(ctx, 1, note.ID, 1)
	require.NoError(t, err)
	require.Equal(t, int32(3), version)
	require.Equal(t, 2, driver.analysisReads)

	versions, err := svc.ListVersions(ctx, 1, note.ID, 0)
	require.NoError(t, err)
	require.Nil(t, versions[0].AlignmentScore)
	require.NotNil(t, versions[2].AlignmentScore)
}

func TestRestoreVersionNotFound(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	svc := newTestService(driver, nil, nil)
	ctx := context.Background()

	note, _, err := svc.UpsertNote(ctx, 1, 7, "original thesis")
	require.NoError(t, err)

	// Someone else's note is indistinguishable from a missing one.
	_, _, err = svc.RestoreVersion(ctx, 2, note.ID, 1)
	require.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))

	_, _, err = svc.RestoreVersion(ctx, 1, note.ID, 9)
	require.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))

	_, _, err = svc.RestoreVersion(ctx, 1, 999, 1)
	require.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestListVersionsOwnership(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	svc := newTestService(driver, nil, nil)
	ctx := context.Background()

	note, _, err := svc.UpsertNote(ctx, 1, 7, "original thesis")
	require.NoError(t, err)

	_, err = svc.ListVersions(ctx, 2, note.ID, 0)
	require.True(t, svcerrors.IsCode(err, svcerrors.ErrCodeNotFound))
}

func TestListVersionsLimit(t *testing.T) {
	driver := newFakeDriver()
	seedEvent(driver, 7, "AAPL")
	svc := newTestService(driver, nil, nil)
	ctx := context.Background()

	var noteID int32
	for _, content := range []string{"v1", "v2", "v3"} {
		note, _, err := svc.UpsertNote(ctx, 1, 7, content)
		require.NoError(t, err)
		noteID = note.ID
	}

	versions, err := svc.ListVersions(ctx, 1, noteID, 2)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, int32(3), versions[0].Version)
	require.Equal(t, int32(2), versions[1].Version)
}
