// Package note implements the versioned earnings-note service: the
// append-only version store, the restore workflow, and the three-tier
// retrieval orchestrator.
package note

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/errgroup"

	"github.com/finbrief/finbrief/plugin/ai"
	"github.com/finbrief/finbrief/plugin/ai/alignment"
	"github.com/finbrief/finbrief/plugin/ai/tags"
	"github.com/finbrief/finbrief/plugin/ai/timeout"
	svcerrors "github.com/finbrief/finbrief/server/internal/errors"
	"github.com/finbrief/finbrief/store"
)

const (
	// MaxContentLength is the maximum note content length in characters.
	MaxContentLength = 12000

	// DefaultVersionLimit is the default page size for version listings.
	DefaultVersionLimit = 20
	maxVersionLimit     = 100
)

// Service orchestrates note writes, restores, and retrieval.
type Service struct {
	store     *store.Store
	embedder  ai.EmbeddingService // nil when embeddings are disabled
	extractor *tags.Extractor
	scorer    *alignment.Scorer
	logger    *slog.Logger
}

// NewService creates the note service. embedder may be nil (embeddings
// disabled); extractor and scorer degrade internally.
func NewService(s *store.Store, embedder ai.EmbeddingService, extractor *tags.Extractor, scorer *alignment.Scorer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     s,
		embedder:  embedder,
		extractor: extractor,
		scorer:    scorer,
		logger:    logger,
	}
}

func (s *Service) embeddingsEnabled() bool {
	return s.embedder != nil && s.embedder.Enabled()
}

// UpsertNote creates the user's note for an earnings event, or appends a
// new version to the existing one. Tag extraction and alignment scoring
// run concurrently before the write; both are best-effort. Embedding
// refresh happens after the write and is also best-effort.
func (s *Service) UpsertNote(ctx context.Context, userID, eventID int32, content string) (*store.Note, int32, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, 0, svcerrors.InvalidArgument("content must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, 0, svcerrors.InvalidArgument("content exceeds %d characters", MaxContentLength)
	}
	if userID <= 0 || eventID <= 0 {
		return nil, 0, svcerrors.InvalidArgument("user and event ids must be positive")
	}

	event, err := s.store.GetEarningsEvent(ctx, eventID)
	if err != nil {
		return nil, 0, svcerrors.Internal("failed to load earnings event", err)
	}
	if event == nil {
		return nil, 0, svcerrors.NotFound("earnings event %d not found", eventID)
	}

	noteTags, alignmentResult := s.annotate(ctx, eventID, content)

	note, version, err := s.persistVersion(ctx, userID, event, content, noteTags, alignmentResult)
	if err != nil {
		return nil, 0, err
	}

	s.refreshEmbedding(ctx, note)
	return note, version, nil
}

// RestoreVersion reinstates a prior version's content and tags as a new
// current version. Alignment is recomputed against the current analysis
// context, not copied: the context may have changed since the restored
// version was written.
func (s *Service) RestoreVersion(ctx context.Context, userID, noteID, targetVersion int32) (*store.Note, int32, error) {
	if userID <= 0 || noteID <= 0 || targetVersion <= 0 {
		return nil, 0, svcerrors.InvalidArgument("ids and version must be positive")
	}

	note, err := s.store.GetNote(ctx, &store.FindNote{ID: &noteID, CreatorID: &userID})
	if err != nil {
		return nil, 0, svcerrors.Internal("failed to load note", err)
	}
	if note == nil {
		// A note owned by another user looks identical to a nonexistent one.
		return nil, 0, svcerrors.NotFound("note %d not found", noteID)
	}

	target, err := s.store.GetNoteVersion(ctx, noteID, targetVersion)
	if err != nil {
		return nil, 0, svcerrors.Internal("failed to load note version", err)
	}
	if target == nil {
		return nil, 0, svcerrors.NotFound("version %d of note %d not found", targetVersion, noteID)
	}

	// Restores are rare and correctness-sensitive: bypass the narrative
	// cache so alignment reflects the analysis as it stands right now.
	s.store.InvalidateAnalysisNarrative(note.EventID)
	narrative := s.analysisNarrative(ctx, note.EventID)
	alignmentResult := s.scoreAlignment(ctx, target.Content, narrative)

	event := &store.EarningsEvent{ID: note.EventID, Symbol: note.Symbol}
	restored, version, err := s.persistVersion(ctx, userID, event, target.Content, target.Tags, alignmentResult)
	if err != nil {
		return nil, 0, err
	}

	s.refreshEmbedding(ctx, restored)
	return restored, version, nil
}

// ListVersions returns a note's history, descending by version number.
func (s *Service) ListVersions(ctx context.Context, userID, noteID int32, limit int) ([]*store.NoteVersion, error) {
	if userID <= 0 || noteID <= 0 {
		return nil, svcerrors.InvalidArgument("ids must be positive")
	}
	if limit <= 0 {
		limit = DefaultVersionLimit
	}
	if limit > maxVersionLimit {
		limit = maxVersionLimit
	}

	note, err := s.store.GetNote(ctx, &store.FindNote{ID: &noteID, CreatorID: &userID})
	if err != nil {
		return nil, svcerrors.Internal("failed to load note", err)
	}
	if note == nil {
		return nil, svcerrors.NotFound("note %d not found", noteID)
	}

	versions, err := s.store.ListNoteVersions(ctx, &store.FindNoteVersion{
		NoteID: &noteID,
		Limit:  &limit,
	})
	if err != nil {
		return nil, svcerrors.Internal("failed to list note versions", err)
	}
	return versions, nil
}

// annotate runs tag extraction and alignment scoring concurrently.
// Neither can fail the write; a degraded provider just leaves its
// fields absent.
func (s *Service) annotate(ctx context.Context, eventID int32, content string) ([]string, alignment.Result) {
	var noteTags []string
	var alignmentResult alignment.Result

	narrative := s.analysisNarrative(ctx, eventID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.extractor != nil {
			noteTags = s.extractor.Extract(gctx, content)
		}
		return nil
	})
	g.Go(func() error {
		alignmentResult = s.scoreAlignment(gctx, content, narrative)
		return nil
	})
	// Both goroutines swallow provider failures internally.
	_ = g.Wait()

	return noteTags, alignmentResult
}

func (s *Service) analysisNarrative(ctx context.Context, eventID int32) string {
	narrative, err := s.store.GetAnalysisNarrative(ctx, eventID)
	if err != nil {
		// Analysis context is an optional enhancement; a read failure
		// degrades to "no alignment" rather than failing the write.
		s.logger.Warn("failed to load analysis narrative",
			slog.Int64("event_id", int64(eventID)),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return narrative
}

func (s *Service) scoreAlignment(ctx context.Context, content, narrative string) alignment.Result {
	if s.scorer == nil {
		return alignment.Result{}
	}
	return s.scorer.Score(ctx, content, narrative)
}

// persistVersion applies the compare-and-swap write protocol: upsert the
// note first, then insert the note_version row tagged with the version
// just assigned. A version collision from a concurrent double-submit is
// retried once with a freshly read latest_version.
func (s *Service) persistVersion(ctx context.Context, userID int32, event *store.EarningsEvent, content string, noteTags []string, alignmentResult alignment.Result) (*store.Note, int32, error) {
	for attempt := 0; attempt < 2; attempt++ {
		note, version, err := s.writeOnce(ctx, userID, event, content, noteTags, alignmentResult)
		if err == nil {
			return note, version, nil
		}
		if !svcerrors.IsCode(err, svcerrors.ErrCodeConflict) {
			return nil, 0, err
		}
		s.logger.Warn("note version conflict, retrying",
			slog.Int64("user_id", int64(userID)),
			slog.Int64("event_id", int64(event.ID)),
		)
	}
	return nil, 0, svcerrors.Conflict("concurrent writes to the same note", store.ErrVersionConflict)
}

func (s *Service) writeOnce(ctx context.Context, userID int32, event *store.EarningsEvent, content string, noteTags []string, alignmentResult alignment.Result) (*store.Note, int32, error) {
	existing, err := s.store.GetNote(ctx, &store.FindNote{CreatorID: &userID, EventID: &event.ID})
	if err != nil {
		return nil, 0, svcerrors.Internal("failed to load note", err)
	}

	var note *store.Note
	var version int32

	if existing == nil {
		note, err = s.store.CreateNote(ctx, &store.Note{
			UID:       shortuuid.New(),
			CreatorID: userID,
			EventID:   event.ID,
			Symbol:    event.Symbol,
			Content:   content,
			Tags:      noteTags,
		})
		version = 1
	} else {
		note, err = s.store.UpdateNote(ctx, &store.UpdateNote{
			ID:              existing.ID,
			ExpectedVersion: existing.LatestVersion,
			Content:         content,
			Tags:            noteTags,
		})
		if err == nil {
			version = note.LatestVersion
		}
	}
	if err != nil {
		if err == store.ErrVersionConflict {
			return nil, 0, svcerrors.Conflict("note changed concurrently", err)
		}
		return nil, 0, svcerrors.Internal("failed to write note", err)
	}

	// The note row now claims this version; if the snapshot insert fails
	// the whole write is reported as failed rather than partially applied.
	if _, err := s.store.CreateNoteVersion(ctx, &store.NoteVersion{
		NoteID:           note.ID,
		Version:          version,
		Content:          content,
		Tags:             noteTags,
		AlignmentScore:   alignmentResult.Score,
		AlignmentSummary: alignmentResult.Summary,
	}); err != nil {
		if err == store.ErrVersionConflict {
			return nil, 0, svcerrors.Conflict("version snapshot collided", err)
		}
		return nil, 0, svcerrors.Internal("failed to persist note version", err)
	}

	return note, version, nil
}

// refreshEmbedding re-embeds the note's current content and upserts the
// semantic index row. Best-effort: failure leaves the index stale but
// never fails the write.
func (s *Service) refreshEmbedding(ctx context.Context, note *store.Note) {
	if !s.embeddingsEnabled() {
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	vector, err := s.embedder.Embed(embedCtx, note.Content)
	if err != nil {
		s.logger.Warn("failed to embed note content",
			slog.Int64("note_id", int64(note.ID)),
			slog.String("error", err.Error()),
		)
		return
	}

	if _, err := s.store.UpsertNoteEmbedding(ctx, &store.NoteEmbedding{
		NoteID:    note.ID,
		Embedding: vector,
		Model:     s.embedder.Model(),
	}); err != nil {
		s.logger.Warn("failed to upsert note embedding",
			slog.Int64("note_id", int64(note.ID)),
			slog.String("error", err.Error()),
		)
	}
}
