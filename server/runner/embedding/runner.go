// Package embedding backfills the semantic index: note writes upsert
// embeddings best-effort, so a provider outage can leave rows missing
// or stale. The runner repairs them in the background.
package embedding

import (
	"context"
	"log/slog"
	"time"

	"github.com/finbrief/finbrief/plugin/ai"
	"github.com/finbrief/finbrief/store"
)

type Runner struct {
	store     *store.Store
	embedder  ai.EmbeddingService
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewRunner creates a semantic index backfill runner.
func NewRunner(s *store.Store, embedder ai.EmbeddingService, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     s,
		embedder:  embedder,
		interval:  2 * time.Minute,
		batchSize: 8,
		logger:    logger,
	}
}

// Run starts the background loop. Blocks until the context is done.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			r.logger.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes one round of pending notes.
func (r *Runner) RunOnce(ctx context.Context) {
	notes, err := r.store.FindNotesWithoutEmbedding(ctx, r.embedder.Model(), r.batchSize*20)
	if err != nil {
		r.logger.Error("failed to find notes without embedding", slog.String("error", err.Error()))
		return
	}
	if len(notes) == 0 {
		return
	}

	r.logger.Info("backfilling note embeddings", slog.Int("count", len(notes)))

	for start := 0; start < len(notes); start += r.batchSize {
		select {
		case <-ctx.Done():
			return
		default:
		}

		end := start + r.batchSize
		if end > len(notes) {
			end = len(notes)
		}
		if err := r.processBatch(ctx, notes[start:end]); err != nil {
			r.logger.Error("failed to backfill embedding batch", slog.String("error", err.Error()))
		}
	}
}

func (r *Runner) processBatch(ctx context.Context, notes []*store.Note) error {
	texts := make([]string, len(notes))
	for i, n := range notes {
		texts[i] = n.Content
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(notes) {
		r.logger.Warn("embedding batch size mismatch",
			slog.Int("want", len(notes)),
			slog.Int("got", len(vectors)),
		)
		return nil
	}

	for i, n := range notes {
		if _, err := r.store.UpsertNoteEmbedding(ctx, &store.NoteEmbedding{
			NoteID:    n.ID,
			Embedding: vectors[i],
			Model:     r.embedder.Model(),
		}); err != nil {
			r.logger.Error("failed to upsert embedding",
				slog.Int64("note_id", int64(n.ID)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}
