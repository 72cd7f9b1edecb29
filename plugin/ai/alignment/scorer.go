// Package alignment scores how closely a note tracks the AI-generated
// analysis narrative for the same earnings event.
package alignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/finbrief/finbrief/plugin/ai"
	"github.com/finbrief/finbrief/plugin/ai/timeout"
)

// Tier buckets a similarity score into a human-readable band.
type Tier string

const (
	// TierHigh is similarity >= 0.75.
	TierHigh Tier = "high"
	// TierPartial is 0.55 <= similarity < 0.75.
	TierPartial Tier = "partial"
	// TierLow is similarity < 0.55.
	TierLow Tier = "low"

	highThreshold    = 0.75
	partialThreshold = 0.55
)

// ErrDimensionMismatch is returned when two vectors of unequal length
// are compared.
var ErrDimensionMismatch = errors.New("vector dimensions do not match")

// Result is the outcome of scoring a note against an analysis narrative.
// Both fields are nil when alignment could not be computed.
type Result struct {
	Score   *float64
	Summary *string
}

// Scorer computes alignment between note content and analysis narratives.
// It is a pure function over its inputs plus the embedding provider call.
type Scorer struct {
	embedder ai.EmbeddingService
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScorer creates a Scorer. A nil embedder yields a scorer that
// always reports no alignment.
func NewScorer(embedder ai.EmbeddingService, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		embedder: embedder,
		timeout:  timeout.AlignmentTimeout,
		logger:   logger,
	}
}

// Score embeds noteContent and narrative independently and computes
// their cosine similarity. Alignment is cosmetic, not load-bearing:
// an absent narrative, a disabled provider, or any provider failure
// yields an empty Result, never an error.
func (s *Scorer) Score(ctx context.Context, noteContent, narrative string) Result {
	if narrative == "" {
		return Result{}
	}
	if s.embedder == nil || !s.embedder.Enabled() {
		return Result{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vectors, err := s.embedder.EmbedBatch(ctx, []string{noteContent, narrative})
	if err != nil || len(vectors) < 2 {
		s.logger.Warn("alignment embedding failed", slog.Any("error", err))
		return Result{}
	}

	score, err := Cosine(vectors[0], vectors[1])
	if err != nil {
		s.logger.Warn("alignment scoring failed", slog.String("error", err.Error()))
		return Result{}
	}

	summary := Summarize(score)
	return Result{Score: &score, Summary: &summary}
}

// Cosine computes cosine similarity (dot product over the product of
// L2 norms) between two vectors of equal dimensionality.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, errors.New("empty vectors")
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, errors.New("zero-norm vector")
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TierOf buckets a similarity score.
func TierOf(score float64) Tier {
	switch {
	case score >= highThreshold:
		return TierHigh
	case score >= partialThreshold:
		return TierPartial
	default:
		return TierLow
	}
}

// Summarize renders the tiered, human-readable alignment summary.
func Summarize(score float64) string {
	switch TierOf(score) {
	case TierHigh:
		return fmt.Sprintf("High alignment (%.2f): your note closely tracks the AI analysis of this event.", score)
	case TierPartial:
		return fmt.Sprintf("Partial alignment (%.2f): your note overlaps with the AI analysis but diverges on some points.", score)
	default:
		return fmt.Sprintf("Low alignment (%.2f): your note takes a different view than the AI analysis.", score)
	}
}
