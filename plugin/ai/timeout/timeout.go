// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

const (
	// EmbeddingTimeout is the timeout for embedding generation.
	EmbeddingTimeout = 10 * time.Second

	// TaggingTimeout is the timeout for LLM tag extraction. Tagging is
	// best-effort; a slow provider degrades to an empty tag set.
	TaggingTimeout = 5 * time.Second

	// AlignmentTimeout bounds both embedding calls of an alignment scoring.
	AlignmentTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)
