package note

import (
	"context"
	"log/slog"
	"strings"

	"github.com/finbrief/finbrief/plugin/ai/timeout"
	svcerrors "github.com/finbrief/finbrief/server/internal/errors"
	"github.com/finbrief/finbrief/server/internal/observability"
	"github.com/finbrief/finbrief/store"
)

const (
	// DefaultSearchLimit is the page size when the caller does not set one.
	DefaultSearchLimit = 10
	// MaxSearchLimit caps the number of results per search request.
	MaxSearchLimit = 50

	// minVectorSimilarity drops nearest-neighbor hits that are only
	// tangentially related to the query.
	minVectorSimilarity = 0.2
)

// SearchRequest carries a user's search over their own notes.
type SearchRequest struct {
	UserID int32
	Query  string
	Symbol *string
	Limit  int
}

// SearchResult is one search hit. Similarity is set only by the vector
// tier; the recency and substring tiers leave it nil.
type SearchResult struct {
	NoteID     int32    `json:"noteId"`
	EventID    int32    `json:"earningsEventId"`
	Symbol     string   `json:"symbol"`
	Tags       []string `json:"tags"`
	UpdatedTs  int64    `json:"updatedTs"`
	Similarity *float64 `json:"similarity"`
	Snippet    string   `json:"snippet"`
}

// searchTier is one strategy in the fallback chain. applied reports
// whether the tier handled the request; when false the orchestrator
// moves to the next tier regardless of err.
type searchTier interface {
	Name() string
	Search(ctx context.Context, req *SearchRequest) (results []*SearchResult, applied bool, err error)
}

// Search resolves a query through the tier chain: recency listing for
// empty queries, vector similarity when embeddings are available, and
// case-insensitive substring matching as the last resort. The first
// tier that applies and succeeds wins; a vector-tier failure falls
// through instead of failing the request.
func (s *Service) Search(ctx context.Context, req *SearchRequest) ([]*SearchResult, error) {
	if req.UserID <= 0 {
		return nil, svcerrors.InvalidArgument("user id must be positive")
	}

	// Normalize on a copy; the caller's request is left untouched.
	r := *req
	r.Query = strings.TrimSpace(r.Query)
	if r.Limit <= 0 {
		r.Limit = DefaultSearchLimit
	}
	if r.Limit > MaxSearchLimit {
		r.Limit = MaxSearchLimit
	}

	tiers := []searchTier{
		&recencyTier{store: s.store},
		&vectorTier{store: s.store, service: s},
		&substringTier{store: s.store},
	}

	for _, tier := range tiers {
		results, applied, err := tier.Search(ctx, &r)
		if !applied {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rc, ok := observability.FromContext(ctx); ok {
			rc.Info("search served",
				slog.String(observability.LogFieldSearchTier, tier.Name()),
				slog.Int("results", len(results)),
			)
		}
		return results, nil
	}
	// The substring tier always applies to non-empty queries and the
	// recency tier to empty ones, so the chain cannot be exhausted.
	return nil, svcerrors.Internal("no search tier applied", nil)
}

// recencyTier serves empty queries with the user's most recently
// updated notes.
type recencyTier struct {
	store *store.Store
}

func (t *recencyTier) Name() string { return "recency" }

func (t *recencyTier) Search(ctx context.Context, req *SearchRequest) ([]*SearchResult, bool, error) {
	if req.Query != "" {
		return nil, false, nil
	}
	notes, err := t.store.ListNotes(ctx, &store.FindNote{
		CreatorID: &req.UserID,
		Symbol:    req.Symbol,
		Limit:     &req.Limit,
	})
	if err != nil {
		return nil, true, svcerrors.Internal("failed to list notes", err)
	}
	return toResults(notes, ""), true, nil
}

// vectorTier embeds the query and runs nearest-neighbor search against
// the semantic index. Any failure on this path is recoverable: the
// request falls through to the substring tier.
type vectorTier struct {
	store   *store.Store
	service *Service
}

func (t *vectorTier) Name() string { return "vector" }

func (t *vectorTier) Search(ctx context.Context, req *SearchRequest) ([]*SearchResult, bool, error) {
	if req.Query == "" || !t.service.embeddingsEnabled() {
		return nil, false, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, timeout.EmbeddingTimeout)
	defer cancel()

	vector, err := t.service.embedder.Embed(embedCtx, req.Query)
	if err != nil {
		t.service.logger.Warn("query embedding failed, falling back to substring search",
			slog.String("error", err.Error()),
		)
		return nil, false, nil
	}

	hits, err := t.store.VectorSearchNotes(ctx, &store.VectorSearchOptions{
		CreatorID: req.UserID,
		Vector:    vector,
		Symbol:    req.Symbol,
		MinScore:  minVectorSimilarity,
		Limit:     req.Limit,
	})
	if err != nil {
		t.service.logger.Warn("vector search failed, falling back to substring search",
			slog.String("error", err.Error()),
		)
		return nil, false, nil
	}

	results := make([]*SearchResult, 0, len(hits))
	for _, hit := range hits {
		r := toResult(hit.Note, req.Query)
		score := hit.Score
		r.Similarity = &score
		results = append(results, r)
	}
	return results, true, nil
}

// substringTier is the last resort: case-insensitive substring match
// over note content, ordered by recency.
type substringTier struct {
	store *store.Store
}

func (t *substringTier) Name() string { return "substring" }

func (t *substringTier) Search(ctx context.Context, req *SearchRequest) ([]*SearchResult, bool, error) {
	notes, err := t.store.ListNotes(ctx, &store.FindNote{
		CreatorID:     &req.UserID,
		Symbol:        req.Symbol,
		ContentSearch: &req.Query,
		Limit:         &req.Limit,
	})
	if err != nil {
		return nil, true, svcerrors.Internal("failed to search notes", err)
	}
	return toResults(notes, req.Query), true, nil
}

func toResults(notes []*store.Note, query string) []*SearchResult {
	results := make([]*SearchResult, 0, len(notes))
	for _, n := range notes {
		results = append(results, toResult(n, query))
	}
	return results
}

func toResult(n *store.Note, query string) *SearchResult {
	return &SearchResult{
		NoteID:    n.ID,
		EventID:   n.EventID,
		Symbol:    n.Symbol,
		Tags:      n.Tags,
		UpdatedTs: n.UpdatedTs,
		Snippet:   Snippet(n.Content, query),
	}
}
