// Package v1 exposes the note service over a JSON HTTP API.
package v1

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/finbrief/finbrief/internal/profile"
	"github.com/finbrief/finbrief/plugin/ai"
	"github.com/finbrief/finbrief/plugin/ai/alignment"
	"github.com/finbrief/finbrief/plugin/ai/tags"
	svcerrors "github.com/finbrief/finbrief/server/internal/errors"
	"github.com/finbrief/finbrief/server/middleware"
	"github.com/finbrief/finbrief/server/service/note"
	"github.com/finbrief/finbrief/store"
)

type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	NoteService *note.Service
	// Embedder is nil when embeddings are disabled or misconfigured.
	Embedder ai.EmbeddingService

	writeLimiter *middleware.RateLimiter
	logger       *slog.Logger
}

func NewAPIV1Service(secret string, profile *profile.Profile, store *store.Store, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}

	var embedder ai.EmbeddingService
	var llm ai.LLMService
	if profile.IsAIEnabled() {
		aiConfig := ai.NewConfigFromProfile(profile)
		if err := aiConfig.Validate(); err != nil {
			logger.Warn("AI config invalid, running without AI features", slog.String("error", err.Error()))
		} else {
			// Vector search needs pgvector; tagging and alignment work on
			// either driver.
			if profile.Driver == "postgres" {
				if svc, err := ai.NewEmbeddingService(&aiConfig.Embedding); err == nil {
					embedder = svc
				} else {
					logger.Warn("embedding service unavailable", slog.String("error", err.Error()))
				}
			}
			if aiConfig.LLM.Provider != "" {
				if svc, err := ai.NewLLMService(&aiConfig.LLM); err == nil {
					llm = svc
				} else {
					logger.Warn("LLM service unavailable", slog.String("error", err.Error()))
				}
			}
		}
	}

	var extractor *tags.Extractor
	if llm != nil {
		extractor = tags.NewExtractor(llm, logger)
	}
	var scorer *alignment.Scorer
	if embedder != nil {
		scorer = alignment.NewScorer(embedder, logger)
	}

	return &APIV1Service{
		Secret:       secret,
		Profile:      profile,
		Store:        store,
		NoteService:  note.NewService(store, embedder, extractor, scorer, logger),
		Embedder:     embedder,
		writeLimiter: middleware.NewWriteLimiter(),
		logger:       logger,
	}
}

// RegisterRoutes mounts the authenticated API group on the echo server.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	apiGroup := echoServer.Group("/api/v1")
	apiGroup.Use(echomiddleware.CORS())
	apiGroup.Use(s.AuthMiddleware)

	apiGroup.POST("/notes", s.UpsertNote)
	// Listing is search with an empty query: most recently updated first.
	apiGroup.GET("/notes", s.SearchNotes)
	apiGroup.GET("/notes/search", s.SearchNotes)
	apiGroup.GET("/notes/:id/versions", s.ListNoteVersions)
	apiGroup.POST("/notes/:id/versions/:version/restore", s.RestoreNoteVersion)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorResponse(code, message string) *errorBody {
	return &errorBody{Code: code, Message: message}
}

// writeError renders a service error with its mapped HTTP status. The
// raw cause stays in the log, not the response body.
func (s *APIV1Service) writeError(c echo.Context, err error) error {
	code := svcerrors.GetCodeFromError(err)
	message := err.Error()
	var svcErr *svcerrors.ServiceError
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}
	if code == svcerrors.ErrCodeInternal {
		s.logger.Error("request failed", slog.String("error", err.Error()))
		message = "internal error"
	}
	return c.JSON(code.HTTPStatus(), errorResponse(string(code), message))
}
