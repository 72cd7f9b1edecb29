package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/finbrief/finbrief/server/internal/observability"
	"github.com/finbrief/finbrief/store"
)

// UpsertNoteRequest creates or updates the caller's note for an event.
type UpsertNoteRequest struct {
	EventID int32  `json:"earningsEventId"`
	Content string `json:"content"`
}

// NoteResponse is the JSON shape of a note.
type NoteResponse struct {
	ID            int32    `json:"id"`
	UID           string   `json:"uid"`
	EventID       int32    `json:"earningsEventId"`
	Symbol        string   `json:"symbol"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags"`
	LatestVersion int32    `json:"latestVersion"`
	CreatedTs     int64    `json:"createdTs"`
	UpdatedTs     int64    `json:"updatedTs"`
}

// NoteVersionResponse is the JSON shape of one history entry.
type NoteVersionResponse struct {
	Version          int32    `json:"version"`
	Content          string   `json:"content"`
	Tags             []string `json:"tags"`
	AlignmentScore   *float64 `json:"alignmentScore"`
	AlignmentSummary *string  `json:"alignmentSummary"`
	CreatedTs        int64    `json:"createdTs"`
}

// UpsertNote handles POST /api/v1/notes.
func (s *APIV1Service) UpsertNote(c echo.Context) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "missing user"))
	}
	if !s.writeLimiter.AllowUser(userID) {
		return c.JSON(http.StatusTooManyRequests, errorResponse("RATE_LIMIT_EXCEEDED", "too many note writes"))
	}

	req := &UpsertNoteRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse("INVALID_ARGUMENT", "malformed request body"))
	}

	ctx := s.requestContext(c, userID)
	saved, version, err := s.NoteService.UpsertNote(ctx, userID, req.EventID, req.Content)
	if err != nil {
		return s.writeError(c, err)
	}

	status := http.StatusOK
	if version == 1 {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]any{
		"note":    toNoteResponse(saved),
		"version": version,
	})
}

// ListNoteVersions handles GET /api/v1/notes/:id/versions.
func (s *APIV1Service) ListNoteVersions(c echo.Context) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "missing user"))
	}
	noteID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse("INVALID_ARGUMENT", "invalid note id"))
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx := s.requestContext(c, userID)
	versions, err := s.NoteService.ListVersions(ctx, userID, noteID, limit)
	if err != nil {
		return s.writeError(c, err)
	}

	out := make([]*NoteVersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, toVersionResponse(v))
	}
	return c.JSON(http.StatusOK, map[string]any{"versions": out})
}

// RestoreNoteVersion handles POST /api/v1/notes/:id/versions/:version/restore.
func (s *APIV1Service) RestoreNoteVersion(c echo.Context) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "missing user"))
	}
	if !s.writeLimiter.AllowUser(userID) {
		return c.JSON(http.StatusTooManyRequests, errorResponse("RATE_LIMIT_EXCEEDED", "too many note writes"))
	}
	noteID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse("INVALID_ARGUMENT", "invalid note id"))
	}
	targetVersion, err := pathID(c, "version")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse("INVALID_ARGUMENT", "invalid version number"))
	}

	ctx := s.requestContext(c, userID)
	restored, version, err := s.NoteService.RestoreVersion(ctx, userID, noteID, targetVersion)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"note":    toNoteResponse(restored),
		"version": version,
	})
}

func (s *APIV1Service) requestContext(c echo.Context, userID int32) context.Context {
	reqCtx := observability.NewRequestContext(s.logger, userID)
	return observability.WithRequestContext(c.Request().Context(), reqCtx)
}

func pathID(c echo.Context, name string) (int32, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return int32(id), nil
}

var errInvalidID = errors.New("invalid id")

func toNoteResponse(n *store.Note) *NoteResponse {
	return &NoteResponse{
		ID:            n.ID,
		UID:           n.UID,
		EventID:       n.EventID,
		Symbol:        n.Symbol,
		Content:       n.Content,
		Tags:          n.Tags,
		LatestVersion: n.LatestVersion,
		CreatedTs:     n.CreatedTs,
		UpdatedTs:     n.UpdatedTs,
	}
}

func toVersionResponse(v *store.NoteVersion) *NoteVersionResponse {
	return &NoteVersionResponse{
		Version:          v.Version,
		Content:          v.Content,
		Tags:             v.Tags,
		AlignmentScore:   v.AlignmentScore,
		AlignmentSummary: v.AlignmentSummary,
		CreatedTs:        v.CreatedTs,
	}
}
