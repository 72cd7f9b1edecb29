package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/finbrief/finbrief/server/service/note"
)

// SearchNotes handles GET /api/v1/notes/search.
// Query parameters: q (free text, empty for a recency listing),
// symbol (optional ticker filter), limit.
func (s *APIV1Service) SearchNotes(c echo.Context) error {
	userID, ok := userIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse("UNAUTHORIZED", "missing user"))
	}

	req := &note.SearchRequest{
		UserID: userID,
		Query:  c.QueryParam("q"),
	}
	if symbol := c.QueryParam("symbol"); symbol != "" {
		req.Symbol = &symbol
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse("INVALID_ARGUMENT", "invalid limit"))
		}
		req.Limit = limit
	}

	ctx := s.requestContext(c, userID)
	results, err := s.NoteService.Search(ctx, req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}
