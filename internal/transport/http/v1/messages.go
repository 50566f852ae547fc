package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetMessages returns a task's message history.
// GET /v1/tasks/:task_id/messages
func (h *Handler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = parsed
	}

	messages, err := h.service.GetMessages(ctx, c.Param("task_id"), limit, c.QueryParam("before"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": messages})
}

// CommentRequest is the request to add an agent comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// AddComment records an agent comment on a task.
// POST /v1/tasks/:task_id/comment
func (h *Handler) AddComment(c echo.Context) error {
	ctx := c.Request().Context()

	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	msg, err := h.service.AddComment(ctx, c.Param("task_id"), userID, req.Text)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}
