package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskdesk/internal/adapter/completion"
	"taskdesk/internal/domain"
	"taskdesk/internal/service"
)

// Chat runs one turn of the guidance dialog for a task.
// POST /v1/tasks/:task_id/chat
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.NextTurn(ctx, c.Param("task_id"), req)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// chatError keeps the chat endpoint's error contract: rate limiting is
// flagged so clients can back off instead of retrying immediately.
func chatError(c echo.Context, err error) error {
	switch {
	case isClientError(err):
		return jsonError(c, err)
	default:
		return c.JSON(http.StatusInternalServerError, domain.ChatError{
			Error:       err.Error(),
			IsRateLimit: completion.IsRateLimit(err),
		})
	}
}

func isClientError(err error) bool {
	for _, sentinel := range []error{
		service.ErrNotFound,
		service.ErrValidation,
		service.ErrInvalidStatus,
		service.ErrTransitionBlocked,
		service.ErrClosingCommentRequired,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
