package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskdesk/internal/domain"
)

// Dialog runs one turn of the workflow-authoring dialog.
// POST /v1/dialog
func (h *Handler) Dialog(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.DialogRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.DialogFlow(ctx, req)
	if err != nil {
		if isClientError(err) {
			return jsonError(c, err)
		}
		return c.JSON(http.StatusInternalServerError, domain.DialogError{
			Error:   "dialog_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
