package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListNotifications lists the acting user's notifications.
// GET /v1/notifications
func (h *Handler) ListNotifications(c echo.Context) error {
	ctx := c.Request().Context()

	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	notifications, err := h.service.ListNotifications(ctx, userID, c.QueryParam("unread") == "true")
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notifications": notifications})
}

// MarkNotificationRead stamps a notification as read.
// POST /v1/notifications/:notification_id/read
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.service.MarkNotificationRead(ctx, c.Param("notification_id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
