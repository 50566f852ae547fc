// Package v1 provides the HTTP handlers for the task desk API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskdesk/internal/feed"
	"taskdesk/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	hub     *feed.Hub
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, hub *feed.Hub) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
	}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Task lifecycle
	e.POST("/v1/tasks", h.CreateTask)
	e.GET("/v1/tasks", h.ListTasks)
	e.GET("/v1/tasks/:task_id", h.GetTask)
	e.POST("/v1/tasks/:task_id/status", h.SetStatus)
	e.POST("/v1/tasks/:task_id/assign", h.AssignTask)
	e.POST("/v1/tasks/:task_id/followup", h.ScheduleFollowUp)
	e.POST("/v1/tasks/:task_id/reopen", h.ReopenTask)
	e.POST("/v1/tasks/:task_id/open", h.OpenTask)
	e.POST("/v1/tasks/:task_id/close", h.CloseTask)
	e.GET("/v1/tasks/:task_id/duration", h.GetTaskDuration)
	e.GET("/v1/tasks/:task_id/sessions", h.ListSessions)
	e.GET("/v1/tasks/:task_id/audit", h.ListAudit)

	// Messages and guidance dialog
	e.GET("/v1/tasks/:task_id/messages", h.GetMessages)
	e.POST("/v1/tasks/:task_id/comment", h.AddComment)
	e.POST("/v1/tasks/:task_id/chat", h.Chat)
	e.POST("/v1/tasks/:task_id/match", h.MatchUseCase)

	// Attachments
	e.POST("/v1/tasks/:task_id/attachments", h.UploadAttachment)
	e.GET("/v1/tasks/:task_id/attachments", h.ListAttachments)
	e.DELETE("/v1/attachments/:attachment_id", h.DeleteAttachment)

	// Workflow authoring
	e.POST("/v1/dialog", h.Dialog)

	// Use cases
	e.POST("/v1/use_cases", h.CreateUseCase)
	e.GET("/v1/use_cases", h.ListUseCases)
	e.GET("/v1/use_cases/:use_case_id", h.GetUseCase)
	e.PUT("/v1/use_cases/:use_case_id", h.UpdateUseCase)

	// Directory
	e.POST("/v1/users", h.CreateUser)
	e.GET("/v1/users", h.ListUsers)
	e.GET("/v1/users/:user_id", h.GetUser)
	e.POST("/v1/customers", h.CreateCustomer)
	e.GET("/v1/customers/:customer_id", h.GetCustomer)
	e.POST("/v1/end_customers", h.CreateEndCustomer)
	e.GET("/v1/end_customers/:end_customer_id", h.GetEndCustomer)

	// Notifications
	e.GET("/v1/notifications", h.ListNotifications)
	e.POST("/v1/notifications/:notification_id/read", h.MarkNotificationRead)

	// Change feed
	e.GET("/v1/feed", h.Feed)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// actingUser reads the acting user from the X-User-ID header.
func actingUser(c echo.Context) string {
	return c.Request().Header.Get("X-User-ID")
}

// jsonError maps service errors onto HTTP status codes.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrClosingCommentRequired):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrTransitionBlocked):
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
