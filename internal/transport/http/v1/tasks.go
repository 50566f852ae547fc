package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskdesk/internal/domain"
	"taskdesk/internal/service"
	"taskdesk/internal/store"
)

// TaskCreateRequest is the request to create a task.
type TaskCreateRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Channel       string `json:"channel,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	EndCustomerID string `json:"end_customer_id,omitempty"`
	UseCaseID     string `json:"use_case_id,omitempty"`
	AssigneeID    string `json:"assignee_id,omitempty"`
}

// CreateTask creates a new task.
// POST /v1/tasks
func (h *Handler) CreateTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req TaskCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	task, err := h.service.CreateTask(ctx, service.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Channel:       domain.SourceChannel(req.Channel),
		CustomerID:    req.CustomerID,
		EndCustomerID: req.EndCustomerID,
		UseCaseID:     req.UseCaseID,
		AssigneeID:    req.AssigneeID,
		ActingUserID:  actingUser(c),
	})
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

// ListTasks lists tasks, optionally filtered by status and assignee.
// GET /v1/tasks
func (h *Handler) ListTasks(c echo.Context) error {
	ctx := c.Request().Context()

	filter := store.TaskFilter{
		Status:     domain.TaskStatus(c.QueryParam("status")),
		AssigneeID: c.QueryParam("assignee_id"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown status"})
	}

	tasks, err := h.service.ListTasks(ctx, filter)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// GetTask gets a specific task by ID.
// GET /v1/tasks/:task_id
func (h *Handler) GetTask(c echo.Context) error {
	ctx := c.Request().Context()

	task, err := h.service.GetTask(ctx, c.Param("task_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// StatusRequest is the request to transition a task.
type StatusRequest struct {
	Status         string `json:"status"`
	ClosingComment string `json:"closing_comment,omitempty"`
}

// SetStatus transitions a task to a new status.
// POST /v1/tasks/:task_id/status
func (h *Handler) SetStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	task, err := h.service.SetStatus(ctx, c.Param("task_id"), domain.TaskStatus(req.Status), userID, req.ClosingComment)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// AssignRequest is the request to assign a task.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id,omitempty"`
}

// AssignTask assigns a task. Without an assignee_id the acting user takes
// the task themselves.
// POST /v1/tasks/:task_id/assign
func (h *Handler) AssignTask(c echo.Context) error {
	ctx := c.Request().Context()

	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	assignee := req.AssigneeID
	if assignee == "" {
		assignee = userID
	}
	task, err := h.service.AssignTo(ctx, c.Param("task_id"), assignee, userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// FollowUpRequest is the request to schedule a follow-up.
type FollowUpRequest struct {
	FollowUpAt time.Time `json:"follow_up_at"`
	Note       string    `json:"note,omitempty"`
}

// ScheduleFollowUp moves a task to followup with a due timestamp.
// POST /v1/tasks/:task_id/followup
func (h *Handler) ScheduleFollowUp(c echo.Context) error {
	ctx := c.Request().Context()

	var req FollowUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.FollowUpAt.IsZero() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "follow_up_at is required"})
	}
	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	task, err := h.service.ScheduleFollowUp(ctx, c.Param("task_id"), req.FollowUpAt, req.Note, userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// ReopenTask moves a completed task back to in_progress.
// POST /v1/tasks/:task_id/reopen
func (h *Handler) ReopenTask(c echo.Context) error {
	ctx := c.Request().Context()

	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	task, err := h.service.Reopen(ctx, c.Param("task_id"), userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// OpenTask records that a user opened the task detail view.
// POST /v1/tasks/:task_id/open
func (h *Handler) OpenTask(c echo.Context) error {
	ctx := c.Request().Context()

	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	task, session, err := h.service.OpenTask(ctx, c.Param("task_id"), userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"task":    task,
		"session": session,
	})
}

// CloseTask records that a user left the task detail view.
// POST /v1/tasks/:task_id/close
func (h *Handler) CloseTask(c echo.Context) error {
	ctx := c.Request().Context()

	userID := actingUser(c)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
	}

	session, err := h.service.CloseTask(ctx, c.Param("task_id"), userID)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"session": session})
}

// GetTaskDuration returns the accumulated handling time in seconds.
// GET /v1/tasks/:task_id/duration
func (h *Handler) GetTaskDuration(c echo.Context) error {
	ctx := c.Request().Context()

	total, err := h.service.TaskTotalDuration(ctx, c.Param("task_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"total_duration_seconds": total})
}

// ListSessions returns all recorded sessions for a task.
// GET /v1/tasks/:task_id/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	sessions, err := h.service.ListSessions(ctx, c.Param("task_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// ListAudit returns the task's audit trail.
// GET /v1/tasks/:task_id/audit
func (h *Handler) ListAudit(c echo.Context) error {
	ctx := c.Request().Context()

	entries, err := h.service.ListAudit(ctx, c.Param("task_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}
