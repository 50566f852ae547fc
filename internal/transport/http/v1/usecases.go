package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskdesk/internal/service"
)

// CreateUseCase creates a use case.
// POST /v1/use_cases
func (h *Handler) CreateUseCase(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.CreateUseCaseInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	uc, err := h.service.CreateUseCase(ctx, req)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, uc)
}

// ListUseCases lists all use cases.
// GET /v1/use_cases
func (h *Handler) ListUseCases(c echo.Context) error {
	ctx := c.Request().Context()

	ucs, err := h.service.ListUseCases(ctx)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"use_cases": ucs})
}

// GetUseCase gets a use case by ID.
// GET /v1/use_cases/:use_case_id
func (h *Handler) GetUseCase(c echo.Context) error {
	ctx := c.Request().Context()

	uc, err := h.service.GetUseCase(ctx, c.Param("use_case_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, uc)
}

// UpdateUseCase replaces the editable fields of a use case.
// PUT /v1/use_cases/:use_case_id
func (h *Handler) UpdateUseCase(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.CreateUseCaseInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	uc, err := h.service.UpdateUseCase(ctx, c.Param("use_case_id"), req)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, uc)
}

// MatchUseCase classifies a task against the use-case catalog.
// POST /v1/tasks/:task_id/match
func (h *Handler) MatchUseCase(c echo.Context) error {
	ctx := c.Request().Context()

	matched, confidence, err := h.service.MatchUseCase(ctx, c.Param("task_id"), actingUser(c))
	if err != nil {
		return jsonError(c, err)
	}
	if matched == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"matched":    false,
			"confidence": confidence,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"matched":    true,
		"use_case":   matched,
		"confidence": confidence,
	})
}
