package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"taskdesk/internal/service"
)

// CreateUser registers an agent or admin.
// POST /v1/users
func (h *Handler) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.CreateUserInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user, err := h.service.CreateUser(ctx, req)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// GetUser returns one user profile.
// GET /v1/users/:user_id
func (h *Handler) GetUser(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.service.GetUser(ctx, c.Param("user_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers returns user profiles in bulk for a comma-separated ids
// parameter. Unknown IDs are skipped.
// GET /v1/users?ids=usr_1,usr_2
func (h *Handler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	raw := c.QueryParam("ids")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "ids is required"})
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	users, err := h.service.GetUsers(ctx, ids)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"users": users})
}

// CustomerCreateRequest is the request to create a customer.
type CustomerCreateRequest struct {
	Name string `json:"name"`
}

// CreateCustomer registers an account holder.
// POST /v1/customers
func (h *Handler) CreateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	var req CustomerCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	customer, err := h.service.CreateCustomer(ctx, req.Name)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, customer)
}

// GetCustomer returns one customer.
// GET /v1/customers/:customer_id
func (h *Handler) GetCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	customer, err := h.service.GetCustomer(ctx, c.Param("customer_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// CreateEndCustomer registers an end customer with contact details.
// POST /v1/end_customers
func (h *Handler) CreateEndCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.CreateEndCustomerInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ec, err := h.service.CreateEndCustomer(ctx, req)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, ec)
}

// GetEndCustomer returns one end customer.
// GET /v1/end_customers/:end_customer_id
func (h *Handler) GetEndCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	ec, err := h.service.GetEndCustomer(ctx, c.Param("end_customer_id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, ec)
}
