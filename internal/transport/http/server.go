// Package http provides the HTTP server for the task desk.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"taskdesk/internal/feed"
	"taskdesk/internal/service"
	v1 "taskdesk/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. filesPrefix/filesDir
// wire the static route attachments are served from.
func NewServer(svc *service.Service, hub *feed.Hub, filesPrefix, filesDir string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	handler := v1.NewHandler(svc, hub)
	handler.RegisterRoutes(e)

	// Attachment downloads
	e.Static(filesPrefix, filesDir)

	return e
}
