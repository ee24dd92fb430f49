// Package handler holds the echo handlers and route wiring.
package handler

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"stockchat-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

type statusResponse struct {
	Status         string   `json:"status"`
	Version        string   `json:"version"`
	BackendURL     string   `json:"backend_url"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	BodyLimit      string   `json:"body_limit"`
	AllowOrigins   []string `json:"allow_origins"`
}

// HealthHandler serves the liveness and status endpoints. Neither touches
// the backend.
type HealthHandler struct {
	status statusResponse
}

// NewHealthHandler creates a HealthHandler. The status body is fixed at
// startup since the configuration never changes afterwards.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{status: statusResponse{
		Status:         "ok",
		Version:        string(v),
		BackendURL:     cfg.Backend.BaseURL,
		TimeoutSeconds: cfg.Backend.TimeoutSeconds,
		BodyLimit:      humanize.Bytes(uint64(cfg.Server.BodyMaxBytes)),
		AllowOrigins:   cfg.CORS.AllowOrigins,
	}}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the build version and the effective proxy settings.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status)
}
