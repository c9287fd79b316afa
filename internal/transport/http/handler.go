// Package http provides the platform's HTTP API: the streaming run
// endpoint, agent config management, and supporting routes.
package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/config"
	"github.com/alphaarc/platform/internal/hub"
	"github.com/alphaarc/platform/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	svc *service.Service
	hub *hub.Hub
	cfg *config.Config
	log *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, h *hub.Hub, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{svc: svc, hub: h, cfg: cfg, log: log}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Run API
	e.POST("/rpc/agents/run", h.RunAgent)
	e.POST("/rpc/agents/:agent_id/run", h.RunStoredAgent)
	e.GET("/rpc/agents/runs", h.ListRuns)
	e.GET("/rpc/agents/runs/:run_id", h.GetRun)
	e.GET("/rpc/agents/runs/:run_id/watch", h.WatchRun)

	// Agent config API
	e.POST("/rpc/agents", h.SaveAgent)
	e.GET("/rpc/agents", h.ListAgents)
	e.GET("/rpc/agents/:agent_id", h.GetAgent)
	e.DELETE("/rpc/agents/:agent_id", h.DeleteAgent)

	// Supporting routes
	e.GET("/rpc/models", h.ListModels)
	e.POST("/data/query", h.QueryData)
	e.POST("/auth/exchange", h.ExchangeToken)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"runtime": h.cfg.Runtime,
	})
}
