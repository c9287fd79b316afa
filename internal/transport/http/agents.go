package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/domain"
)

// SaveAgent creates or updates a stored agent config.
// POST /rpc/agents
func (h *Handler) SaveAgent(c echo.Context) error {
	var cfg domain.AgentConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	saved, err := h.svc.SaveAgent(c.Request().Context(), &cfg)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, saved)
}

// GetAgent returns one stored agent config.
// GET /rpc/agents/:agent_id
func (h *Handler) GetAgent(c echo.Context) error {
	cfg, err := h.svc.GetAgent(c.Request().Context(), c.Param("agent_id"))
	if err != nil {
		h.log.Error("failed to load agent", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load agent"})
	}
	if cfg == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}
	return c.JSON(http.StatusOK, cfg)
}

// ListAgents lists all stored agent configs.
// GET /rpc/agents
func (h *Handler) ListAgents(c echo.Context) error {
	agents, err := h.svc.ListAgents(c.Request().Context())
	if err != nil {
		h.log.Error("failed to list agents", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list agents"})
	}
	if agents == nil {
		agents = []domain.AgentConfig{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"agents": agents})
}

// DeleteAgent removes a stored agent config.
// DELETE /rpc/agents/:agent_id
func (h *Handler) DeleteAgent(c echo.Context) error {
	if err := h.svc.DeleteAgent(c.Request().Context(), c.Param("agent_id")); err != nil {
		h.log.Error("failed to delete agent", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete agent"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
