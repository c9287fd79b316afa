package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/alphaarc/platform/internal/domain"
	"github.com/alphaarc/platform/internal/service"
)

// RunAgent accepts a full agent config, starts the run, and streams its
// events back as newline-delimited JSON over a chunked response. The response
// status commits before the run produces anything, so run-level failures
// arrive as ERROR events in the body, never as HTTP statuses.
// POST /rpc/agents/run
func (h *Handler) RunAgent(c echo.Context) error {
	var req domain.RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	run, err := h.svc.StartRun(&req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return h.streamRun(c, run)
}

// RunStoredAgent starts a run for a stored agent config.
// POST /rpc/agents/:agent_id/run
func (h *Handler) RunStoredAgent(c echo.Context) error {
	var overrides *domain.RunOverrides
	if c.Request().ContentLength > 0 {
		var body struct {
			Overrides *domain.RunOverrides `json:"overrides,omitempty"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
		overrides = body.Overrides
	}

	run, err := h.svc.StartStoredRun(c.Request().Context(), c.Param("agent_id"), overrides)
	if err == service.ErrAgentNotFound {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "agent not found"})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return h.streamRun(c, run)
}

// streamRun relays the run's byte stream to the client, flushing after every
// chunk so each event is observable as soon as it is written. A client
// disconnect abandons the stream; the run finishes internally.
func (h *Handler) streamRun(c echo.Context, run *service.Run) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("X-Run-Id", run.ID)
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	buf := make([]byte, 4096)
	for {
		n, err := run.Logger.Reader().Read(buf)
		if n > 0 {
			if _, werr := resp.Write(buf[:n]); werr != nil {
				h.log.Info("stream consumer disconnected",
					zap.String("run", run.ID), zap.Error(werr))
				run.Logger.Abandon(werr)
				return nil
			}
			resp.Flush()
		}
		if err != nil {
			// EOF: the run task closed the stream.
			return nil
		}
	}
}

// GetRun returns the persisted record of one run.
// GET /rpc/agents/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.svc.GetRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		h.log.Error("failed to load run", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, run)
}

// ListRuns lists run records, newest first.
// GET /rpc/agents/runs?agent_id=...&limit=...
func (h *Handler) ListRuns(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = parsed
	}

	runs, err := h.svc.ListRuns(c.Request().Context(), c.QueryParam("agent_id"), limit)
	if err != nil {
		h.log.Error("failed to list runs", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}
