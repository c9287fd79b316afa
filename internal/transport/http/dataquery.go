package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alphaarc/platform/internal/domain"
)

// QueryData proxies a time-windowed data query to the data API.
// POST /data/query
func (h *Handler) QueryData(c echo.Context) error {
	var req domain.QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	data, err := h.svc.QueryData(c.Request().Context(), req.Query, req.TimeInterval)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	return c.JSONBlob(http.StatusOK, data)
}
