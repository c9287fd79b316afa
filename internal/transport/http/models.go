package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alphaarc/platform/internal/domain"
)

// ListModels returns the model catalog for a provider.
// GET /rpc/models?provider=...
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.svc.ListModels(c.Request().Context(), c.QueryParam("provider"))
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if models == nil {
		models = []domain.Model{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"models": models})
}
