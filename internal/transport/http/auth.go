package http

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const tokenTTL = time.Hour

// ExchangeToken exchanges an API key for a short-lived bearer token. This is
// the same exchange the run SDK performs against the data API, served
// locally so the platform can stand alone in development.
// POST /auth/exchange
func (h *Handler) ExchangeToken(c echo.Context) error {
	var req struct {
		APIKey string `json:"apiKey"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.APIKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "apiKey is required"})
	}
	if h.cfg.DataAPIKey != "" && req.APIKey != h.cfg.DataAPIKey {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
	}

	expiresAt := time.Now().Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "platform",
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(h.cfg.AuthSecret))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to sign token"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"accessToken": signed,
		"expiresAt":   expiresAt.Unix(),
	})
}
