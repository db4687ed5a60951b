package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves liveness. ping, when set, checks the ledger store.
type Handler struct {
	store string
	ping  func(ctx context.Context) error
}

func NewHandler(store string, ping func(ctx context.Context) error) *Handler {
	return &Handler{store: store, ping: ping}
}

func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{
		"status": "ok",
		"store":  h.store,
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
	}
	return c.JSON(http.StatusOK, body)
}
