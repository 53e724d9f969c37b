// Package health expone los endpoints de liveness y readiness.
package health

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/authgate/internal/http/helpers"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/store"
)

// Controller responde /healthz y /readyz.
type Controller struct {
	conn    store.Connection
	started time.Time
}

// NewController crea el controller de salud sobre la conexión del store.
func NewController(conn store.Connection) *Controller {
	return &Controller{conn: conn, started: time.Now()}
}

// Healthz maneja GET /healthz. Vivo mientras el proceso responda.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(c.started).Round(time.Second).String(),
	})
}

// Readyz maneja GET /readyz. Listo solo si el Policy Store responde.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := c.conn.Ping(ctx); err != nil {
		logger.From(ctx).Warn("store ping failed", logger.Err(err))
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"driver": c.conn.Name(),
		})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"driver": c.conn.Name(),
	})
}
