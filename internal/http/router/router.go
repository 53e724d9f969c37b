// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	adminctrl "github.com/dropDatabas3/authgate/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/authgate/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	mw "github.com/dropDatabas3/authgate/internal/http/middlewares"
	"github.com/dropDatabas3/authgate/internal/metrics"
)

// Deps contiene las dependencias para construir el router.
type Deps struct {
	Admin  *adminctrl.Controllers
	Health *healthctrl.Controller

	// AdminAPIKey protege /v1/admin/*. Vacía ⇒ abierto (solo dev).
	AdminAPIKey string

	// MetricsRegisterer permite inyectar un registry propio en tests.
	MetricsRegisterer prometheus.Registerer
}

// New construye el router chi con todas las rutas del servicio.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestContext())
	r.Use(mw.WithRecover())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// ─── Operacional ───
	if deps.Health != nil {
		r.Get("/healthz", deps.Health.Healthz)
		r.Get("/readyz", deps.Health.Readyz)
	}
	r.Method(http.MethodGet, "/metrics", metrics.Register(deps.MetricsRegisterer))

	// ─── Check público ───
	r.Post("/v1/check", deps.Admin.Authz.Check)

	// ─── Admin (protegido por API key) ───
	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(mw.RequireAPIKey(deps.AdminAPIKey))

		r.Post("/roles/assign", deps.Admin.Roles.Assign)
		r.Post("/roles/revoke", deps.Admin.Roles.Revoke)
		r.Get("/roles", deps.Admin.Roles.List)
		r.Get("/roles/{name}", deps.Admin.Roles.Get)
		r.Put("/roles/{name}", deps.Admin.Roles.Upsert)
		r.Delete("/roles/{name}", deps.Admin.Roles.Delete)

		r.Post("/grants", deps.Admin.Grants.Grant)
		r.Post("/grants/cleanup", deps.Admin.Grants.Cleanup)

		r.Get("/users", deps.Admin.Audit.Users)
		r.Get("/users/{userID}/roles", deps.Admin.Roles.UserRoles)
		r.Get("/users/{userID}/permissions", deps.Admin.Grants.UserGrants)
		r.Get("/users/{userID}/history", deps.Admin.Audit.History)

		r.Post("/debug/permission", deps.Admin.Authz.Debug)
		r.Get("/stats", deps.Admin.Audit.Stats)
	})

	return r
}
