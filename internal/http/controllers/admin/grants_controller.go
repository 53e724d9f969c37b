package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authgate/internal/authz"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	dto "github.com/dropDatabas3/authgate/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// GrantsController maneja los permisos temporales.
type GrantsController struct {
	manager *authz.Manager
}

// NewGrantsController crea el controller de grants.
func NewGrantsController(m *authz.Manager) *GrantsController {
	return &GrantsController{manager: m}
}

// Grant maneja POST /v1/admin/grants.
func (c *GrantsController) Grant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("GrantsController.Grant"),
	)

	var req dto.GrantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	if req.UserID == "" || req.Resource == "" || req.Action == "" || req.Scope == "" || req.Actor == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("user_id, resource, action, scope y actor son requeridos"))
		return
	}
	if req.ExpiresAt.IsZero() {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("expires_at es requerido"))
		return
	}

	grant, err := c.manager.GrantTemporaryPermission(ctx, req.UserID, req.Resource, req.Action, req.Scope, req.ExpiresAt, req.Actor)
	if err != nil {
		log.Error("grant failed", logger.UserID(req.UserID), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, toGrantResponse(grant))
}

// UserGrants maneja GET /v1/admin/users/{userID}/permissions.
// Devuelve solo los grants vigentes al momento de la llamada.
func (c *GrantsController) UserGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing user id"))
		return
	}

	grants, err := c.manager.GetTemporaryPermissions(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("user grants failed", logger.UserID(userID), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	resp := make([]dto.GrantResponse, 0, len(grants))
	for _, g := range grants {
		resp = append(resp, toGrantResponse(g))
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Cleanup maneja POST /v1/admin/grants/cleanup.
func (c *GrantsController) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("GrantsController.Cleanup"),
	)

	removed, err := c.manager.CleanupExpiredPermissions(ctx)
	if err != nil {
		log.Error("cleanup failed", logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	log.Info("cleanup done", logger.Count(removed))
	helpers.WriteJSON(w, http.StatusOK, dto.CleanupResponse{Removed: removed})
}

func toGrantResponse(g repository.TemporaryGrant) dto.GrantResponse {
	return dto.GrantResponse{
		ID:        g.ID,
		UserID:    g.UserID,
		Resource:  g.Resource,
		Action:    g.Action,
		Scope:     g.Scope,
		GrantedBy: g.GrantedBy,
		GrantedAt: g.GrantedAt,
		ExpiresAt: g.ExpiresAt,
	}
}
