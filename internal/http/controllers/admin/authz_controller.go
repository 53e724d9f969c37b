package admin

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/authgate/internal/authz"
	dto "github.com/dropDatabas3/authgate/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// AuthzController maneja el check público y el debug administrativo.
type AuthzController struct {
	manager *authz.Manager
}

// NewAuthzController crea el controller de checks.
func NewAuthzController(m *authz.Manager) *AuthzController {
	return &AuthzController{manager: m}
}

// Check maneja POST /v1/check.
// La denegación es un 200 con allowed=false, nunca un error HTTP.
func (c *AuthzController) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("AuthzController.Check"),
	)

	var req dto.CheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	if req.UserID == "" || req.Resource == "" || req.Action == "" || req.Scope == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("user_id, resource, action y scope son requeridos"))
		return
	}

	allowed, err := c.manager.CheckPermission(ctx, req.UserID, req.Resource, req.Action, req.Scope)
	if err != nil {
		log.Error("check failed", logger.UserID(req.UserID), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.CheckResponse{Allowed: allowed})
}

// Debug maneja POST /v1/admin/debug/permission.
// Evalúa sin cache ni auditoría y devuelve la traza completa.
func (c *AuthzController) Debug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("AuthzController.Debug"),
	)

	var req dto.DebugRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	if req.UserID == "" || req.Resource == "" || req.Action == "" || req.Scope == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("user_id, resource, action y scope son requeridos"))
		return
	}

	trace, err := c.manager.DebugPermission(ctx, req.UserID, req.Resource, req.Action, req.Scope)
	if err != nil {
		log.Error("debug failed", logger.UserID(req.UserID), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, trace)
}
