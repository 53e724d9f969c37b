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

// RolesController maneja asignaciones y el catálogo de roles.
type RolesController struct {
	manager *authz.Manager
}

// NewRolesController crea el controller de roles.
func NewRolesController(m *authz.Manager) *RolesController {
	return &RolesController{manager: m}
}

// Assign maneja POST /v1/admin/roles/assign.
func (c *RolesController) Assign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("RolesController.Assign"),
	)

	var req dto.AssignRoleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	if req.UserID == "" || req.Role == "" || req.Actor == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("user_id, role y actor son requeridos"))
		return
	}

	if err := c.manager.AssignRole(ctx, req.UserID, req.Role, req.Actor, req.Reason); err != nil {
		log.Error("assign failed", logger.UserID(req.UserID), logger.Role(req.Role), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Revoke maneja POST /v1/admin/roles/revoke.
func (c *RolesController) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("RolesController.Revoke"),
	)

	var req dto.RevokeRoleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	if req.UserID == "" || req.Role == "" || req.Actor == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("user_id, role y actor son requeridos"))
		return
	}

	if err := c.manager.RevokeRole(ctx, req.UserID, req.Role, req.Actor, req.Reason); err != nil {
		log.Error("revoke failed", logger.UserID(req.UserID), logger.Role(req.Role), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UserRoles maneja GET /v1/admin/users/{userID}/roles.
func (c *RolesController) UserRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing user id"))
		return
	}

	roles, err := c.manager.GetUserRoles(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("user roles failed", logger.UserID(userID), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.UserRolesResponse{UserID: userID, Roles: roles})
}

// List maneja GET /v1/admin/roles.
func (c *RolesController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	roles, err := c.manager.ListRoles(ctx)
	if err != nil {
		logger.From(ctx).Error("list roles failed", logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	resp := make([]dto.RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, toRoleResponse(role))
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Get maneja GET /v1/admin/roles/{name}.
func (c *RolesController) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if name == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing role name"))
		return
	}

	role, err := c.manager.GetRole(ctx, name)
	if err != nil {
		httperrors.WriteError(w, mapError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

// Upsert maneja PUT /v1/admin/roles/{name}.
func (c *RolesController) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("RolesController.Upsert"),
	)

	name := chi.URLParam(r, "name")
	if name == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing role name"))
		return
	}

	var req dto.RoleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 256<<10)).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	if req.Actor == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("actor es requerido"))
		return
	}

	role := repository.Role{
		Name:        name,
		Description: req.Description,
		Inherits:    req.Inherits,
	}
	for _, p := range req.Permissions {
		role.Permissions = append(role.Permissions, repository.Permission{
			Resource:    p.Resource,
			Action:      p.Action,
			Scope:       p.Scope,
			Description: p.Description,
		})
	}

	if err := c.manager.UpsertRole(ctx, role, req.Actor); err != nil {
		log.Error("upsert failed", logger.Role(name), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	log.Info("role upserted", logger.Role(name), logger.Actor(req.Actor))
	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Delete maneja DELETE /v1/admin/roles/{name}.
func (c *RolesController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("RolesController.Delete"),
	)

	name := chi.URLParam(r, "name")
	if name == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing role name"))
		return
	}
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "admin"
	}

	if err := c.manager.DeleteRole(ctx, name, actor); err != nil {
		log.Error("delete failed", logger.Role(name), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func toRoleResponse(role repository.Role) dto.RoleResponse {
	resp := dto.RoleResponse{
		Name:        role.Name,
		Description: role.Description,
		Permissions: make([]dto.PermissionDTO, 0, len(role.Permissions)),
		Inherits:    role.Inherits,
		System:      role.System,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
	for _, p := range role.Permissions {
		resp.Permissions = append(resp.Permissions, dto.PermissionDTO{
			Resource:    p.Resource,
			Action:      p.Action,
			Scope:       p.Scope,
			Description: p.Description,
		})
	}
	return resp
}
