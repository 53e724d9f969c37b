package admin

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authgate/internal/authz"
	dto "github.com/dropDatabas3/authgate/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// defaultHistoryLimit acota el historial cuando el caller no pide un límite.
const defaultHistoryLimit = 100

// AuditController maneja historial, usuarios y estadísticas.
type AuditController struct {
	manager *authz.Manager
}

// NewAuditController crea el controller de auditoría.
func NewAuditController(m *authz.Manager) *AuditController {
	return &AuditController{manager: m}
}

// History maneja GET /v1/admin/users/{userID}/history?limit=N.
func (c *AuditController) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing user id"))
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("limit inválido"))
			return
		}
		limit = n
	}

	entries, err := c.manager.GetPermissionHistory(ctx, userID, limit)
	if err != nil {
		logger.From(ctx).Error("history failed", logger.UserID(userID), logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	resp := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.AuditEntryResponse{
			ID:        e.ID,
			Seq:       e.Seq,
			Timestamp: e.Timestamp,
			Actor:     e.Actor,
			UserID:    e.UserID,
			Kind:      e.Kind,
			Role:      e.Role,
			Resource:  e.Resource,
			Action:    e.Action,
			Scope:     e.Scope,
			Result:    e.Result,
			Reason:    e.Reason,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// Users maneja GET /v1/admin/users.
func (c *AuditController) Users(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := c.manager.ListUsers(ctx)
	if err != nil {
		logger.From(ctx).Error("list users failed", logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.UsersResponse{Users: users})
}

// Stats maneja GET /v1/admin/stats.
func (c *AuditController) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := c.manager.GetAuthorizationStats(ctx)
	if err != nil {
		logger.From(ctx).Error("stats failed", logger.Err(err))
		httperrors.WriteError(w, mapError(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		Users:         stats.Users,
		Roles:         stats.Roles,
		Assignments:   stats.Assignments,
		ActiveGrants:  stats.ActiveGrants,
		AuditEntries:  stats.AuditEntries,
		CacheHits:     stats.CacheHits,
		CacheMisses:   stats.CacheMisses,
		CacheHitRatio: stats.CacheHitRatio,
	})
}
