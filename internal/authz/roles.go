package authz

import (
	"context"
	"fmt"
	"sort"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// ListRoles retorna el catálogo completo ordenado por nombre.
func (m *Manager) ListRoles(ctx context.Context) ([]repository.Role, error) {
	roles, err := m.policies.LoadRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]repository.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetRole retorna un rol por nombre o ErrUnknownRole.
func (m *Manager) GetRole(ctx context.Context, name string) (repository.Role, error) {
	roles, err := m.policies.LoadRoles(ctx)
	if err != nil {
		return repository.Role{}, err
	}
	r, ok := roles[name]
	if !ok {
		return repository.Role{}, fmt.Errorf("%w: %s", repository.ErrUnknownRole, name)
	}
	return r, nil
}

// UpsertRole crea o reemplaza un rol. Padres inexistentes y ciclos de
// herencia se rechazan antes de persistir (ErrUnknownRole, ErrCyclicRole).
// El flag system del rol existente se preserva: los roles predefinidos
// pueden editarse pero no dejar de ser system.
func (m *Manager) UpsertRole(ctx context.Context, role repository.Role, actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := repository.AuditEntry{
		Timestamp: m.now(),
		Actor:     actor,
		Kind:      repository.AuditKindUpsertRole,
		Role:      role.Name,
	}

	if role.Name == "" || role.Name == repository.Wildcard {
		return m.rejectMutation(ctx, entry, fmt.Errorf("%w: invalid role name %q", repository.ErrUnknownRole, role.Name))
	}

	roles, err := m.policies.LoadRoles(ctx)
	if err != nil {
		return m.rejectMutation(ctx, entry, err)
	}
	for _, parent := range role.Inherits {
		if parent == role.Name {
			continue // el ciclo a sí mismo lo reporta la validación de grafo
		}
		if _, ok := roles[parent]; !ok {
			return m.rejectMutation(ctx, entry, fmt.Errorf("%w: inherited role %s", repository.ErrUnknownRole, parent))
		}
	}

	prev, existed := roles[role.Name]
	role.UpdatedAt = entry.Timestamp
	if existed {
		role.System = prev.System
		role.CreatedAt = prev.CreatedAt
	} else {
		role.CreatedAt = entry.Timestamp
	}

	// SaveRole valida el grafo resultante y rechaza ciclos sin escribir.
	if err := m.policies.SaveRole(ctx, role); err != nil {
		return m.rejectMutation(ctx, entry, err)
	}

	entry.Result = repository.AuditResultSuccess
	if err := m.audit.Append(ctx, entry); err != nil {
		var rbErr error
		if existed {
			rbErr = m.policies.SaveRole(ctx, prev)
		} else {
			rbErr = m.policies.DeleteRole(ctx, role.Name)
		}
		if rbErr != nil {
			m.log.Error("rollback after audit failure failed",
				logger.Op("UpsertRole"), logger.Role(role.Name), logger.Err(rbErr))
		} else {
			m.auditRollback(ctx, entry)
		}
		metrics.MutationApplied(entry.Kind, "audit_error")
		return fmt.Errorf("%w: %v", repository.ErrAuditWrite, err)
	}

	// Editar un rol puede cambiar el set efectivo de cualquier usuario
	// que lo alcance por herencia: se invalida todo.
	m.cache.InvalidateAll()
	metrics.MutationApplied(entry.Kind, entry.Result)
	m.log.Info("role upserted", logger.Role(role.Name), logger.Actor(actor))
	return nil
}

// DeleteRole elimina un rol del catálogo. Los roles system y los roles
// heredados por otros no se pueden borrar (ErrSystemRole, ErrRoleInUse);
// el store hace esas verificaciones bajo su propio lock.
func (m *Manager) DeleteRole(ctx context.Context, name, actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := repository.AuditEntry{
		Timestamp: m.now(),
		Actor:     actor,
		Kind:      repository.AuditKindDeleteRole,
		Role:      name,
	}

	roles, err := m.policies.LoadRoles(ctx)
	if err != nil {
		return m.rejectMutation(ctx, entry, err)
	}
	prev, ok := roles[name]
	if !ok {
		return m.rejectMutation(ctx, entry, fmt.Errorf("%w: %s", repository.ErrUnknownRole, name))
	}

	if err := m.policies.DeleteRole(ctx, name); err != nil {
		return m.rejectMutation(ctx, entry, err)
	}

	entry.Result = repository.AuditResultSuccess
	if err := m.audit.Append(ctx, entry); err != nil {
		if rbErr := m.policies.SaveRole(ctx, prev); rbErr != nil {
			m.log.Error("rollback after audit failure failed",
				logger.Op("DeleteRole"), logger.Role(name), logger.Err(rbErr))
		} else {
			m.auditRollback(ctx, entry)
		}
		metrics.MutationApplied(entry.Kind, "audit_error")
		return fmt.Errorf("%w: %v", repository.ErrAuditWrite, err)
	}

	m.cache.InvalidateAll()
	metrics.MutationApplied(entry.Kind, entry.Result)
	m.log.Info("role deleted", logger.Role(name), logger.Actor(actor))
	return nil
}

// PermissionTrace explica por qué un check resolvió como lo hizo:
// qué roles directos tiene el usuario, qué cierre de herencia se
// recorrió y qué permiso o grant produjo el match, si lo hubo.
type PermissionTrace struct {
	UserID      string   `json:"user_id"`
	Resource    string   `json:"resource"`
	Action      string   `json:"action"`
	Scope       string   `json:"scope"`
	DirectRoles []string `json:"direct_roles"`
	Closure     []string `json:"closure"`

	Allowed           bool                       `json:"allowed"`
	MatchedRole       string                     `json:"matched_role,omitempty"`
	MatchedPermission *repository.Permission     `json:"matched_permission,omitempty"`
	MatchedGrant      *repository.TemporaryGrant `json:"matched_grant,omitempty"`
}

// DebugPermission evalúa la tupla como CheckPermission pero sin cache
// y sin auditar, devolviendo la traza completa. Solo para diagnóstico.
func (m *Manager) DebugPermission(ctx context.Context, userID, resource, action, scope string) (PermissionTrace, error) {
	trace := PermissionTrace{
		UserID:      userID,
		Resource:    resource,
		Action:      action,
		Scope:       scope,
		DirectRoles: []string{},
		Closure:     []string{},
	}

	assignments, err := m.policies.ListRoleAssignments(ctx, userID)
	if err != nil {
		return trace, err
	}
	roles, err := m.policies.LoadRoles(ctx)
	if err != nil {
		return trace, err
	}

	seen := make(map[string]struct{})
	for _, a := range assignments {
		trace.DirectRoles = append(trace.DirectRoles, a.Role)
		for _, name := range repository.Closure(roles, a.Role) {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			trace.Closure = append(trace.Closure, name)
		}
	}
	sort.Strings(trace.DirectRoles)

	for _, name := range trace.Closure {
		for _, p := range roles[name].Permissions {
			if p.Matches(resource, action, scope) {
				perm := p
				trace.Allowed = true
				trace.MatchedRole = name
				trace.MatchedPermission = &perm
				return trace, nil
			}
		}
	}

	grants, err := m.policies.ListTemporaryGrants(ctx, userID)
	if err != nil {
		return trace, err
	}
	now := m.now()
	for _, g := range grants {
		if g.LiveAt(now) && g.Matches(resource, action, scope) {
			grant := g
			trace.Allowed = true
			trace.MatchedGrant = &grant
			return trace, nil
		}
	}
	return trace, nil
}
