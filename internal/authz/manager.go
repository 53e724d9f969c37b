// Package authz implementa el Authorization Manager: punto de entrada
// único para checks de permiso, asignación/revocación de roles, permisos
// temporales, sweep de vencidos, historial y estadísticas.
//
// Modelo de concurrencia:
//   - check_permission es read-mostly: cache + singleflight, sin locks
//     del Manager y sin bloquear en escrituras de auditoría.
//   - Las mutaciones se serializan con un mutex global (la simplicidad
//     gana sobre el throughput: el volumen de mutaciones es bajo).
//   - La invalidación del cache ocurre antes de que la mutación retorne,
//     garantizando read-your-writes para el caller.
package authz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// denialQueueSize acota la cola best-effort de auditoría de denials.
const denialQueueSize = 256

// Manager orquesta Policy Store, Permission Cache y Audit Log.
// Construir una sola instancia en el arranque y pasarla por referencia;
// no hay singleton ambiente.
type Manager struct {
	policies repository.PolicyRepository
	audit    repository.AuditRepository
	cache    *PermissionCache
	now      func() time.Time
	log      *zap.Logger

	// mu serializa todas las mutaciones.
	mu sync.Mutex

	// closeMu excluye los sends a denials contra el close del canal:
	// un send que ya pasó el chequeo de closed no puede cruzarse con
	// Close (un case de envío sobre un canal cerrado panica aunque el
	// select tenga default).
	closeMu    sync.RWMutex
	closed     atomic.Bool
	denials    chan repository.AuditEntry
	writerDone chan struct{}
}

// Option configura el Manager.
type Option func(*Manager)

// WithClock inyecta la fuente de tiempo (tests de expiración).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger reemplaza el logger por defecto.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager construye el Manager y arranca el writer de denials.
// Llamar Close() al apagar para drenar la cola de auditoría.
func NewManager(policies repository.PolicyRepository, audit repository.AuditRepository, cache *PermissionCache, opts ...Option) *Manager {
	m := &Manager{
		policies:   policies,
		audit:      audit,
		cache:      cache,
		now:        time.Now,
		log:        logger.Named("authz"),
		denials:    make(chan repository.AuditEntry, denialQueueSize),
		writerDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.denialWriter()
	return m
}

// Close drena la cola de denials pendientes y detiene el writer.
func (m *Manager) Close() error {
	m.closeMu.Lock()
	swapped := m.closed.CompareAndSwap(false, true)
	if swapped {
		close(m.denials)
	}
	m.closeMu.Unlock()
	if swapped {
		<-m.writerDone
	}
	return nil
}

// ─── Checks ───

// CheckPermission evalúa la tupla solicitada contra el set efectivo del
// usuario: permisos derivados de roles (cacheados) ∪ grants temporales
// vigentes (siempre en vivo). La denegación es un false normal, nunca
// un error; los errores son solo fallos del Policy Store.
func (m *Manager) CheckPermission(ctx context.Context, userID, resource, action, scope string) (bool, error) {
	perms, err := m.cache.GetOrCompute(ctx, userID, m.computeRolePermissions)
	if err != nil {
		metrics.CheckEvaluated("error")
		return false, err
	}
	for _, p := range perms {
		if p.Matches(resource, action, scope) {
			metrics.CheckEvaluated(repository.AuditResultAllowed)
			return true, nil
		}
	}

	// Grants temporales: evaluación perezosa contra el reloj inyectado.
	grants, err := m.policies.ListTemporaryGrants(ctx, userID)
	if err != nil {
		metrics.CheckEvaluated("error")
		return false, err
	}
	now := m.now()
	for _, g := range grants {
		if g.LiveAt(now) && g.Matches(resource, action, scope) {
			metrics.CheckEvaluated(repository.AuditResultAllowed)
			return true, nil
		}
	}

	metrics.CheckEvaluated(repository.AuditResultDenied)
	m.enqueueDenial(repository.AuditEntry{
		Timestamp: now,
		Actor:     userID,
		UserID:    userID,
		Kind:      repository.AuditKindCheck,
		Resource:  resource,
		Action:    action,
		Scope:     scope,
		Result:    repository.AuditResultDenied,
	})
	return false, nil
}

// computeRolePermissions resuelve el cierre de herencia en tiempo de
// lectura (DFS con visited-set) y aplana los permisos, deduplicados.
func (m *Manager) computeRolePermissions(ctx context.Context, userID string) ([]repository.Permission, error) {
	assignments, err := m.policies.ListRoleAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []repository.Permission{}, nil
	}
	roles, err := m.policies.LoadRoles(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []repository.Permission
	for _, a := range assignments {
		for _, name := range repository.Closure(roles, a.Role) {
			for _, p := range roles[name].Permissions {
				key := p.String()
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, p)
			}
		}
	}
	if out == nil {
		out = []repository.Permission{}
	}
	return out, nil
}

// ─── Mutaciones de asignación ───

// AssignRole asigna un rol al usuario. Retorna ErrUnknownRole si el rol
// no existe. Idempotente: re-asignar deja una sola membresía y audita
// el repeat. La invalidación del cache ocurre antes de retornar.
func (m *Manager) AssignRole(ctx context.Context, userID, role, assignedBy, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := repository.AuditEntry{
		Timestamp: m.now(),
		Actor:     assignedBy,
		UserID:    userID,
		Kind:      repository.AuditKindAssignRole,
		Role:      role,
		Reason:    reason,
	}

	roles, err := m.policies.LoadRoles(ctx)
	if err != nil {
		return m.rejectMutation(ctx, entry, err)
	}
	if _, ok := roles[role]; !ok {
		return m.rejectMutation(ctx, entry, fmt.Errorf("%w: %s", repository.ErrUnknownRole, role))
	}

	existing, err := m.policies.ListRoleAssignments(ctx, userID)
	if err != nil {
		return m.rejectMutation(ctx, entry, err)
	}
	repeat := false
	for _, a := range existing {
		if a.Role == role {
			repeat = true
			break
		}
	}

	if !repeat {
		a := repository.RoleAssignment{
			UserID:     userID,
			Role:       role,
			AssignedBy: assignedBy,
			Reason:     reason,
			AssignedAt: entry.Timestamp,
		}
		if err := m.policies.SaveRoleAssignment(ctx, a); err != nil {
			return m.rejectMutation(ctx, entry, err)
		}
	}

	entry.Result = repository.AuditResultSuccess
	if repeat {
		entry.Result = repository.AuditResultRepeat
	}
	// Fail-closed: sin entrada de auditoría no hay mutación.
	if err := m.audit.Append(ctx, entry); err != nil {
		if !repeat {
			if rbErr := m.policies.DeleteRoleAssignment(ctx, userID, role); rbErr != nil {
				m.log.Error("rollback after audit failure failed",
					logger.Op("AssignRole"), logger.UserID(userID), logger.Role(role), logger.Err(rbErr))
			} else {
				m.auditRollback(ctx, entry)
			}
		}
		metrics.MutationApplied(entry.Kind, "audit_error")
		return fmt.Errorf("%w: %v", repository.ErrAuditWrite, err)
	}

	m.cache.Invalidate(userID)
	metrics.MutationApplied(entry.Kind, entry.Result)
	m.log.Info("role assigned",
		logger.UserID(userID), logger.Role(role), logger.Actor(assignedBy), logger.Result(entry.Result))
	return nil
}

// RevokeRole quita un rol del usuario. Si no lo tenía es un no-op
// auditado, nunca un error: las revocaciones son seguras de reintentar.
func (m *Manager) RevokeRole(ctx context.Context, userID, role, revokedBy, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := repository.AuditEntry{
		Timestamp: m.now(),
		Actor:     revokedBy,
		UserID:    userID,
		Kind:      repository.AuditKindRevokeRole,
		Role:      role,
		Reason:    reason,
	}

	// Capturar la asignación antes de borrar, para poder compensar
	// si el append de auditoría falla.
	existing, err := m.policies.ListRoleAssignments(ctx, userID)
	if err != nil {
		return m.rejectMutation(ctx, entry, err)
	}
	var prev *repository.RoleAssignment
	for i := range existing {
		if existing[i].Role == role {
			prev = &existing[i]
			break
		}
	}

	if prev != nil {
		if err := m.policies.DeleteRoleAssignment(ctx, userID, role); err != nil {
			return m.rejectMutation(ctx, entry, err)
		}
		entry.Result = repository.AuditResultSuccess
	} else {
		entry.Result = repository.AuditResultRepeat
	}

	if err := m.audit.Append(ctx, entry); err != nil {
		if prev != nil {
			if rbErr := m.policies.SaveRoleAssignment(ctx, *prev); rbErr != nil {
				m.log.Error("rollback after audit failure failed",
					logger.Op("RevokeRole"), logger.UserID(userID), logger.Role(role), logger.Err(rbErr))
			} else {
				m.auditRollback(ctx, entry)
			}
		}
		metrics.MutationApplied(entry.Kind, "audit_error")
		return fmt.Errorf("%w: %v", repository.ErrAuditWrite, err)
	}

	m.cache.Invalidate(userID)
	metrics.MutationApplied(entry.Kind, entry.Result)
	m.log.Info("role revoked",
		logger.UserID(userID), logger.Role(role), logger.Actor(revokedBy), logger.Result(entry.Result))
	return nil
}

// ─── Permisos temporales ───

// GrantTemporaryPermission emite un permiso con vencimiento. Retorna
// ErrInvalidExpiry si expiresAt no está estrictamente en el futuro.
// Grants solapados para la misma tupla están permitidos.
func (m *Manager) GrantTemporaryPermission(ctx context.Context, userID, resource, action, scope string, expiresAt time.Time, grantedBy string) (repository.TemporaryGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry := repository.AuditEntry{
		Timestamp: now,
		Actor:     grantedBy,
		UserID:    userID,
		Kind:      repository.AuditKindGrantTemporary,
		Resource:  resource,
		Action:    action,
		Scope:     scope,
	}

	if !expiresAt.After(now) {
		err := fmt.Errorf("%w: expires_at %s is not after %s",
			repository.ErrInvalidExpiry, expiresAt.Format(time.RFC3339), now.Format(time.RFC3339))
		return repository.TemporaryGrant{}, m.rejectMutation(ctx, entry, err)
	}

	g := repository.TemporaryGrant{
		ID:        uuid.NewString(),
		UserID:    userID,
		Resource:  resource,
		Action:    action,
		Scope:     scope,
		GrantedBy: grantedBy,
		GrantedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := m.policies.SaveTemporaryGrant(ctx, g); err != nil {
		return repository.TemporaryGrant{}, m.rejectMutation(ctx, entry, err)
	}

	entry.Result = repository.AuditResultSuccess
	entry.Reason = "expires " + expiresAt.Format(time.RFC3339)
	if err := m.audit.Append(ctx, entry); err != nil {
		if rbErr := m.policies.DeleteTemporaryGrant(ctx, g.ID); rbErr != nil {
			m.log.Error("rollback after audit failure failed",
				logger.Op("GrantTemporaryPermission"), logger.UserID(userID), logger.Err(rbErr))
		} else {
			m.auditRollback(ctx, entry)
		}
		metrics.MutationApplied(entry.Kind, "audit_error")
		return repository.TemporaryGrant{}, fmt.Errorf("%w: %v", repository.ErrAuditWrite, err)
	}

	m.cache.Invalidate(userID)
	metrics.MutationApplied(entry.Kind, entry.Result)
	m.log.Info("temporary permission granted",
		logger.UserID(userID), logger.Resource(resource), logger.Action(action),
		logger.Scope(scope), logger.Actor(grantedBy))
	return g, nil
}

// GetTemporaryPermissions retorna los grants vigentes del usuario al
// momento de la llamada, no al del último sweep.
func (m *Manager) GetTemporaryPermissions(ctx context.Context, userID string) ([]repository.TemporaryGrant, error) {
	grants, err := m.policies.ListTemporaryGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	live := grants[:0:0]
	for _, g := range grants {
		if g.LiveAt(now) {
			live = append(live, g)
		}
	}
	return live, nil
}

// CleanupExpiredPermissions remueve físicamente los grants vencidos.
// Independiente del filtrado perezoso de CheckPermission: la corrección
// nunca depende de que este sweep corra.
func (m *Manager) CleanupExpiredPermissions(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed, err := m.policies.DeleteExpiredTemporaryGrants(ctx, now)
	if err != nil {
		return 0, err
	}
	m.cache.InvalidateAll()
	metrics.SweepRemoved(removed)

	entry := repository.AuditEntry{
		Timestamp: now,
		Actor:     "system",
		Kind:      repository.AuditKindCleanup,
		Result:    repository.AuditResultSuccess,
		Reason:    fmt.Sprintf("removed %d expired grants", removed),
	}
	if err := m.audit.Append(ctx, entry); err != nil {
		// Los grants removidos ya estaban vencidos: no hay escalación
		// posible, se reporta el fallo sin deshacer el sweep.
		return removed, fmt.Errorf("%w: %v", repository.ErrAuditWrite, err)
	}
	m.log.Info("expired grants swept", logger.Count(removed))
	return removed, nil
}

// ─── Consultas ───

// GetUserRoles retorna solo las asignaciones directas, nunca el cierre
// de herencia: la herencia se resuelve en evaluación, no se materializa.
func (m *Manager) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	assignments, err := m.policies.ListRoleAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(assignments))
	for _, a := range assignments {
		names = append(names, a.Role)
	}
	sort.Strings(names)
	return names, nil
}

// GetPermissionHistory retorna el historial de auditoría del usuario,
// más recientes primero, acotado por limit.
func (m *Manager) GetPermissionHistory(ctx context.Context, userID string, limit int) ([]repository.AuditEntry, error) {
	return m.audit.Query(ctx, repository.AuditFilter{UserID: userID, Limit: limit})
}

// ListUsers retorna los usuarios con al menos una asignación o grant.
func (m *Manager) ListUsers(ctx context.Context) ([]string, error) {
	return m.policies.ListUsers(ctx)
}

// Stats agrega conteos de observabilidad. No autoritativo.
type Stats struct {
	Users           int     `json:"users"`
	Roles           int     `json:"roles"`
	Assignments     int     `json:"assignments"`
	ActiveGrants    int     `json:"active_grants"`
	AuditEntries    int64   `json:"audit_entries"`
	CacheHits       uint64  `json:"cache_hits"`
	CacheMisses     uint64  `json:"cache_misses"`
	CacheHitRatio   float64 `json:"cache_hit_ratio"`
}

// GetAuthorizationStats retorna contadores agregados del motor.
func (m *Manager) GetAuthorizationStats(ctx context.Context) (Stats, error) {
	counts, err := m.policies.Counts(ctx, m.now())
	if err != nil {
		return Stats{}, err
	}
	auditCount, err := m.audit.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	hits, misses := m.cache.Stats()
	s := Stats{
		Users:        counts.Users,
		Roles:        counts.Roles,
		Assignments:  counts.Assignments,
		ActiveGrants: counts.TemporaryGrants,
		AuditEntries: auditCount,
		CacheHits:    hits,
		CacheMisses:  misses,
	}
	if total := hits + misses; total > 0 {
		s.CacheHitRatio = float64(hits) / float64(total)
	}
	return s, nil
}

// ─── Internos ───

// rejectMutation audita una mutación inválida (nada quedó aplicado) y
// retorna el error original. El append es best-effort: un rechazo no
// cambió estado, así que no hay nada que cerrar.
func (m *Manager) rejectMutation(ctx context.Context, entry repository.AuditEntry, cause error) error {
	entry.Result = repository.AuditResultRejected
	if entry.Reason == "" {
		entry.Reason = cause.Error()
	}
	if err := m.audit.Append(ctx, entry); err != nil {
		metrics.AuditDropped()
		m.log.Warn("rejected-mutation audit append failed", logger.Err(err))
	}
	metrics.MutationApplied(entry.Kind, entry.Result)
	return cause
}

// auditRollback deja constancia best-effort de que una mutación fue
// deshecha. El append original pudo quedar durable aunque reportara
// error (fsync fallido con la línea ya en page cache); sin esta entrada
// el historial mostraría un success para un cambio que no existe.
func (m *Manager) auditRollback(ctx context.Context, entry repository.AuditEntry) {
	entry.Result = repository.AuditResultRolledBack
	entry.Reason = "rolled back after audit write failure"
	if err := m.audit.Append(ctx, entry); err != nil {
		metrics.AuditDropped()
		m.log.Warn("rollback audit append failed", logger.Err(err))
	}
}

// enqueueDenial encola la auditoría de un check denegado sin bloquear
// el camino de lectura. Cola llena o motor cerrado ⇒ se descarta y se
// cuenta en la métrica.
func (m *Manager) enqueueDenial(e repository.AuditEntry) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed.Load() {
		metrics.AuditDropped()
		return
	}
	select {
	case m.denials <- e:
	default:
		metrics.AuditDropped()
		m.log.Warn("denial audit queue full, entry dropped", logger.UserID(e.UserID))
	}
}

func (m *Manager) denialWriter() {
	defer close(m.writerDone)
	ctx := context.Background()
	for e := range m.denials {
		if err := m.audit.Append(ctx, e); err != nil {
			metrics.AuditDropped()
			m.log.Warn("denial audit append failed", logger.UserID(e.UserID), logger.Err(err))
		}
	}
}
