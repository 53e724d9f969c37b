package repository

import (
	"context"
	"time"
)

// Tipos de acción registrados en el audit log.
const (
	AuditKindCheck          = "check"
	AuditKindAssignRole     = "assign_role"
	AuditKindRevokeRole     = "revoke_role"
	AuditKindGrantTemporary = "grant_temporary"
	AuditKindUpsertRole     = "upsert_role"
	AuditKindDeleteRole     = "delete_role"
	AuditKindCleanup        = "cleanup_expired"
)

// Resultados posibles de una entrada de auditoría.
//
//	allowed/denied → resultado de un check
//	success        → mutación aplicada
//	repeat         → mutación no-op (rol ya asignado / ya revocado)
//	rejected       → mutación inválida, nada se aplicó
//	rolled_back    → mutación deshecha tras fallar el append de su entrada
const (
	AuditResultAllowed    = "allowed"
	AuditResultDenied     = "denied"
	AuditResultSuccess    = "success"
	AuditResultRepeat     = "repeat"
	AuditResultRejected   = "rejected"
	AuditResultRolledBack = "rolled_back"
)

// AuditEntry es un registro inmutable de una acción que afecta permisos.
// Orden: timestamp y, ante empate, la secuencia asignada por el sink.
type AuditEntry struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"action_kind"`
	Role      string    `json:"role,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Action    string    `json:"action,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Result    string    `json:"result"`
	Reason    string    `json:"reason,omitempty"`
}

// AuditFilter acota una consulta sobre el audit log.
type AuditFilter struct {
	// UserID filtra por usuario afectado. Vacío = todos.
	UserID string

	// Since excluye entradas anteriores a este instante. Cero = sin límite.
	Since time.Time

	// Limit acota el número de entradas retornadas. <=0 = sin límite.
	Limit int
}

// AuditRepository es el sink append-only del registro de auditoría.
//
// Append nunca falla en silencio: si el sink no está disponible retorna
// un error envolviendo ErrAuditWrite y el Manager decide la política
// (las mutaciones fallan cerradas, los checks denegados son best-effort).
type AuditRepository interface {
	// Append agrega una entrada. El sink asigna Seq.
	Append(ctx context.Context, e AuditEntry) error

	// Query retorna entradas que cumplen el filtro, más recientes primero.
	Query(ctx context.Context, f AuditFilter) ([]AuditEntry, error)

	// Count retorna el total de entradas registradas.
	Count(ctx context.Context) (int64, error)
}
