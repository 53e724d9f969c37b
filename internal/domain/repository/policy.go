package repository

import (
	"context"
	"time"
)

// Wildcard es el valor sentinela que coincide con cualquier valor
// durante la evaluación de permisos.
const Wildcard = "*"

// Permission es la tupla (resource, action, scope) ligada a un rol.
// Cualquier campo puede ser Wildcard.
type Permission struct {
	Resource    string `yaml:"resource" json:"resource"`
	Action      string `yaml:"action" json:"action"`
	Scope       string `yaml:"scope" json:"scope"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Matches evalúa la tupla solicitada contra este permiso.
// Un campo Wildcard del permiso coincide con cualquier valor solicitado.
func (p Permission) Matches(resource, action, scope string) bool {
	return matchField(p.Resource, resource) &&
		matchField(p.Action, action) &&
		matchField(p.Scope, scope)
}

func matchField(granted, requested string) bool {
	return granted == Wildcard || granted == requested
}

// String retorna la representación resource:action:scope.
func (p Permission) String() string {
	return p.Resource + ":" + p.Action + ":" + p.Scope
}

// Role representa un rol definido en el sistema.
type Role struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Permissions []Permission `yaml:"permissions" json:"permissions"`

	// Inherits lista los roles cuyos permisos este rol incluye.
	// El grafo resultante debe ser acíclico (ver ValidateRoleGraph).
	Inherits []string `yaml:"inherits,omitempty" json:"inherits,omitempty"`

	// System marca roles predefinidos que no pueden eliminarse.
	System    bool      `yaml:"system,omitempty" json:"system,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// RoleAssignment liga un usuario a un rol. Muchos-a-muchos.
// Nunca expira por sí sola: solo se elimina por revocación explícita.
type RoleAssignment struct {
	UserID     string    `yaml:"user_id" json:"user_id"`
	Role       string    `yaml:"role" json:"role"`
	AssignedBy string    `yaml:"assigned_by" json:"assigned_by"`
	Reason     string    `yaml:"reason,omitempty" json:"reason,omitempty"`
	AssignedAt time.Time `yaml:"assigned_at" json:"assigned_at"`
}

// TemporaryGrant es un permiso con vencimiento, independiente de roles.
type TemporaryGrant struct {
	ID        string    `yaml:"id" json:"id"`
	UserID    string    `yaml:"user_id" json:"user_id"`
	Resource  string    `yaml:"resource" json:"resource"`
	Action    string    `yaml:"action" json:"action"`
	Scope     string    `yaml:"scope" json:"scope"`
	GrantedBy string    `yaml:"granted_by" json:"granted_by"`
	GrantedAt time.Time `yaml:"granted_at" json:"granted_at"`
	ExpiresAt time.Time `yaml:"expires_at" json:"expires_at"`
}

// LiveAt es el único predicado de vigencia. Lo comparten la evaluación
// perezosa de check_permission y el sweep físico, para que la corrección
// de los checks nunca dependa de cuándo corre el sweep.
func (g TemporaryGrant) LiveAt(t time.Time) bool {
	return g.ExpiresAt.After(t)
}

// Matches evalúa la tupla solicitada contra este grant (wildcards por campo).
func (g TemporaryGrant) Matches(resource, action, scope string) bool {
	return matchField(g.Resource, resource) &&
		matchField(g.Action, action) &&
		matchField(g.Scope, scope)
}

// PolicyCounts agrupa conteos del Policy Store para estadísticas.
type PolicyCounts struct {
	Users           int
	Roles           int
	Assignments     int
	TemporaryGrants int // vigentes al momento de la consulta
}

// PolicyRepository define la persistencia de roles, asignaciones y
// permisos temporales. Fuente de verdad del motor de autorización.
//
// Todas las mutaciones deben ser atómicas respecto a lectores
// concurrentes: un lector nunca observa una asignación a medio escribir.
type PolicyRepository interface {
	// ─── Roles ───

	// LoadRoles retorna el catálogo completo de roles, indexado por nombre.
	LoadRoles(ctx context.Context) (map[string]Role, error)

	// SaveRole crea o reemplaza la definición de un rol.
	// Rechaza con ErrCyclicRole, antes de escribir nada, toda edición
	// que introduzca un ciclo de herencia (validate-then-commit).
	SaveRole(ctx context.Context, role Role) error

	// DeleteRole elimina un rol. Retorna ErrNotFound si no existe,
	// ErrSystemRole si es un rol del sistema y ErrRoleInUse si otros
	// roles lo heredan.
	DeleteRole(ctx context.Context, name string) error

	// ─── Role assignments ───

	// SaveRoleAssignment persiste una asignación usuario→rol.
	// Idempotente: re-asignar un rol ya asignado deja una sola membresía.
	SaveRoleAssignment(ctx context.Context, a RoleAssignment) error

	// DeleteRoleAssignment elimina la asignación. Retorna ErrNotFound
	// si el usuario no tenía el rol.
	DeleteRoleAssignment(ctx context.Context, userID, role string) error

	// ListRoleAssignments retorna las asignaciones directas de un usuario.
	ListRoleAssignments(ctx context.Context, userID string) ([]RoleAssignment, error)

	// ─── Temporary grants ───

	// SaveTemporaryGrant persiste un permiso temporal.
	SaveTemporaryGrant(ctx context.Context, g TemporaryGrant) error

	// ListTemporaryGrants retorna todos los grants del usuario,
	// incluidos los vencidos. El filtrado de vigencia es del caller.
	ListTemporaryGrants(ctx context.Context, userID string) ([]TemporaryGrant, error)

	// DeleteTemporaryGrant elimina un grant por id. Retorna ErrNotFound
	// si no existe. Usado por la compensación fail-closed del Manager.
	DeleteTemporaryGrant(ctx context.Context, id string) error

	// DeleteExpiredTemporaryGrants elimina físicamente los grants
	// vencidos a asOf y retorna cuántos removió.
	DeleteExpiredTemporaryGrants(ctx context.Context, asOf time.Time) (int, error)

	// ─── Observabilidad ───

	// ListUsers retorna los usuarios conocidos: sujetos de al menos
	// una asignación o un grant.
	ListUsers(ctx context.Context) ([]string, error)

	// Counts retorna conteos agregados (no autoritativos, solo stats).
	Counts(ctx context.Context, asOf time.Time) (PolicyCounts, error)
}
