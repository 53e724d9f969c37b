package admin

import "time"

// AssignRoleRequest es el body de POST /v1/admin/roles/assign.
type AssignRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// RevokeRoleRequest es el body de POST /v1/admin/roles/revoke.
type RevokeRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// PermissionDTO representa una tupla de permiso dentro de un rol.
type PermissionDTO struct {
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Scope       string `json:"scope"`
	Description string `json:"description,omitempty"`
}

// RoleRequest es el body de PUT /v1/admin/roles/{name}.
type RoleRequest struct {
	Description string          `json:"description,omitempty"`
	Permissions []PermissionDTO `json:"permissions,omitempty"`
	Inherits    []string        `json:"inherits,omitempty"`
	Actor       string          `json:"actor"`
}

// RoleResponse representa un rol del catálogo.
type RoleResponse struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Permissions []PermissionDTO `json:"permissions"`
	Inherits    []string        `json:"inherits,omitempty"`
	System      bool            `json:"system"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// UserRolesResponse lista las asignaciones directas de un usuario.
type UserRolesResponse struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}
