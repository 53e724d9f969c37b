package admin

import "time"

// GrantRequest es el body de POST /v1/admin/grants.
type GrantRequest struct {
	UserID    string    `json:"user_id"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	Scope     string    `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
	Actor     string    `json:"actor"`
}

// GrantResponse representa un permiso temporal vigente.
type GrantResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	Scope     string    `json:"scope"`
	GrantedBy string    `json:"granted_by"`
	GrantedAt time.Time `json:"granted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CleanupResponse reporta el resultado del sweep manual.
type CleanupResponse struct {
	Removed int `json:"removed"`
}
