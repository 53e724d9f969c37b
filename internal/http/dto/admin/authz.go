// Package admin define los DTOs de la API administrativa.
package admin

// CheckRequest es el body de POST /v1/check.
type CheckRequest struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Scope    string `json:"scope"`
}

// CheckResponse indica el resultado de un check.
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

// DebugRequest es el body de POST /v1/admin/debug/permission.
// Misma tupla que un check, pero devuelve la traza completa.
type DebugRequest struct {
	UserID   string `json:"user_id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Scope    string `json:"scope"`
}
