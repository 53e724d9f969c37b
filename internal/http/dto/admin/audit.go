package admin

import "time"

// AuditEntryResponse es una entrada del historial de auditoría.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Kind      string    `json:"action_kind"`
	Role      string    `json:"role,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	Action    string    `json:"action,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Result    string    `json:"result"`
	Reason    string    `json:"reason,omitempty"`
}

// StatsResponse agrega los contadores del motor.
type StatsResponse struct {
	Users         int     `json:"users"`
	Roles         int     `json:"roles"`
	Assignments   int     `json:"assignments"`
	ActiveGrants  int     `json:"active_grants"`
	AuditEntries  int64   `json:"audit_entries"`
	CacheHits     uint64  `json:"cache_hits"`
	CacheMisses   uint64  `json:"cache_misses"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
}

// UsersResponse lista los usuarios conocidos por el motor.
type UsersResponse struct {
	Users []string `json:"users"`
}
