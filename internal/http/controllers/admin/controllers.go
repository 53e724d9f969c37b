// Package admin contiene los controllers de la API administrativa.
package admin

import (
	"github.com/dropDatabas3/authgate/internal/authz"
)

// Controllers agrupa todos los controllers admin para el wiring del router.
type Controllers struct {
	Authz  *AuthzController
	Roles  *RolesController
	Grants *GrantsController
	Audit  *AuditController
}

// NewControllers construye los controllers sobre el Manager.
func NewControllers(m *authz.Manager) *Controllers {
	return &Controllers{
		Authz:  NewAuthzController(m),
		Roles:  NewRolesController(m),
		Grants: NewGrantsController(m),
		Audit:  NewAuditController(m),
	}
}
