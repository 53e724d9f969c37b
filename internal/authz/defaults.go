package authz

import (
	"context"
	"time"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
)

// DefaultRoles es el catálogo predefinido. Los roles base (free, premium,
// enterprise, admin) llevan los permisos; los roles de tier (*_user) solo
// heredan, de modo que el propio catálogo ejercita el cierre de herencia.
// Los operadores pueden extender el catálogo; estos quedan marcados system.
func DefaultRoles() []repository.Role {
	p := func(resource, action, scope, desc string) repository.Permission {
		return repository.Permission{Resource: resource, Action: action, Scope: scope, Description: desc}
	}
	return []repository.Role{
		{
			Name:        "free",
			Description: "Acceso básico",
			System:      true,
			Permissions: []repository.Permission{
				p("mcp", "read", "*", "Ver información del servidor"),
				p("tool", "read", "*", "Ver lista de tools"),
				p("tool", "execute", "basic", "Ejecutar tools básicos"),
				p("prompt", "read", "free", "Ver prompts gratuitos"),
				p("resource", "read", "public", "Acceder a recursos públicos"),
			},
		},
		{
			Name:        "premium",
			Description: "Acceso avanzado",
			System:      true,
			Inherits:    []string{"free"},
			Permissions: []repository.Permission{
				p("tool", "execute", "ai", "Ejecutar tools de IA"),
				p("tool", "execute", "premium", "Ejecutar tools premium"),
				p("prompt", "read", "*", "Ver todos los prompts"),
				p("prompt", "execute", "premium", "Ejecutar prompts premium"),
				p("resource", "read", "*", "Acceder a todos los recursos"),
				p("resource", "write", "private", "Escribir recursos privados"),
			},
		},
		{
			Name:        "enterprise",
			Description: "Acceso empresarial (admin de solo lectura)",
			System:      true,
			Inherits:    []string{"premium"},
			Permissions: []repository.Permission{
				p("tool", "execute", "*", "Ejecutar todos los tools"),
				p("tool", "execute", "external", "Acceder a sistemas externos"),
				p("prompt", "execute", "*", "Ejecutar todos los prompts"),
				p("prompt", "create", "*", "Crear prompts"),
				p("resource", "write", "*", "Escribir todos los recursos"),
				p("resource", "create", "*", "Crear recursos"),
			},
		},
		{
			Name:        "admin",
			Description: "Administrador del sistema - permisos completos",
			System:      true,
			Inherits:    []string{"enterprise"},
			Permissions: []repository.Permission{
				p("mcp", "write", "*", "Modificar configuración del servidor"),
				p("mcp", "admin", "*", "Operaciones de administración"),
				p("tool", "create", "*", "Crear tools"),
				p("tool", "delete", "*", "Eliminar tools"),
				p("prompt", "delete", "*", "Eliminar prompts"),
				p("resource", "delete", "*", "Eliminar recursos"),
				p("system", "read", "*", "Ver información del sistema"),
				p("system", "write", "*", "Modificar configuración del sistema"),
				p("system", "admin", "*", "Administración del sistema"),
			},
		},

		// Tiers: nombres históricos que los callers usan al asignar.
		{Name: "free_user", Description: "Usuario free", System: true, Inherits: []string{"free"}},
		{Name: "premium_user", Description: "Usuario premium", System: true, Inherits: []string{"premium"}},
		{Name: "enterprise_user", Description: "Usuario enterprise", System: true, Inherits: []string{"enterprise"}},
	}
}

// SeedDefaultRoles persiste el catálogo predefinido si el store está
// vacío. Idempotente: con roles existentes no toca nada.
func SeedDefaultRoles(ctx context.Context, policies repository.PolicyRepository, now func() time.Time) error {
	existing, err := policies.LoadRoles(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	ts := now()
	for _, role := range DefaultRoles() {
		role.CreatedAt = ts
		role.UpdatedAt = ts
		if err := policies.SaveRole(ctx, role); err != nil {
			return err
		}
	}
	return nil
}
