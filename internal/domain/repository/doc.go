// Package repository define las interfaces de repositorio del dominio de autorización.
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente (FileSystem, PostgreSQL, etc.).
//
// Las implementaciones concretas viven en internal/store/adapters/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│          Manager / Controllers                      │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│      PolicyRepository, AuditRepository              │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	             ┌──────────┴──────────┐
//	             ▼                     ▼
//	      ┌─────────────┐       ┌─────────────┐
//	      │  adapters/  │       │  adapters/  │
//	      │     fs      │       │     pg      │
//	      └─────────────┘       └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
//   - Los repositorios nunca cachean: el cache vive arriba, en internal/authz
package repository
