// Package cache provee la abstracción de cache de bytes usada por el
// Permission Cache.
//
// Backends:
//   - Memory (in-process, default)
//   - Redis (compartido entre procesos)
//
// El cache es pura optimización: puede vaciarse en cualquier momento
// sin afectar la corrección, la fuente de verdad es el Policy Store.
package cache

import "time"

// Cache define las operaciones mínimas que necesita el motor.
type Cache interface {
	// Get obtiene un valor. Retorna nil, false si no existe o expiró.
	Get(k string) ([]byte, bool)

	// Set guarda un valor con TTL. ttl 0 usa el default del backend.
	Set(k string, v []byte, ttl time.Duration)

	// Delete elimina una clave. No-op si no existe.
	Delete(k string)

	// DeleteByPrefix elimina todas las claves con el prefijo dado y
	// retorna cuántas removió. Usado para invalidate_all.
	DeleteByPrefix(prefix string) int
}
