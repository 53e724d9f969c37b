package authz

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/authgate/internal/cache"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/metrics"
)

// permKeyPrefix prefija las claves del permission cache en el backend.
const permKeyPrefix = "perm:"

// PermissionCache memoiza el set efectivo de permisos derivados de roles
// por usuario. Los grants temporales NUNCA entran aquí: se evalúan en
// vivo en cada check, así una entrada cacheada no puede sobrevivir al
// vencimiento de un grant.
//
// Es pura optimización sobre el Policy Store; vaciarlo es siempre seguro.
type PermissionCache struct {
	backend cache.Cache
	ttl     time.Duration

	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPermissionCache crea el cache sobre el backend dado.
// ttl acota la vida de cada entrada además de la invalidación explícita.
func NewPermissionCache(backend cache.Cache, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{backend: backend, ttl: ttl}
}

// ComputeFunc calcula el set de permisos derivados de roles de un usuario
// contra el Policy Store.
type ComputeFunc func(ctx context.Context, userID string) ([]repository.Permission, error)

// GetOrCompute retorna el set cacheado o lo computa y almacena.
// Cómputos concurrentes para el mismo usuario se deduplican (singleflight).
func (c *PermissionCache) GetOrCompute(ctx context.Context, userID string, compute ComputeFunc) ([]repository.Permission, error) {
	key := permKeyPrefix + userID
	if b, ok := c.backend.Get(key); ok {
		var perms []repository.Permission
		if err := json.Unmarshal(b, &perms); err == nil {
			c.hits.Add(1)
			metrics.CacheHit()
			return perms, nil
		}
		// Entrada ilegible: se descarta y se recomputa.
		c.backend.Delete(key)
	}
	c.misses.Add(1)
	metrics.CacheMiss()

	v, err, _ := c.group.Do(userID, func() (any, error) {
		perms, err := compute(ctx, userID)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(perms); err == nil {
			c.backend.Set(key, b, c.ttl)
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]repository.Permission), nil
}

// Invalidate descarta la entrada de un usuario. Debe llamarse antes de
// que la mutación que lo afecta retorne (read-your-writes).
func (c *PermissionCache) Invalidate(userID string) {
	c.backend.Delete(permKeyPrefix + userID)
}

// InvalidateAll descarta todas las entradas (ediciones de roles, sweep).
func (c *PermissionCache) InvalidateAll() int {
	return c.backend.DeleteByPrefix(permKeyPrefix)
}

// Stats retorna hits y misses acumulados.
func (c *PermissionCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
