// Package store define el registro de adapters de persistencia.
//
// Cada adapter (fs, pg) se registra en init() y se selecciona por
// configuración. Una Connection expone los repositorios del dominio.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
)

// AdapterConfig agrupa los parámetros de conexión de todos los drivers.
// Cada adapter usa solo los campos que le corresponden.
type AdapterConfig struct {
	// DataDir es el directorio base del driver fs.
	DataDir string

	// AuditPath es la ruta del audit log del driver fs. Vacío usa
	// audit.log bajo DataDir. El driver postgres audita en tabla y
	// lo ignora.
	AuditPath string

	// DSN es la cadena de conexión del driver postgres.
	DSN string
}

// Connection es una conexión activa a un backend de persistencia.
type Connection interface {
	Name() string

	// Policies retorna el Policy Store (fuente de verdad).
	Policies() repository.PolicyRepository

	// Audit retorna el sink append-only de auditoría.
	Audit() repository.AuditRepository

	Ping(ctx context.Context) error
	Close() error
}

// Adapter construye conexiones para un driver concreto.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

var (
	mu       sync.RWMutex
	adapters = map[string]Adapter{}
)

// RegisterAdapter registra un adapter. Llamado desde init() de cada driver.
func RegisterAdapter(a Adapter) {
	mu.Lock()
	defer mu.Unlock()
	adapters[a.Name()] = a
}

// Open conecta usando el driver indicado.
func Open(ctx context.Context, driver string, cfg AdapterConfig) (Connection, error) {
	mu.RLock()
	a, ok := adapters[driver]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unknown driver %q (available: %v)", driver, available())
	}
	return a.Connect(ctx, cfg)
}

func available() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
