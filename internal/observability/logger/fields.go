package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - AUTORIZACIÓN
// =================================================================================

// UserID crea un campo para el usuario evaluado.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Actor crea un campo para quien ejecuta la operación administrativa.
func Actor(v string) zap.Field {
	return zap.String("actor", v)
}

// Role crea un campo para un nombre de rol.
func Role(v string) zap.Field {
	return zap.String("role", v)
}

// Resource crea un campo para el resource de la tupla de permiso.
func Resource(v string) zap.Field {
	return zap.String("resource", v)
}

// Action crea un campo para el action de la tupla de permiso.
func Action(v string) zap.Field {
	return zap.String("action", v)
}

// Scope crea un campo para el scope de la tupla de permiso.
func Scope(v string) zap.Field {
	return zap.String("scope", v)
}

// Result crea un campo para el resultado de una evaluación o mutación.
func Result(v string) zap.Field {
	return zap.String("result", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (controller, manager, repository).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Key crea un campo genérico para una clave.
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
