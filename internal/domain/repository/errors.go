package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrUnknownRole indica que el rol referenciado no está registrado.
	ErrUnknownRole = errors.New("unknown role")

	// ErrCyclicRole indica que la edición del rol introduciría un ciclo
	// en el grafo de herencia. Nada se escribe cuando ocurre.
	ErrCyclicRole = errors.New("cyclic role inheritance")

	// ErrInvalidExpiry indica que el expires_at de un permiso temporal
	// no está estrictamente en el futuro.
	ErrInvalidExpiry = errors.New("expiry not in the future")

	// ErrAuditWrite indica que el sink de auditoría no está disponible.
	// Las mutaciones fallan cerradas: sin registro de auditoría no hay cambio.
	ErrAuditWrite = errors.New("audit write failed")

	// ErrStorage indica un fallo de I/O del Policy Store.
	ErrStorage = errors.New("storage failure")

	// ErrSystemRole indica que la operación no está permitida sobre roles del sistema.
	ErrSystemRole = errors.New("system role is immutable")

	// ErrRoleInUse indica que el rol no puede eliminarse porque otros roles lo heredan.
	ErrRoleInUse = errors.New("role is inherited by other roles")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnknownRole verifica si el error es ErrUnknownRole.
func IsUnknownRole(err error) bool {
	return errors.Is(err, ErrUnknownRole)
}

// IsCyclicRole verifica si el error es ErrCyclicRole.
func IsCyclicRole(err error) bool {
	return errors.Is(err, ErrCyclicRole)
}

// IsInvalidExpiry verifica si el error es ErrInvalidExpiry.
func IsInvalidExpiry(err error) bool {
	return errors.Is(err, ErrInvalidExpiry)
}

// IsAuditWrite verifica si el error es ErrAuditWrite.
func IsAuditWrite(err error) bool {
	return errors.Is(err, ErrAuditWrite)
}

// IsStorage verifica si el error es ErrStorage.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsSystemRole verifica si el error es ErrSystemRole.
func IsSystemRole(err error) bool {
	return errors.Is(err, ErrSystemRole)
}

// IsRoleInUse verifica si el error es ErrRoleInUse.
func IsRoleInUse(err error) bool {
	return errors.Is(err, ErrRoleInUse)
}
