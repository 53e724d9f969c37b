package admin

import (
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
)

// mapError traduce errores de dominio a errores HTTP.
// Lo que no reconoce termina en 500 genérico, conservando la causa.
func mapError(err error) *httperrors.AppError {
	switch {
	case repository.IsUnknownRole(err):
		return httperrors.ErrRoleNotFound.WithCause(err)
	case repository.IsCyclicRole(err):
		return httperrors.ErrCyclicRole.WithDetail(err.Error())
	case repository.IsInvalidExpiry(err):
		return httperrors.ErrInvalidExpiry.WithDetail(err.Error())
	case repository.IsSystemRole(err):
		return httperrors.ErrSystemRole.WithCause(err)
	case repository.IsRoleInUse(err):
		return httperrors.ErrRoleInUse.WithDetail(err.Error())
	case repository.IsAuditWrite(err):
		return httperrors.ErrAuditWrite.WithCause(err)
	case repository.IsNotFound(err):
		return httperrors.ErrNotFound.WithCause(err)
	case repository.IsStorage(err):
		return httperrors.ErrStorageUnavailable.WithCause(err)
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
