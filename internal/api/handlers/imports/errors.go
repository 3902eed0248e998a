package imports

import (
	"errors"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
	apperrors "github.com/SupernovaIndustries/supernova-management-software-sub006/server/errors"
)

// toAppError переводит доменные ошибки в HTTP ошибки
func toAppError(err error, operation string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var incomplete *domain.MappingIncompleteError
	switch {
	case errors.As(err, &incomplete):
		return apperrors.NewUnprocessableError(incomplete.Error(), err).WithContext(operation)
	case errors.Is(err, domain.ErrJobNotFound):
		return apperrors.NewNotFoundError("import job not found", err).WithContext(operation)
	case errors.Is(err, domain.ErrInvalidSupplier),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrEmptySource),
		errors.Is(err, domain.ErrInvalidMappingField):
		return apperrors.NewValidationError(err.Error(), err).WithContext(operation)
	case errors.Is(err, domain.ErrDuplicateMapping),
		errors.Is(err, domain.ErrJobTerminal),
		errors.Is(err, domain.ErrJobNotClaimable):
		return apperrors.NewConflictError(err.Error(), err).WithContext(operation)
	default:
		return apperrors.NewInternalError(operation, err)
	}
}
