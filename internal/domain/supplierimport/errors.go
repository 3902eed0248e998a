package supplierimport

import (
	"errors"
	"fmt"
	"strings"
)

// Domain-specific errors для supplier import domain
var (
	ErrJobNotFound         = errors.New("import job not found")
	ErrJobTerminal         = errors.New("import job already finished")
	ErrJobNotClaimable     = errors.New("import job is not queued")
	ErrUnsupportedFormat   = errors.New("unsupported source file format")
	ErrEmptySource         = errors.New("source file has no header row")
	ErrInvalidSupplier     = errors.New("invalid supplier identifier")
	ErrComponentNotFound   = errors.New("component not found")
	ErrComponentExists     = errors.New("component with this mpn already exists")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrRateUnavailable     = errors.New("exchange rate unavailable")
	ErrClassifierDisabled  = errors.New("classification backend disabled")
	ErrDuplicateMapping    = errors.New("duplicate active mapping for supplier field")
	ErrInvalidMappingField = errors.New("unknown canonical field")
)

// MappingIncompleteError возвращается, когда обязательные поля не удалось сопоставить с колонками
type MappingIncompleteError struct {
	SupplierID string
	Missing    []string
}

func (e *MappingIncompleteError) Error() string {
	return fmt.Sprintf("mapping for supplier %q is incomplete: missing required fields %s",
		e.SupplierID, strings.Join(e.Missing, ", "))
}

// IsMappingIncomplete проверяет, является ли ошибка MappingIncompleteError
func IsMappingIncomplete(err error) bool {
	var target *MappingIncompleteError
	return errors.As(err, &target)
}
