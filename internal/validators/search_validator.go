package validators

import (
	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/geo"
	"jewgo-discovery/internal/models"
)

// SearchValidator rejects malformed filters before they touch the cache or
// the index.
type SearchValidator interface {
	ValidateFilter(f *models.SearchFilter, maxPageSize int) error
}

type searchValidator struct{}

func NewSearchValidator() SearchValidator {
	return &searchValidator{}
}

func (v *searchValidator) ValidateFilter(f *models.SearchFilter, maxPageSize int) error {
	if f.Origin != nil {
		if err := geo.ValidatePoint(*f.Origin); err != nil {
			return err
		}
		if err := geo.ValidateRadius(f.RadiusMeters); err != nil {
			return err
		}
	}
	if f.PageSize < 0 {
		return apperrors.NewValidationError("page_size", "page size must not be negative")
	}
	if f.PageSize > maxPageSize {
		return apperrors.NewValidationError("page_size", "page size exceeds the allowed maximum")
	}
	return nil
}
