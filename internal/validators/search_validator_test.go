package validators

import (
	"testing"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilter(t *testing.T) {
	v := NewSearchValidator()

	valid := &models.SearchFilter{
		Origin:       &models.GeoPoint{Lat: 40.7128, Lon: -74.0060},
		RadiusMeters: 2000,
		PageSize:     20,
	}
	assert.NoError(t, v.ValidateFilter(valid, 100))

	// No origin means no radius requirement.
	assert.NoError(t, v.ValidateFilter(&models.SearchFilter{PageSize: 20}, 100))
}

func TestValidateFilterRejections(t *testing.T) {
	v := NewSearchValidator()
	var verr *apperrors.ValidationError

	cases := map[string]*models.SearchFilter{
		"latitude out of range":  {Origin: &models.GeoPoint{Lat: 90.1, Lon: 0}, RadiusMeters: 100},
		"longitude out of range": {Origin: &models.GeoPoint{Lat: 0, Lon: -180.1}, RadiusMeters: 100},
		"zero radius":            {Origin: &models.GeoPoint{Lat: 0, Lon: 0}},
		"negative radius":        {Origin: &models.GeoPoint{Lat: 0, Lon: 0}, RadiusMeters: -1},
		"negative page size":     {PageSize: -1},
		"page size above max":    {PageSize: 101},
	}
	for name, f := range cases {
		err := v.ValidateFilter(f, 100)
		require.ErrorAs(t, err, &verr, name)
	}
}
