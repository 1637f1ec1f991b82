package geo

import (
	"math"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"
)

const earthRadiusMeters = 6371000.0

// Haversine computes the great-circle distance in meters between two points.
// This is always the final distance; the cell index only narrows candidates.
func Haversine(a, b models.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// ValidatePoint rejects coordinates outside the WGS 84 range.
func ValidatePoint(p models.GeoPoint) error {
	if p.Lat < -90 || p.Lat > 90 {
		return apperrors.NewValidationError("origin", "latitude must be between -90 and 90")
	}
	if p.Lon < -180 || p.Lon > 180 {
		return apperrors.NewValidationError("origin", "longitude must be between -180 and 180")
	}
	return nil
}

// ValidateRadius rejects non-positive radii.
func ValidateRadius(radiusMeters float64) error {
	if radiusMeters <= 0 {
		return apperrors.NewValidationError("radius", "radius must be greater than zero meters")
	}
	return nil
}
