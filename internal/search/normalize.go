package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"jewgo-discovery/internal/geo"
	"jewgo-discovery/internal/models"
)

// originPrecision is the number of decimal places origins are rounded to
// before hashing, so float noise between equivalent requests cannot fragment
// the cache. Four decimals is roughly 11 meters.
const originPrecision = 4

// Normalize canonicalizes a filter so equivalent requests share cache keys,
// cursors, and rooms.
func Normalize(f models.SearchFilter, defaultPageSize int) models.SearchFilter {
	out := f
	if out.Origin != nil {
		out.Origin = &models.GeoPoint{
			Lat: roundCoord(out.Origin.Lat),
			Lon: roundCoord(out.Origin.Lon),
		}
		out.RadiusMeters = math.Round(out.RadiusMeters)
	} else {
		out.RadiusMeters = 0
	}
	out.Query = strings.ToLower(strings.TrimSpace(out.Query))
	out.Category = strings.ToLower(strings.TrimSpace(out.Category))
	if out.PageSize == 0 {
		out.PageSize = defaultPageSize
	}
	return out
}

func roundCoord(v float64) float64 {
	scale := math.Pow10(originPrecision)
	return math.Round(v*scale) / scale
}

// Signature hashes the normalized filter fields (never the cursor) into the
// deterministic key that cache entries, cursors, and rooms are bound to.
func Signature(f models.SearchFilter) string {
	lat, lon := "", ""
	if f.Origin != nil {
		lat = fmt.Sprintf("%.4f", f.Origin.Lat)
		lon = fmt.Sprintf("%.4f", f.Origin.Lon)
	}
	raw := fmt.Sprintf("lat=%s|lon=%s|r=%.0f|open=%t|q=%s|cat=%s|ps=%d",
		lat, lon, f.RadiusMeters, f.OpenNow, f.Query, f.Category, f.PageSize)

	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}

// RoomKey derives the broadcast room for a filter: the origin's geographic
// cell plus category and open-now flag. Rooms are per-cell, not per-listing,
// to bound fan-out cost.
func RoomKey(f models.SearchFilter) string {
	cell := ""
	if f.Origin != nil {
		cell = geo.Cell(*f.Origin)
	}
	return fmt.Sprintf("%s|%s|%t", cell, f.Category, f.OpenNow)
}

// CellOfRoom extracts the geographic cell component from a room key.
func CellOfRoom(room string) string {
	if i := strings.IndexByte(room, '|'); i >= 0 {
		return room[:i]
	}
	return room
}
