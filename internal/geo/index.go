package geo

import (
	"math"
	"sort"
	"sync"
	"time"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/models"
	"jewgo-discovery/pkg/metrics"

	"github.com/mmcloughlin/geohash"
)

// CellPrecision is the geohash length used for index buckets, room keys, and
// cache invalidation tags. Precision 5 cells are roughly 4.9 km on a side.
const CellPrecision = 5

// Cell dimensions in degrees at CellPrecision (12 latitude bits, 13
// longitude bits of a 25-bit geohash).
const (
	cellHeightDeg = 180.0 / 4096.0
	cellWidthDeg  = 360.0 / 8192.0
)

// Cell returns the geohash cell id for a point.
func Cell(p models.GeoPoint) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lon, CellPrecision)
}

// Index answers radius and nearest-neighbor queries over listing points.
// Points are bucketed by geohash cell; queries expand the covering cells and
// compute precise distances per candidate. Reads are safe for unrestricted
// concurrent access; updates arrive from listing-change notifications.
type Index struct {
	mu    sync.RWMutex
	cells map[string]map[string]models.GeoPoint
	byID  map[string]string
	ready bool
}

func NewIndex() *Index {
	return &Index{
		cells: make(map[string]map[string]models.GeoPoint),
		byID:  make(map[string]string),
	}
}

// Rebuild replaces the entire index contents. Listings without a location
// are skipped.
func (idx *Index) Rebuild(listings []models.Listing) {
	cells := make(map[string]map[string]models.GeoPoint)
	byID := make(map[string]string)
	for _, l := range listings {
		if l.Location == nil {
			continue
		}
		cell := Cell(*l.Location)
		if cells[cell] == nil {
			cells[cell] = make(map[string]models.GeoPoint)
		}
		cells[cell][l.ID] = *l.Location
		byID[l.ID] = cell
	}

	idx.mu.Lock()
	idx.cells = cells
	idx.byID = byID
	idx.ready = true
	idx.mu.Unlock()
}

// Upsert inserts or moves a listing's point.
func (idx *Index) Upsert(id string, p models.GeoPoint) {
	cell := Cell(p)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if old, ok := idx.byID[id]; ok && old != cell {
		delete(idx.cells[old], id)
		if len(idx.cells[old]) == 0 {
			delete(idx.cells, old)
		}
	}
	if idx.cells[cell] == nil {
		idx.cells[cell] = make(map[string]models.GeoPoint)
	}
	idx.cells[cell][id] = p
	idx.byID[id] = cell
}

// Remove drops a listing from the index. Removing an absent id is a no-op.
func (idx *Index) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	cell, ok := idx.byID[id]
	if !ok {
		return
	}
	delete(idx.cells[cell], id)
	if len(idx.cells[cell]) == 0 {
		delete(idx.cells, cell)
	}
	delete(idx.byID, id)
}

// CellOf returns the cell currently holding a listing, if indexed.
func (idx *Index) CellOf(id string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	cell, ok := idx.byID[id]
	return cell, ok
}

// IDsInCell returns the listing ids bucketed in a cell, sorted.
func (idx *Index) IDsInCell(cell string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.cells[cell]))
	for id := range idx.cells[cell] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AllIDs returns every indexed listing id, sorted for determinism.
func (idx *Index) AllIDs() ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.ready {
		return nil, apperrors.ErrIndexUnavailable
	}
	ids := make([]string, 0, len(idx.byID))
	for id := range idx.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Query returns every listing within radiusMeters of origin, ordered
// ascending by distance with ties broken by listing id. limit <= 0 means
// unbounded.
func (idx *Index) Query(origin models.GeoPoint, radiusMeters float64, limit int) ([]models.SearchResult, error) {
	if err := ValidatePoint(origin); err != nil {
		return nil, err
	}
	if err := ValidateRadius(radiusMeters); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.GeoQueryDuration.Observe(time.Since(start).Seconds())
	}()

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.ready {
		return nil, apperrors.ErrIndexUnavailable
	}

	results := make([]models.SearchResult, 0)
	for _, cell := range coveringCells(origin, radiusMeters) {
		for id, p := range idx.cells[cell] {
			d := Haversine(origin, p)
			if d <= radiusMeters {
				results = append(results, models.SearchResult{ListingID: id, DistanceMeters: d})
			}
		}
	}

	sortResults(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Nearest returns at most n listings closest to origin.
func (idx *Index) Nearest(origin models.GeoPoint, n int) ([]models.SearchResult, error) {
	if err := ValidatePoint(origin); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, apperrors.NewValidationError("n", "nearest count must be greater than zero")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.ready {
		return nil, apperrors.ErrIndexUnavailable
	}

	results := make([]models.SearchResult, 0, len(idx.byID))
	for cell := range idx.cells {
		for id, p := range idx.cells[cell] {
			results = append(results, models.SearchResult{ListingID: id, DistanceMeters: Haversine(origin, p)})
		}
	}

	sortResults(results)
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

func sortResults(results []models.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceMeters != results[j].DistanceMeters {
			return results[i].DistanceMeters < results[j].DistanceMeters
		}
		return results[i].ListingID < results[j].ListingID
	})
}

// coveringCells enumerates the geohash cells intersecting the bounding box
// of the radius around origin. Duplicates near the poles collapse in the map.
func coveringCells(origin models.GeoPoint, radiusMeters float64) []string {
	latDelta := radiusMeters / 111320.0
	cosLat := math.Cos(origin.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := radiusMeters / (111320.0 * cosLat)

	seen := make(map[string]struct{})
	cells := make([]string, 0)
	for lat := origin.Lat - latDelta; lat <= origin.Lat+latDelta+cellHeightDeg; lat += cellHeightDeg {
		for lon := origin.Lon - lonDelta; lon <= origin.Lon+lonDelta+cellWidthDeg; lon += cellWidthDeg {
			cell := geohash.EncodeWithPrecision(clampLat(lat), wrapLon(lon), CellPrecision)
			if _, ok := seen[cell]; !ok {
				seen[cell] = struct{}{}
				cells = append(cells, cell)
			}
		}
	}
	return cells
}

func clampLat(lat float64) float64 {
	if lat > 90 {
		return 90
	}
	if lat < -90 {
		return -90
	}
	return lat
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
