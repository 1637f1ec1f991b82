package models

// SearchFilter carries every predicate of a listing search. Two filters that
// normalize identically share cache keys, cursors, and rooms.
type SearchFilter struct {
	Origin       *GeoPoint `json:"origin,omitempty" form:"-"`
	RadiusMeters float64   `json:"radius_meters" form:"radius"`
	OpenNow      bool      `json:"open_now" form:"open_now"`
	Query        string    `json:"q" form:"q"`
	Category     string    `json:"category" form:"category"`
	PageSize     int       `json:"page_size" form:"page_size"`
	Cursor       string    `json:"cursor" form:"cursor"`
}

// SearchResult is one row of a result page, ordered by (distance, id).
type SearchResult struct {
	ListingID      string  `json:"listing_id"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Freshness tags which tier served a search, so callers and tests can tell
// a cache hit from a computed or degraded response.
type Freshness string

const (
	FreshnessHit      Freshness = "hit"
	FreshnessMiss     Freshness = "miss"
	FreshnessDegraded Freshness = "degraded"
)

// SearchPage is the cacheable unit: one page plus the totals needed to build
// the next cursor without recomputing.
type SearchPage struct {
	Results      []SearchResult `json:"results"`
	Total        int64          `json:"total"`
	Offset       int            `json:"offset"`
	LastDistance float64        `json:"last_distance"`
	LastID       string         `json:"last_id"`
}

// SearchResponse is what the query interface returns to the caller.
type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	NextCursor *string        `json:"next_cursor,omitempty"`
	Total      int64          `json:"total"`
	Freshness  Freshness      `json:"freshness"`
}
