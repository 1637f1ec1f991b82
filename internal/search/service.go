package search

import (
	"context"
	"strings"
	"time"

	"jewgo-discovery/internal/geo"
	"jewgo-discovery/internal/hours"
	"jewgo-discovery/internal/models"
	"jewgo-discovery/internal/pager"
	"jewgo-discovery/internal/repositories"
	"jewgo-discovery/internal/validators"
	"jewgo-discovery/pkg/cache"
	"jewgo-discovery/pkg/logger"
	"jewgo-discovery/pkg/metrics"
)

// PageCache is the slice of the cache the search path needs. Satisfied by
// *cache.Cache; faked in tests.
type PageCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTags(ctx context.Context, key string, value interface{}, expiration time.Duration, tags []string) error
	InvalidateTag(ctx context.Context, tag string) error
}

// Broadcaster pushes events to rooms. Satisfied by *hub.Hub.
type Broadcaster interface {
	PublishRoom(room string, event models.Event)
	PublishCell(cell string, event models.Event)
}

// Service composes the geo index, hours evaluator, cache, and pager into the
// listing-search path: validate, normalize, tiered lookup, page assembly,
// cursor issue, background prefetch.
type Service struct {
	repo       repositories.ListingRepository
	cache      PageCache
	geoIndex   *geo.Index
	hours      *hours.Evaluator
	validator  validators.SearchValidator
	prefetcher *pager.Prefetcher
	hub        Broadcaster

	defaultPageSize int
	maxPageSize     int
	cacheTTL        time.Duration
	cursorTTL       time.Duration

	now func() time.Time
}

func NewService(
	repo repositories.ListingRepository,
	pageCache PageCache,
	geoIndex *geo.Index,
	evaluator *hours.Evaluator,
	validator validators.SearchValidator,
	prefetcher *pager.Prefetcher,
	hub Broadcaster,
	defaultPageSize, maxPageSize int,
	cacheTTL, cursorTTL time.Duration,
) *Service {
	return &Service{
		repo:            repo,
		cache:           pageCache,
		geoIndex:        geoIndex,
		hours:           evaluator,
		validator:       validator,
		prefetcher:      prefetcher,
		hub:             hub,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		cacheTTL:        cacheTTL,
		cursorTTL:       cursorTTL,
		now:             time.Now,
	}
}

// Bootstrap loads every listing and rebuilds the geo index. Called at
// startup and whenever a full refresh is required.
func (s *Service) Bootstrap(ctx context.Context) error {
	listings, err := s.repo.FindAll(ctx)
	if err != nil {
		return err
	}
	s.geoIndex.Rebuild(listings)
	logger.GlobalLogger.Printf("Geo index rebuilt with %d listings", len(listings))
	return nil
}

// Search serves one page for a filter. Cache failures degrade to direct
// computation; only an unavailable geo index fails the request outright.
func (s *Service) Search(ctx context.Context, filter models.SearchFilter) (*models.SearchResponse, error) {
	if err := s.validator.ValidateFilter(&filter, s.maxPageSize); err != nil {
		return nil, err
	}
	f := Normalize(filter, s.defaultPageSize)
	sig := Signature(f)

	var cur *pager.Cursor
	if f.Cursor != "" {
		c, err := pager.Decode(f.Cursor, sig, s.cursorTTL, s.now())
		if err != nil {
			return nil, err
		}
		cur = c
	}
	offset := 0
	if cur != nil {
		offset = cur.Offset
	}

	key := cache.SearchPageKey(sig, offset)
	degraded := false

	var page models.SearchPage
	found, err := s.cache.Get(ctx, key, &page)
	if err != nil {
		degraded = true
		metrics.CacheDegradedTotal.Inc()
		logger.GlobalLogger.Errorf("cache read degraded for key %s: %v", key, err)
	}
	if found && !degraded {
		metrics.CacheHitsTotal.Inc()
		s.schedulePrefetch(f, sig, &page, cur != nil)
		return s.buildResponse(&page, sig, models.FreshnessHit), nil
	}
	metrics.CacheMissesTotal.Inc()

	computed, err := s.computePage(ctx, f, cur, offset)
	if err != nil {
		return nil, err
	}

	if !degraded {
		if err := s.storePage(ctx, sig, computed); err != nil {
			degraded = true
			metrics.CacheDegradedTotal.Inc()
			logger.GlobalLogger.Errorf("cache write degraded for key %s: %v", key, err)
		}
	}

	freshness := models.FreshnessMiss
	if degraded {
		freshness = models.FreshnessDegraded
	}
	s.schedulePrefetch(f, sig, computed, cur != nil)
	return s.buildResponse(computed, sig, freshness), nil
}

// computePage runs the full pipeline against the index: radius query,
// predicate filtering, keyset cut, page slice.
func (s *Service) computePage(ctx context.Context, f models.SearchFilter, cur *pager.Cursor, offset int) (*models.SearchPage, error) {
	var candidates []models.SearchResult
	var err error
	if f.Origin != nil {
		candidates, err = s.geoIndex.Query(*f.Origin, f.RadiusMeters, 0)
	} else {
		var ids []string
		ids, err = s.geoIndex.AllIDs()
		for _, id := range ids {
			candidates = append(candidates, models.SearchResult{ListingID: id})
		}
	}
	if err != nil {
		return nil, err
	}

	matched, err := s.applyPredicates(ctx, f, candidates)
	if err != nil {
		return nil, err
	}
	total := int64(len(matched))

	remaining := matched
	if cur != nil {
		remaining = cutAfterKeyset(matched, cur.LastDistance, cur.LastID)
	}

	results := remaining
	if len(results) > f.PageSize {
		results = results[:f.PageSize]
	}

	page := &models.SearchPage{
		Results: results,
		Total:   total,
		Offset:  offset,
	}
	if len(results) > 0 {
		last := results[len(results)-1]
		page.LastDistance = last.DistanceMeters
		page.LastID = last.ListingID
	}
	return page, nil
}

// applyPredicates filters candidates by category, free text, and open-now.
// Listings with unknown hours are excluded from open-now results rather than
// defaulting to open or closed.
func (s *Service) applyPredicates(ctx context.Context, f models.SearchFilter, candidates []models.SearchResult) ([]models.SearchResult, error) {
	if f.Category == "" && f.Query == "" && !f.OpenNow {
		return candidates, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ListingID
	}
	listings, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Listing, len(listings))
	for i := range listings {
		byID[listings[i].ID] = &listings[i]
	}

	at := s.now()
	matched := make([]models.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		l, ok := byID[c.ListingID]
		if !ok {
			continue
		}
		if f.Category != "" && strings.ToLower(l.Category) != f.Category {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(l.Name), f.Query) {
			continue
		}
		if f.OpenNow {
			open, known := s.hours.IsOpenAt(l, at)
			if !known || !open {
				continue
			}
		}
		matched = append(matched, c)
	}
	return matched, nil
}

// cutAfterKeyset drops everything at or before the (distance, id) position
// the cursor recorded.
func cutAfterKeyset(results []models.SearchResult, lastDistance float64, lastID string) []models.SearchResult {
	for i, r := range results {
		if r.DistanceMeters > lastDistance ||
			(r.DistanceMeters == lastDistance && r.ListingID > lastID) {
			return results[i:]
		}
	}
	return nil
}

// storePage writes a page to the cache tagged by every listing and cell it
// contains, so a single listing change invalidates exactly the affected
// entries.
func (s *Service) storePage(ctx context.Context, sig string, page *models.SearchPage) error {
	key := cache.SearchPageKey(sig, page.Offset)
	tagSet := make(map[string]struct{})
	for _, r := range page.Results {
		tagSet[cache.ListingTagKey(r.ListingID)] = struct{}{}
		if cell, ok := s.geoIndex.CellOf(r.ListingID); ok {
			tagSet[cache.CellTagKey(cell)] = struct{}{}
		}
	}
	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	return s.cache.SetWithTags(ctx, key, page, s.cacheTTL, tags)
}

func (s *Service) buildResponse(page *models.SearchPage, sig string, freshness models.Freshness) *models.SearchResponse {
	resp := &models.SearchResponse{
		Results:   page.Results,
		Total:     page.Total,
		Freshness: freshness,
	}
	if int64(page.Offset+len(page.Results)) < page.Total && len(page.Results) > 0 {
		token := pager.Encode(pager.Cursor{
			Signature:    sig,
			LastDistance: page.LastDistance,
			LastID:       page.LastID,
			Offset:       page.Offset + len(page.Results),
			IssuedAt:     s.now(),
		})
		resp.NextCursor = &token
	}
	return resp
}

// schedulePrefetch queues background computation of the following page under
// the pager's cooldown and dedupe guards.
func (s *Service) schedulePrefetch(f models.SearchFilter, sig string, page *models.SearchPage, consumed bool) {
	if s.prefetcher == nil || len(page.Results) == 0 {
		return
	}
	nextOffset := page.Offset + len(page.Results)
	lastDistance := page.LastDistance
	lastID := page.LastID
	s.prefetcher.Schedule(nil, sig, nextOffset, page.Total, consumed, func(ctx context.Context) {
		cur := &pager.Cursor{
			Signature:    sig,
			LastDistance: lastDistance,
			LastID:       lastID,
			Offset:       nextOffset,
			IssuedAt:     s.now(),
		}
		next, err := s.computePage(ctx, f, cur, nextOffset)
		if err != nil {
			logger.GlobalLogger.Errorf("prefetch compute failed for %s offset %d: %v", sig, nextOffset, err)
			return
		}
		if err := s.storePage(ctx, sig, next); err != nil {
			logger.GlobalLogger.Errorf("prefetch store failed for %s offset %d: %v", sig, nextOffset, err)
		}
	})
}

// WarmFilter computes and stores the first page for a hot filter signature,
// refreshing its TTL regardless of cache state.
func (s *Service) WarmFilter(ctx context.Context, filter models.SearchFilter) error {
	f := Normalize(filter, s.defaultPageSize)
	sig := Signature(f)
	page, err := s.computePage(ctx, f, nil, 0)
	if err != nil {
		return err
	}
	return s.storePage(ctx, sig, page)
}

// ListingChanged handles a change notification from the CRUD layer: refresh
// the index entry, invalidate the affected cache tags, and broadcast to the
// rooms covering the listing's cell(s).
func (s *Service) ListingChanged(ctx context.Context, change models.ListingChange) error {
	prevCell, hadCell := s.geoIndex.CellOf(change.ListingID)

	var listing *models.Listing
	if change.Kind != models.ChangeDeleted {
		l, err := s.repo.FindByID(ctx, change.ListingID)
		if err != nil {
			return err
		}
		listing = l
	}

	switch change.Kind {
	case models.ChangeDeleted:
		s.geoIndex.Remove(change.ListingID)
	case models.ChangeGeometry:
		if listing.Location != nil {
			s.geoIndex.Upsert(change.ListingID, *listing.Location)
		} else {
			s.geoIndex.Remove(change.ListingID)
		}
	}

	cells := make(map[string]struct{})
	if hadCell {
		cells[prevCell] = struct{}{}
	}
	if listing != nil && listing.Location != nil {
		cells[geo.Cell(*listing.Location)] = struct{}{}
	}

	tags := []string{cache.ListingTagKey(change.ListingID)}
	for cell := range cells {
		tags = append(tags, cache.CellTagKey(cell))
	}
	for _, tag := range tags {
		if err := s.cache.InvalidateTag(ctx, tag); err != nil {
			metrics.CacheDegradedTotal.Inc()
			logger.GlobalLogger.Errorf("invalidation degraded for tag %s: %v", tag, err)
		}
	}

	if s.hub != nil {
		event := models.Event{
			Type: models.MessageFilterResultChanged,
			Data: models.FilterResultEvent{
				ListingID: change.ListingID,
				Kind:      change.Kind,
			},
			SentAt: s.now(),
		}
		for cell := range cells {
			s.hub.PublishCell(cell, event)
		}
	}
	return nil
}

// GetListing resolves a single listing, for callers assembling detail views.
// The detail entry is tagged with the listing's own tag, so the change path
// invalidates it alongside any result pages containing the listing.
func (s *Service) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	key := cache.ListingKey(id)
	var cached models.Listing
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetWithTags(ctx, key, listing, s.cacheTTL, []string{cache.ListingTagKey(id)}); err != nil {
		metrics.CacheDegradedTotal.Inc()
		logger.GlobalLogger.Errorf("cache write degraded for key %s: %v", key, err)
	}
	return listing, nil
}
