package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	apperrors "jewgo-discovery/internal/errors"
	"jewgo-discovery/internal/geo"
	"jewgo-discovery/internal/hours"
	"jewgo-discovery/internal/models"
	"jewgo-discovery/internal/pager"
	"jewgo-discovery/internal/validators"
	"jewgo-discovery/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger(io.Discard, "ERROR")
	m.Run()
}

type fakeRepo struct {
	mu       sync.Mutex
	listings map[string]models.Listing
}

func newFakeRepo(listings ...models.Listing) *fakeRepo {
	r := &fakeRepo{listings: make(map[string]models.Listing)}
	for _, l := range listings {
		r.listings[l.ID] = l
	}
	return r
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, apperrors.ErrListingNotFound
	}
	return &l, nil
}

func (r *fakeRepo) FindByIDs(_ context.Context, ids []string) ([]models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.listings[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindAll(_ context.Context) ([]models.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		out = append(out, l)
	}
	return out, nil
}

type fakePageCache struct {
	mu    sync.Mutex
	pages map[string][]byte
	tags  map[string]map[string]struct{}

	failGet bool
	failSet bool

	invalidated []string
}

func newFakePageCache() *fakePageCache {
	return &fakePageCache{
		pages: make(map[string][]byte),
		tags:  make(map[string]map[string]struct{}),
	}
}

func (c *fakePageCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return false, errors.New("redis unreachable")
	}
	data, ok := c.pages[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *fakePageCache) SetWithTags(_ context.Context, key string, value interface{}, _ time.Duration, tags []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("redis unreachable")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.pages[key] = data
	for _, tag := range tags {
		if c.tags[tag] == nil {
			c.tags[tag] = make(map[string]struct{})
		}
		c.tags[tag][key] = struct{}{}
	}
	return nil
}

func (c *fakePageCache) InvalidateTag(_ context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, tag)
	for key := range c.tags[tag] {
		delete(c.pages, key)
	}
	delete(c.tags, tag)
	return nil
}

func (c *fakePageCache) pageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

type fakeHub struct {
	mu    sync.Mutex
	cells []string
	types []string
}

func (h *fakeHub) PublishRoom(_ string, _ models.Event) {}

func (h *fakeHub) PublishCell(cell string, event models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cells = append(h.cells, cell)
	h.types = append(h.types, event.Type)
}

var testOrigin = models.GeoPoint{Lat: 40.7128, Lon: -74.0060}

func northOf(meters float64) *models.GeoPoint {
	return &models.GeoPoint{Lat: testOrigin.Lat + meters/111320.0, Lon: testOrigin.Lon}
}

func openAllWeek() *models.WeeklyHours {
	open, close := "00:00", "23:59"
	var weekly models.WeeklyHours
	for i := range weekly {
		weekly[i] = models.DayHours{Open: &open, Close: &close}
	}
	return &weekly
}

func closedAllWeek() *models.WeeklyHours {
	var weekly models.WeeklyHours
	for i := range weekly {
		weekly[i] = models.DayHours{Closed: true}
	}
	return &weekly
}

type serviceFixture struct {
	service *Service
	repo    *fakeRepo
	cache   *fakePageCache
	hub     *fakeHub
}

func newFixture(t *testing.T, prefetcher *pager.Prefetcher, listings ...models.Listing) *serviceFixture {
	t.Helper()
	repo := newFakeRepo(listings...)
	pageCache := newFakePageCache()
	hub := &fakeHub{}

	idx := geo.NewIndex()
	idx.Rebuild(listings)

	svc := NewService(
		repo,
		pageCache,
		idx,
		hours.NewEvaluator(),
		validators.NewSearchValidator(),
		prefetcher,
		hub,
		20, 100,
		5*time.Minute, 15*time.Minute,
	)
	// Pin the clock: noon in New York, so open-now checks are deterministic.
	svc.now = func() time.Time { return time.Date(2026, time.March, 4, 17, 0, 0, 0, time.UTC) }
	return &serviceFixture{service: svc, repo: repo, cache: pageCache, hub: hub}
}

func defaultListings() []models.Listing {
	return []models.Listing{
		{ID: "a", Name: "Alpha Deli", Category: "restaurant", Location: northOf(100), Hours: openAllWeek(), Timezone: "America/New_York"},
		{ID: "b", Name: "Beth Shalom", Category: "synagogue", Location: northOf(200), Hours: openAllWeek(), Timezone: "America/New_York"},
		{ID: "c", Name: "Carmel Market", Category: "marketplace", Location: northOf(300), Hours: closedAllWeek(), Timezone: "America/New_York"},
		{ID: "d", Name: "Dov's Bagels", Category: "restaurant", Location: northOf(400)},
		{ID: "e", Name: "Etz Chaim", Category: "synagogue", Location: northOf(500), Hours: openAllWeek(), Timezone: "America/New_York"},
	}
}

func radiusFilter(pageSize int) models.SearchFilter {
	return models.SearchFilter{
		Origin:       &testOrigin,
		RadiusMeters: 2000,
		PageSize:     pageSize,
	}
}

func TestSearchPagesHaveNoOverlapOrGap(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()

	seen := make(map[string]bool)
	var cursor string
	var pages int
	for {
		f := radiusFilter(2)
		f.Cursor = cursor
		resp, err := fx.service.Search(ctx, f)
		require.NoError(t, err)
		require.Equal(t, int64(5), resp.Total)

		for _, r := range resp.Results {
			require.False(t, seen[r.ListingID], "listing %s appeared twice", r.ListingID)
			seen[r.ListingID] = true
		}
		pages++

		if resp.NextCursor == nil {
			break
		}
		cursor = *resp.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)
}

func TestSearchOrdersByDistance(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)

	resp, err := fx.service.Search(context.Background(), radiusFilter(10))
	require.NoError(t, err)
	require.Len(t, resp.Results, 5)

	ids := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		ids[i] = r.ListingID
		if i > 0 {
			assert.GreaterOrEqual(t, r.DistanceMeters, resp.Results[i-1].DistanceMeters)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Nil(t, resp.NextCursor)
}

func TestSearchCacheHit(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()

	first, err := fx.service.Search(ctx, radiusFilter(10))
	require.NoError(t, err)
	assert.Equal(t, models.FreshnessMiss, first.Freshness)

	second, err := fx.service.Search(ctx, radiusFilter(10))
	require.NoError(t, err)
	assert.Equal(t, models.FreshnessHit, second.Freshness)
	assert.Equal(t, first.Results, second.Results)
}

func TestSearchDegradesWhenCacheUnavailable(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	fx.cache.failGet = true
	fx.cache.failSet = true

	resp, err := fx.service.Search(context.Background(), radiusFilter(10))
	require.NoError(t, err)
	assert.Equal(t, models.FreshnessDegraded, resp.Freshness)
	require.Len(t, resp.Results, 5)
	assert.Equal(t, "a", resp.Results[0].ListingID)
}

func TestSearchOpenNowExcludesClosedAndUnknown(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)

	f := radiusFilter(10)
	f.OpenNow = true
	resp, err := fx.service.Search(context.Background(), f)
	require.NoError(t, err)

	// "c" is closed all week and "d" has no hours data at all.
	ids := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		ids[i] = r.ListingID
	}
	assert.Equal(t, []string{"a", "b", "e"}, ids)
}

func TestSearchCategoryAndQueryPredicates(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()

	f := radiusFilter(10)
	f.Category = "Synagogue"
	resp, err := fx.service.Search(ctx, f)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "b", resp.Results[0].ListingID)
	assert.Equal(t, "e", resp.Results[1].ListingID)

	f = radiusFilter(10)
	f.Query = "bagels"
	resp, err = fx.service.Search(ctx, f)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "d", resp.Results[0].ListingID)
}

func TestSearchRejectsInvalidFilters(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()
	var verr *apperrors.ValidationError

	f := radiusFilter(10)
	f.RadiusMeters = 0
	_, err := fx.service.Search(ctx, f)
	require.ErrorAs(t, err, &verr)

	f = radiusFilter(10)
	f.Origin = &models.GeoPoint{Lat: 95, Lon: 0}
	_, err = fx.service.Search(ctx, f)
	require.ErrorAs(t, err, &verr)

	f = radiusFilter(500)
	_, err = fx.service.Search(ctx, f)
	require.ErrorAs(t, err, &verr)
}

func TestSearchRejectsForeignAndGarbageCursors(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()
	var cerr *apperrors.CursorInvalidError

	f := radiusFilter(2)
	f.Cursor = "garbage!!"
	_, err := fx.service.Search(ctx, f)
	require.ErrorAs(t, err, &cerr)

	// Cursor issued under a different filter signature.
	resp, err := fx.service.Search(ctx, radiusFilter(2))
	require.NoError(t, err)
	require.NotNil(t, resp.NextCursor)

	g := radiusFilter(2)
	g.Category = "restaurant"
	g.Cursor = *resp.NextCursor
	_, err = fx.service.Search(ctx, g)
	require.ErrorAs(t, err, &cerr)
}

func TestSearchWithoutOriginListsEverything(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)

	resp, err := fx.service.Search(context.Background(), models.SearchFilter{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Total)
	require.Len(t, resp.Results, 5)
	assert.Equal(t, "a", resp.Results[0].ListingID)
}

func TestSearchFailsWhenIndexUnavailable(t *testing.T) {
	repo := newFakeRepo(defaultListings()...)
	svc := NewService(
		repo,
		newFakePageCache(),
		geo.NewIndex(), // never rebuilt
		hours.NewEvaluator(),
		validators.NewSearchValidator(),
		nil,
		&fakeHub{},
		20, 100,
		5*time.Minute, 15*time.Minute,
	)

	_, err := svc.Search(context.Background(), radiusFilter(10))
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)
}

func TestPrefetchStoresFollowingPage(t *testing.T) {
	prefetcher := pager.NewPrefetcher(10 * time.Millisecond)
	defer prefetcher.Stop()

	fx := newFixture(t, prefetcher, defaultListings()...)
	ctx := context.Background()

	// First load: no prefetch, only page 0 in the cache.
	resp, err := fx.service.Search(ctx, radiusFilter(2))
	require.NoError(t, err)
	require.NotNil(t, resp.NextCursor)
	assert.Equal(t, 1, fx.cache.pageCount())

	// Cursor-bearing request: page 1 is served and page 2 is prefetched.
	f := radiusFilter(2)
	f.Cursor = *resp.NextCursor
	resp, err = fx.service.Search(ctx, f)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	require.Eventually(t, func() bool {
		return fx.cache.pageCount() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListingChangedInvalidatesAndBroadcasts(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()

	// Populate the cache, then move listing "a".
	_, err := fx.service.Search(ctx, radiusFilter(10))
	require.NoError(t, err)
	require.Equal(t, 1, fx.cache.pageCount())

	moved := fx.repo.listings["a"]
	moved.Location = northOf(1500)
	fx.repo.listings["a"] = moved

	err = fx.service.ListingChanged(ctx, models.ListingChange{ListingID: "a", Kind: models.ChangeGeometry})
	require.NoError(t, err)

	assert.Zero(t, fx.cache.pageCount())
	assert.NotEmpty(t, fx.hub.cells)
	assert.Contains(t, fx.hub.types, models.MessageFilterResultChanged)

	// The recomputed page reflects the new position.
	resp, err := fx.service.Search(ctx, radiusFilter(10))
	require.NoError(t, err)
	assert.Equal(t, models.FreshnessMiss, resp.Freshness)
	for i, r := range resp.Results {
		if r.ListingID == "a" {
			assert.InDelta(t, 1500, r.DistanceMeters, 10)
			assert.Equal(t, 4, i, "a should now sort last")
		}
	}
}

func TestListingChangedDeletedIsIdempotent(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()

	change := models.ListingChange{ListingID: "e", Kind: models.ChangeDeleted}
	require.NoError(t, fx.service.ListingChanged(ctx, change))
	require.NoError(t, fx.service.ListingChanged(ctx, change))

	resp, err := fx.service.Search(ctx, radiusFilter(10))
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Total)
	for _, r := range resp.Results {
		assert.NotEqual(t, "e", r.ListingID)
	}
}

func TestGetListingCachedAndInvalidated(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()

	listing, err := fx.service.GetListing(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Deli", listing.Name)
	assert.Equal(t, 1, fx.cache.pageCount())

	// Served from cache even after the repo record changes.
	renamed := fx.repo.listings["a"]
	renamed.Name = "Renamed Deli"
	fx.repo.listings["a"] = renamed

	listing, err = fx.service.GetListing(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Deli", listing.Name)

	// The change notification drops the detail entry with the listing tag.
	err = fx.service.ListingChanged(ctx, models.ListingChange{ListingID: "a", Kind: models.ChangeHours})
	require.NoError(t, err)

	listing, err = fx.service.GetListing(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Deli", listing.Name)

	_, err = fx.service.GetListing(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrListingNotFound)
}

func TestWarmFilterPopulatesCache(t *testing.T) {
	fx := newFixture(t, nil, defaultListings()...)
	ctx := context.Background()

	require.NoError(t, fx.service.WarmFilter(ctx, radiusFilter(10)))
	assert.Equal(t, 1, fx.cache.pageCount())

	resp, err := fx.service.Search(ctx, radiusFilter(10))
	require.NoError(t, err)
	assert.Equal(t, models.FreshnessHit, resp.Freshness)
}
