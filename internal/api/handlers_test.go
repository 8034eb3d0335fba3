package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"listingsite/server/internal/browse"
	"listingsite/server/internal/catalog"
	"listingsite/server/internal/models"
	"listingsite/server/internal/normalizer"
)

type staticProvider struct {
	snapshot catalog.Snapshot
}

func (p *staticProvider) Current() catalog.Snapshot {
	return p.snapshot
}

func (p *staticProvider) Loaded() bool {
	return p.snapshot.Origin != catalog.OriginNone
}

// MockRefresher is a mock implementation of the Refresher interface
type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) RunOnce() catalog.Snapshot {
	args := m.Called()
	return args.Get(0).(catalog.Snapshot)
}

// MockFilters is a mock implementation of the FeaturedFilters interface
type MockFilters struct {
	mock.Mock
}

func (m *MockFilters) Featured() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func (m *MockFilters) SetFeatured(filters []string) error {
	args := m.Called(filters)
	return args.Error(0)
}

func testListings() []models.Listing {
	listings := make([]models.Listing, 0, 35)
	for i := 1; i <= 30; i++ {
		listings = append(listings, models.Listing{Name: fmt.Sprintf("Pool %d", i), Categories: []string{"pool"}})
	}
	for i := 1; i <= 5; i++ {
		listings = append(listings, models.Listing{Name: fmt.Sprintf("Sea %d", i), Categories: []string{"sea view"}})
	}
	return listings
}

func setupRouter(t *testing.T) (*gin.Engine, *MockRefresher, *MockFilters) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := &staticProvider{snapshot: catalog.Snapshot{Listings: testListings(), Origin: catalog.OriginRemote}}
	refresher := &MockRefresher{}
	filters := &MockFilters{}
	filters.On("Featured").Return([]string{"Sea View", "Fireplace"}).Maybe()

	handler := NewHandler(provider, refresher, filters, browse.NewEngine(12), NewHero("/img/hero.jpg"), logrus.New())
	return NewRouter(handler, []string{"*"}), refresher, filters
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) browse.View {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view browse.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"listing_count":35`)
	assert.Contains(t, w.Body.String(), `"origin":"remote"`)
}

func TestHealthCheck_BeforeFirstLoad(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(&staticProvider{}, &MockRefresher{}, &MockFilters{}, browse.NewEngine(12), NewHero(""), logrus.New())
	router := NewRouter(handler, nil)

	w := doRequest(router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"loading"`)
}

func TestNewHero_DefaultImage(t *testing.T) {
	assert.Equal(t, DefaultHeroImage, NewHero("").Image)
	assert.Equal(t, "/custom.png", NewHero("/custom.png").Image)
}

func TestGetListings_NaNRatingNormalizedAway(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var good, bad models.RawListingRecord
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Good","acf":{"rating":"4"}}`), &good))
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Bad","acf":{"rating":"NaN"}}`), &bad))

	listings := normalizer.NewNormalizer(normalizer.Options{}, logrus.New()).NormalizeAll([]models.RawListingRecord{good, bad})
	provider := &staticProvider{snapshot: catalog.Snapshot{Listings: listings, Origin: catalog.OriginRemote}}
	filters := &MockFilters{}
	filters.On("Featured").Return([]string{}).Maybe()
	router := NewRouter(NewHandler(provider, &MockRefresher{}, filters, browse.NewEngine(12), NewHero(""), logrus.New()), nil)

	for _, path := range []string{"/api/listings", "/api/page", "/api/browse"} {
		w := doRequest(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"Good"`, path)
		assert.Contains(t, w.Body.String(), `"Bad"`, path)
	}
}

func TestGetListings(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/listings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listings []models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listings))
	assert.Len(t, listings, 35)
	assert.Equal(t, "Pool 1", listings[0].Name)
}

func TestGetPage(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/page", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page PageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))

	assert.Equal(t, "Find your favorite place here!", page.Hero.Title)
	assert.Equal(t, "/img/hero.jpg", page.Hero.Image)
	assert.Len(t, page.Browse.Listings, 12)
	assert.True(t, page.Browse.HasMore)
	assert.Equal(t, 35, page.Browse.Total)
	assert.Equal(t, 12, page.Browse.State.VisibleCount)

	require.Len(t, page.Filters.Featured, 2)
	assert.Equal(t, FilterChip{Label: "Sea View", Tag: "sea view", Count: 5}, page.Filters.Featured[0])
	assert.Equal(t, FilterChip{Label: "Fireplace", Tag: "fireplace", Count: 0}, page.Filters.Featured[1])
	assert.Equal(t, []FilterChip{
		{Label: "pool", Tag: "pool", Count: 30},
		{Label: "sea view", Tag: "sea view", Count: 5},
	}, page.Filters.Available)
}

func TestGetFilters_MarksActive(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/filters?filter=pool", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var bar FilterBar
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bar))
	require.Len(t, bar.Available, 2)
	assert.True(t, bar.Available[0].Active)
	assert.False(t, bar.Available[1].Active)
}

func TestGetBrowse(t *testing.T) {
	router, _, _ := setupRouter(t)

	tests := []struct {
		name        string
		query       string
		expectedLen int
		hasMore     bool
		total       int
	}{
		{"Defaults", "", 12, true, 35},
		{"Single filter", "?filter=sea+view", 5, false, 5},
		{"Multiple filters widen", "?filter=sea+view&filter=pool&visible=40", 35, false, 35},
		{"Visible count", "?filter=pool&visible=24", 24, true, 30},
		{"Zero visible", "?visible=0", 0, true, 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := decodeView(t, doRequest(router, http.MethodGet, "/api/browse"+tt.query, nil))
			assert.Len(t, view.Listings, tt.expectedLen)
			assert.Equal(t, tt.hasMore, view.HasMore)
			assert.Equal(t, tt.total, view.Total)
		})
	}
}

func TestGetBrowse_InvalidVisible(t *testing.T) {
	router, _, _ := setupRouter(t)

	for _, query := range []string{"?visible=abc", "?visible=-1"} {
		w := doRequest(router, http.MethodGet, "/api/browse"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestPostBrowse_Pagination(t *testing.T) {
	router, _, _ := setupRouter(t)

	view := decodeView(t, doRequest(router, http.MethodPost, "/api/browse", BrowseRequest{
		State:  browse.State{VisibleCount: 12},
		Action: ActionToggle,
		Tag:    "pool",
	}))
	assert.Equal(t, []string{"pool"}, view.State.ActiveFilters)
	assert.Equal(t, 12, view.State.VisibleCount)
	assert.True(t, view.HasMore)

	view = decodeView(t, doRequest(router, http.MethodPost, "/api/browse", BrowseRequest{
		State:  view.State,
		Action: ActionLoadMore,
	}))
	assert.Equal(t, 24, view.State.VisibleCount)
	assert.True(t, view.HasMore)

	view = decodeView(t, doRequest(router, http.MethodPost, "/api/browse", BrowseRequest{
		State:  view.State,
		Action: ActionLoadMore,
	}))
	assert.Equal(t, 30, view.State.VisibleCount)
	assert.False(t, view.HasMore)
	assert.Len(t, view.Listings, 30)

	view = decodeView(t, doRequest(router, http.MethodPost, "/api/browse", BrowseRequest{
		State:  view.State,
		Action: ActionToggle,
		Tag:    "sea view",
	}))
	assert.Equal(t, []string{"pool", "sea view"}, view.State.ActiveFilters)
	assert.Equal(t, 12, view.State.VisibleCount)
	assert.Equal(t, 35, view.Total)

	view = decodeView(t, doRequest(router, http.MethodPost, "/api/browse", BrowseRequest{
		State:  view.State,
		Action: ActionReset,
	}))
	assert.Empty(t, view.State.ActiveFilters)
	assert.Equal(t, 12, view.State.VisibleCount)
}

func TestPostBrowse_BadRequests(t *testing.T) {
	router, _, _ := setupRouter(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"Missing action", map[string]interface{}{"state": map[string]interface{}{"visible_count": 12}}},
		{"Unknown action", BrowseRequest{Action: "sort"}},
		{"Toggle without tag", BrowseRequest{Action: ActionToggle}},
		{"Negative visible count", BrowseRequest{Action: ActionReset, State: browse.State{VisibleCount: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/browse", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestRefreshCatalog(t *testing.T) {
	router, refresher, _ := setupRouter(t)
	refresher.On("RunOnce").Return(catalog.Snapshot{Listings: []models.Listing{}, Origin: catalog.OriginEmpty}).Once()

	w := doRequest(router, http.MethodPost, "/api/refresh", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"origin":"empty"`)
	refresher.AssertExpectations(t)
}

func TestUpdateFeaturedFilters(t *testing.T) {
	router, _, filters := setupRouter(t)
	filters.On("SetFeatured", []string{"Pool"}).Return(nil).Once()

	w := doRequest(router, http.MethodPut, "/api/filters/featured", FeaturedRequest{Filters: []string{"Pool"}})
	assert.Equal(t, http.StatusOK, w.Code)

	filters.On("SetFeatured", []string{"Broken"}).Return(errors.New("read-only filesystem")).Once()
	w = doRequest(router, http.MethodPut, "/api/filters/featured", FeaturedRequest{Filters: []string{"Broken"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doRequest(router, http.MethodPut, "/api/filters/featured", map[string]string{"filters": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	filters.AssertExpectations(t)
}

func TestFeaturedTag(t *testing.T) {
	assert.Equal(t, "sea view", featuredTag("Sea View"))
	assert.Equal(t, "top villa", featuredTag("  Top   Villa "))
}
