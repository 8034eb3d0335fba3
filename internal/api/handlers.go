package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"listingsite/server/internal/browse"
	"listingsite/server/internal/catalog"
	"listingsite/server/internal/models"
)

// ListingProvider exposes the current canonical collection.
type ListingProvider interface {
	Current() catalog.Snapshot
	Loaded() bool
}

// Refresher reloads the collection on demand.
type Refresher interface {
	RunOnce() catalog.Snapshot
}

// FeaturedFilters reads and replaces the featured filter labels.
type FeaturedFilters interface {
	Featured() []string
	SetFeatured(filters []string) error
}

type Handler struct {
	listings  ListingProvider
	refresher Refresher
	filters   FeaturedFilters
	engine    *browse.Engine
	hero      Hero
	logger    *logrus.Logger
}

type Hero struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Image    string `json:"image"`
}

// FilterChip is one entry of the filter bar.
type FilterChip struct {
	Label  string `json:"label"`
	Tag    string `json:"tag"`
	Active bool   `json:"active"`
	Count  int    `json:"count"`
}

type FilterBar struct {
	Featured  []FilterChip `json:"featured"`
	Available []FilterChip `json:"available"`
}

type PageResponse struct {
	Hero    Hero        `json:"hero"`
	Filters FilterBar   `json:"filters"`
	Browse  browse.View `json:"browse"`
}

// BrowseRequest applies one engine operation to a client-held state.
type BrowseRequest struct {
	State  browse.State `json:"state"`
	Action string       `json:"action" binding:"required"`
	Tag    string       `json:"tag"`
}

type FeaturedRequest struct {
	Filters []string `json:"filters" binding:"required"`
}

const (
	ActionToggle   = "toggle"
	ActionReset    = "reset"
	ActionLoadMore = "load_more"
)

// DefaultHeroImage is used when no hero background is configured.
const DefaultHeroImage = "/assets/hero.jpg"

// NewHero builds the landing page hero around the given background image.
func NewHero(image string) Hero {
	if image == "" {
		image = DefaultHeroImage
	}
	return Hero{
		Title:    "Find your favorite place here!",
		Subtitle: "The best prices for over 2 million properties worldwide.",
		Image:    image,
	}
}

func NewHandler(listings ListingProvider, refresher Refresher, filters FeaturedFilters, engine *browse.Engine, hero Hero, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		listings:  listings,
		refresher: refresher,
		filters:   filters,
		engine:    engine,
		hero:      hero,
		logger:    logger,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	if !h.listings.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}

	snapshot := h.listings.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"origin":        snapshot.Origin,
		"listing_count": len(snapshot.Listings),
		"loaded_at":     snapshot.LoadedAt,
	})
}

func (h *Handler) GetListings(c *gin.Context) {
	c.JSON(http.StatusOK, h.listings.Current().Listings)
}

func (h *Handler) GetFilters(c *gin.Context) {
	state := browse.State{ActiveFilters: c.QueryArray("filter")}
	c.JSON(http.StatusOK, h.filterBar(h.listings.Current().Listings, state))
}

// GetPage returns everything the landing page renders: hero, filter bar and
// the first page of listings.
func (h *Handler) GetPage(c *gin.Context) {
	listings := h.listings.Current().Listings
	state := h.engine.NewState()

	c.JSON(http.StatusOK, PageResponse{
		Hero:    h.hero,
		Filters: h.filterBar(listings, state),
		Browse:  h.engine.View(listings, state),
	})
}

func (h *Handler) GetBrowse(c *gin.Context) {
	visible := h.engine.PageSize()
	if raw := c.Query("visible"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.logger.WithField("visible", raw).Warn("Invalid visible count")
			c.JSON(http.StatusBadRequest, gin.H{"error": "visible must be a non-negative integer"})
			return
		}
		visible = n
	}

	state := browse.State{
		ActiveFilters: dedupe(c.QueryArray("filter")),
		VisibleCount:  visible,
	}
	c.JSON(http.StatusOK, h.engine.View(h.listings.Current().Listings, state))
}

func (h *Handler) PostBrowse(c *gin.Context) {
	var req BrowseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid browse request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.State.VisibleCount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visible_count must be non-negative"})
		return
	}
	req.State.ActiveFilters = dedupe(req.State.ActiveFilters)

	listings := h.listings.Current().Listings
	state := req.State

	switch req.Action {
	case ActionToggle:
		tag := strings.TrimSpace(req.Tag)
		if tag == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tag is required for toggle"})
			return
		}
		state = h.engine.ToggleFilter(state, tag)
	case ActionReset:
		state = h.engine.ResetFilters(state)
	case ActionLoadMore:
		state = h.engine.LoadMore(listings, state)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action: " + req.Action})
		return
	}

	c.JSON(http.StatusOK, h.engine.View(listings, state))
}

func (h *Handler) UpdateFeaturedFilters(c *gin.Context) {
	var req FeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid featured filters request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.filters.SetFeatured(req.Filters); err != nil {
		h.logger.WithError(err).Error("Failed to update featured filters")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update featured filters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"filters": h.filters.Featured()})
}

func (h *Handler) RefreshCatalog(c *gin.Context) {
	snapshot := h.refresher.RunOnce()

	c.JSON(http.StatusOK, gin.H{
		"origin":        snapshot.Origin,
		"listing_count": len(snapshot.Listings),
		"fetched_at":    snapshot.FetchedAt,
	})
}

func (h *Handler) filterBar(listings []models.Listing, state browse.State) FilterBar {
	bar := FilterBar{
		Featured:  make([]FilterChip, 0),
		Available: make([]FilterChip, 0),
	}

	for _, label := range h.filters.Featured() {
		tag := featuredTag(label)
		bar.Featured = append(bar.Featured, FilterChip{
			Label:  label,
			Tag:    tag,
			Active: state.IsActive(tag),
			Count:  browse.CountMatching(listings, []string{tag}),
		})
	}

	for _, tag := range browse.AvailableCategories(listings) {
		bar.Available = append(bar.Available, FilterChip{
			Label:  tag,
			Tag:    tag,
			Active: state.IsActive(tag),
			Count:  browse.CountMatching(listings, []string{tag}),
		})
	}

	return bar
}

// featuredTag maps a display label like "Sea View" onto the category tag the
// normalizer derives from the "property-feature-sea-view" token.
func featuredTag(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// requestLogger logs each request through logrus.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(started).String(),
			"client_ip": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Info("Request handled")
	}
}
