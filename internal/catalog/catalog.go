package catalog

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"listingsite/server/internal/models"
)

// Origin says where the current collection came from.
type Origin string

const (
	OriginNone     Origin = "none"
	OriginRemote   Origin = "remote"
	OriginSnapshot Origin = "snapshot"
	OriginEmpty    Origin = "empty"
)

// Source fetches raw listing records from the remote API.
type Source interface {
	FetchListings(ctx context.Context) ([]models.RawListingRecord, error)
}

// Normalizer maps raw records onto canonical listings.
type Normalizer interface {
	NormalizeAll(raws []models.RawListingRecord) []models.Listing
}

// SnapshotStore persists the last good collection.
type SnapshotStore interface {
	SaveSnapshot(listings []models.Listing) error
	LoadSnapshot() ([]models.Listing, time.Time, error)
}

// Snapshot is one immutable, loaded listing collection.
type Snapshot struct {
	Listings  []models.Listing `json:"listings"`
	Origin    Origin           `json:"origin"`
	FetchedAt time.Time        `json:"fetched_at"`
	LoadedAt  time.Time        `json:"loaded_at"`
}

// Catalog owns the canonical listing collection. Each Refresh builds a new
// collection and swaps it in whole; readers never see a partial update.
type Catalog struct {
	source     Source
	normalizer Normalizer
	store      SnapshotStore
	logger     *logrus.Logger

	mu      sync.RWMutex
	current Snapshot
	loadMu  sync.Mutex
}

// NewCatalog creates a catalog. store may be nil to disable snapshots.
func NewCatalog(source Source, normalizer Normalizer, store SnapshotStore, logger *logrus.Logger) *Catalog {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Catalog{
		source:     source,
		normalizer: normalizer,
		store:      store,
		logger:     logger,
		current:    Snapshot{Listings: []models.Listing{}, Origin: OriginNone},
	}
}

// Refresh performs one fetch and normalization pass and installs the result.
// It never fails: a fetch error falls back to the stored snapshot and then
// to an empty collection.
func (c *Catalog) Refresh(ctx context.Context) Snapshot {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	next := c.load(ctx)
	next.LoadedAt = time.Now().UTC()

	c.mu.Lock()
	c.current = next
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"origin":        next.Origin,
		"listing_count": len(next.Listings),
	}).Info("Listing catalog loaded")

	return next
}

func (c *Catalog) load(ctx context.Context) Snapshot {
	raws, err := c.source.FetchListings(ctx)
	if err == nil {
		listings := c.normalizer.NormalizeAll(raws)
		fetchedAt := time.Now().UTC()

		if c.store != nil {
			if err := c.store.SaveSnapshot(listings); err != nil {
				c.logger.WithError(err).Warn("Failed to store listing snapshot")
			}
		}
		return Snapshot{Listings: listings, Origin: OriginRemote, FetchedAt: fetchedAt}
	}

	c.logger.WithError(err).Error("Failed to fetch listings")

	if c.store != nil {
		listings, fetchedAt, err := c.store.LoadSnapshot()
		if err == nil {
			c.logger.WithField("fetched_at", fetchedAt).Warn("Serving stored listing snapshot")
			return Snapshot{Listings: listings, Origin: OriginSnapshot, FetchedAt: fetchedAt}
		}
		c.logger.WithError(err).Warn("No usable listing snapshot")
	}

	return Snapshot{Listings: []models.Listing{}, Origin: OriginEmpty}
}

// Current returns a deep copy of the installed snapshot, so callers cannot
// modify the shared collection.
func (c *Catalog) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := c.current
	snapshot.Listings = make([]models.Listing, len(c.current.Listings))
	for i, l := range c.current.Listings {
		if l.Categories != nil {
			l.Categories = append(make([]string, 0, len(l.Categories)), l.Categories...)
		}
		snapshot.Listings[i] = l
	}
	return snapshot
}

// Loaded reports whether Refresh has run at least once.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Origin != OriginNone
}
