package database

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"listingsite/server/internal/models"
)

// ErrNoSnapshot is returned when no listing snapshot has been stored yet.
var ErrNoSnapshot = errors.New("no listing snapshot stored")

// RetryPolicy controls how snapshot writes are retried.
type RetryPolicy struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Database keeps the last successfully fetched listing collection so a page
// can still be served when the remote source is down.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
	retry  RetryPolicy
}

func NewDatabase(dbPath string, retry RetryPolicy, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	return &Database{db: db, logger: logger, retry: retry}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveSnapshot replaces the stored snapshot with listings in one transaction,
// retrying according to the configured policy.
func (d *Database) SaveSnapshot(listings []models.Listing) error {
	fetchedAt := time.Now().UTC()
	rows := make([]SnapshotListing, len(listings))
	for i, listing := range listings {
		rows[i] = fromListing(i, listing, fetchedAt)
	}

	var err error
	for attempt := 0; attempt <= d.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger.Infof("Retrying snapshot write, attempt %d of %d", attempt, d.retry.MaxRetries)
			time.Sleep(d.retry.RetryDelay)
		}

		err = d.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&SnapshotListing{}).Error; err != nil {
				return fmt.Errorf("failed to clear snapshot: %w", err)
			}
			if len(rows) > 0 {
				if err := tx.CreateInBatches(rows, 100).Error; err != nil {
					return fmt.Errorf("failed to insert snapshot: %w", err)
				}
			}
			meta := SnapshotMeta{ID: snapshotMetaID, FetchedAt: fetchedAt, ListingCount: len(rows)}
			if err := tx.Save(&meta).Error; err != nil {
				return fmt.Errorf("failed to record snapshot metadata: %w", err)
			}
			return nil
		})

		if err == nil {
			d.logger.WithField("listing_count", len(listings)).Info("Stored listing snapshot")
			return nil
		}

		d.logger.WithError(err).Error("Snapshot write failed")
	}

	return fmt.Errorf("failed to store snapshot after %d attempts: %w", d.retry.MaxRetries+1, err)
}

// LoadSnapshot returns the stored listings in their original order along
// with the time they were fetched.
func (d *Database) LoadSnapshot() ([]models.Listing, time.Time, error) {
	var rows []SnapshotListing
	if err := d.db.Order("position ASC").Find(&rows).Error; err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var meta SnapshotMeta
	err := d.db.First(&meta, snapshotMetaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load snapshot metadata: %w", err)
	}

	listings := make([]models.Listing, len(rows))
	for i, row := range rows {
		listings[i] = row.toListing()
	}
	return listings, meta.FetchedAt, nil
}
