package database

import (
	"time"

	"listingsite/server/internal/models"
)

const snapshotMetaID = 1

// SnapshotListing is one stored listing; Position keeps the source order.
type SnapshotListing struct {
	ID              uint     `gorm:"primaryKey"`
	Position        int      `gorm:"index"`
	Name            string
	City            string
	State           string
	Country         string
	Categories      []string `gorm:"serializer:json"`
	Price           int
	Rating          float64
	Beds            string
	Showers         string
	Occupants       string
	Image           string
	DiscountPercent string
	DeliveryDate    string
	FetchedAt       time.Time
}

// SnapshotMeta is a single row describing the stored snapshot.
type SnapshotMeta struct {
	ID           uint `gorm:"primaryKey"`
	FetchedAt    time.Time
	ListingCount int
}

func (d *Database) RunMigrations() error {
	return d.db.AutoMigrate(&SnapshotListing{}, &SnapshotMeta{})
}

func fromListing(position int, listing models.Listing, fetchedAt time.Time) SnapshotListing {
	return SnapshotListing{
		Position:        position,
		Name:            listing.Name,
		City:            listing.Address.City,
		State:           listing.Address.State,
		Country:         listing.Address.Country,
		Categories:      listing.Categories,
		Price:           listing.Price,
		Rating:          listing.Rating,
		Beds:            listing.Offers.Beds,
		Showers:         listing.Offers.Showers,
		Occupants:       listing.Offers.Occupants,
		Image:           listing.Image,
		DiscountPercent: listing.DiscountPercent,
		DeliveryDate:    listing.DeliveryDate,
		FetchedAt:       fetchedAt,
	}
}

func (s SnapshotListing) toListing() models.Listing {
	categories := s.Categories
	if categories == nil {
		categories = []string{}
	}

	return models.Listing{
		Name: s.Name,
		Address: models.Address{
			City:    s.City,
			State:   s.State,
			Country: s.Country,
		},
		Categories: categories,
		Price:      s.Price,
		Rating:     s.Rating,
		Offers: models.Offers{
			Beds:      s.Beds,
			Showers:   s.Showers,
			Occupants: s.Occupants,
		},
		Image:           s.Image,
		DiscountPercent: s.DiscountPercent,
		DeliveryDate:    s.DeliveryDate,
	}
}
