package normalizer

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"listingsite/server/internal/models"
)

const (
	DefaultCategoryPrefix   = "property-feature-"
	DefaultImageSize        = "medium_large"
	DefaultPlaceholderImage = "/assets/placeholder.jpg"
)

// Options controls how raw records are mapped onto listings.
type Options struct {
	// CategoryPrefix marks the classification tokens that encode a category.
	CategoryPrefix string
	// ImageSize is the named size variant preferred over the full-resolution URL.
	ImageSize string
	// PlaceholderImage is used when a record carries no images at all.
	PlaceholderImage string
	// DefaultOffers fills offer fields the record's metadata leaves empty.
	DefaultOffers models.Offers
	// AddressParser splits the free-text address. Nil means CommaAddressParser.
	AddressParser AddressParser
}

// Normalizer maps raw WordPress records onto canonical listings. It never
// fails: malformed fields fall back to their defaults.
type Normalizer struct {
	opts   Options
	logger *logrus.Logger
}

func NewNormalizer(opts Options, logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	if opts.CategoryPrefix == "" {
		opts.CategoryPrefix = DefaultCategoryPrefix
	}
	if opts.ImageSize == "" {
		opts.ImageSize = DefaultImageSize
	}
	if opts.PlaceholderImage == "" {
		opts.PlaceholderImage = DefaultPlaceholderImage
	}
	if opts.AddressParser == nil {
		opts.AddressParser = CommaAddressParser{}
	}

	return &Normalizer{opts: opts, logger: logger}
}

// Normalize converts one raw record into a Listing.
func (n *Normalizer) Normalize(raw models.RawListingRecord) models.Listing {
	return models.Listing{
		Name:            strings.TrimSpace(raw.Title),
		Address:         n.opts.AddressParser.Parse(raw.Meta.Address),
		Categories:      ExtractCategories(raw.ClassList, n.opts.CategoryPrefix),
		Price:           ParsePrice(raw.Meta.Price),
		Rating:          parseRating(raw.Meta.Rating),
		Offers:          n.offers(raw.Meta),
		Image:           SelectImage(raw.Meta.Images, n.opts.ImageSize, n.opts.PlaceholderImage),
		DiscountPercent: strings.TrimSpace(raw.Meta.Discount),
		DeliveryDate:    strings.TrimSpace(raw.Meta.DeliveryDate),
	}
}

// NormalizeAll converts a batch, preserving source order.
func (n *Normalizer) NormalizeAll(raws []models.RawListingRecord) []models.Listing {
	listings := make([]models.Listing, 0, len(raws))
	for _, raw := range raws {
		listings = append(listings, n.Normalize(raw))
	}

	n.logger.WithFields(logrus.Fields{
		"record_count":  len(raws),
		"listing_count": len(listings),
	}).Debug("Normalized listing records")

	return listings
}

func (n *Normalizer) offers(meta models.RawMeta) models.Offers {
	return models.Offers{
		Beds:      firstNonEmpty(meta.Beds, n.opts.DefaultOffers.Beds),
		Showers:   firstNonEmpty(meta.Showers, n.opts.DefaultOffers.Showers),
		Occupants: firstNonEmpty(meta.Occupants, n.opts.DefaultOffers.Occupants),
	}
}

// ExtractCategories keeps the tokens carrying prefix, strips it and turns the
// remaining hyphens into spaces. Token order is kept and duplicates pass through.
func ExtractCategories(tokens []string, prefix string) []string {
	categories := make([]string, 0)
	if prefix == "" {
		return categories
	}

	for _, token := range tokens {
		if !strings.HasPrefix(token, prefix) {
			continue
		}
		tag := strings.ReplaceAll(strings.TrimPrefix(token, prefix), "-", " ")
		if strings.TrimSpace(tag) == "" {
			continue
		}
		categories = append(categories, tag)
	}
	return categories
}

// ParsePrice parses a base-10 integer price. Anything else, including
// negative values, yields 0.
func ParsePrice(raw string) int {
	price, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || price < 0 {
		return 0
	}
	return price
}

// SelectImage prefers the named size variant of the first image, then its
// full-resolution URL, then the placeholder.
func SelectImage(images []models.ImageDescriptor, size, placeholder string) string {
	if len(images) == 0 {
		return placeholder
	}

	first := images[0]
	if url := first.Sizes[size]; url != "" {
		return url
	}
	if first.URL != "" {
		return first.URL
	}
	return placeholder
}

// parseRating keeps ratings in [0, 5]. NaN is rejected since it cannot be
// encoded as JSON.
func parseRating(raw string) float64 {
	rating, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(rating) || rating < 0 || rating > 5 {
		return 0
	}
	return rating
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
