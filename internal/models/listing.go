package models

// Address is the positional split of a free-text listing address.
type Address struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Offers describes what a listing sleeps and provides.
type Offers struct {
	Beds      string `json:"beds"`
	Showers   string `json:"showers"`
	Occupants string `json:"occupants"`
}

// Listing is the canonical display model for one property.
type Listing struct {
	Name            string   `json:"name"`
	Address         Address  `json:"address"`
	Categories      []string `json:"categories"`
	Price           int      `json:"price"`
	Rating          float64  `json:"rating"`
	Offers          Offers   `json:"offers"`
	Image           string   `json:"image"`
	DiscountPercent string   `json:"discount_percent"`
	DeliveryDate    string   `json:"delivery_date"`
}

// HasAnyCategory reports whether the listing carries at least one of tags.
func (l *Listing) HasAnyCategory(tags map[string]struct{}) bool {
	for _, category := range l.Categories {
		if _, ok := tags[category]; ok {
			return true
		}
	}
	return false
}
