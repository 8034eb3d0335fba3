package normalizer

import (
	"strings"

	"listingsite/server/internal/models"
)

// AddressParser turns a free-text address into its structured parts.
type AddressParser interface {
	Parse(raw string) models.Address
}

// CommaAddressParser assigns the first three comma-separated segments to
// city, state and country in that order. It does not check that the source
// actually orders its addresses this way.
type CommaAddressParser struct{}

func (CommaAddressParser) Parse(raw string) models.Address {
	var parts [3]string
	if strings.TrimSpace(raw) != "" {
		for i, segment := range strings.SplitN(raw, ",", 4) {
			if i == len(parts) {
				break
			}
			parts[i] = strings.TrimSpace(segment)
		}
	}

	return models.Address{
		City:    parts[0],
		State:   parts[1],
		Country: parts[2],
	}
}
