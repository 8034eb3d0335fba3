package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"html"
	"sort"
	"strconv"
)

// ErrNotObject is returned when a listing record payload is not a JSON object.
var ErrNotObject = errors.New("listing record is not a JSON object")

// ImageDescriptor is one image attached to a raw record: the full-resolution
// URL plus any named size variants.
type ImageDescriptor struct {
	URL   string            `json:"url"`
	Sizes map[string]string `json:"sizes,omitempty"`
}

// RawMeta is the loosely-typed metadata bag of a raw record. Every field is
// kept as text; interpretation happens in the normalizer.
type RawMeta struct {
	Price        string            `json:"price"`
	Address      string            `json:"address"`
	Images       []ImageDescriptor `json:"images"`
	DeliveryDate string            `json:"delivery_date"`
	Discount     string            `json:"discount"`
	Rating       string            `json:"rating"`
	Beds         string            `json:"beds"`
	Showers      string            `json:"showers"`
	Occupants    string            `json:"occupants"`
}

// RawListingRecord is a listing as returned by the WordPress REST API.
type RawListingRecord struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	ClassList []string `json:"class_list"`
	Meta      RawMeta  `json:"meta"`
}

// UnmarshalJSON decodes a record leniently. Only a payload that is not a JSON
// object is rejected; individual fields with unexpected shapes decode to
// their zero value so one bad field never loses the record.
func (r *RawListingRecord) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return ErrNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = RawListingRecord{}

	if id, err := strconv.ParseInt(looseString(fields["id"]), 10, 64); err == nil {
		r.ID = id
	}
	r.Title = html.UnescapeString(decodeTitle(fields["title"]))
	r.ClassList = decodeStringList(fields["class_list"])

	// ACF exposes custom fields under "acf"; plain registered meta under "meta".
	metaRaw := fields["acf"]
	if !isObject(metaRaw) {
		metaRaw = fields["meta"]
	}
	r.Meta = decodeMeta(metaRaw)

	return nil
}

func decodeMeta(data json.RawMessage) RawMeta {
	var bag map[string]json.RawMessage
	if !isObject(data) || json.Unmarshal(data, &bag) != nil {
		return RawMeta{}
	}

	return RawMeta{
		Price:        looseString(bag["price"]),
		Address:      looseString(bag["address"]),
		Images:       decodeImages(bag["images"]),
		DeliveryDate: looseString(bag["delivery_date"]),
		Discount:     looseString(bag["discount"]),
		Rating:       looseString(bag["rating"]),
		Beds:         looseString(bag["beds"]),
		Showers:      looseString(bag["showers"]),
		Occupants:    looseString(bag["occupants"]),
	}
}

// decodeTitle accepts both {"rendered": "..."} and a bare string.
func decodeTitle(data json.RawMessage) string {
	if isObject(data) {
		var rendered struct {
			Rendered json.RawMessage `json:"rendered"`
		}
		if err := json.Unmarshal(data, &rendered); err != nil {
			return ""
		}
		return looseString(rendered.Rendered)
	}
	return looseString(data)
}

// decodeStringList accepts a JSON array, or an object keyed by index (what
// WordPress emits after array_filter leaves holes in the list).
func decodeStringList(data json.RawMessage) []string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := looseString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case '{':
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, errA := strconv.Atoi(keys[i])
			b, errB := strconv.Atoi(keys[j])
			if errA == nil && errB == nil {
				return a < b
			}
			return keys[i] < keys[j]
		})
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := looseString(keyed[k]); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// decodeImages accepts a list of descriptors, a single descriptor, a bare URL
// string, or ACF's false for an empty field.
func decodeImages(data json.RawMessage) []ImageDescriptor {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		out := make([]ImageDescriptor, 0, len(items))
		for _, item := range items {
			if img, ok := decodeImage(item); ok {
				out = append(out, img)
			}
		}
		return out
	default:
		if img, ok := decodeImage(trimmed); ok {
			return []ImageDescriptor{img}
		}
		return nil
	}
}

func decodeImage(data json.RawMessage) (ImageDescriptor, bool) {
	if !isObject(data) {
		if url := looseString(data); url != "" {
			return ImageDescriptor{URL: url}, true
		}
		return ImageDescriptor{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return ImageDescriptor{}, false
	}

	img := ImageDescriptor{URL: looseString(fields["url"])}

	var sizes map[string]json.RawMessage
	if isObject(fields["sizes"]) && json.Unmarshal(fields["sizes"], &sizes) == nil {
		for name, value := range sizes {
			// ACF mixes "<size>-width"/"<size>-height" numbers in with the URLs.
			var url string
			if json.Unmarshal(value, &url) != nil || url == "" {
				continue
			}
			if img.Sizes == nil {
				img.Sizes = make(map[string]string)
			}
			img.Sizes[name] = url
		}
	}

	if img.URL == "" && len(img.Sizes) == 0 {
		return ImageDescriptor{}, false
	}
	return img, true
}

// looseString renders strings and numbers as text; everything else is "".
func looseString(data json.RawMessage) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return ""
		}
		return n.String()
	default:
		return ""
	}
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
