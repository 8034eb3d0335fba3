package browse

import (
	"listingsite/server/internal/models"
)

// DefaultPageSize is the number of listings revealed initially and on each
// "load more".
const DefaultPageSize = 12

// State is the filter and reveal state of one view session. It is a value:
// engine operations return a new State and never modify the one passed in.
type State struct {
	ActiveFilters []string `json:"active_filters"`
	VisibleCount  int      `json:"visible_count"`
}

// IsActive reports whether tag is currently selected.
func (s State) IsActive(tag string) bool {
	for _, active := range s.ActiveFilters {
		if active == tag {
			return true
		}
	}
	return false
}

// filterSet indexes the active filters for membership checks.
func (s State) filterSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.ActiveFilters))
	for _, tag := range s.ActiveFilters {
		set[tag] = struct{}{}
	}
	return set
}

// View is what the presentation layer renders for a State.
type View struct {
	State    State            `json:"state"`
	Listings []models.Listing `json:"listings"`
	HasMore  bool             `json:"has_more"`
	Total    int              `json:"total"`
}

// Engine applies filter and pagination transitions with a fixed page size.
type Engine struct {
	pageSize int
}

func NewEngine(pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{pageSize: pageSize}
}

// PageSize returns the reveal increment.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// NewState returns the initial state: no filters, one page visible.
func (e *Engine) NewState() State {
	return State{ActiveFilters: []string{}, VisibleCount: e.pageSize}
}

// ToggleFilter adds tag if absent and removes it if present, then resets the
// visible count to one page.
func (e *Engine) ToggleFilter(s State, tag string) State {
	filters := make([]string, 0, len(s.ActiveFilters)+1)
	removed := false
	for _, active := range s.ActiveFilters {
		if active == tag {
			removed = true
			continue
		}
		filters = append(filters, active)
	}
	if !removed {
		filters = append(filters, tag)
	}

	return State{ActiveFilters: filters, VisibleCount: e.pageSize}
}

// ResetFilters clears every filter and resets the visible count.
func (e *Engine) ResetFilters(State) State {
	return e.NewState()
}

// LoadMore reveals one more page of the filtered listings. The visible count
// is clamped to the filtered total so it never runs past the end.
func (e *Engine) LoadMore(listings []models.Listing, s State) State {
	next := State{
		ActiveFilters: append([]string{}, s.ActiveFilters...),
		VisibleCount:  s.VisibleCount + e.pageSize,
	}

	total := CountMatching(listings, s.ActiveFilters)
	if next.VisibleCount > total {
		next.VisibleCount = max(total, s.VisibleCount)
	}
	return next
}

// View computes the visible subset and derived flags for s.
func (e *Engine) View(listings []models.Listing, s State) View {
	if s.ActiveFilters == nil {
		s.ActiveFilters = []string{}
	}
	return View{
		State:    s,
		Listings: ComputeVisible(listings, s.ActiveFilters, s.VisibleCount),
		HasMore:  HasMore(listings, s.ActiveFilters, s.VisibleCount),
		Total:    CountMatching(listings, s.ActiveFilters),
	}
}

// Filter returns the listings matching any of activeFilters, in their
// original order. An empty filter set matches everything.
func Filter(listings []models.Listing, activeFilters []string) []models.Listing {
	matched := make([]models.Listing, 0, len(listings))
	if len(activeFilters) == 0 {
		return append(matched, listings...)
	}

	set := State{ActiveFilters: activeFilters}.filterSet()
	for i := range listings {
		if listings[i].HasAnyCategory(set) {
			matched = append(matched, listings[i])
		}
	}
	return matched
}

// CountMatching returns the untruncated size of the filtered set.
func CountMatching(listings []models.Listing, activeFilters []string) int {
	if len(activeFilters) == 0 {
		return len(listings)
	}

	set := State{ActiveFilters: activeFilters}.filterSet()
	count := 0
	for i := range listings {
		if listings[i].HasAnyCategory(set) {
			count++
		}
	}
	return count
}

// ComputeVisible filters listings and truncates the result to visibleCount.
func ComputeVisible(listings []models.Listing, activeFilters []string, visibleCount int) []models.Listing {
	matched := Filter(listings, activeFilters)
	if visibleCount < 0 {
		visibleCount = 0
	}
	if len(matched) > visibleCount {
		matched = matched[:visibleCount]
	}
	return matched
}

// HasMore reports whether more filtered listings exist beyond visibleCount.
func HasMore(listings []models.Listing, activeFilters []string, visibleCount int) bool {
	return CountMatching(listings, activeFilters) > visibleCount
}

// AvailableCategories lists every category tag in first-seen order.
func AvailableCategories(listings []models.Listing) []string {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, listing := range listings {
		for _, category := range listing.Categories {
			if _, ok := seen[category]; ok {
				continue
			}
			seen[category] = struct{}{}
			categories = append(categories, category)
		}
	}
	return categories
}
