package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultFeaturedFilters are shown in the filter bar when no catalog file exists.
var DefaultFeaturedFilters = []string{
	"Top Villa",
	"Self Checkin",
	"Beachfront",
	"Mountain View",
	"City Center",
	"Free Parking",
	"Pet Friendly",
	"Fireplace",
}

// FilterCatalog is the featured filter configuration file
type FilterCatalog struct {
	Filters []string `yaml:"filters"`
}

// FilterCatalogStore holds the featured filters loaded from disk
type FilterCatalogStore struct {
	path    string
	mu      sync.RWMutex
	catalog *FilterCatalog
}

func NewFilterCatalogStore(path string) *FilterCatalogStore {
	return &FilterCatalogStore{path: path}
}

// Load reads the catalog file. A missing file installs the defaults.
func (s *FilterCatalogStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if errors.Is(err, os.ErrNotExist) {
		s.catalog = &FilterCatalog{Filters: append([]string{}, DefaultFeaturedFilters...)}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read filter catalog: %w", err)
	}

	var catalog FilterCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse filter catalog: %w", err)
	}
	catalog.Filters = cleanFilters(catalog.Filters)

	s.catalog = &catalog
	return nil
}

// Save writes the current catalog back to disk
func (s *FilterCatalogStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.catalog == nil {
		return fmt.Errorf("no filter catalog loaded")
	}

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := yaml.Marshal(s.catalog)
	if err != nil {
		return fmt.Errorf("failed to marshal filter catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write filter catalog: %w", err)
	}
	return nil
}

// Featured returns a copy of the featured filters, or the defaults when
// nothing has been loaded
func (s *FilterCatalogStore) Featured() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.catalog == nil {
		return append([]string{}, DefaultFeaturedFilters...)
	}
	return append([]string{}, s.catalog.Filters...)
}

// SetFeatured replaces the featured filters and persists them
func (s *FilterCatalogStore) SetFeatured(filters []string) error {
	s.mu.Lock()
	s.catalog = &FilterCatalog{Filters: cleanFilters(filters)}
	s.mu.Unlock()

	return s.Save()
}

// cleanFilters trims entries and drops blanks and duplicates, keeping order
func cleanFilters(filters []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
