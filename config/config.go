package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Port           string   `env:"PORT" envDefault:"5250"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	FiltersFile    string   `env:"FILTERS_FILE" envDefault:"config/filters.yaml"`

	// Source configuration for the remote listings API
	Source struct {
		URL       string `env:"LISTINGS_SOURCE_URL" envDefault:"https://example.com/wp-json/wp/v2/property"`
		PerPage   int    `env:"LISTINGS_PER_PAGE" envDefault:"100"`
		UserAgent string `env:"LISTINGS_USER_AGENT" envDefault:"ListingSite/1.0"`

		// Request timeout in seconds
		FetchTimeout int `env:"LISTINGS_FETCH_TIMEOUT" envDefault:"10"`

		// Seconds between catalog refreshes; 0 loads once at startup
		RefreshInterval int `env:"REFRESH_INTERVAL" envDefault:"0"`
	}

	Listings struct {
		CategoryPrefix   string `env:"CATEGORY_PREFIX" envDefault:"property-feature-"`
		ImageSize        string `env:"IMAGE_SIZE" envDefault:"medium_large"`
		PlaceholderImage string `env:"PLACEHOLDER_IMAGE" envDefault:"/assets/placeholder.jpg"`
		HeroImage        string `env:"HERO_IMAGE" envDefault:"/assets/hero.jpg"`
		PageSize         int    `env:"PAGE_SIZE" envDefault:"12"`

		DefaultBeds      string `env:"DEFAULT_BEDS" envDefault:"3"`
		DefaultShowers   string `env:"DEFAULT_SHOWERS" envDefault:"1"`
		DefaultOccupants string `env:"DEFAULT_OCCUPANTS" envDefault:"2-4"`
	}

	Snapshot struct {
		// Path of the sqlite file; empty disables the snapshot store
		DBPath string `env:"SNAPSHOT_DB_PATH" envDefault:""`

		// Maximum number of retries for failed snapshot writes
		MaxRetries int `env:"SNAPSHOT_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"SNAPSHOT_RETRY_DELAY" envDefault:"1"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FetchTimeout returns the source request timeout as time.Duration
func (c *Config) FetchTimeout() time.Duration {
	if c.Source.FetchTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Source.FetchTimeout) * time.Second
}

// RefreshInterval returns the refresh period; zero means no periodic refresh
func (c *Config) RefreshInterval() time.Duration {
	if c.Source.RefreshInterval <= 0 {
		return 0
	}
	return time.Duration(c.Source.RefreshInterval) * time.Second
}

// SnapshotRetryDelay returns the delay between snapshot write attempts
func (c *Config) SnapshotRetryDelay() time.Duration {
	if c.Snapshot.RetryDelay < 0 {
		return 0
	}
	return time.Duration(c.Snapshot.RetryDelay) * time.Second
}
