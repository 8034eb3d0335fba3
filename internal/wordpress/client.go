package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"listingsite/server/internal/models"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrNotArray         = errors.New("response is not a JSON array")
)

const maxResponseBytes = 16 << 20

// Client fetches listing records from a WordPress REST collection endpoint.
type Client struct {
	logger    *logrus.Logger
	client    *http.Client
	endpoint  string
	perPage   int
	userAgent string
}

type Options struct {
	Endpoint  string
	PerPage   int
	Timeout   time.Duration
	UserAgent string
}

// errorResponse is the body WordPress sends instead of a collection on failure.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewClient(opts Options, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Client{
		logger:    logger,
		client:    &http.Client{Timeout: opts.Timeout},
		endpoint:  opts.Endpoint,
		perPage:   opts.PerPage,
		userAgent: opts.UserAgent,
	}
}

// FetchListings requests a single page of up to perPage records. Records that
// are not JSON objects are skipped; the rest of the batch is kept.
func (c *Client) FetchListings(ctx context.Context) ([]models.RawListingRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	params := req.URL.Query()
	params.Set("per_page", strconv.Itoa(c.perPage))
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logger := c.logger.WithField("source_url", redact(req.URL))
	logger.Debug("Fetching listings")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listings request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d%s", ErrUnexpectedStatus, resp.StatusCode, describeError(body))
	}

	records, err := c.decode(body)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"record_count":   len(records),
		"fetch_duration": time.Since(started).String(),
	}).Info("Fetched listings")

	return records, nil
}

func (c *Client) decode(body []byte) ([]models.RawListingRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w%s", ErrNotArray, describeError(trimmed))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	records := make([]models.RawListingRecord, 0, len(items))
	for i, item := range items {
		var record models.RawListingRecord
		if err := json.Unmarshal(item, &record); err != nil {
			c.logger.WithError(err).WithField("index", i).Warn("Skipping malformed listing record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func describeError(body []byte) string {
	var wpErr errorResponse
	if err := json.Unmarshal(body, &wpErr); err != nil || wpErr.Code == "" {
		return ""
	}
	return fmt.Sprintf(" (%s: %s)", wpErr.Code, wpErr.Message)
}

// redact drops credentials that may be embedded in the configured URL.
func redact(u *url.URL) string {
	clean := *u
	clean.User = nil
	return clean.String()
}
