// Package datafair implements the HTTP client for the ADEME Data Fair
// API. One call fetches one bounded page of dataset rows; continuation
// happens through an opaque cursor extracted from the response's next
// URL. Failures are surfaced immediately as typed errors, never retried
// here: the caller owns the retry policy.
package datafair

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/enerdata-io/dpe-dataprep/pkg/dataset"
	"github.com/enerdata-io/dpe-dataprep/pkg/dpe"
	"github.com/enerdata-io/dpe-dataprep/pkg/logging"
)

// Prometheus metrics for Data Fair requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dpe_api_requests_total",
		Help: "Total Data Fair requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dpe_api_request_duration_seconds",
		Help:    "Data Fair request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dpe_api_errors_total",
		Help: "Total Data Fair errors by class",
	}, []string{"class"})
)

// Page is one page of records plus the continuation state.
type Page struct {
	// Rows are the records of this page, in sort-key order.
	Rows []dataset.Record

	// Next is the cursor for the following page; empty at exhaustion.
	Next string

	// Total is the number of rows matching the filter, or -1 when the
	// response does not carry it.
	Total int64
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the Data Fair API root.
	BaseURL string

	// Dataset is the dataset identifier under /datasets/.
	Dataset string

	// UserAgent identifies the tool to the API.
	UserAgent string

	// Columns is the expected column set. Names containing spaces are
	// omitted from the select parameter (the API rejects them).
	Columns []string

	// SortColumn is the unique sort key used for cursor continuation.
	SortColumn string

	// Filter is the Lucene-style qs filter string.
	Filter string

	// MaxPageSize caps the size parameter of a single request.
	MaxPageSize int

	// Timeout is the fixed per-request network timeout.
	Timeout time.Duration

	// Redis enables the optional page cache when non-nil.
	Redis *redis.Client

	// CacheTTL is the page cache entry lifetime.
	CacheTTL time.Duration
}

// DefaultConfig returns the configuration for the DPE existing-housing
// dataset.
func DefaultConfig() Config {
	return Config{
		BaseURL:     dpe.BaseURL,
		Dataset:     dpe.DatasetID,
		UserAgent:   "dpe-dataprep/0.1.0",
		Columns:     dpe.SelectedColumns,
		SortColumn:  dpe.SortColumn,
		Filter:      dpe.DateFilter,
		MaxPageSize: dpe.MaxPageSize,
		Timeout:     60 * time.Second,
		CacheTTL:    24 * time.Hour,
	}
}

// Client fetches single pages from a Data Fair lines endpoint.
type Client struct {
	httpClient  *http.Client
	cache       *pageCache
	config      Config
	logger      zerolog.Logger
	selectParam string
}

// New creates a new Data Fair client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("dataset identifier is required")
	}
	if cfg.SortColumn == "" {
		return nil, fmt.Errorf("sort column is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("column selection is required")
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = dpe.MaxPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	// Column names with spaces break the select syntax; they are
	// dropped here and re-filtered client-side by the caller.
	selectable := make([]string, 0, len(cfg.Columns))
	for _, c := range cfg.Columns {
		if !strings.Contains(c, " ") {
			selectable = append(selectable, c)
		}
	}

	var cache *pageCache
	if cfg.Redis != nil {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		cache = newPageCache(cfg.Redis, ttl)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:       cache,
		config:      cfg,
		logger:      logging.NewLogger("datafair"),
		selectParam: strings.Join(selectable, ","),
	}, nil
}

// MaxPageSize returns the page size cap of this client.
func (c *Client) MaxPageSize() int {
	return c.config.MaxPageSize
}

// FetchPage performs one request against the lines endpoint. The after
// cursor must be empty for the first page and equal to the previous
// page's Next cursor afterwards. An empty Rows slice signals
// exhaustion, not an error.
func (c *Client) FetchPage(ctx context.Context, after string, size int) (Page, error) {
	if size > c.config.MaxPageSize {
		size = c.config.MaxPageSize
	}

	params := url.Values{}
	params.Set("select", c.selectParam)
	params.Set("size", strconv.Itoa(size))
	params.Set("sort", c.config.SortColumn)
	if c.config.Filter != "" {
		params.Set("qs", c.config.Filter)
	}
	if after != "" {
		params.Set("after", after)
	}

	body, err := c.fetchBody(ctx, params)
	if err != nil {
		return Page{}, err
	}

	return parsePage(body)
}

// fetchBody returns the raw response body for the query, from the page
// cache when enabled and populated.
func (c *Client) fetchBody(ctx context.Context, params url.Values) ([]byte, error) {
	var cacheKey string
	if c.cache != nil {
		cacheKey = c.cache.key(c.config.Dataset, params)
		body, err := c.cache.Get(ctx, cacheKey)
		if err == nil {
			c.logger.Debug().Str("key", cacheKey).Msg("Page cache hit")
			return body, nil
		}
		if err != ErrCacheMiss {
			c.logger.Warn().Err(err).Msg("Page cache get failed")
		}
	}

	endpoint := fmt.Sprintf("%s/datasets/%s/lines", c.config.BaseURL, c.config.Dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.Observe(time.Since(startTime).Seconds())

	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("after", params.Get("after")).Msg("Data Fair request failed")
		return nil, &APIError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		// The API error body is short and useful for diagnosis.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Str("detail", string(detail)).
			Msg("Data Fair request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    strings.TrimSpace(string(detail)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			Class:   ErrorClassNetwork,
			Message: "read response body",
			Err:     err,
		}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body); err != nil {
			c.logger.Warn().Err(err).Msg("Page cache set failed")
		}
	}

	return body, nil
}

// linesResponse is the wire format of the lines endpoint.
type linesResponse struct {
	Results []map[string]any `json:"results"`
	Total   *int64           `json:"total"`
	Next    string           `json:"next"`
}

// parsePage decodes a lines response and extracts the continuation
// cursor from the embedded next URL.
func parsePage(body []byte) (Page, error) {
	var lr linesResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return Page{}, fmt.Errorf("decode lines response: %w", err)
	}

	page := Page{
		Rows:  make([]dataset.Record, 0, len(lr.Results)),
		Total: -1,
	}
	for _, row := range lr.Results {
		page.Rows = append(page.Rows, dataset.Record(row))
	}
	if lr.Total != nil {
		page.Total = *lr.Total
	}

	if lr.Next != "" {
		next, err := nextCursor(lr.Next)
		if err != nil {
			return Page{}, err
		}
		page.Next = next
	}

	return page, nil
}

// nextCursor extracts the after token from a continuation URL.
func nextCursor(nextURL string) (string, error) {
	u, err := url.Parse(nextURL)
	if err != nil {
		return "", fmt.Errorf("parse next URL: %w", err)
	}
	return u.Query().Get("after"), nil
}
