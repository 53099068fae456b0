// Package omdb resolves movie titles to metadata via the OMDb API, with a
// persistent file cache in front of every network call.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/config"
)

// Result is the narrow typed view of an OMDb response consumed by the
// merge step. Director is "" when the lookup failed or OMDb has no
// director information for the title.
type Result struct {
	Found    bool
	Director string
}

// Client queries the OMDb API for a title/year pair, preferring the cache.
// Lookups are strictly sequential; after every network call the client
// pauses briefly to respect OMDb's rate limit.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	throttle   time.Duration
	cache      *Cache
	logger     *zap.Logger
}

// NewClient creates an OMDb client using the given cache for lookups and
// writebacks.
func NewClient(cfg config.OMDbConfig, cache *Cache, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		throttle: time.Duration(cfg.ThrottleMillis) * time.Millisecond,
		cache:    cache,
		logger:   logger.Named("omdb"),
	}
}

// Lookup resolves a title/year pair to a Result. A cached entry is
// returned without touching the network. On a miss the client issues one
// GET; transport and decode failures are synthesized into a not-found
// response rather than returned as errors, so one flaky lookup never
// aborts the run. Both outcomes are written to the cache before
// returning, which also prevents re-fetching known failures on later
// runs. The only error path is a cache flush failure.
func (c *Client) Lookup(ctx context.Context, title string, year *int) (Result, error) {
	key := Key(title, year)

	if resp, ok := c.cache.Get(key); ok {
		c.logger.Debug("Cache hit", zap.String("key", key))
		return resultOf(resp), nil
	}

	resp := c.fetch(ctx, title, year)
	if err := c.cache.Put(key, resp); err != nil {
		return Result{}, fmt.Errorf("failed to cache OMDb response: %w", err)
	}

	// Fixed pause on the network path only; cache hits skip it.
	select {
	case <-time.After(c.throttle):
	case <-ctx.Done():
	}

	return resultOf(resp), nil
}

// fetch performs the actual OMDb request. Failures come back as a
// synthesized not-found Response carrying the error text, mirroring
// OMDb's own {"Response": "False", "Error": ...} shape.
func (c *Client) fetch(ctx context.Context, title string, year *int) Response {
	endpoint, err := c.buildURL(title, year)
	if err != nil {
		c.logger.Warn("Failed to build OMDb URL", zap.String("title", title), zap.Error(err))
		return failure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failure(err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching from OMDb", zap.String("title", title))

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("OMDb request failed", zap.String("title", title), zap.Error(err))
		return failure(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.logger.Warn("Failed to read OMDb response", zap.String("title", title), zap.Error(err))
		return failure(err)
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("Failed to parse OMDb response",
			zap.String("title", title),
			zap.Int("status", httpResp.StatusCode),
			zap.Error(err))
		return failure(err)
	}

	return resp
}

// buildURL constructs the OMDb query URL with apikey, title and optional
// year parameters.
func (c *Client) buildURL(title string, year *int) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("apikey", c.apiKey)
	q.Set("t", title)
	if year != nil {
		q.Set("y", strconv.Itoa(*year))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// failure synthesizes a not-found response from a local error.
func failure(err error) Response {
	return Response{
		"Response": "False",
		"Error":    err.Error(),
	}
}

// resultOf derives the typed view from a raw response.
func resultOf(resp Response) Result {
	return Result{
		Found:    resp.Found(),
		Director: resp.Director(),
	}
}
